package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"boxscout/internal/config"
	"boxscout/internal/pipeline"
	"boxscout/internal/store"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var stages []string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the batch pipeline",
		Long: "Runs the staged batch pipeline: ingest, profile rebuild, derived metrics,\n" +
			"identity resolution, and potential scoring. Use --stage to run a subset.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				runner := pipeline.NewRunner(cfg, st, ctx.logger())
				report, err := runner.Run(cmd.Context(), stages...)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run %s completed in %s\n", report.RunID, report.Duration)
				rows := make([][]string, 0, len(report.Stages))
				for _, stage := range report.Stages {
					keys := make([]string, 0, len(stage.Counts))
					for k := range stage.Counts {
						keys = append(keys, k)
					}
					sort.Strings(keys)
					parts := make([]string, 0, len(keys))
					for _, k := range keys {
						parts = append(parts, fmt.Sprintf("%s=%d", k, stage.Counts[k]))
					}
					rows = append(rows, []string{stage.Stage, strings.Join(parts, " ")})
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"Stage", "Counts"}, rows,
					[]columnAlignment{alignLeft, alignLeft}))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&stages, "stage", nil,
		"Stages to run (ingest, profiles, metrics, identity, potential); default all")
	return cmd
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent batch runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				runs, err := st.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, runs)
				}

				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					finished := "-"
					if run.FinishedAt != nil {
						finished = run.FinishedAt.Format("2006-01-02 15:04:05")
					}
					rows = append(rows, []string{
						run.ID,
						run.Status,
						run.StartedAt.Format("2006-01-02 15:04:05"),
						finished,
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(out,
					[]string{"Run", "Status", "Started", "Finished"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft}))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum runs to show")
	return cmd
}

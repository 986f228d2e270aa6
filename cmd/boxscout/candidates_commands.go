package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"boxscout/internal/config"
	"boxscout/internal/identity"
	"boxscout/internal/store"
)

func newCandidatesCommand(ctx *commandContext) *cobra.Command {
	candidatesCmd := &cobra.Command{
		Use:   "candidates",
		Short: "Review and validate identity candidate pairs",
	}

	candidatesCmd.AddCommand(newCandidatesListCommand(ctx))
	candidatesCmd.AddCommand(newCandidatesValidateCommand(ctx))
	candidatesCmd.AddCommand(newCandidatesStatsCommand(ctx))

	return candidatesCmd
}

func newCandidatesListCommand(ctx *commandContext) *cobra.Command {
	var status string
	var minScore float64
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List candidate pairs awaiting review",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				candidates, err := st.ListCandidates(cmd.Context(), store.CandidateFilter{
					Status:   strings.TrimSpace(status),
					MinScore: minScore,
					Limit:    limit,
				})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, candidates)
				}

				rows := make([][]string, 0, len(candidates))
				for _, c := range candidates {
					rows = append(rows, []string{
						strconv.FormatInt(c.ID, 10),
						fmt.Sprintf("%d / %d", c.ProfileID1, c.ProfileID2),
						fmt.Sprintf("%.3f", c.Score),
						fmt.Sprintf("%.2f", c.NameMatch),
						fmt.Sprintf("%.2f", c.AgeMatch),
						c.Confidence,
						c.ValidationStatus,
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(out,
					[]string{"ID", "Profiles", "Score", "Name", "Age", "Confidence", "Status"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft}))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", store.ValidationPending, "Filter by validation status (empty for all)")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "Minimum candidate score")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum candidates to show")
	return cmd
}

func newCandidatesValidateCommand(ctx *commandContext) *cobra.Command {
	var status string
	var validator string
	var notes string

	cmd := &cobra.Command{
		Use:   "validate <candidate-id>",
		Short: "Record a human decision on a candidate pair",
		Long: "Marks a candidate pair confirmed, rejected, or unsure. Confirming merges the\n" +
			"two profiles under one identity and locks both against automatic reassignment.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			candidateID, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid candidate id %q", args[0])
			}
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				matcher := identity.NewMatcher(st, cfg, nil, ctx.logger())
				if err := matcher.Validate(cmd.Context(), candidateID, status, validator, notes); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Candidate %d marked %s\n", candidateID, status)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Decision: confirmed, rejected, or unsure")
	cmd.Flags().StringVar(&validator, "validator", "", "Name of the reviewer")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form review notes")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func newCandidatesStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize candidate pairs by status and confidence",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				stats, err := st.CandidateSummary(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, stats)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Total: %d (pending %d, confirmed %d, rejected %d, unsure %d)\n",
					stats.Total, stats.Pending, stats.Confirmed, stats.Rejected, stats.Unsure)

				tiers := make([]string, 0, len(stats.ByTier))
				for tier := range stats.ByTier {
					tiers = append(tiers, tier)
				}
				sort.Strings(tiers)
				rows := make([][]string, 0, len(tiers))
				for _, tier := range tiers {
					rows = append(rows, []string{tier, strconv.Itoa(stats.ByTier[tier])})
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"Confidence", "Pairs"}, rows,
					[]columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

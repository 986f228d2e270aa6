package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"boxscout/internal/config"
	"boxscout/internal/pipeline"
	"boxscout/internal/store"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file.json> [file.json ...]",
		Short: "Load game documents into the database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				runner := pipeline.NewRunner(cfg, st, ctx.logger())
				res, err := runner.IngestFiles(cmd.Context(), args)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, res)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Ingested %d games (%d observations) from %d files\n",
					res.Games, res.Observations, res.Files)
				if res.SkippedRows > 0 {
					fmt.Fprintf(out, "Skipped %d malformed player rows\n", res.SkippedRows)
				}
				if res.FailedFiles > 0 {
					return fmt.Errorf("%d of %d files failed to ingest", res.FailedFiles, res.Files)
				}
				return nil
			})
		},
	}
}

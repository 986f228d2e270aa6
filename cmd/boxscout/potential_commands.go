package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"boxscout/internal/config"
	"boxscout/internal/store"
)

func newPotentialCommand(ctx *commandContext) *cobra.Command {
	potentialCmd := &cobra.Command{
		Use:   "potential",
		Short: "Ranked potential scores",
	}

	potentialCmd.AddCommand(newPotentialListCommand(ctx))
	potentialCmd.AddCommand(newPotentialCareerCommand(ctx))

	return potentialCmd
}

func newPotentialListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var minScore float64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List profile potential scores, best first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				potentials, err := st.ListProfilePotential(cmd.Context(), limit)
				if err != nil {
					return err
				}
				filtered := potentials[:0]
				for _, p := range potentials {
					if p.Composite != nil && *p.Composite < minScore {
						continue
					}
					filtered = append(filtered, p)
				}

				if ctx.jsonOutput() {
					return writeJSON(cmd, filtered)
				}

				rows := make([][]string, 0, len(filtered))
				for _, p := range filtered {
					name, season := "?", "?"
					if profile, err := st.GetProfile(cmd.Context(), p.ProfileID); err == nil {
						name, season = profile.NameRaw, profile.Season
					}
					flags := ""
					if p.YoungTalent {
						flags += "young "
					}
					if p.ConsistentPlayer {
						flags += "consistent"
					}
					rows = append(rows, []string{
						strconv.FormatInt(p.ProfileID, 10),
						name,
						season,
						fmtScore(p.Composite),
						fmtScore(p.Confidence),
						strOrDash(p.Tier),
						yesNo(p.Eligible),
						flags,
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(out,
					[]string{"Profile", "Player", "Season", "Score", "Confidence", "Tier", "Eligible", "Flags"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft, alignLeft}))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows to show")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "Minimum composite score")
	return cmd
}

func newPotentialCareerCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "career",
		Short: "List unified career scores across seasons, best first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				careers, err := st.ListCareerPotential(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, careers)
				}

				rows := make([][]string, 0, len(careers))
				for _, c := range careers {
					name := "?"
					if ident, err := st.GetIdentity(cmd.Context(), c.IdentityID); err == nil {
						name = ident.CanonicalName
					}
					flags := ""
					if c.RisingStar {
						flags += "rising "
					}
					if c.EstablishedTalent {
						flags += "established "
					}
					if c.PeakPerformer {
						flags += "peak"
					}
					rows = append(rows, []string{
						strconv.FormatInt(c.IdentityID, 10),
						name,
						strconv.Itoa(c.SeasonsCounted),
						strconv.Itoa(c.TotalGames),
						fmtScore(c.Unified),
						fmtScore(c.TrajectoryScore),
						strOrDash(c.Tier),
						flags,
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(out,
					[]string{"Identity", "Player", "Seasons", "Games", "Unified", "Trajectory", "Tier", "Flags"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft}))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows to show")
	return cmd
}

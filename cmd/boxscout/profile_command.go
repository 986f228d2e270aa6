package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"boxscout/internal/config"
	"boxscout/internal/services"
	"boxscout/internal/store"
)

func newProfileCommand(ctx *commandContext) *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect player-season profiles",
	}

	profileCmd.AddCommand(newProfileShowCommand(ctx))
	profileCmd.AddCommand(newProfileListCommand(ctx))

	return profileCmd
}

type profileDetail struct {
	Profile   *store.Profile          `json:"profile"`
	Metrics   *store.ProfileMetrics   `json:"metrics,omitempty"`
	Potential *store.ProfilePotential `json:"potential,omitempty"`
	Identity  *store.Identity         `json:"identity,omitempty"`
}

func newProfileShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <profile-id>",
		Short: "Show one profile with its metrics and potential score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profileID, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid profile id %q", args[0])
			}
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				detail := profileDetail{}
				detail.Profile, err = st.GetProfile(cmd.Context(), profileID)
				if err != nil {
					return err
				}
				if m, err := st.GetProfileMetrics(cmd.Context(), profileID); err == nil {
					detail.Metrics = m
				} else if !errors.Is(err, services.ErrNotFound) {
					return err
				}
				if p, err := st.GetProfilePotential(cmd.Context(), profileID); err == nil {
					detail.Potential = p
				} else if !errors.Is(err, services.ErrNotFound) {
					return err
				}
				if detail.Profile.IdentityID != nil {
					if ident, err := st.GetIdentity(cmd.Context(), *detail.Profile.IdentityID); err == nil {
						detail.Identity = ident
					} else if !errors.Is(err, services.ErrNotFound) {
						return err
					}
				}

				if ctx.jsonOutput() {
					return writeJSON(cmd, detail)
				}
				renderProfileDetail(cmd, detail)
				return nil
			})
		},
	}
}

func renderProfileDetail(cmd *cobra.Command, detail profileDetail) {
	out := cmd.OutOrStdout()
	p := detail.Profile

	fmt.Fprintf(out, "%s (profile %d)\n", p.NameRaw, p.ID)
	fmt.Fprintf(out, "  %s, %s %s, level %d, born %s\n",
		p.TeamID, p.Competition, p.Season, p.Level, fmtIntPtr(p.BirthYear))
	fmt.Fprintf(out, "  %d games, %.0f minutes, %.1f pts/game\n",
		p.GamesPlayed, p.TotalMinutes, p.AvgPoints)
	if detail.Identity != nil {
		locked := ""
		if p.IdentityLocked {
			locked = " (locked)"
		}
		fmt.Fprintf(out, "  identity %d: %s [%s]%s\n",
			detail.Identity.ID, detail.Identity.CanonicalName, detail.Identity.Origin, locked)
	}

	if m := detail.Metrics; m != nil {
		fmt.Fprintln(out)
		rows := [][]string{
			{"Points/36", fmtScore(m.PointsPer36)},
			{"Rolling-5 points", fmtScore(m.Rolling5Points)},
			{"Momentum", fmtScore(m.Momentum)},
			{"Trend slope", fmtScore(m.TrendSlope)},
			{"Stability", fmtScore(m.StabilityIndex)},
			{"Z points", fmtScore(m.ZPoints)},
			{"Z off. rating", fmtScore(m.ZOffensiveRating)},
			{"Performance tier", strOrDash(m.PerformanceTier)},
		}
		fmt.Fprintln(out, renderTable(out,
			[]string{"Metric", "Value"}, rows,
			[]columnAlignment{alignLeft, alignRight}))
	}

	if pot := detail.Potential; pot != nil {
		fmt.Fprintln(out)
		if !pot.Eligible {
			fmt.Fprintf(out, "Not eligible for ranking: %s\n", strOrDash(pot.IneligibleReason))
		}
		rows := [][]string{
			{"Age", fmtScore(pot.AgeScore)},
			{"Performance", fmtScore(pot.PerformanceScore)},
			{"Consistency", fmtScore(pot.ConsistencyScore)},
			{"Advanced", fmtScore(pot.AdvancedScore)},
			{"Momentum", fmtScore(pot.MomentumScore)},
			{"Production", fmtScore(pot.ProductionScore)},
			{"Composite", fmtScore(pot.Composite)},
			{"Confidence", fmtScore(pot.Confidence)},
			{"Tier", strOrDash(pot.Tier)},
		}
		fmt.Fprintln(out, renderTable(out,
			[]string{"Potential", "Score"}, rows,
			[]columnAlignment{alignLeft, alignRight}))
	}
}

func newProfileListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				profiles, err := st.ListProfiles(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, profiles)
				}

				rows := make([][]string, 0, len(profiles))
				for _, p := range profiles {
					identityID := "-"
					if p.IdentityID != nil {
						identityID = strconv.FormatInt(*p.IdentityID, 10)
					}
					rows = append(rows, []string{
						strconv.FormatInt(p.ID, 10),
						p.NameRaw,
						p.TeamID,
						p.Competition,
						p.Season,
						strconv.Itoa(p.GamesPlayed),
						fmt.Sprintf("%.1f", p.AvgPoints),
						identityID,
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(out,
					[]string{"ID", "Player", "Team", "Competition", "Season", "Games", "Pts", "Identity"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight}))
				return nil
			})
		},
	}
}

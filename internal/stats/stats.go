// Package stats computes advanced per-game basketball metrics from a
// canonical observation. Every metric is nullable: a zero denominator yields
// nil, never NaN or Inf.
package stats

import "boxscout/internal/boxscore"

// Advanced holds the derived metrics for one observation. Nil means the
// metric is undefined for this stat line.
type Advanced struct {
	TrueShootingPct     *float64
	EffectiveFGPct      *float64
	TurnoverPct         *float64
	FreeThrowRate       *float64
	AssistToTurnover    *float64
	OffensiveRating     *float64
	PlayerEfficiency    *float64
	UsageRate           *float64
	OffensiveReboundPct *float64
	DefensiveReboundPct *float64
	WinShares           *float64
	WinSharesPer36      *float64
}

// Compute derives the full advanced stat line for one observation, using
// the same-game team and opponent totals where they are populated.
func Compute(o *boxscore.Observation) Advanced {
	adv := Advanced{
		TrueShootingPct:  TrueShootingPct(o.Points, o.FieldGoalsAttempted, o.FreeThrowsAttempted),
		EffectiveFGPct:   EffectiveFGPct(o.FieldGoalsMade, o.ThreePointsMade, o.FieldGoalsAttempted),
		TurnoverPct:      TurnoverPct(o.Turnovers, o.FieldGoalsAttempted, o.FreeThrowsAttempted),
		FreeThrowRate:    FreeThrowRate(o.FreeThrowsAttempted, o.FieldGoalsAttempted),
		AssistToTurnover: AssistToTurnover(o.Assists, o.Turnovers),
		OffensiveRating:  OffensiveRating(o.Points, o.FieldGoalsAttempted, o.FreeThrowsAttempted, o.Turnovers),
		PlayerEfficiency: PlayerEfficiency(o),
		UsageRate: UsageRate(
			o.FieldGoalsAttempted, o.FreeThrowsAttempted, o.Turnovers, o.MinutesPlayed,
			&o.Team),
		OffensiveReboundPct: offensiveReboundPct(o),
		DefensiveReboundPct: defensiveReboundPct(o),
	}

	adv.WinShares = WinShares(adv.PlayerEfficiency, o.MinutesPlayed)
	if adv.WinShares != nil && o.MinutesPlayed > 0 {
		adv.WinSharesPer36 = f64(*adv.WinShares * 36 / o.MinutesPlayed)
	}
	return adv
}

// TrueShootingPct is PTS / (2 * (FGA + 0.44 * FTA)).
func TrueShootingPct(pts, fga, fta int) *float64 {
	denom := 2 * (float64(fga) + 0.44*float64(fta))
	if denom == 0 {
		return nil
	}
	return f64(float64(pts) / denom)
}

// EffectiveFGPct is (FGM + 0.5 * 3PM) / FGA.
func EffectiveFGPct(fgm, fg3m, fga int) *float64 {
	if fga == 0 {
		return nil
	}
	return f64((float64(fgm) + 0.5*float64(fg3m)) / float64(fga))
}

// TurnoverPct is TOV / (FGA + 0.44 * FTA + TOV).
func TurnoverPct(tov, fga, fta int) *float64 {
	denom := float64(fga) + 0.44*float64(fta) + float64(tov)
	if denom == 0 {
		return nil
	}
	return f64(float64(tov) / denom)
}

// FreeThrowRate is FTA / FGA.
func FreeThrowRate(fta, fga int) *float64 {
	if fga == 0 {
		return nil
	}
	return f64(float64(fta) / float64(fga))
}

// AssistToTurnover is AST / TOV. With zero turnovers the assist count itself
// is reported, keeping the ratio finite.
func AssistToTurnover(ast, tov int) *float64 {
	if tov == 0 {
		if ast == 0 {
			return nil
		}
		return f64(float64(ast))
	}
	return f64(float64(ast) / float64(tov))
}

// OffensiveRating estimates points produced per 100 individual possessions,
// where possessions = FGA + 0.44*FTA + TOV.
func OffensiveRating(pts, fga, fta, tov int) *float64 {
	poss := float64(fga) + 0.44*float64(fta) + float64(tov)
	if poss == 0 {
		return nil
	}
	return f64(float64(pts) / poss * 100)
}

// PlayerEfficiency is a simplified per-minute efficiency rating scaled by 15
// to land near standard PER values.
func PlayerEfficiency(o *boxscore.Observation) *float64 {
	if o.MinutesPlayed == 0 {
		return nil
	}
	positive := o.Points + o.TotalRebounds + o.Assists + o.Steals + o.Blocks
	negative := (o.FieldGoalsAttempted - o.FieldGoalsMade) +
		(o.FreeThrowsAttempted - o.FreeThrowsMade) +
		o.Turnovers
	return f64(float64(positive-negative) / o.MinutesPlayed * 15)
}

// UsageRate estimates the share of team possessions the player used while
// on court. With team totals available the full formula applies; otherwise
// a per-minute estimate stands in.
func UsageRate(fga, fta, tov int, minutes float64, team *boxscore.TeamTotals) *float64 {
	if minutes == 0 {
		return nil
	}
	playerPoss := float64(fga) + 0.44*float64(fta) + float64(tov)

	if team != nil && team.Minutes > 0 {
		teamPoss := float64(team.FieldGoalsAttempted) + 0.44*float64(team.FreeThrowsAttempted) + float64(team.Turnovers)
		if teamPoss == 0 {
			return nil
		}
		return f64(100 * (playerPoss * (team.Minutes / 5)) / (minutes * teamPoss))
	}

	return f64(playerPoss / minutes * 100)
}

// ReboundPct computes a rebound share against the pool of available
// rebounds, adjusted to full-strength minutes when both minute totals are
// known.
func ReboundPct(playerReb, ownPool, otherPool int, minutes, teamMinutes float64) *float64 {
	pool := ownPool + otherPool
	if pool == 0 {
		return nil
	}
	pct := float64(playerReb) / float64(pool)
	if minutes > 0 && teamMinutes > 0 {
		pct *= teamMinutes / (5 * minutes)
	}
	return f64(pct)
}

func offensiveReboundPct(o *boxscore.Observation) *float64 {
	return ReboundPct(o.OffensiveRebounds, o.Team.OffensiveRebounds, o.Opponent.DefensiveRebounds,
		o.MinutesPlayed, o.Team.Minutes)
}

func defensiveReboundPct(o *boxscore.Observation) *float64 {
	return ReboundPct(o.DefensiveRebounds, o.Team.DefensiveRebounds, o.Opponent.OffensiveRebounds,
		o.MinutesPlayed, o.Team.Minutes)
}

// WinShares is (PER * minutes / 40) / 100.
func WinShares(per *float64, minutes float64) *float64 {
	if per == nil || minutes == 0 {
		return nil
	}
	return f64(*per * minutes / 40 / 100)
}

// Per36 scales a raw stat total to a 36-minute rate. Undefined when no
// minutes were played.
func Per36(total, minutes float64) *float64 {
	if minutes == 0 {
		return nil
	}
	return f64(total * 36 / minutes)
}

func f64(v float64) *float64 {
	return &v
}

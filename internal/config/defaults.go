package config

const (
	defaultDataDir = "~/.local/share/boxscout"
	defaultLogDir  = "~/.local/share/boxscout/logs"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultNameWeight     = 0.40
	defaultAgeWeight      = 0.30
	defaultTeamWeight     = 0.20
	defaultTimelineWeight = 0.10

	defaultMinCandidateScore    = 0.50
	defaultAutoConsolidateScore = 0.95
	defaultVeryHighThreshold    = 0.85
	defaultHighThreshold        = 0.70
	defaultMediumThreshold      = 0.50
	defaultMaxSeasonGap         = 6

	defaultContextMinMinutes = 10
	defaultSmallSampleWarn   = 30

	defaultShortWindow      = 5
	defaultLongWindow       = 10
	defaultTrendMinGames    = 3
	defaultStabilityDamping = 4.0

	defaultMinGames        = 8
	defaultMinTotalMinutes = 80
	defaultMinAvgMinutes   = 8

	defaultRecentSeasons = 2
	defaultLevelFallback = 4
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Matcher: Matcher{
			NameWeight:           defaultNameWeight,
			AgeWeight:            defaultAgeWeight,
			TeamWeight:           defaultTeamWeight,
			TimelineWeight:       defaultTimelineWeight,
			MinCandidateScore:    defaultMinCandidateScore,
			AutoConsolidateScore: defaultAutoConsolidateScore,
			VeryHighThreshold:    defaultVeryHighThreshold,
			HighThreshold:        defaultHighThreshold,
			MediumThreshold:      defaultMediumThreshold,
			MaxSeasonGap:         defaultMaxSeasonGap,
		},
		Normalization: Normalization{
			MinMinutes:      defaultContextMinMinutes,
			SmallSampleWarn: defaultSmallSampleWarn,
		},
		Metrics: Metrics{
			ShortWindow:      defaultShortWindow,
			LongWindow:       defaultLongWindow,
			TrendMinGames:    defaultTrendMinGames,
			StabilityDamping: defaultStabilityDamping,
		},
		Potential: Potential{
			Eligibility: Eligibility{
				MinGames:        defaultMinGames,
				MinTotalMinutes: defaultMinTotalMinutes,
				MinAvgMinutes:   defaultMinAvgMinutes,
			},
			ProfileWeights: ProfileWeights{
				Age:         0.20,
				Performance: 0.30,
				Production:  0.15,
				Consistency: 0.15,
				Advanced:    0.10,
				Momentum:    0.10,
			},
			CareerWeights: CareerWeights{
				Recent:      0.50,
				Trajectory:  0.25,
				CareerAvg:   0.05,
				Age:         0.10,
				Consistency: 0.05,
				Confidence:  0.05,
			},
			ProfileTiers: ProfileTiers{
				Elite:    0.85,
				VeryHigh: 0.75,
				High:     0.60,
				Medium:   0.45,
				Low:      0.30,
			},
			CareerTiers: CareerTiers{
				Elite:    0.70,
				VeryHigh: 0.60,
				High:     0.50,
				Medium:   0.40,
			},
			RecentSeasons: defaultRecentSeasons,
		},
		Levels: Levels{
			DefaultLevel: defaultLevelFallback,
			Assign: map[string]int{
				"ACB":             1,
				"LEB ORO":         2,
				"LEB PLATA":       3,
				"EBA":             4,
				"LIGA FEMENINA":   1,
				"LIGA FEMENINA 2": 2,
				"LIGA CHALLENGE":  2,
				"PRIMERA FEB":     3,
			},
			Overrides: []LevelOverride{
				// LF2 dropped a tier when LIGA CHALLENGE was created.
				{Competition: "LIGA FEMENINA 2", FromSeason: "2020/2021", Level: 3},
			},
		},
	}
}

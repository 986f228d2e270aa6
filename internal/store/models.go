package store

import "time"

// Validation states for identity candidates.
const (
	ValidationPending   = "pending"
	ValidationConfirmed = "confirmed"
	ValidationRejected  = "rejected"
	ValidationUnsure    = "unsure"
)

// Identity origin markers.
const (
	IdentityOriginAuto  = "auto"
	IdentityOriginHuman = "human"
)

// Batch run states.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Profile is one observed (player, team, season, competition) occurrence
// with its season aggregates.
type Profile struct {
	ID             int64
	NameRaw        string
	NameNormalized string
	BirthYear      *int
	TeamID         string
	Season         string
	Competition    string
	Level          int

	IdentityID     *int64
	IdentityLocked bool

	GamesPlayed  int
	TotalMinutes float64
	TotalPoints  int
	AvgMinutes   float64
	AvgPoints    float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Candidate is a scored pair of profiles suspected to be the same person.
// ProfileID1 is always the smaller id so each pair is stored once.
type Candidate struct {
	ID         int64
	ProfileID1 int64
	ProfileID2 int64

	NameMatch   float64
	AgeMatch    float64
	TeamOverlap float64
	TimelineFit float64
	Score       float64
	Confidence  string

	ValidationStatus string
	Validator        *string
	Notes            *string
	ValidatedAt      *time.Time

	CreatedAt time.Time
}

// Identity is a consolidated grouping of profiles believed to be one person.
type Identity struct {
	ID            int64
	CanonicalName string
	BirthYear     *int
	Origin        string
	CreatedAt     time.Time
}

// ProfileMetrics is the derived per (profile, season) metric row. Nullable
// metrics are nil when undefined.
type ProfileMetrics struct {
	ProfileID int64
	Season    string

	PointsPer36   *float64
	ReboundsPer36 *float64
	AssistsPer36  *float64
	StealsPer36   *float64
	BlocksPer36   *float64

	AvgTrueShootingPct  *float64
	AvgOffensiveRating  *float64
	AvgPlayerEfficiency *float64
	AvgUsageRate        *float64

	Rolling5Points  *float64
	Rolling10Points *float64
	TrendSlope      *float64
	Momentum        *float64

	CoefficientOfVariation *float64
	StabilityIndex         *float64

	PointsShare  *float64
	MinutesShare *float64
	EffVsTeam    *float64

	ZPoints           *float64
	ZOffensiveRating  *float64
	ZPlayerEfficiency *float64
	PercentileOER     *float64
	PerformanceTier   *string
	LowVarianceCtx    bool

	ComputedAt time.Time
}

// ProfilePotential is the scored potential of one profile season.
type ProfilePotential struct {
	ProfileID int64

	Eligible         bool
	IneligibleReason *string

	AgeScore         *float64
	PerformanceScore *float64
	ConsistencyScore *float64
	AdvancedScore    *float64
	MomentumScore    *float64
	ProductionScore  *float64

	Composite  *float64
	Confidence *float64
	Tier       *string

	YoungTalent      bool
	ConsistentPlayer bool

	ComputedAt time.Time
}

// CareerPotential is the unified multi-season score for one identity.
type CareerPotential struct {
	IdentityID int64

	SeasonsCounted int
	TotalGames     int

	RecentScore     *float64
	TrajectoryScore *float64
	CareerAvgScore  *float64
	AgeScore        *float64
	Consistency     *float64
	Confidence      *float64
	LevelJumpBonus  *float64

	Unified *float64
	Tier    *string

	RisingStar          bool
	EstablishedTalent   bool
	PeakPerformer       bool
	ConsistentPerformer bool

	ComputedAt time.Time
}

// BatchRun is one pipeline execution audit record.
type BatchRun struct {
	ID         string
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
	Report     string
}

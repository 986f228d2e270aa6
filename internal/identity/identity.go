// Package identity builds candidate pairs between player profiles, scores
// them on name, age, team, and timeline evidence, and consolidates profiles
// into identities. High-confidence exact-name groups merge automatically;
// everything else waits for a human decision.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"boxscout/internal/config"
	"boxscout/internal/league"
	"boxscout/internal/names"
	"boxscout/internal/services"
	"boxscout/internal/store"
)

// Matcher generates and validates identity candidates.
type Matcher struct {
	store  *store.Store
	cfg    *config.Config
	names  *names.Cache
	logger *slog.Logger
}

// NewMatcher wires a matcher over the store. The name cache is shared with
// the caller so normalization work is reused across stages.
func NewMatcher(st *store.Store, cfg *config.Config, cache *names.Cache, logger *slog.Logger) *Matcher {
	if cache == nil {
		cache = names.NewCache()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Matcher{store: st, cfg: cfg, names: cache, logger: logger}
}

// Score holds the component and composite scores for one profile pair.
type Score struct {
	NameMatch   float64
	AgeMatch    float64
	TeamOverlap float64
	TimelineFit float64
	Composite   float64
	Confidence  string
}

// ScorePair computes the weighted candidate score between two profiles.
func (m *Matcher) ScorePair(a, b *store.Profile) Score {
	w := m.cfg.Matcher

	s := Score{
		NameMatch:   m.names.Similarity(a.NameRaw, b.NameRaw),
		AgeMatch:    AgeMatch(a.BirthYear, b.BirthYear),
		TeamOverlap: TeamOverlap(a.TeamID, b.TeamID),
		TimelineFit: TimelineFit(a.Season, b.Season),
	}
	s.Composite = w.NameWeight*s.NameMatch +
		w.AgeWeight*s.AgeMatch +
		w.TeamWeight*s.TeamOverlap +
		w.TimelineWeight*s.TimelineFit
	s.Confidence = m.Confidence(s.Composite)
	return s
}

// AgeMatch scores birth-year proximity. Missing years are neutral rather
// than disqualifying; a one-year difference is tolerated as a likely data
// entry error.
func AgeMatch(y1, y2 *int) float64 {
	if y1 == nil || y2 == nil {
		return 0.5
	}
	diff := *y1 - *y2
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff == 0:
		return 1.0
	case diff == 1:
		return 0.7
	case diff == 2:
		return 0.3
	default:
		return 0.0
	}
}

// TeamOverlap scores shared team history.
func TeamOverlap(t1, t2 string) float64 {
	if t1 == "" || t2 == "" {
		return 0.3
	}
	if t1 == t2 {
		return 1.0
	}
	return 0.2
}

// TimelineFit scores temporal continuity between two season labels.
// Consecutive seasons are the strongest signal; the same season suggests a
// mid-season transfer, and long gaps point to different players.
func TimelineFit(s1, s2 string) float64 {
	y1, err1 := league.SeasonStartYear(s1)
	y2, err2 := league.SeasonStartYear(s2)
	if err1 != nil || err2 != nil {
		return 0.3
	}
	diff := y1 - y2
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff == 0:
		return 0.8
	case diff == 1:
		return 1.0
	case diff == 2:
		return 0.6
	case diff <= 4:
		return 0.3
	default:
		return 0.1
	}
}

// Confidence maps a composite score onto a review tier.
func (m *Matcher) Confidence(score float64) string {
	w := m.cfg.Matcher
	switch {
	case score >= w.VeryHighThreshold:
		return "very_high"
	case score >= w.HighThreshold:
		return "high"
	case score >= w.MediumThreshold:
		return "medium"
	default:
		return "low"
	}
}

// Result reports one matcher pass.
type Result struct {
	Profiles     int
	Pairs        int
	Candidates   int
	Consolidated int
	Skipped      int
}

// Run generates candidates and then runs the automatic consolidation fast
// path over the current profile pool.
func (m *Matcher) Run(ctx context.Context) (*Result, error) {
	profiles, err := m.store.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{Profiles: len(profiles)}
	if err := m.generateCandidates(ctx, profiles, res); err != nil {
		return nil, err
	}
	if err := m.autoConsolidate(ctx, profiles, res); err != nil {
		return nil, err
	}

	m.logger.Info("identity pass complete",
		"profiles", res.Profiles,
		"pairs", res.Pairs,
		"candidates", res.Candidates,
		"consolidated", res.Consolidated,
		"skipped", res.Skipped)
	return res, nil
}

// generateCandidates scores profile pairs inside surname blocks and stores
// every pair at or above the candidate floor. Blocking keeps the comparison
// well under the full O(n²) sweep: two spellings of the same player still
// share a surname token after normalization.
func (m *Matcher) generateCandidates(ctx context.Context, profiles []*store.Profile, res *Result) error {
	blocks := make(map[string][]*store.Profile)
	for _, p := range profiles {
		blocks[m.blockKey(p)] = append(blocks[m.blockKey(p)], p)
	}

	maxGap := m.cfg.Matcher.MaxSeasonGap
	for _, block := range blocks {
		for i := 0; i < len(block); i++ {
			for j := i + 1; j < len(block); j++ {
				a, b := block[i], block[j]
				if !seasonsWithinGap(a.Season, b.Season, maxGap) {
					continue
				}
				res.Pairs++

				s := m.ScorePair(a, b)
				if s.Composite < m.cfg.Matcher.MinCandidateScore {
					continue
				}
				c := &store.Candidate{
					ProfileID1:       a.ID,
					ProfileID2:       b.ID,
					NameMatch:        s.NameMatch,
					AgeMatch:         s.AgeMatch,
					TeamOverlap:      s.TeamOverlap,
					TimelineFit:      s.TimelineFit,
					Score:            s.Composite,
					Confidence:       s.Confidence,
					ValidationStatus: store.ValidationPending,
				}
				if err := m.store.UpsertCandidate(ctx, c); err != nil {
					return err
				}
				res.Candidates++
			}
		}
	}
	return nil
}

// blockKey buckets a profile by its final surname token so likely matches
// land in the same block. Profiles without a parseable surname fall back to
// the whole normalized name.
func (m *Matcher) blockKey(p *store.Profile) string {
	parsed := m.names.Parse(p.NameRaw)
	tokens := names.SurnameTokens(parsed.Surname)
	if len(tokens) == 0 {
		return p.NameNormalized
	}
	return tokens[len(tokens)-1]
}

func seasonsWithinGap(s1, s2 string, maxGap int) bool {
	if maxGap <= 0 {
		return true
	}
	y1, err1 := league.SeasonStartYear(s1)
	y2, err2 := league.SeasonStartYear(s2)
	if err1 != nil || err2 != nil {
		return true
	}
	diff := y1 - y2
	if diff < 0 {
		diff = -diff
	}
	return diff <= maxGap
}

// autoConsolidate merges profiles whose normalized names match exactly.
// The earliest profile anchors the group. Merges never cross a birth-year
// difference above one, never touch a human-locked profile, and never pair
// two profiles a reviewer has explicitly rejected.
func (m *Matcher) autoConsolidate(ctx context.Context, profiles []*store.Profile, res *Result) error {
	// An exact normalized-name match scores 1.0; a threshold above that
	// disables the fast path entirely.
	if m.cfg.Matcher.AutoConsolidateScore > 1.0 {
		return nil
	}

	rejected, err := m.rejectedPairs(ctx)
	if err != nil {
		return err
	}

	groups := make(map[string][]*store.Profile)
	for _, p := range profiles {
		if p.NameNormalized == "" {
			continue
		}
		groups[p.NameNormalized] = append(groups[p.NameNormalized], p)
	}

	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })
		if err := m.consolidateGroup(ctx, group, rejected, res); err != nil {
			return err
		}
	}
	return nil
}

func (m *Matcher) consolidateGroup(ctx context.Context, group []*store.Profile, rejected map[[2]int64]bool, res *Result) error {
	anchor := group[0]

	identityID, err := m.identityFor(ctx, group, anchor)
	if err != nil {
		return err
	}

	// A joining profile must be compatible with every profile already
	// under the identity, not only the anchor. An anchor with no birth
	// year must not let two conflicting known years merge through it.
	members := make([]*store.Profile, 0, len(group))
	for _, p := range group {
		if p.IdentityID != nil && *p.IdentityID == identityID {
			members = append(members, p)
		}
	}

	for _, p := range group {
		if p.IdentityID != nil && *p.IdentityID == identityID {
			continue
		}
		if conflict := conflictingMember(members, p); conflict != nil {
			res.Skipped++
			m.logger.Warn("skipping auto merge, birth years conflict",
				"profile_id", p.ID,
				"member_id", conflict.ID,
				"name", p.NameNormalized)
			continue
		}
		if pairRejected(rejected, members, anchor, p) {
			res.Skipped++
			continue
		}

		err := m.store.AssignIdentity(ctx, p.ID, identityID, store.IdentityOriginAuto)
		if errors.Is(err, services.ErrConflict) {
			// Human decision stands.
			res.Skipped++
			continue
		}
		if err != nil {
			return err
		}
		res.Consolidated++
		members = append(members, p)
	}
	return nil
}

func conflictingMember(members []*store.Profile, p *store.Profile) *store.Profile {
	for _, member := range members {
		if birthYearsConflict(member.BirthYear, p.BirthYear) {
			return member
		}
	}
	return nil
}

func pairRejected(rejected map[[2]int64]bool, members []*store.Profile, anchor, p *store.Profile) bool {
	if p.ID != anchor.ID && rejected[pairKey(anchor.ID, p.ID)] {
		return true
	}
	for _, member := range members {
		if member.ID != p.ID && rejected[pairKey(member.ID, p.ID)] {
			return true
		}
	}
	return false
}

// identityFor picks the identity a group consolidates into: an identity
// already linked to a group member wins (earliest first), otherwise a new
// one is created from the anchor profile.
func (m *Matcher) identityFor(ctx context.Context, group []*store.Profile, anchor *store.Profile) (int64, error) {
	for _, p := range group {
		if p.IdentityID != nil {
			return *p.IdentityID, nil
		}
	}
	return m.store.CreateIdentity(ctx, anchor.NameRaw, anchor.BirthYear, store.IdentityOriginAuto)
}

func (m *Matcher) rejectedPairs(ctx context.Context) (map[[2]int64]bool, error) {
	list, err := m.store.ListCandidates(ctx, store.CandidateFilter{Status: store.ValidationRejected})
	if err != nil {
		return nil, err
	}
	pairs := make(map[[2]int64]bool, len(list))
	for _, c := range list {
		pairs[pairKey(c.ProfileID1, c.ProfileID2)] = true
	}
	return pairs, nil
}

func pairKey(a, b int64) [2]int64 {
	if a > b {
		a, b = b, a
	}
	return [2]int64{a, b}
}

func birthYearsConflict(y1, y2 *int) bool {
	if y1 == nil || y2 == nil {
		return false
	}
	diff := *y1 - *y2
	if diff < 0 {
		diff = -diff
	}
	return diff > 1
}

// Validate records a human decision on a candidate. Confirmation merges the
// two profiles under one identity and locks both against the automatic
// path. Rejection permanently excludes the pair from auto consolidation;
// unsure keeps the pair visible for another look.
func (m *Matcher) Validate(ctx context.Context, candidateID int64, status, validator, notes string) error {
	candidate, err := m.store.GetCandidate(ctx, candidateID)
	if err != nil {
		return err
	}
	if err := m.store.SetValidation(ctx, candidateID, status, validator, notes); err != nil {
		return err
	}
	if status != store.ValidationConfirmed {
		return nil
	}
	return m.merge(ctx, candidate.ProfileID1, candidate.ProfileID2)
}

func (m *Matcher) merge(ctx context.Context, profileID1, profileID2 int64) error {
	p1, err := m.store.GetProfile(ctx, profileID1)
	if err != nil {
		return err
	}
	p2, err := m.store.GetProfile(ctx, profileID2)
	if err != nil {
		return err
	}

	identityID, err := m.mergeTarget(ctx, p1, p2)
	if err != nil {
		return err
	}

	for _, p := range []*store.Profile{p1, p2} {
		if err := m.store.AssignIdentity(ctx, p.ID, identityID, store.IdentityOriginHuman); err != nil {
			return services.Wrap(services.ErrConflict, "identity", "merge", "reassigning profile", err)
		}
	}
	return nil
}

// mergeTarget resolves which identity survives a confirmed merge. When both
// profiles already have one, the earlier identity is canonical and every
// profile of the later identity moves over.
func (m *Matcher) mergeTarget(ctx context.Context, p1, p2 *store.Profile) (int64, error) {
	id1, id2 := p1.IdentityID, p2.IdentityID

	switch {
	case id1 != nil && id2 != nil:
		if *id1 == *id2 {
			return *id1, nil
		}
		keep, drop := *id1, *id2
		if drop < keep {
			keep, drop = drop, keep
		}
		moved, err := m.store.ProfilesByIdentity(ctx, drop)
		if err != nil {
			return 0, err
		}
		for _, p := range moved {
			if err := m.store.AssignIdentity(ctx, p.ID, keep, store.IdentityOriginHuman); err != nil {
				return 0, err
			}
		}
		return keep, nil
	case id1 != nil:
		return *id1, nil
	case id2 != nil:
		return *id2, nil
	default:
		anchor := p1
		if p2.ID < p1.ID {
			anchor = p2
		}
		return m.store.CreateIdentity(ctx, anchor.NameRaw, anchor.BirthYear, store.IdentityOriginHuman)
	}
}

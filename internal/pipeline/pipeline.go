// Package pipeline orchestrates the staged batch run: ingest raw game
// documents, rebuild profiles, derive metrics, resolve identities, and score
// potential. Stages run in a fixed order; a run is guarded by a file lock so
// two batches never write concurrently, and every run is recorded for audit.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"boxscout/internal/boxscore"
	"boxscout/internal/config"
	"boxscout/internal/identity"
	"boxscout/internal/league"
	"boxscout/internal/logging"
	"boxscout/internal/metrics"
	"boxscout/internal/names"
	"boxscout/internal/normalize"
	"boxscout/internal/potential"
	"boxscout/internal/services"
	"boxscout/internal/store"
)

// Stage names, in execution order.
const (
	StageIngest    = "ingest"
	StageProfiles  = "profiles"
	StageMetrics   = "metrics"
	StageIdentity  = "identity"
	StagePotential = "potential"
)

// Runner drives one batch through all stages.
type Runner struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger

	levels    *league.Resolver
	names     *names.Cache
	normCache *normalize.Cache
	lock      *flock.Flock
}

// NewRunner wires a pipeline runner.
func NewRunner(cfg *config.Config, st *store.Store, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		cfg:       cfg,
		store:     st,
		logger:    logger,
		levels:    league.NewResolver(cfg.Levels),
		names:     names.NewCache(),
		normCache: normalize.NewCache(cfg.Normalization.SmallSampleWarn, logging.WithStage(logger, StageMetrics)),
		lock:      flock.New(filepath.Join(cfg.Paths.DataDir, "boxscout.lock")),
	}
}

// Report summarizes one batch run for the audit table.
type Report struct {
	RunID    string        `json:"run_id"`
	Stages   []StageReport `json:"stages"`
	Duration string        `json:"duration"`
}

// StageReport is one stage's outcome.
type StageReport struct {
	Stage  string         `json:"stage"`
	Counts map[string]int `json:"counts"`
}

// IngestResult reports one ingest stage.
type IngestResult struct {
	Files        int
	Games        int
	Observations int
	SkippedRows  int
	FailedFiles  int
}

// Run executes the requested stages in order. An empty stage set means the
// full pipeline. The run aborts on the first stage error; partial progress
// stays committed, so the next run resumes idempotently.
func (r *Runner) Run(ctx context.Context, stages ...string) (*Report, error) {
	ok, err := r.lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "pipeline", "lock", "acquiring run lock", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrConflict, "pipeline", "lock", "another batch is running", nil)
	}
	defer func() {
		if err := r.lock.Unlock(); err != nil {
			r.logger.Warn("releasing run lock", "error", err)
		}
	}()

	wanted := stageSet(stages)
	report := &Report{RunID: uuid.NewString()}
	started := time.Now()

	if err := r.store.StartRun(ctx, report.RunID); err != nil {
		return nil, err
	}
	r.logger.Info("batch run started", "run_id", report.RunID, "stages", stages)

	// Caches are per-run state.
	r.names.Reset()
	r.normCache.Reset()

	runErr := r.runStages(ctx, wanted, report)
	report.Duration = time.Since(started).Round(time.Millisecond).String()

	status := store.RunStatusCompleted
	if runErr != nil {
		status = store.RunStatusFailed
	}
	payload, err := json.Marshal(report)
	if err != nil {
		payload = []byte("{}")
	}
	if err := r.store.FinishRun(ctx, report.RunID, status, string(payload)); err != nil {
		r.logger.Error("recording run outcome", "run_id", report.RunID, "error", err)
	}

	if runErr != nil {
		return report, runErr
	}
	r.logger.Info("batch run complete", "run_id", report.RunID, "duration", report.Duration)
	return report, nil
}

func (r *Runner) runStages(ctx context.Context, wanted map[string]bool, report *Report) error {
	add := func(stage string, counts map[string]int) {
		report.Stages = append(report.Stages, StageReport{Stage: stage, Counts: counts})
	}

	if wanted[StageIngest] {
		res, err := r.ingestDir(ctx)
		if err != nil {
			return err
		}
		add(StageIngest, map[string]int{
			"files":        res.Files,
			"games":        res.Games,
			"observations": res.Observations,
			"skipped_rows": res.SkippedRows,
			"failed_files": res.FailedFiles,
		})
	}

	if wanted[StageProfiles] {
		n, err := r.store.RebuildProfiles(ctx, func(competition, season string) int {
			return r.levels.Resolve(competition, season).Level
		})
		if err != nil {
			return err
		}
		add(StageProfiles, map[string]int{"profiles": n})
	}

	if wanted[StageMetrics] {
		computer := metrics.NewComputer(r.store, r.cfg, r.normCache, logging.WithStage(r.logger, StageMetrics))
		res, err := computer.Run(ctx)
		if err != nil {
			return err
		}
		add(StageMetrics, map[string]int{
			"profiles": res.Profiles,
			"computed": res.Computed,
			"failed":   res.Failed,
		})
	}

	if wanted[StageIdentity] {
		matcher := identity.NewMatcher(r.store, r.cfg, r.names, logging.WithStage(r.logger, StageIdentity))
		res, err := matcher.Run(ctx)
		if err != nil {
			return err
		}
		add(StageIdentity, map[string]int{
			"profiles":     res.Profiles,
			"pairs":        res.Pairs,
			"candidates":   res.Candidates,
			"consolidated": res.Consolidated,
			"skipped":      res.Skipped,
		})
	}

	if wanted[StagePotential] {
		profRes, err := potential.NewProfileScorer(r.store, r.cfg, logging.WithStage(r.logger, StagePotential)).Run(ctx)
		if err != nil {
			return err
		}
		careerRes, err := potential.NewCareerScorer(r.store, r.cfg, logging.WithStage(r.logger, StagePotential)).Run(ctx)
		if err != nil {
			return err
		}
		add(StagePotential, map[string]int{
			"profiles":   profRes.Profiles,
			"eligible":   profRes.Eligible,
			"ineligible": profRes.Ineligible,
			"identities": careerRes.Identities,
			"careers":    careerRes.Scored,
		})
	}

	return nil
}

// Stages returns the full stage order.
func Stages() []string {
	return []string{StageIngest, StageProfiles, StageMetrics, StageIdentity, StagePotential}
}

func stageSet(stages []string) map[string]bool {
	wanted := make(map[string]bool, len(stages))
	if len(stages) == 0 {
		for _, s := range Stages() {
			wanted[s] = true
		}
		return wanted
	}
	for _, s := range stages {
		wanted[strings.ToLower(strings.TrimSpace(s))] = true
	}
	return wanted
}

// ingestDir loads every JSON game document under the configured ingest
// directory. A missing directory is an empty batch, not an error.
func (r *Runner) ingestDir(ctx context.Context) (*IngestResult, error) {
	dir := r.cfg.Paths.IngestDir
	if dir == "" {
		return &IngestResult{}, nil
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return &IngestResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ingest dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return r.IngestFiles(ctx, files)
}

// IngestFiles parses and stores the given game documents. A malformed file
// is logged and skipped; one bad record never aborts the batch.
func (r *Runner) IngestFiles(ctx context.Context, paths []string) (*IngestResult, error) {
	res := &IngestResult{}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Files++

		if err := r.ingestFile(ctx, path, res); err != nil {
			res.FailedFiles++
			r.logger.Error("ingest failed", "file", path, "error", err)
		}
	}
	return res, nil
}

func (r *Runner) ingestFile(ctx context.Context, path string, res *IngestResult) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading game file: %w", err)
	}

	var doc boxscore.GameDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return services.Wrap(services.ErrSchemaMismatch, "pipeline", "ingest", "decoding game document", err)
	}

	observations, skipped, err := boxscore.ParseGame(&doc)
	if err != nil {
		return err
	}
	for _, skipErr := range skipped {
		r.logger.Warn("skipping player row", "file", path, "error", skipErr)
	}
	res.SkippedRows += len(skipped)

	if err := r.store.SaveGame(ctx, &doc, observations); err != nil {
		return err
	}
	res.Games++
	res.Observations += len(observations)
	return nil
}

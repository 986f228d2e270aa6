package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"

	"boxscout/internal/pipeline"
	"boxscout/internal/services"
	"boxscout/internal/store"
	"boxscout/internal/testsupport"
)

func writeGameFiles(t *testing.T, dir string, playerName, competition, season string, n int) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir ingest dir: %v", err)
	}
	docs := testsupport.SeasonGames(playerName, competition, season, n, func(i int) int { return 12 + i })
	for i, doc := range docs {
		raw, err := json.Marshal(doc)
		if err != nil {
			t.Fatalf("marshal game: %v", err)
		}
		path := filepath.Join(dir, fmt.Sprintf("game-%02d.json", i))
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			t.Fatalf("write game file: %v", err)
		}
	}
}

func TestRunFullPipelineFromIngestDir(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithEligibility(3, 30, 10))
	st := testsupport.MustOpenStore(t, cfg)

	writeGameFiles(t, cfg.Paths.IngestDir, "CARLA MORENO", "LEB ORO", "2023/2024", 6)

	runner := pipeline.NewRunner(cfg, st, nil)
	report, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.RunID == "" {
		t.Fatal("expected a run ID")
	}
	if len(report.Stages) != len(pipeline.Stages()) {
		t.Fatalf("stages reported = %d, want %d", len(report.Stages), len(pipeline.Stages()))
	}

	counts := make(map[string]map[string]int)
	for _, stage := range report.Stages {
		counts[stage.Stage] = stage.Counts
	}
	if got := counts[pipeline.StageIngest]["games"]; got != 6 {
		t.Fatalf("ingested games = %d, want 6", got)
	}
	if counts[pipeline.StageIngest]["failed_files"] != 0 {
		t.Fatalf("unexpected failed files: %+v", counts[pipeline.StageIngest])
	}
	if counts[pipeline.StageProfiles]["profiles"] == 0 {
		t.Fatal("expected rebuilt profiles")
	}
	if counts[pipeline.StageMetrics]["failed"] != 0 {
		t.Fatalf("metric failures: %+v", counts[pipeline.StageMetrics])
	}
	if counts[pipeline.StagePotential]["eligible"] == 0 {
		t.Fatal("expected at least one eligible profile")
	}

	runs, err := st.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs recorded = %d, want 1", len(runs))
	}
	if runs[0].Status != store.RunStatusCompleted {
		t.Fatalf("run status = %q, want completed", runs[0].Status)
	}

	profiles, err := st.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	for _, p := range profiles {
		if _, err := st.GetProfileMetrics(ctx, p.ID); err != nil {
			t.Fatalf("metrics missing for profile %d: %v", p.ID, err)
		}
	}
}

func TestRunStageFilterSkipsIngest(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithEligibility(3, 30, 10))
	st := testsupport.MustOpenStore(t, cfg)

	for _, doc := range testsupport.SeasonGames("ANA RIBAS", "EBA", "2023/2024", 4, func(int) int { return 9 }) {
		testsupport.SaveGame(t, st, doc)
	}

	runner := pipeline.NewRunner(cfg, st, nil)
	report, err := runner.Run(ctx, pipeline.StageProfiles, pipeline.StageMetrics)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Stages) != 2 {
		t.Fatalf("stages reported = %d, want 2", len(report.Stages))
	}
	if report.Stages[0].Stage != pipeline.StageProfiles || report.Stages[1].Stage != pipeline.StageMetrics {
		t.Fatalf("unexpected stage order: %+v", report.Stages)
	}
	if report.Stages[0].Counts["profiles"] == 0 {
		t.Fatal("expected profiles from the saved games")
	}
}

func TestRunIsRefusedWhileLockHeld(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	held := flock.New(filepath.Join(cfg.Paths.DataDir, "boxscout.lock"))
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("could not hold the run lock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	runner := pipeline.NewRunner(cfg, st, nil)
	_, err = runner.Run(ctx, pipeline.StageProfiles)
	if !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict while lock held, got %v", err)
	}
}

func TestIngestSkipsMalformedFile(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	writeGameFiles(t, cfg.Paths.IngestDir, "PAU FERRER", "LEB PLATA", "2022/2023", 2)
	bad := filepath.Join(cfg.Paths.IngestDir, "broken.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write bad file: %v", err)
	}

	runner := pipeline.NewRunner(cfg, st, nil)
	report, err := runner.Run(ctx, pipeline.StageIngest)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	counts := report.Stages[0].Counts
	if counts["games"] != 2 {
		t.Fatalf("ingested games = %d, want 2", counts["games"])
	}
	if counts["failed_files"] != 1 {
		t.Fatalf("failed files = %d, want 1", counts["failed_files"])
	}

	total, err := st.CountGames(ctx)
	if err != nil {
		t.Fatalf("CountGames: %v", err)
	}
	if total != 2 {
		t.Fatalf("stored games = %d, want 2", total)
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"boxscout/internal/config"
	"boxscout/internal/testsupport"
)

func writeTestConfig(t *testing.T, base string) string {
	t.Helper()

	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.IngestDir = filepath.Join(base, "ingest")
	cfg.Potential.Eligibility.MinGames = 3
	cfg.Potential.Eligibility.MinTotalMinutes = 30
	cfg.Potential.Eligibility.MinAvgMinutes = 10

	encoded, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	if stderr.Len() > 0 {
		t.Logf("stderr: %s", stderr.String())
	}
	return stdout.String(), err
}

func writeGameDocs(t *testing.T, dir string) []string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	docs := testsupport.SeasonGames("NURIA BLANCO", "LEB ORO", "2023/2024", 5, func(i int) int { return 11 + i })
	paths := make([]string, 0, len(docs))
	for i, doc := range docs {
		raw, err := json.Marshal(doc)
		if err != nil {
			t.Fatalf("marshal game: %v", err)
		}
		path := filepath.Join(dir, fmt.Sprintf("game-%d.json", i))
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			t.Fatalf("write game: %v", err)
		}
		paths = append(paths, path)
	}
	return paths
}

func TestCLIConfigValidate(t *testing.T) {
	configPath := writeTestConfig(t, t.TempDir())

	out, err := runCLI(t, configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestCLIIngestRunAndList(t *testing.T) {
	base := t.TempDir()
	configPath := writeTestConfig(t, base)
	files := writeGameDocs(t, filepath.Join(base, "docs"))

	out, err := runCLI(t, configPath, append([]string{"ingest"}, files...)...)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !strings.Contains(out, "Ingested 5 games") {
		t.Fatalf("unexpected ingest output: %s", out)
	}

	if _, err := runCLI(t, configPath, "run", "--stage", "profiles", "--stage", "metrics", "--stage", "identity", "--stage", "potential"); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, err = runCLI(t, configPath, "potential", "list", "--json")
	if err != nil {
		t.Fatalf("potential list: %v", err)
	}
	var potentials []map[string]any
	if err := json.Unmarshal([]byte(out), &potentials); err != nil {
		t.Fatalf("potential list output not JSON: %v\n%s", err, out)
	}
	if len(potentials) == 0 {
		t.Fatal("expected scored profiles")
	}

	out, err = runCLI(t, configPath, "profile", "list", "--json")
	if err != nil {
		t.Fatalf("profile list: %v", err)
	}
	var profiles []struct {
		ID      int64
		NameRaw string
	}
	if err := json.Unmarshal([]byte(out), &profiles); err != nil {
		t.Fatalf("profile list output not JSON: %v\n%s", err, out)
	}
	var profileID int64
	for _, p := range profiles {
		if p.NameRaw == "NURIA BLANCO" {
			profileID = p.ID
		}
	}
	if profileID == 0 {
		t.Fatalf("player profile not listed: %s", out)
	}

	out, err = runCLI(t, configPath, "profile", "show", fmt.Sprint(profileID))
	if err != nil {
		t.Fatalf("profile show: %v", err)
	}
	if !strings.Contains(out, "NURIA BLANCO") {
		t.Fatalf("profile show missing player name: %s", out)
	}
}

func TestCLICandidatesStatsEmpty(t *testing.T) {
	configPath := writeTestConfig(t, t.TempDir())

	out, err := runCLI(t, configPath, "candidates", "stats")
	if err != nil {
		t.Fatalf("candidates stats: %v", err)
	}
	if !strings.Contains(out, "Total: 0") {
		t.Fatalf("unexpected stats output: %s", out)
	}
}

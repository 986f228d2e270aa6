package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"boxscout/internal/logging"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewWritesToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "boxscout.log")

	logger, err := logging.New(logging.Options{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{path},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("ingest complete", "games", 3)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "ingest complete") {
		t.Fatalf("log file missing message: %s", data)
	}
	if !strings.Contains(string(data), `"ts"`) {
		t.Fatalf("json log missing ts key: %s", data)
	}
}

func TestWithStageNilLogger(t *testing.T) {
	logger := logging.WithStage(nil, "score")
	logger.Info("should not panic")
}

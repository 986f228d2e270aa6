package services_test

import (
	"errors"
	"testing"

	"boxscout/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrSchemaMismatch, "ingest", "parse game", "header incomplete", base)
	if !errors.Is(err, services.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped base error, got %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "metrics", "aggregate", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestRecordFatal(t *testing.T) {
	if !services.RecordFatal(services.Wrap(services.ErrSchemaMismatch, "ingest", "", "", nil)) {
		t.Fatal("schema mismatch should be record-fatal")
	}
	if services.RecordFatal(services.Wrap(services.ErrMissingData, "metrics", "", "", nil)) {
		t.Fatal("missing data should not be record-fatal")
	}
}

// Package services defines the shared error taxonomy used across the
// batch pipeline. Stages tag failures with one of the sentinel markers so
// callers can classify them with errors.Is without parsing messages.
package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingData marks a required field that was absent from an input
	// record. Metric code degrades the affected value to null instead of
	// failing the batch.
	ErrMissingData = errors.New("missing data")
	// ErrSchemaMismatch marks an incoming record that lacks the minimal
	// required shape. Fatal for that single record only.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrValidation marks operator input that failed validation.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a lookup that matched nothing.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a natural-key conflict between partitions that
	// survived the single upsert retry.
	ErrConflict = errors.New("conflict")
	// ErrTransient marks failures worth retrying wholesale.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// RecordFatal reports whether the error should abort processing of the
// current record while letting the batch continue.
func RecordFatal(err error) bool {
	return errors.Is(err, ErrSchemaMismatch)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

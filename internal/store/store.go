// Package store persists the adaptive learner's append-only selection
// history, keyed by incident signature. The learner is agnostic to the
// backing implementation; an in-memory map and a Valkey-backed store are
// provided.
package store

import (
	"context"

	"github.com/opsforge/analytics-engine/internal/models"
)

// HistoryStore abstracts the incident/pattern memory used by the learner.
// Appends must be atomic with respect to concurrent reads: a reader never
// observes a partially appended history.
type HistoryStore interface {
	GetHistory(ctx context.Context, signature string) ([]models.SelectionObservation, error)
	AppendHistory(ctx context.Context, signature string, obs models.SelectionObservation) error
	Close() error
}

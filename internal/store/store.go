package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an artifact is absent from a store.
var ErrNotFound = errors.New("store: artifact not found")

// ArtifactStore persists generated artifact content. Persistence is a
// caller-side concern: the scheduler hands results out and the caller
// chooses where they land.
type ArtifactStore interface {
	Put(ctx context.Context, runID, path string, content []byte) error
	Get(ctx context.Context, runID, path string) ([]byte, error)
	List(ctx context.Context, runID string) ([]string, error)
}

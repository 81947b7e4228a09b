package store

import (
	"context"
	"errors"

	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/models"
)

// ErrNotFound is returned when no job exists for the given video ID.
var ErrNotFound = errors.New("video ID not found")

// Store is the job status registry. The pipeline and handlers only talk to
// this interface, so the backing implementation (in-memory, Redis, Postgres)
// can be swapped through config without touching the callers.
//
// Update applies fn to the current job state and persists the result in one
// step. Implementations must make the read-modify-write atomic with respect
// to other Updates on the same ID — that is what keeps terminal transitions
// idempotent when the webhook races the poller.
type Store interface {
	Put(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, videoID string) (*models.Job, error)
	Update(ctx context.Context, videoID string, fn func(*models.Job)) (*models.Job, error)
	Delete(ctx context.Context, videoID string) error
	Close() error
}

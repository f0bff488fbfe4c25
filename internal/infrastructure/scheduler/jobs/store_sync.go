// Package jobs contains the background jobs run by the server scheduler.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hampton/progress-tracker/internal/domain/progress"
	"github.com/hampton/progress-tracker/internal/domain/shared"
	"github.com/hampton/progress-tracker/pkg/digest"
)

// ══════════════════════════════════════════════════════════════════════════════
// STORE SYNC JOB
// ══════════════════════════════════════════════════════════════════════════════

// Tracker is the part of the tracker service the sync job needs.
type Tracker interface {
	Revision() int64
	Reload(ctx context.Context) error
}

// StoreSyncJob reloads the tracker when another process changed the saved
// progress. Versioned stores are compared by revision; plain stores by the
// digest of the stored document between runs.
type StoreSyncJob struct {
	repo    progress.Repository
	tracker Tracker
	logger  *slog.Logger

	mu     sync.Mutex
	primed bool
	seen   string
}

// NewStoreSyncJob creates the job.
func NewStoreSyncJob(repo progress.Repository, tracker Tracker, logger *slog.Logger) *StoreSyncJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreSyncJob{
		repo:    repo,
		tracker: tracker,
		logger:  logger.With("job", "store_sync"),
	}
}

// Name returns the job name.
func (j *StoreSyncJob) Name() string { return "store_sync" }

// Description returns the job description.
func (j *StoreSyncJob) Description() string {
	return "Reloads progress saved by other processes"
}

// Run executes the job.
func (j *StoreSyncJob) Run(ctx context.Context) error {
	changed, err := j.changed(ctx)
	if err != nil || !changed {
		return err
	}
	j.logger.Info("stored progress changed, reloading")
	return j.tracker.Reload(ctx)
}

func (j *StoreSyncJob) changed(ctx context.Context) (bool, error) {
	if v, ok := j.repo.(progress.VersionedRepository); ok {
		rev, err := v.Revision(ctx)
		if err != nil {
			return false, fmt.Errorf("store sync: %w", err)
		}
		return rev != j.tracker.Revision(), nil
	}

	st, err := j.repo.Load(ctx)
	var sum string
	switch {
	case errors.Is(err, shared.ErrStateNotFound):
	case err != nil:
		return false, fmt.Errorf("store sync: %w", err)
	default:
		data, err := json.Marshal(st)
		if err != nil {
			return false, fmt.Errorf("store sync: %w", err)
		}
		sum = digest.Sum(data)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	prev, primed := j.seen, j.primed
	j.seen, j.primed = sum, true
	if !primed {
		// The tracker loaded this document at startup.
		return false, nil
	}
	return prev != sum, nil
}

package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hampton/progress-tracker/internal/domain/content"
	"github.com/hampton/progress-tracker/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT PROBE JOB
// ══════════════════════════════════════════════════════════════════════════════

// ContentProbeJob fetches week 1 from the raw content source. Regular
// requests let an open circuit breaker move to half-open and close again
// even when no user is asking for content.
type ContentProbeJob struct {
	source  content.Provider
	project func() progress.Project
	logger  *slog.Logger
}

// NewContentProbeJob creates the job. project returns the project to probe
// with; nil probes the generic track.
func NewContentProbeJob(source content.Provider, project func() progress.Project, logger *slog.Logger) *ContentProbeJob {
	if project == nil {
		project = func() progress.Project { return progress.ProjectNone }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentProbeJob{
		source:  source,
		project: project,
		logger:  logger.With("job", "content_probe"),
	}
}

// Name returns the job name.
func (j *ContentProbeJob) Name() string { return "content_probe" }

// Description returns the job description.
func (j *ContentProbeJob) Description() string {
	return "Checks that the content source answers"
}

// Run executes the job.
func (j *ContentProbeJob) Run(ctx context.Context) error {
	week, err := j.source.FetchWeek(ctx, 1, j.project())
	if err != nil {
		return fmt.Errorf("content probe: %w", err)
	}
	j.logger.Debug("content source is reachable", "week_title", week.Title, "modules", len(week.Modules))
	return nil
}

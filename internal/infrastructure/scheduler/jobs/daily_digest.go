package jobs

import (
	"context"
	"log/slog"

	"github.com/hampton/progress-tracker/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY DIGEST JOB
// ══════════════════════════════════════════════════════════════════════════════

// DigestSource provides the state summarized by the digest.
type DigestSource interface {
	Snapshot() *progress.State
	TodayChallenges() []progress.DailyChallenge
}

// DailyDigestJob logs the day's challenges and the current streak once a day.
type DailyDigestJob struct {
	source DigestSource
	logger *slog.Logger
}

// NewDailyDigestJob creates the job.
func NewDailyDigestJob(source DigestSource, logger *slog.Logger) *DailyDigestJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &DailyDigestJob{source: source, logger: logger.With("job", "daily_digest")}
}

// Name returns the job name.
func (j *DailyDigestJob) Name() string { return "daily_digest" }

// Description returns the job description.
func (j *DailyDigestJob) Description() string {
	return "Logs today's challenges and streak"
}

// Run executes the job.
func (j *DailyDigestJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st := j.source.Snapshot()
	challenges := j.source.TodayChallenges()

	ids := make([]string, 0, len(challenges))
	open := 0
	for _, c := range challenges {
		ids = append(ids, c.ID)
		if !c.Completed {
			open++
		}
	}

	j.logger.Info("daily digest",
		"user_id", st.UserID,
		"level", st.Level,
		"xp", st.XP,
		"streak", st.DailyStreak,
		"challenges", ids,
		"challenges_open", open,
	)
	return nil
}

// Package tracker is the progress state store: it owns the single progress
// aggregate, serializes commands against it, persists every accepted change
// and publishes the resulting domain events.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hampton/progress-tracker/internal/domain/content"
	"github.com/hampton/progress-tracker/internal/domain/progress"
	"github.com/hampton/progress-tracker/internal/domain/progresscode"
	"github.com/hampton/progress-tracker/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains service settings.
type Config struct {
	// Curriculum defines course dimensions. Defaults to the standard one.
	Curriculum progress.Curriculum

	// Location is the calendar used for streaks and daily challenges.
	Location *time.Location

	// StrictChecksum enables checksum verification on code import.
	StrictChecksum bool

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// NewUserID generates ids for fresh states. Defaults to progress.NewUserID.
	NewUserID func() string
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Curriculum:     progress.StandardCurriculum{},
		Location:       time.Local,
		StrictChecksum: true,
		Clock:          time.Now,
		NewUserID:      progress.NewUserID,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Curriculum == nil {
		c.Curriculum = d.Curriculum
	}
	if c.Location == nil {
		c.Location = d.Location
	}
	if c.Clock == nil {
		c.Clock = d.Clock
	}
	if c.NewUserID == nil {
		c.NewUserID = d.NewUserID
	}
	return c
}

// Dependencies contains collaborators injected into the service.
type Dependencies struct {
	Repository progress.Repository
	Publisher  shared.EventPublisher
	Content    content.Provider
	Logger     *slog.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVICE
// ══════════════════════════════════════════════════════════════════════════════

// Outcome is the result of an accepted command.
type Outcome struct {
	// Completion describes what the command changed.
	Completion progress.Completion

	// Events are the domain events the command produced, in order.
	Events []shared.Event

	// State is a snapshot of the aggregate after the command.
	State *progress.State

	// SaveErr is set when the change was applied in memory but could not be
	// persisted. The in-memory state stays authoritative.
	SaveErr error
}

// Service owns one progress aggregate.
type Service struct {
	mu sync.Mutex

	repo      progress.Repository
	versioned progress.VersionedRepository
	revision  int64

	publisher shared.EventPublisher
	content   content.Provider
	codec     *progresscode.Codec
	cfg       Config
	logger    *slog.Logger

	state *progress.State
}

// Open loads the saved state or starts from defaults.
// A load failure other than "not found" is logged and the service starts from
// defaults; the store is not touched until the next accepted command, which
// replaces the unreadable document.
func Open(ctx context.Context, deps Dependencies, cfg Config) (*Service, error) {
	if deps.Repository == nil {
		return nil, errors.New("tracker: repository is required")
	}
	cfg = cfg.withDefaults()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = shared.NopPublisher{}
	}
	provider := deps.Content
	if provider == nil {
		provider = content.NewFallbackProvider(nil, cfg.Curriculum, logger)
	}

	s := &Service{
		repo:      deps.Repository,
		publisher: publisher,
		content:   provider,
		codec: progresscode.New(
			progresscode.WithCurriculum(cfg.Curriculum),
			progresscode.WithStrictChecksum(cfg.StrictChecksum),
		),
		cfg:    cfg,
		logger: logger.With("component", "tracker"),
	}
	if v, ok := deps.Repository.(progress.VersionedRepository); ok {
		s.versioned = v
	}

	if err := s.load(ctx); err != nil {
		s.logger.Error("failed to load progress, starting from defaults", "error", err)
		s.state = s.fresh()
		s.adoptStoredRevision(ctx)
	}
	return s, nil
}

// adoptStoredRevision bases the next compare-and-set on whatever revision the
// unreadable document has, so the first save overwrites it.
func (s *Service) adoptStoredRevision(ctx context.Context) {
	s.revision = 0
	if s.versioned == nil {
		return
	}
	rev, err := s.versioned.Revision(ctx)
	if err != nil {
		s.logger.Error("failed to read stored revision", "error", err)
		return
	}
	s.revision = rev
}

func (s *Service) load(ctx context.Context) error {
	var (
		st  *progress.State
		rev int64
		err error
	)
	if s.versioned != nil {
		st, rev, err = s.versioned.LoadVersion(ctx)
	} else {
		st, err = s.repo.Load(ctx)
	}
	if errors.Is(err, shared.ErrStateNotFound) {
		s.state = s.fresh()
		s.revision = 0
		s.logger.Info("no saved progress, starting fresh", "user_id", s.state.UserID)
		return nil
	}
	if err != nil {
		return err
	}
	st.Repair()
	st.UseCurriculum(s.cfg.Curriculum)
	s.state = st
	s.revision = rev
	s.logger.Debug("progress loaded",
		"user_id", st.UserID,
		"xp", st.XP,
		"level", st.Level,
		"revision", rev,
	)
	return nil
}

func (s *Service) fresh() *progress.State {
	st := progress.NewState(s.cfg.NewUserID(), s.now())
	st.UseCurriculum(s.cfg.Curriculum)
	return st
}

func (s *Service) now() time.Time {
	return s.cfg.Clock().In(s.cfg.Location)
}

// mutation is a domain transition applied under the service lock.
type mutation func(st *progress.State, now time.Time) (progress.Completion, error)

// apply runs one command: validate and mutate, persist, publish.
func (s *Service) apply(ctx context.Context, op string, fn mutation) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	res, err := fn(s.state, now)
	if err != nil {
		s.logger.Debug("command rejected", "op", op, "error", err)
		return Outcome{}, err
	}
	return s.commit(ctx, op, res), nil
}

// commit persists and publishes after a successful transition. Caller holds mu.
func (s *Service) commit(ctx context.Context, op string, res progress.Completion) Outcome {
	events := s.state.PullEvents()
	out := Outcome{Completion: res, Events: events}

	if res.Applied || len(events) > 0 {
		out.SaveErr = s.persist(ctx, op)
		s.publish(events)
		s.logger.Info("progress updated",
			"op", op,
			"user_id", s.state.UserID,
			"xp", s.state.XP,
			"level", s.state.Level,
			"xp_gained", res.XPGained(),
			"unlocked", res.Unlocked,
			"badges", res.Badges,
		)
	}
	out.State = s.state.Clone()
	return out
}

func (s *Service) persist(ctx context.Context, op string) error {
	if s.versioned != nil {
		rev, err := s.versioned.SaveIfVersion(ctx, s.state, s.revision)
		if err != nil {
			s.logger.Error("failed to persist progress",
				"op", op,
				"user_id", s.state.UserID,
				"revision", s.revision,
				"error", err,
			)
			return err
		}
		s.revision = rev
		return nil
	}
	if err := s.repo.Save(ctx, s.state); err != nil {
		s.logger.Error("failed to persist progress", "op", op, "user_id", s.state.UserID, "error", err)
		return err
	}
	return nil
}

func (s *Service) publish(events []shared.Event) {
	for _, e := range events {
		if err := s.publisher.Publish(e); err != nil {
			s.logger.Warn("failed to publish event", "event_type", e.EventType(), "error", err)
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// SelectProject chooses the learner's project.
func (s *Service) SelectProject(ctx context.Context, p progress.Project) (Outcome, error) {
	return s.apply(ctx, "select_project", func(st *progress.State, now time.Time) (progress.Completion, error) {
		return st.SelectProject(p, now)
	})
}

// CompleteLesson marks a lesson of the 30-day course as done.
func (s *Service) CompleteLesson(ctx context.Context, day, lesson int) (Outcome, error) {
	return s.apply(ctx, "complete_lesson", func(st *progress.State, now time.Time) (progress.Completion, error) {
		return st.CompleteLesson(day, lesson, now)
	})
}

// CompleteModule marks a module of the 8-week course as done.
func (s *Service) CompleteModule(ctx context.Context, week, module int) (Outcome, error) {
	return s.apply(ctx, "complete_module", func(st *progress.State, now time.Time) (progress.Completion, error) {
		return st.CompleteModule(week, module, now)
	})
}

// AddXP awards a non-negative amount of XP.
func (s *Service) AddXP(ctx context.Context, amount int, source string) (Outcome, error) {
	return s.apply(ctx, "add_xp", func(st *progress.State, now time.Time) (progress.Completion, error) {
		return st.AddXP(amount, source, now)
	})
}

// UnlockAchievement unlocks an achievement at most once.
func (s *Service) UnlockAchievement(ctx context.Context, id, name, description string) (Outcome, error) {
	return s.apply(ctx, "unlock_achievement", func(st *progress.State, now time.Time) (progress.Completion, error) {
		return st.UnlockAchievement(id, name, description, now)
	})
}

// UpdateSkill adjusts a skill score by delta.
func (s *Service) UpdateSkill(ctx context.Context, skill progress.Skill, delta int) (Outcome, error) {
	return s.apply(ctx, "update_skill", func(st *progress.State, now time.Time) (progress.Completion, error) {
		_, res, err := st.UpdateSkill(skill, delta, now)
		return res, err
	})
}

// CompleteChallenge completes one of today's challenges.
func (s *Service) CompleteChallenge(ctx context.Context, id string) (Outcome, error) {
	return s.apply(ctx, "complete_challenge", func(st *progress.State, now time.Time) (progress.Completion, error) {
		return st.CompleteChallenge(id, now)
	})
}

// RecordActivity updates the streak without any other change.
func (s *Service) RecordActivity(ctx context.Context) (Outcome, error) {
	return s.apply(ctx, "record_activity", func(st *progress.State, now time.Time) (progress.Completion, error) {
		_, res := st.RecordActivity(now)
		return res, nil
	})
}

// Reset replaces the state with fresh defaults and a new user id.
// confirm must be true.
func (s *Service) Reset(ctx context.Context, confirm bool) (Outcome, error) {
	if !confirm {
		return Outcome{}, shared.ErrResetNotConfirmed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	prev := s.state
	s.state = progress.ResetState(prev, s.cfg.NewUserID(), now)
	s.state.UseCurriculum(s.cfg.Curriculum)
	s.logger.Info("progress reset", "previous_user_id", prev.UserID, "user_id", s.state.UserID)
	return s.commit(ctx, "reset", progress.Completion{
		Applied:     true,
		XPBefore:    prev.XP,
		XPAfter:     0,
		LevelBefore: prev.Level,
		LevelAfter:  s.state.Level,
	}), nil
}

// ExportCode encodes the current position as a progress code.
func (s *Service) ExportCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codec.Encode(s.state)
}

// ImportCode replaces the state with one reconstructed from a progress code.
func (s *Service) ImportCode(ctx context.Context, code string) (Outcome, error) {
	d, err := s.codec.Decode(code)
	if err != nil {
		return Outcome{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	s.state = s.codec.Restore(d, s.cfg.NewUserID(), s.now())
	return s.commit(ctx, "import_code", progress.Completion{
		Applied:     true,
		XPBefore:    prev.XP,
		XPAfter:     s.state.XP,
		LevelBefore: prev.Level,
		LevelAfter:  s.state.Level,
	}), nil
}

// Reload discards the in-memory state and loads it from the store again.
// Use after a stale-revision save error.
func (s *Service) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return fmt.Errorf("tracker: reload: %w", err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot returns a copy of the current state.
func (s *Service) Snapshot() *progress.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// View returns a copy of the current state together with its store revision.
func (s *Service) View() (*progress.State, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone(), s.revision
}

// Revision returns the store revision the in-memory state is based on.
func (s *Service) Revision() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// ProgressPercentage returns overall course completion.
func (s *Service) ProgressPercentage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ProgressPercentage()
}

// CanAccessModule reports whether a module is unlocked.
func (s *Service) CanAccessModule(week, module int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CanAccessModule(week, module)
}

// TodayChallenges returns today's challenges with completion flags.
func (s *Service) TodayChallenges() []progress.DailyChallenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.TodayChallenges(s.now())
}

// Codec returns the progress code codec used by the service.
func (s *Service) Codec() *progresscode.Codec {
	return s.codec
}

// Curriculum returns the course dimensions.
func (s *Service) Curriculum() progress.Curriculum {
	return s.cfg.Curriculum
}

// Now returns the service clock reading in the calendar location.
func (s *Service) Now() time.Time {
	return s.now()
}

// DayContent returns material for a day of the selected project.
func (s *Service) DayContent(ctx context.Context, day int) (content.Day, error) {
	if day < 1 || day > s.cfg.Curriculum.TotalDays() {
		return content.Day{}, shared.WrapError("content", "FetchDay", shared.ErrPositionOutOfRange,
			fmt.Sprintf("day %d is outside 1..%d", day, s.cfg.Curriculum.TotalDays()), nil)
	}
	return s.content.FetchDay(ctx, day, s.Snapshot().SelectedProject)
}

// WeekContent returns material for a week of the selected project.
func (s *Service) WeekContent(ctx context.Context, week int) (content.Week, error) {
	if week < 1 || week > s.cfg.Curriculum.TotalWeeks() {
		return content.Week{}, shared.WrapError("content", "FetchWeek", shared.ErrPositionOutOfRange,
			fmt.Sprintf("week %d is outside 1..%d", week, s.cfg.Curriculum.TotalWeeks()), nil)
	}
	return s.content.FetchWeek(ctx, week, s.Snapshot().SelectedProject)
}

// History returns recent saves when the store keeps them.
func (s *Service) History(ctx context.Context, limit int) ([]progress.Snapshot, error) {
	h, ok := s.repo.(progress.HistoryRepository)
	if !ok {
		return nil, shared.NewDomainError("store", "History", shared.ErrInvalidState, "store does not keep history")
	}
	return h.History(ctx, limit)
}

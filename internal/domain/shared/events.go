// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each one is produced by the progress aggregate and
// consumed by the presentation layer (CLI, HTTP stream, metrics).
const (
	EventAchievementUnlocked EventType = "progress.achievement_unlocked"
	EventLevelUp             EventType = "progress.level_up"
	EventXPGained            EventType = "progress.xp_gained"
	EventModuleCompleted     EventType = "progress.module_completed"
	EventLessonCompleted     EventType = "progress.lesson_completed"
	EventWeekCompleted       EventType = "progress.week_completed"
	EventDayCompleted        EventType = "progress.day_completed"
	EventBadgeEarned         EventType = "progress.badge_earned"
	EventStreakUpdated       EventType = "progress.streak_updated"
	EventProjectSelected     EventType = "progress.project_selected"
	EventChallengeCompleted  EventType = "progress.challenge_completed"
	EventProgressImported    EventType = "progress.imported"
	EventProgressReset       EventType = "progress.reset"
)

// AllEventTypes lists every event type in a stable order.
var AllEventTypes = []EventType{
	EventAchievementUnlocked,
	EventLevelUp,
	EventXPGained,
	EventModuleCompleted,
	EventLessonCompleted,
	EventWeekCompleted,
	EventDayCompleted,
	EventBadgeEarned,
	EventStreakUpdated,
	EventProjectSelected,
	EventChallengeCompleted,
	EventProgressImported,
	EventProgressReset,
}

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event stamped with the given time.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// XP & Level Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGainedEvent is emitted for every XP award.
type XPGainedEvent struct {
	BaseEvent
	Amount   int    `json:"amount"`
	NewTotal int    `json:"new_total"`
	Source   string `json:"source"` // e.g. "module:w1m2", "achievement:first_blood"
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"amount":    e.Amount,
		"new_total": e.NewTotal,
		"source":    e.Source,
	}
}

// NewXPGainedEvent creates a new XPGainedEvent.
func NewXPGainedEvent(userID string, at time.Time, amount, newTotal int, source string) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent: NewBaseEvent(EventXPGained, userID, at),
		Amount:    amount,
		NewTotal:  newTotal,
		Source:    source,
	}
}

// LevelUpEvent is emitted when accumulated XP crosses a level threshold.
type LevelUpEvent struct {
	BaseEvent
	OldLevel int `json:"old_level"`
	NewLevel int `json:"new_level"`
	TotalXP  int `json:"total_xp"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
		"total_xp":  e.TotalXP,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID string, at time.Time, oldLevel, newLevel, totalXP int) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID, at),
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		TotalXP:   totalXP,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Achievement & Badge Events
// ═══════════════════════════════════════════════════════════════════════════

// AchievementUnlockedEvent is emitted once per achievement id.
type AchievementUnlockedEvent struct {
	BaseEvent
	AchievementID string `json:"achievement_id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	XPAwarded     int    `json:"xp_awarded"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"achievement_id": e.AchievementID,
		"name":           e.Name,
		"description":    e.Description,
		"xp_awarded":     e.XPAwarded,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(userID string, at time.Time, id, name, description string, xp int) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementUnlocked, userID, at),
		AchievementID: id,
		Name:          name,
		Description:   description,
		XPAwarded:     xp,
	}
}

// BadgeEarnedEvent is emitted when a badge requirement is first met.
type BadgeEarnedEvent struct {
	BaseEvent
	BadgeID string `json:"badge_id"`
	Name    string `json:"name"`
}

// Payload implements Event interface.
func (e BadgeEarnedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"badge_id": e.BadgeID,
		"name":     e.Name,
	}
}

// NewBadgeEarnedEvent creates a new BadgeEarnedEvent.
func NewBadgeEarnedEvent(userID string, at time.Time, badgeID, name string) BadgeEarnedEvent {
	return BadgeEarnedEvent{
		BaseEvent: NewBaseEvent(EventBadgeEarned, userID, at),
		BadgeID:   badgeID,
		Name:      name,
	}
}

// ChallengeCompletedEvent is emitted when a daily challenge is claimed.
type ChallengeCompletedEvent struct {
	BaseEvent
	ChallengeID string `json:"challenge_id"`
	Date        string `json:"date"`
	XPEarned    int    `json:"xp_earned"`
}

// Payload implements Event interface.
func (e ChallengeCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"challenge_id": e.ChallengeID,
		"date":         e.Date,
		"xp_earned":    e.XPEarned,
	}
}

// NewChallengeCompletedEvent creates a new ChallengeCompletedEvent.
func NewChallengeCompletedEvent(userID string, at time.Time, challengeID, date string, xp int) ChallengeCompletedEvent {
	return ChallengeCompletedEvent{
		BaseEvent:   NewBaseEvent(EventChallengeCompleted, userID, at),
		ChallengeID: challengeID,
		Date:        date,
		XPEarned:    xp,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Curriculum Events
// ═══════════════════════════════════════════════════════════════════════════

// ModuleCompletedEvent is emitted when a weekly-mode module is completed.
type ModuleCompletedEvent struct {
	BaseEvent
	ModuleID string `json:"module_id"`
	Week     int    `json:"week"`
	Module   int    `json:"module"`
	XPEarned int    `json:"xp_earned"`
}

// Payload implements Event interface.
func (e ModuleCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"module_id": e.ModuleID,
		"week":      e.Week,
		"module":    e.Module,
		"xp_earned": e.XPEarned,
	}
}

// NewModuleCompletedEvent creates a new ModuleCompletedEvent.
func NewModuleCompletedEvent(userID string, at time.Time, moduleID string, week, module, xp int) ModuleCompletedEvent {
	return ModuleCompletedEvent{
		BaseEvent: NewBaseEvent(EventModuleCompleted, userID, at),
		ModuleID:  moduleID,
		Week:      week,
		Module:    module,
		XPEarned:  xp,
	}
}

// LessonCompletedEvent is emitted when a daily-mode lesson is completed.
type LessonCompletedEvent struct {
	BaseEvent
	LessonID string `json:"lesson_id"`
	Day      int    `json:"day"`
	Lesson   int    `json:"lesson"`
	XPEarned int    `json:"xp_earned"`
}

// Payload implements Event interface.
func (e LessonCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"lesson_id": e.LessonID,
		"day":       e.Day,
		"lesson":    e.Lesson,
		"xp_earned": e.XPEarned,
	}
}

// NewLessonCompletedEvent creates a new LessonCompletedEvent.
func NewLessonCompletedEvent(userID string, at time.Time, lessonID string, day, lesson, xp int) LessonCompletedEvent {
	return LessonCompletedEvent{
		BaseEvent: NewBaseEvent(EventLessonCompleted, userID, at),
		LessonID:  lessonID,
		Day:       day,
		Lesson:    lesson,
		XPEarned:  xp,
	}
}

// WeekCompletedEvent is emitted on the transition of a week to completed.
type WeekCompletedEvent struct {
	BaseEvent
	Week    int `json:"week"`
	BonusXP int `json:"bonus_xp"`
}

// Payload implements Event interface.
func (e WeekCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"week":     e.Week,
		"bonus_xp": e.BonusXP,
	}
}

// NewWeekCompletedEvent creates a new WeekCompletedEvent.
func NewWeekCompletedEvent(userID string, at time.Time, week, bonusXP int) WeekCompletedEvent {
	return WeekCompletedEvent{
		BaseEvent: NewBaseEvent(EventWeekCompleted, userID, at),
		Week:      week,
		BonusXP:   bonusXP,
	}
}

// DayCompletedEvent is emitted on the transition of a day to completed.
type DayCompletedEvent struct {
	BaseEvent
	Day     int `json:"day"`
	Lessons int `json:"lessons"`
}

// Payload implements Event interface.
func (e DayCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"day":     e.Day,
		"lessons": e.Lessons,
	}
}

// NewDayCompletedEvent creates a new DayCompletedEvent.
func NewDayCompletedEvent(userID string, at time.Time, day, lessons int) DayCompletedEvent {
	return DayCompletedEvent{
		BaseEvent: NewBaseEvent(EventDayCompleted, userID, at),
		Day:       day,
		Lessons:   lessons,
	}
}

// StreakUpdatedEvent is emitted when the daily streak counter changes.
type StreakUpdatedEvent struct {
	BaseEvent
	OldStreak int  `json:"old_streak"`
	NewStreak int  `json:"new_streak"`
	Broken    bool `json:"broken"`
}

// Payload implements Event interface.
func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"old_streak": e.OldStreak,
		"new_streak": e.NewStreak,
		"broken":     e.Broken,
	}
}

// NewStreakUpdatedEvent creates a new StreakUpdatedEvent.
func NewStreakUpdatedEvent(userID string, at time.Time, oldStreak, newStreak int, broken bool) StreakUpdatedEvent {
	return StreakUpdatedEvent{
		BaseEvent: NewBaseEvent(EventStreakUpdated, userID, at),
		OldStreak: oldStreak,
		NewStreak: newStreak,
		Broken:    broken,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Lifecycle Events
// ═══════════════════════════════════════════════════════════════════════════

// ProjectSelectedEvent is emitted when the learner picks a project path.
type ProjectSelectedEvent struct {
	BaseEvent
	Project string `json:"project"`
}

// Payload implements Event interface.
func (e ProjectSelectedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"project": e.Project,
	}
}

// NewProjectSelectedEvent creates a new ProjectSelectedEvent.
func NewProjectSelectedEvent(userID string, at time.Time, project string) ProjectSelectedEvent {
	return ProjectSelectedEvent{
		BaseEvent: NewBaseEvent(EventProjectSelected, userID, at),
		Project:   project,
	}
}

// ProgressImportedEvent is emitted after a progress code replaced the state.
type ProgressImportedEvent struct {
	BaseEvent
	Code    string `json:"code"`
	Project string `json:"project"`
	XP      int    `json:"xp"`
	Level   int    `json:"level"`
}

// Payload implements Event interface.
func (e ProgressImportedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"code":    e.Code,
		"project": e.Project,
		"xp":      e.XP,
		"level":   e.Level,
	}
}

// NewProgressImportedEvent creates a new ProgressImportedEvent.
func NewProgressImportedEvent(userID string, at time.Time, code, project string, xp, level int) ProgressImportedEvent {
	return ProgressImportedEvent{
		BaseEvent: NewBaseEvent(EventProgressImported, userID, at),
		Code:      code,
		Project:   project,
		XP:        xp,
		Level:     level,
	}
}

// ProgressResetEvent is emitted after the state was replaced by defaults.
type ProgressResetEvent struct {
	BaseEvent
	PreviousUserID string `json:"previous_user_id"`
}

// Payload implements Event interface.
func (e ProgressResetEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"previous_user_id": e.PreviousUserID,
	}
}

// NewProgressResetEvent creates a new ProgressResetEvent.
func NewProgressResetEvent(userID string, at time.Time, previousUserID string) ProgressResetEvent {
	return ProgressResetEvent{
		BaseEvent:      NewBaseEvent(EventProgressReset, userID, at),
		PreviousUserID: previousUserID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEventEnvelope serializes an event's payload into an envelope.
func NewEventEnvelope(id string, event Event) (EventEnvelope, error) {
	payload, err := json.Marshal(event.Payload())
	if err != nil {
		return EventEnvelope{}, err
	}
	return EventEnvelope{
		ID:          id,
		Type:        event.EventType(),
		AggregateID: event.AggregateID(),
		Timestamp:   event.OccurredAt(),
		Version:     1,
		Payload:     payload,
	}, nil
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(Event) error { return nil }

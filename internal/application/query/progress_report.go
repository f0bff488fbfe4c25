// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/hampton/progress-tracker/internal/domain/progress"
	"github.com/hampton/progress-tracker/internal/domain/progresscode"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPORT QUERY
// Отчёт по одному коду прогресса: статистика, рекомендации, прогноз
// окончания и ближайшая веха. Код разбирается без строгой проверки
// контрольной суммы: отчёт ничего не меняет.
// ══════════════════════════════════════════════════════════════════════════════

// ProgressReportQuery содержит параметры запроса отчёта.
type ProgressReportQuery struct {
	// Code - код прогресса HAMPTON-....
	Code string
}

// Validate проверяет корректность параметров запроса.
func (q ProgressReportQuery) Validate() error {
	if strings.TrimSpace(q.Code) == "" {
		return errors.New("code is required")
	}
	return nil
}

// ReportStatistics - расчётные показатели по позиции.
type ReportStatistics struct {
	// UnitsCompleted - пройдено модулей (недельный формат) или уроков (ежедневный).
	UnitsCompleted int `json:"units_completed"`

	// UnitsTotal - всего модулей или уроков в программе.
	UnitsTotal int `json:"units_total"`

	// CompletionPercent - процент прохождения, округлён до десятых.
	CompletionPercent float64 `json:"completion_percent"`

	// EstimatedXP - XP, восстановленный по позиции.
	EstimatedXP int `json:"estimated_xp"`

	// EstimatedLevel - уровень по EstimatedXP.
	EstimatedLevel int `json:"estimated_level"`

	// Title - титул уровня.
	Title string `json:"title"`
}

// ProgressReportDTO - полный отчёт по коду.
type ProgressReportDTO struct {
	Code     string                        `json:"code"`
	Project  string                        `json:"project"`
	Daily    bool                          `json:"daily"`
	Position progresscode.Position         `json:"position"`
	Verified bool                          `json:"verified"`
	Stats    ReportStatistics              `json:"statistics"`
	Advice   []string                      `json:"recommendations"`
	Pace     []progress.CompletionEstimate `json:"estimated_completion,omitempty"`
	Next     *progress.Milestone           `json:"next_milestone,omitempty"`
	At       time.Time                     `json:"generated_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ProgressReportHandler обрабатывает ProgressReportQuery.
type ProgressReportHandler struct {
	codec *progresscode.Codec
	clock func() time.Time
}

// NewProgressReportHandler создаёт обработчик.
func NewProgressReportHandler(codec *progresscode.Codec, clock func() time.Time) *ProgressReportHandler {
	if codec == nil {
		codec = progresscode.New()
	}
	if clock == nil {
		clock = time.Now
	}
	return &ProgressReportHandler{codec: codec, clock: clock}
}

// Handle строит отчёт.
func (h *ProgressReportHandler) Handle(_ context.Context, q ProgressReportQuery) (*ProgressReportDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	d, err := h.codec.Parse(q.Code)
	if err != nil {
		return nil, err
	}

	now := h.clock()
	cur := h.codec.Curriculum()
	restored := h.codec.Restore(d, "report", now)

	dto := &ProgressReportDTO{
		Code:     d.Code,
		Project:  projectName(d),
		Daily:    d.Position.Daily,
		Position: d.Position,
		Verified: progresscode.Verify(d) == nil,
		At:       now,
	}

	var done, total int
	if d.Position.Daily {
		done, total = len(restored.CompletedLessons), progress.TotalLessons(cur)
		dto.Advice = progress.Recommendations(weekEquivalent(d.Position.Day, cur), 0, d.Project)
	} else {
		// Текущий модуль считается пройденным, как в исходном анализаторе.
		done, total = len(restored.CompletedModules)+1, progress.TotalModules(cur)
		dto.Advice = progress.Recommendations(d.Position.Week, d.Position.Module, d.Project)
		dto.Pace = progress.EstimateCompletion(cur, d.Position.Week, d.Position.Module, now)
		next := progress.NextMilestone(cur, d.Position.Week, d.Position.Module)
		dto.Next = &next
	}

	dto.Stats = ReportStatistics{
		UnitsCompleted:    done,
		UnitsTotal:        total,
		CompletionPercent: percent(done, total),
		EstimatedXP:       restored.XP,
		EstimatedLevel:    restored.Level,
		Title:             progress.TitleForLevel(restored.Level).Title,
	}
	return dto, nil
}

// weekEquivalent переводит день 30-дневного формата в сопоставимую неделю.
func weekEquivalent(day int, cur progress.Curriculum) int {
	days, weeks := cur.TotalDays(), cur.TotalWeeks()
	if days <= 0 || weeks <= 0 {
		return 1
	}
	w := int(math.Ceil(float64(day) * float64(weeks) / float64(days)))
	if w < 1 {
		return 1
	}
	if w > weeks {
		return weeks
	}
	return w
}

func projectName(d progresscode.Decoded) string {
	if d.Project.IsSet() {
		return string(d.Project)
	}
	if d.ProjectCode == progress.NoneProjectCode {
		return "none"
	}
	return "unknown"
}

func percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}

package query

import (
	"context"
	"math"

	"github.com/hampton/progress-tracker/internal/domain/progress"
	"github.com/hampton/progress-tracker/internal/domain/progresscode"
)

// ══════════════════════════════════════════════════════════════════════════════
// CODE ANALYTICS QUERY
// Сводка по набору кодов: распределение проектов, средняя и дальняя позиция,
// средний процент прохождения. Невалидные коды считаются, но не учитываются.
// ══════════════════════════════════════════════════════════════════════════════

// CodeAnalyticsQuery содержит набор кодов.
type CodeAnalyticsQuery struct {
	Codes []string
}

// Position - неделя и модуль.
type Position struct {
	Week   int `json:"week"`
	Module int `json:"module"`
}

// CodeAnalyticsDTO - итог анализа набора кодов.
type CodeAnalyticsDTO struct {
	TotalCodes   int `json:"total_codes"`
	ValidCodes   int `json:"valid_codes"`
	InvalidCodes int `json:"invalid_codes"`

	// ProjectDistribution - число кодов по проекту ("none" и "unknown" включительно).
	ProjectDistribution map[string]int `json:"project_distribution"`

	// WeeklyCodes / DailyCodes - разбивка валидных кодов по формату.
	WeeklyCodes int `json:"weekly_codes"`
	DailyCodes  int `json:"daily_codes"`

	AverageWeek   float64  `json:"average_week"`
	AverageModule float64  `json:"average_module"`
	AverageDay    float64  `json:"average_day"`
	Furthest      Position `json:"furthest_progress"`

	// CompletionRate - средний процент пройденных модулей по недельным кодам.
	CompletionRate float64 `json:"completion_rate"`
}

// CodeAnalyticsHandler обрабатывает CodeAnalyticsQuery.
type CodeAnalyticsHandler struct {
	codec *progresscode.Codec
}

// NewCodeAnalyticsHandler создаёт обработчик.
func NewCodeAnalyticsHandler(codec *progresscode.Codec) *CodeAnalyticsHandler {
	if codec == nil {
		codec = progresscode.New()
	}
	return &CodeAnalyticsHandler{codec: codec}
}

// Handle анализирует коды.
func (h *CodeAnalyticsHandler) Handle(_ context.Context, q CodeAnalyticsQuery) (*CodeAnalyticsDTO, error) {
	dto := &CodeAnalyticsDTO{
		TotalCodes:          len(q.Codes),
		ProjectDistribution: map[string]int{},
	}
	cur := h.codec.Curriculum()
	per := cur.ModulesPerWeek()

	var sumWeek, sumModule, sumDay, sumPosition int
	for _, code := range q.Codes {
		d, err := h.codec.Parse(code)
		if err != nil {
			dto.InvalidCodes++
			continue
		}
		dto.ValidCodes++
		dto.ProjectDistribution[projectName(d)]++

		p := d.Position
		if p.Daily {
			dto.DailyCodes++
			sumDay += p.Day
			continue
		}
		dto.WeeklyCodes++
		sumWeek += p.Week
		sumModule += p.Module
		sumPosition += (p.Week-1)*per + p.Module
		if p.Week > dto.Furthest.Week || (p.Week == dto.Furthest.Week && p.Module > dto.Furthest.Module) {
			dto.Furthest = Position{Week: p.Week, Module: p.Module}
		}
	}

	if n := dto.WeeklyCodes; n > 0 {
		dto.AverageWeek = round2(float64(sumWeek) / float64(n))
		dto.AverageModule = round2(float64(sumModule) / float64(n))
		dto.CompletionRate = round2(float64(sumPosition) / float64(n) / float64(progress.TotalModules(cur)) * 100)
	}
	if n := dto.DailyCodes; n > 0 {
		dto.AverageDay = round2(float64(sumDay) / float64(n))
	}
	return dto, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

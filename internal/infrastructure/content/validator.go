package content

import (
	"context"
	"log/slog"

	domain "github.com/hampton/progress-tracker/internal/domain/content"
	"github.com/hampton/progress-tracker/internal/domain/progress"
)

// Validator checks a whole curriculum worth of week documents from a source.
type Validator struct {
	source     domain.Provider
	curriculum progress.Curriculum
	logger     *slog.Logger
}

// NewValidator creates a validator over source.
func NewValidator(source domain.Provider, cur progress.Curriculum, logger *slog.Logger) *Validator {
	if cur == nil {
		cur = progress.StandardCurriculum{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{source: source, curriculum: cur, logger: logger}
}

// Validate loads every week for project and runs the curriculum checks.
// Weeks the source cannot supply are reported as missing. Raw documents are
// checked as they are, without filling gaps from the defaults.
func (v *Validator) Validate(ctx context.Context, project progress.Project) (domain.Report, error) {
	weeks := make(map[int]domain.Week, v.curriculum.TotalWeeks())
	for n := 1; n <= v.curriculum.TotalWeeks(); n++ {
		if err := ctx.Err(); err != nil {
			return domain.Report{}, err
		}
		w, err := v.source.FetchWeek(ctx, n, project)
		if err != nil {
			v.logger.Debug("week not loaded", "week", n, "error", err)
			continue
		}
		weeks[n] = w
	}
	return domain.Check(weeks, v.curriculum.TotalWeeks(), v.curriculum.ModulesPerWeek()), nil
}

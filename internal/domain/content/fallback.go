package content

import (
	"context"
	"log/slog"

	"github.com/hampton/progress-tracker/internal/domain/progress"
)

// FallbackProvider оборачивает источник и никогда не возвращает ошибку:
// недоступный источник или невалидные материалы заменяются значениями по умолчанию.
type FallbackProvider struct {
	source     Provider
	curriculum progress.Curriculum
	logger     *slog.Logger
}

// NewFallbackProvider создаёт провайдер. source может быть nil:
// тогда всегда отдаются материалы по умолчанию.
func NewFallbackProvider(source Provider, cur progress.Curriculum, logger *slog.Logger) *FallbackProvider {
	if cur == nil {
		cur = progress.StandardCurriculum{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackProvider{source: source, curriculum: cur, logger: logger}
}

// FetchDay реализует Provider.
func (p *FallbackProvider) FetchDay(ctx context.Context, day int, project progress.Project) (Day, error) {
	if p.source == nil {
		return DefaultDay(day, p.curriculum), nil
	}
	raw, err := p.source.FetchDay(ctx, day, project)
	if err != nil {
		p.logger.Warn("day content unavailable, using defaults",
			"day", day,
			"project", string(project),
			"error", err,
		)
		return DefaultDay(day, p.curriculum), nil
	}
	d, err := NormalizeDay(raw, day, p.curriculum)
	if err != nil {
		p.logger.Warn("day content invalid, using defaults",
			"day", day,
			"error", err,
		)
		return DefaultDay(day, p.curriculum), nil
	}
	return d, nil
}

// FetchWeek реализует Provider.
func (p *FallbackProvider) FetchWeek(ctx context.Context, week int, project progress.Project) (Week, error) {
	if p.source == nil {
		return DefaultWeek(week, project, p.curriculum), nil
	}
	raw, err := p.source.FetchWeek(ctx, week, project)
	if err != nil {
		p.logger.Warn("week content unavailable, using defaults",
			"week", week,
			"project", string(project),
			"error", err,
		)
		return DefaultWeek(week, project, p.curriculum), nil
	}
	w, err := NormalizeWeek(raw, week, project, p.curriculum)
	if err != nil {
		p.logger.Warn("week content invalid, using defaults",
			"week", week,
			"error", err,
		)
		return DefaultWeek(week, project, p.curriculum), nil
	}
	return w, nil
}

package content

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hampton/progress-tracker/internal/domain/progress"
	"github.com/hampton/progress-tracker/internal/domain/shared"
)

var validate = validator.New()

// FieldError - нарушение одного ограничения.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validate проверяет структуру по тегам validate и возвращает нарушения.
func Validate(v any) []FieldError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   fe.Namespace(),
			Message: fmt.Sprintf("field must satisfy %s constraint", fe.Tag()),
		})
	}
	return out
}

// NormalizeDay заполняет пропуски в материалах дня значениями по умолчанию
// и проверяет результат.
func NormalizeDay(d Day, day int, cur progress.Curriculum) (Day, error) {
	def := DefaultDay(day, cur)
	if d.Day == 0 {
		d.Day = day
	}
	if strings.TrimSpace(d.Title) == "" {
		d.Title = def.Title
	}
	if len(d.Lessons) == 0 {
		d.Lessons = def.Lessons
	}
	if d.Deliverable == "" {
		d.Deliverable = def.Deliverable
	}
	if d.XP == 0 {
		d.XP = def.XP
	}
	if d.Day != day {
		return Day{}, invalid("NormalizeDay", []FieldError{{Field: "Day.Day", Message: fmt.Sprintf("expected day %d, got %d", day, d.Day)}})
	}
	if errs := Validate(d); len(errs) > 0 {
		return Day{}, invalid("NormalizeDay", errs)
	}
	return d, nil
}

// NormalizeWeek заполняет пропуски в материалах недели и проверяет результат.
// Модули без номера получают номер по позиции, без ID - ID вида w{week}m{n}.
func NormalizeWeek(w Week, week int, project progress.Project, cur progress.Curriculum) (Week, error) {
	def := DefaultWeek(week, project, cur)
	if w.Week == 0 {
		w.Week = week
	}
	if strings.TrimSpace(w.Title) == "" {
		w.Title = def.Title
	}
	if w.Description == "" {
		w.Description = def.Description
	}
	if len(w.Modules) == 0 {
		w.Modules = def.Modules
	}
	for i := range w.Modules {
		m := &w.Modules[i]
		if m.Number == 0 {
			m.Number = i + 1
		}
		if m.ID == "" {
			m.ID = progress.ModuleID(week, m.Number)
		}
		if m.Difficulty == "" {
			m.Difficulty = Difficulty(week)
		}
	}
	if w.Week != week {
		return Week{}, invalid("NormalizeWeek", []FieldError{{Field: "Week.Week", Message: fmt.Sprintf("expected week %d, got %d", week, w.Week)}})
	}
	if errs := Validate(w); len(errs) > 0 {
		return Week{}, invalid("NormalizeWeek", errs)
	}
	return w, nil
}

func invalid(op string, errs []FieldError) error {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return shared.WrapError("content", op, shared.ErrContentInvalid, strings.Join(parts, "; "), nil)
}

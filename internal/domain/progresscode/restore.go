package progresscode

import (
	"time"

	"github.com/hampton/progress-tracker/internal/domain/progress"
	"github.com/hampton/progress-tracker/internal/domain/shared"
)

// Restore строит состояние по разобранному коду.
//
// Недельный режим: недели до Week пройдены целиком, в неделе Week пройдены
// модули 1..Module-1, XP = число модулей × 100.
// Ежедневный режим: дни до Day пройдены целиком, в дне Day пройдены уроки
// 0..Lesson-1, XP = сумма наград за эти уроки.
// Уровень пересчитывается из XP. Достижения не выдаются.
func (c *Codec) Restore(d Decoded, userID string, now time.Time) *progress.State {
	s := progress.NewState(userID, now)
	s.UseCurriculum(c.curriculum)
	s.SelectedProject = d.Project

	if d.Position.Daily {
		c.backfillDays(s, d.Position.Day, d.Position.Lesson)
	} else {
		c.backfillWeeks(s, d.Position.Week, d.Position.Module)
	}

	s.Level = shared.LevelForXP(s.XP)
	s.MarkImported(d.Code, now)
	return s
}

func (c *Codec) backfillWeeks(s *progress.State, week, module int) {
	perWeek := c.curriculum.ModulesPerWeek()
	s.CurrentDay = 0
	s.CurrentLesson = 0
	s.CurrentWeek = week
	s.CurrentModule = module

	for w := 1; w <= week; w++ {
		last := perWeek
		if w == week {
			last = module - 1
		}
		key := progress.WeekKey(w)
		wp, ok := s.WeekProgress[key]
		if !ok {
			if last < 1 {
				continue
			}
			wp = &progress.WeekProgress{Modules: []int{}}
			s.WeekProgress[key] = wp
		}
		for m := 1; m <= last; m++ {
			wp.Modules = append(wp.Modules, m)
			s.CompletedModules = append(s.CompletedModules, progress.ModuleID(w, m))
		}
		wp.Completed = w < week
	}
	s.XP = len(s.CompletedModules) * progress.ModuleXP
}

func (c *Codec) backfillDays(s *progress.State, day, lesson int) {
	s.CurrentDay = day
	s.CurrentLesson = lesson

	xp := 0
	for d := 1; d <= day; d++ {
		last := c.curriculum.LessonsPerDay(d)
		if d == day {
			last = lesson
		}
		if last < 1 {
			continue
		}
		dp := &progress.DayProgress{Lessons: make([]int, 0, last)}
		for l := 0; l < last; l++ {
			dp.Lessons = append(dp.Lessons, l)
			s.CompletedLessons = append(s.CompletedLessons, progress.LessonID(d, l))
			xp += progress.LessonXP(d)
		}
		dp.Completed = d < day
		s.DailyProgress[progress.DayKey(d)] = dp
	}
	s.XP = xp
}

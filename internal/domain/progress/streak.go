package progress

import (
	"time"

	"github.com/hampton/progress-tracker/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK TRACKER
// ══════════════════════════════════════════════════════════════════════════════

// Вехи серии, за которые выдаются достижения.
const (
	WeekStreakDays  = 7
	MonthStreakDays = 30
)

// StreakChange описывает результат записи активности.
type StreakChange struct {
	// Changed - false, если активность уже была в этот календарный день.
	Changed bool
	// Old / New - значение серии до и после.
	Old int
	New int
	// Broken - серия прервалась и началась заново.
	Broken bool
}

// AdvanceStreak вычисляет новую серию по календарным датам в часовом поясе now.
//   - тот же день: без изменений;
//   - следующий день: +1;
//   - любой другой случай (первая активность, пропуск 2+ дней, время назад): 1.
func AdvanceStreak(last *time.Time, streak int, now time.Time) StreakChange {
	loc := now.Location()
	if last != nil && timeutil.IsSameDay(*last, now, loc) {
		return StreakChange{Old: streak, New: streak}
	}
	if last != nil && timeutil.IsConsecutiveDay(*last, now, loc) {
		return StreakChange{Changed: true, Old: streak, New: streak + 1}
	}
	return StreakChange{Changed: true, Old: streak, New: 1, Broken: last != nil}
}

// streakMilestone возвращает достижение за точное значение серии.
func streakMilestone(streak int) (id, name, description string, ok bool) {
	switch streak {
	case WeekStreakDays:
		return "week_streak", "Week Warrior", "7 day streak!", true
	case MonthStreakDays:
		return "month_streak", "Monthly Master", "30 day streak!", true
	}
	return "", "", "", false
}

package progress

import (
	"fmt"
	"regexp"
	"strconv"
)

// ══════════════════════════════════════════════════════════════════════════════
// CURRICULUM
// ══════════════════════════════════════════════════════════════════════════════

// Curriculum описывает размеры программы. Агрегат использует только счётчики,
// само содержимое уроков поставляет content.Provider.
type Curriculum interface {
	// TotalDays - число дней в ежедневном формате.
	TotalDays() int
	// LessonsPerDay - ожидаемое число уроков в указанный день.
	LessonsPerDay(day int) int
	// TotalWeeks - число недель в недельном формате.
	TotalWeeks() int
	// ModulesPerWeek - число модулей в неделе.
	ModulesPerWeek() int
}

// Константы стандартной программы.
const (
	StandardDays           = 30
	StandardWeeks          = 8
	StandardModulesPerWeek = 5
	StandardLessonsPerDay  = 4
	PracticeLessonsPerDay  = 3
	practiceDayInterval    = 7
)

// StandardCurriculum - 30 дней по 4 урока (3 в практические дни 7, 14, 21, 28)
// и 8 недель по 5 модулей.
type StandardCurriculum struct{}

// TotalDays реализует Curriculum.
func (StandardCurriculum) TotalDays() int { return StandardDays }

// LessonsPerDay реализует Curriculum.
func (StandardCurriculum) LessonsPerDay(day int) int {
	if IsPracticeDay(day) {
		return PracticeLessonsPerDay
	}
	return StandardLessonsPerDay
}

// TotalWeeks реализует Curriculum.
func (StandardCurriculum) TotalWeeks() int { return StandardWeeks }

// ModulesPerWeek реализует Curriculum.
func (StandardCurriculum) ModulesPerWeek() int { return StandardModulesPerWeek }

// IsPracticeDay возвращает true для дней, кратных 7, внутри 30-дневной программы.
func IsPracticeDay(day int) bool {
	return day > 0 && day < StandardDays && day%practiceDayInterval == 0
}

// TotalLessons суммирует уроки по всем дням программы.
func TotalLessons(c Curriculum) int {
	n := 0
	for d := 1; d <= c.TotalDays(); d++ {
		n += c.LessonsPerDay(d)
	}
	return n
}

// TotalModules - число модулей во всей программе.
func TotalModules(c Curriculum) int {
	return c.TotalWeeks() * c.ModulesPerWeek()
}

// ══════════════════════════════════════════════════════════════════════════════
// IDENTIFIERS
// ══════════════════════════════════════════════════════════════════════════════

// LessonID формирует идентификатор урока "day{N}-{idx}".
// Разделитель исключает совпадение day1+12 и day11+2.
func LessonID(day, lesson int) string {
	return fmt.Sprintf("day%d-%d", day, lesson)
}

var lessonIDPattern = regexp.MustCompile(`^(?:day(\d+)-|d(\d+)l)(\d+)$`)

// ParseLessonID разбирает "day{N}-{idx}" и браузерную форму "d{N}l{idx}".
func ParseLessonID(id string) (day, lesson int, ok bool) {
	m := lessonIDPattern.FindStringSubmatch(id)
	if m == nil {
		return 0, 0, false
	}
	d := m[1]
	if d == "" {
		d = m[2]
	}
	day, err := strconv.Atoi(d)
	if err != nil {
		return 0, 0, false
	}
	lesson, err = strconv.Atoi(m[3])
	if err != nil {
		return 0, 0, false
	}
	return day, lesson, true
}

// ModuleID формирует идентификатор модуля "w{week}m{module}".
func ModuleID(week, module int) string {
	return fmt.Sprintf("w%dm%d", week, module)
}

// DayKey формирует ключ dailyProgress.
func DayKey(day int) string {
	return fmt.Sprintf("day%d", day)
}

// WeekKey формирует ключ weekProgress.
func WeekKey(week int) string {
	return fmt.Sprintf("week%d", week)
}

// LessonXP - награда за урок: 50 + 5 за каждый день программы.
func LessonXP(day int) int {
	return LessonBaseXP + day*LessonDayXP
}

// Награды за действия.
const (
	LessonBaseXP     = 50
	LessonDayXP      = 5
	ModuleXP         = 100
	WeekBonusXP      = 500
	AchievementXP    = 50
	maxCascadeSteps  = 256
	minPresentWeeks  = 4
	levelUpIDPrefix  = "level_up_"
	weekDoneIDPrefix = "week_complete_"
	masterIDPrefix   = "master_"
)

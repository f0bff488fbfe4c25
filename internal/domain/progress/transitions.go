package progress

import (
	"fmt"
	"time"

	"github.com/hampton/progress-tracker/internal/domain/shared"
	"github.com/hampton/progress-tracker/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRANSITIONS
// Все команды принимают now явно, чтобы агрегат оставался детерминированным.
// Ошибки валидации возвращаются как error; повтор уже выполненного действия
// возвращается как Completion{AlreadyCompleted: true} без ошибки.
// ══════════════════════════════════════════════════════════════════════════════

// SelectProject выбирает проект и ставит позицию в начало обоих форматов.
func (s *State) SelectProject(p Project, now time.Time) (Completion, error) {
	if !p.IsValid() {
		return Completion{}, shared.WrapError("progress", "SelectProject", shared.ErrInvalidProject,
			fmt.Sprintf("project %q is not one of tictactoe, servicenow, automation, msgraph", string(p)), nil)
	}
	c := s.begin(now)
	s.SelectedProject = p
	s.CurrentDay = 1
	s.CurrentLesson = 0
	s.CurrentWeek = 1
	s.CurrentModule = 1
	s.emit(shared.NewProjectSelectedEvent(s.UserID, now, string(p)))
	return c.settle(), nil
}

// CompleteLesson отмечает урок дня выполненным.
func (s *State) CompleteLesson(day, lesson int, now time.Time) (Completion, error) {
	cur := s.Curriculum()
	if day < 1 || day > cur.TotalDays() {
		return Completion{}, outOfRange("CompleteLesson", "day %d is outside 1..%d", day, cur.TotalDays())
	}
	expected := cur.LessonsPerDay(day)
	if lesson < 0 || lesson >= expected {
		return Completion{}, outOfRange("CompleteLesson", "lesson %d is outside 0..%d for day %d", lesson, expected-1, day)
	}
	id := LessonID(day, lesson)
	if contains(s.CompletedLessons, id) || s.lessonRecorded(day, lesson) {
		return Completion{AlreadyCompleted: true, XPBefore: s.XP, XPAfter: s.XP, LevelBefore: s.Level, LevelAfter: s.Level}, nil
	}

	c := s.begin(now)
	s.CompletedLessons = append(s.CompletedLessons, id)

	key := DayKey(day)
	dp, ok := s.DailyProgress[key]
	if !ok {
		dp = &DayProgress{Lessons: []int{}}
		s.DailyProgress[key] = dp
	}
	if !containsInt(dp.Lessons, lesson) {
		dp.Lessons = append(dp.Lessons, lesson)
	}
	if !dp.Completed && len(dp.Lessons) >= expected {
		dp.Completed = true
		s.emit(shared.NewDayCompletedEvent(s.UserID, now, day, len(dp.Lessons)))
	}

	if day == s.CurrentDay && lesson == s.CurrentLesson {
		if lesson < expected-1 {
			s.CurrentLesson++
		} else if day < cur.TotalDays() {
			s.CurrentDay++
			s.CurrentLesson = 0
		}
	}

	c.recordActivity()
	xp := LessonXP(day)
	s.emit(shared.NewLessonCompletedEvent(s.UserID, now, id, day, lesson, xp))
	c.grantXP(xp, "lesson:"+id)
	return c.settle(), nil
}

// CompleteModule отмечает модуль недели выполненным.
func (s *State) CompleteModule(week, module int, now time.Time) (Completion, error) {
	cur := s.Curriculum()
	if week < 1 || week > cur.TotalWeeks() {
		return Completion{}, outOfRange("CompleteModule", "week %d is outside 1..%d", week, cur.TotalWeeks())
	}
	perWeek := cur.ModulesPerWeek()
	if module < 1 || module > perWeek {
		return Completion{}, outOfRange("CompleteModule", "module %d is outside 1..%d", module, perWeek)
	}
	id := ModuleID(week, module)
	if contains(s.CompletedModules, id) {
		return Completion{AlreadyCompleted: true, XPBefore: s.XP, XPAfter: s.XP, LevelBefore: s.Level, LevelAfter: s.Level}, nil
	}

	c := s.begin(now)
	s.CompletedModules = append(s.CompletedModules, id)

	key := WeekKey(week)
	wp, ok := s.WeekProgress[key]
	if !ok {
		wp = &WeekProgress{Modules: []int{}}
		s.WeekProgress[key] = wp
	}
	if !containsInt(wp.Modules, module) {
		wp.Modules = append(wp.Modules, module)
	}

	s.emit(shared.NewModuleCompletedEvent(s.UserID, now, id, week, module, ModuleXP))
	c.grantXP(ModuleXP, "module:"+id)
	c.run()

	if !wp.Completed && len(wp.Modules) >= perWeek {
		wp.Completed = true
		s.emit(shared.NewWeekCompletedEvent(s.UserID, now, week, WeekBonusXP))
		c.unlock(WeekCompleteAchievementID(week), fmt.Sprintf("Completed Week %d", week), "")
		c.run()
		c.grantXP(WeekBonusXP, "week_bonus:"+key)
		c.run()
	}

	if week == s.CurrentWeek && module == s.CurrentModule {
		if module < perWeek {
			s.CurrentModule++
		} else if week < cur.TotalWeeks() {
			s.CurrentWeek++
			s.CurrentModule = 1
		}
	}

	c.recordActivity()
	return c.settle(), nil
}

// AddXP начисляет неотрицательное количество XP.
func (s *State) AddXP(amount int, source string, now time.Time) (Completion, error) {
	if amount < 0 {
		return Completion{}, shared.ErrNegativeXP
	}
	if amount > shared.MaxXP-s.XP {
		return Completion{}, shared.ErrXPOverflow
	}
	if source == "" {
		source = "manual"
	}
	c := s.begin(now)
	c.grantXP(amount, source)
	return c.settle(), nil
}

// lessonRecorded сообщает, отмечен ли урок в dailyProgress.
func (s *State) lessonRecorded(day, lesson int) bool {
	dp := s.DailyProgress[DayKey(day)]
	return dp != nil && containsInt(dp.Lessons, lesson)
}

// UnlockAchievement разблокирует достижение не более одного раза за жизнь состояния.
// Пустые name/description подставляются из каталога, если ID там есть.
func (s *State) UnlockAchievement(id, name, description string, now time.Time) (Completion, error) {
	if id == "" {
		return Completion{}, shared.NewDomainError("progress", "UnlockAchievement", shared.ErrInvalidInput, "achievement id is empty")
	}
	if s.HasAchievement(id) {
		return Completion{AlreadyCompleted: true, XPBefore: s.XP, XPAfter: s.XP, LevelBefore: s.Level, LevelAfter: s.Level}, nil
	}
	if def, ok := LookupAchievement(id); ok {
		if name == "" {
			name = def.Name
		}
		if description == "" {
			description = def.Description
		}
	}
	if name == "" {
		name = id
	}
	c := s.begin(now)
	c.unlock(id, name, description)
	return c.settle(), nil
}

// UpdateSkill изменяет оценку навыка на delta с ограничением [0,100].
// Возвращает новое значение.
func (s *State) UpdateSkill(skill Skill, delta int, now time.Time) (int, Completion, error) {
	if !skill.IsKnown() {
		return 0, Completion{}, shared.WrapError("progress", "UpdateSkill", shared.ErrUnknownSkill,
			fmt.Sprintf("skill %q is not tracked", string(skill)), nil)
	}
	c := s.begin(now)
	s.Skills[skill] = int(shared.SkillScore(s.Skills[skill]).Apply(delta))
	return s.Skills[skill], c.settle(), nil
}

// RecordActivity записывает активность без других изменений.
func (s *State) RecordActivity(now time.Time) (StreakChange, Completion) {
	c := s.begin(now)
	ch := c.recordActivity()
	res := c.settle()
	res.Applied = ch.Changed || len(res.Unlocked) > 0 || len(res.Badges) > 0
	return ch, res
}

// CompleteChallenge отмечает сегодняшнее задание выполненным и начисляет его XP.
// Каждое задание засчитывается не более одного раза за календарный день.
func (s *State) CompleteChallenge(id string, now time.Time) (Completion, error) {
	var picked *Challenge
	for _, ch := range DailyChallenges(now) {
		if ch.ID == id {
			ch := ch
			picked = &ch
			break
		}
	}
	if picked == nil {
		return Completion{}, shared.WrapError("progress", "CompleteChallenge", shared.ErrUnknownChallenge,
			fmt.Sprintf("challenge %q is not offered today", id), nil)
	}
	key := ChallengeKey(now, id)
	if contains(s.CompletedChallenges, key) {
		return Completion{AlreadyCompleted: true, XPBefore: s.XP, XPAfter: s.XP, LevelBefore: s.Level, LevelAfter: s.Level}, nil
	}
	c := s.begin(now)
	s.CompletedChallenges = append(s.CompletedChallenges, key)
	s.emit(shared.NewChallengeCompletedEvent(s.UserID, now, id, timeutil.FormatDateStr(now, now.Location()), picked.XP))
	c.grantXP(picked.XP, "challenge:"+id)
	return c.settle(), nil
}

// Evaluate проверяет предикаты на текущем состоянии (например, после загрузки).
func (s *State) Evaluate(now time.Time) Completion {
	c := s.begin(now)
	res := c.settle()
	res.Applied = len(res.Unlocked) > 0 || len(res.Badges) > 0
	return res
}

func outOfRange(op, format string, args ...any) error {
	return shared.WrapError("progress", op, shared.ErrPositionOutOfRange, fmt.Sprintf(format, args...), nil)
}

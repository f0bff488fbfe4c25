package progress

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/hampton/progress-tracker/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// AGGREGATE
// ══════════════════════════════════════════════════════════════════════════════

// State - агрегат прогресса одного ученика. JSON-теги совпадают с документом,
// который браузерный клиент хранит под ключом hampton_progress.
type State struct {
	// UserID - непрозрачный идентификатор, создаётся один раз.
	UserID string `json:"userId"`

	// SelectedProject - выбранный проект (null, если не выбран).
	SelectedProject Project `json:"selectedProject"`

	// CurrentDay / CurrentLesson - позиция в ежедневном формате (0 = недельный режим).
	CurrentDay    int `json:"currentDay"`
	CurrentLesson int `json:"currentLesson"`

	// CurrentWeek / CurrentModule - позиция в недельном формате.
	CurrentWeek   int `json:"currentWeek"`
	CurrentModule int `json:"currentModule"`

	// CompletedLessons - идентификаторы уроков "day{N}-{idx}".
	CompletedLessons []string `json:"completedLessons"`

	// CompletedModules - идентификаторы модулей "w{week}m{module}".
	CompletedModules []string `json:"completedModules"`

	// DailyProgress - прогресс по дням: day1..day30.
	DailyProgress map[string]*DayProgress `json:"dailyProgress"`

	// WeekProgress - прогресс по неделям: week1..week4 присутствуют всегда.
	WeekProgress map[string]*WeekProgress `json:"weekProgress"`

	// XP и Level. Level всегда равен LevelForXP(XP).
	XP    int `json:"xp"`
	Level int `json:"level"`

	// Achievements - разблокированные достижения, уникальные по ID.
	Achievements []Achievement `json:"achievements"`

	// Badges - полученные значки.
	Badges []string `json:"badges"`

	// Skills - оценки навыков в диапазоне [0,100].
	Skills map[Skill]int `json:"skills"`

	// DailyStreak - число подряд идущих дней с активностью.
	DailyStreak int `json:"dailyStreak"`

	// LastActivityDate - время последней активности (null, если её не было).
	LastActivityDate *time.Time `json:"lastActivityDate"`

	// StartDate - время создания состояния.
	StartDate time.Time `json:"startDate"`

	// CompletedChallenges - выполненные ежедневные задания "YYYY-MM-DD/id".
	CompletedChallenges []string `json:"completedChallenges"`

	curriculum Curriculum
	pending    []shared.Event
}

// DayProgress - прогресс одного дня.
type DayProgress struct {
	Lessons   []int `json:"lessons"`
	Completed bool  `json:"completed"`
}

// WeekProgress - прогресс одной недели.
type WeekProgress struct {
	Modules   []int `json:"modules"`
	Completed bool  `json:"completed"`
}

// Achievement - разблокированное достижение.
type Achievement struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UnlockedAt  time.Time `json:"unlockedAt"`
}

// NewUserID создаёт новый идентификатор ученика.
func NewUserID() string {
	return "user_" + uuid.NewString()
}

// NewState создаёт состояние по умолчанию.
func NewState(userID string, now time.Time) *State {
	s := &State{
		UserID:              userID,
		SelectedProject:     ProjectNone,
		CurrentWeek:         1,
		CurrentModule:       1,
		CompletedLessons:    []string{},
		CompletedModules:    []string{},
		DailyProgress:       map[string]*DayProgress{},
		WeekProgress:        map[string]*WeekProgress{},
		Level:               1,
		Achievements:        []Achievement{},
		Badges:              []string{},
		Skills:              defaultSkills(),
		StartDate:           now.UTC(),
		CompletedChallenges: []string{},
	}
	for w := 1; w <= minPresentWeeks; w++ {
		s.WeekProgress[WeekKey(w)] = &WeekProgress{Modules: []int{}}
	}
	return s
}

// ResetState заменяет состояние новым с новым UserID и записывает событие сброса.
func ResetState(prev *State, userID string, now time.Time) *State {
	s := NewState(userID, now)
	previous := ""
	if prev != nil {
		previous = prev.UserID
		s.curriculum = prev.curriculum
	}
	s.emit(shared.NewProgressResetEvent(s.UserID, now, previous))
	return s
}

// UseCurriculum задаёт размеры программы. По умолчанию StandardCurriculum.
func (s *State) UseCurriculum(c Curriculum) {
	s.curriculum = c
}

// Curriculum возвращает текущие размеры программы.
func (s *State) Curriculum() Curriculum {
	if s.curriculum == nil {
		return StandardCurriculum{}
	}
	return s.curriculum
}

// Repair восстанавливает инварианты после загрузки внешнего документа:
// пустые коллекции, недели 1-4, перечень навыков, уровень из XP.
// Браузерные идентификаторы уроков "d{N}l{idx}" приводятся к LessonID.
func (s *State) Repair() {
	if s.CompletedLessons == nil {
		s.CompletedLessons = []string{}
	}
	if s.CompletedModules == nil {
		s.CompletedModules = []string{}
	}
	if s.DailyProgress == nil {
		s.DailyProgress = map[string]*DayProgress{}
	}
	if s.WeekProgress == nil {
		s.WeekProgress = map[string]*WeekProgress{}
	}
	for k, d := range s.DailyProgress {
		if d == nil {
			s.DailyProgress[k] = &DayProgress{Lessons: []int{}}
		} else if d.Lessons == nil {
			d.Lessons = []int{}
		}
	}
	s.migrateLessonIDs()
	for k, w := range s.WeekProgress {
		if w == nil {
			s.WeekProgress[k] = &WeekProgress{Modules: []int{}}
		} else if w.Modules == nil {
			w.Modules = []int{}
		}
	}
	for w := 1; w <= minPresentWeeks; w++ {
		if _, ok := s.WeekProgress[WeekKey(w)]; !ok {
			s.WeekProgress[WeekKey(w)] = &WeekProgress{Modules: []int{}}
		}
	}
	if s.Achievements == nil {
		s.Achievements = []Achievement{}
	}
	if s.Badges == nil {
		s.Badges = []string{}
	}
	if s.CompletedChallenges == nil {
		s.CompletedChallenges = []string{}
	}
	if s.Skills == nil {
		s.Skills = map[Skill]int{}
	}
	for _, sk := range allSkills {
		if _, ok := s.Skills[sk]; !ok {
			s.Skills[sk] = 0
		}
	}
	for sk, v := range s.Skills {
		s.Skills[sk] = int(shared.SkillScore(v).Apply(0))
	}
	if !s.SelectedProject.IsValid() {
		s.SelectedProject = ProjectNone
	}
	if s.CurrentWeek < 1 {
		s.CurrentWeek = 1
	}
	if s.CurrentModule < 1 {
		s.CurrentModule = 1
	}
	if s.CurrentDay < 0 {
		s.CurrentDay = 0
	}
	if s.CurrentLesson < 0 {
		s.CurrentLesson = 0
	}
	if s.XP < 0 {
		s.XP = 0
	}
	if s.XP > shared.MaxXP {
		s.XP = shared.MaxXP
	}
	if s.DailyStreak < 0 {
		s.DailyStreak = 0
	}
	s.Level = shared.LevelForXP(s.XP)
}

// migrateLessonIDs переводит completedLessons в каноническую форму без дублей
// и отмечает каждый разобранный урок в dailyProgress.
func (s *State) migrateLessonIDs() {
	ids := make([]string, 0, len(s.CompletedLessons))
	for _, id := range s.CompletedLessons {
		day, lesson, ok := ParseLessonID(id)
		if ok {
			id = LessonID(day, lesson)
		}
		if contains(ids, id) {
			continue
		}
		ids = append(ids, id)
		if !ok {
			continue
		}
		dp := s.DailyProgress[DayKey(day)]
		if dp == nil {
			dp = &DayProgress{Lessons: []int{}}
			s.DailyProgress[DayKey(day)] = dp
		}
		if !containsInt(dp.Lessons, lesson) {
			dp.Lessons = append(dp.Lessons, lesson)
		}
	}
	s.CompletedLessons = ids
}

// Clone возвращает глубокую копию без накопленных событий.
func (s *State) Clone() *State {
	c := *s
	c.pending = nil
	c.CompletedLessons = append([]string{}, s.CompletedLessons...)
	c.CompletedModules = append([]string{}, s.CompletedModules...)
	c.Badges = append([]string{}, s.Badges...)
	c.CompletedChallenges = append([]string{}, s.CompletedChallenges...)
	c.Achievements = append([]Achievement{}, s.Achievements...)
	c.DailyProgress = make(map[string]*DayProgress, len(s.DailyProgress))
	for k, d := range s.DailyProgress {
		c.DailyProgress[k] = &DayProgress{Lessons: append([]int{}, d.Lessons...), Completed: d.Completed}
	}
	c.WeekProgress = make(map[string]*WeekProgress, len(s.WeekProgress))
	for k, w := range s.WeekProgress {
		c.WeekProgress[k] = &WeekProgress{Modules: append([]int{}, w.Modules...), Completed: w.Completed}
	}
	c.Skills = make(map[Skill]int, len(s.Skills))
	for k, v := range s.Skills {
		c.Skills[k] = v
	}
	if s.LastActivityDate != nil {
		t := *s.LastActivityDate
		c.LastActivityDate = &t
	}
	return &c
}

// PullEvents возвращает и очищает накопленные доменные события.
func (s *State) PullEvents() []shared.Event {
	out := s.pending
	s.pending = nil
	return out
}

func (s *State) emit(e shared.Event) {
	s.pending = append(s.pending, e)
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// IsDailyMode возвращает true для 30-дневного формата.
func (s *State) IsDailyMode() bool {
	return s.CurrentDay > 0
}

// LevelProgress - процент прогресса внутри текущего уровня.
func (s *State) LevelProgress() int {
	return shared.LevelProgressPercent(s.XP, s.Level)
}

// CompletedDays - число завершённых дней.
func (s *State) CompletedDays() int {
	n := 0
	for _, d := range s.DailyProgress {
		if d.Completed {
			n++
		}
	}
	return n
}

// CompletedWeeks - число завершённых недель.
func (s *State) CompletedWeeks() int {
	n := 0
	for _, w := range s.WeekProgress {
		if w.Completed {
			n++
		}
	}
	return n
}

// ProgressPercentage - общий процент прохождения программы.
func (s *State) ProgressPercentage() int {
	c := s.Curriculum()
	if s.IsDailyMode() {
		return roundPercent(s.CompletedDays(), c.TotalDays())
	}
	return roundPercent(len(s.CompletedModules), TotalModules(c))
}

// CanAccessModule проверяет, открыт ли модуль.
func (s *State) CanAccessModule(week, module int) bool {
	if week == 1 && module == 1 {
		return true
	}
	if module > 1 && s.IsModuleCompleted(week, module-1) {
		return true
	}
	if week > 1 {
		if w, ok := s.WeekProgress[WeekKey(week-1)]; ok && w.Completed {
			return true
		}
	}
	return false
}

// IsLessonCompleted проверяет, пройден ли урок.
func (s *State) IsLessonCompleted(day, lesson int) bool {
	return contains(s.CompletedLessons, LessonID(day, lesson)) || s.lessonRecorded(day, lesson)
}

// IsModuleCompleted проверяет, пройден ли модуль.
func (s *State) IsModuleCompleted(week, module int) bool {
	return contains(s.CompletedModules, ModuleID(week, module))
}

// HasAchievement проверяет, разблокировано ли достижение.
func (s *State) HasAchievement(id string) bool {
	for _, a := range s.Achievements {
		if a.ID == id {
			return true
		}
	}
	return false
}

// HasBadge проверяет, получен ли значок.
func (s *State) HasBadge(id string) bool {
	return contains(s.Badges, id)
}

// Skill возвращает оценку навыка.
func (s *State) Skill(name Skill) int {
	return s.Skills[name]
}

// MarshalJSON кодирует невыбранный проект как null.
func (p Project) MarshalJSON() ([]byte, error) {
	if p == ProjectNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(p))
}

// UnmarshalJSON принимает null и строку.
func (p *Project) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = ProjectNone
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Project(v)
	return nil
}

func roundPercent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// MarkImported записывает событие восстановления состояния из кода прогресса.
func (s *State) MarkImported(code string, now time.Time) {
	s.emit(shared.NewProgressImportedEvent(s.UserID, now, code, string(s.SelectedProject), s.XP, s.Level))
}

package progress

import (
	"strconv"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// AchievementCategory группирует достижения для отображения.
type AchievementCategory string

const (
	CategoryProgress AchievementCategory = "progress"
	CategorySkill    AchievementCategory = "skill"
	CategorySpeed    AchievementCategory = "speed"
	CategorySpecial  AchievementCategory = "special"
	CategoryProject  AchievementCategory = "project"
	CategorySocial   AchievementCategory = "social"
)

// AchievementDef - описание достижения из каталога.
// Check == nil означает, что достижение выдаётся только явным вызовом
// UnlockAchievement (внешнее событие, которое агрегат не наблюдает).
type AchievementDef struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Category    AchievementCategory
	Check       func(s *State) bool
}

// IsAutomatic возвращает true, если у достижения есть предикат.
func (d AchievementDef) IsAutomatic() bool {
	return d.Check != nil
}

var achievementCatalog = []AchievementDef{
	{ID: "first_blood", Name: "First Blood", Description: "Complete your first module", Icon: "🎯", Category: CategoryProgress,
		Check: func(s *State) bool { return len(s.CompletedModules) >= 1 }},
	{ID: "week_warrior", Name: "Week Warrior", Description: "Complete an entire week", Icon: "⚔️", Category: CategoryProgress,
		Check: func(s *State) bool { return s.CompletedWeeks() >= 1 }},
	{ID: "halfway_hero", Name: "Halfway Hero", Description: "Reach Week 4", Icon: "🏃", Category: CategoryProgress,
		Check: func(s *State) bool { return s.CurrentWeek >= 4 }},
	{ID: "graduation_day", Name: "Graduation Day", Description: "Complete all 8 weeks", Icon: "🎓", Category: CategoryProgress,
		Check: func(s *State) bool {
			w, ok := s.WeekProgress[WeekKey(StandardWeeks)]
			return s.CurrentWeek == StandardWeeks && ok && w.Completed
		}},
	{ID: "marathon_runner", Name: "Marathon Runner", Description: "Study for 7 days straight", Icon: "🏃‍♂️", Category: CategorySpeed,
		Check: func(s *State) bool { return s.DailyStreak >= WeekStreakDays }},

	{ID: "html_master", Name: "HTML Master", Description: "Master HTML skills", Icon: "📝", Category: CategorySkill},
	{ID: "css_wizard", Name: "CSS Wizard", Description: "Master CSS skills", Icon: "🎨", Category: CategorySkill},
	{ID: "js_ninja", Name: "JavaScript Ninja", Description: "Master JavaScript skills", Icon: "🥷", Category: CategorySkill},
	{ID: "git_guru", Name: "Git Guru", Description: "Master version control", Icon: "🔀", Category: CategorySkill},
	{ID: "ai_whisperer", Name: "AI Whisperer", Description: "Master AI prompting", Icon: "🤖", Category: CategorySkill},

	{ID: "speed_demon", Name: "Speed Demon", Description: "Complete 3 modules in one day", Icon: "⚡", Category: CategorySpeed},
	{ID: "night_owl", Name: "Night Owl", Description: "Complete a module after midnight", Icon: "🦉", Category: CategorySpeed},
	{ID: "early_bird", Name: "Early Bird", Description: "Complete a module before 6 AM", Icon: "🐦", Category: CategorySpeed},

	{ID: "bug_squasher", Name: "Bug Squasher", Description: "Fix 10 bugs in your code", Icon: "🐛", Category: CategorySpecial},
	{ID: "perfect_week", Name: "Perfect Week", Description: "Complete all daily challenges for a week", Icon: "⭐", Category: CategorySpecial},
	{ID: "code_reviewer", Name: "Code Reviewer", Description: "Review and improve your code 5 times", Icon: "👀", Category: CategorySpecial},
	{ID: "documentation_hero", Name: "Documentation Hero", Description: "Write comprehensive docs", Icon: "📚", Category: CategorySpecial},

	{ID: "dashboard_complete", Name: "Dashboard Master", Description: "Complete the Dashboard project", Icon: "📊", Category: CategoryProject},
	{ID: "blog_complete", Name: "Blog Builder", Description: "Complete the Blog project", Icon: "✍️", Category: CategoryProject},
	{ID: "automation_complete", Name: "Automation Expert", Description: "Complete the Automation project", Icon: "🤖", Category: CategoryProject},

	{ID: "helper", Name: "Helpful Hampton", Description: "Help another student", Icon: "🤝", Category: CategorySocial},
	{ID: "sharer", Name: "Knowledge Sharer", Description: "Share your progress", Icon: "📢", Category: CategorySocial},
	{ID: "contributor", Name: "Open Source Contributor", Description: "Contribute to a project", Icon: "🌟", Category: CategorySocial},
}

// Catalog возвращает копию каталога достижений.
func Catalog() []AchievementDef {
	out := make([]AchievementDef, len(achievementCatalog))
	copy(out, achievementCatalog)
	return out
}

// LookupAchievement ищет достижение каталога по ID.
func LookupAchievement(id string) (AchievementDef, bool) {
	for _, d := range achievementCatalog {
		if d.ID == id {
			return d, true
		}
	}
	return AchievementDef{}, false
}

// QualifyingAchievements возвращает ещё не разблокированные достижения,
// предикаты которых выполняются на s. Результат не зависит от порядка вычисления.
func QualifyingAchievements(s *State) []AchievementDef {
	var out []AchievementDef
	for _, d := range achievementCatalog {
		if d.Check != nil && !s.HasAchievement(d.ID) && d.Check(s) {
			out = append(out, d)
		}
	}
	return out
}

// MasteryAchievementID формирует ID достижения за навык.
func MasteryAchievementID(skill Skill) string {
	return masterIDPrefix + string(skill)
}

// LevelUpAchievementID формирует ID достижения за уровень.
func LevelUpAchievementID(level int) string {
	return levelUpIDPrefix + strconv.Itoa(level)
}

// WeekCompleteAchievementID формирует ID достижения за неделю.
func WeekCompleteAchievementID(week int) string {
	return weekDoneIDPrefix + strconv.Itoa(week)
}

// IsSystemAchievement возвращает true для достижений, которые агрегат выдаёт
// сам (уровни, недели, мастерство, серии).
func IsSystemAchievement(id string) bool {
	return strings.HasPrefix(id, levelUpIDPrefix) ||
		strings.HasPrefix(id, weekDoneIDPrefix) ||
		strings.HasPrefix(id, masterIDPrefix) ||
		id == "week_streak" || id == "month_streak"
}

// ══════════════════════════════════════════════════════════════════════════════
// BADGES
// ══════════════════════════════════════════════════════════════════════════════

// BadgeDef - описание значка. Requirement имеет вид level_N или skills_<category>.
type BadgeDef struct {
	ID          string
	Name        string
	Requirement string
	Icon        string
}

var badgeCatalog = []BadgeDef{
	{ID: "beginner", Name: "Beginner", Requirement: "level_1", Icon: "🌱"},
	{ID: "novice", Name: "Novice", Requirement: "level_5", Icon: "🌿"},
	{ID: "intermediate", Name: "Intermediate", Requirement: "level_10", Icon: "🌳"},
	{ID: "advanced", Name: "Advanced", Requirement: "level_15", Icon: "🏔️"},
	{ID: "expert", Name: "Expert", Requirement: "level_20", Icon: "👑"},
	{ID: "master", Name: "Master", Requirement: "level_25", Icon: "🏆"},

	{ID: "frontend_badge", Name: "Frontend Developer", Requirement: "skills_frontend", Icon: "🎨"},
	{ID: "backend_badge", Name: "Backend Developer", Requirement: "skills_backend", Icon: "⚙️"},
	{ID: "fullstack_badge", Name: "Full Stack Developer", Requirement: "skills_fullstack", Icon: "🚀"},
}

// skillThresholds - минимальные оценки навыков для значков skills_<category>.
var skillThresholds = map[string]map[Skill]int{
	"frontend":  {SkillHTML: 80, SkillCSS: 80, SkillJavaScript: 60},
	"backend":   {SkillDatabases: 80, SkillJavaScript: 80},
	"fullstack": {SkillHTML: 80, SkillCSS: 80, SkillJavaScript: 80, SkillDatabases: 80},
}

// Badges возвращает копию каталога значков.
func Badges() []BadgeDef {
	out := make([]BadgeDef, len(badgeCatalog))
	copy(out, badgeCatalog)
	return out
}

// LookupBadge ищет значок по ID.
func LookupBadge(id string) (BadgeDef, bool) {
	for _, b := range badgeCatalog {
		if b.ID == id {
			return b, true
		}
	}
	return BadgeDef{}, false
}

// Qualifies проверяет требование значка на s.
func (b BadgeDef) Qualifies(s *State) bool {
	switch {
	case strings.HasPrefix(b.Requirement, "level_"):
		n, err := strconv.Atoi(strings.TrimPrefix(b.Requirement, "level_"))
		return err == nil && s.Level >= n
	case strings.HasPrefix(b.Requirement, "skills_"):
		th, ok := skillThresholds[strings.TrimPrefix(b.Requirement, "skills_")]
		if !ok {
			return false
		}
		for sk, min := range th {
			if s.Skills[sk] < min {
				return false
			}
		}
		return true
	}
	return false
}

// QualifyingBadges возвращает ещё не полученные значки, требования которых выполнены.
func QualifyingBadges(s *State) []BadgeDef {
	var out []BadgeDef
	for _, b := range badgeCatalog {
		if !s.HasBadge(b.ID) && b.Qualifies(s) {
			out = append(out, b)
		}
	}
	return out
}

// Package content описывает учебные материалы, которые ядро получает извне:
// описание дня (30-дневный формат) и недели (8-недельный формат).
// Ядро не зависит от наличия материалов: при любой ошибке источника
// используются сгенерированные значения по умолчанию.
package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/hampton/progress-tracker/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// TYPES
// ══════════════════════════════════════════════════════════════════════════════

// Day - материалы одного дня.
type Day struct {
	Day         int      `json:"day" yaml:"day" validate:"min=1"`
	Title       string   `json:"title" yaml:"title" validate:"required"`
	Lessons     []string `json:"lessons" yaml:"lessons" validate:"min=1,dive,required"`
	Deliverable string   `json:"deliverable" yaml:"deliverable"`
	XP          int      `json:"xp" yaml:"xp" validate:"min=0"`
}

// Week - материалы одной недели.
type Week struct {
	Week        int          `json:"week" yaml:"week" validate:"min=1"`
	Title       string       `json:"title" yaml:"title" validate:"required"`
	Description string       `json:"description" yaml:"description"`
	Modules     []Module     `json:"modules" yaml:"modules" validate:"min=1,dive"`
	Summary     *WeekSummary `json:"week_summary,omitempty" yaml:"week_summary,omitempty"`
}

// Module - один модуль недели.
type Module struct {
	ID         string   `json:"id" yaml:"id" validate:"required"`
	Number     int      `json:"number" yaml:"number" validate:"min=1"`
	Title      string   `json:"title" yaml:"title" validate:"required"`
	Duration   string   `json:"duration" yaml:"duration"`
	Difficulty string   `json:"difficulty" yaml:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	XP         int      `json:"xp" yaml:"xp" validate:"min=0"`
	Skills     []string `json:"skills" yaml:"skills"`
	Objectives []string `json:"objectives" yaml:"objectives"`
}

// WeekSummary - необязательная сводка недели.
type WeekSummary struct {
	TotalXP         int      `json:"total_xp" yaml:"total_xp"`
	SkillsDeveloped []string `json:"skills_developed,omitempty" yaml:"skills_developed,omitempty"`
	EstimatedTime   string   `json:"estimated_time,omitempty" yaml:"estimated_time,omitempty"`
}

// TotalXP - сумма XP модулей недели.
func (w Week) TotalXP() int {
	total := 0
	for _, m := range w.Modules {
		total += m.XP
	}
	return total
}

// Provider - внешний источник материалов.
type Provider interface {
	// FetchDay возвращает материалы дня для проекта.
	FetchDay(ctx context.Context, day int, project progress.Project) (Day, error)
	// FetchWeek возвращает материалы недели для проекта.
	FetchWeek(ctx context.Context, week int, project progress.Project) (Week, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEFAULTS
// ══════════════════════════════════════════════════════════════════════════════

// DefaultDayXP - XP дня в материалах по умолчанию.
const DefaultDayXP = 200

var moduleNames = []string{
	"Introduction & Setup",
	"Core Concepts",
	"Hands-on Practice",
	"Advanced Techniques",
	"Weekly Project",
}

var weekTitles = map[progress.Project][]string{
	progress.ProjectTicTacToe: {
		"Game Fundamentals & Basic UI",
		"AI Opponents & Difficulty Levels",
		"Network Foundation & Server Setup",
		"Real-Time Multiplayer Gameplay",
		"Advanced Game Modes",
		"Spectator Mode & Broadcasting",
		"Polish & User Experience",
		"Deployment & Scaling",
	},
	progress.ProjectServiceNow: {
		"Foundation & ServiceNow Basics",
		"Building Core Metrics Components",
		"Time-Based Analytics",
		"Category & Assignment Analysis",
		"Advanced Visualizations",
		"Real-Time Updates & API Integration",
		"User Experience & Interactivity",
		"Deployment & Business Value",
	},
	progress.ProjectAutomation: {
		"Node.js & Bot Fundamentals",
		"Discord Bot Development",
		"Web Scraping with Puppeteer",
		"Task Automation",
		"Database Integration",
		"Advanced Bot Features",
		"Error Handling & Monitoring",
		"Deployment & Scaling",
	},
	progress.ProjectMSGraph: {
		"Foundation & Authentication",
		"Core Analytics & Visualization",
		"Advanced Features & Integration",
		"Enterprise Features & Deployment",
		"Multi-Tenant Architecture",
		"Security & Compliance Analytics",
		"Performance & Monitoring",
		"Production Deployment & Optimization",
	},
}

var weekSkills = map[int][]string{
	1: {"ai_prompting", "git"},
	2: {"html", "css"},
	3: {"javascript"},
	4: {"apis", "javascript"},
	5: {"databases", "javascript"},
	6: {"debugging", "optimization"},
	7: {"testing", "accessibility"},
	8: {"deployment", "monitoring"},
}

// DefaultDay генерирует материалы дня: по одному заглушечному уроку на каждый
// урок программы и 200 XP.
func DefaultDay(day int, cur progress.Curriculum) Day {
	if cur == nil {
		cur = progress.StandardCurriculum{}
	}
	n := cur.LessonsPerDay(day)
	if n < 1 {
		n = progress.StandardLessonsPerDay
	}
	lessons := make([]string, n)
	for i := range lessons {
		lessons[i] = fmt.Sprintf("Lesson %d for Day %d", i+1, day)
	}
	return Day{
		Day:         day,
		Title:       fmt.Sprintf("Day %d", day),
		Lessons:     lessons,
		Deliverable: fmt.Sprintf("Complete Day %d objectives", day),
		XP:          DefaultDayXP,
	}
}

// DefaultWeek генерирует материалы недели. Заголовок берётся из таблицы
// проекта; без выбранного проекта используется таблица tictactoe.
func DefaultWeek(week int, project progress.Project, cur progress.Curriculum) Week {
	if cur == nil {
		cur = progress.StandardCurriculum{}
	}
	return Week{
		Week:        week,
		Title:       WeekTitle(week, project),
		Description: fmt.Sprintf("Learn essential skills in Week %d", week),
		Modules:     defaultModules(week, cur.ModulesPerWeek()),
	}
}

// WeekTitle возвращает заголовок недели по умолчанию.
func WeekTitle(week int, project progress.Project) string {
	titles, ok := weekTitles[project]
	if !ok {
		titles = weekTitles[progress.ProjectTicTacToe]
	}
	if week >= 1 && week <= len(titles) {
		return titles[week-1]
	}
	return fmt.Sprintf("Week %d", week)
}

// Difficulty возвращает сложность недели: beginner до 2-й, intermediate до 5-й.
func Difficulty(week int) string {
	switch {
	case week <= 2:
		return "beginner"
	case week <= 5:
		return "intermediate"
	}
	return "advanced"
}

func defaultModules(week, count int) []Module {
	skills, ok := weekSkills[week]
	if !ok {
		skills = []string{"general"}
	}
	modules := make([]Module, 0, count)
	for i := 1; i <= count; i++ {
		name := fmt.Sprintf("Module %d", i)
		if i <= len(moduleNames) {
			name = moduleNames[i-1]
		}
		modules = append(modules, Module{
			ID:         progress.ModuleID(week, i),
			Number:     i,
			Title:      name,
			Duration:   fmt.Sprintf("%d minutes", 30+i*10),
			Difficulty: Difficulty(week),
			XP:         100 + week*10,
			Skills:     append([]string(nil), skills...),
			Objectives: []string{
				"Learn " + strings.ToLower(name),
				"Apply AI assistance effectively",
				"Complete hands-on exercises",
				"Build toward your project",
			},
		})
	}
	return modules
}

package progress

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/hampton/progress-tracker/internal/domain/shared"
)

// FormatXP сокращает XP: 1500 -> "1.5K", 2500000 -> "2.5M".
// Десятые округляются половиной вверх, как toFixed(1) для целых XP.
func FormatXP(xp int) string {
	switch {
	case xp >= 1_000_000:
		return tenths((xp+50_000)/100_000) + "M"
	case xp >= 1_000:
		return tenths((xp+50)/100) + "K"
	}
	return strconv.Itoa(xp)
}

func tenths(n int) string {
	return strconv.Itoa(n/10) + "." + strconv.Itoa(n%10)
}

// MotivationalMessage возвращает сообщение по проценту прохождения.
func MotivationalMessage(percent int) string {
	switch {
	case percent < 10:
		return "Welcome to your coding journey! Every expert was once a beginner."
	case percent < 25:
		return "Great start! You're building a strong foundation."
	case percent < 50:
		return "Impressive progress! You're really getting the hang of this."
	case percent < 75:
		return "You're over halfway there! Keep up the amazing work!"
	case percent < 90:
		return "You're in the home stretch! Your dedication is inspiring."
	case percent < 100:
		return "Almost there! You're about to achieve something incredible."
	}
	return "Congratulations! You've completed your journey. Mr. Hampton would be proud!"
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD RANK (local stub over a caller-supplied list)
// ══════════════════════════════════════════════════════════════════════════════

// Peer - другой участник со своим XP.
type Peer struct {
	UserID string `json:"userId"`
	XP     int    `json:"xp"`
}

// RankInfo - позиция ученика среди переданных участников.
type RankInfo struct {
	Rank       shared.Rank `json:"rank"`
	Total      int         `json:"total"`
	Percentile int         `json:"percentile"`
}

// LeaderboardRank ставит ученика перед первым участником с XP <= userXP.
// Если такого нет, ученик последний. Процентиль считается по итоговому месту.
// Входной срез не изменяется.
func LeaderboardRank(userXP int, peers []Peer) RankInfo {
	sorted := make([]Peer, len(peers))
	copy(sorted, peers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].XP > sorted[j].XP })

	total := len(sorted) + 1
	rank := total
	for i, p := range sorted {
		if p.XP <= userXP {
			rank = i + 1
			break
		}
	}
	pct := int(math.Round(float64(total-rank) / float64(total) * 100))
	return RankInfo{Rank: shared.Rank(rank), Total: total, Percentile: pct}
}

// ══════════════════════════════════════════════════════════════════════════════
// MILESTONES & PACE (недельный формат)
// ══════════════════════════════════════════════════════════════════════════════

// Milestone - ближайшая крупная веха: последний модуль недели.
type Milestone struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	Week             int    `json:"week,omitempty"`
	Module           int    `json:"module,omitempty"`
	ModulesRemaining int    `json:"modulesRemaining"`
}

var milestoneDescriptions = []string{
	"Foundation Complete",
	"Basic Structure Built",
	"Core Functionality Done",
	"Halfway There!",
	"Advanced Features Added",
	"Data Layer Complete",
	"Almost There!",
	"Project Complete! 🎓",
}

// NextMilestone возвращает первую веху строго после позиции (week, module).
func NextMilestone(c Curriculum, week, module int) Milestone {
	per := c.ModulesPerWeek()
	for w := 1; w <= c.TotalWeeks(); w++ {
		if week < w || (week == w && module < per) {
			desc := fmt.Sprintf("Week %d Complete", w)
			if w <= len(milestoneDescriptions) {
				desc = milestoneDescriptions[w-1]
			}
			return Milestone{
				Name:             fmt.Sprintf("Complete Week %d", w),
				Description:      desc,
				Week:             w,
				Module:           per,
				ModulesRemaining: (w-week)*per + (per - module),
			}
		}
	}
	return Milestone{Name: "Course Complete", Description: "Congratulations! You've completed the course!"}
}

// Pace - темп прохождения: дней на модуль.
type Pace struct {
	Name          string `json:"name"`
	DaysPerModule int    `json:"daysPerModule"`
}

// Paces - стандартные темпы от быстрого к выходному.
var Paces = []Pace{
	{"fast", 2},
	{"normal", 3},
	{"relaxed", 5},
	{"weekend", 7},
}

// CompletionEstimate - прогноз окончания для одного темпа.
type CompletionEstimate struct {
	Pace           string  `json:"pace"`
	Date           string  `json:"date"`
	DaysRemaining  int     `json:"daysRemaining"`
	WeeksRemaining float64 `json:"weeksRemaining"`
}

// EstimateCompletion прогнозирует дату окончания для каждого темпа из Paces.
// Позиция (week, module) считается пройденной включительно.
func EstimateCompletion(c Curriculum, week, module int, now time.Time) []CompletionEstimate {
	position := (week-1)*c.ModulesPerWeek() + module
	remaining := TotalModules(c) - position
	if remaining < 0 {
		remaining = 0
	}
	out := make([]CompletionEstimate, 0, len(Paces))
	for _, p := range Paces {
		days := remaining * p.DaysPerModule
		out = append(out, CompletionEstimate{
			Pace:           p.Name,
			Date:           now.AddDate(0, 0, days).Format("2006-01-02"),
			DaysRemaining:  days,
			WeeksRemaining: math.Round(float64(days)/7*10) / 10,
		})
	}
	return out
}

// Recommendations формирует советы по неделе, модулю и проекту.
func Recommendations(week, module int, project Project) []string {
	var out []string
	switch {
	case week <= 2:
		out = append(out,
			"Focus on mastering the fundamentals - they're crucial for later weeks",
			"Don't hesitate to use AI assistance extensively while learning")
	case week <= 4:
		out = append(out,
			"Start integrating more complex features into your project",
			"This is a good time to refactor early code with your new knowledge")
	case week <= 6:
		out = append(out,
			"Focus on optimization and best practices",
			"Consider adding optional advanced features to challenge yourself")
	default:
		out = append(out,
			"You're in the final stretch! Focus on polish and deployment",
			"Document your project thoroughly for your portfolio")
	}

	switch project {
	case ProjectServiceNow, ProjectMSGraph:
		out = append(out, "Explore additional data visualization libraries for richer displays")
	case ProjectAutomation:
		out = append(out, "Test your bots thoroughly in development environments")
	case ProjectTicTacToe:
		out = append(out, "Keep the game logic separate from the board rendering")
	}

	switch module {
	case 5:
		out = append(out, "Complete the weekly project to solidify your learning")
	case 1:
		out = append(out, "Take time to plan before diving into implementation")
	}
	return out
}

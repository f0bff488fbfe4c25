package progress

import (
	"math"
	"time"
	"unicode/utf16"

	"github.com/hampton/progress-tracker/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY CHALLENGES
// ══════════════════════════════════════════════════════════════════════════════

// ChallengesPerDay - сколько заданий выбирается на день.
const ChallengesPerDay = 3

// Difficulty - сложность ежедневного задания.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Challenge - ежедневное задание из фиксированного пула.
type Challenge struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	XP          int        `json:"xp"`
	Difficulty  Difficulty `json:"difficulty"`
}

// DailyChallenge - задание, выбранное на конкретную дату.
type DailyChallenge struct {
	Challenge
	Date      string `json:"date"`
	Completed bool   `json:"completed"`
}

// Порядок пула - часть контракта: от него зависит результат перемешивания.
var challengePool = []Challenge{
	{ID: "daily_module", Name: "Daily Progress", Description: "Complete one module today", XP: 50, Difficulty: DifficultyEasy},
	{ID: "no_hints", Name: "No Hints", Description: "Complete a module without using hints", XP: 100, Difficulty: DifficultyMedium},
	{ID: "speed_run", Name: "Speed Run", Description: "Complete a module in under 30 minutes", XP: 150, Difficulty: DifficultyHard},
	{ID: "perfect_code", Name: "Perfect Code", Description: "Write code that passes all tests on first try", XP: 200, Difficulty: DifficultyHard},
	{ID: "documentation", Name: "Document It", Description: "Add comments to all your functions", XP: 75, Difficulty: DifficultyEasy},
	{ID: "refactor", Name: "Refactor Master", Description: "Improve existing code", XP: 125, Difficulty: DifficultyMedium},
	{ID: "git_commit", Name: "Git Good", Description: "Make 5 meaningful commits", XP: 100, Difficulty: DifficultyMedium},
	{ID: "ai_efficiency", Name: "AI Efficiency", Description: "Complete a task with < 5 AI prompts", XP: 175, Difficulty: DifficultyHard},
}

// ChallengePool возвращает копию пула заданий.
func ChallengePool() []Challenge {
	out := make([]Challenge, len(challengePool))
	copy(out, challengePool)
	return out
}

// StringHash - полиномиальный хеш h = h*31 + code по UTF-16 единицам строки,
// усечённый до 32 бит со знаком, по модулю. Совместим с браузерным клиентом.
func StringHash(s string) int64 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = (h << 5) - h + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return v
}

// SeededRandom - псевдослучайное число в [0,1) из дробной части sin(seed)*10000.
func SeededRandom(seed float64) float64 {
	x := math.Sin(seed) * 10000
	return x - math.Floor(x)
}

// SeededShuffle перемешивает копию items по Фишеру-Йетсу с SeededRandom(seed+i).
func SeededShuffle[T any](items []T, seed int64) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out); i != 0; {
		j := int(math.Floor(SeededRandom(float64(seed+int64(i))) * float64(i)))
		i--
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// ChallengesForDate выбирает задания для строки даты в формате toDateString
// ("Fri Oct 16 2026"). Одна и та же строка всегда даёт один и тот же набор.
func ChallengesForDate(date string) []Challenge {
	shuffled := SeededShuffle(challengePool, StringHash(date))
	return shuffled[:ChallengesPerDay]
}

// DailyChallenges выбирает задания на календарный день now в его часовом поясе.
func DailyChallenges(now time.Time) []Challenge {
	return ChallengesForDate(timeutil.JSDateString(now, now.Location()))
}

// ChallengeKey формирует ключ выполненного задания "YYYY-MM-DD/id".
func ChallengeKey(now time.Time, id string) string {
	return timeutil.FormatDateStr(now, now.Location()) + "/" + id
}

// TodayChallenges возвращает задания на день now с отметками выполнения.
func (s *State) TodayChallenges(now time.Time) []DailyChallenge {
	date := timeutil.JSDateString(now, now.Location())
	picked := ChallengesForDate(date)
	out := make([]DailyChallenge, 0, len(picked))
	for _, c := range picked {
		out = append(out, DailyChallenge{
			Challenge: c,
			Date:      date,
			Completed: contains(s.CompletedChallenges, ChallengeKey(now, c.ID)),
		})
	}
	return out
}

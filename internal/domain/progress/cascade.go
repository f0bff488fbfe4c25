package progress

import (
	"fmt"
	"time"

	"github.com/hampton/progress-tracker/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// AWARD CASCADE
// Начисление XP может поднять уровень, повышение уровня разблокирует
// достижение, а достижение начисляет ещё XP. Вместо взаимной рекурсии
// используется очередь начислений и цикл до неподвижной точки с жёстким
// ограничением числа шагов.
// ══════════════════════════════════════════════════════════════════════════════

// Completion - итог одной команды над агрегатом.
type Completion struct {
	// Applied - состояние изменилось.
	Applied bool `json:"applied"`
	// AlreadyCompleted - повторный вызов, ничего не изменилось (не ошибка).
	AlreadyCompleted bool `json:"alreadyCompleted"`

	XPBefore    int `json:"xpBefore"`
	XPAfter     int `json:"xpAfter"`
	LevelBefore int `json:"levelBefore"`
	LevelAfter  int `json:"levelAfter"`

	// Unlocked - достижения, разблокированные этой командой, по порядку.
	Unlocked []string `json:"unlocked,omitempty"`
	// Badges - значки, полученные этой командой.
	Badges []string `json:"badges,omitempty"`
}

// XPGained возвращает прирост XP за команду.
func (c Completion) XPGained() int {
	return c.XPAfter - c.XPBefore
}

// LeveledUp возвращает true, если уровень вырос.
func (c Completion) LeveledUp() bool {
	return c.LevelAfter > c.LevelBefore
}

type grant struct {
	amount int
	source string
}

type cascade struct {
	s     *State
	now   time.Time
	queue []grant
	steps int
	res   Completion
}

func (s *State) begin(now time.Time) *cascade {
	return &cascade{
		s:   s,
		now: now,
		res: Completion{
			Applied:     true,
			XPBefore:    s.XP,
			LevelBefore: s.Level,
		},
	}
}

// grantXP ставит начисление в очередь.
func (c *cascade) grantXP(amount int, source string) {
	if amount > 0 {
		c.queue = append(c.queue, grant{amount: amount, source: source})
	}
}

// run выполняет начисления из очереди в порядке FIFO.
func (c *cascade) run() {
	for len(c.queue) > 0 && c.steps < maxCascadeSteps {
		g := c.queue[0]
		c.queue = c.queue[1:]
		c.steps++
		c.apply(g)
	}
}

// apply насыщает XP на shared.MaxXP: начисление сверх потолка обрезается.
func (c *cascade) apply(g grant) {
	s := c.s
	if room := shared.MaxXP - s.XP; g.amount > room {
		g.amount = room
	}
	if g.amount <= 0 {
		return
	}
	oldLevel := s.Level
	s.XP += g.amount
	s.Level = shared.LevelForXP(s.XP)
	s.emit(shared.NewXPGainedEvent(s.UserID, c.now, g.amount, s.XP, g.source))
	if s.Level > oldLevel {
		s.emit(shared.NewLevelUpEvent(s.UserID, c.now, oldLevel, s.Level, s.XP))
		c.unlock(LevelUpAchievementID(s.Level), fmt.Sprintf("Reached Level %d", s.Level), "")
	}
}

// unlock добавляет достижение не более одного раза и ставит в очередь +50 XP.
func (c *cascade) unlock(id, name, description string) bool {
	s := c.s
	if s.HasAchievement(id) {
		return false
	}
	s.Achievements = append(s.Achievements, Achievement{
		ID:          id,
		Name:        name,
		Description: description,
		UnlockedAt:  c.now.UTC(),
	})
	s.emit(shared.NewAchievementUnlockedEvent(s.UserID, c.now, id, name, description, AchievementXP))
	c.res.Unlocked = append(c.res.Unlocked, id)
	c.grantXP(AchievementXP, "achievement:"+id)
	return true
}

// evaluate проверяет предикаты каталога, мастерство навыков и значки.
// Возвращает true, если что-то было выдано.
func (c *cascade) evaluate() bool {
	s := c.s
	changed := false
	for _, d := range QualifyingAchievements(s) {
		if c.unlock(d.ID, d.Name, d.Description) {
			changed = true
		}
	}
	for _, sk := range sortedSkills(s.Skills) {
		if shared.SkillScore(s.Skills[sk]).IsMastered() {
			if c.unlock(MasteryAchievementID(sk), "Mastered "+string(sk), "") {
				changed = true
			}
		}
	}
	for _, b := range QualifyingBadges(s) {
		s.Badges = append(s.Badges, b.ID)
		s.emit(shared.NewBadgeEarnedEvent(s.UserID, c.now, b.ID, b.Name))
		c.res.Badges = append(c.res.Badges, b.ID)
		changed = true
	}
	return changed
}

// settle доводит каскад до неподвижной точки и возвращает итог.
func (c *cascade) settle() Completion {
	for {
		c.run()
		if c.steps >= maxCascadeSteps || !c.evaluate() {
			break
		}
	}
	c.run()
	c.res.XPAfter = c.s.XP
	c.res.LevelAfter = c.s.Level
	return c.res
}

// recordActivity обновляет серию и выдаёт достижения за вехи 7 и 30 дней.
func (c *cascade) recordActivity() StreakChange {
	s := c.s
	ch := AdvanceStreak(s.LastActivityDate, s.DailyStreak, c.now)
	if !ch.Changed {
		return ch
	}
	s.DailyStreak = ch.New
	t := c.now.UTC()
	s.LastActivityDate = &t
	s.emit(shared.NewStreakUpdatedEvent(s.UserID, c.now, ch.Old, ch.New, ch.Broken))
	if ch.New > ch.Old {
		if id, name, desc, ok := streakMilestone(ch.New); ok {
			c.unlock(id, name, desc)
		}
	}
	return ch
}

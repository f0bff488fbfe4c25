// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"math"
)

// ═══════════════════════════════════════════════════════════════════════════
// XP Value Object (Experience Points)
// ═══════════════════════════════════════════════════════════════════════════

// XPPerLevelUnit is the divisor of the level curve: level = floor(sqrt(xp/50)) + 1.
const XPPerLevelUnit = 50

// XP represents accumulated experience points.
type XP int

// MinXP is the lowest valid XP value.
const MinXP XP = 0

// MaxXP caps accumulated XP so totals stay exact in JSON numbers and never wrap.
const MaxXP = math.MaxInt32

// IsValid checks if the XP value is non-negative.
func (x XP) IsValid() bool {
	return x >= MinXP
}

// Int returns the underlying int value.
func (x XP) Int() int {
	return int(x)
}

// Add adds a non-negative amount. Negative amounts leave x unchanged.
func (x XP) Add(amount int) XP {
	if amount < 0 {
		return x
	}
	return x + XP(amount)
}

// Level returns the level for x. Invalid (negative) XP maps to level 0.
func (x XP) Level() Level {
	return Level(LevelForXP(int(x)))
}

// ProgressToNextLevel returns percentage progress inside the current level (0-100).
func (x XP) ProgressToNextLevel() int {
	return LevelProgressPercent(int(x), LevelForXP(int(x)))
}

// NewXP creates a new XP value with validation.
func NewXP(amount int) (XP, error) {
	if amount < int(MinXP) {
		return 0, NewDomainError("shared", "NewXP", ErrNegativeValue, "XP cannot be negative")
	}
	return XP(amount), nil
}

// LevelForXP maps xp to its level: floor(sqrt(xp/50)) + 1.
// The square root is computed on integers so threshold values are exact.
// Negative xp is a caller error and yields 0.
func LevelForXP(xp int) int {
	if xp < 0 {
		return 0
	}
	return isqrt(xp/XPPerLevelUnit) + 1
}

// XPThresholdForLevel returns the minimum xp of level: (level-1)^2 * 50.
func XPThresholdForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	return (level - 1) * (level - 1) * XPPerLevelUnit
}

// NextLevelThreshold returns the minimum xp of level+1: level^2 * 50.
func NextLevelThreshold(level int) int {
	if level < 1 {
		return 0
	}
	return level * level * XPPerLevelUnit
}

// LevelProgressPercent interpolates xp between the thresholds of level and
// level+1, rounded and clamped to [0,100].
func LevelProgressPercent(xp, level int) int {
	if level < 1 {
		return 0
	}
	lower := XPThresholdForLevel(level)
	upper := NextLevelThreshold(level)
	span := upper - lower
	if span <= 0 {
		return 100
	}
	pct := int(math.Round(float64(xp-lower) / float64(span) * 100))
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

// isqrt returns floor(sqrt(n)) for n >= 0.
func isqrt(n int) int {
	if n < 2 {
		return n
	}
	r := int(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}

// ═══════════════════════════════════════════════════════════════════════════
// Level Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Level represents a learner's level.
type Level int

// MinLevel is the level of a fresh learner.
const MinLevel Level = 1

// IsValid checks if the level is at least MinLevel.
func (l Level) IsValid() bool {
	return l >= MinLevel
}

// Int returns the underlying int value.
func (l Level) Int() int {
	return int(l)
}

// RequiredXP returns the minimum XP for this level.
func (l Level) RequiredXP() int {
	return XPThresholdForLevel(int(l))
}

// NextRequiredXP returns the minimum XP for the next level.
func (l Level) NextRequiredXP() int {
	return NextLevelThreshold(int(l))
}

// ═══════════════════════════════════════════════════════════════════════════
// Skill Score Value Object
// ═══════════════════════════════════════════════════════════════════════════

// SkillScore is a skill rating clamped to [0,100].
type SkillScore int

const (
	MinSkillScore SkillScore = 0
	MaxSkillScore SkillScore = 100
)

// Apply adds delta and clamps the result.
func (s SkillScore) Apply(delta int) SkillScore {
	v := int(s) + delta
	switch {
	case v < int(MinSkillScore):
		return MinSkillScore
	case v > int(MaxSkillScore):
		return MaxSkillScore
	}
	return SkillScore(v)
}

// IsMastered reports whether the score reached the maximum.
func (s SkillScore) IsMastered() bool {
	return s >= MaxSkillScore
}

// ═══════════════════════════════════════════════════════════════════════════
// Rank Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Rank represents a position in a leaderboard.
type Rank int

const (
	MinRank  Rank = 1
	Unranked Rank = 0 // Not yet ranked
)

// IsValid checks if the rank is valid.
func (r Rank) IsValid() bool {
	return r >= MinRank
}

// Int returns the underlying int value.
func (r Rank) Int() int {
	return int(r)
}

// IsTop returns true if the rank is in the top N.
func (r Rank) IsTop(n int) bool {
	return r.IsValid() && int(r) <= n
}

// Medal returns a medal emoji for top ranks.
func (r Rank) Medal() string {
	switch r {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return ""
	}
}

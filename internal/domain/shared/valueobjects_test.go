package shared

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		xp    int
		level int
	}{
		{0, 1},
		{49, 1},
		{50, 2},
		{199, 2},
		{200, 3},
		{449, 3},
		{450, 4},
		{1250, 6},
		{1350, 6},
		{1800, 7},
		{5000, 11},
		{-1, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.level, LevelForXP(tt.xp), "xp=%d", tt.xp)
	}
}

func TestThresholdsAreInverses(t *testing.T) {
	for level := 1; level <= 500; level++ {
		threshold := XPThresholdForLevel(level)
		assert.Equal(t, level, LevelForXP(threshold), "level=%d", level)
		if level > 1 {
			assert.Equal(t, level-1, LevelForXP(threshold-1), "level=%d", level)
		}
		assert.Equal(t, XPThresholdForLevel(level+1), NextLevelThreshold(level))
	}
}

func TestLevelProgressPercent(t *testing.T) {
	assert.Equal(t, 0, LevelProgressPercent(0, 1))
	assert.Equal(t, 50, LevelProgressPercent(25, 1))
	assert.Equal(t, 100, LevelProgressPercent(50, 1), "clamped at the next threshold")
	assert.Equal(t, 33, LevelProgressPercent(100, 2))
	assert.Equal(t, 0, LevelProgressPercent(10, 3), "below the lower threshold clamps to 0")
	assert.Equal(t, 100, LevelProgressPercent(10_000, 2))
	assert.Equal(t, 0, LevelProgressPercent(10, 0))
}

func TestNewXP(t *testing.T) {
	_, err := NewXP(-5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNegativeValue))

	x, err := NewXP(450)
	require.NoError(t, err)
	assert.Equal(t, Level(4), x.Level())
	assert.Equal(t, XP(450), x.Add(-10))
	assert.Equal(t, 0, x.ProgressToNextLevel())
}

func TestSkillScore(t *testing.T) {
	assert.Equal(t, SkillScore(100), SkillScore(95).Apply(20))
	assert.Equal(t, SkillScore(0), SkillScore(10).Apply(-30))
	assert.True(t, SkillScore(90).Apply(10).IsMastered())
	assert.False(t, SkillScore(99).IsMastered())
}

func TestDomainErrorMatching(t *testing.T) {
	err := WrapError("store", "Save", ErrPersistence, "write failed", errors.New("disk full"))
	assert.True(t, IsPersistence(err))
	assert.False(t, IsValidation(err))
	assert.Contains(t, err.Error(), "disk full")

	assert.True(t, IsValidation(ErrInvalidProject))
	assert.True(t, errors.Is(ErrInvalidCodePosition, ErrInvalidFormat))
	assert.True(t, IsRetryable(ErrStaleRevision))
	assert.True(t, IsNotFound(ErrStateNotFound))
}

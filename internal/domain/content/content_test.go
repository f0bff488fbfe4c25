package content

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hampton/progress-tracker/internal/domain/progress"
	"github.com/hampton/progress-tracker/internal/domain/shared"
)

type stubProvider struct {
	day  Day
	week Week
	err  error
}

func (s stubProvider) FetchDay(context.Context, int, progress.Project) (Day, error) {
	return s.day, s.err
}

func (s stubProvider) FetchWeek(context.Context, int, progress.Project) (Week, error) {
	return s.week, s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultDay(t *testing.T) {
	d := DefaultDay(1, nil)
	assert.Equal(t, "Day 1", d.Title)
	assert.Len(t, d.Lessons, 4)
	assert.Equal(t, "Lesson 1 for Day 1", d.Lessons[0])
	assert.Equal(t, 200, d.XP)

	practice := DefaultDay(14, progress.StandardCurriculum{})
	assert.Len(t, practice.Lessons, 3)
}

func TestDefaultWeek(t *testing.T) {
	w := DefaultWeek(3, progress.ProjectServiceNow, nil)
	assert.Equal(t, "Time-Based Analytics", w.Title)
	require.Len(t, w.Modules, 5)

	m := w.Modules[4]
	assert.Equal(t, "w3m5", m.ID)
	assert.Equal(t, "Weekly Project", m.Title)
	assert.Equal(t, "80 minutes", m.Duration)
	assert.Equal(t, "intermediate", m.Difficulty)
	assert.Equal(t, 130, m.XP)
	assert.Equal(t, []string{"javascript"}, m.Skills)
	assert.Equal(t, "Learn weekly project", m.Objectives[0])
	assert.Equal(t, 650, w.TotalXP())

	assert.Equal(t, "Network Foundation & Server Setup", DefaultWeek(3, progress.ProjectNone, nil).Title)
	assert.Equal(t, "Week 9", WeekTitle(9, progress.ProjectAutomation))
	assert.Equal(t, []string{"general"}, DefaultWeek(9, progress.ProjectNone, nil).Modules[0].Skills)
	assert.Equal(t, "beginner", Difficulty(2))
	assert.Equal(t, "advanced", Difficulty(6))
}

func TestNormalizeDay(t *testing.T) {
	d, err := NormalizeDay(Day{Lessons: []string{"Variables", "Loops"}}, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, d.Day)
	assert.Equal(t, "Day 5", d.Title)
	assert.Equal(t, []string{"Variables", "Loops"}, d.Lessons)
	assert.Equal(t, DefaultDayXP, d.XP)

	_, err = NormalizeDay(Day{Lessons: []string{"ok", ""}}, 5, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrContentInvalid))

	_, err = NormalizeDay(Day{Day: 6}, 5, nil)
	assert.True(t, errors.Is(err, shared.ErrContentInvalid))

	_, err = NormalizeDay(Day{XP: -5}, 5, nil)
	assert.True(t, shared.IsValidation(err))
}

func TestNormalizeWeek(t *testing.T) {
	w, err := NormalizeWeek(Week{Modules: []Module{{Title: "Intro", XP: 90}}}, 2, progress.ProjectAutomation, nil)
	require.NoError(t, err)
	assert.Equal(t, "Discord Bot Development", w.Title)
	assert.Equal(t, "w2m1", w.Modules[0].ID)
	assert.Equal(t, 1, w.Modules[0].Number)
	assert.Equal(t, "beginner", w.Modules[0].Difficulty)

	_, err = NormalizeWeek(Week{Modules: []Module{{Title: "x", Difficulty: "legendary"}}}, 2, progress.ProjectNone, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oneof")
}

func TestFallbackProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("source error", func(t *testing.T) {
		p := NewFallbackProvider(stubProvider{err: shared.ErrContentUnavailable}, nil, quietLogger())
		d, err := p.FetchDay(ctx, 7, progress.ProjectTicTacToe)
		require.NoError(t, err)
		assert.Equal(t, DefaultDay(7, nil), d)

		w, err := p.FetchWeek(ctx, 1, progress.ProjectMSGraph)
		require.NoError(t, err)
		assert.Equal(t, "Foundation & Authentication", w.Title)
	})

	t.Run("invalid content", func(t *testing.T) {
		p := NewFallbackProvider(stubProvider{day: Day{Day: 99}}, nil, quietLogger())
		d, err := p.FetchDay(ctx, 2, progress.ProjectNone)
		require.NoError(t, err)
		assert.Equal(t, "Day 2", d.Title)
	})

	t.Run("valid content", func(t *testing.T) {
		p := NewFallbackProvider(stubProvider{day: Day{Title: "HTML basics", Lessons: []string{"a", "b", "c", "d"}, XP: 240}}, nil, quietLogger())
		d, err := p.FetchDay(ctx, 1, progress.ProjectTicTacToe)
		require.NoError(t, err)
		assert.Equal(t, "HTML basics", d.Title)
		assert.Equal(t, 240, d.XP)
	})

	t.Run("no source", func(t *testing.T) {
		p := NewFallbackProvider(nil, nil, nil)
		w, err := p.FetchWeek(ctx, 4, progress.ProjectTicTacToe)
		require.NoError(t, err)
		assert.Equal(t, "Real-Time Multiplayer Gameplay", w.Title)
	})
}

func defaultWeeks(project progress.Project) map[int]Week {
	out := map[int]Week{}
	for w := 1; w <= 8; w++ {
		week := DefaultWeek(w, project, nil)
		week.Summary = &WeekSummary{TotalXP: week.TotalXP()}
		out[w] = week
	}
	return out
}

func TestCheck_DefaultsAreValid(t *testing.T) {
	r := Check(defaultWeeks(progress.ProjectTicTacToe), 8, 5)

	assert.True(t, r.Valid(), r.String())
	assert.Empty(t, r.Warnings)
	assert.Len(t, r.Info, 8)
	assert.Equal(t, 5*(110+120+130+140+150+160+170+180), r.TotalXP)
	assert.Len(t, r.SkillCoverage["git"], 5)
}

func TestCheck_Problems(t *testing.T) {
	weeks := defaultWeeks(progress.ProjectNone)
	delete(weeks, 8)

	w1 := weeks[1]
	w1.Modules[0].Difficulty = "advanced"
	w1.Summary = nil
	weeks[1] = w1

	w7 := weeks[7]
	for i := range w7.Modules {
		w7.Modules[i].Difficulty = "beginner"
	}
	weeks[7] = w7

	r := Check(weeks, 8, 5)
	assert.False(t, r.Valid())
	assert.Contains(t, r.Errors, "Week 8 content not found")
	assert.Contains(t, r.Errors, "Skill 'deployment' is not taught in any module")
	assert.Contains(t, r.Warnings, "Week 1 contains advanced content (might be too early)")
	assert.Contains(t, r.Warnings, "Week 7 only contains beginner content (should be more advanced)")
	assert.Contains(t, r.Warnings, "Week 1 XP mismatch: calculated=550, summary=0")
	assert.Contains(t, r.String(), "ERRORS (Must Fix)")
}

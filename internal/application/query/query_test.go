package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hampton/progress-tracker/internal/domain/progresscode"
	"github.com/hampton/progress-tracker/internal/domain/shared"
)

var fixedNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestProgressReport_Weekly(t *testing.T) {
	h := NewProgressReportHandler(nil, clock)

	r, err := h.Handle(context.Background(), ProgressReportQuery{Code: "hampton-tict-w3m2-kzcj-eyjw"})
	require.NoError(t, err)

	assert.Equal(t, "HAMPTON-TICT-W3M2-KZCJ-EYJW", r.Code)
	assert.Equal(t, "tictactoe", r.Project)
	assert.False(t, r.Daily)
	assert.True(t, r.Verified)
	assert.Equal(t, 12, r.Stats.UnitsCompleted)
	assert.Equal(t, 40, r.Stats.UnitsTotal)
	assert.Equal(t, 30.0, r.Stats.CompletionPercent)
	assert.Equal(t, 1100, r.Stats.EstimatedXP)
	assert.Equal(t, 5, r.Stats.EstimatedLevel)
	assert.NotEmpty(t, r.Stats.Title)

	require.NotNil(t, r.Next)
	assert.Equal(t, "Complete Week 3", r.Next.Name)
	assert.Equal(t, 3, r.Next.ModulesRemaining)

	require.Len(t, r.Pace, 4)
	assert.Equal(t, "normal", r.Pace[1].Pace)
	assert.Equal(t, 84, r.Pace[1].DaysRemaining)
	assert.Contains(t, r.Advice, "Start integrating more complex features into your project")
	assert.Equal(t, fixedNow, r.At)
}

func TestProgressReport_Daily(t *testing.T) {
	h := NewProgressReportHandler(nil, clock)

	r, err := h.Handle(context.Background(), ProgressReportQuery{Code: "HAMPTON-SNOW-D1L2-KZBG-EYJW"})
	require.NoError(t, err)

	assert.True(t, r.Daily)
	assert.Equal(t, "servicenow", r.Project)
	assert.Equal(t, 2, r.Stats.UnitsCompleted)
	assert.Nil(t, r.Next)
	assert.Empty(t, r.Pace)
	assert.Contains(t, r.Advice, "Explore additional data visualization libraries for richer displays")
}

func TestProgressReport_ChecksumNotEnforced(t *testing.T) {
	h := NewProgressReportHandler(progresscode.New(), clock)

	r, err := h.Handle(context.Background(), ProgressReportQuery{Code: "HAMPTON-TICT-W3M2-0000-EYJW"})
	require.NoError(t, err)
	assert.False(t, r.Verified)
	assert.Equal(t, 1100, r.Stats.EstimatedXP)
}

func TestProgressReport_Errors(t *testing.T) {
	h := NewProgressReportHandler(nil, clock)

	_, err := h.Handle(context.Background(), ProgressReportQuery{Code: "  "})
	require.Error(t, err)

	_, err = h.Handle(context.Background(), ProgressReportQuery{Code: "HAMPTON-TICT"})
	assert.ErrorIs(t, err, shared.ErrInvalidCodeFormat)

	_, err = h.Handle(context.Background(), ProgressReportQuery{Code: "HAMPTON-TICT-W9M1-KZCJ-EYJW"})
	assert.ErrorIs(t, err, shared.ErrInvalidCodePosition)
}

func TestCodeAnalytics(t *testing.T) {
	h := NewCodeAnalyticsHandler(nil)

	r, err := h.Handle(context.Background(), CodeAnalyticsQuery{Codes: []string{
		"HAMPTON-TICT-W3M2-KZCJ-EYJW",
		"not-a-code",
		"HAMPTON-NONE-W1M1-KZBD-EYJW",
		"HAMPTON-SNOW-D1L2-KZBG-EYJW",
		"HAMPTON-ZZZZ-W2M5-AAAA-BBBB",
	}})
	require.NoError(t, err)

	assert.Equal(t, 5, r.TotalCodes)
	assert.Equal(t, 4, r.ValidCodes)
	assert.Equal(t, 1, r.InvalidCodes)
	assert.Equal(t, map[string]int{"tictactoe": 1, "none": 1, "servicenow": 1, "unknown": 1}, r.ProjectDistribution)
	assert.Equal(t, 3, r.WeeklyCodes)
	assert.Equal(t, 1, r.DailyCodes)
	assert.Equal(t, 2.0, r.AverageWeek)
	assert.Equal(t, 2.67, r.AverageModule)
	assert.Equal(t, 1.0, r.AverageDay)
	assert.Equal(t, Position{Week: 3, Module: 2}, r.Furthest)
	// (12 + 1 + 10) / 3 / 40
	assert.Equal(t, 19.17, r.CompletionRate)
}

func TestCodeAnalytics_Empty(t *testing.T) {
	r, err := NewCodeAnalyticsHandler(nil).Handle(context.Background(), CodeAnalyticsQuery{})
	require.NoError(t, err)
	assert.Zero(t, r.TotalCodes)
	assert.Zero(t, r.CompletionRate)
	assert.Empty(t, r.ProjectDistribution)
}

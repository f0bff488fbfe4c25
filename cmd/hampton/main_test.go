package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/hampton/progress-tracker/internal/domain/progress"
	"github.com/hampton/progress-tracker/internal/domain/shared"
)

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

// isolate points config and store at a temp directory and fixes the clock.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("HAMPTON_STORE_DIR", filepath.Join(dir, "data"))
	t.Setenv("HAMPTON_APP_TIMEZONE", "UTC")
	t.Setenv("HAMPTON_LOG_LEVEL", "error")

	prev := clock
	clock = func() time.Time { return testNow }
	t.Cleanup(func() { clock = prev })
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func status(t *testing.T) *progress.State {
	t.Helper()
	out, err := run(t, "status", "--json")
	require.NoError(t, err)
	var st progress.State
	require.NoError(t, json.Unmarshal([]byte(out), &st), out)
	return &st
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestStatus_Fresh(t *testing.T) {
	isolate(t)

	out, err := run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Keyboard Tourist")
	assert.Contains(t, out, "HAMPTON-NONE-")
	assert.Contains(t, out, "not selected")
}

func TestFirstWeek_PersistsAcrossInvocations(t *testing.T) {
	isolate(t)

	_, err := run(t, "select", "TicTacToe")
	require.NoError(t, err)

	for m := 1; m <= 5; m++ {
		out, err := run(t, "module", "1", string(rune('0'+m)))
		require.NoError(t, err)
		assert.Contains(t, out, "XP")
	}

	st := status(t)
	assert.Equal(t, progress.ProjectTicTacToe, st.SelectedProject)
	assert.Equal(t, 1350, st.XP)
	assert.Equal(t, 6, st.Level)
	assert.Len(t, st.CompletedModules, 5)

	out, err := run(t, "module", "1", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Already completed")
}

func TestCommand_Errors(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		args []string
		is   error
	}{
		{"unknown project", []string{"select", "chess"}, shared.ErrInvalidProject},
		{"module out of range", []string{"module", "99", "1"}, shared.ErrPositionOutOfRange},
		{"unknown skill", []string{"skill", "cobol", "5"}, shared.ErrUnknownSkill},
		{"negative xp", []string{"xp", "--", "-5"}, shared.ErrNegativeXP},
		{"reset without confirmation", []string{"reset"}, shared.ErrResetNotConfirmed},
		{"bad code", []string{"code", "import", "HAMPTON-TICT"}, shared.ErrInvalidCodeFormat},
		{"tampered code", []string{"code", "import", "HAMPTON-TICT-W3M2-0000-EYJW"}, shared.ErrChecksumMismatch},
		{"unknown challenge", []string{"challenge", "complete", "nope"}, shared.ErrUnknownChallenge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.ErrorIs(t, err, tt.is)
		})
	}

	_, err := run(t, "lesson", "one", "0")
	assert.ErrorContains(t, err, "day must be an integer")

	assert.Zero(t, status(t).XP)
}

func TestCode_ImportExportInspect(t *testing.T) {
	isolate(t)

	out, err := run(t, "code", "import", "hampton-tict-w3m2-kzcj-eyjw")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported")

	st := status(t)
	assert.Equal(t, 1100, st.XP)
	assert.Equal(t, 5, st.Level)
	assert.Len(t, st.CompletedModules, 11)

	out, err = run(t, "code", "export")
	require.NoError(t, err)
	assert.Contains(t, out, "HAMPTON-TICT-W3M2-")

	out, err = run(t, "code", "inspect", "HAMPTON-SNOW-D1L2-KZBG-EYJW")
	require.NoError(t, err)
	assert.Contains(t, out, "servicenow")
	assert.Contains(t, out, "checksum ok")

	out, err = run(t, "code", "inspect", "HAMPTON-TICT-W3M2-KZCJ-EYJW", "junk", "--json")
	require.NoError(t, err)
	var summary struct {
		Valid   int `json:"valid_codes"`
		Invalid int `json:"invalid_codes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 1, summary.Valid)
	assert.Equal(t, 1, summary.Invalid)
}

func TestReset(t *testing.T) {
	isolate(t)

	_, err := run(t, "xp", "250", "--source", "bonus")
	require.NoError(t, err)
	before := status(t)
	require.GreaterOrEqual(t, before.XP, 250)

	out, err := run(t, "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Progress reset")

	after := status(t)
	assert.Zero(t, after.XP)
	assert.NotEqual(t, before.UserID, after.UserID)
}

func TestChallenges(t *testing.T) {
	isolate(t)

	out, err := run(t, "challenges")
	require.NoError(t, err)
	assert.Contains(t, out, "Fri Oct 16 2026")
	for _, id := range []string{"ai_efficiency", "daily_module", "documentation"} {
		assert.Contains(t, out, id)
	}

	_, err = run(t, "challenge", "complete", "documentation")
	require.NoError(t, err)
	assert.Contains(t, status(t).CompletedChallenges, "2026-10-16/documentation")

	out, err = run(t, "challenge", "complete", "documentation")
	require.NoError(t, err)
	assert.Contains(t, out, "Already completed")
}

func TestContent(t *testing.T) {
	isolate(t)
	_, err := run(t, "select", "servicenow")
	require.NoError(t, err)

	out, err := run(t, "content", "show-week", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Week 1")

	out, err = run(t, "content", "show-day", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Day 1")

	out, err = run(t, "content", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "CONTENT VALIDATION REPORT")

	_, err = run(t, "content", "show-week", "99")
	assert.ErrorIs(t, err, shared.ErrPositionOutOfRange)
}

func TestHistory(t *testing.T) {
	isolate(t)

	_, err := run(t, "history")
	assert.ErrorIs(t, err, shared.ErrInvalidState, "the file store keeps no history")

	t.Setenv("HAMPTON_STORE_DRIVER", "bolt")
	_, err = run(t, "xp", "100")
	require.NoError(t, err)
	_, err = run(t, "xp", "50")
	require.NoError(t, err)

	out, err := run(t, "history", "--json")
	require.NoError(t, err)
	var history []progress.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	require.Len(t, history, 2)
	assert.Equal(t, status(t).XP, history[0].XP)
	assert.Equal(t, int64(2), history[0].Revision)
	assert.Greater(t, history[0].XP, history[1].XP)
}

func TestCorruptBoltDocumentRecovers(t *testing.T) {
	dir := isolate(t)
	t.Setenv("HAMPTON_STORE_DRIVER", "bolt")

	_, err := run(t, "xp", "100")
	require.NoError(t, err)

	db, err := bbolt.Open(filepath.Join(dir, "data", "progress.bolt"), 0o600, nil)
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte("hampton_progress")).Put([]byte("document"), []byte("{not json"))
	}))
	require.NoError(t, db.Close())

	for i := 0; i < 2; i++ {
		_, err = run(t, "select", "tictactoe")
		require.NoError(t, err, "run %d", i+1)
	}
	assert.Equal(t, progress.ProjectTicTacToe, status(t).SelectedProject)
}

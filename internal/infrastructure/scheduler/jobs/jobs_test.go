package jobs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hampton/progress-tracker/internal/domain/content"
	"github.com/hampton/progress-tracker/internal/domain/progress"
	"github.com/hampton/progress-tracker/internal/infrastructure/persistence/file"
)

var at = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

type fakeTracker struct {
	revision int64
	reloads  int
	state    *progress.State
}

func (f *fakeTracker) Revision() int64 { return f.revision }

func (f *fakeTracker) Reload(context.Context) error {
	f.reloads++
	return nil
}

func (f *fakeTracker) Snapshot() *progress.State { return f.state.Clone() }

func (f *fakeTracker) TodayChallenges() []progress.DailyChallenge {
	return f.state.TodayChallenges(at)
}

type versionedRepo struct {
	progress.Repository
	revision int64
	err      error
}

func (v *versionedRepo) LoadVersion(context.Context) (*progress.State, int64, error) {
	if v.err != nil {
		return nil, 0, v.err
	}
	return progress.NewState("u1", at), v.revision, nil
}

func (v *versionedRepo) Revision(context.Context) (int64, error) {
	if v.err != nil {
		return 0, v.err
	}
	return v.revision, nil
}

func (v *versionedRepo) SaveIfVersion(context.Context, *progress.State, int64) (int64, error) {
	return 0, errors.New("not used")
}

func TestStoreSync_Versioned(t *testing.T) {
	ctx := context.Background()
	repo := &versionedRepo{revision: 3}
	tr := &fakeTracker{revision: 3}
	job := NewStoreSyncJob(repo, tr, nil)

	require.NoError(t, job.Run(ctx))
	assert.Zero(t, tr.reloads)

	repo.revision = 4
	require.NoError(t, job.Run(ctx))
	assert.Equal(t, 1, tr.reloads)

	tr.revision = 4
	repo.revision = 0
	require.NoError(t, job.Run(ctx))
	assert.Equal(t, 2, tr.reloads, "document deleted by another process")

	repo.err = errors.New("disk I/O error")
	assert.ErrorContains(t, job.Run(ctx), "store sync")
}

func TestStoreSync_PlainStoreComparesDigests(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "progress.json")

	repo, err := file.Open(path)
	require.NoError(t, err)
	defer repo.Close()
	other, err := file.Open(path)
	require.NoError(t, err)
	defer other.Close()

	tr := &fakeTracker{}
	job := NewStoreSyncJob(repo, tr, nil)

	// Nothing saved yet.
	require.NoError(t, job.Run(ctx))
	assert.Zero(t, tr.reloads)

	st := progress.NewState("u1", at)
	require.NoError(t, other.Save(ctx, st))
	require.NoError(t, job.Run(ctx))
	assert.Equal(t, 1, tr.reloads)

	require.NoError(t, job.Run(ctx))
	assert.Equal(t, 1, tr.reloads)

	st.XP = 250
	require.NoError(t, other.Save(ctx, st))
	require.NoError(t, job.Run(ctx))
	assert.Equal(t, 2, tr.reloads)
}

func TestStoreSync_FirstRunRemembersExistingDocument(t *testing.T) {
	ctx := context.Background()
	repo, err := file.Open(filepath.Join(t.TempDir(), "progress.json"))
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.Save(ctx, progress.NewState("u1", at)))

	tr := &fakeTracker{}
	job := NewStoreSyncJob(repo, tr, nil)
	require.NoError(t, job.Run(ctx))
	assert.Zero(t, tr.reloads)
}

type stubProvider struct {
	err     error
	project progress.Project
}

func (s *stubProvider) FetchDay(_ context.Context, day int, _ progress.Project) (content.Day, error) {
	return content.Day{}, s.err
}

func (s *stubProvider) FetchWeek(_ context.Context, week int, project progress.Project) (content.Week, error) {
	s.project = project
	if s.err != nil {
		return content.Week{}, s.err
	}
	return content.DefaultWeek(week, project, progress.StandardCurriculum{}), nil
}

func TestContentProbe(t *testing.T) {
	src := &stubProvider{}
	job := NewContentProbeJob(src, func() progress.Project { return progress.ProjectTicTacToe }, nil)
	assert.Equal(t, "content_probe", job.Name())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, progress.ProjectTicTacToe, src.project)

	src.err = errors.New("503 Service Unavailable")
	assert.ErrorContains(t, job.Run(context.Background()), "content probe")

	src.err = nil
	require.NoError(t, NewContentProbeJob(src, nil, nil).Run(context.Background()))
	assert.Equal(t, progress.ProjectNone, src.project)
}

func TestDailyDigest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	st := progress.NewState("u1", at)
	st.DailyStreak = 4
	job := NewDailyDigestJob(&fakeTracker{state: st}, logger)

	require.NoError(t, job.Run(context.Background()))
	out := buf.String()
	assert.Contains(t, out, "daily digest")
	assert.Contains(t, out, "streak=4")
	assert.Contains(t, out, "challenges_open=3")
	assert.Contains(t, out, "ai_efficiency")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, job.Run(ctx), context.Canceled)
}

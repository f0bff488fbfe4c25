package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/hampton/progress-tracker/internal/domain/progress"
	"github.com/hampton/progress-tracker/internal/domain/shared"
)

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T, limit int) *Store {
	t.Helper()
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "progress.bolt"))
	cfg.HistoryLimit = limit
	s, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleState(t *testing.T) *progress.State {
	t.Helper()
	st := progress.NewState("user_1", now)
	_, err := st.CompleteLesson(1, 0, now)
	require.NoError(t, err)
	st.PullEvents()
	return st
}

func TestStore_LoadMissing(t *testing.T) {
	_, err := openStore(t, 0).Load(context.Background())
	assert.ErrorIs(t, err, shared.ErrStateNotFound)
}

func TestStore_RoundTripAndCAS(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, 0)
	st := sampleState(t)

	rev, err := s.SaveIfVersion(ctx, st, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)

	got, gotRev, err := s.LoadVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gotRev)
	if diff := cmp.Diff(st, got, cmpopts.IgnoreUnexported(progress.State{})); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}

	_, err = st.CompleteLesson(1, 1, now)
	require.NoError(t, err)

	_, err = s.SaveIfVersion(ctx, st, 0)
	assert.ErrorIs(t, err, shared.ErrStaleRevision)
	assert.True(t, shared.IsPersistence(err))

	rev, err = s.SaveIfVersion(ctx, st, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)

	same, err := s.SaveIfVersion(ctx, st, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), same)
}

func TestStore_HistoryCapped(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, 2)
	st := sampleState(t)

	for i := 0; i < 4; i++ {
		_, err := st.AddXP(5, "manual", now)
		require.NoError(t, err)
		require.NoError(t, s.Save(ctx, st))
	}

	hist, err := s.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, int64(4), hist[0].Revision)
	assert.Equal(t, int64(3), hist[1].Revision)
	assert.Equal(t, st.XP, hist[0].XP)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, 0)
	require.NoError(t, s.Save(ctx, sampleState(t)))

	require.NoError(t, s.Delete(ctx))
	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, shared.ErrStateNotFound)

	rev, err := s.SaveIfVersion(ctx, sampleState(t), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.True(t, shared.IsPersistence(err))
}

func TestStore_CorruptDocumentCanBeReplaced(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, 0)

	rev, err := s.Revision(ctx)
	require.NoError(t, err)
	assert.Zero(t, rev)

	_, err = s.SaveIfVersion(ctx, sampleState(t), 0)
	require.NoError(t, err)
	require.NoError(t, s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put(keyDocument, []byte("{not json"))
	}))

	_, _, err = s.LoadVersion(ctx)
	require.Error(t, err)
	assert.True(t, shared.IsPersistence(err))

	rev, err = s.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)

	fresh := progress.NewState("user_2", now)
	next, err := s.SaveIfVersion(ctx, fresh, rev)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user_2", got.UserID)
}

package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type funcJob struct {
	name string
	run  func(ctx context.Context) error
}

func (j funcJob) Name() string                  { return j.name }
func (j funcJob) Description() string           { return "test job " + j.name }
func (j funcJob) Run(ctx context.Context) error { return j.run(ctx) }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRegister(t *testing.T) {
	s := New(Config{Logger: quiet()})
	job := funcJob{name: "a", run: func(context.Context) error { return nil }}

	require.NoError(t, s.Register(job, Every(time.Minute)))
	assert.ErrorIs(t, s.Register(job, Every(time.Minute)), ErrJobAlreadyExists)
	assert.ErrorIs(t, s.Register(nil, Every(time.Minute)), ErrNilJob)
	assert.ErrorIs(t, s.Register(funcJob{name: "b"}, nil), ErrNilSchedule)

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "a", jobs[0].Name)
	assert.Equal(t, "@every 1m0s", jobs[0].Schedule)
	assert.Zero(t, jobs[0].RunCount)
}

func TestRunNow(t *testing.T) {
	var results []JobResult
	s := New(Config{Logger: quiet(), OnJobComplete: func(r JobResult) { results = append(results, r) }})

	boom := errors.New("boom")
	require.NoError(t, s.Register(funcJob{name: "ok", run: func(context.Context) error { return nil }}, Every(time.Hour)))
	require.NoError(t, s.Register(funcJob{name: "fail", run: func(context.Context) error { return boom }}, Every(time.Hour)))

	r, err := s.RunNow(context.Background(), "ok")
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.True(t, r.Manual)

	_, err = s.RunNow(context.Background(), "fail")
	assert.ErrorIs(t, err, boom)

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	require.Len(t, results, 2)
	assert.Equal(t, "fail", results[1].JobName)
	assert.False(t, results[1].Success)

	jobs := s.ListJobs()
	assert.Equal(t, "fail", jobs[0].Name)
	assert.Equal(t, int64(1), jobs[0].FailCount)
	require.NotNil(t, jobs[0].LastResult)
	assert.ErrorIs(t, jobs[0].LastResult.Error, boom)
}

func TestStartRunsDueJobs(t *testing.T) {
	done := make(chan JobResult, 8)
	s := New(Config{
		Logger:        quiet(),
		TickInterval:  5 * time.Millisecond,
		OnJobComplete: func(r JobResult) { done <- r },
	})

	var runs atomic.Int32
	require.NoError(t, s.Register(funcJob{name: "tick", run: func(context.Context) error {
		runs.Add(1)
		return nil
	}}, Every(10*time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	for i := 0; i < 2; i++ {
		select {
		case r := <-done:
			assert.Equal(t, "tick", r.JobName)
			assert.False(t, r.Manual)
		case <-time.After(2 * time.Second):
			t.Fatal("job did not run")
		}
	}

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
	assert.GreaterOrEqual(t, runs.Load(), int32(2))
}

func TestStartSkipsBusyJob(t *testing.T) {
	release := make(chan struct{})
	var (
		mu      sync.Mutex
		running int
		maxSeen int
	)
	s := New(Config{Logger: quiet(), TickInterval: 2 * time.Millisecond})
	require.NoError(t, s.Register(funcJob{name: "slow", run: func(ctx context.Context) error {
		mu.Lock()
		running++
		if running > maxSeen {
			maxSeen = running
		}
		mu.Unlock()
		select {
		case <-release:
		case <-ctx.Done():
		}
		mu.Lock()
		running--
		mu.Unlock()
		return nil
	}}, Every(time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(30 * time.Millisecond)
	close(release)
	require.NoError(t, s.Stop())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxSeen)
}

func TestStopCancelsRunningJob(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once
	s := New(Config{Logger: quiet(), TickInterval: 2 * time.Millisecond})
	require.NoError(t, s.Register(funcJob{name: "blocking", run: func(ctx context.Context) error {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return ctx.Err()
	}}, Every(time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not start")
	}
	require.NoError(t, s.Stop())

	jobs := s.ListJobs()
	require.NotNil(t, jobs[0].LastResult)
	assert.ErrorIs(t, jobs[0].LastResult.Error, context.Canceled)
}

func TestDailySchedule(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	d := DailyAt(9, 0)

	before := time.Date(2026, 10, 16, 8, 59, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 10, 16, 9, 0, 0, 0, loc), d.Next(before))

	exact := time.Date(2026, 10, 16, 9, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 10, 17, 9, 0, 0, 0, loc), d.Next(exact))

	endOfMonth := time.Date(2026, 10, 31, 23, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 11, 1, 9, 0, 0, 0, loc), d.Next(endOfMonth))

	assert.Equal(t, "@daily 09:00", d.String())
}

func TestRegisterUsesClockAndLocation(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	loc := time.FixedZone("UTC+5", 5*3600)
	s := New(Config{Logger: quiet(), Location: loc, Clock: func() time.Time { return now }})

	require.NoError(t, s.Register(funcJob{name: "digest", run: func(context.Context) error { return nil }}, DailyAt(18, 0)))
	// 12:00 UTC is 17:00 at UTC+5.
	assert.True(t, time.Date(2026, 10, 16, 13, 0, 0, 0, time.UTC).Equal(s.ListJobs()[0].NextRun))
}

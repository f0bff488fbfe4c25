package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBusy = errors.New("database is locked")

func quick(attempts int) *Retrier {
	return New(Policy{Attempts: attempts, Base: time.Millisecond, Cap: time.Millisecond})
}

func TestDo_RetriesRetryableErrors(t *testing.T) {
	attempts := 0
	err := quick(3).Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return Retryable(errBusy)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_GivesUpAndUnwraps(t *testing.T) {
	attempts := 0
	err := quick(2).Do(context.Background(), func(context.Context) error {
		attempts++
		return Retryable(errBusy)
	})

	assert.Equal(t, errBusy, err)
	assert.Equal(t, 2, attempts)
}

func TestDo_PermanentAndPlainErrorsStop(t *testing.T) {
	attempts := 0
	err := quick(3).Do(context.Background(), func(context.Context) error {
		attempts++
		return Permanent(errBusy)
	})
	assert.Equal(t, errBusy, err)
	assert.Equal(t, 1, attempts)

	attempts = 0
	plain := errors.New("bad request")
	err = quick(3).Do(context.Background(), func(context.Context) error {
		attempts++
		return plain
	})
	assert.Equal(t, plain, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_StopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(Policy{Attempts: 5, Base: time.Hour})

	attempts := 0
	err := r.Do(ctx, func(context.Context) error {
		attempts++
		cancel()
		return Retryable(errBusy)
	})
	assert.Equal(t, errBusy, err)
	assert.Equal(t, 1, attempts)
}

func TestStoreRetrier_UsesPredicate(t *testing.T) {
	attempts := 0
	r := StoreRetrier(func(err error) bool { return errors.Is(err, errBusy) })
	r.p.Base = time.Millisecond

	err := r.Do(context.Background(), func(context.Context) error {
		attempts++
		return errBusy
	})
	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, 4, attempts)
}

func TestContentRetrier_ReportsRetries(t *testing.T) {
	var retries []int
	r := ContentRetrier(func(attempt int, _ error, _ time.Duration) { retries = append(retries, attempt) })
	r.p.Base = time.Millisecond
	r.p.Cap = time.Millisecond

	_ = r.Do(context.Background(), func(context.Context) error { return Retryable(errBusy) })
	assert.Equal(t, []int{1, 2}, retries)
}

func TestBackoff_IsCapped(t *testing.T) {
	r := New(Policy{Base: 100 * time.Millisecond, Cap: time.Second})
	assert.Equal(t, 100*time.Millisecond, r.backoff(1))
	assert.Equal(t, 400*time.Millisecond, r.backoff(3))
	assert.Equal(t, time.Second, r.backoff(10))
}

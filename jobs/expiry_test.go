package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vapecity/vapecity-api/logging"
)

type countingCanceller struct {
	calls atomic.Int32
	err   error
}

func (c *countingCanceller) CancelExpired(ctx context.Context) (int64, error) {
	c.calls.Add(1)
	return 3, c.err
}

func TestExpirySweeperRunsImmediatelyAndOnTick(t *testing.T) {
	canceller := &countingCanceller{}
	sweeper := NewExpirySweeper(canceller, 20*time.Millisecond, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return canceller.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestExpirySweeperSurvivesErrors(t *testing.T) {
	canceller := &countingCanceller{err: errors.New("database is locked")}
	sweeper := NewExpirySweeper(canceller, 10*time.Millisecond, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sweeper.Start(ctx)

	require.Eventually(t, func() bool { return canceller.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestNewExpirySweeperDefaultsInterval(t *testing.T) {
	sweeper := NewExpirySweeper(&countingCanceller{}, 0, logging.Discard())
	assert.Equal(t, time.Hour, sweeper.interval)
}

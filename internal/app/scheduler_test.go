package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type countingAuditor struct {
	calls atomic.Int32
	err   error
}

func (a *countingAuditor) AuditPending(context.Context) (int, error) {
	a.calls.Add(1)
	return 0, a.err
}

func TestScheduler_AuditsImmediatelyAndOnTick(t *testing.T) {
	auditor := &countingAuditor{}
	s := NewScheduler(auditor, 10*time.Millisecond, zaptest.NewLogger(t))

	s.Start(context.Background())
	require.Eventually(t, func() bool { return auditor.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	stopped := auditor.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, auditor.calls.Load())
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	auditor := &countingAuditor{err: errors.New("db down")}
	s := NewScheduler(auditor, time.Hour, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	require.Eventually(t, func() bool { return auditor.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestNewLogger_Level(t *testing.T) {
	logger := NewLogger("production", "warn")
	assert.False(t, logger.Core().Enabled(-1))
	assert.True(t, logger.Core().Enabled(1))

	fallback := NewLogger("development", "nonsense")
	assert.True(t, fallback.Core().Enabled(-1))
}

package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingTask struct {
	iterations int32
	progressOn int32
	errOn      int32
}

func (c *countingTask) RunIteration(ctx context.Context) (bool, error) {
	n := atomic.AddInt32(&c.iterations, 1)
	if c.errOn != 0 && n == c.errOn {
		return false, errors.New("boom")
	}
	return n <= c.progressOn, nil
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &countingTask{progressOn: 1000000}

	done := make(chan struct{})
	go func() {
		Run(ctx, "test", c)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after context cancellation")
	}
	require.Greater(t, atomic.LoadInt32(&c.iterations), int32(0))
}

func TestRunNotifiesOnProgress(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &countingTask{progressOn: 3}
	notify := make(chan struct{}, 10)

	done := make(chan struct{})
	go func() {
		Run(ctx, "test", c, notify)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		select {
		case <-notify:
		case <-time.After(time.Second):
			t.Fatal("expected progress notification")
		}
	}
	cancel()
	<-done
}

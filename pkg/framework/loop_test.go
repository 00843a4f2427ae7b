package framework

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testMsg struct {
	val int
}

func (m *testMsg) NewMessage() Message { return &testMsg{} }

func TestLoopTickOrder(t *testing.T) {
	l := NewLoop()
	var order []string
	record := func(name string) Controller {
		return ControlFunc(func(cc ControlContext) error {
			order = append(order, name)
			return nil
		})
	}
	l.AddController(PrLvActuate, record("actuate"))
	l.AddController(PrLvSense, record("sense"))
	l.AddController(PrLvControl, record("control"))
	l.AddController(PrLvPostProc, record("post"))
	l.PreRunAt(PrLvSense, record("pre-sense"))
	l.PostRunAt(PrLvControl, record("post-control"))

	l.Tick(context.Background())
	require.Equal(t, []string{"pre-sense", "sense", "control", "post-control", "actuate", "post"}, order)

	order = nil
	l.Tick(context.Background())
	require.Equal(t, []string{"sense", "control", "actuate", "post"}, order)
	require.Equal(t, uint64(2), l.Ticks())
}

func TestLoopSeqAndClock(t *testing.T) {
	now := time.Unix(100, 0)
	l := &Loop{Now: func() time.Time { return now }}
	var seqs []uint64
	l.AddController(PrLvControl, ControlFunc(func(cc ControlContext) error {
		seqs = append(seqs, cc.Seq())
		require.Equal(t, now, cc.Time())
		require.Equal(t, PrLvControl, cc.PriorityLevel())
		return errors.New("logged only")
	}))
	l.Tick(context.Background())
	l.Tick(context.Background())
	require.Equal(t, []uint64{1, 2}, seqs)
}

func TestLoopMessages(t *testing.T) {
	l := NewLoop()
	var seen []int
	l.AddController(PrLvControl, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			m := mc.CurrentMessage().(*testMsg)
			seen = append(seen, m.val)
			mc.MessageTaken()
			// odd values get a follow-up seen by the next iteration.
			if m.val%2 != 0 && m.val < 10 {
				mc.AddMessages(&testMsg{val: m.val + 10})
			}
		}))
		return nil
	}))
	l.PostMessage(&testMsg{val: 1})
	l.PostMessage(&testMsg{val: 2})
	l.Tick(context.Background())
	require.Equal(t, []int{1, 2}, seen)
	seen = nil
	l.Tick(context.Background())
	require.Equal(t, []int{11}, seen)
	seen = nil
	l.Tick(context.Background())
	require.Empty(t, seen)
}

func TestLoopStopProcessing(t *testing.T) {
	l := NewLoop()
	var first, second []int
	l.AddController(PrLvControl, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			first = append(first, mc.CurrentMessage().(*testMsg).val)
			mc.StopProcessing()
		}))
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			second = append(second, mc.CurrentMessage().(*testMsg).val)
			mc.MessageTaken()
		}))
		return nil
	}))
	for i := 1; i <= 3; i++ {
		l.PostMessage(&testMsg{val: i})
	}
	l.Tick(context.Background())
	require.Equal(t, []int{1}, first)
	require.Equal(t, []int{1, 2, 3}, second)
}

func TestLoopRunFinalizers(t *testing.T) {
	l := &Loop{Interval: time.Millisecond}
	ticked := make(chan struct{}, 1)
	l.AddController(PrLvControl, ControlFunc(func(cc ControlContext) error {
		select {
		case ticked <- struct{}{}:
		default:
		}
		return nil
	}))
	var order []int
	l.AddFinalizer(func() error { order = append(order, 1); return nil })
	l.AddFinalizer(func() error { order = append(order, 2); return errors.New("logged") })
	started := make(chan struct{})
	l.AddRunnable(RunFunc(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	<-started
	<-ticked
	l.TriggerNext()
	cancel()
	require.Equal(t, context.Canceled, <-done)
	require.Equal(t, []int{2, 1}, order)
}

func TestRunnerAggregatesErrors(t *testing.T) {
	r := NewRunner()
	r.Go(RunFunc(func(context.Context) error { return nil }),
		NamedRun("fails", RunFunc(func(context.Context) error { return errors.New("boom") })),
		RunFunc(func(context.Context) error { return context.Canceled }))
	err := r.Wait()
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Aggregate())

	sentinel := errors.New("sentinel")
	errs.Add(nil, fmt.Errorf("wrapped: %w", sentinel))
	require.Equal(t, 1, errs.Len())
	require.Equal(t, "wrapped: sentinel", errs.Error())

	var nested AggregatedError
	nested.Add(errors.New("a"), errors.New("b"))
	errs.Add(nested.Aggregate())
	require.Equal(t, 3, errs.Len())
	err := errs.Aggregate()
	require.True(t, errors.Is(err, sentinel))
	require.False(t, errors.Is(err, context.Canceled))
	require.Equal(t, "Multiple errors:\nwrapped: sentinel\na\nb", err.Error())
}

func TestRunWithContextCloser(t *testing.T) {
	closer := &countingCloser{unblock: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunWithContextCloser(ctx, closer, func() error {
			<-closer.unblock
			return errors.New("closed")
		})
	}()
	cancel()
	require.Equal(t, context.Canceled, <-done)
	require.Equal(t, 1, closer.closed)

	closer = &countingCloser{unblock: make(chan struct{})}
	close(closer.unblock)
	err := RunWithContextCloser(context.Background(), closer, func() error { return nil })
	require.NoError(t, err)
	require.Equal(t, 1, closer.closed)
}

type countingCloser struct {
	unblock chan struct{}
	closed  int
}

func (c *countingCloser) Close() error {
	c.closed++
	select {
	case <-c.unblock:
	default:
		close(c.unblock)
	}
	return nil
}

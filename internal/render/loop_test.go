// SPDX-License-Identifier: MIT
package render

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frameRecorder is a FrameFunc that reports each completed frame.
type frameRecorder struct {
	ran  atomic.Uint64
	done chan uint64
	fail func(n uint64) error
}

func newFrameRecorder() *frameRecorder {
	return &frameRecorder{done: make(chan uint64, 64)}
}

func (r *frameRecorder) frame(n uint64) error {
	r.ran.Add(1)
	if r.fail != nil {
		if err := r.fail(n); err != nil {
			return err
		}
	}
	r.done <- n
	return nil
}

func (r *frameRecorder) wait(t *testing.T) uint64 {
	t.Helper()
	select {
	case n := <-r.done:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return 0
	}
}

func TestLoopRunsFramesInOrder(t *testing.T) {
	clock := NewManualClock()
	rec := newFrameRecorder()
	loop := NewLoop(clock, rec.frame)

	loop.Start()
	defer loop.Stop()
	require.True(t, loop.Running())

	for want := uint64(1); want <= 5; want++ {
		require.True(t, clock.Tick())
		assert.Equal(t, want, rec.wait(t))
	}
	assert.Equal(t, uint64(5), loop.Frames())
}

func TestLoopNoFrameAfterStop(t *testing.T) {
	clock := NewManualClock()
	rec := newFrameRecorder()
	loop := NewLoop(clock, rec.frame)

	loop.Start()
	require.True(t, clock.Tick())
	rec.wait(t)

	loop.Stop()
	frames := loop.Frames()

	assert.False(t, clock.Tick(), "a stopped clock delivers no ticks")
	assert.False(t, loop.Running())
	assert.Equal(t, frames, loop.Frames(), "frame counter stops")
	assert.Equal(t, frames, rec.ran.Load())

	loop.Stop() // idempotent
}

func TestLoopStopWaitsForInFlightFrame(t *testing.T) {
	clock := NewManualClock()
	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	loop := NewLoop(clock, func(n uint64) error {
		close(entered)
		<-release
		finished.Store(true)
		return nil
	})
	loop.Start()
	require.True(t, clock.Tick())
	<-entered

	stopped := make(chan struct{})
	go func() {
		loop.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a frame was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-stopped
	assert.True(t, finished.Load())
	assert.Equal(t, uint64(1), loop.Frames())
}

func TestLoopRestart(t *testing.T) {
	clock := NewManualClock()
	rec := newFrameRecorder()
	loop := NewLoop(clock, rec.frame)

	loop.Start()
	require.True(t, clock.Tick())
	rec.wait(t)
	loop.Stop()

	loop.Start()
	loop.Start() // no-op while running
	require.True(t, clock.Tick())
	assert.Equal(t, uint64(2), rec.wait(t))
	loop.Stop()
}

func TestLoopFaultStopsLoop(t *testing.T) {
	tests := []struct {
		name string
		fail func(n uint64) error
		msg  string
	}{
		{"Error", func(n uint64) error {
			if n == 3 {
				return errors.New("device torn down")
			}
			return nil
		}, "device torn down"},
		{"Panic", func(n uint64) error {
			if n == 3 {
				var m map[string]int
				m["x"] = 1
			}
			return nil
		}, "panicked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := NewManualClock()
			rec := newFrameRecorder()
			rec.fail = tt.fail
			loop := NewLoop(clock, rec.frame)

			faults := make(chan error, 1)
			loop.OnFault(func(err error) {
				loop.Stop() // handlers may stop the loop they belong to
				faults <- err
			})

			loop.Start()
			for i := 0; i < 2; i++ {
				require.True(t, clock.Tick())
				rec.wait(t)
			}
			require.True(t, clock.Tick())

			var err error
			select {
			case err = <-faults:
			case <-time.After(2 * time.Second):
				t.Fatal("fault handler not called")
			}
			assert.ErrorIs(t, err, ErrFrameFault)
			assert.ErrorContains(t, err, tt.msg)
			assert.False(t, loop.Running())
			assert.Equal(t, uint64(2), loop.Frames(), "the faulted frame is not counted")
			assert.False(t, clock.Tick(), "no more frames are scheduled")
			assert.Equal(t, uint64(3), rec.ran.Load())
		})
	}
}

func TestLoopConcurrentStop(t *testing.T) {
	loop := NewLoop(NewTickerClock(240), func(uint64) error { return nil })
	loop.Start()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loop.Stop()
		}()
	}
	wg.Wait()

	frames := loop.Frames()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, frames, loop.Frames())
}

func TestTickerClock(t *testing.T) {
	c := NewTickerClock(100)
	assert.Equal(t, 10*time.Millisecond, c.Interval())
	assert.Equal(t, time.Second/60, NewTickerClock(0).Interval())

	ticks := c.Start()
	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("ticker clock did not tick")
	}
	c.Stop()
	c.Stop()
}

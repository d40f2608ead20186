// SPDX-License-Identifier: MIT

// Package render runs the per-frame redraw of the experiment screens and
// records what each frame paints.
package render

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	applog "vlabsound/internal/log"
)

var logger = applog.Scope("RenderLoop")

// ErrFrameFault wraps any error or panic raised by a frame callback.
var ErrFrameFault = errors.New("render frame fault")

// FrameFunc draws frame number n (starting at 1). It runs on the loop
// goroutine, runs to completion before the next tick is taken, and must not
// call Stop on its own loop.
type FrameFunc func(n uint64) error

// Loop is the Idle/Running state machine behind every animated screen. The
// running flag is the only thing deciding whether another frame runs.
type Loop struct {
	clock   Clock
	frame   FrameFunc
	onFault func(error)

	mu      sync.Mutex // serialises Start and Stop
	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
	frames  atomic.Uint64
}

// NewLoop returns an idle loop.
func NewLoop(clock Clock, frame FrameFunc) *Loop {
	return &Loop{clock: clock, frame: frame}
}

// OnFault sets the handler called after a frame fault has stopped the
// loop. Set it before Start. The handler may call Stop.
func (l *Loop) OnFault(fn func(error)) { l.onFault = fn }

// Running reports whether frames are being scheduled.
func (l *Loop) Running() bool { return l.running.Load() }

// Frames returns the number of frames completed since the loop was created.
func (l *Loop) Frames() uint64 { return l.frames.Load() }

// Start begins scheduling frames. Starting a running loop is a no-op.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running.Load() {
		return
	}

	ticks := l.clock.Start()
	done := make(chan struct{})
	l.done = done
	l.running.Store(true)

	l.wg.Add(1)
	go l.run(ticks, done)
	logger.Debugf("Started")
}

// Stop clears the running flag, stops the clock and waits for an in-flight
// frame. No frame runs after Stop returns. Safe to call more than once.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running.Load() {
		l.mu.Unlock()
		return
	}
	l.running.Store(false)
	close(l.done)
	l.clock.Stop()
	l.mu.Unlock()

	l.wg.Wait()
	logger.Debugf("Stopped after %d frames", l.frames.Load())
}

func (l *Loop) run(ticks <-chan time.Time, done <-chan struct{}) {
	for {
		select {
		case <-done:
			l.wg.Done()
			return
		case <-ticks:
			if !l.running.Load() {
				continue // declined; done is closed or about to be
			}
			if err := l.runFrame(); err != nil {
				l.fault(err)
				return
			}
		}
	}
}

// runFrame runs one frame, converting panics into errors.
func (l *Loop) runFrame() (err error) {
	n := l.frames.Load() + 1
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: frame %d panicked: %v", ErrFrameFault, n, r)
		}
	}()

	if err := l.frame(n); err != nil {
		return fmt.Errorf("%w: frame %d: %w", ErrFrameFault, n, err)
	}
	l.frames.Store(n)
	return nil
}

// fault stops the loop from its own goroutine. The WaitGroup is released
// before the handler runs so the handler may call Stop.
func (l *Loop) fault(err error) {
	l.mu.Lock()
	if l.running.Swap(false) {
		close(l.done)
		l.clock.Stop()
	}
	l.mu.Unlock()
	l.wg.Done()

	logger.Errorf("Stopping on fault: %v", err)
	if l.onFault != nil {
		l.onFault(err)
	}
}

// SPDX-License-Identifier: MIT
package lab

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"vlabsound/internal/render"
	"vlabsound/internal/results"
	"vlabsound/internal/transport"
)

// DefaultSaveTimeout bounds a background save when Deps leaves it unset.
const DefaultSaveTimeout = 5 * time.Second

// Deps are the collaborators every session shares.
type Deps struct {
	Frames      transport.Transport // Receives drawn frames. Required.
	Store       results.Store       // Nil disables saving.
	Identity    results.Identity    // Nil saves as "anonymous".
	Notifier    Notifier            // Nil only logs.
	SaveTimeout time.Duration
}

func (d Deps) notify(n Notice) {
	if d.Notifier != nil {
		d.Notifier.Notify(n)
		return
	}
	logger.Warnf("[%s] %s", n.Screen, n.Message)
}

// screen owns the display list of one experiment screen and ships each
// flushed frame to the frame transport.
type screen struct {
	name       results.ExperimentType
	list       *render.DisplayList
	frames     transport.Transport
	now        func() time.Time
	sendFailed atomic.Bool
}

func newScreen(name results.ExperimentType, surface render.Surface, frames transport.Transport) *screen {
	return &screen{
		name:   name,
		list:   render.NewDisplayList(surface),
		frames: frames,
		now:    time.Now,
	}
}

// publish flushes the list and sends it. A failed send is logged once;
// the frame is dropped and drawing carries on.
func (s *screen) publish(seq uint64) {
	frame := s.list.Flush(seq, string(s.name), s.now())
	if err := s.frames.Send(frame); err != nil {
		if !s.sendFailed.Swap(true) {
			logger.Warnf("[%s] Dropping frames: %v", s.name, err)
		}
		return
	}
	s.sendFailed.Store(false)
}

// saver stores results in the background so the screen never waits on
// persistence.
type saver struct {
	deps   Deps
	screen results.ExperimentType
	wg     sync.WaitGroup
}

func (s *saver) save(data any) {
	if s.deps.Store == nil {
		return
	}

	user := results.StaticIdentity("").CurrentUserID()
	if s.deps.Identity != nil {
		user = s.deps.Identity.CurrentUserID()
	}
	timeout := s.deps.SaveTimeout
	if timeout <= 0 {
		timeout = DefaultSaveTimeout
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		id, err := s.deps.Store.SaveExperimentResult(ctx, user, s.screen, data)
		if err != nil {
			s.deps.notify(saveNotice(string(s.screen), err))
			return
		}
		logger.Debugf("[%s] Result %s saved", s.screen, id)
	}()
}

// wait blocks until every pending save has finished.
func (s *saver) wait() { s.wg.Wait() }

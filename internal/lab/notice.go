// SPDX-License-Identifier: MIT

// Package lab runs the experiment screens: it wires capture, synthesis,
// drawing and persistence into one session per screen.
package lab

import (
	"fmt"
	"sync"
	"time"

	applog "vlabsound/internal/log"
	"vlabsound/internal/transport"
)

var logger = applog.Scope("Lab")

// NoticeKind classifies a user-facing notice.
type NoticeKind int

const (
	// DeviceNotice reports that a device could not be opened. It stays up
	// until the screen is left.
	DeviceNotice NoticeKind = iota
	// SaveNotice reports a failed background save. The user may dismiss it.
	SaveNotice
	// FaultNotice reports that a screen stopped animating.
	FaultNotice
)

func (k NoticeKind) String() string {
	switch k {
	case DeviceNotice:
		return "device"
	case SaveNotice:
		return "save"
	case FaultNotice:
		return "fault"
	default:
		return fmt.Sprintf("NoticeKind(%d)", int(k))
	}
}

func (k NoticeKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Notice is an inline message shown on a screen.
type Notice struct {
	ID          uint64     `json:"id"`
	Screen      string     `json:"screen"`
	Kind        NoticeKind `json:"kind"`
	Message     string     `json:"message"`
	Dismissible bool       `json:"dismissible"`
	Time        time.Time  `json:"time"`
}

// Notifier receives notices from sessions.
type Notifier interface {
	Notify(n Notice)
}

func deviceNotice(screen string, err error) Notice {
	return Notice{Screen: screen, Kind: DeviceNotice, Message: "Error accessing audio device: " + err.Error()}
}

func saveNotice(screen string, err error) Notice {
	return Notice{Screen: screen, Kind: SaveNotice, Message: "Could not save result: " + err.Error(), Dismissible: true}
}

func faultNotice(screen string, err error) Notice {
	return Notice{Screen: screen, Kind: FaultNotice, Message: "Display stopped: " + err.Error()}
}

// noticeMessage is the envelope notices travel in on the frame transport.
type noticeMessage struct {
	Type   string `json:"type"`
	Notice Notice `json:"notice"`
}

// NoticeBoard keeps the notices that are currently shown and forwards new
// ones to an optional transport.
type NoticeBoard struct {
	mu      sync.Mutex
	nextID  uint64
	active  []Notice
	forward transport.Transport
	now     func() time.Time
}

var _ Notifier = (*NoticeBoard)(nil)

// NewNoticeBoard returns an empty board. forward may be nil.
func NewNoticeBoard(forward transport.Transport) *NoticeBoard {
	return &NoticeBoard{forward: forward, now: time.Now}
}

// Notify assigns an id, records and forwards n.
func (b *NoticeBoard) Notify(n Notice) {
	b.mu.Lock()
	b.nextID++
	n.ID = b.nextID
	if n.Time.IsZero() {
		n.Time = b.now()
	}
	b.active = append(b.active, n)
	b.mu.Unlock()

	if n.Dismissible {
		logger.Warnf("[%s] %s", n.Screen, n.Message)
	} else {
		logger.Errorf("[%s] %s", n.Screen, n.Message)
	}

	if b.forward != nil {
		if err := b.forward.Send(noticeMessage{Type: "notice", Notice: n}); err != nil {
			logger.Debugf("Notice %d not forwarded: %v", n.ID, err)
		}
	}
}

// Active returns the notices currently shown, oldest first.
func (b *NoticeBoard) Active() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Notice(nil), b.active...)
}

// Dismiss removes a dismissible notice and reports whether it did.
func (b *NoticeBoard) Dismiss(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, n := range b.active {
		if n.ID == id {
			if !n.Dismissible {
				return false
			}
			b.active = append(b.active[:i], b.active[i+1:]...)
			return true
		}
	}
	return false
}

// ClearScreen drops every notice for screen, as happens when it is left.
func (b *NoticeBoard) ClearScreen(screen string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.active[:0]
	for _, n := range b.active {
		if n.Screen != screen {
			kept = append(kept, n)
		}
	}
	b.active = kept
}

// SPDX-License-Identifier: MIT
package udp

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vlabsound/internal/analysis"
)

// stubReader returns a fixed spectrum.
type stubReader struct{ bins []float64 }

func (s stubReader) BinCount() int                   { return len(s.bins) }
func (s stubReader) WindowSize() int                 { return 2 * len(s.bins) }
func (s stubReader) FrequencyForBin(bin int) float64 { return float64(bin) }
func (s stubReader) ReadFrame(dst []float64, mode analysis.Mode) []float64 {
	return append(dst[:0], s.bins...)
}

type recordingSender struct {
	mu      sync.Mutex
	packets [][]byte
}

func (r *recordingSender) Send(data []byte) error {
	cp := append([]byte(nil), data...)
	r.mu.Lock()
	r.packets = append(r.packets, cp)
	r.mu.Unlock()
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.packets)
}

func TestNewUDPPublisherValidation(t *testing.T) {
	_, err := NewUDPPublisher(time.Millisecond, nil, stubReader{})
	assert.Error(t, err)
	_, err = NewUDPPublisher(time.Millisecond, &recordingSender{}, nil)
	assert.Error(t, err)

	p, err := NewUDPPublisher(0, &recordingSender{}, stubReader{bins: []float64{1}})
	require.NoError(t, err)
	assert.Equal(t, 16*time.Millisecond, p.interval)
}

func TestPacketRoundTrip(t *testing.T) {
	sender := &recordingSender{}
	p, err := NewUDPPublisher(time.Second, sender, stubReader{bins: []float64{0, 12, 255}})
	require.NoError(t, err)
	p.now = func() time.Time { return time.Unix(100, 5) }

	p.buildAndSendPacket()
	p.buildAndSendPacket()
	require.Equal(t, 2, sender.count())

	pkt, err := DecodePacket(sender.packets[1])
	require.NoError(t, err)
	assert.Equal(t, uint32(2), pkt.Sequence)
	assert.True(t, pkt.Timestamp.Equal(time.Unix(100, 5)))
	assert.Equal(t, []float32{0, 12, 255}, pkt.Bins)
	assert.Len(t, sender.packets[1], 14+3*4)

	_, err = DecodePacket(sender.packets[1][:10])
	assert.ErrorContains(t, err, "too short")
	_, err = DecodePacket(sender.packets[1][:20])
	assert.ErrorContains(t, err, "does not match")
}

func TestPublisherStartStop(t *testing.T) {
	sender := &recordingSender{}
	p, err := NewUDPPublisher(time.Millisecond, sender, stubReader{bins: make([]float64, 8)})
	require.NoError(t, err)

	p.Start()
	p.Start() // no-op
	require.Eventually(t, func() bool { return sender.count() >= 3 }, 2*time.Second, time.Millisecond)

	require.NoError(t, p.Stop())
	n := sender.count()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, n, sender.count(), "no packets after Stop")
	require.NoError(t, p.Close())
}

func TestUDPSenderLoopback(t *testing.T) {
	ln, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer ln.Close()

	s, err := NewUDPSender(ln.LocalAddr().String())
	require.NoError(t, err)
	assert.Equal(t, ln.LocalAddr().(*net.UDPAddr).Port, s.Target().Port)

	require.NoError(t, s.Send([]byte("hello")))

	buf := make([]byte, 64)
	ln.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := ln.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Send([]byte("x")), ErrSenderClosed)

	_, err = NewUDPSender("not an address")
	assert.Error(t, err)
}

// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"vlabsound/internal/analysis"
)

// PacketSender is what the publisher writes packets to. *UDPSender is the
// production implementation.
type PacketSender interface {
	Send(data []byte) error
}

// UDPPublisher periodically reads the byte spectrum from an analysis tap,
// packs it into a binary packet and sends it with a PacketSender. It runs
// in its own goroutine between Start and Stop.
type UDPPublisher struct {
	sender   PacketSender         // The underlying packet sender.
	reader   analysis.FrameReader // The tap to read spectrum frames from.
	interval time.Duration        // The interval at which packets are sent.

	ticker   *time.Ticker   // Ticker that triggers packet sending.
	doneChan chan struct{}  // Signals the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects ticker and doneChan during Start/Stop.

	sequenceNum uint32 // Monotonically increasing sequence number for packets.
	now         func() time.Time

	// Pre-allocated buffers for the hot path.
	spectrum     []float64
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewUDPPublisher creates and initializes a new UDPPublisher.
// If the provided interval is invalid (<= 0), it defaults to 16ms (~60Hz).
func NewUDPPublisher(interval time.Duration, sender PacketSender, reader analysis.FrameReader) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: sender cannot be nil")
	}
	if reader == nil {
		return nil, fmt.Errorf("UDPPublisher: frame reader cannot be nil")
	}

	if interval <= 0 {
		interval = 16 * time.Millisecond
		logger.Warnf("Publisher: Invalid interval provided, defaulting to %s", interval)
	}

	bins := reader.BinCount()
	logger.Infof("Publisher: Initializing (Interval: %s, Bins: %d)", interval, bins)

	return &UDPPublisher{
		sender:       sender,
		reader:       reader,
		interval:     interval,
		now:          time.Now,
		spectrum:     make([]float64, 0, bins),
		f32Buffer:    make([]float32, 0, bins),
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start begins the periodic publishing process. Subsequent calls are no-ops
// while running.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		logger.Warnf("Publisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Local copies keep the goroutine off the guarded fields.
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		logger.Debugf("Publisher: goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it to
// exit. Safe to call more than once.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	logger.Infof("Publisher: stopped after %d packets", p.sequenceNum)
	return nil
}

/*
UDP Packet Structure (BigEndian)

|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 2 Bytes -->|<----- N * 4 Bytes ----->|
+-------------------+-----------------------+---------------+-------------------------+
|  Sequence Number  |       Timestamp       |   Bin Count   |      Spectrum bins      |
|      (uint32)     |   (int64, unix ns)    |    (uint16)   |  (N * float32, 0..255)  |
+-------------------+-----------------------+---------------+-------------------------+
*/

// buildAndSendPacket reads one spectrum frame, packs it and sends it.
func (p *UDPPublisher) buildAndSendPacket() {
	p.spectrum = p.reader.ReadFrame(p.spectrum, analysis.ModeSpectrum)

	p.f32Buffer = p.f32Buffer[:0]
	for _, v := range p.spectrum {
		p.f32Buffer = append(p.f32Buffer, float32(v))
	}

	p.sequenceNum++
	p.packetBuffer.Reset()

	err := binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, p.now().UnixNano())
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, uint16(len(p.f32Buffer)))
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, p.f32Buffer)
	}
	if err != nil {
		logger.Errorf("Publisher: Error packing data into binary buffer: %v", err)
		return
	}

	packet := p.packetBuffer.Bytes()
	if err := p.sender.Send(packet); err == nil {
		logger.Debugf("Publisher: Sent packet %d (%d bytes)", p.sequenceNum, len(packet))
	}
}

// Close implements io.Closer by stopping the publisher goroutine.
func (p *UDPPublisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*UDPPublisher)(nil)

// Packet is a decoded spectrum packet.
type Packet struct {
	Sequence  uint32
	Timestamp time.Time
	Bins      []float32
}

// DecodePacket parses a packet built by UDPPublisher.
func DecodePacket(data []byte) (Packet, error) {
	const header = 4 + 8 + 2
	if len(data) < header {
		return Packet{}, fmt.Errorf("packet too short: %d bytes", len(data))
	}

	pkt := Packet{
		Sequence:  binary.BigEndian.Uint32(data[0:4]),
		Timestamp: time.Unix(0, int64(binary.BigEndian.Uint64(data[4:12]))),
	}
	n := int(binary.BigEndian.Uint16(data[12:14]))
	if len(data) != header+4*n {
		return Packet{}, fmt.Errorf("packet length %d does not match %d bins", len(data), n)
	}

	pkt.Bins = make([]float32, n)
	if err := binary.Read(bytes.NewReader(data[header:]), binary.BigEndian, pkt.Bins); err != nil {
		return Packet{}, fmt.Errorf("failed to decode bins: %w", err)
	}
	return pkt, nil
}

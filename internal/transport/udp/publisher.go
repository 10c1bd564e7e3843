// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"synthscope/internal/analysis"
	applog "synthscope/internal/log"
	"synthscope/internal/transport"
)

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Frame sequence          |
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Value Count       | uint16         | 2            | Number of floats (N)    |
| Values            | []float32      | N * 4        | Scope curve in [0, 1]   |
+-----------------------------------------------------------------------------+
*/

// HeaderSize is the fixed packet prefix length.
const HeaderSize = 4 + 8 + 2

// MaxValues is the most floats one packet can carry.
const MaxValues = math.MaxUint16

// Packet is a decoded datagram.
type Packet struct {
	Sequence  uint32
	Timestamp int64
	Values    []float32
}

// UDPPublisher packs analyser frames into the binary format above and sends
// them with a UDPSender. It implements transport.Transport.
type UDPPublisher struct {
	sender *UDPSender

	mu           sync.Mutex // Serialises use of packetBuffer.
	packetBuffer *bytes.Buffer
	sequenceNum  uint32 // Used for raw []float32 payloads.
}

// NewUDPPublisher wraps sender. The publisher owns it from now on.
func NewUDPPublisher(sender *UDPSender) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	applog.Infof("UDPPublisher: Publishing to %s", sender.Target())
	return &UDPPublisher{sender: sender, packetBuffer: new(bytes.Buffer)}, nil
}

// Send accepts *analysis.Frame or []float32 payloads.
func (p *UDPPublisher) Send(data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var (
		seq    uint32
		ts     int64
		values []float32
	)
	switch v := data.(type) {
	case *analysis.Frame:
		seq, ts, values = v.Sequence, v.Timestamp, v.Scope
	case []float32:
		p.sequenceNum++
		seq, ts, values = p.sequenceNum, time.Now().UnixNano(), v
	default:
		return fmt.Errorf("UDPPublisher: unsupported payload %T", data)
	}

	if err := encodePacket(p.packetBuffer, seq, ts, values); err != nil {
		applog.Errorf("UDPPublisher: Error packing data into binary buffer: %v", err)
		return err
	}
	packetBytes := p.packetBuffer.Bytes()
	if err := p.sender.Send(packetBytes); err != nil {
		return err
	}
	applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", seq, len(packetBytes))
	return nil
}

// Close closes the sender.
func (p *UDPPublisher) Close() error {
	applog.Debugf("UDPPublisher: Close called")
	return p.sender.Close()
}

func encodePacket(buf *bytes.Buffer, seq uint32, ts int64, values []float32) error {
	if len(values) > MaxValues {
		return fmt.Errorf("too many values for one packet: %d", len(values))
	}
	buf.Reset()
	err := binary.Write(buf, binary.BigEndian, seq)
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, ts)
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, uint16(len(values)))
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, values)
	}
	return err
}

// DecodePacket parses a datagram produced by UDPPublisher.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < HeaderSize {
		return Packet{}, errors.New("packet shorter than header")
	}
	pkt := Packet{
		Sequence:  binary.BigEndian.Uint32(b[0:4]),
		Timestamp: int64(binary.BigEndian.Uint64(b[4:12])),
	}
	n := int(binary.BigEndian.Uint16(b[12:14]))
	if len(b) != HeaderSize+4*n {
		return Packet{}, fmt.Errorf("packet length %d does not match %d values", len(b), n)
	}
	pkt.Values = make([]float32, n)
	for i := range pkt.Values {
		off := HeaderSize + 4*i
		pkt.Values[i] = math.Float32frombits(binary.BigEndian.Uint32(b[off : off+4]))
	}
	return pkt, nil
}

var _ transport.Transport = (*UDPPublisher)(nil)

// ============================================================================
// Flight Protocol - Packet Codec
// ============================================================================
//
// Package: internal/protocol
// File: packet.go
// Function: Fixed, versioned, length-prefixed binary frame format
//
// Frame layout (all integers little-endian):
//
//   offset 0..4   timestamp     u32  ms since epoch, advisory, wraps
//   offset 4..6   version       u16  wire revision, not validated on decode
//   offset 6..8   payload_size  u16  exact byte length of the payload
//   offset 8..    payload             one Message variant
//
// Decode order:
//   1. len < HeaderSize               -> ErrMessageTooShort
//   2. parse header
//   3. len != HeaderSize+payload_size -> ErrInvalidPayloadLength
//   4. decode payload                 -> ErrPayloadDecodeFailure / ErrUnsupportedMessageType
//
// ============================================================================

// Package protocol implements the flight wire format.
package protocol

import (
	"encoding/binary"
	"math"

	"github.com/ChuLiYu/flight-server/internal/clock"
)

const (
	// HeaderSize is timestamp(4) + version(2) + payload_size(2)
	HeaderSize = 8

	// MaxPayloadSize is the largest payload the 16-bit size field can describe
	MaxPayloadSize = math.MaxUint16

	// CurrentVersion is stamped on every packet this server builds
	CurrentVersion uint16 = 1
)

// Header precedes every payload on the wire.
type Header struct {
	Timestamp   uint32
	Version     uint16
	PayloadSize uint16
}

// Packet is one frame: a header and the message it carries.
type Packet struct {
	Header  Header
	Message Message
}

// NewPacket builds a packet stamped with the current time and version.
func NewPacket(msg Message, c clock.Clock) Packet {
	return NewPacketAt(msg, c.NowMillis(), CurrentVersion)
}

// NewPacketAt builds a packet with an explicit timestamp and version. The
// payload size is filled in so that Deserialize(Serialize(p)) == p.
func NewPacketAt(msg Message, timestamp uint32, version uint16) Packet {
	p := Packet{
		Header:  Header{Timestamp: timestamp, Version: version},
		Message: msg,
	}
	if payload, err := appendPayload(nil, msg); err == nil {
		p.Header.PayloadSize = uint16(len(payload))
	}
	return p
}

// Serialize encodes p. The payload_size field is always computed from the
// encoded payload; p.Header.PayloadSize is ignored.
func Serialize(p Packet) ([]byte, error) {
	return AppendPacket(make([]byte, 0, HeaderSize+4), p)
}

// AppendPacket appends the encoding of p to b.
func AppendPacket(b []byte, p Packet) ([]byte, error) {
	start := len(b)
	b = append(b, make([]byte, HeaderSize)...)

	b, err := appendPayload(b, p.Message)
	if err != nil {
		return nil, err
	}

	size := len(b) - start - HeaderSize
	if size > MaxPayloadSize {
		return nil, wrapf(ErrPayloadTooLarge, "%d bytes", size)
	}

	hdr := b[start : start+HeaderSize]
	binary.LittleEndian.PutUint32(hdr[0:4], p.Header.Timestamp)
	binary.LittleEndian.PutUint16(hdr[4:6], p.Header.Version)
	binary.LittleEndian.PutUint16(hdr[6:8], uint16(size))
	return b, nil
}

// ParseHeader decodes the fixed header at the start of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, wrapf(ErrMessageTooShort, "got %d bytes, need %d", len(b), HeaderSize)
	}
	return Header{
		Timestamp:   binary.LittleEndian.Uint32(b[0:4]),
		Version:     binary.LittleEndian.Uint16(b[4:6]),
		PayloadSize: binary.LittleEndian.Uint16(b[6:8]),
	}, nil
}

// Deserialize decodes exactly one frame from b. Any version value is
// accepted.
func Deserialize(b []byte) (Packet, error) {
	hdr, err := ParseHeader(b)
	if err != nil {
		return Packet{}, err
	}

	if want := HeaderSize + int(hdr.PayloadSize); len(b) != want {
		return Packet{}, wrapf(ErrInvalidPayloadLength, "header declares %d payload bytes, frame carries %d",
			hdr.PayloadSize, len(b)-HeaderSize)
	}

	msg, err := decodePayload(b[HeaderSize:])
	if err != nil {
		return Packet{}, err
	}

	return Packet{Header: hdr, Message: msg}, nil
}

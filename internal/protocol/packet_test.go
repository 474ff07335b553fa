package protocol

// ============================================================================
// Codec Test File
// Purpose: Verify wire layout, round trip, and every decode error class
// ============================================================================

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/ChuLiYu/flight-server/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

// ============================================================================
// Encoding
// ============================================================================

// TestSerializePingLayout checks the exact header bytes of a known packet
func TestSerializePingLayout(t *testing.T) {
	p := NewPacketAt(Ping, 12345678, 1)

	b, err := Serialize(p)
	require.NoError(t, err)

	payload := []byte{0x08, 0x00}
	want := append([]byte{78, 97, 188, 0, 1, 0, byte(len(payload)), 0}, payload...)
	assert.Equal(t, want, b)
	assert.Len(t, b, HeaderSize+len(payload))

	decoded, err := Deserialize(b)
	require.NoError(t, err)
	assert.Equal(t, p, decoded)
}

func TestSerializeIgnoresStalePayloadSize(t *testing.T) {
	p := Packet{Header: Header{Timestamp: 7, Version: 3, PayloadSize: 999}, Message: Data}

	b, err := Serialize(p)
	require.NoError(t, err)

	hdr, err := ParseHeader(b)
	require.NoError(t, err)
	assert.Equal(t, uint16(len(b)-HeaderSize), hdr.PayloadSize)
}

func TestSerializeUnknownMessage(t *testing.T) {
	_, err := Serialize(Packet{Message: Message(42)})

	assert.ErrorIs(t, err, ErrUnsupportedMessageType)
}

func TestNewPacketUsesClock(t *testing.T) {
	p := NewPacket(Chat, clock.Fixed(99))

	assert.Equal(t, uint32(99), p.Header.Timestamp)
	assert.Equal(t, CurrentVersion, p.Header.Version)
	assert.Equal(t, Chat, p.Message)
}

// ============================================================================
// Round trip
// ============================================================================

func TestRoundTripAllVariants(t *testing.T) {
	timestamps := []uint32{0, 1, 12345678, 1<<32 - 1}
	versions := []uint16{0, 1, 2, 0xFFFF}

	for _, msg := range Messages {
		for _, ts := range timestamps {
			for _, ver := range versions {
				p := NewPacketAt(msg, ts, ver)

				b, err := Serialize(p)
				require.NoError(t, err)

				got, err := Deserialize(b)
				require.NoError(t, err, "msg=%s ts=%d ver=%d", msg, ts, ver)
				assert.Equal(t, p, got)
			}
		}
	}
}

// ============================================================================
// Decode errors
// ============================================================================

func TestDeserializeTooShort(t *testing.T) {
	for n := 0; n < HeaderSize; n++ {
		_, err := Deserialize(make([]byte, n))
		assert.ErrorIs(t, err, ErrMessageTooShort, "len=%d", n)
		assert.ErrorIs(t, err, ErrDecode)
	}

	_, err := Deserialize([]byte{0, 4})
	assert.ErrorIs(t, err, ErrMessageTooShort)
}

func TestDeserializeInvalidPayloadLength(t *testing.T) {
	tests := []struct {
		name     string
		declared uint16
		actual   int
	}{
		{"declared 4 carries 2", 4, 2},
		{"declared 2 carries 3", 2, 3},
		{"declared 0 carries 1", 0, 1},
		{"declared max carries 0", MaxPayloadSize, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := []byte{0, 0, 0, 0, 1, 0, byte(tt.declared), byte(tt.declared >> 8)}
			b = append(b, make([]byte, tt.actual)...)

			_, err := Deserialize(b)
			assert.ErrorIs(t, err, ErrInvalidPayloadLength)
			assert.NotErrorIs(t, err, ErrMessageTooShort)
		})
	}
}

func TestDeserializeUnsupportedMessageType(t *testing.T) {
	payload := protowire.AppendTag(nil, kindField, protowire.VarintType)
	payload = protowire.AppendVarint(payload, 4)

	_, err := Deserialize(frame(payload))
	assert.ErrorIs(t, err, ErrUnsupportedMessageType)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDeserializePayloadDecodeFailure(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty payload", nil},
		{"truncated varint", []byte{0x08, 0x80}},
		{"wrong wire type for kind", []byte{0x0A, 0x00}},
		{"field number zero", []byte{0x00, 0x00}},
		{"truncated unknown field", []byte{0x12, 0x05, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize(frame(tt.payload))
			assert.ErrorIs(t, err, ErrPayloadDecodeFailure)
			assert.NotErrorIs(t, err, ErrUnsupportedMessageType)
		})
	}
}

// TestDeserializeSkipsUnknownFields keeps newer senders readable
func TestDeserializeSkipsUnknownFields(t *testing.T) {
	payload := protowire.AppendTag(nil, 7, protowire.BytesType)
	payload = protowire.AppendBytes(payload, []byte("hello"))
	payload = protowire.AppendTag(payload, kindField, protowire.VarintType)
	payload = protowire.AppendVarint(payload, uint64(Chat))

	p, err := Deserialize(frame(payload))
	require.NoError(t, err)
	assert.Equal(t, Chat, p.Message)
}

func TestReason(t *testing.T) {
	_, tooShort := Deserialize(nil)
	assert.Equal(t, "message_too_short", Reason(tooShort))
	assert.Equal(t, "invalid_payload_length", Reason(ErrInvalidPayloadLength))
	assert.Equal(t, "unsupported_message_type", Reason(ErrUnsupportedMessageType))
	assert.Equal(t, "payload_decode_failure", Reason(ErrPayloadDecodeFailure))
	assert.Equal(t, "other", Reason(errors.New("boom")))
}

// ============================================================================
// Stream framing
// ============================================================================

func TestReadWritePacketSequence(t *testing.T) {
	var buf bytes.Buffer
	sent := []Packet{
		NewPacketAt(Ping, 1, 1),
		NewPacketAt(Data, 2, 1),
		NewPacketAt(Chat, 3, 9),
		NewPacketAt(Disconnect, 4, 1),
	}
	for _, p := range sent {
		require.NoError(t, WritePacket(&buf, p))
	}

	for _, want := range sent {
		got, err := ReadPacket(&buf)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ReadPacket(&buf)
	assert.Equal(t, io.EOF, err)
}

func TestReadPacketTruncatedHeader(t *testing.T) {
	_, err := ReadPacket(bytes.NewReader([]byte{0, 4}))

	assert.ErrorIs(t, err, ErrMessageTooShort)
}

func TestReadPacketTruncatedPayload(t *testing.T) {
	b := []byte{0, 0, 0, 0, 1, 0, 4, 0, 0x08, 0x00}

	_, err := ReadPacket(bytes.NewReader(b))
	assert.ErrorIs(t, err, ErrInvalidPayloadLength)
}

func TestReadPacketPropagatesReadError(t *testing.T) {
	boom := errors.New("connection reset")

	_, err := ReadPacket(io.MultiReader(bytes.NewReader([]byte{1, 2, 3}), errReader{boom}))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrDecode)
}

// ============================================================================
// Helpers
// ============================================================================

func frame(payload []byte) []byte {
	b := []byte{0, 0, 0, 0, 1, 0, byte(len(payload)), byte(len(payload) >> 8)}
	return append(b, payload...)
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

// ============================================================================
// Benchmark Tests
// ============================================================================

func BenchmarkSerialize(b *testing.B) {
	p := NewPacketAt(Data, 12345678, 1)
	for i := 0; i < b.N; i++ {
		_, _ = Serialize(p)
	}
}

func BenchmarkDeserialize(b *testing.B) {
	buf, _ := Serialize(NewPacketAt(Data, 12345678, 1))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Deserialize(buf)
	}
}

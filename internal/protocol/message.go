package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Message is the closed set of payload variants. The numeric value is the
// wire discriminant.
type Message uint8

const (
	Ping       Message = 0
	Data       Message = 1
	Disconnect Message = 2
	Chat       Message = 3
)

// Messages lists every known variant in discriminant order.
var Messages = []Message{Ping, Data, Disconnect, Chat}

func (m Message) String() string {
	switch m {
	case Ping:
		return "ping"
	case Data:
		return "data"
	case Disconnect:
		return "disconnect"
	case Chat:
		return "chat"
	default:
		return fmt.Sprintf("message(%d)", uint8(m))
	}
}

// Valid reports whether m is one of the known variants.
func (m Message) Valid() bool {
	return m <= Chat
}

// Payloads use the protobuf wire format. Field 1 carries the discriminant as a
// varint; any other field is skipped on decode so later revisions can append
// fields without breaking older readers.
const kindField protowire.Number = 1

func appendPayload(b []byte, m Message) ([]byte, error) {
	if !m.Valid() {
		return nil, wrapf(ErrUnsupportedMessageType, "cannot encode %s", m)
	}
	b = protowire.AppendTag(b, kindField, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m))
	return b, nil
}

func decodePayload(b []byte) (Message, error) {
	var (
		kind uint64
		seen bool
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return 0, wrapf(ErrPayloadDecodeFailure, "tag: %v", protowire.ParseError(n))
		}
		b = b[n:]

		if num == kindField {
			if typ != protowire.VarintType {
				return 0, wrapf(ErrPayloadDecodeFailure, "kind field has wire type %d", typ)
			}
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, wrapf(ErrPayloadDecodeFailure, "kind: %v", protowire.ParseError(n))
			}
			kind, seen = v, true
			b = b[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return 0, wrapf(ErrPayloadDecodeFailure, "field %d: %v", num, protowire.ParseError(n))
		}
		b = b[n:]
	}

	if !seen {
		return 0, wrapf(ErrPayloadDecodeFailure, "missing message kind")
	}
	if kind > uint64(Chat) {
		return 0, wrapf(ErrUnsupportedMessageType, "discriminant %d", kind)
	}
	return Message(kind), nil
}

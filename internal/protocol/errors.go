package protocol

// ============================================================================
// Codec Error Definitions
// Purpose: Classify malformed frames and unencodable packets
// ============================================================================

import (
	"errors"
	"fmt"
)

// ErrDecode is matched by every decode failure below, so callers can treat
// any malformed frame as frame-local without listing each case.
var ErrDecode = errors.New("protocol: decode failed")

// Decode errors
var (
	// ErrMessageTooShort indicates fewer than HeaderSize bytes were available
	ErrMessageTooShort = &decodeError{msg: "protocol: message too short"}

	// ErrInvalidPayloadLength indicates the buffer length disagrees with the header's payload_size
	ErrInvalidPayloadLength = &decodeError{msg: "protocol: invalid payload length"}

	// ErrUnsupportedMessageType indicates a discriminant outside the known variants
	ErrUnsupportedMessageType = &decodeError{msg: "protocol: unsupported message type"}

	// ErrPayloadDecodeFailure indicates a structurally malformed payload
	ErrPayloadDecodeFailure = &decodeError{msg: "protocol: payload decode failure"}
)

// Encode errors
var (
	// ErrPayloadTooLarge indicates a payload that does not fit the 16-bit size field
	ErrPayloadTooLarge = errors.New("protocol: payload too large")
)

type decodeError struct {
	msg string
}

func (e *decodeError) Error() string { return e.msg }

func (e *decodeError) Is(target error) bool { return target == ErrDecode }

// wrapf attaches frame context to a sentinel while keeping it matchable
func wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// Reason returns a short stable label for a decode error, used as a metric
// label and in logs. Unknown errors map to "other".
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrMessageTooShort):
		return "message_too_short"
	case errors.Is(err, ErrInvalidPayloadLength):
		return "invalid_payload_length"
	case errors.Is(err, ErrUnsupportedMessageType):
		return "unsupported_message_type"
	case errors.Is(err, ErrPayloadDecodeFailure):
		return "payload_decode_failure"
	default:
		return "other"
	}
}

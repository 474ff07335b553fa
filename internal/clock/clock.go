// Package clock reads the wall clock at millisecond resolution for packet
// timestamps.
package clock

import "time"

// Clock returns milliseconds since the Unix epoch truncated to 32 bits.
// The value wraps roughly every 49.7 days; timestamps are advisory only.
type Clock interface {
	NowMillis() uint32
}

// System reads time.Now.
type System struct{}

func (System) NowMillis() uint32 {
	return Millis(time.Now())
}

// Func adapts a plain function to Clock.
type Func func() uint32

func (f Func) NowMillis() uint32 {
	return f()
}

// Fixed always returns the same timestamp.
func Fixed(ms uint32) Clock {
	return Func(func() uint32 { return ms })
}

// Millis truncates t to the 32-bit wire representation.
func Millis(t time.Time) uint32 {
	return uint32(t.UnixMilli())
}

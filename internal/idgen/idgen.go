// Package idgen hands out client identifiers.
package idgen

import (
	"sync/atomic"

	"github.com/ChuLiYu/flight-server/pkg/types"
)

// Counter is a monotonically increasing ClientID source. The zero value is
// ready to use and starts at 0. Safe for concurrent use.
type Counter struct {
	next atomic.Uint64
}

// New returns a counter whose first Next call yields start.
func New(start uint64) *Counter {
	c := &Counter{}
	c.next.Store(start)
	return c
}

// Next returns the current value and advances the counter.
func (c *Counter) Next() types.ClientID {
	return types.ClientID(c.next.Add(1) - 1)
}

// Peek returns the value the next call to Next will yield.
func (c *Counter) Peek() types.ClientID {
	return types.ClientID(c.next.Load())
}

package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := newQueue(0)

	var got []int
	for i := 0; i < 10; i++ {
		i := i
		require.NoError(t, q.push(func() { got = append(got, i) }, false))
	}
	assert.Equal(t, 10, q.pending())

	for i := 0; i < 10; i++ {
		job, ok := q.pop()
		require.True(t, ok)
		job()
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
	assert.Equal(t, 0, q.pending())
}

// TestQueueCompaction interleaves push and pop so the backing slice is
// compacted repeatedly without losing order
func TestQueueCompaction(t *testing.T) {
	q := newQueue(0)

	next := 0
	var got []int
	for round := 0; round < 100; round++ {
		for i := 0; i < 3; i++ {
			n := next
			next++
			require.NoError(t, q.push(func() { got = append(got, n) }, false))
		}
		for i := 0; i < 2; i++ {
			job, ok := q.pop()
			require.True(t, ok)
			job()
		}
	}
	for q.pending() > 0 {
		job, _ := q.pop()
		job()
	}

	require.Len(t, got, next)
	for i, v := range got {
		require.Equal(t, i, v)
	}
}

func TestQueueCloseDrainsThenStops(t *testing.T) {
	q := newQueue(0)
	require.NoError(t, q.push(func() {}, false))

	q.close()
	assert.ErrorIs(t, q.push(func() {}, false), ErrPoolClosed)

	_, ok := q.pop()
	assert.True(t, ok, "queued job must survive close")
	_, ok = q.pop()
	assert.False(t, ok)
}

func TestQueuePopBlocksUntilPush(t *testing.T) {
	q := newQueue(0)

	got := make(chan bool, 1)
	go func() {
		_, ok := q.pop()
		got <- ok
	}()

	select {
	case <-got:
		t.Fatal("pop returned on empty queue")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, q.push(func() {}, false))
	assert.True(t, <-got)
}

func TestQueueCloseWakesPoppers(t *testing.T) {
	q := newQueue(0)

	got := make(chan bool, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, ok := q.pop()
			got <- ok
		}()
	}
	time.Sleep(10 * time.Millisecond)
	q.close()

	assert.False(t, <-got)
	assert.False(t, <-got)
}

func TestQueueBoundedReject(t *testing.T) {
	q := newQueue(1)

	require.NoError(t, q.push(func() {}, false))
	assert.ErrorIs(t, q.push(func() {}, false), ErrQueueFull)

	_, ok := q.pop()
	require.True(t, ok)
	assert.NoError(t, q.push(func() {}, false))
}

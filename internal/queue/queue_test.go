package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type waiter struct {
	ID   int
	Name string
}

func byID(id int) func(waiter) bool {
	return func(w waiter) bool { return w.ID == id }
}

func TestQueue_New(t *testing.T) {
	q := New[waiter]()
	require.NotNil(t, q)
	assert.True(t, q.Empty())
	assert.Zero(t, q.Len())
}

func TestQueue_FIFO(t *testing.T) {
	q := New[waiter]()
	q.Push(waiter{ID: 1, Name: "first"})
	q.Push(waiter{ID: 2}, waiter{ID: 3})
	require.Equal(t, 3, q.Len())

	head, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, 1, head.ID)
	assert.Equal(t, 3, q.Len())

	for _, want := range []int{1, 2, 3} {
		got, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, want, got.ID)
	}

	_, ok = q.TryPop()
	assert.False(t, ok)
	assert.Equal(t, waiter{}, q.Pop())

	_, ok = q.Peek()
	assert.False(t, ok)
}

func TestQueue_Remove(t *testing.T) {
	q := New[waiter]()
	q.Push(waiter{ID: 1}, waiter{ID: 2}, waiter{ID: 3}, waiter{ID: 2})

	assert.True(t, q.Contains(byID(2)))
	assert.True(t, q.Remove(byID(2)))
	assert.Equal(t, []waiter{{ID: 1}, {ID: 3}, {ID: 2}}, q.Snapshot())

	assert.False(t, q.Remove(byID(9)))
	assert.False(t, q.Contains(byID(9)))
	assert.Equal(t, 3, q.Len())
}

func TestQueue_Drain(t *testing.T) {
	q := New[waiter]()
	q.Push(waiter{ID: 1}, waiter{ID: 2})

	items := q.Drain()
	assert.Len(t, items, 2)
	assert.True(t, q.Empty())

	q.Push(waiter{ID: 3})
	assert.Equal(t, 1, q.Len())
	assert.Len(t, items, 2, "drained slice must not alias the queue")
}

func TestQueue_Clear(t *testing.T) {
	q := New[waiter]()
	q.Push(waiter{ID: 1}, waiter{ID: 2})
	q.Clear()
	assert.True(t, q.Empty())
}

func TestQueue_Concurrent(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Push(base*100 + i)
			}
		}(g)
	}
	wg.Wait()
	assert.Equal(t, 800, q.Len())

	popped := 0
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if _, ok := q.TryPop(); !ok {
					return
				}
			}
		}()
	}
	wg.Wait()
	popped = 800 - q.Len()
	assert.Equal(t, 800, popped)
}

package crawler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue(t *testing.T) {
	t.Parallel()

	t.Run("fifo order", func(t *testing.T) {
		t.Parallel()
		q := NewQueue()
		require.True(t, q.Push(Task{URL: "a"}))
		require.True(t, q.Push(Task{URL: "b", Depth: 1}))
		assert.Equal(t, 2, q.Size())

		first, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, "a", first.URL)

		second, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, Task{URL: "b", Depth: 1}, second)
		assert.Zero(t, q.Size())
	})

	t.Run("pop blocks until push", func(t *testing.T) {
		t.Parallel()
		q := NewQueue()
		got := make(chan Task, 1)
		go func() {
			task, _ := q.Pop()
			got <- task
		}()

		select {
		case <-got:
			t.Fatal("pop returned before push")
		case <-time.After(20 * time.Millisecond):
		}

		q.Push(Task{URL: "late"})
		select {
		case task := <-got:
			assert.Equal(t, "late", task.URL)
		case <-time.After(time.Second):
			t.Fatal("pop did not wake up")
		}
	})

	t.Run("stop releases waiters after remaining items", func(t *testing.T) {
		t.Parallel()
		q := NewQueue()
		q.Push(Task{URL: "a"})
		q.Stop()

		assert.False(t, q.Push(Task{URL: "b"}))

		task, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, "a", task.URL)

		_, ok = q.Pop()
		assert.False(t, ok)
	})

	t.Run("drain discards pending tasks", func(t *testing.T) {
		t.Parallel()
		q := NewQueue()
		q.Push(Task{URL: "a"})
		q.Push(Task{URL: "b"})

		assert.Equal(t, 2, q.Drain())
		assert.Zero(t, q.Size())
		assert.False(t, q.Push(Task{URL: "c"}))

		_, ok := q.Pop()
		assert.False(t, ok)
	})
}

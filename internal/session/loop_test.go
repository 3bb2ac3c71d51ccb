package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopRunsTasksInOrder(t *testing.T) {
	loop := NewLoop(nil)
	loop.Start()
	defer loop.Stop()

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		loop.Post(func() { order = append(order, i) })
	}
	loop.Call(func() {})

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestDeferredRunsAfterCurrentTurn(t *testing.T) {
	loop := NewLoop(nil)
	loop.Start()
	defer loop.Stop()

	var order []string
	loop.Call(func() {
		loop.PostDeferred(func() { order = append(order, "deferred") })
		order = append(order, "task")
	})

	assert.Equal(t, []string{"task", "deferred"}, order)
}

func TestDeferredDuringDeferredRunsAtSameIdlePoint(t *testing.T) {
	loop := NewLoop(nil)
	loop.Start()
	defer loop.Stop()

	var order []string
	loop.Call(func() {
		loop.PostDeferred(func() {
			order = append(order, "first")
			loop.PostDeferred(func() { order = append(order, "second") })
		})
	})

	// Both deferred tasks complete before the next posted task runs.
	loop.Call(func() { order = append(order, "next-turn") })
	assert.Equal(t, []string{"first", "second", "next-turn"}, order)
}

func TestStopDrainsQueuedTasks(t *testing.T) {
	loop := NewLoop(nil)
	ran := false
	loop.Post(func() { ran = true })
	loop.Start()
	loop.Stop()

	assert.True(t, ran)
}

func TestCallReturnsAfterTask(t *testing.T) {
	loop := NewLoop(nil)
	loop.Start()
	defer loop.Stop()

	value := 0
	loop.Call(func() { value = 7 })
	require.Equal(t, 7, value)
}

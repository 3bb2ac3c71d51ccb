package gfx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectIntersected(t *testing.T) {
	a := MakeRect(10, 10, 100, 100)
	b := MakeRect(0, 0, 50, 50)

	got := a.Intersected(b)
	assert.Equal(t, MakeRect(10, 10, 40, 40), got)

	// Disjoint rects intersect to empty
	c := MakeRect(500, 500, 10, 10)
	assert.True(t, a.Intersected(c).IsEmpty())

	// Intersection with self is identity
	assert.Equal(t, a, a.Intersected(a))
}

func TestRectUnited(t *testing.T) {
	a := MakeRect(0, 0, 10, 10)
	b := MakeRect(20, 20, 10, 10)

	assert.Equal(t, MakeRect(0, 0, 30, 30), a.United(b))
	assert.Equal(t, a, a.United(Rect{}))
	assert.Equal(t, a, Rect{}.United(a))
}

func TestRectContainsRect(t *testing.T) {
	outer := MakeRect(0, 0, 100, 100)

	assert.True(t, outer.ContainsRect(MakeRect(10, 10, 20, 20)))
	assert.True(t, outer.ContainsRect(outer))
	assert.False(t, outer.ContainsRect(MakeRect(90, 90, 20, 20)))
	assert.True(t, outer.ContainsRect(Rect{}))
}

func TestRectSetCoalesces(t *testing.T) {
	var set RectSet

	set.Add(MakeRect(0, 0, 100, 100))
	set.Add(MakeRect(10, 10, 20, 20)) // covered, dropped
	assert.Len(t, set.Rects(), 1)

	set.Add(MakeRect(200, 0, 50, 50))
	assert.Len(t, set.Rects(), 2)

	// A rect covering everything replaces all members
	set.Add(MakeRect(0, 0, 500, 500))
	assert.Len(t, set.Rects(), 1)
	assert.Equal(t, MakeRect(0, 0, 500, 500), set.Rects()[0])
}

func TestRectSetIgnoresEmpty(t *testing.T) {
	var set RectSet
	set.Add(Rect{})
	set.Add(MakeRect(5, 5, 0, 10))
	assert.True(t, set.IsEmpty())
}

func TestRectSetTake(t *testing.T) {
	var set RectSet
	set.Add(MakeRect(0, 0, 10, 10))

	taken := set.Take()
	assert.Len(t, taken, 1)
	assert.True(t, set.IsEmpty())
}

func TestRectSetBoundingRect(t *testing.T) {
	var set RectSet
	set.Add(MakeRect(0, 0, 10, 10))
	set.Add(MakeRect(30, 30, 10, 10))

	assert.Equal(t, MakeRect(0, 0, 40, 40), set.BoundingRect())
}

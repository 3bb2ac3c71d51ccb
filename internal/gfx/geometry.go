// Package gfx provides the integer geometry primitives shared by the
// window server core: points, sizes, rectangles, and disjoint rect sets
// used to coalesce pending invalidations.
package gfx

// Point is a location in screen coordinates.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns Width*Height.
func (s Size) Area() int {
	return s.Width * s.Height
}

// IsEmpty reports whether the size encloses no pixels.
func (s Size) IsEmpty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Rect is an axis-aligned rectangle in screen coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// MakeRect constructs a rectangle from origin and size.
func MakeRect(x, y, width, height int) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// Location returns the rectangle's origin.
func (r Rect) Location() Point {
	return Point{X: r.X, Y: r.Y}
}

// Size returns the rectangle's dimensions.
func (r Rect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// IsEmpty reports whether the rectangle encloses no pixels.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Right returns the first x coordinate past the rectangle.
func (r Rect) Right() int {
	return r.X + r.Width
}

// Bottom returns the first y coordinate past the rectangle.
func (r Rect) Bottom() int {
	return r.Y + r.Height
}

// Contains reports whether p lies inside the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.Right() && p.Y >= r.Y && p.Y < r.Bottom()
}

// ContainsRect reports whether other lies entirely inside r.
func (r Rect) ContainsRect(other Rect) bool {
	if other.IsEmpty() {
		return true
	}
	return other.X >= r.X && other.Y >= r.Y && other.Right() <= r.Right() && other.Bottom() <= r.Bottom()
}

// Intersects reports whether the two rectangles overlap.
func (r Rect) Intersects(other Rect) bool {
	return !r.Intersected(other).IsEmpty()
}

// Intersected returns the overlap of the two rectangles. The result is
// empty when they do not overlap.
func (r Rect) Intersected(other Rect) Rect {
	x := max(r.X, other.X)
	y := max(r.Y, other.Y)
	right := min(r.Right(), other.Right())
	bottom := min(r.Bottom(), other.Bottom())
	if right <= x || bottom <= y {
		return Rect{}
	}
	return Rect{X: x, Y: y, Width: right - x, Height: bottom - y}
}

// United returns the smallest rectangle enclosing both.
func (r Rect) United(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}
	x := min(r.X, other.X)
	y := min(r.Y, other.Y)
	right := max(r.Right(), other.Right())
	bottom := max(r.Bottom(), other.Bottom())
	return Rect{X: x, Y: y, Width: right - x, Height: bottom - y}
}

// Translated returns the rectangle moved by dx, dy.
func (r Rect) Translated(dx, dy int) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

// RectSet accumulates dirty rectangles, dropping rects already covered
// by a member. Insertion order is preserved for the surviving rects.
type RectSet struct {
	rects []Rect
}

// Add inserts a rectangle unless it is empty or already covered.
// Existing members covered by the new rectangle are dropped.
func (s *RectSet) Add(r Rect) {
	if r.IsEmpty() {
		return
	}
	kept := s.rects[:0]
	for _, existing := range s.rects {
		if existing.ContainsRect(r) {
			return
		}
		if !r.ContainsRect(existing) {
			kept = append(kept, existing)
		}
	}
	s.rects = append(kept, r)
}

// Rects returns the accumulated rectangles.
func (s *RectSet) Rects() []Rect {
	return s.rects
}

// IsEmpty reports whether the set holds no rectangles.
func (s *RectSet) IsEmpty() bool {
	return len(s.rects) == 0
}

// Take returns the accumulated rectangles and resets the set.
func (s *RectSet) Take() []Rect {
	rects := s.rects
	s.rects = nil
	return rects
}

// BoundingRect returns the union of all members.
func (s *RectSet) BoundingRect() Rect {
	var bounds Rect
	for _, r := range s.rects {
		bounds = bounds.United(r)
	}
	return bounds
}

package grid

// Package grid provides the rectangular occupancy model shared by the player
// inventory and the crafting tray. It only tracks which cells each placed item
// covers; item semantics live in package item.

import "github.com/gravitas-games/craftgrid/pkg/item"

// Point represents a grid coordinate (x, y) with origin at top-left.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Observer is notified after every successful mutation of a Grid.
type Observer interface {
	OnChanged(g *Grid)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(g *Grid)

// OnChanged calls f(g).
func (f ObserverFunc) OnChanged(g *Grid) { f(g) }

// PlacedItem is one instance of an item definition living in a grid.
// It is owned by exactly one Grid, or transiently by a drag session while
// lifted or detached.
type PlacedItem struct {
	def     *item.Definition
	count   int
	origin  Point
	rotated bool

	// owner is the grid that has this item registered; nil once detached.
	owner *Grid
	// lifted items are registered with owner but absent from its occupancy.
	lifted bool
	// home is the footprint a lifted item keeps reserved in its owner, so
	// the drag can always put it back.
	home        Point
	homeRotated bool
}

// Definition returns the item kind.
func (p *PlacedItem) Definition() *item.Definition { return p.def }

// Count returns the number of units in this stack.
func (p *PlacedItem) Count() int { return p.count }

// Origin returns the top-left cell of the footprint.
func (p *PlacedItem) Origin() Point { return p.origin }

// Rotated reports whether the footprint is rotated.
func (p *PlacedItem) Rotated() bool { return p.rotated }

// Owner returns the grid the item is registered with, or nil.
func (p *PlacedItem) Owner() *Grid { return p.owner }

// Lifted reports whether the item is registered but not occupying cells.
func (p *PlacedItem) Lifted() bool { return p.lifted }

// Settled reports whether the item currently occupies cells in its owner.
func (p *PlacedItem) Settled() bool { return p.owner != nil && !p.lifted }

// Size returns the effective footprint width and height.
func (p *PlacedItem) Size() (w, h int) {
	return p.def.Footprint(p.rotated)
}

// Covers reports whether the footprint at the item's origin includes (x, y).
func (p *PlacedItem) Covers(x, y int) bool {
	w, h := p.Size()
	return x >= p.origin.X && x < p.origin.X+w && y >= p.origin.Y && y < p.origin.Y+h
}

// Cells returns the footprint cells at the item's current origin.
func (p *PlacedItem) Cells() []Point {
	return footprint(p.def, p.origin.X, p.origin.Y, p.rotated)
}

// Turn toggles the rotation of an item that is not occupying cells.
// It refuses settled items (their occupancy would go stale) and definitions
// that cannot rotate.
func (p *PlacedItem) Turn() bool {
	if p == nil || p.Settled() || !p.def.CanRotate {
		return false
	}
	p.rotated = !p.rotated
	return true
}

// Take removes n units from the stack and returns how many were taken.
// The count never drops below zero; a zero-count item must be removed by
// its owner.
func (p *PlacedItem) Take(n int) int {
	if p == nil || n <= 0 {
		return 0
	}
	if n > p.count {
		n = p.count
	}
	p.count -= n
	return n
}

// Add merges up to n units into the stack, bounded by the definition's
// MaxStack, and returns how many were accepted.
func (p *PlacedItem) Add(n int) int {
	if p == nil || n <= 0 {
		return 0
	}
	room := p.def.MaxStack - p.count
	if room <= 0 {
		return 0
	}
	if n > room {
		n = room
	}
	p.count += n
	return n
}

// footprint lists every cell covered by def at (x, y).
func footprint(def *item.Definition, x, y int, rotated bool) []Point {
	w, h := def.Footprint(rotated)
	out := make([]Point, 0, w*h)
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			out = append(out, Point{X: x + dx, Y: y + dy})
		}
	}
	return out
}

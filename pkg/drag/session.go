package drag

// Package drag implements the single in-flight item state machine used to move
// items between positions and grids. A session lifts the item out of occupancy
// while it is held, so its old cells read as free, and restores it on Cancel.

import (
	"fmt"

	"github.com/gravitas-games/craftgrid/pkg/grid"
	"github.com/gravitas-games/craftgrid/pkg/item"
)

// State is the drag lifecycle state.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Outcome records how the last drag ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCommitted
	OutcomeCancelled
	OutcomeConsumed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeCommitted:
		return "committed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeConsumed:
		return "consumed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Session holds at most one item at a time.
type Session struct {
	state State
	last  Outcome

	held     *grid.PlacedItem
	origin   *grid.Grid
	startPos grid.Point
	startRot bool

	hoverGrid *grid.Grid
	hoverPos  grid.Point
}

// New returns an idle session.
func New() *Session {
	return &Session{}
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Active reports whether an item is held.
func (s *Session) Active() bool { return s.state == Dragging }

// LastOutcome reports how the previous drag ended.
func (s *Session) LastOutcome() Outcome { return s.last }

// Held returns the item being dragged, or nil.
func (s *Session) Held() *grid.PlacedItem { return s.held }

// Origin returns the grid the held item was picked up from.
func (s *Session) Origin() *grid.Grid { return s.origin }

// Start returns the pre-drag origin and rotation of the held item.
func (s *Session) Start() (grid.Point, bool) { return s.startPos, s.startRot }

// PickUp lifts the item covering (x, y) of g. It fails when a drag is already
// in progress or the cell is empty.
func (s *Session) PickUp(g *grid.Grid, x, y int) bool {
	if s.state != Idle || g == nil {
		return false
	}
	p := g.ItemAt(x, y)
	if p == nil {
		return false
	}
	s.held = p
	s.origin = g
	s.startPos = p.Origin()
	s.startRot = p.Rotated()
	s.hoverGrid = nil
	s.state = Dragging
	g.Lift(p)
	return true
}

// Rotate toggles the held item's rotation. No grid is touched; hover validity
// is recomputed from the new footprint on the next query.
func (s *Session) Rotate() bool {
	if s.state != Dragging {
		return false
	}
	return s.held.Turn()
}

// Hover records the preview target.
func (s *Session) Hover(g *grid.Grid, x, y int) {
	if s.state != Dragging {
		return
	}
	s.hoverGrid = g
	s.hoverPos = grid.Point{X: x, Y: y}
}

// ClearHover drops the preview target.
func (s *Session) ClearHover() {
	s.hoverGrid = nil
	s.hoverPos = grid.Point{}
}

// HoverTarget returns the current preview target.
func (s *Session) HoverTarget() (*grid.Grid, grid.Point, bool) {
	if s.state != Dragging || s.hoverGrid == nil {
		return nil, grid.Point{}, false
	}
	return s.hoverGrid, s.hoverPos, true
}

// HoverValid reports whether committing at the hover target would succeed.
func (s *Session) HoverValid() bool {
	g, p, ok := s.HoverTarget()
	return ok && s.CanDrop(g, p.X, p.Y)
}

// CrossGrid reports whether the hover target is a grid other than the origin.
func (s *Session) CrossGrid() bool {
	g, _, ok := s.HoverTarget()
	return ok && g != s.origin
}

// CanDrop reports whether the held item, with its current rotation, fits at
// (x, y) of g. Its own reserved home cells count as free.
func (s *Session) CanDrop(g *grid.Grid, x, y int) bool {
	if s.state != Dragging || g == nil {
		return false
	}
	return g.CanPlace(s.held.Definition(), x, y, s.held.Rotated(), s.held)
}

// Commit places the held item at (x, y) of g. On failure the drag continues
// unchanged.
func (s *Session) Commit(g *grid.Grid, x, y int) bool {
	if !s.CanDrop(g, x, y) {
		return false
	}
	p := s.held
	if g != s.origin {
		s.origin.Detach(p)
	}
	if !g.Settle(p, x, y, p.Rotated()) {
		panic(fmt.Sprintf("drag: settle of %s at (%d,%d) failed after validation", p.Definition(), x, y))
	}
	s.finish(OutcomeCommitted)
	return true
}

// Cancel returns the held item to its original position and rotation.
func (s *Session) Cancel() {
	if s.state != Dragging {
		return
	}
	p := s.held
	if !s.origin.Settle(p, s.startPos.X, s.startPos.Y, s.startRot) {
		panic(fmt.Sprintf("drag: cannot restore %s to (%d,%d) of grid %s", p.Definition(), s.startPos.X, s.startPos.Y, s.origin.ID()))
	}
	s.finish(OutcomeCancelled)
}

// ConsumeOne removes a single unit from the held stack and returns its
// definition. When the stack runs out the item is detached from its origin
// and the drag ends.
func (s *Session) ConsumeOne() (*item.Definition, bool) {
	if s.state != Dragging {
		return nil, false
	}
	p := s.held
	def := p.Definition()
	if p.Take(1) == 0 {
		return nil, false
	}
	if p.Count() == 0 {
		s.origin.Detach(p)
		s.finish(OutcomeConsumed)
	}
	return def, true
}

// DropOne places a single unit of the held kind at (x, y) of g and consumes
// it from the held stack. Only stackable single-cell items split this way.
// The held item's home cells stay reserved, so the unit cannot land there.
func (s *Session) DropOne(g *grid.Grid, x, y int) *grid.PlacedItem {
	if s.state != Dragging || g == nil {
		return nil
	}
	def := s.held.Definition()
	if !def.SingleCell() || !def.Stackable() {
		return nil
	}
	placed := g.PlaceNew(def, 1, x, y, false)
	if placed == nil {
		return nil
	}
	s.ConsumeOne()
	return placed
}

// Abandon ends the drag without touching any grid. It is used when the origin
// grid dropped the item on its own, for example through Resize.
func (s *Session) Abandon() {
	if s.state != Dragging {
		return
	}
	s.finish(OutcomeNone)
}

func (s *Session) finish(o Outcome) {
	s.state = Idle
	s.last = o
	s.held = nil
	s.origin = nil
	s.startPos = grid.Point{}
	s.startRot = false
	s.hoverGrid = nil
	s.hoverPos = grid.Point{}
}

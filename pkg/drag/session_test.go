package drag

import (
	"testing"

	"github.com/gravitas-games/craftgrid/pkg/grid"
	"github.com/gravitas-games/craftgrid/pkg/item"
)

var (
	rod   = &item.Definition{ID: "rod", Width: 1, Height: 3, MaxStack: 1, CanRotate: true}
	crate = &item.Definition{ID: "crate", Width: 2, Height: 2, MaxStack: 1}
	seed  = &item.Definition{ID: "seed", Width: 1, Height: 1, MaxStack: 5}
	slab  = &item.Definition{ID: "slab", Width: 2, Height: 1, MaxStack: 1, CanRotate: false}
)

func TestPickUpRequiresItem(t *testing.T) {
	g := grid.New("inventory", 4, 4)
	s := New()
	if s.PickUp(g, 0, 0) {
		t.Fatalf("expected pick up of empty cell to fail")
	}
	p := g.PlaceNew(rod, 1, 0, 0, false)
	if !s.PickUp(g, 0, 2) {
		t.Fatalf("expected pick up from any covered cell")
	}
	if s.State() != Dragging || s.Held() != p || !p.Lifted() {
		t.Fatalf("expected dragging with rod lifted")
	}
	if g.ItemAt(0, 0) != nil {
		t.Fatalf("expected lifted cells to read empty")
	}
	if s.PickUp(g, 0, 0) {
		t.Fatalf("expected second pick up to fail while dragging")
	}
}

func TestCancelIsLossless(t *testing.T) {
	g := grid.New("inventory", 4, 4)
	p := g.PlaceNew(rod, 1, 1, 0, false)
	g.PlaceNew(crate, 1, 2, 2, false)

	s := New()
	s.PickUp(g, 1, 1)
	if !s.Rotate() {
		t.Fatalf("expected rotation of rod")
	}
	s.Hover(g, 0, 3)
	s.Cancel()

	if s.State() != Idle || s.LastOutcome() != OutcomeCancelled {
		t.Fatalf("expected idle after cancel, got %s/%s", s.State(), s.LastOutcome())
	}
	if p.Origin() != (grid.Point{X: 1, Y: 0}) || p.Rotated() || !p.Settled() {
		t.Fatalf("expected rod restored at (1,0) unrotated, got %+v rotated=%v", p.Origin(), p.Rotated())
	}
	for y := 0; y < 3; y++ {
		if g.ItemAt(1, y) != p {
			t.Fatalf("expected (1,%d) to hold rod after cancel", y)
		}
	}
	if err := g.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestCommitWithinGrid(t *testing.T) {
	g := grid.New("inventory", 4, 4)
	p := g.PlaceNew(rod, 1, 0, 0, false)
	s := New()
	s.PickUp(g, 0, 0)

	// Overlapping its own old cells is fine; they are reserved for it.
	if !s.CanDrop(g, 0, 1) {
		t.Fatalf("expected drop over own lifted cells to be valid")
	}
	if s.Commit(g, 0, 2) {
		t.Fatalf("expected out of bounds commit to fail")
	}
	if s.State() != Dragging {
		t.Fatalf("expected failed commit to keep dragging")
	}
	if !s.Commit(g, 3, 1) {
		t.Fatalf("expected commit at (3,1)")
	}
	if g.ItemAt(3, 3) != p || g.ItemAt(0, 0) != nil {
		t.Fatalf("expected rod moved to column 3")
	}
	if s.LastOutcome() != OutcomeCommitted {
		t.Fatalf("expected committed outcome, got %s", s.LastOutcome())
	}
	if err := g.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestCommitAcrossGrids(t *testing.T) {
	inv := grid.New("inventory", 6, 10)
	tray := grid.New("tray", 3, 3)
	p := inv.PlaceNew(crate, 1, 4, 8, false)

	s := New()
	s.PickUp(inv, 5, 9)
	s.Hover(tray, 2, 2)
	if !s.CrossGrid() {
		t.Fatalf("expected hover over tray to be cross grid")
	}
	if s.HoverValid() {
		t.Fatalf("expected (2,2) to be invalid for a 2x2 in a 3x3 tray")
	}
	s.Hover(tray, 1, 1)
	if !s.HoverValid() {
		t.Fatalf("expected (1,1) to be valid")
	}
	if !s.Commit(tray, 1, 1) {
		t.Fatalf("expected cross grid commit")
	}
	if p.Owner() != tray || inv.Len() != 0 || inv.Lifted() != 0 {
		t.Fatalf("expected crate to belong to tray only")
	}
	if tray.ItemAt(2, 2) != p {
		t.Fatalf("expected crate to cover (2,2)")
	}
	for _, g := range []*grid.Grid{inv, tray} {
		if err := g.Verify(); err != nil {
			t.Fatalf("verify: %v", err)
		}
	}
}

func TestRotateRechecksHover(t *testing.T) {
	g := grid.New("inventory", 3, 3)
	g.PlaceNew(rod, 1, 0, 0, false)
	s := New()
	s.PickUp(g, 0, 0)
	s.Hover(g, 0, 2)
	if s.HoverValid() {
		t.Fatalf("expected vertical rod at row 2 to be invalid")
	}
	s.Rotate()
	if !s.HoverValid() {
		t.Fatalf("expected rotated rod at row 2 to be valid")
	}
	if !s.Commit(g, 0, 2) {
		t.Fatalf("expected rotated commit")
	}
	if g.ItemAt(2, 2) == nil || g.ItemAt(0, 0) != nil {
		t.Fatalf("expected rod laid along bottom row")
	}
}

func TestRotateRefusesFixedItems(t *testing.T) {
	g := grid.New("inventory", 3, 3)
	g.PlaceNew(slab, 1, 0, 0, false)
	s := New()
	s.PickUp(g, 0, 0)
	if s.Rotate() {
		t.Fatalf("expected fixed slab rotation to be refused")
	}
	if s.Held().Rotated() {
		t.Fatalf("expected slab to stay unrotated")
	}
}

func TestConsumeOneAndDropOne(t *testing.T) {
	inv := grid.New("inventory", 4, 4)
	tray := grid.New("tray", 3, 3)
	p := inv.PlaceNew(seed, 3, 0, 0, false)

	s := New()
	s.PickUp(inv, 0, 0)
	one := s.DropOne(tray, 1, 1)
	if one == nil || one.Count() != 1 || one.Definition() != seed {
		t.Fatalf("expected a single seed in the tray")
	}
	if p.Count() != 2 || s.State() != Dragging {
		t.Fatalf("expected 2 seeds still held, got %d", p.Count())
	}
	if s.DropOne(tray, 1, 1) != nil {
		t.Fatalf("expected drop on occupied cell to fail")
	}
	if def, ok := s.ConsumeOne(); !ok || def != seed {
		t.Fatalf("expected to consume a seed")
	}
	if def, ok := s.ConsumeOne(); !ok || def != seed {
		t.Fatalf("expected to consume the last seed")
	}
	if s.State() != Idle || s.LastOutcome() != OutcomeConsumed {
		t.Fatalf("expected idle after exhausting the stack")
	}
	if p.Owner() != nil || inv.Lifted() != 0 || inv.Len() != 0 {
		t.Fatalf("expected exhausted stack detached from inventory")
	}
	if _, ok := s.ConsumeOne(); ok {
		t.Fatalf("expected consume while idle to fail")
	}
}

func TestCancelAfterDropOneIntoOrigin(t *testing.T) {
	g := grid.New("inventory", 3, 1)
	p := g.PlaceNew(seed, 5, 0, 0, false)

	s := New()
	s.PickUp(g, 0, 0)
	if s.DropOne(g, 0, 0) != nil {
		t.Fatalf("expected drop onto the held stack's home cell to fail")
	}
	if one := s.DropOne(g, 1, 0); one == nil || one.Count() != 1 {
		t.Fatalf("expected a single seed at (1,0)")
	}
	s.Cancel()

	if s.LastOutcome() != OutcomeCancelled || !p.Settled() {
		t.Fatalf("expected seeds restored, got %s", s.LastOutcome())
	}
	if p.Origin() != (grid.Point{X: 0, Y: 0}) || p.Count() != 4 || g.ItemAt(0, 0) != p {
		t.Fatalf("expected 4 seeds back at (0,0), got %d at %+v", p.Count(), p.Origin())
	}
	if err := g.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestCancelAfterOriginFillsUp(t *testing.T) {
	g := grid.New("inventory", 2, 3)
	p := g.PlaceNew(rod, 1, 0, 0, false)

	s := New()
	s.PickUp(g, 0, 1)
	s.Rotate()
	for i := 0; i < 6; i++ {
		g.PlaceAnywhere(seed, 1)
	}
	if g.Len() != 3 {
		t.Fatalf("expected only the free column to fill, got %d items", g.Len())
	}
	s.Cancel()

	if p.Origin() != (grid.Point{X: 0, Y: 0}) || p.Rotated() || !p.Settled() {
		t.Fatalf("expected rod restored at (0,0) unrotated, got %+v rotated=%v", p.Origin(), p.Rotated())
	}
	if err := g.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestDropOneNeedsStackableSingleCell(t *testing.T) {
	inv := grid.New("inventory", 4, 4)
	tray := grid.New("tray", 3, 3)
	inv.PlaceNew(rod, 1, 0, 0, false)
	inv.PlaceNew(&item.Definition{ID: "pebble", Width: 1, Height: 1, MaxStack: 1}, 1, 3, 3, false)

	s := New()
	s.PickUp(inv, 0, 0)
	if s.DropOne(tray, 0, 0) != nil {
		t.Fatalf("expected multi-cell item to refuse drop one")
	}
	s.Cancel()

	s.PickUp(inv, 3, 3)
	if s.DropOne(tray, 0, 0) != nil {
		t.Fatalf("expected non-stackable item to refuse drop one")
	}
	s.Cancel()
	if tray.Len() != 0 || inv.Len() != 2 {
		t.Fatalf("refused drops must leave both grids untouched")
	}
}

func TestIdleOperationsAreNoops(t *testing.T) {
	g := grid.New("inventory", 2, 2)
	s := New()
	if s.Rotate() || s.Commit(g, 0, 0) || s.CanDrop(g, 0, 0) || s.HoverValid() {
		t.Fatalf("expected idle session to refuse all operations")
	}
	s.Hover(g, 0, 0)
	if _, _, ok := s.HoverTarget(); ok {
		t.Fatalf("expected no hover target while idle")
	}
	s.Cancel()
	if s.LastOutcome() != OutcomeNone {
		t.Fatalf("expected no outcome, got %s", s.LastOutcome())
	}
}

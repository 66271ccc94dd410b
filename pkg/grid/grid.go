package grid

import (
	"fmt"

	"github.com/gravitas-games/craftgrid/pkg/item"
)

// Grid is a fixed-size occupancy map plus the items it hosts. The same type
// backs both the player inventory and the crafting tray.
//
// Grid is not safe for concurrent use; callers serialize access.
type Grid struct {
	id     string
	width  int
	height int

	// cells is row-major: index = y*width + x.
	cells []*PlacedItem
	// items holds every registered item, settled or lifted.
	items []*PlacedItem

	observers []observerEntry
	nextObs   int
}

type observerEntry struct {
	id  int
	obs Observer
}

// Option configures grid construction.
type Option func(*Grid)

// WithObserver subscribes an observer at construction time.
func WithObserver(o Observer) Option {
	return func(g *Grid) {
		g.Observe(o)
	}
}

// New creates an empty width x height grid. Non-positive sizes are treated as 1.
func New(id string, width, height int, opts ...Option) *Grid {
	g := &Grid{id: id}
	g.alloc(width, height)
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

func (g *Grid) alloc(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	g.width = width
	g.height = height
	g.cells = make([]*PlacedItem, width*height)
}

// ID returns the grid identifier.
func (g *Grid) ID() string { return g.id }

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// Observe registers o for change notifications and returns a function that
// unsubscribes it.
func (g *Grid) Observe(o Observer) (cancel func()) {
	if o == nil {
		return func() {}
	}
	g.nextObs++
	id := g.nextObs
	g.observers = append(g.observers, observerEntry{id: id, obs: o})
	return func() {
		for i, e := range g.observers {
			if e.id == id {
				g.observers = append(g.observers[:i:i], g.observers[i+1:]...)
				return
			}
		}
	}
}

func (g *Grid) notify() {
	if len(g.observers) == 0 {
		return
	}
	snapshot := make([]observerEntry, len(g.observers))
	copy(snapshot, g.observers)
	for _, e := range snapshot {
		e.obs.OnChanged(g)
	}
}

func (g *Grid) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.width && y < g.height
}

// ItemAt returns the item occupying (x, y), or nil for empty or
// out-of-bounds cells.
func (g *Grid) ItemAt(x, y int) *PlacedItem {
	if !g.inBounds(x, y) {
		return nil
	}
	return g.cells[y*g.width+x]
}

// DefinitionAt returns the definition of the item at (x, y), or nil.
func (g *Grid) DefinitionAt(x, y int) *item.Definition {
	if p := g.ItemAt(x, y); p != nil {
		return p.def
	}
	return nil
}

// CanPlace reports whether def fits at (x, y) with the given rotation.
// Cells occupied or reserved by ignore are treated as free. The home cells of
// lifted items stay reserved until they are settled or detached.
func (g *Grid) CanPlace(def *item.Definition, x, y int, rotated bool, ignore *PlacedItem) bool {
	if def == nil {
		return false
	}
	w, h := def.Footprint(rotated)
	if x < 0 || y < 0 || x+w > g.width || y+h > g.height {
		return false
	}
	for dy := 0; dy < h; dy++ {
		row := (y + dy) * g.width
		for dx := 0; dx < w; dx++ {
			if occ := g.cells[row+x+dx]; occ != nil && occ != ignore {
				return false
			}
		}
	}
	return !g.reserved(x, y, w, h, ignore)
}

// reserved reports whether the w x h rectangle at (x, y) overlaps the home
// footprint of a lifted item other than ignore.
func (g *Grid) reserved(x, y, w, h int, ignore *PlacedItem) bool {
	for _, p := range g.items {
		if !p.lifted || p == ignore {
			continue
		}
		pw, ph := p.def.Footprint(p.homeRotated)
		if x < p.home.X+pw && p.home.X < x+w && y < p.home.Y+ph && p.home.Y < y+h {
			return true
		}
	}
	return false
}

// Reserved reports whether (x, y) belongs to the home footprint of a lifted
// item.
func (g *Grid) Reserved(x, y int) bool {
	return g.inBounds(x, y) && g.reserved(x, y, 1, 1, nil)
}

// PlaceNew creates a new item of def at (x, y). It returns nil when the
// footprint does not fit. count is clamped to [1, MaxStack].
func (g *Grid) PlaceNew(def *item.Definition, count, x, y int, rotated bool) *PlacedItem {
	if !g.CanPlace(def, x, y, rotated, nil) {
		return nil
	}
	p := &PlacedItem{
		def:     def,
		count:   def.ClampCount(count),
		origin:  Point{X: x, Y: y},
		rotated: rotated,
		owner:   g,
	}
	g.items = append(g.items, p)
	g.fill(p, true)
	g.notify()
	return p
}

// PlaceAnywhere places a new item at the first origin that fits, scanning
// rows top to bottom and columns left to right. The unrotated footprint is
// tried over the whole grid before the rotated one.
func (g *Grid) PlaceAnywhere(def *item.Definition, count int) *PlacedItem {
	if def == nil {
		return nil
	}
	p, ok := g.firstFit(def, false)
	rotated := false
	if !ok && def.CanRotate && def.Width != def.Height {
		p, ok = g.firstFit(def, true)
		rotated = true
	}
	if !ok {
		return nil
	}
	return g.PlaceNew(def, count, p.X, p.Y, rotated)
}

// firstFit scans the grid row-major and returns an origin where def fits.
func (g *Grid) firstFit(def *item.Definition, rotated bool) (Point, bool) {
	w, h := def.Footprint(rotated)
	for y := 0; y <= g.height-h; y++ {
		for x := 0; x <= g.width-w; x++ {
			if g.CanPlace(def, x, y, rotated, nil) {
				return Point{X: x, Y: y}, true
			}
		}
	}
	return Point{}, false
}

// Stow adds count units of def, topping up existing stacks of the same kind
// before placing new stacks wherever they fit. It returns the units that
// could not be stored.
func (g *Grid) Stow(def *item.Definition, count int) (left int) {
	if def == nil || count <= 0 {
		return 0
	}
	left = count
	if def.Stackable() {
		for _, p := range g.items {
			if left == 0 {
				break
			}
			if p.def == def && !p.lifted {
				left -= p.Add(left)
			}
		}
		if left < count {
			g.notify()
		}
	}
	for left > 0 {
		n := def.ClampCount(left)
		if g.PlaceAnywhere(def, n) == nil {
			break
		}
		left -= n
	}
	return left
}

// Move relocates a settled item. On failure the grid is left exactly as it
// was before the call.
func (g *Grid) Move(p *PlacedItem, x, y int, rotated bool) bool {
	if p == nil || p.owner != g || p.lifted {
		return false
	}
	g.fill(p, false)
	if !g.CanPlace(p.def, x, y, rotated, p) {
		g.fill(p, true)
		return false
	}
	p.origin = Point{X: x, Y: y}
	p.rotated = rotated
	g.fill(p, true)
	g.notify()
	return true
}

// Remove clears the item's footprint and unregisters it.
func (g *Grid) Remove(p *PlacedItem) {
	if p == nil || p.owner != g {
		return
	}
	g.release(p)
	g.notify()
}

// RemoveAt removes whichever item covers (x, y).
func (g *Grid) RemoveAt(x, y int) {
	g.Remove(g.ItemAt(x, y))
}

// Lift clears the item's footprint but keeps it registered, so a drag in
// progress can still address it while its old cells read as empty. The old
// cells stay reserved: nothing else can be placed there until the item is
// settled or detached.
func (g *Grid) Lift(p *PlacedItem) {
	if p == nil || p.owner != g || p.lifted {
		return
	}
	g.fill(p, false)
	p.lifted = true
	p.home = p.origin
	p.homeRotated = p.rotated
	g.notify()
}

// Settle writes a lifted item of this grid, or a detached item, back into
// occupancy at (x, y). It fails without side effects when the footprint
// does not fit.
func (g *Grid) Settle(p *PlacedItem, x, y int, rotated bool) bool {
	if p == nil {
		return false
	}
	switch {
	case p.owner == g && p.lifted:
	case p.owner == nil:
	default:
		return false
	}
	if !g.CanPlace(p.def, x, y, rotated, p) {
		return false
	}
	if p.owner == nil {
		p.owner = g
		g.items = append(g.items, p)
	}
	p.origin = Point{X: x, Y: y}
	p.rotated = rotated
	p.lifted = false
	g.fill(p, true)
	g.notify()
	return true
}

// Detach unregisters an item without discarding it, so another grid can
// Settle it. Settled items have their footprint cleared first.
func (g *Grid) Detach(p *PlacedItem) {
	if p == nil || p.owner != g {
		return
	}
	g.release(p)
	g.notify()
}

// Clear removes every settled item with a single notification. Lifted items
// stay registered with their drag session.
func (g *Grid) Clear() {
	kept := g.items[:0]
	removed := 0
	for _, p := range g.items {
		if p.lifted {
			kept = append(kept, p)
			continue
		}
		g.fill(p, false)
		p.owner = nil
		removed++
	}
	for i := len(kept); i < len(g.items); i++ {
		g.items[i] = nil
	}
	g.items = kept
	if removed > 0 {
		g.notify()
	}
}

// Resize changes the grid size and drops all contents, lifted items included.
func (g *Grid) Resize(width, height int) {
	for _, p := range g.items {
		p.owner = nil
		p.lifted = false
	}
	g.items = nil
	g.alloc(width, height)
	g.notify()
}

// Items returns the settled items in insertion order.
func (g *Grid) Items() []*PlacedItem {
	out := make([]*PlacedItem, 0, len(g.items))
	for _, p := range g.items {
		if !p.lifted {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of settled items.
func (g *Grid) Len() int {
	n := 0
	for _, p := range g.items {
		if !p.lifted {
			n++
		}
	}
	return n
}

// Empty reports whether no item occupies any cell.
func (g *Grid) Empty() bool { return g.Len() == 0 }

// Lifted returns the number of registered items currently out of occupancy.
func (g *Grid) Lifted() int { return len(g.items) - g.Len() }

// release clears occupancy (when settled) and unregisters p.
func (g *Grid) release(p *PlacedItem) {
	if !p.lifted {
		g.fill(p, false)
	}
	for i, it := range g.items {
		if it == p {
			g.items = append(g.items[:i], g.items[i+1:]...)
			break
		}
	}
	p.owner = nil
	p.lifted = false
}

// fill writes (occupy=true) or clears the item's footprint. Writing over a
// cell owned by another item means the occupancy invariant is already broken.
func (g *Grid) fill(p *PlacedItem, occupy bool) {
	w, h := p.Size()
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			x, y := p.origin.X+dx, p.origin.Y+dy
			if !g.inBounds(x, y) {
				panic(fmt.Sprintf("grid %s: footprint of %s at (%d,%d) leaves bounds", g.id, p.def, x, y))
			}
			idx := y*g.width + x
			if occupy {
				if occ := g.cells[idx]; occ != nil && occ != p {
					panic(fmt.Sprintf("grid %s: cell (%d,%d) already held by %s", g.id, x, y, occ.def))
				}
				g.cells[idx] = p
			} else if g.cells[idx] == p {
				g.cells[idx] = nil
			}
		}
	}
}

// Verify checks the occupancy invariants: every occupied cell points at a
// settled item of this grid whose footprint covers it, and every settled
// item's footprint is fully reflected in occupancy.
func (g *Grid) Verify() error {
	registered := make(map[*PlacedItem]bool, len(g.items))
	for _, p := range g.items {
		if p.owner != g {
			return fmt.Errorf("grid %s: item %s registered but owned elsewhere", g.id, p.def)
		}
		registered[p] = true
	}
	covered := 0
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			p := g.cells[y*g.width+x]
			if p == nil {
				continue
			}
			if !registered[p] || p.lifted {
				return fmt.Errorf("grid %s: cell (%d,%d) points at unregistered or lifted item %s", g.id, x, y, p.def)
			}
			if !p.Covers(x, y) {
				return fmt.Errorf("grid %s: cell (%d,%d) outside footprint of %s", g.id, x, y, p.def)
			}
			covered++
		}
	}
	want := 0
	for _, p := range g.items {
		if p.lifted {
			continue
		}
		for _, c := range p.Cells() {
			if g.ItemAt(c.X, c.Y) != p {
				return fmt.Errorf("grid %s: footprint cell (%d,%d) of %s not in occupancy", g.id, c.X, c.Y, p.def)
			}
		}
		w, h := p.Size()
		want += w * h
	}
	if covered != want {
		return fmt.Errorf("grid %s: %d occupied cells, footprints cover %d", g.id, covered, want)
	}
	for _, p := range g.items {
		if p.lifted {
			continue
		}
		w, h := p.Size()
		if g.reserved(p.origin.X, p.origin.Y, w, h, nil) {
			return fmt.Errorf("grid %s: %s overlaps the reserved cells of a lifted item", g.id, p.def)
		}
	}
	return nil
}

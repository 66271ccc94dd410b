package recipe

import "github.com/gravitas-games/craftgrid/pkg/item"

// Tray is the read-only view of a crafting grid the matcher needs.
// *grid.Grid satisfies it.
type Tray interface {
	Width() int
	Height() int
	DefinitionAt(x, y int) *item.Definition
}

// Match is a recipe matched at a pattern offset within the tray.
type Match struct {
	Recipe  *Definition
	OffsetX int
	OffsetY int
}

// FindMatch returns the first recipe in list order whose gating accepts the
// equipped container and tool and whose pattern matches the tray at some
// offset with nothing outside the pattern window. Offsets are scanned row by
// row, so for a given recipe the smallest offsetY wins, then the smallest
// offsetX.
func FindMatch(tray Tray, recipes []*Definition, container, tool *item.Definition) (Match, bool) {
	if tray == nil {
		return Match{}, false
	}
	tw, th := tray.Width(), tray.Height()
	for _, r := range recipes {
		if r == nil {
			continue
		}
		if r.Container != nil && r.Container != container {
			continue
		}
		if r.Tool != nil && r.Tool != tool {
			continue
		}
		if r.Width > tw || r.Height > th {
			continue
		}
		for oy := 0; oy <= th-r.Height; oy++ {
			for ox := 0; ox <= tw-r.Width; ox++ {
				if matchesAt(tray, r, ox, oy) {
					return Match{Recipe: r, OffsetX: ox, OffsetY: oy}, true
				}
			}
		}
	}
	return Match{}, false
}

// matchesAt checks pattern equality inside the window and emptiness outside it.
func matchesAt(tray Tray, r *Definition, ox, oy int) bool {
	tw, th := tray.Width(), tray.Height()
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			got := tray.DefinitionAt(x, y)
			px, py := x-ox, y-oy
			if px >= 0 && py >= 0 && px < r.Width && py < r.Height {
				if got != r.Need(px, py) {
					return false
				}
			} else if got != nil {
				return false
			}
		}
	}
	return true
}

// Footprint lists the occupied tray cells inside the matched window. A
// multi-cell item shows up once per covered cell.
func Footprint(tray Tray, m Match) []Cell {
	if m.Recipe == nil || tray == nil {
		return nil
	}
	var out []Cell
	for py := 0; py < m.Recipe.Height; py++ {
		for px := 0; px < m.Recipe.Width; px++ {
			x, y := m.OffsetX+px, m.OffsetY+py
			if tray.DefinitionAt(x, y) != nil {
				out = append(out, Cell{X: x, Y: y})
			}
		}
	}
	return out
}

// Cell is a tray coordinate.
type Cell struct {
	X int
	Y int
}

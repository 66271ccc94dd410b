package workbench

import (
	"github.com/gravitas-games/craftgrid/pkg/grid"
	"github.com/gravitas-games/craftgrid/pkg/recipe"
)

// Craft turns the tray contents into a result. The first matching recipe
// wins; a non-empty tray that matches nothing produces the fallback recipe.
// The result is held until CollectResult or DiscardResult.
func (s *Station) Craft() (Result, error) {
	if s.tray.Empty() {
		return Result{}, ErrTrayEmpty
	}
	if s.result != nil {
		return Result{}, ErrResultPending
	}

	var res Result
	m, ok := s.library.Find(s.tray, s.Container(), s.tool)
	switch {
	case ok:
		res = Result{Recipe: m.Recipe, Output: m.Recipe.Output, Count: m.Recipe.OutputCount}
	case s.library.Fallback() != nil:
		fb := s.library.Fallback()
		res = Result{Recipe: fb, Output: fb.Output, Count: fb.OutputCount, Fallback: true}
	default:
		return Result{}, ErrNoRecipe
	}

	if ok && s.consumePattern {
		s.consumeWindow(m)
	} else {
		s.tray.Clear()
	}

	s.result = &res
	s.publish(Event{
		Type:     EventCrafted,
		Recipe:   string(res.Recipe.ID),
		Item:     string(res.Output.ID),
		Count:    res.Count,
		Fallback: res.Fallback,
	})
	return res, nil
}

// consumeWindow removes every tray item overlapping the matched pattern.
func (s *Station) consumeWindow(m recipe.Match) {
	seen := make(map[*grid.PlacedItem]bool)
	for _, c := range recipe.Footprint(s.tray, m) {
		p := s.tray.ItemAt(c.X, c.Y)
		if p == nil || seen[p] {
			continue
		}
		seen[p] = true
		s.tray.Remove(p)
	}
}

// CollectResult moves the pending result into the inventory at the first
// position that fits. Outputs larger than one stack are split; if any part
// does not fit nothing is placed.
func (s *Station) CollectResult() (*grid.PlacedItem, error) {
	if s.result == nil {
		return nil, ErrNoResult
	}
	res := *s.result
	var placed []*grid.PlacedItem
	for left := max(res.Count, 1); left > 0; {
		n := res.Output.ClampCount(left)
		p := s.inventory.PlaceAnywhere(res.Output, n)
		if p == nil {
			for _, q := range placed {
				s.inventory.Remove(q)
			}
			return nil, ErrInventoryFull
		}
		placed = append(placed, p)
		left -= n
	}
	s.result = nil
	s.publish(Event{
		Type:   EventResultCollected,
		Recipe: string(res.Recipe.ID),
		Item:   string(res.Output.ID),
		Count:  res.Count,
	})
	return placed[0], nil
}

// DiscardResult throws the pending result away.
func (s *Station) DiscardResult() error {
	if s.result == nil {
		return ErrNoResult
	}
	res := *s.result
	s.result = nil
	s.publish(Event{
		Type:   EventResultDiscarded,
		Recipe: string(res.Recipe.ID),
		Item:   string(res.Output.ID),
		Count:  res.Count,
	})
	return nil
}

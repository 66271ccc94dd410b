package recipe

import (
	"errors"
	"sync"

	"github.com/gravitas-games/craftgrid/pkg/item"
)

// Library stores recipes in registration order with thread-safe access.
// Order is significant: the matcher tries recipes front to back.
type Library struct {
	mu       sync.RWMutex
	order    []*Definition
	byID     map[ID]*Definition
	byOutput map[*item.Definition][]ID

	maxWidth  int
	maxHeight int
	fallback  *Definition
}

// NewLibrary creates an empty library. Patterns wider or taller than
// maxWidth x maxHeight are rejected; zero disables the bound.
func NewLibrary(maxWidth, maxHeight int) *Library {
	return &Library{
		byID:      make(map[ID]*Definition),
		byOutput:  make(map[*item.Definition][]ID),
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
	}
}

// Register adds a recipe at the end of the list, or replaces an existing one
// with the same ID in place.
func (l *Library) Register(r *Definition) error {
	if err := r.Validate(l.maxWidth, l.maxHeight); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.byID[r.ID]; ok {
		l.removeIndex(existing)
		for i, o := range l.order {
			if o == existing {
				l.order[i] = r
				break
			}
		}
	} else {
		l.order = append(l.order, r)
	}
	l.byID[r.ID] = r
	l.byOutput[r.Output] = append(l.byOutput[r.Output], r.ID)
	if l.fallback != nil && l.fallback.ID == r.ID {
		l.fallback = r
	}
	return nil
}

// removeIndex drops r from the output index (caller must hold lock).
func (l *Library) removeIndex(r *Definition) {
	ids := l.byOutput[r.Output]
	kept := make([]ID, 0, len(ids))
	for _, id := range ids {
		if id != r.ID {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		delete(l.byOutput, r.Output)
		return
	}
	l.byOutput[r.Output] = kept
}

// Remove deletes a recipe. Removing the fallback clears it.
func (l *Library) Remove(id ID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.byID[id]
	if !ok {
		return false
	}
	l.removeIndex(r)
	delete(l.byID, id)
	for i, o := range l.order {
		if o == r {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	if l.fallback == r {
		l.fallback = nil
	}
	return true
}

// Lookup returns a recipe by ID.
func (l *Library) Lookup(id ID) (*Definition, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.byID[id]
	return r, ok
}

// All returns the recipes in match order.
func (l *Library) All() []*Definition {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Definition, len(l.order))
	copy(out, l.order)
	return out
}

// ByOutput returns all recipes producing def, in match order.
func (l *Library) ByOutput(def *item.Definition) []*Definition {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := l.byOutput[def]
	if len(ids) == 0 {
		return nil
	}
	out := make([]*Definition, 0, len(ids))
	for _, r := range l.order {
		if r.Output == def {
			out = append(out, r)
		}
	}
	return out
}

// Count returns the number of recipes.
func (l *Library) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// SetFallback selects the recipe crafted when a non-empty tray matches
// nothing. The recipe must already be registered. An empty id clears it.
func (l *Library) SetFallback(id ID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id == "" {
		l.fallback = nil
		return nil
	}
	r, ok := l.byID[id]
	if !ok {
		return errors.New("recipe: fallback not registered: " + string(id))
	}
	l.fallback = r
	return nil
}

// Fallback returns the fallback recipe, or nil.
func (l *Library) Fallback() *Definition {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fallback
}

// Find runs FindMatch over the library in order.
func (l *Library) Find(tray Tray, container, tool *item.Definition) (Match, bool) {
	return FindMatch(tray, l.All(), container, tool)
}

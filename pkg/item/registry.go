package item

import (
	"errors"
	"sort"
	"sync"
)

// Registry stores item definitions keyed by ID and hands out numeric handles.
// Definitions returned by the registry are shared; callers must not mutate them.
type Registry struct {
	mu     sync.RWMutex
	items  map[ID]*Definition
	byNum  map[NumericID]ID
	nextID NumericID
}

// NewRegistry constructs an empty registry and optionally seeds it with
// definitions. Invalid or conflicting seeds are skipped.
func NewRegistry(defs ...*Definition) *Registry {
	r := &Registry{
		items: make(map[ID]*Definition, len(defs)),
		byNum: make(map[NumericID]ID, len(defs)),
	}
	for _, d := range defs {
		_ = r.Register(d) // ignore duplicates during seed
	}
	return r
}

// Register validates and inserts a definition. Registering the same ID twice
// is an error: definitions are immutable once other components hold them.
func (r *Registry) Register(def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.items == nil {
		r.items = make(map[ID]*Definition)
	}
	if r.byNum == nil {
		r.byNum = make(map[NumericID]ID)
	}
	if _, exists := r.items[def.ID]; exists {
		return errors.New("item: definition already registered: " + string(def.ID))
	}

	if def.NumericID == 0 {
		r.nextID++
		for r.byNum[r.nextID] != "" {
			r.nextID++
		}
		def.NumericID = r.nextID
	} else {
		if def.NumericID < 0 {
			return errors.New("item: numeric id must be positive")
		}
		if owner, collision := r.byNum[def.NumericID]; collision && owner != def.ID {
			return errors.New("item: numeric id already assigned to another item")
		}
		if def.NumericID > r.nextID {
			r.nextID = def.NumericID
		}
	}

	r.items[def.ID] = def
	r.byNum[def.NumericID] = def.ID
	return nil
}

// Lookup returns the definition for id, if present.
func (r *Registry) Lookup(id ID) (*Definition, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.items[id]
	return def, ok
}

// LookupNumeric resolves a numeric handle.
func (r *Registry) LookupNumeric(n NumericID) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byNum[n]
	if !ok {
		return nil, false
	}
	def, exists := r.items[id]
	return def, exists
}

// ByCategory returns all definitions in a category ordered by numeric id.
func (r *Registry) ByCategory(c Category) []*Definition {
	all := r.Export()
	out := all[:0]
	for _, d := range all {
		if d.Category == c {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Export copies registry contents into a slice sorted by numeric id, suitable
// for sending to clients.
func (r *Registry) Export() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.items) == 0 {
		return nil
	}
	out := make([]*Definition, 0, len(r.items))
	for _, d := range r.items {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NumericID < out[j].NumericID
	})
	return out
}

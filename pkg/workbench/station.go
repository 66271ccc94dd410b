package workbench

import (
	"time"

	"github.com/gravitas-games/craftgrid/pkg/drag"
	"github.com/gravitas-games/craftgrid/pkg/grid"
	"github.com/gravitas-games/craftgrid/pkg/item"
	"github.com/gravitas-games/craftgrid/pkg/recipe"
)

// Station is a single player's crafting workspace. It is not safe for
// concurrent use.
type Station struct {
	owner     string
	inventory *grid.Grid
	tray      *grid.Grid
	drag      *drag.Session
	library   *recipe.Library
	bus       EventBus

	consumePattern bool
	trayWidth      int
	trayHeight     int

	defaultContainer *item.Definition
	container        *item.Definition
	tool             *item.Definition

	preview    Preview
	hasPreview bool
	result     *Result

	unobserve []func()
}

// New creates a station with an empty inventory and an empty tray sized by the
// default container.
func New(cfg Config) (*Station, error) {
	if cfg.Library == nil {
		return nil, ErrNoLibrary
	}
	if cfg.DefaultContainer != nil && !cfg.DefaultContainer.IsContainer() {
		return nil, ErrNotContainer
	}
	if cfg.InventoryWidth <= 0 {
		cfg.InventoryWidth = DefaultInventoryWidth
	}
	if cfg.InventoryHeight <= 0 {
		cfg.InventoryHeight = DefaultInventoryHeight
	}
	if cfg.TrayWidth <= 0 {
		cfg.TrayWidth = DefaultTrayWidth
	}
	if cfg.TrayHeight <= 0 {
		cfg.TrayHeight = DefaultTrayHeight
	}
	if cfg.Bus == nil {
		cfg.Bus = NewNullEventBus()
	}

	s := &Station{
		owner:            cfg.Owner,
		drag:             drag.New(),
		library:          cfg.Library,
		bus:              cfg.Bus,
		consumePattern:   cfg.ConsumePattern,
		trayWidth:        cfg.TrayWidth,
		trayHeight:       cfg.TrayHeight,
		defaultContainer: cfg.DefaultContainer,
	}
	tw, th := s.traySize(nil)
	s.inventory = grid.New(InventoryGrid, cfg.InventoryWidth, cfg.InventoryHeight)
	s.tray = grid.New(TrayGrid, tw, th)
	s.unobserve = append(s.unobserve,
		s.inventory.Observe(grid.ObserverFunc(s.onInventoryChanged)),
		s.tray.Observe(grid.ObserverFunc(s.onTrayChanged)),
	)
	return s, nil
}

// Owner returns the owner the station publishes events for.
func (s *Station) Owner() string { return s.owner }

// Inventory returns the player inventory grid.
func (s *Station) Inventory() *grid.Grid { return s.inventory }

// Tray returns the crafting tray grid.
func (s *Station) Tray() *grid.Grid { return s.tray }

// Drag returns the station's drag session.
func (s *Station) Drag() *drag.Session { return s.drag }

// Library returns the recipe library.
func (s *Station) Library() *recipe.Library { return s.library }

// Grid resolves a grid by name.
func (s *Station) Grid(name string) (*grid.Grid, error) {
	switch name {
	case InventoryGrid:
		return s.inventory, nil
	case TrayGrid:
		return s.tray, nil
	default:
		return nil, ErrUnknownGrid
	}
}

// Container returns the container in effect: the equipped one, or the default.
func (s *Station) Container() *item.Definition {
	if s.container != nil {
		return s.container
	}
	return s.defaultContainer
}

// EquippedContainer returns the item in the container slot, or nil.
func (s *Station) EquippedContainer() *item.Definition { return s.container }

// Tool returns the equipped tool, or nil.
func (s *Station) Tool() *item.Definition { return s.tool }

// Preview returns what crafting would currently produce. It reports false
// for an empty tray, or when nothing matches and there is no fallback.
func (s *Station) Preview() (Preview, bool) {
	return s.preview, s.hasPreview
}

// PendingResult returns the crafted output awaiting collection.
func (s *Station) PendingResult() (Result, bool) {
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}

// Close cancels any drag and detaches the station from its grids.
func (s *Station) Close() {
	s.drag.Cancel()
	for _, cancel := range s.unobserve {
		cancel()
	}
	s.unobserve = nil
}

func (s *Station) traySize(container *item.Definition) (int, int) {
	if container == nil {
		container = s.defaultContainer
	}
	if container != nil && container.ContainerWidth > 0 && container.ContainerHeight > 0 {
		return container.ContainerWidth, container.ContainerHeight
	}
	return s.trayWidth, s.trayHeight
}

func (s *Station) publish(e Event) {
	e.Owner = s.owner
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	s.bus.Publish(e)
}

func (s *Station) onInventoryChanged(*grid.Grid) {
	s.publish(Event{Type: EventInventoryChanged})
}

func (s *Station) onTrayChanged(*grid.Grid) {
	s.publish(Event{Type: EventTrayChanged})
	s.refreshPreview()
}

// refreshPreview recomputes the preview and publishes EventPreviewChanged
// when the output differs from the previous one.
func (s *Station) refreshPreview() {
	prev, had := s.preview, s.hasPreview
	s.preview, s.hasPreview = s.evaluate()
	if had == s.hasPreview && prev.Recipe == s.preview.Recipe && prev.OffsetX == s.preview.OffsetX && prev.OffsetY == s.preview.OffsetY {
		return
	}
	e := Event{Type: EventPreviewChanged}
	if s.hasPreview {
		e.Recipe = string(s.preview.Recipe.ID)
		e.Item = string(s.preview.Output.ID)
		e.Count = s.preview.Count
		e.Fallback = s.preview.Fallback
	}
	s.publish(e)
}

func (s *Station) evaluate() (Preview, bool) {
	if s.tray.Empty() {
		return Preview{}, false
	}
	if m, ok := s.library.Find(s.tray, s.Container(), s.tool); ok {
		return Preview{
			Recipe:  m.Recipe,
			Output:  m.Recipe.Output,
			Count:   m.Recipe.OutputCount,
			OffsetX: m.OffsetX,
			OffsetY: m.OffsetY,
		}, true
	}
	if fb := s.library.Fallback(); fb != nil {
		return Preview{Recipe: fb, Output: fb.Output, Count: fb.OutputCount, Fallback: true}, true
	}
	return Preview{}, false
}

// Refresh re-evaluates the preview, for example after the recipe library
// changed.
func (s *Station) Refresh() {
	s.refreshPreview()
}

package workbench

// Package workbench assembles the inventory grid, the crafting tray, the drag
// session and the container/tool slots into a single crafting station.

import (
	"errors"

	"github.com/gravitas-games/craftgrid/pkg/item"
	"github.com/gravitas-games/craftgrid/pkg/recipe"
)

// Grid names accepted by Station.Grid.
const (
	InventoryGrid = "inventory"
	TrayGrid      = "tray"
)

// Default sizes used when the configuration leaves them unset.
const (
	DefaultInventoryWidth  = 6
	DefaultInventoryHeight = 10
	DefaultTrayWidth       = 3
	DefaultTrayHeight      = 3
)

var (
	ErrNoLibrary     = errors.New("workbench: recipe library is required")
	ErrTrayEmpty     = errors.New("workbench: tray is empty")
	ErrNoRecipe      = errors.New("workbench: no recipe matches and no fallback is set")
	ErrResultPending = errors.New("workbench: previous result has not been collected")
	ErrNoResult      = errors.New("workbench: no result to collect")
	ErrInventoryFull = errors.New("workbench: inventory has no room")
	ErrNotContainer  = errors.New("workbench: item is not a container")
	ErrNotTool       = errors.New("workbench: item is not a tool")
	ErrSlotOccupied  = errors.New("workbench: slot already holds an item")
	ErrSlotEmpty     = errors.New("workbench: slot is empty")
	ErrTrayNotEmpty  = errors.New("workbench: tray must be empty to change container")
	ErrNotDragging   = errors.New("workbench: no item is being dragged")
	ErrUnknownGrid   = errors.New("workbench: unknown grid")
)

// Config describes a station.
type Config struct {
	Owner string

	InventoryWidth  int
	InventoryHeight int

	// TrayWidth and TrayHeight size the tray while no container is equipped
	// and DefaultContainer is nil.
	TrayWidth  int
	TrayHeight int

	// DefaultContainer is in effect whenever the container slot is empty.
	DefaultContainer *item.Definition

	Library *recipe.Library

	// ConsumePattern limits consumption to the items inside the matched
	// pattern window. By default a craft clears the whole tray.
	ConsumePattern bool

	Bus EventBus
}

// Preview is the output the tray would currently produce.
type Preview struct {
	Recipe   *recipe.Definition
	Output   *item.Definition
	Count    int
	Fallback bool
	OffsetX  int
	OffsetY  int
}

// Result is a crafted output waiting to be collected or discarded.
type Result struct {
	Recipe   *recipe.Definition
	Output   *item.Definition
	Count    int
	Fallback bool
}

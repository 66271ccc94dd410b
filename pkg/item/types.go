package item

// Package item describes the static item kinds the grid and crafting systems
// operate on. Definitions are immutable once registered and are compared by
// pointer identity everywhere else in the module.

import (
	"errors"
	"fmt"
)

// ID is an application-defined identifier for an item kind.
type ID string

// NumericID is a compact handle handed out by the registry. IDs start at 1.
type NumericID int64

// Category groups item kinds for container/tool gating.
type Category string

const (
	CategoryFood      Category = "food"
	CategoryMaterial  Category = "material"
	CategoryTool      Category = "tool"
	CategoryContainer Category = "container"
	CategoryOther     Category = "other"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryFood, CategoryMaterial, CategoryTool, CategoryContainer, CategoryOther:
		return true
	default:
		return false
	}
}

// Definition is the static description of an item kind.
type Definition struct {
	ID          ID        `json:"id" yaml:"id"`
	NumericID   NumericID `json:"numericId,omitempty" yaml:"numeric_id,omitempty"`
	Name        string    `json:"name,omitempty" yaml:"name,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Category    Category  `json:"category" yaml:"category"`

	// Base footprint in cells, before rotation.
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`

	CanRotate bool `json:"canRotate" yaml:"can_rotate"`
	MaxStack  int  `json:"maxStack" yaml:"max_stack"`

	// Tray size while this container is equipped. Only meaningful for
	// CategoryContainer.
	ContainerWidth  int `json:"containerWidth,omitempty" yaml:"container_width,omitempty"`
	ContainerHeight int `json:"containerHeight,omitempty" yaml:"container_height,omitempty"`
}

// Footprint returns the effective width and height for the given rotation.
func (d *Definition) Footprint(rotated bool) (w, h int) {
	if rotated {
		return d.Height, d.Width
	}
	return d.Width, d.Height
}

// Stackable reports whether more than one unit fits in a single placed item.
func (d *Definition) Stackable() bool {
	return d.MaxStack > 1
}

// SingleCell reports whether the footprint is exactly one cell.
func (d *Definition) SingleCell() bool {
	return d.Width == 1 && d.Height == 1
}

// IsContainer reports whether the definition can be equipped as a tray container.
func (d *Definition) IsContainer() bool {
	return d != nil && d.Category == CategoryContainer
}

// IsTool reports whether the definition can be equipped in the tool slot.
func (d *Definition) IsTool() bool {
	return d != nil && d.Category == CategoryTool
}

// ClampCount limits n to the [1, MaxStack] range allowed for one placed item.
func (d *Definition) ClampCount(n int) int {
	if n < 1 {
		n = 1
	}
	if d.MaxStack > 0 && n > d.MaxStack {
		n = d.MaxStack
	}
	return n
}

// String implements fmt.Stringer.
func (d *Definition) String() string {
	if d == nil {
		return "<none>"
	}
	return string(d.ID)
}

// Validate checks the structural constraints of a definition and fills in
// defaults for omitted optional fields.
func (d *Definition) Validate() error {
	if d == nil {
		return errors.New("item: nil definition")
	}
	if d.ID == "" {
		return errors.New("item: definition missing id")
	}
	if d.Width < 1 || d.Height < 1 {
		return fmt.Errorf("item %s: footprint must be at least 1x1, got %dx%d", d.ID, d.Width, d.Height)
	}
	if d.MaxStack == 0 {
		d.MaxStack = 1
	}
	if d.MaxStack < 1 {
		return fmt.Errorf("item %s: maxStack must be positive", d.ID)
	}
	if d.Category == "" {
		d.Category = CategoryMaterial
	}
	if !d.Category.Valid() {
		return fmt.Errorf("item %s: unknown category %q", d.ID, d.Category)
	}
	if d.Category == CategoryContainer && (d.ContainerWidth < 1 || d.ContainerHeight < 1) {
		return fmt.Errorf("item %s: container requires a tray size", d.ID)
	}
	return nil
}

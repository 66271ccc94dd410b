package recipe

import (
	"errors"
	"fmt"

	"github.com/gravitas-games/craftgrid/pkg/item"
)

// ID uniquely identifies a recipe.
type ID string

// Definition is a positional crafting recipe: a pattern of required item kinds
// laid over a Width x Height window of the tray, gated by the equipped
// container and tool.
type Definition struct {
	ID   ID     `json:"id"`
	Name string `json:"name,omitempty"`

	// Container must be equipped for the recipe to apply; nil means any.
	Container *item.Definition `json:"-"`
	// Tool must be equipped for the recipe to apply; nil means none required.
	Tool *item.Definition `json:"-"`

	Width  int `json:"width"`
	Height int `json:"height"`
	// Pattern is row-major (index = y*Width + x). A nil entry requires the
	// tray cell to be empty.
	Pattern []*item.Definition `json:"-"`

	Output      *item.Definition `json:"-"`
	OutputCount int              `json:"outputCount"`
}

// Need returns the required definition at pattern cell (x, y), or nil when the
// cell must be empty or lies outside the pattern.
func (r *Definition) Need(x, y int) *item.Definition {
	if x < 0 || y < 0 || x >= r.Width || y >= r.Height {
		return nil
	}
	i := y*r.Width + x
	if i >= len(r.Pattern) {
		return nil
	}
	return r.Pattern[i]
}

// Validate checks the structural constraints of a recipe. maxWidth and
// maxHeight bound the pattern window; zero disables the bound.
func (r *Definition) Validate(maxWidth, maxHeight int) error {
	if r == nil {
		return errors.New("recipe cannot be nil")
	}
	if r.ID == "" {
		return errors.New("recipe ID cannot be empty")
	}
	if r.Width < 1 || r.Height < 1 {
		return fmt.Errorf("recipe %s: pattern must be at least 1x1", r.ID)
	}
	if (maxWidth > 0 && r.Width > maxWidth) || (maxHeight > 0 && r.Height > maxHeight) {
		return fmt.Errorf("recipe %s: pattern %dx%d exceeds tray maximum %dx%d", r.ID, r.Width, r.Height, maxWidth, maxHeight)
	}
	if len(r.Pattern) != r.Width*r.Height {
		return fmt.Errorf("recipe %s: pattern has %d cells, want %d", r.ID, len(r.Pattern), r.Width*r.Height)
	}
	if r.Output == nil {
		return fmt.Errorf("recipe %s: output item cannot be empty", r.ID)
	}
	if r.OutputCount == 0 {
		r.OutputCount = 1
	}
	if r.OutputCount < 0 {
		return fmt.Errorf("recipe %s: output count cannot be negative", r.ID)
	}
	if r.Container != nil && !r.Container.IsContainer() {
		return fmt.Errorf("recipe %s: required container %s is not a container", r.ID, r.Container)
	}
	if r.Tool != nil && !r.Tool.IsTool() {
		return fmt.Errorf("recipe %s: required tool %s is not a tool", r.ID, r.Tool)
	}
	return nil
}

// Ingredients returns the distinct item kinds the pattern requires.
func (r *Definition) Ingredients() []*item.Definition {
	seen := make(map[*item.Definition]bool)
	var out []*item.Definition
	for _, d := range r.Pattern {
		if d != nil && !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

// String implements fmt.Stringer.
func (r *Definition) String() string {
	if r == nil {
		return "<none>"
	}
	return string(r.ID)
}

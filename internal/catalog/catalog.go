package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/gravitas-games/craftgrid/pkg/item"
	"github.com/gravitas-games/craftgrid/pkg/recipe"
)

//go:embed catalog.schema.json
var schemaJSON string

// EmptyCell marks a pattern cell that must stay empty. An empty string works too.
const EmptyCell = "."

var ErrUnknownItem = errors.New("catalog: unknown item")

// Catalog is the resolved content a station is built from.
type Catalog struct {
	Items            *item.Registry
	Recipes          *recipe.Library
	DefaultContainer *item.Definition
	// Starter stacks are stowed into every new inventory.
	Starter []Stack
}

// Stack is a quantity of one item kind.
type Stack struct {
	Item  *item.Definition
	Count int
}

type file struct {
	DefaultContainer string             `yaml:"default_container"`
	FallbackRecipe   string             `yaml:"fallback_recipe"`
	Items            []*item.Definition `yaml:"items"`
	Recipes          []fileRecipe       `yaml:"recipes"`
	Starter          []fileStack        `yaml:"starter"`
}

type fileStack struct {
	Item  string `yaml:"item"`
	Count int    `yaml:"count"`
}

type fileRecipe struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Container   string     `yaml:"container"`
	Tool        string     `yaml:"tool"`
	Pattern     [][]string `yaml:"pattern"`
	Output      string     `yaml:"output"`
	OutputCount int        `yaml:"output_count"`
}

// Load reads, validates and resolves a catalog file. Recipe patterns larger
// than maxWidth x maxHeight are rejected.
func Load(path string, maxWidth, maxHeight int) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	c, err := Parse(data, maxWidth, maxHeight)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	log.Printf("Catalog loaded from %s: %d items, %d recipes", path, c.Items.Len(), c.Recipes.Count())
	return c, nil
}

// Parse validates YAML catalog content against the catalog schema and
// resolves item references.
func Parse(data []byte, maxWidth, maxHeight int) (*Catalog, error) {
	if err := validate(data); err != nil {
		return nil, err
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{
		Items:   item.NewRegistry(),
		Recipes: recipe.NewLibrary(maxWidth, maxHeight),
	}
	for _, def := range f.Items {
		if err := c.Items.Register(def); err != nil {
			return nil, fmt.Errorf("item %s: %w", def.ID, err)
		}
	}
	for _, fr := range f.Recipes {
		r, err := c.resolveRecipe(fr)
		if err != nil {
			return nil, err
		}
		if err := c.Recipes.Register(r); err != nil {
			return nil, err
		}
	}

	if f.DefaultContainer != "" {
		def, err := c.lookup(f.DefaultContainer)
		if err != nil {
			return nil, fmt.Errorf("default container: %w", err)
		}
		if !def.IsContainer() {
			return nil, fmt.Errorf("default container %s is not a container", def.ID)
		}
		c.DefaultContainer = def
	}
	for _, fs := range f.Starter {
		def, err := c.lookup(fs.Item)
		if err != nil {
			return nil, fmt.Errorf("starter: %w", err)
		}
		c.Starter = append(c.Starter, Stack{Item: def, Count: max(fs.Count, 1)})
	}
	if f.FallbackRecipe != "" {
		if err := c.Recipes.SetFallback(recipe.ID(f.FallbackRecipe)); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) lookup(id string) (*item.Definition, error) {
	def, ok := c.Items.Lookup(item.ID(id))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	return def, nil
}

func (c *Catalog) resolveRecipe(fr fileRecipe) (*recipe.Definition, error) {
	r := &recipe.Definition{
		ID:          recipe.ID(fr.ID),
		Name:        fr.Name,
		OutputCount: fr.OutputCount,
	}
	var err error
	if r.Output, err = c.lookup(fr.Output); err != nil {
		return nil, fmt.Errorf("recipe %s output: %w", fr.ID, err)
	}
	if fr.Container != "" {
		if r.Container, err = c.lookup(fr.Container); err != nil {
			return nil, fmt.Errorf("recipe %s container: %w", fr.ID, err)
		}
	}
	if fr.Tool != "" {
		if r.Tool, err = c.lookup(fr.Tool); err != nil {
			return nil, fmt.Errorf("recipe %s tool: %w", fr.ID, err)
		}
	}

	r.Height = len(fr.Pattern)
	r.Width = len(fr.Pattern[0])
	r.Pattern = make([]*item.Definition, 0, r.Width*r.Height)
	for y, row := range fr.Pattern {
		if len(row) != r.Width {
			return nil, fmt.Errorf("recipe %s: pattern row %d has %d cells, want %d", fr.ID, y, len(row), r.Width)
		}
		for _, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" || cell == EmptyCell {
				r.Pattern = append(r.Pattern, nil)
				continue
			}
			def, err := c.lookup(cell)
			if err != nil {
				return nil, fmt.Errorf("recipe %s pattern: %w", fr.ID, err)
			}
			r.Pattern = append(r.Pattern, def)
		}
	}
	return r, nil
}

var schema = jsonschema.MustCompileString("catalog.schema.json", schemaJSON)

// validate checks raw YAML against the catalog schema. The document is
// re-encoded as JSON first so the validator sees JSON value types.
func validate(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse catalog: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("catalog is not representable as JSON: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("failed to re-decode catalog: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("catalog schema: %w", err)
	}
	return nil
}

// Package catalog holds the declarative tables shared by every entry point:
// feature defaults, calculator variants and their form fields, and advisory
// text.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Skufu/hypoxrisk/internal/features"
	"github.com/Skufu/hypoxrisk/internal/risk"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

var (
	ErrUnknownVariant = errors.New("unknown variant")
	ErrInvalidCatalog = errors.New("invalid catalog")
)

type Catalog struct {
	Features features.Defaults `yaml:"features"`
	Advice   risk.Advice       `yaml:"advice"`
	Variants []*Variant        `yaml:"variants"`
}

type Variant struct {
	Name           string   `yaml:"name" json:"name"`
	Title          string   `yaml:"title" json:"title"`
	Artifact       string   `yaml:"artifact" json:"artifact"`
	TrainingScript string   `yaml:"training_script" json:"training_script"`
	Columns        int      `yaml:"columns" json:"columns"`
	ShowDerived    bool     `yaml:"show_derived" json:"show_derived"`
	Fields         []*Field `yaml:"fields" json:"fields"`
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := parse(embeddedCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// Load reads a catalog from path, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return parse(embeddedCatalog)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func parse(b []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	c.Advice.High = SanitizeMarkup(c.Advice.High)
	c.Advice.Low = SanitizeMarkup(c.Advice.Low)
	return &c, nil
}

func (c *Catalog) Variant(name string) (*Variant, error) {
	for _, v := range c.Variants {
		if v.Name == name {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
}

func (c *Catalog) VariantNames() []string {
	out := make([]string, len(c.Variants))
	for i, v := range c.Variants {
		out[i] = v.Name
	}
	return out
}

func (v *Variant) Field(name string) (*Field, bool) {
	for _, f := range v.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Column returns the fields placed in column n (1-based), in order.
func (v *Variant) Column(n int) []*Field {
	var out []*Field
	for _, f := range v.Fields {
		if f.Column == n {
			out = append(out, f)
		}
	}
	return out
}

// Initial returns the widget starting values keyed by feature name.
func (v *Variant) Initial() map[string]float64 {
	out := make(map[string]float64, len(v.Fields))
	for _, f := range v.Fields {
		out[f.Name] = f.Initial
	}
	return out
}

func (c *Catalog) validate() error {
	if len(c.Features) == 0 {
		return fmt.Errorf("%w: features table is empty", ErrInvalidCatalog)
	}
	if len(c.Variants) == 0 {
		return fmt.Errorf("%w: no variants", ErrInvalidCatalog)
	}

	seen := map[string]bool{}
	for _, v := range c.Variants {
		if v.Name == "" {
			return fmt.Errorf("%w: variant without a name", ErrInvalidCatalog)
		}
		if seen[v.Name] {
			return fmt.Errorf("%w: duplicate variant %q", ErrInvalidCatalog, v.Name)
		}
		seen[v.Name] = true
		if v.Columns <= 0 {
			v.Columns = 1
		}

		fields := map[string]bool{}
		for _, f := range v.Fields {
			if fields[f.Name] {
				return fmt.Errorf("%w: variant %q repeats field %q", ErrInvalidCatalog, v.Name, f.Name)
			}
			fields[f.Name] = true
			if _, ok := c.Features[f.Name]; !ok && f.Name != features.NeckHeightRatioName {
				return fmt.Errorf("%w: variant %q field %q has no default", ErrInvalidCatalog, v.Name, f.Name)
			}
			if f.Column <= 0 || f.Column > v.Columns {
				f.Column = 1
			}
			if err := f.validate(); err != nil {
				return fmt.Errorf("%w: variant %q: %v", ErrInvalidCatalog, v.Name, err)
			}
		}
	}
	return nil
}

package catalog

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"

	"github.com/Skufu/hypoxrisk/internal/features"
)

const (
	WidgetNumber = "number"
	WidgetSlider = "slider"
	WidgetSelect = "select"
)

var ErrInvalidValue = errors.New("invalid field value")

type Field struct {
	Name    string   `yaml:"name" json:"name"`
	Label   string   `yaml:"label" json:"label"`
	Widget  string   `yaml:"widget" json:"widget"`
	Min     *float64 `yaml:"min" json:"min,omitempty"`
	Max     *float64 `yaml:"max" json:"max,omitempty"`
	Step    *float64 `yaml:"step" json:"step,omitempty"`
	Initial float64  `yaml:"initial" json:"initial"`
	Column  int      `yaml:"column" json:"column"`
	Options []Option `yaml:"options" json:"options,omitempty"`
}

type Option struct {
	Label string  `yaml:"label" json:"label"`
	Value float64 `yaml:"value" json:"value"`
}

// Parse converts a submitted form value into the feature's numeric value.
// Select fields accept an option value, an option label, or for yes/no
// style options a presence or absence answer.
func (f *Field) Parse(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidValue, f.Name)
	}
	if f.Widget != WidgetSelect {
		v, err := cast.ToFloat64E(raw)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %q is not a number", ErrInvalidValue, f.Name, raw)
		}
		return f.checkRange(v)
	}

	if v, err := cast.ToFloat64E(raw); err == nil {
		if f.hasOption(v) {
			return v, nil
		}
		return 0, fmt.Errorf("%w: %s: %v is not an option", ErrInvalidValue, f.Name, v)
	}
	for _, o := range f.Options {
		if strings.EqualFold(o.Label, raw) {
			return o.Value, nil
		}
	}
	if f.binary() {
		if v, err := features.Binary(raw); err == nil {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %s: %q is not an option", ErrInvalidValue, f.Name, raw)
}

// Value is Parse for decoded JSON, where numbers and booleans arrive typed.
func (f *Field) Value(v any) (float64, error) {
	switch t := v.(type) {
	case string:
		return f.Parse(t)
	case bool:
		if f.Widget != WidgetSelect || !f.binary() {
			return 0, fmt.Errorf("%w: %s does not take a yes/no answer", ErrInvalidValue, f.Name)
		}
		return cast.ToFloat64(t), nil
	case nil:
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidValue, f.Name)
	}
	n, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidValue, f.Name, err)
	}
	if f.Widget != WidgetSelect {
		return f.checkRange(n)
	}
	if !f.hasOption(n) {
		return 0, fmt.Errorf("%w: %s: %v is not an option", ErrInvalidValue, f.Name, n)
	}
	return n, nil
}

// checkRange enforces finiteness and the widget bounds. A height at or
// below zero is let through so it reaches the derived-metrics warning.
func (f *Field) checkRange(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s must be a finite number", ErrInvalidValue, f.Name)
	}
	if f.Name == features.HeightCm && v <= 0 {
		return v, nil
	}
	if f.Min != nil && v < *f.Min {
		return 0, fmt.Errorf("%w: %s must be at least %v", ErrInvalidValue, f.Name, *f.Min)
	}
	if f.Max != nil && v > *f.Max {
		return 0, fmt.Errorf("%w: %s must be at most %v", ErrInvalidValue, f.Name, *f.Max)
	}
	return v, nil
}

func (f *Field) hasOption(v float64) bool {
	for _, o := range f.Options {
		if o.Value == v {
			return true
		}
	}
	return false
}

// binary reports whether the options are exactly {0, 1}.
func (f *Field) binary() bool {
	return len(f.Options) == 2 && f.hasOption(0) && f.hasOption(1)
}

func (f *Field) validate() error {
	if f.Name == "" {
		return errors.New("field without a name")
	}
	switch f.Widget {
	case WidgetNumber, WidgetSlider:
		if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
			return fmt.Errorf("field %q: min above max", f.Name)
		}
	case WidgetSelect:
		if len(f.Options) == 0 {
			return fmt.Errorf("field %q: select without options", f.Name)
		}
		if !f.hasOption(f.Initial) {
			return fmt.Errorf("field %q: initial %v is not an option", f.Name, f.Initial)
		}
	default:
		return fmt.Errorf("field %q: unknown widget %q", f.Name, f.Widget)
	}
	return nil
}

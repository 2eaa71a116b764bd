package web

import (
	"fmt"
	"html/template"
	"strconv"

	"github.com/Skufu/hypoxrisk/internal/catalog"
	"github.com/Skufu/hypoxrisk/internal/features"
	"github.com/Skufu/hypoxrisk/internal/predict"
	"github.com/Skufu/hypoxrisk/internal/risk"
)

type pageData struct {
	Title            string
	Ready            bool
	Missing          string
	Columns          [][]fieldView
	ShowDerived      bool
	ThresholdPercent string
	Errors           []string
	Derived          *features.Derived
	HeightWarning    string
	Verdict          *risk.Verdict
	Advice           template.HTML
}

type fieldView struct {
	Name    string
	Label   string
	Widget  string
	Min     string
	Max     string
	Step    string
	Value   string
	Options []optionView
}

type optionView struct {
	Label    string
	Value    string
	Selected bool
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatNumber(*v)
}

// newPage lays out the variant's widgets. values holds the raw submitted
// strings and wins over the catalog's initial values.
func newPage(svc *predict.Service, values map[string]string) *pageData {
	v := svc.Variant()
	page := &pageData{
		Title:            v.Title,
		Ready:            svc.Ready(),
		ShowDerived:      v.ShowDerived,
		ThresholdPercent: risk.SliderPercent(svc.Threshold()),
		HeightWarning:    features.ErrNonPositiveHeight.Error(),
	}
	if !page.Ready {
		page.Missing = fmt.Sprintf("Error: model file %q was not found. Run %q first to generate it.", v.Artifact, v.TrainingScript)
		return page
	}
	if t, ok := values["threshold_percent"]; ok && t != "" {
		page.ThresholdPercent = t
	}

	for col := 1; col <= v.Columns; col++ {
		var fields []fieldView
		for _, f := range v.Column(col) {
			fields = append(fields, newFieldView(f, values))
		}
		page.Columns = append(page.Columns, fields)
	}
	if page.ShowDerived {
		d := previewDerived(svc, values)
		page.Derived = &d
	}
	return page
}

func newFieldView(f *catalog.Field, values map[string]string) fieldView {
	fv := fieldView{
		Name:   f.Name,
		Label:  f.Label,
		Widget: f.Widget,
		Min:    optional(f.Min),
		Max:    optional(f.Max),
		Step:   optional(f.Step),
		Value:  formatNumber(f.Initial),
	}
	current := f.Initial
	if raw, ok := values[f.Name]; ok {
		fv.Value = raw
		if parsed, err := f.Parse(raw); err == nil {
			current = parsed
		}
	}
	for _, o := range f.Options {
		fv.Options = append(fv.Options, optionView{
			Label:    o.Label,
			Value:    formatNumber(o.Value),
			Selected: o.Value == current,
		})
	}
	return fv
}

// previewDerived computes the metrics shown before a prediction runs, from
// the submitted values, then the widget initials, then the defaults table.
func previewDerived(svc *predict.Service, values map[string]string) features.Derived {
	v := svc.Variant()
	get := func(name string) float64 {
		f, ok := v.Field(name)
		if !ok {
			return svc.Defaults()[name]
		}
		if raw, ok := values[name]; ok {
			if x, err := f.Parse(raw); err == nil {
				return x
			}
		}
		return f.Initial
	}
	return features.Derive(get(features.HeightCm), get(features.WeightKg), get(features.NeckCircumferenceCm))
}

func (p *pageData) withResult(res *predict.Result) {
	p.Derived = &res.Derived
	p.Verdict = &res.Verdict
	// Advice is sanitized when the catalog is loaded.
	p.Advice = template.HTML(res.Verdict.Advice)
}

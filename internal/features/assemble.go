package features

import "fmt"

// Assemble builds the model row for schema. Values are layered as defaults,
// then supplied, then derived. A derived field the caller supplied directly
// is kept as given, and BMI is only recomputed when height or weight was
// supplied.
func Assemble(schema []string, supplied map[string]float64, defaults Defaults) (Vector, Derived, error) {
	merged := make(map[string]float64, len(defaults)+len(supplied))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range supplied {
		merged[k] = v
	}

	derived := Derive(merged[HeightCm], merged[WeightKg], merged[NeckCircumferenceCm])

	_, hasHeight := supplied[HeightCm]
	_, hasWeight := supplied[WeightKg]
	if v, ok := supplied[BMIName]; ok {
		derived.BMI = v
	} else if v, ok := merged[BMIName]; ok && !hasHeight && !hasWeight {
		derived.BMI = v
	} else {
		merged[BMIName] = derived.BMI
	}
	if v, ok := supplied[NeckHeightRatioName]; ok {
		derived.NeckHeightRatio = v
	} else {
		merged[NeckHeightRatioName] = derived.NeckHeightRatio
	}

	out := make(Vector, 0, len(schema))
	for _, name := range schema {
		v, ok := merged[name]
		if !ok {
			return nil, derived, fmt.Errorf("%w: %q", ErrMissingFeature, name)
		}
		out = append(out, Feature{Name: name, Value: v})
	}
	return out, derived, nil
}

package features

import "fmt"

// Feature names understood by the calculator.
const (
	Age                 = "age"
	Sex                 = "sex"
	HeightCm            = "height_cm"
	WeightKg            = "weight_kg"
	BMIName             = "bmi"
	NeckCircumferenceCm = "neck_circumference_cm"
	NeckHeightRatioName = "neck_height_ratio"
	NeckLengthCm        = "neck_length_cm"
	ASAGrade            = "asa_grade"
	MallampatiGrade     = "mallampati_grade"
	Hypertension        = "hypertension"
	Diabetes            = "diabetes"
	HeartDisease        = "heart_disease"
	OSAHS               = "osahs"
	Smoking             = "smoking"
	Alcoholism          = "alcoholism"
	Snoring             = "snoring"
	SleepingPills       = "sleeping_pills"
	BaseSystolicBP      = "base_systolic_bp"
	BaseDiastolicBP     = "base_diastolic_bp"
	BaseMAP             = "base_map"
	BaseHR              = "base_hr"
	BaseSpO2            = "base_spo2"
)

// FullSchema is the column order of the gradient-boosted model. Bare
// artifacts that carry no feature list are assumed to use it.
var FullSchema = []string{
	Age, Sex, HeightCm, WeightKg, BMIName, NeckCircumferenceCm, NeckHeightRatioName, NeckLengthCm,
	ASAGrade, MallampatiGrade, Hypertension, Diabetes, HeartDisease, OSAHS, Smoking,
	Alcoholism, Snoring, SleepingPills, BaseSystolicBP, BaseDiastolicBP, BaseMAP,
	BaseHR, BaseSpO2,
}

// Defaults holds the value used for every feature the user is not asked for.
type Defaults map[string]float64

type Feature struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

// Vector is a single model input row in schema order.
type Vector []Feature

func (v Vector) Names() []string {
	out := make([]string, len(v))
	for i, f := range v {
		out[i] = f.Name
	}
	return out
}

func (v Vector) Values() []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = f.Value
	}
	return out
}

func (v Vector) Get(name string) (float64, bool) {
	for _, f := range v {
		if f.Name == name {
			return f.Value, true
		}
	}
	return 0, false
}

func (v Vector) Map() map[string]float64 {
	out := make(map[string]float64, len(v))
	for _, f := range v {
		out[f.Name] = f.Value
	}
	return out
}

// SameSchema reports whether v carries exactly the given names in order.
func (v Vector) SameSchema(names []string) error {
	if len(v) != len(names) {
		return fmt.Errorf("%w: got %d features, want %d", ErrSchemaMismatch, len(v), len(names))
	}
	for i, f := range v {
		if f.Name != names[i] {
			return fmt.Errorf("%w: position %d is %q, want %q", ErrSchemaMismatch, i, f.Name, names[i])
		}
	}
	return nil
}

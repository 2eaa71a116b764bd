package features

import (
	"fmt"
	"math"
	"strings"
)

// Derived holds the fields computed from raw anthropometrics.
type Derived struct {
	BMI             float64 `json:"bmi" yaml:"bmi"`
	NeckHeightRatio float64 `json:"neck_height_ratio" yaml:"neck_height_ratio"`
	Warning         string  `json:"warning,omitempty" yaml:"warning,omitempty"`
}

// BMI returns weight / (height in metres)^2.
func BMI(weightKg, heightCm float64) (float64, error) {
	if !usableHeight(heightCm) {
		return 0, ErrNonPositiveHeight
	}
	m := heightCm / 100
	return weightKg / (m * m), nil
}

// NeckHeightRatio uses the same unitless ratio as the training data.
func NeckHeightRatio(neckCm, heightCm float64) (float64, error) {
	if !usableHeight(heightCm) {
		return 0, ErrNonPositiveHeight
	}
	return neckCm / heightCm, nil
}

// usableHeight rejects zero, negative and non-finite heights.
func usableHeight(heightCm float64) bool {
	return heightCm > 0 && !math.IsInf(heightCm, 1)
}

// Derive never fails: a degenerate height zeroes both fields and sets Warning.
func Derive(heightCm, weightKg, neckCm float64) Derived {
	bmi, err := BMI(weightKg, heightCm)
	if err != nil {
		return Derived{Warning: err.Error()}
	}
	ratio, _ := NeckHeightRatio(neckCm, heightCm)
	return Derived{BMI: bmi, NeckHeightRatio: ratio}
}

var (
	presenceAnswers = []string{"yes", "y", "true", "present", "male", "m", "1", "有", "是", "男"}
	absenceAnswers  = []string{"no", "n", "false", "absent", "female", "f", "0", "无", "否", "女"}
)

// Binary maps a presence-style answer to 1 and an absence-style answer to 0.
func Binary(answer string) (float64, error) {
	a := strings.ToLower(strings.TrimSpace(answer))
	for _, p := range presenceAnswers {
		if a == p {
			return 1, nil
		}
	}
	for _, p := range absenceAnswers {
		if a == p {
			return 0, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAnswer, answer)
}

package risk

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

type Label string

const (
	HighRisk Label = "high-risk"
	LowRisk  Label = "low-risk"
)

const (
	MinThresholdPercent = 1
	MaxThresholdPercent = 99
)

var ErrThresholdRange = errors.New("threshold must be between 1 and 99 percent")

// Advice is the advisory text shown under each label. Values may carry
// limited inline markup.
type Advice struct {
	High string `yaml:"high" json:"high"`
	Low  string `yaml:"low" json:"low"`
}

type Verdict struct {
	Label       Label   `json:"label"`
	Probability float64 `json:"probability"`
	Threshold   float64 `json:"threshold"`
	Percent     string  `json:"percent"`
	Color       string  `json:"color"`
	Icon        string  `json:"icon"`
	Advice      string  `json:"advice"`
}

// Classify is inclusive at the boundary: p == t is high risk.
func Classify(p, t float64) Label {
	if p >= t {
		return HighRisk
	}
	return LowRisk
}

func ThresholdFromPercent(pct float64) (float64, error) {
	if !(pct >= MinThresholdPercent && pct <= MaxThresholdPercent) {
		return 0, fmt.Errorf("%w: got %v", ErrThresholdRange, pct)
	}
	return pct / 100, nil
}

// SliderPercent renders a threshold at the slider's 0.1 percent step. A form
// that posts this text back unchanged keeps the exact threshold.
func SliderPercent(t float64) string {
	return strconv.FormatFloat(math.Round(t*1000)/10, 'f', -1, 64)
}

func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

func NewVerdict(p, t float64, advice Advice) Verdict {
	v := Verdict{
		Label:       Classify(p, t),
		Probability: p,
		Threshold:   t,
		Percent:     FormatPercent(p),
	}
	if v.Label == HighRisk {
		v.Color, v.Icon, v.Advice = "red", "⚠️", advice.High
	} else {
		v.Color, v.Icon, v.Advice = "green", "✅", advice.Low
	}
	return v
}

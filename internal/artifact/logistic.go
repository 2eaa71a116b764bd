package artifact

import (
	"fmt"
	"math"
)

// Logistic is an L1/L2 logistic regression, optionally preceded by a
// standard scaler.
type Logistic struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
	Scaler       *Scaler   `json:"scaler,omitempty"`
}

type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

func (m *Logistic) Kind() string { return "logistic" }

func (m *Logistic) width() int { return len(m.Coefficients) }

func (m *Logistic) PredictProba(row []float64) (float64, error) {
	if len(row) != len(m.Coefficients) {
		return 0, fmt.Errorf("got %d values, want %d", len(row), len(m.Coefficients))
	}
	z := m.Intercept
	for i, x := range row {
		if m.Scaler != nil {
			s := m.Scaler.Scale[i]
			if s == 0 {
				s = 1
			}
			x = (x - m.Scaler.Mean[i]) / s
		}
		z += m.Coefficients[i] * x
	}
	return sigmoid(z), nil
}

func (m *Logistic) check() error {
	if len(m.Coefficients) == 0 {
		return fmt.Errorf("%w: logistic model has no coefficients", ErrInvalidArtifact)
	}
	if m.Scaler != nil && (len(m.Scaler.Mean) != len(m.Coefficients) || len(m.Scaler.Scale) != len(m.Coefficients)) {
		return fmt.Errorf("%w: scaler length does not match coefficients", ErrInvalidArtifact)
	}
	return nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

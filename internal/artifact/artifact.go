package artifact

import (
	"errors"
	"fmt"
	"math"

	"github.com/Skufu/hypoxrisk/internal/features"
)

// CurrentSchemaVersion is the only on-disk layout Decode emits.
const CurrentSchemaVersion = 1

// DefaultThreshold applies when an artifact does not carry its own cutoff.
const DefaultThreshold = 0.5

var (
	ErrArtifactMissing = errors.New("model artifact not found")
	ErrInvalidArtifact = errors.New("invalid model artifact")
	ErrUnknownModel    = errors.New("unknown model type")
)

// Classifier returns the positive-class probability for one row.
type Classifier interface {
	Kind() string
	PredictProba(row []float64) (float64, error)
}

// Artifact is the loaded model bundle. It is never mutated after Decode.
type Artifact struct {
	SchemaVersion int
	Name          string
	Threshold     float64
	FeatureNames  []string
	Model         Classifier
	// Shape records which on-disk layout the artifact was migrated from.
	Shape Shape
}

// Predict checks the vector against the artifact schema before inference.
func (a *Artifact) Predict(v features.Vector) (float64, error) {
	if err := v.SameSchema(a.FeatureNames); err != nil {
		return 0, err
	}
	p, err := a.Model.PredictProba(v.Values())
	if err != nil {
		return 0, fmt.Errorf("predict %s: %w", a.Model.Kind(), err)
	}
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, fmt.Errorf("%w: %s returned %v", ErrInvalidArtifact, a.Model.Kind(), p)
	}
	return p, nil
}

func (a *Artifact) validate() error {
	if a.Model == nil {
		return fmt.Errorf("%w: model is required", ErrInvalidArtifact)
	}
	if a.Threshold <= 0 || a.Threshold > 1 {
		return fmt.Errorf("%w: threshold %v outside (0, 1]", ErrInvalidArtifact, a.Threshold)
	}
	if len(a.FeatureNames) == 0 {
		return fmt.Errorf("%w: feature_names is empty", ErrInvalidArtifact)
	}
	seen := make(map[string]struct{}, len(a.FeatureNames))
	for _, n := range a.FeatureNames {
		if n == "" {
			return fmt.Errorf("%w: empty feature name", ErrInvalidArtifact)
		}
		if _, dup := seen[n]; dup {
			return fmt.Errorf("%w: duplicate feature %q", ErrInvalidArtifact, n)
		}
		seen[n] = struct{}{}
	}
	if w, ok := a.Model.(interface{ width() int }); ok && w.width() != len(a.FeatureNames) {
		return fmt.Errorf("%w: model expects %d features, schema lists %d", ErrInvalidArtifact, w.width(), len(a.FeatureNames))
	}
	if m, ok := a.Model.(interface{ maxFeature() int }); ok && m.maxFeature() >= len(a.FeatureNames) {
		return fmt.Errorf("%w: split on feature %d, schema lists %d", ErrInvalidArtifact, m.maxFeature(), len(a.FeatureNames))
	}
	return nil
}

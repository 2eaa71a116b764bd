package predict

import (
	"context"
	"errors"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/Skufu/hypoxrisk/internal/artifact"
	"github.com/Skufu/hypoxrisk/internal/catalog"
	"github.com/Skufu/hypoxrisk/internal/features"
	"github.com/Skufu/hypoxrisk/internal/risk"
)

var (
	ErrModelUnavailable = errors.New("model artifact is not loaded")
	ErrUnknownInput     = errors.New("input is not a field of this calculator")
)

type Request struct {
	Inputs map[string]float64
	// ThresholdPercent overrides the artifact threshold when set (1-99).
	ThresholdPercent *float64
}

type Result struct {
	Vector  features.Vector
	Derived features.Derived
	Verdict risk.Verdict
}

// Service runs one inference per call against a read-only artifact.
type Service struct {
	art      *artifact.Artifact
	variant  *catalog.Variant
	defaults features.Defaults
	advice   risk.Advice
}

// NewService accepts a nil artifact; the service then reports not ready and
// refuses to predict.
func NewService(art *artifact.Artifact, variant *catalog.Variant, cat *catalog.Catalog) *Service {
	return &Service{
		art:      art,
		variant:  variant,
		defaults: cat.Features,
		advice:   cat.Advice,
	}
}

func (s *Service) Ready() bool { return s.art != nil }

func (s *Service) Variant() *catalog.Variant { return s.variant }

func (s *Service) Defaults() features.Defaults { return s.defaults }

// Artifact returns the loaded artifact, or nil.
func (s *Service) Artifact() *artifact.Artifact { return s.art }

// Threshold is the artifact cutoff, or the default when no artifact is loaded.
func (s *Service) Threshold() float64 {
	if s.art == nil {
		return artifact.DefaultThreshold
	}
	return s.art.Threshold
}

func (s *Service) Predict(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.art == nil {
		return nil, ErrModelUnavailable
	}

	for _, name := range sortedKeys(req.Inputs) {
		if _, ok := s.variant.Field(name); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownInput, name)
		}
	}

	threshold := s.art.Threshold
	if req.ThresholdPercent != nil {
		t, err := risk.ThresholdFromPercent(*req.ThresholdPercent)
		if err != nil {
			return nil, err
		}
		threshold = t
	}

	vec, derived, err := features.Assemble(s.art.FeatureNames, req.Inputs, s.defaults)
	if err != nil {
		return nil, err
	}

	p, err := s.art.Predict(vec)
	if err != nil {
		return nil, err
	}

	verdict := risk.NewVerdict(p, threshold, s.advice)
	log.WithFields(log.Fields{
		"variant":     s.variant.Name,
		"probability": p,
		"threshold":   threshold,
		"label":       verdict.Label,
	}).Debug("prediction")

	return &Result{Vector: vec, Derived: derived, Verdict: verdict}, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package predict

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/hypoxrisk/internal/artifact"
	"github.com/Skufu/hypoxrisk/internal/catalog"
	"github.com/Skufu/hypoxrisk/internal/features"
	"github.com/Skufu/hypoxrisk/internal/risk"
)

// constant always returns p.
type constant struct{ p float64 }

func (c constant) Kind() string { return "constant" }
func (c constant) PredictProba(row []float64) (float64, error) { return c.p, nil }

func compactService(t *testing.T, art *artifact.Artifact) *Service {
	t.Helper()
	cat := catalog.Default()
	v, err := cat.Variant("compact")
	require.NoError(t, err)
	return NewService(art, v, cat)
}

func compactArtifact(p float64) *artifact.Artifact {
	return &artifact.Artifact{
		SchemaVersion: artifact.CurrentSchemaVersion,
		Threshold:     0.5,
		FeatureNames:  []string{"age", "bmi", "neck_height_ratio", "asa_grade", "base_spo2"},
		Model:         constant{p: p},
	}
}

func TestPredictCompact(t *testing.T) {
	svc := compactService(t, compactArtifact(0.5))

	res, err := svc.Predict(context.Background(), Request{Inputs: map[string]float64{
		"age": 50, "height_cm": 170, "weight_kg": 70, "neck_circumference_cm": 38, "asa_grade": 1, "base_spo2": 98,
	}})
	require.NoError(t, err)

	assert.Equal(t, []string{"age", "bmi", "neck_height_ratio", "asa_grade", "base_spo2"}, res.Vector.Names())
	assert.InDelta(t, 24.22, res.Derived.BMI, 0.005)
	assert.InDelta(t, 0.2235, res.Derived.NeckHeightRatio, 0.00005)
	assert.Equal(t, risk.HighRisk, res.Verdict.Label)
	assert.Equal(t, "50.0%", res.Verdict.Percent)
}

func TestPredictThresholdOverride(t *testing.T) {
	svc := compactService(t, compactArtifact(0.3))

	res, err := svc.Predict(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, risk.LowRisk, res.Verdict.Label)

	pct := 30.0
	res, err = svc.Predict(context.Background(), Request{ThresholdPercent: &pct})
	require.NoError(t, err)
	assert.Equal(t, risk.HighRisk, res.Verdict.Label)
	assert.Equal(t, 0.3, res.Verdict.Threshold)

	bad := 0.0
	_, err = svc.Predict(context.Background(), Request{ThresholdPercent: &bad})
	assert.ErrorIs(t, err, risk.ErrThresholdRange)
}

func TestPredictDegenerateHeight(t *testing.T) {
	svc := compactService(t, compactArtifact(0.1))

	res, err := svc.Predict(context.Background(), Request{Inputs: map[string]float64{"height_cm": 0}})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Derived.Warning)
	bmi, _ := res.Vector.Get("bmi")
	assert.Zero(t, bmi)
}

func TestPredictWithoutArtifact(t *testing.T) {
	svc := compactService(t, nil)
	assert.False(t, svc.Ready())
	assert.Equal(t, artifact.DefaultThreshold, svc.Threshold())

	_, err := svc.Predict(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestPredictRejectsUnexposedInput(t *testing.T) {
	svc := compactService(t, compactArtifact(0.1))

	_, err := svc.Predict(context.Background(), Request{Inputs: map[string]float64{"smoking": 1}})
	assert.ErrorIs(t, err, ErrUnknownInput)
}

func TestPredictFullSchemaWithGBDT(t *testing.T) {
	art, err := artifact.Load("../artifact/testdata/lgbm_bare.json")
	require.NoError(t, err)

	cat := catalog.Default()
	v, err := cat.Variant("full")
	require.NoError(t, err)
	svc := NewService(art, v, cat)

	res, err := svc.Predict(context.Background(), Request{Inputs: map[string]float64{
		"age": 70, "bmi": 32, "osahs": 1, "sex": 1,
	}})
	require.NoError(t, err)
	require.NoError(t, res.Vector.SameSchema(features.FullSchema))

	assert.InDelta(t, 1/(1+math.Exp(-0.4)), res.Verdict.Probability, 1e-12)
	assert.Equal(t, risk.HighRisk, res.Verdict.Label)
	ratio, _ := res.Vector.Get("neck_height_ratio")
	assert.InDelta(t, 38.0/170, ratio, 1e-9)
}

func TestPredictHonoursCancelledContext(t *testing.T) {
	svc := compactService(t, compactArtifact(0.1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Predict(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

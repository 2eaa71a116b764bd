package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/hypoxrisk/internal/artifact"
	"github.com/Skufu/hypoxrisk/internal/catalog"
	"github.com/Skufu/hypoxrisk/internal/predict"
	"github.com/Skufu/hypoxrisk/internal/risk"
)

const (
	lassoV1     = "../../internal/artifact/testdata/lasso_v1.json"
	lassoBundle = "../../internal/artifact/testdata/lasso_bundle.json"
)

type scriptedPrompter struct {
	answers map[string]string
	asked   []string
	err     error
}

func (s *scriptedPrompter) answer(message, def string) (string, error) {
	s.asked = append(s.asked, message)
	if s.err != nil {
		return "", s.err
	}
	if a, ok := s.answers[message]; ok {
		return a, nil
	}
	return def, nil
}

func (s *scriptedPrompter) Input(ctx context.Context, message, def string, validate func(string) error) (string, error) {
	a, err := s.answer(message, def)
	if err != nil {
		return "", err
	}
	if validate != nil {
		if err := validate(a); err != nil {
			return "", err
		}
	}
	return a, nil
}

func (s *scriptedPrompter) Select(ctx context.Context, message string, options []string, def string) (string, error) {
	return s.answer(message, def)
}

func run(t *testing.T, p Prompter, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	if p == nil {
		p = &scriptedPrompter{}
	}
	err := newApp(&out, p).Run(context.Background(), append([]string{"riskctl"}, args...))
	return out.String(), err
}

func TestInspectJSON(t *testing.T) {
	out, err := run(t, nil, "inspect", "--artifact", lassoV1)
	require.NoError(t, err)

	var s artifactSummary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, 1, s.SchemaVersion)
	assert.Equal(t, "logistic", s.Model)
	assert.Equal(t, 0.42, s.Threshold)
	assert.Equal(t, []string{"age", "bmi", "neck_height_ratio", "asa_grade", "base_spo2"}, s.FeatureNames)
}

func TestInspectYAMLAndText(t *testing.T) {
	out, err := run(t, nil, "inspect", "--artifact", lassoBundle, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "feature_names:")
	assert.Contains(t, out, "threshold: 0.35")

	out, err = run(t, nil, "inspect", "--artifact", lassoBundle, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "Threshold:  35.0%")
}

func TestInspectRejectsUnknownFormat(t *testing.T) {
	_, err := run(t, nil, "inspect", "--artifact", lassoV1, "--format", "xml")
	assert.Error(t, err)
}

func TestScoreDefaults(t *testing.T) {
	out, err := run(t, nil, "score", "--artifact", lassoV1, "--format", "json")
	require.NoError(t, err)

	var r scoreReport
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, "compact", r.Variant)
	assert.Equal(t, risk.LowRisk, r.Label)
	assert.Equal(t, 0.42, r.Threshold)
	assert.InDelta(t, 24.22, r.Derived.BMI, 0.01)
	assert.InDelta(t, 0.2235, r.Derived.NeckHeightRatio, 0.0001)
	assert.NotContains(t, r.Advice, "<strong>")
}

func TestScoreThresholdOverride(t *testing.T) {
	out, err := run(t, nil, "score", "--artifact", lassoV1, "--threshold", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Verdict:      ⚠️ high-risk")
	assert.Contains(t, out, "Threshold:    1%")
	assert.Contains(t, out, "BMI:          24.22")
}

func TestScoreSetValues(t *testing.T) {
	out, err := run(t, nil, "score", "--artifact", lassoV1, "--format", "json",
		"--set", "height_cm=0", "--set", "asa_grade=3")
	require.NoError(t, err)

	var r scoreReport
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, "height must be greater than 0", r.Derived.Warning)
	assert.Equal(t, 0.0, r.Derived.BMI)
	assert.Equal(t, 3.0, r.Features["asa_grade"])
}

func TestScoreErrors(t *testing.T) {
	_, err := run(t, nil, "score", "--artifact", lassoV1, "--set", "smoking=yes")
	assert.ErrorIs(t, err, predict.ErrUnknownInput)

	_, err = run(t, nil, "score", "--artifact", lassoV1, "--set", "height_cm")
	assert.ErrorContains(t, err, "expected name=value")

	_, err = run(t, nil, "score", "--artifact", lassoV1, "--threshold", "100")
	assert.ErrorIs(t, err, risk.ErrThresholdRange)

	_, err = run(t, nil, "score", "--artifact", filepath.Join(t.TempDir(), "lasso_model.json"))
	assert.ErrorIs(t, err, artifact.ErrArtifactMissing)
	assert.ErrorContains(t, err, "train_lasso_model.py")

	_, err = run(t, nil, "score", "--artifact", lassoV1, "--variant", "tiny")
	assert.ErrorContains(t, err, "known: full, compact")
}

func TestPromptAsksEveryField(t *testing.T) {
	p := &scriptedPrompter{answers: map[string]string{
		"ASA grade":          "4",
		"Risk threshold (%)": "5",
	}}
	out, err := run(t, p, "prompt", "--artifact", lassoV1, "--format", "json")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Age (years)",
		"Height (cm)",
		"Weight (kg)",
		"Neck circumference (cm)",
		"ASA grade",
		"Baseline SpO2 (%)",
		"Risk threshold (%)",
	}, p.asked)

	var r scoreReport
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, 4.0, r.Features["asa_grade"])
	assert.Equal(t, 0.05, r.Threshold)
}

func TestPromptAborted(t *testing.T) {
	_, err := run(t, &scriptedPrompter{err: errAborted}, "prompt", "--artifact", lassoV1)
	assert.ErrorIs(t, err, errAborted)
}

func TestMigrateLegacyBundle(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "lasso_model.json")
	_, err := run(t, nil, "migrate", "--artifact", lassoBundle, "--out", dest)
	require.NoError(t, err)

	art, err := artifact.Load(dest)
	require.NoError(t, err)
	assert.Equal(t, artifact.ShapeVersioned, art.Shape)
	assert.Equal(t, 0.35, art.Threshold)
	assert.Equal(t, "logistic", art.Model.Kind())
}

func TestScoreRejectsNonFiniteAndOutOfRange(t *testing.T) {
	for _, set := range []string{"age=-40", "base_spo2=400", "height_cm=NaN", "weight_kg=Inf"} {
		_, err := run(t, nil, "score", "--artifact", lassoV1, "--set", set)
		assert.ErrorIs(t, err, catalog.ErrInvalidValue, set)
	}

	_, err := run(t, nil, "score", "--artifact", lassoV1, "--threshold", "NaN")
	assert.ErrorIs(t, err, risk.ErrThresholdRange)
}

func TestPromptDefaultKeepsExactThreshold(t *testing.T) {
	b, err := os.ReadFile(lassoV1)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "lasso_model.json")
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(string(b), `"threshold": 0.42`, `"threshold": 0.4374`, 1)), 0o600))

	p := &scriptedPrompter{}
	out, err := run(t, p, "prompt", "--artifact", path, "--format", "json")
	require.NoError(t, err)

	var r scoreReport
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, 0.4374, r.Threshold)
}

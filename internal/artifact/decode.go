package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/Skufu/hypoxrisk/internal/features"
)

// Shape names the on-disk layout an artifact was read from.
type Shape string

const (
	ShapeVersioned              Shape = "versioned"
	ShapeBareModel              Shape = "bare-model"
	ShapeModelThreshold         Shape = "model+threshold"
	ShapeModelThresholdFeatures Shape = "model+threshold+features"
)

type document struct {
	SchemaVersion *int            `json:"schema_version,omitempty"`
	Name          string          `json:"name,omitempty"`
	Threshold     *float64        `json:"threshold,omitempty"`
	FeatureNames  []string        `json:"feature_names,omitempty"`
	Features      []string        `json:"features,omitempty"`
	Model         json.RawMessage `json:"model,omitempty"`
	Type          string          `json:"type,omitempty"`
}

type modelHeader struct {
	Type         string   `json:"type"`
	FeatureNames []string `json:"feature_names"`
}

// Load reads and migrates the artifact at path.
func Load(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		}
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	a, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// Decode accepts the versioned layout and the three legacy layouts, and
// always returns a versioned artifact.
func Decode(r io.Reader) (*Artifact, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}

	a := &Artifact{SchemaVersion: CurrentSchemaVersion, Name: doc.Name, Threshold: DefaultThreshold}
	var modelRaw json.RawMessage

	switch {
	case doc.SchemaVersion != nil:
		if *doc.SchemaVersion != CurrentSchemaVersion {
			return nil, fmt.Errorf("%w: unsupported schema_version %d", ErrInvalidArtifact, *doc.SchemaVersion)
		}
		if doc.Threshold == nil || len(doc.FeatureNames) == 0 || len(doc.Model) == 0 {
			return nil, fmt.Errorf("%w: versioned artifact needs model, threshold and feature_names", ErrInvalidArtifact)
		}
		a.Shape = ShapeVersioned
		a.Threshold = *doc.Threshold
		a.FeatureNames = doc.FeatureNames
		modelRaw = doc.Model
	case len(doc.Model) > 0:
		a.Shape = ShapeModelThreshold
		if doc.Threshold != nil {
			a.Threshold = *doc.Threshold
		}
		if len(doc.Features) > 0 {
			a.Shape = ShapeModelThresholdFeatures
			a.FeatureNames = doc.Features
		}
		modelRaw = doc.Model
	case doc.Type != "":
		a.Shape = ShapeBareModel
		modelRaw = raw
	default:
		return nil, fmt.Errorf("%w: no model found", ErrInvalidArtifact)
	}

	model, header, err := decodeModel(modelRaw)
	if err != nil {
		return nil, err
	}
	a.Model = model

	if len(a.FeatureNames) == 0 {
		if len(header.FeatureNames) > 0 {
			a.FeatureNames = header.FeatureNames
		} else {
			a.FeatureNames = append([]string(nil), features.FullSchema...)
		}
	}

	if err := a.validate(); err != nil {
		return nil, err
	}

	if a.Shape != ShapeVersioned {
		log.WithFields(log.Fields{
			"shape":     a.Shape,
			"model":     model.Kind(),
			"threshold": a.Threshold,
			"features":  len(a.FeatureNames),
		}).Warn("migrated legacy artifact layout")
	}
	return a, nil
}

func decodeModel(raw json.RawMessage) (Classifier, modelHeader, error) {
	var h modelHeader
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, h, fmt.Errorf("%w: model: %v", ErrInvalidArtifact, err)
	}

	switch h.Type {
	case "logistic", "lasso":
		var m Logistic
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, h, fmt.Errorf("%w: logistic: %v", ErrInvalidArtifact, err)
		}
		return &m, h, m.check()
	case "gbdt", "lightgbm":
		var m GBDT
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, h, fmt.Errorf("%w: gbdt: %v", ErrInvalidArtifact, err)
		}
		return &m, h, m.check()
	default:
		return nil, h, fmt.Errorf("%w: %q", ErrUnknownModel, h.Type)
	}
}

// Encode writes a in the versioned layout.
func Encode(w io.Writer, a *Artifact) error {
	var model any
	switch m := a.Model.(type) {
	case *Logistic:
		model = struct {
			Type string `json:"type"`
			*Logistic
		}{m.Kind(), m}
	case *GBDT:
		model = struct {
			Type string `json:"type"`
			*GBDT
		}{m.Kind(), m}
	default:
		return fmt.Errorf("%w: cannot encode %T", ErrUnknownModel, a.Model)
	}

	modelRaw, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	version := CurrentSchemaVersion
	threshold := a.Threshold
	doc := document{
		SchemaVersion: &version,
		Name:          a.Name,
		Threshold:     &threshold,
		FeatureNames:  a.FeatureNames,
		Model:         modelRaw,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/urfave/cli/v3"

	"github.com/Skufu/hypoxrisk/internal/artifact"
	"github.com/Skufu/hypoxrisk/internal/catalog"
	"github.com/Skufu/hypoxrisk/internal/features"
	"github.com/Skufu/hypoxrisk/internal/predict"
	"github.com/Skufu/hypoxrisk/internal/risk"
)

const defaultVariant = "compact"

func catalogFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "catalog",
		Usage: "Path to a catalog YAML replacing the built-in one (optional)",
	}
}

func variantFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "variant",
		Usage: "Calculator variant [full, compact]",
		Value: defaultVariant,
	}
}

func artifactFlag(required bool) cli.Flag {
	usage := "Path to the model artifact (optional, defaults to the variant's artifact)"
	if required {
		usage = "Path to the model artifact"
	}
	return &cli.StringFlag{
		Name:     "artifact",
		Aliases:  []string{"a"},
		Usage:    usage,
		Required: required,
	}
}

func formatFlag(def string) cli.Flag {
	return &cli.StringFlag{
		Name:  "format",
		Usage: "Output format [text, json, yaml]",
		Value: def,
	}
}

func thresholdFlag() cli.Flag {
	return &cli.FloatFlag{
		Name:  "threshold",
		Usage: "Risk threshold in percent, 1-99 (optional, defaults to the artifact's)",
	}
}

func inspectCmd() *cli.Command {
	return &cli.Command{
		Name:   "inspect",
		Usage:  "Print the schema version, model and feature list of an artifact",
		Flags:  []cli.Flag{artifactFlag(true), formatFlag(formatJSON)},
		Action: cmdInspect,
	}
}

func scoreCmd() *cli.Command {
	return &cli.Command{
		Name:  "score",
		Usage: "Score one patient from name=value pairs",
		Flags: []cli.Flag{
			artifactFlag(false),
			variantFlag(),
			catalogFlag(),
			thresholdFlag(),
			formatFlag(formatText),
			&cli.StringSliceFlag{
				Name:  "set",
				Usage: "Field value as name=value, repeatable (unset fields keep their form defaults)",
			},
		},
		Action: cmdScore,
	}
}

func promptCmd(p Prompter) *cli.Command {
	return &cli.Command{
		Name:  "prompt",
		Usage: "Ask for each field of the variant interactively, then score",
		Flags: []cli.Flag{
			artifactFlag(false),
			variantFlag(),
			catalogFlag(),
			formatFlag(formatText),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cmdPrompt(ctx, cmd, p)
		},
	}
}

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Rewrite a legacy artifact in the current versioned layout",
		Flags: []cli.Flag{
			artifactFlag(true),
			&cli.StringFlag{
				Name:     "out",
				Aliases:  []string{"o"},
				Usage:    "Destination path, or - for stdout",
				Required: true,
			},
		},
		Action: cmdMigrate,
	}
}

type artifactSummary struct {
	Source        string   `json:"source" yaml:"source"`
	SchemaVersion int      `json:"schema_version" yaml:"schema_version"`
	Name          string   `json:"name,omitempty" yaml:"name,omitempty"`
	Shape         string   `json:"migrated_from" yaml:"migrated_from"`
	Model         string   `json:"model" yaml:"model"`
	Threshold     float64  `json:"threshold" yaml:"threshold"`
	FeatureNames  []string `json:"feature_names" yaml:"feature_names"`
}

func cmdInspect(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("artifact")
	art, err := artifact.Load(path)
	if err != nil {
		return err
	}

	s := artifactSummary{
		Source:        path,
		SchemaVersion: art.SchemaVersion,
		Name:          art.Name,
		Shape:         string(art.Shape),
		Model:         art.Model.Kind(),
		Threshold:     art.Threshold,
		FeatureNames:  art.FeatureNames,
	}
	out := cmd.Root().Writer
	if f := cmd.String("format"); f != formatText {
		return encode(out, f, s)
	}

	fmt.Fprintf(out, "Source:     %s\n", s.Source)
	fmt.Fprintf(out, "Schema:     v%d (from %s)\n", s.SchemaVersion, s.Shape)
	fmt.Fprintf(out, "Model:      %s\n", s.Model)
	fmt.Fprintf(out, "Threshold:  %s\n", risk.FormatPercent(s.Threshold))
	fmt.Fprintf(out, "Features:   %s\n", strings.Join(s.FeatureNames, ", "))
	return nil
}

func cmdScore(ctx context.Context, cmd *cli.Command) error {
	cat, variant, err := loadVariant(cmd)
	if err != nil {
		return err
	}
	art, err := loadArtifact(cmd, variant)
	if err != nil {
		return err
	}

	inputs := variant.Initial()
	for _, kv := range cmd.StringSlice("set") {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid --set %q, expected name=value", kv)
		}
		key = strings.TrimSpace(key)
		f, ok := variant.Field(key)
		if !ok {
			return fmt.Errorf("%w: %q", predict.ErrUnknownInput, key)
		}
		v, err := f.Parse(raw)
		if err != nil {
			return err
		}
		inputs[key] = v
	}

	req := predict.Request{Inputs: inputs}
	if cmd.IsSet("threshold") {
		pct := cmd.Float("threshold")
		req.ThresholdPercent = &pct
	}
	return score(ctx, cmd, predict.NewService(art, variant, cat), req)
}

func cmdPrompt(ctx context.Context, cmd *cli.Command, p Prompter) error {
	cat, variant, err := loadVariant(cmd)
	if err != nil {
		return err
	}
	art, err := loadArtifact(cmd, variant)
	if err != nil {
		return err
	}

	inputs := make(map[string]float64, len(variant.Fields))
	for _, f := range variant.Fields {
		v, err := askField(ctx, p, f)
		if err != nil {
			return err
		}
		inputs[f.Name] = v
	}

	def := risk.SliderPercent(art.Threshold)
	raw, err := p.Input(ctx, "Risk threshold (%)", def, func(s string) error {
		_, err := thresholdPercent(s)
		return err
	})
	if err != nil {
		return err
	}

	req := predict.Request{Inputs: inputs}
	// Accepting the offered default keeps the artifact's exact threshold.
	if strings.TrimSpace(raw) != def {
		pct, err := thresholdPercent(raw)
		if err != nil {
			return err
		}
		req.ThresholdPercent = &pct
	}
	return score(ctx, cmd, predict.NewService(art, variant, cat), req)
}

func askField(ctx context.Context, p Prompter, f *catalog.Field) (float64, error) {
	if f.Widget == catalog.WidgetSelect {
		labels := make([]string, len(f.Options))
		def := ""
		for i, o := range f.Options {
			labels[i] = o.Label
			if o.Value == f.Initial {
				def = o.Label
			}
		}
		answer, err := p.Select(ctx, f.Label, labels, def)
		if err != nil {
			return 0, err
		}
		return f.Parse(answer)
	}

	answer, err := p.Input(ctx, f.Label, formatNumber(f.Initial), func(s string) error {
		_, err := f.Parse(s)
		return err
	})
	if err != nil {
		return 0, err
	}
	return f.Parse(answer)
}

func cmdMigrate(ctx context.Context, cmd *cli.Command) error {
	in := cmd.String("artifact")
	art, err := artifact.Load(in)
	if err != nil {
		return err
	}

	dest := cmd.String("out")
	var w io.Writer = cmd.Root().Writer
	if dest != "-" {
		f, err := os.Create(dest)
		if err != nil {
			return fmt.Errorf("create %s: %w", dest, err)
		}
		defer f.Close()
		w = f
	}
	if err := artifact.Encode(w, art); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	log.WithFields(log.Fields{
		"from":  in,
		"to":    dest,
		"shape": art.Shape,
	}).Info("artifact migrated")
	return nil
}

type scoreReport struct {
	Variant     string             `json:"variant" yaml:"variant"`
	Label       risk.Label         `json:"label" yaml:"label"`
	Probability float64            `json:"probability" yaml:"probability"`
	Percent     string             `json:"percent" yaml:"percent"`
	Threshold   float64            `json:"threshold" yaml:"threshold"`
	Derived     features.Derived   `json:"derived" yaml:"derived"`
	Features    map[string]float64 `json:"features" yaml:"features"`
	Advice      string             `json:"advice" yaml:"advice"`
}

func score(ctx context.Context, cmd *cli.Command, svc *predict.Service, req predict.Request) error {
	res, err := svc.Predict(ctx, req)
	if err != nil {
		return err
	}

	r := scoreReport{
		Variant:     svc.Variant().Name,
		Label:       res.Verdict.Label,
		Probability: res.Verdict.Probability,
		Percent:     res.Verdict.Percent,
		Threshold:   res.Verdict.Threshold,
		Derived:     res.Derived,
		Features:    res.Vector.Map(),
		Advice:      catalog.PlainText(res.Verdict.Advice),
	}
	out := cmd.Root().Writer
	if f := cmd.String("format"); f != formatText {
		return encode(out, f, r)
	}

	fmt.Fprintf(out, "%s\n", svc.Variant().Title)
	if res.Derived.Warning != "" {
		fmt.Fprintf(out, "Warning:      %s\n", res.Derived.Warning)
	} else {
		fmt.Fprintf(out, "BMI:          %.2f\n", res.Derived.BMI)
		fmt.Fprintf(out, "Neck/height:  %.3f\n", res.Derived.NeckHeightRatio)
	}
	fmt.Fprintf(out, "Probability:  %s\n", r.Percent)
	fmt.Fprintf(out, "Threshold:    %s%%\n", risk.SliderPercent(r.Threshold))
	fmt.Fprintf(out, "Verdict:      %s %s\n", res.Verdict.Icon, r.Label)
	fmt.Fprintf(out, "\n%s\n", r.Advice)
	return nil
}

func loadVariant(cmd *cli.Command) (*catalog.Catalog, *catalog.Variant, error) {
	cat, err := catalog.Load(cmd.String("catalog"))
	if err != nil {
		return nil, nil, err
	}
	v, err := cat.Variant(cmd.String("variant"))
	if err != nil {
		return nil, nil, fmt.Errorf("%w (known: %s)", err, strings.Join(cat.VariantNames(), ", "))
	}
	return cat, v, nil
}

func loadArtifact(cmd *cli.Command, variant *catalog.Variant) (*artifact.Artifact, error) {
	path := cmd.String("artifact")
	if path == "" {
		path = artifact.ResolvePath(variant.Artifact)
	}
	art, err := artifact.Load(path)
	if errors.Is(err, artifact.ErrArtifactMissing) {
		return nil, fmt.Errorf("%w: run %s first to generate it", err, variant.TrainingScript)
	}
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"path": path, "model": art.Model.Kind()}).Debug("artifact loaded")
	return art, nil
}

func thresholdPercent(raw string) (float64, error) {
	pct, err := cast.ToFloat64E(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", risk.ErrThresholdRange, raw)
	}
	if _, err := risk.ThresholdFromPercent(pct); err != nil {
		return 0, err
	}
	return pct, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

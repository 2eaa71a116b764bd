package web

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/Skufu/hypoxrisk/internal/predict"
	"github.com/Skufu/hypoxrisk/internal/risk"
)

func parsePercent(raw string) (float64, error) {
	pct, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", risk.ErrThresholdRange, raw)
	}
	if _, err := risk.ThresholdFromPercent(pct); err != nil {
		return 0, err
	}
	return pct, nil
}

func unknownInput(name string) error {
	return fmt.Errorf("%w: %q", predict.ErrUnknownInput, name)
}

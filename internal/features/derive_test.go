package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBMI(t *testing.T) {
	bmi, err := BMI(70, 170)
	require.NoError(t, err)
	assert.InDelta(t, 24.22, bmi, 0.005)

	_, err = BMI(70, 0)
	assert.ErrorIs(t, err, ErrNonPositiveHeight)
}

func TestNeckHeightRatio(t *testing.T) {
	r, err := NeckHeightRatio(38, 170)
	require.NoError(t, err)
	assert.InDelta(t, 0.2235, r, 0.00005)

	_, err = NeckHeightRatio(38, -1)
	assert.ErrorIs(t, err, ErrNonPositiveHeight)
}

func TestDeriveDegenerateHeight(t *testing.T) {
	d := Derive(0, 70, 38)
	assert.Zero(t, d.BMI)
	assert.Zero(t, d.NeckHeightRatio)
	assert.Equal(t, ErrNonPositiveHeight.Error(), d.Warning)

	d = Derive(170, 70, 38)
	assert.Empty(t, d.Warning)
	assert.InDelta(t, 24.22, d.BMI, 0.005)
}

func TestDeriveNonFiniteHeight(t *testing.T) {
	for _, h := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		d := Derive(h, 70, 38)
		assert.Zero(t, d.BMI, h)
		assert.Zero(t, d.NeckHeightRatio, h)
		assert.Equal(t, ErrNonPositiveHeight.Error(), d.Warning, h)
	}
}

func TestBinary(t *testing.T) {
	cases := map[string]float64{
		"yes": 1, " Yes ": 1, "有": 1, "男": 1, "male": 1, "true": 1,
		"no": 0, "无": 0, "女": 0, "female": 0, "0": 0,
	}
	for in, want := range cases {
		got, err := Binary(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := Binary("maybe")
	assert.ErrorIs(t, err, ErrUnknownAnswer)
}

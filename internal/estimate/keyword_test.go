package estimate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/adscout/internal/model"
)

func newTestInterpolator(t *testing.T) *Interpolator {
	t.Helper()
	i, err := NewInterpolator()
	require.NoError(t, err)
	return i
}

func TestKeywords_KnownServiceAtZero(t *testing.T) {
	i := newTestInterpolator(t)

	kws := i.Keywords("interior painting", nil, 0)
	require.Len(t, kws, 2)

	// f = 0 pins both figures to the low end of the template range.
	assert.Equal(t, "interior painting", kws[0].Keyword)
	assert.Equal(t, 3.50, kws[0].AvgCPC)
	assert.Equal(t, 320, kws[0].MonthlyVolume)
	assert.Equal(t, model.CompetitionHigh, kws[0].Competition)
	assert.Empty(t, kws[0].City)

	assert.Equal(t, "interior painting near me", kws[1].Keyword)
	assert.Equal(t, 3.50, kws[1].AvgCPC)
	assert.Equal(t, 112, kws[1].MonthlyVolume)
}

func TestKeywords_KnownServiceAtOne(t *testing.T) {
	i := newTestInterpolator(t)

	kws := i.Keywords("interior painting", nil, 1)
	assert.Equal(t, 12.00, kws[0].AvgCPC)
	assert.Equal(t, 2400, kws[0].MonthlyVolume)
}

func TestKeywords_UnknownServiceUsesGeneric(t *testing.T) {
	i := newTestInterpolator(t)

	kws := i.Keywords("koi pond excavation", nil, 0.5)
	require.NotEmpty(t, kws)
	assert.Equal(t, model.CompetitionMedium, kws[0].Competition)
	// generic range midpoint: cpc (2.00+9.00)/2, volume (150+1200)/2
	assert.Equal(t, 5.50, kws[0].AvgCPC)
	assert.Equal(t, 675, kws[0].MonthlyVolume)
}

func TestKeywords_CityVariants(t *testing.T) {
	i := newTestInterpolator(t)

	kws := i.Keywords("interior painting", []string{"San Diego", "Chula Vista"}, 0.5)
	require.Len(t, kws, 4)

	base := kws[0]
	for _, kw := range kws[2:] {
		assert.NotEmpty(t, kw.City)
		// city CPC is exactly 1.15x base, rounded to cents
		assert.InDelta(t, base.AvgCPC*1.15, kw.AvgCPC, 0.005)
		// city volume fraction stays inside [0.20, 0.35] of base
		frac := float64(kw.MonthlyVolume) / float64(base.MonthlyVolume)
		assert.GreaterOrEqual(t, frac, 0.195)
		assert.LessOrEqual(t, frac, 0.355)
	}
	assert.Equal(t, "interior painting san diego", kws[2].Keyword)
	assert.Equal(t, "San Diego", kws[2].City)
}

func TestKeywords_CityFractionBoundsAcrossFactors(t *testing.T) {
	i := newTestInterpolator(t)

	for _, f := range []float64{0, 0.1, 0.25, 0.5, 0.75, 0.9, 1} {
		kws := i.Keywords("roofing", []string{"Austin"}, f)
		require.Len(t, kws, 3)
		base, city := kws[0], kws[2]
		frac := float64(city.MonthlyVolume) / float64(base.MonthlyVolume)
		assert.GreaterOrEqual(t, frac, 0.195, "f=%v", f)
		assert.LessOrEqual(t, frac, 0.355, "f=%v", f)
	}
}

func TestKeywords_MonotoneInFactor(t *testing.T) {
	i := newTestInterpolator(t)

	prevCPC, prevVol := -1.0, -1
	for _, f := range []float64{0, 0.2, 0.4, 0.6, 0.8, 1} {
		kws := i.Keywords("plumbing", nil, f)
		assert.GreaterOrEqual(t, kws[0].AvgCPC, prevCPC)
		assert.GreaterOrEqual(t, kws[0].MonthlyVolume, prevVol)
		prevCPC, prevVol = kws[0].AvgCPC, kws[0].MonthlyVolume
	}
}

func TestKeywords_FactorClamped(t *testing.T) {
	i := newTestInterpolator(t)

	low := i.Keywords("plumbing", nil, -3)
	zero := i.Keywords("plumbing", nil, 0)
	assert.Equal(t, zero, low)

	high := i.Keywords("plumbing", nil, 42)
	one := i.Keywords("plumbing", nil, 1)
	assert.Equal(t, one, high)
}

func TestKeywords_Deterministic(t *testing.T) {
	i := newTestInterpolator(t)

	a := i.Keywords("landscaping", []string{"Tucson"}, 0.37)
	b := i.Keywords("landscaping", []string{"Tucson"}, 0.37)
	assert.Equal(t, a, b)
}

func TestKeywords_BlankCitySkipped(t *testing.T) {
	i := newTestInterpolator(t)

	kws := i.Keywords("roofing", []string{"  ", "Dallas"}, 0.5)
	require.Len(t, kws, 3)
	assert.Equal(t, "Dallas", kws[2].City)
}

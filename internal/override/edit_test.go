package override

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"spot-api/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRating(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"7.26", 5.0, true},
		{"-3", 0.0, true},
		{"abc", 0, false},
		{"", 0, false},
		{"   ", 0, false},
		{"4,56", 4.6, true},
		{"3.14abc", 3.1, true},
		{" 2.25 ", 2.3, true},
		{".5", 0.5, true},
		{"1e1", 5.0, true},
		{"4.", 4.0, true},
		{"+1.04", 1.0, true},
		{"1e999", 5.0, true},
		{"x4", 0, false},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, ok := NormalizeRating(c.in)
			assert.Equal(t, c.ok, ok)
			if c.ok {
				assert.InDelta(t, c.want, got, 1e-9)
			}
		})
	}
}

func TestNormalizeRatingLaw(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		in := strconv.FormatFloat((rng.Float64()-0.3)*20, 'f', rng.Intn(5), 64)
		if rng.Intn(4) == 0 {
			in = strings.Replace(in, ".", ",", 1)
		}
		v, ok := NormalizeRating(in)
		require.True(t, ok, in)
		assert.GreaterOrEqual(t, v, 0.0, in)
		assert.LessOrEqual(t, v, 5.0, in)
		assert.InDelta(t, 0, v*10-math.Round(v*10), 1e-9, in)
	}
}

func TestBuildPatchPolicy(t *testing.T) {
	base := gate()

	p := BuildPatch(base, FormFrom(base))
	assert.Nil(t, p.Title)
	assert.Nil(t, p.Description)
	assert.Nil(t, p.CategoryLabel)
	require.NotNil(t, p.Rating)
	assert.Equal(t, 4.8, *p.Rating)

	p = BuildPatch(base, Form{
		Title:         "  Brandenburger Tor  ",
		Description:   "   ",
		CategoryLabel: " Brandenburg Gate ",
		Rating:        "nope",
	})
	require.NotNil(t, p.Title)
	assert.Equal(t, "Brandenburger Tor", *p.Title)
	assert.Nil(t, p.Description)
	require.NotNil(t, p.CategoryLabel)
	assert.Equal(t, "Brandenburg Gate", *p.CategoryLabel)
	assert.Nil(t, p.Rating)

	p = BuildPatch(base, Form{Title: "Brandenburg Gate ", Rating: "9"})
	assert.Nil(t, p.Title)
	assert.Equal(t, 5.0, *p.Rating)
}

func TestBuildPatchCapsDescription(t *testing.T) {
	long := strings.Repeat("ä", MaxDescriptionRunes+50)
	p := BuildPatch(gate(), Form{Description: long})
	require.NotNil(t, p.Description)
	assert.Equal(t, MaxDescriptionRunes, len([]rune(*p.Description)))
}

func TestFormDirty(t *testing.T) {
	initial := FormFrom(gate())
	assert.Equal(t, "4.8", initial.Rating)

	f := initial
	assert.False(t, f.Dirty(initial))
	f.Title = " Brandenburg Gate  "
	assert.False(t, f.Dirty(initial))
	f.Rating = "4.9"
	assert.True(t, f.Dirty(initial))

	assert.Equal(t, "", Form{Rating: "abc"}.Normalized().Rating)
	assert.Equal(t, "3.5", Form{Rating: "3,46"}.Normalized().Rating)
}

func TestFormFromWholeRating(t *testing.T) {
	assert.Equal(t, "4", FormFrom(catalog.Spot{Rating: 4}).Rating)
}

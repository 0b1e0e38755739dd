package catalog

import (
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDefault(t *testing.T) *Catalog {
	t.Helper()
	c, err := Default()
	require.NoError(t, err)
	return c
}

func TestDefaultCatalog(t *testing.T) {
	c := mustDefault(t)
	assert.Equal(t, 15, c.Len())

	s, ok := c.Get("s1")
	require.True(t, ok)
	assert.Equal(t, "Brandenburg Gate", s.Title)
	assert.Equal(t, 4.8, s.Rating)
	require.True(t, s.HasCoords())

	walk, ok := c.Get("s15")
	require.True(t, ok)
	assert.False(t, walk.HasCoords())

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestAccessorsReturnCopies(t *testing.T) {
	c := mustDefault(t)
	s, _ := c.Get("s1")
	s.Title = "changed"
	*s.Lat = 0

	again, _ := c.Get("s1")
	assert.Equal(t, "Brandenburg Gate", again.Title)
	assert.InDelta(t, 52.5163, *again.Lat, 1e-9)

	all := c.All()
	all[0].Title = "x"
	assert.Equal(t, "Brandenburg Gate", c.All()[0].Title)
}

func TestCategoriesFirstSeenOrder(t *testing.T) {
	c := mustDefault(t)
	var keys []string
	for _, cat := range c.Categories() {
		keys = append(keys, cat.Key)
	}
	assert.Equal(t, []string{"historical", "art", "entertainment", "people", "night", "other"}, keys)
}

func TestFilter(t *testing.T) {
	c := mustDefault(t)

	assert.Len(t, c.Filter(Query{}), 15)
	assert.Len(t, c.Filter(Query{Category: "all"}), 15)

	art := c.Filter(Query{Category: "art"})
	require.Len(t, art, 3)
	for _, s := range art {
		assert.Equal(t, "art", s.CategoryKey)
	}

	got := c.Filter(Query{Search: "  GATE "})
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID)

	assert.Empty(t, c.Filter(Query{Category: "night", Search: "gate"}))
	assert.NotNil(t, c.Filter(Query{Search: "nothing matches"}))
}

func TestNewValidation(t *testing.T) {
	base := Spot{ID: "a", Title: "A", Rating: 4.5}

	cases := map[string][]Spot{
		"empty id":     {{ID: " "}},
		"duplicate id": {base, base},
		"rating high":  {{ID: "a", Rating: 5.1}},
		"rating low":   {{ID: "a", Rating: -0.1}},
		"two decimals": {{ID: "a", Rating: 4.25}},
		"lat only":     {func() Spot { s := base; v := 1.0; s.Lat = &v; return s }()},
		"lat range":    {base.WithCoords(91, 0)},
		"lng range":    {base.WithCoords(0, 181)},
	}
	for name, spots := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(spots)
			assert.Error(t, err)
		})
	}

	c, err := New([]Spot{base, {ID: "b", Rating: 0}, {ID: "c", Rating: 5}})
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader(`[{"id":"a","rating":1,"bogus":true}]`))
	assert.Error(t, err)

	c, err := Load(strings.NewReader(`[{"id":"a","title":"A","rating":1}]`))
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
}

func TestWithCoordsAndRandom(t *testing.T) {
	c := mustDefault(t)
	pts := c.WithCoords()
	assert.Len(t, pts, 14)
	for _, s := range pts {
		assert.True(t, s.HasCoords())
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		s, ok := c.Random(rng)
		require.True(t, ok)
		assert.True(t, s.HasCoords())
	}

	empty, err := New([]Spot{{ID: "x"}})
	require.NoError(t, err)
	_, ok := empty.Random(rng)
	assert.False(t, ok)
}

func TestNearestMatchesBruteForce(t *testing.T) {
	c := mustDefault(t)
	rng := rand.New(rand.NewSource(42))
	pts := c.WithCoords()

	for i := 0; i < 200; i++ {
		lat := 52.45 + rng.Float64()*0.12
		lng := 13.28 + rng.Float64()*0.2
		k := 1 + rng.Intn(6)

		type pair struct {
			id string
			d  float64
		}
		var want []pair
		for _, s := range pts {
			want = append(want, pair{s.ID, Haversine(lat, lng, *s.Lat, *s.Lng)})
		}
		sort.SliceStable(want, func(a, b int) bool { return want[a].d < want[b].d })

		got := c.Nearest(lat, lng, k)
		require.Len(t, got, k)
		for j := range got {
			assert.Equal(t, want[j].id, got[j].Spot.ID)
			assert.InDelta(t, want[j].d, got[j].DistanceKm, 1e-9)
		}
	}
}

func TestNearestEdges(t *testing.T) {
	c := mustDefault(t)
	assert.Empty(t, c.Nearest(52.52, 13.405, 0))
	assert.Len(t, c.Nearest(52.52, 13.405, 100), 14)

	got := c.Nearest(52.5163, 13.3777, 1)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].Spot.ID)
	assert.InDelta(t, 0, got[0].DistanceKm, 1e-9)

	none, err := New([]Spot{{ID: "x"}})
	require.NoError(t, err)
	assert.Empty(t, none.Nearest(0, 0, 3))
}

func TestHaversine(t *testing.T) {
	// Brandenburg Gate to TV Tower, about 2.2 km
	d := Haversine(52.5163, 13.3777, 52.5208, 13.4094)
	assert.InDelta(t, 2.2, d, 0.1)
	assert.InDelta(t, 0, Haversine(1, 2, 1, 2), 1e-12)
}

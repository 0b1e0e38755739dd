package mapview

import (
	"testing"

	"spot-api/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject(t *testing.T) {
	b := Berlin
	const w, h = 340, 600

	// north-west corner pins the marker to the top-left edge
	assert.Equal(t, Pos{Left: 0, Top: 0}, b.Project(b.North, b.West, w, h))
	// south-east corner keeps the whole marker on the canvas
	assert.Equal(t, Pos{Left: w - MarkerW, Top: h - MarkerH}, b.Project(b.South, b.East, w, h))

	mid := b.Project((b.North+b.South)/2, (b.West+b.East)/2, w, h)
	assert.InDelta(t, w/2.0-MarkerW/2.0, mid.Left, 1e-9)
	assert.InDelta(t, h/2.0-MarkerH, mid.Top, 1e-9)

	// Tempelhofer Feld lies south of the picture and is clamped to the bottom edge
	tf := b.Project(52.4732, 13.4018, w, h)
	assert.Equal(t, float64(h-MarkerH), tf.Top)
	assert.False(t, b.Contains(52.4732, 13.4018))
	assert.True(t, b.Contains(52.5163, 13.3777))

	assert.Equal(t, Pos{Left: -9999, Top: -9999}, b.Project(52.5, 13.4, 0, h))
}

func TestMarkersSkipSpotsWithoutCoords(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	ms := Berlin.Markers(cat.All(), 300, 300)
	assert.Len(t, ms, 14)
	for _, m := range ms {
		assert.NotEqual(t, "s15", m.ID)
		assert.GreaterOrEqual(t, m.Pos.Left, 0.0)
		assert.LessOrEqual(t, m.Pos.Top, 300.0-MarkerH)
	}
}

func TestLinks(t *testing.T) {
	p := catalog.Point{Lat: 52.5163, Lng: 13.3777}
	assert.Equal(t, "http://maps.apple.com/?ll=52.5163,13.3777&q=Brandenburg%20Gate", AppleMapsURL(p, "Brandenburg Gate"))
	assert.Equal(t, "geo:52.5163,13.3777?q=52.5163,13.3777(Brandenburg%20Gate)", GeoURI(p, "Brandenburg Gate"))
	assert.Equal(t, "https://www.google.com/maps/search/?api=1&query=52.5163,13.3777", WebSearchURL(p))
	assert.Equal(t, "https://www.google.com/maps?q=&layer=c&cbll=52.5163,13.3777", StreetViewURL(p))
	assert.Equal(t, "https://www.google.com/search?q=RAW-Gel%C3%A4nde%20(Berlin)", WebQueryURL("RAW-Gelände (Berlin)"))

	assert.Equal(t, AppleMapsURL(p, "x"), NativeURL("iOS", p, "x"))
	assert.Equal(t, GeoURI(p, "x"), NativeURL("android", p, "x"))
	assert.Contains(t, AppleMapsURL(DefaultCenter, "  "), "q=Berlin")
}

func TestDirectionsURL(t *testing.T) {
	_, ok := DirectionsURL([]catalog.Point{{Lat: 1, Lng: 2}})
	assert.False(t, ok)

	u, ok := DirectionsURL([]catalog.Point{{Lat: 1, Lng: 2}, {Lat: 3, Lng: 4}})
	require.True(t, ok)
	assert.Equal(t, "https://www.google.com/maps/dir/?api=1&origin=1,2&destination=3,4", u)

	u, ok = DirectionsURL([]catalog.Point{{Lat: 1, Lng: 2}, {Lat: 3, Lng: 4}, {Lat: 5.5, Lng: 6}, {Lat: 7, Lng: 8}})
	require.True(t, ok)
	assert.Equal(t, "https://www.google.com/maps/dir/?api=1&origin=1,2&destination=7,8&waypoints=3%2C4%7C5.5%2C6", u)
}

func TestMessages(t *testing.T) {
	s := catalog.Spot{ID: "s1", Title: "Brandenburg Gate", Description: "Gate."}.WithCoords(52.5163, 13.3777)
	assert.Equal(t, "Brandenburg Gate\nGate.\n\n(52.5163, 13.3777)", SpotMessage(s))
	assert.Equal(t, "Brandenburg Gate\nhttps://www.google.com/maps/search/?api=1&query=52.5163,13.3777", PreviewMessage(s))

	walk := catalog.Spot{ID: "s15", Title: "Walk", Description: "Along the river."}
	assert.Equal(t, "Walk\nAlong the river.", SpotMessage(walk))
	assert.Equal(t, "Walk\nhttps://www.google.com/maps/search/?api=1&query=52.52,13.405", PreviewMessage(walk))
}

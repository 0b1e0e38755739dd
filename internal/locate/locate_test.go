package locate

import (
	"errors"
	"net"
	"net/http/httptest"
	"testing"

	"spot-api/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var center = catalog.Point{Lat: 52.52, Lng: 13.405}

type fakeResolver struct {
	calls  int
	places map[string]Place
	err    error
}

func (f *fakeResolver) Resolve(ip net.IP) (Place, error) {
	f.calls++
	if f.err != nil {
		return Place{}, f.err
	}
	p, ok := f.places[ip.String()]
	if !ok {
		return Place{}, errNoRecord
	}
	return p, nil
}

func (f *fakeResolver) Close() error { return nil }

func TestLocateCachesHits(t *testing.T) {
	res := &fakeResolver{places: map[string]Place{
		"81.10.0.1": {Point: catalog.Point{Lat: 52.4, Lng: 13.5}, City: "Berlin", Country: "DE"},
	}}
	l := New(res, center, 0)

	p := l.Locate("81.10.0.1")
	assert.Equal(t, SourceGeoIP, p.Source)
	assert.Equal(t, "Berlin", p.City)
	assert.Equal(t, 52.4, p.Point.Lat)

	p = l.Locate(" 81.10.0.1 ")
	assert.Equal(t, SourceCache, p.Source)
	assert.Equal(t, 13.5, p.Point.Lng)
	assert.Equal(t, 1, res.calls)
}

func TestLocateFallsBack(t *testing.T) {
	res := &fakeResolver{places: map[string]Place{}}
	l := New(res, center, 0)

	for _, ip := range []string{"", "garbage", "127.0.0.1", "10.1.2.3", "192.168.0.5", "::1", "0.0.0.0"} {
		p := l.Locate(ip)
		assert.Equal(t, SourceDefault, p.Source, ip)
		assert.Equal(t, center, p.Point, ip)
	}
	assert.Equal(t, 0, res.calls)

	assert.Equal(t, SourceDefault, l.Locate("8.8.8.8").Source)
	assert.Equal(t, 1, res.calls)

	broken := New(&fakeResolver{err: errors.New("db closed")}, center, 0)
	assert.Equal(t, center, broken.Locate("8.8.8.8").Point)
}

func TestOpenWithoutDatabase(t *testing.T) {
	l, err := Open("", KindCity, center)
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, l.Locate("8.8.8.8").Source)
	assert.NoError(t, l.Close())

	_, err = Open("/nope.mmdb", "weird", center)
	assert.Error(t, err)
	_, err = Open("/does/not/exist.mmdb", KindCity, center)
	assert.Error(t, err)
	_, err = Open("/does/not/exist.mmdb", KindMMDB, center)
	assert.Error(t, err)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/nearby", nil)
	r.RemoteAddr = "203.0.113.9:5555"
	assert.Equal(t, "203.0.113.9", ClientIP(r))
	assert.Equal(t, "203.0.113.9", RemoteIP(r))

	r.Header.Set("forwarded", `for="[2001:db8::1]";proto=https`)
	assert.Equal(t, "2001:db8::1", ClientIP(r))

	r.Header.Set("x-real-ip", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", ClientIP(r))

	r.Header.Set("x-forwarded-for", " 198.51.100.7 , 10.0.0.1")
	assert.Equal(t, "198.51.100.7", ClientIP(r))
	assert.Equal(t, "203.0.113.9", RemoteIP(r))
}

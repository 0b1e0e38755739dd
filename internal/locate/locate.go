// 包 locate：按访问者 IP 估算所在位置，作为“附近地点”未给出坐标时的起点
package locate

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/oschwald/geoip2-golang"
	"github.com/oschwald/maxminddb-golang"
	gocache "github.com/patrickmn/go-cache"

	"spot-api/internal/catalog"
	"spot-api/internal/logger"
	"spot-api/internal/metrics"
)

// 数据库类型
const (
	KindCity = "city"
	KindMMDB = "mmdb"
)

const (
	SourceGeoIP   = "geoip"
	SourceCache   = "cache"
	SourceDefault = "default"
)

var errNoRecord = errors.New("locate: no record")

// Place：一次查询的结果
type Place struct {
	Point   catalog.Point `json:"point"`
	City    string        `json:"city,omitempty"`
	Country string        `json:"country,omitempty"`
	Source  string        `json:"source"`
}

// Resolver：IP 到位置的查询后端
type Resolver interface {
	Resolve(ip net.IP) (Place, error)
	Close() error
}

// 文档注释：带缓存的定位器
// 约束：私有、回环与无法解析的地址不查库，直接返回 fallback；未配置数据库时同样返回 fallback。
type Locator struct {
	res      Resolver
	cache    *gocache.Cache
	fallback catalog.Point
	log      *slog.Logger
}

// New：res 为 nil 时只返回 fallback
func New(res Resolver, fallback catalog.Point, ttl time.Duration) *Locator {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Locator{res: res, cache: gocache.New(ttl, 2*ttl), fallback: fallback, log: logger.L()}
}

// Open：按类型打开 GeoIP 数据库；path 为空时返回无数据库的定位器
func Open(path, kind string, fallback catalog.Point) (*Locator, error) {
	if strings.TrimSpace(path) == "" {
		return New(nil, fallback, 0), nil
	}
	var res Resolver
	var err error
	switch strings.ToLower(kind) {
	case "", KindCity:
		res, err = openCity(path)
	case KindMMDB:
		res, err = openMMDB(path)
	default:
		return nil, fmt.Errorf("locate: unknown db kind %q", kind)
	}
	if err != nil {
		return nil, err
	}
	return New(res, fallback, 0), nil
}

func (l *Locator) Close() error {
	if l.res == nil {
		return nil
	}
	return l.res.Close()
}

// Locate：查询 ip 的位置，失败时回退
func (l *Locator) Locate(ip string) Place {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if l.res == nil || parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		return l.def()
	}
	key := parsed.String()
	if v, ok := l.cache.Get(key); ok {
		p := v.(Place)
		p.Source = SourceCache
		metrics.LocateTotal.WithLabelValues(SourceCache).Inc()
		return p
	}
	p, err := l.res.Resolve(parsed)
	if err != nil {
		if !errors.Is(err, errNoRecord) {
			l.log.Warn("locate_error", "ip", key, "err", err)
		}
		return l.def()
	}
	p.Source = SourceGeoIP
	l.cache.Set(key, p, gocache.DefaultExpiration)
	metrics.LocateTotal.WithLabelValues(SourceGeoIP).Inc()
	return p
}

func (l *Locator) def() Place {
	metrics.LocateTotal.WithLabelValues(SourceDefault).Inc()
	return Place{Point: l.fallback, Source: SourceDefault}
}

// cityResolver：GeoIP2/GeoLite2 City 数据库
type cityResolver struct{ r *geoip2.Reader }

func openCity(path string) (*cityResolver, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("locate open city %s: %w", path, err)
	}
	return &cityResolver{r: r}, nil
}

func (c *cityResolver) Resolve(ip net.IP) (Place, error) {
	rec, err := c.r.City(ip)
	if err != nil {
		return Place{}, err
	}
	if rec.Location.Latitude == 0 && rec.Location.Longitude == 0 {
		return Place{}, errNoRecord
	}
	return Place{
		Point:   catalog.Point{Lat: rec.Location.Latitude, Lng: rec.Location.Longitude},
		City:    rec.City.Names["en"],
		Country: rec.Country.IsoCode,
	}, nil
}

func (c *cityResolver) Close() error { return c.r.Close() }

// mmdbResolver：任意带 location 字段的 MaxMind 格式库
type mmdbResolver struct{ r *maxminddb.Reader }

type mmdbRecord struct {
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
	Country struct {
		IsoCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	Location struct {
		Latitude  float64 `maxminddb:"latitude"`
		Longitude float64 `maxminddb:"longitude"`
	} `maxminddb:"location"`
}

func openMMDB(path string) (*mmdbResolver, error) {
	r, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("locate open mmdb %s: %w", path, err)
	}
	return &mmdbResolver{r: r}, nil
}

func (m *mmdbResolver) Resolve(ip net.IP) (Place, error) {
	var rec mmdbRecord
	_, ok, err := m.r.LookupNetwork(ip, &rec)
	if err != nil {
		return Place{}, err
	}
	if !ok || (rec.Location.Latitude == 0 && rec.Location.Longitude == 0) {
		return Place{}, errNoRecord
	}
	return Place{
		Point:   catalog.Point{Lat: rec.Location.Latitude, Lng: rec.Location.Longitude},
		City:    rec.City.Names["en"],
		Country: rec.Country.IsoCode,
	}, nil
}

func (m *mmdbResolver) Close() error { return m.r.Close() }

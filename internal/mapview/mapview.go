// 包 mapview：城市底图的坐标投影、外部地图链接与分享文案
package mapview

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"spot-api/internal/catalog"
)

const (
	MarkerW = 26
	MarkerH = 26
	// offscreen：画布尺寸未知时的标记位置
	offscreen = -9999
)

// 默认中心（柏林市中心），用于无选中地点时的链接
var DefaultCenter = catalog.Point{Lat: 52.52, Lng: 13.405}

// Bounds：底图覆盖的经纬范围
type Bounds struct {
	North, South, West, East float64
}

// Berlin：内置底图图片对应的范围
var Berlin = Bounds{North: 52.545, South: 52.485, West: 13.300, East: 13.470}

// Pos：标记左上角在画布中的像素位置
type Pos struct {
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

// 文档注释：等距矩形投影
// 约束：超出范围的坐标钳制到边缘；标记以底边中点对齐坐标，且整体保持在画布内；
// w 或 h 非正时返回画布外位置。
func (b Bounds) Project(lat, lng, w, h float64) Pos {
	if w <= 0 || h <= 0 {
		return Pos{Left: offscreen, Top: offscreen}
	}
	x := clamp((lng-b.West)/(b.East-b.West), 0, 1)
	y := clamp((b.North-lat)/(b.North-b.South), 0, 1)
	left := clamp(x*w-MarkerW/2.0, 0, w-MarkerW)
	top := clamp(y*h-MarkerH, 0, h-MarkerH)
	return Pos{Left: left, Top: top}
}

// Contains：坐标是否落在范围内（含边界）
func (b Bounds) Contains(lat, lng float64) bool {
	return lat <= b.North && lat >= b.South && lng >= b.West && lng <= b.East
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// Marker：投影后的地点标记
type Marker struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Pos   Pos     `json:"pos"`
}

// Markers：为带坐标的地点生成标记，其余跳过
func (b Bounds) Markers(spots []catalog.Spot, w, h float64) []Marker {
	out := []Marker{}
	for _, s := range spots {
		p, ok := s.Coords()
		if !ok {
			continue
		}
		out = append(out, Marker{ID: s.ID, Title: s.Title, Lat: p.Lat, Lng: p.Lng, Pos: b.Project(p.Lat, p.Lng, w, h)})
	}
	return out
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func ll(p catalog.Point) string { return num(p.Lat) + "," + num(p.Lng) }

// encodeComponent：与浏览器 encodeURIComponent 相同的转义集合
func encodeComponent(s string) string {
	r := strings.NewReplacer("+", "%20", "%21", "!", "%27", "'", "%28", "(", "%29", ")", "%2A", "*")
	return r.Replace(url.QueryEscape(s))
}

func label(title string) string {
	if strings.TrimSpace(title) == "" {
		return "Berlin"
	}
	return title
}

func AppleMapsURL(p catalog.Point, title string) string {
	return "http://maps.apple.com/?ll=" + ll(p) + "&q=" + encodeComponent(label(title))
}

func GeoURI(p catalog.Point, title string) string {
	return "geo:" + ll(p) + "?q=" + ll(p) + "(" + encodeComponent(label(title)) + ")"
}

func WebSearchURL(p catalog.Point) string {
	return "https://www.google.com/maps/search/?api=1&query=" + ll(p)
}

func StreetViewURL(p catalog.Point) string {
	return "https://www.google.com/maps?q=&layer=c&cbll=" + ll(p)
}

func WebQueryURL(q string) string {
	return "https://www.google.com/search?q=" + encodeComponent(q)
}

// NativeURL：ios 使用 Apple 地图，其余平台使用 geo: URI
func NativeURL(platform string, p catalog.Point, title string) string {
	if strings.EqualFold(platform, "ios") {
		return AppleMapsURL(p, title)
	}
	return GeoURI(p, title)
}

// DirectionsURL：多点路线；少于两个点时返回 false
// 约束：首点为起点，末点为终点，中间点以 '|' 连接后整体转义。
func DirectionsURL(points []catalog.Point) (string, bool) {
	if len(points) < 2 {
		return "", false
	}
	first, rest := points[0], points[1:]
	dest := rest[len(rest)-1]
	u := "https://www.google.com/maps/dir/?api=1&origin=" + ll(first) + "&destination=" + ll(dest)
	if mid := rest[:len(rest)-1]; len(mid) > 0 {
		parts := make([]string, len(mid))
		for i, p := range mid {
			parts[i] = ll(p)
		}
		u += "&waypoints=" + encodeComponent(strings.Join(parts, "|"))
	}
	return u, true
}

// PointOrCenter：无坐标的地点回退到默认中心
func PointOrCenter(s catalog.Spot) catalog.Point {
	if p, ok := s.Coords(); ok {
		return p
	}
	return DefaultCenter
}

// SpotMessage：详情页分享文案
func SpotMessage(s catalog.Spot) string {
	msg := s.Title + "\n" + s.Description
	if p, ok := s.Coords(); ok {
		msg += "\n\n(" + num(p.Lat) + ", " + num(p.Lng) + ")"
	}
	return msg
}

// PreviewMessage：地图预览的分享文案
func PreviewMessage(s catalog.Spot) string {
	return s.Title + "\n" + WebSearchURL(PointOrCenter(s))
}

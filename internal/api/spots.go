package api

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"spot-api/internal/catalog"
	"spot-api/internal/locate"
	"spot-api/internal/mapview"
	"spot-api/internal/override"
)

// spotView：对外的地点记录（已叠加覆盖并带收藏状态）
type spotView struct {
	override.Decorated
	Saved bool `json:"saved"`
}

func (s *server) view(d override.Decorated) spotView {
	return spotView{Decorated: d, Saved: s.Saved.IsSaved(d.ID)}
}

func (s *server) views(ds []override.Decorated) []spotView {
	out := make([]spotView, len(ds))
	for i, d := range ds {
		out[i] = s.view(d)
	}
	return out
}

// lookup：按路径参数取目录地点并叠加；不存在时已写出 404
func (s *server) lookup(w http.ResponseWriter, r *http.Request) (catalog.Spot, override.Decorated, bool) {
	id := r.PathValue("id")
	sp, ok := s.Catalog.Get(id)
	if !ok {
		notFound(w, "spot")
		return catalog.Spot{}, override.Decorated{}, false
	}
	return sp, s.Overrides.Decorate(r.Context(), sp), true
}

func (s *server) listSpots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	spots := s.Catalog.Filter(catalog.Query{Category: q.Get("category"), Search: q.Get("q")})
	writeJSON(w, http.StatusOK, s.views(s.Overrides.DecorateAll(r.Context(), spots)))
}

func (s *server) categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories":  s.Catalog.Categories(),
		"suggestions": override.CategorySuggestions,
	})
}

func (s *server) getSpot(w http.ResponseWriter, r *http.Request) {
	_, d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"spot": s.view(d), "form": override.FormFrom(d.Spot)})
}

// editSpot：编辑表单以当前展示值为基线构造补丁；无改动时不写存储
func (s *server) editSpot(w http.ResponseWriter, r *http.Request) {
	_, d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var f override.Form
	if !decodeBody(w, r, &f) {
		return
	}
	p := override.BuildPatch(d.Spot, f)
	if p.IsEmpty() {
		writeJSON(w, http.StatusOK, map[string]any{"spot": s.view(d), "changed": []string{}})
		return
	}
	if err := s.Overrides.Set(r.Context(), d.ID, p); err != nil {
		writeStoreError(w, r, "override_set", err)
		return
	}
	sp, _ := s.Catalog.Get(d.ID)
	writeJSON(w, http.StatusOK, map[string]any{"spot": s.view(s.Overrides.Decorate(r.Context(), sp)), "changed": p.Fields()})
}

func (s *server) clearOverride(w http.ResponseWriter, r *http.Request) {
	sp, _, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := s.Overrides.Delete(r.Context(), sp.ID); err != nil {
		writeStoreError(w, r, "override_delete", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"spot": s.view(override.Apply(sp, override.Patch{}, false))})
}

type links struct {
	Native     string `json:"native"`
	Apple      string `json:"apple"`
	Geo        string `json:"geo"`
	Web        string `json:"web"`
	StreetView string `json:"street_view"`
	Search     string `json:"search"`
}

func linksFor(sp catalog.Spot, platform string) links {
	p := mapview.PointOrCenter(sp)
	return links{
		Native:     mapview.NativeURL(platform, p, sp.Title),
		Apple:      mapview.AppleMapsURL(p, sp.Title),
		Geo:        mapview.GeoURI(p, sp.Title),
		Web:        mapview.WebSearchURL(p),
		StreetView: mapview.StreetViewURL(p),
		Search:     mapview.WebQueryURL(sp.Title + " Berlin"),
	}
}

func (s *server) shareSpot(w http.ResponseWriter, r *http.Request) {
	_, d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": mapview.SpotMessage(d.Spot),
		"preview": mapview.PreviewMessage(d.Spot),
		"links":   linksFor(d.Spot, r.URL.Query().Get("platform")),
	})
}

type nearView struct {
	spotView
	DistanceKm float64 `json:"distance_km"`
}

// nearby：未给坐标时按访问者 IP 定位，再回退到城市中心
func (s *server) nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 5
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			badRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(n, 50)
	}
	var origin locate.Place
	latS, lngS := strings.TrimSpace(q.Get("lat")), strings.TrimSpace(q.Get("lng"))
	switch {
	case latS != "" || lngS != "":
		lat, ok1 := finite(latS)
		lng, ok2 := finite(lngS)
		if !ok1 || !ok2 || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			badRequest(w, "lat and lng must both be valid coordinates")
			return
		}
		origin = locate.Place{Point: catalog.Point{Lat: lat, Lng: lng}, Source: "query"}
	case s.Locator != nil:
		origin = s.Locator.Locate(locate.ClientIP(r))
	default:
		origin = locate.Place{Point: mapview.DefaultCenter, Source: locate.SourceDefault}
	}

	near := s.Catalog.Nearest(origin.Point.Lat, origin.Point.Lng, limit)
	spots := make([]catalog.Spot, len(near))
	for i, n := range near {
		spots[i] = n.Spot
	}
	decorated := s.Overrides.DecorateAll(r.Context(), spots)
	out := make([]nearView, len(near))
	for i := range near {
		out[i] = nearView{spotView: s.view(decorated[i]), DistanceKm: near[i].DistanceKm}
	}
	writeJSON(w, http.StatusOK, map[string]any{"origin": origin, "spots": out})
}

// finite：解析有限浮点数，NaN 与 ±Inf 视为非法
func finite(v string) (float64, bool) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func dimension(v string, def float64) (float64, bool) {
	if v == "" {
		return def, true
	}
	f, ok := finite(v)
	if !ok || f <= 0 {
		return 0, false
	}
	return f, true
}

func (s *server) markers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	width, ok1 := dimension(q.Get("w"), 360)
	height, ok2 := dimension(q.Get("h"), 640)
	if !ok1 || !ok2 {
		badRequest(w, "w and h must be positive numbers")
		return
	}
	ds := s.Overrides.DecorateAll(r.Context(), s.Catalog.WithCoords())
	spots := make([]catalog.Spot, len(ds))
	for i, d := range ds {
		spots[i] = d.Spot
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"width":   width,
		"height":  height,
		"marker":  map[string]int{"w": mapview.MarkerW, "h": mapview.MarkerH},
		"markers": s.Bounds.Markers(spots, width, height),
	})
}

func (s *server) randomSpot(w http.ResponseWriter, r *http.Request) {
	sp, ok := s.Catalog.Random(nil)
	if !ok {
		notFound(w, "spot with coordinates")
		return
	}
	d := s.Overrides.Decorate(r.Context(), sp)
	writeJSON(w, http.StatusOK, map[string]any{
		"spot":    s.view(d),
		"preview": mapview.PreviewMessage(d.Spot),
		"links":   linksFor(d.Spot, r.URL.Query().Get("platform")),
	})
}

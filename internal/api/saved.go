package api

import (
	"net/http"

	"spot-api/internal/catalog"
	"spot-api/internal/mapview"
	"spot-api/internal/override"
	"spot-api/internal/saved"
)

// savedSpots：已收藏地点（叠加后的展示值）按指定方式排序
func (s *server) savedSpots(r *http.Request) []override.Decorated {
	ds := s.Overrides.DecorateAll(r.Context(), s.Catalog.All())
	byID := make(map[string]override.Decorated, len(ds))
	plain := make([]catalog.Spot, len(ds))
	for i, d := range ds {
		byID[d.ID] = d
		plain[i] = d.Spot
	}
	sorted := s.Saved.Spots(plain, saved.ParseSortMode(r.URL.Query().Get("sort")))
	out := make([]override.Decorated, len(sorted))
	for i, sp := range sorted {
		out[i] = byID[sp.ID]
	}
	return out
}

func (s *server) listSaved(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.views(s.savedSpots(r)))
}

func (s *server) toggleSaved(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.Catalog.Get(id); !ok {
		notFound(w, "spot")
		return
	}
	state, err := s.Saved.Toggle(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, "saved_toggle", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "saved": state})
}

func (s *server) shareSaved(w http.ResponseWriter, r *http.Request) {
	ds := s.savedSpots(r)
	spots := make([]catalog.Spot, len(ds))
	for i, d := range ds {
		spots[i] = d.Spot
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": saved.ShareText(spots), "count": len(spots)})
}

// savedRoute：按当前排序把带坐标的收藏串成一条路线
func (s *server) savedRoute(w http.ResponseWriter, r *http.Request) {
	var pts []catalog.Point
	for _, d := range s.savedSpots(r) {
		if p, ok := d.Coords(); ok {
			pts = append(pts, p)
		}
	}
	u, ok := mapview.DirectionsURL(pts)
	if !ok {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "need at least two saved spots with coordinates"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": u, "stops": len(pts)})
}

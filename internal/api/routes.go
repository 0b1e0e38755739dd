// 包 api：HTTP 接口层；所有存储在入口构造后经 Deps 注入，处理器不持有全局状态
package api

import (
	"net/http"
	"time"

	"spot-api/internal/backup"
	"spot-api/internal/catalog"
	"spot-api/internal/locate"
	"spot-api/internal/mapview"
	"spot-api/internal/metrics"
	"spot-api/internal/middleware"
	"spot-api/internal/override"
	"spot-api/internal/profile"
	"spot-api/internal/saved"
	"spot-api/internal/stories"
)

// Deps：路由依赖
type Deps struct {
	Catalog   *catalog.Catalog
	Overrides *override.Store
	Saved     *saved.Store
	Profile   *profile.Store
	Stories   *stories.Store
	Backup    *backup.Service
	Locator   *locate.Locator
	Admin     *middleware.Admin
	Bounds    mapview.Bounds
	Driver    string
}

type server struct {
	Deps
}

// observe：按路由模式统计请求数与耗时
func observe(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t0 := time.Now()
		h(w, r)
		metrics.RequestsTotal.WithLabelValues(route).Inc()
		metrics.RequestDurationMs.Observe(float64(time.Since(t0).Microseconds()) / 1000)
	}
}

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 API_BASE 前缀
func BuildRoutes(d Deps) *http.ServeMux {
	if d.Bounds == (mapview.Bounds{}) {
		d.Bounds = mapview.Berlin
	}
	s := &server{Deps: d}
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) { mux.HandleFunc(pattern, observe(pattern, h)) }

	handle("GET /health", s.health)

	handle("GET /spots", s.listSpots)
	handle("GET /categories", s.categories)
	handle("GET /spots/{id}", s.getSpot)
	handle("PATCH /spots/{id}", s.editSpot)
	handle("DELETE /spots/{id}/override", s.clearOverride)
	handle("GET /spots/{id}/share", s.shareSpot)

	handle("GET /nearby", s.nearby)
	handle("GET /map/markers", s.markers)
	handle("GET /map/random", s.randomSpot)

	handle("GET /saved", s.listSaved)
	handle("POST /saved/{id}/toggle", s.toggleSaved)
	handle("GET /saved/share", s.shareSaved)
	handle("GET /saved/route", s.savedRoute)

	handle("GET /profile", s.getProfile)
	handle("PUT /profile", s.createProfile)
	handle("POST /profile/skip", s.skipProfile)
	handle("PUT /profile/name", s.saveName)
	handle("PUT /profile/photo", s.savePhoto)
	handle("PUT /profile/notifications", s.saveNotifications)

	handle("GET /stories", s.getStories)
	handle("PUT /stories", s.putStories)

	handle("GET /export", s.export)
	reset := http.HandlerFunc(s.reset)
	if d.Admin != nil {
		mux.Handle("POST /reset", d.Admin.Wrap(observe("POST /reset", reset)))
	} else {
		mux.Handle("POST /reset", observe("POST /reset", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden"})
		}))
	}
	return mux
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "driver": s.Driver, "spots": s.Catalog.Len()})
}

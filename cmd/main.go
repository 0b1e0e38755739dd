// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"spot-api/internal/api"
	"spot-api/internal/backup"
	"spot-api/internal/catalog"
	"spot-api/internal/locate"
	"spot-api/internal/logger"
	"spot-api/internal/mapview"
	"spot-api/internal/metrics"
	"spot-api/internal/middleware"
	"spot-api/internal/override"
	"spot-api/internal/profile"
	"spot-api/internal/saved"
	"spot-api/internal/stories"
	"spot-api/internal/utils"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	// 日志初始化
	l := logger.Setup()
	l.Debug("log_init_ok")
	apiBase := strings.TrimSuffix(utils.EnvString("API_BASE", "/api"), "/")
	l.Debug("config_api_base", "base", apiBase)

	store, err := utils.OpenKVFromEnv()
	if err != nil {
		os.Exit(1)
	}
	defer store.Close()

	cat, err := loadCatalog()
	if err != nil {
		l.Error("catalog_load_error", "err", err)
		os.Exit(1)
	}
	l.Info("catalog_ready", "spots", cat.Len(), "categories", len(cat.Categories()))

	retries := utils.EnvInt("OVERRIDE_MAX_RETRIES", override.DefaultRetries)
	ov := override.New(store, override.WithRetries(retries), override.WithLogger(l))
	sv := saved.New(store, saved.WithRetries(retries), saved.WithLogger(l))
	// 背景：收藏投影启动时读一次；读取失败时以空集合启动，之后的切换会重新读取最新版本
	if err := sv.Refresh(context.Background()); err != nil {
		l.Warn("saved_load_error", "err", err)
	} else {
		l.Info("saved_load_ok", "count", len(sv.IDs()))
	}

	loc, err := locate.Open(os.Getenv("GEOIP_DB_PATH"), utils.EnvString("GEOIP_DB_KIND", locate.KindCity), mapview.DefaultCenter)
	if err != nil {
		l.Error("geoip_open_error", "err", err)
		loc = locate.New(nil, mapview.DefaultCenter, 0)
	}
	defer loc.Close()

	admin := middleware.NewAdmin(os.Getenv("ADMIN_TOKEN"), utils.EnvList("ADMIN_ALLOW_CIDRS"), l)

	// 文档注释：构建路由（依赖全部显式注入）
	apiMux := api.BuildRoutes(api.Deps{
		Catalog:   cat,
		Overrides: ov,
		Saved:     sv,
		Profile:   profile.New(store),
		Stories:   stories.New(store),
		Backup:    backup.New(store),
		Locator:   loc,
		Admin:     admin,
		Driver:    string(store.Driver()),
	})
	mux := http.NewServeMux()
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, apiMux))
	mux.Handle(apiBase+"/metrics", metrics.Handler())

	handler := logger.AccessMiddleware(l)(mux)
	if utils.EnvBool("RATE_LIMIT_ENABLED", false) {
		qps := utils.EnvInt("RATE_LIMIT_QPS", 200)
		handler = middleware.RateLimit(middleware.NewTokenBucket(qps))(handler)
		l.Info("rate_limit_enabled", "qps", qps)
	}

	addr := utils.EnvString("ADDR", ":8080")
	s := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		l.Info("shutdown_begin")
		if err := s.Shutdown(sctx); err != nil {
			l.Error("shutdown_error", "err", err)
		}
	}()

	if err := serve(s, l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("listen_error", "addr", addr, "err", err)
		os.Exit(1)
	}
	<-drained
	l.Info("shutdown_ok")
}

// loadCatalog：CATALOG_PATH 为空时使用内置目录
func loadCatalog() (*catalog.Catalog, error) {
	p := os.Getenv("CATALOG_PATH")
	if p == "" {
		return catalog.Default()
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return catalog.Load(f)
}

// serve：TLS_ENABLE=true 时使用（必要时自签发的）证书监听
func serve(s *http.Server, l *slog.Logger) error {
	if !utils.EnvBool("TLS_ENABLE", false) {
		l.Info("listening", "addr", s.Addr)
		return s.ListenAndServe()
	}
	certPath := utils.EnvString("TLS_CERT_PATH", filepath.Join("data", "certs", "server.crt"))
	keyPath := utils.EnvString("TLS_KEY_PATH", filepath.Join("data", "certs", "server.key"))
	if err := utils.EnsureSelfSignedCert(certPath, keyPath, "spot-api.local"); err != nil {
		l.Error("tls_cert_error", "err", err)
		return err
	}
	l.Info("listening_tls", "addr", s.Addr, "cert", certPath)
	return s.ListenAndServeTLS(certPath, keyPath)
}

package api

import (
	"errors"
	"net/http"

	"spot-api/internal/backup"
	"spot-api/internal/kv"
	"spot-api/internal/logger"
)

func isParse(err error) bool { return errors.Is(err, kv.ErrParse) }

func (s *server) export(w http.ResponseWriter, r *http.Request) {
	p, err := s.Backup.Export(r.Context())
	if err != nil {
		writeStoreError(w, r, "backup_export", err)
		return
	}
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	if r.URL.Query().Get("download") == "1" {
		w.Header().Set("content-disposition", `attachment; filename="spots-backup.json"`)
	}
	if err := backup.Encode(w, p); err != nil {
		logger.L().Warn("backup_encode_error", "err", err)
	}
}

// reset：删除全部本地数据后重建收藏投影
func (s *server) reset(w http.ResponseWriter, r *http.Request) {
	if err := s.Backup.Reset(r.Context()); err != nil {
		writeStoreError(w, r, "backup_reset", err)
		return
	}
	if err := s.Saved.Refresh(r.Context()); err != nil {
		logger.L().Warn("saved_refresh_after_reset", "err", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

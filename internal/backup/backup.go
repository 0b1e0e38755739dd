// 包 backup：本地数据的导出与清空
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"spot-api/internal/kv"
	"spot-api/internal/logger"
)

// ProfileData：导出中的资料部分
type ProfileData struct {
	Name                 string `json:"name"`
	Photo                string `json:"photo"`
	NotificationsEnabled bool   `json:"notificationsEnabled"`
}

// 文档注释：导出文档
// 约束：各块按存储原文导出，不做内容校验；非法 JSON 以字符串形式导出，缺失时为 {} 或 []。
type Payload struct {
	ExportID   string          `json:"export_id"`
	ExportedAt time.Time       `json:"exportedAt"`
	Profile    ProfileData     `json:"profile"`
	SavedSpots json.RawMessage `json:"saved_spots"`
	Overrides  json.RawMessage `json:"overrides"`
	Stories    json.RawMessage `json:"stories"`
}

type Service struct {
	kv    kv.Store
	now   func() time.Time
	newID func() string
	log   *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithIDs(gen func() string) Option { return func(s *Service) { s.newID = gen } }

func New(store kv.Store, opts ...Option) *Service {
	s := &Service{kv: store, now: time.Now, newID: uuid.NewString, log: logger.L()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Export：一次读取全部键并组装导出文档
func (s *Service) Export(ctx context.Context) (Payload, error) {
	m, err := kv.GetMany(ctx, s.kv, kv.AllKeys()...)
	if err != nil {
		return Payload{}, fmt.Errorf("backup export: %w", err)
	}
	str := func(k string) string { return string(m[k].Value) }
	p := Payload{
		ExportID:   s.newID(),
		ExportedAt: s.now().UTC(),
		Profile: ProfileData{
			Name:                 str(kv.KeyProfileName),
			Photo:                str(kv.KeyProfilePhoto),
			NotificationsEnabled: str(kv.KeyNotifications) == "true",
		},
		SavedSpots: section(m, kv.KeySaved, `{}`),
		Overrides:  section(m, kv.KeyOverrides, `{}`),
		Stories:    section(m, kv.KeyStories, `[]`),
	}
	s.log.Info("backup_export", "export_id", p.ExportID, "keys", len(m))
	return p, nil
}

func section(m map[string]kv.Entry, key, def string) json.RawMessage {
	e, ok := m[key]
	if !ok {
		return json.RawMessage(def)
	}
	v := bytes.TrimSpace(e.Value)
	switch {
	case len(v) == 0, bytes.Equal(v, []byte("null")):
		return json.RawMessage(def)
	case json.Valid(v):
		return json.RawMessage(v)
	}
	quoted, _ := json.Marshal(string(e.Value))
	return json.RawMessage(quoted)
}

// Encode：写出两空格缩进的 JSON 文档
func Encode(w io.Writer, p Payload) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(p)
}

// Reset：一次性删除全部本地键，不可恢复
// 约束：调用方负责刷新依赖这些键的内存投影（收藏集）。
func (s *Service) Reset(ctx context.Context) error {
	if err := s.kv.Delete(ctx, kv.AllKeys()...); err != nil {
		return fmt.Errorf("backup reset: %w", err)
	}
	s.log.Warn("backup_reset", "keys", len(kv.AllKeys()))
	return nil
}

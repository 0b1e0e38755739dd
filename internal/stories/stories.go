// 包 stories：用户故事的不透明 JSON 块，整体读写，不解释内容
package stories

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"spot-api/internal/kv"
)

var empty = json.RawMessage(`[]`)

type Store struct {
	kv kv.Store
}

func New(s kv.Store) *Store { return &Store{kv: s} }

// Load：返回存储的原始 JSON；键不存在或为空时返回 []
// 约束：存储值不是合法 JSON 时返回 kv.ErrParse，同时给出原始字节。
func (s *Store) Load(ctx context.Context) (json.RawMessage, error) {
	e, err := s.kv.Get(ctx, kv.KeyStories)
	if errors.Is(err, kv.ErrNotFound) {
		return empty, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stories load: %w", err)
	}
	if len(bytes.TrimSpace(e.Value)) == 0 {
		return empty, nil
	}
	if !json.Valid(e.Value) {
		return json.RawMessage(e.Value), fmt.Errorf("stories load: %w", kv.ErrParse)
	}
	return json.RawMessage(e.Value), nil
}

// Save：原样保存，要求是语法合法的 JSON
func (s *Store) Save(ctx context.Context, raw []byte) error {
	if !json.Valid(raw) {
		return fmt.Errorf("stories save: %w: invalid json", kv.ErrParse)
	}
	if _, err := s.kv.Put(ctx, kv.KeyStories, raw); err != nil {
		return fmt.Errorf("stories save: %w", err)
	}
	return nil
}

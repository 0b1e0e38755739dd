// 包 profile：本地用户资料（名称、头像、通知开关），每个字段一个键，值为纯文本
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"spot-api/internal/kv"
)

// DefaultName：未填写名称时的展示名
const DefaultName = "User"

type Profile struct {
	Name                 string `json:"name"`
	Photo                string `json:"photo"`
	NotificationsEnabled bool   `json:"notificationsEnabled"`
}

// DisplayName：去空白后的名称，空时为 DefaultName
func (p Profile) DisplayName() string {
	if n := strings.TrimSpace(p.Name); n != "" {
		return n
	}
	return DefaultName
}

type Store struct {
	kv kv.Store
}

func New(s kv.Store) *Store { return &Store{kv: s} }

// Get：读取资料；缺失的键取默认值，通知开关缺失时为开启
func (s *Store) Get(ctx context.Context) (Profile, error) {
	m, err := kv.GetMany(ctx, s.kv, kv.KeyProfileName, kv.KeyProfilePhoto, kv.KeyNotifications)
	if err != nil {
		return Profile{NotificationsEnabled: true}, fmt.Errorf("profile get: %w", err)
	}
	p := Profile{
		Name:                 strings.TrimSpace(string(m[kv.KeyProfileName].Value)),
		Photo:                string(m[kv.KeyProfilePhoto].Value),
		NotificationsEnabled: true,
	}
	if e, ok := m[kv.KeyNotifications]; ok {
		p.NotificationsEnabled = string(e.Value) == "true"
	}
	return p, nil
}

// Create：首次建档，名称去空白，头像可为空
func (s *Store) Create(ctx context.Context, name, photo string) error {
	return s.putAll(ctx, "profile create", strings.TrimSpace(name), photo)
}

// Skip：跳过建档，名称与头像都写为空串
func (s *Store) Skip(ctx context.Context) error {
	return s.putAll(ctx, "profile skip", "", "")
}

// putAll：名称与头像同批写入，不会出现只写了一半的资料
func (s *Store) putAll(ctx context.Context, op, name, photo string) error {
	err := s.kv.PutMany(ctx, map[string][]byte{
		kv.KeyProfileName:  []byte(name),
		kv.KeyProfilePhoto: []byte(photo),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SaveName：保存名称，空白时写入 DefaultName；返回实际写入的值
func (s *Store) SaveName(ctx context.Context, name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		n = DefaultName
	}
	if _, err := s.kv.Put(ctx, kv.KeyProfileName, []byte(n)); err != nil {
		return "", fmt.Errorf("profile save name: %w", err)
	}
	return n, nil
}

// SetPhoto：空串表示移除头像
func (s *Store) SetPhoto(ctx context.Context, uri string) error {
	if _, err := s.kv.Put(ctx, kv.KeyProfilePhoto, []byte(uri)); err != nil {
		return fmt.Errorf("profile set photo: %w", err)
	}
	return nil
}

func (s *Store) SetNotifications(ctx context.Context, on bool) error {
	v := "false"
	if on {
		v = "true"
	}
	if _, err := s.kv.Put(ctx, kv.KeyNotifications, []byte(v)); err != nil {
		return fmt.Errorf("profile set notifications: %w", err)
	}
	return nil
}

// Exists：是否已建档（含跳过）
func (s *Store) Exists(ctx context.Context) (bool, error) {
	_, err := s.kv.Get(ctx, kv.KeyProfileName)
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("profile exists: %w", err)
	}
	return true, nil
}

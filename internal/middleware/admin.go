package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// AdminHeader：管理令牌请求头
const AdminHeader = "x-admin-token"

// 文档注释：管理接口准入（令牌 + 可选 IP/CIDR 白名单）
// 背景：重置会删除全部本地数据，只允许持有令牌且来源可信的调用方执行。
// 约束：
// 1) 未配置令牌时一律拒绝；
// 2) 来源 IP 只取 RemoteAddr，不信任代理头；
// 3) 白名单为空表示不限制来源；无法解析的条目被忽略并记录告警。
type Admin struct {
	token  string
	ips    map[string]struct{}
	cidrs  []*net.IPNet
	logger *slog.Logger
}

func NewAdmin(token string, allow []string, l *slog.Logger) *Admin {
	a := &Admin{token: token, ips: map[string]struct{}{}, logger: l}
	for _, p := range allow {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.Contains(p, "/") {
			if _, n, err := net.ParseCIDR(p); err == nil {
				a.cidrs = append(a.cidrs, n)
				continue
			}
		} else if ip := net.ParseIP(p); ip != nil {
			a.ips[ip.String()] = struct{}{}
			continue
		}
		l.Warn("admin_allow_invalid", "entry", p)
	}
	return a
}

func (a *Admin) allowedIP(ip net.IP) bool {
	if len(a.ips) == 0 && len(a.cidrs) == 0 {
		return true
	}
	if ip == nil {
		return false
	}
	if _, ok := a.ips[ip.String()]; ok {
		return true
	}
	for _, n := range a.cidrs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func remoteIP(r *http.Request) net.IP {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return net.ParseIP(host)
}

// Wrap：校验失败返回 403，不区分失败原因
func (a *Admin) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := remoteIP(r)
		got := r.Header.Get(AdminHeader)
		ok := a.token != "" && subtle.ConstantTimeCompare([]byte(got), []byte(a.token)) == 1
		if !ok || !a.allowedIP(ip) {
			a.logger.Warn("admin_denied", "path", r.URL.Path, "ip", r.RemoteAddr, "token_ok", ok)
			w.Header().Set("content-type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"forbidden"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

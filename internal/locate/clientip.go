package locate

import (
	"net"
	"net/http"
	"strings"
)

// proxyHeaders：依次检查的反向代理头
var proxyHeaders = []string{"cf-connecting-ip", "x-real-ip", "x-client-ip"}

// 文档注释：获取访问者 IP
// 背景：部署在反向代理之后时 RemoteAddr 是代理地址；按常见头顺序取第一个非空值，最后回退到 RemoteAddr。
// 约束：不校验头部是否可信；需要可信来源的场景（管理接口）只能以 RemoteAddr 判定。
func ClientIP(r *http.Request) string {
	h := r.Header
	if x := h.Get("x-forwarded-for"); x != "" {
		return strings.TrimSpace(strings.Split(x, ",")[0])
	}
	for _, k := range proxyHeaders {
		if x := strings.TrimSpace(h.Get(k)); x != "" {
			return x
		}
	}
	if x := h.Get("forwarded"); x != "" {
		if i := strings.Index(strings.ToLower(x), "for="); i >= 0 {
			y := x[i+4:]
			if p := strings.IndexAny(y, ";,"); p >= 0 {
				y = y[:p]
			}
			y = strings.Trim(y, "\" ")
			return strings.TrimSuffix(strings.TrimPrefix(y, "["), "]")
		}
	}
	return RemoteIP(r)
}

// RemoteIP：仅取连接对端地址，不看任何请求头
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package storage

import (
	"net/url"
	"strings"
)

// KeyFromURI 将图片 URI 解析为存储键
// 相对路径与 publicBaseURL 下的地址由本服务管理，其他外部地址返回 managed=false
func KeyFromURI(uri, publicBaseURL string) (key string, managed bool) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return "", false
	}

	if base := strings.TrimRight(publicBaseURL, "/"); base != "" && strings.HasPrefix(uri, base+"/") {
		uri = strings.TrimPrefix(uri, base)
	} else if u, err := url.Parse(uri); err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}

	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		uri = uri[:i]
	}
	if unescaped, err := url.PathUnescape(uri); err == nil {
		uri = unescaped
	}
	key = strings.TrimLeft(uri, "/")
	if !IsValidStoragePath(key) {
		return "", false
	}
	return key, true
}

package providers

import (
	"fmt"
	"net/url"
	"strings"
)

// RewriteURL moves original onto base. A URL already under base is
// returned unchanged. Otherwise scheme and host come from base and the
// original path is appended to base's path, dropping a leading /v1 when
// base already ends in /v1. The query string is kept.
func RewriteURL(original *url.URL, baseURL string) (*url.URL, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	basePath := strings.TrimSuffix(base.Path, "/")
	normalizedBase := origin(base) + basePath
	if strings.HasPrefix(origin(original)+original.Path, normalizedBase) {
		u := *original
		return &u, nil
	}

	targetPath := original.Path
	if strings.HasSuffix(basePath, "/v1") && strings.HasPrefix(targetPath, "/v1/") {
		targetPath = targetPath[3:]
	}

	rewritten := *original
	rewritten.Scheme = base.Scheme
	rewritten.Host = base.Host
	rewritten.User = nil
	rewritten.Path = basePath + targetPath
	rewritten.RawPath = ""
	return &rewritten, nil
}

func origin(u *url.URL) string {
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

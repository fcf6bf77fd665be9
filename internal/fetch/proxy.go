package fetch

import (
	"fmt"
	"net/url"
	"strings"
)

// ProxyResolver supplies an optional forward-proxy endpoint. Implementations
// may fail; callers log the failure and fall back to direct connections.
type ProxyResolver interface {
	Resolve() (*url.URL, error)
}

// StaticResolver resolves a fixed proxy URL taken from configuration. An
// empty value means no proxy.
type StaticResolver struct {
	raw string
}

func NewStaticResolver(raw string) *StaticResolver {
	return &StaticResolver{raw: strings.TrimSpace(raw)}
}

func (r *StaticResolver) Resolve() (*url.URL, error) {
	if r.raw == "" {
		return nil, nil
	}

	u, err := url.Parse(r.raw)
	if err != nil {
		return nil, fmt.Errorf("parse proxy url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("proxy url must be absolute: %q", r.raw)
	}

	return u, nil
}

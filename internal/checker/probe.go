package checker

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/textproto"
	"strings"
)

// Echo is the parsed payload of the probe target: the IP it saw as the
// client, and the request headers that arrived through the proxy
// (httpbin.org's /get shape).
type Echo struct {
	Origin  string            `json:"origin"`
	Headers map[string]string `json:"headers"`
}

// SeenIP returns the first address token of the origin field. Some echo
// services report "client, proxy" comma lists.
func (e *Echo) SeenIP() string {
	if e == nil || e.Origin == "" {
		return ""
	}
	first, _, _ := strings.Cut(e.Origin, ",")
	return strings.TrimSpace(first)
}

// OriginContains reports whether any origin token equals ip.
func (e *Echo) OriginContains(ip string) bool {
	if e == nil || ip == "" {
		return false
	}
	for _, tok := range strings.Split(e.Origin, ",") {
		if strings.TrimSpace(tok) == ip {
			return true
		}
	}
	return false
}

// Header does a case-insensitive header lookup.
func (e *Echo) Header(name string) string {
	if e == nil {
		return ""
	}
	want := textproto.CanonicalMIMEHeaderKey(name)
	for k, v := range e.Headers {
		if textproto.CanonicalMIMEHeaderKey(k) == want {
			return v
		}
	}
	return ""
}

// ParseEcho decodes the probe response body. A malformed or empty echo is
// a classification failure, not a dial failure: the caller downgrades the
// anonymity level to unknown.
func ParseEcho(body []byte) (*Echo, error) {
	var e Echo
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("decode echo payload: %w", err)
	}
	if e.Origin == "" {
		return nil, errors.New("echo payload has no origin")
	}
	return &e, nil
}

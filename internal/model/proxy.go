package model

import (
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Scheme identifies the wire protocol spoken to a proxy.
type Scheme string

const (
	SchemeHTTP   Scheme = "http"
	SchemeHTTPS  Scheme = "https"
	SchemeSOCKS4 Scheme = "socks4"
	SchemeSOCKS5 Scheme = "socks5"
)

// ParseScheme maps a raw scheme token (case-insensitive) to a Scheme.
func ParseScheme(s string) (Scheme, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "http":
		return SchemeHTTP, true
	case "https":
		return SchemeHTTPS, true
	case "socks4":
		return SchemeSOCKS4, true
	case "socks5":
		return SchemeSOCKS5, true
	default:
		return "", false
	}
}

// ProxyEndpoint is a normalized representation of a proxy entry
// parsed from file lines such as:
//
//	scheme://user:pass@ip:port
//	scheme://ip:port
//	ip:port:username:password
//	ip:port
//
// Immutable once parsed.
type ProxyEndpoint struct {
	Scheme   Scheme `json:"scheme"`
	Host     string `json:"host"` // IPv4/IPv6 literal or hostname
	Port     int    `json:"port"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Raw      string `json:"-"` // original line for debugging
}

// Addr returns "host:port" with IPv6 literals bracketed.
func (e ProxyEndpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// URL renders the canonical scheme://[user:pass@]host:port form.
// Parsing the rendered form yields an identical endpoint.
func (e ProxyEndpoint) URL() string {
	u := &url.URL{
		Scheme: string(e.Scheme),
		Host:   e.Addr(),
	}
	if e.Username != "" || e.Password != "" {
		u.User = url.UserPassword(e.Username, e.Password)
	}
	return u.String()
}

// Status is the terminal state of one validation attempt.
type Status string

const (
	StatusWorking Status = "working"
	StatusFailed  Status = "failed"
	StatusTimeout Status = "timeout"
)

// Anonymity classifies what a working proxy reveals about the origin client.
type Anonymity string

const (
	AnonymityElite       Anonymity = "elite"
	AnonymityAnonymous   Anonymity = "anonymous"
	AnonymityTransparent Anonymity = "transparent"
	AnonymityUnknown     Anonymity = "unknown"
)

// ProxyCapabilities describes what traffic appears allowed through the
// proxy, filled only when capability probing is enabled.
type ProxyCapabilities struct {
	SMTP bool `json:"smtp"`
	POP3 bool `json:"pop3"`
	IMAP bool `json:"imap"`
	UDP  bool `json:"udp"` // SOCKS5 UDP ASSOCIATE accepted
}

// ProxyResult is produced exactly once per endpoint that entered a run.
// Immutable once emitted.
type ProxyResult struct {
	Endpoint  ProxyEndpoint `json:"endpoint"`
	Status    Status        `json:"status"`
	LatencyMs int64         `json:"latency_ms"` // meaningful only when Status == StatusWorking
	Anonymity Anonymity     `json:"anonymity"`

	ExitIP  string `json:"exit_ip,omitempty"` // IP the probe target saw
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`
	ISP     string `json:"isp,omitempty"`

	FraudScore   float64            `json:"fraud_score,omitempty"`
	Capabilities *ProxyCapabilities `json:"capabilities,omitempty"` // nil unless probing was enabled

	Error string `json:"error,omitempty"` // present only when Status != StatusWorking
}

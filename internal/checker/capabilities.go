package checker

import (
	"context"
	"net"
	"time"

	"golang.org/x/net/proxy"

	"github.com/JasonVinion/Pengu/internal/model"
)

// Well-known mail endpoints used to test whether a SOCKS5 proxy permits
// outbound connections on the respective ports. A completed TCP handshake
// counts as allowed; we never speak the mail protocol itself.
var capabilityTargets = []struct {
	name string
	addr string
	set  func(*model.ProxyCapabilities)
}{
	{"smtp", "smtp.gmail.com:587", func(c *model.ProxyCapabilities) { c.SMTP = true }},
	{"pop3", "pop.gmail.com:995", func(c *model.ProxyCapabilities) { c.POP3 = true }},
	{"imap", "imap.gmail.com:993", func(c *model.ProxyCapabilities) { c.IMAP = true }},
}

// probeCapabilities runs the optional SOCKS5 capability checks. Each probe
// gets an equal slice of the remaining budget so a dead mail port cannot
// starve the rest.
func probeCapabilities(ctx context.Context, ep model.ProxyEndpoint, budget time.Duration) *model.ProxyCapabilities {
	caps := &model.ProxyCapabilities{}
	per := budget / time.Duration(len(capabilityTargets)+1)

	for _, t := range capabilityTargets {
		if ctx.Err() != nil {
			return caps
		}
		if probeTCPViaSocks5(ctx, ep, t.addr, per) {
			t.set(caps)
		}
	}
	caps.UDP = supportsUDPAssociate(ctx, ep, per)
	return caps
}

// probeTCPViaSocks5 opens a TCP connection through the proxy to targetAddr
// and reports whether the relay was established within timeout.
func probeTCPViaSocks5(ctx context.Context, ep model.ProxyEndpoint, targetAddr string, timeout time.Duration) bool {
	var auth *proxy.Auth
	if ep.Username != "" || ep.Password != "" {
		auth = &proxy.Auth{User: ep.Username, Password: ep.Password}
	}

	d, err := proxy.SOCKS5("tcp", ep.Addr(), auth, &net.Dialer{Timeout: timeout})
	if err != nil {
		return false
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return false
	}

	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	conn, err := cd.DialContext(dctx, "tcp", targetAddr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

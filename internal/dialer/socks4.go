package dialer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/JasonVinion/Pengu/internal/model"
)

// socks4Dialer speaks the original SOCKS4 protocol. SOCKS4 carries only
// IPv4 target addresses and an optional user-id; there is no password.
type socks4Dialer struct{}

func (socks4Dialer) Scheme() model.Scheme { return model.SchemeSOCKS4 }

// SOCKS4 reply codes (byte 2 of the 8-byte reply).
const (
	socks4Granted        = 0x5A
	socks4Rejected       = 0x5B
	socks4IdentdRequired = 0x5C
	socks4IdentdMismatch = 0x5D
)

func (socks4Dialer) Dial(ctx context.Context, ep model.ProxyEndpoint, probe Probe, timeout time.Duration) (*Outcome, *Error) {
	// SOCKS4 endpoints must be literal IPv4; we refuse early rather than
	// resolving the proxy host and guessing which address it meant.
	if ip := net.ParseIP(ep.Host); ip == nil || ip.To4() == nil {
		return nil, &Error{
			Code: CodeSocks4Address,
			Msg:  fmt.Sprintf("socks4 requires a literal IPv4 proxy address, got %q", ep.Host),
		}
	}

	// The CONNECT request also needs the target as IPv4, so resolve the
	// probe host locally (the protocol cannot carry a domain).
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	targetIP, derr := resolveIPv4(dctx, probe.Host)
	if derr != nil {
		return nil, derr
	}

	conn, derr := dialTCP(ctx, ep, timeout)
	if derr != nil {
		return nil, derr
	}
	defer conn.Close()

	// VN=4, CD=1 (CONNECT), DSTPORT, DSTIP, USERID, NUL
	req := []byte{
		0x04, 0x01,
		byte(probe.Port >> 8), byte(probe.Port & 0xFF),
		targetIP[0], targetIP[1], targetIP[2], targetIP[3],
	}
	req = append(req, []byte(ep.Username)...)
	req = append(req, 0x00)

	if _, err := conn.Write(req); err != nil {
		return nil, wrapNetErr(err, CodeUnreachable, "write socks4 request")
	}

	var reply [8]byte
	if _, err := io.ReadFull(conn, reply[:]); err != nil {
		return nil, wrapNetErr(err, CodeUnreachable, "read socks4 reply")
	}
	if reply[0] != 0x00 {
		return nil, &Error{Code: CodeProtocolViolation, Msg: fmt.Sprintf("unexpected socks4 reply version 0x%02x", reply[0])}
	}
	switch reply[1] {
	case socks4Granted:
	case socks4IdentdRequired, socks4IdentdMismatch:
		return nil, &Error{Code: CodeAuthRejected, Msg: fmt.Sprintf("socks4 identd rejection 0x%02x", reply[1])}
	default:
		return nil, &Error{Code: CodeUnreachable, Msg: fmt.Sprintf("socks4 request rejected 0x%02x", reply[1])}
	}

	if derr := writeProbeRequest(conn, probe); derr != nil {
		return nil, derr
	}
	return readHTTPResponse(bufio.NewReader(conn))
}

func resolveIPv4(ctx context.Context, host string) (net.IP, *Error) {
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
		return nil, &Error{Code: CodeSocks4Address, Msg: fmt.Sprintf("probe target %q is not IPv4", host)}
	}
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		return nil, wrapNetErr(err, CodeUnreachable, "resolve probe target")
	}
	if len(ips) == 0 || ips[0].To4() == nil {
		return nil, &Error{Code: CodeUnreachable, Msg: fmt.Sprintf("no IPv4 address for probe target %q", host)}
	}
	return ips[0].To4(), nil
}

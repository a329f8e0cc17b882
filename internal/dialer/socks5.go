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

// socks5Dialer speaks RFC 1928 SOCKS5 with optional RFC 1929
// username/password authentication.
type socks5Dialer struct{}

func (socks5Dialer) Scheme() model.Scheme { return model.SchemeSOCKS5 }

const (
	socks5Version    = 0x05
	methodNoAuth     = 0x00
	methodUserPass   = 0x02
	methodNoneUsable = 0xFF

	cmdConnect = 0x01

	atypIPv4   = 0x01
	atypDomain = 0x03
	atypIPv6   = 0x04
)

func (socks5Dialer) Dial(ctx context.Context, ep model.ProxyEndpoint, probe Probe, timeout time.Duration) (*Outcome, *Error) {
	conn, derr := dialTCP(ctx, ep, timeout)
	if derr != nil {
		return nil, derr
	}
	defer conn.Close()

	if derr := negotiateMethod(conn, ep); derr != nil {
		return nil, derr
	}
	if derr := sendConnect(conn, probe); derr != nil {
		return nil, derr
	}

	if derr := writeProbeRequest(conn, probe); derr != nil {
		return nil, derr
	}
	return readHTTPResponse(bufio.NewReader(conn))
}

// negotiateMethod performs the greeting and, when the proxy selects
// user/pass, the RFC 1929 subnegotiation.
func negotiateMethod(conn net.Conn, ep model.ProxyEndpoint) *Error {
	hasCreds := ep.Username != "" || ep.Password != ""

	methods := []byte{methodNoAuth}
	if hasCreds {
		methods = append(methods, methodUserPass)
	}
	greeting := append([]byte{socks5Version, byte(len(methods))}, methods...)
	if _, err := conn.Write(greeting); err != nil {
		return wrapNetErr(err, CodeUnreachable, "write socks5 greeting")
	}

	var sel [2]byte
	if _, err := io.ReadFull(conn, sel[:]); err != nil {
		return wrapNetErr(err, CodeUnreachable, "read method selection")
	}
	if sel[0] != socks5Version {
		return &Error{Code: CodeProtocolViolation, Msg: fmt.Sprintf("unexpected version 0x%02x in method selection", sel[0])}
	}

	switch sel[1] {
	case methodNoAuth:
		return nil
	case methodUserPass:
		if !hasCreds {
			return &Error{Code: CodeAuthRejected, Msg: "proxy requires username/password but none provided"}
		}
		return userPassAuth(conn, ep.Username, ep.Password)
	case methodNoneUsable:
		return &Error{Code: CodeAuthRejected, Msg: "proxy rejected offered auth methods"}
	default:
		return &Error{Code: CodeProtocolViolation, Msg: fmt.Sprintf("proxy selected unsupported method 0x%02x", sel[1])}
	}
}

func userPassAuth(conn net.Conn, user, pass string) *Error {
	if len(user) > 255 || len(pass) > 255 {
		return &Error{Code: CodeAuthRejected, Msg: "username/password too long for socks5 auth"}
	}
	req := make([]byte, 0, 3+len(user)+len(pass))
	req = append(req, 0x01, byte(len(user)))
	req = append(req, user...)
	req = append(req, byte(len(pass)))
	req = append(req, pass...)
	if _, err := conn.Write(req); err != nil {
		return wrapNetErr(err, CodeUnreachable, "write socks5 auth")
	}

	var rep [2]byte
	if _, err := io.ReadFull(conn, rep[:]); err != nil {
		return wrapNetErr(err, CodeUnreachable, "read socks5 auth reply")
	}
	if rep[0] != 0x01 {
		return &Error{Code: CodeProtocolViolation, Msg: fmt.Sprintf("unexpected auth reply version 0x%02x", rep[0])}
	}
	if rep[1] != 0x00 {
		return &Error{Code: CodeAuthRejected, Msg: "socks5 authentication failed"}
	}
	return nil
}

// sendConnect issues the CONNECT command for the probe target, using
// whichever address type matches it, and validates the reply.
func sendConnect(conn net.Conn, probe Probe) *Error {
	atyp, addr, perr := encodeAddr(probe.Host)
	if perr != nil {
		return perr
	}

	req := make([]byte, 0, 6+len(addr))
	req = append(req, socks5Version, cmdConnect, 0x00, atyp)
	req = append(req, addr...)
	req = append(req, byte(probe.Port>>8), byte(probe.Port&0xFF))
	if _, err := conn.Write(req); err != nil {
		return wrapNetErr(err, CodeUnreachable, "write socks5 connect")
	}

	var hdr [4]byte
	if _, err := io.ReadFull(conn, hdr[:]); err != nil {
		return wrapNetErr(err, CodeUnreachable, "read socks5 connect reply")
	}
	if hdr[0] != socks5Version {
		return &Error{Code: CodeProtocolViolation, Msg: fmt.Sprintf("unexpected connect reply version 0x%02x", hdr[0])}
	}
	if hdr[1] != 0x00 {
		return replyError(hdr[1])
	}
	if err := discardBindAddr(conn, hdr[3]); err != nil {
		return wrapNetErr(err, CodeProtocolViolation, "read socks5 bind address")
	}
	return nil
}

func encodeAddr(host string) (byte, []byte, *Error) {
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return atypIPv4, v4, nil
		}
		return atypIPv6, ip.To16(), nil
	}
	if len(host) == 0 || len(host) > 255 {
		return 0, nil, &Error{Code: CodeProtocolViolation, Msg: fmt.Sprintf("invalid domain length %d", len(host))}
	}
	addr := make([]byte, 0, 1+len(host))
	addr = append(addr, byte(len(host)))
	addr = append(addr, host...)
	return atypDomain, addr, nil
}

// discardBindAddr consumes BND.ADDR and BND.PORT from a reply per RFC 1928.
func discardBindAddr(r io.Reader, atyp byte) error {
	switch atyp {
	case atypIPv4:
		var tmp [4 + 2]byte
		_, err := io.ReadFull(r, tmp[:])
		return err
	case atypIPv6:
		var tmp [16 + 2]byte
		_, err := io.ReadFull(r, tmp[:])
		return err
	case atypDomain:
		var l [1]byte
		if _, err := io.ReadFull(r, l[:]); err != nil {
			return err
		}
		buf := make([]byte, int(l[0])+2)
		_, err := io.ReadFull(r, buf)
		return err
	default:
		return fmt.Errorf("unknown reply ATYP 0x%02x", atyp)
	}
}

// replyError maps RFC 1928 REP codes to dial errors.
func replyError(rep byte) *Error {
	msgs := map[byte]string{
		0x01: "general SOCKS server failure",
		0x02: "connection not allowed by ruleset",
		0x03: "network unreachable",
		0x04: "host unreachable",
		0x05: "connection refused by destination host",
		0x06: "TTL expired",
		0x07: "command not supported",
		0x08: "address type not supported",
	}
	msg, ok := msgs[rep]
	if !ok {
		msg = fmt.Sprintf("unknown reply code 0x%02x", rep)
	}
	code := CodeUnreachable
	if rep == 0x07 || rep == 0x08 {
		code = CodeProtocolViolation
	}
	return &Error{Code: code, Msg: "socks5 connect failed: " + msg}
}

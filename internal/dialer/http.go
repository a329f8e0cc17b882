package dialer

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/JasonVinion/Pengu/internal/model"
)

// httpDialer validates plain HTTP proxies: the request line is addressed
// to the proxy in absolute-URI form and the proxy forwards it upstream.
type httpDialer struct{}

func (httpDialer) Scheme() model.Scheme { return model.SchemeHTTP }

func (httpDialer) Dial(ctx context.Context, ep model.ProxyEndpoint, probe Probe, timeout time.Duration) (*Outcome, *Error) {
	conn, derr := dialTCP(ctx, ep, timeout)
	if derr != nil {
		return nil, derr
	}
	defer conn.Close()

	var sb strings.Builder
	fmt.Fprintf(&sb, "GET http://%s%s HTTP/1.1\r\n", probe.HostPort(), probe.Path)
	fmt.Fprintf(&sb, "Host: %s\r\n", probe.Host)
	fmt.Fprintf(&sb, "User-Agent: %s\r\n", userAgent)
	sb.WriteString("Accept: application/json\r\n")
	if ep.Username != "" || ep.Password != "" {
		fmt.Fprintf(&sb, "Proxy-Authorization: %s\r\n", basicProxyAuth(ep.Username, ep.Password))
	}
	sb.WriteString("Connection: close\r\n\r\n")

	if _, err := io.WriteString(conn, sb.String()); err != nil {
		return nil, wrapNetErr(err, CodeUnreachable, "write proxied request")
	}

	out, derr := readHTTPResponse(bufio.NewReader(conn))
	if derr != nil {
		return nil, derr
	}
	if out.StatusCode == http.StatusProxyAuthRequired || out.StatusCode == http.StatusUnauthorized {
		return nil, &Error{Code: CodeAuthRejected, Msg: fmt.Sprintf("proxy returned %d", out.StatusCode)}
	}
	return out, nil
}

// httpsDialer validates CONNECT-capable proxies: it opens a tunnel to the
// probe target's TLS port, handshakes through it, then issues the probe
// request inside the tunnel.
type httpsDialer struct{}

func (httpsDialer) Scheme() model.Scheme { return model.SchemeHTTPS }

// tlsPort is where the probe target is expected to terminate TLS when
// reached through a CONNECT tunnel.
const tlsPort = "443"

func (httpsDialer) Dial(ctx context.Context, ep model.ProxyEndpoint, probe Probe, timeout time.Duration) (*Outcome, *Error) {
	conn, derr := dialTCP(ctx, ep, timeout)
	if derr != nil {
		return nil, derr
	}
	defer conn.Close()

	target := probe.Host + ":" + tlsPort

	var sb strings.Builder
	fmt.Fprintf(&sb, "CONNECT %s HTTP/1.1\r\n", target)
	fmt.Fprintf(&sb, "Host: %s\r\n", target)
	fmt.Fprintf(&sb, "User-Agent: %s\r\n", userAgent)
	if ep.Username != "" || ep.Password != "" {
		fmt.Fprintf(&sb, "Proxy-Authorization: %s\r\n", basicProxyAuth(ep.Username, ep.Password))
	}
	sb.WriteString("\r\n")

	if _, err := io.WriteString(conn, sb.String()); err != nil {
		return nil, wrapNetErr(err, CodeUnreachable, "write CONNECT")
	}

	code, perr := readConnectReply(conn)
	if perr != nil {
		return nil, perr
	}
	switch {
	case code == http.StatusProxyAuthRequired || code == http.StatusUnauthorized:
		return nil, &Error{Code: CodeAuthRejected, Msg: fmt.Sprintf("CONNECT returned %d", code)}
	case code != http.StatusOK:
		return nil, &Error{Code: CodeUnreachable, Msg: fmt.Sprintf("CONNECT returned %d", code)}
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	tlsConn := tls.Client(conn, &tls.Config{
		ServerName:         probe.Host,
		InsecureSkipVerify: true,
	})
	if err := tlsConn.HandshakeContext(tctx); err != nil {
		return nil, wrapNetErr(err, CodeProtocolViolation, "tls handshake through tunnel")
	}

	if derr := writeProbeRequest(tlsConn, probe); derr != nil {
		return nil, derr
	}
	return readHTTPResponse(bufio.NewReader(tlsConn))
}

// maxConnectReplyBytes bounds the CONNECT response head.
const maxConnectReplyBytes = 8 << 10

// readConnectReply consumes the CONNECT response head byte by byte, so
// anything the proxy sends after the blank line stays on the socket for
// the TLS client instead of disappearing into a throwaway buffer.
func readConnectReply(conn net.Conn) (int, *Error) {
	head := make([]byte, 0, 256)
	var b [1]byte
	for !bytes.HasSuffix(head, []byte("\r\n\r\n")) && !bytes.HasSuffix(head, []byte("\n\n")) {
		if len(head) >= maxConnectReplyBytes {
			return 0, &Error{Code: CodeProtocolViolation, Msg: "CONNECT reply head too large"}
		}
		if _, err := io.ReadFull(conn, b[:]); err != nil {
			return 0, wrapNetErr(err, CodeUnreachable, "read CONNECT reply")
		}
		head = append(head, b[0])
	}

	statusLine, _, _ := strings.Cut(string(head), "\n")
	return parseStatusLine(strings.TrimRight(statusLine, "\r"))
}

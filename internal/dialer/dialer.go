package dialer

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JasonVinion/Pengu/internal/model"
)

// Code classifies a dial failure. All codes are recoverable per-endpoint.
type Code string

const (
	CodeUnreachable       Code = "unreachable"
	CodeTimeout           Code = "timeout"
	CodeProtocolViolation Code = "protocol_violation"
	CodeAuthRejected      Code = "auth_rejected"
	CodeSocks4Address     Code = "unsupported_address_for_socks4"
)

// Error is a dial failure with a machine-readable code and, where one
// exists, the wrapped transport cause.
type Error struct {
	Code  Code
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// wrapNetErr maps transport errors onto a dial Error. Deadline errors
// always become CodeTimeout regardless of the fallback.
func wrapNetErr(err error, fallback Code, msg string) *Error {
	code := fallback
	if errors.Is(err, context.DeadlineExceeded) {
		code = CodeTimeout
	} else {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			code = CodeTimeout
		}
	}
	return &Error{Code: code, Msg: msg, Cause: err}
}

// Probe is the externally supplied echo target every dialer causes the
// proxy to reach. It reports the apparent client IP and any forwarded
// headers it observed.
type Probe struct {
	Host string
	Port int
	Path string
}

// ParseProbe accepts "host", "host:port", "host/path" and full
// "http://host[:port][/path]" forms. The port defaults to 80.
func ParseProbe(s string) (Probe, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Probe{}, errors.New("empty probe target")
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return Probe{}, fmt.Errorf("parse probe target: %w", err)
	}
	if u.Scheme != "http" {
		return Probe{}, fmt.Errorf("probe target scheme %q not supported", u.Scheme)
	}
	if u.Hostname() == "" {
		return Probe{}, errors.New("probe target has no host")
	}
	p := Probe{Host: u.Hostname(), Port: 80, Path: u.Path}
	if u.Port() != "" {
		n, err := strconv.Atoi(u.Port())
		if err != nil || n < 1 || n > 65535 {
			return Probe{}, fmt.Errorf("invalid probe port %q", u.Port())
		}
		p.Port = n
	}
	if p.Path == "" {
		p.Path = "/"
	}
	return p, nil
}

// HostPort returns "host:port" for the probe target.
func (p Probe) HostPort() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// maxBodyBytes caps how much of the upstream response body we read, so a
// misbehaving proxy cannot feed us unbounded data.
const maxBodyBytes = 64 << 10

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Outcome carries the raw upstream response a dialer captured. The
// dialer performs no anonymity logic; classification happens downstream.
type Outcome struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// Dialer speaks one proxy wire protocol: it connects to the endpoint,
// performs the protocol handshake, causes the probe target to respond
// through the proxy, and hands back the raw response. The timeout bounds
// the entire handshake-plus-probe sequence.
type Dialer interface {
	Scheme() model.Scheme
	Dial(ctx context.Context, ep model.ProxyEndpoint, probe Probe, timeout time.Duration) (*Outcome, *Error)
}

// ForScheme selects the dialer variant for an endpoint's scheme.
// Adding a protocol means adding one variant here.
func ForScheme(s model.Scheme) (Dialer, bool) {
	switch s {
	case model.SchemeHTTP:
		return httpDialer{}, true
	case model.SchemeHTTPS:
		return httpsDialer{}, true
	case model.SchemeSOCKS4:
		return socks4Dialer{}, true
	case model.SchemeSOCKS5:
		return socks5Dialer{}, true
	default:
		return nil, false
	}
}

// dialTCP opens the raw connection to the proxy itself and pins the
// whole-sequence deadline on it.
func dialTCP(ctx context.Context, ep model.ProxyEndpoint, timeout time.Duration) (net.Conn, *Error) {
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	nd := &net.Dialer{}
	conn, err := nd.DialContext(dctx, "tcp", ep.Addr())
	if err != nil {
		return nil, wrapNetErr(err, CodeUnreachable, "connect to proxy")
	}

	deadline := time.Now().Add(timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetDeadline(deadline)
	return conn, nil
}

// basicProxyAuth renders the Proxy-Authorization header value.
func basicProxyAuth(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

// writeProbeRequest sends a plain origin-form GET for the probe target
// over an already-established tunnel or direct proxy connection.
func writeProbeRequest(w io.Writer, probe Probe) *Error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "GET %s HTTP/1.1\r\n", probe.Path)
	fmt.Fprintf(&sb, "Host: %s\r\n", probe.Host)
	fmt.Fprintf(&sb, "User-Agent: %s\r\n", userAgent)
	sb.WriteString("Accept: application/json\r\n")
	sb.WriteString("Connection: close\r\n\r\n")
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return wrapNetErr(err, CodeUnreachable, "write probe request")
	}
	return nil
}

// readHTTPResponse parses a status line plus headers, then reads the body
// up to maxBodyBytes. The response framing is all we need; we do not
// de-chunk, since the probe request asks for Connection: close.
func readHTTPResponse(r *bufio.Reader) (*Outcome, *Error) {
	tp := textproto.NewReader(r)

	statusLine, err := tp.ReadLine()
	if err != nil {
		return nil, wrapNetErr(err, CodeProtocolViolation, "read status line")
	}
	code, perr := parseStatusLine(statusLine)
	if perr != nil {
		return nil, perr
	}

	mh, err := tp.ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return nil, wrapNetErr(err, CodeProtocolViolation, "read response headers")
	}
	headers := make(map[string]string, len(mh))
	for k, vs := range mh {
		if len(vs) > 0 {
			headers[k] = vs[0]
		}
	}

	body, err := io.ReadAll(io.LimitReader(r, maxBodyBytes))
	if err != nil && len(body) == 0 {
		return nil, wrapNetErr(err, CodeUnreachable, "read response body")
	}

	return &Outcome{StatusCode: code, Headers: headers, Body: body}, nil
}

func parseStatusLine(line string) (int, *Error) {
	// e.g. "HTTP/1.1 200 OK"
	fields := strings.SplitN(line, " ", 3)
	if len(fields) < 2 || !strings.HasPrefix(fields[0], "HTTP/") {
		return 0, &Error{Code: CodeProtocolViolation, Msg: fmt.Sprintf("bad status line %q", line)}
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, &Error{Code: CodeProtocolViolation, Msg: fmt.Sprintf("bad status code in %q", line)}
	}
	return code, nil
}

package checker

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/JasonVinion/Pengu/internal/model"
)

// supportsUDPAssociate asks the proxy for a UDP relay (SOCKS5 command 0x03)
// and reports whether it granted one. The relay is released immediately; no
// datagrams are exchanged.
func supportsUDPAssociate(ctx context.Context, ep model.ProxyEndpoint, timeout time.Duration) bool {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", ep.Addr())
	if err != nil {
		return false
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	methods := []byte{0x00}
	if ep.Username != "" || ep.Password != "" {
		methods = append(methods, 0x02)
	}
	greeting := append([]byte{0x05, byte(len(methods))}, methods...)
	if _, err := conn.Write(greeting); err != nil {
		return false
	}

	sel := make([]byte, 2)
	if _, err := io.ReadFull(conn, sel); err != nil || sel[0] != 0x05 {
		return false
	}
	switch sel[1] {
	case 0x00:
	case 0x02:
		if !udpUserPassAuth(conn, ep.Username, ep.Password) {
			return false
		}
	default:
		return false
	}

	// VER CMD=UDP-ASSOCIATE RSV ATYP=IPv4 0.0.0.0:0. We have no relay
	// address to advertise, and RFC 1928 allows all-zeros here.
	assoc := []byte{0x05, 0x03, 0x00, 0x01, 0, 0, 0, 0, 0, 0}
	if _, err := conn.Write(assoc); err != nil {
		return false
	}

	reply := make([]byte, 4)
	if _, err := io.ReadFull(conn, reply); err != nil {
		return false
	}
	return reply[0] == 0x05 && reply[1] == 0x00
}

func udpUserPassAuth(conn net.Conn, username, password string) bool {
	if len(username) > 255 || len(password) > 255 {
		return false
	}
	req := []byte{0x01, byte(len(username))}
	req = append(req, username...)
	req = append(req, byte(len(password)))
	req = append(req, password...)
	if _, err := conn.Write(req); err != nil {
		return false
	}
	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		return false
	}
	return resp[0] == 0x01 && resp[1] == 0x00
}

// Package udp implements the voice media transport: IP discovery over the
// negotiated UDP socket, and RTP framing with SecretBox encryption.
package udp

import (
	"bytes"
	"encoding/binary"
	"net"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// discoveryPacketLen is the fixed size of both the outbound discovery
// packet and the server's response.
const discoveryPacketLen = 70

// ErrBadDiscoveryPacket classifies a malformed IP-discovery response.
type ErrBadDiscoveryPacket struct{ Reason string }

func (e *ErrBadDiscoveryPacket) Error() string {
	return "udp: bad ip discovery packet: " + e.Reason
}

// Conn is a bound UDP socket addressed at the voice server.
type Conn struct {
	conn *net.UDPConn
}

// Dial binds an ephemeral local UDP socket and connects it to addr.
func Dial(addr string) (*Conn, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "udp: failed to resolve address")
	}

	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, errors.Wrap(err, "udp: failed to dial")
	}

	return &Conn{conn: conn}, nil
}

// Discover sends the 70-byte IP-discovery packet for ssrc and parses the
// server's response into the external IP and port the server observed.
func (c *Conn) Discover(ssrc uint32) (ip string, port uint16, err error) {
	packet := make([]byte, discoveryPacketLen)
	binary.BigEndian.PutUint32(packet[0:4], ssrc)

	if _, err := c.conn.Write(packet); err != nil {
		return "", 0, errors.Wrap(err, "udp: failed to send discovery packet")
	}

	resp := make([]byte, discoveryPacketLen)
	n, err := c.conn.Read(resp)
	if err != nil {
		return "", 0, errors.Wrap(err, "udp: failed to read discovery response")
	}
	if n != discoveryPacketLen {
		return "", 0, &ErrBadDiscoveryPacket{Reason: "short read"}
	}

	nul := bytes.IndexByte(resp[4:], 0)
	if nul < 0 {
		return "", 0, &ErrBadDiscoveryPacket{Reason: "ip not null-terminated"}
	}
	ipBytes := resp[4 : 4+nul]
	if !utf8.Valid(ipBytes) {
		return "", 0, &ErrBadDiscoveryPacket{Reason: "ip not valid utf-8"}
	}
	ipStr := string(ipBytes)
	if net.ParseIP(ipStr) == nil {
		return "", 0, &ErrBadDiscoveryPacket{Reason: "ip did not parse"}
	}

	port = binary.LittleEndian.Uint16(resp[discoveryPacketLen-2:])

	return ipStr, port, nil
}

// Write sends a raw datagram, used for RTP packets once discovery and
// protocol selection are done.
func (c *Conn) Write(b []byte) error {
	_, err := c.conn.Write(b)
	return err
}

// Close closes the underlying UDP socket.
func (c *Conn) Close() error { return c.conn.Close() }

package udp

import (
	"encoding/binary"

	"golang.org/x/crypto/nacl/secretbox"
)

// HeaderLen is the fixed RTP header size this client always emits.
const HeaderLen = 12

// rtpVersionPayload is the fixed version/payload-type byte pair Discord's
// voice protocol expects on every packet.
var rtpVersionPayload = [2]byte{0x80, 0x78}

// Header builds the 12-byte RTP header for one outgoing packet.
func Header(seq uint16, timestamp uint32, ssrc uint32) [HeaderLen]byte {
	var h [HeaderLen]byte
	h[0], h[1] = rtpVersionPayload[0], rtpVersionPayload[1]
	binary.BigEndian.PutUint16(h[2:4], seq)
	binary.BigEndian.PutUint32(h[4:8], timestamp)
	binary.BigEndian.PutUint32(h[8:12], ssrc)
	return h
}

// Nonce builds the 24-byte SecretBox nonce for a packet: the RTP header
// followed by twelve zero bytes.
func Nonce(header [HeaderLen]byte) [24]byte {
	var nonce [24]byte
	copy(nonce[:HeaderLen], header[:])
	return nonce
}

// Seal encrypts payload with secretKey under the nonce derived from
// header, and returns the full RTP datagram: header followed by the
// sealed body.
func Seal(header [HeaderLen]byte, payload []byte, secretKey *[32]byte) []byte {
	nonce := Nonce(header)

	packet := make([]byte, 0, HeaderLen+len(payload)+secretbox.Overhead)
	packet = append(packet, header[:]...)
	packet = secretbox.Seal(packet, payload, &nonce, secretKey)
	return packet
}

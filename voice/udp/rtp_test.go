package udp

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/nacl/secretbox"
)

func TestHeaderFixedPrefix(t *testing.T) {
	h := Header(0, 0, 1)
	require.Equal(t, []byte{0x80, 0x78, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01}, h[:])
}

func TestNonceIsHeaderPaddedWithZeros(t *testing.T) {
	h := Header(7, 960, 42)
	n := Nonce(h)

	require.Equal(t, h[:], n[:HeaderLen])
	for _, b := range n[HeaderLen:] {
		require.Equal(t, byte(0), b)
	}
}

func TestSealRoundTrips(t *testing.T) {
	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}

	h := Header(1, 960, 1)
	payload := []byte{0xF8, 0xFF, 0xFE}

	packet := Seal(h, payload, &key)
	require.Equal(t, h[:], packet[:HeaderLen])

	nonce := Nonce(h)
	opened, ok := secretbox.Open(nil, packet[HeaderLen:], &nonce, &key)
	require.True(t, ok)
	require.Equal(t, payload, opened)
}

func TestSealMatchesScenarioPrefix(t *testing.T) {
	var key [32]byte
	h := Header(0, 0, 1)
	packet := Seal(h, make([]byte, 960*2), &key)

	require.Equal(t, []byte{0x80, 0x78, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01}, packet[:HeaderLen])
}

package udp

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDiscoverParsesResponse(t *testing.T) {
	server, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer server.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)

		buf := make([]byte, discoveryPacketLen)
		n, clientAddr, err := server.ReadFromUDP(buf)
		require.NoError(t, err)
		require.Equal(t, discoveryPacketLen, n)
		require.Equal(t, uint32(0x42), binary.BigEndian.Uint32(buf[0:4]))

		resp := make([]byte, discoveryPacketLen)
		copy(resp[4:], "192.0.2.1\x00")
		binary.LittleEndian.PutUint16(resp[discoveryPacketLen-2:], 5056)

		_, err = server.WriteToUDP(resp, clientAddr)
		require.NoError(t, err)
	}()

	conn, err := Dial(server.LocalAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	ip, port, err := conn.Discover(0x42)
	require.NoError(t, err)
	require.Equal(t, "192.0.2.1", ip)
	require.Equal(t, uint16(5056), port)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("server goroutine did not finish")
	}
}

package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wrenlib/wren/discord"
	"github.com/wrenlib/wren/id"
)

func TestGetGatewayAppendsVersionAndEncoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bot tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"url":"wss://gateway.example"}`))
	}))
	defer server.Close()

	origBase := BaseURL
	BaseURL = server.URL
	defer func() { BaseURL = origBase }()

	c := NewClient("tok")
	url, err := c.GetGateway(context.Background(), 8)
	require.NoError(t, err)
	require.Equal(t, "wss://gateway.example?v=8&encoding=json", url)
}

func TestRetriesOn429ThenSucceeds(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n == 1 {
			w.Header().Set("X-RateLimit-Reset", strconv.FormatFloat(float64(time.Now().Add(30*time.Millisecond).UnixNano())/1e9, 'f', -1, 64))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"id":"1","channel_id":"2","content":"hi"}`))
	}))
	defer server.Close()

	origBase := BaseURL
	BaseURL = server.URL
	defer func() { BaseURL = origBase }()

	c := NewClient("tok")
	msg, err := c.SendMessage(context.Background(), id.ChannelID(2), NewMessage("hi"))
	require.NoError(t, err)
	require.Equal(t, "hi", msg.Content)
	require.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestExhaustsRetryCeiling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	origBase := BaseURL
	BaseURL = server.URL
	defer func() { BaseURL = origBase }()

	c := NewClient("tok", WithRetryCeiling(3))
	_, err := c.SendMessage(context.Background(), id.ChannelID(2), NewMessage("hi"))
	require.Error(t, err)

	var tooMany *ErrTooManyRetries
	require.ErrorAs(t, err, &tooMany)
	require.Equal(t, 3, tooMany.Max)
}

func TestEmbedTooBigRejectedBeforeSend(t *testing.T) {
	c := NewClient("tok")

	big := make([]byte, 7000)
	for i := range big {
		big[i] = 'a'
	}

	msg := NewMessage("hi").WithEmbed(&discord.Embed{Description: string(big)})
	_, err := c.SendMessage(context.Background(), id.ChannelID(1), msg)
	require.Error(t, err)

	var tooBig *discord.ErrEmbedTooBig
	require.ErrorAs(t, err, &tooBig)
}

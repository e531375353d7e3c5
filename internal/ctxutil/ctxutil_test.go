package ctxutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAwaitReceivesValue(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 42

	v, err := Await(context.Background(), ch, time.Second)
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestAwaitTimesOut(t *testing.T) {
	ch := make(chan int)

	_, err := Await(context.Background(), ch, 20*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAwaitRespectsParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := make(chan int)

	_, err := Await(ctx, ch, time.Second)
	require.ErrorIs(t, err, context.Canceled)
}

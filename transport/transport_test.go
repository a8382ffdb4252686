package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExtendedHandshakeCodec(t *testing.T) {
	raw, err := encodeExtendedHandshake([]byte("peer-id"), []string{"cap/a", "cap/b"})
	require.NoError(t, err)

	eh, err := decodeExtendedHandshake(raw)
	require.NoError(t, err)
	require.Equal(t, []byte("peer-id"), eh.ID)
	require.Equal(t, []string{"cap/a", "cap/b"}, eh.Caps)
}

func TestExtendedHandshakeDecodeRejectsGarbage(t *testing.T) {
	for _, raw := range [][]byte{nil, []byte("garbage"), []byte("d2:id0:e")} {
		_, err := decodeExtendedHandshake(raw)
		require.ErrorIs(t, err, ErrBadExtendedHandshake)
	}
}

func TestNewPeerID(t *testing.T) {
	a, err := NewPeerID()
	require.NoError(t, err)
	require.Len(t, a, PeerIDSize)

	b, err := NewPeerID()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestHasCapability(t *testing.T) {
	caps := []string{"one", "two"}
	require.True(t, HasCapability(caps, "two"))
	require.False(t, HasCapability(caps, "three"))
	require.False(t, HasCapability(nil, "one"))
}

func TestPipeRoundTrip(t *testing.T) {
	a, b := Pipe([]byte("id-a"), []byte("id-b"), []string{"cap/x"}, []string{"cap/y"})
	defer a.Close()
	defer b.Close()

	require.True(t, a.Initiator())
	require.False(t, b.Initiator())
	require.Equal(t, []byte("id-b"), a.RemoteID())
	require.Equal(t, []string{"cap/y"}, a.RemoteCapabilities())
	require.Equal(t, []string{"cap/x"}, b.RemoteCapabilities())

	ctx := context.Background()
	require.NoError(t, a.Send(ctx, []byte("ping")))
	frame, err := b.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("ping"), frame)

	require.NoError(t, b.Send(ctx, []byte("pong")))
	frame, err = a.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("pong"), frame)
}

func TestPipeClose(t *testing.T) {
	a, b := Pipe([]byte("id-a"), []byte("id-b"), nil, nil)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close()) // idempotent

	ctx := context.Background()
	_, err := b.Receive(ctx)
	require.ErrorIs(t, err, ErrConnClosed)
	require.ErrorIs(t, b.Send(ctx, []byte("x")), ErrConnClosed)
}

func TestPipeReceiveContext(t *testing.T) {
	a, b := Pipe([]byte("id-a"), []byte("id-b"), nil, nil)
	defer a.Close()
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := a.Receive(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWSConnRoundTrip(t *testing.T) {
	accepted := make(chan *WSConn, 1)
	testDone := make(chan struct{})
	defer close(testDone)
	srv, err := ListenWS("127.0.0.1:0", []string{"cap/server"}, func(c *WSConn) {
		accepted <- c
		// Keep the handler alive for the connection's lifetime.
		<-testDone
	})
	require.NoError(t, err)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	localID, err := NewPeerID()
	require.NoError(t, err)
	client, err := DialWS(ctx, "ws://"+srv.Addr(), localID, []string{"cap/client"})
	require.NoError(t, err)
	defer client.Close()

	server := <-accepted
	defer server.Close()

	require.True(t, client.Initiator())
	require.False(t, server.Initiator())
	require.Equal(t, client.LocalID(), server.RemoteID())
	require.Equal(t, server.LocalID(), client.RemoteID())
	require.Equal(t, []string{"cap/server"}, client.RemoteCapabilities())
	require.Equal(t, []string{"cap/client"}, server.RemoteCapabilities())

	require.NoError(t, client.Send(ctx, []byte("hello")))
	frame, err := server.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), frame)

	require.NoError(t, server.Send(ctx, []byte("world")))
	frame, err = client.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("world"), frame)
}

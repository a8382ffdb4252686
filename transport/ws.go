package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket"
)

// extendedHandshakeTimeout bounds the capability exchange after connect.
const extendedHandshakeTimeout = 10 * time.Second

// WSConn is an OverlayConn over one websocket connection. The first binary
// frame in each direction is the extended handshake; everything after is
// extension payload.
type WSConn struct {
	conn       *websocket.Conn
	localID    []byte
	remoteID   []byte
	remoteCaps []string
	initiator  bool

	closeOnce sync.Once
	closeErr  error
}

// DialWS opens a websocket overlay connection and performs the extended
// handshake. The dialing side is the protocol initiator.
func DialWS(ctx context.Context, url string, localID []byte, caps []string) (*WSConn, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: websocket dial %s: %w", url, err)
	}
	conn.SetReadLimit(MaxFrameSize)

	ws := &WSConn{conn: conn, localID: localID, initiator: true}
	if err := ws.exchangeExtendedHandshake(ctx, caps); err != nil {
		conn.Close(websocket.StatusProtocolError, "extended handshake failed")
		return nil, err
	}
	return ws, nil
}

// AcceptWS upgrades an incoming HTTP request to a websocket overlay
// connection and performs the extended handshake. The accepting side is the
// protocol responder.
func AcceptWS(w http.ResponseWriter, r *http.Request, localID []byte, caps []string) (*WSConn, error) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: websocket accept: %w", err)
	}
	conn.SetReadLimit(MaxFrameSize)

	ws := &WSConn{conn: conn, localID: localID, initiator: false}
	if err := ws.exchangeExtendedHandshake(r.Context(), caps); err != nil {
		conn.Close(websocket.StatusProtocolError, "extended handshake failed")
		return nil, err
	}
	return ws, nil
}

// exchangeExtendedHandshake sends our id+capabilities and reads the peer's.
// Both sides send eagerly, so neither direction deadlocks.
func (ws *WSConn) exchangeExtendedHandshake(ctx context.Context, caps []string) error {
	ctx, cancel := context.WithTimeout(ctx, extendedHandshakeTimeout)
	defer cancel()

	hello, err := encodeExtendedHandshake(ws.localID, caps)
	if err != nil {
		return err
	}
	if err := ws.conn.Write(ctx, websocket.MessageBinary, hello); err != nil {
		return fmt.Errorf("transport: send extended handshake: %w", err)
	}

	_, raw, err := ws.conn.Read(ctx)
	if err != nil {
		return fmt.Errorf("transport: read extended handshake: %w", err)
	}
	remote, err := decodeExtendedHandshake(raw)
	if err != nil {
		return err
	}

	ws.remoteID = remote.ID
	ws.remoteCaps = remote.Caps

	logrus.WithFields(logrus.Fields{
		"package":     "transport",
		"remote_caps": remote.Caps,
		"initiator":   ws.initiator,
	}).Debug("Extended handshake complete")
	return nil
}

func (ws *WSConn) LocalID() []byte              { return ws.localID }
func (ws *WSConn) RemoteID() []byte             { return ws.remoteID }
func (ws *WSConn) RemoteCapabilities() []string { return ws.remoteCaps }
func (ws *WSConn) Initiator() bool              { return ws.initiator }

// Send transmits one extension frame as a binary websocket message.
func (ws *WSConn) Send(ctx context.Context, frame []byte) error {
	if err := ws.conn.Write(ctx, websocket.MessageBinary, frame); err != nil {
		return fmt.Errorf("%w: %v", ErrConnClosed, err)
	}
	return nil
}

// Receive blocks for the next binary frame.
func (ws *WSConn) Receive(ctx context.Context) ([]byte, error) {
	_, raw, err := ws.conn.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnClosed, err)
	}
	return raw, nil
}

func (ws *WSConn) Close() error {
	ws.closeOnce.Do(func() {
		ws.closeErr = ws.conn.Close(websocket.StatusNormalClosure, "")
	})
	return ws.closeErr
}

// WSServer accepts websocket overlay connections on one listen address and
// hands them to the registered callback.
type WSServer struct {
	listener net.Listener
	server   *http.Server
	caps     []string
	onConn   func(*WSConn)
	log      *logrus.Entry
}

// ListenWS starts accepting overlay connections on addr. Each accepted
// connection gets a fresh random local peer id and is passed to onConn on
// its own goroutine.
func ListenWS(addr string, caps []string, onConn func(*WSConn)) (*WSServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}

	srv := &WSServer{
		listener: listener,
		caps:     caps,
		onConn:   onConn,
		log: logrus.WithFields(logrus.Fields{
			"package": "transport",
			"addr":    listener.Addr().String(),
		}),
	}
	srv.server = &http.Server{Handler: http.HandlerFunc(srv.handle)}

	go func() {
		if err := srv.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			srv.log.WithField("error", err.Error()).Warn("Overlay listener stopped")
		}
	}()

	srv.log.Info("Overlay listener started")
	return srv, nil
}

// Addr returns the bound listen address.
func (s *WSServer) Addr() string {
	return s.listener.Addr().String()
}

func (s *WSServer) handle(w http.ResponseWriter, r *http.Request) {
	localID, err := NewPeerID()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	conn, err := AcceptWS(w, r, localID, s.caps)
	if err != nil {
		s.log.WithField("error", err.Error()).Warn("Overlay accept failed")
		return
	}
	s.onConn(conn)
}

// Close stops accepting and shuts the listener down.
func (s *WSServer) Close() error {
	return s.server.Close()
}

// Package swarmauth authenticates two peers that rendezvoused in a shared
// swarm using a pre-shared seed, and upgrades their overlay connection to an
// encrypted, forward-secure channel.
//
// Each peer proves possession of the seed through a symmetric challenge
// exchange, then a Noise XX handshake establishes the transport keys. No
// central authority is involved; the seed is the only shared input.
//
// Example:
//
//	ch, err := swarmauth.Bind(ctx, conn, swarmauth.Options{Seed: seed})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := ch.WaitReady(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	ch.Send(ctx, []byte("hello"))
//	for payload := range ch.Payloads() {
//	    fmt.Printf("received: %s\n", payload)
//	}
package swarmauth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/swarmauth/crypto"
	"github.com/opd-ai/swarmauth/session"
	"github.com/opd-ai/swarmauth/transport"
	"github.com/opd-ai/swarmauth/wire"
)

// Capability is the extension name a peer must advertise during the
// overlay's extended handshake before a session is engaged.
const Capability = "swarmauth/noisexx/1"

var (
	// ErrUnsupportedPeer indicates the remote does not advertise the
	// protocol capability. No session is started; the connection itself
	// is left alone.
	ErrUnsupportedPeer = errors.New("swarmauth: peer does not support the protocol")
	// ErrHandshakeTimeout indicates the handshake deadline expired before
	// the session reached a ready state.
	ErrHandshakeTimeout = errors.New("swarmauth: handshake deadline expired")
	// ErrChannelClosed indicates the channel was torn down.
	ErrChannelClosed = errors.New("swarmauth: channel closed")
)

// Channel is one overlay connection bound to a handshake session. It pumps
// the connection's frames through the state machine, performs the sends the
// transitions request, and surfaces decrypted payloads.
type Channel struct {
	conn transport.OverlayConn
	opts Options

	// mu serializes access to sess: transitions are driven by the read
	// loop while Send and the deadline timer run on other goroutines.
	mu   sync.Mutex
	sess *session.Session

	ready     chan struct{}
	readyOnce sync.Once
	payloads  chan []byte
	done      chan struct{}
	closeOnce sync.Once

	causeMu sync.Mutex
	cause   error

	log *logrus.Entry
}

// Bind engages the protocol on one overlay connection. It verifies the
// remote advertises Capability before deriving challenges or constructing
// any session state; an unsupported peer yields ErrUnsupportedPeer and a
// warning, nothing more. The side that opened the connection initiates.
func Bind(ctx context.Context, conn transport.OverlayConn, opts Options) (*Channel, error) {
	log := logrus.WithFields(logrus.Fields{
		"package":   "swarmauth",
		"initiator": conn.Initiator(),
	})

	if !transport.HasCapability(conn.RemoteCapabilities(), Capability) {
		log.WithFields(logrus.Fields{
			"capability":  Capability,
			"remote_caps": conn.RemoteCapabilities(),
		}).Warn("Peer does not advertise protocol capability, not engaging handshake")
		return nil, ErrUnsupportedPeer
	}

	key := opts.StaticPrivateKey
	if key == nil {
		kp, err := crypto.GenerateKeyPair()
		if err != nil {
			return nil, fmt.Errorf("swarmauth: identity key generation: %w", err)
		}
		key = make([]byte, crypto.KeySize)
		copy(key, kp.Private[:])
		crypto.WipeKeyPair(kp)
		defer crypto.ZeroBytes(key)
	}

	role := session.RoleResponder
	if conn.Initiator() {
		role = session.RoleInitiator
	}

	sess, err := session.New(session.Config{
		Role:             role,
		Seed:             opts.Seed,
		LocalID:          conn.LocalID(),
		RemoteID:         conn.RemoteID(),
		StaticPrivateKey: key,
	})
	if err != nil {
		return nil, fmt.Errorf("swarmauth: session setup: %w", err)
	}

	ch := &Channel{
		conn:     conn,
		opts:     opts,
		sess:     sess,
		ready:    make(chan struct{}),
		payloads: make(chan []byte, 32),
		done:     make(chan struct{}),
		log:      log,
	}

	if role == session.RoleInitiator {
		ch.mu.Lock()
		out, err := sess.Start()
		ch.mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("swarmauth: handshake start: %w", err)
		}
		if err := ch.sendAll(ctx, out); err != nil {
			ch.teardown(err)
			return nil, err
		}
	}

	if timeout := opts.handshakeTimeout(); timeout > 0 {
		go ch.enforceDeadline(timeout)
	}
	go ch.readLoop(ctx)

	return ch, nil
}

// Ready is closed once the session reaches its terminal-success phase.
func (ch *Channel) Ready() <-chan struct{} { return ch.ready }

// WaitReady blocks until the channel is ready, closed, or ctx expires.
func (ch *Channel) WaitReady(ctx context.Context) error {
	select {
	case <-ch.ready:
		return nil
	case <-ch.done:
		if cause := ch.Err(); cause != nil {
			return cause
		}
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Payloads delivers decrypted application payloads in arrival order. The
// channel is closed on teardown.
func (ch *Channel) Payloads() <-chan []byte { return ch.payloads }

// Err returns the cause of an abort or teardown, if any.
func (ch *Channel) Err() error {
	ch.causeMu.Lock()
	defer ch.causeMu.Unlock()
	return ch.cause
}

// Send encrypts one application payload and transmits it. Valid once the
// channel is ready.
func (ch *Channel) Send(ctx context.Context, payload []byte) error {
	ch.mu.Lock()
	msg, err := ch.sess.SendPayload(payload)
	ch.mu.Unlock()
	if err != nil {
		return err
	}
	return ch.sendAll(ctx, []wire.Message{msg})
}

// Ping transmits a liveness no-op; it never advances the peer's handshake.
func (ch *Channel) Ping(ctx context.Context) error {
	return ch.sendAll(ctx, []wire.Message{wire.Ping()})
}

// Close tears the channel down: the session's key material is destroyed
// regardless of phase and the overlay connection is closed.
func (ch *Channel) Close() error {
	ch.teardown(ErrChannelClosed)
	return nil
}

func (ch *Channel) readLoop(ctx context.Context) {
	// The read loop is the only sender into payloads, so it alone closes
	// the channel on exit.
	defer close(ch.payloads)

	for {
		raw, err := ch.conn.Receive(ctx)
		if err != nil {
			// The overlay connection's close signal forces the session
			// out of existence whatever its phase.
			ch.mu.Lock()
			events := ch.sess.Abort(transport.ErrConnClosed)
			ch.mu.Unlock()
			ch.dispatch(events)
			ch.teardown(transport.ErrConnClosed)
			return
		}

		ch.mu.Lock()
		out, events, err := ch.sess.HandleRaw(raw)
		ch.mu.Unlock()

		if errors.Is(err, wire.ErrMalformedMessage) {
			// Garbage is dropped, never fatal.
			ch.log.Debug("Dropping undecodable extension frame")
			continue
		}

		ch.dispatch(events)

		if err != nil {
			// Transition errors accompany an abort; the abort event
			// already carried the cause through dispatch.
			ch.teardown(err)
			return
		}

		if sendErr := ch.sendAll(ctx, out); sendErr != nil {
			ch.mu.Lock()
			events := ch.sess.Abort(sendErr)
			ch.mu.Unlock()
			ch.dispatch(events)
			ch.teardown(sendErr)
			return
		}
	}
}

// enforceDeadline aborts a session that has not reached readiness in time.
func (ch *Channel) enforceDeadline(timeout time.Duration) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch.ready:
	case <-ch.done:
	case <-timer.C:
		ch.log.WithField("timeout", timeout.String()).Warn("Handshake deadline expired, aborting session")
		ch.mu.Lock()
		events := ch.sess.Abort(ErrHandshakeTimeout)
		ch.mu.Unlock()
		ch.dispatch(events)
		ch.teardown(ErrHandshakeTimeout)
	}
}

func (ch *Channel) sendAll(ctx context.Context, msgs []wire.Message) error {
	for _, m := range msgs {
		raw, err := wire.Encode(m)
		if err != nil {
			return err
		}
		if err := ch.conn.Send(ctx, raw); err != nil {
			return err
		}
	}
	return nil
}

func (ch *Channel) dispatch(events []session.Event) {
	for _, ev := range events {
		switch ev.Type {
		case session.EventReady:
			ch.readyOnce.Do(func() { close(ch.ready) })
		case session.EventPayload:
			select {
			case ch.payloads <- ev.Payload:
			case <-ch.done:
			}
		case session.EventDecryptFailure:
			ch.log.WithField("error", ev.Err.Error()).Warn("Discarding transport frame that failed to decrypt")
		case session.EventAborted:
			ch.setCause(ev.Err)
		case session.EventPing:
			ch.log.Debug("Ping received")
		}

		if ch.opts.OnEvent != nil {
			ch.opts.OnEvent(ev)
		}
	}
}

func (ch *Channel) setCause(cause error) {
	ch.causeMu.Lock()
	defer ch.causeMu.Unlock()
	if ch.cause == nil && cause != nil && !errors.Is(cause, ErrChannelClosed) {
		ch.cause = cause
	}
}

// teardown is the single exit path: destroy session state, close the
// overlay connection, release waiters.
func (ch *Channel) teardown(cause error) {
	ch.closeOnce.Do(func() {
		ch.setCause(cause)

		ch.mu.Lock()
		ch.sess.Close()
		ch.mu.Unlock()

		ch.conn.Close()
		close(ch.done)
	})
}

package swarmauth

import (
	"time"

	"github.com/opd-ai/swarmauth/session"
)

// DefaultHandshakeTimeout bounds how long an engaged session may sit in a
// non-terminal phase before it is aborted and its key material destroyed.
// The protocol itself carries no per-phase timeout; a peer that goes silent
// would otherwise park the session forever.
const DefaultHandshakeTimeout = 30 * time.Second

// Options configures one bound channel.
type Options struct {
	// Seed is the shared secret the peers rendezvoused on. Required.
	Seed string
	// StaticPrivateKey is this peer's long-term Noise identity key.
	// Generated fresh for the connection when nil.
	StaticPrivateKey []byte
	// HandshakeTimeout overrides DefaultHandshakeTimeout. Negative
	// disables the deadline entirely.
	HandshakeTimeout time.Duration
	// OnEvent, when set, observes every session event the binding
	// dispatches (pings, decrypt failures, readiness, aborts).
	OnEvent func(session.Event)
}

func (o Options) handshakeTimeout() time.Duration {
	switch {
	case o.HandshakeTimeout < 0:
		return 0
	case o.HandshakeTimeout == 0:
		return DefaultHandshakeTimeout
	default:
		return o.HandshakeTimeout
	}
}

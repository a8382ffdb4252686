package transport

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/zeebo/bencode"
)

// PeerIDSize is the length of generated overlay peer identifiers.
const PeerIDSize = 20

// MaxFrameSize caps one extension frame on the wire.
const MaxFrameSize = 1 << 17

var (
	// ErrConnClosed indicates the overlay connection is gone.
	ErrConnClosed = errors.New("transport: connection closed")
	// ErrBadExtendedHandshake indicates the peer's first frame was not a
	// valid extended-handshake dictionary.
	ErrBadExtendedHandshake = errors.New("transport: invalid extended handshake")
)

// OverlayConn is one logical peer-to-peer link carrying the protocol's
// extension frames. Implementations supply the per-connection identifier
// pair and the remote's advertised capability set from their own
// extended-handshake step.
type OverlayConn interface {
	// LocalID and RemoteID are unique per connection end and immutable
	// for the connection's lifetime.
	LocalID() []byte
	RemoteID() []byte
	// RemoteCapabilities lists the extension capabilities the remote
	// advertised during the extended handshake.
	RemoteCapabilities() []string
	// Initiator reports whether this side opened the connection.
	Initiator() bool
	// Send transmits one raw extension frame.
	Send(ctx context.Context, frame []byte) error
	// Receive blocks for the next extension frame. It returns
	// ErrConnClosed once the connection is gone.
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// extendedHandshake is the first frame each side sends after connecting:
// its connection identifier and advertised capability set.
type extendedHandshake struct {
	ID   []byte   `bencode:"id"`
	Caps []string `bencode:"caps"`
}

func encodeExtendedHandshake(id []byte, caps []string) ([]byte, error) {
	raw, err := bencode.EncodeBytes(extendedHandshake{ID: id, Caps: caps})
	if err != nil {
		return nil, fmt.Errorf("transport: encode extended handshake: %w", err)
	}
	return raw, nil
}

func decodeExtendedHandshake(raw []byte) (extendedHandshake, error) {
	var eh extendedHandshake
	if err := bencode.DecodeBytes(raw, &eh); err != nil {
		return extendedHandshake{}, fmt.Errorf("%w: %v", ErrBadExtendedHandshake, err)
	}
	if len(eh.ID) == 0 {
		return extendedHandshake{}, fmt.Errorf("%w: missing peer id", ErrBadExtendedHandshake)
	}
	return eh, nil
}

// NewPeerID generates a random per-connection peer identifier.
func NewPeerID() ([]byte, error) {
	id := make([]byte, PeerIDSize)
	if _, err := rand.Read(id); err != nil {
		return nil, fmt.Errorf("transport: peer id generation: %w", err)
	}
	return id, nil
}

// HasCapability reports whether caps advertises name.
func HasCapability(caps []string, name string) bool {
	for _, c := range caps {
		if c == name {
			return true
		}
	}
	return false
}

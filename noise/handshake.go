// Package noise adapts the Noise_XX handshake pattern to the four transition
// operations the handshake state machine sequences: create message A, create
// message B, create message C, and process message C. It also carries the
// split transport ciphers used for all post-handshake traffic.
package noise

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/flynn/noise"

	"github.com/opd-ai/swarmauth/crypto"
)

var (
	// ErrHandshakeNotComplete indicates handshake is still in progress.
	ErrHandshakeNotComplete = errors.New("handshake not complete")
	// ErrHandshakeComplete indicates handshake is already complete.
	ErrHandshakeComplete = errors.New("handshake already complete")
	// ErrHandshakeFailed indicates a prior operation failed and the
	// handshake object is unusable.
	ErrHandshakeFailed = errors.New("handshake failed, object must be destroyed")
	// ErrHandshakeDestroyed indicates the handshake was destroyed and its
	// key material released.
	ErrHandshakeDestroyed = errors.New("handshake destroyed")
	// ErrWrongRole indicates an operation reserved for the other role.
	ErrWrongRole = errors.New("operation not valid for this handshake role")
)

// HandshakeRole defines whether we're initiating or responding to handshake.
type HandshakeRole uint8

const (
	// Initiator starts the handshake by creating message A.
	Initiator HandshakeRole = iota
	// Responder answers message A with message B.
	Responder
)

func (r HandshakeRole) String() string {
	if r == Initiator {
		return "initiator"
	}
	return "responder"
}

// MaxPayloadSize is the largest plaintext a single transport frame carries.
// Noise messages cap at 65535 bytes including the 16-byte AEAD tag.
const MaxPayloadSize = 65535 - 16

// XXHandshake drives the Noise XX pattern through its 3-message exchange.
// XX provides mutual authentication and forward secrecy without either
// party knowing the other's static key beforehand.
//
// Exactly one sequence is valid per role: the initiator calls
// CreateMessageA then CreateMessageC; the responder calls CreateMessageB
// then ProcessMessageC. Any operation failure poisons the object; the only
// remaining valid call is Destroy.
type XXHandshake struct {
	role       HandshakeRole
	state      *noise.HandshakeState
	sendCipher *noise.CipherState
	recvCipher *noise.CipherState
	complete     bool
	failed       bool
	destroyed    bool
	staticPriv   []byte
	localPubKey  []byte
	remoteStatic []byte
}

// NewXXHandshake creates a new XX pattern handshake.
// staticPrivKey is our long-term private key (32 bytes).
// role determines if we initiate or respond to the handshake.
func NewXXHandshake(staticPrivKey []byte, role HandshakeRole) (*XXHandshake, error) {
	if len(staticPrivKey) != crypto.KeySize {
		return nil, fmt.Errorf("static private key must be %d bytes, got %d", crypto.KeySize, len(staticPrivKey))
	}

	var privateKeyArray [crypto.KeySize]byte
	copy(privateKeyArray[:], staticPrivKey)

	keyPair, err := crypto.FromSecretKey(privateKeyArray)
	if err != nil {
		crypto.ZeroBytes(privateKeyArray[:])
		return nil, fmt.Errorf("failed to derive keypair: %w", err)
	}

	staticKey := noise.DHKey{
		Private: make([]byte, crypto.KeySize),
		Public:  make([]byte, crypto.KeySize),
	}
	copy(staticKey.Private, keyPair.Private[:])
	copy(staticKey.Public, keyPair.Public[:])

	crypto.ZeroBytes(privateKeyArray[:])
	crypto.ZeroBytes(keyPair.Private[:])

	cipherSuite := noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)
	config := noise.Config{
		CipherSuite:   cipherSuite,
		Random:        rand.Reader,
		Pattern:       noise.HandshakeXX,
		Initiator:     role == Initiator,
		StaticKeypair: staticKey,
	}

	hs, err := noise.NewHandshakeState(config)
	if err != nil {
		crypto.ZeroBytes(staticKey.Private)
		return nil, fmt.Errorf("failed to create XX handshake state: %w", err)
	}

	return &XXHandshake{
		role:        role,
		state:       hs,
		staticPriv:  staticKey.Private,
		localPubKey: staticKey.Public,
	}, nil
}

// Role returns the handshake role fixed at construction.
func (xx *XXHandshake) Role() HandshakeRole {
	return xx.role
}

// CreateMessageA produces the initiator's opening message (-> e).
func (xx *XXHandshake) CreateMessageA() ([]byte, error) {
	if err := xx.usable(Initiator); err != nil {
		return nil, err
	}

	msg, _, _, err := xx.state.WriteMessage(nil, nil)
	if err != nil {
		xx.failed = true
		return nil, fmt.Errorf("XX message A write failed: %w", err)
	}
	return msg, nil
}

// CreateMessageB consumes message A and produces the responder's reply
// (<- e, ee, s, es).
func (xx *XXHandshake) CreateMessageB(a []byte) ([]byte, error) {
	if err := xx.usable(Responder); err != nil {
		return nil, err
	}

	if _, _, _, err := xx.state.ReadMessage(nil, a); err != nil {
		xx.failed = true
		return nil, fmt.Errorf("XX message A read failed: %w", err)
	}

	msg, _, _, err := xx.state.WriteMessage(nil, nil)
	if err != nil {
		xx.failed = true
		return nil, fmt.Errorf("XX message B write failed: %w", err)
	}
	return msg, nil
}

// CreateMessageC consumes message B and produces the initiator's final
// message (-> s, se), completing the handshake on the initiator's side.
func (xx *XXHandshake) CreateMessageC(b []byte) ([]byte, error) {
	if err := xx.usable(Initiator); err != nil {
		return nil, err
	}

	if _, _, _, err := xx.state.ReadMessage(nil, b); err != nil {
		xx.failed = true
		return nil, fmt.Errorf("XX message B read failed: %w", err)
	}

	// Writing the final message splits the transport ciphers. The writer
	// receives them in (send, receive) order.
	msg, send, recv, err := xx.state.WriteMessage(nil, nil)
	if err != nil {
		xx.failed = true
		return nil, fmt.Errorf("XX message C write failed: %w", err)
	}
	if send == nil || recv == nil {
		xx.failed = true
		return nil, fmt.Errorf("XX message C did not complete the handshake")
	}

	xx.finish(send, recv)
	return msg, nil
}

// ProcessMessageC consumes the initiator's final message, completing the
// handshake on the responder's side and splitting the transport ciphers.
func (xx *XXHandshake) ProcessMessageC(c []byte) error {
	if err := xx.usable(Responder); err != nil {
		return err
	}

	// The reader of the final message receives the split ciphers in
	// (receive, send) order.
	_, recv, send, err := xx.state.ReadMessage(nil, c)
	if err != nil {
		xx.failed = true
		return fmt.Errorf("XX message C read failed: %w", err)
	}
	if send == nil || recv == nil {
		xx.failed = true
		return fmt.Errorf("XX message C did not complete the handshake")
	}

	xx.finish(send, recv)
	return nil
}

// finish retains the split ciphers and the peer's static key, then drops
// the handshake state so its intermediate key material can be collected.
func (xx *XXHandshake) finish(send, recv *noise.CipherState) {
	remote := xx.state.PeerStatic()
	xx.remoteStatic = make([]byte, len(remote))
	copy(xx.remoteStatic, remote)

	xx.sendCipher = send
	xx.recvCipher = recv
	xx.complete = true
	xx.state = nil
}

// IsComplete returns whether the handshake finished and transport ciphers
// are available.
func (xx *XXHandshake) IsComplete() bool {
	return xx.complete && !xx.destroyed
}

// Encrypt seals an application payload with the send transport cipher.
func (xx *XXHandshake) Encrypt(plaintext []byte) ([]byte, error) {
	if !xx.IsComplete() {
		return nil, ErrHandshakeNotComplete
	}
	if len(plaintext) > MaxPayloadSize {
		return nil, fmt.Errorf("payload exceeds %d byte frame limit", MaxPayloadSize)
	}

	ct, err := xx.sendCipher.Encrypt(nil, nil, plaintext)
	if err != nil {
		return nil, fmt.Errorf("transport encrypt failed: %w", err)
	}
	return ct, nil
}

// Decrypt opens a received transport frame with the receive cipher. A
// failure here means a bad authentication tag, truncation, or replay; the
// cipher state is not advanced past a failed frame.
func (xx *XXHandshake) Decrypt(ciphertext []byte) ([]byte, error) {
	if !xx.IsComplete() {
		return nil, ErrHandshakeNotComplete
	}

	pt, err := xx.recvCipher.Decrypt(nil, nil, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("transport decrypt failed: %w", err)
	}
	return pt, nil
}

// RemoteStaticKey returns the peer's static public key after completion.
func (xx *XXHandshake) RemoteStaticKey() ([]byte, error) {
	if !xx.IsComplete() {
		return nil, ErrHandshakeNotComplete
	}

	key := make([]byte, len(xx.remoteStatic))
	copy(key, xx.remoteStatic)
	return key, nil
}

// LocalStaticKey returns our static public key.
func (xx *XXHandshake) LocalStaticKey() []byte {
	key := make([]byte, len(xx.localPubKey))
	copy(key, xx.localPubKey)
	return key
}

// Destroy releases the handshake's key material. It is idempotent and must
// be called on abort, teardown, or after any failed operation. The object
// is unusable afterwards.
func (xx *XXHandshake) Destroy() {
	if xx.destroyed {
		return
	}
	xx.destroyed = true
	xx.complete = false

	crypto.ZeroBytes(xx.staticPriv)
	xx.staticPriv = nil
	xx.state = nil
	xx.sendCipher = nil
	xx.recvCipher = nil
}

func (xx *XXHandshake) usable(want HandshakeRole) error {
	switch {
	case xx.destroyed:
		return ErrHandshakeDestroyed
	case xx.failed:
		return ErrHandshakeFailed
	case xx.complete:
		return ErrHandshakeComplete
	case xx.role != want:
		return ErrWrongRole
	}
	return nil
}

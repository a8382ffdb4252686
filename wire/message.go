package wire

import (
	"errors"
	"fmt"

	"github.com/zeebo/bencode"
)

// Commands carried in the "cmd" field of a handshake dictionary.
const (
	// CmdPing is a liveness no-op, accepted in any phase before abort.
	CmdPing = "ping"
	// CmdNoiseXX carries one of the three Noise XX handshake messages.
	CmdNoiseXX = "noisexx"
)

// MaxMessageSize caps a single encoded dictionary. Noise transport messages
// are at most 65535 bytes of ciphertext; the cap leaves headroom for the
// dictionary framing around them.
const MaxMessageSize = 1 << 17

var (
	// ErrMalformedMessage indicates bytes that do not decode to a message
	// dictionary. Callers drop these silently rather than aborting, so a
	// peer flooding garbage cannot terminate a session by itself.
	ErrMalformedMessage = errors.New("wire: malformed message")
	// ErrMessageTooLarge indicates an encoded message over MaxMessageSize.
	ErrMessageTooLarge = errors.New("wire: message exceeds maximum size")
)

// Message is the flat dictionary exchanged on the extension channel. Exactly
// one shape is sent at a time; which handshake payload field is meaningful is
// determined by the receiver's current phase, not by inspection.
type Message struct {
	Cmd       string `bencode:"cmd,omitempty"`
	Challenge []byte `bencode:"challenge,omitempty"`
	A         []byte `bencode:"a,omitempty"`
	B         []byte `bencode:"b,omitempty"`
	C         []byte `bencode:"c,omitempty"`
	NoiseMsg  []byte `bencode:"noise_msg,omitempty"`
}

// Ping constructs the liveness no-op message.
func Ping() Message {
	return Message{Cmd: CmdPing}
}

// HandshakeA constructs the initiator's first message.
func HandshakeA(challenge, a []byte) Message {
	return Message{Cmd: CmdNoiseXX, Challenge: challenge, A: a}
}

// HandshakeB constructs the responder's reply.
func HandshakeB(challenge, b []byte) Message {
	return Message{Cmd: CmdNoiseXX, Challenge: challenge, B: b}
}

// HandshakeC constructs the initiator's final handshake message. No
// challenge accompanies it; both sides were verified by messages A and B.
func HandshakeC(c []byte) Message {
	return Message{Cmd: CmdNoiseXX, C: c}
}

// Encrypted wraps post-handshake ciphertext for the secure session layer.
func Encrypted(ciphertext []byte) Message {
	return Message{NoiseMsg: ciphertext}
}

// IsEncrypted reports whether the message carries application ciphertext
// rather than a handshake command. An empty ciphertext is still a frame.
func (m Message) IsEncrypted() bool {
	return m.Cmd == "" && m.NoiseMsg != nil
}

// Encode serializes the message as a deterministic bencoded dictionary.
func Encode(m Message) ([]byte, error) {
	raw, err := bencode.EncodeBytes(m)
	if err != nil {
		return nil, fmt.Errorf("wire: encode failed: %w", err)
	}
	if len(raw) > MaxMessageSize {
		return nil, ErrMessageTooLarge
	}
	return raw, nil
}

// Decode parses one bencoded dictionary. Any undecodable input, including
// oversized input, maps to ErrMalformedMessage.
func Decode(raw []byte) (Message, error) {
	if len(raw) == 0 || len(raw) > MaxMessageSize {
		return Message{}, ErrMalformedMessage
	}

	var m Message
	if err := bencode.DecodeBytes(raw, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return m, nil
}

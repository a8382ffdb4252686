package session

import "errors"

var (
	// ErrChallengeMismatch indicates the peer presented a challenge that
	// does not match the value this side derived. The session aborts; no
	// retry, no tolerance window.
	ErrChallengeMismatch = errors.New("session: challenge mismatch")
	// ErrCryptoHandshake indicates the Noise adapter rejected a handshake
	// message. The session aborts and the adapter is destroyed.
	ErrCryptoHandshake = errors.New("session: noise handshake failure")
	// ErrUnexpectedMessage indicates a handshake message that has no valid
	// transition from the current role and phase.
	ErrUnexpectedMessage = errors.New("session: message not valid for current phase")
	// ErrDecryptionFailed indicates a post-handshake frame failed to
	// authenticate. Reported to the caller but not fatal by itself.
	ErrDecryptionFailed = errors.New("session: transport frame decryption failed")
	// ErrNotReady indicates application traffic before the handshake
	// reached a ready state.
	ErrNotReady = errors.New("session: handshake not complete")
	// ErrSessionAborted indicates the session is in its terminal aborted
	// state and accepts no further operations.
	ErrSessionAborted = errors.New("session: aborted")
	// ErrNotInitiator indicates Start was called on a responder session.
	ErrNotInitiator = errors.New("session: only the initiator starts the handshake")
	// ErrAlreadyStarted indicates Start was called twice.
	ErrAlreadyStarted = errors.New("session: handshake already started")
)

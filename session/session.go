package session

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/swarmauth/challenge"
	"github.com/opd-ai/swarmauth/noise"
	"github.com/opd-ai/swarmauth/wire"
)

// Role identifies which side of the overlay connection this session is.
// It is fixed at construction: the side that opened the connection initiates.
type Role uint8

const (
	// RoleInitiator opened the overlay connection and sends message A.
	RoleInitiator Role = iota
	// RoleResponder accepted the overlay connection and answers with B.
	RoleResponder
)

func (r Role) String() string {
	if r == RoleInitiator {
		return "initiator"
	}
	return "responder"
}

// Phase enumerates the handshake states. Aborted is folded in as one more
// phase so every transition is a total match, not a separate guard.
type Phase uint8

const (
	// PhaseChallengesComputed is the entry phase: challenges are derived,
	// no handshake message has been sent or received.
	PhaseChallengesComputed Phase = iota
	// PhaseInitiatorAwaitingB follows the initiator sending message A.
	PhaseInitiatorAwaitingB
	// PhaseResponderAwaitingC follows the responder sending message B.
	PhaseResponderAwaitingC
	// PhaseInitiatorReady is terminal: the initiator sent message C and
	// treats the channel as secure without waiting for confirmation.
	PhaseInitiatorReady
	// PhaseResponderReady is terminal: the responder processed message C
	// and holds the split transport keys.
	PhaseResponderReady
	// PhaseAborted is the absorbing terminal state. Key material is
	// destroyed and every further input is dropped silently.
	PhaseAborted
)

func (p Phase) String() string {
	switch p {
	case PhaseChallengesComputed:
		return "challenges_computed"
	case PhaseInitiatorAwaitingB:
		return "initiator_awaiting_b"
	case PhaseResponderAwaitingC:
		return "responder_awaiting_c"
	case PhaseInitiatorReady:
		return "initiator_ready"
	case PhaseResponderReady:
		return "responder_ready"
	case PhaseAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Config carries everything a per-connection session needs at construction.
type Config struct {
	Role Role
	// Seed is the shared secret both peers derived their rendezvous from.
	Seed string
	// LocalID and RemoteID are the overlay connection's peer identifiers.
	LocalID  []byte
	RemoteID []byte
	// StaticPrivateKey is this peer's long-term Noise identity key.
	StaticPrivateKey []byte
}

// Session is the per-connection handshake state machine and, once ready, the
// secure session layer. All transitions are driven sequentially by events
// from one duplex channel, so a Session needs no internal locking; it must
// not be shared across goroutines without external synchronization.
type Session struct {
	role       Role
	phase      Phase
	challenges challenge.Pair
	handshake  *noise.XXHandshake
	started    bool
	abortCause error
	log        *logrus.Entry
}

// New derives the connection's challenge pair and constructs the state
// machine in PhaseChallengesComputed. It is called only after the overlay
// layer confirmed the remote advertises this protocol's capability.
func New(cfg Config) (*Session, error) {
	challenges, err := challenge.Derive(cfg.Seed, cfg.LocalID, cfg.RemoteID)
	if err != nil {
		return nil, fmt.Errorf("challenge derivation failed: %w", err)
	}

	hsRole := noise.Initiator
	if cfg.Role == RoleResponder {
		hsRole = noise.Responder
	}
	hs, err := noise.NewXXHandshake(cfg.StaticPrivateKey, hsRole)
	if err != nil {
		return nil, fmt.Errorf("noise handshake setup failed: %w", err)
	}

	return &Session{
		role:       cfg.Role,
		phase:      PhaseChallengesComputed,
		challenges: challenges,
		handshake:  hs,
		log: logrus.WithFields(logrus.Fields{
			"package": "session",
			"role":    cfg.Role.String(),
		}),
	}, nil
}

// Role returns the session's fixed role.
func (s *Session) Role() Role { return s.role }

// Phase returns the current handshake phase.
func (s *Session) Phase() Phase { return s.phase }

// Ready reports whether the session reached a terminal-success phase.
func (s *Session) Ready() bool {
	return s.phase == PhaseInitiatorReady || s.phase == PhaseResponderReady
}

// Aborted reports whether the session is in its terminal aborted state.
func (s *Session) Aborted() bool { return s.phase == PhaseAborted }

// AbortCause returns the error that aborted the session, if any.
func (s *Session) AbortCause() error { return s.abortCause }

// Start self-triggers the initiator's entry transition: create message A and
// emit it alongside this side's proof of seed possession. The responder
// never calls Start; its first transition is driven by receiving A.
func (s *Session) Start() ([]wire.Message, error) {
	if s.role != RoleInitiator {
		return nil, ErrNotInitiator
	}
	if s.phase == PhaseAborted {
		return nil, ErrSessionAborted
	}
	if s.started {
		return nil, ErrAlreadyStarted
	}

	a, err := s.handshake.CreateMessageA()
	if err != nil {
		s.abort(fmt.Errorf("%w: %v", ErrCryptoHandshake, err))
		return nil, s.abortCause
	}

	s.started = true
	s.phase = PhaseInitiatorAwaitingB
	return []wire.Message{wire.HandshakeA(s.challenges.Remote[:], a)}, nil
}

// HandleRaw decodes one extension frame and applies it. Undecodable bytes
// return wire.ErrMalformedMessage without touching the session state; the
// caller drops them, so garbage cannot terminate a session.
func (s *Session) HandleRaw(raw []byte) ([]wire.Message, []Event, error) {
	m, err := wire.Decode(raw)
	if err != nil {
		return nil, nil, err
	}
	return s.HandleMessage(m)
}

// HandleMessage applies one received message to the state machine and
// returns the outbound messages and events the transition produced. The
// returned error describes why a transition aborted or was rejected; it is
// informational and never program-fatal.
func (s *Session) HandleMessage(m wire.Message) ([]wire.Message, []Event, error) {
	// Aborted absorbs everything silently.
	if s.phase == PhaseAborted {
		return nil, nil, nil
	}

	switch {
	case m.IsEncrypted():
		return s.handleEncrypted(m)
	case m.Cmd == wire.CmdPing:
		// Accepted in any phase prior to abort; never advances the phase.
		return nil, []Event{{Type: EventPing}}, nil
	case m.Cmd == wire.CmdNoiseXX:
		return s.handleNoiseXX(m)
	default:
		// Unknown command: drop for forward compatibility.
		s.log.WithField("cmd", m.Cmd).Debug("Dropping unknown command")
		return nil, nil, nil
	}
}

// handleNoiseXX dispatches a handshake message. Which of the three messages
// it is follows from the receiver's role and phase, exactly one transition
// is valid per role; everything else aborts.
func (s *Session) handleNoiseXX(m wire.Message) ([]wire.Message, []Event, error) {
	switch {
	case s.role == RoleResponder && s.phase == PhaseChallengesComputed:
		return s.receiveA(m)
	case s.role == RoleInitiator && s.phase == PhaseInitiatorAwaitingB:
		return s.receiveB(m)
	case s.role == RoleResponder && s.phase == PhaseResponderAwaitingC:
		return s.receiveC(m)
	case s.Ready():
		// A replayed handshake message after completion is ignored; the
		// split keys are never re-derived.
		s.log.WithField("phase", s.phase.String()).Debug("Ignoring handshake message after completion")
		return nil, nil, nil
	default:
		ev := s.abort(fmt.Errorf("%w: %s/%s", ErrUnexpectedMessage, s.role, s.phase))
		return nil, ev, s.abortCause
	}
}

// receiveA verifies the initiator's proof of seed possession, then answers
// with message B and this side's own proof.
func (s *Session) receiveA(m wire.Message) ([]wire.Message, []Event, error) {
	if !s.challenges.Verify(m.Challenge) {
		ev := s.abort(ErrChallengeMismatch)
		return nil, ev, s.abortCause
	}

	b, err := s.handshake.CreateMessageB(m.A)
	if err != nil {
		ev := s.abort(fmt.Errorf("%w: %v", ErrCryptoHandshake, err))
		return nil, ev, s.abortCause
	}

	s.phase = PhaseResponderAwaitingC
	return []wire.Message{wire.HandshakeB(s.challenges.Remote[:], b)}, nil, nil
}

// receiveB verifies the responder's proof, then completes the exchange with
// message C. The initiator treats the channel as secure as soon as C is
// produced, without cryptographic confirmation that the responder accepted
// it; the responder's acceptance surfaces implicitly through traffic.
func (s *Session) receiveB(m wire.Message) ([]wire.Message, []Event, error) {
	if !s.challenges.Verify(m.Challenge) {
		ev := s.abort(ErrChallengeMismatch)
		return nil, ev, s.abortCause
	}

	c, err := s.handshake.CreateMessageC(m.B)
	if err != nil {
		ev := s.abort(fmt.Errorf("%w: %v", ErrCryptoHandshake, err))
		return nil, ev, s.abortCause
	}

	s.phase = PhaseInitiatorReady
	s.log.Info("Handshake complete, channel ready")
	return []wire.Message{wire.HandshakeC(c)}, []Event{{Type: EventReady}}, nil
}

// receiveC processes the initiator's final message, splitting the transport
// keys and marking the responder ready.
func (s *Session) receiveC(m wire.Message) ([]wire.Message, []Event, error) {
	if err := s.handshake.ProcessMessageC(m.C); err != nil {
		ev := s.abort(fmt.Errorf("%w: %v", ErrCryptoHandshake, err))
		return nil, ev, s.abortCause
	}

	s.phase = PhaseResponderReady
	s.log.Info("Handshake complete, channel ready")
	return nil, []Event{{Type: EventReady}}, nil
}

// handleEncrypted routes a post-handshake frame through the transport
// decrypt. A single bad frame is reported, not fatal: the underlying
// transport may duplicate or reorder, and an attacker must not be able to
// tear the session down with garbage ciphertext.
func (s *Session) handleEncrypted(m wire.Message) ([]wire.Message, []Event, error) {
	if !s.Ready() {
		s.log.WithField("phase", s.phase.String()).Debug("Dropping ciphertext before handshake completion")
		return nil, nil, nil
	}

	plaintext, err := s.handshake.Decrypt(m.NoiseMsg)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
		s.log.WithField("error", err.Error()).Warn("Transport frame failed to decrypt")
		return nil, []Event{{Type: EventDecryptFailure, Err: wrapped}}, nil
	}

	return nil, []Event{{Type: EventPayload, Payload: plaintext}}, nil
}

// SendPayload encrypts one outbound application payload and wraps it as an
// extension frame. Valid only in a ready phase.
func (s *Session) SendPayload(payload []byte) (wire.Message, error) {
	if s.phase == PhaseAborted {
		return wire.Message{}, ErrSessionAborted
	}
	if !s.Ready() {
		return wire.Message{}, ErrNotReady
	}

	ciphertext, err := s.handshake.Encrypt(payload)
	if err != nil {
		return wire.Message{}, fmt.Errorf("payload encryption failed: %w", err)
	}
	return wire.Encrypted(ciphertext), nil
}

// Abort forces the session into its terminal aborted state and destroys the
// Noise key material. Used by the binding layer for connection teardown and
// handshake deadline expiry. Idempotent.
func (s *Session) Abort(cause error) []Event {
	if s.phase == PhaseAborted {
		return nil
	}
	return s.abort(cause)
}

// Close releases the session's cryptographic material. Unlike Abort it is
// the orderly path: a ready session simply stops, an unfinished one aborts.
func (s *Session) Close() {
	if s.phase == PhaseAborted {
		return
	}
	if !s.Ready() {
		s.abort(ErrSessionAborted)
		return
	}
	s.handshake.Destroy()
	s.phase = PhaseAborted
}

// abort is the single path into PhaseAborted: destroy key material first,
// then record the cause. No message is sent to the remote; it must time out
// on its own.
func (s *Session) abort(cause error) []Event {
	s.handshake.Destroy()
	s.phase = PhaseAborted
	s.abortCause = cause

	s.log.WithFields(logrus.Fields{
		"error": cause.Error(),
	}).Warn("Session aborted, key material destroyed")

	return []Event{{Type: EventAborted, Err: cause}}
}

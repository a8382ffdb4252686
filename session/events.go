package session

// EventType classifies a notification emitted by a transition.
type EventType uint8

const (
	// EventPing signals a liveness no-op from the peer.
	EventPing EventType = iota
	// EventReady signals the session reached its terminal-success phase
	// and application payloads may now flow.
	EventReady
	// EventPayload carries a decrypted application payload.
	EventPayload
	// EventDecryptFailure reports a frame that failed to authenticate.
	// The session stays usable; callers may escalate repeated failures.
	EventDecryptFailure
	// EventAborted signals the session entered its terminal aborted state
	// and key material was destroyed.
	EventAborted
)

func (t EventType) String() string {
	switch t {
	case EventPing:
		return "ping"
	case EventReady:
		return "ready"
	case EventPayload:
		return "payload"
	case EventDecryptFailure:
		return "decrypt_failure"
	case EventAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Event is a notification produced by a state transition. Transitions return
// events instead of firing callbacks so the state machine stays pure and the
// binding layer decides how to dispatch.
type Event struct {
	Type    EventType
	Payload []byte // set for EventPayload
	Err     error  // set for EventDecryptFailure and EventAborted
}

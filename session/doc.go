// Package session implements the per-connection handshake state machine and
// the secure session layer that follows it.
//
// A Session sequences two things, in order: proof of seed possession via the
// symmetric challenge exchange, then a 3-message Noise XX handshake that
// yields the transport keys. Exactly one path through the phases is valid
// per role; any deviation, challenge mismatch, or cryptographic failure
// drops the session into the absorbing Aborted phase and destroys its key
// material. No abort notification is sent to the peer.
//
// Transitions are pure with respect to I/O: each returns the outbound
// messages to send and the events to dispatch, and the binding layer does
// the sending. The protocol is deliberately asymmetric at the finish line:
// the initiator is ready the moment it produces message C, the responder
// only once it has processed C.
package session

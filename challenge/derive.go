package challenge

import (
	"bytes"
	"errors"

	"golang.org/x/crypto/blake2b"
)

// Size is the length in bytes of a derived challenge digest.
const Size = blake2b.Size256

// separator keeps seed and identifier boundaries unambiguous inside the
// digest input. Both peers must use the identical construction or the
// challenge exchange always fails.
var separator = []byte{0x1f}

// topicNamespace domain-separates rendezvous topics from challenges so a
// topic published to the swarm never equals either peer's challenge value.
var topicNamespace = []byte("swarmauth/rendezvous/v1")

var (
	// ErrEmptySeed indicates derivation was attempted without a seed.
	ErrEmptySeed = errors.New("challenge: seed must not be empty")
	// ErrEmptyIdentifier indicates a missing local or remote peer identifier.
	ErrEmptyIdentifier = errors.New("challenge: peer identifiers must not be empty")
)

// Pair holds the two order-dependent challenge values for one connection.
// Local is the value this side expects to receive; Remote is the value this
// side sends. The responder's Local equals the initiator's Remote and vice
// versa, which is exactly what the challenge exchange verifies.
type Pair struct {
	Local  [Size]byte
	Remote [Size]byte
}

// Derive computes the challenge pair for a connection from the shared seed
// and the two peer identifiers. It is pure and deterministic:
//
//	Local  = BLAKE2b-256(seed ‖ sep ‖ localID ‖ sep ‖ remoteID)
//	Remote = BLAKE2b-256(seed ‖ sep ‖ remoteID ‖ sep ‖ localID)
//
// The values are not secret. They bind authentication to possession of the
// seed and prevent cross-swarm confusion; confidentiality comes later from
// the Noise handshake.
func Derive(seed string, localID, remoteID []byte) (Pair, error) {
	if seed == "" {
		return Pair{}, ErrEmptySeed
	}
	if len(localID) == 0 || len(remoteID) == 0 {
		return Pair{}, ErrEmptyIdentifier
	}

	return Pair{
		Local:  digest(seed, localID, remoteID),
		Remote: digest(seed, remoteID, localID),
	}, nil
}

// Verify reports whether received matches the challenge this side computed
// as Local. Comparison is exact byte equality with no tolerance window.
func (p Pair) Verify(received []byte) bool {
	return bytes.Equal(received, p.Local[:])
}

// DeriveTopic maps a human-chosen seed to the rendezvous identifier used to
// join the corresponding swarm. Peers sharing a seed land in the same swarm
// without ever publishing the seed itself.
func DeriveTopic(seed string) ([Size]byte, error) {
	if seed == "" {
		return [Size]byte{}, ErrEmptySeed
	}

	h, _ := blake2b.New256(nil)
	h.Write(topicNamespace)
	h.Write(separator)
	h.Write([]byte(seed))

	var topic [Size]byte
	copy(topic[:], h.Sum(nil))
	return topic, nil
}

func digest(seed string, first, second []byte) [Size]byte {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(seed))
	h.Write(separator)
	h.Write(first)
	h.Write(separator)
	h.Write(second)

	var out [Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

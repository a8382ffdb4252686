// Package challenge derives the symmetric anti-replay challenge values two
// peers exchange before any key exchange proceeds, plus the rendezvous topic
// used to find each other in the first place.
//
// Both values are keyless BLAKE2b-256 digests over the shared seed and the
// peers' connection identifiers. Neither is secret: a challenge proves the
// sender derived it from the same seed for this exact identifier pair, which
// stops replays from other swarms or other connections, and nothing more.
package challenge

// Package wire defines the flat command dictionaries exchanged on the
// extension channel and their bencode serialization.
//
// Every frame is one self-describing dictionary: handshake commands carry a
// "cmd" key, post-handshake ciphertext travels under "noise_msg". Bencoding
// keeps the encoding deterministic and order-preserving, so both peers
// produce byte-identical frames for identical content.
package wire

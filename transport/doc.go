// Package transport supplies the overlay connections the protocol rides on:
// the OverlayConn interface the binding layer consumes, a websocket-backed
// implementation for real networks, and an in-process pipe for tests.
//
// An overlay connection is a byte-oriented duplex channel plus the metadata
// the protocol needs before engaging: a unique per-connection identifier for
// each end and the remote's advertised capability set, exchanged as the
// first frame after connect.
package transport

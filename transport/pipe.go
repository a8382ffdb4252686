package transport

import (
	"context"
	"sync"
)

// PipeConn is an in-process OverlayConn, used in tests and examples to wire
// two sessions together without a network. Frames pass through buffered
// channels; Close tears both ends down.
type PipeConn struct {
	localID    []byte
	remoteID   []byte
	remoteCaps []string
	initiator  bool

	send chan []byte
	recv chan []byte

	closeOnce sync.Once
	done      chan struct{}
	peerDone  chan struct{}
}

// Pipe creates a connected pair of in-process overlay connections. The
// first conn is the initiating side. Each side advertises the given
// capability set to its peer.
func Pipe(idA, idB []byte, capsA, capsB []string) (*PipeConn, *PipeConn) {
	aToB := make(chan []byte, 16)
	bToA := make(chan []byte, 16)
	doneA := make(chan struct{})
	doneB := make(chan struct{})

	a := &PipeConn{
		localID:    idA,
		remoteID:   idB,
		remoteCaps: capsB,
		initiator:  true,
		send:       aToB,
		recv:       bToA,
		done:       doneA,
		peerDone:   doneB,
	}
	b := &PipeConn{
		localID:    idB,
		remoteID:   idA,
		remoteCaps: capsA,
		initiator:  false,
		send:       bToA,
		recv:       aToB,
		done:       doneB,
		peerDone:   doneA,
	}
	return a, b
}

func (p *PipeConn) LocalID() []byte              { return p.localID }
func (p *PipeConn) RemoteID() []byte             { return p.remoteID }
func (p *PipeConn) RemoteCapabilities() []string { return p.remoteCaps }
func (p *PipeConn) Initiator() bool              { return p.initiator }

func (p *PipeConn) Send(ctx context.Context, frame []byte) error {
	buf := make([]byte, len(frame))
	copy(buf, frame)

	select {
	case p.send <- buf:
		return nil
	case <-p.done:
		return ErrConnClosed
	case <-p.peerDone:
		return ErrConnClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *PipeConn) Receive(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-p.recv:
		return frame, nil
	case <-p.done:
		return nil, ErrConnClosed
	case <-p.peerDone:
		return nil, ErrConnClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *PipeConn) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	return nil
}

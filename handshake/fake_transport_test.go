package handshake

import (
	"time"

	"github.com/GoldenBitsSoftware/authlib-linux/transport"
)

// pipeTransport is an in-memory transport.Transport backed by two
// RingQueues, used to drive both sides of a handshake within one
// process without a real socket.
type pipeTransport struct {
	in  *transport.RingQueue // what this side reads
	out *transport.RingQueue // what this side writes
	mtu int
}

func newPipe(mtu int) (client, server *pipeTransport) {
	a := transport.NewRingQueue(1 << 20)
	b := transport.NewRingQueue(1 << 20)
	client = &pipeTransport{in: a, out: b, mtu: mtu}
	server = &pipeTransport{in: b, out: a, mtu: mtu}
	return
}

func (p *pipeTransport) Send(data []byte) (int, error) {
	if len(data) > p.mtu {
		return 0, transport.ErrAgain
	}
	return p.out.Put(data), nil
}

func (p *pipeTransport) Recv(buf []byte, timeout time.Duration) (int, error) {
	return p.in.Read(buf, timeout)
}

func (p *pipeTransport) RecvPeek(buf []byte) (int, error) { return p.in.Peek(buf) }
func (p *pipeTransport) QueuedSendBytes() int              { return p.out.Len() }
func (p *pipeTransport) QueuedRecvBytes() int               { return p.in.Len() }
func (p *pipeTransport) QueuedRecvBytesWait(timeout time.Duration) int {
	return p.in.LenWait(timeout)
}
func (p *pipeTransport) MaxPayload() int            { return p.mtu }
func (p *pipeTransport) Event(evt transport.Event) {}

var _ transport.Transport = (*pipeTransport)(nil)

// truncatingTransport wraps a transport.Transport and truncates every
// Send to n bytes, modeling a corrupted/short datagram.
type truncatingTransport struct {
	transport.Transport
	n int
}

func (t *truncatingTransport) Send(data []byte) (int, error) {
	sent := data
	if len(sent) > t.n {
		sent = sent[:t.n]
	}
	// Report the full length as written: the truncation models bytes
	// lost in flight, which a real sender has no way to detect.
	if _, err := t.Transport.Send(sent); err != nil {
		return 0, err
	}
	return len(data), nil
}

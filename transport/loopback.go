package transport

import (
	"net"
	"sync"

	"github.com/GoldenBitsSoftware/authlib-linux/errs"
	"github.com/GoldenBitsSoftware/authlib-linux/log"
)

// LoopbackMTU is the maximum application payload the reference
// datagram carrier delivers atomically.
const LoopbackMTU = 1024

// Loopback is the reference datagram carrier used for testing: a thin
// UDP wrapper that reads complete datagrams off the wire and feeds
// them whole into a Handle's receive queue — no fragmentation or
// reassembly happens here, by design.
type Loopback struct {
	*Handle
	conn     *net.UDPConn
	sendAddr *net.UDPAddr
	done     chan struct{}
	closeOnce sync.Once
}

// NewLoopback binds a UDP socket on recvIP:recvPort and sends to
// sendIP:sendPort. Each datagram received is assumed to carry exactly
// one protocol message; fragmentation and reassembly above the
// transport are out of scope.
func NewLoopback(recvIP string, recvPort int, sendIP string, sendPort int) (*Loopback, error) {
	laddr := &net.UDPAddr{IP: net.ParseIP(recvIP), Port: recvPort}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, errs.PeerAuth.New(errs.Failed, "loopback: listen %s:%d: %v", recvIP, recvPort, err)
	}
	saddr := &net.UDPAddr{IP: net.ParseIP(sendIP), Port: sendPort}

	l := &Loopback{
		Handle:   NewHandle(LoopbackMTU, "loopback"),
		conn:     conn,
		sendAddr: saddr,
		done:     make(chan struct{}),
	}
	l.SetDirectSend(l.directSend)
	go l.receiveLoop()
	return l, nil
}

func (l *Loopback) directSend(data []byte) (int, error) {
	n, err := l.conn.WriteToUDP(data, l.sendAddr)
	if err != nil {
		return n, errs.PeerAuth.New(errs.Failed, "loopback: write: %v", err)
	}
	return n, nil
}

// receiveLoop is the carrier-owned producer thread: it blocks in the
// underlying recvfrom-equivalent and enqueues whatever arrives.
func (l *Loopback) receiveLoop() {
	buf := make([]byte, LoopbackMTU)
	for {
		n, _, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-l.done:
				return
			default:
				log.Debug("loopback carrier read error", "err", err)
				l.Event(EventDisconnect)
				return
			}
		}
		if accepted := l.PutRecv(buf[:n]); accepted < n {
			log.Warn("loopback receive queue overflow, dropped newest bytes", "dropped", n-accepted)
		}
	}
}

// LocalAddr returns the bound UDP address.
func (l *Loopback) LocalAddr() net.Addr { return l.conn.LocalAddr() }

// Close shuts down the socket and stops the receiver goroutine. It is
// safe to call more than once; only the first call has any effect.
func (l *Loopback) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		err = l.conn.Close()
	})
	return err
}

var _ Transport = (*Loopback)(nil)

package transport

import (
	"net"
	"testing"
	"time"
)

// reservePort finds a free UDP port on 127.0.0.1 by binding then
// releasing it immediately. There is a small reuse window, acceptable
// for this reference-carrier test.
func reservePort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatal(err)
	}
	port := conn.LocalAddr().(*net.UDPAddr).Port
	conn.Close()
	return port
}

func TestLoopbackSendRecv(t *testing.T) {
	portA := reservePort(t)
	portB := reservePort(t)

	a, err := NewLoopback("127.0.0.1", portA, "127.0.0.1", portB)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	b, err := NewLoopback("127.0.0.1", portB, "127.0.0.1", portA)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	msg := []byte("35-byte-or-so client challenge!!!!!")
	n, err := a.Send(msg)
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if n != len(msg) {
		t.Fatalf("expected %d bytes written, got %d", len(msg), n)
	}

	buf := make([]byte, LoopbackMTU)
	got, err := b.Recv(buf, time.Second)
	if err != nil {
		t.Fatalf("recv failed: %v", err)
	}
	if string(buf[:got]) != string(msg) {
		t.Fatalf("expected %q, got %q", msg, buf[:got])
	}
}

func TestLoopbackRecvTimesOutWhenIdle(t *testing.T) {
	portA := reservePort(t)
	portB := reservePort(t)
	a, err := NewLoopback("127.0.0.1", portA, "127.0.0.1", portB)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	buf := make([]byte, LoopbackMTU)
	_, err = a.Recv(buf, 50*time.Millisecond)
	if err != ErrAgain {
		t.Fatalf("expected ErrAgain, got %v", err)
	}
}

func TestLoopbackOversizeSendRejected(t *testing.T) {
	portA := reservePort(t)
	a, err := NewLoopback("127.0.0.1", portA, "127.0.0.1", portA)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if _, err := a.Send(make([]byte, LoopbackMTU+1)); err == nil {
		t.Fatal("expected oversize send to be rejected")
	}
}

func TestLoopbackMaxPayload(t *testing.T) {
	portA := reservePort(t)
	a, err := NewLoopback("127.0.0.1", portA, "127.0.0.1", portA)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if a.MaxPayload() != LoopbackMTU {
		t.Fatalf("expected MTU %d, got %d", LoopbackMTU, a.MaxPayload())
	}
}

package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/GoldenBitsSoftware/authlib-linux/crypto"
	"github.com/GoldenBitsSoftware/authlib-linux/handshake"
	"github.com/GoldenBitsSoftware/authlib-linux/transport"
)

// pipeTransport mirrors the in-memory transport used by the
// handshake package's own tests, so session tests can drive a full
// client/server pair without a real socket.
type pipeTransport struct {
	in  *transport.RingQueue
	out *transport.RingQueue
	mtu int
}

func newPipe(mtu int) (client, server *pipeTransport) {
	a := transport.NewRingQueue(1 << 20)
	b := transport.NewRingQueue(1 << 20)
	return &pipeTransport{in: a, out: b, mtu: mtu}, &pipeTransport{in: b, out: a, mtu: mtu}
}

func (p *pipeTransport) Send(data []byte) (int, error) { return p.out.Put(data), nil }
func (p *pipeTransport) Recv(buf []byte, timeout time.Duration) (int, error) {
	return p.in.Read(buf, timeout)
}
func (p *pipeTransport) RecvPeek(buf []byte) (int, error) { return p.in.Peek(buf) }
func (p *pipeTransport) QueuedSendBytes() int              { return p.out.Len() }
func (p *pipeTransport) QueuedRecvBytes() int              { return p.in.Len() }
func (p *pipeTransport) QueuedRecvBytesWait(timeout time.Duration) int {
	return p.in.LenWait(timeout)
}
func (p *pipeTransport) MaxPayload() int            { return p.mtu }
func (p *pipeTransport) Event(evt transport.Event) {}

var _ transport.Transport = (*pipeTransport)(nil)

type recorder struct {
	mu       sync.Mutex
	statuses []handshake.Status
}

func (r *recorder) callback(_ *Session, _ int, status handshake.Status, _ any) {
	r.mu.Lock()
	r.statuses = append(r.statuses, status)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []handshake.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]handshake.Status{}, r.statuses...)
}

func TestInitRejectsMissingCallback(t *testing.T) {
	var s Session
	err := s.Init(1, FlagClient|FlagChallengeMethod, &pipeTransport{mtu: 128}, nil, nil, nil)
	require.Error(t, err)
}

func TestInitRejectsAmbiguousRoleFlags(t *testing.T) {
	var s Session
	cb := func(*Session, int, handshake.Status, any) {}
	err := s.Init(1, FlagClient|FlagServer|FlagChallengeMethod, &pipeTransport{mtu: 128}, cb, nil, nil)
	require.Error(t, err)
}

func TestInitRejectsAmbiguousMethodFlags(t *testing.T) {
	var s Session
	cb := func(*Session, int, handshake.Status, any) {}
	err := s.Init(1, FlagClient, &pipeTransport{mtu: 128}, cb, nil, nil)
	require.Error(t, err)
}

func TestHandshakeSucceedsThroughSessionFacade(t *testing.T) {
	clientConn, serverConn := newPipe(128)

	var clientS, serverS Session
	var clientRec, serverRec recorder

	require.NoError(t, clientS.Init(1, FlagClient|FlagChallengeMethod, clientConn, clientRec.callback, nil, nil))
	require.NoError(t, serverS.Init(2, FlagServer|FlagChallengeMethod, serverConn, serverRec.callback, nil, nil))

	require.NoError(t, clientS.Start())
	require.NoError(t, serverS.Start())

	<-clientS.Done()
	<-serverS.Done()

	require.Equal(t, handshake.StatusSuccessful, clientS.GetStatus())
	require.Equal(t, handshake.StatusSuccessful, serverS.GetStatus())
	require.Equal(t, []handshake.Status{handshake.StatusStarted, handshake.StatusSuccessful}, clientRec.snapshot())
	require.Equal(t, []handshake.Status{handshake.StatusStarted, handshake.StatusSuccessful}, serverRec.snapshot())
}

func TestHandshakeFailsOnKeyMismatchThroughSessionFacade(t *testing.T) {
	clientConn, serverConn := newPipe(128)

	wrongKey := crypto.DefaultKey
	wrongKey[0] ^= 0xFF

	var clientS, serverS Session
	var clientRec, serverRec recorder

	clientParams := &Params{Tag: ParamChalResp, Key: wrongKey}
	require.NoError(t, clientS.Init(1, FlagClient|FlagChallengeMethod, clientConn, clientRec.callback, nil, clientParams))
	require.NoError(t, serverS.Init(2, FlagServer|FlagChallengeMethod, serverConn, serverRec.callback, nil, nil))

	require.NoError(t, clientS.Start())
	require.NoError(t, serverS.Start())

	<-clientS.Done()
	<-serverS.Done()

	require.Equal(t, handshake.StatusAuthenticationFailed, clientS.GetStatus())
	require.Equal(t, handshake.StatusAuthenticationFailed, serverS.GetStatus())
}

func TestCancelBeforePeerConnectsYieldsCanceled(t *testing.T) {
	_, serverConn := newPipe(128)

	var serverS Session
	var serverRec recorder
	require.NoError(t, serverS.Init(1, FlagServer|FlagChallengeMethod, serverConn, serverRec.callback, nil, nil))
	require.NoError(t, serverS.Start())

	time.Sleep(50 * time.Millisecond)
	serverS.Cancel()

	select {
	case <-serverS.Done():
	case <-time.After(handshake.RxTimeout + 2*time.Second):
		t.Fatal("session did not terminate after cancel")
	}
	require.Equal(t, handshake.StatusCanceled, serverS.GetStatus())
}

func TestStatusNeverRegressesPastTerminal(t *testing.T) {
	_, serverConn := newPipe(128)
	var serverS Session
	var serverRec recorder
	require.NoError(t, serverS.Init(1, FlagServer|FlagChallengeMethod, serverConn, serverRec.callback, nil, nil))

	serverS.setStatus(handshake.StatusFailed)
	serverS.setStatus(handshake.StatusSuccessful) // must be a no-op: already terminal
	require.Equal(t, handshake.StatusFailed, serverS.GetStatus())
}

func TestDeinitClosesUnderlyingCloser(t *testing.T) {
	var closed bool
	tr := &closingTransport{pipeTransport: pipeTransport{mtu: 128}, onClose: func() { closed = true }}

	var s Session
	cb := func(*Session, int, handshake.Status, any) {}
	require.NoError(t, s.Init(1, FlagClient|FlagChallengeMethod, tr, cb, nil, nil))
	require.NoError(t, s.Deinit())
	require.True(t, closed)
}

type closingTransport struct {
	pipeTransport
	onClose func()
}

func (c *closingTransport) Close() error {
	c.onClose()
	return nil
}

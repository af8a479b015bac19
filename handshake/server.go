package handshake

import (
	"github.com/GoldenBitsSoftware/authlib-linux/crypto"
	"github.com/GoldenBitsSoftware/authlib-linux/wire"
)

// RunServer drives the responder side of the handshake.
func (m *Machine) RunServer() Status {
	m.start()
	m.publish(StatusStarted)

	nonce, err := m.nonce()
	if err != nil {
		return m.publish(StatusFailed)
	}

	// AWAIT_CLIENT_CHAL
	chalBuf := make([]byte, wire.ClientChallengeLen)
	if ok, st := m.readExactOrStatus(chalBuf, StatusFailed); !ok {
		return m.publish(st)
	}
	challenge, err := wire.DecodeClientChallenge(chalBuf)
	if err != nil {
		return m.publish(StatusFailed)
	}

	respHash, err := crypto.Hash(challenge.Nonce[:], m.Key)
	if err != nil {
		return m.publish(StatusFailed)
	}
	var serverResp wire.ServerResponse
	copy(serverResp.Hash[:], respHash)
	copy(serverResp.Nonce[:], nonce)
	if err := m.send(wire.EncodeServerResponse(&serverResp)); err != nil {
		return m.publish(StatusFailed)
	}

	// AWAIT_CLIENT_RESP: read the 3-byte header first to distinguish a
	// ClientResponse from a client-initiated Result rejection.
	hdrBuf := make([]byte, wire.HeaderLen)
	if ok, st := m.readExactOrStatus(hdrBuf, StatusFailed); !ok {
		return m.publish(st)
	}
	msgID, err := wire.PeekMsgID(hdrBuf)
	if err != nil {
		return m.publish(StatusFailed)
	}

	switch msgID {
	case wire.MsgResult:
		payload := make([]byte, wire.ResultLen-wire.HeaderLen)
		if ok, st := m.readExactOrStatus(payload, StatusFailed); !ok {
			return m.publish(st)
		}
		// The client is signalling it rejected us; nothing more to send.
		return m.publish(StatusAuthenticationFailed)

	case wire.MsgClientResponse:
		payload := make([]byte, wire.ClientResponseLen-wire.HeaderLen)
		if ok, st := m.readExactOrStatus(payload, StatusFailed); !ok {
			return m.publish(st)
		}
		expected, err := crypto.Hash(nonce, m.Key)
		if err != nil {
			return m.publish(StatusFailed)
		}
		var code uint8 = 1
		if crypto.Equal(expected, payload) {
			code = 0
		}
		if err := m.send(wire.EncodeResult(&wire.Result{Code: code})); err != nil {
			return m.publish(StatusFailed)
		}
		if code == 0 {
			return m.publish(StatusSuccessful)
		}
		return m.publish(StatusAuthenticationFailed)

	default:
		// PeekMsgID already rejects anything outside {1..4}; reaching
		// here means a structurally valid but unexpected message id
		// (e.g. a stray ClientChallenge retransmit).
		return m.publish(StatusFailed)
	}
}

package handshake

import (
	"github.com/GoldenBitsSoftware/authlib-linux/crypto"
	"github.com/GoldenBitsSoftware/authlib-linux/wire"
)

// RunClient drives the initiator side of the handshake. It returns
// the terminal status; every intermediate status (currently just
// STARTED) has already been published by the time RunClient returns.
func (m *Machine) RunClient() Status {
	m.start()
	m.publish(StatusStarted)

	nonce, err := m.nonce()
	if err != nil {
		return m.publish(StatusFailed)
	}
	var challenge wire.ClientChallenge
	copy(challenge.Nonce[:], nonce)
	if err := m.send(wire.EncodeClientChallenge(&challenge)); err != nil {
		return m.publish(StatusFailed)
	}

	// AWAIT_SERVER_RESP
	respBuf := make([]byte, wire.ServerResponseLen)
	if ok, st := m.readExactOrStatus(respBuf, StatusFailed); !ok {
		return m.publish(st)
	}
	serverResp, err := wire.DecodeServerResponse(respBuf)
	if err != nil {
		return m.publish(StatusFailed)
	}

	expected, err := crypto.Hash(nonce, m.Key)
	if err != nil {
		return m.publish(StatusFailed)
	}
	if !crypto.Equal(expected, serverResp.Hash[:]) {
		// Best-effort: tell the peer we rejected it. Its outcome does
		// not change ours.
		m.sendBestEffort(wire.EncodeResult(&wire.Result{Code: 1}))
		return m.publish(StatusAuthenticationFailed)
	}

	responseHash, err := crypto.Hash(serverResp.Nonce[:], m.Key)
	if err != nil {
		return m.publish(StatusFailed)
	}
	var clientResp wire.ClientResponse
	copy(clientResp.Hash[:], responseHash)
	if err := m.send(wire.EncodeClientResponse(&clientResp)); err != nil {
		return m.publish(StatusFailed)
	}

	// AWAIT_RESULT
	resultBuf := make([]byte, wire.ResultLen)
	if ok, st := m.readExactOrStatus(resultBuf, StatusAuthenticationFailed); !ok {
		return m.publish(st)
	}
	result, err := wire.DecodeResult(resultBuf)
	if err != nil {
		return m.publish(StatusAuthenticationFailed)
	}
	if result.Code == 0 {
		return m.publish(StatusSuccessful)
	}
	return m.publish(StatusAuthenticationFailed)
}

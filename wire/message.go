// Copyright 2024 The authlib-linux Authors
// This file is part of authlib-linux.
//
// authlib-linux is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package wire packs and unpacks the four fixed-layout messages of
// the challenge-response handshake. All multi-byte fields are
// little-endian, so two hosts of differing native byte order
// interoperate over the same wire format.
package wire

import (
	"encoding/binary"

	"github.com/GoldenBitsSoftware/authlib-linux/crypto"
	"github.com/GoldenBitsSoftware/authlib-linux/errs"
)

// MsgID identifies one of the four protocol messages.
type MsgID uint8

const (
	MsgClientChallenge MsgID = 0x01
	MsgServerResponse  MsgID = 0x02
	MsgClientResponse  MsgID = 0x03
	MsgResult          MsgID = 0x04
)

func (id MsgID) String() string {
	switch id {
	case MsgClientChallenge:
		return "ClientChallenge"
	case MsgServerResponse:
		return "ServerResponse"
	case MsgClientResponse:
		return "ClientResponse"
	case MsgResult:
		return "Result"
	default:
		return "Unknown"
	}
}

// SOH is the constant start-of-header value every message begins with.
const SOH uint16 = 0x65A2

// HeaderLen is the size, in bytes, of the common header.
const HeaderLen = 3

// Wire sizes of the four messages, including the header.
const (
	ClientChallengeLen = HeaderLen + crypto.NonceSize
	ServerResponseLen  = HeaderLen + crypto.DigestSize + crypto.NonceSize
	ClientResponseLen  = HeaderLen + crypto.DigestSize
	ResultLen          = HeaderLen + 1
)

// ClientChallenge is msg_id 0x01: a fresh client nonce.
type ClientChallenge struct {
	Nonce [crypto.NonceSize]byte
}

// ServerResponse is msg_id 0x02: hash(client nonce, key) plus a fresh
// server nonce.
type ServerResponse struct {
	Hash  [crypto.DigestSize]byte
	Nonce [crypto.NonceSize]byte
}

// ClientResponse is msg_id 0x03: hash(server nonce, key).
type ClientResponse struct {
	Hash [crypto.DigestSize]byte
}

// Result is msg_id 0x04: 0 for success, nonzero for failure.
type Result struct {
	Code uint8
}

func putHeader(b []byte, id MsgID) {
	binary.LittleEndian.PutUint16(b[0:2], SOH)
	b[2] = byte(id)
}

// peekHeader validates the common header without allocating and
// returns a non-nil error if the header is short, the start-of-header
// is wrong, the msg_id is unknown, or (when want is nonzero) the msg_id
// is not want. It is used both by full decoders and, through
// PeekMsgID, by the handshake's header-then-body read path (server
// AWAIT_CLIENT_RESP).
func peekHeader(b []byte, want MsgID) error {
	if len(b) < HeaderLen {
		return errs.PeerAuth.New(errs.Failed, "short header: %d bytes", len(b))
	}
	soh := binary.LittleEndian.Uint16(b[0:2])
	if soh != SOH {
		return errs.PeerAuth.New(errs.Failed, "bad start-of-header: %#x", soh)
	}
	id := MsgID(b[2])
	if id < MsgClientChallenge || id > MsgResult {
		return errs.PeerAuth.New(errs.Failed, "unknown msg_id: %#x", byte(id))
	}
	if want != 0 && id != want {
		return errs.PeerAuth.New(errs.Failed, "expected msg_id %s, got %s", want, id)
	}
	return nil
}

// PeekMsgID validates only the header and reports which message it
// introduces, without decoding the payload. Used by the server to
// decide, after reading just HeaderLen bytes, whether the client sent
// a ClientResponse or gave up with a Result.
func PeekMsgID(b []byte) (MsgID, error) {
	if err := peekHeader(b, 0); err != nil {
		return 0, err
	}
	return MsgID(b[2]), nil
}

// EncodeClientChallenge serializes a ClientChallenge.
func EncodeClientChallenge(m *ClientChallenge) []byte {
	b := make([]byte, ClientChallengeLen)
	putHeader(b, MsgClientChallenge)
	copy(b[HeaderLen:], m.Nonce[:])
	return b
}

// DecodeClientChallenge validates and parses a ClientChallenge.
func DecodeClientChallenge(b []byte) (*ClientChallenge, error) {
	if len(b) != ClientChallengeLen {
		return nil, errs.PeerAuth.New(errs.Failed, "ClientChallenge: expected %d bytes, got %d", ClientChallengeLen, len(b))
	}
	if err := peekHeader(b, MsgClientChallenge); err != nil {
		return nil, err
	}
	m := &ClientChallenge{}
	copy(m.Nonce[:], b[HeaderLen:])
	return m, nil
}

// EncodeServerResponse serializes a ServerResponse.
func EncodeServerResponse(m *ServerResponse) []byte {
	b := make([]byte, ServerResponseLen)
	putHeader(b, MsgServerResponse)
	n := HeaderLen
	n += copy(b[n:], m.Hash[:])
	copy(b[n:], m.Nonce[:])
	return b
}

// DecodeServerResponse validates and parses a ServerResponse.
func DecodeServerResponse(b []byte) (*ServerResponse, error) {
	if len(b) != ServerResponseLen {
		return nil, errs.PeerAuth.New(errs.Failed, "ServerResponse: expected %d bytes, got %d", ServerResponseLen, len(b))
	}
	if err := peekHeader(b, MsgServerResponse); err != nil {
		return nil, err
	}
	m := &ServerResponse{}
	n := HeaderLen
	n += copy(m.Hash[:], b[n:n+crypto.DigestSize])
	copy(m.Nonce[:], b[n:n+crypto.NonceSize])
	return m, nil
}

// EncodeClientResponse serializes a ClientResponse.
func EncodeClientResponse(m *ClientResponse) []byte {
	b := make([]byte, ClientResponseLen)
	putHeader(b, MsgClientResponse)
	copy(b[HeaderLen:], m.Hash[:])
	return b
}

// DecodeClientResponse validates and parses a ClientResponse.
func DecodeClientResponse(b []byte) (*ClientResponse, error) {
	if len(b) != ClientResponseLen {
		return nil, errs.PeerAuth.New(errs.Failed, "ClientResponse: expected %d bytes, got %d", ClientResponseLen, len(b))
	}
	if err := peekHeader(b, MsgClientResponse); err != nil {
		return nil, err
	}
	m := &ClientResponse{}
	copy(m.Hash[:], b[HeaderLen:])
	return m, nil
}

// EncodeResult serializes a Result.
func EncodeResult(m *Result) []byte {
	b := make([]byte, ResultLen)
	putHeader(b, MsgResult)
	b[HeaderLen] = m.Code
	return b
}

// DecodeResult validates and parses a Result.
func DecodeResult(b []byte) (*Result, error) {
	if len(b) != ResultLen {
		return nil, errs.PeerAuth.New(errs.Failed, "Result: expected %d bytes, got %d", ResultLen, len(b))
	}
	if err := peekHeader(b, MsgResult); err != nil {
		return nil, err
	}
	return &Result{Code: b[HeaderLen]}, nil
}

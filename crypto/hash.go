// Copyright 2024 The authlib-linux Authors
// This file is part of authlib-linux.
//
// authlib-linux is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package crypto implements the two primitives the challenge-response
// handshake needs: a deterministic hash over a nonce and a shared
// key, and a source of unpredictable nonce bytes. It intentionally
// stays minimal — this module does no key agreement, no forward
// secrecy, and no identity beyond the one pre-shared secret.
package crypto

import (
	"crypto/sha256"
	"crypto/subtle"

	"github.com/GoldenBitsSoftware/authlib-linux/errs"
)

// NonceSize and KeySize are the fixed lengths of every nonce and
// shared key in the protocol.
const (
	NonceSize = 32
	KeySize   = 32
	DigestSize = sha256.Size
)

// DefaultKey is the compile-time fallback shared key. Callers SHOULD
// override it at session-init time; it exists so the reference
// carrier and demo CLI have something to authenticate against out of
// the box.
var DefaultKey = [KeySize]byte{
	0xBD, 0x84, 0x9B, 0x5D, 0x1E, 0x2F, 0x3C, 0x4D,
	0x5E, 0x6F, 0x70, 0x81, 0x92, 0xA3, 0xB4, 0xC5,
	0xD6, 0xE7, 0xF8, 0x09, 0x1A, 0x2B, 0x3C, 0x4D,
	0x5E, 0x6F, 0x70, 0x81, 0x92, 0xA3, 0xB4, 0xA8,
}

// Hash computes SHA-256 over nonce‖key. It returns an *errs.Error
// with code Crypto if either input is not
// exactly the expected length — the underlying hash.Hash write never
// fails for fixed-size inputs, so this is the only failure mode.
func Hash(nonce, key []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, errs.PeerAuth.New(errs.Crypto, "nonce must be %d bytes, got %d", NonceSize, len(nonce))
	}
	if len(key) != KeySize {
		return nil, errs.PeerAuth.New(errs.Crypto, "key must be %d bytes, got %d", KeySize, len(key))
	}
	h := sha256.New()
	h.Write(nonce)
	h.Write(key)
	return h.Sum(nil), nil
}

// Equal performs a constant-time comparison of two digests. A
// length-then-memcmp comparison here would leak timing information
// about how many leading bytes matched.
func Equal(a, b []byte) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare(a, b) == 1
}

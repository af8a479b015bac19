// Copyright 2024 The authlib-linux Authors
// This file is part of authlib-linux.
//
// authlib-linux is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package handshake drives the four-message challenge-response
// exchange for both the client and server roles. It knows nothing
// about concrete carriers — it talks only to a transport.Transport —
// and nothing about session lifecycle, flags, or pooling, which live
// one layer up in package session.
package handshake

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/GoldenBitsSoftware/authlib-linux/crypto"
	"github.com/GoldenBitsSoftware/authlib-linux/errs"
	"github.com/GoldenBitsSoftware/authlib-linux/log"
	"github.com/GoldenBitsSoftware/authlib-linux/transport"
	"github.com/GoldenBitsSoftware/authlib-linux/wire"
)

// Status is a terminal or non-terminal handshake state. A session's
// status only ever advances; it never regresses.
type Status int

const (
	StatusUnknown Status = iota
	StatusStarted
	StatusSuccessful
	StatusCanceled
	StatusFailed
	StatusAuthenticationFailed
)

func (s Status) String() string {
	switch s {
	case StatusStarted:
		return "STARTED"
	case StatusSuccessful:
		return "SUCCESSFUL"
	case StatusCanceled:
		return "CANCELED"
	case StatusFailed:
		return "FAILED"
	case StatusAuthenticationFailed:
		return "AUTHENTICATION_FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether s is one of the four terminal statuses:
// every session ends in exactly one of them.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccessful, StatusCanceled, StatusFailed, StatusAuthenticationFailed:
		return true
	default:
		return false
	}
}

// Role selects which side of the handshake a Machine drives.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

const (
	// RxTimeoutMsec is the per-read timeout used by the
	// read-to-completion loop.
	RxTimeoutMsec = 3000
	RxTimeout     = RxTimeoutMsec * time.Millisecond

	// DefaultDeadline bounds an entire handshake attempt so a peer that
	// never stops retransmitting cannot pin a worker forever.
	DefaultDeadline = 30 * time.Second
)

var (
	errCanceled        = errors.New("handshake: canceled")
	errDeadlineExceeded = errors.New("handshake: overall deadline exceeded")
)

// PublishFunc receives every status transition the Machine makes,
// invoked synchronously on the worker goroutine.
type PublishFunc func(Status)

// Machine runs one handshake attempt to completion. It is not safe
// for concurrent use: a fresh Machine is built per session and its
// state machine is never re-entered.
type Machine struct {
	T       transport.Transport
	Key     []byte
	Cancel  *atomic.Bool
	Publish PublishFunc
	// Deadline overrides DefaultDeadline when nonzero. Tests use this
	// to keep cancellation-liveness checks fast.
	Deadline time.Duration
	// NonceFn overrides the nonce source. Tests use this to pin a
	// nonce to a literal value for deterministic wire traces;
	// production code leaves it nil, which defaults to
	// crypto.NewNonce.
	NonceFn func() ([]byte, error)

	deadlineAt time.Time
}

func (m *Machine) nonce() ([]byte, error) {
	if m.NonceFn != nil {
		return m.NonceFn()
	}
	return crypto.NewNonce()
}

func (m *Machine) effectiveDeadline() time.Duration {
	if m.Deadline > 0 {
		return m.Deadline
	}
	return DefaultDeadline
}

func (m *Machine) start() {
	m.deadlineAt = time.Now().Add(m.effectiveDeadline())
}

func (m *Machine) publish(s Status) Status {
	if m.Publish != nil {
		m.Publish(s)
	}
	return s
}

// send writes data and treats a partial write as fatal for a single
// protocol message: there is no partial-message recovery in this
// protocol.
func (m *Machine) send(data []byte) error {
	n, err := m.T.Send(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return errs.PeerAuth.New(errs.Failed, "partial send: wrote %d of %d bytes", n, len(data))
	}
	return nil
}

// sendBestEffort is used for the one notification that is allowed to
// fail silently: the client telling the server it rejected the
// server's hash. Send errors are logged and swallowed.
func (m *Machine) sendBestEffort(data []byte) {
	if err := m.send(data); err != nil {
		log.Warn("best-effort send failed", "err", err)
	}
}

// readExact fills buf completely, looping on transport.ErrAgain and
// checking the cancel flag and overall deadline on every iteration.
func (m *Machine) readExact(buf []byte) error {
	filled := 0
	for filled < len(buf) {
		if m.Cancel.Load() {
			return errCanceled
		}
		if time.Now().After(m.deadlineAt) {
			return errDeadlineExceeded
		}
		n, err := m.T.Recv(buf[filled:], RxTimeout)
		if err != nil {
			if errors.Is(err, transport.ErrAgain) {
				continue
			}
			return err
		}
		filled += n
	}
	return nil
}

// readExactOrStatus runs readExact and maps its outcome onto a
// Status: cancellation always yields StatusCanceled, any other
// failure (hard I/O error or deadline) yields onFailure, which the
// caller chooses per step.
func (m *Machine) readExactOrStatus(buf []byte, onFailure Status) (ok bool, status Status) {
	err := m.readExact(buf)
	if err == nil {
		return true, StatusUnknown
	}
	if errors.Is(err, errCanceled) {
		return false, StatusCanceled
	}
	return false, onFailure
}

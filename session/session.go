// Copyright 2024 The authlib-linux Authors
// This file is part of authlib-linux.
//
// authlib-linux is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package session is the lifecycle facade around one handshake
// attempt: it owns a handshake.Machine, wires it to a
// transport.Transport, and exposes init / start / cancel /
// status-query / status-callback to the caller. It knows about flags,
// optional-param overrides, and which Method (challenge-response
// today, DTLS as a stub) drives the run — the Machine itself knows
// none of that.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/GoldenBitsSoftware/authlib-linux/crypto"
	"github.com/GoldenBitsSoftware/authlib-linux/errs"
	"github.com/GoldenBitsSoftware/authlib-linux/handshake"
	"github.com/GoldenBitsSoftware/authlib-linux/log"
	"github.com/GoldenBitsSoftware/authlib-linux/metrics"
	"github.com/GoldenBitsSoftware/authlib-linux/transport"
)

// Flags select the role and method at Init time.
type Flags uint8

const (
	FlagServer Flags = 1 << iota
	FlagClient
	FlagDTLSMethod
	FlagChallengeMethod
)

func (f Flags) has(bit Flags) bool { return f&bit != 0 }

// ParamTag selects which optional-param body is present.
type ParamTag int

const (
	ParamNone ParamTag = iota
	ParamDTLS
	ParamChalResp
)

// Params carries the optional, method-specific init parameters. Only
// Key is meaningful when Tag == ParamChalResp.
type Params struct {
	Tag ParamTag
	Key [crypto.KeySize]byte
}

// StatusCallback is invoked synchronously every time a session's
// status changes: on the worker goroutine for statuses the handshake
// publishes, and on the calling goroutine for the CANCELED that Cancel
// publishes.
type StatusCallback func(s *Session, instanceID int, status handshake.Status, ctx any)

// Method runs one handshake to completion for a Session. Modeling
// DTLS as a variant sharing this contract keeps the choice out of the
// Session type itself, instead of a preprocessor switch.
type Method interface {
	Run(s *Session) handshake.Status
}

// Session is one mutual-authentication attempt. Exactly one worker
// ever runs its state machine; the same Session must not be reused
// across handshakes.
type Session struct {
	instanceID int
	role       handshake.Role
	method     Method
	key        [crypto.KeySize]byte
	transport  transport.Transport

	cancel atomic.Bool

	mu       sync.Mutex
	status   handshake.Status
	statusCB StatusCallback
	statusCtx any

	correlationID uuid.UUID
	logger        *log.Logger

	workerDone chan struct{}
	started    atomic.Bool
	startedAt  time.Time
}

// Init validates flags and parameters and prepares s for Start. It
// must be called on a zero-value Session before any other method.
func (s *Session) Init(instanceID int, flags Flags, t transport.Transport, cb StatusCallback, cbCtx any, params *Params) error {
	if cb == nil {
		return errs.PeerAuth.New(errs.InvalidParam, "status callback is required")
	}
	if t == nil {
		return errs.PeerAuth.New(errs.InvalidParam, "transport is required")
	}
	isServer, isClient := flags.has(FlagServer), flags.has(FlagClient)
	if isServer == isClient {
		return errs.PeerAuth.New(errs.InvalidParam, "exactly one of SERVER/CLIENT must be set")
	}
	isDTLS, isChalResp := flags.has(FlagDTLSMethod), flags.has(FlagChallengeMethod)
	if isDTLS == isChalResp {
		return errs.PeerAuth.New(errs.InvalidParam, "exactly one of DTLS_METHOD/CHALLENGE_METHOD must be set")
	}
	if isDTLS && (params == nil || params.Tag != ParamDTLS) {
		return errs.PeerAuth.New(errs.InvalidParam, "DTLS_METHOD requires a DTLS_PARAM optional param")
	}

	*s = Session{
		instanceID:    instanceID,
		transport:     t,
		statusCB:      cb,
		statusCtx:     cbCtx,
		status:        handshake.StatusUnknown,
		correlationID: uuid.New(),
		workerDone:    make(chan struct{}),
	}
	s.logger = log.Root().With("instance", instanceID, "correlation_id", s.correlationID.String())

	if isServer {
		s.role = handshake.RoleServer
	} else {
		s.role = handshake.RoleClient
	}

	if params != nil && params.Tag == ParamChalResp {
		s.key = params.Key
	} else {
		s.key = crypto.DefaultKey
	}

	if isDTLS {
		s.method = dtlsMethod{}
	} else {
		s.method = challengeResponseMethod{}
	}
	return nil
}

// Start spawns the worker goroutine bound to the role-appropriate
// state-machine entry. It must be called at most once.
func (s *Session) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return errs.PeerAuth.New(errs.InvalidParam, "session already started")
	}
	s.startedAt = time.Now()
	go func() {
		defer close(s.workerDone)
		s.method.Run(s)
	}()
	return nil
}

// Cancel requests the worker stop at its next receive-loop
// iteration. It is safe to call from any goroutine, any number of
// times.
func (s *Session) Cancel() {
	s.cancel.Store(true)
	s.setStatus(handshake.StatusCanceled)
}

// Deinit releases session resources. It MUST only be called after the
// worker has terminated — callers should wait on Done() first.
func (s *Session) Deinit() error {
	if closer, ok := s.transport.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// Done returns a channel closed once the worker has returned.
func (s *Session) Done() <-chan struct{} { return s.workerDone }

// GetStatus reads the current status.
func (s *Session) GetStatus() handshake.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// StatusString renders a status the same way the callback sees it.
func StatusString(status handshake.Status) string { return status.String() }

// setStatus is the single place a status is written. It enforces
// monotonicity: once terminal, a status never regresses or re-fires,
// even if both the worker and a concurrent Cancel race to publish.
func (s *Session) setStatus(status handshake.Status) {
	s.mu.Lock()
	if s.status.Terminal() {
		s.mu.Unlock()
		return
	}
	s.status = status
	cb, ctx := s.statusCB, s.statusCtx
	s.mu.Unlock()

	if status.Terminal() {
		s.logger.Info("handshake reached terminal status", "status", status.String())
		metrics.Outcomes.WithLabelValues(roleLabel(s.role), status.String()).Inc()
		if !s.startedAt.IsZero() {
			metrics.HandshakeDuration.WithLabelValues(roleLabel(s.role)).Observe(time.Since(s.startedAt).Seconds())
		}
	} else {
		s.logger.Debug("handshake status changed", "status", status.String())
	}
	cb(s, s.instanceID, status, ctx)
}

func roleLabel(r handshake.Role) string {
	if r == handshake.RoleServer {
		return "server"
	}
	return "client"
}

type challengeResponseMethod struct{}

func (challengeResponseMethod) Run(s *Session) handshake.Status {
	m := &handshake.Machine{
		T:       s.transport,
		Key:     s.key[:],
		Cancel:  &s.cancel,
		Publish: s.setStatus,
	}
	if s.role == handshake.RoleServer {
		return m.RunServer()
	}
	return m.RunClient()
}

// dtlsMethod is the out-of-scope alternative authentication method.
// It is modeled here purely as an interface variant so a future
// implementation slots into the same Session facade; it does not
// perform a handshake.
type dtlsMethod struct{}

func (dtlsMethod) Run(s *Session) handshake.Status {
	s.logger.Error("DTLS method selected but not implemented")
	s.setStatus(handshake.StatusFailed)
	return handshake.StatusFailed
}

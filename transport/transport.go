// Copyright 2024 The authlib-linux Authors
// This file is part of authlib-linux.
//
// authlib-linux is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package transport decouples the handshake state machine from any
// concrete datagram carrier. A Handle exposes a bounded,
// byte-granular receive queue filled by a carrier-owned producer and
// drained by the handshake worker, plus a pluggable send path.
package transport

import (
	"sync"
	"time"

	"github.com/GoldenBitsSoftware/authlib-linux/errs"
	"github.com/GoldenBitsSoftware/authlib-linux/log"
)

// Event is a carrier lifecycle notification.
type Event int

const (
	EventNone Event = iota
	EventConnect
	EventDisconnect
	EventReconnect
	EventSerialBaudChange
)

func (e Event) String() string {
	switch e {
	case EventConnect:
		return "CONNECT"
	case EventDisconnect:
		return "DISCONNECT"
	case EventReconnect:
		return "RECONNECT"
	case EventSerialBaudChange:
		return "SERIAL_BAUDCHANGE"
	default:
		return "NONE"
	}
}

// SendFunc is a carrier's direct-send path: it writes data to the
// wire and reports how many bytes were actually written.
type SendFunc func(data []byte) (int, error)

// Transport is the capability surface the handshake state machine is
// allowed to touch. It never reaches into a concrete carrier.
type Transport interface {
	Send(data []byte) (int, error)
	Recv(buf []byte, timeout time.Duration) (int, error)
	RecvPeek(buf []byte) (int, error)
	QueuedSendBytes() int
	QueuedRecvBytes() int
	QueuedRecvBytesWait(timeout time.Duration) int
	MaxPayload() int
	Event(evt Event)
}

// Handle is the concrete, carrier-agnostic implementation of
// Transport. It owns a bounded receive
// queue (producer: carrier, consumer: handshake worker) and an
// optional buffered send queue used only when no direct-send function
// has been installed.
type Handle struct {
	mtu  int
	recv *RingQueue
	send *RingQueue

	mu         sync.Mutex
	directSend SendFunc
	onEvent    func(Event)
}

// NewHandle allocates a Handle with a receive queue capacity rounded
// up to a power of two covering at least one MTU. carrierLabel, if
// non-empty, is used to label bytes the receive queue drops under
// overflow in the recv_queue_dropped_bytes_total metric.
func NewHandle(mtu int, carrierLabel string) *Handle {
	recv := NewRingQueue(ringCapacityFor(mtu))
	if carrierLabel != "" {
		recv.SetCarrierLabel(carrierLabel)
	}
	return &Handle{
		mtu:  mtu,
		recv: recv,
		send: NewRingQueue(ringCapacityFor(mtu)),
	}
}

// SetDirectSend installs the carrier's direct-send path. Once set,
// Send writes through it instead of buffering into the outbound
// queue.
func (h *Handle) SetDirectSend(fn SendFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.directSend = fn
}

// SetEventHandler installs a carrier-specific lifecycle event sink.
func (h *Handle) SetEventHandler(fn func(Event)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEvent = fn
}

// Send writes data either through the installed direct-send function,
// or into the internal outbound queue for the carrier to drain.
func (h *Handle) Send(data []byte) (int, error) {
	if len(data) > h.mtu {
		return 0, errs.PeerAuth.New(errs.InvalidParam, "send of %d bytes exceeds MTU %d", len(data), h.mtu)
	}
	h.mu.Lock()
	fn := h.directSend
	h.mu.Unlock()
	if fn != nil {
		return fn(data)
	}
	return h.send.Put(data), nil
}

// Recv blocks up to timeout until at least one byte is queued, then
// returns as many queued bytes as fit in buf, which may be fewer than
// len(buf). On timeout it returns ErrAgain. A zero timeout performs a
// non-blocking check.
func (h *Handle) Recv(buf []byte, timeout time.Duration) (int, error) {
	return h.recv.Read(buf, timeout)
}

// RecvPeek copies queued bytes into buf without consuming them.
func (h *Handle) RecvPeek(buf []byte) (int, error) {
	return h.recv.Peek(buf)
}

// PutRecv is called by the carrier to enqueue bytes it read off the
// wire. Overflow policy is drop-newest: excess bytes are discarded and
// the count actually accepted is returned.
func (h *Handle) PutRecv(data []byte) int {
	return h.recv.Put(data)
}

// DrainSend is called by a carrier with no direct-send path installed
// to pull buffered outbound bytes for transmission.
func (h *Handle) DrainSend(buf []byte) int {
	n, _ := h.send.Read(buf, 0)
	return n
}

func (h *Handle) QueuedSendBytes() int { return h.send.Len() }
func (h *Handle) QueuedRecvBytes() int { return h.recv.Len() }

func (h *Handle) QueuedRecvBytesWait(timeout time.Duration) int {
	return h.recv.LenWait(timeout)
}

func (h *Handle) MaxPayload() int { return h.mtu }

// Event delivers a lifecycle notification to the installed handler,
// if any. Transport events are best-effort and never fail the
// handshake on their own.
func (h *Handle) Event(evt Event) {
	h.mu.Lock()
	fn := h.onEvent
	h.mu.Unlock()
	if fn != nil {
		fn(evt)
	} else {
		log.Debug("transport event with no handler installed", "event", evt)
	}
}

var _ Transport = (*Handle)(nil)

func ringCapacityFor(mtu int) int {
	cap := 1024
	for cap < mtu {
		cap <<= 1
	}
	return cap
}

// Copyright 2024 The authlib-linux Authors
// This file is part of authlib-linux.
//
// authlib-linux is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package errs provides a small per-package error registry: a numeric
// code, a human message, and a severity, modeled after the error
// taxonomy every component of a handshake needs to report against.
package errs

import "fmt"

// Severity classifies whether an error is fatal to the caller's
// current operation.
type Severity int

const (
	// Info is a non-fatal, informational condition.
	Info Severity = iota
	// Warn is a recoverable condition the caller may retry.
	Warn
	// Fatal terminates the operation that raised it.
	Fatal
)

// Code is a package-scoped numeric error identifier.
type Code int

const (
	Success Code = iota
	InvalidParam
	NoResource
	Crypto
	Canceled
	Failed
	AuthenticationFailed
)

var codeNames = map[Code]string{
	Success:              "SUCCESS",
	InvalidParam:         "INVALID_PARAM",
	NoResource:           "NO_RESOURCE",
	Crypto:               "CRYPTO",
	Canceled:             "CANCELED",
	Failed:               "FAILED",
	AuthenticationFailed: "AUTHENTICATION_FAILED",
}

// String returns the taxonomy name of the code, e.g. "FAILED".
func (c Code) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return fmt.Sprintf("CODE(%d)", int(c))
}

// Registry maps the codes of one package to messages and severities.
type Registry struct {
	Package string
	Reasons map[Code]string
	Level   func(Code) Severity
}

// Error is a concrete error minted from a Registry.
type Error struct {
	Package  string
	Code     Code
	Severity Severity
	Detail   string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("[%s] %s", e.Package, e.Code)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Package, e.Code, e.Detail)
}

// Fatal reports whether the error terminates the caller's operation.
func (e *Error) Fatal() bool {
	return e.Severity == Fatal
}

// New mints an *Error for code, formatting detail with args the same
// way fmt.Sprintf does. If args is empty, format is used verbatim as
// the detail (or reasons[code] if format is also empty).
func (r *Registry) New(code Code, format string, args ...any) *Error {
	detail := format
	if len(args) > 0 {
		detail = fmt.Sprintf(format, args...)
	} else if detail == "" {
		detail = r.Reasons[code]
	}
	sev := Warn
	if r.Level != nil {
		sev = r.Level(code)
	}
	return &Error{
		Package:  r.Package,
		Code:     code,
		Severity: sev,
		Detail:   detail,
	}
}

// PeerAuth is the shared registry for the handshake error taxonomy:
// every package in this module that raises a taxonomy error does so
// through PeerAuth.New.
var PeerAuth = &Registry{
	Package: "PEERAUTH",
	Reasons: map[Code]string{
		Success:              "handshake completed with both sides verified",
		InvalidParam:         "invalid parameter",
		NoResource:           "instance pool exhausted",
		Crypto:               "cryptographic primitive failed",
		Canceled:             "handshake canceled by caller",
		Failed:               "handshake aborted",
		AuthenticationFailed: "peer failed to authenticate",
	},
	Level: func(c Code) Severity {
		switch c {
		case Success:
			return Info
		case Canceled:
			return Warn
		default:
			return Fatal
		}
	},
}

// CodeOf extracts the Code carried by err, if err (or something it
// wraps via errors.Unwrap) is an *Error minted by this package.
func CodeOf(err error) (Code, bool) {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code, true
		}
		u, ok := err.(unwrapper)
		if !ok {
			return 0, false
		}
		err = u.Unwrap()
	}
	return 0, false
}

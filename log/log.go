// Copyright 2024 The authlib-linux Authors
// This file is part of authlib-linux.
//
// authlib-linux is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package log is a thin, leveled wrapper around log/slog. It exists
// so every package in this module logs through one small surface
// (Trace/Debug/Info/Warn/Error/Crit) instead of reaching for slog or
// the stdlib log package directly.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

// Level mirrors slog.Level but adds a Trace rung below Debug and a
// Crit rung above Error.
type Level int

const (
	LevelTrace Level = -8
	LevelDebug Level = Level(slog.LevelDebug)
	LevelInfo  Level = Level(slog.LevelInfo)
	LevelWarn  Level = Level(slog.LevelWarn)
	LevelError Level = Level(slog.LevelError)
	LevelCrit  Level = 12
)

func (l Level) String() string {
	switch {
	case l <= LevelTrace:
		return "TRACE"
	case l <= LevelDebug:
		return "DEBUG"
	case l <= LevelInfo:
		return "INFO"
	case l <= LevelWarn:
		return "WARN"
	case l <= LevelError:
		return "ERROR"
	default:
		return "CRIT"
	}
}

// Logger is the leveled logging facade used throughout this module.
type Logger struct {
	inner *slog.Logger
}

// NewLogger wraps an slog.Handler in a Logger.
func NewLogger(h slog.Handler) *Logger {
	return &Logger{inner: slog.New(h)}
}

// With returns a Logger that always includes the given key/value
// pairs, matching slog's attribute-binding convention.
func (l *Logger) With(ctx ...any) *Logger {
	return &Logger{inner: l.inner.With(ctx...)}
}

func (l *Logger) log(level Level, msg string, ctx []any) {
	l.inner.Log(context.Background(), slog.Level(level), msg, ctx...)
}

func (l *Logger) Trace(msg string, ctx ...any) { l.log(LevelTrace, msg, ctx) }
func (l *Logger) Debug(msg string, ctx ...any) { l.log(LevelDebug, msg, ctx) }
func (l *Logger) Info(msg string, ctx ...any)  { l.log(LevelInfo, msg, ctx) }
func (l *Logger) Warn(msg string, ctx ...any)  { l.log(LevelWarn, msg, ctx) }
func (l *Logger) Error(msg string, ctx ...any) { l.log(LevelError, msg, ctx) }
func (l *Logger) Crit(msg string, ctx ...any)  { l.log(LevelCrit, msg, ctx) }

// terminalHandler renders records as
// "LVL [timestamp] message key=value ...", the compact form used for
// interactive / demo output.
type terminalHandler struct {
	out      io.Writer
	minLevel atomic.Int64
	attrs    []slog.Attr
}

// NewTerminalHandlerWithLevel builds a handler that writes
// human-readable lines to out, filtering anything below minLevel.
func NewTerminalHandlerWithLevel(out io.Writer, minLevel Level, _ bool) slog.Handler {
	h := &terminalHandler{out: out}
	h.minLevel.Store(int64(minLevel))
	return h
}

func (h *terminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return int64(level) >= h.minLevel.Load()
}

func (h *terminalHandler) Handle(_ context.Context, r slog.Record) error {
	line := fmt.Sprintf("%-5s [%s] %s", Level(r.Level).String(), time.Now().Format("01-02|15:04:05.000"), r.Message)
	for _, a := range h.attrs {
		line += fmt.Sprintf(" %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		line += fmt.Sprintf(" %s=%v", a.Key, a.Value)
		return true
	})
	_, err := fmt.Fprintln(h.out, line)
	return err
}

func (h *terminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	n := &terminalHandler{out: h.out, attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
	n.minLevel.Store(h.minLevel.Load())
	return n
}

func (h *terminalHandler) WithGroup(_ string) slog.Handler { return h }

// SetVerbosity adjusts the minimum level a terminal handler emits at
// runtime, without rebuilding the logger.
func SetVerbosity(h slog.Handler, level Level) {
	if th, ok := h.(*terminalHandler); ok {
		th.minLevel.Store(int64(level))
	}
}

// JSONHandler builds a handler that writes one JSON object per
// record, for machine consumption.
func JSONHandler(out io.Writer) slog.Handler {
	return slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug})
}

var root atomic.Pointer[Logger]

func init() {
	root.Store(NewLogger(NewTerminalHandlerWithLevel(os.Stderr, LevelInfo, false)))
}

// Root returns the process-wide default Logger.
func Root() *Logger { return root.Load() }

// SetDefault replaces the process-wide default Logger.
func SetDefault(l *Logger) { root.Store(l) }

func Trace(msg string, ctx ...any) { Root().Trace(msg, ctx...) }
func Debug(msg string, ctx ...any) { Root().Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { Root().Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { Root().Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { Root().Error(msg, ctx...) }
func Crit(msg string, ctx ...any)  { Root().Crit(msg, ctx...) }

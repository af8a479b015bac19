// Copyright 2024 The authlib-linux Authors
// This file is part of authlib-linux.
//
// authlib-linux is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Command peerauth-demo runs one side of a challenge-response
// handshake over the loopback UDP carrier, for manual testing and as
// a worked example of wiring package session.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/GoldenBitsSoftware/authlib-linux/crypto"
	"github.com/GoldenBitsSoftware/authlib-linux/handshake"
	"github.com/GoldenBitsSoftware/authlib-linux/log"
	"github.com/GoldenBitsSoftware/authlib-linux/session"
	"github.com/GoldenBitsSoftware/authlib-linux/transport"
)

// demoPool bounds how many concurrent sessions this process will run;
// a single-shot CLI only ever needs one, but acquiring from the pool
// exercises the same compile-time concurrency bound a long-running
// server would enforce across many sessions.
var demoPool = session.NewPool()

func main() {
	app := &cli.App{
		Name:  "peerauth-demo",
		Usage: "run one side of a challenge-response handshake over loopback UDP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "role",
				Usage:    "client or server",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "recv-addr",
				Usage: "ip:port this side listens on",
				Value: "127.0.0.1:9641",
			},
			&cli.StringFlag{
				Name:  "send-addr",
				Usage: "ip:port of the peer",
				Value: "127.0.0.1:9642",
			},
			&cli.StringFlag{
				Name:  "key-hex",
				Usage: "64 hex chars of shared key; defaults to the built-in key",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "emit debug-level logs",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "peerauth-demo:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	level := log.LevelInfo
	if c.Bool("verbose") {
		level = log.LevelDebug
	}
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, level, false)))

	recvHost, recvPort, err := splitHostPort(c.String("recv-addr"))
	if err != nil {
		return err
	}
	sendHost, sendPort, err := splitHostPort(c.String("send-addr"))
	if err != nil {
		return err
	}

	carrier, err := transport.NewLoopback(recvHost, recvPort, sendHost, sendPort)
	if err != nil {
		return err
	}
	defer carrier.Close()

	var flags session.Flags
	switch c.String("role") {
	case "client":
		flags = session.FlagClient | session.FlagChallengeMethod
	case "server":
		flags = session.FlagServer | session.FlagChallengeMethod
	default:
		return fmt.Errorf("--role must be 'client' or 'server', got %q", c.String("role"))
	}

	var params *session.Params
	if keyHex := c.String("key-hex"); keyHex != "" {
		raw, err := hex.DecodeString(keyHex)
		if err != nil || len(raw) != crypto.KeySize {
			return fmt.Errorf("--key-hex must be %d hex bytes", crypto.KeySize)
		}
		p := &session.Params{Tag: session.ParamChalResp}
		copy(p.Key[:], raw)
		params = p
	}

	done := make(chan handshake.Status, 1)
	cb := func(_ *session.Session, instanceID int, status handshake.Status, _ any) {
		log.Info("status changed", "instance", instanceID, "status", status.String())
		if status.Terminal() {
			done <- status
		}
	}

	instanceID, err := demoPool.Acquire()
	if err != nil {
		return err
	}
	defer demoPool.Release(instanceID)

	var s session.Session
	if err := s.Init(instanceID, flags, carrier, cb, nil, params); err != nil {
		return err
	}
	if err := s.Start(); err != nil {
		return err
	}

	select {
	case status := <-done:
		fmt.Println(status.String())
		if status != handshake.StatusSuccessful {
			os.Exit(2)
		}
	case <-time.After(handshake.DefaultDeadline + 5*time.Second):
		s.Cancel()
		return fmt.Errorf("handshake never terminated")
	}
	<-s.Done()
	return s.Deinit()
}

func splitHostPort(addr string) (host string, port int, err error) {
	i := len(addr) - 1
	for i >= 0 && addr[i] != ':' {
		i--
	}
	var p int
	if i <= 0 {
		return "", 0, fmt.Errorf("invalid address %q, want host:port", addr)
	}
	if n, err := fmt.Sscanf(addr[i+1:], "%d", &p); err != nil || n != 1 {
		return "", 0, fmt.Errorf("invalid address %q, want host:port", addr)
	}
	return addr[:i], p, nil
}

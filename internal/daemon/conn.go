// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package daemon

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	errs "fgp/neon/internal/errors"
	"fgp/neon/internal/logging"
	"fgp/neon/internal/protocol"
	"fgp/neon/internal/service"
)

// connState tracks where a connection is in its one-shot lifecycle. The
// explicit states keep the ordering guarantee obvious and make a future
// multi-request-per-connection mode a matter of looping Reading..Responding.
type connState int

const (
	stateConnected connState = iota
	stateReading
	stateDecoded
	stateDispatching
	stateResponding
	stateClosed
)

const (
	readDeadline  = 30 * time.Second
	writeDeadline = 10 * time.Second
	maxLineBytes  = 1 << 20
)

// handleConn services a single client connection: read one request line,
// dispatch it, write exactly one response line, close. Protocol-level
// failures become ok:false responses; only an envelope so broken that no id
// can be recovered closes the connection without an answer.
func handleConn(ctx context.Context, conn net.Conn, svc *service.Service) {
	state := stateConnected
	defer func() {
		logging.Debugf("connection closed (last state %d)", state)
		state = stateClosed
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(readDeadline))

	state = stateReading
	req, err := readRequest(conn)
	if err != nil {
		var malformed *protocol.MalformedError
		if errors.As(err, &malformed) {
			logging.Debugf("malformed request: %s", malformed.Reason)
			if malformed.ID == "" {
				// No correlation token survives; nothing useful to answer.
				return
			}
			writeResponse(conn, protocol.ErrResponse(
				errs.New(errs.MalformedEnvelope, malformed.Reason)))
			return
		}
		if !errors.Is(err, io.EOF) {
			logging.Debugf("read request: %v", err)
		}
		return
	}

	state = stateDecoded
	if !protocol.VersionSupported(req.V) {
		writeResponse(conn, protocol.ErrResponse(
			errs.New(errs.UnsupportedVersion, "unsupported protocol version")))
		return
	}

	state = stateDispatching
	logging.Debugf("dispatch %s (id=%s)", req.Method, req.ID)
	result, err := svc.Dispatch(ctx, req.Method, req.Params)

	state = stateResponding
	if err != nil {
		writeResponse(conn, protocol.ErrResponse(err))
		return
	}
	writeResponse(conn, protocol.OKResponse(result))
}

// readRequest accumulates bytes until the codec yields a full line.
func readRequest(conn net.Conn) (protocol.Request, error) {
	var buf []byte
	chunk := make([]byte, 4096)
	for {
		req, _, err := protocol.DecodeRequest(buf)
		if err == nil {
			return req, nil
		}
		if !errors.Is(err, protocol.ErrNeedMoreData) {
			return protocol.Request{}, err
		}
		if len(buf) > maxLineBytes {
			return protocol.Request{}, &protocol.MalformedError{Reason: "request line too long"}
		}

		n, err := conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			continue
		}
		if err != nil {
			return protocol.Request{}, err
		}
	}
}

// writeResponse encodes and writes one response line. A broken pipe here
// means the client went away; the outcome is logged and the connection
// closed, nothing else to do.
func writeResponse(conn net.Conn, resp protocol.Response) {
	b, err := protocol.Encode(resp)
	if err != nil {
		logging.Errorf("encode response: %v", err)
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	if _, err := conn.Write(b); err != nil {
		logging.Debugf("write response: %v", err)
	}
}

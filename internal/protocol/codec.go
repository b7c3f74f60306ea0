// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNeedMoreData signals that the buffer does not yet hold a full line.
var ErrNeedMoreData = errors.New("need more data")

// MalformedError describes a request line that failed to decode.
// ID holds the correlation token when it could still be recovered from the
// broken envelope, so the dispatcher can answer instead of dropping the
// connection silently.
type MalformedError struct {
	Reason string
	ID     string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed envelope: %s", e.Reason)
}

// Encode serializes v as a single JSON line terminated by '\n'.
// JSON string escaping guarantees the payload itself carries no raw newline;
// Encode still verifies that invariant rather than trusting it.
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if bytes.ContainsRune(b, '\n') {
		return nil, fmt.Errorf("encoded envelope contains embedded newline")
	}
	return append(b, '\n'), nil
}

// DecodeRequest extracts one request envelope from buf.
// It returns the decoded request and the unconsumed remainder of buf.
// ErrNeedMoreData is returned while buf holds no complete line; a complete
// but invalid line yields a *MalformedError and still consumes the line.
func DecodeRequest(buf []byte) (Request, []byte, error) {
	line, rest, err := splitLine(buf)
	if err != nil {
		return Request{}, buf, err
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		// The line may still be a JSON object with a usable id even though
		// the envelope fields failed to decode (e.g. "v" as a string).
		return Request{}, rest, &MalformedError{Reason: err.Error(), ID: recoverID(line)}
	}
	if req.ID == "" {
		return Request{}, rest, &MalformedError{Reason: "missing required field: id"}
	}
	if req.V == 0 {
		return Request{}, rest, &MalformedError{Reason: "missing required field: v", ID: req.ID}
	}
	if req.Method == "" {
		return Request{}, rest, &MalformedError{Reason: "missing required field: method", ID: req.ID}
	}
	return req, rest, nil
}

// DecodeResponse extracts one response envelope from buf.
func DecodeResponse(buf []byte) (Response, []byte, error) {
	line, rest, err := splitLine(buf)
	if err != nil {
		return Response{}, buf, err
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, rest, &MalformedError{Reason: err.Error()}
	}
	return resp, rest, nil
}

// splitLine cuts buf at the first newline, trimming an optional '\r'.
func splitLine(buf []byte) (line, rest []byte, err error) {
	idx := bytes.IndexByte(buf, '\n')
	if idx < 0 {
		return nil, nil, ErrNeedMoreData
	}
	line = bytes.TrimSuffix(buf[:idx], []byte{'\r'})
	return line, buf[idx+1:], nil
}

// recoverID pulls the id field out of a line that failed full decoding.
func recoverID(line []byte) string {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return ""
	}
	return probe.ID
}

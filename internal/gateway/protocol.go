package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
)

// request is an outbound RPC call.
type request struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// frame is any inbound message: a response (id set, no event) or a push
// notification (event set, or no id).
type frame struct {
	ID      int64           `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (f frame) isNotification() bool {
	return f.ID == 0 || f.Event != ""
}

// RPCError is an error reported by the gateway for a call.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("gateway error %d: %s", e.Code, e.Message)
}

// Notification is a push message from the gateway. Producers disagree on
// field names, so both the event/payload and method/params forms are kept.
type Notification struct {
	Event   string
	Method  string
	Payload map[string]any
	Params  map[string]any
}

func (f frame) notification() Notification {
	n := Notification{Event: f.Event, Method: f.Method}
	if len(f.Payload) > 0 {
		_ = json.Unmarshal(f.Payload, &n.Payload)
	}
	if len(f.Params) > 0 {
		_ = json.Unmarshal(f.Params, &n.Params)
	}
	return n
}

var (
	// ErrNotConnected is returned by Call before Connect succeeds.
	ErrNotConnected = errors.New("gateway not connected")
	// ErrClosed is returned to calls pending when the connection drops.
	ErrClosed = errors.New("gateway connection closed")
)

// decodeList accepts either a bare JSON array or an object wrapping the
// array under key. Elements that fail to decode are skipped and logged so one
// malformed entry does not hide the rest.
func decodeList[T any](raw json.RawMessage, key string) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return []T{}, nil
	}

	if raw[0] == '{' {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return []T{}, fmt.Errorf("decode %s: %w", key, err)
		}
		inner, ok := wrapped[key]
		if !ok {
			return []T{}, nil
		}
		raw = bytes.TrimSpace(inner)
		if len(raw) == 0 || string(raw) == "null" {
			return []T{}, nil
		}
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return []T{}, fmt.Errorf("decode %s: %w", key, err)
	}

	out := make([]T, 0, len(elems))
	for i, elem := range elems {
		var v T
		if err := json.Unmarshal(elem, &v); err != nil {
			log.Printf("[Gateway] Skipping malformed %s entry %d: %v", key, i, err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Envelope is a named event as it travels over the websocket
type Envelope struct {
	Name string            `json:"name"`
	Args []json.RawMessage `json:"args"`
}

// KeyRequest is sent with alice_key and reconcile_key
type KeyRequest struct {
	Encryption    string `json:"encryption"`
	Eavesdropping bool   `json:"eavesdropping"`
}

// AliceMessage is sent with alice_message
type AliceMessage struct {
	Message       string `json:"message"`
	Encryption    string `json:"encryption"`
	Eavesdropping bool   `json:"eavesdropping"`
}

// DecodeRequest is sent with bob_decode and eve_decode.
// Eavesdropping is never set by the client router; the relay falls back to its session flag.
type DecodeRequest struct {
	Message       string `json:"message"`
	Encryption    string `json:"encryption"`
	Eavesdropping *bool  `json:"eavesdropping,omitempty"`
}

// KeyStatus is received with key_sent and key_reconciled
type KeyStatus struct {
	Encryption    string `json:"encryption"`
	Eavesdropping *bool  `json:"eavesdropping,omitempty"`
	Reconciled    *bool  `json:"reconciled,omitempty"`
}

// MessageNotice is received with every bob_* and eve_* event
type MessageNotice struct {
	Message    string `json:"message"`
	Encryption string `json:"encryption,omitempty"`
	Sender     string `json:"sender,omitempty"`
}

// NewEnvelope marshals payload as the single argument of a named event
func NewEnvelope(name string, payload any) (*Envelope, error) {
	if raw, ok := payload.(json.RawMessage); ok {
		return &Envelope{Name: name, Args: []json.RawMessage{raw}}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", name, err)
	}
	return &Envelope{Name: name, Args: []json.RawMessage{data}}, nil
}

// DecodeEnvelope parses a websocket frame and checks its shape
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	var env Envelope
	if err := json.Unmarshal(fields["name"], &env.Name); err != nil || env.Name == "" {
		return nil, ErrMissingEventName
	}
	rawArgs, ok := fields["args"]
	if !ok || isNull(rawArgs) {
		return nil, ErrMissingEventArgs
	}
	if err := json.Unmarshal(rawArgs, &env.Args); err != nil {
		return nil, ErrMissingEventArgs
	}
	if len(env.Args) != 1 {
		return nil, fmt.Errorf("%w: %s has %d", ErrEventArgsCountMismatch, env.Name, len(env.Args))
	}
	return &env, nil
}

// Payload returns the single argument of the envelope
func (e *Envelope) Payload() json.RawMessage {
	if len(e.Args) == 0 {
		return nil
	}
	return e.Args[0]
}

// DecodeKeyStatus validates and decodes a key_sent or key_reconciled payload
func DecodeKeyStatus(data json.RawMessage) (*KeyStatus, error) {
	fields, err := objectFields(data)
	if err != nil {
		return nil, err
	}
	if err := requireString(fields, "encryption"); err != nil {
		return nil, err
	}
	var status KeyStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &status, nil
}

// DecodeMessageNotice validates and decodes a payload carrying a message
func DecodeMessageNotice(data json.RawMessage) (*MessageNotice, error) {
	fields, err := objectFields(data)
	if err != nil {
		return nil, err
	}
	if err := requireString(fields, "message"); err != nil {
		return nil, err
	}
	var notice MessageNotice
	if err := json.Unmarshal(data, &notice); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &notice, nil
}

// Decode strictly decodes a request payload into v; the listed fields must be present
func Decode(data json.RawMessage, v any, required ...string) error {
	fields, err := objectFields(data)
	if err != nil {
		return err
	}
	for _, name := range required {
		if _, ok := fields[name]; !ok {
			return fmt.Errorf("%w: missing %q", ErrInvalidPayload, name)
		}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// FormatOptionalBool renders an optional flag the way the page printed it
func FormatOptionalBool(b *bool) string {
	if b == nil {
		return "undefined"
	}
	return strconv.FormatBool(*b)
}

func objectFields(data json.RawMessage) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: payload is not an object", ErrInvalidPayload)
	}
	return fields, nil
}

func requireString(fields map[string]json.RawMessage, name string) error {
	raw, ok := fields[name]
	if !ok {
		return fmt.Errorf("%w: missing %q", ErrInvalidPayload, name)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || isNull(raw) {
		return fmt.Errorf("%w: %q is not a string", ErrInvalidPayload, name)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

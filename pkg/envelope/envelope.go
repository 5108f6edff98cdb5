// Package envelope models the JSON frames exchanged over the WebSocket API.
//
// Every frame is an object whose "e" member names the event. Responses add an
// "ok" member holding "ok" or "error", and requests may carry an "oid" that
// the server echoes back. Payload shapes differ per event, so the payload is
// kept as a generic Value rather than a fixed schema.
//
// Outbound frames are built with the factory functions (AuthRequest, Ticker,
// PlaceOrder, ...) and rendered with Serialize. Inbound text is read with Parse
// and classified with Event, Tag and Status.
package envelope

import (
	"errors"

	"github.com/bytedance/sonic"

	"cexws/pkg/core"
)

// Top-level wire keys.
const (
	KeyEvent  = "e"
	KeyStatus = "ok"
	KeyOID    = "oid"
	KeyData   = "data"
)

var errMalformed = errors.New("malformed json")

// UseNumber keeps numbers as text; SortMapKeys makes serialized frames stable.
var jsonAPI = sonic.Config{
	UseNumber:   true,
	SortMapKeys: true,
}.Froze()

// Envelope is a single protocol frame. It is immutable; WithOID and the
// factories return new values.
type Envelope struct {
	root Value
	raw  []byte
}

// New builds an outbound envelope for event with the given top-level members.
func New(event Event, fields ...Field) *Envelope {
	all := make([]Field, 0, len(fields)+1)
	all = append(all, fields...)
	all = append(all, F(KeyEvent, String(event.String())))
	return &Envelope{root: Object(all...)}
}

// FromValue wraps an arbitrary value as an envelope.
func FromValue(v Value) *Envelope {
	return &Envelope{root: v}
}

// Parse decodes a text frame. Malformed JSON yields a *core.ParseError; no
// partial envelope is returned.
func Parse(text string) (*Envelope, error) {
	return ParseBytes([]byte(text))
}

// ParseBytes is Parse for a byte slice. The slice is copied.
func ParseBytes(data []byte) (*Envelope, error) {
	var raw any
	if err := jsonAPI.Unmarshal(data, &raw); err != nil {
		return nil, &core.ParseError{Size: len(data), Err: syntaxError(err)}
	}
	root, err := fromNative(raw)
	if err != nil {
		return nil, &core.ParseError{Size: len(data), Err: err}
	}
	return &Envelope{root: root, raw: append([]byte(nil), data...)}, nil
}

// Serialize renders the envelope as compact JSON text.
func Serialize(e *Envelope) (string, error) {
	data, err := e.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (e *Envelope) MarshalJSON() ([]byte, error) {
	return jsonAPI.Marshal(e.root.native())
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	parsed, err := ParseBytes(data)
	if err != nil {
		return err
	}
	*e = *parsed
	return nil
}

// String renders the envelope as indented JSON for logs and debugging.
func (e *Envelope) String() string {
	data, err := jsonAPI.MarshalIndent(e.root.native(), "", "  ")
	if err != nil {
		return "<invalid envelope: " + err.Error() + ">"
	}
	return string(data)
}

// Value returns the whole frame.
func (e *Envelope) Value() Value {
	return e.root
}

// Tag returns the raw event tag. It reports false when the "e" member is
// missing or not a string; that is a normal state, not an error.
func (e *Envelope) Tag() (string, bool) {
	v, ok := e.root.Get(KeyEvent)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// Event returns the event tag as an Event: EventNone when there is no tag and
// EventUnknown when the tag is not part of the protocol.
func (e *Envelope) Event() Event {
	tag, ok := e.Tag()
	if !ok {
		return EventNone
	}
	if ev, ok := ParseEvent(tag); ok {
		return ev
	}
	return EventUnknown
}

// Status reads the "ok" member.
func (e *Envelope) Status() Status {
	v, ok := e.root.Get(KeyStatus)
	if !ok {
		return StatusNone
	}
	s, ok := v.AsString()
	if !ok {
		return StatusNone
	}
	return parseStatus(s)
}

// IsSuccess reports whether the frame carries "ok":"ok".
func (e *Envelope) IsSuccess() bool {
	return e.Status() == StatusOK
}

// IsFailure reports whether the frame carries "ok":"error".
func (e *Envelope) IsFailure() bool {
	return e.Status() == StatusError
}

// OID returns the request correlation id, when present.
func (e *Envelope) OID() (string, bool) {
	v, ok := e.root.Get(KeyOID)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// WithOID returns a copy of the envelope carrying oid. The receiver is not modified.
func (e *Envelope) WithOID(oid string) *Envelope {
	return &Envelope{root: e.root.With(KeyOID, String(oid))}
}

// Field returns a top-level member, or null when absent.
func (e *Envelope) Field(key string) Value {
	v, _ := e.root.Get(key)
	return v
}

// Data returns the "data" member, or null when absent.
func (e *Envelope) Data() Value {
	return e.Field(KeyData)
}

// ErrorMessage returns the error text of a failed response. The server puts
// it under data.error, or directly under data when data is a string.
func (e *Envelope) ErrorMessage() string {
	data := e.Data()
	if s, ok := data.AsString(); ok {
		return s
	}
	if v, ok := data.Get("error"); ok {
		if s, ok := v.AsString(); ok {
			return s
		}
	}
	return ""
}

// Decode unmarshals the whole frame into v.
func (e *Envelope) Decode(v any) error {
	if e.raw != nil {
		return jsonAPI.Unmarshal(e.raw, v)
	}
	data, err := e.MarshalJSON()
	if err != nil {
		return err
	}
	return jsonAPI.Unmarshal(data, v)
}

// DecodeData unmarshals the "data" member into v.
func (e *Envelope) DecodeData(v any) error {
	data, err := e.Data().MarshalJSON()
	if err != nil {
		return err
	}
	return jsonAPI.Unmarshal(data, v)
}

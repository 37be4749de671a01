package events

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

const (
	EvtKindErrorFrame = -1
	EvtKindMessage    = 1
)

// EventHeader prefixes every frame on the wire. MsgType routes the payload
// for message frames and is empty for error frames.
type EventHeader struct {
	Op      int64  `json:"op"`
	MsgType string `json:"t,omitempty"`
}

type ErrorFrame struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Serialize writes the event as a two part frame, header then payload, both
// JSON documents on the same writer.
func (evt *GatewayEvent) Serialize(w io.Writer) error {
	if evt.Kind == "" {
		return fmt.Errorf("cannot serialize event without a kind")
	}

	enc := jsoniter.ConfigFastest.NewEncoder(w)
	if err := enc.Encode(EventHeader{Op: EvtKindMessage, MsgType: evt.Kind}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return enc.Encode(evt)
}

// WriteErrorFrame emits an error frame, the stream-terminating counterpart of
// Serialize.
func WriteErrorFrame(w io.Writer, ef *ErrorFrame) error {
	enc := jsoniter.ConfigFastest.NewEncoder(w)
	if err := enc.Encode(EventHeader{Op: EvtKindErrorFrame}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return enc.Encode(ef)
}

// Deserialize reads one frame. An error frame decodes into an *ErrorFrameError
// rather than an event; the header's MsgType wins over any kind carried in the
// payload.
func (evt *GatewayEvent) Deserialize(r io.Reader) error {
	dec := jsoniter.ConfigFastest.NewDecoder(r)

	var header EventHeader
	if err := dec.Decode(&header); err != nil {
		return fmt.Errorf("reading header: %w", err)
	}

	switch header.Op {
	case EvtKindMessage:
		if err := dec.Decode(evt); err != nil {
			return fmt.Errorf("reading %q event: %w", header.MsgType, err)
		}
		evt.Kind = header.MsgType
		return nil
	case EvtKindErrorFrame:
		var errframe ErrorFrame
		if err := dec.Decode(&errframe); err != nil {
			return fmt.Errorf("reading error frame: %w", err)
		}
		return &ErrorFrameError{Frame: errframe}
	default:
		return fmt.Errorf("unrecognized event stream type: %d", header.Op)
	}
}

// ErrorFrameError surfaces an error frame received in place of an event.
type ErrorFrameError struct {
	Frame ErrorFrame
}

func (e *ErrorFrameError) Error() string {
	return fmt.Sprintf("error frame from stream: %s: %s", e.Frame.Error, e.Frame.Message)
}

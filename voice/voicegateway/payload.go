package voicegateway

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// Payload is the voice WebSocket's wire envelope: the same {op, d} shape
// as the gateway's, minus the sequence/event-name fields voice never uses.
type Payload struct {
	Op Opcode          `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
}

// ErrUnknownOpcode is returned when decoding a Payload whose Op is not in
// the voice opcode table.
type ErrUnknownOpcode struct{ Op Opcode }

func (e *ErrUnknownOpcode) Error() string {
	return fmt.Sprintf("voicegateway: unknown opcode %d", e.Op)
}

// Command is an outbound voice frame.
type Command interface {
	opcode() Opcode
	commandData() interface{}
}

// EncodeCommand renders an outbound Command as a Payload.
func EncodeCommand(cmd Command) (Payload, error) {
	d, err := json.Marshal(cmd.commandData())
	if err != nil {
		return Payload{}, errors.Wrap(err, "voicegateway: failed to encode command")
	}
	return Payload{Op: cmd.opcode(), D: d}, nil
}

// Event is an inbound voice frame.
type Event interface {
	Name() string
}

// DecodeEvent dispatches a received Payload to the matching Event variant.
func DecodeEvent(p Payload) (Event, error) {
	switch p.Op {
	case HelloOp:
		var ev Hello
		if err := json.Unmarshal(p.D, &ev); err != nil {
			return nil, errors.Wrap(err, "voicegateway: failed to decode hello")
		}
		return ev, nil

	case ReadyOp:
		var ev Ready
		if err := json.Unmarshal(p.D, &ev); err != nil {
			return nil, errors.Wrap(err, "voicegateway: failed to decode ready")
		}
		return ev, nil

	case SessionDescriptionOp:
		var ev SessionDescription
		if err := json.Unmarshal(p.D, &ev); err != nil {
			return nil, errors.Wrap(err, "voicegateway: failed to decode session description")
		}
		return ev, nil

	case SpeakingOp:
		return Speaking{}, nil

	case HeartbeatAckOp:
		return HeartbeatAck{}, nil

	case ResumedOp:
		return Resumed{}, nil

	case ClientDisconnectOp:
		return ClientDisconnect{}, nil

	default:
		return nil, &ErrUnknownOpcode{Op: p.Op}
	}
}

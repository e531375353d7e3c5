package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// Payload is the wire envelope shared by every gateway frame.
type Payload struct {
	Op Opcode          `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	S  *int64          `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

// ErrUnknownOpcode is returned when decoding a Payload whose Op is not in
// the gateway opcode table.
type ErrUnknownOpcode struct{ Op Opcode }

func (e *ErrUnknownOpcode) Error() string {
	return fmt.Sprintf("gateway: unknown opcode %d", e.Op)
}

// ErrUnexpectedOpcode is returned by decodeEvent when a send-only opcode
// is received.
type ErrUnexpectedOpcode struct{ Op Opcode }

func (e *ErrUnexpectedOpcode) Error() string {
	return fmt.Sprintf("gateway: unexpected opcode %d", e.Op)
}

// encodeCommand renders an outbound Command as a Payload. s and t are
// always null for commands.
func encodeCommand(cmd Command) (Payload, error) {
	d, err := json.Marshal(cmd.commandData())
	if err != nil {
		return Payload{}, errors.Wrap(err, "gateway: failed to encode command")
	}
	return Payload{Op: cmd.opcode(), D: d}, nil
}

// decodeEvent dispatches a received Payload to the matching Event variant.
func decodeEvent(p Payload) (Event, error) {
	switch p.Op {
	case HelloOp:
		var hello Hello
		if err := json.Unmarshal(p.D, &hello); err != nil {
			return nil, errors.Wrap(err, "gateway: failed to decode hello")
		}
		return hello, nil

	case HeartbeatAckOp:
		return HeartbeatAck{}, nil

	case HeartbeatOp:
		return HeartbeatRequest{}, nil

	case ReconnectOp:
		return Reconnect{}, nil

	case InvalidSessionOp:
		var resumable bool
		_ = json.Unmarshal(p.D, &resumable)
		return InvalidSession{Resumable: resumable}, nil

	case DispatchOp:
		if p.T == "" {
			return nil, errors.New("gateway: dispatch payload missing event name")
		}
		return decodeDispatch(p.T, p.D)

	case IdentifyOp, StatusUpdateOp, VoiceStateUpdateOp, ResumeOp, RequestGuildMembersOp:
		return nil, &ErrUnexpectedOpcode{Op: p.Op}

	default:
		return nil, &ErrUnknownOpcode{Op: p.Op}
	}
}

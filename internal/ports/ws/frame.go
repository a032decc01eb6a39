package ws

import (
	"encoding/json"
	"errors"

	"cryptocrew/internal/app"
)

// Frame is the JSON envelope exchanged over the socket in both directions. Clients
// send a command type with its payload; the server answers with event kinds,
// "snapshot" and "error".
type Frame struct {
	Type     string          `json:"type"`
	PlayerID string          `json:"playerId,omitempty"`
	GameID   string          `json:"gameId,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

const (
	FrameSnapshot = "snapshot"
	FrameError    = "error"
)

// ErrorPayload accompanies an "error" frame.
type ErrorPayload struct {
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

var errReservedCommand = errors.New("command is issued by the gateway")

// clientCommands are the command types a socket may send. Seating and presence are
// driven by the connection itself.
var clientCommands = map[app.CommandType]bool{
	app.CmdMove:         true,
	app.CmdStartMine:    true,
	app.CmdStartSteal:   true,
	app.CmdCallMeeting:  true,
	app.CmdCastVote:     true,
	app.CmdOfferBribe:   true,
	app.CmdRespondBribe: true,
}

// decodeFrame returns the command carried by a client frame. A nil command with a nil
// error is a snapshot request.
func decodeFrame(f Frame) (app.Command, error) {
	if f.Type == FrameSnapshot {
		return nil, nil
	}
	t := app.CommandType(f.Type)
	if _, known := clientCommands[t]; !known {
		if _, err := app.DecodeCommand(t, nil); err != nil {
			return nil, err
		}
		return nil, errReservedCommand
	}
	return app.DecodeCommand(t, f.Payload)
}

func newFrame(kind, gameID string, payload any) (Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: kind, GameID: gameID, Payload: data}, nil
}

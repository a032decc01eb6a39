package nakama

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"cryptocrew/internal/app"
	"cryptocrew/internal/domain"
)

var commandOpCodes = map[int64]app.CommandType{
	OpMove:         app.CmdMove,
	OpStartMine:    app.CmdStartMine,
	OpStartSteal:   app.CmdStartSteal,
	OpCallMeeting:  app.CmdCallMeeting,
	OpCastVote:     app.CmdCastVote,
	OpOfferBribe:   app.CmdOfferBribe,
	OpRespondBribe: app.CmdRespondBribe,
}

var eventOpCodes = map[app.EventKind]int64{
	app.EventPlayerJoined:     OpPlayerJoined,
	app.EventPlayerLeft:       OpPlayerLeft,
	app.EventPlayerMoved:      OpPlayerMoved,
	app.EventGameStarted:      OpGameStarted,
	app.EventRoleAssigned:     OpRoleAssigned,
	app.EventActionStarted:    OpActionStarted,
	app.EventActionCompleted:  OpActionCompleted,
	app.EventMeetingCalled:    OpMeetingCalled,
	app.EventVoteCast:         OpVoteCast,
	app.EventVoteResult:       OpVoteResult,
	app.EventBribeOffer:       OpBribeOffer,
	app.EventBribeResolved:    OpBribeResolved,
	app.EventPlayerConnection: OpPlayerConnection,
	app.EventGameOver:         OpGameOver,
}

// GameErrorEvent is sent to a single player whose command was refused.
type GameErrorEvent struct {
	Code    int    `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

// decodeCommand maps a client op code and JSON body to an engine command.
func decodeCommand(opCode int64, data []byte) (app.Command, error) {
	t, ok := commandOpCodes[opCode]
	if !ok {
		return nil, fmt.Errorf("%w: op code %d", app.ErrUnknownCommand, opCode)
	}
	return app.DecodeCommand(t, data)
}

// encodeEvent returns the op code and JSON body for an engine event.
func encodeEvent(ev app.Event) (int64, []byte, error) {
	opCode, ok := eventOpCodes[ev.Kind]
	if !ok {
		return 0, nil, fmt.Errorf("no op code for event %q", ev.Kind)
	}
	data, err := json.Marshal(ev.Payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal %s: %w", ev.Kind, err)
	}
	return opCode, data, nil
}

// encodeLabel renders the match label Nakama indexes for matchmaking queries.
func encodeLabel(open int, phase domain.Phase) (string, error) {
	label, err := structpb.NewStruct(map[string]interface{}{
		"game":  MatchLabelGame,
		"open":  open,
		"phase": string(phase),
	})
	if err != nil {
		return "", err
	}
	labelBytes, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(label)
	if err != nil {
		return "", err
	}
	return string(labelBytes), nil
}

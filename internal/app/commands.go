package app

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CommandType is the wire name of an inbound player command.
type CommandType string

const (
	CmdJoin         CommandType = "join"
	CmdMove         CommandType = "move"
	CmdStartMine    CommandType = "start_mine"
	CmdStartSteal   CommandType = "start_steal"
	CmdCallMeeting  CommandType = "call_meeting"
	CmdCastVote     CommandType = "cast_vote"
	CmdOfferBribe   CommandType = "offer_bribe"
	CmdRespondBribe CommandType = "respond_bribe"
	CmdDisconnect   CommandType = "disconnect"
	CmdReconnect    CommandType = "reconnect"
)

// Command is a decoded player request. The acting player travels alongside it.
type Command interface {
	Type() CommandType
}

type Join struct {
	Name string `json:"name,omitempty"`
}

type Move struct {
	Room string `json:"room"`
}

type StartMine struct{}

type StartSteal struct{}

type CallMeeting struct{}

// CastVote with an empty TargetID abstains.
type CastVote struct {
	TargetID string `json:"targetId,omitempty"`
}

type OfferBribe struct {
	TargetID string `json:"targetId"`
	Amount   int64  `json:"amount"`
}

type RespondBribe struct {
	BribeID string `json:"bribeId"`
	Accept  bool   `json:"accept"`
}

type Disconnect struct{}

type Reconnect struct{}

func (Join) Type() CommandType         { return CmdJoin }
func (Move) Type() CommandType         { return CmdMove }
func (StartMine) Type() CommandType    { return CmdStartMine }
func (StartSteal) Type() CommandType   { return CmdStartSteal }
func (CallMeeting) Type() CommandType  { return CmdCallMeeting }
func (CastVote) Type() CommandType     { return CmdCastVote }
func (OfferBribe) Type() CommandType   { return CmdOfferBribe }
func (RespondBribe) Type() CommandType { return CmdRespondBribe }
func (Disconnect) Type() CommandType   { return CmdDisconnect }
func (Reconnect) Type() CommandType    { return CmdReconnect }

var ErrUnknownCommand = errors.New("unknown command type")

var decoders = map[CommandType]func([]byte) (Command, error){
	CmdJoin:         decodeInto[Join],
	CmdMove:         decodeInto[Move],
	CmdStartMine:    decodeInto[StartMine],
	CmdStartSteal:   decodeInto[StartSteal],
	CmdCallMeeting:  decodeInto[CallMeeting],
	CmdCastVote:     decodeInto[CastVote],
	CmdOfferBribe:   decodeInto[OfferBribe],
	CmdRespondBribe: decodeInto[RespondBribe],
	CmdDisconnect:   decodeInto[Disconnect],
	CmdReconnect:    decodeInto[Reconnect],
}

func decodeInto[T Command](payload []byte) (Command, error) {
	var cmd T
	if len(payload) == 0 {
		return cmd, nil
	}
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

// DecodeCommand turns a wire type and JSON payload into a typed Command. An empty
// payload decodes to the zero command.
func DecodeCommand(t CommandType, payload []byte) (Command, error) {
	decode, ok := decoders[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, t)
	}
	cmd, err := decode(payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	return cmd, nil
}

// EncodeCommand is the inverse of DecodeCommand, used by the audit log.
func EncodeCommand(cmd Command) ([]byte, error) {
	return json.Marshal(cmd)
}

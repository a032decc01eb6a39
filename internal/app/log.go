package app

import (
	"encoding/json"
	"time"

	"cryptocrew/internal/domain"
)

// EntryKind distinguishes clock ticks from player commands in the audit log.
type EntryKind string

const (
	EntryTick    EntryKind = "tick"
	EntryCommand EntryKind = "command"
)

// LogEntry is one accepted input. Rejected commands never reach the log.
type LogEntry struct {
	Seq      int             `json:"seq"`
	At       time.Time       `json:"at"`
	Kind     EntryKind       `json:"kind"`
	PlayerID string          `json:"playerId,omitempty"`
	Command  CommandType     `json:"command,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// EventLog is the ordered audit log of a session. The header fields are everything
// needed to rebuild the session from scratch with Replay.
type EventLog struct {
	GameID  string       `json:"gameId"`
	Seed    int64        `json:"seed"`
	Rules   domain.Rules `json:"rules"`
	Start   time.Time    `json:"start"`
	Entries []LogEntry   `json:"entries"`
}

func (l *EventLog) append(e LogEntry) {
	e.Seq = len(l.Entries) + 1
	l.Entries = append(l.Entries, e)
}

package app

import (
	"errors"
	"fmt"
)

var ErrReplayDiverged = errors.New("replay diverged from log")

// Replay rebuilds a session from its audit log. Every logged command was accepted
// originally, so a rejection during replay means the log does not match this engine.
func Replay(log EventLog) (*SessionManager, error) {
	m := NewSessionManager(log.GameID, log.Rules, log.Seed, log.Start)
	for _, e := range log.Entries {
		switch e.Kind {
		case EntryTick:
			m.Tick(e.At)
		case EntryCommand:
			cmd, err := DecodeCommand(e.Command, e.Payload)
			if err != nil {
				return m, fmt.Errorf("entry %d: %w", e.Seq, err)
			}
			if _, err := m.SubmitEvent(e.PlayerID, cmd); err != nil {
				return m, fmt.Errorf("%w: entry %d (%s by %s): %v", ErrReplayDiverged, e.Seq, e.Command, e.PlayerID, err)
			}
		default:
			return m, fmt.Errorf("entry %d: unknown kind %q", e.Seq, e.Kind)
		}
	}
	return m, nil
}

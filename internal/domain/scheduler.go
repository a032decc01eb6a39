package domain

import "time"

// Completion describes a finished action and the gold it moved.
type Completion struct {
	PlayerID string
	Kind     ActionKind
	Amount   int64
}

// StartAction begins a timed Mine or Steal for playerID at the session time.
// All validation happens before any mutation.
func StartAction(s *Session, playerID string, kind ActionKind) error {
	if s.Phase == PhaseEnded {
		return ErrSessionClosed
	}
	if s.Phase != PhaseActive {
		return Reject(ReasonWrongPhase, "actions are paused outside the active phase")
	}
	p := s.Player(playerID)
	if p == nil {
		return ErrUnknownPlayer
	}
	if !p.CanAct() {
		return ErrNotAlive
	}
	if p.Busy() {
		return Reject(ReasonAlreadyBusy, "%s in progress", p.Timer.Kind)
	}

	var room *Room
	switch kind {
	case ActionMine:
		if p.Role != RoleMiner {
			return Reject(ReasonWrongRole, "only miners can mine")
		}
		room = s.Room(p.Room)
		if room == nil || room.FreeStations() <= 0 {
			return Reject(ReasonNoTask, "no uncompleted task in %q", p.Room)
		}
	case ActionSteal:
		if !p.Role.SaboteurAligned() {
			return Reject(ReasonWrongRole, "only saboteurs can steal")
		}
	default:
		return Reject(ReasonBadRequest, "unknown action %q", kind)
	}

	duration := s.Rules.Duration(kind)
	p.Timer = &ActionTimer{
		Kind:      kind,
		Room:      p.Room,
		StartedAt: s.Now,
		Duration:  duration,
		Deadline:  s.Now.Add(duration),
	}
	if room != nil {
		room.InUse++
	}
	return nil
}

// NextDueAction returns the running action that should complete first at now, or nil.
// Ties on deadline resolve Mine before Steal, then roster order, so a tick is
// deterministic regardless of map iteration or arrival jitter.
func NextDueAction(s *Session, now time.Time) *Player {
	var next *Player
	for _, p := range s.Players {
		t := p.Timer
		if t == nil || t.Frozen || t.Deadline.After(now) {
			continue
		}
		if next == nil || dueBefore(t, next.Timer) {
			next = p
		}
	}
	return next
}

func dueBefore(a, b *ActionTimer) bool {
	if !a.Deadline.Equal(b.Deadline) {
		return a.Deadline.Before(b.Deadline)
	}
	return a.Kind == ActionMine && b.Kind == ActionSteal
}

// CompleteAction applies the reward of p's action and returns the player to idle.
// A Steal moves at most what the Vault holds; an empty Vault yields a zero-gold steal
// that still consumes the action.
func CompleteAction(s *Session, p *Player) Completion {
	t := p.Timer
	c := Completion{PlayerID: p.ID, Kind: t.Kind}
	switch t.Kind {
	case ActionMine:
		c.Amount = s.Rules.TaskReward
		s.Vault.Gold += c.Amount
		s.Vault.Mined += c.Amount
	case ActionSteal:
		c.Amount = min(s.Rules.StealAmount, s.Vault.Gold)
		s.Vault.Gold -= c.Amount
		s.Stash.Gold += c.Amount
	}
	releaseAction(s, p)
	return c
}

// CancelAction drops p's in-flight action without reward.
func CancelAction(s *Session, p *Player) {
	if p.Timer != nil {
		releaseAction(s, p)
	}
}

func releaseAction(s *Session, p *Player) {
	if p.Timer.Kind == ActionMine {
		if room := s.Room(p.Timer.Room); room != nil && room.InUse > 0 {
			room.InUse--
		}
	}
	p.Timer = nil
}

// FreezeActions pauses every running action at now, keeping the exact time left.
func FreezeActions(s *Session, now time.Time) {
	for _, p := range s.Players {
		t := p.Timer
		if t == nil || t.Frozen {
			continue
		}
		t.Remaining = t.RemainingAt(now)
		t.Deadline = time.Time{}
		t.Frozen = true
	}
}

// ThawActions re-arms every frozen action from its stored remaining time.
func ThawActions(s *Session, now time.Time) {
	for _, p := range s.Players {
		t := p.Timer
		if t == nil || !t.Frozen {
			continue
		}
		t.Deadline = now.Add(t.Remaining)
		t.Remaining = 0
		t.Frozen = false
	}
}

// MovePlayer relocates an idle player to another room.
func MovePlayer(s *Session, playerID, roomName string) error {
	if s.Phase == PhaseEnded {
		return ErrSessionClosed
	}
	if s.Phase != PhaseActive {
		return Reject(ReasonWrongPhase, "cannot move during %s", s.Phase)
	}
	p := s.Player(playerID)
	if p == nil {
		return ErrUnknownPlayer
	}
	if !p.CanAct() {
		return ErrNotAlive
	}
	if p.Busy() {
		return Reject(ReasonAlreadyBusy, "finish the current %s first", p.Timer.Kind)
	}
	if s.Room(roomName) == nil {
		return Reject(ReasonInvalidTarget, "unknown room %q", roomName)
	}
	p.Room = roomName
	return nil
}

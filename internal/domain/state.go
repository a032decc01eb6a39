package domain

import "time"

// Phase represents the lifecycle stage of a Sabotage session.
type Phase string

const (
	// PhaseLobby is the pre-game state where players join.
	PhaseLobby Phase = "lobby"
	// PhaseActive is the running game where the clock counts down and actions progress.
	PhaseActive Phase = "active"
	// PhaseMeeting pauses the clock and all action timers while players vote.
	PhaseMeeting Phase = "meeting"
	// PhaseEnded is terminal; the session no longer accepts commands.
	PhaseEnded Phase = "ended"
)

// Role is the hidden allegiance of a player.
type Role string

const (
	RoleMiner    Role = "miner"
	RoleSaboteur Role = "saboteur"
	// RoleTraitor is a former Miner who accepted a bribe.
	RoleTraitor Role = "traitor"
)

// SaboteurAligned reports whether the role wins and is paid with the Saboteurs.
func (r Role) SaboteurAligned() bool {
	return r == RoleSaboteur || r == RoleTraitor
}

// ActionKind identifies a timed income action.
type ActionKind string

const (
	ActionMine  ActionKind = "mine"
	ActionSteal ActionKind = "steal"
)

// ActionTimer tracks an in-flight timed action. While a meeting is active the timer
// is frozen: Deadline is cleared and Remaining holds the exact time left.
type ActionTimer struct {
	Kind      ActionKind
	Room      string
	StartedAt time.Time
	Duration  time.Duration
	Deadline  time.Time
	Remaining time.Duration
	Frozen    bool
}

// RemainingAt returns how much of the action is left at now.
func (t *ActionTimer) RemainingAt(now time.Time) time.Duration {
	if t.Frozen {
		return t.Remaining
	}
	if left := t.Deadline.Sub(now); left > 0 {
		return left
	}
	return 0
}

// Player holds the server-side state of a session participant.
type Player struct {
	ID        string
	Name      string
	Role      Role
	Alive     bool
	Ejected   bool
	Connected bool
	Room      string

	Timer *ActionTimer // nil when idle

	BribeGold      int64 // gold received from an accepted bribe, forwarded with the payout
	MeetingsCalled int
}

// Busy reports whether the player has an action in flight.
func (p *Player) Busy() bool {
	return p.Timer != nil
}

// BusyUntil returns the absolute deadline of the in-flight action, or the zero time
// when idle or frozen.
func (p *Player) BusyUntil() time.Time {
	if p.Timer == nil || p.Timer.Frozen {
		return time.Time{}
	}
	return p.Timer.Deadline
}

// CanAct reports whether the player is still in the game.
func (p *Player) CanAct() bool {
	return p.Alive && !p.Ejected
}

// Clock is the match countdown.
type Clock struct {
	Remaining time.Duration
}

// Advance decrements the countdown, never below zero.
func (c *Clock) Advance(elapsed time.Duration) {
	c.Remaining -= elapsed
	if c.Remaining < 0 {
		c.Remaining = 0
	}
}

// Expired reports whether the match time is up.
func (c Clock) Expired() bool {
	return c.Remaining <= 0
}

// Vault is the communal pool. Mined is the total gold mined this match and never
// decreases; Gold is the balance left after steals.
type Vault struct {
	Gold  int64
	Mined int64
}

// Stash is the Saboteurs' private pool of stolen gold.
type Stash struct {
	Gold int64
}

// Room is a location players occupy. Stations are task slots a Miner can work on;
// a station is busy while a Mine is in flight on it.
type Room struct {
	Name     string
	Stations int
	InUse    int
}

// FreeStations returns the number of uncompleted tasks available in the room.
func (r *Room) FreeStations() int {
	return r.Stations - r.InUse
}

// Session is the authoritative state of one match.
type Session struct {
	ID      string
	Rules   Rules
	Phase   Phase
	Players []*Player // join order
	Rooms   []*Room
	Now     time.Time // session time of the last tick

	Clock Clock
	Vault Vault
	Stash Stash

	Meeting *Meeting
	Bribes  []*BribeOffer

	Outcome *Outcome
	Payout  map[string]int64

	rolesAssigned bool
	bribeSeq      int
}

// NewSession creates a lobby session starting at now.
func NewSession(id string, rules Rules, now time.Time) *Session {
	s := &Session{
		ID:    id,
		Rules: rules,
		Phase: PhaseLobby,
		Now:   now,
		Clock: Clock{Remaining: rules.MatchDuration},
	}
	for _, spec := range rules.Rooms {
		s.Rooms = append(s.Rooms, &Room{Name: spec.Name, Stations: spec.Stations})
	}
	return s
}

// Player returns the roster entry for id, or nil.
func (s *Session) Player(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Room returns the named room, or nil.
func (s *Session) Room(name string) *Room {
	for _, r := range s.Rooms {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// PlayerIDs returns the roster ids in join order.
func (s *Session) PlayerIDs() []string {
	ids := make([]string, len(s.Players))
	for i, p := range s.Players {
		ids[i] = p.ID
	}
	return ids
}

// CountRole counts roster members holding role, optionally only those still in the game.
func (s *Session) CountRole(role Role, activeOnly bool) int {
	n := 0
	for _, p := range s.Players {
		if p.Role != role {
			continue
		}
		if activeOnly && !p.CanAct() {
			continue
		}
		n++
	}
	return n
}

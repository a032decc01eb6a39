package app

import "cryptocrew/internal/domain"

// EventKind identifies emitted events for dispatch to clients.
type EventKind string

const (
	EventPlayerJoined     EventKind = "player_joined"
	EventPlayerLeft       EventKind = "player_left"
	EventPlayerMoved      EventKind = "player_moved"
	EventGameStarted      EventKind = "game_started"
	EventRoleAssigned     EventKind = "role_assigned"
	EventActionStarted    EventKind = "action_started"
	EventActionCompleted  EventKind = "action_completed"
	EventMeetingCalled    EventKind = "meeting_called"
	EventVoteCast         EventKind = "vote_cast"
	EventVoteResult       EventKind = "vote_result"
	EventBribeOffer       EventKind = "bribe_offer"
	EventBribeResolved    EventKind = "bribe_resolved"
	EventPlayerConnection EventKind = "player_connection"
	EventGameOver         EventKind = "game_over"
)

// Event is an app event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // player IDs; empty means broadcast
}

// Private reports whether the event is addressed to specific players only.
func (e Event) Private() bool { return len(e.Recipients) > 0 }

type PlayerJoinedPayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Seat     int    `json:"seat"`
}

type PlayerLeftPayload struct {
	PlayerID string `json:"playerId"`
}

type PlayerMovedPayload struct {
	PlayerID string `json:"playerId"`
	Room     string `json:"room"`
}

type GameStartedPayload struct {
	Phase        domain.Phase `json:"phase"`
	ClockSeconds int64        `json:"clockSeconds"`
	Players      []string     `json:"players"`
}

type RoleAssignedPayload struct {
	PlayerID string      `json:"playerId"`
	Role     domain.Role `json:"role"`
	// Partners lists the other Saboteurs; empty for Miners.
	Partners []string `json:"partners,omitempty"`
	Room     string   `json:"room"`
}

type ActionStartedPayload struct {
	PlayerID string            `json:"playerId"`
	Action   domain.ActionKind `json:"action"`
	Room     string            `json:"room"`
	Seconds  int64             `json:"seconds"`
}

type ActionCompletedPayload struct {
	PlayerID string            `json:"playerId"`
	Action   domain.ActionKind `json:"action"`
	Amount   int64             `json:"amount"`
}

type MeetingCalledPayload struct {
	CallerID string `json:"callerId"`
	Seconds  int64  `json:"seconds"`
}

// VoteCastPayload never names the target; ballots stay secret until the tally.
type VoteCastPayload struct {
	VoterID string `json:"voterId"`
	Voted   int    `json:"voted"`
	Needed  int    `json:"needed"`
}

type VoteResultPayload struct {
	Counts      map[string]int `json:"counts"`
	Cast        int            `json:"cast"`
	Abstained   int            `json:"abstained"`
	EjectedID   string         `json:"ejectedId,omitempty"`
	EjectedRole domain.Role    `json:"ejectedRole,omitempty"`
}

type BribeOfferPayload struct {
	BribeID    string `json:"bribeId"`
	SaboteurID string `json:"saboteurId"`
	TargetID   string `json:"targetId"`
	Amount     int64  `json:"amount"`
	Seconds    int64  `json:"seconds"`
}

type BribeResolvedPayload struct {
	BribeID    string            `json:"bribeId"`
	SaboteurID string            `json:"saboteurId"`
	TargetID   string            `json:"targetId"`
	Amount     int64             `json:"amount"`
	State      domain.BribeState `json:"state"`
}

type PlayerConnectionPayload struct {
	PlayerID  string `json:"playerId"`
	Connected bool   `json:"connected"`
}

type GameOverPayload struct {
	Outcome    domain.Outcome    `json:"outcome"`
	Roles      map[string]string `json:"roles"`
	Payout     map[string]int64  `json:"payout"`
	Settlement domain.Settlement `json:"settlement"`
}

package domain

import "time"

const (
	// PlayersPerSession is the fixed roster size of a match.
	PlayersPerSession = 6
	// SaboteursPerSession is the number of Saboteurs dealt at role assignment.
	SaboteursPerSession = 2
)

// RoomSpec describes a room and how many task stations it holds.
type RoomSpec struct {
	Name     string `json:"name"`
	Stations int    `json:"stations"`
}

// Rules holds the per-deployment tunables of a session.
type Rules struct {
	TaskReward        int64         `json:"task_reward"`
	StealAmount       int64         `json:"steal_amount"`
	MineDuration      time.Duration `json:"mine_duration"`
	StealDuration     time.Duration `json:"steal_duration"`
	MeetingWindow     time.Duration `json:"meeting_window"`
	MatchDuration     time.Duration `json:"match_duration"`
	PayoutPool        int64         `json:"payout_pool"`
	BribeTimeout      time.Duration `json:"bribe_timeout"`
	MaxTraitors       int           `json:"max_traitors"`
	MeetingsPerPlayer int           `json:"meetings_per_player"` // 0 = unlimited
	Rooms             []RoomSpec    `json:"rooms"`
}

// DefaultRules returns the standard match settings.
func DefaultRules() Rules {
	return Rules{
		TaskReward:    134,
		StealAmount:   267,
		MineDuration:  60 * time.Second,
		StealDuration: 120 * time.Second,
		MeetingWindow: 120 * time.Second,
		MatchDuration: 900 * time.Second,
		PayoutPool:    8000,
		BribeTimeout:  30 * time.Second,
		MaxTraitors:   1,
		Rooms: []RoomSpec{
			{Name: "mine_shaft", Stations: 2},
			{Name: "smelter", Stations: 2},
			{Name: "tunnels", Stations: 2},
			{Name: "vault", Stations: 0},
		},
	}
}

// Duration returns how long an action of kind takes.
func (r Rules) Duration(kind ActionKind) time.Duration {
	if kind == ActionSteal {
		return r.StealDuration
	}
	return r.MineDuration
}

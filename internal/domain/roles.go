package domain

import (
	"fmt"
	"math/rand"
)

// AssignRoles partitions exactly six distinct player ids into four Miners and two
// Saboteurs. The partition is a uniform shuffle-and-take driven by rng, so a seeded
// source yields a reproducible assignment. Wrong input is a caller bug and panics.
func AssignRoles(ids []string, rng *rand.Rand) map[string]Role {
	if len(ids) != PlayersPerSession {
		panic(fmt.Sprintf("domain: AssignRoles requires %d players, got %d", PlayersPerSession, len(ids)))
	}
	roles := make(map[string]Role, len(ids))
	for _, id := range ids {
		if _, dup := roles[id]; dup {
			panic(fmt.Sprintf("domain: AssignRoles got duplicate player %q", id))
		}
		roles[id] = RoleMiner
	}
	for _, i := range rng.Perm(len(ids))[:SaboteursPerSession] {
		roles[ids[i]] = RoleSaboteur
	}
	return roles
}

// Join adds a player to the lobby.
func Join(s *Session, id, name string) error {
	if s.Phase == PhaseEnded {
		return ErrSessionClosed
	}
	if s.Phase != PhaseLobby {
		return Reject(ReasonWrongPhase, "match already started")
	}
	if id == "" {
		return Reject(ReasonBadRequest, "player id is required")
	}
	if s.Player(id) != nil {
		return Reject(ReasonInvalidTarget, "player %s already joined", id)
	}
	if len(s.Players) >= PlayersPerSession {
		return Reject(ReasonWrongPhase, "lobby is full")
	}
	if name == "" {
		name = id
	}
	s.Players = append(s.Players, &Player{
		ID:        id,
		Name:      name,
		Alive:     true,
		Connected: true,
	})
	return nil
}

// Leave removes a player from the lobby. Once the match starts the roster is fixed.
func Leave(s *Session, id string) error {
	if s.Phase != PhaseLobby {
		return Reject(ReasonWrongPhase, "roster is fixed once the match starts")
	}
	for i, p := range s.Players {
		if p.ID == id {
			s.Players = append(s.Players[:i], s.Players[i+1:]...)
			return nil
		}
	}
	return ErrUnknownPlayer
}

// Start assigns roles, spreads players across task rooms and activates the clock.
// It must run exactly once, on a full lobby.
func Start(s *Session, rng *rand.Rand) {
	if s.rolesAssigned {
		panic("domain: roles already assigned for session " + s.ID)
	}
	if len(s.Players) != PlayersPerSession {
		panic(fmt.Sprintf("domain: cannot start session %s with %d players", s.ID, len(s.Players)))
	}

	roles := AssignRoles(s.PlayerIDs(), rng)
	s.rolesAssigned = true

	var taskRooms []*Room
	for _, r := range s.Rooms {
		if r.Stations > 0 {
			taskRooms = append(taskRooms, r)
		}
	}
	for i, p := range s.Players {
		p.Role = roles[p.ID]
		switch {
		case len(taskRooms) > 0:
			p.Room = taskRooms[i%len(taskRooms)].Name
		case len(s.Rooms) > 0:
			p.Room = s.Rooms[0].Name
		}
	}

	s.Clock.Remaining = s.Rules.MatchDuration
	s.Phase = PhaseActive
}

// SetConnected records a presence change. Actions keep running while a player is away.
func SetConnected(s *Session, id string, connected bool) error {
	if s.Phase == PhaseEnded {
		return ErrSessionClosed
	}
	p := s.Player(id)
	if p == nil {
		return ErrUnknownPlayer
	}
	p.Connected = connected
	return nil
}

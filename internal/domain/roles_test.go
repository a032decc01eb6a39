package domain

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

var testIDs = []string{"p1", "p2", "p3", "p4", "p5", "p6"}

// newStartedSession returns an active session where p1 and p2 are the Saboteurs.
func newStartedSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession("game-1", DefaultRules(), testEpoch)
	for _, id := range testIDs {
		require.NoError(t, Join(s, id, "name-"+id))
	}
	Start(s, rand.New(rand.NewSource(1)))
	for _, p := range s.Players {
		p.Role = RoleMiner
	}
	s.Player("p1").Role = RoleSaboteur
	s.Player("p2").Role = RoleSaboteur
	return s
}

// advance moves session time forward the way a tick does for the scheduler.
func advance(s *Session, d time.Duration) []Completion {
	s.Now = s.Now.Add(d)
	if s.Phase == PhaseActive {
		s.Clock.Advance(d)
	}
	var done []Completion
	for p := NextDueAction(s, s.Now); p != nil; p = NextDueAction(s, s.Now) {
		done = append(done, CompleteAction(s, p))
	}
	return done
}

func TestAssignRolesPartition(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		roles := AssignRoles(testIDs, rand.New(rand.NewSource(seed)))
		require.Len(t, roles, PlayersPerSession)

		counts := map[Role]int{}
		for _, r := range roles {
			counts[r]++
		}
		require.Equal(t, 2, counts[RoleSaboteur], "seed %d", seed)
		require.Equal(t, 4, counts[RoleMiner], "seed %d", seed)
		require.Zero(t, counts[RoleTraitor], "seed %d", seed)
	}
}

func TestAssignRolesSeededIsReproducible(t *testing.T) {
	a := AssignRoles(testIDs, rand.New(rand.NewSource(7)))
	b := AssignRoles(testIDs, rand.New(rand.NewSource(7)))
	require.Equal(t, a, b)
}

func TestAssignRolesEverySeatCanBeSaboteur(t *testing.T) {
	seen := map[string]bool{}
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		for id, r := range AssignRoles(testIDs, rng) {
			if r == RoleSaboteur {
				seen[id] = true
			}
		}
	}
	require.Len(t, seen, PlayersPerSession)
}

func TestAssignRolesPreconditions(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	require.Panics(t, func() { AssignRoles(testIDs[:5], rng) })
	require.Panics(t, func() { AssignRoles(append(testIDs[:5:5], "p1"), rng) })
	require.Panics(t, func() { AssignRoles(append(testIDs, "p7"), rng) })
}

func TestStartRunsOnce(t *testing.T) {
	s := newStartedSession(t)
	require.Equal(t, PhaseActive, s.Phase)
	require.Equal(t, 900*time.Second, s.Clock.Remaining)
	require.Panics(t, func() { Start(s, rand.New(rand.NewSource(2))) })
}

func TestStartRequiresFullLobby(t *testing.T) {
	s := NewSession("game-1", DefaultRules(), testEpoch)
	require.NoError(t, Join(s, "p1", ""))
	require.Panics(t, func() { Start(s, rand.New(rand.NewSource(1))) })
}

func TestJoinAndLeave(t *testing.T) {
	s := NewSession("game-1", DefaultRules(), testEpoch)
	require.NoError(t, Join(s, "p1", ""))
	require.Equal(t, "p1", s.Player("p1").Name)
	require.ErrorIs(t, Join(s, "p1", "again"), ErrInvalidTarget)
	require.ErrorIs(t, Join(s, "", "anon"), ErrBadRequest)

	require.NoError(t, Leave(s, "p1"))
	require.Empty(t, s.Players)
	require.ErrorIs(t, Leave(s, "p1"), ErrUnknownPlayer)

	started := newStartedSession(t)
	require.ErrorIs(t, Join(started, "p7", ""), ErrWrongPhase)
	require.ErrorIs(t, Leave(started, "p3"), ErrWrongPhase)
}

func TestStartSpreadsPlayersAcrossTaskRooms(t *testing.T) {
	s := newStartedSession(t)
	perRoom := map[string]int{}
	for _, p := range s.Players {
		room := s.Room(p.Room)
		require.NotNil(t, room, "player %s has no room", p.ID)
		require.Positive(t, room.Stations)
		perRoom[p.Room]++
	}
	require.Equal(t, map[string]int{"mine_shaft": 2, "smelter": 2, "tunnels": 2}, perRoom)
}

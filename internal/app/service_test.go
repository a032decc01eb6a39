package app

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cryptocrew/internal/domain"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

var seats = []string{"p1", "p2", "p3", "p4", "p5", "p6"}

// match drives a SessionManager the way a transport would, tracking the roles each
// player was privately told.
type match struct {
	t     *testing.T
	m     *SessionManager
	now   time.Time
	roles map[string]domain.Role
}

func newMatch(t *testing.T, seed int64) *match {
	t.Helper()
	x := &match{
		t:     t,
		m:     NewSessionManager("game-1", domain.DefaultRules(), seed, epoch),
		now:   epoch,
		roles: map[string]domain.Role{},
	}
	for _, id := range seats {
		x.submit(id, Join{Name: "name-" + id})
	}
	require.Equal(t, domain.PhaseActive, x.m.Phase())
	require.Len(t, x.roles, domain.PlayersPerSession)
	return x
}

func (x *match) observe(events []Event) []Event {
	for _, ev := range events {
		if p, ok := ev.Payload.(RoleAssignedPayload); ok {
			x.roles[p.PlayerID] = p.Role
		}
	}
	return events
}

func (x *match) submit(playerID string, cmd Command) []Event {
	x.t.Helper()
	events, err := x.m.SubmitEvent(playerID, cmd)
	require.NoError(x.t, err, "%s %s", playerID, cmd.Type())
	return x.observe(events)
}

func (x *match) tick(d time.Duration) []Event {
	x.now = x.now.Add(d)
	return x.observe(x.m.Tick(x.now))
}

func (x *match) with(aligned bool) []string {
	var ids []string
	for id, r := range x.roles {
		if r.SaboteurAligned() == aligned {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// keepBusy starts the role's action for every player who can take one.
func (x *match) keepBusy() {
	x.t.Helper()
	for _, id := range seats {
		var cmd Command = StartMine{}
		if x.roles[id].SaboteurAligned() {
			cmd = StartSteal{}
		}
		_, err := x.m.SubmitEvent(id, cmd)
		switch domain.ReasonOf(err) {
		case "", domain.ReasonAlreadyBusy, domain.ReasonNoTask, domain.ReasonNotAlive:
		default:
			x.t.Fatalf("%s: unexpected rejection %v", id, err)
		}
	}
}

func findEvent(events []Event, kind EventKind) (Event, bool) {
	for _, ev := range events {
		if ev.Kind == kind {
			return ev, true
		}
	}
	return Event{}, false
}

func TestJoinStartsMatchOnSixthPlayer(t *testing.T) {
	m := NewSessionManager("game-1", domain.DefaultRules(), 1, epoch)
	for i, id := range seats[:5] {
		events, err := m.SubmitEvent(id, Join{})
		require.NoError(t, err)
		require.Len(t, events, 1)
		require.Equal(t, PlayerJoinedPayload{PlayerID: id, Name: id, Seat: i + 1}, events[0].Payload)
		require.True(t, m.Open())
	}

	events, err := m.SubmitEvent("p6", Join{})
	require.NoError(t, err)
	require.False(t, m.Open())
	require.Equal(t, domain.PhaseActive, m.Phase())

	started, ok := findEvent(events, EventGameStarted)
	require.True(t, ok)
	require.Equal(t, int64(900), started.Payload.(GameStartedPayload).ClockSeconds)

	saboteurs := 0
	for _, ev := range events {
		if ev.Kind != EventRoleAssigned {
			continue
		}
		p := ev.Payload.(RoleAssignedPayload)
		require.Equal(t, []string{p.PlayerID}, ev.Recipients, "roles are private")
		if p.Role == domain.RoleSaboteur {
			saboteurs++
			require.Len(t, p.Partners, 1)
		} else {
			require.Empty(t, p.Partners)
		}
	}
	require.Equal(t, domain.SaboteursPerSession, saboteurs)

	_, err = m.SubmitEvent("p7", Join{})
	require.ErrorIs(t, err, domain.ErrWrongPhase)
}

func TestLobbyDisconnectLeaves(t *testing.T) {
	m := NewSessionManager("game-1", domain.DefaultRules(), 1, epoch)
	_, err := m.SubmitEvent("p1", Join{})
	require.NoError(t, err)

	events, err := m.SubmitEvent("p1", Disconnect{})
	require.NoError(t, err)
	require.Equal(t, EventPlayerLeft, events[0].Kind)
	require.False(t, m.Has("p1"))
}

func TestRejectedCommandsAreNotLogged(t *testing.T) {
	x := newMatch(t, 3)
	before := len(x.m.Log().Entries)

	miner := x.with(false)[0]
	_, err := x.m.SubmitEvent(miner, StartSteal{})
	require.ErrorIs(t, err, domain.ErrWrongRole)
	_, err = x.m.SubmitEvent(miner, CastVote{TargetID: "p1"})
	require.ErrorIs(t, err, domain.ErrWrongPhase)
	_, err = x.m.SubmitEvent(miner, nil)
	require.ErrorIs(t, err, domain.ErrBadRequest)

	require.Len(t, x.m.Log().Entries, before)
}

func TestActionEventsArePrivate(t *testing.T) {
	x := newMatch(t, 3)
	miner := x.with(false)[0]

	events := x.submit(miner, StartMine{})
	require.Equal(t, []string{miner}, events[0].Recipients)
	require.Equal(t, int64(60), events[0].Payload.(ActionStartedPayload).Seconds)

	events = x.tick(60 * time.Second)
	done, ok := findEvent(events, EventActionCompleted)
	require.True(t, ok)
	require.Equal(t, []string{miner}, done.Recipients)
	require.Equal(t, ActionCompletedPayload{PlayerID: miner, Action: domain.ActionMine, Amount: 134}, done.Payload)
	require.Equal(t, int64(134), x.m.Snapshot(miner).VaultGold)
	require.Equal(t, int64(840), x.m.Snapshot(miner).ClockSeconds)
}

func TestTickIgnoresTimeGoingBackwards(t *testing.T) {
	x := newMatch(t, 3)
	x.tick(10 * time.Second)
	x.m.Tick(epoch)
	require.Equal(t, int64(890), x.m.Snapshot("p1").ClockSeconds)
}

func TestMeetingCallerDisconnectVoidsMeeting(t *testing.T) {
	x := newMatch(t, 5)
	miners := x.with(false)
	sabs := x.with(true)

	x.submit(miners[0], CallMeeting{})
	x.submit(miners[1], CastVote{TargetID: sabs[0]})
	events := x.submit(miners[0], Disconnect{})

	conn, ok := findEvent(events, EventPlayerConnection)
	require.True(t, ok)
	require.Equal(t, PlayerConnectionPayload{PlayerID: miners[0], Connected: false}, conn.Payload)
	result, ok := findEvent(events, EventVoteResult)
	require.True(t, ok)
	require.Empty(t, result.Payload.(VoteResultPayload).EjectedID)
	require.Equal(t, domain.PhaseActive, x.m.Phase())

	events = x.submit(miners[0], Reconnect{})
	require.Equal(t, PlayerConnectionPayload{PlayerID: miners[0], Connected: true}, events[0].Payload)
}

func TestBribeFlowEvents(t *testing.T) {
	x := newMatch(t, 9)
	sab := x.with(true)[0]
	target := x.with(false)[0]

	events := x.submit(sab, OfferBribe{TargetID: target, Amount: 0})
	require.ElementsMatch(t, []string{sab, target}, events[0].Recipients)
	offer := events[0].Payload.(BribeOfferPayload)

	events = x.submit(target, RespondBribe{BribeID: offer.BribeID, Accept: true})
	resolved, ok := findEvent(events, EventBribeResolved)
	require.True(t, ok)
	require.Equal(t, domain.BribeAccepted, resolved.Payload.(BribeResolvedPayload).State)
	require.Equal(t, domain.RoleTraitor, x.roles[target])

	// The traitor now sees both saboteurs; the other miners still see nobody.
	view := x.m.Snapshot(target)
	visible := 0
	for _, p := range view.Players {
		if p.Role != "" {
			visible++
		}
	}
	require.Equal(t, 3, visible)
}

func TestBribeExpiresOnTick(t *testing.T) {
	x := newMatch(t, 9)
	sab := x.with(true)[0]
	target := x.with(false)[0]
	x.submit(sab, OfferBribe{TargetID: target})

	require.Empty(t, x.tick(29*time.Second))
	events := x.tick(time.Second)
	resolved, ok := findEvent(events, EventBribeResolved)
	require.True(t, ok)
	require.Equal(t, domain.BribeExpired, resolved.Payload.(BribeResolvedPayload).State)
}

func TestClosedSessionRejectsEverything(t *testing.T) {
	x := newMatch(t, 4)
	for !x.m.Ended() {
		x.tick(30 * time.Second)
	}
	require.Equal(t, &domain.Outcome{Tag: domain.Stalemate, Reason: domain.ReasonTimeExpired}, x.m.Outcome())

	for _, cmd := range []Command{StartMine{}, CallMeeting{}, Disconnect{}, Reconnect{}, Join{}} {
		_, err := x.m.SubmitEvent("p3", cmd)
		require.ErrorIs(t, err, domain.ErrSessionClosed, "%s", cmd.Type())
	}
	require.Nil(t, x.tick(time.Second))
}

func TestDecodeCommand(t *testing.T) {
	cmd, err := DecodeCommand(CmdOfferBribe, []byte(`{"targetId":"p3","amount":25}`))
	require.NoError(t, err)
	require.Equal(t, OfferBribe{TargetID: "p3", Amount: 25}, cmd)

	cmd, err = DecodeCommand(CmdStartMine, nil)
	require.NoError(t, err)
	require.Equal(t, StartMine{}, cmd)

	_, err = DecodeCommand("fly", nil)
	require.ErrorIs(t, err, ErrUnknownCommand)

	_, err = DecodeCommand(CmdCastVote, []byte(`{"targetId":`))
	require.Error(t, err)

	raw, err := EncodeCommand(RespondBribe{BribeID: "b1", Accept: true})
	require.NoError(t, err)
	back, err := DecodeCommand(CmdRespondBribe, raw)
	require.NoError(t, err)
	require.Equal(t, RespondBribe{BribeID: "b1", Accept: true}, back)
}

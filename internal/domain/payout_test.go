package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sum(m map[string]int64) int64 {
	var total int64
	for _, v := range m {
		total += v
	}
	return total
}

func TestComputePayout(t *testing.T) {
	tests := []struct {
		name    string
		outcome OutcomeTag
		setup   func(s *Session)
		want    map[string]int64
	}{
		{
			name:    "miners win splits among surviving miners",
			outcome: MinersWin,
			setup:   func(s *Session) { eject(s, "p1"); eject(s, "p2") },
			want:    map[string]int64{"p1": 0, "p2": 0, "p3": 2000, "p4": 2000, "p5": 2000, "p6": 2000},
		},
		{
			name:    "miners win skips traitors and ejected miners",
			outcome: MinersWin,
			setup: func(s *Session) {
				eject(s, "p1")
				eject(s, "p2")
				eject(s, "p3")
				s.Player("p4").Role = RoleTraitor
			},
			want: map[string]int64{"p1": 0, "p2": 0, "p3": 0, "p4": 0, "p5": 4000, "p6": 4000},
		},
		{
			name:    "saboteurs win with a traitor splits three ways",
			outcome: SaboteursWin,
			setup:   func(s *Session) { s.Player("p3").Role = RoleTraitor; eject(s, "p2") },
			want:    map[string]int64{"p1": 2667, "p2": 2667, "p3": 2666, "p4": 0, "p5": 0, "p6": 0},
		},
		{
			name:    "stalemate splits six ways",
			outcome: Stalemate,
			setup:   func(s *Session) { eject(s, "p4") },
			want:    map[string]int64{"p1": 1334, "p2": 1334, "p3": 1333, "p4": 1333, "p5": 1333, "p6": 1333},
		},
		{
			name:    "draw pays players still in",
			outcome: Draw,
			setup:   func(s *Session) { eject(s, "p1"); eject(s, "p3") },
			want:    map[string]int64{"p1": 0, "p2": 2000, "p3": 0, "p4": 2000, "p5": 2000, "p6": 2000},
		},
		{
			name:    "no qualifying winner falls back to everyone",
			outcome: MinersWin,
			setup: func(s *Session) {
				for _, id := range testIDs {
					eject(s, id)
				}
			},
			want: map[string]int64{"p1": 1334, "p2": 1334, "p3": 1333, "p4": 1333, "p5": 1333, "p6": 1333},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStartedSession(t)
			tt.setup(s)
			got := ComputePayout(Outcome{Tag: tt.outcome}, s.Players, 8000)
			require.Equal(t, tt.want, got)
			require.Equal(t, int64(8000), sum(got))
		})
	}
}

func TestComputePayoutRemainderFollowsIDOrder(t *testing.T) {
	roster := []*Player{{ID: "zed", Role: RoleSaboteur}, {ID: "amy", Role: RoleSaboteur}, {ID: "kim", Role: RoleTraitor}}
	got := ComputePayout(Outcome{Tag: SaboteursWin}, roster, 8000)
	require.Equal(t, map[string]int64{"amy": 2667, "kim": 2667, "zed": 2666}, got)
}

func TestComputePayoutConservesPool(t *testing.T) {
	s := newStartedSession(t)
	for _, pool := range []int64{0, 1, 5, 7, 8000, 8001, 123457} {
		for _, tag := range []OutcomeTag{MinersWin, SaboteursWin, Stalemate, Draw} {
			require.Equal(t, pool, sum(ComputePayout(Outcome{Tag: tag}, s.Players, pool)), "%s pool %d", tag, pool)
		}
	}
}

func TestFinishSettlesSession(t *testing.T) {
	s := newStartedSession(t)
	s.Stash.Gold = 50
	offer, err := OfferBribe(s, "p1", "p3", 10)
	require.NoError(t, err)
	require.NoError(t, CallMeeting(s, "p4"))

	Finish(s, Outcome{Tag: Stalemate, Reason: ReasonTimeExpired})
	require.Equal(t, PhaseEnded, s.Phase)
	require.Nil(t, s.Meeting)
	require.Equal(t, BribeExpired, offer.State)

	st := NewSettlement(s)
	require.Equal(t, "game-1", st.GameID)
	require.Len(t, st.Players, PlayersPerSession)
	require.Equal(t, int64(8000), st.Total())
	for _, e := range st.Players {
		require.Equal(t, Stalemate, e.Outcome)
	}

	require.ErrorIs(t, StartAction(s, "p3", ActionMine), ErrSessionClosed)
}

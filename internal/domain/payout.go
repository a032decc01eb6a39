package domain

import "sort"

// ComputePayout splits pool among the winners of outcome. Every roster member
// appears in the result; non-winners receive 0. The integer remainder goes one unit at
// a time to winners in ascending player-id order, so the values always sum to pool.
func ComputePayout(outcome Outcome, roster []*Player, pool int64) map[string]int64 {
	payout := make(map[string]int64, len(roster))
	for _, p := range roster {
		payout[p.ID] = 0
	}

	var winners []string
	for _, p := range roster {
		if wins(outcome.Tag, p) {
			winners = append(winners, p.ID)
		}
	}
	if len(winners) == 0 {
		// Nobody qualifies (e.g. every Miner was ejected): fall back to the full roster.
		for _, p := range roster {
			winners = append(winners, p.ID)
		}
	}
	if len(winners) == 0 {
		return payout
	}

	sort.Strings(winners)
	n := int64(len(winners))
	share, rem := pool/n, pool%n
	for i, id := range winners {
		payout[id] = share
		if int64(i) < rem {
			payout[id]++
		}
	}
	return payout
}

func wins(tag OutcomeTag, p *Player) bool {
	switch tag {
	case MinersWin:
		return p.Role == RoleMiner && !p.Ejected
	case SaboteursWin:
		return p.Role.SaboteurAligned()
	case Stalemate:
		return true
	case Draw:
		return !p.Ejected
	}
	return false
}

// SettlementEntry is one player's line of the payout request.
type SettlementEntry struct {
	ID        string     `json:"id"`
	GCAwarded int64      `json:"gcAwarded"`
	Role      Role       `json:"role"`
	Outcome   OutcomeTag `json:"outcome"`
	BribeGold int64      `json:"bribeGold,omitempty"`
}

// Settlement is the payout request sent once to the external ledger. GameID is the
// idempotency key the ledger deduplicates on.
type Settlement struct {
	GameID  string            `json:"gameId"`
	Players []SettlementEntry `json:"players"`
}

// Total returns the sum of awarded GC.
func (st Settlement) Total() int64 {
	var sum int64
	for _, e := range st.Players {
		sum += e.GCAwarded
	}
	return sum
}

// NewSettlement builds the payout request of an ended session, in roster order.
func NewSettlement(s *Session) Settlement {
	st := Settlement{GameID: s.ID}
	if s.Outcome == nil {
		return st
	}
	for _, p := range s.Players {
		st.Players = append(st.Players, SettlementEntry{
			ID:        p.ID,
			GCAwarded: s.Payout[p.ID],
			Role:      p.Role,
			Outcome:   s.Outcome.Tag,
			BribeGold: p.BribeGold,
		})
	}
	return st
}

// Finish records the outcome, computes the payout and closes the session.
func Finish(s *Session, outcome Outcome) {
	s.Outcome = &outcome
	s.Payout = ComputePayout(outcome, s.Players, s.Rules.PayoutPool)
	s.Meeting = nil
	for _, b := range s.Bribes {
		if b.State == BribePending {
			b.State = BribeExpired
		}
	}
	s.Phase = PhaseEnded
}

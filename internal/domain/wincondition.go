package domain

// OutcomeTag names the side that won, if any.
type OutcomeTag string

const (
	MinersWin    OutcomeTag = "miners_win"
	SaboteursWin OutcomeTag = "saboteurs_win"
	Stalemate    OutcomeTag = "stalemate"
	Draw         OutcomeTag = "draw"
)

// OutcomeReason names the condition that ended the match.
type OutcomeReason string

const (
	ReasonBothSaboteursEjected OutcomeReason = "both_saboteurs_ejected"
	ReasonStashOverHalf        OutcomeReason = "stash_over_half"
	ReasonTimeExpired          OutcomeReason = "time_expired"
)

// Outcome is the terminal result of a match.
type Outcome struct {
	Tag    OutcomeTag    `json:"tag"`
	Reason OutcomeReason `json:"reason"`
}

// Evaluate returns the terminal outcome for the current state, or nil while the
// match continues. Checks run in precedence order: both Saboteurs ejected, Stash over
// half of the mined gold, then the clock.
func Evaluate(s *Session) *Outcome {
	switch s.Phase {
	case PhaseLobby:
		return nil
	case PhaseEnded:
		return s.Outcome
	}

	saboteurs, ejected := 0, 0
	for _, p := range s.Players {
		if p.Role != RoleSaboteur {
			continue
		}
		saboteurs++
		if p.Ejected {
			ejected++
		}
	}

	if saboteurs > 0 && ejected == saboteurs {
		return &Outcome{Tag: MinersWin, Reason: ReasonBothSaboteursEjected}
	}
	if StashOverHalf(s) {
		return &Outcome{Tag: SaboteursWin, Reason: ReasonStashOverHalf}
	}
	if s.Clock.Expired() {
		// The stash check above already covers a stash lead at expiry.
		if ejected == 1 && saboteurs-ejected == 1 {
			return &Outcome{Tag: Draw, Reason: ReasonTimeExpired}
		}
		return &Outcome{Tag: Stalemate, Reason: ReasonTimeExpired}
	}
	return nil
}

// StashOverHalf reports whether the Stash holds more than half of all gold mined
// this match. Integer-exact: no rounding at odd totals.
func StashOverHalf(s *Session) bool {
	return s.Stash.Gold*2 > s.Vault.Mined
}

package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BribeState is the lifecycle of a bribe offer.
type BribeState string

const (
	BribePending  BribeState = "pending"
	BribeAccepted BribeState = "accepted"
	BribeRejected BribeState = "rejected"
	BribeExpired  BribeState = "expired"
)

// BribeOffer is a private offer from a Saboteur to a Miner. Only the two parties
// ever see it; filtering happens in the public view, not here.
type BribeOffer struct {
	ID         string
	SaboteurID string
	TargetID   string
	Amount     int64
	State      BribeState
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// bribeNamespace seeds the name-based UUIDs of bribe offers.
var bribeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://cryptocrew.game/sabotage/bribes"))

// OfferBribe records a pending offer from saboteurID to targetID. Offer ids are derived
// from the session id and offer sequence, so a replayed log reproduces them exactly.
func OfferBribe(s *Session, saboteurID, targetID string, amount int64) (*BribeOffer, error) {
	if s.Phase == PhaseEnded {
		return nil, ErrSessionClosed
	}
	if s.Phase != PhaseActive {
		return nil, Reject(ReasonWrongPhase, "bribes can only be offered during play")
	}
	sab := s.Player(saboteurID)
	if sab == nil {
		return nil, ErrUnknownPlayer
	}
	if !sab.CanAct() {
		return nil, ErrNotAlive
	}
	if sab.Role != RoleSaboteur {
		return nil, Reject(ReasonWrongRole, "only saboteurs can offer bribes")
	}
	target := s.Player(targetID)
	if target == nil || target.ID == sab.ID || !target.CanAct() || target.Role != RoleMiner {
		return nil, Reject(ReasonInvalidTarget, "%q cannot be bribed", targetID)
	}
	if s.CountRole(RoleTraitor, false) >= s.Rules.MaxTraitors {
		return nil, Reject(ReasonInvalidTarget, "traitor limit of %d reached", s.Rules.MaxTraitors)
	}
	if amount < 0 {
		return nil, Reject(ReasonInvalidAmount, "amount cannot be negative")
	}
	if amount > s.Stash.Gold {
		return nil, Reject(ReasonInsufficientFunds, "stash holds %d", s.Stash.Gold)
	}
	for _, b := range s.Bribes {
		if b.State == BribePending && b.SaboteurID == saboteurID && b.TargetID == targetID {
			return nil, ErrDuplicateOffer
		}
	}

	s.bribeSeq++
	offer := &BribeOffer{
		ID:         uuid.NewSHA1(bribeNamespace, []byte(fmt.Sprintf("%s/%d", s.ID, s.bribeSeq))).String(),
		SaboteurID: saboteurID,
		TargetID:   targetID,
		Amount:     amount,
		State:      BribePending,
		CreatedAt:  s.Now,
		ExpiresAt:  s.Now.Add(s.Rules.BribeTimeout),
	}
	s.Bribes = append(s.Bribes, offer)
	return offer, nil
}

// Bribe returns the offer with id, or nil.
func (s *Session) Bribe(id string) *BribeOffer {
	for _, b := range s.Bribes {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// RespondBribe resolves a pending offer addressed to targetID. Accepting moves the
// amount from the Stash into the target's personal ledger and turns them Traitor.
func RespondBribe(s *Session, targetID, bribeID string, accept bool) (*BribeOffer, error) {
	if s.Phase == PhaseEnded {
		return nil, ErrSessionClosed
	}
	if s.Phase == PhaseLobby {
		return nil, Reject(ReasonWrongPhase, "match has not started")
	}
	offer := s.Bribe(bribeID)
	if offer == nil || offer.TargetID != targetID {
		return nil, Reject(ReasonInvalidTarget, "no offer %q for %s", bribeID, targetID)
	}
	if offer.State != BribePending {
		return nil, Reject(ReasonWrongPhase, "offer is %s", offer.State)
	}
	target := s.Player(targetID)
	if !target.CanAct() {
		return nil, ErrNotAlive
	}
	if !accept {
		offer.State = BribeRejected
		return offer, nil
	}
	sab := s.Player(offer.SaboteurID)
	if sab == nil || !sab.CanAct() || target.Role != RoleMiner {
		return nil, Reject(ReasonInvalidTarget, "offer can no longer be honoured")
	}
	if s.CountRole(RoleTraitor, false) >= s.Rules.MaxTraitors {
		return nil, Reject(ReasonInvalidTarget, "traitor limit of %d reached", s.Rules.MaxTraitors)
	}
	if offer.Amount > s.Stash.Gold {
		return nil, Reject(ReasonInsufficientFunds, "stash holds %d", s.Stash.Gold)
	}

	s.Stash.Gold -= offer.Amount
	target.BribeGold += offer.Amount
	target.Role = RoleTraitor
	offer.State = BribeAccepted
	return offer, nil
}

// ExpireBribes marks every pending offer past its deadline as expired and returns them.
func ExpireBribes(s *Session, now time.Time) []*BribeOffer {
	var expired []*BribeOffer
	for _, b := range s.Bribes {
		if b.State == BribePending && !now.Before(b.ExpiresAt) {
			b.State = BribeExpired
			expired = append(expired, b)
		}
	}
	return expired
}

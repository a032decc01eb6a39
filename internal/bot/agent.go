package bot

import (
	"math/rand"

	"cryptocrew/internal/app"
	"cryptocrew/internal/domain"
)

// Agent is an autonomous seat filler. It sees exactly what a human in its seat would
// see and answers with at most one command per decision.
type Agent struct {
	ID   string
	Name string

	// AcceptBribes is the chance of taking an offer, in [0, 1].
	AcceptBribes float64
	// AbstainRate is the chance of abstaining in a meeting, in [0, 1].
	AbstainRate float64
	// OfferBribes is the per-decision chance a Saboteur tries to buy a miner.
	OfferBribes float64

	rng *rand.Rand
}

// NewAgent returns an agent seeded for reproducible play.
func NewAgent(id, name string, seed int64) *Agent {
	return &Agent{
		ID:           id,
		Name:         name,
		AcceptBribes: 0.25,
		AbstainRate:  0.3,
		OfferBribes:  0.05,
		rng:          rand.New(rand.NewSource(seed)),
	}
}

// Decide picks the next command from the agent's view, or nil to wait.
func (a *Agent) Decide(view domain.PublicView) app.Command {
	me := a.self(view)
	if me == nil || !me.Alive || me.Ejected {
		return nil
	}

	switch view.Phase {
	case domain.PhaseMeeting:
		return a.vote(view)
	case domain.PhaseActive:
	default:
		return nil
	}

	for _, b := range view.Bribes {
		if b.TargetID == a.ID && b.State == domain.BribePending {
			return app.RespondBribe{BribeID: b.ID, Accept: a.rng.Float64() < a.AcceptBribes}
		}
	}
	if cmd := a.bribe(view, me); cmd != nil {
		return cmd
	}
	if me.Action != "" {
		return nil
	}
	if me.Role.SaboteurAligned() {
		return app.StartSteal{}
	}
	return a.mine(view, me)
}

func (a *Agent) self(view domain.PublicView) *domain.PlayerView {
	for i := range view.Players {
		if view.Players[i].ID == a.ID {
			return &view.Players[i]
		}
	}
	return nil
}

// mine works the current room, or walks to the room with the most free stations.
func (a *Agent) mine(view domain.PublicView, me *domain.PlayerView) app.Command {
	best, free := "", 0
	for _, r := range view.Rooms {
		if r.Name == me.Room && r.FreeStations > 0 {
			return app.StartMine{}
		}
		if r.FreeStations > free {
			best, free = r.Name, r.FreeStations
		}
	}
	if best == "" {
		return nil
	}
	return app.Move{Room: best}
}

// bribe occasionally offers half the stash to a miner. Only one of the agent's offers
// is open at a time, and none once a traitor exists.
func (a *Agent) bribe(view domain.PublicView, me *domain.PlayerView) app.Command {
	if me.Role != domain.RoleSaboteur || view.StashGold <= 0 {
		return nil
	}
	for _, b := range view.Bribes {
		if b.SaboteurID == a.ID && b.State == domain.BribePending {
			return nil
		}
	}
	var targets []string
	for _, p := range view.Players {
		if p.Role == domain.RoleTraitor {
			return nil
		}
		if p.ID == a.ID || !p.Alive || p.Ejected || p.Role.SaboteurAligned() {
			continue
		}
		targets = append(targets, p.ID)
	}
	if len(targets) == 0 || a.rng.Float64() >= a.OfferBribes {
		return nil
	}
	return app.OfferBribe{TargetID: targets[a.rng.Intn(len(targets))], Amount: view.StashGold / 2}
}

func (a *Agent) vote(view domain.PublicView) app.Command {
	if view.Meeting == nil || view.Meeting.MyVote != nil {
		return nil
	}
	me := a.self(view)
	if a.rng.Float64() < a.AbstainRate {
		return app.CastVote{}
	}

	var suspects []string
	for _, p := range view.Players {
		if p.ID == a.ID || !p.Alive || p.Ejected {
			continue
		}
		// Never vote out a known partner.
		if me.Role.SaboteurAligned() && p.Role.SaboteurAligned() {
			continue
		}
		suspects = append(suspects, p.ID)
	}
	if len(suspects) == 0 {
		return app.CastVote{}
	}
	return app.CastVote{TargetID: suspects[a.rng.Intn(len(suspects))]}
}

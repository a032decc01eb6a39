package domain

import (
	"sort"
	"time"
)

// PlayerView is one roster entry as seen by a particular viewer. Role is empty when
// the viewer is not entitled to know it.
type PlayerView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      Role   `json:"role,omitempty"`
	Alive     bool   `json:"alive"`
	Ejected   bool   `json:"ejected"`
	Connected bool   `json:"connected"`
	Room      string `json:"room,omitempty"`

	// Own action only.
	Action        ActionKind `json:"action,omitempty"`
	ActionSeconds int64      `json:"actionSeconds,omitempty"`
	ActionFrozen  bool       `json:"actionFrozen,omitempty"`
}

// RoomView shows task availability.
type RoomView struct {
	Name         string `json:"name"`
	FreeStations int    `json:"freeStations"`
}

// MeetingView shows who called the meeting and who has voted, never for whom.
type MeetingView struct {
	CallerID    string   `json:"callerId"`
	SecondsLeft int64    `json:"secondsLeft"`
	Voted       []string `json:"voted"`
	MyVote      *string  `json:"myVote,omitempty"`
}

// BribeView is an offer visible to one of its two parties.
type BribeView struct {
	ID         string     `json:"id"`
	SaboteurID string     `json:"saboteurId"`
	TargetID   string     `json:"targetId"`
	Amount     int64      `json:"amount"`
	State      BribeState `json:"state"`
	Seconds    int64      `json:"secondsLeft,omitempty"`
}

// PublicView is the role-filtered snapshot pushed to one viewer.
type PublicView struct {
	GameID       string           `json:"gameId"`
	Viewer       string           `json:"viewer"`
	Phase        Phase            `json:"phase"`
	ClockSeconds int64            `json:"clockSeconds"`
	VaultGold    int64            `json:"vaultGold"`
	MinedGold    int64            `json:"minedGold"`
	StashGold    int64            `json:"stashGold"`
	Players      []PlayerView     `json:"players"`
	Rooms        []RoomView       `json:"rooms"`
	Meeting      *MeetingView     `json:"meeting,omitempty"`
	Bribes       []BribeView      `json:"bribes,omitempty"`
	Outcome      *Outcome         `json:"outcome,omitempty"`
	Payout       map[string]int64 `json:"payout,omitempty"`
}

// RoleVisible reports whether viewerID may see target's role. Everyone sees their own
// role and every ejected player's role; Saboteur-aligned viewers see each other; all
// roles are public once the match ends.
func RoleVisible(s *Session, viewerID string, target *Player) bool {
	if s.Phase == PhaseEnded || target.ID == viewerID || target.Ejected {
		return true
	}
	viewer := s.Player(viewerID)
	if viewer == nil {
		return false
	}
	return viewer.Role.SaboteurAligned() && target.Role.SaboteurAligned()
}

// NewPublicView builds the snapshot for viewerID. Unknown viewers get a spectator view.
func NewPublicView(s *Session, viewerID string) PublicView {
	v := PublicView{
		GameID:       s.ID,
		Viewer:       viewerID,
		Phase:        s.Phase,
		ClockSeconds: seconds(s.Clock.Remaining),
		VaultGold:    s.Vault.Gold,
		MinedGold:    s.Vault.Mined,
		StashGold:    s.Stash.Gold,
		Outcome:      s.Outcome,
		Payout:       s.Payout,
	}

	for _, p := range s.Players {
		pv := PlayerView{
			ID:        p.ID,
			Name:      p.Name,
			Alive:     p.Alive,
			Ejected:   p.Ejected,
			Connected: p.Connected,
			Room:      p.Room,
		}
		if RoleVisible(s, viewerID, p) {
			pv.Role = p.Role
		}
		if p.ID == viewerID && p.Timer != nil {
			pv.Action = p.Timer.Kind
			pv.ActionSeconds = seconds(p.Timer.RemainingAt(s.Now))
			pv.ActionFrozen = p.Timer.Frozen
		}
		v.Players = append(v.Players, pv)
	}

	for _, r := range s.Rooms {
		v.Rooms = append(v.Rooms, RoomView{Name: r.Name, FreeStations: r.FreeStations()})
	}

	if m := s.Meeting; m != nil {
		mv := &MeetingView{
			CallerID:    m.CallerID,
			SecondsLeft: seconds(m.Deadline.Sub(s.Now)),
		}
		for voter := range m.Votes {
			mv.Voted = append(mv.Voted, voter)
		}
		sort.Strings(mv.Voted)
		if vote, ok := m.Votes[viewerID]; ok {
			mv.MyVote = &vote
		}
		v.Meeting = mv
	}

	for _, b := range s.Bribes {
		if b.SaboteurID != viewerID && b.TargetID != viewerID {
			continue
		}
		bv := BribeView{
			ID:         b.ID,
			SaboteurID: b.SaboteurID,
			TargetID:   b.TargetID,
			Amount:     b.Amount,
			State:      b.State,
		}
		if b.State == BribePending {
			bv.Seconds = seconds(b.ExpiresAt.Sub(s.Now))
		}
		v.Bribes = append(v.Bribes, bv)
	}
	return v
}

// seconds rounds d up to whole seconds so a running timer never displays 0 early.
func seconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}

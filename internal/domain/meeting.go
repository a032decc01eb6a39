package domain

import (
	"sort"
	"time"
)

// Abstain is the vote target recorded when a voter declines to pick anyone.
const Abstain = ""

// Meeting is an open emergency meeting. Votes maps voter id to target id; the key's
// presence means the voter has voted, an Abstain value means no target.
type Meeting struct {
	CallerID string
	OpenedAt time.Time
	Deadline time.Time
	Votes    map[string]string
}

// VoteResult is the tally produced when a meeting closes.
type VoteResult struct {
	Counts      map[string]int
	Cast        int
	Abstained   int
	EjectedID   string
	EjectedRole Role
}

// CallMeeting opens a meeting for callerID, pausing the clock and every action timer.
func CallMeeting(s *Session, callerID string) error {
	if s.Phase == PhaseEnded {
		return ErrSessionClosed
	}
	p := s.Player(callerID)
	if p == nil {
		return ErrUnknownPlayer
	}
	if !p.CanAct() {
		return ErrNotAlive
	}
	if s.Phase == PhaseMeeting {
		return Reject(ReasonWrongPhase, "a meeting is already in progress")
	}
	if s.Phase != PhaseActive {
		return Reject(ReasonWrongPhase, "meetings can only be called during play")
	}
	if limit := s.Rules.MeetingsPerPlayer; limit > 0 && p.MeetingsCalled >= limit {
		return Reject(ReasonMeetingLimit, "%d meeting(s) already called", p.MeetingsCalled)
	}

	p.MeetingsCalled++
	FreezeActions(s, s.Now)
	s.Meeting = &Meeting{
		CallerID: callerID,
		OpenedAt: s.Now,
		Deadline: s.Now.Add(s.Rules.MeetingWindow),
		Votes:    make(map[string]string),
	}
	s.Phase = PhaseMeeting
	return nil
}

// CastVote records voterID's vote. Re-voting overwrites the earlier choice.
func CastVote(s *Session, voterID, targetID string) error {
	if s.Phase == PhaseEnded {
		return ErrSessionClosed
	}
	if s.Phase != PhaseMeeting || s.Meeting == nil {
		return Reject(ReasonWrongPhase, "no meeting in progress")
	}
	voter := s.Player(voterID)
	if voter == nil {
		return ErrUnknownPlayer
	}
	if !voter.CanAct() {
		return ErrNotAlive
	}
	if targetID != Abstain {
		if targetID == voterID {
			return Reject(ReasonInvalidTarget, "cannot vote for yourself")
		}
		target := s.Player(targetID)
		if target == nil || !target.CanAct() {
			return Reject(ReasonInvalidTarget, "%q is not an eligible target", targetID)
		}
	}
	s.Meeting.Votes[voterID] = targetID
	return nil
}

// EligibleVoters returns the players still in the game, in roster order.
func EligibleVoters(s *Session) []*Player {
	var out []*Player
	for _, p := range s.Players {
		if p.CanAct() {
			out = append(out, p)
		}
	}
	return out
}

// MeetingDue reports whether the open meeting must close at now: the window expired,
// every eligible voter has voted, or the caller dropped before a quorum formed.
func MeetingDue(s *Session, now time.Time) bool {
	m := s.Meeting
	if s.Phase != PhaseMeeting || m == nil {
		return false
	}
	if !now.Before(m.Deadline) {
		return true
	}
	eligible := EligibleVoters(s)
	voted := 0
	for _, p := range eligible {
		if _, ok := m.Votes[p.ID]; ok {
			voted++
		}
	}
	if voted == len(eligible) {
		return true
	}
	if caller := s.Player(m.CallerID); caller != nil && !caller.Connected {
		return voted*2 <= len(eligible)
	}
	return false
}

// CloseMeeting tallies the votes, ejects the target if it holds a strict majority of
// the votes cast, thaws all actions at now and resumes play.
func CloseMeeting(s *Session, now time.Time) VoteResult {
	m := s.Meeting
	result := VoteResult{Counts: make(map[string]int)}
	if m == nil {
		return result
	}

	// Caller dropped without quorum: the meeting is void.
	abandoned := false
	if caller := s.Player(m.CallerID); caller != nil && !caller.Connected && now.Before(m.Deadline) {
		abandoned = len(m.Votes)*2 <= len(EligibleVoters(s))
	}

	if !abandoned {
		for _, target := range m.Votes {
			result.Cast++
			if target == Abstain {
				result.Abstained++
				continue
			}
			result.Counts[target]++
		}
		if id := majorityTarget(result.Counts, result.Cast); id != "" {
			if p := s.Player(id); p != nil && p.CanAct() {
				p.Alive = false
				p.Ejected = true
				CancelAction(s, p)
				result.EjectedID = p.ID
				result.EjectedRole = p.Role
			}
		}
	}

	s.Meeting = nil
	s.Phase = PhaseActive
	ThawActions(s, now)
	return result
}

// majorityTarget returns the target holding more than half of cast, or "".
func majorityTarget(counts map[string]int, cast int) string {
	targets := make([]string, 0, len(counts))
	for id := range counts {
		targets = append(targets, id)
	}
	sort.Strings(targets)
	for _, id := range targets {
		if counts[id]*2 > cast {
			return id
		}
	}
	return ""
}

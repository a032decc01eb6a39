package app

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"cryptocrew/internal/domain"
)

// SessionManager runs one Sabotage match. It is not safe for concurrent use: the
// hosting transport serializes every call, either on the Nakama match loop or on a
// gateway actor goroutine.
type SessionManager struct {
	session *domain.Session
	rng     *rand.Rand
	log     EventLog
}

// NewSessionManager creates a lobby for gameID. seed drives role assignment and is
// recorded in the audit log so the match can be replayed.
func NewSessionManager(gameID string, rules domain.Rules, seed int64, start time.Time) *SessionManager {
	return &SessionManager{
		session: domain.NewSession(gameID, rules, start),
		rng:     rand.New(rand.NewSource(seed)),
		log: EventLog{
			GameID: gameID,
			Seed:   seed,
			Rules:  rules,
			Start:  start,
		},
	}
}

func (m *SessionManager) GameID() string           { return m.session.ID }
func (m *SessionManager) Phase() domain.Phase      { return m.session.Phase }
func (m *SessionManager) Ended() bool              { return m.session.Phase == domain.PhaseEnded }
func (m *SessionManager) PlayerIDs() []string      { return m.session.PlayerIDs() }
func (m *SessionManager) Outcome() *domain.Outcome { return m.session.Outcome }

// Open reports whether the lobby still accepts joins.
func (m *SessionManager) Open() bool {
	return m.session.Phase == domain.PhaseLobby && len(m.session.Players) < domain.PlayersPerSession
}

// Has reports whether playerID is on the roster.
func (m *SessionManager) Has(playerID string) bool {
	return m.session.Player(playerID) != nil
}

// Snapshot returns the state as playerID is allowed to see it.
func (m *SessionManager) Snapshot(playerID string) domain.PublicView {
	return domain.NewPublicView(m.session, playerID)
}

// Settlement returns the payout request. It is empty until the match has ended.
func (m *SessionManager) Settlement() domain.Settlement {
	return domain.NewSettlement(m.session)
}

// Log returns a copy of the audit log.
func (m *SessionManager) Log() EventLog {
	out := m.log
	out.Entries = append([]LogEntry(nil), m.log.Entries...)
	return out
}

// SubmitEvent validates and applies one command from playerID. A rejected command
// returns a *domain.RejectError and leaves the session untouched.
func (m *SessionManager) SubmitEvent(playerID string, cmd Command) ([]Event, error) {
	if cmd == nil {
		return nil, domain.ErrBadRequest
	}
	payload, err := EncodeCommand(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", cmd.Type(), err)
	}

	events, err := m.apply(playerID, cmd)
	if err != nil {
		return nil, err
	}
	m.log.append(LogEntry{
		At:       m.session.Now,
		Kind:     EntryCommand,
		PlayerID: playerID,
		Command:  cmd.Type(),
		Payload:  payload,
	})
	return append(events, m.checkOutcome()...), nil
}

func (m *SessionManager) apply(playerID string, cmd Command) ([]Event, error) {
	s := m.session
	switch c := cmd.(type) {
	case Join:
		return m.join(playerID, c.Name)

	case Move:
		if err := domain.MovePlayer(s, playerID, c.Room); err != nil {
			return nil, err
		}
		return []Event{{
			Kind:    EventPlayerMoved,
			Payload: PlayerMovedPayload{PlayerID: playerID, Room: c.Room},
		}}, nil

	case StartMine:
		return m.startAction(playerID, domain.ActionMine)

	case StartSteal:
		return m.startAction(playerID, domain.ActionSteal)

	case CallMeeting:
		if err := domain.CallMeeting(s, playerID); err != nil {
			return nil, err
		}
		return []Event{{
			Kind: EventMeetingCalled,
			Payload: MeetingCalledPayload{
				CallerID: playerID,
				Seconds:  int64(s.Rules.MeetingWindow / time.Second),
			},
		}}, nil

	case CastVote:
		if err := domain.CastVote(s, playerID, c.TargetID); err != nil {
			return nil, err
		}
		events := []Event{{
			Kind: EventVoteCast,
			Payload: VoteCastPayload{
				VoterID: playerID,
				Voted:   len(s.Meeting.Votes),
				Needed:  len(domain.EligibleVoters(s)),
			},
		}}
		if domain.MeetingDue(s, s.Now) {
			events = append(events, m.closeMeeting(s.Now)...)
		}
		return events, nil

	case OfferBribe:
		offer, err := domain.OfferBribe(s, playerID, c.TargetID, c.Amount)
		if err != nil {
			return nil, err
		}
		return []Event{{
			Kind: EventBribeOffer,
			Payload: BribeOfferPayload{
				BribeID:    offer.ID,
				SaboteurID: offer.SaboteurID,
				TargetID:   offer.TargetID,
				Amount:     offer.Amount,
				Seconds:    int64(s.Rules.BribeTimeout / time.Second),
			},
			Recipients: []string{offer.TargetID, offer.SaboteurID},
		}}, nil

	case RespondBribe:
		offer, err := domain.RespondBribe(s, playerID, c.BribeID, c.Accept)
		if err != nil {
			return nil, err
		}
		events := []Event{bribeResolved(offer)}
		if offer.State == domain.BribeAccepted {
			events = append(events, m.roleAssigned(s.Player(playerID)))
		}
		return events, nil

	case Disconnect:
		return m.disconnect(playerID)

	case Reconnect:
		if err := domain.SetConnected(s, playerID, true); err != nil {
			return nil, err
		}
		return []Event{connection(playerID, true)}, nil
	}
	return nil, domain.Reject(domain.ReasonBadRequest, "unsupported command %T", cmd)
}

func (m *SessionManager) join(playerID, name string) ([]Event, error) {
	s := m.session
	if err := domain.Join(s, playerID, name); err != nil {
		return nil, err
	}
	p := s.Player(playerID)
	events := []Event{{
		Kind:    EventPlayerJoined,
		Payload: PlayerJoinedPayload{PlayerID: p.ID, Name: p.Name, Seat: len(s.Players)},
	}}
	if len(s.Players) < domain.PlayersPerSession {
		return events, nil
	}

	domain.Start(s, m.rng)
	events = append(events, Event{
		Kind: EventGameStarted,
		Payload: GameStartedPayload{
			Phase:        s.Phase,
			ClockSeconds: int64(s.Clock.Remaining / time.Second),
			Players:      s.PlayerIDs(),
		},
	})
	for _, p := range s.Players {
		events = append(events, m.roleAssigned(p))
	}
	return events, nil
}

func (m *SessionManager) disconnect(playerID string) ([]Event, error) {
	s := m.session
	if s.Phase == domain.PhaseLobby {
		if err := domain.Leave(s, playerID); err != nil {
			return nil, err
		}
		return []Event{{Kind: EventPlayerLeft, Payload: PlayerLeftPayload{PlayerID: playerID}}}, nil
	}
	if err := domain.SetConnected(s, playerID, false); err != nil {
		return nil, err
	}
	events := []Event{connection(playerID, false)}
	if domain.MeetingDue(s, s.Now) {
		events = append(events, m.closeMeeting(s.Now)...)
	}
	return events, nil
}

func (m *SessionManager) startAction(playerID string, kind domain.ActionKind) ([]Event, error) {
	s := m.session
	if err := domain.StartAction(s, playerID, kind); err != nil {
		return nil, err
	}
	p := s.Player(playerID)
	return []Event{{
		Kind: EventActionStarted,
		Payload: ActionStartedPayload{
			PlayerID: playerID,
			Action:   kind,
			Room:     p.Room,
			Seconds:  int64(p.Timer.Duration / time.Second),
		},
		Recipients: []string{playerID},
	}}, nil
}

// Tick advances session time to now. The clock runs only while play is active;
// actions due no later than the end of the match complete in deadline order and the
// win conditions are checked after each one. A meeting whose window lapsed before now
// closes at its deadline and the rest of the interval is played out as active time.
func (m *SessionManager) Tick(now time.Time) []Event {
	s := m.session
	if s.Phase == domain.PhaseEnded {
		return nil
	}
	if now.Before(s.Now) {
		now = s.Now
	}
	m.log.append(LogEntry{At: now, Kind: EntryTick})

	if s.Phase == domain.PhaseLobby {
		s.Now = now
		return nil
	}

	events := m.expireBribes(now)
	if s.Phase == domain.PhaseMeeting {
		if !domain.MeetingDue(s, now) {
			s.Now = now
			return append(events, m.checkOutcome()...)
		}
		closeAt := now
		if d := s.Meeting.Deadline; !d.Before(s.Now) && d.Before(closeAt) {
			closeAt = d
		}
		s.Now = closeAt
		events = append(events, m.closeMeeting(closeAt)...)
		events = append(events, m.checkOutcome()...)
	}
	if s.Phase == domain.PhaseActive {
		events = append(events, m.advance(now)...)
	}
	return append(events, m.checkOutcome()...)
}

// advance runs active play from s.Now to now.
func (m *SessionManager) advance(now time.Time) []Event {
	s := m.session
	elapsed := now.Sub(s.Now)
	cutoff := s.Now.Add(s.Clock.Remaining)
	if now.Before(cutoff) {
		cutoff = now
	}
	s.Now = now

	var events []Event
	for s.Phase != domain.PhaseEnded {
		p := domain.NextDueAction(s, cutoff)
		if p == nil {
			break
		}
		c := domain.CompleteAction(s, p)
		events = append(events, Event{
			Kind:       EventActionCompleted,
			Payload:    ActionCompletedPayload{PlayerID: c.PlayerID, Action: c.Kind, Amount: c.Amount},
			Recipients: []string{c.PlayerID},
		})
		events = append(events, m.checkOutcome()...)
	}
	if s.Phase != domain.PhaseEnded {
		s.Clock.Advance(elapsed)
	}
	return events
}

func (m *SessionManager) expireBribes(now time.Time) []Event {
	var events []Event
	for _, offer := range domain.ExpireBribes(m.session, now) {
		events = append(events, bribeResolved(offer))
	}
	return events
}

func (m *SessionManager) closeMeeting(now time.Time) []Event {
	r := domain.CloseMeeting(m.session, now)
	return []Event{{
		Kind: EventVoteResult,
		Payload: VoteResultPayload{
			Counts:      r.Counts,
			Cast:        r.Cast,
			Abstained:   r.Abstained,
			EjectedID:   r.EjectedID,
			EjectedRole: r.EjectedRole,
		},
	}}
}

// checkOutcome ends the match the first time the evaluator reports an outcome.
func (m *SessionManager) checkOutcome() []Event {
	s := m.session
	if s.Phase == domain.PhaseEnded {
		return nil
	}
	outcome := domain.Evaluate(s)
	if outcome == nil {
		return nil
	}
	domain.Finish(s, *outcome)

	roles := make(map[string]string, len(s.Players))
	for _, p := range s.Players {
		roles[p.ID] = string(p.Role)
	}
	return []Event{{
		Kind: EventGameOver,
		Payload: GameOverPayload{
			Outcome:    *s.Outcome,
			Roles:      roles,
			Payout:     s.Payout,
			Settlement: domain.NewSettlement(s),
		},
	}}
}

func (m *SessionManager) roleAssigned(p *domain.Player) Event {
	var partners []string
	if p.Role.SaboteurAligned() {
		for _, other := range m.session.Players {
			if other.ID != p.ID && other.Role.SaboteurAligned() {
				partners = append(partners, other.ID)
			}
		}
		sort.Strings(partners)
	}
	return Event{
		Kind:       EventRoleAssigned,
		Payload:    RoleAssignedPayload{PlayerID: p.ID, Role: p.Role, Partners: partners, Room: p.Room},
		Recipients: []string{p.ID},
	}
}

func bribeResolved(offer *domain.BribeOffer) Event {
	return Event{
		Kind: EventBribeResolved,
		Payload: BribeResolvedPayload{
			BribeID:    offer.ID,
			SaboteurID: offer.SaboteurID,
			TargetID:   offer.TargetID,
			Amount:     offer.Amount,
			State:      offer.State,
		},
		Recipients: []string{offer.SaboteurID, offer.TargetID},
	}
}

func connection(playerID string, connected bool) Event {
	return Event{
		Kind:    EventPlayerConnection,
		Payload: PlayerConnectionPayload{PlayerID: playerID, Connected: connected},
	}
}

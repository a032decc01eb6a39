package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"cryptocrew/internal/app"
	"cryptocrew/internal/bot"
	"cryptocrew/internal/config"
	"cryptocrew/internal/domain"
	"cryptocrew/internal/ports"
	"cryptocrew/internal/ports/ledger"

	"github.com/heroiclabs/nakama-common/runtime"
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Session   *app.SessionManager         `json:"-"`     // Sabotage engine for this match
	Start     time.Time                   `json:"start"` // Session time at tick 0
	Tick      int64                       `json:"tick"`  // Current tick; one tick is one second of session time
	Presences map[string]runtime.Presence `json:"-"`     // Map UserId -> Presence for targeted messaging
	Sink      ports.PayoutSink            `json:"-"`     // Receives the settlement once the match ends
	Settled   bool                        `json:"settled"`
	EndedTick int64                       `json:"ended_tick"`

	BotsEnabled      bool                  `json:"bots_enabled"`        // Whether AI players may fill the lobby
	BotMinDelay      int                   `json:"bot_min_delay"`       // Min seconds between bot commands
	BotMaxDelay      int                   `json:"bot_max_delay"`       // Max seconds between bot commands
	BotAutoFillDelay int                   `json:"bot_auto_fill_delay"` // Seconds a human waits before bots fill the lobby
	LobbyWaitSince   int64                 `json:"lobby_wait_since"`    // Tick when humans started waiting
	BotWaitUntil     map[string]int64      `json:"-"`                   // Tick when each bot may act again
	Bots             map[string]*bot.Agent `json:"-"`                   // Active bot agents
}

func (ms *MatchState) GetOpenSeatsCount() int {
	if !ms.Session.Open() {
		return 0
	}
	return domain.PlayersPerSession - len(ms.Session.PlayerIDs())
}

func (ms *MatchState) GetHumanPlayerCount() int {
	count := 0
	for userID := range ms.Presences {
		if !ms.isBot(userID) {
			count++
		}
	}
	return count
}

func (ms *MatchState) isBot(userID string) bool {
	_, ok := ms.Bots[userID]
	return ok
}

// now is the session time of the current tick.
func (ms *MatchState) now() time.Time {
	return ms.Start.Add(time.Duration(ms.Tick) * time.Second)
}

// shouldTerminate reports whether the match can be dropped: nobody is connected and
// no result is still owed, or the post-game grace period is over.
func (ms *MatchState) shouldTerminate() bool {
	if ms.Session.Ended() {
		return ms.Settled && (len(ms.Presences) == 0 || ms.Tick-ms.EndedTick >= endGraceTicks)
	}
	return ms.Session.Phase() == domain.PhaseLobby && ms.GetHumanPlayerCount() == 0
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	if err := bot.LoadIdentities("data/bot_identities.json"); err != nil {
		logger.Warn("MatchInit: Could not load bot identities: %v", err)
	}
	if err := config.LoadGameConfig("data/game_config.json"); err != nil {
		logger.Warn("MatchInit: Could not load game config, using defaults: %v", err)
	}

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	cfg := config.GameConfig{}
	if loaded := config.GetGameConfig(); loaded != nil {
		cfg = *loaded
	}
	if err := cfg.ApplyEnv(env); err != nil {
		logger.Warn("MatchInit: Ignoring bad environment override: %v", err)
	}

	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	start := time.Now().UTC()
	seed := start.UnixNano()

	state := &MatchState{
		Session:      app.NewSessionManager(matchID, cfg.Rules(), seed, start),
		Start:        start,
		Presences:    make(map[string]runtime.Presence),
		Bots:         make(map[string]*bot.Agent),
		BotWaitUntil: make(map[string]int64),
	}
	if cfg.LedgerURL != "" {
		state.Sink = ledger.NewClient(cfg.LedgerURL, cfg.LedgerSecret, nil)
	} else {
		state.Sink = NewWalletPayoutSink(nk, state.isBot)
	}
	applyBotEnv(state, env)

	label, err := encodeLabel(state.GetOpenSeatsCount(), domain.PhaseLobby)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	logger.Info("MatchInit: Match %s created (seed=%d, ledger=%t, bots=%t)", matchID, seed, cfg.LedgerURL != "", state.BotsEnabled)

	tickRate := 1 // one tick per second of session time
	return state, tickRate, label
}

// applyBotEnv reads bot settings from the runtime environment.
func applyBotEnv(state *MatchState, env map[string]string) {
	if val, ok := env["sabotage_bots_enabled"]; ok {
		state.BotsEnabled = val == "true"
	}
	if val, ok := env["sabotage_bot_min_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotMinDelay = i
		}
	}
	if val, ok := env["sabotage_bot_max_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotMaxDelay = i
		}
	}
	if val, ok := env["sabotage_bot_auto_fill_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotAutoFillDelay = i
		}
	}

	// Defaults if not set
	if state.BotMinDelay <= 0 {
		state.BotMinDelay = defaultBotMinDelay
	}
	if state.BotMaxDelay < state.BotMinDelay {
		state.BotMaxDelay = max(defaultBotMaxDelay, state.BotMinDelay)
	}
	if state.BotAutoFillDelay <= 0 {
		state.BotAutoFillDelay = defaultBotAutoFillDelay
	}
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	// Seated players may always come back, even mid-match.
	if matchState.Session.Has(presence.GetUserId()) {
		return state, true, ""
	}
	if matchState.Session.Phase() != domain.PhaseLobby {
		return state, false, "Match in progress"
	}
	if matchState.GetOpenSeatsCount() <= 0 {
		return state, false, "Match full"
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		matchState.Presences[userID] = p

		var cmd app.Command = app.Join{Name: p.GetUsername()}
		if matchState.Session.Has(userID) {
			cmd = app.Reconnect{}
		}
		events, err := matchState.Session.SubmitEvent(userID, cmd)
		if err != nil {
			logger.Warn("MatchJoin: User %s could not %s: %v", userID, cmd.Type(), err)
			continue
		}
		mh.broadcastEvents(ctx, matchState, dispatcher, logger, events)
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.sendSnapshots(matchState, dispatcher, logger)

	return matchState
}

// MatchLeave is called when one or more players leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		delete(matchState.Presences, userID)

		events, err := matchState.Session.SubmitEvent(userID, app.Disconnect{})
		if err != nil {
			logger.Debug("MatchLeave: Disconnect for %s ignored: %v", userID, err)
			continue
		}
		logger.Debug("MatchLeave: User %s left during %s.", userID, matchState.Session.Phase())
		mh.broadcastEvents(ctx, matchState, dispatcher, logger, events)
	}

	if matchState.shouldTerminate() {
		logger.Info("MatchLeave: Terminating match with no humans.")
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick
	phase := matchState.Session.Phase()

	for _, msg := range messages {
		mh.handleMessage(ctx, matchState, dispatcher, logger, msg)
	}

	if matchState.BotsEnabled {
		mh.processBots(ctx, matchState, dispatcher, logger)
	}

	mh.broadcastEvents(ctx, matchState, dispatcher, logger, matchState.Session.Tick(matchState.now()))

	if matchState.Session.Ended() && matchState.EndedTick == 0 {
		matchState.EndedTick = tick
	}
	if matchState.Session.Phase() != phase {
		mh.updateLabel(matchState, dispatcher, logger)
	}
	if phase != domain.PhaseLobby && phase != domain.PhaseEnded {
		mh.sendSnapshots(matchState, dispatcher, logger)
	}

	if matchState.shouldTerminate() {
		logger.Info("MatchLoop: Match %s finished, terminating.", matchState.Session.GameID())
		return nil
	}
	return matchState
}

func (mh *matchHandler) handleMessage(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	if msg.GetOpCode() == OpRequestSnapshot {
		mh.sendSnapshot(state, dispatcher, logger, senderID)
		return
	}

	cmd, err := decodeCommand(msg.GetOpCode(), msg.GetData())
	if err != nil {
		logger.Warn("MatchLoop: Bad message from %s (op=%d): %v", senderID, msg.GetOpCode(), err)
		mh.sendError(state, dispatcher, logger, senderID, 400, string(domain.ReasonBadRequest), err.Error())
		return
	}

	events, err := state.Session.SubmitEvent(senderID, cmd)
	if err != nil {
		logger.Debug("MatchLoop: User %s %s rejected: %v", senderID, cmd.Type(), err)
		mh.sendError(state, dispatcher, logger, senderID, 409, string(domain.ReasonOf(err)), err.Error())
		return
	}
	mh.broadcastEvents(ctx, state, dispatcher, logger, events)
}

func (mh *matchHandler) processBots(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	// 1. Fill the lobby once humans have waited long enough.
	if state.Session.Phase() == domain.PhaseLobby {
		if state.GetHumanPlayerCount() == 0 {
			state.LobbyWaitSince = 0
			return
		}
		if state.LobbyWaitSince == 0 {
			state.LobbyWaitSince = state.Tick
			logger.Debug("processBots: Humans waiting, starting auto-fill timer.")
		}
		if state.Tick-state.LobbyWaitSince < int64(state.BotAutoFillDelay) {
			return
		}

		for i := 0; state.Session.Open() && i < 2*domain.PlayersPerSession; i++ {
			identity := bot.GetBotIdentity(i)
			botID := identity.UserID
			if state.Session.Has(botID) {
				continue
			}
			events, err := state.Session.SubmitEvent(botID, app.Join{Name: identity.DisplayName})
			if err != nil {
				logger.Error("processBots: Failed to seat bot %s: %v", botID, err)
				break
			}
			state.Bots[botID] = bot.NewAgent(botID, identity.DisplayName, state.Start.UnixNano()+int64(i))
			logger.Info("processBots: Added bot %s (%s)", identity.Username, botID)
			mh.broadcastEvents(ctx, state, dispatcher, logger, events)
		}
		state.LobbyWaitSince = 0
		mh.updateLabel(state, dispatcher, logger)
		mh.sendSnapshots(state, dispatcher, logger)
		return
	}

	// 2. Let each bot act on its own view, with a human-like delay between commands.
	if state.Session.Ended() {
		return
	}
	botIDs := make([]string, 0, len(state.Bots))
	for id := range state.Bots {
		botIDs = append(botIDs, id)
	}
	sort.Strings(botIDs)

	for _, botID := range botIDs {
		if state.Tick < state.BotWaitUntil[botID] {
			continue
		}
		cmd := state.Bots[botID].Decide(state.Session.Snapshot(botID))
		if cmd == nil {
			continue
		}
		events, err := state.Session.SubmitEvent(botID, cmd)
		if err != nil {
			logger.Debug("processBots: Bot %s %s rejected: %v", botID, cmd.Type(), err)
			continue
		}
		delay := rand.Intn(state.BotMaxDelay-state.BotMinDelay+1) + state.BotMinDelay
		state.BotWaitUntil[botID] = state.Tick + int64(delay)
		mh.broadcastEvents(ctx, state, dispatcher, logger, events)
	}
}

func (mh *matchHandler) broadcastEvents(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
}

// broadcastEvent handles the conversion and dispatching of app events to Nakama.
func (mh *matchHandler) broadcastEvent(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	opCode, data, err := encodeEvent(ev)
	if err != nil {
		logger.Error("Failed to encode event %v: %v", ev.Kind, err)
		return
	}

	if ev.Kind == app.EventGameOver {
		p := ev.Payload.(app.GameOverPayload)
		logger.Info("Event: game_over %s (%s)", p.Outcome.Tag, p.Outcome.Reason)
		mh.settle(ctx, state, logger)
	}

	// Determine recipients (default to broadcast)
	var recipients []runtime.Presence
	if ev.Private() {
		for _, uid := range ev.Recipients {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}

		// Private events for absent players or bots must not leak to everyone else.
		if len(recipients) == 0 {
			return
		}
	}

	if err := dispatcher.BroadcastMessage(opCode, data, recipients, nil, true); err != nil {
		logger.Error("Failed to broadcast %v: %v", ev.Kind, err)
	}
}

// settle hands the settlement to the payout sink. It runs at most once per match and
// does not retry; the ledger deduplicates on the game id.
func (mh *matchHandler) settle(ctx context.Context, state *MatchState, logger runtime.Logger) {
	if state.Settled {
		return
	}
	state.Settled = true

	settlement := state.Session.Settlement()
	if state.Sink == nil {
		logger.Warn("settle: No payout sink for match %s", settlement.GameID)
		return
	}
	if err := state.Sink.SubmitPayout(ctx, settlement); err != nil {
		logger.Error("settle: Payout for match %s failed: %v", settlement.GameID, err)
		return
	}
	logger.Info("settle: Paid %d GC for match %s", settlement.Total(), settlement.GameID)
}

func (mh *matchHandler) sendSnapshots(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	for userID := range state.Presences {
		mh.sendSnapshot(state, dispatcher, logger, userID)
	}
}

// sendSnapshot pushes the role-filtered view to one player.
func (mh *matchHandler) sendSnapshot(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string) {
	presence, ok := state.Presences[userID]
	if !ok {
		return
	}
	data, err := json.Marshal(state.Session.Snapshot(userID))
	if err != nil {
		logger.Error("Failed to marshal snapshot for %s: %v", userID, err)
		return
	}
	dispatcher.BroadcastMessage(OpSnapshot, data, []runtime.Presence{presence}, nil, true)
}

// sendError sends a GameErrorEvent to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, reason, message string) {
	data, err := json.Marshal(GameErrorEvent{Code: code, Reason: reason, Message: message})
	if err != nil {
		logger.Error("Failed to marshal GameErrorEvent: %v", err)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}

	dispatcher.BroadcastMessage(OpGameError, data, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := encodeLabel(state.GetOpenSeatsCount(), state.Session.Phase())
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminated with %d grace seconds", graceSeconds)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}

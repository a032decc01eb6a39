package nakama

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a lobby-capable match.
	RpcQuickMatch = "quick_match"

	// MatchNameSabotage is the authoritative match handler name registered with Nakama.
	MatchNameSabotage = "sabotage_match"

	// MatchLabelGame identifies Sabotage matches in label queries.
	MatchLabelGame = "sabotage"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpRequestSnapshot int64 = 1
	OpMove            int64 = 2
	OpStartMine       int64 = 3
	OpStartSteal      int64 = 4
	OpCallMeeting     int64 = 5
	OpCastVote        int64 = 6
	OpOfferBribe      int64 = 7
	OpRespondBribe    int64 = 8

	// Server -> Client events
	OpPlayerJoined     int64 = 101
	OpPlayerLeft       int64 = 102
	OpPlayerMoved      int64 = 103
	OpGameStarted      int64 = 104
	OpRoleAssigned     int64 = 105 // send privately
	OpActionStarted    int64 = 106 // send privately
	OpActionCompleted  int64 = 107 // send privately
	OpMeetingCalled    int64 = 108
	OpVoteCast         int64 = 109
	OpVoteResult       int64 = 110
	OpBribeOffer       int64 = 111 // send privately
	OpBribeResolved    int64 = 112 // send privately
	OpPlayerConnection int64 = 113
	OpGameOver         int64 = 114
	OpSnapshot         int64 = 120 // send privately
	OpGameError        int64 = 199 // send privately
)

const (
	// endGraceTicks keeps a finished match alive so clients can read the result.
	endGraceTicks = 30

	defaultBotMinDelay      = 1
	defaultBotMaxDelay      = 3
	defaultBotAutoFillDelay = 10
)

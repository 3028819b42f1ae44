package nakama

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a lobby-capable match.
	RpcQuickMatch = "quick_match"
	// RpcMatchHistory lists the caller's recorded match results.
	RpcMatchHistory = "match_history"

	// MatchNamePresidente is the authoritative match handler name registered with Nakama.
	MatchNamePresidente = "presidente_match"

	// GameName is advertised in the match label.
	GameName = "presidente"

	// MatchLabelKey_OpenSeats is the label key holding the number of free seats.
	MatchLabelKey_OpenSeats = "open"

	tickRate = 1 // 1 tick per second; timers below are expressed in ticks
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpPlayCards      int64 = 1
	OpSkipTurn       int64 = 2
	OpRequestState   int64 = 3
	OpRequestNewGame int64 = 4

	// Server -> Client events
	OpState          int64 = 100 // send privately
	OpCardsPlayed    int64 = 101
	OpTurnSkipped    int64 = 102
	OpRoundClosed    int64 = 103
	OpPlayerFinished int64 = 104
	OpMatchEnded     int64 = 105
	OpMatchStarted   int64 = 106
	OpHandDealt      int64 = 107 // send privately
	OpLobbyState     int64 = 108
	OpGameError      int64 = 110 // send privately
)

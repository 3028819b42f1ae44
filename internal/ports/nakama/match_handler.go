package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/rand"
	"strconv"
	"time"

	"presidente/internal/app"
	"presidente/internal/bot"
	"presidente/internal/config"
	"presidente/internal/domain"
	"presidente/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	MatchID              string                      `json:"match_id"`
	Seats                [domain.NumSeats]string     `json:"seats"` // Array of user IDs, empty string means seat is empty
	Names                [domain.NumSeats]string     `json:"names"` // Display names by seat
	Tick                 int64                       `json:"tick"`
	TurnDeadlineTick     int64                       `json:"turn_deadline_tick"`      // Tick at which the current seat is skipped, 0 when off
	BotWaitUntil         int64                       `json:"bot_wait_until"`          // Tick when the bot should act
	LastSinglePlayerTick int64                       `json:"last_single_player_tick"` // Tick when a single player started waiting
	Deals                int                         `json:"deals"`                   // Matches dealt since the Nakama match was created
	Config               config.GameConfig           `json:"config"`
	Presences            map[string]runtime.Presence `json:"-"` // Map UserId -> Presence for targeted messaging
	App                  *app.Service                `json:"-"`
	Game                 *domain.MatchState          `json:"-"` // Current match (nil while in lobby)
	Bots                 map[string]*bot.Agent       `json:"-"`
	Results              ports.ResultsPort           `json:"-"`
}

func (ms *MatchState) GetOpenSeatsCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat == "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) GetHumanPlayerCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat != "" && !bot.IsBot(seat) {
			count++
		}
	}
	return count
}

// resultID keys the stored result of the current deal. A Nakama match hosts
// consecutive deals, so the match id alone is not unique.
func (ms *MatchState) resultID() string {
	return ms.MatchID + "." + strconv.Itoa(ms.Deals)
}

// seatOf returns the seat index of userID or -1.
func (ms *MatchState) seatOf(userID string) int {
	for i, seatUserID := range ms.Seats {
		if seatUserID != "" && seatUserID == userID {
			return i
		}
	}
	return -1
}

type matchHandler struct{}

func newMatchHandler() *matchHandler {
	return &matchHandler{}
}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	if err := config.LoadGameConfig("data/game_config.json"); err != nil {
		logger.Warn("MatchInit: Could not load game config, using defaults: %v", err)
	}

	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	state := &MatchState{
		MatchID:   matchID,
		Config:    config.GetGameConfig(),
		Presences: make(map[string]runtime.Presence),
		App:       app.NewService(nil),
		Bots:      make(map[string]*bot.Agent),
		Results:   NewNakamaResultsAdapter(nk),
	}

	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		applyEnv(&state.Config, env)
	}

	label, err := buildLabel(state.GetOpenSeatsCount(), false)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	return state, tickRate, label
}

// applyEnv overrides game config from the Nakama runtime environment.
func applyEnv(cfg *config.GameConfig, env map[string]string) {
	if val, ok := env["presidente_bots_enabled"]; ok {
		cfg.BotsEnabled = val == "true"
	}
	if val, ok := env["presidente_turn_duration_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil && i >= 0 {
			cfg.TurnDurationSeconds = i
		}
	}
	if val, ok := env["presidente_bot_auto_fill_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil && i >= 0 {
			cfg.BotAutoFillDelaySeconds = i
		}
	}
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	if matchState.Game != nil {
		return state, false, "match_in_progress"
	}
	if matchState.seatOf(presence.GetUserId()) >= 0 {
		return state, false, "already_seated"
	}

	if matchState.GetOpenSeatsCount() == 0 {
		for _, seat := range matchState.Seats {
			if bot.IsBot(seat) {
				return state, true, ""
			}
		}
		return state, false, "match_full"
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}
	matchState.Tick = tick

	for _, p := range presences {
		userID := p.GetUserId()
		matchState.Presences[userID] = p

		if seat := matchState.seatOf(userID); seat >= 0 {
			logger.Debug("MatchJoin: User %s already holds seat %d.", userID, seat)
			continue
		}

		if seat := mh.assignSeat(matchState, userID, p.GetUsername()); seat < 0 {
			logger.Warn("MatchJoin: User %s joined but no seat (empty or bot) was available.", userID)
		}
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastLobby(matchState, dispatcher, logger)
	mh.maybeStart(ctx, matchState, dispatcher, logger)

	return matchState
}

// assignSeat seats a human in the lowest free seat, replacing a bot if the lobby is full.
func (mh *matchHandler) assignSeat(state *MatchState, userID, name string) int {
	for i, seatUserID := range state.Seats {
		if seatUserID == "" {
			state.Seats[i] = userID
			state.Names[i] = name
			return i
		}
	}
	for i, seatUserID := range state.Seats {
		if bot.IsBot(seatUserID) {
			delete(state.Bots, seatUserID)
			state.Seats[i] = userID
			state.Names[i] = name
			return i
		}
	}
	return -1
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

		seat := matchState.seatOf(userID)
		if seat < 0 {
			continue
		}
		// During a match the seat is kept and the turn timer skips for the absent player.
		if matchState.Game == nil {
			matchState.Seats[seat] = ""
			matchState.Names[seat] = ""
			logger.Debug("MatchLeave: User %s left, seat %d freed.", userID, seat)
		}
	}

	if len(matchState.Presences) == 0 {
		logger.Info("MatchLeave: Terminating match with no connected humans.")
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastLobby(matchState, dispatcher, logger)
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	// Messages are applied one at a time; the loop is the only writer of Game.
	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpPlayCards:
			mh.handlePlayCards(ctx, matchState, dispatcher, logger, msg)
		case OpSkipTurn:
			mh.handleSkipTurn(ctx, matchState, dispatcher, logger, msg)
		case OpRequestState:
			if seat := matchState.seatOf(msg.GetUserId()); seat >= 0 && matchState.Game != nil {
				mh.sendState(matchState, dispatcher, logger, seat)
			}
		case OpRequestNewGame:
			mh.handleRequestNewGame(ctx, matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	if matchState.Config.BotsEnabled {
		mh.processBots(ctx, matchState, dispatcher, logger)
	}
	mh.processTurnTimer(ctx, matchState, dispatcher, logger)

	return matchState
}

// maybeStart deals a new match once all four seats are occupied.
func (mh *matchHandler) maybeStart(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.Game != nil || state.GetOpenSeatsCount() > 0 {
		return
	}

	game, events, err := state.App.StartMatch(app.DistinctNames(state.Names))
	if err != nil {
		logger.Error("StartMatch: Failed to start match: %v", err)
		return
	}
	state.Game = game
	state.Deals++
	state.BotWaitUntil = 0
	mh.resetTurnTimer(state)
	mh.updateLabel(state, dispatcher, logger)
	mh.dispatchEvents(ctx, state, dispatcher, logger, events)

	logger.Info("StartMatch: Match started, seat %d leads.", game.CurrentSeat)
}

// handleRequestNewGame deals the next match for a lobby whose seats are all still taken.
func (mh *matchHandler) handleRequestNewGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if state.seatOf(senderID) < 0 {
		logger.Warn("RequestNewGame: User %s is not seated.", senderID)
		return
	}
	if state.Game != nil {
		mh.sendError(state, dispatcher, logger, senderID, 409, "match_in_progress", "a match is already running")
		return
	}
	if open := state.GetOpenSeatsCount(); open > 0 {
		mh.sendError(state, dispatcher, logger, senderID, 409, "seats_open", strconv.Itoa(open)+" seats are still open")
		return
	}

	logger.Info("RequestNewGame: User %s asked for a new match.", senderID)
	mh.maybeStart(ctx, state, dispatcher, logger)
}

func (mh *matchHandler) handlePlayCards(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	senderSeat := state.seatOf(senderID)

	if state.Game == nil {
		logger.Warn("handlePlayCards: Match not started.")
		return
	}

	request, err := decodePlayCards(msg.GetData())
	if err != nil {
		logger.Warn("handlePlayCards: User %s sent a bad payload: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, "bad_request", err.Error())
		return
	}

	mh.applyPlay(ctx, state, dispatcher, logger, senderSeat, request.Cards)
}

func (mh *matchHandler) handleSkipTurn(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	if state.Game == nil {
		logger.Warn("handleSkipTurn: Match not started.")
		return
	}
	mh.applySkip(ctx, state, dispatcher, logger, state.seatOf(msg.GetUserId()))
}

func (mh *matchHandler) applyPlay(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, seat int, cards []domain.Card) {
	events, err := state.App.PlayCards(state.Game, seat, cards)
	if err != nil {
		logger.Warn("applyPlay: Seat %d failed to play %v: %v", seat, cards, err)
		mh.sendRejection(state, dispatcher, logger, seat, err)
		return
	}
	mh.afterAction(ctx, state, dispatcher, logger, events)
}

func (mh *matchHandler) applySkip(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, seat int) {
	events, err := state.App.SkipTurn(state.Game, seat)
	if err != nil {
		logger.Warn("applySkip: Seat %d failed to skip: %v", seat, err)
		mh.sendRejection(state, dispatcher, logger, seat, err)
		return
	}
	mh.afterAction(ctx, state, dispatcher, logger, events)
}

func (mh *matchHandler) afterAction(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	state.BotWaitUntil = 0
	mh.resetTurnTimer(state)
	mh.dispatchEvents(ctx, state, dispatcher, logger, events)
}

// processTurnTimer skips the current seat once its turn has run out.
func (mh *matchHandler) processTurnTimer(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.Game == nil || state.TurnDeadlineTick == 0 || state.Tick < state.TurnDeadlineTick {
		return
	}
	seat := state.Game.CurrentSeat
	logger.Info("processTurnTimer: Seat %d ran out of time, skipping.", seat)
	mh.applySkip(ctx, state, dispatcher, logger, seat)
}

func (mh *matchHandler) resetTurnTimer(state *MatchState) {
	if state.Game == nil || state.Config.TurnDurationSeconds <= 0 {
		state.TurnDeadlineTick = 0
		return
	}
	state.TurnDeadlineTick = state.Tick + int64(state.Config.TurnDurationSeconds*tickRate)
}

func (mh *matchHandler) processBots(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	// 1. Auto-fill lobby with bots if there's only one human player after delay
	if state.Game == nil {
		if state.GetHumanPlayerCount() != 1 {
			state.LastSinglePlayerTick = 0
			return
		}
		if state.LastSinglePlayerTick == 0 {
			state.LastSinglePlayerTick = state.Tick
			logger.Debug("processBots: Single player detected, starting auto-fill timer.")
		}
		if state.Tick-state.LastSinglePlayerTick < int64(state.Config.BotAutoFillDelaySeconds) {
			return
		}

		for i, seat := range state.Seats {
			if seat != "" {
				continue
			}
			identity := bot.GetBotIdentity(i)
			state.Seats[i] = identity.UserID
			state.Names[i] = identity.DisplayName
			state.Bots[identity.UserID] = bot.NewAgent(identity.UserID)
			logger.Info("processBots: Added bot %s to seat %d", identity.UserID, i)
		}
		state.LastSinglePlayerTick = 0
		mh.updateLabel(state, dispatcher, logger)
		mh.broadcastLobby(state, dispatcher, logger)
		mh.maybeStart(ctx, state, dispatcher, logger)
		return
	}

	// 2. Handle bot turns in-game
	if state.Game.Phase != domain.PhasePlaying {
		return
	}
	seat := state.Game.CurrentSeat
	agent, isBotTurn := state.Bots[state.Seats[seat]]
	if !isBotTurn {
		state.BotWaitUntil = 0
		return
	}

	if state.BotWaitUntil == 0 {
		spread := state.Config.BotMaxDelaySeconds - state.Config.BotMinDelaySeconds
		delay := state.Config.BotMinDelaySeconds
		if spread > 0 {
			delay += rand.Intn(spread + 1)
		}
		state.BotWaitUntil = state.Tick + int64(delay)
		logger.Debug("processBots: Bot at seat %d will act at tick %d (current %d)", seat, state.BotWaitUntil, state.Tick)
	}
	if state.Tick < state.BotWaitUntil {
		return
	}

	move, err := agent.Play(state.Game, seat)
	if err != nil {
		logger.Error("processBots: Bot at seat %d failed to calculate move: %v", seat, err)
	}
	if move.Pass {
		mh.applySkip(ctx, state, dispatcher, logger, seat)
	} else {
		mh.applyPlay(ctx, state, dispatcher, logger, seat, move.Cards)
	}
}

// dispatchEvents broadcasts app events, refreshes every seat's private view and
// settles the match once it has ended.
func (mh *matchHandler) dispatchEvents(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	ended := false
	for _, ev := range events {
		mh.broadcastEvent(state, dispatcher, logger, ev)
		if ev.Kind == app.EventMatchEnded {
			ended = true
		}
	}

	if state.Game == nil {
		return
	}
	for seat := range state.Seats {
		mh.sendState(state, dispatcher, logger, seat)
	}

	if ended {
		mh.finishMatch(ctx, state, dispatcher, logger)
	}
}

// finishMatch records the result and returns the match to the lobby.
func (mh *matchHandler) finishMatch(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.Results != nil {
		result := ports.NewMatchResult(state.resultID(), state.Game, state.Seats, bot.IsBot, time.Now())
		if err := state.Results.RecordMatch(ctx, result); err != nil {
			logger.Error("finishMatch: Failed to record result: %v", err)
		}
	}

	state.Game = nil
	state.TurnDeadlineTick = 0
	state.BotWaitUntil = 0

	// Bots and departed players leave with the match; connected humans stay
	// seated for the next one.
	for i, seat := range state.Seats {
		if seat == "" {
			continue
		}
		_, connected := state.Presences[seat]
		if bot.IsBot(seat) || !connected {
			delete(state.Bots, seat)
			state.Seats[i] = ""
			state.Names[i] = ""
		}
	}
	mh.updateLabel(state, dispatcher, logger)
	mh.broadcastLobby(state, dispatcher, logger)
}

// broadcastEvent handles the conversion and dispatching of app events to Nakama.
func (mh *matchHandler) broadcastEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	opCode, ok := eventOpCode(ev.Kind)
	if !ok {
		logger.Warn("Unknown event kind: %v", ev.Kind)
		return
	}

	bytes, err := json.Marshal(ev.Payload)
	if err != nil {
		logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
		return
	}

	// Determine recipients (default to broadcast)
	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, seat := range ev.Recipients {
			if p, ok := state.Presences[state.Seats[seat]]; ok {
				recipients = append(recipients, p)
			}
		}
		// Intended recipients that are not connected (e.g. bots) must not turn into a broadcast.
		if len(recipients) == 0 {
			return
		}
	}

	if err := dispatcher.BroadcastMessage(opCode, bytes, recipients, nil, true); err != nil {
		logger.Error("Failed to broadcast event %v: %v", ev.Kind, err)
	}
}

// sendState sends the redacted view of seat to its connected player.
func (mh *matchHandler) sendState(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, seat int) {
	presence, ok := state.Presences[state.Seats[seat]]
	if !ok || state.Game == nil {
		return
	}
	bytes, err := json.Marshal(state.Game.ViewForSeat(seat))
	if err != nil {
		logger.Error("sendState: Failed to marshal view for seat %d: %v", seat, err)
		return
	}
	if err := dispatcher.BroadcastMessage(OpState, bytes, []runtime.Presence{presence}, nil, true); err != nil {
		logger.Error("sendState: Failed to send view to seat %d: %v", seat, err)
	}
}

func (mh *matchHandler) broadcastLobby(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	bytes, err := json.Marshal(LobbyStatePayload{Seats: state.Seats, Names: state.Names, Playing: state.Game != nil})
	if err != nil {
		logger.Error("broadcastLobby: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(OpLobbyState, bytes, nil, nil, true); err != nil {
		logger.Error("broadcastLobby: Failed to broadcast: %v", err)
	}
}

// sendRejection reports a refused action to the seat that attempted it.
func (mh *matchHandler) sendRejection(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, seat int, err error) {
	if seat < 0 {
		return
	}
	reason, ok := domain.ReasonOf(err)
	if !ok {
		mh.sendError(state, dispatcher, logger, state.Seats[seat], 500, "internal", err.Error())
		return
	}
	mh.sendError(state, dispatcher, logger, state.Seats[seat], 400, string(reason), reason.Error())
}

// sendError sends a GameErrorPayload to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, reason, message string) {
	presence, ok := state.Presences[userID]
	if !ok {
		return
	}
	bytes, err := json.Marshal(GameErrorPayload{Code: code, Reason: reason, Message: message})
	if err != nil {
		logger.Error("Failed to marshal GameErrorPayload: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(OpGameError, bytes, []runtime.Presence{presence}, nil, true); err != nil {
		logger.Error("Failed to send error to %s: %v", userID, err)
	}
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := buildLabel(state.GetOpenSeatsCount(), state.Game != nil)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminating with %d grace seconds", graceSeconds)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}

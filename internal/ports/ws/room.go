package ws

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"presidente/internal/app"
	"presidente/internal/bot"
	"presidente/internal/config"
	"presidente/internal/domain"
	"presidente/internal/ports"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

var (
	ErrRoomFull        = errors.New("room_full")
	ErrMatchInProgress = errors.New("match_in_progress")
	ErrNameTaken       = errors.New("name_taken")
	ErrShuttingDown    = errors.New("shutting_down")
)

const recordTimeout = 5 * time.Second

// Settings tune the timing of every room on a server.
type Settings struct {
	TurnDuration time.Duration // 0 disables the turn timer
	BotsEnabled  bool
	BotMinDelay  time.Duration
	BotMaxDelay  time.Duration
}

// SettingsFromConfig converts the shared game config into room settings.
func SettingsFromConfig(cfg config.GameConfig) Settings {
	return Settings{
		TurnDuration: time.Duration(cfg.TurnDurationSeconds) * time.Second,
		BotsEnabled:  cfg.BotsEnabled,
		BotMinDelay:  time.Duration(cfg.BotMinDelaySeconds) * time.Second,
		BotMaxDelay:  time.Duration(cfg.BotMaxDelaySeconds) * time.Second,
	}
}

// RoomInfo is the public summary returned by GET /rooms.
type RoomInfo struct {
	ID      string `json:"id"`
	Players int    `json:"players"`
	Bots    int    `json:"bots"`
	Playing bool   `json:"playing"`
}

// Room hosts one table of four seats. Every action, timer and bot move is
// applied under mu, so a room is a single-writer match.
type Room struct {
	id       string
	settings Settings
	logger   runtime.Logger
	results  ports.ResultsPort

	mu       sync.Mutex
	rng      *rand.Rand
	svc      *app.Service
	clients  [domain.NumSeats]*client
	names    [domain.NumSeats]string
	bots     [domain.NumSeats]*bot.Agent
	game     *domain.MatchState
	matchID  string
	timer    *time.Timer
	timerGen uint64
	closed   bool
}

func newRoom(id string, settings Settings, logger runtime.Logger, results ports.ResultsPort, rng *rand.Rand) *Room {
	return &Room{
		id:       id,
		settings: settings,
		logger:   logger.WithField("room", id),
		results:  results,
		rng:      rng,
		svc:      app.NewService(rng),
	}
}

// Join seats c in the lowest free seat of the lobby. With fillBots the
// remaining seats are given to bots.
func (r *Room) Join(c *client, fillBots bool) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return -1, ErrShuttingDown
	}
	if r.game != nil {
		return -1, ErrMatchInProgress
	}

	for i, name := range r.names {
		if name == c.name && (r.clients[i] != nil || r.bots[i] != nil) {
			return -1, ErrNameTaken
		}
	}

	seat := -1
	for i := range r.clients {
		if r.clients[i] == nil && r.bots[i] == nil {
			seat = i
			break
		}
	}
	if seat < 0 {
		return -1, ErrRoomFull
	}
	r.clients[seat] = c
	r.names[seat] = c.name
	r.logger.Info("Join: %s took seat %d", c.name, seat)

	if fillBots && r.settings.BotsEnabled {
		r.fillBots()
	}
	r.sendLobby()
	r.maybeStart()
	return seat, nil
}

// Leave removes c from its seat. While a match runs the seat stays in play
// and the turn timer skips it; a match with no connected human left is abandoned.
func (r *Room) Leave(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seat := r.seatOf(c)
	if seat < 0 {
		return
	}
	r.clients[seat] = nil
	c.close()
	if r.game == nil {
		r.names[seat] = ""
	}
	r.logger.Info("Leave: %s left seat %d", c.name, seat)

	if r.game != nil && r.connected() == 0 {
		r.logger.Info("Leave: abandoning match %s with no players connected", r.matchID)
		r.reset()
	}
	r.sendLobby()
}

// Handle applies one client message.
func (r *Room) Handle(c *client, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seat := r.seatOf(c)
	if seat < 0 {
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		r.sendTo(seat, errorMessage("bad_request", err.Error()))
		return
	}
	for _, card := range msg.Cards {
		if !card.Valid() {
			r.sendTo(seat, errorMessage("bad_request", "invalid card"))
			return
		}
	}

	if msg.Type == MsgStart {
		r.requestStart(seat)
		return
	}
	if r.game == nil {
		r.sendTo(seat, errorMessage("no_match", "the match has not started"))
		return
	}

	switch msg.Type {
	case MsgPlay:
		r.apply(seat, func() ([]app.Event, error) { return r.svc.PlayCards(r.game, seat, msg.Cards) })
	case MsgSkip:
		r.apply(seat, func() ([]app.Event, error) { return r.svc.SkipTurn(r.game, seat) })
	case MsgState:
		r.sendView(seat)
	default:
		r.sendTo(seat, errorMessage("bad_request", "unknown message type "+msg.Type))
	}
}

// Close abandons any running match, stops the room timer and disconnects
// every player. A closed room refuses further joins.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	if r.game != nil {
		r.logger.Info("Close: abandoning match %s", r.matchID)
	}
	r.reset()
	for i, c := range r.clients {
		if c != nil {
			c.close()
			r.clients[i] = nil
			r.names[i] = ""
		}
	}
}

// Info summarises the room for listings.
func (r *Room) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := RoomInfo{ID: r.id, Players: r.connected(), Playing: r.game != nil}
	for _, b := range r.bots {
		if b != nil {
			info.Bots++
		}
	}
	return info
}

// Empty reports whether no player is connected.
func (r *Room) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected() == 0
}

func (r *Room) seatOf(c *client) int {
	for i, seated := range r.clients {
		if seated == c {
			return i
		}
	}
	return -1
}

func (r *Room) connected() int {
	n := 0
	for _, c := range r.clients {
		if c != nil {
			n++
		}
	}
	return n
}

func (r *Room) fillBots() {
	for i := range r.clients {
		if r.clients[i] != nil || r.bots[i] != nil {
			continue
		}
		identity := bot.GetBotIdentity(i)
		r.bots[i] = bot.NewAgent(identity.UserID)
		r.names[i] = identity.DisplayName
		r.logger.Debug("fillBots: %s took seat %d", identity.UserID, i)
	}
}

// requestStart deals the next match after one has ended. Free seats go to
// bots when they are enabled.
func (r *Room) requestStart(seat int) {
	if r.game != nil {
		r.sendTo(seat, errorMessage(ErrMatchInProgress.Error(), "a match is already running"))
		return
	}
	if r.settings.BotsEnabled {
		r.fillBots()
	}
	for i := range r.clients {
		if r.clients[i] == nil && r.bots[i] == nil {
			r.sendTo(seat, errorMessage("seats_open", "every seat must be taken to start"))
			return
		}
	}
	r.logger.Info("requestStart: seat %d asked for a new match", seat)
	r.sendLobby()
	r.maybeStart()
}

func (r *Room) maybeStart() {
	for i := range r.clients {
		if r.clients[i] == nil && r.bots[i] == nil {
			return
		}
	}

	game, events, err := r.svc.StartMatch(app.DistinctNames(r.names))
	if err != nil {
		r.logger.Error("maybeStart: %v", err)
		return
	}
	r.game = game
	r.matchID = uuid.NewString()
	r.logger.Info("maybeStart: match %s started, seat %d leads", r.matchID, game.CurrentSeat)
	r.publish(events)
}

func (r *Room) apply(seat int, action func() ([]app.Event, error)) {
	events, err := action()
	if err != nil {
		r.logger.Debug("apply: seat %d rejected: %v", seat, err)
		if reason, ok := domain.ReasonOf(err); ok {
			r.sendTo(seat, errorMessage(string(reason), reason.Error()))
		} else {
			r.sendTo(seat, errorMessage("internal", err.Error()))
		}
		return
	}
	r.publish(events)
}

// publish delivers events, refreshes every private view and then either
// settles the match or arms the next timer.
func (r *Room) publish(events []app.Event) {
	for _, ev := range events {
		msg := ServerMessage{Type: string(ev.Kind), Payload: ev.Payload}
		if len(ev.Recipients) == 0 {
			r.broadcast(msg)
			continue
		}
		for _, seat := range ev.Recipients {
			r.sendTo(seat, msg)
		}
	}
	for seat := range r.clients {
		r.sendView(seat)
	}

	if r.game.Phase == domain.PhaseGameOver {
		r.finish()
		return
	}
	r.schedule()
}

func (r *Room) finish() {
	if r.results != nil {
		var userIDs [domain.NumSeats]string
		for i := range userIDs {
			if r.bots[i] != nil {
				userIDs[i] = r.bots[i].ID
			} else {
				userIDs[i] = "ws:" + r.names[i]
			}
		}
		result := ports.NewMatchResult(r.matchID, r.game, userIDs, bot.IsBot, time.Now())
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		if err := r.results.RecordMatch(ctx, result); err != nil {
			r.logger.Error("finish: failed to record match %s: %v", r.matchID, err)
		}
		cancel()
	}
	r.logger.Info("finish: match %s ended", r.matchID)
	r.reset()
	r.sendLobby()
}

// reset returns the room to the lobby, keeping connected humans seated.
func (r *Room) reset() {
	r.stopTimer()
	r.game = nil
	r.matchID = ""
	for i := range r.clients {
		r.bots[i] = nil
		if r.clients[i] == nil {
			r.names[i] = ""
		}
	}
}

func (r *Room) stopTimer() {
	r.timerGen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// schedule arms a bot move or the human turn timer for the current seat.
func (r *Room) schedule() {
	r.stopTimer()
	gen := r.timerGen
	seat := r.game.CurrentSeat

	if r.bots[seat] != nil {
		delay := r.settings.BotMinDelay
		if spread := r.settings.BotMaxDelay - r.settings.BotMinDelay; spread > 0 {
			delay += time.Duration(r.rng.Int63n(int64(spread) + 1))
		}
		r.timer = time.AfterFunc(delay, func() { r.fire(gen) })
		return
	}
	if r.settings.TurnDuration > 0 {
		r.timer = time.AfterFunc(r.settings.TurnDuration, func() { r.fire(gen) })
	}
}

// fire acts for the current seat: a bot makes its move, a human is skipped.
func (r *Room) fire(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.timerGen || r.game == nil {
		return
	}
	seat := r.game.CurrentSeat

	agent := r.bots[seat]
	if agent == nil {
		r.logger.Info("fire: seat %d ran out of time", seat)
		r.apply(seat, func() ([]app.Event, error) { return r.svc.SkipTurn(r.game, seat) })
		return
	}

	move, err := agent.Play(r.game, seat)
	if err != nil {
		r.logger.Error("fire: bot at seat %d failed: %v", seat, err)
	}
	if move.Pass {
		r.apply(seat, func() ([]app.Event, error) { return r.svc.SkipTurn(r.game, seat) })
	} else {
		r.apply(seat, func() ([]app.Event, error) { return r.svc.PlayCards(r.game, seat, move.Cards) })
	}
}

func (r *Room) sendLobby() {
	names := r.names
	for seat := range r.clients {
		s := seat
		r.sendTo(seat, ServerMessage{Type: MsgLobby, Seat: &s, Names: &names, Playing: r.game != nil})
	}
}

func (r *Room) sendView(seat int) {
	if r.game == nil {
		return
	}
	view := r.game.ViewForSeat(seat)
	r.sendTo(seat, ServerMessage{Type: MsgState, View: &view})
}

func (r *Room) broadcast(msg ServerMessage) {
	for seat := range r.clients {
		r.sendTo(seat, msg)
	}
}

func (r *Room) sendTo(seat int, msg ServerMessage) {
	if seat < 0 || seat >= domain.NumSeats {
		return
	}
	c := r.clients[seat]
	if c == nil {
		return
	}
	data, err := encode(msg)
	if err != nil {
		r.logger.Error("sendTo: marshal %s: %v", msg.Type, err)
		return
	}
	select {
	case c.send <- data:
	default:
		r.logger.Warn("sendTo: dropping %s for slow seat %d", msg.Type, seat)
	}
}

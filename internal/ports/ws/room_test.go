package ws

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"testing"
	"time"

	"presidente/internal/bot"
	"presidente/internal/domain"
	"presidente/internal/logging"
	"presidente/internal/ports"
)

type recordedMessage struct {
	Type    string           `json:"type"`
	Seat    *int             `json:"seat"`
	View    *domain.SeatView `json:"view"`
	Payload json.RawMessage  `json:"payload"`
	Reason  string           `json:"reason"`
}

type mockResults struct {
	mu       sync.Mutex
	recorded []ports.MatchResult
	done     chan struct{}
}

func newMockResults() *mockResults {
	return &mockResults{done: make(chan struct{}, 1)}
}

func (m *mockResults) RecordMatch(ctx context.Context, result ports.MatchResult) error {
	m.mu.Lock()
	m.recorded = append(m.recorded, result)
	m.mu.Unlock()
	select {
	case m.done <- struct{}{}:
	default:
	}
	return nil
}

func (m *mockResults) results() []ports.MatchResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.MatchResult(nil), m.recorded...)
}

func testClient(name string) *client {
	return &client{send: make(chan []byte, 4096), name: name}
}

func testRoom(settings Settings, results ports.ResultsPort) *Room {
	return newRoom("test", settings, logging.New(nil), results, rand.New(rand.NewSource(42)))
}

// drain returns every message queued for c without blocking.
func drain(t *testing.T, c *client) []recordedMessage {
	t.Helper()
	var out []recordedMessage
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return out
			}
			var msg recordedMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("unmarshal %s: %v", data, err)
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func ofType(msgs []recordedMessage, typ string) []recordedMessage {
	var out []recordedMessage
	for _, m := range msgs {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

func seatFour(t *testing.T, room *Room) [domain.NumSeats]*client {
	t.Helper()
	var clients [domain.NumSeats]*client
	for i, name := range []string{"ana", "ben", "cid", "dee"} {
		c := testClient(name)
		seat, err := room.Join(c, false)
		if err != nil {
			t.Fatalf("Join(%s) error = %v", name, err)
		}
		if seat != i {
			t.Fatalf("Join(%s) seat = %d, want %d", name, seat, i)
		}
		clients[i] = c
	}
	return clients
}

func send(t *testing.T, room *Room, c *client, msg ClientMessage) {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	room.Handle(c, data)
}

// playOut drives the running match to its end on behalf of every seat.
func playOut(t *testing.T, room *Room, clients [domain.NumSeats]*client) {
	t.Helper()
	strategy := bot.LowestFirst{}
	for i := 0; i < 2000 && room.game != nil; i++ {
		seat := room.game.CurrentSeat
		move, err := strategy.CalculateMove(room.game.ViewForSeat(seat))
		if err != nil {
			t.Fatalf("CalculateMove() error = %v", err)
		}
		if move.Pass {
			send(t, room, clients[seat], ClientMessage{Type: MsgSkip})
		} else {
			send(t, room, clients[seat], ClientMessage{Type: MsgPlay, Cards: move.Cards})
		}
	}
	if room.game != nil {
		t.Fatalf("match did not finish")
	}
}

func TestRoomStartsWhenFourJoin(t *testing.T) {
	room := testRoom(Settings{}, nil)
	clients := seatFour(t, room)

	if room.game == nil {
		t.Fatalf("match did not start")
	}
	if room.matchID == "" {
		t.Fatalf("match id not assigned")
	}
	for seat, c := range clients {
		msgs := drain(t, c)
		dealt := ofType(msgs, "hand_dealt")
		if len(dealt) != 1 {
			t.Fatalf("seat %d hand_dealt = %d, want 1", seat, len(dealt))
		}
		states := ofType(msgs, MsgState)
		if len(states) == 0 {
			t.Fatalf("seat %d got no state", seat)
		}
		view := states[len(states)-1].View
		if view.Seat != seat || len(view.OwnHand) != domain.HandSize {
			t.Fatalf("seat %d view = seat %d with %d cards", seat, view.Seat, len(view.OwnHand))
		}
	}
}

func TestRoomJoinRefusals(t *testing.T) {
	room := testRoom(Settings{}, nil)
	if _, err := room.Join(testClient("ana"), false); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if _, err := room.Join(testClient("ana"), false); err != ErrNameTaken {
		t.Fatalf("Join(duplicate) error = %v, want %v", err, ErrNameTaken)
	}

	for _, name := range []string{"ben", "cid", "dee"} {
		if _, err := room.Join(testClient(name), false); err != nil {
			t.Fatalf("Join(%s) error = %v", name, err)
		}
	}
	if _, err := room.Join(testClient("eve"), false); err != ErrMatchInProgress {
		t.Fatalf("Join(late) error = %v, want %v", err, ErrMatchInProgress)
	}
}

func TestRoomKeepsSeatAfterLeave(t *testing.T) {
	room := testRoom(Settings{}, nil)
	clients := seatFour(t, room)

	room.Leave(clients[2])
	if room.game == nil {
		t.Fatalf("match abandoned while players remain")
	}
	if room.names[2] != "cid" || room.game.Seats[2].Name != "cid" {
		t.Fatalf("seat 2 lost its player: names %v", room.names)
	}
	if _, err := room.Join(testClient("cid"), false); err != ErrMatchInProgress {
		t.Fatalf("Join(returning) error = %v, want %v", err, ErrMatchInProgress)
	}
	if info := room.Info(); info.Players != 3 || !info.Playing {
		t.Fatalf("Info() = %+v, want 3 players still playing", info)
	}
}

func TestRoomAbandonedWhenEveryoneLeaves(t *testing.T) {
	room := testRoom(Settings{}, nil)
	clients := seatFour(t, room)
	for _, c := range clients {
		room.Leave(c)
	}
	if room.game != nil || !room.Empty() {
		t.Fatalf("room not reset after everyone left")
	}
	if room.names != [domain.NumSeats]string{} {
		t.Fatalf("names = %v, want all cleared", room.names)
	}
}

func TestRoomRejectsOutOfTurn(t *testing.T) {
	room := testRoom(Settings{}, nil)
	clients := seatFour(t, room)
	for _, c := range clients {
		drain(t, c)
	}

	current := room.game.CurrentSeat
	other := (current + 1) % domain.NumSeats
	before := room.game.Clone()

	send(t, room, clients[other], ClientMessage{Type: MsgPlay, Cards: room.game.Seats[other].Hand[:1]})

	errs := ofType(drain(t, clients[other]), MsgError)
	if len(errs) != 1 || errs[0].Reason != string(domain.NotYourTurn) {
		t.Fatalf("errors = %+v, want one %s", errs, domain.NotYourTurn)
	}
	if len(drain(t, clients[current])) != 0 {
		t.Fatalf("rejection leaked to another seat")
	}
	if room.game.CurrentSeat != before.CurrentSeat || len(room.game.Seats[other].Hand) != len(before.Seats[other].Hand) {
		t.Fatalf("rejected play changed the match")
	}
}

func TestRoomBadMessages(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		reason string
	}{
		{name: "NotJSON", data: `nope`, reason: "bad_request"},
		{name: "UnknownType", data: `{"type":"dance"}`, reason: "bad_request"},
		{name: "InvalidCard", data: `{"type":"play","cards":[{"suit":9,"rank":3}]}`, reason: "bad_request"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			room := testRoom(Settings{}, nil)
			clients := seatFour(t, room)
			drain(t, clients[0])

			room.Handle(clients[0], []byte(test.data))
			errs := ofType(drain(t, clients[0]), MsgError)
			if len(errs) != 1 || errs[0].Reason != test.reason {
				t.Fatalf("errors = %+v, want one %s", errs, test.reason)
			}
		})
	}
}

func TestRoomPlayBeforeStart(t *testing.T) {
	room := testRoom(Settings{}, nil)
	c := testClient("ana")
	if _, err := room.Join(c, false); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	drain(t, c)
	send(t, room, c, ClientMessage{Type: MsgSkip})
	if errs := ofType(drain(t, c), MsgError); len(errs) != 1 || errs[0].Reason != "no_match" {
		t.Fatalf("errors = %+v, want no_match", errs)
	}
}

func TestRoomPlaysToCompletion(t *testing.T) {
	results := newMockResults()
	room := testRoom(Settings{}, results)
	clients := seatFour(t, room)

	playOut(t, room, clients)

	recorded := results.results()
	if len(recorded) != 1 {
		t.Fatalf("results = %d, want 1", len(recorded))
	}
	seen := map[int]bool{}
	for _, s := range recorded[0].Seats {
		seen[s.FinishPosition] = true
		if s.IsBot {
			t.Fatalf("seat %d recorded as bot", s.Seat)
		}
	}
	if len(seen) != domain.NumSeats || seen[0] {
		t.Fatalf("finish positions = %v, want 1..4", seen)
	}

	msgs := drain(t, clients[0])
	if len(ofType(msgs, "match_ended")) != 1 {
		t.Fatalf("match_ended not delivered")
	}
	if lobby := ofType(msgs, MsgLobby); len(lobby) == 0 {
		t.Fatalf("no lobby message after match end")
	}
}

func TestRoomTurnTimerAndBots(t *testing.T) {
	results := newMockResults()
	room := testRoom(Settings{TurnDuration: time.Millisecond, BotsEnabled: true}, results)

	human := testClient("solo")
	if _, err := room.Join(human, true); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if info := room.Info(); info.Bots != 3 || !info.Playing {
		t.Fatalf("Info() = %+v, want 3 bots playing", info)
	}

	select {
	case <-results.done:
	case <-time.After(10 * time.Second):
		t.Fatalf("bot match did not finish")
	}

	recorded := results.results()[0]
	bots := 0
	for _, s := range recorded.Seats {
		if s.IsBot {
			bots++
		}
	}
	if bots != 3 {
		t.Fatalf("recorded bots = %d, want 3", bots)
	}
	// The human only ever timed out, so it finished last.
	if recorded.Seats[0].FinishPosition != domain.NumSeats {
		t.Fatalf("human finished %d, want %d", recorded.Seats[0].FinishPosition, domain.NumSeats)
	}

	if info := room.Info(); info.Bots != 0 || info.Playing || info.Players != 1 {
		t.Fatalf("Info() after match = %+v, want lobby with the human only", info)
	}

	send(t, room, human, ClientMessage{Type: MsgStart})
	select {
	case <-results.done:
	case <-time.After(10 * time.Second):
		t.Fatalf("second bot match did not finish")
	}
	if got := len(results.results()); got != 2 {
		t.Fatalf("results = %d, want 2", got)
	}
}

func TestRoomStartsNextMatch(t *testing.T) {
	results := newMockResults()
	room := testRoom(Settings{}, results)
	clients := seatFour(t, room)

	playOut(t, room, clients)
	firstID := results.results()[0].MatchID
	for _, c := range clients {
		drain(t, c)
	}

	send(t, room, clients[2], ClientMessage{Type: MsgStart})
	if room.game == nil {
		t.Fatalf("start did not deal a new match")
	}
	if room.matchID == firstID {
		t.Fatalf("new match reused id %s", firstID)
	}
	if dealt := ofType(drain(t, clients[0]), "hand_dealt"); len(dealt) != 1 {
		t.Fatalf("hand_dealt = %d, want 1", len(dealt))
	}

	playOut(t, room, clients)
	if got := len(results.results()); got != 2 {
		t.Fatalf("results = %d, want 2", got)
	}
}

func TestRoomStartRefusals(t *testing.T) {
	t.Run("MatchRunning", func(t *testing.T) {
		room := testRoom(Settings{}, nil)
		clients := seatFour(t, room)
		drain(t, clients[0])
		game := room.game

		send(t, room, clients[0], ClientMessage{Type: MsgStart})
		if room.game != game {
			t.Fatalf("start replaced a running match")
		}
		if errs := ofType(drain(t, clients[0]), MsgError); len(errs) != 1 || errs[0].Reason != ErrMatchInProgress.Error() {
			t.Fatalf("errors = %+v, want %s", errs, ErrMatchInProgress)
		}
	})

	t.Run("SeatOpen", func(t *testing.T) {
		room := testRoom(Settings{}, nil)
		c := testClient("ana")
		if _, err := room.Join(c, false); err != nil {
			t.Fatalf("Join() error = %v", err)
		}
		drain(t, c)

		send(t, room, c, ClientMessage{Type: MsgStart})
		if room.game != nil {
			t.Fatalf("start dealt with open seats")
		}
		if errs := ofType(drain(t, c), MsgError); len(errs) != 1 || errs[0].Reason != "seats_open" {
			t.Fatalf("errors = %+v, want seats_open", errs)
		}
	})
}

func TestRoomStartsWhenNamesCollideWithBots(t *testing.T) {
	room := testRoom(Settings{BotsEnabled: true, BotMinDelay: time.Hour, BotMaxDelay: time.Hour}, nil)
	t.Cleanup(func() {
		room.mu.Lock()
		room.stopTimer()
		room.mu.Unlock()
	})

	if _, err := room.Join(testClient("Bot Carmen"), false); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if _, err := room.Join(testClient("Bot Carmen (3)"), true); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if room.game == nil {
		t.Fatalf("match did not start")
	}

	seen := map[string]bool{}
	for _, pl := range room.game.Seats {
		if seen[pl.Name] {
			t.Fatalf("duplicate seat name %q", pl.Name)
		}
		seen[pl.Name] = true
	}
}

func TestRoomCloseAbandonsMatch(t *testing.T) {
	results := newMockResults()
	room := testRoom(Settings{TurnDuration: time.Hour}, results)
	clients := seatFour(t, room)
	if room.timer == nil {
		t.Fatalf("turn timer not armed")
	}

	room.Close()

	if room.game != nil || room.timer != nil {
		t.Fatalf("Close() left game=%v timer=%v", room.game != nil, room.timer != nil)
	}
	if !room.Empty() {
		t.Fatalf("Close() left players seated")
	}
	for seat, c := range clients {
		drain(t, c)
		if _, ok := <-c.send; ok {
			t.Fatalf("seat %d send channel still open", seat)
		}
	}
	if _, err := room.Join(testClient("eve"), false); err != ErrShuttingDown {
		t.Fatalf("Join() after Close error = %v, want %v", err, ErrShuttingDown)
	}
	if got := len(results.results()); got != 0 {
		t.Fatalf("results = %d, want none for an abandoned match", got)
	}
}

// Package ws serves Presidente rooms over plain websockets for deployments
// without Nakama.
package ws

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"presidente/internal/ports"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/heroiclabs/nakama-common/runtime"
)

const maxNameLength = 32

// Options configure a Server.
type Options struct {
	Logger         runtime.Logger
	Results        ports.ResultsPort   // optional
	Standings      ports.StandingsPort // optional, enables GET /leaderboard
	Settings       Settings
	AllowedOrigins []string // empty allows every origin
	Seed           int64    // 0 seeds from the clock
}

// Server owns the room registry and the HTTP routes.
type Server struct {
	logger    runtime.Logger
	results   ports.ResultsPort
	standings ports.StandingsPort
	settings  Settings
	origins   map[string]bool
	upgrader  websocket.Upgrader
	router    *mux.Router

	mu     sync.Mutex
	seed   int64
	rooms  map[string]*Room
	closed bool
}

func NewServer(opts Options) *Server {
	s := &Server{
		logger:    opts.Logger,
		results:   opts.Results,
		standings: opts.Standings,
		settings:  opts.Settings,
		origins:   map[string]bool{},
		seed:      opts.Seed,
		rooms:     map[string]*Room{},
	}
	if s.seed == 0 {
		s.seed = time.Now().UnixNano()
	}
	for _, o := range opts.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			s.origins[o] = true
		}
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/rooms", s.handleRooms).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{room}/ws", s.handleWebsocket).Methods(http.MethodGet)
	r.HandleFunc("/leaderboard", s.handleLeaderboard).Methods(http.MethodGet)
	s.router = r
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	// Non-browser clients send no Origin.
	if origin == "" || len(s.origins) == 0 {
		return true
	}
	return s.origins[origin]
}

// joinRoom creates the room on first use and seats c. Rooms are created and
// reaped under s.mu so a join never lands in a discarded room.
func (s *Server) joinRoom(id string, c *client, fillBots bool) (*Room, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, -1, ErrShuttingDown
	}
	room, ok := s.rooms[id]
	if !ok {
		s.seed++
		room = newRoom(id, s.settings, s.logger, s.results, rand.New(rand.NewSource(s.seed)))
		s.rooms[id] = room
	}
	seat, err := room.Join(c, fillBots)
	if err != nil && room.Empty() {
		delete(s.rooms, id)
	}
	return room, seat, err
}

// Close shuts every room and refuses new players. Matches still running are
// abandoned without a result.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	rooms := s.rooms
	s.rooms = map[string]*Room{}
	s.mu.Unlock()

	for id, room := range rooms {
		room.Close()
		s.logger.Debug("Close: room %s closed", id)
	}
}

func (s *Server) reap(id string, room *Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rooms[id] == room && room.Empty() {
		delete(s.rooms, id)
		s.logger.Debug("reap: room %s closed", id)
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["room"]
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" || len(name) > maxNameLength {
		http.Error(w, "name is required (max 32 characters)", http.StatusBadRequest)
		return
	}
	fillBots, _ := strconv.ParseBool(r.URL.Query().Get("bots"))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("handleWebsocket: upgrade failed: %v", err)
		return
	}

	c := newClient(conn, name)
	room, seat, err := s.joinRoom(roomID, c, fillBots)
	if err != nil {
		s.logger.Info("handleWebsocket: %s refused from room %s: %v", name, roomID, err)
		if data, encErr := encode(errorMessage(err.Error(), "cannot join room "+roomID)); encErr == nil {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
		_ = conn.Close()
		return
	}
	s.logger.Debug("handleWebsocket: %s seated at %d in room %s", name, seat, roomID)

	go c.writePump()
	c.readPump(func(data []byte) { room.Handle(c, data) })

	room.Leave(c)
	s.reap(roomID, room)
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room)
	}
	s.mu.Unlock()

	infos := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		infos = append(infos, room.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.standings == nil {
		http.Error(w, "leaderboard not available", http.StatusNotFound)
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	standings, err := s.standings.Leaderboard(r.Context(), limit)
	if err != nil {
		s.logger.Error("handleLeaderboard: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, standings)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

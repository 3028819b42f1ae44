package domain

import (
	"math/rand"
	"sort"
	"time"
)

// NumSeats is the fixed number of players in a match.
const NumSeats = 4

// NoSeat marks an unset seat reference, e.g. the round leader on a clear table.
const NoSeat = -1

// Phase represents the lifecycle stage of a match.
type Phase string

const (
	// PhasePlaying indicates cards are being played.
	PhasePlaying Phase = "playing"
	// PhaseGameOver indicates every finish position has been assigned.
	PhaseGameOver Phase = "game_over"
)

// Player holds the state of one seat.
type Player struct {
	Seat int    `json:"seat"`
	Name string `json:"name"`
	// Hand is a set of cards kept sorted by rank.
	Hand []Card `json:"hand"`
	// FinishPosition is 0 while the player still holds cards, then 1..4.
	FinishPosition int `json:"finish_position"`
}

// Finished reports whether the player has emptied their hand.
func (p *Player) Finished() bool {
	return p.FinishPosition != 0
}

// IsPresidente reports whether the player finished first.
func (p *Player) IsPresidente() bool {
	return p.FinishPosition == 1
}

// MatchState is the authoritative state of one four-player match.
// It is not safe for concurrent use; callers serialise actions per match.
type MatchState struct {
	Seats       [NumSeats]*Player `json:"seats"`
	CurrentSeat int               `json:"current_seat"`
	// TableCards is the standing play, all of one rank. Empty means the table is clear.
	TableCards   []Card         `json:"table_cards"`
	RoundLeader  int            `json:"round_leader"`
	SkippedSeats [NumSeats]bool `json:"skipped_seats"`
	// FinishedCount is the number of players with a finish position.
	FinishedCount int   `json:"finished_count"`
	Phase         Phase `json:"phase"`
	// Pile holds every card played so far; TableCards is its tail.
	Pile []Card `json:"pile"`
}

// NewMatch shuffles a fresh deck, deals thirteen cards to each seat and picks
// a random starting seat. A nil rng is replaced by a time-seeded source.
func NewMatch(names [NumSeats]string, rng *rand.Rand) (*MatchState, error) {
	seen := make(map[string]bool, NumSeats)
	for _, name := range names {
		if name == "" || seen[name] {
			return nil, ErrInvalidPlayers
		}
		seen[name] = true
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	deck := NewDeck()
	Shuffle(rng, deck)
	hands := Deal(deck)

	m := &MatchState{
		CurrentSeat: rng.Intn(NumSeats),
		RoundLeader: NoSeat,
		Phase:       PhasePlaying,
	}
	for seat := range m.Seats {
		m.Seats[seat] = &Player{Seat: seat, Name: names[seat], Hand: hands[seat]}
	}
	return m, nil
}

// PlayCards plays cards from seat onto the table. On rejection the returned
// error is a RejectReason and the state is left untouched.
func (m *MatchState) PlayCards(seat int, cards []Card) error {
	if err := m.validatePlay(seat, cards); err != nil {
		return err
	}

	pl := m.Seats[seat]
	played := append([]Card{}, cards...)
	SortCards(played)

	pl.Hand = removeCards(pl.Hand, played)
	m.TableCards = played
	m.RoundLeader = seat
	m.Pile = append(m.Pile, played...)
	m.clearSkips()

	if len(pl.Hand) == 0 {
		m.finish(pl)
		if m.FinishedCount == NumSeats-1 {
			m.finishLast()
			return nil
		}
		// The player who went out cannot be beaten; the next active seat opens a new round.
		m.clearTable()
	}

	m.advanceTurn()
	return nil
}

// SkipTurn passes the turn of seat. When the turn comes back to the round
// leader, or every other active seat has passed, the leader wins the round:
// the table is cleared and the leader opens the next round.
func (m *MatchState) SkipTurn(seat int) error {
	if !m.isTurnOf(seat) {
		return NotYourTurn
	}

	m.SkippedSeats[seat] = true
	m.advanceTurn()

	if m.RoundLeader == NoSeat {
		// Nobody opened; once every active seat has passed the skips start over.
		if m.allActiveSkipped(NoSeat) {
			m.clearSkips()
		}
		return nil
	}

	if m.CurrentSeat == m.RoundLeader || m.allActiveSkipped(m.RoundLeader) {
		m.closeRound()
	}
	return nil
}

// RoundClosed reports whether the table is clear and no round is in progress.
func (m *MatchState) RoundClosed() bool {
	return len(m.TableCards) == 0 && m.RoundLeader == NoSeat
}

// CurrentPlayer returns the player whose turn it is.
func (m *MatchState) CurrentPlayer() *Player {
	return m.Seats[m.CurrentSeat]
}

// IsGameOver reports whether at most one seat still holds cards.
func (m *MatchState) IsGameOver() bool {
	return m.ActiveSeats() <= 1
}

// ActiveSeats counts players without a finish position.
func (m *MatchState) ActiveSeats() int {
	n := 0
	for _, pl := range m.Seats {
		if !pl.Finished() {
			n++
		}
	}
	return n
}

// Ranking returns the finished players ordered by finish position.
func (m *MatchState) Ranking() []*Player {
	ranked := make([]*Player, 0, m.FinishedCount)
	for _, pl := range m.Seats {
		if pl.Finished() {
			ranked = append(ranked, pl)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].FinishPosition < ranked[j].FinishPosition
	})
	return ranked
}

// Presidente returns the first player to go out, if any.
func (m *MatchState) Presidente() (*Player, bool) {
	for _, pl := range m.Seats {
		if pl.IsPresidente() {
			return pl, true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the state.
func (m *MatchState) Clone() *MatchState {
	out := *m
	for seat, pl := range m.Seats {
		if pl == nil {
			continue
		}
		cp := *pl
		cp.Hand = cloneCards(pl.Hand)
		out.Seats[seat] = &cp
	}
	out.TableCards = cloneCards(m.TableCards)
	out.Pile = cloneCards(m.Pile)
	return &out
}

func cloneCards(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	out := make([]Card, len(cards))
	copy(out, cards)
	return out
}

func (m *MatchState) isTurnOf(seat int) bool {
	if m.Phase != PhasePlaying || seat < 0 || seat >= NumSeats {
		return false
	}
	return seat == m.CurrentSeat && !m.Seats[seat].Finished()
}

// advanceTurn moves CurrentSeat to the next seat still holding cards. The loop
// is bounded by the seat count, so it stops without moving once everyone is out.
func (m *MatchState) advanceTurn() {
	seat := m.CurrentSeat
	for step := 0; step < NumSeats; step++ {
		seat = (seat + 1) % NumSeats
		if !m.Seats[seat].Finished() {
			m.CurrentSeat = seat
			return
		}
	}
}

func (m *MatchState) allActiveSkipped(except int) bool {
	for seat, pl := range m.Seats {
		if seat == except || pl.Finished() {
			continue
		}
		if !m.SkippedSeats[seat] {
			return false
		}
	}
	return true
}

func (m *MatchState) closeRound() {
	leader := m.RoundLeader
	m.clearTable()
	m.clearSkips()
	m.CurrentSeat = leader
}

func (m *MatchState) clearTable() {
	m.TableCards = nil
	m.RoundLeader = NoSeat
}

func (m *MatchState) clearSkips() {
	m.SkippedSeats = [NumSeats]bool{}
}

func (m *MatchState) finish(pl *Player) {
	m.FinishedCount++
	pl.FinishPosition = m.FinishedCount
}

// finishLast gives the one remaining player the last position and ends the match.
func (m *MatchState) finishLast() {
	for _, pl := range m.Seats {
		if !pl.Finished() {
			m.finish(pl)
		}
	}
	m.Phase = PhaseGameOver
}

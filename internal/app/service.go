package app

import (
	"errors"
	"math/rand"
	"time"

	"presidente/internal/domain"
)

// Service contains Presidente use-cases operating on domain state.
type Service struct {
	rng *rand.Rand
}

// NewService constructs a Service with provided rng or a time-seeded default.
func NewService(rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{rng: rng}
}

var (
	ErrNoMatch = errors.New("no match in progress")
)

// StartMatch deals a new match for the four names given in seat order.
func (s *Service) StartMatch(names [domain.NumSeats]string) (*domain.MatchState, []Event, error) {
	m, err := domain.NewMatch(names, s.rng)
	if err != nil {
		return nil, nil, err
	}

	events := make([]Event, 0, domain.NumSeats+1)
	for seat, pl := range m.Seats {
		events = append(events, Event{
			Kind: EventHandDealt,
			Payload: HandDealtPayload{
				Seat: seat,
				Hand: append([]domain.Card{}, pl.Hand...),
			},
			Recipients: []int{seat},
		})
	}
	events = append(events, Event{
		Kind:    EventMatchStarted,
		Payload: MatchStartedPayload{Names: names, FirstTurnSeat: m.CurrentSeat},
	})

	return m, events, nil
}

// PlayCards applies a play and emits the resulting events. Rejections are
// returned unchanged and produce no events.
func (s *Service) PlayCards(m *domain.MatchState, seat int, cards []domain.Card) ([]Event, error) {
	if m == nil {
		return nil, ErrNoMatch
	}
	finishedBefore := m.FinishedCount

	if err := m.PlayCards(seat, cards); err != nil {
		return nil, err
	}

	pl := m.Seats[seat]
	events := []Event{{
		Kind: EventCardsPlayed,
		Payload: CardsPlayedPayload{
			Seat:         seat,
			Cards:        append([]domain.Card{}, m.TableCards...),
			CardsLeft:    len(pl.Hand),
			NextTurnSeat: m.CurrentSeat,
		},
	}}

	if m.FinishedCount > finishedBefore {
		events = append(events, Event{
			Kind:    EventPlayerFinished,
			Payload: PlayerFinishedPayload{Seat: seat, Position: pl.FinishPosition},
		})
	}

	if m.Phase == domain.PhaseGameOver {
		return append(events, matchEndedEvent(m)), nil
	}

	if m.RoundClosed() {
		events = append(events, Event{
			Kind:    EventRoundClosed,
			Payload: RoundClosedPayload{WinnerSeat: domain.NoSeat, LeadSeat: m.CurrentSeat},
		})
	}
	return events, nil
}

// SkipTurn passes the turn for seat and emits the resulting events.
func (s *Service) SkipTurn(m *domain.MatchState, seat int) ([]Event, error) {
	if m == nil {
		return nil, ErrNoMatch
	}
	leader := m.RoundLeader

	if err := m.SkipTurn(seat); err != nil {
		return nil, err
	}

	events := []Event{{
		Kind:    EventTurnSkipped,
		Payload: TurnSkippedPayload{Seat: seat, NextTurnSeat: m.CurrentSeat},
	}}

	if leader != domain.NoSeat && m.RoundClosed() {
		events = append(events, Event{
			Kind:    EventRoundClosed,
			Payload: RoundClosedPayload{WinnerSeat: leader, LeadSeat: m.CurrentSeat},
		})
	}
	return events, nil
}

func matchEndedEvent(m *domain.MatchState) Event {
	ranking := m.Ranking()
	seats := make([]int, len(ranking))
	for i, pl := range ranking {
		seats[i] = pl.Seat
	}
	return Event{
		Kind:    EventMatchEnded,
		Payload: MatchEndedPayload{FinishOrderSeats: seats},
	}
}

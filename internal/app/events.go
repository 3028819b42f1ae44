package app

import "presidente/internal/domain"

// EventKind identifies emitted match events for transport dispatch.
type EventKind string

const (
	EventMatchStarted   EventKind = "match_started"
	EventHandDealt      EventKind = "hand_dealt"
	EventCardsPlayed    EventKind = "cards_played"
	EventTurnSkipped    EventKind = "turn_skipped"
	EventRoundClosed    EventKind = "round_closed"
	EventPlayerFinished EventKind = "player_finished"
	EventMatchEnded     EventKind = "match_ended"
)

// Event is a match event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []int // seats; empty means broadcast
}

type MatchStartedPayload struct {
	Names         [domain.NumSeats]string `json:"names"`
	FirstTurnSeat int                     `json:"first_turn_seat"`
}

type HandDealtPayload struct {
	Seat int           `json:"seat"`
	Hand []domain.Card `json:"hand"`
}

type CardsPlayedPayload struct {
	Seat         int           `json:"seat"`
	Cards        []domain.Card `json:"cards"`
	CardsLeft    int           `json:"cards_left"`
	NextTurnSeat int           `json:"next_turn_seat"`
}

type TurnSkippedPayload struct {
	Seat         int `json:"seat"`
	NextTurnSeat int `json:"next_turn_seat"`
}

// RoundClosedPayload is emitted when the table clears. WinnerSeat is NoSeat
// when the table cleared because the leader went out.
type RoundClosedPayload struct {
	WinnerSeat int `json:"winner_seat"`
	LeadSeat   int `json:"lead_seat"`
}

type PlayerFinishedPayload struct {
	Seat     int `json:"seat"`
	Position int `json:"position"`
}

type MatchEndedPayload struct {
	// FinishOrderSeats lists seats from Presidente to last place.
	FinishOrderSeats []int `json:"finish_order_seats"`
}

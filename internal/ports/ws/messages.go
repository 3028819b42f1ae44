package ws

import (
	"encoding/json"

	"presidente/internal/domain"
)

// Client message types.
const (
	MsgPlay  = "play"
	MsgSkip  = "skip"
	MsgState = "state"
	MsgStart = "start" // deal the next match in a full lobby
)

// Server message types not derived from app events.
const (
	MsgLobby = "lobby"
	MsgError = "error"
)

// ClientMessage is anything a connected player sends.
type ClientMessage struct {
	Type  string        `json:"type"`
	Cards []domain.Card `json:"cards,omitempty"`
}

// ServerMessage is anything the room sends to a player. Only the fields
// relevant to Type are set.
type ServerMessage struct {
	Type    string                   `json:"type"`
	Seat    *int                     `json:"seat,omitempty"`
	View    *domain.SeatView         `json:"view,omitempty"`
	Names   *[domain.NumSeats]string `json:"names,omitempty"`
	Playing bool                     `json:"playing,omitempty"`
	Payload any                      `json:"payload,omitempty"`
	Reason  string                   `json:"reason,omitempty"`
	Message string                   `json:"message,omitempty"`
}

func errorMessage(reason, message string) ServerMessage {
	return ServerMessage{Type: MsgError, Reason: reason, Message: message}
}

func encode(msg ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

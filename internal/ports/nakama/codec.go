package nakama

import (
	"encoding/json"
	"fmt"

	"presidente/internal/app"
	"presidente/internal/domain"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// PlayCardsRequest is the client payload for OpPlayCards.
type PlayCardsRequest struct {
	Cards []domain.Card `json:"cards"`
}

// LobbyStatePayload is broadcast whenever seating changes.
type LobbyStatePayload struct {
	Seats   [domain.NumSeats]string `json:"seats"`
	Names   [domain.NumSeats]string `json:"names"`
	Playing bool                    `json:"playing"`
}

// GameErrorPayload is sent privately to the player whose action was refused.
type GameErrorPayload struct {
	Code    int    `json:"code"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// decodePlayCards parses and sanity checks a play request.
func decodePlayCards(data []byte) (PlayCardsRequest, error) {
	var req PlayCardsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("invalid play request: %w", err)
	}
	for _, c := range req.Cards {
		if !c.Valid() {
			return req, fmt.Errorf("invalid card %+v", c)
		}
	}
	return req, nil
}

// eventOpCode maps an app event to its wire op code.
func eventOpCode(kind app.EventKind) (int64, bool) {
	switch kind {
	case app.EventMatchStarted:
		return OpMatchStarted, true
	case app.EventHandDealt:
		return OpHandDealt, true
	case app.EventCardsPlayed:
		return OpCardsPlayed, true
	case app.EventTurnSkipped:
		return OpTurnSkipped, true
	case app.EventRoundClosed:
		return OpRoundClosed, true
	case app.EventPlayerFinished:
		return OpPlayerFinished, true
	case app.EventMatchEnded:
		return OpMatchEnded, true
	default:
		return 0, false
	}
}

// buildLabel encodes the match label advertised to quick-match queries.
func buildLabel(openSeats int, playing bool) (string, error) {
	phase := "lobby"
	if playing {
		phase = "playing"
	}
	label, err := structpb.NewStruct(map[string]interface{}{
		MatchLabelKey_OpenSeats: openSeats,
		"phase":                 phase,
		"game":                  GameName,
	})
	if err != nil {
		return "", err
	}
	labelBytes, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(label)
	if err != nil {
		return "", err
	}
	return string(labelBytes), nil
}

package domain

import "errors"

// RejectReason is the closed set of reasons an action can be refused.
// Rejections are input errors: state is never modified and the same
// player may simply try again.
type RejectReason string

const (
	NotYourTurn    RejectReason = "not_your_turn"
	CardsNotInHand RejectReason = "cards_not_in_hand"
	MixedRank      RejectReason = "mixed_rank"
	CannotBeat     RejectReason = "cannot_beat"
)

func (r RejectReason) Error() string {
	switch r {
	case NotYourTurn:
		return "not your turn"
	case CardsNotInHand:
		return "cards not in hand"
	case MixedRank:
		return "cards must share one rank"
	case CannotBeat:
		return "play does not beat the table"
	default:
		return string(r)
	}
}

// ErrInvalidPlayers is returned by NewMatch when the names are not four distinct, non-empty strings.
var ErrInvalidPlayers = errors.New("match needs four distinct player names")

// ReasonOf extracts the RejectReason carried by err, if any.
func ReasonOf(err error) (RejectReason, bool) {
	var reason RejectReason
	if errors.As(err, &reason) {
		return reason, true
	}
	return "", false
}

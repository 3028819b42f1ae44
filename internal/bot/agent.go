package bot

import (
	"presidente/internal/domain"
)

// Move represents the decision made by the AI.
type Move struct {
	Pass  bool
	Cards []domain.Card
}

// Brain is the interface that all bot strategies must implement. Strategies
// only ever see the redacted view of their own seat.
type Brain interface {
	CalculateMove(view domain.SeatView) (Move, error)
}

// Agent represents an autonomous bot player.
type Agent struct {
	ID       string
	Name     string
	Strategy Brain
}

// NewAgent creates an agent for the given bot user id with the default strategy.
func NewAgent(userID string) *Agent {
	return &Agent{ID: userID, Name: userID, Strategy: LowestFirst{}}
}

// Play asks the agent to calculate its move for the seat it occupies.
func (a *Agent) Play(m *domain.MatchState, seat int) (Move, error) {
	view := m.ViewForSeat(seat)
	if !view.MyTurn() {
		return Move{Pass: true}, nil
	}
	move, err := a.Strategy.CalculateMove(view)
	if err != nil {
		return Move{Pass: true}, err
	}
	return move, nil
}

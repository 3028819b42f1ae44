package bot

import (
	"presidente/internal/domain"
)

// LowestFirst sheds cards from the bottom: it opens with its lowest rank and
// answers with the cheapest group that beats the table.
type LowestFirst struct{}

// CalculateMove implements Brain.
func (LowestFirst) CalculateMove(view domain.SeatView) (Move, error) {
	groups := groupByRank(view.OwnHand)

	if len(view.TableCards) == 0 {
		for _, r := range domain.Ranks {
			if g := groups[r]; len(g) > 0 {
				return Move{Cards: g}, nil
			}
		}
		return Move{Pass: true}, nil
	}

	need := len(view.TableCards)
	for _, r := range domain.Ranks {
		g := groups[r]
		if len(g) < need {
			continue
		}
		if candidate := g[:need]; domain.CanBeat(view.TableCards, candidate) {
			return Move{Cards: candidate}, nil
		}
	}
	return Move{Pass: true}, nil
}

func groupByRank(hand []domain.Card) map[domain.Rank][]domain.Card {
	groups := make(map[domain.Rank][]domain.Card)
	for _, c := range hand {
		groups[c.Rank] = append(groups[c.Rank], c)
	}
	return groups
}

package domain

// SameRank reports whether cards is non-empty and every card shares one rank.
func SameRank(cards []Card) bool {
	if len(cards) == 0 {
		return false
	}
	r := cards[0].Rank
	for _, c := range cards {
		if c.Rank != r {
			return false
		}
	}
	return true
}

// CanBeat reports whether cards may be played onto table. A clear table accepts
// any same-rank group; otherwise the play must have the same number of cards and
// a strictly higher rank. Both arguments are expected to be same-rank groups.
func CanBeat(table, cards []Card) bool {
	if len(cards) == 0 {
		return false
	}
	if len(table) == 0 {
		return true
	}
	if len(cards) != len(table) {
		return false
	}
	return cards[0].Rank > table[0].Rank
}

// holdsAll reports whether hand contains every card of cards, with no card requested twice.
func holdsAll(hand, cards []Card) bool {
	inHand := make(map[Card]bool, len(hand))
	for _, c := range hand {
		inHand[c] = true
	}
	seen := make(map[Card]bool, len(cards))
	for _, c := range cards {
		if !inHand[c] || seen[c] {
			return false
		}
		seen[c] = true
	}
	return true
}

// removeCards returns hand without the given cards. Callers must have checked holdsAll.
func removeCards(hand, cards []Card) []Card {
	if len(cards) == 0 || len(hand) == 0 {
		return hand
	}

	remove := make(map[Card]bool, len(cards))
	for _, c := range cards {
		remove[c] = true
	}

	updated := make([]Card, 0, len(hand))
	for _, c := range hand {
		if remove[c] {
			continue
		}
		updated = append(updated, c)
	}
	return updated
}

// validatePlay runs the play preconditions in order and returns the first failing reason.
func (m *MatchState) validatePlay(seat int, cards []Card) error {
	if !m.isTurnOf(seat) {
		return NotYourTurn
	}
	if len(cards) == 0 || !holdsAll(m.Seats[seat].Hand, cards) {
		return CardsNotInHand
	}
	if !SameRank(cards) {
		return MixedRank
	}
	if !CanBeat(m.TableCards, cards) {
		return CannotBeat
	}
	return nil
}

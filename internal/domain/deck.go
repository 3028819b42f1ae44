package domain

import "math/rand"

const (
	// DeckSize is the number of cards in a standard deck.
	DeckSize = 52
	// HandSize is the number of cards dealt to each seat.
	HandSize = DeckSize / NumSeats
)

// NewDeck returns the 52-card deck in a fixed order.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, r := range Ranks {
		for _, s := range Suits {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	return deck
}

// Shuffle permutes the deck in place. rand.Rand.Shuffle is a Fisher-Yates
// shuffle, so every ordering is equally likely.
func Shuffle(rng *rand.Rand, deck []Card) {
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
}

// Deal splits a full deck into NumSeats hands of HandSize cards, in seat order.
func Deal(deck []Card) [NumSeats][]Card {
	var hands [NumSeats][]Card
	for seat := 0; seat < NumSeats; seat++ {
		hand := append([]Card{}, deck[seat*HandSize:(seat+1)*HandSize]...)
		SortCards(hand)
		hands[seat] = hand
	}
	return hands
}

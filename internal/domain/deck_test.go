package domain

import (
	"math/rand"
	"testing"
)

func TestNewDeck(t *testing.T) {
	deck := NewDeck()
	if len(deck) != DeckSize {
		t.Fatalf("deck size = %d, want %d", len(deck), DeckSize)
	}

	seen := make(map[Card]bool)
	for _, c := range deck {
		if seen[c] {
			t.Fatalf("duplicate card found: %s", c)
		}
		seen[c] = true
		if !c.Valid() {
			t.Fatalf("invalid card in deck: %+v", c)
		}
	}
}

func TestDealCoversDeck(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	deck := NewDeck()
	Shuffle(rng, deck)
	hands := Deal(deck)

	seen := make(map[Card]int)
	for seat, hand := range hands {
		if len(hand) != HandSize {
			t.Fatalf("seat %d hand size = %d, want %d", seat, len(hand), HandSize)
		}
		for _, c := range hand {
			seen[c]++
		}
	}
	if len(seen) != DeckSize {
		t.Fatalf("dealt %d distinct cards, want %d", len(seen), DeckSize)
	}
	for c, n := range seen {
		if n != 1 {
			t.Fatalf("card %s dealt %d times", c, n)
		}
	}
}

// TestShuffleUniformPositions runs a chi-square test over the positions a few
// cards land in. The seed is fixed so the test is deterministic.
func TestShuffleUniformPositions(t *testing.T) {
	const trials = 5200
	// Well above the p = 0.001 critical value (86.66) for 51 degrees of freedom.
	const critical = 110.0

	rng := rand.New(rand.NewSource(2024))
	tracked := NewDeck()[:4]
	counts := make([][DeckSize]int, len(tracked))

	for i := 0; i < trials; i++ {
		deck := NewDeck()
		Shuffle(rng, deck)
		for pos, c := range deck {
			for k, tc := range tracked {
				if c == tc {
					counts[k][pos]++
				}
			}
		}
	}

	expected := float64(trials) / DeckSize
	for k, tc := range tracked {
		chi := 0.0
		for _, observed := range counts[k] {
			d := float64(observed) - expected
			chi += d * d / expected
		}
		if chi > critical {
			t.Fatalf("card %s position chi-square = %.2f, above %.2f", tc, chi, critical)
		}
	}
}

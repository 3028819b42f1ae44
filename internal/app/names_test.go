package app

import (
	"math/rand"
	"testing"

	"presidente/internal/domain"
)

func TestDistinctNames(t *testing.T) {
	tests := []struct {
		name  string
		names [domain.NumSeats]string
		want  [domain.NumSeats]string
	}{
		{
			name:  "AlreadyUnique",
			names: [domain.NumSeats]string{"a", "b", "c", "d"},
			want:  [domain.NumSeats]string{"a", "b", "c", "d"},
		},
		{
			name:  "Duplicates",
			names: [domain.NumSeats]string{"sam", "sam", "c", "sam"},
			want:  [domain.NumSeats]string{"sam", "sam (2)", "c", "sam (4)"},
		},
		{
			name:  "Empty",
			names: [domain.NumSeats]string{"", "b", "", "d"},
			want:  [domain.NumSeats]string{"Player 1", "b", "Player 3", "d"},
		},
		{
			name:  "SuffixAlreadyTaken",
			names: [domain.NumSeats]string{"Bot Carmen", "Bot Carmen (3)", "Bot Carmen", "Bot Diego"},
			want:  [domain.NumSeats]string{"Bot Carmen", "Bot Carmen (3)", "Bot Carmen (4)", "Bot Diego"},
		},
		{
			name:  "BlankCollidesWithName",
			names: [domain.NumSeats]string{"Player 2", "", "", "Player 3"},
			want:  [domain.NumSeats]string{"Player 2", "Player 2 (2)", "Player 3", "Player 3 (4)"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := DistinctNames(test.names); got != test.want {
				t.Fatalf("DistinctNames() = %v, want %v", got, test.want)
			}
			if _, err := domain.NewMatch(DistinctNames(test.names), rand.New(rand.NewSource(1))); err != nil {
				t.Fatalf("NewMatch(DistinctNames()) error = %v", err)
			}
		})
	}
}

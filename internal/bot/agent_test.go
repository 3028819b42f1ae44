package bot

import (
	"math/rand"
	"reflect"
	"testing"

	"presidente/internal/domain"
)

func TestLowestFirst(t *testing.T) {
	tests := []struct {
		name  string
		hand  string
		table string
		want  string // empty means pass
	}{
		{name: "opens with lowest group", hand: "9C 4D 4S KH", table: "", want: "4D 4S"},
		{name: "cheapest single that beats", hand: "3C 8D JH 2S", table: "7C", want: "8D"},
		{name: "splits a triple to answer a pair", hand: "QC QD QH 3S", table: "10C 10D", want: "QC QD"},
		{name: "passes when nothing beats", hand: "3C 4D 5H", table: "AC", want: ""},
		{name: "passes when count is short", hand: "KC AD 2H", table: "5C 5D", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hand := domain.MustParseCards(tt.hand)
			domain.SortCards(hand)
			view := domain.SeatView{OwnHand: hand, TableCards: domain.MustParseCards(tt.table)}

			move, err := LowestFirst{}.CalculateMove(view)
			if err != nil {
				t.Fatalf("CalculateMove() error: %v", err)
			}
			if tt.want == "" {
				if !move.Pass {
					t.Fatalf("expected pass, got %v", move.Cards)
				}
				return
			}
			want := domain.MustParseCards(tt.want)
			domain.SortCards(want)
			if move.Pass || !reflect.DeepEqual(move.Cards, want) {
				t.Fatalf("move = %+v, want %v", move, want)
			}
		})
	}
}

func TestIdentities(t *testing.T) {
	id := GetBotIdentity(5)
	if !IsBot(id.UserID) {
		t.Fatalf("IsBot(%q) = false", id.UserID)
	}
	if IsBot("8f7c-user") {
		t.Fatalf("human id reported as bot")
	}
	if id.DisplayName == "" {
		t.Fatalf("bot identity should have a display name")
	}
}

// TestBotsFinishMatches lets four bots play complete matches.
func TestBotsFinishMatches(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		m, err := domain.NewMatch([domain.NumSeats]string{"a", "b", "c", "d"}, rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatalf("NewMatch error: %v", err)
		}
		agents := make([]*Agent, domain.NumSeats)
		for seat := range agents {
			agents[seat] = NewAgent(GetBotIdentity(seat).UserID)
		}

		for step := 0; m.Phase == domain.PhasePlaying; step++ {
			if step > 2000 {
				t.Fatalf("seed %d: bots did not finish", seed)
			}
			seat := m.CurrentSeat
			move, err := agents[seat].Play(m, seat)
			if err != nil {
				t.Fatalf("seed %d: Play error: %v", seed, err)
			}
			if move.Pass {
				err = m.SkipTurn(seat)
			} else {
				err = m.PlayCards(seat, move.Cards)
			}
			if err != nil {
				t.Fatalf("seed %d: bot move %+v rejected: %v", seed, move, err)
			}
		}
		if len(m.Ranking()) != domain.NumSeats {
			t.Fatalf("seed %d: ranking has %d players", seed, len(m.Ranking()))
		}
	}
}

func TestAgentPassesOutOfTurn(t *testing.T) {
	m, err := domain.NewMatch([domain.NumSeats]string{"a", "b", "c", "d"}, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("NewMatch error: %v", err)
	}
	other := (m.CurrentSeat + 1) % domain.NumSeats
	move, err := NewAgent("bot-0").Play(m, other)
	if err != nil || !move.Pass {
		t.Fatalf("Play() = %+v, %v; want pass", move, err)
	}
}

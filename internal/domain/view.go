package domain

// SeatView is what one seat is allowed to see: its own hand and only the
// card counts of everyone else.
type SeatView struct {
	Seat            int              `json:"seat"`
	OwnHand         []Card           `json:"own_hand"`
	Names           [NumSeats]string `json:"names"`
	HandCounts      [NumSeats]int    `json:"hand_counts"`
	TableCards      []Card           `json:"table_cards"`
	CurrentSeat     int              `json:"current_seat"`
	RoundLeader     int              `json:"round_leader"`
	SkippedSeats    [NumSeats]bool   `json:"skipped_seats"`
	FinishPositions [NumSeats]int    `json:"finish_positions"`
	Phase           Phase            `json:"phase"`
}

// ViewForSeat builds the redacted view for seat. Out-of-range seats get a
// spectator view with no hand.
func (m *MatchState) ViewForSeat(seat int) SeatView {
	v := SeatView{
		Seat:         seat,
		OwnHand:      []Card{},
		TableCards:   append([]Card{}, m.TableCards...),
		CurrentSeat:  m.CurrentSeat,
		RoundLeader:  m.RoundLeader,
		SkippedSeats: m.SkippedSeats,
		Phase:        m.Phase,
	}
	for i, pl := range m.Seats {
		v.Names[i] = pl.Name
		v.HandCounts[i] = len(pl.Hand)
		v.FinishPositions[i] = pl.FinishPosition
		if i == seat {
			v.OwnHand = append(v.OwnHand, pl.Hand...)
		}
	}
	return v
}

// MyTurn reports whether the viewing seat may act.
func (v SeatView) MyTurn() bool {
	if v.Seat < 0 || v.Seat >= NumSeats {
		return false
	}
	return v.Phase == PhasePlaying && v.CurrentSeat == v.Seat && v.FinishPositions[v.Seat] == 0
}

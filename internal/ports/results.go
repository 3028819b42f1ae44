package ports

import (
	"context"
	"time"

	"presidente/internal/domain"
)

// SeatResult is the outcome of one seat in a finished match.
type SeatResult struct {
	Seat           int    `json:"seat"`
	UserID         string `json:"user_id"`
	Name           string `json:"name"`
	FinishPosition int    `json:"finish_position"`
	IsBot          bool   `json:"is_bot"`
}

// MatchResult is the record written when a match reaches game over.
type MatchResult struct {
	MatchID string                      `json:"match_id"`
	Seats   [domain.NumSeats]SeatResult `json:"seats"`
	EndedAt time.Time                   `json:"ended_at"`
}

// Presidente returns the seat that finished first, if any.
func (r MatchResult) Presidente() (SeatResult, bool) {
	for _, s := range r.Seats {
		if s.FinishPosition == 1 {
			return s, true
		}
	}
	return SeatResult{}, false
}

// ResultsPort persists finished match rankings.
type ResultsPort interface {
	// RecordMatch stores the final ranking of a match.
	RecordMatch(ctx context.Context, result MatchResult) error
}

// NewMatchResult builds a MatchResult from a finished match. userIDs and
// bots are indexed by seat.
func NewMatchResult(matchID string, m *domain.MatchState, userIDs [domain.NumSeats]string, isBot func(string) bool, endedAt time.Time) MatchResult {
	res := MatchResult{MatchID: matchID, EndedAt: endedAt.UTC()}
	for seat, pl := range m.Seats {
		res.Seats[seat] = SeatResult{
			Seat:           seat,
			UserID:         userIDs[seat],
			Name:           pl.Name,
			FinishPosition: pl.FinishPosition,
			IsBot:          isBot != nil && isBot(userIDs[seat]),
		}
	}
	return res
}

// Standing aggregates the recorded results of one human player.
type Standing struct {
	Name          string `json:"name"`
	MatchesPlayed int    `json:"matches_played"`
	Presidente    int    `json:"presidente"`
}

// StandingsPort reads aggregated results back.
type StandingsPort interface {
	Leaderboard(ctx context.Context, limit int) ([]Standing, error)
}

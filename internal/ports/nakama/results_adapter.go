package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"presidente/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const resultsCollection = "presidente_results"

// NakamaResultsAdapter implements ports.ResultsPort using Nakama storage.
// Each human seat gets a read-only copy of the result under its own user.
type NakamaResultsAdapter struct {
	nk runtime.NakamaModule
}

// NewNakamaResultsAdapter creates a new results adapter.
func NewNakamaResultsAdapter(nk runtime.NakamaModule) *NakamaResultsAdapter {
	return &NakamaResultsAdapter{nk: nk}
}

// RecordMatch writes the result for every human seat in one storage call.
func (a *NakamaResultsAdapter) RecordMatch(ctx context.Context, result ports.MatchResult) error {
	value, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal match result: %w", err)
	}

	writes := make([]*runtime.StorageWrite, 0, len(result.Seats))
	for _, seat := range result.Seats {
		if seat.IsBot || seat.UserID == "" {
			continue
		}
		writes = append(writes, &runtime.StorageWrite{
			Collection:      resultsCollection,
			Key:             result.MatchID,
			UserID:          seat.UserID,
			Value:           string(value),
			PermissionRead:  runtime.STORAGE_PERMISSION_OWNER_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		})
	}
	if len(writes) == 0 {
		return nil
	}

	if _, err := a.nk.StorageWrite(ctx, writes); err != nil {
		return fmt.Errorf("failed to store match result %s: %w", result.MatchID, err)
	}
	return nil
}

var _ ports.ResultsPort = (*NakamaResultsAdapter)(nil)

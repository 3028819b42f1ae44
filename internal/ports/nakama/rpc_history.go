package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"presidente/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// MatchHistoryRequest pages through the caller's stored results.
type MatchHistoryRequest struct {
	Limit  int    `json:"limit"`
	Cursor string `json:"cursor"`
}

// MatchHistoryResponse is one page of results, newest storage order first.
type MatchHistoryResponse struct {
	Results []ports.MatchResult `json:"results"`
	Cursor  string              `json:"cursor,omitempty"`
}

func rpcMatchHistory(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", runtime.NewError("no user in context", 16) // UNAUTHENTICATED
	}

	req := MatchHistoryRequest{}
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", runtime.NewError("invalid payload", 3) // INVALID_ARGUMENT
		}
	}
	if req.Limit <= 0 {
		req.Limit = defaultHistoryLimit
	}
	if req.Limit > maxHistoryLimit {
		req.Limit = maxHistoryLimit
	}

	objects, cursor, err := nk.StorageList(ctx, "", userID, resultsCollection, req.Limit, req.Cursor)
	if err != nil {
		logger.Error("MatchHistory [User:%s]: Failed to list results: %v", userID, err)
		return "", err
	}

	resp := MatchHistoryResponse{Results: make([]ports.MatchResult, 0, len(objects)), Cursor: cursor}
	for _, obj := range objects {
		var result ports.MatchResult
		if err := json.Unmarshal([]byte(obj.Value), &result); err != nil {
			logger.Warn("MatchHistory [User:%s]: Skipping unreadable result %s: %v", userID, obj.Key, err)
			continue
		}
		resp.Results = append(resp.Results, result)
	}

	b, err := json.Marshal(resp)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

package db

import (
	"context"
	"encoding/json"

	"freightline/internal/types"
)

// Compile-time assertion that TokenRepository implements TokenSource.
var _ types.TokenSource = (*TokenRepository)(nil)

// TokenRepository resolves push device tokens for organization members.
// Tokens live in a JSONB array on the organization_members row; historical
// writers stored them as bare strings while current writers store objects,
// so decoding goes through types.PushToken which accepts both shapes.
type TokenRepository struct {
	db DBTX
}

// NewTokenRepository creates a TokenRepository backed by the given database
// connection (pool or transaction).
func NewTokenRepository(db DBTX) *TokenRepository {
	return &TokenRepository{db: db}
}

// MessageTokens returns the flattened device token list for the given users
// within an organization. Users with no registered tokens contribute
// nothing; rows whose token payload fails to decode are skipped rather than
// failing the whole resolution.
func (r *TokenRepository) MessageTokens(ctx context.Context, organizationID string, users []types.UserRef) ([]string, error) {
	if len(users) == 0 {
		return nil, nil
	}

	userIDs := make([]string, 0, len(users))
	for _, u := range users {
		userIDs = append(userIDs, u.ID)
	}

	rows, err := r.db.Query(ctx,
		`SELECT message_tokens FROM organization_members
		 WHERE organization_id = $1
		   AND user_id = ANY($2)
		   AND message_tokens IS NOT NULL`,
		organizationID,
		userIDs,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query message tokens", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan message tokens row", err)
		}

		var memberTokens []types.PushToken
		if err := json.Unmarshal(raw, &memberTokens); err != nil {
			continue
		}
		for _, t := range memberTokens {
			if t.Value != "" {
				tokens = append(tokens, t.Value)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating message token rows", err)
	}

	return tokens, nil
}

package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"freightline/internal/types"
)

// Compile-time assertion that NotificationRepository implements the store
// interface consumed by the pipeline.
var _ types.NotificationStore = (*NotificationRepository)(nil)

// NotificationRepository provides data access for the notifications table.
// Recipients are stored denormalized as a JSONB array on the notification
// row: the read path always loads a notification together with its full
// recipient list and never queries recipients independently.
type NotificationRepository struct {
	db    DBTX
	clock types.Clock
}

// NewNotificationRepository creates a NotificationRepository backed by the
// given database connection (pool or transaction).
func NewNotificationRepository(db DBTX, clock types.Clock) *NotificationRepository {
	return &NotificationRepository{db: db, clock: clock}
}

// Create inserts a notification record, generating the prefixed ID and
// setting CreatedAt on the passed record. Meta must already be serialized
// JSON; an empty string is stored as the empty object.
func (r *NotificationRepository) Create(ctx context.Context, n *types.NotificationRecord) error {
	if n.ID == "" {
		n.ID = "ntf_" + uuid.NewString()
	}

	recipients, err := json.Marshal(n.Recipients)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to encode recipients", err)
	}

	meta := n.Meta
	if meta == "" {
		meta = "{}"
	}

	row := r.db.QueryRow(ctx,
		`INSERT INTO notifications
		 (id, organization_id, kind, target_id, subject, message, meta, recipients, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		n.ID,
		n.OrganizationID,
		string(n.Kind),
		n.TargetID,
		n.Subject,
		n.Message,
		meta,
		recipients,
		r.clock.Now().UTC(),
	)
	if err := row.Scan(&n.CreatedAt); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create notification", err)
	}
	return nil
}

// ListByRecipient retrieves notifications addressed to a user within an
// organization, newest first. Used by the dispatch API's history endpoint.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, organizationID, userID string, limit int) ([]*types.NotificationRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, organization_id, kind, target_id, subject, message, meta, recipients, created_at
		 FROM notifications
		 WHERE organization_id = $1
		   AND recipients @> $2::jsonb
		 ORDER BY created_at DESC
		 LIMIT $3`,
		organizationID,
		recipientFilter(userID),
		limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list notifications", err)
	}
	defer rows.Close()

	var results []*types.NotificationRecord
	for rows.Next() {
		var (
			n          types.NotificationRecord
			kind       string
			recipients []byte
			createdAt  time.Time
		)
		if err := rows.Scan(&n.ID, &n.OrganizationID, &kind, &n.TargetID,
			&n.Subject, &n.Message, &n.Meta, &recipients, &createdAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan notification row", err)
		}
		n.Kind = types.Kind(kind)
		n.CreatedAt = createdAt
		if err := json.Unmarshal(recipients, &n.Recipients); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to decode recipients", err)
		}
		results = append(results, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating notification rows", err)
	}

	return results, nil
}

// DeleteBefore hard-deletes notifications older than the cutoff time. Used
// for retention cleanup. Returns the count of deleted records.
func (r *NotificationRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM notifications WHERE created_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to delete old notifications", err)
	}
	return tag.RowsAffected(), nil
}

// recipientFilter builds the JSONB containment argument matching a
// recipient entry for the given user.
func recipientFilter(userID string) []byte {
	b, _ := json.Marshal([]types.Recipient{types.NewRecipient(userID)})
	return b
}

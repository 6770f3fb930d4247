package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"freightline/internal/notifications/pipeline"
	"freightline/internal/types"
)

// Dispatcher is the pipeline surface the API drives.
type Dispatcher interface {
	Dispatch(ctx context.Context, evt types.NotificationEvent, opts pipeline.Options) error
}

// HistorySource reads persisted notifications for the history endpoint.
type HistorySource interface {
	ListByRecipient(ctx context.Context, organizationID, userID string, limit int) ([]*types.NotificationRecord, error)
}

// dispatchRequest is the body of POST /v1/notifications/dispatch. Payload
// stays raw until the kind routes it to a variant.
type dispatchRequest struct {
	Kind           types.Kind      `json:"type"`
	OrganizationID string          `json:"organizationId"`
	TargetID       string          `json:"targetId"`
	CreatedByID    string          `json:"createdById"`
	Payload        json.RawMessage `json:"payload,omitempty"`

	Receivers           []types.Recipient `json:"receivers,omitempty"`
	RoleNames           []string          `json:"roleNames,omitempty"`
	ExcludeParticipants bool              `json:"excludeParticipants,omitempty"`
}

// handleDispatch validates and runs one dispatch synchronously. The response
// is 202: the record is persisted when the call returns, but delivery is
// still in flight.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, r, err)
		return
	}

	if !req.Kind.Valid() {
		Error(w, r, types.NewAppError(types.ErrCodeValidationUnknownKind,
			"unknown notification kind", nil))
		return
	}
	if req.OrganizationID == "" || req.TargetID == "" || req.CreatedByID == "" {
		Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField,
			"organizationId, targetId and createdById are required", nil))
		return
	}

	payload, err := types.DecodeEventPayload(req.Kind, req.Payload)
	if err != nil {
		Error(w, r, types.NewAppError(types.ErrCodeValidationBadPayload,
			"malformed event payload", err))
		return
	}

	err = s.dispatcher.Dispatch(r.Context(), types.NotificationEvent{
		Kind:           req.Kind,
		OrganizationID: req.OrganizationID,
		TargetID:       req.TargetID,
		CreatedByID:    req.CreatedByID,
		Payload:        payload,
	}, pipeline.Options{
		Receivers:           req.Receivers,
		RoleNames:           req.RoleNames,
		AuthToken:           bearerToken(r),
		ExcludeParticipants: req.ExcludeParticipants,
	})
	if err != nil {
		Error(w, r, err)
		return
	}

	JSON(w, r, http.StatusAccepted, APIResponse{Data: map[string]string{
		"status": "accepted",
	}})
}

// handleHistory lists persisted notifications addressed to a user.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	organizationID := r.URL.Query().Get("organization_id")
	userID := r.URL.Query().Get("user_id")
	if organizationID == "" || userID == "" {
		Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField,
			"organization_id and user_id are required", nil))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	records, err := s.history.ListByRecipient(r.Context(), organizationID, userID, limit)
	if err != nil {
		Error(w, r, err)
		return
	}

	JSON(w, r, http.StatusOK, APIResponse{Data: records})
}

// handleHealth reports process liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// bearerToken extracts the Bearer token from the Authorization header,
// returning "" when absent. Dispatches without a token skip push delivery
// and run directory lookups unauthenticated.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):]
	}
	return ""
}

package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// UserRef identifies a platform user.
type UserRef struct {
	ID string `json:"id"`
}

// Recipient is a user who should receive a given notification.
// Identity is the user id.
type Recipient struct {
	User UserRef `json:"user"`
}

// NewRecipient builds a Recipient from a user id.
func NewRecipient(userID string) Recipient {
	return Recipient{User: UserRef{ID: userID}}
}

// NotificationRecord is the persisted notification. It is created exactly
// once per dispatched event, before any delivery attempt, and is immutable
// thereafter; delivery failures never roll it back.
type NotificationRecord struct {
	ID             string      `json:"id" db:"id"`
	OrganizationID string      `json:"organization_id" db:"organization_id"`
	Kind           Kind        `json:"type" db:"type"`
	TargetID       string      `json:"target_id" db:"target_id"`
	Subject        string      `json:"subject" db:"subject"` // translation key, not rendered text
	Message        string      `json:"message" db:"message"` // translation key, not rendered text
	Meta           string      `json:"meta" db:"meta"`       // serialized Meta bag
	Recipients     []Recipient `json:"recipients" db:"recipients"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
}

// EntityData is the notification-relevant slice of a directory entity
// (customer, route, unit of measure).
type EntityData struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// TripDisplayRules are the organization-level visibility switches applied to
// trip pending-confirmation notifications.
type TripDisplayRules struct {
	ShowCustomer bool `json:"showCustomer"`
	ShowRoute    bool `json:"showRoute"`
}

// OrderTripSnapshot is the order-level customer/route snapshot resolved for
// a trip entering pending confirmation.
type OrderTripSnapshot struct {
	Customer     EntityData   `json:"customer"`
	CustomerType CustomerType `json:"customerType"`
	Route        EntityData   `json:"route"`
	RouteType    RouteType    `json:"routeType"`
}

// Enrichment is the contextual data resolved ahead of content generation.
// Meta carries resolved names/codes to merge into the notification bag; the
// remaining fields drive the generator's branching for trip
// pending-confirmation events. A nil *Enrichment means "nothing to enrich".
type Enrichment struct {
	Meta         Meta
	RouteType    RouteType
	Confidential bool
	DisplayRules *TripDisplayRules
}

// PushToken is a device push token as stored by the settings service. The
// store historically holds either raw token strings or {"token": "..."}
// wrapper objects; UnmarshalJSON normalizes both shapes at the data-access
// boundary so the rest of the pipeline only ever sees flat strings.
type PushToken struct {
	Value string
}

// UnmarshalJSON accepts "tok" and {"token":"tok"}.
func (t *PushToken) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.Value = s
		return nil
	}
	var wrapper struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return fmt.Errorf("PushToken: unsupported token shape: %w", err)
	}
	t.Value = wrapper.Token
	return nil
}

// MarshalJSON writes the normalized flat-string form.
func (t PushToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Value)
}

// Organization setting keys read by the pipeline.
const (
	SettingOrderConsolidationEnabled = "order_consolidation_enabled"
	SettingTripInfoConfidential      = "is_new_trip_info_confidential"
	SettingTripDisplayRules          = "trip_details_display_rules"
)

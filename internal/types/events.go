package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies which business event triggered a notification. The set is
// closed: every Kind has exactly one payload variant, and the content
// generator switches exhaustively over the variant types.
type Kind string

const (
	KindNewOrder                       Kind = "NEW_ORDER"
	KindOrderStatusChanged             Kind = "ORDER_STATUS_CHANGED"
	KindOrderGroupStatusChanged        Kind = "ORDER_GROUP_STATUS_CHANGED"
	KindTripStatusChanged              Kind = "TRIP_STATUS_CHANGED"
	KindTripNewMessage                 Kind = "TRIP_NEW_MESSAGE"
	KindVehicleDocumentDriverReminder  Kind = "VEHICLE_DOCUMENT_DRIVER_REMINDER"
	KindVehicleDocumentOperatorReminder Kind = "VEHICLE_DOCUMENT_OPERATOR_REMINDER"
	KindBillOfLadingReceived           Kind = "BILL_OF_LADING_RECEIVED"
	KindNewOrderParticipant            Kind = "NEW_ORDER_PARTICIPANT"
	KindDeleteOrder                    Kind = "DELETE_ORDER"
	KindDriverExpenseReceived          Kind = "DRIVER_EXPENSE_RECEIVED"
	KindOrderGroupCloseToExpire        Kind = "ORDER_GROUP_CLOSE_TO_EXPIRE"
)

// Valid reports whether k is one of the closed set of notification kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindNewOrder, KindOrderStatusChanged, KindOrderGroupStatusChanged,
		KindTripStatusChanged, KindTripNewMessage,
		KindVehicleDocumentDriverReminder, KindVehicleDocumentOperatorReminder,
		KindBillOfLadingReceived, KindNewOrderParticipant, KindDeleteOrder,
		KindDriverExpenseReceived, KindOrderGroupCloseToExpire:
		return true
	}
	return false
}

// KeyFragment returns the kind lowercased for use in translation key paths,
// e.g. NEW_ORDER -> "new_order".
func (k Kind) KeyFragment() string {
	return strings.ToLower(string(k))
}

// CustomerType distinguishes contracted (fixed) customers from one-off
// (casual) customers. Casual customers carry their display name on the event
// payload itself; fixed customers are resolved via a directory lookup.
type CustomerType string

const (
	CustomerFixed  CustomerType = "FIXED"
	CustomerCasual CustomerType = "CASUAL"
)

// RouteType distinguishes routes registered in the route catalog (fixed)
// from ad-hoc routes entered free-form on the order.
type RouteType string

const (
	RouteFixed    RouteType = "FIXED"
	RouteNonFixed RouteType = "NON_FIXED"
)

// TripStatusPendingConfirmation is the trip status that activates the
// confidentiality and display-rule overrides in the content generator.
const TripStatusPendingConfirmation = "PENDING_CONFIRMATION"

// EventPayload is the closed tagged union of per-kind event payloads.
// One struct implements it per Kind.
type EventPayload interface {
	// EventKind returns the Kind tag of this variant.
	EventKind() Kind

	// BaseMeta returns the payload's own contribution to the notification
	// metadata bag, before enrichment and generator adjustments.
	BaseMeta() Meta
}

// CustomerRef identifies a customer on an inbound event.
type CustomerRef struct {
	ID   string       `json:"id"`
	Type CustomerType `json:"type"`
	Name string       `json:"name,omitempty"`
}

// RouteRef identifies a route on an inbound event.
type RouteRef struct {
	ID   string    `json:"id"`
	Type RouteType `json:"type"`
}

// UnitRef identifies a unit of measure on an inbound event.
type UnitRef struct {
	ID string `json:"id"`
}

// NewOrderPayload carries the data for a NEW_ORDER notification.
type NewOrderPayload struct {
	OrderCode string      `json:"orderCode"`
	Customer  CustomerRef `json:"customer"`
	Route     RouteRef    `json:"route"`
	Unit      UnitRef     `json:"unit"`
	Quantity  float64     `json:"quantity,omitempty"`
}

func (NewOrderPayload) EventKind() Kind { return KindNewOrder }

func (p NewOrderPayload) BaseMeta() Meta {
	m := Meta{}
	m.Set("orderCode", p.OrderCode)
	if p.Quantity != 0 {
		m.Set("quantity", p.Quantity)
	}
	return m
}

// OrderStatusChangedPayload carries the data for an ORDER_STATUS_CHANGED
// notification. GroupCode is set when the order belongs to a consolidation
// group.
type OrderStatusChangedPayload struct {
	OrderCode string `json:"orderCode"`
	GroupCode string `json:"groupCode,omitempty"`
	Status    string `json:"status"`
}

func (OrderStatusChangedPayload) EventKind() Kind { return KindOrderStatusChanged }

func (p OrderStatusChangedPayload) BaseMeta() Meta {
	m := Meta{}
	m.Set("orderCode", p.OrderCode)
	m.Set("status", p.Status)
	return m
}

// OrderGroupStatusChangedPayload carries the data for an
// ORDER_GROUP_STATUS_CHANGED notification.
type OrderGroupStatusChangedPayload struct {
	GroupCode string `json:"groupCode"`
	Status    string `json:"status"`
}

func (OrderGroupStatusChangedPayload) EventKind() Kind { return KindOrderGroupStatusChanged }

func (p OrderGroupStatusChangedPayload) BaseMeta() Meta {
	m := Meta{}
	m.Set("groupCode", p.GroupCode)
	m.Set("status", p.Status)
	return m
}

// TripStatusChangedPayload carries the data for a TRIP_STATUS_CHANGED
// notification. OrderID keys the pending-confirmation enrichment lookup.
type TripStatusChangedPayload struct {
	OrderID   string `json:"orderId"`
	OrderCode string `json:"orderCode"`
	TripCode  string `json:"tripCode"`
	GroupCode string `json:"groupCode,omitempty"`
	Status    string `json:"status"`
}

func (TripStatusChangedPayload) EventKind() Kind { return KindTripStatusChanged }

func (p TripStatusChangedPayload) BaseMeta() Meta {
	m := Meta{}
	m.Set("orderCode", p.OrderCode)
	m.Set("tripCode", p.TripCode)
	m.Set("status", p.Status)
	return m
}

// TripNewMessagePayload carries the data for a TRIP_NEW_MESSAGE notification.
// Text is empty for pure file messages; AttachmentCount is zero for pure
// text messages.
type TripNewMessagePayload struct {
	OrderCode       string `json:"orderCode"`
	TripCode        string `json:"tripCode"`
	Text            string `json:"text,omitempty"`
	AttachmentCount int    `json:"attachmentCount,omitempty"`
}

func (TripNewMessagePayload) EventKind() Kind { return KindTripNewMessage }

func (p TripNewMessagePayload) BaseMeta() Meta {
	m := Meta{}
	m.Set("orderCode", p.OrderCode)
	m.Set("tripCode", p.TripCode)
	if p.AttachmentCount > 0 {
		m.Set("attachmentCount", p.AttachmentCount)
	}
	return m
}

// VehicleDocumentReminderPayload carries the data for the two vehicle
// document expiry reminders (driver and operator variants). Expiry fields
// hold preformatted dates; an empty string means the document is not close
// to expiry.
type VehicleDocumentReminderPayload struct {
	Reminder                  Kind   `json:"-"`
	VehicleCode               string `json:"vehicleCode"`
	TechnicalSafetyExpiresAt  string `json:"technicalSafetyExpiresAt,omitempty"`
	LiabilityInsuranceExpiresAt string `json:"liabilityInsuranceExpiresAt,omitempty"`
}

func (p VehicleDocumentReminderPayload) EventKind() Kind {
	if p.Reminder == KindVehicleDocumentOperatorReminder {
		return KindVehicleDocumentOperatorReminder
	}
	return KindVehicleDocumentDriverReminder
}

func (p VehicleDocumentReminderPayload) BaseMeta() Meta {
	m := Meta{}
	m.Set("vehicleCode", p.VehicleCode)
	return m
}

// BillOfLadingReceivedPayload carries the data for a BILL_OF_LADING_RECEIVED
// notification.
type BillOfLadingReceivedPayload struct {
	OrderCode string `json:"orderCode"`
	TripCode  string `json:"tripCode,omitempty"`
}

func (BillOfLadingReceivedPayload) EventKind() Kind { return KindBillOfLadingReceived }

func (p BillOfLadingReceivedPayload) BaseMeta() Meta {
	m := Meta{}
	m.Set("orderCode", p.OrderCode)
	m.Set("tripCode", p.TripCode)
	return m
}

// NewOrderParticipantPayload carries the data for a NEW_ORDER_PARTICIPANT
// notification.
type NewOrderParticipantPayload struct {
	OrderCode       string `json:"orderCode"`
	ParticipantName string `json:"participantName,omitempty"`
}

func (NewOrderParticipantPayload) EventKind() Kind { return KindNewOrderParticipant }

func (p NewOrderParticipantPayload) BaseMeta() Meta {
	m := Meta{}
	m.Set("orderCode", p.OrderCode)
	m.Set("participantName", p.ParticipantName)
	return m
}

// DeleteOrderPayload carries the data for a DELETE_ORDER notification.
type DeleteOrderPayload struct {
	OrderCode string `json:"orderCode"`
}

func (DeleteOrderPayload) EventKind() Kind { return KindDeleteOrder }

func (p DeleteOrderPayload) BaseMeta() Meta {
	m := Meta{}
	m.Set("orderCode", p.OrderCode)
	return m
}

// DriverExpenseReceivedPayload carries the data for a DRIVER_EXPENSE_RECEIVED
// notification.
type DriverExpenseReceivedPayload struct {
	OrderCode  string `json:"orderCode"`
	TripCode   string `json:"tripCode,omitempty"`
	DriverName string `json:"driverName,omitempty"`
}

func (DriverExpenseReceivedPayload) EventKind() Kind { return KindDriverExpenseReceived }

func (p DriverExpenseReceivedPayload) BaseMeta() Meta {
	m := Meta{}
	m.Set("orderCode", p.OrderCode)
	m.Set("tripCode", p.TripCode)
	m.Set("driverName", p.DriverName)
	return m
}

// OrderGroupCloseToExpirePayload carries the data for an
// ORDER_GROUP_CLOSE_TO_EXPIRE notification.
type OrderGroupCloseToExpirePayload struct {
	GroupCode string `json:"groupCode"`
	ExpiresAt string `json:"expiresAt"`
}

func (OrderGroupCloseToExpirePayload) EventKind() Kind { return KindOrderGroupCloseToExpire }

func (p OrderGroupCloseToExpirePayload) BaseMeta() Meta {
	m := Meta{}
	m.Set("groupCode", p.GroupCode)
	m.Set("expirationDate", p.ExpiresAt)
	return m
}

// NotificationEvent is the input to the dispatch pipeline: the kind tag, the
// identifying fields required for every kind, and the kind-specific payload
// variant.
type NotificationEvent struct {
	Kind           Kind
	OrganizationID string
	TargetID       string
	CreatedByID    string
	Payload        EventPayload
}

// Actionable reports whether the event carries the minimal identifying
// fields the pipeline requires. Non-actionable events are ignored without
// error.
func (e NotificationEvent) Actionable() bool {
	return e.Kind.Valid() &&
		e.OrganizationID != "" &&
		e.TargetID != "" &&
		e.CreatedByID != ""
}

// DecodeEventPayload unmarshals a raw JSON payload into the variant struct
// for the given kind. It is the single place where the wire representation
// meets the tagged union; the API layer and the queue consumer both route
// through it.
func DecodeEventPayload(kind Kind, raw json.RawMessage) (EventPayload, error) {
	decode := func(dst any) error {
		if len(raw) == 0 {
			return nil
		}
		return json.Unmarshal(raw, dst)
	}

	switch kind {
	case KindNewOrder:
		var p NewOrderPayload
		if err := decode(&p); err != nil {
			return nil, fmt.Errorf("DecodeEventPayload %s: %w", kind, err)
		}
		return p, nil
	case KindOrderStatusChanged:
		var p OrderStatusChangedPayload
		if err := decode(&p); err != nil {
			return nil, fmt.Errorf("DecodeEventPayload %s: %w", kind, err)
		}
		return p, nil
	case KindOrderGroupStatusChanged:
		var p OrderGroupStatusChangedPayload
		if err := decode(&p); err != nil {
			return nil, fmt.Errorf("DecodeEventPayload %s: %w", kind, err)
		}
		return p, nil
	case KindTripStatusChanged:
		var p TripStatusChangedPayload
		if err := decode(&p); err != nil {
			return nil, fmt.Errorf("DecodeEventPayload %s: %w", kind, err)
		}
		return p, nil
	case KindTripNewMessage:
		var p TripNewMessagePayload
		if err := decode(&p); err != nil {
			return nil, fmt.Errorf("DecodeEventPayload %s: %w", kind, err)
		}
		return p, nil
	case KindVehicleDocumentDriverReminder, KindVehicleDocumentOperatorReminder:
		var p VehicleDocumentReminderPayload
		if err := decode(&p); err != nil {
			return nil, fmt.Errorf("DecodeEventPayload %s: %w", kind, err)
		}
		p.Reminder = kind
		return p, nil
	case KindBillOfLadingReceived:
		var p BillOfLadingReceivedPayload
		if err := decode(&p); err != nil {
			return nil, fmt.Errorf("DecodeEventPayload %s: %w", kind, err)
		}
		return p, nil
	case KindNewOrderParticipant:
		var p NewOrderParticipantPayload
		if err := decode(&p); err != nil {
			return nil, fmt.Errorf("DecodeEventPayload %s: %w", kind, err)
		}
		return p, nil
	case KindDeleteOrder:
		var p DeleteOrderPayload
		if err := decode(&p); err != nil {
			return nil, fmt.Errorf("DecodeEventPayload %s: %w", kind, err)
		}
		return p, nil
	case KindDriverExpenseReceived:
		var p DriverExpenseReceivedPayload
		if err := decode(&p); err != nil {
			return nil, fmt.Errorf("DecodeEventPayload %s: %w", kind, err)
		}
		return p, nil
	case KindOrderGroupCloseToExpire:
		var p OrderGroupCloseToExpirePayload
		if err := decode(&p); err != nil {
			return nil, fmt.Errorf("DecodeEventPayload %s: %w", kind, err)
		}
		return p, nil
	default:
		return nil, NewAppError(ErrCodeValidationUnknownKind,
			fmt.Sprintf("unknown notification kind %q", kind), nil)
	}
}

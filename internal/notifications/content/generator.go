// Package content selects subject/message template keys and assembles the
// metadata bag for a notification. Generation is a pure function of the
// event payload, the enrichment result, and the organization's order
// consolidation flag: no I/O, no failure modes, deterministic output.
//
// Subject and message values are translation lookup keys, not rendered
// text. Rendering happens at push time via the translator.
package content

import (
	"strings"

	"freightline/internal/types"
)

// Content is the generator output: the two template keys and the metadata
// bag they interpolate against.
type Content struct {
	SubjectKey string
	MessageKey string
	Meta       types.Meta
}

// shortMessageWordLimit is the truncation threshold for trip chat messages.
// The limit and the trailing ellipsis are load-bearing: existing translation
// strings assume them.
const shortMessageWordLimit = 7

// Generate selects the subject/message keys for the event and builds the
// final metadata bag from the payload's base meta merged with the
// enrichment result. enr may be nil when the kind needs no enrichment.
func Generate(p types.EventPayload, enr *types.Enrichment, orderConsolidationEnabled bool) Content {
	kind := p.EventKind()

	meta := p.BaseMeta()
	if enr != nil {
		meta.Merge(enr.Meta)
	}

	c := Content{
		SubjectKey: key(kind.KeyFragment(), "", "subject"),
		MessageKey: key(kind.KeyFragment(), "", "message"),
		Meta:       meta,
	}

	switch v := p.(type) {
	case types.NewOrderPayload:
		generateNewOrder(&c, v)
	case types.OrderStatusChangedPayload:
		generateOrderStatusChanged(&c, v, orderConsolidationEnabled)
	case types.OrderGroupStatusChangedPayload:
		status := statusFragment(v.Status)
		c.SubjectKey = key("order_group_status_changed", status, "subject")
		c.MessageKey = key("order_group_status_changed", status, "message")
	case types.TripStatusChangedPayload:
		generateTripStatusChanged(&c, v, enr, orderConsolidationEnabled)
	case types.TripNewMessagePayload:
		generateTripNewMessage(&c, v)
	case types.VehicleDocumentReminderPayload:
		generateVehicleDocumentReminder(&c, v)
	case types.BillOfLadingReceivedPayload,
		types.NewOrderParticipantPayload,
		types.DeleteOrderPayload,
		types.DriverExpenseReceivedPayload,
		types.OrderGroupCloseToExpirePayload:
		// Default keys, metadata passed through unchanged.
	}

	return c
}

func generateNewOrder(c *Content, p types.NewOrderPayload) {
	if p.Customer.Type == types.CustomerFixed {
		c.SubjectKey = key("new_order", "fixed_customer", "subject")
		if p.Route.Type == types.RouteFixed {
			c.MessageKey = key("new_order", "fixed_customer_fixed_route", "message")
		} else {
			c.MessageKey = key("new_order", "fixed_customer", "message")
		}
		return
	}

	// Casual customers never pair with a fixed route; the casual variant
	// covers both route kinds. The display name comes straight off the
	// payload, no lookup involved.
	c.SubjectKey = key("new_order", "casual_customer", "subject")
	c.MessageKey = key("new_order", "casual_customer", "message")
	c.Meta.Set("customerName", p.Customer.Name)
}

func generateOrderStatusChanged(c *Content, p types.OrderStatusChangedPayload, consolidationEnabled bool) {
	c.MessageKey = key("order_status_changed", statusFragment(p.Status), "message")

	if consolidationEnabled && p.GroupCode != "" {
		// Clients of consolidated organizations track the group, not the
		// individual order.
		c.Meta.Set("orderCode", p.GroupCode)
	}
}

func generateTripStatusChanged(c *Content, p types.TripStatusChangedPayload, enr *types.Enrichment, consolidationEnabled bool) {
	suffix := "is_not_system"
	if p.Status != "" {
		suffix = statusFragment(p.Status)
	}
	c.MessageKey = key("trip_status_changed", suffix, "message")

	if p.Status == types.TripStatusPendingConfirmation {
		c.MessageKey = key("trip_status_changed", pendingConfirmationVariant(enr), "message")
	}

	if consolidationEnabled && p.GroupCode != "" {
		c.Meta.Set("orderCode", p.GroupCode)
		c.Meta.Set("tripCode", p.GroupCode)
		c.Meta.Set("groupCode", p.GroupCode)
	}
}

// pendingConfirmationVariant resolves the message key variant for a trip
// entering pending confirmation. Override priority: confidentiality first,
// then customer visibility, then route visibility, then route kind.
func pendingConfirmationVariant(enr *types.Enrichment) string {
	const base = "pending_confirmation"
	if enr == nil {
		return base
	}

	nonFixedRoute := enr.RouteType == types.RouteNonFixed

	if enr.Confidential {
		return base + ".confidential"
	}
	if enr.DisplayRules != nil && !enr.DisplayRules.ShowCustomer {
		if !enr.DisplayRules.ShowRoute || nonFixedRoute {
			return base + ".without_customer_route"
		}
		return base + ".without_customer"
	}
	if enr.DisplayRules != nil && !enr.DisplayRules.ShowRoute {
		return base + ".without_route"
	}
	if nonFixedRoute {
		return base + ".non_fixed_route"
	}
	return base
}

func generateTripNewMessage(c *Content, p types.TripNewMessagePayload) {
	switch {
	case p.Text == "":
		c.MessageKey = key("trip_new_message", "file_message", "message")
	case p.AttachmentCount == 0:
		c.MessageKey = key("trip_new_message", "text_message", "message")
	}

	if p.Text != "" {
		c.Meta.Set("shortMessage", ShortMessage(p.Text))
	}
}

func generateVehicleDocumentReminder(c *Content, p types.VehicleDocumentReminderPayload) {
	fragment := p.EventKind().KeyFragment()

	if p.EventKind() == types.KindVehicleDocumentDriverReminder {
		switch {
		case p.TechnicalSafetyExpiresAt != "" && p.LiabilityInsuranceExpiresAt != "":
			c.SubjectKey = key(fragment, "technical_safety_and_liability_insurance", "subject")
			c.MessageKey = key(fragment, "technical_safety_and_liability_insurance", "message")
			c.Meta.Set("expirationDate", p.TechnicalSafetyExpiresAt)
		case p.TechnicalSafetyExpiresAt != "":
			c.SubjectKey = key(fragment, "technical_safety", "subject")
			c.MessageKey = key(fragment, "technical_safety", "message")
			c.Meta.Set("technicalSafetyExpirationDate", p.TechnicalSafetyExpiresAt)
		case p.LiabilityInsuranceExpiresAt != "":
			c.SubjectKey = key(fragment, "liability_insurance", "subject")
			c.MessageKey = key(fragment, "liability_insurance", "message")
			c.Meta.Set("liabilityInsuranceExpirationDate", p.LiabilityInsuranceExpiresAt)
		}
		return
	}

	// Operator reminder checks each document independently, so when both
	// expirations are present the liability keys overwrite the technical
	// safety ones.
	// TODO: confirm with product whether the operator reminder should get a
	// combined both-documents variant like the driver reminder has.
	if p.TechnicalSafetyExpiresAt != "" {
		c.SubjectKey = key(fragment, "technical_safety", "subject")
		c.MessageKey = key(fragment, "technical_safety", "message")
		c.Meta.Set("technicalSafetyExpirationDate", p.TechnicalSafetyExpiresAt)
	}
	if p.LiabilityInsuranceExpiresAt != "" {
		c.SubjectKey = key(fragment, "liability_insurance", "subject")
		c.MessageKey = key(fragment, "liability_insurance", "message")
		c.Meta.Set("liabilityInsuranceExpirationDate", p.LiabilityInsuranceExpiresAt)
	}
}

// ShortMessage truncates a chat message to its first seven
// whitespace-separated words followed by an ellipsis. Messages of seven
// words or fewer pass through unchanged.
func ShortMessage(text string) string {
	words := strings.Fields(text)
	if len(words) <= shortMessageWordLimit {
		return text
	}
	return strings.Join(words[:shortMessageWordLimit], " ") + "..."
}

// key assembles a translation key: notification.<kind>[.<variant>].<part>.
func key(kindFragment, variant, part string) string {
	if variant == "" {
		return "notification." + kindFragment + "." + part
	}
	return "notification." + kindFragment + "." + variant + "." + part
}

func statusFragment(status string) string {
	return strings.ToLower(status)
}

// Package enrich resolves the extra contextual data certain notification
// kinds need before content generation: directory names and codes for new
// orders, and the customer/route snapshot plus organization visibility
// flags for trips entering pending confirmation.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"freightline/internal/types"
)

// Enricher performs the per-kind contextual lookups. Kinds with no extra
// context pass through with a nil result, which downstream treats as
// "nothing to enrich", not an error.
type Enricher struct {
	directory types.NotificationDataSource
	settings  types.SettingReader
}

// NewEnricher creates an Enricher over the directory and settings sources.
func NewEnricher(directory types.NotificationDataSource, settings types.SettingReader) *Enricher {
	return &Enricher{
		directory: directory,
		settings:  settings,
	}
}

// Enrich dispatches on the event kind. Lookup failures propagate: an
// enrichment built on partial data would select the wrong template variant.
func (e *Enricher) Enrich(ctx context.Context, evt types.NotificationEvent, authToken string) (*types.Enrichment, error) {
	switch p := evt.Payload.(type) {
	case types.NewOrderPayload:
		return e.enrichNewOrder(ctx, evt.OrganizationID, authToken, p)
	case types.TripStatusChangedPayload:
		if p.Status != types.TripStatusPendingConfirmation {
			return nil, nil
		}
		return e.enrichTripPendingConfirmation(ctx, evt.OrganizationID, authToken, p)
	default:
		return nil, nil
	}
}

func (e *Enricher) enrichNewOrder(ctx context.Context, orgID, authToken string, p types.NewOrderPayload) (*types.Enrichment, error) {
	if p.Customer.Type == "" || p.Unit.ID == "" || p.Route.Type == "" || orgID == "" {
		return nil, nil
	}

	meta := types.Meta{}

	unit, err := e.directory.UnitData(ctx, authToken, orgID, p.Unit.ID)
	if err != nil {
		return nil, fmt.Errorf("Enrich: unit %s: %w", p.Unit.ID, err)
	}
	if unit != nil {
		meta.Set("unitCode", unit.Code)
	}

	if p.Customer.Type == types.CustomerFixed {
		customer, err := e.directory.CustomerData(ctx, authToken, orgID, p.Customer.ID)
		if err != nil {
			return nil, fmt.Errorf("Enrich: customer %s: %w", p.Customer.ID, err)
		}
		if customer != nil {
			meta.Set("customerCode", customer.Code)
			meta.Set("customerName", customer.Name)
		}

		if p.Route.Type == types.RouteFixed {
			route, err := e.directory.RouteData(ctx, authToken, orgID, p.Route.ID)
			if err != nil {
				return nil, fmt.Errorf("Enrich: route %s: %w", p.Route.ID, err)
			}
			if route != nil {
				meta.Set("routeCode", route.Code)
				meta.Set("routeName", route.Name)
			}
		}
	}

	return &types.Enrichment{Meta: meta, RouteType: p.Route.Type}, nil
}

func (e *Enricher) enrichTripPendingConfirmation(ctx context.Context, orgID, authToken string, p types.TripStatusChangedPayload) (*types.Enrichment, error) {
	snapshot, err := e.directory.OrderTripPendingData(ctx, authToken, orgID, p.OrderID)
	if err != nil {
		return nil, fmt.Errorf("Enrich: order trip data for %s: %w", p.OrderID, err)
	}

	settings, err := e.settings.Values(ctx, orgID, []string{
		types.SettingTripInfoConfidential,
		types.SettingTripDisplayRules,
	})
	if err != nil {
		return nil, fmt.Errorf("Enrich: organization settings: %w", err)
	}

	enr := &types.Enrichment{Meta: types.Meta{}}

	if snapshot != nil {
		enr.RouteType = snapshot.RouteType
		enr.Meta.Set("customerCode", snapshot.Customer.Code)
		enr.Meta.Set("customerName", snapshot.Customer.Name)
		enr.Meta.Set("routeCode", snapshot.Route.Code)
		enr.Meta.Set("routeName", snapshot.Route.Name)
	}

	if raw, ok := settings[types.SettingTripInfoConfidential]; ok {
		confidential, parseErr := strconv.ParseBool(raw)
		if parseErr == nil {
			enr.Confidential = confidential
		}
	}

	if raw, ok := settings[types.SettingTripDisplayRules]; ok && raw != "" {
		var rules types.TripDisplayRules
		if parseErr := json.Unmarshal([]byte(raw), &rules); parseErr == nil {
			enr.DisplayRules = &rules
		}
	}

	return enr, nil
}

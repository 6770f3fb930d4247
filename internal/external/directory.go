package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"freightline/internal/types"
)

// Compile-time assertions for the directory interfaces consumed by the
// recipient collector and enricher.
var (
	_ types.ParticipantSource      = (*DirectoryClient)(nil)
	_ types.MemberSource           = (*DirectoryClient)(nil)
	_ types.NotificationDataSource = (*DirectoryClient)(nil)
)

// DirectoryClient queries the platform directory GraphQL API for the order,
// customer, route, unit and membership data the pipeline needs. All calls
// go through the shared BaseClient for circuit breaking and retries.
//
// The directory enforces organization scoping server-side from the caller's
// auth token; the organization ID travels in the query variables so lookups
// stay unambiguous for service-to-service tokens.
type DirectoryClient struct {
	base     *BaseClient
	endpoint string
}

// NewDirectoryClient creates a client for the directory GraphQL endpoint.
func NewDirectoryClient(base *BaseClient, endpoint string) *DirectoryClient {
	return &DirectoryClient{
		base:     base,
		endpoint: endpoint,
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

// query executes one GraphQL request and decodes the data object into out.
func (c *DirectoryClient) query(ctx context.Context, authToken, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode directory query", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build directory request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return types.NewAppError(types.ErrCodeUpstreamDirectory, "directory request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return types.NewAppError(
			types.ErrCodeUpstreamDirectory,
			fmt.Sprintf("directory returned status %d", resp.StatusCode),
			nil,
		)
	}

	var gqlResp graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamDirectory, "failed to decode directory response", err)
	}
	if len(gqlResp.Errors) > 0 {
		return types.NewAppError(
			types.ErrCodeUpstreamDirectory,
			fmt.Sprintf("directory query error: %s", gqlResp.Errors[0].Message),
			nil,
		)
	}

	if out != nil && len(gqlResp.Data) > 0 {
		if err := json.Unmarshal(gqlResp.Data, out); err != nil {
			return types.NewAppError(types.ErrCodeUpstreamDirectory, "failed to decode directory data", err)
		}
	}
	return nil
}

const orderParticipantsQuery = `
query OrderParticipants($organizationId: ID!, $orderCode: String!) {
  orderParticipants(organizationId: $organizationId, orderCode: $orderCode) {
    user { id }
  }
}`

// OrderParticipants returns the users attached to an order.
func (c *DirectoryClient) OrderParticipants(ctx context.Context, authToken, organizationID, orderCode string) ([]types.Recipient, error) {
	var data struct {
		OrderParticipants []types.Recipient `json:"orderParticipants"`
	}
	err := c.query(ctx, authToken, orderParticipantsQuery, map[string]any{
		"organizationId": organizationID,
		"orderCode":      orderCode,
	}, &data)
	if err != nil {
		return nil, fmt.Errorf("OrderParticipants %s: %w", orderCode, err)
	}
	return data.OrderParticipants, nil
}

const membersByRoleQuery = `
query MembersByRole($organizationId: ID!, $roleNames: [String!]!) {
  organizationMembers(organizationId: $organizationId, roleNames: $roleNames) {
    member { id }
  }
}`

// MembersByRole returns organization members holding any of the roles.
func (c *DirectoryClient) MembersByRole(ctx context.Context, authToken, organizationID string, roleNames []string) ([]types.OrgMember, error) {
	var data struct {
		OrganizationMembers []types.OrgMember `json:"organizationMembers"`
	}
	err := c.query(ctx, authToken, membersByRoleQuery, map[string]any{
		"organizationId": organizationID,
		"roleNames":      roleNames,
	}, &data)
	if err != nil {
		return nil, fmt.Errorf("MembersByRole: %w", err)
	}
	return data.OrganizationMembers, nil
}

const entityQueryTemplate = `
query Entity($organizationId: ID!, $id: ID!) {
  %s(organizationId: $organizationId, id: $id) {
    code
    name
  }
}`

// entityData runs a code/name lookup for one directory entity field.
// An unknown entity yields a null field, returned as nil without error.
func (c *DirectoryClient) entityData(ctx context.Context, authToken, organizationID, id, field string) (*types.EntityData, error) {
	var data map[string]*types.EntityData
	err := c.query(ctx, authToken, fmt.Sprintf(entityQueryTemplate, field), map[string]any{
		"organizationId": organizationID,
		"id":             id,
	}, &data)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", field, id, err)
	}
	return data[field], nil
}

// CustomerData looks up a customer's code and display name.
func (c *DirectoryClient) CustomerData(ctx context.Context, authToken, organizationID, customerID string) (*types.EntityData, error) {
	return c.entityData(ctx, authToken, organizationID, customerID, "customer")
}

// RouteData looks up a route's code and display name.
func (c *DirectoryClient) RouteData(ctx context.Context, authToken, organizationID, routeID string) (*types.EntityData, error) {
	return c.entityData(ctx, authToken, organizationID, routeID, "route")
}

// UnitData looks up a transport unit's code and display name.
func (c *DirectoryClient) UnitData(ctx context.Context, authToken, organizationID, unitID string) (*types.EntityData, error) {
	return c.entityData(ctx, authToken, organizationID, unitID, "unit")
}

const orderTripPendingQuery = `
query OrderTripPending($organizationId: ID!, $orderId: ID!) {
  order(organizationId: $organizationId, id: $orderId) {
    customer { code name }
    customerType
    route { code name }
    routeType
  }
}`

// OrderTripPendingData returns the customer/route snapshot used to build
// pending-confirmation trip notifications. Unknown orders return nil.
func (c *DirectoryClient) OrderTripPendingData(ctx context.Context, authToken, organizationID, orderID string) (*types.OrderTripSnapshot, error) {
	var data struct {
		Order *struct {
			Customer     *types.EntityData  `json:"customer"`
			CustomerType types.CustomerType `json:"customerType"`
			Route        *types.EntityData  `json:"route"`
			RouteType    types.RouteType    `json:"routeType"`
		} `json:"order"`
	}
	err := c.query(ctx, authToken, orderTripPendingQuery, map[string]any{
		"organizationId": organizationID,
		"orderId":        orderID,
	}, &data)
	if err != nil {
		return nil, fmt.Errorf("OrderTripPendingData %s: %w", orderID, err)
	}
	if data.Order == nil {
		return nil, nil
	}

	snapshot := &types.OrderTripSnapshot{
		CustomerType: data.Order.CustomerType,
		RouteType:    data.Order.RouteType,
	}
	if data.Order.Customer != nil {
		snapshot.Customer = *data.Order.Customer
	}
	if data.Order.Route != nil {
		snapshot.Route = *data.Order.Route
	}
	return snapshot, nil
}

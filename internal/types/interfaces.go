package types

import (
	"context"
	"time"
)

// Logger defines the structured logging interface used throughout the service.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	With(args ...any) Logger
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// NotificationStore persists notification records. Create assigns ID and
// CreatedAt on the passed record. Persistence is the one delivery-path
// effect on the synchronous critical path: its failure propagates to the
// dispatching caller and suppresses all delivery.
type NotificationStore interface {
	Create(ctx context.Context, record *NotificationRecord) error
}

// OrgMember is a role-holding organization member as returned by the
// directory. The member lookup and the participant lookup return different
// shapes; the recipient collector normalizes both.
type OrgMember struct {
	Member UserRef `json:"member"`
}

// ParticipantSource resolves the participants of an order. A nil slice
// means the order has no participants.
type ParticipantSource interface {
	OrderParticipants(ctx context.Context, authToken, organizationID, orderCode string) ([]Recipient, error)
}

// MemberSource resolves organization members holding any of the given roles.
type MemberSource interface {
	MembersByRole(ctx context.Context, authToken, organizationID string, roleNames []string) ([]OrgMember, error)
}

// NotificationDataSource resolves directory entities referenced by events.
// Each lookup returns nil (no error) when the entity is unknown.
type NotificationDataSource interface {
	CustomerData(ctx context.Context, authToken, organizationID, customerID string) (*EntityData, error)
	RouteData(ctx context.Context, authToken, organizationID, routeID string) (*EntityData, error)
	UnitData(ctx context.Context, authToken, organizationID, unitID string) (*EntityData, error)
	OrderTripPendingData(ctx context.Context, authToken, organizationID, orderID string) (*OrderTripSnapshot, error)
}

// SettingReader reads organization-scoped settings. Value reports ok=false
// when the key is unset for the organization.
type SettingReader interface {
	Value(ctx context.Context, organizationID, key string) (string, bool, error)
	Values(ctx context.Context, organizationID string, keys []string) (map[string]string, error)
}

// TokenSource resolves users to their registered device push tokens,
// normalized to flat strings.
type TokenSource interface {
	MessageTokens(ctx context.Context, organizationID string, users []UserRef) ([]string, error)
}

// Translator renders a template key with the metadata bag as interpolation
// parameters. Unknown keys fall back to the key itself.
type Translator interface {
	Translate(key string, params Meta) string
}

// MulticastInput is a single push send across all resolved device tokens.
type MulticastInput struct {
	Tokens []string
	Title  string
	Body   string
	Data   map[string]string
}

// PushGateway sends a multicast push notification. Retry and backoff are
// the gateway's concern, not the caller's.
type PushGateway interface {
	SendMulticast(ctx context.Context, input MulticastInput) error
}

// RealtimeConn is an open pub/sub connection. Drain flushes buffered
// publishes and closes the connection.
type RealtimeConn interface {
	Publish(channel string, data []byte) error
	Drain() error
}

// RealtimeConnector opens pub/sub connections. The realtime dispatcher
// opens one connection per invocation and drains it before returning.
type RealtimeConnector interface {
	Connect(ctx context.Context) (RealtimeConn, error)
}

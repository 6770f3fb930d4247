package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightline/internal/types"
)

type testLogger struct{}

func (testLogger) Info(string, ...any)        {}
func (testLogger) Error(string, ...any)       {}
func (testLogger) Warn(string, ...any)        {}
func (l testLogger) With(...any) types.Logger { return l }

type fakeConn struct {
	published  map[string][]byte
	failFor    map[string]error
	drainCalls int
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		published: map[string][]byte{},
		failFor:   map[string]error{},
	}
}

func (c *fakeConn) Publish(channel string, data []byte) error {
	if err, ok := c.failFor[channel]; ok {
		return err
	}
	c.published[channel] = data
	return nil
}

func (c *fakeConn) Drain() error {
	c.drainCalls++
	return nil
}

type fakeConnector struct {
	conn *fakeConn
	err  error
}

func (c *fakeConnector) Connect(context.Context) (types.RealtimeConn, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.conn, nil
}

func testRecord() *types.NotificationRecord {
	return &types.NotificationRecord{
		ID:             "ntf_1",
		OrganizationID: "org_1",
		Kind:           types.KindDeleteOrder,
		TargetID:       "ORD-1",
		Subject:        "notification.delete_order.subject",
		Message:        "notification.delete_order.message",
		Meta:           `{"orderCode":"ORD-1"}`,
		Recipients: []types.Recipient{
			types.NewRecipient("usr_1"),
			types.NewRecipient("usr_2"),
		},
		CreatedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestPublishReachesEveryRecipient(t *testing.T) {
	conn := newFakeConn()
	d := NewDispatcher(&fakeConnector{conn: conn}, testLogger{})

	require.NoError(t, d.Publish(context.Background(), testRecord()))

	assert.Contains(t, conn.published, "notifications.org_1.user.usr_1")
	assert.Contains(t, conn.published, "notifications.org_1.user.usr_2")
	assert.Equal(t, 1, conn.drainCalls)

	body := string(conn.published["notifications.org_1.user.usr_1"])
	assert.Contains(t, body, `"id":"ntf_1"`)
	assert.Contains(t, body, `"type":"DELETE_ORDER"`)
}

func TestPublishConnectFailureReturned(t *testing.T) {
	d := NewDispatcher(&fakeConnector{err: errors.New("no route to host")}, testLogger{})

	err := d.Publish(context.Background(), testRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no route to host")
}

func TestPublishRecipientFailureDoesNotAbortOthers(t *testing.T) {
	conn := newFakeConn()
	conn.failFor["notifications.org_1.user.usr_1"] = errors.New("slow consumer")
	d := NewDispatcher(&fakeConnector{conn: conn}, testLogger{})

	require.NoError(t, d.Publish(context.Background(), testRecord()))
	assert.Contains(t, conn.published, "notifications.org_1.user.usr_2")
}

func TestPublishBroadcastsToOrderChannelForBroadcastKinds(t *testing.T) {
	conn := newFakeConn()
	d := NewDispatcher(&fakeConnector{conn: conn}, testLogger{})

	require.NoError(t, d.Publish(context.Background(), testRecord()))
	assert.Contains(t, conn.published, "notifications.org_1.order.ORD-1")
}

func TestPublishSkipsOrderBroadcastForOtherKinds(t *testing.T) {
	conn := newFakeConn()
	d := NewDispatcher(&fakeConnector{conn: conn}, testLogger{})

	rec := testRecord()
	rec.Kind = types.KindBillOfLadingReceived

	require.NoError(t, d.Publish(context.Background(), rec))
	assert.NotContains(t, conn.published, "notifications.org_1.order.ORD-1")
}

func TestPublishSkipsOrderBroadcastWithoutOrderCode(t *testing.T) {
	conn := newFakeConn()
	d := NewDispatcher(&fakeConnector{conn: conn}, testLogger{})

	rec := testRecord()
	rec.Meta = "{}"

	require.NoError(t, d.Publish(context.Background(), rec))
	for channel := range conn.published {
		assert.NotContains(t, channel, ".order.")
	}
}

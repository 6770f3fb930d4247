package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightline/internal/notifications/metrics"
	"freightline/internal/notifications/push"
	"freightline/internal/notifications/recipients"
	"freightline/internal/types"
)

type testLogger struct{}

func (testLogger) Info(string, ...any)        {}
func (testLogger) Error(string, ...any)       {}
func (testLogger) Warn(string, ...any)        {}
func (l testLogger) With(...any) types.Logger { return l }

type stubEnricher struct {
	enrichment *types.Enrichment
	err        error
}

func (s *stubEnricher) Enrich(context.Context, types.NotificationEvent, string) (*types.Enrichment, error) {
	return s.enrichment, s.err
}

type stubCollector struct {
	recipients []types.Recipient
	err        error
	lastInput  recipients.Input
}

func (s *stubCollector) Collect(_ context.Context, in recipients.Input) ([]types.Recipient, error) {
	s.lastInput = in
	return s.recipients, s.err
}

type stubStore struct {
	err     error
	created *types.NotificationRecord
}

func (s *stubStore) Create(_ context.Context, record *types.NotificationRecord) error {
	if s.err != nil {
		return s.err
	}
	record.ID = "ntf_test"
	record.CreatedAt = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	s.created = record
	return nil
}

type stubSettings struct {
	values map[string]string
	err    error
}

func (s *stubSettings) Value(_ context.Context, _, key string) (string, bool, error) {
	if s.err != nil {
		return "", false, s.err
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *stubSettings) Values(_ context.Context, _ string, keys []string) (map[string]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := map[string]string{}
	for _, k := range keys {
		if v, ok := s.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

type stubRealtime struct {
	mu       sync.Mutex
	calls    int
	lastRec  *types.NotificationRecord
	err      error
	panicked bool
}

func (s *stubRealtime) Publish(_ context.Context, record *types.NotificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastRec = record
	if s.panicked {
		panic("boom")
	}
	return s.err
}

func (s *stubRealtime) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubPush struct {
	mu        sync.Mutex
	calls     int
	lastInput push.Input
	err       error
}

func (s *stubPush) Send(_ context.Context, _ string, in push.Input) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastInput = in
	return s.err
}

func (s *stubPush) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fixture struct {
	enricher  *stubEnricher
	collector *stubCollector
	store     *stubStore
	settings  *stubSettings
	realtime  *stubRealtime
	push      *stubPush
	pipe      *Pipeline
}

func newFixture() *fixture {
	f := &fixture{
		enricher:  &stubEnricher{},
		collector: &stubCollector{recipients: []types.Recipient{types.NewRecipient("usr_2")}},
		store:     &stubStore{},
		settings:  &stubSettings{values: map[string]string{}},
		realtime:  &stubRealtime{},
		push:      &stubPush{},
	}
	f.pipe = New(f.enricher, f.collector, f.store, f.settings, f.realtime, f.push, metrics.Noop{}, testLogger{})
	return f
}

func testEvent() types.NotificationEvent {
	return types.NotificationEvent{
		Kind:           types.KindDeleteOrder,
		OrganizationID: "org_1",
		TargetID:       "ORD-1",
		CreatedByID:    "usr_actor",
		Payload:        types.DeleteOrderPayload{OrderCode: "ORD-1"},
	}
}

func drain(t *testing.T, p *Pipeline) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Drain(ctx))
}

func TestDispatchPersistsAndDelivers(t *testing.T) {
	f := newFixture()

	err := f.pipe.Dispatch(context.Background(), testEvent(), Options{AuthToken: "tok"})
	require.NoError(t, err)
	drain(t, f.pipe)

	require.NotNil(t, f.store.created)
	assert.Equal(t, "ntf_test", f.store.created.ID)
	assert.Equal(t, types.KindDeleteOrder, f.store.created.Kind)
	assert.Equal(t, "notification.delete_order.subject", f.store.created.Subject)
	assert.Equal(t, "notification.delete_order.message", f.store.created.Message)
	assert.JSONEq(t, `{"orderCode":"ORD-1"}`, f.store.created.Meta)

	assert.Equal(t, 1, f.realtime.callCount())
	assert.Equal(t, 1, f.push.callCount())
	assert.Equal(t, "ntf_test", f.push.lastInput.NotificationID)
}

func TestDispatchIgnoresNonActionableEvents(t *testing.T) {
	f := newFixture()

	evt := testEvent()
	evt.CreatedByID = ""

	err := f.pipe.Dispatch(context.Background(), evt, Options{})
	require.NoError(t, err)

	assert.Nil(t, f.store.created)
	assert.Zero(t, f.realtime.callCount())
	assert.Zero(t, f.push.callCount())
}

func TestDispatchCollectorFailurePropagates(t *testing.T) {
	f := newFixture()
	f.collector.err = errors.New("participants unavailable")

	err := f.pipe.Dispatch(context.Background(), testEvent(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "participants unavailable")
	assert.Nil(t, f.store.created)
}

func TestDispatchEnricherFailurePropagates(t *testing.T) {
	f := newFixture()
	f.enricher.err = errors.New("directory down")

	err := f.pipe.Dispatch(context.Background(), testEvent(), Options{})
	require.Error(t, err)
	assert.Nil(t, f.store.created)
}

func TestDispatchPersistFailurePropagatesAndSuppressesDelivery(t *testing.T) {
	f := newFixture()
	f.store.err = errors.New("insert failed")

	err := f.pipe.Dispatch(context.Background(), testEvent(), Options{})
	require.Error(t, err)
	drain(t, f.pipe)

	assert.Zero(t, f.realtime.callCount())
	assert.Zero(t, f.push.callCount())
}

func TestDispatchZeroRecipientsSkipsDelivery(t *testing.T) {
	f := newFixture()
	f.collector.recipients = nil

	err := f.pipe.Dispatch(context.Background(), testEvent(), Options{AuthToken: "tok"})
	require.NoError(t, err)
	drain(t, f.pipe)

	require.NotNil(t, f.store.created)
	assert.Zero(t, f.realtime.callCount())
	assert.Zero(t, f.push.callCount())
}

func TestDispatchSkipsPushWithoutAuthToken(t *testing.T) {
	f := newFixture()

	err := f.pipe.Dispatch(context.Background(), testEvent(), Options{})
	require.NoError(t, err)
	drain(t, f.pipe)

	assert.Equal(t, 1, f.realtime.callCount())
	assert.Zero(t, f.push.callCount())
}

func TestDispatchDeliveryFailuresNeverSurface(t *testing.T) {
	f := newFixture()
	f.realtime.err = errors.New("nats unreachable")
	f.push.err = errors.New("sns unreachable")

	err := f.pipe.Dispatch(context.Background(), testEvent(), Options{AuthToken: "tok"})
	require.NoError(t, err)
	drain(t, f.pipe)
}

func TestDispatchDeliveryPanicIsRecovered(t *testing.T) {
	f := newFixture()
	f.realtime.panicked = true

	err := f.pipe.Dispatch(context.Background(), testEvent(), Options{AuthToken: "tok"})
	require.NoError(t, err)
	drain(t, f.pipe)

	// Push still ran despite the realtime panic.
	assert.Equal(t, 1, f.push.callCount())
}

func TestDispatchDeliverySurvivesCallerCancellation(t *testing.T) {
	f := newFixture()

	ctx, cancel := context.WithCancel(context.Background())
	err := f.pipe.Dispatch(ctx, testEvent(), Options{})
	cancel()
	require.NoError(t, err)
	drain(t, f.pipe)

	assert.Equal(t, 1, f.realtime.callCount())
}

func TestDispatchConsolidationFlagReachesGenerator(t *testing.T) {
	f := newFixture()
	f.settings.values[types.SettingOrderConsolidationEnabled] = "true"

	evt := types.NotificationEvent{
		Kind:           types.KindOrderStatusChanged,
		OrganizationID: "org_1",
		TargetID:       "ORD-1",
		CreatedByID:    "usr_actor",
		Payload: types.OrderStatusChangedPayload{
			OrderCode: "ORD-1",
			GroupCode: "GRP-9",
			Status:    "CONFIRMED",
		},
	}
	err := f.pipe.Dispatch(context.Background(), evt, Options{})
	require.NoError(t, err)
	drain(t, f.pipe)

	require.NotNil(t, f.store.created)
	meta, err := types.ParseMeta(f.store.created.Meta)
	require.NoError(t, err)
	assert.Equal(t, "GRP-9", meta.String("orderCode"))
}

func TestDispatchUnparsableConsolidationValueDefaultsOff(t *testing.T) {
	f := newFixture()
	f.settings.values[types.SettingOrderConsolidationEnabled] = "definitely"

	evt := types.NotificationEvent{
		Kind:           types.KindOrderStatusChanged,
		OrganizationID: "org_1",
		TargetID:       "ORD-1",
		CreatedByID:    "usr_actor",
		Payload: types.OrderStatusChangedPayload{
			OrderCode: "ORD-1",
			GroupCode: "GRP-9",
			Status:    "CONFIRMED",
		},
	}
	err := f.pipe.Dispatch(context.Background(), evt, Options{})
	require.NoError(t, err)
	drain(t, f.pipe)

	meta, err := types.ParseMeta(f.store.created.Meta)
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", meta.String("orderCode"))
}

func TestDispatchCollectorInputWiring(t *testing.T) {
	f := newFixture()

	evt := testEvent()
	err := f.pipe.Dispatch(context.Background(), evt, Options{
		Receivers:           []types.Recipient{types.NewRecipient("usr_9")},
		RoleNames:           []string{"dispatcher"},
		AuthToken:           "tok",
		ExcludeParticipants: true,
	})
	require.NoError(t, err)
	drain(t, f.pipe)

	in := f.collector.lastInput
	assert.Equal(t, "org_1", in.OrganizationID)
	assert.Equal(t, "usr_actor", in.ActorID)
	assert.Equal(t, "tok", in.AuthToken)
	assert.Equal(t, "ORD-1", in.OrderCode)
	assert.False(t, in.IncludeParticipants)
	assert.Equal(t, []string{"dispatcher"}, in.RoleNames)
}

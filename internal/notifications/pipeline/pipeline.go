// Package pipeline orchestrates notification dispatch: it validates the
// inbound event, runs enrichment and recipient collection, selects content,
// persists the notification record, and fans delivery out to the realtime
// and push dispatchers as detached background work.
//
// The synchronous critical path ends at persistence. Delivery must never
// add latency or failure risk to the business operation that triggered the
// event, so both dispatchers run in supervised goroutines whose errors and
// panics are logged, never propagated.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"freightline/internal/notifications/content"
	"freightline/internal/notifications/metrics"
	"freightline/internal/notifications/push"
	"freightline/internal/notifications/recipients"
	"freightline/internal/types"
)

// ContextEnricher resolves kind-specific contextual data before content
// generation. A nil result means nothing to enrich.
type ContextEnricher interface {
	Enrich(ctx context.Context, evt types.NotificationEvent, authToken string) (*types.Enrichment, error)
}

// RecipientCollector builds the de-duplicated recipient list.
type RecipientCollector interface {
	Collect(ctx context.Context, in recipients.Input) ([]types.Recipient, error)
}

// RealtimePublisher fans a persisted record out to realtime channels.
type RealtimePublisher interface {
	Publish(ctx context.Context, record *types.NotificationRecord) error
}

// PushSender fans a persisted record out to mobile push.
type PushSender interface {
	Send(ctx context.Context, organizationID string, in push.Input) error
}

// Pipeline is the dispatch orchestrator.
type Pipeline struct {
	enricher  ContextEnricher
	collector RecipientCollector
	store     types.NotificationStore
	settings  types.SettingReader
	realtime  RealtimePublisher
	push      PushSender
	metrics   metrics.Recorder
	logger    types.Logger

	// deliveries tracks detached dispatcher goroutines so shutdown can
	// drain them.
	deliveries sync.WaitGroup
}

// New creates a Pipeline. metrics may be metrics.Noop{} outside production.
func New(
	enricher ContextEnricher,
	collector RecipientCollector,
	store types.NotificationStore,
	settings types.SettingReader,
	realtime RealtimePublisher,
	pushSender PushSender,
	recorder metrics.Recorder,
	logger types.Logger,
) *Pipeline {
	return &Pipeline{
		enricher:  enricher,
		collector: collector,
		store:     store,
		settings:  settings,
		realtime:  realtime,
		push:      pushSender,
		metrics:   recorder,
		logger:    logger,
	}
}

// Options carries the caller-supplied dispatch parameters that are not part
// of the event itself.
type Options struct {
	// Receivers are explicit recipients, highest precedence.
	Receivers []types.Recipient

	// RoleNames selects organization members by role as a recipient source.
	RoleNames []string

	// AuthToken authorizes the directory lookups and enables push delivery.
	// Without it the participant/member/enrichment lookups run
	// unauthenticated and push is skipped.
	AuthToken string

	// ExcludeParticipants suppresses the order-participant recipient
	// source. The zero value includes participants.
	ExcludeParticipants bool
}

// Dispatch runs the pipeline for one event. It returns once the
// notification record is persisted; delivery continues in the background.
//
// Events missing any required identifying field are not actionable and are
// ignored without error or side effect. Lookup and persistence failures
// propagate: an inaccurate audience or an unrecorded notification must fail
// the dispatch, while delivery failures never do.
func (p *Pipeline) Dispatch(ctx context.Context, evt types.NotificationEvent, opts Options) error {
	if !evt.Actionable() {
		p.logger.Info("ignoring non-actionable notification event",
			"kind", string(evt.Kind),
			"organization_id", evt.OrganizationID,
			"target_id", evt.TargetID,
		)
		return nil
	}

	var (
		enrichment    *types.Enrichment
		consolidation bool
		audience      []types.Recipient
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		enrichment, err = p.enricher.Enrich(gctx, evt, opts.AuthToken)
		return err
	})

	g.Go(func() error {
		var err error
		consolidation, err = p.consolidationEnabled(gctx, evt.OrganizationID)
		return err
	})

	g.Go(func() error {
		var err error
		audience, err = p.collector.Collect(gctx, recipients.Input{
			OrganizationID:      evt.OrganizationID,
			ActorID:             evt.CreatedByID,
			AuthToken:           opts.AuthToken,
			Receivers:           opts.Receivers,
			OrderCode:           eventOrderCode(evt.Payload),
			IncludeParticipants: !opts.ExcludeParticipants,
			RoleNames:           opts.RoleNames,
		})
		return err
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("Dispatch %s: %w", evt.Kind, err)
	}

	generated := content.Generate(evt.Payload, enrichment, consolidation)

	serializedMeta, err := generated.Meta.Serialize()
	if err != nil {
		return fmt.Errorf("Dispatch %s: %w", evt.Kind, err)
	}

	record := &types.NotificationRecord{
		OrganizationID: evt.OrganizationID,
		Kind:           evt.Kind,
		TargetID:       evt.TargetID,
		Subject:        generated.SubjectKey,
		Message:        generated.MessageKey,
		Meta:           serializedMeta,
		Recipients:     audience,
	}
	if err := p.store.Create(ctx, record); err != nil {
		return fmt.Errorf("Dispatch %s: persist notification: %w", evt.Kind, err)
	}

	p.logger.Info("notification persisted",
		"notification_id", record.ID,
		"kind", string(evt.Kind),
		"organization_id", evt.OrganizationID,
		"recipient_count", len(audience),
	)

	if len(audience) == 0 {
		return nil
	}

	// Delivery is detached from the caller's context: cancellation of the
	// triggering request must not cancel in-flight fan-out.
	bg := context.WithoutCancel(ctx)

	p.spawn("realtime", record.ID, func() {
		start := time.Now()
		err := p.realtime.Publish(bg, record)
		p.metrics.RecordDelivery(bg, metrics.ChannelRealtime, err == nil)
		p.metrics.RecordLatency(bg, metrics.ChannelRealtime, time.Since(start))
		if err != nil {
			p.logger.Error("realtime delivery failed",
				"notification_id", record.ID,
				"error", err.Error(),
			)
		}
	})

	if opts.AuthToken != "" {
		p.spawn("push", record.ID, func() {
			start := time.Now()
			err := p.push.Send(bg, evt.OrganizationID, push.Input{
				NotificationID: record.ID,
				Kind:           record.Kind,
				SubjectKey:     record.Subject,
				MessageKey:     record.Message,
				Meta:           generated.Meta,
				Recipients:     record.Recipients,
			})
			p.metrics.RecordDelivery(bg, metrics.ChannelPush, err == nil)
			p.metrics.RecordLatency(bg, metrics.ChannelPush, time.Since(start))
			if err != nil {
				p.logger.Error("push delivery failed",
					"notification_id", record.ID,
					"error", err.Error(),
				)
			}
		})
	}

	return nil
}

// spawn runs fn as a supervised background task: panics are recovered and
// logged inside the task, never crashing the process or the caller.
func (p *Pipeline) spawn(channel, notificationID string, fn func()) {
	p.deliveries.Add(1)
	go func() {
		defer p.deliveries.Done()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("delivery task panicked",
					"channel", channel,
					"notification_id", notificationID,
					"panic", fmt.Sprintf("%v", r),
				)
			}
		}()
		fn()
	}()
}

// Drain blocks until all in-flight delivery tasks finish or the context
// expires. Called during graceful shutdown.
func (p *Pipeline) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.deliveries.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("Drain: %w", ctx.Err())
	}
}

func (p *Pipeline) consolidationEnabled(ctx context.Context, organizationID string) (bool, error) {
	raw, ok, err := p.settings.Value(ctx, organizationID, types.SettingOrderConsolidationEnabled)
	if err != nil {
		return false, fmt.Errorf("read consolidation setting: %w", err)
	}
	if !ok {
		return false, nil
	}
	enabled, parseErr := strconv.ParseBool(raw)
	if parseErr != nil {
		return false, nil
	}
	return enabled, nil
}

// eventOrderCode extracts the order code for the participant recipient
// source from the payload variants that carry one.
func eventOrderCode(p types.EventPayload) string {
	switch v := p.(type) {
	case types.NewOrderPayload:
		return v.OrderCode
	case types.OrderStatusChangedPayload:
		return v.OrderCode
	case types.TripStatusChangedPayload:
		return v.OrderCode
	case types.TripNewMessagePayload:
		return v.OrderCode
	case types.BillOfLadingReceivedPayload:
		return v.OrderCode
	case types.NewOrderParticipantPayload:
		return v.OrderCode
	case types.DeleteOrderPayload:
		return v.OrderCode
	case types.DriverExpenseReceivedPayload:
		return v.OrderCode
	default:
		return ""
	}
}

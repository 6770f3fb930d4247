// Package realtime publishes compact notification payloads to per-user
// pub/sub channels, plus an order-keyed broadcast channel for the kinds
// that in-app order views subscribe to. Delivery is best-effort: one
// connection per invocation, per-recipient failures logged and skipped.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"freightline/internal/types"
)

// payload is the compact message published to realtime channels. Meta stays
// in its serialized string form; clients parse it lazily.
type payload struct {
	ID        string     `json:"id"`
	Type      types.Kind `json:"type"`
	Subject   string     `json:"subject"`
	Message   string     `json:"message"`
	TargetID  string     `json:"targetId"`
	Meta      string     `json:"meta"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Dispatcher fans a persisted notification out to realtime channels.
type Dispatcher struct {
	connector types.RealtimeConnector
	logger    types.Logger
}

// NewDispatcher creates a Dispatcher over the given transport connector.
func NewDispatcher(connector types.RealtimeConnector, logger types.Logger) *Dispatcher {
	return &Dispatcher{
		connector: connector,
		logger:    logger,
	}
}

// broadcastKinds are the kinds additionally published to the order channel
// when the notification's meta carries an order code.
func broadcastsToOrder(kind types.Kind) bool {
	switch kind {
	case types.KindDeleteOrder, types.KindOrderStatusChanged, types.KindTripStatusChanged:
		return true
	}
	return false
}

// Publish opens a transport connection, publishes the record to each
// recipient's personal channel and (for the broadcast kinds) to the order
// channel, then drains the connection. Connection establishment failure is
// returned for the detached caller to log; a publish failure for one
// recipient is logged and does not abort the remaining recipients.
func (d *Dispatcher) Publish(ctx context.Context, record *types.NotificationRecord) error {
	conn, err := d.connector.Connect(ctx)
	if err != nil {
		return fmt.Errorf("realtime publish: connect: %w", err)
	}
	defer func() {
		if drainErr := conn.Drain(); drainErr != nil {
			d.logger.Warn("realtime connection drain failed",
				"notification_id", record.ID,
				"error", drainErr.Error(),
			)
		}
	}()

	body, err := json.Marshal(payload{
		ID:        record.ID,
		Type:      record.Kind,
		Subject:   record.Subject,
		Message:   record.Message,
		TargetID:  record.TargetID,
		Meta:      record.Meta,
		CreatedAt: record.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("realtime publish: marshal payload: %w", err)
	}

	for _, r := range record.Recipients {
		channel := UserChannel(record.OrganizationID, r.User.ID)
		if pubErr := conn.Publish(channel, body); pubErr != nil {
			d.logger.Error("realtime publish failed for recipient",
				"notification_id", record.ID,
				"user_id", r.User.ID,
				"channel", channel,
				"error", pubErr.Error(),
			)
		}
	}

	if broadcastsToOrder(record.Kind) {
		if orderCode := orderCodeFromMeta(record.Meta); orderCode != "" {
			channel := OrderChannel(record.OrganizationID, orderCode)
			if pubErr := conn.Publish(channel, body); pubErr != nil {
				d.logger.Error("realtime order broadcast failed",
					"notification_id", record.ID,
					"order_code", orderCode,
					"channel", channel,
					"error", pubErr.Error(),
				)
			}
		}
	}

	return nil
}

func orderCodeFromMeta(serialized string) string {
	meta, err := types.ParseMeta(serialized)
	if err != nil {
		return ""
	}
	return meta.String("orderCode")
}

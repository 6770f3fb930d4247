// Package push resolves notification recipients to device tokens, localizes
// the subject/message template keys, and hands a single multicast send to
// the push gateway. No retry logic lives here: retry and backoff are the
// gateway's concern, and a send is fire-and-forget.
package push

import (
	"context"
	"fmt"

	"freightline/internal/types"
)

// Input is one push fan-out request, built from the persisted notification.
type Input struct {
	NotificationID string
	Kind           types.Kind
	SubjectKey     string
	MessageKey     string
	Meta           types.Meta
	Recipients     []types.Recipient
}

// Dispatcher sends mobile push notifications for persisted records.
type Dispatcher struct {
	tokens     types.TokenSource
	translator types.Translator
	gateway    types.PushGateway
	logger     types.Logger
}

// NewDispatcher creates a Dispatcher over the token source, translator and
// push gateway.
func NewDispatcher(tokens types.TokenSource, translator types.Translator, gateway types.PushGateway, logger types.Logger) *Dispatcher {
	return &Dispatcher{
		tokens:     tokens,
		translator: translator,
		gateway:    gateway,
		logger:     logger,
	}
}

// Send resolves the recipients' device tokens and issues one multicast push
// across all of them. Zero resolved tokens is a normal outcome (users
// without the mobile app installed) and returns without calling the
// gateway.
func (d *Dispatcher) Send(ctx context.Context, organizationID string, in Input) error {
	users := make([]types.UserRef, 0, len(in.Recipients))
	for _, r := range in.Recipients {
		users = append(users, r.User)
	}

	tokens, err := d.tokens.MessageTokens(ctx, organizationID, users)
	if err != nil {
		return fmt.Errorf("push send: resolve tokens: %w", err)
	}
	if len(tokens) == 0 {
		d.logger.Info("no push tokens registered for recipients",
			"notification_id", in.NotificationID,
			"recipient_count", len(in.Recipients),
		)
		return nil
	}

	data := in.Meta.Flatten()
	data["type"] = string(in.Kind)
	data["notificationId"] = in.NotificationID

	title := d.translator.Translate(in.SubjectKey, in.Meta)
	body := d.translator.Translate(in.MessageKey, in.Meta)

	if err := d.gateway.SendMulticast(ctx, types.MulticastInput{
		Tokens: tokens,
		Title:  title,
		Body:   body,
		Data:   data,
	}); err != nil {
		return fmt.Errorf("push send: gateway multicast: %w", err)
	}

	d.logger.Info("push notification sent",
		"notification_id", in.NotificationID,
		"token_count", len(tokens),
	)
	return nil
}

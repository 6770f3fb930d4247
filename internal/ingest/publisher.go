package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"

	"freightline/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// EventPublisher serializes dispatch envelopes to the notification event
// queue. Producers inside the platform call this instead of the pipeline
// directly so notification work never blocks a business transaction.
type EventPublisher struct {
	client   SQSSender
	queueURL string
	clock    types.Clock
	logger   types.Logger
}

// NewEventPublisher creates a publisher targeting the event queue.
func NewEventPublisher(client SQSSender, queueURL string, clock types.Clock, logger types.Logger) *EventPublisher {
	return &EventPublisher{
		client:   client,
		queueURL: queueURL,
		clock:    clock,
		logger:   logger,
	}
}

// Publish stamps the envelope with enqueue time and a trace ID (unless the
// caller set one) and sends it to the queue.
func (p *EventPublisher) Publish(ctx context.Context, env EventEnvelope) error {
	env.EnqueuedAt = p.clock.Now()
	if env.TraceID == "" {
		if traceID := types.GetRequestID(ctx); traceID != "" {
			env.TraceID = traceID
		} else {
			env.TraceID = uuid.NewString()
		}
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("Publish: failed to marshal envelope: %w", err)
	}

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("Publish: failed to send to %s: %w", p.queueURL, err)
	}

	p.logger.Info("notification event published",
		"kind", string(env.Kind),
		"organization_id", env.OrganizationID,
		"target_id", env.TargetID,
		"trace_id", env.TraceID,
	)

	return nil
}

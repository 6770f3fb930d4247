package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"freightline/internal/notifications/metrics"
	"freightline/internal/notifications/pipeline"
	"freightline/internal/types"
)

// SQSReceiver abstracts the SQS receive/delete operations for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSReceiver interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// EventDispatcher is the pipeline surface the consumer drives.
type EventDispatcher interface {
	Dispatch(ctx context.Context, evt types.NotificationEvent, opts pipeline.Options) error
}

// Consumer long-polls the notification event queue and dispatches each
// envelope through the pipeline.
//
// Message disposition:
//   - dispatched successfully: deleted
//   - validation failure (unknown kind, malformed payload): poison, logged
//     and deleted so it cannot cycle through redelivery forever
//   - transient dispatch failure: left on the queue for redelivery after
//     the visibility timeout
type Consumer struct {
	client     SQSReceiver
	queueURL   string
	dispatcher EventDispatcher
	metrics    metrics.Recorder
	clock      types.Clock
	logger     types.Logger
}

// NewConsumer creates a Consumer for the given queue.
func NewConsumer(
	client SQSReceiver,
	queueURL string,
	dispatcher EventDispatcher,
	recorder metrics.Recorder,
	clock types.Clock,
	logger types.Logger,
) *Consumer {
	return &Consumer{
		client:     client,
		queueURL:   queueURL,
		dispatcher: dispatcher,
		metrics:    recorder,
		clock:      clock,
		logger:     logger,
	}
}

// Run polls until ctx is cancelled. Receive errors are logged and polling
// continues; only context cancellation stops the loop.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("event consumer started", "queue_url", c.queueURL)

	for {
		out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
		})
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("event consumer stopping", "reason", ctx.Err().Error())
				return nil
			}
			c.logger.Error("receive from event queue failed", "error", err.Error())
			continue
		}

		for _, msg := range out.Messages {
			if err := c.handle(ctx, aws.ToString(msg.Body)); err != nil {
				c.logger.Error("event dispatch failed, message left for redelivery",
					"message_id", aws.ToString(msg.MessageId),
					"error", err.Error(),
				)
				continue
			}
			c.delete(ctx, msg.ReceiptHandle)
		}
	}
}

// handle processes one message body. A nil return means the message is
// settled (dispatched or poison) and must be deleted.
func (c *Consumer) handle(ctx context.Context, body string) error {
	var env EventEnvelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		c.logger.Error("dropping undecodable event message", "error", err.Error())
		return nil
	}

	if env.TraceID != "" {
		ctx = types.WithRequestID(ctx, env.TraceID)
	}
	if !env.EnqueuedAt.IsZero() {
		c.metrics.RecordQueueLag(ctx, c.clock.Now().Sub(env.EnqueuedAt))
	}

	evt, err := env.Event()
	if err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) {
			c.logger.Error("dropping invalid event message",
				"kind", string(env.Kind),
				"code", string(appErr.Code),
				"error", err.Error(),
			)
			return nil
		}
		c.logger.Error("dropping malformed event payload",
			"kind", string(env.Kind),
			"error", err.Error(),
		)
		return nil
	}

	if err := c.dispatcher.Dispatch(ctx, evt, pipeline.Options{
		Receivers:           env.Receivers,
		RoleNames:           env.RoleNames,
		AuthToken:           env.AuthToken,
		ExcludeParticipants: env.ExcludeParticipants,
	}); err != nil {
		return fmt.Errorf("handle %s: %w", env.Kind, err)
	}
	return nil
}

func (c *Consumer) delete(ctx context.Context, receiptHandle *string) {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		c.logger.Error("failed to delete settled message", "error", err.Error())
	}
}

package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightline/internal/types"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type fakeSender struct {
	lastInput *sqs.SendMessageInput
	err       error
}

func (f *fakeSender) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.lastInput = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m1")}, nil
}

func TestPublishStampsEnvelope(t *testing.T) {
	sender := &fakeSender{}
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	p := NewEventPublisher(sender, "https://sqs.test/q", fixedClock{now: now}, testLogger{})

	err := p.Publish(context.Background(), validEnvelope())
	require.NoError(t, err)

	require.NotNil(t, sender.lastInput)
	assert.Equal(t, "https://sqs.test/q", aws.ToString(sender.lastInput.QueueUrl))

	var sent EventEnvelope
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(sender.lastInput.MessageBody)), &sent))
	assert.Equal(t, types.KindDeleteOrder, sent.Kind)
	assert.Equal(t, now, sent.EnqueuedAt)
	assert.NotEmpty(t, sent.TraceID, "a trace ID is generated when the caller has none")
}

func TestPublishPropagatesRequestID(t *testing.T) {
	sender := &fakeSender{}
	p := NewEventPublisher(sender, "https://sqs.test/q", fixedClock{now: time.Now()}, testLogger{})

	ctx := types.WithRequestID(context.Background(), "req-42")
	require.NoError(t, p.Publish(ctx, validEnvelope()))

	var sent EventEnvelope
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(sender.lastInput.MessageBody)), &sent))
	assert.Equal(t, "req-42", sent.TraceID)
}

func TestPublishKeepsCallerTraceID(t *testing.T) {
	sender := &fakeSender{}
	p := NewEventPublisher(sender, "https://sqs.test/q", fixedClock{now: time.Now()}, testLogger{})

	env := validEnvelope()
	env.TraceID = "preset-trace"
	require.NoError(t, p.Publish(context.Background(), env))

	var sent EventEnvelope
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(sender.lastInput.MessageBody)), &sent))
	assert.Equal(t, "preset-trace", sent.TraceID)
}

func TestPublishSendFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("queue unavailable")}
	p := NewEventPublisher(sender, "https://sqs.test/q", fixedClock{now: time.Now()}, testLogger{})

	err := p.Publish(context.Background(), validEnvelope())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue unavailable")
}

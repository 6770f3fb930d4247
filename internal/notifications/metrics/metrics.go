// Package metrics reports notification delivery telemetry. The production
// implementation emits to CloudWatch; a no-op implementation serves tests
// and local development.
package metrics

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"freightline/internal/types"
)

// Channel identifies a delivery transport for metric dimensions.
type Channel string

const (
	ChannelRealtime Channel = "realtime"
	ChannelPush     Channel = "push"
)

// Recorder abstracts delivery telemetry for the dispatch pipeline.
type Recorder interface {
	RecordDelivery(ctx context.Context, channel Channel, success bool)
	RecordLatency(ctx context.Context, channel Channel, duration time.Duration)
	RecordQueueLag(ctx context.Context, lag time.Duration)
}

// Noop discards all metrics.
type Noop struct{}

func (Noop) RecordDelivery(context.Context, Channel, bool)         {}
func (Noop) RecordLatency(context.Context, Channel, time.Duration) {}
func (Noop) RecordQueueLag(context.Context, time.Duration)         {}

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Compile-time assertion that CloudWatchRecorder implements Recorder.
var _ Recorder = (*CloudWatchRecorder)(nil)

// CloudWatchRecorder implements Recorder by emitting metrics to AWS CloudWatch.
//
// Metrics emitted:
//   - NotificationDelivery: Dims {Channel, Result} -- on every delivery outcome
//   - NotificationDeliveryLatency: Dims {Channel} -- time taken for delivery
//   - NotificationQueueLag: No dims -- time between event enqueue and processing start
type CloudWatchRecorder struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

// NewCloudWatchRecorder creates a Recorder that publishes to the specified
// CloudWatch namespace.
func NewCloudWatchRecorder(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchRecorder {
	return &CloudWatchRecorder{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordDelivery emits a NotificationDelivery metric with Channel and Result
// dimensions.
func (m *CloudWatchRecorder) RecordDelivery(ctx context.Context, channel Channel, success bool) {
	result := "success"
	if !success {
		result = "failed"
	}

	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String("NotificationDelivery"),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{
					{
						Name:  aws.String("Channel"),
						Value: aws.String(string(channel)),
					},
					{
						Name:  aws.String("Result"),
						Value: aws.String(result),
					},
				},
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to record delivery metric",
			"error", err.Error(),
			"channel", string(channel),
			"result", result,
		)
	}
}

// RecordLatency emits a delivery latency metric with the Channel dimension.
// Duration is recorded in milliseconds for CloudWatch precision.
func (m *CloudWatchRecorder) RecordLatency(ctx context.Context, channel Channel, duration time.Duration) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String("NotificationDeliveryLatency"),
				Value:      aws.Float64(float64(duration.Milliseconds())),
				Unit:       cwtypes.StandardUnitMilliseconds,
				Dimensions: []cwtypes.Dimension{
					{
						Name:  aws.String("Channel"),
						Value: aws.String(string(channel)),
					},
				},
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to record latency metric",
			"error", err.Error(),
			"channel", string(channel),
			"duration_ms", duration.Milliseconds(),
		)
	}
}

// RecordQueueLag emits a metric tracking the time between event enqueue and
// worker processing start. This measures the end-to-end queue delay
// including visibility timeout and any backlog.
func (m *CloudWatchRecorder) RecordQueueLag(ctx context.Context, lag time.Duration) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String("NotificationQueueLag"),
				Value:      aws.Float64(float64(lag.Milliseconds())),
				Unit:       cwtypes.StandardUnitMilliseconds,
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to record queue lag metric",
			"error", err.Error(),
			"lag_ms", lag.Milliseconds(),
		)
	}
}

package external

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"freightline/internal/types"
)

// SNSPublisher abstracts the SNS Publish operation for testability.
// Production code uses the *sns.Client from aws-sdk-go-v2.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Compile-time assertion that SNSPushGateway implements PushGateway.
var _ types.PushGateway = (*SNSPushGateway)(nil)

// SNSPushGateway delivers mobile push notifications through SNS platform
// endpoints. Each token is a platform endpoint ARN; a multicast send fans
// out to one Publish call per endpoint with a shared payload. SNS owns
// retry and backoff, so per-endpoint failures are logged and skipped.
type SNSPushGateway struct {
	client SNSPublisher
	logger types.Logger
}

// NewSNSPushGateway creates a gateway over the given SNS client.
func NewSNSPushGateway(client SNSPublisher, logger types.Logger) *SNSPushGateway {
	return &SNSPushGateway{
		client: client,
		logger: logger,
	}
}

// gcmMessage is the FCM payload SNS forwards to Android devices. The apns
// mirror requests silent background delivery with default sound.
type gcmMessage struct {
	Notification gcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	Android      gcmAndroid        `json:"android"`
}

type gcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound"`
}

type gcmAndroid struct {
	Priority string `json:"priority"`
}

type apnsMessage struct {
	APS apnsAPS `json:"aps"`
}

type apnsAPS struct {
	Alert            apnsAlert `json:"alert"`
	Sound            string    `json:"sound"`
	ContentAvailable int       `json:"content-available"`
}

type apnsAlert struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// SendMulticast publishes the message to every endpoint in input.Tokens.
func (g *SNSPushGateway) SendMulticast(ctx context.Context, input types.MulticastInput) error {
	message, err := buildEndpointMessage(input)
	if err != nil {
		return fmt.Errorf("sns push: build message: %w", err)
	}

	for _, endpointARN := range input.Tokens {
		_, pubErr := g.client.Publish(ctx, &sns.PublishInput{
			TargetArn:        aws.String(endpointARN),
			Message:          aws.String(message),
			MessageStructure: aws.String("json"),
		})
		if pubErr != nil {
			g.logger.Error("sns push publish failed",
				"endpoint_arn", endpointARN,
				"error", pubErr.Error(),
			)
		}
	}

	return nil
}

// buildEndpointMessage assembles the platform-structured SNS message body:
// an outer JSON object whose GCM and APNS values are embedded JSON strings.
func buildEndpointMessage(input types.MulticastInput) (string, error) {
	gcm, err := json.Marshal(gcmMessage{
		Notification: gcmNotification{
			Title: input.Title,
			Body:  input.Body,
			Sound: "default",
		},
		Data:    input.Data,
		Android: gcmAndroid{Priority: "high"},
	})
	if err != nil {
		return "", err
	}

	apns, err := json.Marshal(apnsMessage{
		APS: apnsAPS{
			Alert:            apnsAlert{Title: input.Title, Body: input.Body},
			Sound:            "default",
			ContentAvailable: 1,
		},
	})
	if err != nil {
		return "", err
	}

	outer, err := json.Marshal(map[string]string{
		"default":      input.Body,
		"GCM":          string(gcm),
		"APNS":         string(apns),
		"APNS_SANDBOX": string(apns),
	})
	if err != nil {
		return "", err
	}

	return string(outer), nil
}

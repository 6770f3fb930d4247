package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindValid(t *testing.T) {
	assert.True(t, KindNewOrder.Valid())
	assert.True(t, KindOrderGroupCloseToExpire.Valid())
	assert.False(t, Kind("SOMETHING_ELSE").Valid())
	assert.False(t, Kind("").Valid())
}

func TestKindKeyFragment(t *testing.T) {
	assert.Equal(t, "new_order", KindNewOrder.KeyFragment())
	assert.Equal(t, "trip_status_changed", KindTripStatusChanged.KeyFragment())
}

func TestDecodeEventPayloadRoutesVariants(t *testing.T) {
	raw := json.RawMessage(`{"orderCode":"ORD-1","status":"CONFIRMED"}`)

	p, err := DecodeEventPayload(KindOrderStatusChanged, raw)
	require.NoError(t, err)

	osc, ok := p.(OrderStatusChangedPayload)
	require.True(t, ok)
	assert.Equal(t, "ORD-1", osc.OrderCode)
	assert.Equal(t, "CONFIRMED", osc.Status)
	assert.Equal(t, KindOrderStatusChanged, p.EventKind())
}

func TestDecodeEventPayloadTagsReminderVariant(t *testing.T) {
	raw := json.RawMessage(`{"vehicleCode":"VH-7","technicalSafetyExpiresAt":"2026-09-01"}`)

	driver, err := DecodeEventPayload(KindVehicleDocumentDriverReminder, raw)
	require.NoError(t, err)
	assert.Equal(t, KindVehicleDocumentDriverReminder, driver.EventKind())

	operator, err := DecodeEventPayload(KindVehicleDocumentOperatorReminder, raw)
	require.NoError(t, err)
	assert.Equal(t, KindVehicleDocumentOperatorReminder, operator.EventKind())
}

func TestDecodeEventPayloadUnknownKind(t *testing.T) {
	_, err := DecodeEventPayload(Kind("BOGUS"), nil)
	require.Error(t, err)

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrCodeValidationUnknownKind, appErr.Code)
}

func TestDecodeEventPayloadMalformed(t *testing.T) {
	_, err := DecodeEventPayload(KindNewOrder, json.RawMessage(`{"orderCode":`))
	assert.Error(t, err)
}

func TestNotificationEventActionable(t *testing.T) {
	evt := NotificationEvent{
		Kind:           KindDeleteOrder,
		OrganizationID: "org_1",
		TargetID:       "ORD-1",
		CreatedByID:    "usr_1",
		Payload:        DeleteOrderPayload{OrderCode: "ORD-1"},
	}
	assert.True(t, evt.Actionable())

	missingOrg := evt
	missingOrg.OrganizationID = ""
	assert.False(t, missingOrg.Actionable())

	missingTarget := evt
	missingTarget.TargetID = ""
	assert.False(t, missingTarget.Actionable())

	missingActor := evt
	missingActor.CreatedByID = ""
	assert.False(t, missingActor.Actionable())

	badKind := evt
	badKind.Kind = Kind("NOPE")
	assert.False(t, badKind.Actionable())
}

func TestPushTokenAcceptsBothShapes(t *testing.T) {
	var tokens []PushToken
	raw := `["raw-token-1", {"token":"wrapped-token-2"}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &tokens))

	require.Len(t, tokens, 2)
	assert.Equal(t, "raw-token-1", tokens[0].Value)
	assert.Equal(t, "wrapped-token-2", tokens[1].Value)
}

func TestPushTokenMarshalsFlat(t *testing.T) {
	b, err := json.Marshal(PushToken{Value: "tok"})
	require.NoError(t, err)
	assert.Equal(t, `"tok"`, string(b))
}

func TestErrorCodeHTTPStatus(t *testing.T) {
	assert.Equal(t, 400, ErrCodeValidationMissingField.HTTPStatus())
	assert.Equal(t, 401, ErrCodeAuthTokenInvalid.HTTPStatus())
	assert.Equal(t, 404, ErrCodeNotFoundNotification.HTTPStatus())
	assert.Equal(t, 502, ErrCodeUpstreamDirectory.HTTPStatus())
	assert.Equal(t, 500, ErrCodeInternalDB.HTTPStatus())
}

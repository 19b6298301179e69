package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeliveryStatus(t *testing.T) {
	status, err := ParseDeliveryStatus(" Sent ")
	require.NoError(t, err)
	assert.Equal(t, StatusSent, status)
	assert.True(t, status.Terminal())

	status, err = ParseDeliveryStatus("PROCESSING")
	require.NoError(t, err)
	assert.False(t, status.Terminal())

	_, err = ParseDeliveryStatus("active")
	assert.Error(t, err)
}

func TestNotifyPayloadText(t *testing.T) {
	email := NotifyPayload{Service: EmailChannel, Subject: "Invoice", Body: "<p>hi</p>"}
	slack := NotifyPayload{Service: SlackChannel, Message: "deploy done"}
	assert.Equal(t, "Invoice", email.Text())
	assert.Equal(t, "deploy done", slack.Text())
	assert.False(t, Channel("fax").Valid())
}

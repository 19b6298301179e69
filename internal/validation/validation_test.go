package validation

import (
	"testing"

	"github.com/gkmit/notify-console/internal/gwerrors"
	"github.com/gkmit/notify-console/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestLogin(t *testing.T) {
	assert.NoError(t, Login(models.LoginPayload{Username: "admin@gkmit", Password: "password1"}))

	err := Login(models.LoginPayload{Username: "ad@gkmit", Password: "password1"})
	assert.ErrorIs(t, err, gwerrors.ErrValidation)
	assert.ErrorContains(t, err, "username")

	err = Login(models.LoginPayload{Username: "admin@gkmit", Password: "has space"})
	assert.ErrorContains(t, err, "password")

	err = Login(models.LoginPayload{})
	assert.ErrorContains(t, err, "username is required")
	assert.ErrorContains(t, err, "password is required")
}

func TestSingleFields(t *testing.T) {
	assert.NoError(t, Username("admin@gkmit"))
	assert.Error(t, Username("admin@gkmitlong"))
	assert.Error(t, Username("adm1n@gkmit"))
	assert.NoError(t, Password("12345678"))
	assert.Error(t, Password("1234567"))
	assert.Error(t, Password("1234567890123"))
	assert.NoError(t, Email(" someone@example.org "))
	assert.Error(t, Email("someone@example"))
	assert.NoError(t, SlackChannel("C01234567"))
	assert.Error(t, SlackChannel("X01234567"))
	assert.Error(t, SlackChannel("C0123"))
	assert.NoError(t, Phone("+91 98765-43210"))
	assert.NoError(t, Phone("9876543210"))
	assert.Error(t, Phone("call me"))
}

func TestEmailList(t *testing.T) {
	assert.NoError(t, EmailList("a@example.org, b@example.org,"))
	assert.NoError(t, EmailList(""))
	err := EmailList("a@example.org, nope")
	assert.ErrorIs(t, err, gwerrors.ErrValidation)
	assert.ErrorContains(t, err, "nope")
}

func TestEmailPayload(t *testing.T) {
	payload := models.EmailPayload{
		Service:     models.EmailChannel,
		Destination: "someone@example.org",
		Subject:     "Hello",
		Body:        "<p>Hi</p>",
		Cc:          "a@example.org,b@example.org",
	}
	assert.NoError(t, EmailPayload(payload))

	payload.Bcc = "broken"
	assert.ErrorContains(t, EmailPayload(payload), "bcc")

	payload.Bcc = ""
	payload.Service = models.SMSChannel
	assert.ErrorContains(t, EmailPayload(payload), "service")
}

func TestValidateByChannel(t *testing.T) {
	cases := []struct {
		name    string
		payload models.NotifyPayload
		valid   bool
	}{
		{"sms", models.NotifyPayload{Service: models.SMSChannel, Destination: "+15550001234", Message: "hi"}, true},
		{"sms without message", models.NotifyPayload{Service: models.SMSChannel, Destination: "+15550001234"}, false},
		{"slack", models.NotifyPayload{Service: models.SlackChannel, Destination: "G0123456789", Message: "hi"}, true},
		{"slack bad channel", models.NotifyPayload{Service: models.SlackChannel, Destination: "general", Message: "hi"}, false},
		{"email", models.NotifyPayload{Service: models.EmailChannel, Destination: "a@b.io", Subject: "s", Body: "b"}, true},
		{"unknown", models.NotifyPayload{Service: "fax", Destination: "123"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.payload)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, gwerrors.ErrValidation)
			}
		})
	}
}

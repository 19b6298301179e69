package models

import "encoding/json"

// Channel is the delivery channel of a notification, sent as the "service" field
type Channel string

const (
	EmailChannel Channel = "email"
	SMSChannel   Channel = "sms"
	SlackChannel Channel = "slack"
)

func (c Channel) Valid() bool {
	switch c {
	case EmailChannel, SMSChannel, SlackChannel:
		return true
	default:
		return false
	}
}

type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the "data" part of the login response
type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type RefreshPayload struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse is the "data" part of the refresh response
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	URL         string `json:"url"`
}

type EmailPayload struct {
	Service     Channel      `json:"service"`
	Destination string       `json:"destination"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	FromEmail   string       `json:"fromEmail"`
	Cc          string       `json:"cc,omitempty"`
	Bcc         string       `json:"bcc,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type SMSPayload struct {
	Service     Channel `json:"service"`
	Destination string  `json:"destination"`
	Message     string  `json:"message"`
}

type SlackPayload struct {
	Service     Channel `json:"service"`
	Destination string  `json:"destination"`
	Message     string  `json:"message"`
}

// NotifyPayload is the union of the channel payloads as received by the backend
type NotifyPayload struct {
	Service     Channel      `json:"service"`
	Destination string       `json:"destination"`
	Subject     string       `json:"subject,omitempty"`
	Body        string       `json:"body,omitempty"`
	FromEmail   string       `json:"fromEmail,omitempty"`
	Cc          string       `json:"cc,omitempty"`
	Bcc         string       `json:"bcc,omitempty"`
	Message     string       `json:"message,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Text is the content shown in the logs for the notification
func (p NotifyPayload) Text() string {
	if p.Service == EmailChannel {
		return p.Subject
	}
	return p.Message
}

type NotifyResult struct {
	MessageID string `json:"messageId"`
	ID        int    `json:"id"`
}

// Envelope is the common shape of the backend responses
type Envelope[T any] struct {
	Message    string      `json:"message,omitempty"`
	Data       T           `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// ErrorBody is the shape of the backend error responses
type ErrorBody struct {
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors,omitempty"`
}

type PresignRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

// PresignResponse holds the pre-signed URL to upload an attachment to and the URL it can be read from afterwards
type PresignResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectURL string `json:"objectUrl"`
}

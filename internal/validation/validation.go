// Package validation checks the login form and the notification composers before
// anything is sent to the backend.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/gkmit/notify-console/internal/gwerrors"
	"github.com/gkmit/notify-console/internal/models"
	"github.com/go-playground/validator/v10"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z]{3,10}@[a-zA-Z]{1,5}$`)
var passwordRegex = regexp.MustCompile(`^[^\s]{8,12}$`)
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
var slackChannelRegex = regexp.MustCompile(`^[CGD][A-Z0-9]{8,10}$`)
var phoneRegex = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

var validate *validator.Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report the json names so that the errors match the fields of the payloads
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	mustRegister(v, "username", regexValidation(usernameRegex))
	mustRegister(v, "password", regexValidation(passwordRegex))
	mustRegister(v, "mail", regexValidation(emailRegex))
	mustRegister(v, "slackchannel", regexValidation(slackChannelRegex))
	mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
		return phoneRegex.MatchString(normalizePhone(fl.Field().String()))
	})
	mustRegister(v, "maillist", func(fl validator.FieldLevel) bool {
		return EmailList(fl.Field().String()) == nil
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

func regexValidation(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(strings.TrimSpace(fl.Field().String()))
	}
}

// normalizePhone drops the separators people usually type in phone numbers
func normalizePhone(value string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(value))
}

func fieldError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", gwerrors.ErrValidation, field, reason)
}

// convert turns the errors of the validator into a single error wrapping gwerrors.ErrValidation
func convert(err error) error {
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return fmt.Errorf("%w: %w", gwerrors.ErrValidation, err)
	}
	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, fe.Field()+" "+describe(fe.Tag()))
	}
	return fmt.Errorf("%w: %s", gwerrors.ErrValidation, strings.Join(messages, ", "))
}

func describe(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "username":
		return "must look like name@org (3-10 letters, @, 1-5 letters)"
	case "password":
		return "must be 8-12 characters without spaces"
	case "mail":
		return "is not a valid email address"
	case "maillist":
		return "must be a comma separated list of email addresses"
	case "slackchannel":
		return "is not a valid slack channel ID"
	case "phone":
		return "is not a valid phone number"
	case "eq":
		return "does not match the channel"
	default:
		return "is invalid (" + tag + ")"
	}
}

type loginForm struct {
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,password"`
}

type emailForm struct {
	Service     models.Channel `json:"service" validate:"eq=email"`
	Destination string         `json:"destination" validate:"required,mail"`
	Subject     string         `json:"subject" validate:"required"`
	Body        string         `json:"body" validate:"required"`
	FromEmail   string         `json:"fromEmail" validate:"omitempty,mail"`
	Cc          string         `json:"cc" validate:"omitempty,maillist"`
	Bcc         string         `json:"bcc" validate:"omitempty,maillist"`
}

type smsForm struct {
	Service     models.Channel `json:"service" validate:"eq=sms"`
	Destination string         `json:"destination" validate:"required,phone"`
	Message     string         `json:"message" validate:"required"`
}

type slackForm struct {
	Service     models.Channel `json:"service" validate:"eq=slack"`
	Destination string         `json:"destination" validate:"required,slackchannel"`
	Message     string         `json:"message" validate:"required"`
}

func Login(payload models.LoginPayload) error {
	return convert(validate.Struct(loginForm{Username: payload.Username, Password: payload.Password}))
}

func Username(value string) error {
	if !usernameRegex.MatchString(value) {
		return fieldError("username", describe("username"))
	}
	return nil
}

func Password(value string) error {
	if !passwordRegex.MatchString(value) {
		return fieldError("password", describe("password"))
	}
	return nil
}

func Email(value string) error {
	if !emailRegex.MatchString(strings.TrimSpace(value)) {
		return fieldError("email", describe("mail"))
	}
	return nil
}

// EmailList validates a comma separated list, empty entries are ignored
func EmailList(value string) error {
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !emailRegex.MatchString(entry) {
			return fieldError("email list", fmt.Sprintf("contains an invalid address %q", entry))
		}
	}
	return nil
}

func SlackChannel(value string) error {
	if !slackChannelRegex.MatchString(value) {
		return fieldError("channel", describe("slackchannel"))
	}
	return nil
}

func Phone(value string) error {
	if !phoneRegex.MatchString(normalizePhone(value)) {
		return fieldError("phone", describe("phone"))
	}
	return nil
}

func EmailPayload(payload models.EmailPayload) error {
	return convert(validate.Struct(emailForm{
		Service:     payload.Service,
		Destination: payload.Destination,
		Subject:     payload.Subject,
		Body:        payload.Body,
		FromEmail:   payload.FromEmail,
		Cc:          payload.Cc,
		Bcc:         payload.Bcc,
	}))
}

func SMSPayload(payload models.SMSPayload) error {
	return convert(validate.Struct(smsForm{
		Service:     payload.Service,
		Destination: payload.Destination,
		Message:     payload.Message,
	}))
}

func SlackPayload(payload models.SlackPayload) error {
	return convert(validate.Struct(slackForm{
		Service:     payload.Service,
		Destination: payload.Destination,
		Message:     payload.Message,
	}))
}

// Validate checks a payload received by the backend according to its channel
func Validate(payload models.NotifyPayload) error {
	switch payload.Service {
	case models.EmailChannel:
		return EmailPayload(models.EmailPayload{
			Service:     payload.Service,
			Destination: payload.Destination,
			Subject:     payload.Subject,
			Body:        payload.Body,
			FromEmail:   payload.FromEmail,
			Cc:          payload.Cc,
			Bcc:         payload.Bcc,
		})
	case models.SMSChannel:
		return SMSPayload(models.SMSPayload{Service: payload.Service, Destination: payload.Destination, Message: payload.Message})
	case models.SlackChannel:
		return SlackPayload(models.SlackPayload{Service: payload.Service, Destination: payload.Destination, Message: payload.Message})
	default:
		return fieldError("service", fmt.Sprintf("must be one of email, sms, slack, got %q", payload.Service))
	}
}

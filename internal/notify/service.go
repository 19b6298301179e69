// Package notify exposes the operations of the notification backend used by the console commands.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gkmit/notify-console/internal/apiclient"
	"github.com/gkmit/notify-console/internal/gwerrors"
	"github.com/gkmit/notify-console/internal/logquery"
	"github.com/gkmit/notify-console/internal/models"
	"github.com/gkmit/notify-console/internal/validation"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"
)

const presignPath string = "/uploads/presign"

// SessionStore is the part of the credentials store needed to log in and out
type SessionStore interface {
	Session(ctx context.Context) (*oauth2.Token, error)
	SetSession(ctx context.Context, token *oauth2.Token) error
}

// SessionInfo describes the logged in user, read from the access token without verifying it
type SessionInfo struct {
	Username  string
	ExpiresAt time.Time
	// Expired and ExpiresSoon are false when the token carries no expiry
	Expired     bool
	ExpiresSoon bool
}

// ExpiryWarning is how close to its expiry an access token is reported as expiring soon
const ExpiryWarning time.Duration = 30 * time.Second

type Service struct {
	client *apiclient.Client
	store  SessionStore
}

func NewService(client *apiclient.Client, store SessionStore) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("the api client is required")
	}
	if store == nil {
		return nil, fmt.Errorf("the session store is required")
	}
	return &Service{client: client, store: store}, nil
}

// Login exchanges the username and password for a session. Wrong credentials
// return gwerrors.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) error {
	payload := models.LoginPayload{Username: username, Password: password}
	if err := validation.Login(payload); err != nil {
		return err
	}
	var res models.Envelope[models.LoginResponse]
	err := s.client.Do(ctx, http.MethodPost, "/login", payload, &res, apiclient.AuthExempt(apiclient.ExemptLogin))
	if err != nil {
		return err
	}
	err = s.store.SetSession(ctx, &oauth2.Token{
		AccessToken:  res.Data.AccessToken,
		RefreshToken: res.Data.RefreshToken,
		TokenType:    "Bearer",
	})
	if err != nil {
		return fmt.Errorf("cannot store the session: %w", err)
	}
	slog.Info("NOTIFY", "message", "logged in", "username", username)
	return nil
}

func (s *Service) Logout(ctx context.Context) error {
	return s.client.ClearSession(ctx)
}

func (s *Service) Whoami(ctx context.Context) (SessionInfo, error) {
	session, err := s.store.Session(ctx)
	if errors.Is(err, gwerrors.ErrTokenNotFound) {
		return SessionInfo{}, gwerrors.ErrMissingCredentials
	}
	if err != nil {
		return SessionInfo{}, err
	}
	claims := jwt.RegisteredClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(session.AccessToken, &claims)
	if err != nil {
		return SessionInfo{}, fmt.Errorf("cannot read the access token: %w", err)
	}
	token := models.NewAuthToken(models.AccessTokenType, session.AccessToken)
	return SessionInfo{
		Username:    claims.Subject,
		ExpiresAt:   token.ExpiresAt,
		Expired:     token.Expired(),
		ExpiresSoon: token.ExpiresSoon(ExpiryWarning),
	}, nil
}

func (s *Service) send(ctx context.Context, payload any) (models.NotifyResult, error) {
	var res models.Envelope[models.NotifyResult]
	err := s.client.Do(ctx, http.MethodPost, "/notify", payload, &res)
	if err != nil {
		return models.NotifyResult{}, err
	}
	slog.Debug("NOTIFY", "message", res.Message, "messageID", res.Data.MessageID)
	return res.Data, nil
}

func (s *Service) SendEmail(ctx context.Context, payload models.EmailPayload) (models.NotifyResult, error) {
	payload.Service = models.EmailChannel
	if err := validation.EmailPayload(payload); err != nil {
		return models.NotifyResult{}, err
	}
	return s.send(ctx, payload)
}

func (s *Service) SendSMS(ctx context.Context, payload models.SMSPayload) (models.NotifyResult, error) {
	payload.Service = models.SMSChannel
	if err := validation.SMSPayload(payload); err != nil {
		return models.NotifyResult{}, err
	}
	return s.send(ctx, payload)
}

func (s *Service) SendSlack(ctx context.Context, payload models.SlackPayload) (models.NotifyResult, error) {
	payload.Service = models.SlackChannel
	if err := validation.SlackPayload(payload); err != nil {
		return models.NotifyResult{}, err
	}
	return s.send(ctx, payload)
}

func (s *Service) ListLogs(ctx context.Context, query logquery.LogQuery) (models.LogPage, error) {
	var res models.Envelope[[]models.LogMessage]
	err := s.client.Do(ctx, http.MethodGet, query.Path(), nil, &res)
	if err != nil {
		return models.LogPage{}, err
	}
	output := models.LogPage{Items: res.Data}
	if res.Pagination != nil {
		output.Pagination = *res.Pagination
	}
	return output, nil
}

// DeliveryStatus fetches the current status of a log row, an unknown id returns gwerrors.ErrNotFound
func (s *Service) DeliveryStatus(ctx context.Context, id int) (models.DeliveryStatus, error) {
	var res models.Envelope[models.DeliveryStatusResponse]
	err := s.client.Do(ctx, http.MethodGet, "/delivery-status/"+strconv.Itoa(id), nil, &res)
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %w", gwerrors.ErrNotFound, err)
	}
	if err != nil {
		return "", err
	}
	return models.ParseDeliveryStatus(string(res.Data.DeliveryStatus))
}

// UploadAttachment asks the backend for a pre-signed URL and uploads the content there.
// The content type is detected from the content when it is empty.
func (s *Service) UploadAttachment(
	ctx context.Context,
	fileName string,
	contentType string,
	content io.Reader,
) (models.Attachment, error) {
	raw, err := io.ReadAll(content)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("cannot read the attachment: %w", err)
	}
	if contentType == "" {
		contentType = mimetype.Detect(raw).String()
	}
	var presigned models.Envelope[models.PresignResponse]
	err = s.client.Do(
		ctx,
		http.MethodPost,
		presignPath,
		models.PresignRequest{FileName: fileName, ContentType: contentType},
		&presigned,
	)
	if err != nil {
		return models.Attachment{}, err
	}
	objectURL, err := s.PutObject(ctx, presigned.Data.UploadURL, contentType, bytes.NewReader(raw))
	if err != nil {
		return models.Attachment{}, err
	}
	if presigned.Data.ObjectURL != "" {
		objectURL = presigned.Data.ObjectURL
	}
	return models.Attachment{
		Name:        fileName,
		ContentType: contentType,
		Size:        int64(len(raw)),
		URL:         objectURL,
	}, nil
}

// PutObject uploads the content to a pre-signed URL and returns the URL without the signature.
// The storage host never gets the bearer token.
func (s *Service) PutObject(ctx context.Context, presignedURL, contentType string, content io.Reader) (string, error) {
	target, err := url.Parse(presignedURL)
	if err != nil || !target.IsAbs() {
		return "", fmt.Errorf("invalid pre-signed URL %q", presignedURL)
	}
	_, err = s.client.Put(ctx, presignedURL, content, apiclient.WithHeaders(map[string]string{
		echo.HeaderContentType: contentType,
	}))
	if err != nil {
		return "", fmt.Errorf("cannot upload the attachment: %w", err)
	}
	target.RawQuery = ""
	target.Fragment = ""
	return target.String(), nil
}

package mockbackend

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gkmit/notify-console/internal/gwerrors"
	"github.com/gkmit/notify-console/internal/logquery"
	"github.com/gkmit/notify-console/internal/models"
	"github.com/gkmit/notify-console/internal/utils"
	"github.com/gkmit/notify-console/internal/validation"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

func errorResponse(c echo.Context, status int, message string) error {
	return c.JSON(status, models.ErrorBody{Message: message})
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) login(c echo.Context) error {
	var payload models.LoginPayload
	if err := c.Bind(&payload); err != nil {
		return errorResponse(c, http.StatusBadRequest, "malformed login request")
	}
	hash, found := s.users[payload.Username]
	if !found || bcrypt.CompareHashAndPassword(hash, []byte(payload.Password)) != nil {
		slog.Info("MOCK BACKEND", "message", "login rejected", "username", payload.Username, "requestID", utils.GetRequestID(c))
		return errorResponse(c, http.StatusUnauthorized, "Invalid credentials")
	}
	accessToken, err := s.issueAccessToken(payload.Username)
	if err != nil {
		return err
	}
	refreshToken, err := s.issueRefreshToken(payload.Username)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.Envelope[models.LoginResponse]{
		Message: "Login successful",
		Data:    models.LoginResponse{AccessToken: accessToken, RefreshToken: refreshToken},
	})
}

func (s *Server) refresh(c echo.Context) error {
	s.lock.Lock()
	s.refreshCalls++
	s.lock.Unlock()
	var payload models.RefreshPayload
	if err := c.Bind(&payload); err != nil {
		return errorResponse(c, http.StatusBadRequest, "malformed refresh request")
	}
	username, err := s.verifyRefreshToken(payload.RefreshToken)
	if err != nil {
		slog.Info("MOCK BACKEND", "message", "refresh rejected", "error", err, "requestID", utils.GetRequestID(c))
		return errorResponse(c, http.StatusUnauthorized, "Invalid refresh token")
	}
	accessToken, err := s.issueAccessToken(username)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.Envelope[models.RefreshResponse]{
		Data: models.RefreshResponse{AccessToken: accessToken},
	})
}

func (s *Server) notify(c echo.Context) error {
	var payload models.NotifyPayload
	if err := c.Bind(&payload); err != nil {
		return errorResponse(c, http.StatusBadRequest, "malformed notification request")
	}
	if err := validation.Validate(payload); err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	messageID, err := s.messageIDs.ID()
	if err != nil {
		return err
	}
	s.lock.Lock()
	id := len(s.logs) + 1
	s.logs = append(s.logs, models.LogMessage{
		ID:          id,
		MessageID:   messageID,
		Service:     payload.Service,
		Destination: payload.Destination,
		Message:     payload.Text(),
		Status:      models.StatusPending,
		MessageDate: s.clock().UTC(),
	})
	s.lock.Unlock()
	slog.Info(
		"MOCK BACKEND",
		"message", "notification queued",
		"id", id,
		"service", payload.Service,
		"user", c.Get(usernameKey),
		"requestID", utils.GetRequestID(c),
		"traceID", utils.GetTraceID(c),
	)
	return c.JSON(http.StatusAccepted, models.Envelope[models.NotifyResult]{
		Message: "Notification request accepted and queued.",
		Data:    models.NotifyResult{MessageID: messageID, ID: id},
	})
}

func (s *Server) listLogs(c echo.Context) error {
	query, err := logquery.FromValues(c.QueryParams())
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	s.lock.Lock()
	logs := make([]models.LogMessage, len(s.logs))
	copy(logs, s.logs)
	s.lock.Unlock()
	items, pagination := query.Apply(logs)
	return c.JSON(http.StatusOK, models.Envelope[[]models.LogMessage]{
		Data:       items,
		Pagination: &pagination,
	})
}

// advance moves a notification one step forward, destinations containing "fail" never get delivered
func advance(msg models.LogMessage) models.LogMessage {
	switch msg.Status {
	case models.StatusPending:
		msg.Status = models.StatusProcessing
		msg.Attempts++
	case models.StatusProcessing:
		if strings.Contains(strings.ToLower(msg.Destination), "fail") {
			msg.Status = models.StatusFailed
		} else {
			msg.Status = models.StatusSent
		}
	}
	return msg
}

func (s *Server) deliveryStatus(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "the id has to be a number")
	}
	msg, err := s.advanceLog(id)
	if errors.Is(err, gwerrors.ErrNotFound) {
		return errorResponse(c, http.StatusNotFound, "Message not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.Envelope[models.DeliveryStatusResponse]{
		Data: models.DeliveryStatusResponse{ID: msg.ID, DeliveryStatus: msg.Status},
	})
}

func (s *Server) advanceLog(id int) (models.LogMessage, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if id < 1 || id > len(s.logs) {
		return models.LogMessage{}, gwerrors.ErrNotFound
	}
	s.logs[id-1] = advance(s.logs[id-1])
	return s.logs[id-1], nil
}

// objectKey keeps the characters of the file name that are safe in a URL path segment
func objectKey(prefix, fileName string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, fileName)
	return prefix + "-" + safe
}

func (s *Server) presign(c echo.Context) error {
	var payload models.PresignRequest
	if err := c.Bind(&payload); err != nil || payload.FileName == "" {
		return errorResponse(c, http.StatusBadRequest, "fileName is required")
	}
	prefix, err := s.messageIDs.ID()
	if err != nil {
		return err
	}
	uploadURL, objectURL, err := s.objects.Presign(s.uploadBaseURL, objectKey(prefix, payload.FileName))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.Envelope[models.PresignResponse]{
		Data: models.PresignResponse{UploadURL: uploadURL, ObjectURL: objectURL},
	})
}

// Logs returns a copy of the stored notifications
func (s *Server) Logs() []models.LogMessage {
	s.lock.Lock()
	defer s.lock.Unlock()
	logs := make([]models.LogMessage, len(s.logs))
	copy(logs, s.logs)
	return logs
}

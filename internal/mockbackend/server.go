// Package mockbackend is a development and test double of the notification backend.
// It implements the login, refresh, notify and logs endpoints used by the console.
package mockbackend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gkmit/notify-console/internal/config"
	"github.com/gkmit/notify-console/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/crypto/bcrypt"
)

type Server struct {
	config     *config.MockBackendConfig
	clock      func() time.Time
	messageIDs models.IDGenerator
	refreshIDs models.IDGenerator
	// users maps the usernames to the bcrypt hashes of their passwords
	users         map[string][]byte
	objects       *ObjectStore
	uploadBaseURL *url.URL

	lock          sync.Mutex
	generation    int
	refreshCalls  int
	refreshTokens map[string]refreshTokenEntry
	logs          []models.LogMessage

	echo *echo.Echo
}

func (s *Server) RegisterHandlers(server *echo.Echo, commonMiddlewares ...echo.MiddlewareFunc) {
	e := server.Group("")
	e.Use(commonMiddlewares...)
	e.GET("/health", s.health)
	e.POST("/login", s.login, NoCaching)
	e.POST("/refresh", s.refresh, NoCaching)
	authenticated := e.Group("", s.RequireClientID, s.RequireBearer)
	authenticated.POST("/notify", s.notify)
	authenticated.GET("/logs", s.listLogs)
	authenticated.GET("/delivery-status/:id", s.deliveryStatus)
	if s.objects != nil {
		authenticated.POST("/uploads/presign", s.presign)
	}
}

// Echo returns the echo instance with all the handlers registered
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	slog.Info("MOCK BACKEND", "message", "starting the server", "address", address)
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

type ServerOption func(*Server) error

func WithConfig(mockConfig config.MockBackendConfig) ServerOption {
	return func(s *Server) error {
		s.config = &mockConfig
		return nil
	}
}

// WithClock replaces time.Now, used by the tests to move past token expiry
func WithClock(clock func() time.Time) ServerOption {
	return func(s *Server) error {
		s.clock = clock
		return nil
	}
}

// WithObjectStore enables the attachment uploads, the pre-signed URLs point below baseURL
func WithObjectStore(store *ObjectStore, baseURL string) ServerOption {
	return func(s *Server) error {
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return err
		}
		s.objects = store
		s.uploadBaseURL = parsed
		return nil
	}
}

func WithMiddlewares(middlewares ...echo.MiddlewareFunc) ServerOption {
	return func(s *Server) error {
		s.echo.Use(middlewares...)
		return nil
	}
}

// NewServer creates the mock backend. The users from the configuration are the only ones allowed to log in.
func NewServer(options ...ServerOption) (*Server, error) {
	e := echo.New()
	e.Pre(middleware.RequestID(), middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.HideBanner = true
	e.HidePort = true
	server := Server{
		clock:         time.Now,
		messageIDs:    models.ULIDGenerator{},
		refreshIDs:    models.UUIDGenerator{},
		users:         map[string][]byte{},
		refreshTokens: map[string]refreshTokenEntry{},
		logs:          []models.LogMessage{},
		echo:          e,
	}
	for _, opt := range options {
		err := opt(&server)
		if err != nil {
			return &Server{}, err
		}
	}
	if server.config == nil {
		return &Server{}, fmt.Errorf("mock backend config not provided")
	}
	err := server.config.Validate(config.Development)
	if err != nil {
		return &Server{}, err
	}
	for _, user := range server.config.Users {
		hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.MinCost)
		if err != nil {
			return &Server{}, fmt.Errorf("cannot hash the password of %s: %w", user.Username, err)
		}
		server.users[user.Username] = hash
	}
	server.RegisterHandlers(e)
	return &server, nil
}

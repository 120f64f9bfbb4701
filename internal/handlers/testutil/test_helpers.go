package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/weddingrsvp/internal/api"
	"github.com/charlesng35/weddingrsvp/internal/app"
	iauth "github.com/charlesng35/weddingrsvp/internal/auth"
	sharedtestutil "github.com/charlesng35/weddingrsvp/internal/database/testutil"
	"github.com/charlesng35/weddingrsvp/internal/middleware"
	"github.com/charlesng35/weddingrsvp/internal/models"
	"github.com/charlesng35/weddingrsvp/internal/notify"
	"github.com/charlesng35/weddingrsvp/internal/registry"
	"github.com/charlesng35/weddingrsvp/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Store    registry.Store
	Router   *gin.Engine
	JWT      *iauth.JWTService
	Config   *app.Config
	Services *api.Services
}

// Option adjusts the configuration or wiring of a test environment.
type Option func(*envOptions)

type envOptions struct {
	cfg      *app.Config
	channels []notify.Channel
}

// WithConfig mutates the default test configuration before wiring.
func WithConfig(fn func(cfg *app.Config)) Option {
	return func(o *envOptions) {
		fn(o.cfg)
	}
}

// WithChannels sets the broadcast channels.
func WithChannels(channels ...notify.Channel) Option {
	return func(o *envOptions) {
		o.channels = channels
	}
}

// DefaultConfig is the configuration every Env starts from.
func DefaultConfig() *app.Config {
	return &app.Config{
		Server: app.ServerConfig{
			RateLimit: app.RateLimitConfig{Requests: 1000, Public: 1000, Window: time.Minute},
		},
		Registry: app.RegistryConfig{Driver: registry.DriverDatabase, UniquePhone: true},
		RSVP:     app.RSVPConfig{MaxPlusOnes: 5},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: "test-suite-super-secret-key-32-bytes!!",
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
		},
		Event:      app.EventConfig{SiteURL: "https://wedding.test"},
		Notify:     app.NotifyConfig{Concurrency: 2},
		Monitoring: app.MonitoringConfig{Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"}},
	}
}

// NewEnv provisions a fresh handler test environment with migrations and the seeded admin.
func NewEnv(t *testing.T, opts ...Option) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	o := envOptions{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	cfg := o.cfg

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	store, err := registry.Open(cfg.Registry.Driver, db, registry.WithUniquePhone(cfg.Registry.UniquePhone))
	require.NoError(t, err)

	svc, err := api.NewServices(db, store, jwtSvc, cfg, o.channels)
	require.NoError(t, err)

	router, err := api.NewRouter(db, jwtSvc, cfg, svc, middleware.NewMemoryRateStore())
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Store:    store,
		Router:   router,
		JWT:      jwtSvc,
		Config:   cfg,
		Services: svc,
	}
}

// CreateGuest inserts a guest directly into the store.
func (e *Env) CreateGuest(name, phone string) *models.Guest {
	e.T.Helper()
	guest, err := e.Store.Create(context.Background(), registry.NewGuest{Name: name, PhoneNumber: phone})
	require.NoError(e.T, err)
	return guest
}

// LoginResult mirrors the POST /api/auth/login payload.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Login authenticates an admin and returns the issued token.
func (e *Env) Login(username, password string) LoginResult {
	e.T.Helper()

	payload := map[string]string{
		"username": username,
		"password": password,
	}

	w := e.Request(http.MethodPost, "/api/auth/login", payload, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.AccessToken)
	require.Greater(e.T, result.ExpiresIn, 0)

	return result
}

// AdminToken logs in as the seeded admin.
func (e *Env) AdminToken() string {
	e.T.Helper()
	return e.Login(sharedtestutil.TestAdminUsername, sharedtestutil.TestAdminPassword).AccessToken
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.do(req, token)
}

// Upload posts content as a multipart file under field.
func (e *Env) Upload(path, field, filename string, content []byte, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(e.T, err)
	_, err = part.Write(content)
	require.NoError(e.T, err)
	require.NoError(e.T, writer.Close())

	req, err := http.NewRequest(http.MethodPost, path, &buf)
	require.NoError(e.T, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return e.do(req, token)
}

func (e *Env) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

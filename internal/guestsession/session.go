package guestsession

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/charlesng35/weddingrsvp/pkg/logger"
)

const (
	// DeviceIDKey holds the permanent device identifier.
	DeviceIDKey = "guest.device_id"
	// CodeKey holds the unlocked invitation code.
	CodeKey = "guest.code"
	// EntryPoint is where locked visitors are sent.
	EntryPoint = "/"
)

// ErrLocked is returned by Require when no invitation code is held.
var ErrLocked = errors.New("guestsession: no invitation unlocked")

// Storage is the durable key/value store the session lives in.
// internal/cache.Store satisfies it.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Authorizer resolves the code already bound to a device, returning "" when
// there is none.
type Authorizer interface {
	CodeForDevice(ctx context.Context, deviceID string) (string, error)
}

// LockedError tells the caller where to send a visitor that has not
// unlocked an invitation.
type LockedError struct {
	View     string
	Redirect string
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("guestsession: %s requires an invitation, redirect to %s", e.View, e.Redirect)
}

func (e *LockedError) Is(target error) bool {
	return target == ErrLocked
}

// Session is the guest-side view of who this device is and which
// invitation it has unlocked.
type Session struct {
	storage Storage
	log     *zap.Logger

	mu       sync.RWMutex
	deviceID string
	code     string
}

// Open loads the session from storage, creating the device id on first use.
// When no code is stored and authorizer is set, it asks the server whether
// this device already holds one. That lookup is best-effort: failures leave
// the session locked.
func Open(ctx context.Context, storage Storage, authorizer Authorizer) (*Session, error) {
	if storage == nil {
		return nil, errors.New("guestsession: storage is required")
	}

	s := &Session{storage: storage, log: logger.WithModule("guestsession")}

	deviceID, err := s.loadOrCreateDeviceID(ctx)
	if err != nil {
		return nil, err
	}
	s.deviceID = deviceID

	raw, ok, err := storage.Get(ctx, CodeKey)
	if err != nil {
		return nil, fmt.Errorf("guestsession: load code: %w", err)
	}
	if ok && strings.TrimSpace(string(raw)) != "" {
		s.code = string(raw)
		return s, nil
	}

	if authorizer != nil {
		s.autoLogin(ctx, authorizer)
	}
	return s, nil
}

func (s *Session) loadOrCreateDeviceID(ctx context.Context) (string, error) {
	raw, ok, err := s.storage.Get(ctx, DeviceIDKey)
	if err != nil {
		return "", fmt.Errorf("guestsession: load device id: %w", err)
	}
	if ok && strings.TrimSpace(string(raw)) != "" {
		return string(raw), nil
	}

	id := uuid.NewString()
	if err := s.storage.Set(ctx, DeviceIDKey, []byte(id), 0); err != nil {
		return "", fmt.Errorf("guestsession: persist device id: %w", err)
	}
	return id, nil
}

func (s *Session) autoLogin(ctx context.Context, authorizer Authorizer) {
	code, err := authorizer.CodeForDevice(ctx, s.deviceID)
	if err != nil {
		s.log.Debug("auto-login skipped", zap.Error(err))
		return
	}
	if code == "" {
		return
	}
	if err := s.Unlock(ctx, code); err != nil {
		s.log.Debug("auto-login not persisted", zap.Error(err))
	}
}

// DeviceID returns the permanent identifier of this device.
func (s *Session) DeviceID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deviceID
}

// CurrentCode returns the unlocked code or "".
func (s *Session) CurrentCode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.code
}

// Authorized reports whether a code is held.
func (s *Session) Authorized() bool {
	return s.CurrentCode() != ""
}

// Unlock adopts code and persists it.
func (s *Session) Unlock(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return errors.New("guestsession: code is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Set(ctx, CodeKey, []byte(code), 0); err != nil {
		return fmt.Errorf("guestsession: persist code: %w", err)
	}
	s.code = code
	return nil
}

// Lock forgets the code. The device id is kept so the same device can
// claim again.
func (s *Session) Lock(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Delete(ctx, CodeKey); err != nil {
		return fmt.Errorf("guestsession: clear code: %w", err)
	}
	s.code = ""
	return nil
}

// Require gates a view that needs a guest identity.
func (s *Session) Require(view string) error {
	if s.Authorized() {
		return nil
	}
	return &LockedError{View: view, Redirect: EntryPoint}
}

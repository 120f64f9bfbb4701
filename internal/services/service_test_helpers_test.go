package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/weddingrsvp/internal/models"
	"github.com/charlesng35/weddingrsvp/internal/registry"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newMemoryStore(t *testing.T) registry.Store {
	t.Helper()
	return registry.NewMemoryStore()
}

func mustCreateGuest(t *testing.T, store registry.Store, name, phone string) *models.Guest {
	t.Helper()
	guest, err := store.Create(context.Background(), registry.NewGuest{Name: name, PhoneNumber: phone})
	require.NoError(t, err)
	return guest
}

// stubChannel records deliveries and fails for configured codes.
type stubChannel struct {
	name   string
	failOn map[string]error

	mu   sync.Mutex
	sent map[string]string
}

func (c *stubChannel) Name() string { return c.name }

func (c *stubChannel) Send(_ context.Context, guest *models.Guest, message string) error {
	if err, ok := c.failOn[guest.UniqueCode]; ok {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sent == nil {
		c.sent = map[string]string{}
	}
	c.sent[guest.UniqueCode] = message
	return nil
}

func registryAll() registry.ListOptions {
	return registry.ListOptions{Limit: registry.MaxListLimit}
}

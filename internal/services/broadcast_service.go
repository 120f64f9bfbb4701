package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/weddingrsvp/internal/models"
	"github.com/charlesng35/weddingrsvp/internal/notify"
	"github.com/charlesng35/weddingrsvp/internal/registry"
	"github.com/charlesng35/weddingrsvp/pkg/logger"
	"github.com/charlesng35/weddingrsvp/pkg/metrics"
)

const defaultBroadcastConcurrency = 4

// BroadcastOption customises BroadcastService behaviour.
type BroadcastOption func(*BroadcastService)

// WithBroadcastConcurrency bounds the number of sends in flight.
func WithBroadcastConcurrency(n int) BroadcastOption {
	return func(s *BroadcastService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithBroadcastSiteURL sets the base used for the {link} placeholder.
func WithBroadcastSiteURL(url string) BroadcastOption {
	return func(s *BroadcastService) {
		s.siteURL = strings.TrimRight(strings.TrimSpace(url), "/")
	}
}

// WithBroadcastAudit records broadcasts in the audit log.
func WithBroadcastAudit(audit *AuditService) BroadcastOption {
	return func(s *BroadcastService) {
		s.audit = audit
	}
}

// BroadcastService sends one announcement to every guest on every enabled
// channel. Guests are never modified; the Broadcast row is the only record.
type BroadcastService struct {
	store       registry.Store
	db          *gorm.DB
	channels    []notify.Channel
	audit       *AuditService
	concurrency int
	siteURL     string
	log         *zap.Logger
}

// NewBroadcastService constructs a BroadcastService.
func NewBroadcastService(store registry.Store, db *gorm.DB, channels []notify.Channel, opts ...BroadcastOption) (*BroadcastService, error) {
	if store == nil {
		return nil, errors.New("broadcast service: store is required")
	}
	if db == nil {
		return nil, errors.New("broadcast service: db is required")
	}

	svc := &BroadcastService{
		store:       store,
		db:          db,
		channels:    channels,
		concurrency: defaultBroadcastConcurrency,
		log:         logger.WithModule("broadcast"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Channels lists the names of the enabled channels.
func (s *BroadcastService) Channels() []string {
	names := make([]string, 0, len(s.channels))
	for _, ch := range s.channels {
		names = append(names, ch.Name())
	}
	return names
}

// Broadcast delivers message and returns the stored record. Individual
// delivery failures are counted, not returned.
func (s *BroadcastService) Broadcast(ctx context.Context, message, actor string) (*models.Broadcast, error) {
	ctx = ensureContext(ctx)

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, registry.Invalid("message", "is required")
	}

	guests, err := s.allGuests(ctx)
	if err != nil {
		return nil, fmt.Errorf("broadcast service: load guests: %w", err)
	}

	var delivered, failed, skipped atomic.Int64

	group := new(errgroup.Group)
	group.SetLimit(s.concurrency)

	for i := range guests {
		guest := &guests[i]
		for _, ch := range s.channels {
			group.Go(func() error {
				if ctx.Err() != nil {
					failed.Add(1)
					metrics.BroadcastDeliveries.WithLabelValues(ch.Name(), "failed").Inc()
					return nil
				}

				text := notify.Render(message, guest, s.link(guest.UniqueCode))
				err := ch.Send(ctx, guest, text)
				switch {
				case errors.Is(err, notify.ErrNoAddress):
					skipped.Add(1)
					metrics.BroadcastDeliveries.WithLabelValues(ch.Name(), "skipped").Inc()
				case err != nil:
					failed.Add(1)
					metrics.BroadcastDeliveries.WithLabelValues(ch.Name(), "failed").Inc()
					s.log.Warn("broadcast delivery failed",
						zap.String("channel", ch.Name()),
						zap.String("code", guest.UniqueCode),
						zap.Error(err))
				default:
					delivered.Add(1)
					metrics.BroadcastDeliveries.WithLabelValues(ch.Name(), "delivered").Inc()
				}
				return nil
			})
		}
	}
	_ = group.Wait()

	record := &models.Broadcast{
		Message:    message,
		Channels:   datatypes.JSONSlice[string](s.Channels()),
		Recipients: len(guests),
		Delivered:  int(delivered.Load()),
		Failed:     int(failed.Load()),
		Skipped:    int(skipped.Load()),
		CreatedBy:  strings.TrimSpace(actor),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("broadcast service: save record: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Actor:    record.CreatedBy,
		Action:   "broadcast.send",
		Resource: record.ID,
		Result:   AuditSuccess,
		Metadata: map[string]any{
			"recipients": record.Recipients,
			"delivered":  record.Delivered,
			"failed":     record.Failed,
			"skipped":    record.Skipped,
		},
	})

	s.log.Info("broadcast sent",
		zap.String("id", record.ID),
		zap.Int("recipients", record.Recipients),
		zap.Int("delivered", record.Delivered),
		zap.Int("failed", record.Failed))
	return record, nil
}

func (s *BroadcastService) link(code string) string {
	return s.siteURL + "/rsvp/" + code
}

func (s *BroadcastService) allGuests(ctx context.Context) ([]models.Guest, error) {
	var all []models.Guest
	for offset := 0; ; offset += registry.MaxListLimit {
		page, total, err := s.store.List(ctx, registry.ListOptions{Offset: offset, Limit: registry.MaxListLimit})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < registry.MaxListLimit || int64(len(all)) >= total {
			return all, nil
		}
	}
}

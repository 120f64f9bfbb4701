package api

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/weddingrsvp/internal/app"
	iauth "github.com/charlesng35/weddingrsvp/internal/auth"
	"github.com/charlesng35/weddingrsvp/internal/monitoring"
	"github.com/charlesng35/weddingrsvp/internal/notify"
	"github.com/charlesng35/weddingrsvp/internal/registry"
	"github.com/charlesng35/weddingrsvp/internal/security"
	"github.com/charlesng35/weddingrsvp/internal/services"
)

// Services bundles the domain services exposed over HTTP.
type Services struct {
	Guests      *services.GuestService
	Invitations *services.InvitationService
	Broadcasts  *services.BroadcastService
	Admins      *services.AdminService
	Audit       *services.AuditService
	Health      *monitoring.HealthManager
	Security    *security.Auditor
}

// NewServices wires the domain services around one guest store. Channels
// may be empty, in which case broadcasts only leave an audit record.
func NewServices(db *gorm.DB, store registry.Store, jwt *iauth.JWTService, cfg *app.Config, channels []notify.Channel) (*Services, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if store == nil {
		return nil, fmt.Errorf("guest store must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}

	guests, err := services.NewGuestService(store,
		services.WithGuestSiteURL(cfg.Event.SiteURL),
		services.WithGuestAudit(audit),
	)
	if err != nil {
		return nil, err
	}

	invitations, err := services.NewInvitationService(store,
		services.WithRSVPLock(cfg.RSVP.LockAfterResponse),
		services.WithClaimRequiredForRSVP(cfg.RSVP.RequireClaim),
		services.WithMaxPlusOnes(cfg.RSVP.MaxPlusOnes),
		services.WithReplyCountryCode(cfg.Notify.DefaultCountryCode),
		services.WithInvitationAudit(audit),
	)
	if err != nil {
		return nil, err
	}

	broadcasts, err := services.NewBroadcastService(store, db, channels,
		services.WithBroadcastConcurrency(cfg.Notify.Concurrency),
		services.WithBroadcastSiteURL(cfg.Event.SiteURL),
		services.WithBroadcastAudit(audit),
	)
	if err != nil {
		return nil, err
	}

	admins, err := services.NewAdminService(db, jwt, audit)
	if err != nil {
		return nil, err
	}

	health := monitoring.NewHealthManager(0)
	health.Register(monitoring.DatabaseProbe(db))

	return &Services{
		Guests:      guests,
		Invitations: invitations,
		Broadcasts:  broadcasts,
		Admins:      admins,
		Audit:       audit,
		Health:      health,
		Security:    security.NewAuditor(db, cfg),
	}, nil
}

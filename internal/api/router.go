package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/weddingrsvp/internal/app"
	iauth "github.com/charlesng35/weddingrsvp/internal/auth"
	"github.com/charlesng35/weddingrsvp/internal/handlers"
	"github.com/charlesng35/weddingrsvp/internal/middleware"
)

// NewRouter builds the Gin engine, wires middleware and registers the
// guest-facing and admin routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, svc *Services, rateStore middleware.RateStore) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if svc == nil {
		return nil, fmt.Errorf("services must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders(strings.HasPrefix(cfg.Event.SiteURL, "https://")))
	r.Use(middleware.CORS(cfg.Server.CORSOrigins...))

	limits := cfg.Server.RateLimit
	publicLimit := middleware.RateLimit(rateStore, limits.Public, limits.Window)
	adminLimit := middleware.RateLimit(rateStore, limits.Requests, limits.Window)

	registerHealthRoutes(r, svc.Health)
	registerAuthRoutes(r, handlers.NewAuthHandler(svc.Admins), publicLimit)
	registerInvitationRoutes(r, handlers.NewInvitationHandler(svc.Invitations), publicLimit)

	api := r.Group("/api")
	api.Use(middleware.Auth(jwt), adminLimit)

	registerGuestRoutes(api, handlers.NewGuestHandler(svc.Guests), handlers.NewBroadcastHandler(svc.Broadcasts))
	registerAuditRoutes(api, handlers.NewAuditHandler(svc.Audit, svc.Security))
	registerMonitoringRoutes(r, cfg.Monitoring)

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

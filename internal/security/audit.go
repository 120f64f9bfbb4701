package security

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/weddingrsvp/internal/app"
	"github.com/charlesng35/weddingrsvp/internal/models"
	"github.com/charlesng35/weddingrsvp/pkg/crypto"
)

// CheckStatus captures the outcome of a security audit check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

const maxRecommendedTokenTTL = 24 * time.Hour

// weakPasswords are rejected for admin accounts. The first entry is the
// password the dashboard historically shipped with.
var weakPasswords = []string{"password123", "password", "admin", "changeme", "wedding"}

// Check contains the result of a single audit verification.
type Check struct {
	ID          string      `json:"id"`
	Status      CheckStatus `json:"status"`
	Message     string      `json:"message"`
	Remediation string      `json:"remediation,omitempty"`
	Details     any         `json:"details,omitempty"`
}

// Result aggregates all checks with a simple status summary.
type Result struct {
	CheckedAt time.Time      `json:"checked_at"`
	Checks    []Check        `json:"checks"`
	Summary   map[string]int `json:"summary"`
}

// Auditor reviews the deployment's configuration and admin accounts.
type Auditor struct {
	db  *gorm.DB
	cfg *app.Config
	now func() time.Time
}

// NewAuditor constructs the auditor. Missing inputs degrade the affected
// checks to warnings.
func NewAuditor(db *gorm.DB, cfg *app.Config) *Auditor {
	return &Auditor{db: db, cfg: cfg, now: time.Now}
}

// WithClock overrides the clock used in results.
func (a *Auditor) WithClock(clock func() time.Time) {
	if clock != nil {
		a.now = clock
	}
}

// Run executes all audit checks.
func (a *Auditor) Run(ctx context.Context) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	checks := []Check{
		a.checkAdminPasswords(ctx),
		a.checkJWTSecret(),
		a.checkTokenTTL(),
		a.checkCORS(),
		a.checkSiteURL(),
	}

	summary := map[string]int{
		string(StatusPass): 0,
		string(StatusWarn): 0,
		string(StatusFail): 0,
	}
	for _, check := range checks {
		summary[string(check.Status)]++
	}

	return Result{
		CheckedAt: a.now().UTC(),
		Checks:    checks,
		Summary:   summary,
	}
}

func (a *Auditor) checkAdminPasswords(ctx context.Context) Check {
	const id = "admin_passwords"
	if a.db == nil {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     "Database unavailable, admin accounts not checked.",
			Remediation: "Ensure database connectivity before running the audit.",
		}
	}

	var admins []models.Admin
	if err := a.db.WithContext(ctx).Select("username", "password_hash").Find(&admins).Error; err != nil {
		return Check{
			ID:      id,
			Status:  StatusWarn,
			Message: fmt.Sprintf("Could not load admin accounts: %v", err),
		}
	}

	if len(admins) == 0 {
		return Check{
			ID:          id,
			Status:      StatusFail,
			Message:     "No admin account exists.",
			Remediation: "Set auth.admin.username so an account is seeded at start-up.",
		}
	}

	var weak []string
	for _, admin := range admins {
		for _, candidate := range weakPasswords {
			if crypto.VerifyPassword(admin.PasswordHash, candidate) {
				weak = append(weak, admin.Username)
				break
			}
		}
	}
	if len(weak) > 0 {
		return Check{
			ID:          id,
			Status:      StatusFail,
			Message:     "Admin accounts use a well-known password.",
			Remediation: "Change the password of the listed accounts.",
			Details:     map[string]any{"usernames": weak},
		}
	}

	return Check{
		ID:      id,
		Status:  StatusPass,
		Message: "Admin passwords are not well-known.",
		Details: map[string]any{"count": len(admins)},
	}
}

func (a *Auditor) checkJWTSecret() Check {
	const id = "jwt_secret_strength"
	if a.cfg == nil {
		return configMissing(id)
	}

	length := len(a.cfg.Auth.JWT.Secret)
	switch {
	case length == 0:
		return Check{
			ID:          id,
			Status:      StatusFail,
			Message:     "Missing JWT signing secret.",
			Remediation: "Provide a random signing secret of at least 32 bytes.",
		}
	case length < 32:
		return Check{
			ID:          id,
			Status:      StatusFail,
			Message:     fmt.Sprintf("JWT signing secret is too short (%d bytes).", length),
			Remediation: "Use a randomly generated secret of at least 32 bytes.",
		}
	case length < 48:
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("JWT signing secret is %d bytes. Consider 48 or more.", length),
			Remediation: "Increase WEDDING_AUTH_JWT_SECRET to at least 48 bytes.",
			Details:     map[string]any{"length": length},
		}
	default:
		return Check{
			ID:      id,
			Status:  StatusPass,
			Message: fmt.Sprintf("JWT signing secret length is %d bytes.", length),
			Details: map[string]any{"length": length},
		}
	}
}

func (a *Auditor) checkTokenTTL() Check {
	const id = "admin_token_ttl"
	if a.cfg == nil {
		return configMissing(id)
	}

	ttl := a.cfg.Auth.JWT.TTL
	if ttl > maxRecommendedTokenTTL {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Admin token lifetime (%s) exceeds %s.", ttl, maxRecommendedTokenTTL),
			Remediation: "Lower auth.jwt.access_token_ttl so stolen tokens expire sooner.",
			Details:     map[string]any{"ttl": ttl.String()},
		}
	}
	return Check{
		ID:      id,
		Status:  StatusPass,
		Message: fmt.Sprintf("Admin token lifetime is %s.", ttl),
	}
}

func (a *Auditor) checkCORS() Check {
	const id = "cors_origins"
	if a.cfg == nil {
		return configMissing(id)
	}

	if slices.Contains(a.cfg.Server.CORSOrigins, "*") {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     "CORS allows any origin.",
			Remediation: "List the invitation site origin in server.cors_origins.",
		}
	}
	return Check{ID: id, Status: StatusPass, Message: "CORS origins are restricted."}
}

func (a *Auditor) checkSiteURL() Check {
	const id = "site_url_https"
	if a.cfg == nil {
		return configMissing(id)
	}

	u, err := url.Parse(strings.TrimSpace(a.cfg.Event.SiteURL))
	if err != nil || u.Host == "" {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     "event.site_url is not a valid URL; invitation links will be broken.",
			Remediation: "Set event.site_url to the public address of the invitation site.",
		}
	}

	host := u.Hostname()
	if u.Scheme != "https" && host != "localhost" && host != "127.0.0.1" {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     "Invitation links are sent over plain HTTP.",
			Remediation: "Serve the invitation site over HTTPS.",
			Details:     map[string]any{"site_url": u.String()},
		}
	}
	return Check{ID: id, Status: StatusPass, Message: "Invitation links use a secure origin."}
}

func configMissing(id string) Check {
	return Check{
		ID:          id,
		Status:      StatusWarn,
		Message:     "Configuration not loaded.",
		Remediation: "Load configuration before running the security audit.",
	}
}

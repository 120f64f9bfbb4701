package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/weddingrsvp/internal/api"
	"github.com/charlesng35/weddingrsvp/internal/app"
	"github.com/charlesng35/weddingrsvp/internal/app/maintenance"
	iauth "github.com/charlesng35/weddingrsvp/internal/auth"
	"github.com/charlesng35/weddingrsvp/internal/cache"
	"github.com/charlesng35/weddingrsvp/internal/database"
	"github.com/charlesng35/weddingrsvp/internal/middleware"
	"github.com/charlesng35/weddingrsvp/internal/monitoring"
	"github.com/charlesng35/weddingrsvp/internal/notify"
	"github.com/charlesng35/weddingrsvp/internal/registry"
	"github.com/charlesng35/weddingrsvp/pkg/logger"
	"github.com/charlesng35/weddingrsvp/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Guests    registry.Store
	Services  *api.Services
	Channels  []notify.Channel
	WhatsApp  *notify.MultiDeviceChannel
	Cleaner   *maintenance.Cleaner
	RateStore middleware.RateStore
	Router    *gin.Engine
}

// bootstrapRuntime initialises the database, guest registry, delivery
// channels, services and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	stack.Guests, err = registry.Open(cfg.Registry.Driver, stack.DB,
		registry.WithCodeLength(cfg.Registry.CodeLength),
		registry.WithUniquePhone(cfg.Registry.UniquePhone),
	)
	if err != nil {
		return nil, fmt.Errorf("open guest registry: %w", err)
	}

	if err := stack.openChannels(ctx, cfg, log); err != nil {
		return nil, err
	}

	stack.Services, err = api.NewServices(stack.DB, stack.Guests, jwtSvc, cfg, stack.Channels)
	if err != nil {
		return nil, fmt.Errorf("initialise services: %w", err)
	}

	if stack.WhatsApp != nil && cfg.Notify.WhatsApp.RecordReplies {
		stack.WhatsApp.OnReply(stack.Services.Invitations.HandleReply)
	}

	stack.Cleaner = maintenance.NewCleaner(stack.Services.Audit, dbStore, stack.Services.Guests,
		maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
		maintenance.WithAuditSchedule(cfg.Maintenance.AuditSchedule),
		maintenance.WithCacheSchedule(cfg.Maintenance.CacheSchedule),
		maintenance.WithStatsSchedule(cfg.Maintenance.StatsSchedule),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Services.Health.Register(monitoring.MaintenanceProbe(stack.Cleaner, 0))
	if stack.WhatsApp != nil {
		stack.Services.Health.Register(monitoring.ConnectionProbe("whatsapp", stack.WhatsApp.Connected))
	}

	stack.RateStore = middleware.NewCacheRateStore(dbStore)

	stack.Router, err = api.NewRouter(stack.DB, jwtSvc, cfg, stack.Services, stack.RateStore)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// openChannels builds the enabled broadcast channels. A misconfigured
// optional channel is logged and skipped so the invitation site still starts.
func (s *runtimeStack) openChannels(ctx context.Context, cfg *app.Config, log *zap.Logger) error {
	if cfg.Notify.WhatsAppCloud.Enabled {
		cloud, err := notify.NewCloudChannel(cfg.Notify.CloudSettings(), nil)
		if err != nil {
			log.Warn("whatsapp cloud channel disabled", zap.Error(err))
		} else {
			s.Channels = append(s.Channels, cloud)
			log.Info("whatsapp cloud channel enabled")
		}
	}

	if cfg.Notify.WhatsApp.Enabled {
		settings := cfg.Notify.MultiDeviceSettings()
		settings.QRWriter = os.Stdout
		if dir := filepath.Dir(settings.StorePath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create whatsapp store dir: %w", err)
			}
		}

		waLogger := zerolog.New(os.Stderr).With().Timestamp().Str("module", "whatsapp").Logger()
		channel, err := notify.OpenMultiDevice(ctx, settings, waLogger)
		if err != nil {
			log.Warn("whatsapp channel disabled", zap.Error(err))
		} else {
			s.WhatsApp = channel
			s.Channels = append(s.Channels, channel)
			// Pairing blocks until the QR code is scanned.
			go func() {
				if err := channel.Connect(ctx); err != nil {
					log.Warn("whatsapp connect failed", zap.Error(err))
				}
			}()
		}
	}

	if cfg.Notify.Email.Enabled {
		mailer, err := mail.NewSMTPMailer(cfg.Notify.Email.SMTPSettings())
		if err != nil {
			log.Warn("email channel disabled", zap.Error(err))
		} else {
			s.Channels = append(s.Channels, notify.NewEmailChannel(mailer, cfg.Notify.Email.Subject))
			log.Info("email channel enabled", zap.String("host", cfg.Notify.Email.SMTP.Host))
		}
	}

	if len(s.Channels) == 0 {
		log.Info("no delivery channels enabled; broadcasts will only be audited")
	}
	return nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			ctx = stopCtx
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.WhatsApp != nil {
		s.WhatsApp.Close()
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseSettings()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db, cfg.Auth.AdminSeed()); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

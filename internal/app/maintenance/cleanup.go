package maintenance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/weddingrsvp/internal/models"
	"github.com/charlesng35/weddingrsvp/internal/registry"
	"github.com/charlesng35/weddingrsvp/internal/services"
	"github.com/charlesng35/weddingrsvp/pkg/logger"
	"github.com/charlesng35/weddingrsvp/pkg/metrics"
)

const (
	defaultAuditRetentionDays = 180
	defaultAuditSpec          = "@daily"
	defaultCacheSpec          = "@hourly"
	defaultStatsSpec          = "@every 1m"
)

// Job names reported by Jobs.
const (
	JobAuditCleanup = "audit_cleanup"
	JobCachePurge   = "cache_purge"
	JobGuestStats   = "guest_stats"
)

// JobStatus is the run history of one maintenance job.
type JobStatus struct {
	Name                string    `json:"name"`
	Runs                int       `json:"runs"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastRunAt           time.Time `json:"last_run_at"`
	LastError           string    `json:"last_error,omitempty"`
}

// CachePurger drops expired cache rows.
type CachePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// StatsSource reports guest list totals.
type StatsSource interface {
	Stats(ctx context.Context) (registry.Stats, error)
}

// Cleaner coordinates background maintenance: audit retention, expired
// cache rows and the guest gauges exported to prometheus.
type Cleaner struct {
	audit     *services.AuditService
	cache     CachePurger
	stats     StatsSource
	cron      *cron.Cron
	log       *zap.Logger
	retention int

	auditSchedule string
	cacheSchedule string
	statsSchedule string

	now     func() time.Time
	mu      sync.Mutex
	history map[string]*JobStatus
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
// Zero or less keeps the default.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

func WithCacheSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.cacheSchedule = spec
		}
	}
}

func WithStatsSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.statsSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner. Any nil dependency results in the
// corresponding job being skipped.
func NewCleaner(audit *services.AuditService, cache CachePurger, stats StatsSource, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		audit:         audit,
		cache:         cache,
		stats:         stats,
		retention:     defaultAuditRetentionDays,
		auditSchedule: defaultAuditSpec,
		cacheSchedule: defaultCacheSpec,
		statsSchedule: defaultStatsSpec,
		log:           logger.WithModule("maintenance"),
		now:           time.Now,
		history:       make(map[string]*JobStatus),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the jobs with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	for _, job := range c.jobList() {
		if _, err := c.cron.AddFunc(job.spec, func() {
			if err := c.runJob(context.Background(), job); err != nil {
				c.log.Warn("maintenance job failed", zap.String("job", job.name), zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler. The returned context is done once
// running jobs complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every configured job sequentially and aggregates failures.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	for _, job := range c.jobList() {
		errs = multierr.Append(errs, c.runJob(ctx, job))
	}
	return errs
}

// Jobs reports the run history of each configured job, sorted by name.
func (c *Cleaner) Jobs() []JobStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]JobStatus, 0, len(c.history))
	for _, status := range c.history {
		out = append(out, *status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

type job struct {
	name string
	spec string
	run  func(ctx context.Context) error
}

func (c *Cleaner) jobList() []job {
	var jobs []job
	if c.audit != nil {
		jobs = append(jobs, job{name: JobAuditCleanup, spec: c.auditSchedule, run: c.pruneAudit})
	}
	if c.cache != nil {
		jobs = append(jobs, job{name: JobCachePurge, spec: c.cacheSchedule, run: func(ctx context.Context) error {
			_, err := c.cache.PurgeExpired(ctx)
			return err
		}})
	}
	if c.stats != nil {
		jobs = append(jobs, job{name: JobGuestStats, spec: c.statsSchedule, run: c.RefreshStats})
	}
	return jobs
}

func (c *Cleaner) runJob(ctx context.Context, j job) error {
	err := j.run(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	status, ok := c.history[j.name]
	if !ok {
		status = &JobStatus{Name: j.name}
		c.history[j.name] = status
	}
	status.Runs++
	status.LastRunAt = c.now()
	if err != nil {
		status.ConsecutiveFailures++
		status.LastError = err.Error()
	} else {
		status.ConsecutiveFailures = 0
		status.LastError = ""
	}
	return err
}

func (c *Cleaner) pruneAudit(ctx context.Context) error {
	removed, err := c.audit.CleanupOlderThan(ctx, c.retention)
	if err != nil {
		return err
	}
	if removed > 0 {
		c.log.Info("audit logs pruned", zap.Int64("removed", removed))
	}
	return nil
}

// RefreshStats publishes the current guest totals to the prometheus gauges.
func (c *Cleaner) RefreshStats(ctx context.Context) error {
	if c.stats == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	stats, err := c.stats.Stats(ctx)
	if err != nil {
		return err
	}

	metrics.GuestsByStatus.WithLabelValues(string(models.RSVPPending)).Set(float64(stats.Pending))
	metrics.GuestsByStatus.WithLabelValues(string(models.RSVPAttending)).Set(float64(stats.Attending))
	metrics.GuestsByStatus.WithLabelValues(string(models.RSVPDeclined)).Set(float64(stats.Declined))
	metrics.ExpectedAttendees.Set(float64(stats.ExpectedAttendees))
	return nil
}

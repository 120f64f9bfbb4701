package monitoring

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/weddingrsvp/internal/app/maintenance"
	"github.com/charlesng35/weddingrsvp/internal/database"
)

const defaultMaintenanceMaxAge = 6 * time.Hour

// DatabaseProbe pings the database handle.
func DatabaseProbe(db *gorm.DB) Probe {
	return Probe{
		Name: "database",
		Run: func(ctx context.Context) ProbeResult {
			start := time.Now()
			if db == nil {
				return ProbeResult{Status: StatusDown, Details: "database not configured"}
			}
			return ResultFromError(database.Ping(ctx, db), time.Since(start))
		},
	}
}

// JobReporter exposes maintenance run history.
type JobReporter interface {
	Jobs() []maintenance.JobStatus
}

// MaintenanceProbe degrades when a job keeps failing or has not run within
// maxAge. Jobs that have not run yet are ignored.
func MaintenanceProbe(jobs JobReporter, maxAge time.Duration) Probe {
	if maxAge <= 0 {
		maxAge = defaultMaintenanceMaxAge
	}

	return Probe{
		Name:     "maintenance",
		Optional: true,
		Run: func(ctx context.Context) ProbeResult {
			if jobs == nil {
				return ProbeResult{Status: StatusUp, Details: "no maintenance jobs"}
			}

			now := time.Now()
			status := StatusUp
			var problems []string
			for _, job := range jobs.Jobs() {
				if job.ConsecutiveFailures > 0 {
					status = StatusDegraded
					problems = append(problems, job.Name+": "+job.LastError)
				}
				if !job.LastRunAt.IsZero() && now.Sub(job.LastRunAt) > maxAge {
					status = StatusDegraded
					problems = append(problems, job.Name+": last run "+job.LastRunAt.UTC().Format(time.RFC3339))
				}
			}
			return ProbeResult{Status: status, Details: strings.Join(problems, "; ")}
		},
	}
}

// ConnectionProbe reports an optional delivery channel's link state.
func ConnectionProbe(name string, connected func() bool) Probe {
	return Probe{
		Name:     name,
		Optional: true,
		Run: func(context.Context) ProbeResult {
			if connected == nil || !connected() {
				return ProbeResult{Status: StatusDegraded, Details: "not connected"}
			}
			return ProbeResult{Status: StatusUp}
		},
	}
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InvitationClaims counts claim attempts by result
	// (bound|reclaimed|mismatch|not_found|error).
	InvitationClaims = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wedding_invitation_claims_total",
			Help: "Total number of invitation claim attempts",
		},
		[]string{"result"},
	)

	// DeviceLookups counts silent re-authorisation lookups (hit|miss|error).
	DeviceLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wedding_device_lookups_total",
			Help: "Total number of device validation lookups",
		},
		[]string{"result"},
	)

	// RSVPSubmissions counts RSVP writes by submitted status.
	RSVPSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wedding_rsvp_submissions_total",
			Help: "Total number of RSVP submissions",
		},
		[]string{"status"},
	)

	// BroadcastDeliveries counts per-guest sends by channel and result.
	BroadcastDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wedding_broadcast_deliveries_total",
			Help: "Total number of broadcast message deliveries",
		},
		[]string{"channel", "result"},
	)

	AdminLogins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wedding_admin_logins_total",
			Help: "Total number of admin login attempts",
		},
		[]string{"result"},
	)

	// GuestsByStatus is refreshed by the maintenance scheduler.
	GuestsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wedding_guests",
			Help: "Number of guests per RSVP status",
		},
		[]string{"status"},
	)

	ExpectedAttendees = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wedding_expected_attendees",
			Help: "Attending guests plus their plus-ones",
		},
	)

	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wedding_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wedding_http_in_flight_requests",
			Help: "Requests currently being served",
		},
	)

	// RecoveredPanics counts handler panics turned into 500 responses.
	RecoveredPanics = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wedding_http_panics_total",
			Help: "Total number of recovered handler panics",
		},
	)
)

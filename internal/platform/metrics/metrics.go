package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	DonationsPublished prometheus.Counter
	ClaimsCreated      prometheus.Counter
	ClaimConflicts     prometheus.Counter
	MatchesAccepted    prometheus.Counter
	MatchesRejected    prometheus.Counter
	MatchesCompleted   prometheus.Counter
	RatingsSubmitted   prometheus.Counter
	RequestLatency     *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return newWithRegisterer(prometheus.DefaultRegisterer)
}

// NewForTest registers against a private registry so parallel test packages
// do not collide on the default one.
func NewForTest() *Metrics {
	return newWithRegisterer(prometheus.NewRegistry())
}

func newWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DonationsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "givebridge_donations_published_total",
			Help: "Total number of donations published by donors",
		}),
		ClaimsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "givebridge_claims_created_total",
			Help: "Total number of claims that created a pending match",
		}),
		ClaimConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "givebridge_claim_conflicts_total",
			Help: "Total number of claims rejected because the donation already had an active match",
		}),
		MatchesAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "givebridge_matches_accepted_total",
			Help: "Total number of matches accepted by donors",
		}),
		MatchesRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "givebridge_matches_rejected_total",
			Help: "Total number of matches rejected by donors",
		}),
		MatchesCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "givebridge_matches_completed_total",
			Help: "Total number of matches completed via dual confirmation",
		}),
		RatingsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "givebridge_ratings_submitted_total",
			Help: "Total number of ratings persisted",
		}),
		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "givebridge_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

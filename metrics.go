package versioner

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Migration outcomes used as the "outcome" label.
const (
	OutcomeOK                 = "ok"
	OutcomeInvalidVersionType = "invalid_version_type"
	OutcomeMissingVersion     = "missing_version"
	OutcomeUnsupportedVersion = "unsupported_version"
	OutcomeInvalidRecord      = "invalid_record"
	OutcomeUnknownTarget      = "unknown_target"
	OutcomeNoVersions         = "no_versions"
)

// Metrics exposes Prometheus collectors for migrations. A nil *Metrics is a
// valid no-op receiver.
type Metrics struct {
	migrations *prometheus.CounterVec
	steps      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates the migration collectors and registers them on reg.
// A nil reg registers on prometheus.DefaultRegisterer.
//
// Collectors:
//   - versioner_migrations_total{from,to,outcome}
//   - versioner_upgrade_steps_total{to}
//   - versioner_migration_duration_seconds{outcome}
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		migrations: createCounterVec("versioner_migrations_total", "Total number of migration calls by source version, target version and outcome", []string{"from", "to", "outcome"}),
		steps:      createCounterVec("versioner_upgrade_steps_total", "Total number of upgrade steps applied, by the version they produced", []string{"to"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "versioner_migration_duration_seconds",
			Help:    "Duration of migration calls in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.migrations, m.steps, m.duration)
	return m
}

func createCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: name,
			Help: help,
		},
		labels,
	)
}

func (m *Metrics) observeMigration(start time.Time, from, to int, outcome string) {
	if m == nil {
		return
	}
	m.migrations.WithLabelValues(versionLabel(from), versionLabel(to), outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeStep(to int) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(strconv.Itoa(to)).Inc()
}

func versionLabel(v int) string {
	if v == noVersion {
		return "unknown"
	}
	return strconv.Itoa(v)
}

// outcomeOf maps a migration error onto its outcome label.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case IsInvalidVersionType(err):
		return OutcomeInvalidVersionType
	case IsMissingVersion(err):
		return OutcomeMissingVersion
	case IsUnsupportedVersion(err):
		return OutcomeUnsupportedVersion
	case errors.Is(err, ErrUnknownTargetVersion):
		return OutcomeUnknownTarget
	case errors.Is(err, ErrNoVersions):
		return OutcomeNoVersions
	default:
		return OutcomeInvalidRecord
	}
}

// Package metrics records packaging, npm and archive metrics in a
// Prometheus registry and keeps an in-process summary for CLI output.
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Config configures the metric set.
type Config struct {
	Namespace string
	Registry  *prometheus.Registry
	Buckets   []float64
}

// Option configures Metrics.
type Option func(*Config)

// WithNamespace sets the metric namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		if namespace != "" {
			c.Namespace = namespace
		}
	}
}

// WithRegistry registers the metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = reg
	}
}

// Metrics holds the collectors.
type Metrics struct {
	registry        *prometheus.Registry
	packageTotal    *prometheus.CounterVec
	packageDuration *prometheus.HistogramVec
	npmInvocations  *prometheus.CounterVec
	archiveBytes    prometheus.Histogram

	mu      sync.RWMutex
	summary Summary
}

// Summary is the in-process view of packaging results.
type Summary struct {
	Total           int64
	Succeeded       int64
	Failed          int64
	TotalDuration   time.Duration
	AverageDuration time.Duration
	ArchiveBytes    int64
}

// SuccessRate returns the share of successful packagings as a percentage.
func (s Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Total) * 100
}

// New creates the metric set.
func New(opts ...Option) *Metrics {
	cfg := Config{
		Namespace: "ocpack",
		Buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	factory := promauto.With(cfg.Registry)

	return &Metrics{
		registry: cfg.Registry,
		packageTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "package_total",
			Help:      "Components packaged, by template and status",
		}, []string{"template", "status"}),

		packageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "package_duration_seconds",
			Help:      "Time spent packaging one component",
			Buckets:   cfg.Buckets,
		}, []string{"template"}),

		npmInvocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "npm_invocations_total",
			Help:      "Package manager invocations, by operation and status",
		}, []string{"operation", "status"}),

		archiveBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "archive_bytes",
			Help:      "Size of produced archives",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObservePackage records one packaging attempt.
func (m *Metrics) ObservePackage(template string, d time.Duration, err error) {
	if m == nil {
		return
	}

	status := statusOf(err)
	m.packageTotal.WithLabelValues(template, status).Inc()
	m.packageDuration.WithLabelValues(template).Observe(d.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.summary.Total++
	m.summary.TotalDuration += d
	if err != nil {
		m.summary.Failed++
	} else {
		m.summary.Succeeded++
	}
	m.summary.AverageDuration = m.summary.TotalDuration / time.Duration(m.summary.Total)
}

// ObserveNPM records one package manager invocation.
func (m *Metrics) ObserveNPM(operation string, err error) {
	if m == nil {
		return
	}
	m.npmInvocations.WithLabelValues(operation, statusOf(err)).Inc()
}

// ObserveArchive records the size of a produced archive.
func (m *Metrics) ObserveArchive(size int64) {
	if m == nil {
		return
	}
	m.archiveBytes.Observe(float64(size))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.summary.ArchiveBytes += size
}

// Snapshot returns a copy of the summary.
func (m *Metrics) Snapshot() Summary {
	if m == nil {
		return Summary{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.summary
}

// WriteTextfile writes the registry in the node exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

func statusOf(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}

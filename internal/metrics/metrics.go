package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// CLI Authorization Flow Metrics
	CLIAuthCodesTotal   *prometheus.CounterVec
	CLIAuthApprovals    prometheus.Counter
	CLIAuthPollsTotal   *prometheus.CounterVec
	CLIAuthCodesActive  prometheus.Gauge
	CLIAuthCodesPending prometheus.Gauge

	// Token Metrics
	TokensIssuedTotal  prometheus.Counter
	TokensRevokedTotal *prometheus.CounterVec
	TokensActive       prometheus.Gauge

	// Authentication Metrics
	OAuthLoginsTotal *prometheus.CounterVec
	LogoutsTotal     prometheus.Counter

	// Config Metrics
	InstallScriptsServedTotal *prometheus.CounterVec
	ConfigWritesTotal         *prometheus.CounterVec

	// Registry Search Metrics
	RegistrySearchesTotal *prometheus.CounterVec

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Database Query Metrics
	DatabaseQueryErrorsTotal *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag
// If enabled=true, returns Prometheus-based Metrics
// If enabled=false, returns NoopMetrics (zero overhead)
// Uses sync.Once to ensure Prometheus metrics are only registered once
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// initMetrics creates and registers all Prometheus metrics
func initMetrics() *Metrics {
	m := &Metrics{
		// CLI Authorization Flow Metrics
		CLIAuthCodesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cli_auth_codes_total",
				Help: "Total number of CLI auth codes started",
			},
			[]string{"result"}, // success, error
		),
		CLIAuthApprovals: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "cli_auth_codes_approved_total",
				Help: "Total number of CLI auth codes approved by users",
			},
		),
		CLIAuthPollsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cli_auth_polls_total",
				Help: "Total number of CLI auth poll requests",
			},
			[]string{"result"}, // pending, approved, expired
		),
		CLIAuthCodesActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "cli_auth_codes_active",
				Help: "Current number of unexpired CLI auth codes",
			},
		),
		CLIAuthCodesPending: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "cli_auth_codes_pending",
				Help: "Current number of CLI auth codes awaiting approval",
			},
		),

		// Token Metrics
		TokensIssuedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "api_tokens_issued_total",
				Help: "Total number of API tokens issued",
			},
		),
		TokensRevokedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "api_tokens_revoked_total",
				Help: "Total number of API tokens revoked",
			},
			[]string{"reason"}, // user_request, expired
		),
		TokensActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "api_tokens_active",
				Help: "Current number of unexpired API tokens",
			},
		),

		// Authentication Metrics
		OAuthLoginsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_logins_total",
				Help: "Total number of OAuth login attempts",
			},
			[]string{"provider", "result"}, // provider: github, google; result: success, error
		),
		LogoutsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "logouts_total",
				Help: "Total number of logouts",
			},
		),

		// Config Metrics
		InstallScriptsServedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "install_scripts_served_total",
				Help: "Total number of install scripts served",
			},
			[]string{"visibility"}, // public, unlisted, private, bootstrap
		),
		ConfigWritesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "config_writes_total",
				Help: "Total number of config create/update/delete operations",
			},
			[]string{"operation", "result"}, // operation: create, update, delete
		),

		// Registry Search Metrics
		RegistrySearchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registry_searches_total",
				Help: "Total number of package registry searches",
			},
			[]string{"registry", "result"}, // registry: homebrew, npm
		),

		// HTTP Request Metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP request latency in seconds",
				Buckets: []float64{
					0.001,
					0.005,
					0.010,
					0.025,
					0.050,
					0.100,
					0.250,
					0.500,
					1.0,
					2.5,
					5.0,
					10.0,
				},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),

		// Database Query Metrics
		DatabaseQueryErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "database_query_errors_total",
				Help: "Total number of database query errors during metric collection",
			},
			[]string{"operation"}, // count_api_tokens, count_cli_auth_codes
		),
	}

	return m
}

// RecordCLIAuthCodeStarted records a CLI auth code being started
func (m *Metrics) RecordCLIAuthCodeStarted(success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.CLIAuthCodesTotal.WithLabelValues(result).Inc()
}

// RecordCLIAuthCodeApproved records a browser-side approval
func (m *Metrics) RecordCLIAuthCodeApproved() {
	m.CLIAuthApprovals.Inc()
}

// RecordCLIAuthPoll records a CLI poll result
func (m *Metrics) RecordCLIAuthPoll(result string) {
	// result: pending, approved, expired
	m.CLIAuthPollsTotal.WithLabelValues(result).Inc()
}

// RecordTokenIssued records API token issuance
func (m *Metrics) RecordTokenIssued() {
	m.TokensIssuedTotal.Inc()
}

// RecordTokenRevoked records API token revocation
func (m *Metrics) RecordTokenRevoked(reason string) {
	// reason: user_request, expired
	m.TokensRevokedTotal.WithLabelValues(reason).Inc()
}

// RecordOAuthLogin records an OAuth login attempt
func (m *Metrics) RecordOAuthLogin(provider string, success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.OAuthLoginsTotal.WithLabelValues(provider, result).Inc()
}

// RecordLogout records a logout
func (m *Metrics) RecordLogout() {
	m.LogoutsTotal.Inc()
}

// RecordInstallServed records an install script being served
func (m *Metrics) RecordInstallServed(visibility string) {
	m.InstallScriptsServedTotal.WithLabelValues(visibility).Inc()
}

// RecordConfigWrite records a config mutation
func (m *Metrics) RecordConfigWrite(operation string, success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.ConfigWritesTotal.WithLabelValues(operation, result).Inc()
}

// RecordRegistrySearch records a package registry search
func (m *Metrics) RecordRegistrySearch(registry, result string) {
	// result: success, error, too_short
	m.RegistrySearchesTotal.WithLabelValues(registry, result).Inc()
}

// SetActiveTokensCount sets the unexpired token gauge
func (m *Metrics) SetActiveTokensCount(count int64) {
	m.TokensActive.Set(float64(count))
}

// SetActiveCLIAuthCodesCount sets the live auth code gauges
func (m *Metrics) SetActiveCLIAuthCodesCount(total, pending int64) {
	m.CLIAuthCodesActive.Set(float64(total))
	m.CLIAuthCodesPending.Set(float64(pending))
}

// RecordDatabaseQueryError records a database error during metric collection
func (m *Metrics) RecordDatabaseQueryError(operation string) {
	m.DatabaseQueryErrorsTotal.WithLabelValues(operation).Inc()
}

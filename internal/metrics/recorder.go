package metrics

// Recorder defines the interface for recording application metrics.
// Implementations include Metrics (Prometheus-based) and NoopMetrics (no-op).
type Recorder interface {
	// CLI authorization flow
	RecordCLIAuthCodeStarted(success bool)
	RecordCLIAuthCodeApproved()
	RecordCLIAuthPoll(result string)

	// API tokens
	RecordTokenIssued()
	RecordTokenRevoked(reason string)

	// Authentication
	RecordOAuthLogin(provider string, success bool)
	RecordLogout()

	// Configs
	RecordInstallServed(visibility string)
	RecordConfigWrite(operation string, success bool)

	// Registry searches
	RecordRegistrySearch(registry, result string)

	// Gauge setters (for periodic updates)
	SetActiveTokensCount(count int64)
	SetActiveCLIAuthCodesCount(total, pending int64)

	// Database operations
	RecordDatabaseQueryError(operation string)
}

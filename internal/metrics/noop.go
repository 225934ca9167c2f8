package metrics

// NoopMetrics is a no-operation implementation of Recorder
// All methods are empty and do nothing, providing zero overhead when metrics are disabled
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

// CLI authorization flow - noop implementations
func (n *NoopMetrics) RecordCLIAuthCodeStarted(success bool) {}
func (n *NoopMetrics) RecordCLIAuthCodeApproved()            {}
func (n *NoopMetrics) RecordCLIAuthPoll(result string)       {}

// API tokens - noop implementations
func (n *NoopMetrics) RecordTokenIssued()               {}
func (n *NoopMetrics) RecordTokenRevoked(reason string) {}

// Authentication - noop implementations
func (n *NoopMetrics) RecordOAuthLogin(provider string, success bool) {}
func (n *NoopMetrics) RecordLogout()                                  {}

// Configs - noop implementations
func (n *NoopMetrics) RecordInstallServed(visibility string)            {}
func (n *NoopMetrics) RecordConfigWrite(operation string, success bool) {}

// Registry searches - noop implementations
func (n *NoopMetrics) RecordRegistrySearch(registry, result string) {}

// Gauge setters - noop implementations
func (n *NoopMetrics) SetActiveTokensCount(count int64)                {}
func (n *NoopMetrics) SetActiveCLIAuthCodesCount(total, pending int64) {}

// Database operations - noop implementations
func (n *NoopMetrics) RecordDatabaseQueryError(operation string) {}

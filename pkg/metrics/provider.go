package metrics

import (
	"github.com/google/wire"
)

// ProviderSet is a Wire provider set for metrics
var ProviderSet = wire.NewSet(
	NewMetricsServer,
)

// NewMetricsServer creates a new metrics server from config. Callers
// that want scheduler gauges exposed register a SchedulerCollector
// against server.RegisterCollector once their Runtime's strands and
// threads exist (see cmd/strandctl).
func NewMetricsServer(config MetricsConfig) *Server {
	return NewServer(config)
}

package base

import (
	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Transport metrics (exposed by the server's metrics endpoint)
// --------------------------------------------------------------------------

var (
	activeWorkers = xsync.NewCounter()

	connectionsAccepted = metrics.NewCounter(`aesdlog_connections_accepted_total`)
	acceptErrors        = metrics.NewCounter(`aesdlog_accept_errors_total`)
	workersReclaimed    = metrics.NewCounter(`aesdlog_workers_reclaimed_total`)
	requestsData        = metrics.NewCounter(`aesdlog_requests_total{type="data"}`)
	requestsSeekTo      = metrics.NewCounter(`aesdlog_requests_total{type="seekto"}`)
	requestsAbandoned   = metrics.NewCounter(`aesdlog_requests_abandoned_total`)
	responseBytes       = metrics.NewCounter(`aesdlog_response_bytes_total`)

	_ = metrics.NewGauge(`aesdlog_connections_active`, func() float64 {
		return float64(activeWorkers.Value())
	})
)

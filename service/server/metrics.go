package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ValentinKolb/aesdlog/lib/device"
	"github.com/VictoriaMetrics/metrics"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	infoTimeout     = 2 * time.Second
	shutdownTimeout = 2 * time.Second
)

var (
	recordsAppended = metrics.NewCounter(`aesdlog_records_appended_total`)
	seekToRejected  = metrics.NewCounter(`aesdlog_seekto_rejected_total`)
	lockInterrupted = metrics.NewCounter(`aesdlog_lock_interrupted_total`)
)

// --------------------------------------------------------------------------
// Metrics Endpoint
// --------------------------------------------------------------------------

// newMetricsSet creates the gauges describing this server's device
func (s *LogServer) newMetricsSet() *metrics.Set {
	set := metrics.NewSet()

	gauge := func(name string, value func(info device.Info) float64) {
		set.NewGauge(name, func() float64 {
			info, err := s.info()
			if err != nil {
				return 0
			}
			return value(info)
		})
	}

	gauge(`aesdlog_device_records`, func(info device.Info) float64 { return float64(info.Records) })
	gauge(`aesdlog_device_capacity`, func(info device.Info) float64 { return float64(info.Capacity) })
	gauge(`aesdlog_device_size_bytes`, func(info device.Info) float64 { return float64(info.SizeBytes) })
	gauge(`aesdlog_device_position`, func(info device.Info) float64 { return float64(info.Position) })
	gauge(`aesdlog_device_evicted`, func(info device.Info) float64 { return float64(info.Evicted) })
	gauge(`aesdlog_connections_registered`, func(device.Info) float64 {
		return float64(s.transport.ActiveConnections())
	})

	return set
}

// startMetrics serves /metrics and /info on the metrics endpoint, if one is configured
func (s *LogServer) startMetrics() error {
	if s.config.MetricsEndpoint == "" {
		return nil
	}

	listener, err := net.Listen("tcp", s.config.MetricsEndpoint)
	if err != nil {
		return fmt.Errorf("failed to bind metrics endpoint: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		s.writeMetrics(w)
	})
	mux.HandleFunc("/info", s.handleInfo)

	s.metricsSrv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.metricsSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("Metrics server failed: %v", err)
		}
	}()

	Logger.Infof("Serving metrics on http://%s/metrics", listener.Addr())
	return nil
}

func (s *LogServer) stopMetrics() {
	if s.metricsSrv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.metricsSrv.Shutdown(ctx); err != nil {
		Logger.Warningf("Failed to stop metrics server: %v", err)
	}
}

// writeMetrics writes the process wide and the per server metrics in Prometheus text format
func (s *LogServer) writeMetrics(w io.Writer) {
	metrics.WritePrometheus(w, true)
	s.metricsSet.WritePrometheus(w)
}

func (s *LogServer) handleInfo(w http.ResponseWriter, _ *http.Request) {
	info, err := s.info()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(info); err != nil {
		Logger.Warningf("Failed to write info response: %v", err)
	}
}

func (s *LogServer) info() (device.Info, error) {
	ctx, cancel := context.WithTimeout(context.Background(), infoTimeout)
	defer cancel()
	return s.device.Info(ctx)
}

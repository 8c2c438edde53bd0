// Package server implements the aesdlog server: it connects a server transport
// to a device and drives the shutdown of both.
//
// Key Components:
//
//   - LogServer: Registers the request handler with the transport. A data
//     command appends the request as one record and streams the complete
//     retained content back while the device lock is held, so every response is
//     a consistent snapshot. A control command (AESDCHAR_IOCSEEKTO) moves the
//     shared read position and produces no response; an out of range command is
//     logged and leaves the position unchanged.
//
//   - ShutdownController: Turns the first SIGINT, SIGTERM or Shutdown call into
//     a fixed set of non blocking actions: cancel the serving context, close the
//     listener and close every worker socket. Serve then joins all workers,
//     closes the device and logs the receipt of the signal.
//
//   - Metrics: With a metrics endpoint configured, /metrics exposes counters and
//     device gauges in Prometheus format and /info returns the device info as JSON.
//
// Usage Example:
//
//	config := common.DefaultServerConfig()
//	config.Device = common.DeviceTypeMemory
//
//	dev, err := mem.Open(device.Config{Capacity: config.Capacity, MaxRecordBytes: config.MaxRecordBytes})
//	if err != nil {
//	  log.Fatalf("failed to open device: %v", err)
//	}
//
//	s := server.NewLogServer(config, tcp.NewTCPServerTransport(), dev)
//	listener, err := s.Bind()
//	if err != nil {
//	  log.Fatalf("failed to bind: %v", err)
//	}
//	if err := s.Serve(listener); err != nil {
//	  log.Fatalf("server error: %v", err)
//	}
package server

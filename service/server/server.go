package server

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/aesdlog/lib/device"
	"github.com/ValentinKolb/aesdlog/service/common"
	"github.com/ValentinKolb/aesdlog/service/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sys/unix"
	"io"
	"net"
	"net/http"
)

var Logger = logger.GetLogger("server")

// LogServer serves one device over one server transport. It owns the device:
// the device is closed when Serve returns.
type LogServer struct {
	config     common.ServerConfig
	transport  transport.IServerTransport
	device     device.IDevice
	shutdown   *ShutdownController
	metricsSet *metrics.Set
	metricsSrv *http.Server
}

// NewLogServer creates a new log server
//
// Usage:
//
//	dev, err := mem.Open(device.Config{Capacity: 10})
//	if err != nil {
//		panic(err)
//	}
//
//	s := server.NewLogServer(config, tcp.NewTCPServerTransport(), dev)
//
//	listener, err := s.Bind()
//	if err != nil {
//		panic(err)
//	}
//
//	if err := s.Serve(listener); err != nil {
//		panic(err)
//	}
func NewLogServer(config common.ServerConfig, transport transport.IServerTransport, dev device.IDevice) *LogServer {
	s := &LogServer{
		config:    config,
		transport: transport,
		device:    dev,
		shutdown:  NewShutdownController(),
	}
	s.metricsSet = s.newMetricsSet()
	s.transport.RegisterHandler(s.handle)

	Logger.Infof("Created log server")
	Logger.Infof(config.String())

	return s
}

// Bind creates the listening socket
func (s *LogServer) Bind() (net.Listener, error) {
	return s.transport.Bind(s.config)
}

// Serve accepts connections on listener until a shutdown is triggered
// (SIGINT, SIGTERM or Shutdown) or the listener is closed. Before returning,
// every worker has been joined and the device is closed.
func (s *LogServer) Serve(listener net.Listener) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.startMetrics(); err != nil {
		_ = listener.Close()
		_ = s.device.Close()
		return err
	}

	s.shutdown.OnTrigger(func() {
		cancel()
		_ = listener.Close()
		s.transport.CloseConnections()
	})
	stopWatching := s.shutdown.Watch(unix.SIGINT, unix.SIGTERM)
	defer stopWatching()

	serveErr := s.transport.Serve(ctx, listener, s.config)

	// Serve may also return because the listener failed on its own
	_ = listener.Close()
	s.stopMetrics()

	var closeErr error
	if err := s.device.Close(); err != nil {
		Logger.Errorf("Failed to close device: %v", err)
		closeErr = err
	}
	s.shutdown.Finish()

	if s.shutdown.Signal() != nil {
		Logger.Infof("Caught signal, exiting")
	} else {
		Logger.Infof("Server stopped")
	}

	return errors.Join(serveErr, closeErr)
}

// Shutdown triggers the same shutdown as a termination signal.
// It does not wait for Serve to return.
func (s *LogServer) Shutdown() {
	s.shutdown.Trigger()
}

// ShutdownController returns the controller driving the shutdown of this server
func (s *LogServer) ShutdownController() *ShutdownController {
	return s.shutdown
}

// --------------------------------------------------------------------------
// Request Handling
// --------------------------------------------------------------------------

// handle executes one request against the device. A data command appends the
// request and streams back every retained record. A control command only moves
// the read position and sends nothing.
func (s *LogServer) handle(ctx context.Context, req common.Request, w io.Writer) error {
	switch req.Type {
	case common.ReqTSeekTo:
		pos, err := s.device.SeekTo(ctx, req.RecordIndex, req.ByteOffset)
		if err != nil {
			if errors.Is(err, device.ErrInvalidArgument) {
				seekToRejected.Inc()
				Logger.Warningf("Rejected seekto %d,%d: %v", req.RecordIndex, req.ByteOffset, err)
				return nil
			}
			return s.deviceError("seekto", err)
		}
		Logger.Debugf("Read position moved to %d", pos)
		return nil

	default:
		n, err := s.device.AppendAndRead(ctx, req.Payload, w)
		if err != nil {
			return s.deviceError("append", err)
		}
		recordsAppended.Inc()
		Logger.Debugf("Appended %d bytes, responded with %d bytes", len(req.Payload), n)
		return nil
	}
}

// deviceError counts and wraps a failed device call
func (s *LogServer) deviceError(op string, err error) error {
	if errors.Is(err, device.ErrInterrupted) {
		lockInterrupted.Inc()
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

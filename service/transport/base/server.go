package base

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/aesdlog/service/common"
	"github.com/ValentinKolb/aesdlog/service/transport"
	"github.com/lni/dragonboat/v4/logger"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("transport")

const (
	maxAcceptBackoff = time.Second
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector  IServerConnector
	handler    transport.ServerHandleFunc
	registry   *registry
	bufferPool *sync.Pool
	nextID     atomic.Uint64
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport running one worker per connection
func NewBaseServerTransport(connector IServerConnector) transport.IServerTransport {
	return &serverTransport{
		connector: connector,
		registry:  newRegistry(),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Bind(config common.ServerConfig) (net.Listener, error) {
	listener, err := t.connector.Listen(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}
	return listener, nil
}

func (t *serverTransport) Serve(ctx context.Context, listener net.Listener, config common.ServerConfig) error {
	if t.handler == nil {
		return fmt.Errorf("no handler registered for %s transport", t.connector.GetName())
	}

	readBufferSize := config.ReadBufferSize
	if readBufferSize <= 0 {
		readBufferSize = common.DefaultServerConfig().ReadBufferSize
	}
	t.bufferPool = &sync.Pool{
		New: func() interface{} {
			buf := make([]byte, readBufferSize)
			return &buf
		},
	}

	Logger.Infof("Starting %s server on %s", t.connector.GetName(), listener.Addr())

	// Accept connections
	var backoff time.Duration
	for {
		// reclaim finished workers before spawning a new one
		if n := t.registry.reap(); n > 0 {
			Logger.Debugf("Reclaimed %d finished workers", n)
		}

		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			acceptErrors.Inc()
			Logger.Errorf("Accept error: %v", err)

			backoff = nextBackoff(backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
			}
			continue
		}
		backoff = 0

		if err := t.connector.UpgradeConnection(conn, config); err != nil {
			Logger.Warningf("Failed to configure connection from %s: %v", conn.RemoteAddr(), err)
		}

		// Handle the connection in a goroutine
		w := newWorker(t.nextID.Add(1), conn)
		go w.run(ctx, t.handler, t.bufferPool, config)
		t.registry.insert(w)
	}

	Logger.Infof("Stopped accepting connections, draining %d workers", t.registry.size())
	n := t.registry.drain()
	Logger.Infof("Drained %d workers", n)

	return nil
}

func (t *serverTransport) CloseConnections() {
	t.registry.closeAll()
}

func (t *serverTransport) ActiveConnections() int {
	return t.registry.size()
}

func (t *serverTransport) GetName() string {
	return t.connector.GetName()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// nextBackoff doubles the wait after consecutive accept errors, starting at 5ms
func nextBackoff(current time.Duration) time.Duration {
	if current == 0 {
		return 5 * time.Millisecond
	}
	if current *= 2; current > maxAcceptBackoff {
		return maxAcceptBackoff
	}
	return current
}

package base

import (
	"fmt"
	"github.com/ValentinKolb/aesdlog/service/common"
	"github.com/ValentinKolb/aesdlog/service/transport"
	"io"
	"net"
	"time"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to endpoint.
	// A timeout of 0 means no timeout.
	Connect(endpoint string, timeout time.Duration) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// halfCloser is implemented by connections that can shut down their write side
type halfCloser interface {
	CloseWrite() error
}

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector IClientConnector
	config    common.ClientConfig
	connected bool
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IClientTransport {
	return &clientTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if config.Endpoint == "" {
		return fmt.Errorf("no endpoint provided")
	}
	t.config = config
	t.connected = true
	return nil
}

func (t *clientTransport) Send(req []byte) ([]byte, error) {
	if !t.connected {
		return nil, fmt.Errorf("transport is not connected")
	}

	timeout := time.Duration(t.config.TimeoutSecond) * time.Second

	conn, err := t.connector.Connect(t.config.Endpoint, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", t.config.Endpoint, err)
	}
	defer conn.Close()

	if timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return nil, fmt.Errorf("failed to set deadline: %w", err)
		}
	}

	if _, err := conn.Write(req); err != nil {
		return nil, fmt.Errorf("failed to write request: %w", err)
	}

	// signal the end of the request so the server never waits for more bytes
	if hc, ok := conn.(halfCloser); ok {
		if err := hc.CloseWrite(); err != nil {
			Logger.Debugf("Failed to half-close %s connection: %v", t.connector.GetName(), err)
		}
	}

	resp, err := io.ReadAll(conn)
	if err != nil {
		return resp, fmt.Errorf("failed to read response: %w", err)
	}
	return resp, nil
}

func (t *clientTransport) Close() error {
	t.connected = false
	return nil
}

package transport

import (
	"context"
	"github.com/ValentinKolb/aesdlog/service/common"
	"io"
	"net"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles one completed request.
// It is called by a server transport worker with the classified request and a
// writer streaming into the connection. A returned error ends the connection.
type ServerHandleFunc func(ctx context.Context, req common.Request, w io.Writer) error

// IServerTransport is the interface for the server transport layer
type IServerTransport interface {
	// RegisterHandler registers the handler called for every completed request
	RegisterHandler(handler ServerHandleFunc)
	// Bind creates the listening socket. Failing here is a setup failure.
	Bind(config common.ServerConfig) (net.Listener, error)
	// Serve accepts connections on listener until it is closed or ctx is cancelled,
	// spawning one worker per connection. Before returning, all workers are drained.
	Serve(ctx context.Context, listener net.Listener, config common.ServerConfig) error
	// CloseConnections closes the socket of every live worker, which unblocks
	// pending reads and writes. It never blocks and takes no worker locks.
	CloseConnections()
	// ActiveConnections returns the number of workers that are not reclaimed yet
	ActiveConnections() int
	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IClientTransport is the interface for the line protocol client transport
type IClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send opens a connection, writes req, half-closes the connection and
	// returns everything the server sent back until it closed the connection
	Send(req []byte) (resp []byte, err error)
	// Close releases the transport
	Close() error
}

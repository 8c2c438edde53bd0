// Package base provides the protocol independent part of the aesdlog transports.
// It accepts connections, runs one worker per connection and keeps track of the
// workers until they are reclaimed. Protocol specific details (tcp, unix sockets)
// are injected through connectors.
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     that allow extending the base transport with different network protocols.
//
//   - serverTransport: The accept loop. Before every accept, completed workers
//     are joined and removed. When the loop ends (listener closed or context
//     cancelled) every remaining worker is cancelled, joined and removed.
//
//   - worker: Serves one connection. Bytes are assembled into newline terminated
//     requests; each completed request is classified and passed to the registered
//     handler. Its lifecycle is Accepted, Reading, ControlCommand or DataCommand,
//     Responding and finally Completed.
//
//   - registry: The set of live workers, backed by an xsync.MapOf so the shutdown
//     path can close every socket without taking a lock.
//
//   - clientTransport: One connection per request. The request is written, the
//     write side is shut down and everything up to the server's close is returned.
//
// Performance Optimizations:
//
//   - Buffer Pooling: Workers take their read buffer from a sync.Pool.
//
// Thread Safety:
//
//	The server transport creates a dedicated goroutine for each connection.
//	CloseConnections may be called from any goroutine while Serve is running.
package base

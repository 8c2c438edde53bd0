// Package transport defines the interfaces of the aesdlog network layer. It
// provides a common contract that all transport implementations must
// fulfill, so the server is independent of the socket type.
//
// Key Components:
//
//   - IServerTransport: accepts connections, runs one worker per connection,
//     classifies completed requests and hands them to the registered handler.
//     Binding is separate from serving so a process can detach after a
//     successful bind.
//
//   - IClientTransport: sends one request per connection and collects the
//     response until the server closes the connection.
//
//   - ServerHandleFunc: function type for request handling callbacks.
package transport

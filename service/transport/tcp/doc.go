// Package tcp implements the TCP transport of aesdlog. It provides the TCP
// specific connectors for the base package, which holds the accept loop and
// the connection workers.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector.
//     Accepted connections get TCP_NODELAY according to the server configuration.
package tcp

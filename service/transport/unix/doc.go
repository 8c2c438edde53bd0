// Package unix implements the Unix domain socket transport of aesdlog, for
// clients running on the same machine. The endpoint is the socket path; a
// stale socket file is removed before listening.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Creates Unix socket listeners
package unix

// Package common provides the data structures and utilities shared by the
// aesdlog server, its transports and its client.
//
// The package focuses on:
//   - The line protocol: classification of completed requests into data
//     commands and the AESDCHAR_IOCSEEKTO control command
//   - Configuration structures for server and client components
//   - Custom logging implementation integrated with Dragonboat's logger package
//
// Key Components:
//
//   - Request: a classified, completed request. Data requests carry the raw
//     record (terminator included), control requests carry the parsed
//     record index and byte offset.
//
//   - ServerConfig: configuration of the log server (network, device, connection
//     handling, observability) with defaults and validation.
//
//   - ClientConfig: configuration of the line protocol client.
//
//   - Logger: a dragonboat logger.ILogger implementation printing
//     LEVEL | package | message lines, installed by InitLoggers.
package common

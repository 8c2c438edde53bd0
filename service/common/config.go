package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

type DeviceType string

const (
	DeviceTypeFile   DeviceType = "file"
	DeviceTypeMemory DeviceType = "memory"
)

type TransportType string

const (
	TransportTypeTCP  TransportType = "tcp"
	TransportTypeUnix TransportType = "unix"
)

// ServerConfig holds all configuration parameters of the log server.
type ServerConfig struct {
	// Network settings
	Endpoint  string
	Transport TransportType

	// Backing store
	Device         DeviceType
	DataFile       string
	KeepDataFile   bool
	Capacity       int
	MaxRecordBytes int

	// Connection handling
	KeepAlive      bool
	ReadBufferSize int
	TCPNoDelay     bool

	// Process
	Daemon bool

	// Observability
	LogLevel        string
	MetricsEndpoint string
}

// DefaultServerConfig returns the configuration used when no flags are given
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Endpoint:       "0.0.0.0:9000",
		Transport:      TransportTypeTCP,
		Device:         DeviceTypeFile,
		DataFile:       "/var/tmp/aesdsocketdata",
		Capacity:       10,
		MaxRecordBytes: 1024 * 1024,
		ReadBufferSize: 4 * 1024,
		TCPNoDelay:     true,
		LogLevel:       "info",
	}
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// Network settings
	addSection("Log Server")
	addField("Endpoint", c.Endpoint)
	addField("Transport", string(c.Transport))
	addField("Keep Alive", strconv.FormatBool(c.KeepAlive))
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.ReadBufferSize))
	addField("Daemon", strconv.FormatBool(c.Daemon))

	// Backing store
	addSection("Device")
	addField("Type", string(c.Device))
	if c.Device == DeviceTypeFile {
		addField("Data File", c.DataFile)
		addField("Keep Data File", strconv.FormatBool(c.KeepDataFile))
	}
	addField("Capacity", fmt.Sprintf("%d records", c.Capacity))
	if c.MaxRecordBytes > 0 {
		addField("Max Record Size", fmt.Sprintf("%d bytes", c.MaxRecordBytes))
	} else {
		addField("Max Record Size", "unlimited")
	}

	// Logging configuration
	addSection("Observability")
	addField("Log Level", c.LogLevel)
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	} else {
		addField("Metrics Endpoint", "disabled")
	}

	return sb.String()
}

// Validate checks the configuration for values the server cannot work with
func (c *ServerConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}
	switch c.Transport {
	case TransportTypeTCP, TransportTypeUnix:
	default:
		return fmt.Errorf("invalid transport %q (expected one of: tcp, unix)", c.Transport)
	}
	switch c.Device {
	case DeviceTypeFile, DeviceTypeMemory:
	default:
		return fmt.Errorf("invalid device %q (expected one of: file, memory)", c.Device)
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive, got %d", c.Capacity)
	}
	if c.MaxRecordBytes < 0 {
		return fmt.Errorf("max record size must not be negative, got %d", c.MaxRecordBytes)
	}
	if c.ReadBufferSize <= 0 {
		return fmt.Errorf("read buffer size must be positive, got %d", c.ReadBufferSize)
	}
	return nil
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoint      string
	Transport     TransportType
	TimeoutSecond int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	addField("Transport", string(c.Transport))
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	return sb.String()
}

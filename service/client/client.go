package client

import (
	"bytes"
	"fmt"
	"github.com/ValentinKolb/aesdlog/service/common"
	"github.com/ValentinKolb/aesdlog/service/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("client")

// LogClient talks to an aesdlog server. Every call uses a fresh connection,
// because the server closes the connection after each request.
type LogClient struct {
	config    common.ClientConfig
	transport transport.IClientTransport
}

// NewLogClient creates a new client and connects the transport
func NewLogClient(config common.ClientConfig, transport transport.IClientTransport) (*LogClient, error) {
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &LogClient{
		config:    config,
		transport: transport,
	}, nil
}

// Send appends line as one record and returns the server's complete log.
// A missing terminator is added; a terminator inside line is rejected.
func (c *LogClient) Send(line []byte) ([]byte, error) {
	if i := bytes.IndexByte(line, common.Terminator); i >= 0 && i != len(line)-1 {
		return nil, fmt.Errorf("record must not contain a newline before its end")
	}
	if len(line) == 0 || line[len(line)-1] != common.Terminator {
		line = append(bytes.Clone(line), common.Terminator)
	}

	resp, err := c.transport.Send(line)
	if err != nil {
		return nil, err
	}
	Logger.Debugf("Sent %d bytes, received %d bytes", len(line), len(resp))
	return resp, nil
}

// SeekTo sends the SEEKTO control command. The server answers with an empty
// response in every case, so an out of range command is not reported here.
func (c *LogClient) SeekTo(recordIndex, byteOffset uint64) error {
	resp, err := c.transport.Send(common.FormatSeekTo(recordIndex, byteOffset))
	if err != nil {
		return err
	}
	if len(resp) != 0 {
		return fmt.Errorf("unexpected response to seekto (%d bytes)", len(resp))
	}
	return nil
}

// Close releases the transport
func (c *LogClient) Close() error {
	return c.transport.Close()
}

package client

import (
	"github.com/ValentinKolb/aesdlog/lib/device"
	"github.com/ValentinKolb/aesdlog/lib/device/mem"
	"github.com/ValentinKolb/aesdlog/service/common"
	"github.com/ValentinKolb/aesdlog/service/server"
	"github.com/ValentinKolb/aesdlog/service/transport"
	"github.com/ValentinKolb/aesdlog/service/transport/tcp"
	"github.com/ValentinKolb/aesdlog/service/transport/unix"
	"path/filepath"
	"testing"
)

// startServer serves a memory device until the test ends and returns the endpoint
func startServer(t *testing.T, config common.ServerConfig, st transport.IServerTransport) string {
	t.Helper()

	s := server.NewLogServer(config, st, mem.NewMemoryDevice(device.Config{Capacity: config.Capacity}))
	listener, err := s.Bind()
	if err != nil {
		t.Fatalf("bind failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		_ = s.Serve(listener)
		close(done)
	}()
	t.Cleanup(func() {
		s.Shutdown()
		<-done
	})

	return listener.Addr().String()
}

func newClient(t *testing.T, endpoint string, ct transport.IClientTransport) *LogClient {
	t.Helper()
	c, err := NewLogClient(common.ClientConfig{Endpoint: endpoint, TimeoutSecond: 5}, ct)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func tcpConfig() common.ServerConfig {
	config := common.DefaultServerConfig()
	config.Endpoint = "127.0.0.1:0"
	config.Device = common.DeviceTypeMemory
	return config
}

// TestSend verifies that Send adds the terminator and returns the log
func TestSend(t *testing.T) {
	endpoint := startServer(t, tcpConfig(), tcp.NewTCPServerTransport())
	c := newClient(t, endpoint, tcp.NewTCPClientTransport())

	resp, err := c.Send([]byte("hello"))
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if string(resp) != "hello\n" {
		t.Errorf("expected \"hello\\n\", got %q", resp)
	}

	resp, err = c.Send([]byte("world\n"))
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if string(resp) != "hello\nworld\n" {
		t.Errorf("expected \"hello\\nworld\\n\", got %q", resp)
	}
}

// TestSendRejectsEmbeddedNewline verifies that one call never sends two records
func TestSendRejectsEmbeddedNewline(t *testing.T) {
	c := newClient(t, "127.0.0.1:1", tcp.NewTCPClientTransport())
	if _, err := c.Send([]byte("two\nrecords")); err == nil {
		t.Errorf("expected error for embedded newline")
	}
}

// TestSeekTo verifies that the control command is answered with an empty response
func TestSeekTo(t *testing.T) {
	endpoint := startServer(t, tcpConfig(), tcp.NewTCPServerTransport())
	c := newClient(t, endpoint, tcp.NewTCPClientTransport())

	if _, err := c.Send([]byte("record")); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := c.SeekTo(0, 3); err != nil {
		t.Errorf("seekto failed: %v", err)
	}
	// out of range is only logged by the server
	if err := c.SeekTo(7, 0); err != nil {
		t.Errorf("seekto failed: %v", err)
	}
}

// TestUnixTransport runs a round trip over a unix domain socket
func TestUnixTransport(t *testing.T) {
	config := tcpConfig()
	config.Transport = common.TransportTypeUnix
	config.Endpoint = filepath.Join(t.TempDir(), "aesd.sock")

	endpoint := startServer(t, config, unix.NewUnixServerTransport())
	c := newClient(t, endpoint, unix.NewUnixClientTransport())

	resp, err := c.Send([]byte("over unix"))
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if string(resp) != "over unix\n" {
		t.Errorf("expected \"over unix\\n\", got %q", resp)
	}
}

// TestConnectFailure verifies that an unreachable server is reported
func TestConnectFailure(t *testing.T) {
	c := newClient(t, "127.0.0.1:1", tcp.NewTCPClientTransport())
	if _, err := c.Send([]byte("nobody listens")); err == nil {
		t.Errorf("expected error for unreachable server")
	}
}

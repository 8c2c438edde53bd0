package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ValentinKolb/aesdlog/lib/device"
	"github.com/ValentinKolb/aesdlog/lib/device/mem"
	"github.com/ValentinKolb/aesdlog/service/common"
	"github.com/ValentinKolb/aesdlog/service/transport/tcp"
	"golang.org/x/sys/unix"
	"io"
	"net"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

// runningServer is a LogServer serving on a loopback port
type runningServer struct {
	*LogServer
	addr string
	done chan struct{}
	err  error
}

// wait waits for Serve to return and returns its error
func (r *runningServer) wait(t *testing.T) error {
	t.Helper()
	select {
	case <-r.done:
		return r.err
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not shut down")
		return nil
	}
}

// startServer serves a memory device on a loopback port until the test ends
func startServer(t *testing.T, modify func(config *common.ServerConfig)) *runningServer {
	t.Helper()

	config := common.DefaultServerConfig()
	config.Endpoint = "127.0.0.1:0"
	config.Device = common.DeviceTypeMemory
	if modify != nil {
		modify(&config)
	}

	dev, err := mem.Open(device.Config{Capacity: config.Capacity, MaxRecordBytes: config.MaxRecordBytes})
	if err != nil {
		t.Fatalf("failed to open device: %v", err)
	}

	s := NewLogServer(config, tcp.NewTCPServerTransport(), dev)
	listener, err := s.Bind()
	if err != nil {
		t.Fatalf("bind failed: %v", err)
	}

	r := &runningServer{
		LogServer: s,
		addr:      listener.Addr().String(),
		done:      make(chan struct{}),
	}
	go func() {
		r.err = s.Serve(listener)
		close(r.done)
	}()

	t.Cleanup(func() {
		s.Shutdown()
		<-r.done
	})
	return r
}

// request sends payload on a fresh connection and returns everything until the server closes it
func request(t *testing.T, addr string, payload string) string {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	if _, err := conn.Write([]byte(payload)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	_ = conn.(*net.TCPConn).CloseWrite()

	resp, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return string(resp)
}

func info(t *testing.T, s *runningServer) device.Info {
	t.Helper()
	i, err := s.device.Info(context.Background())
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	return i
}

// TestDataCommand verifies that every response holds the complete log
func TestDataCommand(t *testing.T) {
	s := startServer(t, nil)

	if got := request(t, s.addr, "hello\n"); got != "hello\n" {
		t.Errorf("expected \"hello\\n\", got %q", got)
	}
	if got := request(t, s.addr, "world\n"); got != "hello\nworld\n" {
		t.Errorf("expected \"hello\\nworld\\n\", got %q", got)
	}
}

// TestEviction verifies that the oldest record is dropped once the log is full
func TestEviction(t *testing.T) {
	s := startServer(t, func(config *common.ServerConfig) {
		config.Capacity = 2
	})

	request(t, s.addr, "a\n")
	request(t, s.addr, "b\n")
	if got := request(t, s.addr, "c\n"); got != "b\nc\n" {
		t.Errorf("expected \"b\\nc\\n\", got %q", got)
	}
}

// TestConcurrentClients verifies that records of concurrent clients never interleave
func TestConcurrentClients(t *testing.T) {
	const clients = 20
	s := startServer(t, func(config *common.ServerConfig) {
		config.Capacity = clients
	})

	lines := make([]string, clients)
	for i := range lines {
		lines[i] = fmt.Sprintf("client-%02d-%s", i, strings.Repeat("x", 100+i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, clients)
	for _, line := range lines {
		wg.Add(1)
		go func(line string) {
			defer wg.Done()

			conn, err := net.Dial("tcp", s.addr)
			if err != nil {
				errs <- err
				return
			}
			defer conn.Close()
			_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

			if _, err := conn.Write([]byte(line + "\n")); err != nil {
				errs <- err
				return
			}
			resp, err := io.ReadAll(conn)
			if err != nil {
				errs <- err
				return
			}
			// read-after-write: the own record is part of the response
			if !strings.Contains(string(resp), line+"\n") {
				errs <- fmt.Errorf("response misses %q", line)
			}
		}(line)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	final := strings.Split(strings.TrimSuffix(request(t, s.addr, "last\n"), "\n"), "\n")
	final = final[:len(final)-1] // drop "last"
	sort.Strings(final)
	if len(final) != clients-1 {
		t.Fatalf("expected %d retained client records, got %d", clients-1, len(final))
	}
	for _, record := range final {
		i := sort.SearchStrings(lines, record)
		if i == len(lines) || lines[i] != record {
			t.Errorf("record %q is not a line sent by a client", record)
		}
	}
}

// TestSeekTo verifies the control command against records of length 2, 3 and 4
func TestSeekTo(t *testing.T) {
	s := startServer(t, nil)

	request(t, s.addr, "a\n")
	request(t, s.addr, "bb\n")
	request(t, s.addr, "ccc\n")

	if got := request(t, s.addr, "AESDCHAR_IOCSEEKTO:1,0\n"); got != "" {
		t.Errorf("expected empty response, got %q", got)
	}
	if pos := info(t, s).Position; pos != 2 {
		t.Errorf("expected position 2, got %d", pos)
	}

	request(t, s.addr, "AESDCHAR_IOCSEEKTO:2,3\n")
	if pos := info(t, s).Position; pos != 8 {
		t.Errorf("expected position 8, got %d", pos)
	}

	// out of range: no response, position and content unchanged
	if got := request(t, s.addr, "AESDCHAR_IOCSEEKTO:3,0\n"); got != "" {
		t.Errorf("expected empty response, got %q", got)
	}
	request(t, s.addr, "AESDCHAR_IOCSEEKTO:0,2\n")
	i := info(t, s)
	if i.Position != 8 || i.Records != 3 || i.SizeBytes != 9 {
		t.Errorf("out of range seekto changed the device: %+v", i)
	}
}

// TestMalformedControlCommand verifies that a malformed control command is stored as data
func TestMalformedControlCommand(t *testing.T) {
	s := startServer(t, nil)

	for _, cmd := range []string{"AESDCHAR_IOCSEEKTO:x,1\n", "AESDCHAR_IOCSEEKTO:1\n", "AESDCHAR_IOCSEEKTO:-1,0\n"} {
		if got := request(t, s.addr, cmd); !strings.HasSuffix(got, cmd) {
			t.Errorf("expected %q to be appended, got %q", cmd, got)
		}
	}
	if records := info(t, s).Records; records != 3 {
		t.Errorf("expected 3 records, got %d", records)
	}
}

// TestShutdown verifies that a shutdown closes open connections, joins every
// worker and closes the device
func TestShutdown(t *testing.T) {
	s := startServer(t, nil)
	request(t, s.addr, "before\n")

	idle, err := net.Dial("tcp", s.addr)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer idle.Close()

	busy, err := net.Dial("tcp", s.addr)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer busy.Close()
	if _, err := busy.Write([]byte("no terminator yet")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.transport.ActiveConnections() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 2 connections, got %d", s.transport.ActiveConnections())
		}
		time.Sleep(time.Millisecond)
	}

	s.Shutdown()
	if err := s.wait(t); err != nil {
		t.Fatalf("serve returned error: %v", err)
	}

	for name, conn := range map[string]net.Conn{"idle": idle, "busy": busy} {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if _, err := conn.Read(make([]byte, 1)); err == nil {
			t.Errorf("%s connection still open", name)
		}
	}

	if s.transport.ActiveConnections() != 0 {
		t.Errorf("expected no registered workers, got %d", s.transport.ActiveConnections())
	}
	if state := s.ShutdownController().State(); state != StateTerminated {
		t.Errorf("expected state Terminated, got %s", state)
	}
	if _, err := s.device.Info(context.Background()); !errors.Is(err, device.ErrClosed) {
		t.Errorf("expected closed device, got %v", err)
	}
	if _, err := net.Dial("tcp", s.addr); err == nil {
		t.Errorf("listener still accepting")
	}

	// a second shutdown is a no-op
	s.Shutdown()
}

// TestSignalShutdown verifies that SIGTERM drives the same shutdown
func TestSignalShutdown(t *testing.T) {
	s := startServer(t, nil)

	// a full round trip guarantees that the signal watcher is installed
	request(t, s.addr, "ping\n")

	if err := unix.Kill(unix.Getpid(), unix.SIGTERM); err != nil {
		t.Fatalf("kill failed: %v", err)
	}
	if err := s.wait(t); err != nil {
		t.Fatalf("serve returned error: %v", err)
	}
	if sig := s.ShutdownController().Signal(); sig != unix.SIGTERM {
		t.Errorf("expected SIGTERM, got %v", sig)
	}
}

// TestMetrics verifies the Prometheus output and the info endpoint
func TestMetrics(t *testing.T) {
	s := startServer(t, nil)
	request(t, s.addr, "hello\n")

	var sb strings.Builder
	s.writeMetrics(&sb)
	out := sb.String()
	for _, want := range []string{"aesdlog_device_records 1", "aesdlog_device_size_bytes 6", "aesdlog_records_appended_total"} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output misses %q", want)
		}
	}

	rec := httptest.NewRecorder()
	s.handleInfo(rec, httptest.NewRequest("GET", "/info", nil))

	var i device.Info
	if err := json.NewDecoder(rec.Body).Decode(&i); err != nil {
		t.Fatalf("failed to decode info: %v", err)
	}
	if i.Backend != "memory" || i.Records != 1 || i.SizeBytes != 6 {
		t.Errorf("unexpected info %+v", i)
	}
}

// TestMetricsEndpointBindFailure verifies that an unusable metrics endpoint is a setup failure
func TestMetricsEndpointBindFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer busy.Close()

	config := common.DefaultServerConfig()
	config.Endpoint = "127.0.0.1:0"
	config.MetricsEndpoint = busy.Addr().String()

	s := NewLogServer(config, tcp.NewTCPServerTransport(), mem.NewMemoryDevice(device.Config{Capacity: 10}))
	listener, err := s.Bind()
	if err != nil {
		t.Fatalf("bind failed: %v", err)
	}

	if err := s.Serve(listener); err == nil {
		t.Errorf("expected error for busy metrics endpoint")
	}
}

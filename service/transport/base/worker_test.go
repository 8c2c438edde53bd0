package base

import (
	"bytes"
	"context"
	"github.com/ValentinKolb/aesdlog/service/common"
	"io"
	"net"
	"sync"
	"testing"
	"time"
)

// recorder is a handler that remembers every request it saw
type recorder struct {
	mu       sync.Mutex
	requests []common.Request
	echo     bool
}

func (r *recorder) handle(_ context.Context, req common.Request, w io.Writer) error {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()

	if r.echo && req.Type == common.ReqTData {
		_, err := w.Write(req.Payload)
		return err
	}
	return nil
}

func (r *recorder) seen() []common.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]common.Request(nil), r.requests...)
}

// TestWorkerStates follows a worker through a data command
func TestWorkerStates(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	handler := func(_ context.Context, req common.Request, w io.Writer) error {
		close(entered)
		<-release
		_, err := w.Write(req.Payload)
		return err
	}

	w, client := spawn(1, handler, common.DefaultServerConfig())
	defer client.Close()

	if _, err := client.Write([]byte("a request split over reads\n")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatalf("handler not called")
	}
	if got := w.State(); got != StateDataCommand {
		t.Errorf("expected state DataCommand, got %s", got)
	}
	close(release)

	resp, err := io.ReadAll(client)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(resp) != "a request split over reads\n" {
		t.Errorf("unexpected response %q", resp)
	}

	waitDone(t, w)
	if got := w.State(); got != StateCompleted {
		t.Errorf("expected state Completed, got %s", got)
	}
}

// TestWorkerControlCommand verifies that a control command ends the connection
// even with keep-alive enabled and that trailing bytes are not handled
func TestWorkerControlCommand(t *testing.T) {
	config := common.DefaultServerConfig()
	config.KeepAlive = true

	rec := &recorder{echo: true}
	w, client := spawn(1, rec.handle, config)
	defer client.Close()

	go func() {
		_, _ = client.Write([]byte("AESDCHAR_IOCSEEKTO:1,2\nignored\n"))
	}()

	waitDone(t, w)

	requests := rec.seen()
	if len(requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(requests))
	}
	if requests[0].Type != common.ReqTSeekTo || requests[0].RecordIndex != 1 || requests[0].ByteOffset != 2 {
		t.Errorf("unexpected request %+v", requests[0])
	}
}

// TestWorkerKeepAlive verifies sequential requests on one connection
func TestWorkerKeepAlive(t *testing.T) {
	config := common.DefaultServerConfig()
	config.KeepAlive = true

	rec := &recorder{echo: true}
	w, client := spawn(1, rec.handle, config)

	var resp bytes.Buffer
	readDone := make(chan struct{})
	go func() {
		_, _ = io.Copy(&resp, client)
		close(readDone)
	}()

	// both requests arrive in one write, the second one is kept for the next round
	if _, err := client.Write([]byte("first\nsecond\n")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := client.Write([]byte("third\n")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for len(rec.seen()) < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 3 requests, got %d", len(rec.seen()))
		}
		time.Sleep(time.Millisecond)
	}

	// the worker stays open until the peer goes away
	if w.isCompleted() {
		t.Fatalf("keep-alive worker completed early")
	}
	_ = client.Close()
	waitDone(t, w)
	<-readDone

	if resp.String() != "first\nsecond\nthird\n" {
		t.Errorf("unexpected responses %q", resp.String())
	}
}

// TestWorkerAbandonedRequest verifies that an over-length request is dropped
// without ending the connection
func TestWorkerAbandonedRequest(t *testing.T) {
	config := common.DefaultServerConfig()
	config.MaxRecordBytes = 8

	rec := &recorder{echo: true}
	w, client := spawn(1, rec.handle, config)
	defer client.Close()

	go func() {
		_, _ = client.Write([]byte("this request is far too long\nok\n"))
	}()

	resp, err := io.ReadAll(client)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	waitDone(t, w)

	if string(resp) != "ok\n" {
		t.Errorf("expected response \"ok\\n\", got %q", resp)
	}
	if requests := rec.seen(); len(requests) != 1 {
		t.Errorf("expected 1 request, got %d", len(requests))
	}
}

// TestWorkerPeerClose verifies that an unterminated request is dropped on EOF
func TestWorkerPeerClose(t *testing.T) {
	rec := &recorder{}
	w, client := spawn(1, rec.handle, common.DefaultServerConfig())

	if _, err := client.Write([]byte("no newline")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	_ = client.Close()

	waitDone(t, w)
	if requests := rec.seen(); len(requests) != 0 {
		t.Errorf("expected no request, got %d", len(requests))
	}
}

// TestPeerAddress checks the printable peer address
func TestPeerAddress(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	if got := peerAddress(server); got != "pipe" {
		t.Errorf("expected \"pipe\", got %q", got)
	}
}

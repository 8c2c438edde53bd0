package base

import (
	"bytes"
	"context"
	"errors"
	"github.com/ValentinKolb/aesdlog/lib/recordlog"
	"github.com/ValentinKolb/aesdlog/service/common"
	"github.com/ValentinKolb/aesdlog/service/transport"
	"io"
	"net"
	"sync"
	"sync/atomic"
)

// WorkerState is the lifecycle state of a connection worker
type WorkerState int32

const (
	StateAccepted WorkerState = iota
	StateReading
	StateControlCommand
	StateDataCommand
	StateResponding
	StateCompleted
)

func (s WorkerState) String() string {
	switch s {
	case StateAccepted:
		return "Accepted"
	case StateReading:
		return "Reading"
	case StateControlCommand:
		return "ControlCommand"
	case StateDataCommand:
		return "DataCommand"
	case StateResponding:
		return "Responding"
	case StateCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// worker serves exactly one accepted connection
type worker struct {
	id    uint64
	peer  string
	conn  net.Conn
	state atomic.Int32

	// mu guards completed; cancel checks it before touching the socket
	mu        sync.Mutex
	completed bool

	done chan struct{} // closed when the goroutine has exited
}

// responseWriter streams a response into the worker's connection
type responseWriter struct {
	w *worker
}

func newWorker(id uint64, conn net.Conn) *worker {
	return &worker{
		id:   id,
		peer: peerAddress(conn),
		conn: conn,
		done: make(chan struct{}),
	}
}

// --------------------------------------------------------------------------
// Worker Lifecycle
// --------------------------------------------------------------------------

// run reads requests from the connection and passes each completed one to handler.
// The connection is finished after a control command, after a data command unless
// keep-alive is enabled, on EOF and on any socket error.
func (w *worker) run(ctx context.Context, handler transport.ServerHandleFunc, pool *sync.Pool, config common.ServerConfig) {
	defer w.finish()

	activeWorkers.Inc()
	connectionsAccepted.Inc()
	Logger.Infof("Accepted connection from %s", w.peer)

	buf := pool.Get().(*[]byte)
	defer pool.Put(buf)

	asm := recordlog.NewAssembler(config.MaxRecordBytes)
	var pending []byte

	for {
		w.setState(StateReading)

		record, rest, err := w.readRequest(asm, *buf, pending)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				if asm.Buffered() > 0 {
					Logger.Debugf("Connection %d: dropping %d unterminated bytes", w.id, asm.Buffered())
				}
			case ctx.Err() != nil || errors.Is(err, net.ErrClosed):
				Logger.Debugf("Connection %d: cancelled while reading", w.id)
			default:
				Logger.Errorf("Error reading from %s: %v", w.peer, err)
			}
			return
		}
		pending = rest

		req := common.ParseRequest(record)
		if req.Type == common.ReqTSeekTo {
			w.setState(StateControlCommand)
			requestsSeekTo.Inc()
		} else {
			w.setState(StateDataCommand)
			requestsData.Inc()
		}

		if err := handler(ctx, req, &responseWriter{w: w}); err != nil {
			if ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				Logger.Errorf("Error handling %s request from %s: %v", req.Type, w.peer, err)
			}
			return
		}

		if req.Type == common.ReqTSeekTo || !config.KeepAlive {
			return
		}
	}
}

// readRequest returns the next completed request. Bytes left over from an earlier
// read are consumed first. The returned rest holds bytes read past the terminator.
func (w *worker) readRequest(asm *recordlog.Assembler, buf, pending []byte) (record, rest []byte, err error) {
	if record, rest, ok := w.scan(asm, pending); ok {
		return record, rest, nil
	}

	for {
		n, err := w.conn.Read(buf)
		if n > 0 {
			if record, rest, ok := w.scan(asm, buf[:n]); ok {
				// buf is reused by the next read
				return record, bytes.Clone(rest), nil
			}
		}
		if err != nil {
			return nil, nil, err
		}
	}
}

// scan feeds chunk into the assembler until a request completes
func (w *worker) scan(asm *recordlog.Assembler, chunk []byte) (record, rest []byte, ok bool) {
	for len(chunk) > 0 {
		n, state, rec := asm.Scan(chunk)
		chunk = chunk[n:]

		switch state {
		case recordlog.Completed:
			return rec, chunk, true
		case recordlog.Abandoned:
			requestsAbandoned.Inc()
			Logger.Warningf("Connection from %s: discarding request exceeding %d bytes", w.peer, asm.Limit())
		}
	}
	return nil, nil, false
}

// finish closes the socket and marks the worker completed
func (w *worker) finish() {
	_ = w.conn.Close()

	w.mu.Lock()
	w.completed = true
	w.mu.Unlock()

	w.setState(StateCompleted)
	activeWorkers.Dec()
	Logger.Infof("Closed connection from %s", w.peer)
	close(w.done)
}

// cancel unblocks the worker by closing its socket, unless it already completed
func (w *worker) cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.completed {
		_ = w.conn.Close()
	}
}

// join waits until the worker goroutine has exited
func (w *worker) join() {
	<-w.done
}

func (w *worker) isCompleted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.completed
}

func (w *worker) setState(s WorkerState) {
	w.state.Store(int32(s))
}

func (w *worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

// --------------------------------------------------------------------------
// Response Writer
// --------------------------------------------------------------------------

func (r *responseWriter) Write(p []byte) (int, error) {
	r.w.setState(StateResponding)
	n, err := r.w.conn.Write(p)
	responseBytes.Add(n)
	return n, err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// peerAddress returns the printable peer address of conn (the IP for tcp)
func peerAddress(conn net.Conn) string {
	addr := conn.RemoteAddr()
	if tcpAddr, ok := addr.(*net.TCPAddr); ok {
		return tcpAddr.IP.String()
	}
	if addr == nil || addr.String() == "" || addr.String() == "@" {
		return "local"
	}
	return addr.String()
}

package device

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/aesdlog/lib/recordlog"
	"io"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Factory is a function type that opens a device.
// It abstracts the choice of backend from the code serving the device.
type Factory func(config Config) (IDevice, error)

// IDevice is a byte addressable view on a record log, modelled after a
// character device: it supports writes, position based reads, seeks and the
// SEEKTO control command. All devices share one read position.
//
// Every method acquires the device lock for its full duration. Lock waits
// observe ctx: a cancelled context aborts the wait with ErrInterrupted and
// leaves the device untouched.
type IDevice interface {
	// Write feeds p into the device. Bytes are held until a terminator
	// completes a record, so one record may span several writes.
	// The returned count is the number of bytes accepted.
	Write(ctx context.Context, p []byte) (n int, err error)
	// AppendAndRead appends record as one record and, still holding the lock,
	// streams the complete retained content to w. The device takes ownership of record.
	// The returned count is the number of bytes written to w.
	AppendAndRead(ctx context.Context, record []byte, w io.Writer) (n int64, err error)
	// Read reads from the current read position and advances it.
	// io.EOF is returned once the position reaches the end of the content.
	Read(ctx context.Context, p []byte) (n int, err error)
	// ReadAt reads from the absolute offset off without moving the read position.
	ReadAt(ctx context.Context, p []byte, off int64) (n int, err error)
	// Seek sets the read position relative to io.SeekStart, io.SeekCurrent or io.SeekEnd.
	// Positions outside [0, size] fail with ErrInvalidArgument and leave the position unchanged.
	Seek(ctx context.Context, offset int64, whence int) (pos int64, err error)
	// SeekTo moves the read position to byte byteOffset of the retained record recordIndex
	// (0 = oldest). Out of range values fail with ErrInvalidArgument and leave the position unchanged.
	SeekTo(ctx context.Context, recordIndex, byteOffset uint64) (pos int64, err error)
	// Info returns metadata about the device.
	Info(ctx context.Context) (info Info, err error)
	// Close releases the backing store. Further calls fail with ErrClosed.
	Close() error
}

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// Config holds the parameters shared by all device backends
type Config struct {
	// Capacity is the maximum number of retained records
	Capacity int
	// MaxRecordBytes limits the size of a record assembled by Write (0 = unlimited)
	MaxRecordBytes int
}

// Info describes the current state of a device
type Info struct {
	Backend      string                `json:"backend"`
	Capacity     int                   `json:"capacity"`
	Records      int                   `json:"records"`
	SizeBytes    uint64                `json:"size_bytes"`
	Position     int64                 `json:"position"`
	Appended     uint64                `json:"appended"`
	Evicted      uint64                `json:"evicted"`
	PendingBytes int                   `json:"pending_bytes"`
	RecordSizes  recordlog.SizeSummary `json:"record_sizes"`
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// RetCode classifies device errors
type RetCode int

const (
	RetCInvalidArgument RetCode = iota + 1 // out of range seek or control command
	RetCInterrupted                        // lock wait cancelled, the call may be retried
	RetCClosed                             // device already closed
	RetCIO                                 // backing store failure
)

func (c RetCode) String() string {
	switch c {
	case RetCInvalidArgument:
		return "InvalidArgument"
	case RetCInterrupted:
		return "Interrupted"
	case RetCClosed:
		return "Closed"
	case RetCIO:
		return "IO"
	default:
		return "Unknown"
	}
}

// Error wraps a return code, a message and an optional cause.
// Two errors match with errors.Is if their codes are equal.
type Error struct {
	Code RetCode
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("DeviceError (code %s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("DeviceError (code %s): %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new device error with the given code and message.
func NewError(code RetCode, msg string, cause error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  cause,
	}
}

// Sentinels for errors.Is
var (
	ErrInvalidArgument = NewError(RetCInvalidArgument, "invalid argument", nil)
	ErrInterrupted     = NewError(RetCInterrupted, "interrupted", nil)
	ErrClosed          = NewError(RetCClosed, "device closed", nil)
	ErrIO              = NewError(RetCIO, "backing store failure", nil)
)

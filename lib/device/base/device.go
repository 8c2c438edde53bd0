package base

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/aesdlog/lib/device"
	"github.com/ValentinKolb/aesdlog/lib/recordlog"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"sync/atomic"
)

var Logger = logger.GetLogger("device")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IBackend defines the storage specific part of a device.
// All methods are called with the device lock held.
type IBackend interface {
	// GetName returns the name of the backend (e.g., "memory", "file")
	GetName() string

	// Commit persists the record h that was just appended to log.
	// evicted reports whether the append evicted the oldest record.
	Commit(log *recordlog.Log, h recordlog.Handle, evicted bool) error

	// ReadAt reads the retained content starting at off.
	// It follows the io.ReaderAt contract.
	ReadAt(log *recordlog.Log, p []byte, off int64) (int, error)

	// WriteTo streams the complete retained content to w.
	WriteTo(log *recordlog.Log, w io.Writer) (int64, error)

	// Close releases the storage
	Close() error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// charDevice implements the backend independent device functionality
type charDevice struct {
	backend IBackend
	sem     chan struct{} // device lock, a one slot semaphore so waits can be cancelled
	log     *recordlog.Log
	partial *recordlog.Assembler // bytes written without a terminator yet
	pos     int64                // shared read position
	closed  atomic.Bool
}

// -----------------------------------------------------------
// Device Factory Method (used for mem, file, etc.)
// -----------------------------------------------------------

// NewBaseDevice creates a new device storing its records in the given backend
func NewBaseDevice(backend IBackend, config device.Config) device.IDevice {
	return &charDevice{
		backend: backend,
		sem:     make(chan struct{}, 1),
		log:     recordlog.New(config.Capacity),
		partial: recordlog.NewAssembler(config.MaxRecordBytes),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see device.IDevice)
// --------------------------------------------------------------------------

func (d *charDevice) Write(ctx context.Context, p []byte) (int, error) {
	if err := d.lock(ctx); err != nil {
		return 0, err
	}
	defer d.unlock()

	for n := 0; n < len(p); {
		consumed, state, record := d.partial.Scan(p[n:])
		n += consumed

		switch state {
		case recordlog.Completed:
			if err := d.append(record); err != nil {
				return n, err
			}
		case recordlog.Abandoned:
			Logger.Warningf("write: discarding over-length record on %s device", d.backend.GetName())
		}
	}

	return len(p), nil
}

func (d *charDevice) AppendAndRead(ctx context.Context, record []byte, w io.Writer) (int64, error) {
	if err := d.lock(ctx); err != nil {
		return 0, err
	}
	defer d.unlock()

	if err := d.append(record); err != nil {
		return 0, err
	}

	return d.backend.WriteTo(d.log, w)
}

func (d *charDevice) Read(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := d.lock(ctx); err != nil {
		return 0, err
	}
	defer d.unlock()

	n, err := d.backend.ReadAt(d.log, p, d.pos)
	d.pos += int64(n)

	// a short read is not an error for a positional reader, only running dry is
	if n > 0 && errors.Is(err, io.EOF) {
		err = nil
	}
	return n, err
}

func (d *charDevice) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, device.NewError(device.RetCInvalidArgument, fmt.Sprintf("negative offset %d", off), nil)
	}
	if err := d.lock(ctx); err != nil {
		return 0, err
	}
	defer d.unlock()

	return d.backend.ReadAt(d.log, p, off)
}

func (d *charDevice) Seek(ctx context.Context, offset int64, whence int) (int64, error) {
	if err := d.lock(ctx); err != nil {
		return 0, err
	}
	defer d.unlock()

	size := int64(d.log.TotalLength())

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = d.pos + offset
	case io.SeekEnd:
		target = size + offset
	default:
		return d.pos, device.NewError(device.RetCInvalidArgument, fmt.Sprintf("invalid whence %d", whence), nil)
	}

	if target < 0 || target > size {
		return d.pos, device.NewError(device.RetCInvalidArgument, fmt.Sprintf("position %d outside [0, %d]", target, size), nil)
	}

	d.pos = target
	return d.pos, nil
}

func (d *charDevice) SeekTo(ctx context.Context, recordIndex, byteOffset uint64) (int64, error) {
	if err := d.lock(ctx); err != nil {
		return 0, err
	}
	defer d.unlock()

	abs, err := d.log.Seek(recordIndex, byteOffset)
	if err != nil {
		return d.pos, device.NewError(device.RetCInvalidArgument,
			fmt.Sprintf("seekto %d,%d with %d records retained", recordIndex, byteOffset, d.log.Len()), err)
	}

	d.pos = int64(abs)
	Logger.Debugf("seekto %d,%d moved read position to %d", recordIndex, byteOffset, d.pos)
	return d.pos, nil
}

func (d *charDevice) Info(ctx context.Context) (device.Info, error) {
	if err := d.lock(ctx); err != nil {
		return device.Info{}, err
	}
	defer d.unlock()

	return device.Info{
		Backend:      d.backend.GetName(),
		Capacity:     d.log.Capacity(),
		Records:      d.log.Len(),
		SizeBytes:    d.log.TotalLength(),
		Position:     d.pos,
		Appended:     d.log.Appended(),
		Evicted:      d.log.Evictions(),
		PendingBytes: d.partial.Buffered(),
		RecordSizes:  d.log.Stats().Summary(),
	}, nil
}

func (d *charDevice) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}

	// wait for the current lock holder, later lock attempts observe closed
	d.sem <- struct{}{}
	defer d.unlock()

	d.log.Reset()
	d.partial.Reset()
	d.pos = 0

	if err := d.backend.Close(); err != nil {
		return device.NewError(device.RetCIO, fmt.Sprintf("failed to close %s backend", d.backend.GetName()), err)
	}
	Logger.Infof("closed %s device", d.backend.GetName())
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// lock acquires the device lock. The wait is aborted with ErrInterrupted if ctx is
// cancelled; a lock acquired after cancellation is released again right away, so
// a cancelled caller never touches the log.
func (d *charDevice) lock(ctx context.Context) error {
	if d.closed.Load() {
		return device.ErrClosed
	}

	select {
	case d.sem <- struct{}{}:
	case <-ctx.Done():
		return device.NewError(device.RetCInterrupted, "lock wait cancelled", ctx.Err())
	}

	if d.closed.Load() {
		d.unlock()
		return device.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		d.unlock()
		return device.NewError(device.RetCInterrupted, "lock wait cancelled", err)
	}
	return nil
}

func (d *charDevice) unlock() {
	<-d.sem
}

// append adds one record to the log and lets the backend persist it (lock held)
func (d *charDevice) append(record []byte) error {
	h, evicted := d.log.Append(record)
	if err := d.backend.Commit(d.log, h, evicted); err != nil {
		return device.NewError(device.RetCIO, fmt.Sprintf("failed to commit record %d", h.Seq), err)
	}
	if evicted {
		Logger.Debugf("record %d evicted the oldest record", h.Seq)
	}
	return nil
}

package file

import (
	"fmt"
	"github.com/ValentinKolb/aesdlog/lib/device"
	"github.com/ValentinKolb/aesdlog/lib/device/base"
	"github.com/ValentinKolb/aesdlog/lib/recordlog"
	"io"
	"os"
)

const (
	// DefaultPath is the data file used when no path is configured
	DefaultPath = "/var/tmp/aesdsocketdata"
)

// backend implements the IBackend interface for a plain data file.
// The file always holds the concatenation of the retained records.
type backend struct {
	path          string
	file          *os.File
	removeOnClose bool
	dirty         bool // the file diverged from the log after a failed commit
}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IBackend)
// --------------------------------------------------------------------------

func (b *backend) GetName() string {
	return "file"
}

func (b *backend) Commit(log *recordlog.Log, h recordlog.Handle, evicted bool) error {
	// fast path: the new record simply goes to the end of the file
	if !evicted && !b.dirty {
		data, _ := log.Record(h)
		off := int64(log.TotalLength()) - int64(len(data))
		if _, err := b.file.WriteAt(data, off); err != nil {
			b.dirty = true
			return err
		}
		return nil
	}

	// the oldest record is gone (or the file is out of sync), rewrite everything
	if err := b.rewrite(log); err != nil {
		b.dirty = true
		return err
	}
	b.dirty = false
	return nil
}

func (b *backend) ReadAt(log *recordlog.Log, p []byte, off int64) (int, error) {
	size := int64(log.TotalLength())
	if off >= size {
		return 0, io.EOF
	}
	if remaining := size - off; int64(len(p)) > remaining {
		n, err := b.file.ReadAt(p[:remaining], off)
		if err == nil {
			err = io.EOF
		}
		return n, err
	}
	return b.file.ReadAt(p, off)
}

func (b *backend) WriteTo(log *recordlog.Log, w io.Writer) (int64, error) {
	return io.Copy(w, io.NewSectionReader(b.file, 0, int64(log.TotalLength())))
}

func (b *backend) Close() error {
	err := b.file.Close()
	if b.removeOnClose {
		if rmErr := os.Remove(b.path); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
			err = rmErr
		}
	}
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// rewrite writes all retained records from offset 0 and truncates the rest
func (b *backend) rewrite(log *recordlog.Log) error {
	var off int64
	var err error
	log.Each(func(_ int, data []byte) bool {
		var n int
		n, err = b.file.WriteAt(data, off)
		off += int64(n)
		return err == nil
	})
	if err != nil {
		return err
	}
	return b.file.Truncate(off)
}

// --------------------------------------------------------------------------
// Device Factory Method
// --------------------------------------------------------------------------

// NewFileDevice creates a device backed by the data file at path.
// An existing file is truncated, since the log always starts empty.
// With removeOnClose the file is deleted when the device is closed.
func NewFileDevice(path string, removeOnClose bool, config device.Config) (device.IDevice, error) {
	if path == "" {
		path = DefaultPath
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file %s: %w", path, err)
	}

	return base.NewBaseDevice(&backend{
		path:          path,
		file:          f,
		removeOnClose: removeOnClose,
	}, config), nil
}

// Factory returns a device.Factory opening the data file at path
func Factory(path string, removeOnClose bool) device.Factory {
	return func(config device.Config) (device.IDevice, error) {
		return NewFileDevice(path, removeOnClose, config)
	}
}

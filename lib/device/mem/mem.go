package mem

import (
	"github.com/ValentinKolb/aesdlog/lib/device"
	"github.com/ValentinKolb/aesdlog/lib/device/base"
	"github.com/ValentinKolb/aesdlog/lib/recordlog"
	"io"
	"net"
)

// backend implements the IBackend interface on top of the ring itself.
// Records are only held in memory and released when they are evicted.
type backend struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IBackend)
// --------------------------------------------------------------------------

func (b *backend) GetName() string {
	return "memory"
}

func (b *backend) Commit(_ *recordlog.Log, _ recordlog.Handle, _ bool) error {
	return nil
}

func (b *backend) ReadAt(log *recordlog.Log, p []byte, off int64) (int, error) {
	n := 0
	for n < len(p) {
		h, local, err := log.Resolve(uint64(off) + uint64(n))
		if err != nil {
			break
		}
		data, _ := log.Record(h)
		n += copy(p[n:], data[local:])
	}

	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *backend) WriteTo(log *recordlog.Log, w io.Writer) (int64, error) {
	bufs := make(net.Buffers, 0, log.Len())
	log.Each(func(_ int, data []byte) bool {
		bufs = append(bufs, data)
		return true
	})
	return bufs.WriteTo(w)
}

func (b *backend) Close() error {
	return nil
}

// --------------------------------------------------------------------------
// Device Factory Method
// --------------------------------------------------------------------------

// NewMemoryDevice creates a new in-memory device
func NewMemoryDevice(config device.Config) device.IDevice {
	return base.NewBaseDevice(&backend{}, config)
}

// Open implements device.Factory
func Open(config device.Config) (device.IDevice, error) {
	return NewMemoryDevice(config), nil
}

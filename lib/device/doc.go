// Package device defines the backing store contract of aesdlog: a record log
// exposed as a byte addressable resource supporting read, write, seek and the
// SEEKTO control command, in the manner of a character device.
//
// Key Components:
//
//   - IDevice Interface: the operations shared by every backend. The server
//     only talks to this interface, so the in-memory device and the file
//     backed device are interchangeable.
//
//   - Error System: Error carries a RetCode. The sentinels ErrInvalidArgument,
//     ErrInterrupted, ErrClosed and ErrIO can be matched with errors.Is.
//
//   - Factory: a function type that opens a device from a Config.
//
// Implementations:
//
//	- Base Device (device/base): the backend independent core. It owns the
//	  recordlog.Log, the lock, the read position and the partial write
//	  assembler, and delegates storage to an IBackend.
//
//	- Memory Device (device/mem): records live only in the ring, like the
//	  in-kernel driver.
//
//	- File Device (device/file): the retained content is mirrored into a data
//	  file which serves all reads. The file is removed when the device is closed.
package device

// Package mem provides the in-memory device. Records are held in the ring
// only, the way the in-kernel driver keeps them, and are released on eviction
// or when the device is closed. The retained records are streamed as
// net.Buffers, which become a single vectored write when the writer is a socket.
package mem

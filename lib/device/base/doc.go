// Package base implements the backend independent core of every device.
//
// The core owns the recordlog.Log, the read position and the assembler for
// partial writes, and guards all of them with one lock. The lock is a one
// slot semaphore instead of a sync.Mutex so a waiting caller can give up when
// its context is cancelled; this is how workers blocked on the log observe a
// shutdown. Storage specific behaviour is injected through IBackend, see the
// mem and file packages.
package base

// Package file provides the user-space device: the retained records are
// mirrored into a data file (by default /var/tmp/aesdsocketdata) and every
// read is served from that file.
//
// Appends without eviction are written to the end of the file. An append that
// evicts the oldest record rewrites the file from the ring, so the file never
// contains evicted data. The contract is identical to the in-memory device;
// persistence beyond the running process is not a goal, and the file is
// removed on close unless configured otherwise.
package file

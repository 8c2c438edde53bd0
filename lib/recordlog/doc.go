// Package recordlog implements the bounded circular record store behind the
// aesdlog device, together with the assembler that turns a byte stream into
// terminator-delimited records.
//
// Key Components:
//
//   - Log: a fixed capacity ring of variable length records. Appending to a
//     full ring evicts the oldest record. The log resolves global byte offsets
//     (into the concatenation of all retained records) to a record and a local
//     offset, and computes absolute offsets from a (record index, byte offset)
//     pair without scanning the payloads.
//
//   - Assembler: a per-producer accumulator that collects bytes until the
//     newline terminator completes one record. Records that grow beyond the
//     configured limit are abandoned instead of failing the producer.
//
//   - Stats: a size histogram of appended records, backed by go-metrics.
//
// Usage Example:
//
//	log := recordlog.New(2)
//	log.Append([]byte("a\n"))
//	log.Append([]byte("b\n"))
//	log.Append([]byte("c\n")) // evicts "a\n"
//
//	h, local, _ := log.Resolve(0) // record "b\n", local offset 0
//	abs, _ := log.Seek(1, 0)      // 2
//
// Thread Safety:
//
//	Neither Log nor Assembler synchronize internally. The device layer
//	guards the log with a single lock held for the full duration of each
//	logical operation.
package recordlog

package common

import (
	"bytes"
	"fmt"
	"github.com/ValentinKolb/aesdlog/lib/recordlog"
	"strconv"
)

const (
	// Terminator ends every request on the wire
	Terminator = recordlog.Terminator
	// SeekToPrefix starts a control command: AESDCHAR_IOCSEEKTO:<record_index>,<byte_offset>
	SeekToPrefix = "AESDCHAR_IOCSEEKTO:"
)

// --------------------------------------------------------------------------
// Request Types
// --------------------------------------------------------------------------

// RequestType distinguishes control commands from data commands
type RequestType int

const (
	// ReqTData is a request whose bytes become one new record
	ReqTData RequestType = iota
	// ReqTSeekTo is the SEEKTO control command
	ReqTSeekTo
)

func (t RequestType) String() string {
	switch t {
	case ReqTData:
		return "data"
	case ReqTSeekTo:
		return "seekto"
	default:
		return "unknown"
	}
}

// Request is one completed, classified request.
// Which fields are used depends on the type of request.
type Request struct {
	Type RequestType

	// Used for: data (the full request, terminator included)
	Payload []byte

	// Used for: seekto
	RecordIndex uint64
	ByteOffset  uint64
}

// --------------------------------------------------------------------------
// Parsing and Formatting
// --------------------------------------------------------------------------

// ParseRequest classifies a completed record. A record matching
// AESDCHAR_IOCSEEKTO:<record_index>,<byte_offset> followed by the terminator is a
// control command, every other record (malformed control commands included)
// is a data command carrying the record unchanged.
func ParseRequest(record []byte) Request {
	data := Request{Type: ReqTData, Payload: record}

	body, ok := bytes.CutPrefix(record, []byte(SeekToPrefix))
	if !ok {
		return data
	}
	body, ok = bytes.CutSuffix(body, []byte{Terminator})
	if !ok {
		return data
	}
	indexStr, offsetStr, ok := bytes.Cut(body, []byte{','})
	if !ok {
		return data
	}

	index, ok := parseUint(indexStr)
	if !ok {
		return data
	}
	offset, ok := parseUint(offsetStr)
	if !ok {
		return data
	}

	return Request{
		Type:        ReqTSeekTo,
		RecordIndex: index,
		ByteOffset:  offset,
	}
}

// FormatSeekTo renders the SEEKTO control command, terminator included
func FormatSeekTo(recordIndex, byteOffset uint64) []byte {
	return []byte(fmt.Sprintf("%s%d,%d%c", SeekToPrefix, recordIndex, byteOffset, Terminator))
}

// parseUint accepts plain decimal digits only (no sign, no spaces)
func parseUint(b []byte) (uint64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	v, err := strconv.ParseUint(string(b), 10, 64)
	return v, err == nil
}

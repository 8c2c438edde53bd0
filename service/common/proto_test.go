package common

import (
	"testing"
)

// TestParseRequest checks the classification of completed records
func TestParseRequest(t *testing.T) {
	cases := []struct {
		in     string
		typ    RequestType
		index  uint64
		offset uint64
	}{
		{"hello\n", ReqTData, 0, 0},
		{"AESDCHAR_IOCSEEKTO:1,0\n", ReqTSeekTo, 1, 0},
		{"AESDCHAR_IOCSEEKTO:12,345\n", ReqTSeekTo, 12, 345},
		{"AESDCHAR_IOCSEEKTO:1\n", ReqTData, 0, 0},
		{"AESDCHAR_IOCSEEKTO:a,b\n", ReqTData, 0, 0},
		{"AESDCHAR_IOCSEEKTO:-1,0\n", ReqTData, 0, 0},
		{"AESDCHAR_IOCSEEKTO:1, 0\n", ReqTData, 0, 0},
		{"AESDCHAR_IOCSEEKTO:,0\n", ReqTData, 0, 0},
		{"AESDCHAR_IOCSEEKTO:99999999999999999999999,0\n", ReqTData, 0, 0},
		{"xAESDCHAR_IOCSEEKTO:1,0\n", ReqTData, 0, 0},
		{"AESDCHAR_IOCSEEKTO:1,0", ReqTData, 0, 0},
	}

	for _, c := range cases {
		req := ParseRequest([]byte(c.in))
		if req.Type != c.typ {
			t.Errorf("%q: expected %s, got %s", c.in, c.typ, req.Type)
			continue
		}
		switch req.Type {
		case ReqTSeekTo:
			if req.RecordIndex != c.index || req.ByteOffset != c.offset {
				t.Errorf("%q: expected %d,%d, got %d,%d", c.in, c.index, c.offset, req.RecordIndex, req.ByteOffset)
			}
		case ReqTData:
			if string(req.Payload) != c.in {
				t.Errorf("%q: payload changed to %q", c.in, req.Payload)
			}
		}
	}
}

// TestFormatSeekTo checks that formatted control commands parse back
func TestFormatSeekTo(t *testing.T) {
	raw := FormatSeekTo(3, 7)
	if string(raw) != "AESDCHAR_IOCSEEKTO:3,7\n" {
		t.Fatalf("unexpected format %q", raw)
	}
	req := ParseRequest(raw)
	if req.Type != ReqTSeekTo || req.RecordIndex != 3 || req.ByteOffset != 7 {
		t.Errorf("formatted command did not parse back: %+v", req)
	}
}

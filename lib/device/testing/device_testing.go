package testing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/aesdlog/lib/device"
	"io"
	"sync"
	"testing"
	"time"
)

// DeviceFactory is a function that creates a new instance of an IDevice implementation
type DeviceFactory func(config device.Config) device.IDevice

// RunDeviceTests runs the conformance test suite for an IDevice implementation.
func RunDeviceTests(t *testing.T, name string, factory DeviceFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("AppendAndRead", func(t *testing.T) {
			testAppendAndRead(t, factory(device.Config{Capacity: 10}))
		})

		t.Run("Eviction", func(t *testing.T) {
			testEviction(t, factory(device.Config{Capacity: 2}))
		})

		t.Run("PartialWrite", func(t *testing.T) {
			testPartialWrite(t, factory(device.Config{Capacity: 10}))
		})

		t.Run("OverLengthWrite", func(t *testing.T) {
			testOverLengthWrite(t, factory(device.Config{Capacity: 10, MaxRecordBytes: 8}))
		})

		t.Run("ReadPosition", func(t *testing.T) {
			testReadPosition(t, factory(device.Config{Capacity: 10}))
		})

		t.Run("Seek", func(t *testing.T) {
			testSeek(t, factory(device.Config{Capacity: 10}))
		})

		t.Run("SeekTo", func(t *testing.T) {
			testSeekTo(t, factory(device.Config{Capacity: 10}))
		})

		t.Run("SeekToOutOfRange", func(t *testing.T) {
			testSeekToOutOfRange(t, factory(device.Config{Capacity: 10}))
		})

		t.Run("ConcurrentAppends", func(t *testing.T) {
			testConcurrentAppends(t, factory(device.Config{Capacity: 64}))
		})

		t.Run("InterruptedLockWait", func(t *testing.T) {
			testInterruptedLockWait(t, factory(device.Config{Capacity: 10}))
		})

		t.Run("Close", func(t *testing.T) {
			testClose(t, factory(device.Config{Capacity: 10}))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// readAll returns the complete content of the device without moving the read position
func readAll(t testing.TB, dev device.IDevice) []byte {
	info, err := dev.Info(context.Background())
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	buf := make([]byte, info.SizeBytes)
	n, err := dev.ReadAt(context.Background(), buf, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("ReadAt failed: %v", err)
	}
	return buf[:n]
}

// appendRecords appends every string as one record and discards the read-back
func appendRecords(t testing.TB, dev device.IDevice, records ...string) {
	for _, r := range records {
		if _, err := dev.AppendAndRead(context.Background(), []byte(r), io.Discard); err != nil {
			t.Fatalf("AppendAndRead(%q) failed: %v", r, err)
		}
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testAppendAndRead(t *testing.T, dev device.IDevice) {
	defer dev.Close()
	ctx := context.Background()

	var out bytes.Buffer
	n, err := dev.AppendAndRead(ctx, []byte("hello\n"), &out)
	if err != nil {
		t.Fatalf("AppendAndRead failed: %v", err)
	}
	if n != 6 || out.String() != "hello\n" {
		t.Errorf("expected \"hello\\n\" (6 bytes), got %q (%d bytes)", out.String(), n)
	}

	out.Reset()
	if _, err := dev.AppendAndRead(ctx, []byte("world\n"), &out); err != nil {
		t.Fatalf("AppendAndRead failed: %v", err)
	}
	if out.String() != "hello\nworld\n" {
		t.Errorf("expected full log in read-back, got %q", out.String())
	}
}

func testEviction(t *testing.T, dev device.IDevice) {
	defer dev.Close()

	appendRecords(t, dev, "a\n", "b\n", "c\n")

	if got := string(readAll(t, dev)); got != "b\nc\n" {
		t.Errorf("expected \"b\\nc\\n\", got %q", got)
	}

	info, err := dev.Info(context.Background())
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.Records != 2 || info.SizeBytes != 4 || info.Evicted != 1 || info.Appended != 3 {
		t.Errorf("unexpected info after eviction: %+v", info)
	}

	// many evictions in a row must keep the content consistent
	for i := 0; i < 20; i++ {
		appendRecords(t, dev, fmt.Sprintf("record-%d\n", i))
	}
	if got := string(readAll(t, dev)); got != "record-18\nrecord-19\n" {
		t.Errorf("unexpected content after repeated eviction: %q", got)
	}
}

func testPartialWrite(t *testing.T, dev device.IDevice) {
	defer dev.Close()
	ctx := context.Background()

	for _, chunk := range []string{"par", "tial", "\nnext"} {
		n, err := dev.Write(ctx, []byte(chunk))
		if err != nil {
			t.Fatalf("Write(%q) failed: %v", chunk, err)
		}
		if n != len(chunk) {
			t.Errorf("Write(%q) accepted %d bytes", chunk, n)
		}
	}

	if got := string(readAll(t, dev)); got != "partial\n" {
		t.Errorf("expected only the completed record, got %q", got)
	}

	info, _ := dev.Info(ctx)
	if info.PendingBytes != 4 {
		t.Errorf("expected 4 pending bytes, got %d", info.PendingBytes)
	}

	if _, err := dev.Write(ctx, []byte(" one\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := string(readAll(t, dev)); got != "partial\nnext one\n" {
		t.Errorf("unexpected content %q", got)
	}
}

func testOverLengthWrite(t *testing.T, dev device.IDevice) {
	defer dev.Close()

	if _, err := dev.Write(context.Background(), []byte("this is far too long\nfits\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := string(readAll(t, dev)); got != "fits\n" {
		t.Errorf("expected over-length record to be discarded, got %q", got)
	}
}

func testReadPosition(t *testing.T, dev device.IDevice) {
	defer dev.Close()
	ctx := context.Background()

	appendRecords(t, dev, "abc\n", "de\n", "fghij\n")

	var got []byte
	buf := make([]byte, 3)
	for {
		n, err := dev.Read(ctx, buf)
		got = append(got, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
	}
	if string(got) != "abc\nde\nfghij\n" {
		t.Errorf("sequential reads returned %q", got)
	}

	info, _ := dev.Info(ctx)
	if info.Position != int64(len(got)) {
		t.Errorf("expected position %d, got %d", len(got), info.Position)
	}
}

func testSeek(t *testing.T, dev device.IDevice) {
	defer dev.Close()
	ctx := context.Background()

	appendRecords(t, dev, "abc\n", "de\n")

	cases := []struct {
		offset int64
		whence int
		want   int64
	}{
		{2, io.SeekStart, 2},
		{3, io.SeekCurrent, 5},
		{-1, io.SeekEnd, 6},
		{0, io.SeekEnd, 7},
		{0, io.SeekStart, 0},
	}
	for _, c := range cases {
		pos, err := dev.Seek(ctx, c.offset, c.whence)
		if err != nil {
			t.Fatalf("Seek(%d,%d) failed: %v", c.offset, c.whence, err)
		}
		if pos != c.want {
			t.Errorf("Seek(%d,%d): expected %d, got %d", c.offset, c.whence, c.want, pos)
		}
	}

	if _, err := dev.Seek(ctx, 3, io.SeekStart); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	for _, bad := range []struct {
		offset int64
		whence int
	}{{-1, io.SeekStart}, {8, io.SeekStart}, {1, io.SeekEnd}, {0, 42}} {
		if _, err := dev.Seek(ctx, bad.offset, bad.whence); !errors.Is(err, device.ErrInvalidArgument) {
			t.Errorf("Seek(%d,%d): expected ErrInvalidArgument, got %v", bad.offset, bad.whence, err)
		}
	}

	info, _ := dev.Info(ctx)
	if info.Position != 3 {
		t.Errorf("failed seeks moved the position to %d", info.Position)
	}
}

func testSeekTo(t *testing.T, dev device.IDevice) {
	defer dev.Close()
	ctx := context.Background()

	appendRecords(t, dev, "a\n", "bc\n", "def\n")

	pos, err := dev.SeekTo(ctx, 1, 0)
	if err != nil {
		t.Fatalf("SeekTo failed: %v", err)
	}
	if pos != 2 {
		t.Errorf("expected position 2, got %d", pos)
	}

	pos, err = dev.SeekTo(ctx, 2, 1)
	if err != nil {
		t.Fatalf("SeekTo failed: %v", err)
	}
	if pos != 6 {
		t.Errorf("expected position 6, got %d", pos)
	}

	buf := make([]byte, 16)
	n, err := dev.Read(ctx, buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(buf[:n]) != "ef\n" {
		t.Errorf("expected read from the seek target, got %q", buf[:n])
	}
}

func testSeekToOutOfRange(t *testing.T, dev device.IDevice) {
	defer dev.Close()
	ctx := context.Background()

	appendRecords(t, dev, "a\n", "bc\n")
	if _, err := dev.SeekTo(ctx, 1, 1); err != nil {
		t.Fatalf("SeekTo failed: %v", err)
	}

	for _, c := range [][2]uint64{{2, 0}, {0, 2}, {1, 3}, {100, 100}} {
		if _, err := dev.SeekTo(ctx, c[0], c[1]); !errors.Is(err, device.ErrInvalidArgument) {
			t.Errorf("SeekTo(%d,%d): expected ErrInvalidArgument, got %v", c[0], c[1], err)
		}
	}

	info, _ := dev.Info(ctx)
	if info.Position != 3 {
		t.Errorf("out of range SeekTo moved the position to %d", info.Position)
	}
	if got := string(readAll(t, dev)); got != "a\nbc\n" {
		t.Errorf("out of range SeekTo changed the content: %q", got)
	}
}

func testConcurrentAppends(t *testing.T, dev device.IDevice) {
	defer dev.Close()

	const writers = 32
	payload := func(i int) string {
		return fmt.Sprintf("writer-%02d-%s\n", i, bytes.Repeat([]byte{byte('a' + i%26)}, 100))
	}

	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			var out bytes.Buffer
			if _, err := dev.AppendAndRead(context.Background(), []byte(payload(i)), &out); err != nil {
				t.Errorf("writer %d: %v", i, err)
				return
			}
			if !bytes.Contains(out.Bytes(), []byte(payload(i))) {
				t.Errorf("writer %d: read-back misses its own record", i)
			}
		}(i)
	}
	wg.Wait()

	expected := make(map[string]bool, writers)
	for i := 0; i < writers; i++ {
		expected[payload(i)] = true
	}

	lines := bytes.SplitAfter(readAll(t, dev), []byte("\n"))
	count := 0
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		if !expected[string(line)] {
			t.Fatalf("unexpected (interleaved?) record %q", line)
		}
		delete(expected, string(line))
		count++
	}
	if count != writers {
		t.Errorf("expected %d records, got %d", writers, count)
	}
}

// blockingWriter blocks the first Write until release is closed
type blockingWriter struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	w.once.Do(func() { close(w.entered) })
	<-w.release
	return len(p), nil
}

func testInterruptedLockWait(t *testing.T, dev device.IDevice) {
	defer dev.Close()

	holder := &blockingWriter{entered: make(chan struct{}), release: make(chan struct{})}
	holderDone := make(chan error, 1)
	go func() {
		_, err := dev.AppendAndRead(context.Background(), []byte("held\n"), holder)
		holderDone <- err
	}()

	select {
	case <-holder.entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("lock holder did not start streaming")
	}

	// a waiter with a cancelled context gives up without touching the log
	ctx, cancel := context.WithCancel(context.Background())
	waiterDone := make(chan error, 1)
	go func() {
		_, err := dev.AppendAndRead(ctx, []byte("waiter\n"), io.Discard)
		waiterDone <- err
	}()
	cancel()

	select {
	case err := <-waiterDone:
		if !errors.Is(err, device.ErrInterrupted) {
			t.Errorf("expected ErrInterrupted, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("cancelled waiter did not return")
	}

	close(holder.release)
	if err := <-holderDone; err != nil {
		t.Fatalf("lock holder failed: %v", err)
	}

	// the lock must be free again and the waiter's record absent
	if got := string(readAll(t, dev)); got != "held\n" {
		t.Errorf("unexpected content %q", got)
	}
}

func testClose(t *testing.T, dev device.IDevice) {
	appendRecords(t, dev, "a\n")

	if err := dev.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := dev.Close(); err != nil {
		t.Errorf("second Close must be a no-op, got %v", err)
	}

	if _, err := dev.AppendAndRead(context.Background(), []byte("b\n"), io.Discard); !errors.Is(err, device.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, err := dev.SeekTo(context.Background(), 0, 0); !errors.Is(err, device.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

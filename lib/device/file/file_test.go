package file

import (
	"context"
	"github.com/ValentinKolb/aesdlog/lib/device"
	devtesting "github.com/ValentinKolb/aesdlog/lib/device/testing"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// factory opens a file device in a fresh temporary directory
func factory(t testing.TB) devtesting.DeviceFactory {
	return func(config device.Config) device.IDevice {
		dev, err := NewFileDevice(filepath.Join(t.TempDir(), "aesdsocketdata"), true, config)
		if err != nil {
			t.Fatalf("failed to open file device: %v", err)
		}
		return dev
	}
}

func Test(t *testing.T) {
	devtesting.RunDeviceTests(t, "FileDevice", factory(t))
}

func Benchmark(b *testing.B) {
	devtesting.RunDeviceBenchmarks(b, "FileDevice", factory(b))
}

// TestFileMirrorsRetainedRecords checks the data file content after evictions
func TestFileMirrorsRetainedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	dev, err := NewFileDevice(path, true, device.Config{Capacity: 2})
	if err != nil {
		t.Fatalf("failed to open file device: %v", err)
	}

	ctx := context.Background()
	expectFile := func(want string) {
		t.Helper()
		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read data file: %v", err)
		}
		if string(got) != want {
			t.Errorf("expected data file %q, got %q", want, got)
		}
	}

	for _, r := range []string{"first\n", "second\n"} {
		if _, err := dev.AppendAndRead(ctx, []byte(r), io.Discard); err != nil {
			t.Fatalf("AppendAndRead failed: %v", err)
		}
	}
	expectFile("first\nsecond\n")

	if _, err := dev.AppendAndRead(ctx, []byte("3\n"), io.Discard); err != nil {
		t.Fatalf("AppendAndRead failed: %v", err)
	}
	expectFile("second\n3\n")

	if err := dev.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("data file not removed on close: %v", err)
	}
}

// TestFileTruncatedOnOpen checks that stale content never leaks into a new log
func TestFileTruncatedOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	if err := os.WriteFile(path, []byte("stale\n"), 0o644); err != nil {
		t.Fatalf("failed to prepare data file: %v", err)
	}

	dev, err := NewFileDevice(path, false, device.Config{Capacity: 2})
	if err != nil {
		t.Fatalf("failed to open file device: %v", err)
	}
	if err := dev.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("data file removed although removeOnClose is false: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty data file, got %q", got)
	}
}

// TestOpenFailure checks that an unusable path is reported
func TestOpenFailure(t *testing.T) {
	if _, err := NewFileDevice(filepath.Join(t.TempDir(), "missing", "dir", "data"), true, device.Config{}); err == nil {
		t.Fatalf("expected an error for a missing directory")
	}
}

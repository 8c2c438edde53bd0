package serve

import (
	"github.com/ValentinKolb/aesdlog/lib/device"
	"github.com/ValentinKolb/aesdlog/service/common"
	"os"
	"path/filepath"
	"testing"
)

// TestDeviceFactory verifies that the configured backend is opened
func TestDeviceFactory(t *testing.T) {
	config := common.DefaultServerConfig()
	config.DataFile = filepath.Join(t.TempDir(), "aesdsocketdata")

	for _, deviceType := range []common.DeviceType{common.DeviceTypeMemory, common.DeviceTypeFile} {
		config.Device = deviceType

		factory, err := deviceFactory(&config)
		if err != nil {
			t.Fatalf("%s: %v", deviceType, err)
		}
		dev, err := factory(device.Config{Capacity: config.Capacity})
		if err != nil {
			t.Fatalf("%s: failed to open: %v", deviceType, err)
		}
		if err := dev.Close(); err != nil {
			t.Errorf("%s: failed to close: %v", deviceType, err)
		}
	}

	// the data file is removed on close by default
	if _, err := os.Stat(config.DataFile); !os.IsNotExist(err) {
		t.Errorf("expected data file to be removed, got %v", err)
	}

	config.Device = "tape"
	if _, err := deviceFactory(&config); err == nil {
		t.Errorf("expected error for unknown device")
	}
}

// TestDeviceFactoryOpenFailure verifies that an unusable data file fails the setup
func TestDeviceFactoryOpenFailure(t *testing.T) {
	config := common.DefaultServerConfig()
	config.DataFile = filepath.Join(t.TempDir(), "missing", "dir", "aesdsocketdata")

	factory, err := deviceFactory(&config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := factory(device.Config{Capacity: config.Capacity}); err == nil {
		t.Errorf("expected open failure")
	}
}

// TestIsDaemonChild checks the environment marker
func TestIsDaemonChild(t *testing.T) {
	t.Setenv(daemonEnv, "")
	if isDaemonChild() {
		t.Errorf("expected parent process")
	}
	t.Setenv(daemonEnv, "1")
	if !isDaemonChild() {
		t.Errorf("expected daemon child")
	}
}

// Package testing provides standardised tests and benchmarks for device
// implementations that satisfy the device.IDevice interface.
//
// The package contains:
//   - testing: A test suite validating the IDevice contract (eviction, read
//     position, seek bounds, SEEKTO, partial writes, cancellation)
//   - benchmark: Throughput measurements for append-and-read and SEEKTO
//
// Example usage:
//
//	factory := func(config device.Config) device.IDevice {
//		return mem.NewMemoryDevice(config)
//	}
//
//	devtesting.RunDeviceTests(t, "Memory", factory)
//	devtesting.RunDeviceBenchmarks(b, "Memory", factory)
package testing

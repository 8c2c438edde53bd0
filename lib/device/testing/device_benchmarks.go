package testing

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/aesdlog/lib/device"
	"io"
	"testing"
)

// RunDeviceBenchmarks runs all benchmarks for a device implementation
func RunDeviceBenchmarks(b *testing.B, name string, factory DeviceFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("AppendAndRead", func(b *testing.B) {
			benchmarkAppendAndRead(b, factory(device.Config{Capacity: 10}))
		})

		b.Run("AppendAndReadParallel", func(b *testing.B) {
			benchmarkAppendAndReadParallel(b, factory(device.Config{Capacity: 10}))
		})

		b.Run("SeekTo", func(b *testing.B) {
			benchmarkSeekTo(b, factory(device.Config{Capacity: 10}))
		})
	})
}

func benchmarkAppendAndRead(b *testing.B, dev device.IDevice) {
	defer dev.Close()
	ctx := context.Background()
	record := []byte("benchmark record with a moderate payload\n")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dev.AppendAndRead(ctx, record, io.Discard); err != nil {
			b.Fatalf("AppendAndRead failed: %v", err)
		}
	}
}

func benchmarkAppendAndReadParallel(b *testing.B, dev device.IDevice) {
	defer dev.Close()
	record := []byte("benchmark record with a moderate payload\n")

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		ctx := context.Background()
		for pb.Next() {
			if _, err := dev.AppendAndRead(ctx, record, io.Discard); err != nil {
				b.Errorf("AppendAndRead failed: %v", err)
				return
			}
		}
	})
}

func benchmarkSeekTo(b *testing.B, dev device.IDevice) {
	defer dev.Close()
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if _, err := dev.AppendAndRead(ctx, []byte(fmt.Sprintf("record %d\n", i)), io.Discard); err != nil {
			b.Fatalf("AppendAndRead failed: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dev.SeekTo(ctx, uint64(i%10), 3); err != nil {
			b.Fatalf("SeekTo failed: %v", err)
		}
	}
}

// Package main — bench/cmd/scanthroughput/main.go
//
// Memory Scanner throughput benchmark.
//
// Measures how many bytes per second internal/scanner.Scanner.ScanForValue
// walks against a synthetic, fully-readable address space of a configurable
// size, seeded with a known density of matching int32 values scattered
// through filler bytes. There is no real target process: a contiguous
// in-memory backend stands in for one, the same way a fake serves tests.
//
// Method:
//  1. Build a contiguousBackend of -size-mb megabytes, fill it with filler
//     bytes, and stamp the target int32 value at every -stride-th slot.
//  2. Run ScanForValue -iterations times, each a fresh pass over the whole
//     region, recording elapsed wall-clock time per run.
//  3. Compute MB/s per run and p50/p95/p99 across runs.
//  4. Results are written to a CSV file.
//
// Output CSV columns:
//
//	iteration, elapsed_ms, mb_per_s, candidates_found
package main

import (
	"context"
	"encoding/binary"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strconv"
	"time"

	"github.com/apollion69/nordhold-calculator/internal/memback"
	"github.com/apollion69/nordhold-calculator/internal/scanner"
)

func main() {
	sizeMB := flag.Int("size-mb", 64, "Size of the synthetic address space, in megabytes")
	stride := flag.Int("stride", 4096, "Byte stride between planted matching values")
	chunkBytes := flag.Int("chunk-bytes", 1<<20, "Bytes read per ReadMemory call")
	workers := flag.Int("workers", 4, "Concurrent scan workers")
	iterations := flag.Int("iterations", 20, "Number of full scan passes to measure")
	outputFile := flag.String("output", "scanthroughput_raw.csv", "Output CSV file path")
	minThroughputMBs := flag.Float64("min-mbps", 200, "Fail if p50 throughput drops below this many MB/s")
	flag.Parse()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	regionSize := int64(*sizeMB) << 20
	backend := newContiguousBackend(regionSize, *stride)
	handle, err := backend.OpenProcess(backend.pid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open synthetic process: %v\n", err)
		os.Exit(1)
	}
	defer backend.CloseProcess(handle)

	s := scanner.New(backend, handle)
	opts := scanner.ScanOptions{
		ValueType:   scanner.ValueInt32,
		Target:      float64(targetValue),
		ChunkBytes:  *chunkBytes,
		MinAddress:  0,
		MaxAddress:  regionSize,
		MaxResults:  0,
		Workers:     *workers,
		ProcessName: "synthetic",
	}

	f, err := os.Create(*outputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create output: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	_ = w.Write([]string{"iteration", "elapsed_ms", "mb_per_s", "candidates_found"})

	mbPerS := make([]float64, 0, *iterations)
	expectedCandidates := int(regionSize / int64(*stride))

	for i := 0; i < *iterations; i++ {
		started := time.Now()
		candidates, stats, err := s.ScanForValue(context.Background(), opts, scanner.NoopReporter{})
		elapsed := time.Since(started)
		if err != nil {
			fmt.Fprintf(os.Stderr, "scan failed on iteration %d: %v\n", i, err)
			os.Exit(1)
		}
		mbs := float64(stats.BytesScanned) / (1 << 20) / elapsed.Seconds()
		mbPerS = append(mbPerS, mbs)
		_ = w.Write([]string{
			strconv.Itoa(i),
			strconv.FormatInt(elapsed.Milliseconds(), 10),
			strconv.FormatFloat(mbs, 'f', 2, 64),
			strconv.Itoa(len(candidates)),
		})
		if len(candidates) != expectedCandidates {
			fmt.Fprintf(os.Stderr, "WARN: iteration %d found %d candidates, expected %d\n",
				i, len(candidates), expectedCandidates)
		}
	}

	p50, p95, p99 := computePercentiles(mbPerS)
	fmt.Printf("Memory Scanner Throughput Results (%d iterations, %d MB region, stride %d)\n",
		*iterations, *sizeMB, *stride)
	fmt.Printf("  p50: %.1f MB/s\n", p50)
	fmt.Printf("  p95: %.1f MB/s\n", p95)
	fmt.Printf("  p99: %.1f MB/s\n", p99)
	fmt.Printf("  Output: %s\n", *outputFile)

	if p50 < *minThroughputMBs {
		fmt.Fprintf(os.Stderr, "FAIL: p50 %.1f MB/s below %.1f MB/s target\n", p50, *minThroughputMBs)
		os.Exit(1)
	}
}

// computePercentiles sorts samples ascending and reads off p50/p95/p99 by
// rank, the same nearest-rank method the latency histogram bench uses.
func computePercentiles(samples []float64) (p50, p95, p99 float64) {
	if len(samples) == 0 {
		return 0, 0, 0
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	rank := func(pct float64) float64 {
		idx := int(pct * float64(len(sorted)-1))
		return sorted[idx]
	}
	return rank(0.50), rank(0.95), rank(0.99)
}

const (
	targetValue = int32(424242)
	fillerValue = int32(1)
)

// contiguousBackend is a memback.Backend over one dense, contiguous byte
// slice — a stand-in for a process address space dense enough to drive a
// realistic chunked scan, which the sparse-write FakeBackend used by unit
// tests does not model.
type contiguousBackend struct {
	pid  int
	buf  []byte
	size int64
}

func newContiguousBackend(size int64, stride int) *contiguousBackend {
	buf := make([]byte, size)
	for off := int64(0); off+4 <= size; off += 4 {
		binary.LittleEndian.PutUint32(buf[off:], uint32(fillerValue))
	}
	if stride < 4 {
		stride = 4
	}
	for off := int64(0); off+4 <= size; off += int64(stride) {
		binary.LittleEndian.PutUint32(buf[off:], uint32(targetValue))
	}
	return &contiguousBackend{pid: 1, buf: buf, size: size}
}

func (b *contiguousBackend) SupportsMemoryRead() bool { return true }

func (b *contiguousBackend) FindProcessID(processName string) (int, error) {
	return b.pid, nil
}

func (b *contiguousBackend) OpenProcess(pid int) (memback.Handle, error) {
	return memback.Handle(pid), nil
}

func (b *contiguousBackend) CloseProcess(handle memback.Handle) {}

func (b *contiguousBackend) ReadMemory(handle memback.Handle, address int64, size int) ([]byte, error) {
	if address < 0 || address+int64(size) > b.size {
		return nil, fmt.Errorf("read out of range: addr=0x%x size=%d", address, size)
	}
	out := make([]byte, size)
	copy(out, b.buf[address:address+int64(size)])
	return out, nil
}

func (b *contiguousBackend) IterRegions(handle memback.Handle, minAddress, maxAddress int64) ([]memback.Region, error) {
	lo := minAddress
	hi := maxAddress
	if hi <= 0 || hi > b.size {
		hi = b.size
	}
	if lo >= hi {
		return nil, nil
	}
	return []memback.Region{{Base: lo, Size: hi - lo}}, nil
}

func (b *contiguousBackend) GetModuleBase(pid int, moduleName string) (int64, error) {
	return 0, nil
}

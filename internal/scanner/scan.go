// Package scanner implements the practical memory scanner: an exact-value
// sweep over a target process's readable address space, followed by
// repeated narrowing passes against live reads, producing a persisted
// snapshot (TSV records + JSON metadata) a Calibration Layer run can
// consume.
package scanner

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/apollion69/nordhold-calculator/internal/memback"
)

// ValueType is the decoded numeric type a scan or narrow pass operates on.
type ValueType string

// Supported value types, matching the widths the raw-memory contract and
// the calibration snapshot format both assume.
const (
	ValueInt32   ValueType = "int32"
	ValueFloat32 ValueType = "float32"
	ValueUint64  ValueType = "uint64"
)

// ValueWidth returns the byte width of v's decoded representation.
func ValueWidth(v ValueType) int {
	if v == ValueUint64 {
		return 8
	}
	return 4
}

// Candidate is one scanned or narrowed address/value pair.
type Candidate struct {
	Address int64
	Value   float64
}

// ParseValue parses text into a numeric value of the given type: decimal or
// 0x-prefixed hex for int32/uint64, ordinary float syntax for float32.
func ParseValue(text string, valueType ValueType) (float64, error) {
	if valueType == ValueFloat32 {
		return strconv.ParseFloat(text, 64)
	}
	n, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		if u, uerr := strconv.ParseUint(text, 0, 64); uerr == nil {
			return float64(u), nil
		}
		return 0, err
	}
	return float64(n), nil
}

// ValueToText renders value back to the text form a TSV record stores.
func ValueToText(value float64, valueType ValueType) string {
	if valueType == ValueFloat32 {
		return strconv.FormatFloat(value, 'g', 9, 64)
	}
	return strconv.FormatInt(int64(value), 10)
}

func decodeValue(raw []byte, valueType ValueType) float64 {
	switch valueType {
	case ValueInt32:
		return float64(int32(le32(raw)))
	case ValueUint64:
		return float64(le64(raw))
	default:
		return float64(math.Float32frombits(le32(raw)))
	}
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func le64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func floatEq(a, b, epsilon float64) bool {
	return !math.IsInf(a, 0) && !math.IsInf(b, 0) && !math.IsNaN(a) && !math.IsNaN(b) && math.Abs(a-b) <= epsilon
}

func valuesEqual(a, b float64, valueType ValueType, epsilon float64) bool {
	if valueType == ValueFloat32 {
		return floatEq(a, b, epsilon)
	}
	return int64(a) == int64(b)
}

// ScanOptions parameterizes a full-process exact-value scan.
type ScanOptions struct {
	ValueType   ValueType
	Target      float64
	Epsilon     float64
	Step        int // scan stride in bytes; 0 defaults to the value's width
	ChunkBytes  int // bytes read per ReadMemory call; 0 defaults to 1MiB
	MinAddress  int64
	MaxAddress  int64
	MaxResults  int // 0 means unbounded
	Workers     int // 0 defaults to 4
	ProcessName string

	// ProgressInterval is not read by ScanForValue: a progress report is
	// offered to Reporter after every chunk read, and one that finds the
	// progress channel full is dropped. Any further throttling is the
	// Reporter's own.
	ProgressInterval time.Duration
}

// ScanStats summarizes one scan or narrow pass.
type ScanStats struct {
	RegionsScanned int
	BytesScanned   int64
	ReadErrors     int
	ElapsedS       float64
	MaxResultsHit  bool
}

// Reporter receives periodic progress updates during a long-running scan.
// Implementations are expected to throttle via internal/ratelimit and
// forward accepted reports to internal/metrics; Report may be called
// concurrently from worker goroutines.
type Reporter interface {
	Report(bytesScanned int64, candidatesFound int)
}

// NoopReporter discards every report.
type NoopReporter struct{}

// Report implements Reporter by doing nothing.
func (NoopReporter) Report(int64, int) {}

// Scanner drives a scan or narrow pass against an already-open process
// handle via a memback.Backend.
type Scanner struct {
	backend memback.Backend
	handle  memback.Handle
}

// New constructs a Scanner bound to an already-opened backend handle. The
// caller retains ownership of handle and must close it.
func New(backend memback.Backend, handle memback.Handle) *Scanner {
	return &Scanner{backend: backend, handle: handle}
}

// ScanForValue performs a chunked, carry-over-aware exact-value scan across
// every readable region in [opts.MinAddress, opts.MaxAddress), reporting
// periodic progress through reporter. It returns every aligned match (up to
// MaxResults, if set) and summary statistics.
//
// Chunk boundaries never lose a match: the last (width-1) bytes of each
// chunk are carried into the next read so a value straddling a boundary is
// still decoded whole.
func (s *Scanner) ScanForValue(ctx context.Context, opts ScanOptions, reporter Reporter) ([]Candidate, ScanStats, error) {
	if reporter == nil {
		reporter = NoopReporter{}
	}
	width := ValueWidth(opts.ValueType)
	step := opts.Step
	if step <= 0 {
		step = width
	}
	chunkBytes := opts.ChunkBytes
	if chunkBytes <= 0 {
		chunkBytes = 1 << 20
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	regions, err := s.backend.IterRegions(s.handle, opts.MinAddress, opts.MaxAddress)
	if err != nil {
		return nil, ScanStats{}, err
	}

	started := time.Now()
	pool := newScanPool(s.backend, s.handle, scanPoolOptions{
		ValueType:  opts.ValueType,
		Target:     opts.Target,
		Epsilon:    opts.Epsilon,
		Step:       step,
		ChunkBytes: chunkBytes,
		MaxResults: opts.MaxResults,
		Workers:    workers,
		Reporter:   reporter,
	})
	candidates, stats := pool.run(ctx, regions)
	stats.ElapsedS = time.Since(started).Seconds()
	return candidates, stats, nil
}

package scanner

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/apollion69/nordhold-calculator/internal/memback"
)

// progressReport carries one worker's running totals for the reporter
// drain goroutine; it is not the per-match result (matches are never
// dropped), only a coalesced progress snapshot.
type progressReport struct {
	bytesScanned int64
	found        int
}

type scanPoolOptions struct {
	ValueType  ValueType
	Target     float64
	Epsilon    float64
	Step       int
	ChunkBytes int
	MaxResults int
	Workers    int
	Reporter   Reporter
}

// scanPool is a bounded worker pool: a fixed number of goroutines pull
// regions off a channel and scan them independently, writing matches into
// a single mutex-guarded slice. Progress reports flow through a small
// buffered channel; a full channel means the report is coalesced away
// (dropped) rather than blocking a worker — backpressure on progress
// reporting must never slow down the scan itself.
type scanPool struct {
	backend memback.Backend
	handle  memback.Handle
	opts    scanPoolOptions

	mu            sync.Mutex
	candidates    []Candidate
	regionsDone   int
	bytesScanned  int64
	readErrors    int
	maxResultsHit bool

	progressDropped atomic.Int64
}

func newScanPool(backend memback.Backend, handle memback.Handle, opts scanPoolOptions) *scanPool {
	return &scanPool{backend: backend, handle: handle, opts: opts}
}

// ProgressDropped reports how many progress updates were coalesced away by
// a full progress channel during the most recent run.
func (p *scanPool) ProgressDropped() int64 { return p.progressDropped.Load() }

func (p *scanPool) run(ctx context.Context, regions []memback.Region) ([]Candidate, ScanStats) {
	regionCh := make(chan memback.Region, len(regions))
	for _, r := range regions {
		regionCh <- r
	}
	close(regionCh)

	progressCh := make(chan progressReport, 32)
	var progressWG sync.WaitGroup
	progressWG.Add(1)
	go func() {
		defer progressWG.Done()
		for rep := range progressCh {
			p.opts.Reporter.Report(rep.bytesScanned, rep.found)
		}
	}()

	var stop atomic.Bool
	var wg sync.WaitGroup
	workers := p.opts.Workers
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for region := range regionCh {
				if stop.Load() {
					continue
				}
				select {
				case <-ctx.Done():
					stop.Store(true)
					continue
				default:
				}
				p.scanRegion(region, progressCh, &stop)
			}
		}()
	}
	wg.Wait()
	close(progressCh)
	progressWG.Wait()

	stats := ScanStats{
		RegionsScanned: p.regionsDone,
		BytesScanned:   p.bytesScanned,
		ReadErrors:     p.readErrors,
		MaxResultsHit:  p.maxResultsHit,
	}
	return p.candidates, stats
}

func (p *scanPool) reportProgress(progressCh chan<- progressReport, bytesScanned int64, found int) {
	select {
	case progressCh <- progressReport{bytesScanned: bytesScanned, found: found}:
	default:
		p.progressDropped.Add(1)
	}
}

func (p *scanPool) addCandidate(c Candidate) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.opts.MaxResults > 0 && len(p.candidates) >= p.opts.MaxResults {
		p.maxResultsHit = true
		return false
	}
	p.candidates = append(p.candidates, c)
	if p.opts.MaxResults > 0 && len(p.candidates) >= p.opts.MaxResults {
		p.maxResultsHit = true
	}
	return true
}

func (p *scanPool) scanRegion(region memback.Region, progressCh chan<- progressReport, stop *atomic.Bool) {
	width := ValueWidth(p.opts.ValueType)
	cursor := region.Base
	end := region.Base + region.Size
	var carry []byte
	carryAddr := region.Base

	for cursor < end {
		if stop.Load() {
			return
		}
		size := p.opts.ChunkBytes
		if remaining := end - cursor; int64(size) > remaining {
			size = int(remaining)
		}
		chunk, err := p.backend.ReadMemory(p.handle, cursor, size)
		if err != nil {
			p.mu.Lock()
			p.readErrors++
			p.mu.Unlock()
			carry = nil
			cursor += int64(size)
			carryAddr = cursor
			continue
		}

		p.mu.Lock()
		p.bytesScanned += int64(len(chunk))
		bytesSoFar := p.bytesScanned
		found := len(p.candidates)
		p.mu.Unlock()
		p.reportProgress(progressCh, bytesSoFar, found)

		var payload []byte
		var payloadAddr int64
		if len(carry) > 0 {
			payload = append(append([]byte{}, carry...), chunk...)
			payloadAddr = carryAddr
		} else {
			payload = chunk
			payloadAddr = cursor
		}

		limit := len(payload) - width
		if limit >= 0 {
			startOffset := int(((-payloadAddr)%int64(p.opts.Step) + int64(p.opts.Step)) % int64(p.opts.Step))
			for offset := startOffset; offset <= limit; offset += p.opts.Step {
				current := decodeValue(payload[offset:offset+width], p.opts.ValueType)
				if valuesEqual(current, p.opts.Target, p.opts.ValueType, p.opts.Epsilon) {
					if !p.addCandidate(Candidate{Address: payloadAddr + int64(offset), Value: current}) {
						stop.Store(true)
						return
					}
				}
			}
		}

		carrySize := width - 1
		if carrySize > 0 && len(payload) >= carrySize {
			carry = append([]byte{}, payload[len(payload)-carrySize:]...)
			carryAddr = payloadAddr + int64(len(payload)-carrySize)
		} else {
			carry = append([]byte{}, payload...)
			carryAddr = payloadAddr
		}
		cursor += int64(size)
	}

	p.mu.Lock()
	p.regionsDone++
	p.mu.Unlock()
}

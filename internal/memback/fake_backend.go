package memback

import (
	"encoding/binary"
	"math"
	"strings"
	"sync"
)

// FakeBackend is a portable, in-memory Backend used by tests, replay mode,
// and synthetic mode, where there is no real target process. Callers seed
// it with a fixed address space and process table; ReadMemory then behaves
// exactly like a real backend would against that fixture.
type FakeBackend struct {
	mu             sync.Mutex
	processes      map[string]int
	moduleBases    map[int]map[string]int64
	memory         map[int]map[int64][]byte
	nextHandle     Handle
	openHandles    map[Handle]int
	forceTransient bool
	supported      bool
}

// NewFakeBackend constructs an empty FakeBackend. Supported defaults to
// true; call SetSupported(false) to exercise the unsupported-platform path.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		processes:   make(map[string]int),
		moduleBases: make(map[int]map[string]int64),
		memory:      make(map[int]map[int64][]byte),
		openHandles: make(map[Handle]int),
		nextHandle:  1,
		supported:   true,
	}
}

// SetSupported controls the SupportsMemoryRead return value.
func (b *FakeBackend) SetSupported(supported bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.supported = supported
}

// SetProcess registers a fake running process by name and pid.
func (b *FakeBackend) SetProcess(name string, pid int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.processes[strings.ToLower(strings.TrimSuffix(name, ".exe"))] = pid
}

// SetModuleBase registers a fake module base address for pid/moduleName.
func (b *FakeBackend) SetModuleBase(pid int, moduleName string, base int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.moduleBases[pid] == nil {
		b.moduleBases[pid] = make(map[string]int64)
	}
	b.moduleBases[pid][moduleName] = base
}

// WriteInt32 / WriteFloat32 seed raw bytes at address within pid's fake
// address space, little-endian, matching the wire format the real Windows
// backend decodes.
func (b *FakeBackend) WriteInt32(pid int, address int64, value int32) {
	b.write(pid, address, encodeLE(uint64(uint32(value)), 4))
}

// WriteFloat32 seeds a little-endian float32 at address.
func (b *FakeBackend) WriteFloat32(pid int, address int64, value float32) {
	b.write(pid, address, encodeLE(uint64(math.Float32bits(value)), 4))
}

// WritePointer seeds a pointer-sized little-endian value at address.
func (b *FakeBackend) WritePointer(pid int, address int64, value int64, pointerSize int) {
	b.write(pid, address, encodeLE(uint64(value), pointerSize))
}

func (b *FakeBackend) write(pid int, address int64, raw []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.memory[pid] == nil {
		b.memory[pid] = make(map[int64][]byte)
	}
	b.memory[pid][address] = raw
}

func encodeLE(value uint64, size int) []byte {
	buf := make([]byte, size)
	switch size {
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(value))
	case 8:
		binary.LittleEndian.PutUint64(buf, value)
	}
	return buf
}

// ForceTransientReadFailure makes every subsequent ReadMemory call fail
// with the same "winerr=299"/"ReadProcessMemory failed" message the real
// Windows backend emits for a transient race against the target process,
// so the Live Bridge's transient-error classifier can be exercised without
// a real Windows target.
func (b *FakeBackend) ForceTransientReadFailure(force bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forceTransient = force
}

// SupportsMemoryRead reports the configured support flag.
func (b *FakeBackend) SupportsMemoryRead() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.supported
}

// FindProcessID looks up a previously registered fake process.
func (b *FakeBackend) FindProcessID(processName string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	name := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(processName), ".exe"))
	if pid, ok := b.processes[name]; ok {
		return pid, nil
	}
	return 0, newError(KindProcessNotFound, "process not found: %s", processName)
}

// OpenProcess hands out a new opaque handle bound to pid.
func (b *FakeBackend) OpenProcess(pid int) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := b.nextHandle
	b.nextHandle++
	b.openHandles[h] = pid
	if b.memory[pid] == nil {
		b.memory[pid] = make(map[int64][]byte)
	}
	return h, nil
}

// CloseProcess forgets the handle.
func (b *FakeBackend) CloseProcess(handle Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.openHandles, handle)
}

// ReadMemory returns size bytes starting at address for handle, assembled
// from every seeded value overlapping that range (unseeded bytes read as
// zero). It fails if no seeded byte falls in the range, or with a
// transient-style failure if ForceTransientReadFailure(true) was called.
func (b *FakeBackend) ReadMemory(handle Handle, address int64, size int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.forceTransient {
		return nil, newError(KindReadFailed,
			"ReadProcessMemory failed: addr=0x%x size=%d read=0 winerr=299", address, size)
	}
	if address <= 0 {
		return nil, newError(KindReadFailed, "invalid read address: 0x%x", address)
	}
	pid, ok := b.openHandles[handle]
	if !ok {
		return nil, newError(KindReadFailed, "ReadProcessMemory failed: stale handle")
	}
	end := address + int64(size)
	buf := make([]byte, size)
	covered := false
	for base, raw := range b.memory[pid] {
		for i, v := range raw {
			if a := base + int64(i); a >= address && a < end {
				buf[a-address] = v
				covered = true
			}
		}
	}
	if !covered {
		return nil, newError(KindReadFailed, "ReadProcessMemory failed: addr=0x%x size=%d read=0 winerr=6", address, size)
	}
	return buf, nil
}

// IterRegions synthesizes a single region spanning the seeded addresses for
// handle's pid, clipped to [minAddress, maxAddress). Real backends report
// disjoint OS-reported regions; tests only need something a scanner can
// walk, so one covering region is enough to exercise chunking/carry-over.
func (b *FakeBackend) IterRegions(handle Handle, minAddress, maxAddress int64) ([]Region, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pid, ok := b.openHandles[handle]
	if !ok {
		return nil, newError(KindReadFailed, "IterRegions: stale handle")
	}
	addrs := b.memory[pid]
	if len(addrs) == 0 {
		return nil, nil
	}
	var lo, hi int64 = -1, -1
	for addr, raw := range addrs {
		end := addr + int64(len(raw))
		if lo == -1 || addr < lo {
			lo = addr
		}
		if end > hi {
			hi = end
		}
	}
	if lo < minAddress {
		lo = minAddress
	}
	if hi > maxAddress {
		hi = maxAddress
	}
	if hi <= lo {
		return nil, nil
	}
	return []Region{{Base: lo, Size: hi - lo}}, nil
}

// GetModuleBase returns a previously registered fake module base, or 0.
func (b *FakeBackend) GetModuleBase(pid int, moduleName string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if bases, ok := b.moduleBases[pid]; ok {
		return bases[moduleName], nil
	}
	return 0, nil
}

//go:build windows

package memback

import (
	"strings"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	processVMRead                 = 0x0010
	processQueryInformation       = 0x0400
	processQueryLimitedInformation = 0x1000
)

// WindowsBackend reads process memory through the real Win32 API via
// golang.org/x/sys/windows: OpenProcess, ReadProcessMemory, VirtualQueryEx.
type WindowsBackend struct {
	readProcessMemory *windows.LazyProc
	virtualQueryEx    *windows.LazyProc
}

// NewWindowsBackend constructs a Backend bound to kernel32.dll.
func NewWindowsBackend() *WindowsBackend {
	kernel32 := windows.NewLazySystemDLL("kernel32.dll")
	return &WindowsBackend{
		readProcessMemory: kernel32.NewProc("ReadProcessMemory"),
		virtualQueryEx:    kernel32.NewProc("VirtualQueryEx"),
	}
}

// memoryBasicInformation mirrors the Win32 MEMORY_BASIC_INFORMATION
// struct layout for the VirtualQueryEx call below.
type memoryBasicInformation struct {
	BaseAddress       uintptr
	AllocationBase    uintptr
	AllocationProtect uint32
	_                 uint32 // padding to match native alignment on amd64
	RegionSize        uintptr
	State             uint32
	Protect           uint32
	Type              uint32
}

// SupportsMemoryRead always reports true when built for windows.
func (b *WindowsBackend) SupportsMemoryRead() bool { return true }

// FindProcessID walks a process snapshot looking for an exact,
// case-insensitive executable name match.
func (b *WindowsBackend) FindProcessID(processName string) (int, error) {
	name := strings.TrimSuffix(strings.TrimSpace(processName), ".exe")
	if name == "" {
		return 0, newError(KindProcessNotFound, "empty process name")
	}

	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return 0, newError(KindReadFailed, "CreateToolhelp32Snapshot failed: %v", err)
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	if err := windows.Process32First(snapshot, &entry); err != nil {
		return 0, newError(KindProcessNotFound, "process not found: %s", processName)
	}
	for {
		exe := windows.UTF16ToString(entry.ExeFile[:])
		if strings.EqualFold(strings.TrimSuffix(exe, ".exe"), name) {
			return int(entry.ProcessID), nil
		}
		if err := windows.Process32Next(snapshot, &entry); err != nil {
			break
		}
	}
	return 0, newError(KindProcessNotFound, "process not found: %s", processName)
}

// OpenProcess acquires a handle with VM-read and query-only access.
func (b *WindowsBackend) OpenProcess(pid int) (Handle, error) {
	access := uint32(processVMRead | processQueryInformation | processQueryLimitedInformation)
	h, err := windows.OpenProcess(access, false, uint32(pid))
	if err != nil {
		return 0, newError(KindPermissionDenied, "OpenProcess failed for pid=%d: %v", pid, err)
	}
	return Handle(h), nil
}

// CloseProcess releases a handle. Best effort: a failure here never
// surfaces to the caller.
func (b *WindowsBackend) CloseProcess(handle Handle) {
	if handle == 0 {
		return
	}
	_ = windows.CloseHandle(windows.Handle(handle))
}

// ReadMemory reads size bytes at address via ReadProcessMemory.
func (b *WindowsBackend) ReadMemory(handle Handle, address int64, size int) ([]byte, error) {
	if address <= 0 {
		return nil, newError(KindReadFailed, "invalid read address: 0x%x", address)
	}
	buf := make([]byte, size)
	var bytesRead uintptr
	ret, _, lastErr := b.readProcessMemory.Call(
		uintptr(handle),
		uintptr(address),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(size),
		uintptr(unsafe.Pointer(&bytesRead)),
	)
	if ret == 0 || int(bytesRead) != size {
		return nil, newError(KindReadFailed,
			"ReadProcessMemory failed: addr=0x%x size=%d read=%d winerr=%d", address, size, bytesRead, errno(lastErr))
	}
	return buf, nil
}

// GetModuleBase walks the target process's module snapshot for an exact,
// case-insensitive module name match.
func (b *WindowsBackend) GetModuleBase(pid int, moduleName string) (int64, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, uint32(pid))
	if err != nil {
		return 0, nil
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ModuleEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	if err := windows.Module32First(snapshot, &entry); err != nil {
		return 0, nil
	}
	for {
		name := windows.UTF16ToString(entry.Module[:])
		if strings.EqualFold(name, moduleName) {
			return int64(entry.ModBaseAddr), nil
		}
		if err := windows.Module32Next(snapshot, &entry); err != nil {
			break
		}
	}
	return 0, nil
}

const (
	memCommit     = 0x1000
	pageNoAccess  = 0x01
	pageGuard     = 0x100
	regionStepMin = 0x1000
)

var readableProtections = map[uint32]bool{
	0x02: true, // PAGE_READONLY
	0x04: true, // PAGE_READWRITE
	0x08: true, // PAGE_WRITECOPY
	0x20: true, // PAGE_EXECUTE_READ
	0x40: true, // PAGE_EXECUTE_READWRITE
	0x80: true, // PAGE_EXECUTE_WRITECOPY
}

func isReadableProtect(protect uint32) bool {
	if protect&pageGuard != 0 {
		return false
	}
	if protect&pageNoAccess != 0 {
		return false
	}
	return readableProtections[protect&0xFF]
}

// IterRegions walks the process's address space with VirtualQueryEx,
// returning every committed, readable region overlapping the requested
// window, clipped to it.
func (b *WindowsBackend) IterRegions(handle Handle, minAddress, maxAddress int64) ([]Region, error) {
	if minAddress < 0 {
		minAddress = 0
	}
	var regions []Region
	var mbi memoryBasicInformation
	mbiSize := unsafe.Sizeof(mbi)
	address := minAddress
	for address < maxAddress {
		mbi = memoryBasicInformation{}
		ret, _, _ := b.virtualQueryEx.Call(
			uintptr(handle),
			uintptr(address),
			uintptr(unsafe.Pointer(&mbi)),
			mbiSize,
		)
		if ret == 0 {
			address += regionStepMin
			continue
		}
		base := int64(mbi.BaseAddress)
		size := int64(mbi.RegionSize)
		if size <= 0 {
			address += regionStepMin
			continue
		}
		next := base + size
		if mbi.State == memCommit && isReadableProtect(mbi.Protect) && next > minAddress && base < maxAddress {
			start := base
			if start < minAddress {
				start = minAddress
			}
			stop := next
			if stop > maxAddress {
				stop = maxAddress
			}
			if stop > start {
				regions = append(regions, Region{Base: start, Size: stop - start})
			}
		}
		if next > address {
			address = next
		} else {
			address += regionStepMin
		}
	}
	return regions, nil
}

func errno(err error) uintptr {
	if errno, ok := err.(syscall.Errno); ok {
		return uintptr(errno)
	}
	return 0
}

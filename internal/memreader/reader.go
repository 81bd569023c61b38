package memreader

import (
	"encoding/binary"
	"math"

	"github.com/apollion69/nordhold-calculator/internal/memback"
	"github.com/apollion69/nordhold-calculator/internal/profile"
)

// Reader resolves a signature Profile's fields against an open process
// handle and decodes their raw bytes into Go values.
type Reader struct {
	backend           memback.Backend
	handle            memback.Handle
	pid               int
	moduleBase        int64
	nativePointerSize int
	pointerSize       int
}

// NewReader constructs a Reader bound to backend. A nil backend is a
// programmer error.
func NewReader(backend memback.Backend) *Reader {
	return &Reader{backend: backend, nativePointerSize: 8, pointerSize: 8}
}

// Connected reports whether Open succeeded and Close has not since been
// called.
func (r *Reader) Connected() bool { return r.handle != 0 }

// Open locates processName (falling back to profile's own process name),
// opens a handle, and resolves the profile's module base if one is named.
func (r *Reader) Open(processName string, prof profile.Profile) error {
	r.Close()
	r.pointerSize = r.nativePointerSize

	if !r.backend.SupportsMemoryRead() {
		return errorf(KindNotSupported, "memory reader not supported on this platform")
	}

	name := processName
	if name == "" {
		name = prof.ProcessName
	}
	pid, err := r.backend.FindProcessID(name)
	if err != nil {
		return errorf(KindProcessGone, "process not found: %s", name)
	}

	handle, err := r.backend.OpenProcess(pid)
	if err != nil {
		return err
	}

	var moduleBase int64
	if prof.ModuleName != "" {
		base, err := r.backend.GetModuleBase(pid, prof.ModuleName)
		if err == nil {
			moduleBase = base
		}
	}

	r.pid = pid
	r.handle = handle
	r.moduleBase = moduleBase
	if prof.PointerSize == 4 || prof.PointerSize == 8 {
		r.pointerSize = prof.PointerSize
	}
	return nil
}

// Close releases the open handle, if any. Best effort.
func (r *Reader) Close() {
	if r.handle != 0 {
		r.backend.CloseProcess(r.handle)
	}
	r.handle = 0
	r.pid = 0
	r.moduleBase = 0
	r.pointerSize = r.nativePointerSize
}

func (r *Reader) readPointer(address int64) (int64, error) {
	raw, err := r.backend.ReadMemory(r.handle, address, r.pointerSize)
	if err != nil {
		return 0, err
	}
	if r.pointerSize == 8 {
		return int64(binary.LittleEndian.Uint64(raw)), nil
	}
	return int64(binary.LittleEndian.Uint32(raw)), nil
}

func (r *Reader) resolveAddress(spec profile.FieldSpec) (int64, error) {
	address := spec.Address
	if spec.RelativeToModule {
		address += r.moduleBase
	}

	switch spec.Source {
	case "address":
		return address, nil
	case "pointer_chain":
		if len(spec.Offsets) == 0 {
			return r.readPointer(address)
		}
		current := address
		for _, offset := range spec.Offsets {
			ptr, err := r.readPointer(current)
			if err != nil {
				return 0, err
			}
			current = ptr + offset
		}
		return current, nil
	default:
		return 0, errorf(KindDecodeFailed, "unsupported field source: %s", spec.Source)
	}
}

func decodeValue(raw []byte, valueType string) (any, error) {
	switch valueType {
	case "int32":
		return int64(int32(binary.LittleEndian.Uint32(raw))), nil
	case "uint32":
		return int64(binary.LittleEndian.Uint32(raw)), nil
	case "float32":
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(raw))), nil
	case "float64":
		return math.Float64frombits(binary.LittleEndian.Uint64(raw)), nil
	default:
		return nil, errorf(KindDecodeFailed, "unsupported value type: %s", valueType)
	}
}

// ReadFields resolves and decodes every field in prof, returning int64 for
// int32/uint32 fields and float64 for float32/float64 fields, keyed by
// field name.
func (r *Reader) ReadFields(prof profile.Profile) (map[string]any, error) {
	if !r.Connected() {
		return nil, errorf(KindNotConnected, "memory reader not connected")
	}

	values := make(map[string]any, len(prof.Fields))
	for name, spec := range prof.Fields {
		address, err := r.resolveAddress(spec)
		if err != nil {
			return nil, err
		}
		size, err := spec.ValueSize()
		if err != nil {
			return nil, err
		}
		raw, err := r.backend.ReadMemory(r.handle, address, size)
		if err != nil {
			return nil, err
		}
		value, err := decodeValue(raw, spec.ValueType)
		if err != nil {
			return nil, err
		}
		values[name] = value
	}
	return values, nil
}

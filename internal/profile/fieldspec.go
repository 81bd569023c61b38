package profile

import "strings"

// Placeholder sentinel addresses a signature author leaves in an
// unresolved field spec, before the Calibration Layer or manual capture
// fills in a real address.
const (
	SentinelDeadbeef = 0xDEADBEEF
	SentinelCCCC     = 0xCCCCCCCC
	SentinelFFFF     = 0xFFFFFFFF
)

var validSources = map[string]bool{"address": true, "pointer_chain": true}
var validValueTypes = map[string]bool{"int32": true, "uint32": true, "float32": true, "float64": true}

// FieldSpec is one named field within a signature profile: how to locate
// it in the target process's address space and how to decode its bytes.
type FieldSpec struct {
	Name             string
	Source           string
	ValueType        string
	Address          int64
	Offsets          []int64
	RelativeToModule bool
}

// Resolved reports whether the field's address has been set to something
// other than the zero/placeholder sentinel. Address 0 or a well-known
// placeholder sentinel means the signature capture step hasn't run yet.
func (f FieldSpec) Resolved() bool {
	if f.Address == 0 {
		return false
	}
	switch f.Address {
	case SentinelDeadbeef, SentinelCCCC, SentinelFFFF:
		return false
	default:
		return true
	}
}

// ValueSize returns the byte width of the field's decoded value type.
func (f FieldSpec) ValueSize() (int, error) {
	switch f.ValueType {
	case "int32", "uint32", "float32":
		return 4, nil
	case "float64":
		return 8, nil
	default:
		return 0, errorf("unsupported value type: %s", f.ValueType)
	}
}

// FieldSpecFromPayload validates and constructs a FieldSpec from a decoded
// JSON object.
func FieldSpecFromPayload(name string, payload map[string]any) (FieldSpec, error) {
	source := strings.ToLower(strings.TrimSpace(stringOr(payload["source"], "address")))
	if !validSources[source] {
		return FieldSpec{}, errorf("unsupported field source %q in field %q: supported address|pointer_chain", source, name)
	}

	valueType := strings.ToLower(strings.TrimSpace(stringOr(payload["type"], "int32")))
	if !validValueTypes[valueType] {
		return FieldSpec{}, errorf("unsupported field type %q in field %q: supported int32|uint32|float32|float64", valueType, name)
	}

	baseAddress := payload["address"]
	if baseAddress == nil {
		baseAddress = payload["base_address"]
	}
	address, err := parseInt(baseAddress, name+".address")
	if err != nil {
		return FieldSpec{}, err
	}

	var offsets []int64
	if raw, ok := payload["offsets"].([]any); ok {
		offsets = make([]int64, 0, len(raw))
		for _, item := range raw {
			off, err := parseInt(item, name+".offsets[]")
			if err != nil {
				return FieldSpec{}, err
			}
			offsets = append(offsets, off)
		}
	}

	return FieldSpec{
		Name:             name,
		Source:           source,
		ValueType:        valueType,
		Address:          address,
		Offsets:          offsets,
		RelativeToModule: boolOr(payload["relative_to_module"], false),
	}, nil
}

// ToPayload renders a FieldSpec back to a JSON-object shape, used when the
// Calibration Layer merges a candidate's field overrides onto a base spec.
func (f FieldSpec) ToPayload() map[string]any {
	offsets := make([]any, len(f.Offsets))
	for i, o := range f.Offsets {
		offsets[i] = o
	}
	return map[string]any{
		"source":             f.Source,
		"type":                f.ValueType,
		"address":             f.Address,
		"offsets":             offsets,
		"relative_to_module": f.RelativeToModule,
	}
}

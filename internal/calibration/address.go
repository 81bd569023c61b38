package calibration

import (
	"fmt"
	"strconv"
	"strings"
)

var placeholderAddresses = map[int64]bool{
	0xDEADBEEF: true,
	0x0BADF00D: true,
	0xDEAD:     true,
	0xBEEF:     true,
	0xBAADF00D: true,
	0xCCCCCCCC: true,
	0xCDCDCDCD: true,
	0xFEEEFEEE: true,
	0xFFFFFFFF: true,
	0xFFFFFFFE: true,
}

// IsPlaceholderAddress reports whether an address is a known scanner
// placeholder sentinel (or non-positive), meaning it never resolved to real
// game memory.
func IsPlaceholderAddress(value int64) bool {
	if value <= 0 {
		return true
	}
	return placeholderAddresses[value]
}

// ParseAddressInt parses an address that may arrive as a JSON number or a
// "0x..." string, matching the scanner's own address encoding.
func ParseAddressInt(value any, label string) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return 0, nil
		}
		parsed, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return 0, errorf("invalid integer for %s: %s", label, v)
		}
		return parsed, nil
	default:
		return 0, errorf("invalid integer type for %s: %T", label, value)
	}
}

func addressToHex(value any) (string, error) {
	parsed, err := ParseAddressInt(value, "address")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("0x%x", parsed), nil
}

func fieldHasResolvedAddress(fieldPayload any) bool {
	m, ok := fieldPayload.(map[string]any)
	if !ok {
		return false
	}
	rawAddress, present := m["address"]
	if !present {
		return false
	}
	if s, ok := rawAddress.(string); ok && strings.TrimSpace(s) == "" {
		return false
	}
	parsed, err := ParseAddressInt(rawAddress, "field.address")
	if err != nil {
		return false
	}
	return !IsPlaceholderAddress(parsed)
}

// Package registry encodes registry values into the textual form used by
// RegistryValue elements and normalizes registry root names.
package registry

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MultiStringSeparator separates the elements of a multiString value. WiX
// treats it as the NUL between REG_MULTI_SZ entries.
const MultiStringSeparator = "[~]"

// ErrUnknownRoot is returned for root names that do not map to a hive.
var ErrUnknownRoot = errors.New("unknown registry root")

// Type is the value type of a RegistryValue element.
type Type int

const (
	String Type = iota
	Integer
	Binary
	MultiString
)

var typeNames = map[Type]string{
	String:      "string",
	Integer:     "integer",
	Binary:      "binary",
	MultiString: "multiString",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType maps the Type attribute of a RegistryValue element back to a Type.
// Matching is case-insensitive.
func ParseType(s string) (Type, error) {
	for t, name := range typeNames {
		if strings.EqualFold(s, name) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown registry value type '%s'", s)
}

// EncodeInteger renders an integer value as decimal text.
func EncodeInteger(v int64) string {
	return strconv.FormatInt(v, 10)
}

// EncodeBinary renders bytes as uppercase hex without separators.
func EncodeBinary(data []byte) string {
	return strings.ToUpper(hex.EncodeToString(data))
}

// DecodeBinary reverses EncodeBinary.
func DecodeBinary(s string) ([]byte, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding binary value: %w", err)
	}
	return data, nil
}

// EncodeMultiString joins the elements with MultiStringSeparator and appends a
// trailing separator. An empty slice encodes to the empty string.
func EncodeMultiString(values []string) string {
	if len(values) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, v := range values {
		sb.WriteString(v)
		sb.WriteString(MultiStringSeparator)
	}
	return sb.String()
}

// DecodeMultiString reverses EncodeMultiString.
func DecodeMultiString(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, MultiStringSeparator)
	return strings.Split(s, MultiStringSeparator)
}

// NormalizeRoot maps a hive name (long or short form, any case) to the short
// root symbol used in RegistryValue elements.
func NormalizeRoot(name string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "HKEY_LOCAL_MACHINE", "HKLM":
		return "HKLM", nil
	case "HKEY_CURRENT_USER", "HKCU":
		return "HKCU", nil
	case "HKEY_CLASSES_ROOT", "HKCR":
		return "HKCR", nil
	case "HKEY_USERS", "HKU":
		return "HKU", nil
	case "HKMU":
		// HKLM for per-machine installs, HKCU for per-user installs
		return "HKMU", nil
	default:
		return "", fmt.Errorf("%w: '%s'", ErrUnknownRoot, name)
	}
}

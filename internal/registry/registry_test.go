package registry

import (
	"errors"
	"testing"
)

func TestEncodeInteger(t *testing.T) {
	tests := []struct {
		input int64
		want  string
	}{
		{0, "0"},
		{5, "5"},
		{-42, "-42"},
		{4294967295, "4294967295"},
	}

	for _, tt := range tests {
		if got := EncodeInteger(tt.input); got != tt.want {
			t.Errorf("EncodeInteger(%d) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestEncodeBinary(t *testing.T) {
	got := EncodeBinary([]byte{0x00, 0xab, 0x10, 0xff})
	if got != "00AB10FF" {
		t.Errorf("EncodeBinary = %q, want %q", got, "00AB10FF")
	}
	if got := EncodeBinary(nil); got != "" {
		t.Errorf("EncodeBinary(nil) = %q, want empty", got)
	}

	data, err := DecodeBinary("00AB10FF")
	if err != nil {
		t.Fatalf("DecodeBinary failed: %v", err)
	}
	if len(data) != 4 || data[1] != 0xab {
		t.Errorf("DecodeBinary = %v", data)
	}

	if _, err := DecodeBinary("XYZ"); err == nil {
		t.Error("expected error for invalid hex")
	}
}

func TestEncodeMultiString(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  string
	}{
		{"empty", nil, ""},
		{"single", []string{"a"}, "a[~]"},
		{"multiple", []string{"first", "second", "third"}, "first[~]second[~]third[~]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeMultiString(tt.input)
			if got != tt.want {
				t.Errorf("EncodeMultiString(%v) = %q, want %q", tt.input, got, tt.want)
			}
			back := DecodeMultiString(got)
			if len(back) != len(tt.input) {
				t.Fatalf("DecodeMultiString(%q) = %v, want %v", got, back, tt.input)
			}
			for i := range back {
				if back[i] != tt.input[i] {
					t.Errorf("element %d = %q, want %q", i, back[i], tt.input[i])
				}
			}
		})
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		input string
		want  Type
	}{
		{"string", String},
		{"integer", Integer},
		{"binary", Binary},
		{"multiString", MultiString},
		{"MULTISTRING", MultiString},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseType(tt.input)
			if err != nil {
				t.Fatalf("ParseType(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseType(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got.String() == "" {
				t.Error("String() should not be empty")
			}
		})
	}

	if _, err := ParseType("expandable"); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestNormalizeRoot(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"HKEY_LOCAL_MACHINE", "HKLM"},
		{"hklm", "HKLM"},
		{"HKEY_CURRENT_USER", "HKCU"},
		{"HKEY_CLASSES_ROOT", "HKCR"},
		{"HKEY_USERS", "HKU"},
		{"HKMU", "HKMU"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizeRoot(tt.input)
			if err != nil {
				t.Fatalf("NormalizeRoot(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeRoot(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	_, err := NormalizeRoot("HKEY_CURRENT_CONFIG")
	if !errors.Is(err, ErrUnknownRoot) {
		t.Errorf("expected ErrUnknownRoot, got %v", err)
	}
}

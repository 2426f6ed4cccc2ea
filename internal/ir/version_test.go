package ir

import (
	"testing"

	"github.com/google/uuid"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"1.0.0", false},
		{"1.0.0.0", false},
		{"255.255.65535.65535", false},
		{"01.002.0003", false},
		{"", true},
		{"1.0", true},
		{"1.0.0.0.0", true},
		{"1.x.0", true},
		{"1..0", true},
		{"v1.0.0", true},
		{"1.0.0-beta", true},
		{"256.0.0", true},
		{"1.256.0", true},
		{"1.0.65536", true},
		{"1.0.0.65536", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseVersion(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseVersion(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0.0", "1.0.0.0", 0},
		{"1.0.1", "1.0.0", 1},
		{"1.0.0", "2.0.0", -1},
		{"1.0.0.1", "1.0.0.9", 0}, // revision is ignored
		{"1.2.0", "1.10.0", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			got, err := CompareVersions(tt.a, tt.b)
			if err != nil {
				t.Fatalf("CompareVersions failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("CompareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}

	if _, err := CompareVersions("bad", "1.0.0"); err == nil {
		t.Error("expected error for invalid version")
	}
}

func TestStableComponentID(t *testing.T) {
	code := uuid.MustParse("6f1f2a4b-6b44-4a55-9f67-3f0c6a6c9a10")

	a := StableComponentID(code, `bin\app.exe`)
	b := StableComponentID(code, "BIN/App.exe")
	c := StableComponentID(code, `bin\other.exe`)
	d := StableComponentID(uuid.New(), `bin\app.exe`)

	if a != b {
		t.Error("same path in different spelling should yield the same GUID")
	}
	if a == c {
		t.Error("different paths should yield different GUIDs")
	}
	if a == d {
		t.Error("different products should yield different GUIDs")
	}
	if a == uuid.Nil {
		t.Error("GUID should not be nil")
	}
}

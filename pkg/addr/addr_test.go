package addr

import (
	"bytes"
	"testing"
)

func TestCollapseToPrefixLen(t *testing.T) {
	tests := []struct {
		name     string
		min, max []byte
		want     int
	}{
		{"full-range-24", []byte{10, 0, 0, 0}, []byte{10, 0, 0, 255}, 24},
		{"full-range-25", []byte{10, 0, 0, 0}, []byte{10, 0, 0, 127}, 25},
		{"host-route", []byte{10, 0, 0, 1}, []byte{10, 0, 0, 1}, 32},
		{"whole-space", []byte{0, 0, 0, 0}, []byte{255, 255, 255, 255}, 0},
		{"not-aligned", []byte{10, 0, 0, 1}, []byte{10, 0, 0, 3}, -1},
		{"overlap-not-collapsible", []byte{10, 0, 0, 0}, []byte{10, 0, 0, 200}, -1},
		{"inverted", []byte{10, 0, 0, 5}, []byte{10, 0, 0, 1}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CollapseToPrefixLen(tt.min, tt.max); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMakeRangeCollapses(t *testing.T) {
	por, err := MakeRange([]byte{10, 0, 0, 0}, []byte{10, 0, 0, 255}, 4)
	if err != nil {
		t.Fatalf("MakeRange failed: %v", err)
	}
	if por.Kind != Prefix {
		t.Fatalf("expected collapse to Prefix, got Kind=%d", por.Kind)
	}
	if got := por.Pfx.PrefixLen(); got != 24 {
		t.Errorf("got prefixlen %d, want 24", got)
	}
}

func TestMakeRangeStaysRange(t *testing.T) {
	por, err := MakeRange([]byte{10, 0, 0, 1}, []byte{10, 0, 0, 3}, 4)
	if err != nil {
		t.Fatalf("MakeRange failed: %v", err)
	}
	if por.Kind != Range {
		t.Fatalf("expected Range, got Kind=%d", por.Kind)
	}
}

func TestMakeRangeRejectsInverted(t *testing.T) {
	if _, err := MakeRange([]byte{10, 0, 0, 5}, []byte{10, 0, 0, 1}, 4); err == nil {
		t.Error("expected error for inverted range")
	}
}

func TestExtractMinMaxPrefix(t *testing.T) {
	por, err := MakePrefix([]byte{10, 0, 0, 0}, 24)
	if err != nil {
		t.Fatalf("MakePrefix failed: %v", err)
	}
	min, max, err := ExtractMinMax(por, 4)
	if err != nil {
		t.Fatalf("ExtractMinMax failed: %v", err)
	}
	if !bytes.Equal(min, []byte{10, 0, 0, 0}) {
		t.Errorf("got min %v", min)
	}
	if !bytes.Equal(max, []byte{10, 0, 0, 255}) {
		t.Errorf("got max %v", max)
	}
}

func TestExtractMinMaxRange(t *testing.T) {
	por, err := MakeRange([]byte{10, 0, 0, 1}, []byte{10, 0, 0, 3}, 4)
	if err != nil {
		t.Fatalf("MakeRange failed: %v", err)
	}
	min, max, err := ExtractMinMax(por, 4)
	if err != nil {
		t.Fatalf("ExtractMinMax failed: %v", err)
	}
	if !bytes.Equal(min, []byte{10, 0, 0, 1}) {
		t.Errorf("got min %v", min)
	}
	if !bytes.Equal(max, []byte{10, 0, 0, 3}) {
		t.Errorf("got max %v", max)
	}
}

package bitstring

import (
	"bytes"
	"testing"
)

func TestExpand(t *testing.T) {
	// 10.0.0.0/22 -> bytes [0x0A, 0x00, 0x00], unused=2
	bs := BitString{Bytes: []byte{0x0A, 0x00, 0x00}, Unused: 2}

	min, err := Expand(bs, 4, 0x00)
	if err != nil {
		t.Fatalf("Expand(min) failed: %v", err)
	}
	if want := []byte{10, 0, 0, 0}; !bytes.Equal(min, want) {
		t.Errorf("got %v, want %v", min, want)
	}

	max, err := Expand(bs, 4, 0xFF)
	if err != nil {
		t.Fatalf("Expand(max) failed: %v", err)
	}
	if want := []byte{10, 0, 3, 255}; !bytes.Equal(max, want) {
		t.Errorf("got %v, want %v", max, want)
	}
}

func TestExpandRejectsOversizedLength(t *testing.T) {
	bs := BitString{Bytes: []byte{1, 2, 3, 4, 5}, Unused: 0}
	if _, err := Expand(bs, 4, 0x00); err == nil {
		t.Error("expected error for bit string longer than raw length")
	}
}

func TestPrefixLen(t *testing.T) {
	bs := BitString{Bytes: []byte{0x0A, 0x00, 0x00}, Unused: 2}
	if got := bs.PrefixLen(); got != 22 {
		t.Errorf("got %d, want 22", got)
	}
}

func TestFromPrefix(t *testing.T) {
	bs, err := FromPrefix([]byte{10, 0, 0, 0}, 22)
	if err != nil {
		t.Fatalf("FromPrefix failed: %v", err)
	}
	if want := []byte{0x0A, 0x00, 0x00}; !bytes.Equal(bs.Bytes, want) {
		t.Errorf("got bytes %v, want %v", bs.Bytes, want)
	}
	if bs.Unused != 2 {
		t.Errorf("got unused %d, want 2", bs.Unused)
	}
}

func TestFromPrefixHostRoute(t *testing.T) {
	bs, err := FromPrefix([]byte{192, 168, 1, 1}, 32)
	if err != nil {
		t.Fatalf("FromPrefix failed: %v", err)
	}
	if bs.Unused != 0 {
		t.Errorf("got unused %d, want 0", bs.Unused)
	}
	if got := bs.PrefixLen(); got != 32 {
		t.Errorf("got prefixlen %d, want 32", got)
	}
}

func TestFromMinStripsTrailingZeroBytes(t *testing.T) {
	bs := FromMin([]byte{10, 0, 0, 0})
	if want := []byte{10}; !bytes.Equal(bs.Bytes, want) {
		t.Errorf("got bytes %v, want %v", bs.Bytes, want)
	}
	// 10 = 0b00001010, one trailing zero bit.
	if bs.Unused != 1 {
		t.Errorf("got unused %d, want 1", bs.Unused)
	}
}

func TestFromMinTrailingZeroBits(t *testing.T) {
	// 0x0A = 0b00001010 has one trailing zero bit.
	bs := FromMin([]byte{0x0A})
	if bs.Unused != 1 {
		t.Errorf("got unused %d, want 1", bs.Unused)
	}
}

func TestFromMaxStripsTrailing0xFFBytes(t *testing.T) {
	bs := FromMax([]byte{10, 0, 3, 255})
	if want := []byte{10, 0, 3}; !bytes.Equal(bs.Bytes, want) {
		t.Errorf("got bytes %v, want %v", bs.Bytes, want)
	}
	// 3 = 0b00000011, two trailing one bits.
	if bs.Unused != 2 {
		t.Errorf("got unused %d, want 2", bs.Unused)
	}
}

func TestFromMaxTrailingOneBits(t *testing.T) {
	// 0xF5 = 0b11110101 has one trailing one bit.
	bs := FromMax([]byte{0xF5})
	if bs.Unused != 1 {
		t.Errorf("got unused %d, want 1", bs.Unused)
	}
}

func TestFromMinAllZero(t *testing.T) {
	bs := FromMin([]byte{0, 0, 0, 0})
	if len(bs.Bytes) != 0 {
		t.Errorf("expected empty bytes, got %v", bs.Bytes)
	}
	if bs.Unused != 0 {
		t.Errorf("got unused %d, want 0", bs.Unused)
	}
}

func TestFromMaxAllOnes(t *testing.T) {
	bs := FromMax([]byte{255, 255, 255, 255})
	if len(bs.Bytes) != 0 {
		t.Errorf("expected empty bytes, got %v", bs.Bytes)
	}
}

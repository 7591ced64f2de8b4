// Package addr implements the address primitives of RFC 3779 §2.2:
// building prefixes and ranges from raw address bytes, and the
// range-to-prefix collapse rule of §2.2.3.7.
package addr

import (
	"bytes"
	"fmt"

	"github.com/wingedpig/rfc3779/pkg/bitstring"
)

// Error is this package's sentinel error type.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrInverted is returned when a range's min sorts after its max.
	ErrInverted Error = "addr: min is greater than max"
	// ErrBadLength is returned when input bytes don't match the
	// family's raw address length.
	ErrBadLength Error = "addr: address length mismatch"
)

// Kind distinguishes a single prefix from an arbitrary range.
type Kind int

const (
	Prefix Kind = iota
	Range
)

// PrefixOrRange is the tagged union RFC 3779 calls IPAddressOrRange:
// either a single prefix, or a min/max range.
type PrefixOrRange struct {
	Kind  Kind
	Pfx   bitstring.BitString // valid when Kind == Prefix
	RgMin bitstring.BitString // valid when Kind == Range
	RgMax bitstring.BitString // valid when Kind == Range
}

// MakePrefix builds the prefix variant of a PrefixOrRange from raw
// address bytes truncated to prefixLen significant bits.
func MakePrefix(rawAddr []byte, prefixLen int) (PrefixOrRange, error) {
	bs, err := bitstring.FromPrefix(rawAddr, prefixLen)
	if err != nil {
		return PrefixOrRange{}, err
	}
	return PrefixOrRange{Kind: Prefix, Pfx: bs}, nil
}

// MakeRange builds a PrefixOrRange spanning [min, max], both of
// length rawLen. If the range collapses into a power-of-two-aligned
// block (CollapseToPrefixLen returns non-negative), the result is the
// prefix variant instead, per RFC 3779 §2.2.3.7.
func MakeRange(min, max []byte, rawLen int) (PrefixOrRange, error) {
	if len(min) != rawLen || len(max) != rawLen {
		return PrefixOrRange{}, fmt.Errorf("%w: want %d bytes", ErrBadLength, rawLen)
	}
	if bytes.Compare(min, max) > 0 {
		return PrefixOrRange{}, ErrInverted
	}

	if pl := CollapseToPrefixLen(min, max); pl >= 0 {
		return MakePrefix(min, pl)
	}

	return PrefixOrRange{
		Kind:  Range,
		RgMin: bitstring.FromMin(min),
		RgMax: bitstring.FromMax(max),
	}, nil
}

// CollapseToPrefixLen implements the collapse test of RFC 3779
// §2.2.3.7: given raw min and max of equal length, it returns the
// prefix length if [min, max] is exactly the set of addresses sharing
// that prefix, or -1 if the range is not prefix-expressible (or is
// inverted).
func CollapseToPrefixLen(min, max []byte) int {
	length := len(min)
	if len(max) != length {
		return -1
	}
	if bytes.Compare(min, max) > 0 {
		return -1
	}

	i := 0
	for i < length && min[i] == max[i] {
		i++
	}

	j := length - 1
	for j >= 0 && min[j] == 0x00 && max[j] == 0xFF {
		j--
	}

	if i < j {
		return -1
	}
	if i > j {
		return i * 8
	}

	// i == j: the differing byte itself must be a contiguous run of
	// low-order host bits: mask = 2^k-1 for some k in [1,8].
	diff := min[i] ^ max[i]
	bits := 0
	switch diff {
	case 0x01:
		bits = 1
	case 0x03:
		bits = 2
	case 0x07:
		bits = 3
	case 0x0F:
		bits = 4
	case 0x1F:
		bits = 5
	case 0x3F:
		bits = 6
	case 0x7F:
		bits = 7
	default:
		return -1
	}
	mask := byte(1<<bits) - 1
	if min[i]&mask != 0 || max[i]&mask != mask {
		return -1
	}
	return i*8 + (8 - bits)
}

// ExtractMinMax expands a PrefixOrRange to its raw min/max addresses
// of length rawLen: a prefix expands with 0x00 and 0xFF fill
// respectively; a range expands its min with 0x00 and its max with
// 0xFF.
func ExtractMinMax(a PrefixOrRange, rawLen int) (min, max []byte, err error) {
	switch a.Kind {
	case Prefix:
		min, err = bitstring.Expand(a.Pfx, rawLen, 0x00)
		if err != nil {
			return nil, nil, err
		}
		max, err = bitstring.Expand(a.Pfx, rawLen, 0xFF)
		if err != nil {
			return nil, nil, err
		}
	case Range:
		min, err = bitstring.Expand(a.RgMin, rawLen, 0x00)
		if err != nil {
			return nil, nil, err
		}
		max, err = bitstring.Expand(a.RgMax, rawLen, 0xFF)
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("addr: unknown kind %d", a.Kind)
	}
	return min, max, nil
}

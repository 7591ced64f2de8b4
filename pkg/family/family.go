// Package family implements the RFC 3779 address-family container
// (C3): the (AFI, optional SAFI) key and the per-family list of
// prefixes/ranges or inheritance marker.
package family

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/wingedpig/rfc3779/pkg/addr"
)

// Error is this package's sentinel error type.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrInheriting is returned when a concrete append is attempted on
	// a family that is in inheritance mode.
	ErrInheriting Error = "family: cannot append to an inheriting family"
	// ErrHasEntries is returned when SetInheritance is attempted on a
	// family that already carries concrete prefixes or ranges.
	ErrHasEntries Error = "family: cannot inherit, family already has entries"
	// ErrBadSAFI names a SAFI value outside 0..255. No function in this
	// package returns it: a SAFI is held as a uint8, which cannot be
	// out of range.
	ErrBadSAFI Error = "family: SAFI out of range"
)

// IANA address family identifiers this package knows the raw length
// for. Any other AFI is accepted but has no known raw length.
const (
	AFIIPv4 = 1
	AFIIPv6 = 2
)

// AFISAFI is the 2- or 3-octet opaque addressFamily key: a big-endian
// AFI, optionally followed by one SAFI octet.
type AFISAFI struct {
	AFI  uint16
	SAFI *uint8
}

// NewAFISAFI builds a key from an AFI and an optional SAFI (nil for
// "no SAFI"). A non-nil SAFI must be in [0,255] as the type already
// guarantees by being a uint8.
func NewAFISAFI(afi uint16, safi *uint8) AFISAFI {
	return AFISAFI{AFI: afi, SAFI: safi}
}

// Bytes returns the 2- or 3-byte big-endian encoding used both as the
// DER addressFamily OCTET STRING and as the sort/equality key.
func (k AFISAFI) Bytes() []byte {
	if k.SAFI == nil {
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, k.AFI)
		return b
	}
	b := make([]byte, 3)
	binary.BigEndian.PutUint16(b, k.AFI)
	b[2] = *k.SAFI
	return b
}

// AFISAFIFromBytes parses a 2- or 3-byte addressFamily OCTET STRING.
func AFISAFIFromBytes(b []byte) (AFISAFI, error) {
	if len(b) != 2 && len(b) != 3 {
		return AFISAFI{}, fmt.Errorf("family: addressFamily must be 2 or 3 bytes, got %d", len(b))
	}
	k := AFISAFI{AFI: binary.BigEndian.Uint16(b[:2])}
	if len(b) == 3 {
		safi := b[2]
		k.SAFI = &safi
	}
	return k, nil
}

// RawLen returns the raw address byte length for this key's AFI (4
// for IPv4, 16 for IPv6) and whether the AFI is known.
func (k AFISAFI) RawLen() (int, bool) {
	switch k.AFI {
	case AFIIPv4:
		return 4, true
	case AFIIPv6:
		return 16, true
	default:
		return 0, false
	}
}

// Equal reports whether two keys denote the same family.
func (k AFISAFI) Equal(other AFISAFI) bool {
	return k.AFI == other.AFI && samePtr(k.SAFI, other.SAFI)
}

func samePtr(a, b *uint8) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// AddrFromAFI converts a netip.Addr into the raw big-endian bytes for
// the given AFI, failing if the address's native family doesn't match.
func AddrFromAFI(afi uint16, a netip.Addr) ([]byte, error) {
	switch afi {
	case AFIIPv4:
		if !a.Is4() {
			return nil, fmt.Errorf("family: address %v is not IPv4", a)
		}
	case AFIIPv6:
		if !a.Is6() || a.Is4In6() {
			return nil, fmt.Errorf("family: address %v is not IPv6", a)
		}
	}
	return a.AsSlice(), nil
}

// Family is one IPAddressFamily entry: either an inheritance marker,
// or an ordered, non-empty list of prefixes/ranges. Exactly one
// representation is active at a time.
type Family struct {
	Key     AFISAFI
	Inherit bool
	Entries []addr.PrefixOrRange
}

// SetInheritance switches f into inheritance mode. It fails if f
// already carries concrete entries; it is a no-op if f is already
// inheriting.
func (f *Family) SetInheritance() error {
	if !f.Inherit && len(f.Entries) > 0 {
		return ErrHasEntries
	}
	f.Inherit = true
	return nil
}

// AppendPrefix appends a prefix entry. It fails if f is inheriting.
func (f *Family) AppendPrefix(rawAddr []byte, prefixLen int) error {
	if f.Inherit {
		return ErrInheriting
	}
	p, err := addr.MakePrefix(rawAddr, prefixLen)
	if err != nil {
		return err
	}
	f.Entries = append(f.Entries, p)
	return nil
}

// AppendRange appends a range entry (collapsed to a prefix by
// addr.MakeRange when applicable). It fails if f is inheriting.
func (f *Family) AppendRange(min, max []byte, rawLen int) error {
	if f.Inherit {
		return ErrInheriting
	}
	r, err := addr.MakeRange(min, max, rawLen)
	if err != nil {
		return err
	}
	f.Entries = append(f.Entries, r)
	return nil
}

// Len returns the number of prefix-or-range entries (0 for an
// inheriting family).
func (f *Family) Len() int {
	return len(f.Entries)
}

// RangeAt returns the expanded min/max of the i'th entry, per the
// original X509v3_addr_get_range accessor: useful to callers (such as
// the containment scan) that don't care whether an entry is stored as
// a prefix or a range.
func (f *Family) RangeAt(i int, rawLen int) (min, max []byte, err error) {
	if i < 0 || i >= len(f.Entries) {
		return nil, nil, fmt.Errorf("family: index %d out of range [0,%d)", i, len(f.Entries))
	}
	return addr.ExtractMinMax(f.Entries[i], rawLen)
}

// Container holds the families of one IPAddrBlocks value before
// canonical ordering is imposed; see blocks.IPAddrBlocks for the
// canonical, sorted form.
type Container struct {
	Families []*Family
}

// GetOrCreate returns the family for key, creating and appending an
// empty one (unsorted) if none exists yet.
func (c *Container) GetOrCreate(key AFISAFI) *Family {
	for _, f := range c.Families {
		if f.Key.Equal(key) {
			return f
		}
	}
	f := &Family{Key: key}
	c.Families = append(c.Families, f)
	return f
}

// Package blocks implements the IPAddrBlocks aggregate and the
// ordering, canonicalisation, and canonical-form verification
// algorithms of RFC 3779 §2.2.3 (C4). The merge loop is grounded on
// the same sort-then-walk-and-merge shape as a conventional CIDR
// aggregator, generalised here to big-endian byte-slice comparisons
// across both IPv4 and IPv6 and to the prefix/range tagged union
// RFC 3779 requires.
package blocks

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/wingedpig/rfc3779/pkg/addr"
	"github.com/wingedpig/rfc3779/pkg/family"
)

// Error is this package's sentinel error type.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrDuplicateFamily is returned when two families share a key.
	ErrDuplicateFamily Error = "blocks: duplicate address family"
	// ErrOverlap is returned when canonicalisation finds two entries
	// in the same family that overlap (including exact duplicates).
	ErrOverlap Error = "blocks: overlapping or duplicate entries"
	// ErrInverted is returned when a range's min sorts after its max.
	ErrInverted Error = "blocks: inverted range"
	// ErrEmptyFamily is returned by Canonicalise when a concrete family
	// carries no entries; IsCanonical reports such a family as
	// non-canonical.
	ErrEmptyFamily Error = "blocks: family has no entries"
	// ErrUnknownAFI is returned when raw address length can't be
	// determined for a family that needs byte-level comparison.
	ErrUnknownAFI Error = "blocks: unknown AFI, cannot determine raw length"
)

// IPAddrBlocks is the canonical-form-or-not aggregate of address
// families: RFC 3779's IPAddrBlocks SEQUENCE OF IPAddressFamily.
type IPAddrBlocks struct {
	Families []*family.Family
}

// Clone returns a shallow duplicate of b: a new Families slice
// referencing the same *family.Family nodes. This is the "transient
// child set" construction used by the path validator (RFC 3779 §2.3)
// and must not outlive b.
func (b *IPAddrBlocks) Clone() *IPAddrBlocks {
	if b == nil {
		return nil
	}
	out := &IPAddrBlocks{Families: make([]*family.Family, len(b.Families))}
	copy(out.Families, b.Families)
	return out
}

// Find returns the family with the given key, or nil.
func (b *IPAddrBlocks) Find(key family.AFISAFI) *family.Family {
	if b == nil {
		return nil
	}
	for _, f := range b.Families {
		if f.Key.Equal(key) {
			return f
		}
	}
	return nil
}

// rawLen resolves a family's raw address length, failing for unknown
// AFIs (RFC 3779 requires byte-addressable comparisons; an unknown AFI
// has no defined raw length and so can't be canonicalised or compared
// this way — it can only be rendered generically).
func rawLen(f *family.Family) (int, error) {
	n, ok := f.Key.RawLen()
	if !ok {
		return 0, fmt.Errorf("%w: afi=%d", ErrUnknownAFI, f.Key.AFI)
	}
	return n, nil
}

// comparePrefixOrRange implements the §4.4 comparator: compare by
// extracted min address, then by "prefix length" (ranges sort as if
// maximally specific at their start, i.e. as if pl = 8*rawLen).
// On any extraction failure, -1 is returned: the sort is best-effort
// against corrupt input, which the canonical-form check rejects
// regardless.
func comparePrefixOrRange(a, b addr.PrefixOrRange, rawLen int) int {
	aMin, _, errA := addr.ExtractMinMax(a, rawLen)
	bMin, _, errB := addr.ExtractMinMax(b, rawLen)
	if errA != nil || errB != nil {
		return -1
	}
	if c := bytes.Compare(aMin, bMin); c != 0 {
		return c
	}
	return aPrefixLen(a, rawLen) - aPrefixLen(b, rawLen)
}

func aPrefixLen(a addr.PrefixOrRange, rawLen int) int {
	if a.Kind == addr.Prefix {
		return a.Pfx.PrefixLen()
	}
	return rawLen * 8
}

// compareFamilyKeys implements the family comparator: lexicographic
// over the raw addressFamily bytes, with the shorter string sorting
// first when one is a prefix of the other.
func compareFamilyKeys(a, b family.AFISAFI) int {
	ab, bb := a.Bytes(), b.Bytes()
	n := len(ab)
	if len(bb) < n {
		n = len(bb)
	}
	if c := bytes.Compare(ab[:n], bb[:n]); c != 0 {
		return c
	}
	return len(ab) - len(bb)
}

// decrementBigEndian decrements raw, treated as a big-endian integer,
// in place. It returns false (leaving raw unmodified) if raw is
// already all-zero, since RFC 3779's adjacency test treats that
// underflow as "not adjacent" rather than wrapping (see spec's open
// question on this exact point).
func decrementBigEndian(raw []byte) bool {
	for i := len(raw) - 1; i >= 0; i-- {
		if raw[i] != 0x00 {
			cp := make([]byte, len(raw))
			copy(cp, raw)
			cp[i]--
			for j := i + 1; j < len(raw); j++ {
				cp[j] = 0xFF
			}
			copy(raw, cp)
			return true
		}
	}
	return false
}

// isAdjacent reports whether aMax+1 == bMin, computed by decrementing
// a copy of bMin and comparing. Returns false if bMin is all-zero
// (decrement would underflow).
func isAdjacent(aMax, bMin []byte) bool {
	dec := make([]byte, len(bMin))
	copy(dec, bMin)
	if !decrementBigEndian(dec) {
		return false
	}
	return bytes.Equal(aMax, dec)
}

// Canonicalise sorts each family's entries, merges adjacent entries,
// rejects overlaps and inverted ranges, collapses ranges into
// prefixes where required, and finally sorts the family list. It
// mutates b in place and returns an error (leaving b partially
// mutated) if the input cannot be brought into canonical form — RFC
// 3779 canonicalisation is expected to run on already-validated
// builder output, so callers that need atomicity should canonicalise
// a fresh value (see pkg/builder, which discards on failure).
func (b *IPAddrBlocks) Canonicalise() error {
	for _, f := range b.Families {
		if f.Inherit {
			continue
		}
		if len(f.Entries) == 0 {
			return fmt.Errorf("%w: %v", ErrEmptyFamily, f.Key)
		}
		rl, err := rawLen(f)
		if err != nil {
			return err
		}
		if err := canonicaliseEntries(f, rl); err != nil {
			return err
		}
	}

	sort.Slice(b.Families, func(i, j int) bool {
		return compareFamilyKeys(b.Families[i].Key, b.Families[j].Key) < 0
	})

	for i := 0; i < len(b.Families)-1; i++ {
		if compareFamilyKeys(b.Families[i].Key, b.Families[i+1].Key) == 0 {
			return fmt.Errorf("%w: %v", ErrDuplicateFamily, b.Families[i].Key)
		}
	}

	return nil
}

// canonicaliseEntries sorts, merges, and validates one family's
// prefix-or-range list in place, per RFC 3779 §2.2.3.7.
func canonicaliseEntries(f *family.Family, rl int) error {
	sort.Slice(f.Entries, func(i, j int) bool {
		return comparePrefixOrRange(f.Entries[i], f.Entries[j], rl) < 0
	})

	for i := 0; i < len(f.Entries)-1; i++ {
		a, b := f.Entries[i], f.Entries[i+1]

		aMin, aMax, err := addr.ExtractMinMax(a, rl)
		if err != nil {
			return err
		}
		bMin, bMax, err := addr.ExtractMinMax(b, rl)
		if err != nil {
			return err
		}

		if bytes.Compare(aMin, aMax) > 0 || bytes.Compare(bMin, bMax) > 0 {
			return ErrInverted
		}
		if bytes.Compare(aMax, bMin) >= 0 {
			return fmt.Errorf("%w: %v overlaps %v", ErrOverlap, aMax, bMin)
		}

		if isAdjacent(aMax, bMin) {
			merged, err := addr.MakeRange(aMin, bMax, rl)
			if err != nil {
				return err
			}
			f.Entries[i] = merged
			f.Entries = append(f.Entries[:i+1], f.Entries[i+2:]...)
			i-- // re-examine from the same index
			continue
		}
	}

	if n := len(f.Entries); n > 0 {
		last := f.Entries[n-1]
		if last.Kind == addr.Range {
			min, max, err := addr.ExtractMinMax(last, rl)
			if err != nil {
				return err
			}
			if bytes.Compare(min, max) > 0 {
				return ErrInverted
			}
		}
	}

	return nil
}

// IsCanonical reports whether b already satisfies invariants I1–I5. A
// nil receiver (no extension at all) is vacuously canonical.
func (b *IPAddrBlocks) IsCanonical() bool {
	if b == nil {
		return true
	}

	for i := 0; i < len(b.Families)-1; i++ {
		if compareFamilyKeys(b.Families[i].Key, b.Families[i+1].Key) >= 0 {
			return false
		}
	}

	for _, f := range b.Families {
		if f.Inherit {
			continue
		}
		rl, err := rawLen(f)
		if err != nil {
			return false
		}
		if len(f.Entries) == 0 {
			return false
		}
		if !entriesCanonical(f.Entries, rl) {
			return false
		}
	}

	return true
}

func entriesCanonical(entries []addr.PrefixOrRange, rl int) bool {
	for j := 0; j < len(entries)-1; j++ {
		a, b := entries[j], entries[j+1]

		aMin, aMax, errA := addr.ExtractMinMax(a, rl)
		bMin, bMax, errB := addr.ExtractMinMax(b, rl)
		if errA != nil || errB != nil {
			return false
		}

		if bytes.Compare(aMin, bMin) >= 0 ||
			bytes.Compare(aMin, aMax) > 0 ||
			bytes.Compare(bMin, bMax) > 0 {
			return false
		}

		// Overlap (including touching ranges) and adjacency are both
		// non-canonical: an adjacency should have been merged.
		if bytes.Compare(aMax, bMin) >= 0 || isAdjacent(aMax, bMin) {
			return false
		}

		if a.Kind == addr.Range && addr.CollapseToPrefixLen(aMin, aMax) >= 0 {
			return false
		}
	}

	last := entries[len(entries)-1]
	if last.Kind == addr.Range {
		min, max, err := addr.ExtractMinMax(last, rl)
		if err != nil {
			return false
		}
		if bytes.Compare(min, max) > 0 {
			return false
		}
		if addr.CollapseToPrefixLen(min, max) >= 0 {
			return false
		}
	}

	return true
}

// Package subset implements the containment and subset tests of RFC
// 3779 §2.3 (C5): whether one family's entries cover another's, and
// whether one IPAddrBlocks value is wholly contained in another.
package subset

import (
	"bytes"
	"fmt"

	"github.com/wingedpig/rfc3779/pkg/addr"
	"github.com/wingedpig/rfc3779/pkg/blocks"
)

// Contains reports whether every address covered by child is also
// covered by parent. Both slices must already be sorted in canonical
// order (RFC 3779's containment test is a merge-style two-pointer
// scan and assumes that ordering); rawLen is the raw address length
// for the family both lists belong to.
//
// This mirrors the original C addr_contains, including its quirk of
// walking parent forward without backtracking: that's only correct
// because canonical form guarantees both lists are sorted and
// non-overlapping.
func Contains(parent, child []addr.PrefixOrRange, rawLen int) (bool, error) {
	p := 0
	for c := 0; c < len(child); c++ {
		cMin, cMax, err := addr.ExtractMinMax(child[c], rawLen)
		if err != nil {
			return false, fmt.Errorf("subset: child entry %d: %w", c, err)
		}
		for {
			if p >= len(parent) {
				return false, nil
			}
			pMin, pMax, err := addr.ExtractMinMax(parent[p], rawLen)
			if err != nil {
				return false, fmt.Errorf("subset: parent entry %d: %w", p, err)
			}
			if bytes.Compare(pMax, cMax) < 0 {
				p++
				continue
			}
			if bytes.Compare(pMin, cMin) > 0 {
				return false, nil
			}
			break
		}
	}
	return true, nil
}

// Subset reports whether every resource in a is also present in b.
// A nil a, or a == b, is trivially a subset. An inheriting family on
// either side can never be shown to be a subset: inheritance defers
// the actual resource set to validation time, so there is nothing
// concrete to compare.
func Subset(a, b *blocks.IPAddrBlocks) bool {
	if a == nil || a == b {
		return true
	}
	if b == nil {
		return false
	}
	for _, fb := range b.Families {
		if fb.Inherit {
			return false
		}
	}
	for _, fa := range a.Families {
		if fa.Inherit {
			return false
		}
		fb := b.Find(fa.Key)
		if fb == nil || fb.Inherit {
			return false
		}
		rawLen, ok := fa.Key.RawLen()
		if !ok {
			return false
		}
		ok2, err := Contains(fb.Entries, fa.Entries, rawLen)
		if err != nil || !ok2 {
			return false
		}
	}
	return true
}

// Package present implements the human-readable rendering of an
// IPAddrBlocks value (C7), grounded on the original's i2r_address /
// i2r_IPAddressOrRanges / i2r_IPAddrBlocks presentation handler.
package present

import (
	"fmt"
	"strings"

	"github.com/wingedpig/rfc3779/pkg/addr"
	"github.com/wingedpig/rfc3779/pkg/blocks"
	"github.com/wingedpig/rfc3779/pkg/family"
)

var safiNames = map[uint8]string{
	1:   "Unicast",
	2:   "Multicast",
	3:   "Unicast/Multicast",
	4:   "MPLS",
	64:  "Tunnel",
	65:  "VPLS",
	66:  "BGP MDT",
	128: "MPLS-labeled VPN",
}

// Render produces the multi-line text form of b, one family per
// block, matching the original handler's layout.
func Render(b *blocks.IPAddrBlocks) string {
	if b == nil {
		return ""
	}
	var sb strings.Builder
	for _, f := range b.Families {
		renderFamily(&sb, f)
	}
	return sb.String()
}

func renderFamily(sb *strings.Builder, f *family.Family) {
	switch f.Key.AFI {
	case family.AFIIPv4:
		sb.WriteString("IPv4")
	case family.AFIIPv6:
		sb.WriteString("IPv6")
	default:
		fmt.Fprintf(sb, "Unknown AFI %d", f.Key.AFI)
	}

	if f.Key.SAFI != nil {
		if name, ok := safiNames[*f.Key.SAFI]; ok {
			fmt.Fprintf(sb, " (%s)", name)
		} else {
			fmt.Fprintf(sb, " (Unknown SAFI %d)", *f.Key.SAFI)
		}
	}

	if f.Inherit {
		sb.WriteString(": inherit\n")
		return
	}

	sb.WriteString(":\n")
	rawLen, ok := f.Key.RawLen()
	for _, e := range f.Entries {
		sb.WriteString("  ")
		if !ok {
			sb.WriteString("<unknown AFI, cannot render>\n")
			continue
		}
		renderEntry(sb, e, f.Key.AFI, rawLen)
	}
}

func renderEntry(sb *strings.Builder, e addr.PrefixOrRange, afi uint16, rawLen int) {
	switch e.Kind {
	case addr.Prefix:
		min, _, err := addr.ExtractMinMax(e, rawLen)
		if err != nil {
			sb.WriteString("<invalid>\n")
			return
		}
		sb.WriteString(renderAddr(afi, min))
		fmt.Fprintf(sb, "/%d\n", e.Pfx.PrefixLen())
	case addr.Range:
		min, max, err := addr.ExtractMinMax(e, rawLen)
		if err != nil {
			sb.WriteString("<invalid>\n")
			return
		}
		sb.WriteString(renderAddr(afi, min))
		sb.WriteString("-")
		sb.WriteString(renderAddr(afi, max))
		sb.WriteString("\n")
	}
}

// renderAddr formats rawAddr for the given AFI: dotted decimal for
// IPv4, "::"-collapsed hex groups for IPv6, and a bare hex dump for
// any other (already raw-length-resolved) AFI.
func renderAddr(afi uint16, rawAddr []byte) string {
	switch afi {
	case family.AFIIPv4:
		if len(rawAddr) != 4 {
			return "<bad-ipv4>"
		}
		return fmt.Sprintf("%d.%d.%d.%d", rawAddr[0], rawAddr[1], rawAddr[2], rawAddr[3])
	case family.AFIIPv6:
		return renderIPv6(rawAddr)
	default:
		return fmt.Sprintf("%x", rawAddr)
	}
}

// renderIPv6 implements the exact truncation rule from §4.7: group
// rawAddr into 16-bit hex groups, drop trailing all-zero groups, join
// the remainder with ":", then append one more ":" if any groups were
// truncated, and a second if every group was.
func renderIPv6(rawAddr []byte) string {
	if len(rawAddr) != 16 {
		return "<bad-ipv6>"
	}
	groups := make([]uint16, 8)
	for i := 0; i < 8; i++ {
		groups[i] = uint16(rawAddr[2*i])<<8 | uint16(rawAddr[2*i+1])
	}

	n := 8
	for n > 0 && groups[n-1] == 0 {
		n--
	}

	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = fmt.Sprintf("%x", groups[i])
	}
	s := strings.Join(parts, ":")

	truncated := 8 - n
	if truncated > 0 {
		s += ":"
	}
	if truncated == 8 {
		s += ":"
	}
	return s
}

// Package builder implements the configuration-driven construction
// of an IPAddrBlocks value (C8): the external config loader's value
// grammar, ingested key by key and sealed by a final canonicalise.
package builder

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/wingedpig/rfc3779/pkg/blocks"
	"github.com/wingedpig/rfc3779/pkg/family"
)

// Error is this package's sentinel error type.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrUnknownKey is returned for a left-hand key other than IPv4,
	// IPv6, IPv4-SAFI, or IPv6-SAFI.
	ErrUnknownKey Error = "builder: unrecognised configuration key"
	// ErrBadValue is returned when a right-hand value doesn't match
	// any recognised grammar form.
	ErrBadValue Error = "builder: malformed configuration value"
)

// Entry is one configuration tuple, e.g. {"IPv4", "10.0.0.0/24"} or
// {"IPv6-SAFI", "1: 2001:db8::/32"}.
type Entry struct {
	Key   string
	Value string
}

// Build ingests entries in order and returns the resulting
// IPAddrBlocks in canonical form. On any failure the partial tree is
// discarded and the error is returned.
func Build(entries []Entry) (*blocks.IPAddrBlocks, error) {
	c := &family.Container{}

	for _, e := range entries {
		if err := apply(c, e); err != nil {
			return nil, err
		}
	}

	b := &blocks.IPAddrBlocks{Families: c.Families}
	if err := b.Canonicalise(); err != nil {
		return nil, err
	}
	return b, nil
}

func apply(c *family.Container, e Entry) error {
	afi, wantSAFI, err := keyAFI(e.Key)
	if err != nil {
		return err
	}

	value := e.Value
	var safi *uint8
	if wantSAFI {
		s, rest, err := splitSAFI(value)
		if err != nil {
			return err
		}
		safi = &s
		value = rest
	}

	f := c.GetOrCreate(family.NewAFISAFI(afi, safi))
	return applyValue(f, afi, value)
}

func keyAFI(key string) (afi uint16, wantSAFI bool, err error) {
	switch key {
	case "IPv4":
		return family.AFIIPv4, false, nil
	case "IPv6":
		return family.AFIIPv6, false, nil
	case "IPv4-SAFI":
		return family.AFIIPv4, true, nil
	case "IPv6-SAFI":
		return family.AFIIPv6, true, nil
	default:
		return 0, false, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}

// splitSAFI parses the "<safi> : <rest>" prefix required for -SAFI
// keys: an unsigned decimal or hex SAFI, optional whitespace, a
// colon, optional whitespace, then the remaining value grammar.
func splitSAFI(value string) (uint8, string, error) {
	idx := strings.Index(value, ":")
	if idx == -1 {
		return 0, "", fmt.Errorf("%w: missing SAFI separator in %q", ErrBadValue, value)
	}
	safiTok := strings.TrimSpace(value[:idx])
	rest := strings.TrimSpace(value[idx+1:])

	n, err := strconv.ParseUint(safiTok, 0, 8)
	if err != nil {
		return 0, "", fmt.Errorf("%w: bad SAFI %q: %v", ErrBadValue, safiTok, err)
	}
	return uint8(n), rest, nil
}

func applyValue(f *family.Family, afi uint16, value string) error {
	value = strings.TrimSpace(value)

	if value == "inherit" {
		return f.SetInheritance()
	}

	if strings.Contains(value, "-") && !strings.Contains(value, "/") {
		parts := strings.SplitN(value, "-", 2)
		if len(parts) == 2 {
			minAddr, minErr := netip.ParseAddr(strings.TrimSpace(parts[0]))
			maxAddr, maxErr := netip.ParseAddr(strings.TrimSpace(parts[1]))
			if minErr == nil && maxErr == nil {
				minRaw, err := family.AddrFromAFI(afi, minAddr)
				if err != nil {
					return err
				}
				maxRaw, err := family.AddrFromAFI(afi, maxAddr)
				if err != nil {
					return err
				}
				return f.AppendRange(minRaw, maxRaw, len(minRaw))
			}
		}
	}

	if idx := strings.Index(value, "/"); idx >= 0 {
		addrTok, lenTok := value[:idx], value[idx+1:]
		a, err := netip.ParseAddr(addrTok)
		if err != nil {
			return fmt.Errorf("%w: bad address %q: %v", ErrBadValue, addrTok, err)
		}
		n, err := strconv.Atoi(lenTok)
		if err != nil {
			return fmt.Errorf("%w: bad prefix length %q: %v", ErrBadValue, lenTok, err)
		}
		raw, err := family.AddrFromAFI(afi, a)
		if err != nil {
			return err
		}
		return f.AppendPrefix(raw, n)
	}

	a, err := netip.ParseAddr(value)
	if err != nil {
		return fmt.Errorf("%w: %q is neither inherit, a range, nor an address: %v", ErrBadValue, value, err)
	}
	raw, err := family.AddrFromAFI(afi, a)
	if err != nil {
		return err
	}
	return f.AppendPrefix(raw, len(raw)*8)
}

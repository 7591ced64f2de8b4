// Package pathval implements RFC 3779 §2.3 path validation (C6):
// walking a certificate chain, propagating per-family inheritance,
// and reporting validation faults through a caller-supplied error
// sink.
package pathval

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/wingedpig/rfc3779/pkg/blocks"
	"github.com/wingedpig/rfc3779/pkg/subset"
)

// Error is this package's sentinel error type, returned for
// precondition violations that never reach the callback.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrUnspecified is returned when preconditions are violated: an
	// empty chain, neither ctx nor ext supplied, or a Context with no
	// Report callback.
	ErrUnspecified Error = "pathval: unspecified validation precondition violated"
)

// Code identifies the kind of validation fault reported to the
// error sink, matching the codes named in RFC 3779 §2.3.
type Code int

const (
	// InvalidExtension means a chain element's IPAddrBlocks extension
	// is not in canonical form.
	InvalidExtension Code = iota
	// UnnestedResource means a certificate claims resources its
	// issuer does not also claim (directly or via inheritance).
	UnnestedResource
	// OutOfMemory mirrors the original's allocation-failure code; Go
	// never surfaces it directly but it's kept for parity with the
	// documented error-code set.
	OutOfMemory
	// Unspecified is the code recorded alongside ErrUnspecified.
	Unspecified
)

func (c Code) String() string {
	switch c {
	case InvalidExtension:
		return "INVALID_EXTENSION"
	case UnnestedResource:
		return "UNNESTED_RESOURCE"
	case OutOfMemory:
		return "OUT_OF_MEM"
	default:
		return "UNSPECIFIED"
	}
}

// Cert is the minimal view of a chain element the validator needs: a
// possibly-nil RFC 3779 extension.
type Cert interface {
	AddrExtension() *blocks.IPAddrBlocks
}

// ReportFunc is the error-sink callback. It returns true to continue
// the walk (accumulate errors) or false to abort immediately.
type ReportFunc func(code Code, depth int, cert Cert) bool

// Context carries the error sink and the fields it sets before each
// invocation, mirroring the original's ctx->error / error_depth /
// current_cert fields.
type Context struct {
	Report ReportFunc

	Error       Code
	ErrorDepth  int
	CurrentCert Cert

	// Limiter, if non-nil, is waited on before each Report call. The
	// callback is caller-supplied and may perform its own I/O (e.g. an
	// OCSP or CRL side-check); this bounds how fast the walk can drive
	// that callback.
	Limiter *rate.Limiter
}

func (c *Context) report(ctx context.Context, code Code, depth int, cert Cert) bool {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return false
		}
	}
	c.Error = code
	c.ErrorDepth = depth
	c.CurrentCert = cert
	return c.Report(code, depth, cert)
}

// Validate walks chain (index 0 is the leaf) verifying that no
// certificate claims resources its issuer doesn't also claim, either
// concretely or via inheritance. If ext is non-nil it is validated
// against chain starting at chain[0] as though ext were chain[-1]'s
// extension; otherwise chain[0]'s own extension is used, and a nil
// extension there is treated as "no RFC 3779 constraints" (success).
//
// ctx is used only for cancellation: it is passed to vctx's rate
// limiter and checked with ctx.Err() between chain elements; the
// Report callback does not receive it. Validate performs no I/O of
// its own.
func Validate(ctx context.Context, chain []Cert, ext *blocks.IPAddrBlocks, vctx *Context) error {
	if len(chain) == 0 {
		if vctx != nil {
			vctx.Error = Unspecified
		}
		return ErrUnspecified
	}
	if vctx == nil && ext == nil {
		return ErrUnspecified
	}
	if vctx != nil && vctx.Report == nil {
		vctx.Error = Unspecified
		return ErrUnspecified
	}

	start := 0
	var cur Cert
	if ext != nil {
		start = -1
	} else {
		cur = chain[0]
		ext = cur.AddrExtension()
		if ext == nil {
			return nil
		}
	}

	fail := func(code Code, depth int, cert Cert) bool {
		if vctx == nil {
			return false
		}
		return vctx.report(ctx, code, depth, cert)
	}

	if !ext.IsCanonical() {
		if !fail(InvalidExtension, start, cur) {
			return fmt.Errorf("pathval: %w at depth %d", Error("invalid extension"), start)
		}
	}

	child := ext.Clone()

	for i := start + 1; i < len(chain); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		x := chain[i]
		parentExt := x.AddrExtension()

		// Unnested resources are reported against chain[i-1], the
		// certificate claiming them (depth -1 and a nil cert for ext).
		var claimant Cert
		if i > 0 {
			claimant = chain[i-1]
		}

		if parentExt != nil && !parentExt.IsCanonical() {
			if !fail(InvalidExtension, i, x) {
				return fmt.Errorf("pathval: %w at depth %d", Error("invalid extension"), i)
			}
		}

		if parentExt == nil {
			for _, fc := range child.Families {
				if !fc.Inherit {
					if !fail(UnnestedResource, i-1, claimant) {
						return fmt.Errorf("pathval: %w at depth %d", Error("unnested resource"), i-1)
					}
					break
				}
			}
			continue
		}

		for j, fc := range child.Families {
			fp := parentExt.Find(fc.Key)
			if fp == nil {
				if !fc.Inherit {
					if !fail(UnnestedResource, i-1, claimant) {
						return fmt.Errorf("pathval: %w at depth %d", Error("unnested resource"), i-1)
					}
					break
				}
				continue
			}
			if fp.Inherit {
				continue
			}

			if fc.Inherit {
				child.Families[j] = fp
				continue
			}

			rawLen, ok := fc.Key.RawLen()
			if !ok {
				if !fail(UnnestedResource, i-1, claimant) {
					return fmt.Errorf("pathval: %w at depth %d", Error("unknown AFI"), i-1)
				}
				continue
			}
			ok2, err := subset.Contains(fp.Entries, fc.Entries, rawLen)
			if err != nil || !ok2 {
				if !fail(UnnestedResource, i-1, claimant) {
					return fmt.Errorf("pathval: %w at depth %d", Error("unnested resource"), i-1)
				}
				continue
			}
			child.Families[j] = fp
		}
	}

	if len(chain) > 0 {
		anchor := chain[len(chain)-1]
		if anchorExt := anchor.AddrExtension(); anchorExt != nil {
			for _, fp := range anchorExt.Families {
				if fp.Inherit && child.Find(fp.Key) != nil {
					if !fail(UnnestedResource, len(chain)-1, anchor) {
						return fmt.Errorf("pathval: %w: trust anchor inherits %v", Error("unnested resource"), fp.Key)
					}
				}
			}
		}
	}

	return nil
}

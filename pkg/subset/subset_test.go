package subset

import (
	"testing"

	"github.com/wingedpig/rfc3779/pkg/blocks"
	"github.com/wingedpig/rfc3779/pkg/family"
)

func mustFamily(t *testing.T, key family.AFISAFI, rawLen int, ranges [][2][]byte) *family.Family {
	t.Helper()
	f := &family.Family{Key: key}
	for _, r := range ranges {
		if err := f.AppendRange(r[0], r[1], rawLen); err != nil {
			t.Fatalf("AppendRange failed: %v", err)
		}
	}
	return f
}

func TestContainsWhenParentCoversChild(t *testing.T) {
	key := family.NewAFISAFI(family.AFIIPv4, nil)
	parent := mustFamily(t, key, 4, [][2][]byte{
		{{10, 0, 0, 0}, {10, 0, 0, 255}},
	})
	child := mustFamily(t, key, 4, [][2][]byte{
		{{10, 0, 0, 64}, {10, 0, 0, 127}},
	})
	ok, err := Contains(parent.Entries, child.Entries, 4)
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if !ok {
		t.Error("expected parent to contain child")
	}
}

func TestContainsFailsWhenChildExceedsParent(t *testing.T) {
	key := family.NewAFISAFI(family.AFIIPv4, nil)
	parent := mustFamily(t, key, 4, [][2][]byte{
		{{10, 0, 0, 0}, {10, 0, 0, 127}},
	})
	child := mustFamily(t, key, 4, [][2][]byte{
		{{10, 0, 0, 64}, {10, 0, 0, 200}},
	})
	ok, err := Contains(parent.Entries, child.Entries, 4)
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if ok {
		t.Error("expected parent to not contain child that exceeds it")
	}
}

func TestContainsMultipleChildEntries(t *testing.T) {
	key := family.NewAFISAFI(family.AFIIPv4, nil)
	parent := mustFamily(t, key, 4, [][2][]byte{
		{{10, 0, 0, 0}, {10, 0, 0, 63}},
		{{10, 0, 1, 0}, {10, 0, 1, 255}},
	})
	child := mustFamily(t, key, 4, [][2][]byte{
		{{10, 0, 0, 0}, {10, 0, 0, 15}},
		{{10, 0, 1, 64}, {10, 0, 1, 127}},
	})
	ok, err := Contains(parent.Entries, child.Entries, 4)
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if !ok {
		t.Error("expected parent ranges to jointly cover child entries")
	}
}

func TestContainsEmptyChild(t *testing.T) {
	ok, err := Contains(nil, nil, 4)
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if !ok {
		t.Error("expected empty child to be trivially contained")
	}
}

func TestSubsetTrivialCases(t *testing.T) {
	if !Subset(nil, nil) {
		t.Error("expected nil to be a subset of anything")
	}
	b := &blocks.IPAddrBlocks{}
	if !Subset(b, b) {
		t.Error("expected a value to be a subset of itself")
	}
	key := family.NewAFISAFI(family.AFIIPv4, nil)
	a := &blocks.IPAddrBlocks{Families: []*family.Family{
		mustFamily(t, key, 4, [][2][]byte{{{10, 0, 0, 0}, {10, 0, 0, 255}}}),
	}}
	if Subset(a, nil) {
		t.Error("expected non-nil a to not be a subset of nil b")
	}
}

func TestSubsetTrueWhenCovered(t *testing.T) {
	key := family.NewAFISAFI(family.AFIIPv4, nil)
	a := &blocks.IPAddrBlocks{Families: []*family.Family{
		mustFamily(t, key, 4, [][2][]byte{{{10, 0, 0, 64}, {10, 0, 0, 127}}}),
	}}
	b := &blocks.IPAddrBlocks{Families: []*family.Family{
		mustFamily(t, key, 4, [][2][]byte{{{10, 0, 0, 0}, {10, 0, 0, 255}}}),
	}}
	if !Subset(a, b) {
		t.Error("expected a to be a subset of b")
	}
}

func TestSubsetFalseWhenFamilyMissing(t *testing.T) {
	a := &blocks.IPAddrBlocks{Families: []*family.Family{
		mustFamily(t, family.NewAFISAFI(family.AFIIPv6, nil), 16, [][2][]byte{
			{make([]byte, 16), append(make([]byte, 15), 0xFF)},
		}),
	}}
	b := &blocks.IPAddrBlocks{Families: []*family.Family{
		mustFamily(t, family.NewAFISAFI(family.AFIIPv4, nil), 4, [][2][]byte{
			{{10, 0, 0, 0}, {10, 0, 0, 255}},
		}),
	}}
	if Subset(a, b) {
		t.Error("expected a to not be a subset of b when b lacks a's family")
	}
}

func TestSubsetFalseWhenAInherits(t *testing.T) {
	fa := &family.Family{Key: family.NewAFISAFI(family.AFIIPv4, nil)}
	if err := fa.SetInheritance(); err != nil {
		t.Fatalf("SetInheritance failed: %v", err)
	}
	a := &blocks.IPAddrBlocks{Families: []*family.Family{fa}}
	b := &blocks.IPAddrBlocks{Families: []*family.Family{
		mustFamily(t, family.NewAFISAFI(family.AFIIPv4, nil), 4, [][2][]byte{
			{{10, 0, 0, 0}, {10, 0, 0, 255}},
		}),
	}}
	if Subset(a, b) {
		t.Error("expected an inheriting family to never be shown as a subset")
	}
}

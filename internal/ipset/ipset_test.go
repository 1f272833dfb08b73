package ipset

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplementSimple(t *testing.T) {
	excluded := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}
	got := Complement(V4Root, excluded)
	require.NotEmpty(t, got)
	for _, p := range got {
		assert.False(t, p.Overlaps(excluded[0]), "result %s overlaps excluded %s", p, excluded[0])
	}
	assertCoversComplement(t, got, excluded)
}

func TestComplementFullCover(t *testing.T) {
	excluded := []netip.Prefix{netip.MustParsePrefix("0.0.0.0/0")}
	got := Complement(V4Root, excluded)
	assert.Empty(t, got)
}

func TestComplementNoOverlap(t *testing.T) {
	excluded := []netip.Prefix{netip.MustParsePrefix("203.0.113.0/24")}
	got := Complement(netip.MustParsePrefix("10.0.0.0/8"), excluded)
	require.Len(t, got, 1)
	assert.Equal(t, "10.0.0.0/8", got[0].String())
}

// assertCoversComplement checks the round-trip invariant from spec §8:
// complement(E) union E covers the whole root with no overlaps between the
// complement pieces and E.
func assertCoversComplement(t *testing.T, complement, excluded []netip.Prefix) {
	t.Helper()
	var total uint64
	for _, p := range complement {
		total += sizeOf(p)
	}
	for _, p := range excluded {
		total += sizeOf(p)
	}
	assert.Equal(t, sizeOf(V4Root), total)
}

func sizeOf(p netip.Prefix) uint64 {
	bits := 32
	if !p.Addr().Is4() {
		bits = 128
	}
	shift := bits - p.Bits()
	if shift >= 64 {
		return 1 << 63 // saturate; large enough for test purposes
	}
	return 1 << uint(shift)
}

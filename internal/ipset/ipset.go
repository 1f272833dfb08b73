// Package ipset implements set-subtraction over the IPv4/IPv6 address space,
// used by the negation resolver (spec §4.3) to materialise the complement of
// a set of excluded networks.
package ipset

import (
	"net/netip"
	"sort"
)

// Complement returns the minimal set of non-overlapping CIDRs covering the
// given whole-space root minus every excluded network of the same address
// family. Excluded networks of the other family are ignored.
func Complement(root netip.Prefix, excluded []netip.Prefix) []netip.Prefix {
	root = root.Masked()
	remaining := []netip.Prefix{root}
	for _, ex := range excluded {
		ex = ex.Masked()
		if ex.Addr().Is4() != root.Addr().Is4() {
			continue
		}
		remaining = subtractFromAll(remaining, ex)
	}
	sort.Slice(remaining, func(i, j int) bool {
		return less(remaining[i], remaining[j])
	})
	return remaining
}

func less(a, b netip.Prefix) bool {
	if c := a.Addr().Compare(b.Addr()); c != 0 {
		return c < 0
	}
	return a.Bits() < b.Bits()
}

func subtractFromAll(spaces []netip.Prefix, excluded netip.Prefix) []netip.Prefix {
	var out []netip.Prefix
	for _, space := range spaces {
		out = append(out, subtractOne(space, excluded)...)
	}
	return out
}

// subtractOne removes excluded from space. If excluded does not overlap
// space, space is returned unchanged. If excluded fully covers space, the
// result is empty. Otherwise space is split into the minimal set of
// subnets covering space minus excluded.
func subtractOne(space, excluded netip.Prefix) []netip.Prefix {
	if !space.Overlaps(excluded) {
		return []netip.Prefix{space}
	}
	if excluded.Bits() <= space.Bits() {
		// excluded fully covers (or equals) space.
		return nil
	}

	bits := maxBits(space.Addr())
	var out []netip.Prefix
	cur := space
	for cur.Bits() < excluded.Bits() {
		left, right := split(cur, bits)
		if left.Overlaps(excluded) {
			out = append(out, right)
			cur = left
		} else {
			out = append(out, left)
			cur = right
		}
	}
	return out
}

func maxBits(addr netip.Addr) int {
	if addr.Is4() {
		return 32
	}
	return 128
}

// split divides prefix into its two equal-sized child prefixes.
func split(p netip.Prefix, maxBitsForFamily int) (left, right netip.Prefix) {
	newBits := p.Bits() + 1
	left = netip.PrefixFrom(p.Addr(), newBits)

	addrBytes := p.Addr().AsSlice()
	bitIndex := p.Bits() // 0-indexed bit to flip to get the second half
	byteIndex := bitIndex / 8
	bitInByte := 7 - (bitIndex % 8)
	addrBytes[byteIndex] |= 1 << bitInByte

	rightAddr, _ := netip.AddrFromSlice(addrBytes)
	right = netip.PrefixFrom(rightAddr, newBits)
	_ = maxBitsForFamily
	return left, right
}

// V4Root and V6Root are the whole-space roots referenced in spec §4.3.
var (
	V4Root = netip.MustParsePrefix("0.0.0.0/0")
	V6Root = netip.MustParsePrefix("::/0")
)

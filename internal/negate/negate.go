// Package negate implements the negation resolver of spec §4.3: given a set
// of excluded networks, it produces the complement within the address
// space(s) actually represented in that set.
package negate

import (
	"net/netip"

	"github.com/DataDog/netacld/internal/ipset"
)

// Resolve returns the complement of excluded within whichever of
// {0.0.0.0/0, ::/0} are represented in excluded, split by family so an
// IPv4-only exclusion set never pulls in ::/0.
func Resolve(excluded []netip.Prefix) []netip.Prefix {
	var hasV4, hasV6 bool
	for _, p := range excluded {
		if p.Addr().Is4() {
			hasV4 = true
		} else {
			hasV6 = true
		}
	}

	var out []netip.Prefix
	if hasV4 {
		out = append(out, ipset.Complement(ipset.V4Root, excluded)...)
	}
	if hasV6 {
		out = append(out, ipset.Complement(ipset.V6Root, excluded)...)
	}
	return out
}

// ParseAll parses a list of CIDR strings, skipping ones that fail to parse.
func ParseAll(cidrs []string) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		if p, err := netip.ParsePrefix(c); err == nil {
			out = append(out, p)
		}
	}
	return out
}

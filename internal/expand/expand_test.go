package expand

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/netacld/internal/model"
)

func prefix(s string) netip.Prefix { return netip.MustParsePrefix(s) }

// TestNestedNetworkExpansion is scenario 1 from spec §8: Network A =
// {10.0.0.0/24}, Network B = {nested A, 10.0.1.0/24}, Network C = {nested
// B}. Expand C -> {10.0.0.0/24, 10.0.1.0/24}.
func TestNestedNetworkExpansion(t *testing.T) {
	a := model.Network{ID: "A", Addresses: []model.NetworkAddress{
		{Address: p(prefix("10.0.0.0/24"))},
	}}
	bNestedA := "A"
	b := model.Network{ID: "B", Addresses: []model.NetworkAddress{
		{NestedNetworkID: &bNestedA},
		{Address: p(prefix("10.0.1.0/24"))},
	}}
	cNestedB := "B"
	c := model.Network{ID: "C", Addresses: []model.NetworkAddress{
		{NestedNetworkID: &cNestedB},
	}}

	lookup := func(id string) (model.Network, bool) {
		switch id {
		case "A":
			return a, true
		case "B":
			return b, true
		}
		return model.Network{}, false
	}

	got, err := NetworkCIDRs(c, lookup)
	require.NoError(t, err)
	assert.ElementsMatch(t, []netip.Prefix{prefix("10.0.0.0/24"), prefix("10.0.1.0/24")}, got)
}

func TestNetworkCycleDetected(t *testing.T) {
	aNestedB := "B"
	bNestedA := "A"
	a := model.Network{ID: "A", Addresses: []model.NetworkAddress{{NestedNetworkID: &aNestedB}}}
	b := model.Network{ID: "B", Addresses: []model.NetworkAddress{{NestedNetworkID: &bNestedA}}}

	lookup := func(id string) (model.Network, bool) {
		switch id {
		case "A":
			return a, true
		case "B":
			return b, true
		}
		return model.Network{}, false
	}

	_, err := NetworkCIDRs(a, lookup)
	require.Error(t, err)
}

func TestTermsSpliceNested(t *testing.T) {
	nestedID := "inner"
	outer := []model.PolicyTerm{
		{ID: "t1", Name: "allow-a", Enabled: true, Action: model.ActionAccept},
		{ID: "t2", Name: "nest", NestedPolicyID: &nestedID},
		{ID: "t3", Name: "deny-b", Enabled: true, Action: model.ActionDeny},
	}
	inner := []model.PolicyTerm{
		{ID: "i1", Name: "inner-1", Enabled: false, Action: model.ActionAccept},
		{ID: "i2", Name: "inner-2", Enabled: true, Action: model.ActionReject},
	}

	lookup := func(id string) ([]model.PolicyTerm, bool) {
		if id == "inner" {
			return inner, true
		}
		return nil, false
	}

	got, err := Terms(outer, lookup)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, []string{"t1", "i1", "i2", "t3"}, ids(got))
}

func p(pfx netip.Prefix) *netip.Prefix { return &pfx }

func ids(terms []model.PolicyTerm) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = t.ID
	}
	return out
}

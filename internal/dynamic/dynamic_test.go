package dynamic

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/netacld/internal/model"
)

type fakeStore struct {
	networks map[string]model.Network
}

func (f fakeStore) NetworkByID(id string) (model.Network, bool) {
	n, ok := f.networks[id]
	return n, ok
}

func (f fakeStore) AllNetworks() []model.Network {
	out := make([]model.Network, 0, len(f.networks))
	for _, n := range f.networks {
		out = append(out, n)
	}
	return out
}

func addr(cidr string) model.NetworkAddress {
	p := netip.MustParsePrefix(cidr)
	return model.NetworkAddress{Address: &p}
}

// TestContainment is scenario 3 from spec §8: filter CIDR 10.0.0.0/16;
// network X has addresses fully covered by the filter -> selected; network Y
// has one address outside the filter -> not selected.
func TestContainment(t *testing.T) {
	filterNet := model.Network{ID: "filter", Addresses: []model.NetworkAddress{addr("10.0.0.0/16")}}
	x := model.Network{ID: "X", Addresses: []model.NetworkAddress{addr("10.0.0.0/24"), addr("10.0.1.0/24")}}
	y := model.Network{ID: "Y", Addresses: []model.NetworkAddress{addr("10.0.0.0/24"), addr("192.168.0.0/24")}}

	store := fakeStore{networks: map[string]model.Network{"filter": filterNet, "X": x, "Y": y}}

	selected, err := Resolve(store, []string{"filter"})
	require.NoError(t, err)
	assert.True(t, selected["X"])
	assert.False(t, selected["Y"])
}

func TestNestedPromotion(t *testing.T) {
	filterNet := model.Network{ID: "filter", Addresses: []model.NetworkAddress{addr("10.0.0.0/16")}}
	x := model.Network{ID: "X", Addresses: []model.NetworkAddress{addr("10.0.0.0/24")}}
	nestedX := "X"
	parent := model.Network{ID: "P", Addresses: []model.NetworkAddress{{NestedNetworkID: &nestedX}}}

	store := fakeStore{networks: map[string]model.Network{"filter": filterNet, "X": x, "P": parent}}

	selected, err := Resolve(store, []string{"filter"})
	require.NoError(t, err)
	assert.True(t, selected["X"])
	assert.True(t, selected["P"])
}

func TestSelectTermsAnySide(t *testing.T) {
	terms := []model.PolicyTerm{
		{ID: "t1", PolicyID: "p1", Position: "a", Enabled: true, Action: model.ActionAccept},
	}
	selected := SelectTerms(terms, map[string]bool{}, map[string]bool{}, Filter{})
	require.Len(t, selected, 1)
}

func TestSelectTermsNegation(t *testing.T) {
	terms := []model.PolicyTerm{
		{ID: "t1", PolicyID: "p1", Position: "a", Enabled: true, Action: model.ActionDeny,
			NegateSrc: true, SourceNetworks: []string{"A", "B"}},
	}
	// filter only selects A; negated term should match because B isn't in the
	// selected set.
	selected := SelectTerms(terms, map[string]bool{"A": true}, map[string]bool{}, Filter{})
	require.Len(t, selected, 1)
}

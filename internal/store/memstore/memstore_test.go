package memstore

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/netacld/internal/model"
)

func cidr(s string) *netip.Prefix {
	p := netip.MustParsePrefix(s)
	return &p
}

// TestEditPropagation mirrors spec §8: after modifying a Network N
// transitively referenced by policies {P1, P2, P3} and not P4, exactly
// P1..P3 end up edited=true.
func TestEditPropagation(t *testing.T) {
	s := New()

	n := &model.Network{Name: "corp", Addresses: []model.NetworkAddress{{Address: cidr("10.0.0.0/24")}}}
	require.NoError(t, s.CreateNetwork(n))

	p1 := &model.Policy{Name: "p1", Terms: []model.PolicyTerm{
		{Name: "t1", Position: "a", Enabled: true, Action: model.ActionAccept, SourceNetworks: []string{n.ID}},
	}}
	require.NoError(t, s.CreatePolicy(p1))

	p2nested := p1.ID
	p2 := &model.Policy{Name: "p2", Terms: []model.PolicyTerm{
		{Name: "t1", Position: "a", NestedPolicyID: &p2nested},
	}}
	require.NoError(t, s.CreatePolicy(p2))

	p3 := &model.Policy{Name: "p3", Terms: []model.PolicyTerm{
		{Name: "t1", Position: "a", Enabled: true, Action: model.ActionDeny, DestinationNetworks: []string{n.ID}},
	}}
	require.NoError(t, s.CreatePolicy(p3))

	p4 := &model.Policy{Name: "p4", Terms: []model.PolicyTerm{
		{Name: "t1", Position: "a", Enabled: true, Action: model.ActionAccept},
	}}
	require.NoError(t, s.CreatePolicy(p4))

	n.Addresses = append(n.Addresses, model.NetworkAddress{Address: cidr("10.0.1.0/24")})
	require.NoError(t, s.UpdateNetwork(n))

	got1, _ := s.GetPolicy(p1.ID)
	got2, _ := s.GetPolicy(p2.ID)
	got3, _ := s.GetPolicy(p3.ID)
	got4, _ := s.GetPolicy(p4.ID)

	assert.True(t, got1.Edited)
	assert.True(t, got2.Edited)
	assert.True(t, got3.Edited)
	assert.False(t, got4.Edited)
}

func TestNetworkCycleRejected(t *testing.T) {
	s := New()
	a := &model.Network{Name: "a", Addresses: []model.NetworkAddress{{Address: cidr("10.0.0.0/24")}}}
	require.NoError(t, s.CreateNetwork(a))

	aID := a.ID
	b := &model.Network{Name: "b", Addresses: []model.NetworkAddress{{NestedNetworkID: &aID}}}
	require.NoError(t, s.CreateNetwork(b))

	bID := b.ID
	a.Addresses = []model.NetworkAddress{{NestedNetworkID: &bID}}
	err := s.UpdateNetwork(a)
	require.Error(t, err)
}

func TestNetworkNameConflict(t *testing.T) {
	s := New()
	a := &model.Network{Name: "dup", Addresses: []model.NetworkAddress{{Address: cidr("10.0.0.0/24")}}}
	require.NoError(t, s.CreateNetwork(a))

	b := &model.Network{Name: "dup", Addresses: []model.NetworkAddress{{Address: cidr("10.0.1.0/24")}}}
	err := s.CreateNetwork(b)
	require.Error(t, err)
}

func TestDeleteReferencedNetworkFails(t *testing.T) {
	s := New()
	a := &model.Network{Name: "a", Addresses: []model.NetworkAddress{{Address: cidr("10.0.0.0/24")}}}
	require.NoError(t, s.CreateNetwork(a))

	aID := a.ID
	b := &model.Network{Name: "b", Addresses: []model.NetworkAddress{{NestedNetworkID: &aID}}}
	require.NoError(t, s.CreateNetwork(b))

	err := s.DeleteNetwork(a.ID)
	require.Error(t, err)
}

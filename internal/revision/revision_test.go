package revision

import (
	"net/netip"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/netacld/internal/compile"
	"github.com/DataDog/netacld/internal/model"
	"github.com/DataDog/netacld/internal/store/memstore"
)

func cidr(s string) *netip.Prefix {
	p := netip.MustParsePrefix(s)
	return &p
}

func newManager(t *testing.T) (*Manager, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	log := logrus.NewEntry(logrus.New())
	return New(st, compile.TextRenderer{}, log), st
}

func TestCreateFailsBelowCoverage(t *testing.T) {
	m, st := newManager(t)

	n := &model.Network{Name: "corp", Addresses: []model.NetworkAddress{{Address: cidr("10.0.0.0/24")}}}
	require.NoError(t, st.CreateNetwork(n))

	target := &model.Target{Name: "edge", Generator: model.GeneratorCisco, InetMode: model.InetModeV4}
	require.NoError(t, st.CreateTarget(target))

	p := &model.Policy{
		Name:      "web-policy",
		TargetIDs: []string{target.ID},
		Terms: []model.PolicyTerm{
			{Name: "allow", Position: "a", Enabled: true, Action: model.ActionAccept, SourceNetworks: []string{n.ID}},
			{Name: "deny", Position: "b", Enabled: true, Action: model.ActionDeny},
		},
	}
	require.NoError(t, st.CreatePolicy(p))

	_, err := m.Create(CreateRequest{PolicyID: &p.ID})
	require.Error(t, err)
}

func TestCreateSucceedsAtFullCoverage(t *testing.T) {
	m, st := newManager(t)

	n := &model.Network{Name: "corp", Addresses: []model.NetworkAddress{{Address: cidr("10.0.0.0/24")}}}
	require.NoError(t, st.CreateNetwork(n))

	target := &model.Target{Name: "edge", Generator: model.GeneratorCisco, InetMode: model.InetModeV4}
	require.NoError(t, st.CreateTarget(target))

	p := &model.Policy{
		Name:      "web-policy",
		Edited:    true,
		TargetIDs: []string{target.ID},
		Terms: []model.PolicyTerm{
			{Name: "allow", Position: "a", Enabled: true, Action: model.ActionAccept, SourceNetworks: []string{n.ID}},
		},
	}
	require.NoError(t, st.CreatePolicy(p))

	test := &model.Test{Name: "t1", Cases: []model.TestCase{
		{ExpectedAction: model.ActionAccept, SourceCIDR: "10.0.0.5"},
	}}
	require.NoError(t, st.CreateTest(test))
	p.TestIDs = []string{test.ID}
	require.NoError(t, st.UpdatePolicy(p))

	rev, err := m.Create(CreateRequest{PolicyID: &p.ID})
	require.NoError(t, err)
	require.Len(t, rev.Configs, 1)
	assert.Contains(t, rev.Configs[0].Config, "term allow")

	got, _ := st.GetPolicy(p.ID)
	assert.False(t, got.Edited)

	text, err := m.RawConfig(rev.ID, target.ID)
	require.NoError(t, err)
	assert.Equal(t, rev.Configs[0].Config, text)

	hash := ConfigHash(text)
	byHash, err := m.RawConfigByHash(rev.ID, target.ID, hash)
	require.NoError(t, err)
	assert.Equal(t, text, byHash)

	_, err = m.RawConfigByHash(rev.ID, target.ID, "deadbeef")
	require.Error(t, err)
}

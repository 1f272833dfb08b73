package testrunner

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/netacld/internal/model"
)

func addr(cidr string) model.NetworkAddress {
	p := netip.MustParsePrefix(cidr)
	return model.NetworkAddress{Address: &p}
}

// TestCoverageGateScenario mirrors spec §8 scenario 4: 3 terms, tests
// covering only 2 -> 67% coverage; adding a 3rd covering case -> 100%.
func TestCoverageGateScenario(t *testing.T) {
	corp := model.Network{ID: "corp", Addresses: []model.NetworkAddress{addr("10.0.0.0/24")}}
	dmz := model.Network{ID: "dmz", Addresses: []model.NetworkAddress{addr("10.0.1.0/24")}}
	ext := model.Network{ID: "ext", Addresses: []model.NetworkAddress{addr("0.0.0.0/0")}}
	networks := map[string]model.Network{"corp": corp, "dmz": dmz, "ext": ext}

	terms := []model.PolicyTerm{
		{ID: "t1", Enabled: true, Action: model.ActionAccept, SourceNetworks: []string{"corp"}},
		{ID: "t2", Enabled: true, Action: model.ActionDeny, SourceNetworks: []string{"dmz"}},
		{ID: "t3", Enabled: true, Action: model.ActionReject, SourceNetworks: []string{"ext"}},
	}

	lookups := Lookups{
		NetworkByID: func(id string) (model.Network, bool) { n, ok := networks[id]; return n, ok },
		ServiceByID: func(id string) (model.Service, bool) { return model.Service{}, false },
	}

	twoCases := []model.TestCase{
		{ID: "c1", ExpectedAction: model.ActionAccept, SourceCIDR: "10.0.0.5"},
		{ID: "c2", ExpectedAction: model.ActionDeny, SourceCIDR: "10.0.1.5"},
	}
	_, coverage, notMatched := Run(terms, twoCases, lookups)
	assert.InDelta(t, 2.0/3.0, coverage, 0.001)
	assert.Equal(t, []string{"t3"}, notMatched)

	threeCases := append(twoCases, model.TestCase{ID: "c3", ExpectedAction: model.ActionReject, SourceCIDR: "8.8.8.8"})
	_, coverage, notMatched = Run(terms, threeCases, lookups)
	assert.Equal(t, 1.0, coverage)
	assert.Empty(t, notMatched)
}

func TestClassifyWrongExpectedActionFails(t *testing.T) {
	corp := model.Network{ID: "corp", Addresses: []model.NetworkAddress{addr("10.0.0.0/24")}}
	networks := map[string]model.Network{"corp": corp}
	terms := []model.PolicyTerm{
		{ID: "t1", Enabled: true, Action: model.ActionAccept, SourceNetworks: []string{"corp"}},
	}
	lookups := Lookups{
		NetworkByID: func(id string) (model.Network, bool) { n, ok := networks[id]; return n, ok },
		ServiceByID: func(id string) (model.Service, bool) { return model.Service{}, false },
	}
	results, coverage, _ := Run(terms, []model.TestCase{
		{ID: "c1", ExpectedAction: model.ActionDeny, SourceCIDR: "10.0.0.5"},
	}, lookups)
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Equal(t, 0.0, coverage)
}

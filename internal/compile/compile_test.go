package compile

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DataDog/netacld/internal/model"
)

func cidr(s string) *netip.Prefix {
	p := netip.MustParsePrefix(s)
	return &p
}

func TestCompileBasic(t *testing.T) {
	net1 := model.Network{ID: "n1", Name: "corp", Addresses: []model.NetworkAddress{
		{Address: cidr("10.0.0.0/24")},
	}}
	networks := map[string]model.Network{"n1": net1}

	term := model.PolicyTerm{
		ID: "t1", Name: "allow-corp", Enabled: true, Action: model.ActionAccept,
		SourceNetworks: []string{"n1"},
	}

	target := model.Target{ID: "tgt1", Name: "edge", Generator: model.GeneratorCisco, InetMode: model.InetModeV4}

	res, err := Compile("My Policy", []model.PolicyTerm{term}, target, nil,
		func(id string) (model.Network, bool) { n, ok := networks[id]; return n, ok },
		func(id string) (model.Service, bool) { return model.Service{}, false },
		TextRenderer{},
	)
	require.NoError(t, err)
	require.Equal(t, "My-Policy", res.FilterName)
	require.Equal(t, "My-Policy.acl", res.Filename)
	require.Contains(t, res.ConfigText, "term allow-corp")
}

func TestFilterNameReplacesSpaces(t *testing.T) {
	require.Equal(t, "a-b-c", FilterName("a b c"))
}

func TestHeaderCiscoExtended(t *testing.T) {
	h := Header("f", model.Target{Generator: model.GeneratorCisco, InetMode: model.InetModeV4})
	require.Equal(t, "extended", h[model.GeneratorCisco])
}

func TestHeaderNftables(t *testing.T) {
	h := Header("f", model.Target{Generator: model.GeneratorNftables, InetMode: model.InetModeV4})
	require.Equal(t, "inet input", h[model.GeneratorNftables])
}

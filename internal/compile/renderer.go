package compile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/DataDog/netacld/internal/model"
)

// TextRenderer is a minimal, self-contained stand-in for the per-device
// rendering grammars that spec §1 treats as external collaborators: it
// emits readable, deterministic ACL text keyed by generator kind. Real
// device grammars are out of this service's scope; callers may supply a
// different Renderer (for example one backed by a vendor-specific code
// generator) behind the same interface.
type TextRenderer struct{}

func (TextRenderer) Render(desc PolicyDescription, target model.Target) (string, error) {
	var b strings.Builder

	switch target.Generator {
	case model.GeneratorNftables:
		fmt.Fprintf(&b, "table inet filtering_policies {\n")
		fmt.Fprintf(&b, "  chain %s {\n", desc.FilterName)
		fmt.Fprintf(&b, "    type filter hook input priority 0; policy drop;\n")
		for _, t := range desc.Terms {
			fmt.Fprintf(&b, "    # %s\n", t.Name)
			fmt.Fprintf(&b, "    %s\n", nftRule(t, desc.Naming))
		}
		fmt.Fprintf(&b, "  }\n}\n")
	default:
		fmt.Fprintf(&b, "! filter %s\n", desc.FilterName)
		for kind, h := range desc.Header {
			fmt.Fprintf(&b, "! target %s %s\n", kind, h)
		}
		for _, t := range desc.Terms {
			fmt.Fprintf(&b, "term %s {\n", t.Name)
			fmt.Fprintf(&b, "  action %s\n", t.Action)
			if t.Protocol != "" {
				fmt.Fprintf(&b, "  protocol %s\n", t.Protocol)
			}
			if len(t.SourceAddresses) > 0 {
				fmt.Fprintf(&b, "  source-address %s\n", strings.Join(t.SourceAddresses, " "))
			}
			if len(t.DestinationAddresses) > 0 {
				fmt.Fprintf(&b, "  destination-address %s\n", strings.Join(t.DestinationAddresses, " "))
			}
			if len(t.SourcePorts) > 0 {
				fmt.Fprintf(&b, "  source-port %s\n", strings.Join(t.SourcePorts, " "))
			}
			if len(t.DestinationPorts) > 0 {
				fmt.Fprintf(&b, "  destination-port %s\n", strings.Join(t.DestinationPorts, " "))
			}
			if t.Option != nil {
				fmt.Fprintf(&b, "  option %s\n", *t.Option)
			}
			if t.Logging {
				fmt.Fprintf(&b, "  logging true\n")
			}
			fmt.Fprintf(&b, "}\n")
		}
		fmt.Fprintf(&b, "! definitions\n")
		for _, name := range sortedNetworkNames(desc.Naming) {
			def := desc.Naming.Networks[name]
			fmt.Fprintf(&b, "network %s = %s\n", name, strings.Join(append(append([]string{}, def.CIDRs...), def.Members...), ", "))
		}
	}
	return b.String(), nil
}

func nftRule(t TermRecord, naming *NamingTable) string {
	verb := "drop"
	switch t.Action {
	case model.ActionAccept:
		verb = "accept"
	case model.ActionReject, model.ActionRejectTCPRst:
		verb = "reject"
	case model.ActionNext:
		verb = "continue"
	}
	_ = naming
	return verb
}

func sortedNetworkNames(naming *NamingTable) []string {
	names := make([]string, 0, len(naming.Networks))
	for n := range naming.Networks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

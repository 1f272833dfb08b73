// Package expand implements the expansion engine of spec §4.2: it flattens
// nested policy terms into a linear, ordered term list, and walks nested
// network/service groups down to their leaf values.
package expand

import (
	"net/netip"

	"github.com/DataDog/netacld/internal/apperr"
	"github.com/DataDog/netacld/internal/model"
)

// PolicyLookup resolves a policy id to its term list, as needed to splice in
// nested policy terms.
type PolicyLookup func(policyID string) ([]model.PolicyTerm, bool)

// Terms depth-first expands L, splicing the expanded contents of any nested
// policy inline at the position of the term that references it. Disabled
// terms are retained; nested-policy cycles are detected via a visited set
// bounded by the acyclicity invariant and reported as CycleDetected.
func Terms(l []model.PolicyTerm, lookup PolicyLookup) ([]model.PolicyTerm, error) {
	return expand(l, lookup, map[string]bool{})
}

func expand(l []model.PolicyTerm, lookup PolicyLookup, visiting map[string]bool) ([]model.PolicyTerm, error) {
	out := make([]model.PolicyTerm, 0, len(l))
	for _, term := range l {
		if !term.IsNested() {
			out = append(out, term)
			continue
		}
		nestedID := *term.NestedPolicyID
		if visiting[nestedID] {
			return nil, apperr.CycleDetected()
		}
		nestedTerms, ok := lookup(nestedID)
		if !ok {
			return nil, apperr.NotFound("policy", nestedID)
		}
		visiting[nestedID] = true
		expanded, err := expand(nestedTerms, lookup, visiting)
		delete(visiting, nestedID)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

// NetworkLookup resolves a network id to its value, for walking nested
// network groups.
type NetworkLookup func(networkID string) (model.Network, bool)

// NetworkCIDRs walks a Network's NetworkAddress children to their leaf
// CIDRs, recursing through nested networks and deduplicating the result.
func NetworkCIDRs(n model.Network, lookup NetworkLookup) ([]netip.Prefix, error) {
	seen := map[string]bool{}
	var out []netip.Prefix
	if err := walkNetwork(n, lookup, map[string]bool{}, seen, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func walkNetwork(n model.Network, lookup NetworkLookup, visiting, seen map[string]bool, out *[]netip.Prefix) error {
	if visiting[n.ID] {
		return apperr.CycleDetected()
	}
	visiting[n.ID] = true
	defer delete(visiting, n.ID)

	for _, addr := range n.Addresses {
		if addr.Address != nil {
			key := addr.Address.String()
			if !seen[key] {
				seen[key] = true
				*out = append(*out, *addr.Address)
			}
			continue
		}
		nested, ok := lookup(*addr.NestedNetworkID)
		if !ok {
			return apperr.NotFound("network", *addr.NestedNetworkID)
		}
		if err := walkNetwork(nested, lookup, visiting, seen, out); err != nil {
			return err
		}
	}
	return nil
}

// ServiceLookup resolves a service id to its value, for walking nested
// service groups.
type ServiceLookup func(serviceID string) (model.Service, bool)

// ProtoPort is a leaf (protocol, port) pair after service expansion.
type ProtoPort struct {
	Protocol model.Protocol
	Port     *model.PortRange
}

// ServiceLeaves walks a Service's entries to their leaf (protocol, port)
// pairs, recursing through nested services.
func ServiceLeaves(s model.Service, lookup ServiceLookup) ([]ProtoPort, error) {
	var out []ProtoPort
	if err := walkService(s, lookup, map[string]bool{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func walkService(s model.Service, lookup ServiceLookup, visiting map[string]bool, out *[]ProtoPort) error {
	if visiting[s.ID] {
		return apperr.CycleDetected()
	}
	visiting[s.ID] = true
	defer delete(visiting, s.ID)

	for _, e := range s.Entries {
		if e.Protocol != nil {
			*out = append(*out, ProtoPort{Protocol: *e.Protocol, Port: e.Port})
			continue
		}
		nested, ok := lookup(*e.NestedServiceID)
		if !ok {
			return apperr.NotFound("service", *e.NestedServiceID)
		}
		if err := walkService(nested, lookup, visiting, out); err != nil {
			return err
		}
	}
	return nil
}

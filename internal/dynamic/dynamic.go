// Package dynamic implements the dynamic-policy resolver of spec §4.4: it
// maps input filter CIDRs to the set of declared network groups fully
// covered by them, including nested back-references, and selects and
// customizes matching terms.
package dynamic

import (
	"net/netip"
	"sort"

	"github.com/DataDog/netacld/internal/expand"
	"github.com/DataDog/netacld/internal/model"
)

// NetworkStore is the subset of the object store the resolver needs.
type NetworkStore interface {
	NetworkByID(id string) (model.Network, bool)
	AllNetworks() []model.Network
}

// Filter is the resolver's input, mirroring spec §4.4.
type Filter struct {
	SourceNetworkIDs      []string
	DestinationNetworkIDs []string
	PolicyIDs             []string
	Action                *model.Action
}

// leafAddr is one non-nested NetworkAddress, tagged with its owning network.
type leafAddr struct {
	id        string
	networkID string
	prefix    netip.Prefix
}

// Resolve performs stages 1-3 of §4.4: CIDR extraction, containment search,
// and nested promotion for one list of filter networks, returning the set of
// selected network ids. Source and destination filters are resolved by
// separate calls.
func Resolve(store NetworkStore, filterNetworkIDs []string) (map[string]bool, error) {
	// Stage 1: CIDR extraction.
	var filterCIDRs []netip.Prefix
	for _, id := range filterNetworkIDs {
		net, ok := store.NetworkByID(id)
		if !ok {
			continue
		}
		lookup := func(nid string) (model.Network, bool) { return store.NetworkByID(nid) }
		cidrs, err := expand.NetworkCIDRs(net, lookup)
		if err != nil {
			return nil, err
		}
		filterCIDRs = append(filterCIDRs, cidrs...)
	}

	// Gather every leaf NetworkAddress across all networks.
	var leaves []leafAddr
	for _, net := range store.AllNetworks() {
		for _, addr := range net.Addresses {
			if addr.Address == nil {
				continue
			}
			leaves = append(leaves, leafAddr{id: addr.ID, networkID: net.ID, prefix: *addr.Address})
		}
	}

	// Stage 2: containment search — leaves whose CIDR overlaps the filter set.
	overlapping := map[string]bool{}
	for _, leaf := range leaves {
		for _, f := range filterCIDRs {
			if leaf.prefix.Overlaps(f) {
				overlapping[leaf.id] = true
				break
			}
		}
	}

	// A network is promoted only if ALL of its own leaf addresses overlap.
	leavesByNetwork := map[string][]string{}
	for _, leaf := range leaves {
		leavesByNetwork[leaf.networkID] = append(leavesByNetwork[leaf.networkID], leaf.id)
	}

	selected := map[string]bool{}
	for netID, leafIDs := range leavesByNetwork {
		if len(leafIDs) == 0 {
			continue
		}
		all := true
		for _, lid := range leafIDs {
			if !overlapping[lid] {
				all = false
				break
			}
		}
		if all {
			selected[netID] = true
		}
	}

	// Stage 3: nested promotion to fixpoint — any network whose address set
	// (in terms of nested_network_id) is a subset of selected is added.
	for {
		changed := false
		for _, net := range store.AllNetworks() {
			if selected[net.ID] {
				continue
			}
			if isNestedSubsetOfSelected(net, selected) {
				selected[net.ID] = true
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	return selected, nil
}

// isNestedSubsetOfSelected reports whether net has at least one address,
// every address is a nested reference (no literal CIDR), and every nested
// address refers to an already-selected network.
func isNestedSubsetOfSelected(net model.Network, selected map[string]bool) bool {
	if len(net.Addresses) == 0 {
		return false
	}
	for _, addr := range net.Addresses {
		if addr.Address != nil {
			return false
		}
		if !selected[*addr.NestedNetworkID] {
			return false
		}
	}
	return true
}

// SelectTerms performs stage 4 of §4.4: selecting terms whose source and
// destination sides satisfy the filter predicate against the resolved
// network id sets.
func SelectTerms(allTerms []model.PolicyTerm, srcSelected, dstSelected map[string]bool, filter Filter) []model.PolicyTerm {
	policyFilterSet := toSet(filter.PolicyIDs)

	var matched []model.PolicyTerm
	for _, t := range allTerms {
		if t.IsNested() {
			continue
		}
		if len(policyFilterSet) > 0 && !policyFilterSet[t.PolicyID] {
			continue
		}
		if filter.Action != nil && t.Action != *filter.Action {
			continue
		}
		if !sideMatches(t.SourceNetworks, t.NegateSrc, srcSelected) {
			continue
		}
		if !sideMatches(t.DestinationNetworks, t.NegateDst, dstSelected) {
			continue
		}
		matched = append(matched, t)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].PolicyID != matched[j].PolicyID {
			return matched[i].PolicyID < matched[j].PolicyID
		}
		return matched[i].Position < matched[j].Position
	})

	return Customize(matched, srcSelected, dstSelected)
}

// sideMatches implements the per-side predicate of stage 4: empty is
// trivially "any"; otherwise membership (or, when negated, non-membership)
// of at least one network id in the resolved set.
func sideMatches(networkIDs []string, negated bool, selected map[string]bool) bool {
	if len(networkIDs) == 0 {
		return true
	}
	for _, id := range networkIDs {
		in := selected[id]
		if negated && !in {
			return true
		}
		if !negated && in {
			return true
		}
	}
	return false
}

// Customize performs stage 5: clones selected terms and intersects each
// non-"any" side with the resolved filter set, preserving order.
func Customize(terms []model.PolicyTerm, srcSelected, dstSelected map[string]bool) []model.PolicyTerm {
	out := make([]model.PolicyTerm, len(terms))
	for i, t := range terms {
		clone := t
		if len(t.SourceNetworks) > 0 {
			clone.SourceNetworks = intersect(t.SourceNetworks, srcSelected)
		}
		if len(t.DestinationNetworks) > 0 {
			clone.DestinationNetworks = intersect(t.DestinationNetworks, dstSelected)
		}
		out[i] = clone
	}
	return out
}

func intersect(ids []string, selected map[string]bool) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if selected[id] {
			out = append(out, id)
		}
	}
	return out
}

func toSet(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

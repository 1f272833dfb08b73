package pg

import (
	"github.com/DataDog/netacld/internal/apperr"
	"github.com/DataDog/netacld/internal/model"
	"github.com/DataDog/netacld/internal/store"
)

// graph.go ports memstore's collectAffected traversal (internal/store/memstore/memstore.go)
// against rows loaded fresh from Postgres rather than an in-process map, since the object
// graph here is small enough that walking it in application code is simpler than recursive
// SQL. See DESIGN.md for why this duplicates memstore's walk instead of sharing a package.

func (s *Store) loadAllNetworks() (map[string]model.Network, error) {
	nets, _, err := s.ListNetworks(listAllFilter())
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Network, len(nets))
	for _, n := range nets {
		out[n.ID] = n
	}
	return out, nil
}

func (s *Store) loadAllServices() (map[string]model.Service, error) {
	svcs, _, err := s.ListServices(listAllFilter())
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Service, len(svcs))
	for _, svc := range svcs {
		out[svc.ID] = svc
	}
	return out, nil
}

func (s *Store) loadAllPolicies() (map[string]model.Policy, error) {
	pols, _, err := s.ListPolicies(listAllFilter())
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Policy, len(pols))
	for _, p := range pols {
		out[p.ID] = p
	}
	return out, nil
}

func (s *Store) loadAllDynamicPolicies() (map[string]model.DynamicPolicy, error) {
	dps, _, err := s.ListDynamicPolicies(listAllFilter())
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.DynamicPolicy, len(dps))
	for _, dp := range dps {
		out[dp.ID] = dp
	}
	return out, nil
}

// graphSnapshot is every row needed to walk inbound reference edges, loaded
// fresh from Postgres for the duration of one PropagateEdit/UsageOf/delete
// check call.
type graphSnapshot struct {
	networks map[string]model.Network
	services map[string]model.Service
	policies map[string]model.Policy
	dynamics map[string]model.DynamicPolicy
}

func (s *Store) loadGraphSnapshot() (graphSnapshot, error) {
	networks, err := s.loadAllNetworks()
	if err != nil {
		return graphSnapshot{}, err
	}
	services, err := s.loadAllServices()
	if err != nil {
		return graphSnapshot{}, err
	}
	policies, err := s.loadAllPolicies()
	if err != nil {
		return graphSnapshot{}, err
	}
	dynamics, err := s.loadAllDynamicPolicies()
	if err != nil {
		return graphSnapshot{}, err
	}
	return graphSnapshot{networks: networks, services: services, policies: policies, dynamics: dynamics}, nil
}

// listAllFilter is store.ListFilter's zero value: no id/name filter, no pagination,
// so the Postgres-backed graph walk below can load every row of a table at once.
func listAllFilter() store.ListFilter { return store.ListFilter{} }

func containsString(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// collectAffected mirrors memstore's inbound-edge walk (memstore.go's collectAffected)
// against the snapshot loaded above, including the nested-service -> service recursion
// memstore performs for the "service" case.
func collectAffected(kind, id string, g graphSnapshot, affectedPolicies, affectedDynamic, visited map[string]bool) {
	key := kind + ":" + id
	if visited[key] {
		return
	}
	visited[key] = true

	switch kind {
	case "network":
		for _, n := range g.networks {
			for _, addr := range n.Addresses {
				if addr.NestedNetworkID != nil && *addr.NestedNetworkID == id {
					collectAffected("network", n.ID, g, affectedPolicies, affectedDynamic, visited)
				}
			}
		}
		for _, p := range g.policies {
			for _, t := range p.Terms {
				if containsString(t.SourceNetworks, id) || containsString(t.DestinationNetworks, id) {
					collectAffected("policy", p.ID, g, affectedPolicies, affectedDynamic, visited)
				}
			}
		}
		for _, dp := range g.dynamics {
			if containsString(dp.SourceFilterIDs, id) || containsString(dp.DestinationFilterIDs, id) {
				affectedDynamic[dp.ID] = true
			}
		}
	case "service":
		for _, svc := range g.services {
			for _, e := range svc.Entries {
				if e.NestedServiceID != nil && *e.NestedServiceID == id {
					collectAffected("service", svc.ID, g, affectedPolicies, affectedDynamic, visited)
				}
			}
		}
		for _, p := range g.policies {
			for _, t := range p.Terms {
				if containsString(t.SourceServices, id) || containsString(t.DestinationServices, id) {
					collectAffected("policy", p.ID, g, affectedPolicies, affectedDynamic, visited)
				}
			}
		}
	case "target":
		for _, p := range g.policies {
			if containsString(p.TargetIDs, id) {
				affectedPolicies[p.ID] = true
			}
		}
		for _, dp := range g.dynamics {
			if containsString(dp.TargetIDs, id) {
				affectedDynamic[dp.ID] = true
			}
		}
	case "policy":
		affectedPolicies[id] = true
		for _, p := range g.policies {
			for _, t := range p.Terms {
				if t.NestedPolicyID != nil && *t.NestedPolicyID == id {
					collectAffected("policy", p.ID, g, affectedPolicies, affectedDynamic, visited)
				}
			}
		}
		for _, dp := range g.dynamics {
			if containsString(dp.PolicyFilterIDs, id) {
				affectedDynamic[dp.ID] = true
			}
		}
	}
}

func (s *Store) PropagateEdit(entityKind, entityID string) error {
	g, err := s.loadGraphSnapshot()
	if err != nil {
		return err
	}

	affectedPolicies := map[string]bool{}
	affectedDynamic := map[string]bool{}
	collectAffected(entityKind, entityID, g, affectedPolicies, affectedDynamic, map[string]bool{})

	for id := range affectedPolicies {
		if _, err := s.db.Exec(`UPDATE policies SET edited = true WHERE id = $1`, id); err != nil {
			return err
		}
	}
	for id := range affectedDynamic {
		if _, err := s.db.Exec(`UPDATE dynamic_policies SET edited = true WHERE id = $1`, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) UsageOf(entityKind, entityID string) ([]string, error) {
	g, err := s.loadGraphSnapshot()
	if err != nil {
		return nil, err
	}

	affectedPolicies := map[string]bool{}
	affectedDynamic := map[string]bool{}
	collectAffected(entityKind, entityID, g, affectedPolicies, affectedDynamic, map[string]bool{})

	var out []string
	for id := range affectedPolicies {
		out = append(out, "policy:"+id)
	}
	for id := range affectedDynamic {
		out = append(out, "dynamic_policy:"+id)
	}
	return out, nil
}

func (s *Store) AllNetworks() []model.Network {
	networks, err := s.loadAllNetworks()
	if err != nil {
		return nil
	}
	out := make([]model.Network, 0, len(networks))
	for _, n := range networks {
		out = append(out, n)
	}
	return out
}

// checkNetworkAcyclic verifies that adding an edge networkID -> nestedID would
// not create a cycle in the nested_network_id graph (invariant 2), the same
// check memstore.checkNetworkAcyclicLocked performs against its in-process map.
func checkNetworkAcyclic(networks map[string]model.Network, networkID, nestedID string) error {
	if networkID == nestedID {
		return apperr.Invalid("nested_network_id", "a network may not reference itself")
	}
	visited := map[string]bool{networkID: true}
	var walk func(id string) error
	walk = func(id string) error {
		net, ok := networks[id]
		if !ok {
			return nil
		}
		for _, addr := range net.Addresses {
			if addr.NestedNetworkID == nil {
				continue
			}
			next := *addr.NestedNetworkID
			if next == networkID {
				return apperr.CycleDetected()
			}
			if !visited[next] {
				visited[next] = true
				if err := walk(next); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk(nestedID)
}

// checkPolicyAcyclic verifies that adding an edge policyID -> nestedID would
// not create a cycle in the nested_policy_id graph (invariant 2), mirroring
// memstore.checkPolicyAcyclicLocked.
func checkPolicyAcyclic(policies map[string]model.Policy, policyID, nestedID string) error {
	if policyID == nestedID {
		return apperr.Invalid("nested_policy_id", "a term may not nest its owning policy")
	}
	visited := map[string]bool{policyID: true}
	var walk func(id string) error
	walk = func(id string) error {
		pol, ok := policies[id]
		if !ok {
			return nil
		}
		for _, t := range pol.Terms {
			if t.NestedPolicyID == nil {
				continue
			}
			next := *t.NestedPolicyID
			if next == policyID {
				return apperr.CycleDetected()
			}
			if !visited[next] {
				visited[next] = true
				if err := walk(next); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk(nestedID)
}

// networkReferencedByOther reports whether some other network's address
// nests id, mirroring the check memstore.DeleteNetwork performs before
// deleting (invariant 7, ReferentialInUse).
func networkReferencedByOther(networks map[string]model.Network, id string) bool {
	for _, n := range networks {
		for _, addr := range n.Addresses {
			if addr.NestedNetworkID != nil && *addr.NestedNetworkID == id {
				return true
			}
		}
	}
	return false
}

// serviceReferencedByOther reports whether some other service's entry nests
// id, mirroring memstore.DeleteService.
func serviceReferencedByOther(services map[string]model.Service, id string) bool {
	for _, svc := range services {
		for _, e := range svc.Entries {
			if e.NestedServiceID != nil && *e.NestedServiceID == id {
				return true
			}
		}
	}
	return false
}

// policyReferencedByOther reports whether some other policy's term nests id,
// mirroring memstore.DeletePolicy.
func policyReferencedByOther(policies map[string]model.Policy, id string) bool {
	for _, p := range policies {
		for _, t := range p.Terms {
			if t.NestedPolicyID != nil && *t.NestedPolicyID == id {
				return true
			}
		}
	}
	return false
}

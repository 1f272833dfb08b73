// Package memstore is an in-process implementation of store.Store, used by
// tests and by any in-memory deployment of the service. It satisfies the
// same interface as internal/store/pg.
package memstore

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DataDog/netacld/internal/apperr"
	"github.com/DataDog/netacld/internal/model"
	"github.com/DataDog/netacld/internal/store"
)

// Store is a mutex-guarded, map-backed object store.
type Store struct {
	mu sync.RWMutex

	networks       map[string]model.Network
	services       map[string]model.Service
	policies       map[string]model.Policy
	dynamicPolicies map[string]model.DynamicPolicy
	targets        map[string]model.Target
	tests          map[string]model.Test
	deployers      map[string]model.Deployer
	deployments    map[string]model.Deployment
	revisions      map[string]model.Revision
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		networks:        map[string]model.Network{},
		services:        map[string]model.Service{},
		policies:        map[string]model.Policy{},
		dynamicPolicies: map[string]model.DynamicPolicy{},
		targets:         map[string]model.Target{},
		tests:           map[string]model.Test{},
		deployers:       map[string]model.Deployer{},
		deployments:     map[string]model.Deployment{},
		revisions:       map[string]model.Revision{},
	}
}

var _ store.Store = (*Store)(nil)

func newID() string { return uuid.NewString() }

// ---- Networks ----

func (s *Store) CreateNetwork(n *model.Network) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		n.ID = newID()
	}
	for _, addr := range n.Addresses {
		if err := addr.Validate(); err != nil {
			return err
		}
		if addr.NestedNetworkID != nil {
			if err := s.checkNetworkAcyclicLocked(n.ID, *addr.NestedNetworkID); err != nil {
				return err
			}
		}
	}
	if err := s.checkUniqueNameLocked("network", n.Name, n.ID); err != nil {
		return err
	}
	now := time.Now()
	n.CreatedAt, n.UpdatedAt = now, now
	s.networks[n.ID] = *n
	return nil
}

func (s *Store) GetNetwork(id string) (model.Network, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.networks[id]
	if !ok {
		return model.Network{}, apperr.NotFound("network", id)
	}
	return n, nil
}

func (s *Store) ListNetworks(f store.ListFilter) ([]model.Network, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Network
	for _, n := range s.networks {
		if matchesFilter(n.ID, n.Name, f) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, f), len(out), nil
}

func (s *Store) UpdateNetwork(n *model.Network) error {
	s.mu.Lock()
	existing, ok := s.networks[n.ID]
	if !ok {
		s.mu.Unlock()
		return apperr.NotFound("network", n.ID)
	}
	for _, addr := range n.Addresses {
		if err := addr.Validate(); err != nil {
			s.mu.Unlock()
			return err
		}
		if addr.NestedNetworkID != nil {
			if err := s.checkNetworkAcyclicLocked(n.ID, *addr.NestedNetworkID); err != nil {
				s.mu.Unlock()
				return err
			}
		}
	}
	if n.Name != existing.Name {
		if err := s.checkUniqueNameLocked("network", n.Name, n.ID); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	n.CreatedAt = existing.CreatedAt
	n.UpdatedAt = time.Now()
	s.networks[n.ID] = *n
	s.mu.Unlock()
	return s.PropagateEdit("network", n.ID)
}

func (s *Store) DeleteNetwork(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.networks[id]; !ok {
		return apperr.NotFound("network", id)
	}
	for _, other := range s.networks {
		for _, addr := range other.Addresses {
			if addr.NestedNetworkID != nil && *addr.NestedNetworkID == id {
				return apperr.ReferentialInUse("network", id)
			}
		}
	}
	delete(s.networks, id)
	return nil
}

// checkNetworkAcyclicLocked verifies that adding an edge networkID ->
// nestedID would not create a cycle in the nested_network_id graph
// (invariant 2). Callers must hold s.mu.
func (s *Store) checkNetworkAcyclicLocked(networkID, nestedID string) error {
	if networkID == nestedID {
		return apperr.Invalid("nested_network_id", "a network may not reference itself")
	}
	visited := map[string]bool{networkID: true}
	var walk func(id string) error
	walk = func(id string) error {
		if visited[id] && id != networkID {
			return nil
		}
		net, ok := s.networks[id]
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

// ---- Services ----

func (s *Store) CreateService(svc *model.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if svc.ID == "" {
		svc.ID = newID()
	}
	for _, e := range svc.Entries {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	if err := s.checkUniqueNameLocked("service", svc.Name, svc.ID); err != nil {
		return err
	}
	now := time.Now()
	svc.CreatedAt, svc.UpdatedAt = now, now
	s.services[svc.ID] = *svc
	return nil
}

func (s *Store) GetService(id string) (model.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.services[id]
	if !ok {
		return model.Service{}, apperr.NotFound("service", id)
	}
	return svc, nil
}

func (s *Store) ListServices(f store.ListFilter) ([]model.Service, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Service
	for _, svc := range s.services {
		if matchesFilter(svc.ID, svc.Name, f) {
			out = append(out, svc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, f), len(out), nil
}

func (s *Store) UpdateService(svc *model.Service) error {
	s.mu.Lock()
	existing, ok := s.services[svc.ID]
	if !ok {
		s.mu.Unlock()
		return apperr.NotFound("service", svc.ID)
	}
	for _, e := range svc.Entries {
		if err := e.Validate(); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	if svc.Name != existing.Name {
		if err := s.checkUniqueNameLocked("service", svc.Name, svc.ID); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	svc.CreatedAt = existing.CreatedAt
	svc.UpdatedAt = time.Now()
	s.services[svc.ID] = *svc
	s.mu.Unlock()
	return s.PropagateEdit("service", svc.ID)
}

func (s *Store) DeleteService(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.services[id]; !ok {
		return apperr.NotFound("service", id)
	}
	for _, other := range s.services {
		for _, e := range other.Entries {
			if e.NestedServiceID != nil && *e.NestedServiceID == id {
				return apperr.ReferentialInUse("service", id)
			}
		}
	}
	delete(s.services, id)
	return nil
}

// ---- Policies ----

func (s *Store) CreatePolicy(p *model.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = newID()
	}
	p.AssignTermPositions()
	if err := s.validatePolicyTermsLocked(p); err != nil {
		return err
	}
	if err := s.checkUniqueNameLocked("policy", p.Name, p.ID); err != nil {
		return err
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.policies[p.ID] = *p
	return nil
}

func (s *Store) validatePolicyTermsLocked(p *model.Policy) error {
	names := map[string]bool{}
	for i := range p.Terms {
		t := &p.Terms[i]
		if err := t.Validate(); err != nil {
			return err
		}
		if names[t.Name] {
			return apperr.Conflict("name", t.Name)
		}
		names[t.Name] = true
		if t.NestedPolicyID != nil {
			if err := s.checkPolicyAcyclicLocked(p.ID, *t.NestedPolicyID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) checkPolicyAcyclicLocked(policyID, nestedID string) error {
	if policyID == nestedID {
		return apperr.Invalid("nested_policy_id", "a term may not nest its owning policy")
	}
	visited := map[string]bool{policyID: true}
	var walk func(id string) error
	walk = func(id string) error {
		pol, ok := s.policies[id]
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

func (s *Store) GetPolicy(id string) (model.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[id]
	if !ok {
		return model.Policy{}, apperr.NotFound("policy", id)
	}
	return p, nil
}

func (s *Store) ListPolicies(f store.ListFilter) ([]model.Policy, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Policy
	for _, p := range s.policies {
		if matchesFilter(p.ID, p.Name, f) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, f), len(out), nil
}

func (s *Store) UpdatePolicy(p *model.Policy) error {
	s.mu.Lock()
	existing, ok := s.policies[p.ID]
	if !ok {
		s.mu.Unlock()
		return apperr.NotFound("policy", p.ID)
	}
	p.AssignTermPositions()
	if err := s.validatePolicyTermsLocked(p); err != nil {
		s.mu.Unlock()
		return err
	}
	if p.Name != existing.Name {
		if err := s.checkUniqueNameLocked("policy", p.Name, p.ID); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now()
	s.policies[p.ID] = *p
	s.mu.Unlock()
	return s.PropagateEdit("policy", p.ID)
}

func (s *Store) DeletePolicy(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.policies[id]; !ok {
		return apperr.NotFound("policy", id)
	}
	for _, other := range s.policies {
		for _, t := range other.Terms {
			if t.NestedPolicyID != nil && *t.NestedPolicyID == id {
				return apperr.ReferentialInUse("policy", id)
			}
		}
	}
	delete(s.policies, id)
	return nil
}

func (s *Store) ClearEdited(policyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.policies[policyID]
	if !ok {
		return apperr.NotFound("policy", policyID)
	}
	p.Edited = false
	s.policies[policyID] = p
	return nil
}

// ---- Dynamic policies ----

func (s *Store) CreateDynamicPolicy(p *model.DynamicPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = newID()
	}
	if err := s.checkUniqueNameLocked("dynamic_policy", p.Name, p.ID); err != nil {
		return err
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.dynamicPolicies[p.ID] = *p
	return nil
}

func (s *Store) GetDynamicPolicy(id string) (model.DynamicPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.dynamicPolicies[id]
	if !ok {
		return model.DynamicPolicy{}, apperr.NotFound("dynamic_policy", id)
	}
	return p, nil
}

func (s *Store) ListDynamicPolicies(f store.ListFilter) ([]model.DynamicPolicy, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.DynamicPolicy
	for _, p := range s.dynamicPolicies {
		if matchesFilter(p.ID, p.Name, f) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, f), len(out), nil
}

func (s *Store) UpdateDynamicPolicy(p *model.DynamicPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.dynamicPolicies[p.ID]
	if !ok {
		return apperr.NotFound("dynamic_policy", p.ID)
	}
	if p.Name != existing.Name {
		if err := s.checkUniqueNameLocked("dynamic_policy", p.Name, p.ID); err != nil {
			return err
		}
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now()
	s.dynamicPolicies[p.ID] = *p
	return nil
}

func (s *Store) DeleteDynamicPolicy(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dynamicPolicies[id]; !ok {
		return apperr.NotFound("dynamic_policy", id)
	}
	delete(s.dynamicPolicies, id)
	return nil
}

func (s *Store) ClearDynamicEdited(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.dynamicPolicies[id]
	if !ok {
		return apperr.NotFound("dynamic_policy", id)
	}
	p.Edited = false
	s.dynamicPolicies[id] = p
	return nil
}

// ---- Targets ----

func (s *Store) CreateTarget(t *model.Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = newID()
	}
	if err := s.checkUniqueNameLocked("target", t.Name, t.ID); err != nil {
		return err
	}
	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	s.targets[t.ID] = *t
	return nil
}

func (s *Store) GetTarget(id string) (model.Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.targets[id]
	if !ok {
		return model.Target{}, apperr.NotFound("target", id)
	}
	return t, nil
}

func (s *Store) ListTargets(f store.ListFilter) ([]model.Target, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Target
	for _, t := range s.targets {
		if matchesFilter(t.ID, t.Name, f) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, f), len(out), nil
}

func (s *Store) UpdateTarget(t *model.Target) error {
	s.mu.Lock()
	existing, ok := s.targets[t.ID]
	if !ok {
		s.mu.Unlock()
		return apperr.NotFound("target", t.ID)
	}
	if t.Name != existing.Name {
		if err := s.checkUniqueNameLocked("target", t.Name, t.ID); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now()
	s.targets[t.ID] = *t
	s.mu.Unlock()
	return s.PropagateEdit("target", t.ID)
}

func (s *Store) DeleteTarget(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.targets[id]; !ok {
		return apperr.NotFound("target", id)
	}
	delete(s.targets, id)
	return nil
}

// ---- Tests ----

func (s *Store) CreateTest(t *model.Test) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = newID()
	}
	if err := s.checkUniqueNameLocked("test", t.Name, t.ID); err != nil {
		return err
	}
	s.tests[t.ID] = *t
	return nil
}

func (s *Store) GetTest(id string) (model.Test, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tests[id]
	if !ok {
		return model.Test{}, apperr.NotFound("test", id)
	}
	return t, nil
}

func (s *Store) ListTests(f store.ListFilter) ([]model.Test, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Test
	for _, t := range s.tests {
		if matchesFilter(t.ID, t.Name, f) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, f), len(out), nil
}

func (s *Store) UpdateTest(t *model.Test) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tests[t.ID]; !ok {
		return apperr.NotFound("test", t.ID)
	}
	s.tests[t.ID] = *t
	return nil
}

func (s *Store) DeleteTest(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tests[id]; !ok {
		return apperr.NotFound("test", id)
	}
	delete(s.tests, id)
	return nil
}

// ---- Deployers ----

func (s *Store) CreateDeployer(d *model.Deployer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = newID()
	}
	if err := s.checkUniqueNameLocked("deployer", d.Name, d.ID); err != nil {
		return err
	}
	now := time.Now()
	d.CreatedAt, d.UpdatedAt = now, now
	s.deployers[d.ID] = *d
	return nil
}

func (s *Store) GetDeployer(id string) (model.Deployer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deployers[id]
	if !ok {
		return model.Deployer{}, apperr.NotFound("deployer", id)
	}
	return d, nil
}

func (s *Store) ListDeployers(f store.ListFilter) ([]model.Deployer, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Deployer
	for _, d := range s.deployers {
		if matchesFilter(d.ID, d.Name, f) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, f), len(out), nil
}

func (s *Store) UpdateDeployer(d *model.Deployer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.deployers[d.ID]
	if !ok {
		return apperr.NotFound("deployer", d.ID)
	}
	if d.Name != existing.Name {
		if err := s.checkUniqueNameLocked("deployer", d.Name, d.ID); err != nil {
			return err
		}
	}
	d.CreatedAt = existing.CreatedAt
	d.UpdatedAt = time.Now()
	s.deployers[d.ID] = *d
	return nil
}

func (s *Store) DeleteDeployer(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deployers[id]; !ok {
		return apperr.NotFound("deployer", id)
	}
	delete(s.deployers, id)
	return nil
}

func (s *Store) DeployersForTarget(targetID string) ([]model.Deployer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Deployer
	for _, d := range s.deployers {
		if d.TargetID == targetID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetID < out[j].TargetID })
	return out, nil
}

// ---- Deployments ----

func (s *Store) CreateDeployment(d *model.Deployment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = newID()
	}
	now := time.Now()
	d.CreatedAt, d.UpdatedAt = now, now
	s.deployments[d.ID] = *d
	return nil
}

func (s *Store) GetDeployment(id string) (model.Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deployments[id]
	if !ok {
		return model.Deployment{}, apperr.NotFound("deployment", id)
	}
	return d, nil
}

func (s *Store) UpdateDeployment(d *model.Deployment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.deployments[d.ID]
	if !ok {
		return apperr.NotFound("deployment", d.ID)
	}
	d.CreatedAt = existing.CreatedAt
	d.UpdatedAt = time.Now()
	s.deployments[d.ID] = *d
	return nil
}

// ---- Revisions ----

func (s *Store) CreateRevision(r *model.Revision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := r.Validate(); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = newID()
	}
	r.CreatedAt = time.Now()
	s.revisions[r.ID] = *r
	return nil
}

func (s *Store) GetRevision(id string) (model.Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.revisions[id]
	if !ok {
		return model.Revision{}, apperr.NotFound("revision", id)
	}
	return r, nil
}

func (s *Store) ListRevisions(f store.ListFilter) ([]model.Revision, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Revision
	for _, r := range s.revisions {
		if f.ID != "" && r.ID != f.ID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return paginateRevisions(out, f), len(out), nil
}

// ---- Edit propagation (invariant 5) ----

// PropagateEdit implements the edit-propagation walk of spec §4.1: starting
// from the mutated entity, it traverses inbound reference edges and marks
// every reachable Policy/DynamicPolicy edited=true.
func (s *Store) PropagateEdit(entityKind, entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	affectedPolicies := map[string]bool{}
	affectedDynamic := map[string]bool{}
	s.collectAffected(entityKind, entityID, affectedPolicies, affectedDynamic, map[string]bool{})

	for id := range affectedPolicies {
		p := s.policies[id]
		p.Edited = true
		s.policies[id] = p
	}
	for id := range affectedDynamic {
		d := s.dynamicPolicies[id]
		d.Edited = true
		s.dynamicPolicies[id] = d
	}
	return nil
}

// collectAffected walks inbound edges for a mutated (kind, id), following:
// Network -> NetworkAddress.nested, Network -> PolicyTerm.src/dst,
// Service -> PolicyTerm.src/dst, Target -> Policy, Policy -> PolicyTerm.nested,
// Network -> DynamicPolicy.filters, Policy -> DynamicPolicy.policy_filters.
func (s *Store) collectAffected(kind, id string, policies, dynamics, visited map[string]bool) {
	key := kind + ":" + id
	if visited[key] {
		return
	}
	visited[key] = true

	switch kind {
	case "network":
		for _, n := range s.networks {
			for _, addr := range n.Addresses {
				if addr.NestedNetworkID != nil && *addr.NestedNetworkID == id {
					s.collectAffected("network", n.ID, policies, dynamics, visited)
				}
			}
		}
		for _, p := range s.policies {
			for _, t := range p.Terms {
				if containsString(t.SourceNetworks, id) || containsString(t.DestinationNetworks, id) {
					s.collectAffected("policy", p.ID, policies, dynamics, visited)
				}
			}
		}
		for _, dp := range s.dynamicPolicies {
			if containsString(dp.SourceFilterIDs, id) || containsString(dp.DestinationFilterIDs, id) {
				dynamics[dp.ID] = true
			}
		}
	case "service":
		for _, svc := range s.services {
			for _, e := range svc.Entries {
				if e.NestedServiceID != nil && *e.NestedServiceID == id {
					s.collectAffected("service", svc.ID, policies, dynamics, visited)
				}
			}
		}
		for _, p := range s.policies {
			for _, t := range p.Terms {
				if containsString(t.SourceServices, id) || containsString(t.DestinationServices, id) {
					s.collectAffected("policy", p.ID, policies, dynamics, visited)
				}
			}
		}
	case "target":
		for _, p := range s.policies {
			if containsString(p.TargetIDs, id) {
				policies[p.ID] = true
			}
		}
		for _, dp := range s.dynamicPolicies {
			if containsString(dp.TargetIDs, id) {
				dynamics[dp.ID] = true
			}
		}
	case "policy":
		policies[id] = true
		for _, p := range s.policies {
			for _, t := range p.Terms {
				if t.NestedPolicyID != nil && *t.NestedPolicyID == id {
					s.collectAffected("policy", p.ID, policies, dynamics, visited)
				}
			}
		}
		for _, dp := range s.dynamicPolicies {
			if containsString(dp.PolicyFilterIDs, id) {
				dynamics[dp.ID] = true
			}
		}
	}
}

// UsageOf computes the transitive closure of objects referencing the
// subject, using the same inbound-edge primitives as PropagateEdit (the
// original_source `usage` endpoints reuse the dependency walk this way).
func (s *Store) UsageOf(entityKind, entityID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	policies := map[string]bool{}
	dynamics := map[string]bool{}
	s.collectAffected(entityKind, entityID, policies, dynamics, map[string]bool{})
	var out []string
	for id := range policies {
		out = append(out, "policy:"+id)
	}
	for id := range dynamics {
		out = append(out, "dynamic_policy:"+id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) AllNetworks() []model.Network {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Network, 0, len(s.networks))
	for _, n := range s.networks {
		out = append(out, n)
	}
	return out
}

func (s *Store) AllPolicyTerms(policyID string) []model.PolicyTerm {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[policyID]
	if !ok {
		return nil
	}
	return append([]model.PolicyTerm{}, p.Terms...)
}

// ---- helpers ----

func (s *Store) checkUniqueNameLocked(kind, name, id string) error {
	var names map[string]string // name -> id, rebuilt per kind
	switch kind {
	case "network":
		names = map[string]string{}
		for _, n := range s.networks {
			names[n.Name] = n.ID
		}
	case "service":
		names = map[string]string{}
		for _, n := range s.services {
			names[n.Name] = n.ID
		}
	case "policy":
		names = map[string]string{}
		for _, n := range s.policies {
			names[n.Name] = n.ID
		}
	case "dynamic_policy":
		names = map[string]string{}
		for _, n := range s.dynamicPolicies {
			names[n.Name] = n.ID
		}
	case "target":
		names = map[string]string{}
		for _, n := range s.targets {
			names[n.Name] = n.ID
		}
	case "test":
		names = map[string]string{}
		for _, n := range s.tests {
			names[n.Name] = n.ID
		}
	case "deployer":
		names = map[string]string{}
		for _, n := range s.deployers {
			names[n.Name] = n.ID
		}
	}
	if existingID, ok := names[name]; ok && existingID != id {
		return apperr.Conflict("name", name)
	}
	return nil
}

func containsString(list []string, needle string) bool {
	for _, v := range list {
		if v == needle {
			return true
		}
	}
	return false
}

func matchesFilter(id, name string, f store.ListFilter) bool {
	if f.ID != "" && id != f.ID {
		return false
	}
	if len(f.IDIn) > 0 && !containsString(f.IDIn, id) {
		return false
	}
	if f.Name != "" && name != f.Name {
		return false
	}
	if f.NameILike != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(f.NameILike)) {
		return false
	}
	return true
}

func paginate[T any](items []T, f store.ListFilter) []T {
	if f.Size <= 0 {
		return items
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * f.Size
	if start >= len(items) {
		return nil
	}
	end := start + f.Size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func paginateRevisions(items []model.Revision, f store.ListFilter) []model.Revision {
	return paginate(items, f)
}

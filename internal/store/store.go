// Package store defines the object store contract of spec §4.1: CRUD on
// every authoring entity, the edit-propagation walk (invariant 5), and
// referential-deletion checks (invariant 7). Two implementations satisfy
// this interface: internal/store/pg (Postgres via pgx/sqlx) for production,
// and internal/store/memstore (in-process) for tests.
package store

import "github.com/DataDog/netacld/internal/model"

// Store is the full object store surface used by the API layer, the
// compiler, the dynamic resolver and the revision manager.
type Store interface {
	// Networks
	CreateNetwork(n *model.Network) error
	GetNetwork(id string) (model.Network, error)
	ListNetworks(f ListFilter) ([]model.Network, int, error)
	UpdateNetwork(n *model.Network) error
	DeleteNetwork(id string) error

	// Services
	CreateService(s *model.Service) error
	GetService(id string) (model.Service, error)
	ListServices(f ListFilter) ([]model.Service, int, error)
	UpdateService(s *model.Service) error
	DeleteService(id string) error

	// Policies
	CreatePolicy(p *model.Policy) error
	GetPolicy(id string) (model.Policy, error)
	ListPolicies(f ListFilter) ([]model.Policy, int, error)
	UpdatePolicy(p *model.Policy) error
	DeletePolicy(id string) error
	ClearEdited(policyID string) error

	// Dynamic policies
	CreateDynamicPolicy(p *model.DynamicPolicy) error
	GetDynamicPolicy(id string) (model.DynamicPolicy, error)
	ListDynamicPolicies(f ListFilter) ([]model.DynamicPolicy, int, error)
	UpdateDynamicPolicy(p *model.DynamicPolicy) error
	DeleteDynamicPolicy(id string) error
	ClearDynamicEdited(id string) error

	// Targets
	CreateTarget(t *model.Target) error
	GetTarget(id string) (model.Target, error)
	ListTargets(f ListFilter) ([]model.Target, int, error)
	UpdateTarget(t *model.Target) error
	DeleteTarget(id string) error

	// Tests
	CreateTest(t *model.Test) error
	GetTest(id string) (model.Test, error)
	ListTests(f ListFilter) ([]model.Test, int, error)
	UpdateTest(t *model.Test) error
	DeleteTest(id string) error

	// Deployers
	CreateDeployer(d *model.Deployer) error
	GetDeployer(id string) (model.Deployer, error)
	ListDeployers(f ListFilter) ([]model.Deployer, int, error)
	UpdateDeployer(d *model.Deployer) error
	DeleteDeployer(id string) error
	DeployersForTarget(targetID string) ([]model.Deployer, error)

	// Deployments
	CreateDeployment(d *model.Deployment) error
	GetDeployment(id string) (model.Deployment, error)
	UpdateDeployment(d *model.Deployment) error

	// Revisions
	CreateRevision(r *model.Revision) error
	GetRevision(id string) (model.Revision, error)
	ListRevisions(f ListFilter) ([]model.Revision, int, error)

	// Graph / propagation primitives (spec §4.1, §9 "usage" supplement)
	PropagateEdit(entityKind string, entityID string) error
	UsageOf(entityKind string, entityID string) ([]string, error)

	// All* are bulk accessors used by the dynamic resolver and compiler,
	// which need to walk the full network/policy graph rather than fetch
	// one id at a time.
	AllNetworks() []model.Network
	AllPolicyTerms(policyID string) []model.PolicyTerm
}

// ListFilter captures the list/get filtering, pagination and ordering
// surface named in spec §6 (id, id__in, name, name__ilike, page, size,
// order_by). The REST shape that parses query params into this struct is
// an external collaborator (spec §1); this type is its target.
type ListFilter struct {
	ID        string
	IDIn      []string
	Name      string
	NameILike string
	Page      int
	Size      int
	OrderBy   string // optional leading +/- then a field name
}

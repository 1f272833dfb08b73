package api

import (
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/DataDog/netacld/internal/auth"
	"github.com/DataDog/netacld/internal/dispatch"
	"github.com/DataDog/netacld/internal/model"
	"github.com/DataDog/netacld/internal/revision"
	"github.com/DataDog/netacld/internal/store"
)

// Deps is everything the router needs to build handlers; main wires this up
// once at process start.
type Deps struct {
	Store      store.Store
	Auth       *auth.Authenticator
	Revisions  *revision.Manager
	Dispatcher *dispatch.Dispatcher
	Log        *logrus.Entry
}

// NewRouter builds the full /api/v1 surface of spec §6.
func NewRouter(d Deps) *mux.Router {
	root := mux.NewRouter()
	root.Use(withRequestID(d.Log))

	api := root.PathPrefix("/api/v1").Subrouter()

	authMW := func(scope string) mux.MiddlewareFunc {
		return requireScope(d.Auth, scope)
	}

	crud[model.Network]{
		create: d.Store.CreateNetwork,
		get:    d.Store.GetNetwork,
		list:   d.Store.ListNetworks,
		update: d.Store.UpdateNetwork,
		delete: d.Store.DeleteNetwork,
		setID:  func(n *model.Network, id string) { n.ID = id },
		scope:  "networks",
	}.mount(api, authMW, "/networks")

	crud[model.Service]{
		create: d.Store.CreateService,
		get:    d.Store.GetService,
		list:   d.Store.ListServices,
		update: d.Store.UpdateService,
		delete: d.Store.DeleteService,
		setID:  func(s *model.Service, id string) { s.ID = id },
		scope:  "services",
	}.mount(api, authMW, "/services")

	crud[model.Policy]{
		create: d.Store.CreatePolicy,
		get:    d.Store.GetPolicy,
		list:   d.Store.ListPolicies,
		update: d.Store.UpdatePolicy,
		delete: d.Store.DeletePolicy,
		setID:  func(p *model.Policy, id string) { p.ID = id },
		scope:  "policies",
	}.mount(api, authMW, "/policies")

	crud[model.DynamicPolicy]{
		create: d.Store.CreateDynamicPolicy,
		get:    d.Store.GetDynamicPolicy,
		list:   d.Store.ListDynamicPolicies,
		update: d.Store.UpdateDynamicPolicy,
		delete: d.Store.DeleteDynamicPolicy,
		setID:  func(p *model.DynamicPolicy, id string) { p.ID = id },
		scope:  "dynamic_policies",
	}.mount(api, authMW, "/dynamic_policies")

	crud[model.Target]{
		create: d.Store.CreateTarget,
		get:    d.Store.GetTarget,
		list:   d.Store.ListTargets,
		update: d.Store.UpdateTarget,
		delete: d.Store.DeleteTarget,
		setID:  func(t *model.Target, id string) { t.ID = id },
		scope:  "targets",
	}.mount(api, authMW, "/targets")

	crud[model.Test]{
		create: d.Store.CreateTest,
		get:    d.Store.GetTest,
		list:   d.Store.ListTests,
		update: d.Store.UpdateTest,
		delete: d.Store.DeleteTest,
		setID:  func(t *model.Test, id string) { t.ID = id },
		scope:  "tests",
	}.mount(api, authMW, "/tests")

	crud[model.Deployer]{
		create: d.Store.CreateDeployer,
		get:    d.Store.GetDeployer,
		list:   d.Store.ListDeployers,
		update: d.Store.UpdateDeployer,
		delete: d.Store.DeleteDeployer,
		setID:  func(dep *model.Deployer, id string) { dep.ID = id },
		scope:  "deployers",
	}.mount(api, authMW, "/deployers")

	mountUsage(api, authMW, d)
	mountRunTests(api, authMW, d)
	mountRevisions(api, authMW, d)
	mountDeployments(api, authMW, d)
	mountToken(api, d)

	return root
}

// Package revision implements the revision manager of spec §4.7: it runs
// the coverage gate, freezes compiled artefacts, and exposes raw text for
// pull-style retrieval.
package revision

import (
	"encoding/json"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/DataDog/netacld/internal/apperr"
	"github.com/DataDog/netacld/internal/compile"
	"github.com/DataDog/netacld/internal/dynamic"
	"github.com/DataDog/netacld/internal/expand"
	"github.com/DataDog/netacld/internal/model"
	"github.com/DataDog/netacld/internal/store"
	"github.com/DataDog/netacld/internal/testrunner"
)

// Manager implements §4.7's create/run_tests/raw_config surface; deployment
// dispatch lives in internal/dispatch.
type Manager struct {
	store    store.Store
	renderer compile.Renderer
	log      *logrus.Entry
}

func New(st store.Store, renderer compile.Renderer, log *logrus.Entry) *Manager {
	return &Manager{store: st, renderer: renderer, log: log.WithField("component", "revision")}
}

// CreateRequest names either a Policy or a DynamicPolicy to snapshot.
type CreateRequest struct {
	Comment         string
	PolicyID        *string
	DynamicPolicyID *string
}

func (m *Manager) lookups() (testrunner.Lookups, func(string) (model.Network, bool), func(string) (model.Service, bool)) {
	networkByID := func(id string) (model.Network, bool) {
		n, err := m.store.GetNetwork(id)
		if err != nil {
			return model.Network{}, false
		}
		return n, true
	}
	serviceByID := func(id string) (model.Service, bool) {
		s, err := m.store.GetService(id)
		if err != nil {
			return model.Service{}, false
		}
		return s, true
	}
	return testrunner.Lookups{NetworkByID: networkByID, ServiceByID: serviceByID}, networkByID, serviceByID
}

// expandedTermsFor resolves the full, expanded term list for either a
// Policy (via the expansion engine) or a DynamicPolicy (via the resolver).
func (m *Manager) expandedTermsFor(req CreateRequest) (policyName string, terms []model.PolicyTerm, targetIDs, testIDs []string, defaultAction *model.DefaultAction, err error) {
	policyLookup := func(id string) ([]model.PolicyTerm, bool) {
		p, gerr := m.store.GetPolicy(id)
		if gerr != nil {
			return nil, false
		}
		return p.Terms, true
	}

	if req.PolicyID != nil {
		p, gerr := m.store.GetPolicy(*req.PolicyID)
		if gerr != nil {
			return "", nil, nil, nil, nil, gerr
		}
		expanded, eerr := expand.Terms(p.Terms, policyLookup)
		if eerr != nil {
			return "", nil, nil, nil, nil, eerr
		}
		return p.Name, expanded, p.TargetIDs, p.TestIDs, nil, nil
	}

	dp, gerr := m.store.GetDynamicPolicy(*req.DynamicPolicyID)
	if gerr != nil {
		return "", nil, nil, nil, nil, gerr
	}

	netStore := dynNetStoreAdapter{m.store}
	srcSelected, rerr := dynamic.Resolve(netStore, dp.SourceFilterIDs)
	if rerr != nil {
		return "", nil, nil, nil, nil, rerr
	}
	dstSelected, rerr := dynamic.Resolve(netStore, dp.DestinationFilterIDs)
	if rerr != nil {
		return "", nil, nil, nil, nil, rerr
	}

	var allTerms []model.PolicyTerm
	policies, _, lerr := m.store.ListPolicies(store.ListFilter{})
	if lerr != nil {
		return "", nil, nil, nil, nil, lerr
	}
	for _, p := range policies {
		expanded, eerr := expand.Terms(p.Terms, policyLookup)
		if eerr != nil {
			return "", nil, nil, nil, nil, eerr
		}
		allTerms = append(allTerms, expanded...)
	}

	filter := dynamic.Filter{PolicyIDs: dp.PolicyFilterIDs, Action: dp.FilterAction}
	selected := dynamic.SelectTerms(allTerms, srcSelected, dstSelected, filter)
	return dp.Name, selected, dp.TargetIDs, dp.TestIDs, dp.DefaultAction, nil
}

type dynNetStoreAdapter struct{ s store.Store }

func (a dynNetStoreAdapter) NetworkByID(id string) (model.Network, bool) {
	n, err := a.s.GetNetwork(id)
	if err != nil {
		return model.Network{}, false
	}
	return n, true
}

func (a dynNetStoreAdapter) AllNetworks() []model.Network { return a.s.AllNetworks() }

// RunTestsRequest names either a Policy or a DynamicPolicy to classify test
// cases against, mirroring CreateRequest but without running the coverage
// gate (spec §6's GET /run_tests).
type RunTestsRequest struct {
	PolicyID        *string
	DynamicPolicyID *string
}

// RunTests resolves req's expanded terms and classifies every associated
// Test's cases against them, returning the same pass/fail/coverage triple
// the coverage gate itself consults.
func (m *Manager) RunTests(req RunTestsRequest) ([]testrunner.CaseResult, []string, float64, error) {
	if (req.PolicyID == nil) == (req.DynamicPolicyID == nil) {
		return nil, nil, 0, apperr.Invalid("policy_id", "exactly one of policy_id or dynamic_policy_id must be set")
	}
	_, terms, _, testIDs, _, err := m.expandedTermsFor(CreateRequest{PolicyID: req.PolicyID, DynamicPolicyID: req.DynamicPolicyID})
	if err != nil {
		return nil, nil, 0, err
	}

	var cases []model.TestCase
	for _, tid := range testIDs {
		test, terr := m.store.GetTest(tid)
		if terr != nil {
			continue
		}
		cases = append(cases, test.Cases...)
	}

	lookups, _, _ := m.lookups()
	results, coverage, notMatched := testrunner.Run(terms, cases, lookups)
	return results, notMatched, coverage, nil
}

// Create runs the coverage gate (spec §4.7 step 1), freezes the snapshot,
// compiles a RevisionConfig per associated Target, and persists the
// Revision, clearing `edited` on success.
func (m *Manager) Create(req CreateRequest) (model.Revision, error) {
	if (req.PolicyID == nil) == (req.DynamicPolicyID == nil) {
		return model.Revision{}, apperr.Invalid("policy_id", "exactly one of policy_id or dynamic_policy_id must be set")
	}

	policyName, terms, targetIDs, testIDs, defaultAction, err := m.expandedTermsFor(req)
	if err != nil {
		return model.Revision{}, err
	}

	tlLookups, networkByID, serviceByID := m.lookups()

	var cases []model.TestCase
	for _, tid := range testIDs {
		test, terr := m.store.GetTest(tid)
		if terr != nil {
			continue
		}
		cases = append(cases, test.Cases...)
	}

	_, coverage, _ := testrunner.Run(terms, cases, tlLookups)
	if coverage < 1.0 {
		return model.Revision{}, apperr.InsufficientCoverage(coverage)
	}

	jsonData, err := json.Marshal(snapshotOf(req, policyName))
	if err != nil {
		return model.Revision{}, err
	}
	expandedJSON, err := json.Marshal(terms)
	if err != nil {
		return model.Revision{}, err
	}

	sortedTargetIDs := append([]string{}, targetIDs...)
	sort.Strings(sortedTargetIDs)

	var configs []model.RevisionConfig
	for _, tid := range sortedTargetIDs {
		target, terr := m.store.GetTarget(tid)
		if terr != nil {
			continue
		}
		res, cerr := compile.Compile(policyName, terms, target, defaultAction, networkByID, serviceByID, m.renderer)
		if cerr != nil {
			return model.Revision{}, cerr
		}
		configs = append(configs, model.RevisionConfig{
			TargetID:   tid,
			Config:     res.ConfigText,
			FilterName: res.FilterName,
			Filename:   res.Filename,
		})
	}

	rev := &model.Revision{
		Comment:         req.Comment,
		PolicyID:        req.PolicyID,
		DynamicPolicyID: req.DynamicPolicyID,
		JSONData:        jsonData,
		ExpandedTerms:   expandedJSON,
		Configs:         configs,
	}
	if err := m.store.CreateRevision(rev); err != nil {
		return model.Revision{}, err
	}

	if req.PolicyID != nil {
		_ = m.store.ClearEdited(*req.PolicyID)
	} else {
		_ = m.store.ClearDynamicEdited(*req.DynamicPolicyID)
	}

	m.log.WithField("revision_id", rev.ID).Info("revision created")
	return *rev, nil
}

func snapshotOf(req CreateRequest, policyName string) map[string]any {
	return map[string]any{
		"name":              policyName,
		"policy_id":         req.PolicyID,
		"dynamic_policy_id": req.DynamicPolicyID,
	}
}

// RawConfig returns the stored text verbatim for a (revision, target) pair
// (spec §4.7 raw_config).
func (m *Manager) RawConfig(revisionID, targetID string) (string, error) {
	rev, err := m.store.GetRevision(revisionID)
	if err != nil {
		return "", err
	}
	for _, c := range rev.Configs {
		if c.TargetID == targetID {
			return c.Config, nil
		}
	}
	return "", apperr.NotFound("revision_config", targetID)
}

// RawConfigByHash authorises a pull by matching the BLAKE2b-16 hash of the
// stored config against the URL segment (spec §6, §8 scenario 6).
func (m *Manager) RawConfigByHash(revisionID, targetID, hash string) (string, error) {
	text, err := m.RawConfig(revisionID, targetID)
	if err != nil {
		return "", err
	}
	if ConfigHash(text) != hash {
		return "", apperr.NotFound("revision_config", targetID)
	}
	return text, nil
}

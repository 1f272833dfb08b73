// Package testrunner implements the test runner and coverage calculation of
// spec §4.6: for each TestCase it classifies the 5-tuple against the
// compiled (expanded) policy and reports the first matching term.
package testrunner

import (
	"net/netip"
	"strconv"
	"strings"

	"github.com/DataDog/netacld/internal/expand"
	"github.com/DataDog/netacld/internal/model"
)

const wildcard = "any"

// Lookups bundles the accessors needed to resolve a term's network/service
// references down to concrete CIDRs and protocol/port leaves.
type Lookups struct {
	NetworkByID func(id string) (model.Network, bool)
	ServiceByID func(id string) (model.Service, bool)
}

// CaseResult is one TestCase's verdict.
type CaseResult struct {
	Case         model.TestCase
	Passed       bool
	MatchedTerm  *model.PolicyTerm
}

// Run classifies every case against terms (already expanded, in order) and
// reports pass/fail plus which expanded terms were never matched by a
// passing case.
func Run(terms []model.PolicyTerm, cases []model.TestCase, lookups Lookups) (results []CaseResult, coverage float64, notMatchedTermIDs []string) {
	matchedIDs := map[string]bool{}

	for _, c := range cases {
		term, action := classify(terms, c, lookups)
		res := CaseResult{Case: c}
		if term != nil {
			res.MatchedTerm = term
			if action == c.ExpectedAction {
				res.Passed = true
				matchedIDs[term.ID] = true
			}
		}
		results = append(results, res)
	}

	enabled := 0
	for _, t := range terms {
		if !t.Enabled {
			continue
		}
		enabled++
		if !matchedIDs[t.ID] {
			notMatchedTermIDs = append(notMatchedTermIDs, t.ID)
		}
	}

	if enabled == 0 {
		return results, 1.0, notMatchedTermIDs
	}
	coverage = float64(len(matchedIDs)) / float64(enabled)
	return results, coverage, notMatchedTermIDs
}

// classify returns the first enabled term whose source/destination/service
// predicates match the test case, and the action it would take.
func classify(terms []model.PolicyTerm, c model.TestCase, lookups Lookups) (*model.PolicyTerm, model.Action) {
	for i := range terms {
		t := &terms[i]
		if !t.Enabled || t.IsNested() {
			continue
		}
		if !matchSide(t.SourceNetworks, t.NegateSrc, c.SourceCIDR, lookups) {
			continue
		}
		if !matchSide(t.DestinationNetworks, t.NegateDst, c.DestCIDR, lookups) {
			continue
		}
		if !matchService(t.SourceServices, c.Protocol, c.SourcePort, lookups) {
			continue
		}
		if !matchService(t.DestinationServices, c.Protocol, c.DestPort, lookups) {
			continue
		}
		return t, t.Action
	}
	return nil, ""
}

func matchSide(networkIDs []string, negated bool, probe string, lookups Lookups) bool {
	if len(networkIDs) == 0 || probe == "" || probe == wildcard {
		return true
	}
	addr, err := netip.ParsePrefix(probe)
	if err != nil {
		if ip, err2 := netip.ParseAddr(probe); err2 == nil {
			addr = netip.PrefixFrom(ip, ip.BitLen())
		} else {
			return false
		}
	}

	in := false
	lookup := func(id string) (model.Network, bool) { return lookups.NetworkByID(id) }
	for _, id := range networkIDs {
		net, ok := lookups.NetworkByID(id)
		if !ok {
			continue
		}
		cidrs, err := expand.NetworkCIDRs(net, lookup)
		if err != nil {
			continue
		}
		for _, c := range cidrs {
			if c.Overlaps(addr) || c.Contains(addr.Addr()) {
				in = true
				break
			}
		}
		if in {
			break
		}
	}

	if negated {
		return !in
	}
	return in
}

func matchService(serviceIDs []string, probeProto, probePort string, lookups Lookups) bool {
	if len(serviceIDs) == 0 || probeProto == "" || probeProto == wildcard {
		return true
	}
	lookup := func(id string) (model.Service, bool) { return lookups.ServiceByID(id) }
	for _, id := range serviceIDs {
		svc, ok := lookups.ServiceByID(id)
		if !ok {
			continue
		}
		leaves, err := expand.ServiceLeaves(svc, lookup)
		if err != nil {
			continue
		}
		for _, leaf := range leaves {
			if string(leaf.Protocol) != probeProto {
				continue
			}
			if leaf.Protocol == model.ProtocolICMP {
				return true
			}
			if probePort == "" || probePort == wildcard {
				return true
			}
			if leaf.Port == nil {
				continue
			}
			port, err := strconv.Atoi(probePort)
			if err != nil {
				continue
			}
			if port >= leaf.Port.Low && port <= leaf.Port.High {
				return true
			}
		}
	}
	return false
}

// CoveragePercent renders a coverage ratio the way spec §8 scenario 4's
// error message does ("Test coverage 67% is lower than...").
func CoveragePercent(coverage float64) string {
	return strings.TrimRight(strconv.FormatFloat(coverage*100, 'f', 0, 64), " ") + "%"
}

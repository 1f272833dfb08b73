package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/DataDog/netacld/internal/apperr"
	"github.com/DataDog/netacld/internal/revision"
	"github.com/DataDog/netacld/internal/testrunner"
)

type runTestsCaseView struct {
	Case        any    `json:"case"`
	Passed      bool   `json:"passed"`
	MatchedTerm string `json:"matched_term,omitempty"`
}

type runTestsResponse struct {
	Tests           []runTestsCaseView `json:"tests"`
	NotMatchedTerms []string           `json:"not_matched_terms"`
	Coverage        float64            `json:"coverage"`
}

// mountRunTests registers GET /run_tests?policy_id=…|dynamic_policy_id=…,
// per spec §6.
func mountRunTests(r *mux.Router, authMW func(string) mux.MiddlewareFunc, d Deps) {
	handler := authMW("policies:read")(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		policyID := q.Get("policy_id")
		dynamicID := q.Get("dynamic_policy_id")
		if (policyID == "") == (dynamicID == "") {
			writeError(w, apperr.Invalid("policy_id", "exactly one of policy_id or dynamic_policy_id must be given"))
			return
		}

		runReq := revision.RunTestsRequest{}
		if policyID != "" {
			runReq.PolicyID = &policyID
		} else {
			runReq.DynamicPolicyID = &dynamicID
		}

		results, notMatched, coverage, err := d.Revisions.RunTests(runReq)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, runTestsResponse{
			Tests:           renderCases(results),
			NotMatchedTerms: notMatched,
			Coverage:        coverage,
		})
	}))
	r.Handle("/run_tests", handler).Methods(http.MethodGet)
}

func renderCases(results []testrunner.CaseResult) []runTestsCaseView {
	views := make([]runTestsCaseView, 0, len(results))
	for _, res := range results {
		v := runTestsCaseView{Case: res.Case, Passed: res.Passed}
		if res.MatchedTerm != nil {
			v.MatchedTerm = res.MatchedTerm.ID
		}
		views = append(views, v)
	}
	return views
}

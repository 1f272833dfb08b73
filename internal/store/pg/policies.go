package pg

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/DataDog/netacld/internal/apperr"
	"github.com/DataDog/netacld/internal/model"
	"github.com/DataDog/netacld/internal/store"
)

// policyDoc is the JSON shape stored in policies.data; id/name/edited live
// in real columns so they can be filtered and constrained directly.
type policyDoc struct {
	Comment   string             `json:"comment"`
	Header    string             `json:"header"`
	Terms     []model.PolicyTerm `json:"terms"`
	TargetIDs []string           `json:"target_ids"`
	TestIDs   []string           `json:"test_ids"`
}

type policyRow struct {
	docRow
	Edited bool `db:"edited"`
}

// validatePolicyTerms ports memstore's validatePolicyTermsLocked: each term
// must validate on its own, term names must be unique within the policy, and
// a nested_policy_id must not close a cycle.
func validatePolicyTerms(p *model.Policy, policies map[string]model.Policy) error {
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
			if err := checkPolicyAcyclic(policies, p.ID, *t.NestedPolicyID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) CreatePolicy(p *model.Policy) error {
	if p.ID == "" {
		p.ID = newID()
	}
	policies, err := s.loadAllPolicies()
	if err != nil {
		return err
	}
	p.AssignTermPositions()
	if err := validatePolicyTerms(p, policies); err != nil {
		return err
	}
	data, err := marshalDoc(policyDoc{Comment: p.Comment, Header: p.Header, Terms: p.Terms, TargetIDs: p.TargetIDs, TestIDs: p.TestIDs})
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = s.db.Exec(
		`INSERT INTO policies (id, name, edited, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $5)`,
		p.ID, p.Name, p.Edited, data, now,
	)
	if isUniqueViolation(err) {
		return apperr.Conflict("name", p.Name)
	}
	if err != nil {
		return err
	}
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

func (s *Store) GetPolicy(id string) (model.Policy, error) {
	var row policyRow
	err := s.db.Get(&row, `SELECT id, name, edited, data, created_at, updated_at FROM policies WHERE id = $1`, id)
	if err != nil {
		return model.Policy{}, wrapNotFound(err, "policy", id)
	}
	return decodePolicy(row)
}

func (s *Store) ListPolicies(f store.ListFilter) ([]model.Policy, int, error) {
	query, args := buildListQuery("policies", f)
	query = insertColumn(query, "edited")
	var rows []policyRow
	if err := s.db.Select(&rows, query, args...); err != nil {
		return nil, 0, err
	}
	out := make([]model.Policy, 0, len(rows))
	for _, row := range rows {
		p, err := decodePolicy(row)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	total, err := s.countRows("policies", f)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) UpdatePolicy(p *model.Policy) error {
	policies, err := s.loadAllPolicies()
	if err != nil {
		return err
	}
	p.AssignTermPositions()
	if err := validatePolicyTerms(p, policies); err != nil {
		return err
	}
	data, err := marshalDoc(policyDoc{Comment: p.Comment, Header: p.Header, Terms: p.Terms, TargetIDs: p.TargetIDs, TestIDs: p.TestIDs})
	if err != nil {
		return err
	}
	now := time.Now()
	res, err := s.db.Exec(
		`UPDATE policies SET name = $2, edited = $3, data = $4, updated_at = $5 WHERE id = $1`,
		p.ID, p.Name, p.Edited, data, now,
	)
	if isUniqueViolation(err) {
		return apperr.Conflict("name", p.Name)
	}
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.NotFound("policy", p.ID)
	}
	p.UpdatedAt = now
	return s.PropagateEdit("policy", p.ID)
}

func (s *Store) DeletePolicy(id string) error {
	policies, err := s.loadAllPolicies()
	if err != nil {
		return err
	}
	if policyReferencedByOther(policies, id) {
		return apperr.ReferentialInUse("policy", id)
	}
	return s.deleteByID("policies", "policy", id)
}

func (s *Store) ClearEdited(policyID string) error {
	res, err := s.db.Exec(`UPDATE policies SET edited = false WHERE id = $1`, policyID)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.NotFound("policy", policyID)
	}
	return nil
}

func (s *Store) AllPolicyTerms(policyID string) []model.PolicyTerm {
	p, err := s.GetPolicy(policyID)
	if err != nil {
		return nil
	}
	return p.Terms
}

func decodePolicy(row policyRow) (model.Policy, error) {
	var doc policyDoc
	if err := json.Unmarshal(row.Data, &doc); err != nil {
		return model.Policy{}, err
	}
	return model.Policy{
		ID: row.ID, Name: row.Name, Comment: doc.Comment, Edited: row.Edited,
		Header: doc.Header, Terms: doc.Terms, TargetIDs: doc.TargetIDs, TestIDs: doc.TestIDs,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}, nil
}

// insertColumn splices an extra SELECT column into a buildListQuery result,
// since the base helper only knows about the common id/name/data columns.
func insertColumn(query, column string) string {
	return strings.Replace(query, "SELECT id, name, data", "SELECT id, name, "+column+", data", 1)
}

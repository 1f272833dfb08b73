package pg

import (
	"encoding/json"
	"time"

	"github.com/DataDog/netacld/internal/apperr"
	"github.com/DataDog/netacld/internal/model"
	"github.com/DataDog/netacld/internal/store"
)

type dynamicPolicyDoc struct {
	FilterAction         *model.Action        `json:"filter_action"`
	DefaultAction        *model.DefaultAction `json:"default_action"`
	SourceFilterIDs      []string             `json:"source_filter_ids"`
	DestinationFilterIDs []string             `json:"destination_filter_ids"`
	PolicyFilterIDs      []string             `json:"policy_filter_ids"`
	TargetIDs            []string             `json:"target_ids"`
	TestIDs              []string             `json:"test_ids"`
}

func (s *Store) CreateDynamicPolicy(p *model.DynamicPolicy) error {
	if p.ID == "" {
		p.ID = newID()
	}
	data, err := marshalDoc(dynamicPolicyToDoc(p))
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = s.db.Exec(
		`INSERT INTO dynamic_policies (id, name, edited, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $5)`,
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

func (s *Store) GetDynamicPolicy(id string) (model.DynamicPolicy, error) {
	var row policyRow
	err := s.db.Get(&row, `SELECT id, name, edited, data, created_at, updated_at FROM dynamic_policies WHERE id = $1`, id)
	if err != nil {
		return model.DynamicPolicy{}, wrapNotFound(err, "dynamic_policy", id)
	}
	return decodeDynamicPolicy(row)
}

func (s *Store) ListDynamicPolicies(f store.ListFilter) ([]model.DynamicPolicy, int, error) {
	query, args := buildListQuery("dynamic_policies", f)
	query = insertColumn(query, "edited")
	var rows []policyRow
	if err := s.db.Select(&rows, query, args...); err != nil {
		return nil, 0, err
	}
	out := make([]model.DynamicPolicy, 0, len(rows))
	for _, row := range rows {
		p, err := decodeDynamicPolicy(row)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	total, err := s.countRows("dynamic_policies", f)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) UpdateDynamicPolicy(p *model.DynamicPolicy) error {
	data, err := marshalDoc(dynamicPolicyToDoc(p))
	if err != nil {
		return err
	}
	now := time.Now()
	res, err := s.db.Exec(
		`UPDATE dynamic_policies SET name = $2, edited = $3, data = $4, updated_at = $5 WHERE id = $1`,
		p.ID, p.Name, p.Edited, data, now,
	)
	if isUniqueViolation(err) {
		return apperr.Conflict("name", p.Name)
	}
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.NotFound("dynamic_policy", p.ID)
	}
	p.UpdatedAt = now
	return nil
}

func (s *Store) DeleteDynamicPolicy(id string) error {
	return s.deleteByID("dynamic_policies", "dynamic_policy", id)
}

func (s *Store) ClearDynamicEdited(id string) error {
	res, err := s.db.Exec(`UPDATE dynamic_policies SET edited = false WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.NotFound("dynamic_policy", id)
	}
	return nil
}

func dynamicPolicyToDoc(p *model.DynamicPolicy) dynamicPolicyDoc {
	return dynamicPolicyDoc{
		FilterAction: p.FilterAction, DefaultAction: p.DefaultAction,
		SourceFilterIDs: p.SourceFilterIDs, DestinationFilterIDs: p.DestinationFilterIDs,
		PolicyFilterIDs: p.PolicyFilterIDs, TargetIDs: p.TargetIDs, TestIDs: p.TestIDs,
	}
}

func decodeDynamicPolicy(row policyRow) (model.DynamicPolicy, error) {
	var doc dynamicPolicyDoc
	if err := json.Unmarshal(row.Data, &doc); err != nil {
		return model.DynamicPolicy{}, err
	}
	return model.DynamicPolicy{
		ID: row.ID, Name: row.Name, Edited: row.Edited,
		FilterAction: doc.FilterAction, DefaultAction: doc.DefaultAction,
		SourceFilterIDs: doc.SourceFilterIDs, DestinationFilterIDs: doc.DestinationFilterIDs,
		PolicyFilterIDs: doc.PolicyFilterIDs, TargetIDs: doc.TargetIDs, TestIDs: doc.TestIDs,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}, nil
}

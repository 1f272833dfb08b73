package pg

import (
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/DataDog/netacld/internal/model"
	"github.com/DataDog/netacld/internal/store"
)

type revisionRow struct {
	ID              string         `db:"id"`
	Comment         string         `db:"comment"`
	PolicyID        sql.NullString `db:"policy_id"`
	DynamicPolicyID sql.NullString `db:"dynamic_policy_id"`
	JSONData        []byte         `db:"json_data"`
	ExpandedTerms   []byte         `db:"expanded_terms"`
	Configs         []byte         `db:"configs"`
	CreatedAt       time.Time      `db:"created_at"`
}

func (s *Store) CreateRevision(r *model.Revision) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = newID()
	}
	configs, err := marshalDoc(r.Configs)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = s.db.Exec(
		`INSERT INTO revisions (id, comment, policy_id, dynamic_policy_id, json_data, expanded_terms, configs, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.Comment, nullableString(r.PolicyID), nullableString(r.DynamicPolicyID),
		r.JSONData, r.ExpandedTerms, configs, now,
	)
	if err != nil {
		return err
	}
	r.CreatedAt = now
	return nil
}

func (s *Store) GetRevision(id string) (model.Revision, error) {
	var row revisionRow
	err := s.db.Get(&row,
		`SELECT id, comment, policy_id, dynamic_policy_id, json_data, expanded_terms, configs, created_at
		 FROM revisions WHERE id = $1`,
		id,
	)
	if err != nil {
		return model.Revision{}, wrapNotFound(err, "revision", id)
	}
	return decodeRevision(row)
}

func (s *Store) ListRevisions(f store.ListFilter) ([]model.Revision, int, error) {
	query := "SELECT id, comment, policy_id, dynamic_policy_id, json_data, expanded_terms, configs, created_at FROM revisions WHERE 1=1"
	var args []any
	n := 0
	if f.ID != "" {
		n++
		query += " AND id = $" + strconv.Itoa(n)
		args = append(args, f.ID)
	}
	query += " ORDER BY created_at ASC"
	if f.Size > 0 {
		query += " LIMIT " + strconv.Itoa(f.Size) + " OFFSET " + strconv.Itoa(pageOffset(f))
	}
	var rows []revisionRow
	if err := s.db.Select(&rows, query, args...); err != nil {
		return nil, 0, err
	}
	out := make([]model.Revision, 0, len(rows))
	for _, row := range rows {
		r, err := decodeRevision(row)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	var total int
	if err := s.db.Get(&total, "SELECT count(*) FROM revisions"); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func nullableString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func decodeRevision(row revisionRow) (model.Revision, error) {
	var configs []model.RevisionConfig
	if err := json.Unmarshal(row.Configs, &configs); err != nil {
		return model.Revision{}, err
	}
	r := model.Revision{
		ID: row.ID, Comment: row.Comment, JSONData: row.JSONData, ExpandedTerms: row.ExpandedTerms,
		Configs: configs, CreatedAt: row.CreatedAt,
	}
	if row.PolicyID.Valid {
		r.PolicyID = &row.PolicyID.String
	}
	if row.DynamicPolicyID.Valid {
		r.DynamicPolicyID = &row.DynamicPolicyID.String
	}
	return r, nil
}

package pg

import (
	"encoding/json"
	"time"

	"github.com/DataDog/netacld/internal/apperr"
	"github.com/DataDog/netacld/internal/model"
	"github.com/DataDog/netacld/internal/store"
)

type targetDoc struct {
	Generator     model.GeneratorKind        `json:"generator"`
	InetMode      model.InetMode             `json:"inet_mode"`
	Substitutions []model.TargetSubstitution `json:"substitutions"`
}

func (s *Store) CreateTarget(t *model.Target) error {
	if t.ID == "" {
		t.ID = newID()
	}
	data, err := marshalDoc(targetDoc{Generator: t.Generator, InetMode: t.InetMode, Substitutions: t.Substitutions})
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = s.db.Exec(
		`INSERT INTO targets (id, name, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`,
		t.ID, t.Name, data, now,
	)
	if isUniqueViolation(err) {
		return apperr.Conflict("name", t.Name)
	}
	if err != nil {
		return err
	}
	t.CreatedAt, t.UpdatedAt = now, now
	return nil
}

func (s *Store) GetTarget(id string) (model.Target, error) {
	var row docRow
	err := s.db.Get(&row, `SELECT id, name, data, created_at, updated_at FROM targets WHERE id = $1`, id)
	if err != nil {
		return model.Target{}, wrapNotFound(err, "target", id)
	}
	return decodeTarget(row)
}

func (s *Store) ListTargets(f store.ListFilter) ([]model.Target, int, error) {
	query, args := buildListQuery("targets", f)
	var rows []docRow
	if err := s.db.Select(&rows, query, args...); err != nil {
		return nil, 0, err
	}
	out := make([]model.Target, 0, len(rows))
	for _, row := range rows {
		t, err := decodeTarget(row)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	total, err := s.countRows("targets", f)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) UpdateTarget(t *model.Target) error {
	data, err := marshalDoc(targetDoc{Generator: t.Generator, InetMode: t.InetMode, Substitutions: t.Substitutions})
	if err != nil {
		return err
	}
	now := time.Now()
	res, err := s.db.Exec(
		`UPDATE targets SET name = $2, data = $3, updated_at = $4 WHERE id = $1`,
		t.ID, t.Name, data, now,
	)
	if isUniqueViolation(err) {
		return apperr.Conflict("name", t.Name)
	}
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.NotFound("target", t.ID)
	}
	t.UpdatedAt = now
	return s.PropagateEdit("target", t.ID)
}

func (s *Store) DeleteTarget(id string) error {
	return s.deleteByID("targets", "target", id)
}

func decodeTarget(row docRow) (model.Target, error) {
	var doc targetDoc
	if err := json.Unmarshal(row.Data, &doc); err != nil {
		return model.Target{}, err
	}
	return model.Target{
		ID: row.ID, Name: row.Name, Generator: doc.Generator, InetMode: doc.InetMode,
		Substitutions: doc.Substitutions, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}, nil
}

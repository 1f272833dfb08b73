package pg

import (
	"encoding/json"
	"time"

	"github.com/DataDog/netacld/internal/apperr"
	"github.com/DataDog/netacld/internal/model"
	"github.com/DataDog/netacld/internal/store"
)

func (s *Store) CreateTest(t *model.Test) error {
	if t.ID == "" {
		t.ID = newID()
	}
	data, err := marshalDoc(t.Cases)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = s.db.Exec(
		`INSERT INTO tests (id, name, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`,
		t.ID, t.Name, data, now,
	)
	if isUniqueViolation(err) {
		return apperr.Conflict("name", t.Name)
	}
	return err
}

func (s *Store) GetTest(id string) (model.Test, error) {
	var row docRow
	err := s.db.Get(&row, `SELECT id, name, data, created_at, updated_at FROM tests WHERE id = $1`, id)
	if err != nil {
		return model.Test{}, wrapNotFound(err, "test", id)
	}
	return decodeTest(row)
}

func (s *Store) ListTests(f store.ListFilter) ([]model.Test, int, error) {
	query, args := buildListQuery("tests", f)
	var rows []docRow
	if err := s.db.Select(&rows, query, args...); err != nil {
		return nil, 0, err
	}
	out := make([]model.Test, 0, len(rows))
	for _, row := range rows {
		t, err := decodeTest(row)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	total, err := s.countRows("tests", f)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) UpdateTest(t *model.Test) error {
	data, err := marshalDoc(t.Cases)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(
		`UPDATE tests SET name = $2, data = $3, updated_at = $4 WHERE id = $1`,
		t.ID, t.Name, data, time.Now(),
	)
	if isUniqueViolation(err) {
		return apperr.Conflict("name", t.Name)
	}
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.NotFound("test", t.ID)
	}
	return nil
}

func (s *Store) DeleteTest(id string) error {
	return s.deleteByID("tests", "test", id)
}

func decodeTest(row docRow) (model.Test, error) {
	var cases []model.TestCase
	if err := json.Unmarshal(row.Data, &cases); err != nil {
		return model.Test{}, err
	}
	return model.Test{ID: row.ID, Name: row.Name, Cases: cases}, nil
}

package pg

import (
	"encoding/json"
	"time"

	"github.com/DataDog/netacld/internal/apperr"
	"github.com/DataDog/netacld/internal/model"
	"github.com/DataDog/netacld/internal/store"
)

type deployerDoc struct {
	Git *model.GitConfig `json:"git"`
	SSH *model.SSHConfig `json:"ssh"`
}

type deployerRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	TargetID  string    `db:"target_id"`
	Mode      string    `db:"mode"`
	Data      []byte    `db:"data"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (s *Store) CreateDeployer(d *model.Deployer) error {
	if d.ID == "" {
		d.ID = newID()
	}
	data, err := marshalDoc(deployerDoc{Git: d.Git, SSH: d.SSH})
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = s.db.Exec(
		`INSERT INTO deployers (id, name, target_id, mode, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		d.ID, d.Name, d.TargetID, string(d.Mode), data, now,
	)
	if isUniqueViolation(err) {
		return apperr.Conflict("name", d.Name)
	}
	if err != nil {
		return err
	}
	d.CreatedAt, d.UpdatedAt = now, now
	return nil
}

func (s *Store) GetDeployer(id string) (model.Deployer, error) {
	var row deployerRow
	err := s.db.Get(&row, `SELECT id, name, target_id, mode, data, created_at, updated_at FROM deployers WHERE id = $1`, id)
	if err != nil {
		return model.Deployer{}, wrapNotFound(err, "deployer", id)
	}
	return decodeDeployer(row)
}

func (s *Store) ListDeployers(f store.ListFilter) ([]model.Deployer, int, error) {
	query, args := buildListQuery("deployers", f)
	query = insertColumn(query, "target_id, mode")
	var rows []deployerRow
	if err := s.db.Select(&rows, query, args...); err != nil {
		return nil, 0, err
	}
	out := make([]model.Deployer, 0, len(rows))
	for _, row := range rows {
		d, err := decodeDeployer(row)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	total, err := s.countRows("deployers", f)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) UpdateDeployer(d *model.Deployer) error {
	data, err := marshalDoc(deployerDoc{Git: d.Git, SSH: d.SSH})
	if err != nil {
		return err
	}
	now := time.Now()
	res, err := s.db.Exec(
		`UPDATE deployers SET name = $2, target_id = $3, mode = $4, data = $5, updated_at = $6 WHERE id = $1`,
		d.ID, d.Name, d.TargetID, string(d.Mode), data, now,
	)
	if isUniqueViolation(err) {
		return apperr.Conflict("name", d.Name)
	}
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.NotFound("deployer", d.ID)
	}
	d.UpdatedAt = now
	return nil
}

func (s *Store) DeleteDeployer(id string) error {
	return s.deleteByID("deployers", "deployer", id)
}

func (s *Store) DeployersForTarget(targetID string) ([]model.Deployer, error) {
	var rows []deployerRow
	err := s.db.Select(&rows,
		`SELECT id, name, target_id, mode, data, created_at, updated_at FROM deployers WHERE target_id = $1 ORDER BY name ASC`,
		targetID,
	)
	if err != nil {
		return nil, err
	}
	out := make([]model.Deployer, 0, len(rows))
	for _, row := range rows {
		d, err := decodeDeployer(row)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func decodeDeployer(row deployerRow) (model.Deployer, error) {
	var doc deployerDoc
	if err := json.Unmarshal(row.Data, &doc); err != nil {
		return model.Deployer{}, err
	}
	return model.Deployer{
		ID: row.ID, Name: row.Name, Mode: model.DeployMode(row.Mode), TargetID: row.TargetID,
		Git: doc.Git, SSH: doc.SSH, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}, nil
}

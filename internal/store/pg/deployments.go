package pg

import (
	"time"

	"github.com/DataDog/netacld/internal/apperr"
	"github.com/DataDog/netacld/internal/model"
)

type deploymentRow struct {
	ID         string    `db:"id"`
	DeployerID string    `db:"deployer_id"`
	RevisionID string    `db:"revision_id"`
	Status     string    `db:"status"`
	Output     string    `db:"output"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (s *Store) CreateDeployment(d *model.Deployment) error {
	if d.ID == "" {
		d.ID = newID()
	}
	now := time.Now()
	_, err := s.db.Exec(
		`INSERT INTO deployments (id, deployer_id, revision_id, status, output, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		d.ID, d.DeployerID, d.RevisionID, string(d.Status), d.Output, now,
	)
	if err != nil {
		return err
	}
	d.CreatedAt, d.UpdatedAt = now, now
	return nil
}

func (s *Store) GetDeployment(id string) (model.Deployment, error) {
	var row deploymentRow
	err := s.db.Get(&row,
		`SELECT id, deployer_id, revision_id, status, output, created_at, updated_at FROM deployments WHERE id = $1`,
		id,
	)
	if err != nil {
		return model.Deployment{}, wrapNotFound(err, "deployment", id)
	}
	return decodeDeployment(row), nil
}

func (s *Store) UpdateDeployment(d *model.Deployment) error {
	now := time.Now()
	res, err := s.db.Exec(
		`UPDATE deployments SET status = $2, output = $3, updated_at = $4 WHERE id = $1`,
		d.ID, string(d.Status), d.Output, now,
	)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.NotFound("deployment", d.ID)
	}
	d.UpdatedAt = now
	return nil
}

func decodeDeployment(row deploymentRow) model.Deployment {
	return model.Deployment{
		ID: row.ID, DeployerID: row.DeployerID, RevisionID: row.RevisionID,
		Status: model.DeploymentStatus(row.Status), Output: row.Output,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}
}

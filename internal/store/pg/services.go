package pg

import (
	"encoding/json"
	"time"

	"github.com/DataDog/netacld/internal/apperr"
	"github.com/DataDog/netacld/internal/model"
	"github.com/DataDog/netacld/internal/store"
)

func (s *Store) CreateService(svc *model.Service) error {
	if svc.ID == "" {
		svc.ID = newID()
	}
	for i := range svc.Entries {
		if err := svc.Entries[i].Validate(); err != nil {
			return err
		}
	}
	data, err := marshalDoc(svc.Entries)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = s.db.Exec(
		`INSERT INTO services (id, name, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`,
		svc.ID, svc.Name, data, now,
	)
	if isUniqueViolation(err) {
		return apperr.Conflict("name", svc.Name)
	}
	if err != nil {
		return err
	}
	svc.CreatedAt, svc.UpdatedAt = now, now
	return nil
}

func (s *Store) GetService(id string) (model.Service, error) {
	var row docRow
	err := s.db.Get(&row, `SELECT id, name, data, created_at, updated_at FROM services WHERE id = $1`, id)
	if err != nil {
		return model.Service{}, wrapNotFound(err, "service", id)
	}
	return decodeService(row)
}

func (s *Store) ListServices(f store.ListFilter) ([]model.Service, int, error) {
	query, args := buildListQuery("services", f)
	var rows []docRow
	if err := s.db.Select(&rows, query, args...); err != nil {
		return nil, 0, err
	}
	out := make([]model.Service, 0, len(rows))
	for _, row := range rows {
		svc, err := decodeService(row)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, svc)
	}
	total, err := s.countRows("services", f)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) UpdateService(svc *model.Service) error {
	for i := range svc.Entries {
		if err := svc.Entries[i].Validate(); err != nil {
			return err
		}
	}
	data, err := marshalDoc(svc.Entries)
	if err != nil {
		return err
	}
	now := time.Now()
	res, err := s.db.Exec(
		`UPDATE services SET name = $2, data = $3, updated_at = $4 WHERE id = $1`,
		svc.ID, svc.Name, data, now,
	)
	if isUniqueViolation(err) {
		return apperr.Conflict("name", svc.Name)
	}
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.NotFound("service", svc.ID)
	}
	svc.UpdatedAt = now
	return s.PropagateEdit("service", svc.ID)
}

func (s *Store) DeleteService(id string) error {
	services, err := s.loadAllServices()
	if err != nil {
		return err
	}
	if serviceReferencedByOther(services, id) {
		return apperr.ReferentialInUse("service", id)
	}
	return s.deleteByID("services", "service", id)
}

func decodeService(row docRow) (model.Service, error) {
	var entries []model.ServiceEntry
	if err := json.Unmarshal(row.Data, &entries); err != nil {
		return model.Service{}, err
	}
	return model.Service{
		ID: row.ID, Name: row.Name, Entries: entries,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}, nil
}

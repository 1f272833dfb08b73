package pg

import (
	"encoding/json"
	"time"

	"github.com/DataDog/netacld/internal/apperr"
	"github.com/DataDog/netacld/internal/model"
	"github.com/DataDog/netacld/internal/store"
)

func (s *Store) CreateNetwork(n *model.Network) error {
	if n.ID == "" {
		n.ID = newID()
	}
	networks, err := s.loadAllNetworks()
	if err != nil {
		return err
	}
	for i := range n.Addresses {
		if err := n.Addresses[i].Validate(); err != nil {
			return err
		}
		if n.Addresses[i].NestedNetworkID != nil {
			if err := checkNetworkAcyclic(networks, n.ID, *n.Addresses[i].NestedNetworkID); err != nil {
				return err
			}
		}
	}
	data, err := marshalDoc(n.Addresses)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = s.db.Exec(
		`INSERT INTO networks (id, name, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`,
		n.ID, n.Name, data, now,
	)
	if isUniqueViolation(err) {
		return apperr.Conflict("name", n.Name)
	}
	if err != nil {
		return err
	}
	n.CreatedAt, n.UpdatedAt = now, now
	return nil
}

func (s *Store) GetNetwork(id string) (model.Network, error) {
	var row docRow
	err := s.db.Get(&row, `SELECT id, name, data, created_at, updated_at FROM networks WHERE id = $1`, id)
	if err != nil {
		return model.Network{}, wrapNotFound(err, "network", id)
	}
	return decodeNetwork(row)
}

func (s *Store) ListNetworks(f store.ListFilter) ([]model.Network, int, error) {
	query, args := buildListQuery("networks", f)
	var rows []docRow
	if err := s.db.Select(&rows, query, args...); err != nil {
		return nil, 0, err
	}
	out := make([]model.Network, 0, len(rows))
	for _, row := range rows {
		n, err := decodeNetwork(row)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	total, err := s.countRows("networks", f)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) UpdateNetwork(n *model.Network) error {
	networks, err := s.loadAllNetworks()
	if err != nil {
		return err
	}
	for i := range n.Addresses {
		if err := n.Addresses[i].Validate(); err != nil {
			return err
		}
		if n.Addresses[i].NestedNetworkID != nil {
			if err := checkNetworkAcyclic(networks, n.ID, *n.Addresses[i].NestedNetworkID); err != nil {
				return err
			}
		}
	}
	data, err := marshalDoc(n.Addresses)
	if err != nil {
		return err
	}
	now := time.Now()
	res, err := s.db.Exec(
		`UPDATE networks SET name = $2, data = $3, updated_at = $4 WHERE id = $1`,
		n.ID, n.Name, data, now,
	)
	if isUniqueViolation(err) {
		return apperr.Conflict("name", n.Name)
	}
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.NotFound("network", n.ID)
	}
	n.UpdatedAt = now
	return s.PropagateEdit("network", n.ID)
}

func (s *Store) DeleteNetwork(id string) error {
	networks, err := s.loadAllNetworks()
	if err != nil {
		return err
	}
	if networkReferencedByOther(networks, id) {
		return apperr.ReferentialInUse("network", id)
	}
	return s.deleteByID("networks", "network", id)
}

func decodeNetwork(row docRow) (model.Network, error) {
	var addrs []model.NetworkAddress
	if err := json.Unmarshal(row.Data, &addrs); err != nil {
		return model.Network{}, err
	}
	return model.Network{
		ID: row.ID, Name: row.Name, Addresses: addrs,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}, nil
}

func (s *Store) deleteByID(table, resource, id string) error {
	res, err := s.db.Exec(`DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.NotFound(resource, id)
	}
	return nil
}

func (s *Store) countRows(table string, f store.ListFilter) (int, error) {
	noPaginate := f
	noPaginate.Page, noPaginate.Size = 0, 0
	query, args := buildListQuery(table, noPaginate)
	query = "SELECT count(*) FROM (" + query + ") AS t"
	var count int
	if err := s.db.Get(&count, query, args...); err != nil {
		return 0, err
	}
	return count, nil
}

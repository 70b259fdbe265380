package pg

import (
	"context"
	"database/sql"
	"errors"

	"fieldops.app/internal/codes"
	"fieldops.app/internal/equipment"
	"fieldops.app/internal/ids"
	"fieldops.app/internal/svcerr"
)

// Equipment returns the equipment service backed by this store.
func (s *Store) Equipment() equipment.Service { return &equipmentStore{s: s} }

type equipmentStore struct{ s *Store }

const equipmentCols = "id, project_id, uid, name, coalesce(category,''), coalesce(room,''), coalesce(status,''), coalesce(serial_no,''), coalesce(ip_address,''), coalesce(mac_address,''), created_at, updated_at"

func scanEquipment(row interface{ Scan(...any) error }) (equipment.Equipment, error) {
	var e equipment.Equipment
	err := row.Scan(&e.ID, &e.ProjectID, &e.UID, &e.Name, &e.Category, &e.Room,
		&e.Status, &e.SerialNo, &e.IPAddress, &e.MACAddress, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (es *equipmentStore) GetAll(ctx context.Context, f equipment.Filter) ([]equipment.Equipment, error) {
	if !es.s.configured() {
		return nil, nil
	}
	var c cond
	c.Eq("project_id", f.ProjectID)
	c.Eq("room", f.Room)
	c.In("category", f.Categories)
	c.Search(f.Search, "name", "serial_no")

	rows, err := es.s.db.QueryContext(ctx,
		"select "+equipmentCols+" from equipment"+c.Where()+" order by uid asc", c.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []equipment.Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (es *equipmentStore) GetByID(ctx context.Context, id string) (*equipment.Equipment, error) {
	if !es.s.configured() {
		return nil, nil
	}
	e, err := scanEquipment(es.s.db.QueryRowContext(ctx,
		"select "+equipmentCols+" from equipment where id=$1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create assigns the next gap-filling EQ-### UID within the project. The
// number is computed from a live listing and can collide under concurrent
// creates; see package codes.
func (es *equipmentStore) Create(ctx context.Context, e equipment.Equipment) (equipment.Equipment, error) {
	if !es.s.configured() {
		return equipment.Equipment{}, errNotConfigured()
	}
	if e.ProjectID == "" {
		return equipment.Equipment{}, svcerr.Wrap(svcerr.Invalid, equipment.ErrMissingProject.Error(), equipment.ErrMissingProject)
	}
	if e.Name == "" {
		return equipment.Equipment{}, svcerr.Wrap(svcerr.Invalid, equipment.ErrMissingName.Error(), equipment.ErrMissingName)
	}
	if e.UID == "" {
		existing, err := es.existingUIDs(ctx, e.ProjectID)
		if err != nil {
			return equipment.Equipment{}, normalizeWriteErr(err, "failed to list equipment codes")
		}
		e.UID = codes.EquipmentUID(codes.NextGapFill(existing))
	}
	if e.ID == "" {
		e.ID = ids.New()
	}
	row := es.s.db.QueryRowContext(ctx, `
		insert into equipment(id, project_id, uid, name, category, room, status, serial_no, ip_address, mac_address)
		values ($1,$2,$3,$4,nullif($5,''),nullif($6,''),nullif($7,''),nullif($8,''),nullif($9,''),nullif($10,''))
		returning `+equipmentCols,
		e.ID, e.ProjectID, e.UID, e.Name, e.Category, e.Room, e.Status, e.SerialNo, e.IPAddress, e.MACAddress)
	created, err := scanEquipment(row)
	if err != nil {
		return equipment.Equipment{}, normalizeWriteErr(err, "failed to create equipment")
	}
	return created, nil
}

func (es *equipmentStore) existingUIDs(ctx context.Context, projectID string) ([]string, error) {
	rows, err := es.s.db.QueryContext(ctx, `select uid from equipment where project_id=$1`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		out = append(out, uid)
	}
	return out, rows.Err()
}

func (es *equipmentStore) Update(ctx context.Context, id string, patch map[string]any) (equipment.Equipment, error) {
	if !es.s.configured() {
		return equipment.Equipment{}, errNotConfigured()
	}
	set, args := buildUpdate(patch, 2)
	row := es.s.db.QueryRowContext(ctx,
		"update equipment set "+set+" where id=$1 returning "+equipmentCols,
		append([]any{id}, args...)...)
	e, err := scanEquipment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return equipment.Equipment{}, svcerr.Wrap(svcerr.NotFound, "equipment not found", equipment.ErrNotFound)
	}
	if err != nil {
		return equipment.Equipment{}, normalizeWriteErr(err, "failed to update equipment")
	}
	return e, nil
}

func (es *equipmentStore) Delete(ctx context.Context, id string) error {
	if !es.s.configured() {
		return errNotConfigured()
	}
	res, err := es.s.db.ExecContext(ctx, `delete from equipment where id=$1`, id)
	if err != nil {
		return normalizeWriteErr(err, "failed to delete equipment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return svcerr.Wrap(svcerr.NotFound, "equipment not found", equipment.ErrNotFound)
	}
	return nil
}

// LinkSecureData removes every existing link for the equipment and reinserts
// the given set, first item primary. The two steps are separate statements:
// a failure after the delete leaves the equipment with no links, and two
// concurrent callers race with last-writer-wins.
func (es *equipmentStore) LinkSecureData(ctx context.Context, equipmentID string, secureDataIDs []string) ([]equipment.SecureLink, error) {
	if !es.s.configured() {
		return nil, errNotConfigured()
	}
	if _, err := es.s.db.ExecContext(ctx,
		`delete from equipment_secure_links where equipment_id=$1`, equipmentID); err != nil {
		return nil, normalizeWriteErr(err, "failed to clear secure links")
	}
	links := make([]equipment.SecureLink, 0, len(secureDataIDs))
	for i, sid := range secureDataIDs {
		l := equipment.SecureLink{EquipmentID: equipmentID, SecureDataID: sid, Primary: i == 0}
		if _, err := es.s.db.ExecContext(ctx, `
			insert into equipment_secure_links(equipment_id, secure_data_id, is_primary)
			values ($1,$2,$3)
		`, l.EquipmentID, l.SecureDataID, l.Primary); err != nil {
			return links, svcerr.Wrap(svcerr.Partial,
				"secure links partially replaced; prior links were removed", err)
		}
		links = append(links, l)
	}
	return links, nil
}

func (es *equipmentStore) UnlinkSecureData(ctx context.Context, equipmentID, secureDataID string) error {
	if !es.s.configured() {
		return errNotConfigured()
	}
	_, err := es.s.db.ExecContext(ctx,
		`delete from equipment_secure_links where equipment_id=$1 and secure_data_id=$2`,
		equipmentID, secureDataID)
	return normalizeWriteErr(err, "failed to unlink secure data")
}

func (es *equipmentStore) GetSecureLinks(ctx context.Context, equipmentID string) ([]equipment.SecureLink, error) {
	if !es.s.configured() {
		return nil, nil
	}
	rows, err := es.s.db.QueryContext(ctx, `
		select equipment_id, secure_data_id, is_primary
		from equipment_secure_links where equipment_id=$1
		order by is_primary desc, secure_data_id asc
	`, equipmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []equipment.SecureLink
	for rows.Next() {
		var l equipment.SecureLink
		if err := rows.Scan(&l.EquipmentID, &l.SecureDataID, &l.Primary); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

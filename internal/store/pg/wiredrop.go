package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"fieldops.app/internal/codes"
	"fieldops.app/internal/ids"
	"fieldops.app/internal/svcerr"
	"fieldops.app/internal/wiredrop"
)

// WireDrops returns the wire-drop service backed by this store.
func (s *Store) WireDrops() wiredrop.Service { return &wiredropStore{s: s} }

type wiredropStore struct{ s *Store }

const dropCols = "id, project_id, uid, name, room, coalesce(type,''), coalesce(cable_type,''), created_at, updated_at"

func scanDrop(row interface{ Scan(...any) error }) (wiredrop.Drop, error) {
	var d wiredrop.Drop
	err := row.Scan(&d.ID, &d.ProjectID, &d.UID, &d.Name, &d.Room, &d.Type, &d.CableType, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (ws *wiredropStore) GetAll(ctx context.Context, f wiredrop.Filter) ([]wiredrop.Drop, error) {
	if !ws.s.configured() {
		return nil, nil
	}
	var c cond
	c.Eq("project_id", f.ProjectID)
	c.Eq("room", f.Room)
	c.In("type", f.Types)
	c.Search(f.Search, "name", "uid")

	rows, err := ws.s.db.QueryContext(ctx,
		"select "+dropCols+" from wire_drops"+c.Where()+" order by room asc, name asc", c.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []wiredrop.Drop
	for rows.Next() {
		d, err := scanDrop(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (ws *wiredropStore) GetByID(ctx context.Context, id string) (*wiredrop.Drop, error) {
	if !ws.s.configured() {
		return nil, nil
	}
	d, err := scanDrop(ws.s.db.QueryRowContext(ctx,
		"select "+dropCols+" from wire_drops where id=$1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (ws *wiredropStore) Create(ctx context.Context, d wiredrop.Drop) (wiredrop.Drop, error) {
	if !ws.s.configured() {
		return wiredrop.Drop{}, errNotConfigured()
	}
	if d.ProjectID == "" {
		return wiredrop.Drop{}, svcerr.Wrap(svcerr.Invalid, wiredrop.ErrMissingProject.Error(), wiredrop.ErrMissingProject)
	}
	if d.Room == "" {
		return wiredrop.Drop{}, svcerr.Wrap(svcerr.Invalid, wiredrop.ErrMissingRoom.Error(), wiredrop.ErrMissingRoom)
	}
	if d.ID == "" {
		d.ID = ids.New()
	}
	if d.UID == "" {
		d.UID = codes.WireDropUID(d.Room, d.Name, time.Now())
	}
	row := ws.s.db.QueryRowContext(ctx, `
		insert into wire_drops(id, project_id, uid, name, room, type, cable_type)
		values ($1,$2,$3,$4,$5,nullif($6,''),nullif($7,''))
		returning `+dropCols,
		d.ID, d.ProjectID, d.UID, d.Name, d.Room, d.Type, d.CableType)
	created, err := scanDrop(row)
	if err != nil {
		return wiredrop.Drop{}, normalizeWriteErr(err, "failed to create wire drop")
	}

	// Seed the standard stages. Best effort in sequence; a failure leaves the
	// drop with fewer stages, visible in the UI.
	for i, stage := range []string{"prewire", "trim", "commission"} {
		if _, err := ws.s.db.ExecContext(ctx, `
			insert into wire_drop_stages(id, drop_id, name, position) values ($1,$2,$3,$4)
		`, ids.New(), created.ID, stage, i+1); err != nil {
			return created, svcerr.Wrap(svcerr.Partial,
				"wire drop created but stage seeding failed at "+stage, err)
		}
	}
	return created, nil
}

func (ws *wiredropStore) Update(ctx context.Context, id string, patch map[string]any) (wiredrop.Drop, error) {
	if !ws.s.configured() {
		return wiredrop.Drop{}, errNotConfigured()
	}
	set, args := buildUpdate(patch, 2)
	row := ws.s.db.QueryRowContext(ctx,
		"update wire_drops set "+set+" where id=$1 returning "+dropCols,
		append([]any{id}, args...)...)
	d, err := scanDrop(row)
	if errors.Is(err, sql.ErrNoRows) {
		return wiredrop.Drop{}, svcerr.Wrap(svcerr.NotFound, "wire drop not found", wiredrop.ErrNotFound)
	}
	if err != nil {
		return wiredrop.Drop{}, normalizeWriteErr(err, "failed to update wire drop")
	}
	return d, nil
}

func (ws *wiredropStore) Delete(ctx context.Context, id string) error {
	if !ws.s.configured() {
		return errNotConfigured()
	}
	res, err := ws.s.db.ExecContext(ctx, `delete from wire_drops where id=$1`, id)
	if err != nil {
		return normalizeWriteErr(err, "failed to delete wire drop")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return svcerr.Wrap(svcerr.NotFound, "wire drop not found", wiredrop.ErrNotFound)
	}
	return nil
}

func (ws *wiredropStore) GetStages(ctx context.Context, dropID string) ([]wiredrop.Stage, error) {
	if !ws.s.configured() {
		return nil, nil
	}
	rows, err := ws.s.db.QueryContext(ctx, `
		select id, drop_id, name, completed, completed_at, coalesce(photo_url,'')
		from wire_drop_stages where drop_id=$1 order by position asc
	`, dropID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []wiredrop.Stage
	for rows.Next() {
		var st wiredrop.Stage
		if err := rows.Scan(&st.ID, &st.DropID, &st.Name, &st.Completed, &st.CompletedAt, &st.PhotoURL); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (ws *wiredropStore) CompleteStage(ctx context.Context, stageID string, photoURL string) (wiredrop.Stage, error) {
	if !ws.s.configured() {
		return wiredrop.Stage{}, errNotConfigured()
	}
	row := ws.s.db.QueryRowContext(ctx, `
		update wire_drop_stages
		set completed=true, completed_at=now(), photo_url=nullif($2,'')
		where id=$1
		returning id, drop_id, name, completed, completed_at, coalesce(photo_url,'')
	`, stageID, photoURL)
	var st wiredrop.Stage
	err := row.Scan(&st.ID, &st.DropID, &st.Name, &st.Completed, &st.CompletedAt, &st.PhotoURL)
	if errors.Is(err, sql.ErrNoRows) {
		return wiredrop.Stage{}, svcerr.Wrap(svcerr.NotFound, "stage not found", wiredrop.ErrNotFound)
	}
	if err != nil {
		return wiredrop.Stage{}, normalizeWriteErr(err, "failed to complete stage")
	}
	return st, nil
}

// LinkEquipment mirrors the replace-all junction semantics on equipment's
// secure-data links: delete everything, reinsert, first primary.
func (ws *wiredropStore) LinkEquipment(ctx context.Context, dropID string, equipmentIDs []string) ([]wiredrop.EquipmentLink, error) {
	if !ws.s.configured() {
		return nil, errNotConfigured()
	}
	if _, err := ws.s.db.ExecContext(ctx,
		`delete from wire_drop_equipment where drop_id=$1`, dropID); err != nil {
		return nil, normalizeWriteErr(err, "failed to clear equipment links")
	}
	links := make([]wiredrop.EquipmentLink, 0, len(equipmentIDs))
	for i, eid := range equipmentIDs {
		l := wiredrop.EquipmentLink{DropID: dropID, EquipmentID: eid, Primary: i == 0}
		if _, err := ws.s.db.ExecContext(ctx, `
			insert into wire_drop_equipment(drop_id, equipment_id, is_primary) values ($1,$2,$3)
		`, l.DropID, l.EquipmentID, l.Primary); err != nil {
			return links, svcerr.Wrap(svcerr.Partial,
				"equipment links partially replaced; prior links were removed", err)
		}
		links = append(links, l)
	}
	return links, nil
}

func (ws *wiredropStore) UnlinkEquipment(ctx context.Context, dropID, equipmentID string) error {
	if !ws.s.configured() {
		return errNotConfigured()
	}
	_, err := ws.s.db.ExecContext(ctx,
		`delete from wire_drop_equipment where drop_id=$1 and equipment_id=$2`, dropID, equipmentID)
	return normalizeWriteErr(err, "failed to unlink equipment")
}

func (ws *wiredropStore) GetEquipmentLinks(ctx context.Context, dropID string) ([]wiredrop.EquipmentLink, error) {
	if !ws.s.configured() {
		return nil, nil
	}
	rows, err := ws.s.db.QueryContext(ctx, `
		select drop_id, equipment_id, is_primary from wire_drop_equipment
		where drop_id=$1 order by is_primary desc, equipment_id asc
	`, dropID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []wiredrop.EquipmentLink
	for rows.Next() {
		var l wiredrop.EquipmentLink
		if err := rows.Scan(&l.DropID, &l.EquipmentID, &l.Primary); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

package pg

import (
	"context"
	"database/sql"
	"errors"

	"fieldops.app/internal/ids"
	"fieldops.app/internal/interconnect"
	"fieldops.app/internal/svcerr"
)

// Interconnects returns the interconnect service backed by this store.
func (s *Store) Interconnects() interconnect.Service { return &interconnectStore{s: s} }

type interconnectStore struct{ s *Store }

const icCols = "id, project_id, label, coalesce(from_port,''), coalesce(to_port,''), coalesce(medium,''), created_at, updated_at"

func scanInterconnect(row interface{ Scan(...any) error }) (interconnect.Interconnect, error) {
	var ic interconnect.Interconnect
	err := row.Scan(&ic.ID, &ic.ProjectID, &ic.Label, &ic.FromPort, &ic.ToPort, &ic.Medium, &ic.CreatedAt, &ic.UpdatedAt)
	return ic, err
}

func (is *interconnectStore) GetAll(ctx context.Context, f interconnect.Filter) ([]interconnect.Interconnect, error) {
	if !is.s.configured() {
		return nil, nil
	}
	var c cond
	c.Eq("project_id", f.ProjectID)
	c.Eq("medium", f.Medium)

	rows, err := is.s.db.QueryContext(ctx,
		"select "+icCols+" from interconnects"+c.Where()+" order by label asc", c.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []interconnect.Interconnect
	for rows.Next() {
		ic, err := scanInterconnect(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ic)
	}
	return out, rows.Err()
}

func (is *interconnectStore) GetByID(ctx context.Context, id string) (*interconnect.Interconnect, error) {
	if !is.s.configured() {
		return nil, nil
	}
	ic, err := scanInterconnect(is.s.db.QueryRowContext(ctx,
		"select "+icCols+" from interconnects where id=$1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ic, nil
}

// Create delegates label allocation to the server-side procedure, which
// serializes numbering per project. Nothing here computes a label.
func (is *interconnectStore) Create(ctx context.Context, ic interconnect.Interconnect) (interconnect.Interconnect, error) {
	if !is.s.configured() {
		return interconnect.Interconnect{}, errNotConfigured()
	}
	if ic.ProjectID == "" {
		return interconnect.Interconnect{}, svcerr.Wrap(svcerr.Invalid, interconnect.ErrMissingProject.Error(), interconnect.ErrMissingProject)
	}
	if ic.ID == "" {
		ic.ID = ids.New()
	}
	row := is.s.rpc(ctx, `
		select `+icCols+` from create_interconnect($1,$2,$3,$4,$5)
	`, ic.ID, ic.ProjectID, ic.FromPort, ic.ToPort, ic.Medium)
	created, err := scanInterconnect(row)
	if err != nil {
		return interconnect.Interconnect{}, normalizeWriteErr(err, "failed to create interconnect")
	}
	return created, nil
}

func (is *interconnectStore) Update(ctx context.Context, id string, patch map[string]any) (interconnect.Interconnect, error) {
	if !is.s.configured() {
		return interconnect.Interconnect{}, errNotConfigured()
	}
	set, args := buildUpdate(patch, 2)
	row := is.s.db.QueryRowContext(ctx,
		"update interconnects set "+set+" where id=$1 returning "+icCols,
		append([]any{id}, args...)...)
	ic, err := scanInterconnect(row)
	if errors.Is(err, sql.ErrNoRows) {
		return interconnect.Interconnect{}, svcerr.Wrap(svcerr.NotFound, "interconnect not found", interconnect.ErrNotFound)
	}
	if err != nil {
		return interconnect.Interconnect{}, normalizeWriteErr(err, "failed to update interconnect")
	}
	return ic, nil
}

func (is *interconnectStore) Delete(ctx context.Context, id string) error {
	if !is.s.configured() {
		return errNotConfigured()
	}
	res, err := is.s.db.ExecContext(ctx, `delete from interconnects where id=$1`, id)
	if err != nil {
		return normalizeWriteErr(err, "failed to delete interconnect")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return svcerr.Wrap(svcerr.NotFound, "interconnect not found", interconnect.ErrNotFound)
	}
	return nil
}

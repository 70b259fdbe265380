package pg

import (
	"context"
	"database/sql"
	"errors"

	"fieldops.app/internal/ids"
	"fieldops.app/internal/labor"
	"fieldops.app/internal/svcerr"
)

// LaborTypes returns the labor-type service backed by this store.
func (s *Store) LaborTypes() labor.Service { return &laborStore{s: s} }

type laborStore struct{ s *Store }

const laborCols = "id, name, rate_cents, active, created_at, updated_at"

func scanLabor(row interface{ Scan(...any) error }) (labor.Type, error) {
	var t labor.Type
	err := row.Scan(&t.ID, &t.Name, &t.RateCents, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (ls *laborStore) GetAll(ctx context.Context, f labor.Filter) ([]labor.Type, error) {
	if !ls.s.configured() {
		return nil, nil
	}
	var c cond
	c.Bool("active", f.ActiveOnly)
	c.Search(f.Search, "name")

	rows, err := ls.s.db.QueryContext(ctx,
		"select "+laborCols+" from labor_types"+c.Where()+" order by name asc", c.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []labor.Type
	for rows.Next() {
		t, err := scanLabor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (ls *laborStore) GetByID(ctx context.Context, id string) (*labor.Type, error) {
	if !ls.s.configured() {
		return nil, nil
	}
	t, err := scanLabor(ls.s.db.QueryRowContext(ctx,
		"select "+laborCols+" from labor_types where id=$1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (ls *laborStore) Create(ctx context.Context, t labor.Type) (labor.Type, error) {
	if !ls.s.configured() {
		return labor.Type{}, errNotConfigured()
	}
	if t.Name == "" {
		return labor.Type{}, svcerr.Wrap(svcerr.Invalid, labor.ErrMissingName.Error(), labor.ErrMissingName)
	}
	if t.ID == "" {
		t.ID = ids.New()
	}
	row := ls.s.db.QueryRowContext(ctx, `
		insert into labor_types(id, name, rate_cents, active) values ($1,$2,$3,$4)
		returning `+laborCols,
		t.ID, t.Name, t.RateCents, t.Active)
	created, err := scanLabor(row)
	if err != nil {
		return labor.Type{}, normalizeWriteErr(err, "failed to create labor type")
	}
	return created, nil
}

func (ls *laborStore) Update(ctx context.Context, id string, patch map[string]any) (labor.Type, error) {
	if !ls.s.configured() {
		return labor.Type{}, errNotConfigured()
	}
	set, args := buildUpdate(patch, 2)
	row := ls.s.db.QueryRowContext(ctx,
		"update labor_types set "+set+" where id=$1 returning "+laborCols,
		append([]any{id}, args...)...)
	t, err := scanLabor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return labor.Type{}, svcerr.Wrap(svcerr.NotFound, "labor type not found", labor.ErrNotFound)
	}
	if err != nil {
		return labor.Type{}, normalizeWriteErr(err, "failed to update labor type")
	}
	return t, nil
}

func (ls *laborStore) Delete(ctx context.Context, id string) error {
	if !ls.s.configured() {
		return errNotConfigured()
	}
	res, err := ls.s.db.ExecContext(ctx, `delete from labor_types where id=$1`, id)
	if err != nil {
		return normalizeWriteErr(err, "failed to delete labor type")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return svcerr.Wrap(svcerr.NotFound, "labor type not found", labor.ErrNotFound)
	}
	return nil
}

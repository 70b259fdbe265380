package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"fieldops.app/internal/ids"
	"fieldops.app/internal/project"
	"fieldops.app/internal/purchase"
	"fieldops.app/internal/svcerr"
)

// Projects returns the project service backed by this store. The dependent
// purchase service enforces the delete precondition.
func (s *Store) Projects(orders purchase.Service) project.Service {
	return &projectStore{s: s, orders: orders}
}

type projectStore struct {
	s      *Store
	orders purchase.Service
}

const projectCols = "id, name, client_id, status, coalesce(address,''), start_date, end_date, created_at, updated_at, coalesce(description,'')"

func scanProject(row interface{ Scan(...any) error }) (project.Project, error) {
	var p project.Project
	err := row.Scan(&p.ID, &p.Name, &p.ClientID, &p.Status, &p.Address,
		&p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt, &p.Description)
	return p, err
}

func (ps *projectStore) GetAll(ctx context.Context, f project.Filter) ([]project.Project, error) {
	if !ps.s.configured() {
		return nil, nil
	}
	var c cond
	c.Eq("client_id", f.ClientID)
	c.In("status", f.Statuses)
	c.After("start_date", f.StartedAfter)
	c.Before("end_date", f.EndedBefore)
	c.Search(f.Search, "name", "address")

	rows, err := ps.s.db.QueryContext(ctx,
		"select "+projectCols+" from projects"+c.Where()+" order by created_at desc", c.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (ps *projectStore) GetByID(ctx context.Context, id string) (*project.Project, error) {
	if !ps.s.configured() {
		return nil, nil
	}
	p, err := scanProject(ps.s.db.QueryRowContext(ctx,
		"select "+projectCols+" from projects where id=$1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (ps *projectStore) Create(ctx context.Context, p project.Project) (project.Project, error) {
	if !ps.s.configured() {
		return project.Project{}, errNotConfigured()
	}
	if p.Name == "" {
		return project.Project{}, svcerr.Wrap(svcerr.Invalid, project.ErrMissingName.Error(), project.ErrMissingName)
	}
	if p.ClientID == "" {
		return project.Project{}, svcerr.Wrap(svcerr.Invalid, project.ErrMissingClient.Error(), project.ErrMissingClient)
	}
	if p.ID == "" {
		p.ID = ids.New()
	}
	if p.Status == "" {
		p.Status = "planning"
	}
	row := ps.s.db.QueryRowContext(ctx, `
		insert into projects(id, name, client_id, status, address, start_date, end_date, description)
		values ($1,$2,$3,$4,nullif($5,''),$6,$7,nullif($8,''))
		returning `+projectCols,
		p.ID, p.Name, p.ClientID, p.Status, p.Address, p.StartDate, p.EndDate, p.Description)
	created, err := scanProject(row)
	if err != nil {
		return project.Project{}, normalizeWriteErr(err, "failed to create project")
	}
	return created, nil
}

func (ps *projectStore) Update(ctx context.Context, id string, patch map[string]any) (project.Project, error) {
	if !ps.s.configured() {
		return project.Project{}, errNotConfigured()
	}
	set, args := buildUpdate(patch, 2)
	row := ps.s.db.QueryRowContext(ctx,
		"update projects set "+set+" where id=$1 returning "+projectCols,
		append([]any{id}, args...)...)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return project.Project{}, svcerr.Wrap(svcerr.NotFound, "project not found", project.ErrNotFound)
	}
	if err != nil {
		return project.Project{}, normalizeWriteErr(err, "failed to update project")
	}
	return p, nil
}

// Delete checks for linked purchase orders before touching anything. The
// precondition lives here, not in the database.
func (ps *projectStore) Delete(ctx context.Context, id string) error {
	if !ps.s.configured() {
		return errNotConfigured()
	}
	if ps.orders != nil {
		n, err := ps.orders.CountByProject(ctx, id)
		if err != nil {
			return normalizeWriteErr(err, "failed to check purchase orders")
		}
		if n > 0 {
			return svcerr.Wrap(svcerr.Conflict, project.ErrHasOrders.Error(), project.ErrHasOrders)
		}
	}
	res, err := ps.s.db.ExecContext(ctx, `delete from projects where id=$1`, id)
	if err != nil {
		return normalizeWriteErr(err, "failed to delete project")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return svcerr.Wrap(svcerr.NotFound, "project not found", project.ErrNotFound)
	}
	return nil
}

func (ps *projectStore) GetPhases(ctx context.Context, projectID string) ([]project.Phase, error) {
	if !ps.s.configured() {
		return nil, nil
	}
	rows, err := ps.s.db.QueryContext(ctx, `
		select p.id, p.name, p.position, s.percent, p.actual_date, p.completed_manually,
		       coalesce(s.completed_items,0), coalesce(s.total_items,0)
		from project_phases p
		left join phase_progress s on s.phase_id = p.id
		where p.project_id=$1
		order by p.position asc
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []project.Phase
	for rows.Next() {
		var ph project.Phase
		if err := rows.Scan(&ph.ID, &ph.Name, &ph.Position, &ph.Percent,
			&ph.ActualDate, &ph.CompletedManually, &ph.CompletedItems, &ph.TotalItems); err != nil {
			return nil, err
		}
		out = append(out, ph)
	}
	return out, rows.Err()
}

func (ps *projectStore) SetPhaseManualCompletion(ctx context.Context, phaseID string, actual *time.Time, manual bool) error {
	if !ps.s.configured() {
		return errNotConfigured()
	}
	res, err := ps.s.db.ExecContext(ctx, `
		update project_phases set actual_date=$2, completed_manually=$3, updated_at=now()
		where id=$1
	`, phaseID, actual, manual)
	if err != nil {
		return normalizeWriteErr(err, "failed to update phase")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return svcerr.Wrap(svcerr.NotFound, "phase not found", project.ErrNotFound)
	}
	return nil
}

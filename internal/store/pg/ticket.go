package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fieldops.app/internal/ids"
	"fieldops.app/internal/obs"
	"fieldops.app/internal/svcerr"
	"fieldops.app/internal/ticket"
)

// Tickets returns the service-ticket service backed by this store.
func (s *Store) Tickets() ticket.Service { return &ticketStore{s: s} }

type ticketStore struct{ s *Store }

const ticketCols = "id, coalesce(project_id,''), coalesce(contact_id,''), title, coalesce(description,''), status, coalesce(priority,''), coalesce(service_po_number,''), coalesce(technician_email,''), coalesce(calendar_event_id,''), scheduled_start, scheduled_end, created_at, updated_at"

func scanTicket(row interface{ Scan(...any) error }) (ticket.Ticket, error) {
	var t ticket.Ticket
	err := row.Scan(&t.ID, &t.ProjectID, &t.ContactID, &t.Title, &t.Description,
		&t.Status, &t.Priority, &t.ServicePONumber, &t.TechnicianEmail, &t.CalendarEventID,
		&t.ScheduledStart, &t.ScheduledEnd, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (ts *ticketStore) GetAll(ctx context.Context, f ticket.Filter) ([]ticket.Ticket, error) {
	if !ts.s.configured() {
		return nil, nil
	}
	var c cond
	c.Eq("project_id", f.ProjectID)
	c.In("status", f.Statuses)
	c.Eq("priority", f.Priority)
	c.After("created_at", f.CreatedAfter)
	c.Before("created_at", f.CreatedBefore)
	c.Search(f.Search, "title", "description")

	rows, err := ts.s.db.QueryContext(ctx,
		"select "+ticketCols+" from service_tickets"+c.Where()+" order by created_at desc", c.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ticket.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (ts *ticketStore) GetByID(ctx context.Context, id string) (*ticket.Ticket, error) {
	if !ts.s.configured() {
		return nil, nil
	}
	t, err := scanTicket(ts.s.db.QueryRowContext(ctx,
		"select "+ticketCols+" from service_tickets where id=$1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (ts *ticketStore) Create(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	if !ts.s.configured() {
		return ticket.Ticket{}, errNotConfigured()
	}
	if t.Title == "" {
		return ticket.Ticket{}, svcerr.Wrap(svcerr.Invalid, ticket.ErrMissingTitle.Error(), ticket.ErrMissingTitle)
	}
	if t.ID == "" {
		t.ID = ids.New()
	}
	if t.Status == "" {
		t.Status = ticket.StatusOpen
	}
	row := ts.s.db.QueryRowContext(ctx, `
		insert into service_tickets(id, project_id, contact_id, title, description, status, priority, technician_email, scheduled_start, scheduled_end)
		values ($1,nullif($2,''),nullif($3,''),$4,nullif($5,''),$6,nullif($7,''),nullif($8,''),$9,$10)
		returning `+ticketCols,
		t.ID, t.ProjectID, t.ContactID, t.Title, t.Description, t.Status, t.Priority,
		t.TechnicianEmail, t.ScheduledStart, t.ScheduledEnd)
	created, err := scanTicket(row)
	if err != nil {
		return ticket.Ticket{}, normalizeWriteErr(err, "failed to create service ticket")
	}
	return created, nil
}

func (ts *ticketStore) Update(ctx context.Context, id string, patch map[string]any) (ticket.Ticket, error) {
	if !ts.s.configured() {
		return ticket.Ticket{}, errNotConfigured()
	}
	set, args := buildUpdate(patch, 2)
	row := ts.s.db.QueryRowContext(ctx,
		"update service_tickets set "+set+" where id=$1 returning "+ticketCols,
		append([]any{id}, args...)...)
	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ticket.Ticket{}, svcerr.Wrap(svcerr.NotFound, "service ticket not found", ticket.ErrNotFound)
	}
	if err != nil {
		return ticket.Ticket{}, normalizeWriteErr(err, "failed to update service ticket")
	}
	return t, nil
}

func (ts *ticketStore) Delete(ctx context.Context, id string) error {
	if !ts.s.configured() {
		return errNotConfigured()
	}
	res, err := ts.s.db.ExecContext(ctx, `delete from service_tickets where id=$1`, id)
	if err != nil {
		return normalizeWriteErr(err, "failed to delete service ticket")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return svcerr.Wrap(svcerr.NotFound, "service ticket not found", ticket.ErrNotFound)
	}
	return nil
}

// SetStatus updates the status column, then appends a note describing the
// change. The note is best-effort: its failure is logged and swallowed.
func (ts *ticketStore) SetStatus(ctx context.Context, id, status, author string) (ticket.Ticket, error) {
	t, err := ts.Update(ctx, id, map[string]any{"status": status})
	if err != nil {
		return ticket.Ticket{}, err
	}
	note := ticket.Note{
		TicketID: id,
		Author:   author,
		Body:     fmt.Sprintf("Status changed to %s", status),
	}
	if _, err := ts.AddNote(ctx, note); err != nil {
		obs.LogRequest(map[string]any{
			"ts":    time.Now().UTC().Format(time.RFC3339Nano),
			"level": "warn",
			"msg":   "status note append failed",
			"id":    id,
			"err":   err.Error(),
		})
	}
	return t, nil
}

func (ts *ticketStore) AddNote(ctx context.Context, n ticket.Note) (ticket.Note, error) {
	if !ts.s.configured() {
		return ticket.Note{}, errNotConfigured()
	}
	if n.ID == "" {
		n.ID = ids.New()
	}
	row := ts.s.db.QueryRowContext(ctx, `
		insert into ticket_notes(id, ticket_id, author, body)
		values ($1,$2,nullif($3,''),$4)
		returning id, ticket_id, coalesce(author,''), body, created_at
	`, n.ID, n.TicketID, n.Author, n.Body)
	var created ticket.Note
	if err := row.Scan(&created.ID, &created.TicketID, &created.Author, &created.Body, &created.CreatedAt); err != nil {
		return ticket.Note{}, normalizeWriteErr(err, "failed to add note")
	}
	return created, nil
}

func (ts *ticketStore) GetNotes(ctx context.Context, ticketID string) ([]ticket.Note, error) {
	if !ts.s.configured() {
		return nil, nil
	}
	rows, err := ts.s.db.QueryContext(ctx, `
		select id, ticket_id, coalesce(author,''), body, created_at
		from ticket_notes where ticket_id=$1 order by created_at asc
	`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ticket.Note
	for rows.Next() {
		var n ticket.Note
		if err := rows.Scan(&n.ID, &n.TicketID, &n.Author, &n.Body, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// AssignServicePONumber allocates through the server-side procedure, which
// serializes the sequence and is safe under concurrent callers.
func (ts *ticketStore) AssignServicePONumber(ctx context.Context, id string) (ticket.Ticket, error) {
	if !ts.s.configured() {
		return ticket.Ticket{}, errNotConfigured()
	}
	var num string
	if err := ts.s.rpc(ctx, `select allocate_service_po_number($1)`, id).Scan(&num); err != nil {
		return ticket.Ticket{}, normalizeWriteErr(err, "failed to allocate service PO number")
	}
	return ts.Update(ctx, id, map[string]any{"service_po_number": num})
}

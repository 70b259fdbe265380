package pg

import (
	"context"

	"fieldops.app/internal/graph/poller"
	"fieldops.app/internal/svcerr"
)

// Appointments adapts the ticket tables to the confirmation poller: tickets
// with a calendar event in a non-terminal confirmation state.
func (s *Store) Appointments() poller.Source { return appointmentSource{s} }

type appointmentSource struct {
	s *Store
}

func (as appointmentSource) PendingAppointments(ctx context.Context) ([]poller.Tracked, error) {
	if !as.s.configured() {
		return nil, nil
	}
	rows, err := as.s.db.QueryContext(ctx, `
		select t.id, t.calendar_event_id, t.confirm_state, coalesce(t.technician_email,''),
		       coalesce(c.email,''), coalesce(c.name,''), t.created_at
		from service_tickets t
		left join contacts c on c.id = t.contact_id
		where coalesce(t.calendar_event_id,'') <> ''
		  and t.confirm_state in ($1, $2)
	`, poller.StatePending, poller.StateAwaitingCustomer)
	if err != nil {
		return nil, svcerr.Wrap(svcerr.Internal, "failed to list pending appointments", err)
	}
	defer rows.Close()

	var out []poller.Tracked
	for rows.Next() {
		var t poller.Tracked
		if err := rows.Scan(&t.TicketID, &t.EventID, &t.State, &t.TechEmail, &t.CustomerEmail, &t.CustomerName, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (as appointmentSource) SetState(ctx context.Context, ticketID, state string) error {
	if !as.s.configured() {
		return errNotConfigured()
	}
	_, err := as.s.db.ExecContext(ctx,
		`update service_tickets set confirm_state=$2, updated_at=now() where id=$1`,
		ticketID, state)
	return normalizeWriteErr(err, "failed to update confirmation state")
}

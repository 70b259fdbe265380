package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"fieldops.app/internal/svcerr"
	"fieldops.app/internal/timeclock"
)

// TimeClock returns the time-tracking service backed by this store. Check-in
// and check-out run through server-side procedures that enforce the single
// open session per user atomically.
func (s *Store) TimeClock() timeclock.Service { return &timeclockStore{s: s} }

type timeclockStore struct{ s *Store }

const sessionCols = "id, user_id, project_id, checked_in, checked_out"

func scanSession(row interface{ Scan(...any) error }) (timeclock.Session, error) {
	var ses timeclock.Session
	err := row.Scan(&ses.ID, &ses.UserID, &ses.ProjectID, &ses.CheckedIn, &ses.CheckedOut)
	return ses, err
}

func (ts *timeclockStore) CheckIn(ctx context.Context, userID, projectID string) (timeclock.Session, error) {
	if !ts.s.configured() {
		return timeclock.Session{}, errNotConfigured()
	}
	if userID == "" {
		return timeclock.Session{}, svcerr.Wrap(svcerr.Invalid, timeclock.ErrMissingUser.Error(), timeclock.ErrMissingUser)
	}
	if projectID == "" {
		return timeclock.Session{}, svcerr.Wrap(svcerr.Invalid, timeclock.ErrMissingProject.Error(), timeclock.ErrMissingProject)
	}
	ses, err := scanSession(ts.s.rpc(ctx, `select `+sessionCols+` from time_check_in($1,$2)`, userID, projectID))
	if err != nil {
		if strings.Contains(err.Error(), "already checked in") {
			return timeclock.Session{}, svcerr.Wrap(svcerr.Conflict, timeclock.ErrAlreadyCheckedIn.Error(), err)
		}
		return timeclock.Session{}, normalizeWriteErr(err, "failed to check in")
	}
	return ses, nil
}

func (ts *timeclockStore) CheckOut(ctx context.Context, userID string) (timeclock.Session, error) {
	if !ts.s.configured() {
		return timeclock.Session{}, errNotConfigured()
	}
	ses, err := scanSession(ts.s.rpc(ctx, `select `+sessionCols+` from time_check_out($1)`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return timeclock.Session{}, svcerr.Wrap(svcerr.Invalid, timeclock.ErrNoOpenSession.Error(), timeclock.ErrNoOpenSession)
	}
	if err != nil {
		return timeclock.Session{}, normalizeWriteErr(err, "failed to check out")
	}
	return ses, nil
}

func (ts *timeclockStore) OpenSession(ctx context.Context, userID string) (*timeclock.Session, error) {
	if !ts.s.configured() {
		return nil, nil
	}
	ses, err := scanSession(ts.s.db.QueryRowContext(ctx, `
		select `+sessionCols+` from time_sessions
		where user_id=$1 and checked_out is null
	`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ses, nil
}

func (ts *timeclockStore) SessionsForProject(ctx context.Context, projectID string) ([]timeclock.Session, error) {
	if !ts.s.configured() {
		return nil, nil
	}
	rows, err := ts.s.db.QueryContext(ctx, `
		select `+sessionCols+` from time_sessions
		where project_id=$1 order by checked_in desc
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []timeclock.Session
	for rows.Next() {
		ses, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ses)
	}
	return out, rows.Err()
}

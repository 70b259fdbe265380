package pg

import (
	"context"

	"fieldops.app/internal/audit"
)

// AuditSink returns the durable audit sink backed by the append-only
// audit_log table. Wrap it in audit.BestEffort at call sites that must not
// fail on logging errors.
func (s *Store) AuditSink() audit.Sink { return &auditSink{s: s} }

type auditSink struct{ s *Store }

func (a *auditSink) Append(ctx context.Context, e audit.Entry) error {
	if !a.s.configured() {
		return errNotConfigured()
	}
	_, err := a.s.db.ExecContext(ctx, `
		insert into audit_log(id, subject_id, action, performed_by, performed_at, details)
		values ($1,$2,$3,nullif($4,''),$5,$6)
	`, e.ID, e.SubjectID, e.Action, e.PerformedBy, e.PerformedAt, jsonPatch(e.Details))
	return err
}

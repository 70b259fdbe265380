package pg

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"fieldops.app/internal/audit"
	"fieldops.app/internal/secure"
)

type memorySink struct{ entries []audit.Entry }

func (m *memorySink) Append(ctx context.Context, e audit.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func secureRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "project_id", "name", "kind", "username", "password", "notes",
		"created_at", "updated_at",
	}).AddRow("sd-1", "p-1", "Rack PDU", "credential", "admin", "hunter2", "", now, now)
}

// Reads of secure records go through the decrypting view and append a view
// audit entry.
func TestSecureGetByIDAuditsView(t *testing.T) {
	s, mock := newMockStore(t)
	sink := &memorySink{}

	mock.ExpectQuery("select .* from secure_data_decrypted where id=").
		WithArgs("sd-1").
		WillReturnRows(secureRows(time.Now()))

	r, err := s.SecureData(sink).GetByID(context.Background(), "sd-1")
	if err != nil || r == nil {
		t.Fatalf("get: (%v, %v)", r, err)
	}
	if r.Password != "hunter2" {
		t.Fatalf("view must return decrypted password, got %q", r.Password)
	}
	if len(sink.entries) != 1 || sink.entries[0].Action != audit.ActionView {
		t.Fatalf("audit entries: %+v", sink.entries)
	}
	if sink.entries[0].SubjectID != "sd-1" {
		t.Fatalf("subject = %q", sink.entries[0].SubjectID)
	}
}

// Writes go through the server-side procedure; plaintext is an argument, and
// the operation audits a create.
func TestSecureCreateUsesProcedureAndAudits(t *testing.T) {
	s, mock := newMockStore(t)
	sink := &memorySink{}

	mock.ExpectQuery("from secure_data_create").
		WillReturnRows(secureRows(time.Now()))

	created, err := s.SecureData(sink).Create(context.Background(), secure.Record{
		ProjectID: "p-1",
		Name:      "Rack PDU",
		Kind:      "credential",
		Username:  "admin",
		Password:  "hunter2",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != "sd-1" {
		t.Fatalf("created = %+v", created)
	}
	if len(sink.entries) != 1 || sink.entries[0].Action != audit.ActionCreate {
		t.Fatalf("audit entries: %+v", sink.entries)
	}
}

// A failing audit sink must never fail the read.
func TestSecureAuditFailureDoesNotFailRead(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("select .* from secure_data_decrypted where id=").
		WithArgs("sd-1").
		WillReturnRows(secureRows(time.Now()))

	r, err := s.SecureData(failSink{}).GetByID(context.Background(), "sd-1")
	if err != nil || r == nil {
		t.Fatalf("read failed because of audit sink: (%v, %v)", r, err)
	}
}

type failSink struct{}

func (failSink) Append(ctx context.Context, e audit.Entry) error {
	return context.DeadlineExceeded
}

package pg

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func contactRow(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "client_id", "name", "email", "phone", "role", "created_at", "updated_at",
	}).AddRow("ct-1", "cl-1", "Dana Ortiz", "dana@example.com", "5551234567", "owner", now, now)
}

func TestFindByPhoneGoesThroughProcedure(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("from find_contact_by_phone").
		WithArgs("(555) 123-4567").
		WillReturnRows(contactRow(time.Now()))

	ct, err := s.Contacts().FindByPhone(ctx, "(555) 123-4567")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if ct == nil || ct.ID != "ct-1" || ct.Phone != "5551234567" {
		t.Fatalf("contact = %+v", ct)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestFindByPhoneMissIsNil(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("from find_contact_by_phone").
		WithArgs("5550000000").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "client_id", "name", "email", "phone", "role", "created_at", "updated_at",
		}))

	ct, err := s.Contacts().FindByPhone(context.Background(), "5550000000")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if ct != nil {
		t.Fatalf("contact = %+v, want nil on no match", ct)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

package pg

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"fieldops.app/internal/equipment"
	"fieldops.app/internal/svcerr"
)

// pgxArgConverter lets the mock accept []string args the way the pgx
// driver does (used for "col = any($n)" filters).
type pgxArgConverter struct{}

func (pgxArgConverter) ConvertValue(v any) (driver.Value, error) {
	if s, ok := v.([]string); ok {
		return s, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(pgxArgConverter{}))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db), mock
}

func TestLinkSecureDataReplaceAll(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec("delete from equipment_secure_links").
		WithArgs("eq-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("insert into equipment_secure_links").
		WithArgs("eq-1", "sd-a", true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into equipment_secure_links").
		WithArgs("eq-1", "sd-b", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	links, err := s.Equipment().LinkSecureData(ctx, "eq-1", []string{"sd-a", "sd-b"})
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if len(links) != 2 || !links[0].Primary || links[1].Primary {
		t.Fatalf("links = %+v; only the first may be primary", links)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestLinkSecureDataEmptySetClearsAll(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("delete from equipment_secure_links").
		WithArgs("eq-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	links, err := s.Equipment().LinkSecureData(context.Background(), "eq-1", nil)
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if len(links) != 0 {
		t.Fatalf("expected no links, got %+v", links)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// A failure after the delete leaves the equipment with no links and reports a
// partial replacement.
func TestLinkSecureDataPartialFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("delete from equipment_secure_links").
		WithArgs("eq-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into equipment_secure_links").
		WithArgs("eq-1", "sd-a", true).
		WillReturnError(errors.New("connection reset"))

	_, err := s.Equipment().LinkSecureData(context.Background(), "eq-1", []string{"sd-a"})
	if !svcerr.Is(err, svcerr.Partial) {
		t.Fatalf("want Partial, got %v (kind %v)", err, svcerr.KindOf(err))
	}
}

func TestEquipmentCreateAssignsGapFillUID(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("select uid from equipment where project_id=").
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows([]string{"uid"}).
			AddRow("EQ-001").AddRow("EQ-002").AddRow("EQ-004"))

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "project_id", "uid", "name", "category", "room", "status",
		"serial_no", "ip_address", "mac_address", "created_at", "updated_at",
	}).AddRow("e-9", "p-1", "EQ-003", "Switch", "", "", "", "", "", "", now, now)
	mock.ExpectQuery("insert into equipment").
		WillReturnRows(rows)

	created, err := s.Equipment().Create(context.Background(),
		equipment.Equipment{ProjectID: "p-1", Name: "Switch"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.UID != "EQ-003" {
		t.Fatalf("uid = %s, want the gap EQ-003", created.UID)
	}
}

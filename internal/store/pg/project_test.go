package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"fieldops.app/internal/project"
	"fieldops.app/internal/purchase"
	"fieldops.app/internal/svcerr"
)

// countOnly stubs purchase.Service for the delete precondition; only
// CountByProject is exercised.
type countOnly struct{ count int }

func (c countOnly) CountByProject(ctx context.Context, projectID string) (int, error) {
	return c.count, nil
}

func (c countOnly) GetAll(ctx context.Context, f purchase.Filter) ([]purchase.Order, error) {
	return nil, nil
}
func (c countOnly) GetByID(ctx context.Context, id string) (*purchase.Order, error) {
	return nil, nil
}
func (c countOnly) CreateWithItems(ctx context.Context, o purchase.Order, items []purchase.LineItem) (purchase.Order, []purchase.LineItem, error) {
	return purchase.Order{}, nil, nil
}
func (c countOnly) Update(ctx context.Context, id string, patch map[string]any) (purchase.Order, error) {
	return purchase.Order{}, nil
}
func (c countOnly) Delete(ctx context.Context, id string) error { return nil }
func (c countOnly) GetItems(ctx context.Context, orderID string) ([]purchase.LineItem, error) {
	return nil, nil
}
func (c countOnly) CreatePublicLink(ctx context.Context, orderID string, ttl time.Duration) (purchase.PublicLink, error) {
	return purchase.PublicLink{}, nil
}
func (c countOnly) ResolvePublicLink(ctx context.Context, token string) (*purchase.Order, []purchase.LineItem, error) {
	return nil, nil, nil
}
func (c countOnly) RevokePublicLink(ctx context.Context, token string) error { return nil }

func TestDeleteProjectBlockedByPurchaseOrders(t *testing.T) {
	s, _ := newMockStore(t)
	svc := s.Projects(countOnly{3})

	err := svc.Delete(context.Background(), "p-1")
	if !svcerr.Is(err, svcerr.Conflict) {
		t.Fatalf("want Conflict, got %v", err)
	}
	if !errors.Is(err, project.ErrHasOrders) {
		t.Fatalf("cause must be ErrHasOrders, got %v", err)
	}
}

func TestDeleteProjectWithoutOrders(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("delete from projects").
		WithArgs("p-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.Projects(countOnly{0}).Delete(context.Background(), "p-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetByIDNotFoundReturnsNil(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("select .* from projects where id=").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	p, err := s.Projects(nil).GetByID(context.Background(), "missing")
	if p != nil || err != nil {
		t.Fatalf("got (%v, %v), want (nil, nil)", p, err)
	}
}

func TestGetAllAppliesOnlyPresentFilters(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "name", "client_id", "status", "address", "start_date", "end_date",
		"created_at", "updated_at", "description",
	}).AddRow("p-1", "Smith Residence", "c-1", "active", "", nil, nil, now, now, "")

	mock.ExpectQuery(`select .* from projects where client_id=\$1 and status = any\(\$2\) order by created_at desc`).
		WillReturnRows(rows)

	got, err := s.Projects(nil).GetAll(context.Background(), project.Filter{
		ClientID: "c-1",
		Statuses: []string{"active", "planning"},
	})
	if err != nil {
		t.Fatalf("getall: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Smith Residence" {
		t.Fatalf("got %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPolicyDenialMapsToPermissionDenied(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("insert into projects").
		WillReturnError(errors.New(`new row violates row-level security policy for table "projects"`))

	_, err := s.Projects(nil).Create(context.Background(),
		project.Project{Name: "x", ClientID: "c-1"})
	if !svcerr.Is(err, svcerr.PermissionDenied) {
		t.Fatalf("want PermissionDenied, got %v (kind %v)", err, svcerr.KindOf(err))
	}
}

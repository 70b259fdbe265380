package pg

import (
	"context"
	"strings"
	"testing"

	"fieldops.app/internal/equipment"
	"fieldops.app/internal/labor"
	"fieldops.app/internal/project"
	"fieldops.app/internal/purchase"
	"fieldops.app/internal/secure"
	"fieldops.app/internal/svcerr"
	"fieldops.app/internal/ticket"
)

// With no backend configured, every read returns empty without error and
// every write fails with a "not configured" message.
func TestUnconfiguredStorePolicy(t *testing.T) {
	var s *Store // nil store: no backend
	ctx := context.Background()

	t.Run("reads soft-fail", func(t *testing.T) {
		if got, err := s.Projects(nil).GetAll(ctx, project.Filter{}); got != nil || err != nil {
			t.Fatalf("projects GetAll = (%v, %v)", got, err)
		}
		if got, err := s.Projects(nil).GetByID(ctx, "p-1"); got != nil || err != nil {
			t.Fatalf("projects GetByID = (%v, %v)", got, err)
		}
		if got, err := s.Equipment().GetAll(ctx, equipment.Filter{}); got != nil || err != nil {
			t.Fatalf("equipment GetAll = (%v, %v)", got, err)
		}
		if got, err := s.Contacts().FindByPhone(ctx, "555"); got != nil || err != nil {
			t.Fatalf("contacts FindByPhone = (%v, %v)", got, err)
		}
		if got, err := s.Tickets().GetNotes(ctx, "t-1"); got != nil || err != nil {
			t.Fatalf("ticket notes = (%v, %v)", got, err)
		}
		if got, err := s.SecureData(nil).GetAll(ctx, secure.Filter{}); got != nil || err != nil {
			t.Fatalf("secure GetAll = (%v, %v)", got, err)
		}
		if got, err := s.WireDrops().GetStages(ctx, "d-1"); got != nil || err != nil {
			t.Fatalf("stages = (%v, %v)", got, err)
		}
		if got, err := s.QuickBooksStatus(ctx); err != nil || got == nil || got.Connected {
			t.Fatalf("quickbooks status = (%v, %v)", got, err)
		}
	})

	t.Run("writes hard-fail", func(t *testing.T) {
		checks := []struct {
			name string
			err  error
		}{
			{"project create", func() error {
				_, err := s.Projects(nil).Create(ctx, project.Project{Name: "x", ClientID: "c"})
				return err
			}()},
			{"equipment create", func() error {
				_, err := s.Equipment().Create(ctx, equipment.Equipment{ProjectID: "p", Name: "x"})
				return err
			}()},
			{"contact delete", s.Contacts().Delete(ctx, "c-1")},
			{"ticket create", func() error {
				_, err := s.Tickets().Create(ctx, ticket.Ticket{Title: "x"})
				return err
			}()},
			{"po create", func() error {
				_, _, err := s.Purchases().CreateWithItems(ctx, purchase.Order{ProjectID: "p"},
					[]purchase.LineItem{{Name: "part"}})
				return err
			}()},
			{"labor create", func() error {
				_, err := s.LaborTypes().Create(ctx, labor.Type{Name: "x"})
				return err
			}()},
			{"wiredrop link", func() error {
				_, err := s.WireDrops().LinkEquipment(ctx, "d-1", []string{"e-1"})
				return err
			}()},
			{"timeclock checkin", func() error {
				_, err := s.TimeClock().CheckIn(ctx, "u-1", "p-1")
				return err
			}()},
		}
		for _, c := range checks {
			if c.err == nil {
				t.Fatalf("%s: expected error", c.name)
			}
			if !svcerr.Is(c.err, svcerr.NotConfigured) {
				t.Fatalf("%s: kind = %v", c.name, svcerr.KindOf(c.err))
			}
			if !strings.Contains(c.err.Error(), "not configured") {
				t.Fatalf("%s: message %q lacks 'not configured'", c.name, c.err.Error())
			}
		}
	})
}

package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fieldops.app/internal/ids"
	"fieldops.app/internal/purchase"
	"fieldops.app/internal/svcerr"
)

// Purchases returns the purchase-order service backed by this store.
func (s *Store) Purchases() purchase.Service { return &purchaseStore{s: s} }

type purchaseStore struct{ s *Store }

const orderCols = "id, project_id, po_number, coalesce(supplier,''), status, ordered_at, received_at, created_at, updated_at"

func scanOrder(row interface{ Scan(...any) error }) (purchase.Order, error) {
	var o purchase.Order
	err := row.Scan(&o.ID, &o.ProjectID, &o.Number, &o.Supplier, &o.Status,
		&o.OrderedAt, &o.ReceivedAt, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (ps *purchaseStore) GetAll(ctx context.Context, f purchase.Filter) ([]purchase.Order, error) {
	if !ps.s.configured() {
		return nil, nil
	}
	var c cond
	c.Eq("project_id", f.ProjectID)
	c.In("status", f.Statuses)
	c.Eq("supplier", f.Supplier)
	c.After("created_at", f.CreatedAfter)

	rows, err := ps.s.db.QueryContext(ctx,
		"select "+orderCols+" from purchase_orders"+c.Where()+" order by created_at desc", c.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []purchase.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (ps *purchaseStore) GetByID(ctx context.Context, id string) (*purchase.Order, error) {
	if !ps.s.configured() {
		return nil, nil
	}
	o, err := scanOrder(ps.s.db.QueryRowContext(ctx,
		"select "+orderCols+" from purchase_orders where id=$1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateWithItems runs the three writes strictly in sequence with no
// transaction: order insert, line-item inserts, part status updates. A
// failure partway surfaces a Partial error naming how far the sequence got so
// the caller can reconcile.
func (ps *purchaseStore) CreateWithItems(ctx context.Context, o purchase.Order, items []purchase.LineItem) (purchase.Order, []purchase.LineItem, error) {
	if !ps.s.configured() {
		return purchase.Order{}, nil, errNotConfigured()
	}
	if o.ProjectID == "" {
		return purchase.Order{}, nil, svcerr.Wrap(svcerr.Invalid, purchase.ErrMissingProject.Error(), purchase.ErrMissingProject)
	}
	if len(items) == 0 {
		return purchase.Order{}, nil, svcerr.Wrap(svcerr.Invalid, purchase.ErrNoItems.Error(), purchase.ErrNoItems)
	}
	if o.ID == "" {
		o.ID = ids.New()
	}
	if o.Status == "" {
		o.Status = purchase.StatusDraft
	}

	row := ps.s.db.QueryRowContext(ctx, `
		insert into purchase_orders(id, project_id, po_number, supplier, status)
		values ($1,$2,$3,nullif($4,''),$5)
		returning `+orderCols,
		o.ID, o.ProjectID, o.Number, o.Supplier, o.Status)
	created, err := scanOrder(row)
	if err != nil {
		return purchase.Order{}, nil, normalizeWriteErr(err, "failed to create purchase order")
	}

	inserted := make([]purchase.LineItem, 0, len(items))
	for i, item := range items {
		item.OrderID = created.ID
		item.Position = i + 1
		if item.ID == "" {
			item.ID = ids.New()
		}
		if _, err := ps.s.db.ExecContext(ctx, `
			insert into po_line_items(id, order_id, part_id, sku, name, quantity, unit_cents, position)
			values ($1,$2,nullif($3,''),nullif($4,''),$5,$6,$7,$8)
		`, item.ID, item.OrderID, item.PartID, item.SKU, item.Name, item.Quantity, item.UnitCents, item.Position); err != nil {
			return created, inserted, svcerr.Wrap(svcerr.Partial,
				fmt.Sprintf("purchase order %s created, %d of %d line items inserted", created.Number, len(inserted), len(items)), err)
		}
		inserted = append(inserted, item)
	}

	for _, item := range inserted {
		if item.PartID == "" {
			continue
		}
		if _, err := ps.s.db.ExecContext(ctx,
			`update parts set status='ordered', updated_at=now() where id=$1`, item.PartID); err != nil {
			return created, inserted, svcerr.Wrap(svcerr.Partial,
				fmt.Sprintf("purchase order %s and line items created, part status update failed at part %s", created.Number, item.PartID), err)
		}
	}
	return created, inserted, nil
}

func (ps *purchaseStore) Update(ctx context.Context, id string, patch map[string]any) (purchase.Order, error) {
	if !ps.s.configured() {
		return purchase.Order{}, errNotConfigured()
	}
	set, args := buildUpdate(patch, 2)
	row := ps.s.db.QueryRowContext(ctx,
		"update purchase_orders set "+set+" where id=$1 returning "+orderCols,
		append([]any{id}, args...)...)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return purchase.Order{}, svcerr.Wrap(svcerr.NotFound, "purchase order not found", purchase.ErrNotFound)
	}
	if err != nil {
		return purchase.Order{}, normalizeWriteErr(err, "failed to update purchase order")
	}
	return o, nil
}

func (ps *purchaseStore) Delete(ctx context.Context, id string) error {
	if !ps.s.configured() {
		return errNotConfigured()
	}
	res, err := ps.s.db.ExecContext(ctx, `delete from purchase_orders where id=$1`, id)
	if err != nil {
		return normalizeWriteErr(err, "failed to delete purchase order")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return svcerr.Wrap(svcerr.NotFound, "purchase order not found", purchase.ErrNotFound)
	}
	return nil
}

func (ps *purchaseStore) GetItems(ctx context.Context, orderID string) ([]purchase.LineItem, error) {
	if !ps.s.configured() {
		return nil, nil
	}
	rows, err := ps.s.db.QueryContext(ctx, `
		select id, order_id, coalesce(part_id,''), coalesce(sku,''), name, quantity, unit_cents, position
		from po_line_items where order_id=$1 order by position asc
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []purchase.LineItem
	for rows.Next() {
		var it purchase.LineItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.PartID, &it.SKU, &it.Name, &it.Quantity, &it.UnitCents, &it.Position); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (ps *purchaseStore) CreatePublicLink(ctx context.Context, orderID string, ttl time.Duration) (purchase.PublicLink, error) {
	if !ps.s.configured() {
		return purchase.PublicLink{}, errNotConfigured()
	}
	link := purchase.PublicLink{
		Token:     uuid.NewString(),
		OrderID:   orderID,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
	row := ps.s.db.QueryRowContext(ctx, `
		insert into po_public_links(token, order_id, expires_at)
		values ($1,$2,$3)
		returning token, order_id, expires_at, created_at
	`, link.Token, link.OrderID, link.ExpiresAt)
	if err := row.Scan(&link.Token, &link.OrderID, &link.ExpiresAt, &link.CreatedAt); err != nil {
		return purchase.PublicLink{}, normalizeWriteErr(err, "failed to create public link")
	}
	return link, nil
}

func (ps *purchaseStore) ResolvePublicLink(ctx context.Context, token string) (*purchase.Order, []purchase.LineItem, error) {
	if !ps.s.configured() {
		return nil, nil, nil
	}
	var orderID string
	var expires time.Time
	err := ps.s.db.QueryRowContext(ctx,
		`select order_id, expires_at from po_public_links where token=$1`, token).
		Scan(&orderID, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if time.Now().UTC().After(expires) {
		return nil, nil, svcerr.Wrap(svcerr.Invalid, purchase.ErrLinkExpired.Error(), purchase.ErrLinkExpired)
	}
	o, err := ps.GetByID(ctx, orderID)
	if err != nil || o == nil {
		return nil, nil, err
	}
	items, err := ps.GetItems(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return o, items, nil
}

func (ps *purchaseStore) RevokePublicLink(ctx context.Context, token string) error {
	if !ps.s.configured() {
		return errNotConfigured()
	}
	_, err := ps.s.db.ExecContext(ctx, `delete from po_public_links where token=$1`, token)
	return normalizeWriteErr(err, "failed to revoke public link")
}

func (ps *purchaseStore) CountByProject(ctx context.Context, projectID string) (int, error) {
	if !ps.s.configured() {
		return 0, nil
	}
	var n int
	err := ps.s.db.QueryRowContext(ctx,
		`select count(*) from purchase_orders where project_id=$1`, projectID).Scan(&n)
	return n, err
}

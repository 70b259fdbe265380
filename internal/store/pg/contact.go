package pg

import (
	"context"
	"database/sql"
	"errors"

	"fieldops.app/internal/contact"
	"fieldops.app/internal/ids"
	"fieldops.app/internal/svcerr"
)

// Contacts returns the contact service backed by this store.
func (s *Store) Contacts() contact.Service { return &contactStore{s: s} }

type contactStore struct{ s *Store }

const contactCols = "id, client_id, name, coalesce(email,''), coalesce(phone,''), coalesce(role,''), created_at, updated_at"

func scanContact(row interface{ Scan(...any) error }) (contact.Contact, error) {
	var c contact.Contact
	err := row.Scan(&c.ID, &c.ClientID, &c.Name, &c.Email, &c.Phone, &c.Role, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (cs *contactStore) GetAll(ctx context.Context, f contact.Filter) ([]contact.Contact, error) {
	if !cs.s.configured() {
		return nil, nil
	}
	var c cond
	c.Eq("client_id", f.ClientID)
	c.Eq("role", f.Role)
	c.Search(f.Search, "name", "email", "phone")

	rows, err := cs.s.db.QueryContext(ctx,
		"select "+contactCols+" from contacts"+c.Where()+" order by name asc", c.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []contact.Contact
	for rows.Next() {
		ct, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

func (cs *contactStore) GetByID(ctx context.Context, id string) (*contact.Contact, error) {
	if !cs.s.configured() {
		return nil, nil
	}
	ct, err := scanContact(cs.s.db.QueryRowContext(ctx,
		"select "+contactCols+" from contacts where id=$1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ct, nil
}

func (cs *contactStore) Create(ctx context.Context, c contact.Contact) (contact.Contact, error) {
	if !cs.s.configured() {
		return contact.Contact{}, errNotConfigured()
	}
	if c.ClientID == "" {
		return contact.Contact{}, svcerr.Wrap(svcerr.Invalid, contact.ErrMissingClient.Error(), contact.ErrMissingClient)
	}
	if c.Name == "" {
		return contact.Contact{}, svcerr.Wrap(svcerr.Invalid, contact.ErrMissingName.Error(), contact.ErrMissingName)
	}
	if c.ID == "" {
		c.ID = ids.New()
	}
	row := cs.s.db.QueryRowContext(ctx, `
		insert into contacts(id, client_id, name, email, phone, role)
		values ($1,$2,$3,nullif($4,''),nullif($5,''),nullif($6,''))
		returning `+contactCols,
		c.ID, c.ClientID, c.Name, c.Email, c.Phone, c.Role)
	created, err := scanContact(row)
	if err != nil {
		return contact.Contact{}, normalizeWriteErr(err, "failed to create contact")
	}
	return created, nil
}

func (cs *contactStore) Update(ctx context.Context, id string, patch map[string]any) (contact.Contact, error) {
	if !cs.s.configured() {
		return contact.Contact{}, errNotConfigured()
	}
	set, args := buildUpdate(patch, 2)
	row := cs.s.db.QueryRowContext(ctx,
		"update contacts set "+set+" where id=$1 returning "+contactCols,
		append([]any{id}, args...)...)
	ct, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return contact.Contact{}, svcerr.Wrap(svcerr.NotFound, "contact not found", contact.ErrNotFound)
	}
	if err != nil {
		return contact.Contact{}, normalizeWriteErr(err, "failed to update contact")
	}
	return ct, nil
}

func (cs *contactStore) Delete(ctx context.Context, id string) error {
	if !cs.s.configured() {
		return errNotConfigured()
	}
	res, err := cs.s.db.ExecContext(ctx, `delete from contacts where id=$1`, id)
	if err != nil {
		return normalizeWriteErr(err, "failed to delete contact")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return svcerr.Wrap(svcerr.NotFound, "contact not found", contact.ErrNotFound)
	}
	return nil
}

// FindByPhone goes through the server-side lookup procedure, which owns phone
// normalization.
func (cs *contactStore) FindByPhone(ctx context.Context, phone string) (*contact.Contact, error) {
	if !cs.s.configured() {
		return nil, nil
	}
	ct, err := scanContact(cs.s.rpc(ctx, `select `+contactCols+` from find_contact_by_phone($1)`, phone))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ct, nil
}

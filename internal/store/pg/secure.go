package pg

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"fieldops.app/internal/audit"
	"fieldops.app/internal/ids"
	"fieldops.app/internal/secure"
	"fieldops.app/internal/svcerr"
)

// SecureData returns the secure-record service backed by this store. Reads go
// through the decrypting view; writes go through server-side procedures that
// encrypt. Every call appends an audit entry via the given sink.
func (s *Store) SecureData(sink audit.Sink) secure.Service {
	return &secureStore{s: s, sink: audit.BestEffort{Next: sink}}
}

type secureStore struct {
	s    *Store
	sink audit.Sink
}

const secureCols = "id, project_id, name, coalesce(kind,''), coalesce(username,''), coalesce(password,''), coalesce(notes,''), created_at, updated_at"

func scanSecure(row interface{ Scan(...any) error }) (secure.Record, error) {
	var r secure.Record
	err := row.Scan(&r.ID, &r.ProjectID, &r.Name, &r.Kind, &r.Username, &r.Password, &r.Notes, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (ss *secureStore) log(ctx context.Context, subjectID, action string, details map[string]any) {
	_ = ss.sink.Append(ctx, audit.NewEntry(ctx, subjectID, action, details))
}

func (ss *secureStore) GetAll(ctx context.Context, f secure.Filter) ([]secure.Record, error) {
	if !ss.s.configured() {
		return nil, nil
	}
	var c cond
	c.Eq("project_id", f.ProjectID)
	c.Eq("kind", f.Kind)

	rows, err := ss.s.db.QueryContext(ctx,
		"select "+secureCols+" from secure_data_decrypted"+c.Where()+" order by name asc", c.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []secure.Record
	for rows.Next() {
		r, err := scanSecure(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	ss.log(ctx, f.ProjectID, audit.ActionView, map[string]any{"scope": "list", "count": len(out)})
	return out, nil
}

func (ss *secureStore) GetByID(ctx context.Context, id string) (*secure.Record, error) {
	if !ss.s.configured() {
		return nil, nil
	}
	r, err := scanSecure(ss.s.db.QueryRowContext(ctx,
		"select "+secureCols+" from secure_data_decrypted where id=$1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ss.log(ctx, id, audit.ActionView, nil)
	return &r, nil
}

// Create sends plaintext to the server-side procedure, which encrypts before
// storing. The plaintext never touches a table directly from here.
func (ss *secureStore) Create(ctx context.Context, r secure.Record) (secure.Record, error) {
	if !ss.s.configured() {
		return secure.Record{}, errNotConfigured()
	}
	if r.ProjectID == "" {
		return secure.Record{}, svcerr.Wrap(svcerr.Invalid, secure.ErrMissingProject.Error(), secure.ErrMissingProject)
	}
	if r.Name == "" {
		return secure.Record{}, svcerr.Wrap(svcerr.Invalid, secure.ErrMissingName.Error(), secure.ErrMissingName)
	}
	if r.ID == "" {
		r.ID = ids.New()
	}
	row := ss.s.rpc(ctx, `
		select `+secureCols+` from secure_data_create($1,$2,$3,$4,$5,$6,$7)
	`, r.ID, r.ProjectID, r.Name, r.Kind, r.Username, r.Password, r.Notes)
	created, err := scanSecure(row)
	if err != nil {
		return secure.Record{}, normalizeWriteErr(err, "failed to create secure record")
	}
	ss.log(ctx, created.ID, audit.ActionCreate, map[string]any{"name": created.Name})
	return created, nil
}

func (ss *secureStore) Update(ctx context.Context, id string, patch map[string]any) (secure.Record, error) {
	if !ss.s.configured() {
		return secure.Record{}, errNotConfigured()
	}
	// The update procedure takes the full patch as jsonb and applies
	// server-side encryption to the sensitive fields.
	row := ss.s.rpc(ctx, `select `+secureCols+` from secure_data_update($1,$2)`, id, jsonPatch(patch))
	r, err := scanSecure(row)
	if errors.Is(err, sql.ErrNoRows) {
		return secure.Record{}, svcerr.Wrap(svcerr.NotFound, "secure record not found", secure.ErrNotFound)
	}
	if err != nil {
		return secure.Record{}, normalizeWriteErr(err, "failed to update secure record")
	}
	ss.log(ctx, id, audit.ActionUpdate, map[string]any{"fields": patchKeys(patch)})
	return r, nil
}

func (ss *secureStore) Delete(ctx context.Context, id string) error {
	if !ss.s.configured() {
		return errNotConfigured()
	}
	res, err := ss.s.db.ExecContext(ctx, `delete from secure_data where id=$1`, id)
	if err != nil {
		return normalizeWriteErr(err, "failed to delete secure record")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return svcerr.Wrap(svcerr.NotFound, "secure record not found", secure.ErrNotFound)
	}
	ss.log(ctx, id, audit.ActionDelete, nil)
	return nil
}

func patchKeys(patch map[string]any) []string {
	keys := make([]string, 0, len(patch))
	for k := range patch {
		if !serverManaged[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

package pg

import (
	"context"
	"database/sql"
	"time"

	"fieldops.app/internal/quickbooks"
)

// QuickBooksStatus reads the OAuth connection state through the
// qbo_connection_status procedure. Token storage and refresh live entirely in
// the backend; the app only sees this projection.
func (s *Store) QuickBooksStatus(ctx context.Context) (*quickbooks.ConnectionStatus, error) {
	if !s.configured() {
		return &quickbooks.ConnectionStatus{}, nil
	}

	var (
		st      quickbooks.ConnectionStatus
		realm   sql.NullString
		expires sql.NullTime
	)
	err := s.rpc(ctx, `select connected, realm_id, token_expires_at, needs_refresh from qbo_connection_status()`).
		Scan(&st.Connected, &realm, &expires, &st.NeedsRefresh)
	if err == sql.ErrNoRows {
		return &quickbooks.ConnectionStatus{}, nil
	}
	if err != nil {
		return nil, normalizeWriteErr(err, "read quickbooks connection status")
	}
	st.RealmID = realm.String
	if expires.Valid {
		st.TokenExpiresAt = expires.Time
	} else {
		st.TokenExpiresAt = time.Time{}
	}
	return &st, nil
}

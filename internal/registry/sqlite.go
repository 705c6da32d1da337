// ABOUTME: SQLite implementation of TicketRegistry using modernc.org/sqlite
// ABOUTME: Stores deadlines plus idle windows; consume is a conditional UPDATE in a transaction

package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/2389/coven-sso/internal/authn"
	"github.com/2389/coven-sso/internal/ticket"
)

// SQLiteRegistry implements TicketRegistry on a SQLite database.
type SQLiteRegistry struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ TicketRegistry = (*SQLiteRegistry)(nil)

// NewSQLiteRegistry opens (or creates) a SQLite-backed registry at the
// given path. The schema is created if it doesn't exist and parent
// directories are created as needed.
func NewSQLiteRegistry(path string) (*SQLiteRegistry, error) {
	logger := slog.Default().With("component", "registry")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode keeps sweeps from blocking concurrent validation.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	r := &SQLiteRegistry{db: db, logger: logger}
	if err := r.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite ticket registry initialized", "path", path)
	return r, nil
}

// createSchema creates the tickets table if it doesn't exist.
func (r *SQLiteRegistry) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS tickets (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			tgt_id TEXT,
			service_id TEXT,
			authentication TEXT,
			created_at DATETIME NOT NULL,
			last_used_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL,
			idle_timeout INTEGER NOT NULL DEFAULT 0,
			consumed INTEGER NOT NULL DEFAULT 0,
			revoked INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_tickets_tgt_id ON tickets(tgt_id);
		CREATE INDEX IF NOT EXISTS idx_tickets_expires_at ON tickets(expires_at);
	`
	if _, err := r.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// isUniqueConstraintError reports whether err is a SQLite unique
// constraint violation.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// tgtPayload is the JSON shape persisted for a TGT's authentication state.
type tgtPayload struct {
	Authentication *authn.Authentication `json:"authentication"`
	Service        *authn.Service        `json:"service,omitempty"`
	ChildIDs       []string              `json:"child_ids,omitempty"`
}

// deadlinePolicy reconstructs expiration for tickets loaded from rows: the
// absolute deadline plus the idle window, evaluated against the persisted
// last-used time.
type deadlinePolicy struct {
	deadline time.Time
	idle     time.Duration
}

func (p deadlinePolicy) IsExpired(created, lastUsed, now time.Time) bool {
	if !now.Before(p.deadline) {
		return true
	}
	if p.idle <= 0 {
		return false
	}
	if lastUsed.IsZero() {
		lastUsed = created
	}
	return now.Sub(lastUsed) >= p.idle
}

func (p deadlinePolicy) ExpiresAt(created time.Time) time.Time { return p.deadline }

// AddTicket implements TicketRegistry.
func (r *SQLiteRegistry) AddTicket(ctx context.Context, t ticket.Ticket) error {
	query := `
		INSERT INTO tickets (id, kind, tgt_id, service_id, authentication,
			created_at, last_used_at, expires_at, idle_timeout, consumed, revoked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0)
	`

	var (
		kind, tgtID, serviceID, payload string
		created, lastUsed, expires      time.Time
		idle                            time.Duration
	)

	switch tk := t.(type) {
	case *ticket.TicketGrantingTicket:
		kind = string(ticket.KindTicketGranting)
		created = tk.CreatedAt
		lastUsed = tk.LastUsedAt
		expires = tk.Policy.ExpiresAt(tk.CreatedAt)
		// ExpiresAt only captures the hard bound; the idle window is
		// persisted separately and re-checked on every read.
		if p, ok := tk.Policy.(ticket.IdleTimeoutPolicy); ok {
			idle = p.IdleTimeout
		}
		data, err := json.Marshal(tgtPayload{
			Authentication: tk.Authentication,
			Service:        tk.Service,
			ChildIDs:       tk.ChildIDs,
		})
		if err != nil {
			return fmt.Errorf("encoding authentication: %w", err)
		}
		payload = string(data)
	case *ticket.ServiceTicket:
		kind = string(tk.Kind)
		tgtID = tk.TGTID
		serviceID = tk.ServiceID
		created = tk.CreatedAt
		lastUsed = tk.CreatedAt
		expires = tk.Policy.ExpiresAt(tk.CreatedAt)
	default:
		return fmt.Errorf("unsupported ticket type %T", t)
	}

	_, err := r.db.ExecContext(ctx, query,
		t.ID(), kind, tgtID, serviceID, payload,
		created.UTC().Format(time.RFC3339Nano),
		lastUsed.UTC().Format(time.RFC3339Nano),
		expires.UTC().Format(time.RFC3339Nano),
		int64(idle),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateTicket, t.ID())
		}
		return fmt.Errorf("inserting ticket: %w", err)
	}
	return nil
}

// ticketRow is the scanned shape of one tickets row.
type ticketRow struct {
	id        string
	kind      string
	tgtID     sql.NullString
	serviceID sql.NullString
	payload   sql.NullString
	createdAt string
	lastUsed  string
	expiresAt string
	idleNs    int64
	consumed  bool
	revoked   bool
}

const selectColumns = `id, kind, tgt_id, service_id, authentication,
	created_at, last_used_at, expires_at, idle_timeout, consumed, revoked`

func scanTicketRow(scanner interface{ Scan(...any) error }) (*ticketRow, error) {
	var row ticketRow
	err := scanner.Scan(&row.id, &row.kind, &row.tgtID, &row.serviceID, &row.payload,
		&row.createdAt, &row.lastUsed, &row.expiresAt, &row.idleNs, &row.consumed, &row.revoked)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// toTicket converts a scanned row into a ticket value.
func (row *ticketRow) toTicket() (ticket.Ticket, error) {
	created, err := time.Parse(time.RFC3339Nano, row.createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	lastUsed, err := time.Parse(time.RFC3339Nano, row.lastUsed)
	if err != nil {
		return nil, fmt.Errorf("parsing last_used_at: %w", err)
	}
	expires, err := time.Parse(time.RFC3339Nano, row.expiresAt)
	if err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}
	policy := deadlinePolicy{deadline: expires, idle: time.Duration(row.idleNs)}

	if row.kind == string(ticket.KindTicketGranting) {
		var payload tgtPayload
		if row.payload.Valid {
			if err := json.Unmarshal([]byte(row.payload.String), &payload); err != nil {
				return nil, fmt.Errorf("decoding authentication: %w", err)
			}
		}
		return &ticket.TicketGrantingTicket{
			Id:             row.id,
			Authentication: payload.Authentication,
			Service:        payload.Service,
			CreatedAt:      created,
			LastUsedAt:     lastUsed,
			Policy:         policy,
			ChildIDs:       payload.ChildIDs,
			Revoked:        row.revoked,
		}, nil
	}

	return &ticket.ServiceTicket{
		Id:        row.id,
		TGTID:     row.tgtID.String,
		ServiceID: row.serviceID.String,
		Kind:      ticket.Kind(row.kind),
		CreatedAt: created,
		Policy:    policy,
		Consumed:  row.consumed,
	}, nil
}

// getRow fetches one row by id within q (a db or transaction).
func getRow(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, id string) (*ticketRow, error) {
	row, err := scanTicketRow(q.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM tickets WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTicketNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying ticket: %w", err)
	}
	return row, nil
}

// liveTicket converts a row to a ticket and applies lazy expiration,
// including the parent-liveness check for children.
func (r *SQLiteRegistry) liveTicket(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, row *ticketRow, now time.Time) (ticket.Ticket, error) {
	t, err := row.toTicket()
	if err != nil {
		return nil, err
	}
	if t.IsExpired(now) || row.revoked {
		return nil, fmt.Errorf("%w: %s", ErrTicketExpired, row.id)
	}

	if st, ok := t.(*ticket.ServiceTicket); ok && st.TGTID != "" {
		parentRow, err := getRow(ctx, q, st.TGTID)
		if errors.Is(err, ErrTicketNotFound) {
			return nil, fmt.Errorf("%w: %s (parent %s dead)", ErrTicketExpired, row.id, st.TGTID)
		}
		if err != nil {
			return nil, err
		}
		parent, err := parentRow.toTicket()
		if err != nil {
			return nil, err
		}
		if parent.IsExpired(now) {
			return nil, fmt.Errorf("%w: %s (parent %s dead)", ErrTicketExpired, row.id, st.TGTID)
		}
	}
	return t, nil
}

// GetTicket implements TicketRegistry.
func (r *SQLiteRegistry) GetTicket(ctx context.Context, id string) (ticket.Ticket, error) {
	row, err := getRow(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return r.liveTicket(ctx, r.db, row, time.Now().UTC())
}

// UpdateTicket implements TicketRegistry.
func (r *SQLiteRegistry) UpdateTicket(ctx context.Context, t ticket.Ticket) error {
	var (
		payload  string
		lastUsed time.Time
		consumed bool
		revoked  bool
	)

	switch tk := t.(type) {
	case *ticket.TicketGrantingTicket:
		data, err := json.Marshal(tgtPayload{
			Authentication: tk.Authentication,
			Service:        tk.Service,
			ChildIDs:       tk.ChildIDs,
		})
		if err != nil {
			return fmt.Errorf("encoding authentication: %w", err)
		}
		payload = string(data)
		lastUsed = tk.LastUsedAt
		revoked = tk.Revoked
	case *ticket.ServiceTicket:
		lastUsed = tk.CreatedAt
		consumed = tk.Consumed
	default:
		return fmt.Errorf("unsupported ticket type %T", t)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE tickets
		SET authentication = ?, last_used_at = ?, consumed = ?, revoked = ?
		WHERE id = ?`,
		payload, lastUsed.UTC().Format(time.RFC3339Nano), consumed, revoked, t.ID())
	if err != nil {
		return fmt.Errorf("updating ticket: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating ticket: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrTicketNotFound, t.ID())
	}
	return nil
}

// DeleteTicket implements TicketRegistry. Deleting a TGT marks its
// children revoked in the same transaction, so they are unvalidatable the
// moment the call returns.
func (r *SQLiteRegistry) DeleteTicket(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE tickets SET revoked = 1 WHERE tgt_id = ?", id); err != nil {
		return fmt.Errorf("revoking children: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM tickets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting ticket: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting ticket: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrTicketNotFound, id)
	}

	return tx.Commit()
}

// ConsumeServiceTicket implements TicketRegistry. The consumed mark is a
// conditional UPDATE, so two concurrent validations of a single-use
// ticket cannot both win.
func (r *SQLiteRegistry) ConsumeServiceTicket(ctx context.Context, id string) (*ticket.ServiceTicket, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning consume: %w", err)
	}
	defer tx.Rollback()

	row, err := getRow(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	t, err := r.liveTicket(ctx, tx, row, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	st, ok := t.(*ticket.ServiceTicket)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a service ticket", ErrTicketNotFound, id)
	}
	if st.Consumed {
		return nil, fmt.Errorf("%w: %s", ErrTicketConsumed, id)
	}

	if st.SingleUse() {
		res, err := tx.ExecContext(ctx,
			"UPDATE tickets SET consumed = 1 WHERE id = ? AND consumed = 0", id)
		if err != nil {
			return nil, fmt.Errorf("consuming ticket: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("consuming ticket: %w", err)
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: %s", ErrTicketConsumed, id)
		}
		st.Consumed = true
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing consume: %w", err)
	}
	return st, nil
}

// DeleteExpired implements TicketRegistry.
func (r *SQLiteRegistry) DeleteExpired(ctx context.Context) (int, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM tickets
		WHERE expires_at <= ?
		   OR revoked = 1
		   OR (tgt_id IS NOT NULL AND tgt_id != ''
		       AND tgt_id NOT IN (SELECT id FROM tickets WHERE kind = 'TGT'))`,
		now)
	if err != nil {
		return 0, fmt.Errorf("sweeping tickets: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweeping tickets: %w", err)
	}
	if n > 0 {
		r.logger.Debug("swept expired tickets", "removed", n)
	}
	return int(n), nil
}

// Close implements TicketRegistry.
func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}

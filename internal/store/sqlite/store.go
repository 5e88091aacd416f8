package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/domain"
	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store implements store.Store on a local sqlite file.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database file and runs migrations.
func New(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS targets (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	label               TEXT NOT NULL,
	url                 TEXT NOT NULL,
	cheval              TEXT,
	cavalier            TEXT,
	interval_normal_sec INTEGER NOT NULL DEFAULT 300,
	interval_hot_sec    INTEGER NOT NULL DEFAULT 45,
	hot_from            TEXT,
	hot_to              TEXT,
	last_status         TEXT NOT NULL DEFAULT 'UNKNOWN',
	last_checked_at     INTEGER,
	last_change_at      INTEGER,
	last_error          TEXT
);

CREATE TABLE IF NOT EXISTS events (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	target_id INTEGER NOT NULL,
	ts        INTEGER NOT NULL,
	status    TEXT NOT NULL,
	note      TEXT NOT NULL DEFAULT '',
	FOREIGN KEY(target_id) REFERENCES targets(id)
);
CREATE INDEX IF NOT EXISTS idx_events_target_ts ON events (target_id, ts DESC);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	// last_slots arrived after the first release; sqlite has no
	// IF NOT EXISTS on ADD COLUMN, so tolerate the duplicate error.
	_, _ = s.db.ExecContext(ctx, `ALTER TABLE targets ADD COLUMN last_slots INTEGER`)
	return nil
}

const targetCols = `id, label, url, cheval, cavalier, interval_normal_sec, interval_hot_sec,
	hot_from, hot_to, last_status, last_checked_at, last_change_at, last_error, last_slots`

func scanTarget(row interface{ Scan(...any) error }) (*domain.Target, error) {
	var t domain.Target
	var cheval, cavalier, hotFrom, hotTo, lastErr sql.NullString
	var checkedAt, changeAt sql.NullInt64
	var slots sql.NullInt64
	err := row.Scan(&t.ID, &t.Label, &t.URL, &cheval, &cavalier,
		&t.IntervalNormalSec, &t.IntervalHotSec, &hotFrom, &hotTo,
		&t.LastStatus, &checkedAt, &changeAt, &lastErr, &slots)
	if err != nil {
		return nil, err
	}
	t.Cheval = nullStr(cheval)
	t.Cavalier = nullStr(cavalier)
	t.HotFrom = nullStr(hotFrom)
	t.HotTo = nullStr(hotTo)
	t.LastError = nullStr(lastErr)
	if checkedAt.Valid {
		v := checkedAt.Int64
		t.LastCheckedAt = &v
	}
	if changeAt.Valid {
		v := changeAt.Int64
		t.LastChangeAt = &v
	}
	if slots.Valid {
		v := int(slots.Int64)
		t.LastSlots = &v
	}
	return &t, nil
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func (s *Store) ListTargets(ctx context.Context) ([]domain.Target, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+targetCols+` FROM targets ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer rows.Close()

	var out []domain.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *Store) GetTarget(ctx context.Context, id int64) (*domain.Target, error) {
	t, err := scanTarget(s.db.QueryRowContext(ctx,
		`SELECT `+targetCols+` FROM targets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get target: %w", err)
	}
	return t, nil
}

func (s *Store) AddTarget(ctx context.Context, p domain.AddTargetPayload) (int64, error) {
	normal := int64(300)
	if p.IntervalNormalSec != nil {
		normal = *p.IntervalNormalSec
	}
	if normal < 15 {
		normal = 15
	}
	hot := int64(45)
	if p.IntervalHotSec != nil {
		hot = *p.IntervalHotSec
	}
	if hot < 10 {
		hot = 10
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO targets (label, url, cheval, cavalier, interval_normal_sec, interval_hot_sec, hot_from, hot_to)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Label, p.URL, p.Cheval, p.Cavalier, normal, hot, p.HotFrom, p.HotTo)
	if err != nil {
		return 0, fmt.Errorf("insert target: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert target id: %w", err)
	}
	return id, nil
}

func (s *Store) DeleteTarget(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	// Children first: events reference targets and there is no
	// ON DELETE CASCADE on the schema.
	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE target_id = ?`, id); err != nil {
		return fmt.Errorf("delete events: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM targets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete target: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return tx.Commit()
}

func (s *Store) UpdateStatus(ctx context.Context, id int64, status domain.Status, ts int64, errMsg string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	var errVal any
	if errMsg != "" {
		errVal = errMsg
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE targets
		    SET last_status = ?,
		        last_checked_at = ?,
		        last_change_at = CASE WHEN last_status <> ? THEN ? ELSE last_change_at END,
		        last_error = ?
		  WHERE id = ?`,
		string(status), ts, string(status), ts, errVal, id)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	// One audit row per poll, change or not.
	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (target_id, ts, status, note) VALUES (?, ?, ?, ?)`,
		id, ts, string(status), errMsg)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return tx.Commit()
}

func (s *Store) SetLastSlots(ctx context.Context, id int64, slots int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE targets SET last_slots = ? WHERE id = ?`, slots, id)
	if err != nil {
		return fmt.Errorf("set last slots: %w", err)
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context, targetID int64, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, target_id, ts, status, note
		   FROM events
		  WHERE target_id = ?
		  ORDER BY ts DESC, id DESC
		  LIMIT ?`, targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TargetID, &e.TS, &e.Status, &e.Note); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

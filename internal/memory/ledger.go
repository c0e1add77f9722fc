package memory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Turn is one persisted conversation turn.
type Turn struct {
	ID        int64
	SessionID string
	Role      string
	Content   string
	CreatedAt time.Time
}

// Ledger is the local sqlite store backing two things: the seen-window set
// that keeps memory extraction idempotent across restarts, and the raw
// conversation turn history per session.
type Ledger struct {
	db *sql.DB
}

func NewLedger(dbPath string) (*Ledger, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Performance tuning
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-8000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	if err := initLedgerSchema(db); err != nil {
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

func initLedgerSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS seen_windows (
			window_key TEXT PRIMARY KEY,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS turns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id);
	`
	_, err := db.Exec(schema)
	return err
}

// Seen reports whether a window key was already extracted.
func (l *Ledger) Seen(ctx context.Context, windowKey string) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx,
		"SELECT 1 FROM seen_windows WHERE window_key = ?", windowKey,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkSeen records a window key. Marking the same key twice is a no-op.
func (l *Ledger) MarkSeen(ctx context.Context, windowKey string) error {
	_, err := l.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO seen_windows (window_key) VALUES (?)", windowKey,
	)
	return err
}

// SaveTurn appends one turn to a session's history.
func (l *Ledger) SaveTurn(ctx context.Context, sessionID, role, content string) error {
	_, err := l.db.ExecContext(ctx,
		"INSERT INTO turns (session_id, role, content) VALUES (?, ?, ?)",
		sessionID, role, content,
	)
	return err
}

// History returns a session's turns oldest-first, capped at limit.
func (l *Ledger) History(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, created_at FROM (
			SELECT id, session_id, role, content, created_at
			FROM turns WHERE session_id = ?
			ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

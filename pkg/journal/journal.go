// Package journal records bridge traffic in a SQLite database for later
// inspection. It is diagnostics only: nothing is ever replayed from it.
package journal

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

	"quill/pkg/protocol"

	_ "modernc.org/sqlite" // SQLite driver
)

// Entry is one recorded envelope.
type Entry struct {
	ID        int64
	Session   string
	Direction protocol.Direction
	Envelope  protocol.Envelope
	CreatedAt time.Time
}

// Query specifies filter criteria for Recent.
type Query struct {
	// Limit restricts the number of results (0 = no limit).
	Limit int

	// Session filters to one `quill run` invocation.
	Session string

	// Direction filters to inbound or outbound traffic.
	Direction protocol.Direction

	// Tag filters to one message tag.
	Tag protocol.Tag
}

// Journal appends envelopes for one session.
type Journal struct {
	db      *sql.DB
	session string
	log     *slog.Logger
}

// Open opens (creating if needed) the journal at path with WAL mode and a
// 5-second busy timeout, and applies the schema. Rows recorded through the
// returned Journal carry session.
func Open(ctx context.Context, path, session string, log *slog.Logger) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection serializes writers; the reader and writer goroutines
	// both record.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s on %s: %w", pragma, path, err)
		}
	}
	if _, err := db.ExecContext(ctx, protocol.SchemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}

	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Journal{db: db, session: session, log: log}, nil
}

// OpenReadOnly opens an existing journal for queries. It fails if the file
// does not exist.
func OpenReadOnly(path string) (*Journal, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("journal not found: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}
	return &Journal{db: db, log: slog.New(slog.DiscardHandler)}, nil
}

// Session returns the session id rows are recorded under.
func (j *Journal) Session() string {
	return j.session
}

// Close releases the database. Safe to call multiple times.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

// Record appends one envelope.
func (j *Journal) Record(ctx context.Context, dir protocol.Direction, env protocol.Envelope) error {
	if !dir.Valid() {
		return fmt.Errorf("record envelope: invalid direction %q", dir)
	}
	data := env.Data
	if data == nil {
		data = []string{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}

	_, err = j.db.ExecContext(ctx,
		`INSERT INTO envelopes (session, direction, tag, serial, data) VALUES (?, ?, ?, ?, ?)`,
		j.session, string(dir), string(env.Tag), env.Serial, string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert envelope: %w", err)
	}
	return nil
}

// Observe records env and logs failures instead of returning them, so a
// Journal can be used directly as a bridge tap.
func (j *Journal) Observe(dir protocol.Direction, env protocol.Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := j.Record(ctx, dir, env); err != nil {
		j.log.Warn("journal record failed", "direction", dir, "tag", env.Tag, "serial", env.Serial, "err", err)
	}
}

// Recent returns the newest entries matching q, oldest first.
func (j *Journal) Recent(ctx context.Context, q Query) ([]Entry, error) {
	if q.Direction != "" && !q.Direction.Valid() {
		return nil, fmt.Errorf("invalid direction %q", q.Direction)
	}
	query, args := buildQuery(q)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query envelopes: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			dir, tag  string
			payload   string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Session, &dir, &tag, &e.Envelope.Serial, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan envelope: %w", err)
		}
		e.Direction = protocol.Direction(dir)
		e.Envelope.Tag = protocol.Tag(tag)
		if err := json.Unmarshal([]byte(payload), &e.Envelope.Data); err != nil {
			return nil, fmt.Errorf("decode data of row %d: %w", e.ID, err)
		}
		if e.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at of row %d: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate envelopes: %w", err)
	}

	// Fetched newest first so LIMIT keeps the latest rows.
	for i, k := 0, len(entries)-1; i < k; i, k = i+1, k-1 {
		entries[i], entries[k] = entries[k], entries[i]
	}
	return entries, nil
}

func buildQuery(q Query) (string, []any) {
	var conditions []string
	var args []any

	query := "SELECT id, session, direction, tag, serial, data, created_at FROM envelopes"

	if q.Session != "" {
		conditions = append(conditions, "session = ?")
		args = append(args, q.Session)
	}
	if q.Direction != "" {
		conditions = append(conditions, "direction = ?")
		args = append(args, string(q.Direction))
	}
	if q.Tag != "" {
		conditions = append(conditions, "tag = ?")
		args = append(args, string(q.Tag))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC"
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	return query, args
}

var errEmptyTimestamp = errors.New("empty timestamp")

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errEmptyTimestamp
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", s)
}

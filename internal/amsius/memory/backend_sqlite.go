package memory

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// SQLiteBackend persists one row per retained message in the messages
// table (auto-increment id, text, insertion timestamp). Load reads the
// newest rows by id and reverses them so callers always consume
// oldest-first, keeping FIFO eviction continuous across restarts.
//
// The caller owns the database connection and must ensure the messages
// table exists before first use (store.New runs the migration on startup).
type SQLiteBackend struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteBackend creates a SQLiteBackend on the given connection.
// If logger is nil, the default slog logger is used.
func NewSQLiteBackend(db *sql.DB, logger *slog.Logger) *SQLiteBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteBackend{db: db, logger: logger}
}

// Load returns up to limit of the most recently retained messages,
// oldest-first.
func (s *SQLiteBackend) Load(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT text FROM messages
		ORDER BY id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("memory sqlite: query messages: %w", err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("memory sqlite: scan row: %w", err)
		}
		texts = append(texts, text)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("memory sqlite: iterate rows: %w", err)
	}

	// Rows arrive newest-first; the corpus wants oldest-first.
	for i, j := 0, len(texts)-1; i < j; i, j = i+1, j-1 {
		texts[i], texts[j] = texts[j], texts[i]
	}

	s.logger.Debug("memory sqlite: loaded corpus", "messages", len(texts))
	return texts, nil
}

// Save inserts the retained message as a new row. The corpus snapshot is
// unused: the row store appends incrementally.
func (s *SQLiteBackend) Save(ctx context.Context, text string, _ []string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (text) VALUES (?)`, text,
	); err != nil {
		return fmt.Errorf("memory sqlite: insert message: %w", err)
	}
	return nil
}

// Close is a no-op: the database connection belongs to the caller.
func (s *SQLiteBackend) Close() error { return nil }

// Compile-time interface satisfaction check.
var _ Backend = (*SQLiteBackend)(nil)

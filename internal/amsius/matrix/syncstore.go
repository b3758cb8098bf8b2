package matrix

// syncstore.go keeps the mautrix sync position in the Amsius SQLite
// database. Without a persisted next_batch token every restart would
// replay old room history straight into the learner.

import (
	"context"
	"database/sql"
	"errors"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"
)

// Keys under which sync state is stored in matrix_sync_state. Each key is
// scoped to the bot's own Matrix user ID so a shared database could serve
// more than one account.
const (
	syncKeyFilterID  = "filter_id"
	syncKeyNextBatch = "next_batch"
)

var _ mautrix.SyncStore = (*sqlSyncStore)(nil)

// sqlSyncStore persists sync state rows keyed by (user_id, key). The
// matrix_sync_state migration must have been applied before use.
type sqlSyncStore struct {
	db *sql.DB
}

func newSQLSyncStore(db *sql.DB) *sqlSyncStore {
	return &sqlSyncStore{db: db}
}

func (s *sqlSyncStore) SaveFilterID(ctx context.Context, userID id.UserID, filterID string) error {
	return s.put(ctx, userID, syncKeyFilterID, filterID)
}

func (s *sqlSyncStore) LoadFilterID(ctx context.Context, userID id.UserID) (string, error) {
	return s.get(ctx, userID, syncKeyFilterID)
}

func (s *sqlSyncStore) SaveNextBatch(ctx context.Context, userID id.UserID, nextBatchToken string) error {
	return s.put(ctx, userID, syncKeyNextBatch, nextBatchToken)
}

func (s *sqlSyncStore) LoadNextBatch(ctx context.Context, userID id.UserID) (string, error) {
	return s.get(ctx, userID, syncKeyNextBatch)
}

func (s *sqlSyncStore) put(ctx context.Context, userID id.UserID, key, value string) error {
	const q = `INSERT INTO matrix_sync_state (user_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value`
	_, err := s.db.ExecContext(ctx, q, userID.String(), key, value)
	return err
}

// get returns the stored value, or ("", nil) when nothing has been saved
// for this user and key yet. mautrix treats an empty next_batch as a
// first run.
func (s *sqlSyncStore) get(ctx context.Context, userID id.UserID, key string) (string, error) {
	const q = `SELECT value FROM matrix_sync_state WHERE user_id = ? AND key = ?`
	var value string
	err := s.db.QueryRowContext(ctx, q, userID.String(), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

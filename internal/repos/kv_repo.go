package repos

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"storefront/internal/cart"
)

// KVRepo stores small per-session records in sqlite.
type KVRepo struct{ db *sqlx.DB }

func NewKVRepo(db *sqlx.DB) *KVRepo { return &KVRepo{db: db} }

// ForSession scopes the store to one browser session.
func (r *KVRepo) ForSession(sid string) cart.Storage {
	return &sessionKV{db: r.db, sid: sid}
}

// PurgeBefore drops records not written since cutoff and returns how many
// went away.
func (r *KVRepo) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM kv WHERE updated_at < ?`, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type sessionKV struct {
	db  *sqlx.DB
	sid string
}

func (s *sessionKV) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.GetContext(ctx, &v, `SELECT value FROM kv WHERE session_id = ? AND key = ?`, s.sid, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *sessionKV) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
	  INSERT INTO kv(session_id, key, value, updated_at)
	  VALUES(?, ?, ?, ?)
	  ON CONFLICT(session_id, key) DO UPDATE
	  SET value = excluded.value, updated_at = excluded.updated_at
	`, s.sid, key, value, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *sessionKV) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE session_id = ? AND key = ?`, s.sid, key)
	return err
}

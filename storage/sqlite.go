// Package storage persists trained model artifacts and caches the live
// predictors rebuilt from them.
package storage

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/plantops/forgeml/pkg/errors"
	"github.com/plantops/forgeml/pkg/log"
	"github.com/plantops/forgeml/trainer"
)

// ErrNotFound is returned when no artifact has the requested ID.
var ErrNotFound = errors.New("model not found")

const schema = `
CREATE TABLE IF NOT EXISTS models (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	target     TEXT NOT NULL,
	payload    BLOB NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_models_target ON models(target);
`

// Record is the listing entry of a stored artifact.
type Record struct {
	ID        string            `json:"id"`
	Kind      trainer.ModelKind `json:"type"`
	Target    string            `json:"target"`
	CreatedAt time.Time         `json:"created_at"`
}

// SQLiteStore keeps serialized TrainedModels in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger log.Logger
	now    func() time.Time
}

// OpenSQLite opens (and if needed creates) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	// SQLite は単一ライターのため接続を1本に制限する
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create schema")
	}
	return &SQLiteStore{
		db:     db,
		logger: log.GetLoggerWithName("storage"),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save stores m, replacing any artifact with the same ID.
func (s *SQLiteStore) Save(ctx context.Context, m *trainer.TrainedModel) error {
	payload, err := m.Marshal()
	if err != nil {
		return errors.Wrapf(err, "encode model %s", m.ID)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO models (id, kind, target, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, string(m.Type), m.Target, payload, s.now().Format(time.RFC3339Nano))
	if err != nil {
		return errors.Wrapf(err, "save model %s", m.ID)
	}
	s.logger.Debug("model saved", log.EstimatorIDKey, m.ID, log.ModelNameKey, string(m.Type))
	return nil
}

// SaveAll stores every model in one transaction.
func (s *SQLiteStore) SaveAll(ctx context.Context, models []*trainer.TrainedModel) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO models (id, kind, target, payload, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare")
	}
	defer stmt.Close()

	created := s.now().Format(time.RFC3339Nano)
	for _, m := range models {
		payload, err := m.Marshal()
		if err != nil {
			return errors.Wrapf(err, "encode model %s", m.ID)
		}
		if _, err := stmt.ExecContext(ctx, m.ID, string(m.Type), m.Target, payload, created); err != nil {
			return errors.Wrapf(err, "save model %s", m.ID)
		}
	}
	return tx.Commit()
}

// Load returns the serialized artifact.
func (s *SQLiteStore) Load(ctx context.Context, id string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM models WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Mark(errors.Newf("model %s", id), ErrNotFound)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load model %s", id)
	}
	return payload, nil
}

// Get returns the decoded artifact.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*trainer.TrainedModel, error) {
	payload, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	var m trainer.TrainedModel
	if err := trainer.Decode(payload, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns every stored artifact, newest first. An empty target lists
// all targets.
func (s *SQLiteStore) List(ctx context.Context, target string) ([]Record, error) {
	query := `SELECT id, kind, target, created_at FROM models`
	var args []any
	if target != "" {
		query += ` WHERE target = ?`
		args = append(args, target)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list models")
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			r       Record
			kind    string
			created string
		)
		if err := rows.Scan(&r.ID, &kind, &r.Target, &created); err != nil {
			return nil, errors.Wrap(err, "scan model")
		}
		r.Kind = trainer.ModelKind(kind)
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, errors.Wrapf(err, "model %s: created_at", r.ID)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Delete removes the artifact. Deleting an unknown ID is ErrNotFound.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM models WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "delete model %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "delete model %s", id)
	}
	if n == 0 {
		return errors.Mark(errors.Newf("model %s", id), ErrNotFound)
	}
	return nil
}

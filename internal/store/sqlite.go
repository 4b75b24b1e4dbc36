package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"iter"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"

	"metadata-mapper/internal/domain"
	"metadata-mapper/internal/model"
	"metadata-mapper/internal/resolve"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	content_key TEXT,
	created_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS entities_content
	ON entities (kind, content_key) WHERE content_key IS NOT NULL;
CREATE TABLE IF NOT EXISTS documents (
	kind TEXT NOT NULL,
	id INTEGER NOT NULL,
	document TEXT NOT NULL,
	updated_at DATETIME,
	PRIMARY KEY (kind, id)
);
CREATE TABLE IF NOT EXISTS records (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	data_model_id INTEGER NOT NULL,
	record_id TEXT NOT NULL,
	data TEXT NOT NULL,
	UNIQUE (data_model_id, record_id)
);
`

// SQLite is a store in a single SQLite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	// WAL lets record streams stay open while results are written.
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %s", path)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create tables")
	}

	return &SQLite{db: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Begin opens a transaction.
func (s *SQLite) Begin(ctx context.Context) (resolve.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin")
	}

	return &sqliteTx{q: tx, tx: tx}, nil
}

// Create persists an entity outside any transaction.
func (s *SQLite) Create(ctx context.Context, kind model.EntityKind, contentKey string) (model.ID, error) {
	return create(ctx, s.db, kind, contentKey)
}

// Exists reports whether an entity of the given kind has the given id.
func (s *SQLite) Exists(ctx context.Context, kind model.EntityKind, id model.ID) (bool, error) {
	return exists(ctx, s.db, kind, id)
}

// LoadDocument returns the latest document saved for an entity.
func (s *SQLite) LoadDocument(ctx context.Context, kind model.EntityKind, id model.ID) ([]byte, bool, error) {
	return loadDocument(ctx, s.db, kind, id)
}

// GetSchema returns the schema of a data model submitted earlier.
func (s *SQLite) GetSchema(ctx context.Context, dataModelID model.ID) (*model.Schema, error) {
	doc, ok, err := s.LoadDocument(ctx, model.KindDataModel, dataModelID)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, domain.NewUnresolvedReference(model.KindDataModel.String(), int64(dataModelID), "not found")
	}

	return schemaOf(dataModelID, doc, func(kind model.EntityKind, id model.ID) ([]byte, bool, error) {
		return s.LoadDocument(ctx, kind, id)
	})
}

// GetObjects streams the records of a data model in insertion order, or the
// listed records in the listed order. Unknown record ids are skipped.
// limit <= 0 means no limit.
func (s *SQLite) GetObjects(
	ctx context.Context,
	dataModelID model.ID,
	recordIDs []string,
	limit int,
) iter.Seq2[model.Record, error] {
	if len(recordIDs) > 0 {
		return s.selectedObjects(ctx, dataModelID, recordIDs, limit)
	}

	return func(yield func(model.Record, error) bool) {
		query := `SELECT record_id, data FROM records WHERE data_model_id = ? ORDER BY seq`
		args := []any{int64(dataModelID)}

		if limit > 0 {
			query += ` LIMIT ?`
			args = append(args, limit)
		}

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(model.Record{}, errors.Wrap(err, "query records"))
			return
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanRecord(rows)
			if !yield(rec, err) || err != nil {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(model.Record{}, errors.Wrap(err, "iterate records"))
		}
	}
}

func (s *SQLite) selectedObjects(
	ctx context.Context,
	dataModelID model.ID,
	recordIDs []string,
	limit int,
) iter.Seq2[model.Record, error] {
	return func(yield func(model.Record, error) bool) {
		n := 0

		for _, id := range recordIDs {
			if limit > 0 && n >= limit {
				return
			}

			row := s.db.QueryRowContext(ctx,
				`SELECT record_id, data FROM records WHERE data_model_id = ? AND record_id = ?`,
				int64(dataModelID), id)

			rec, err := scanRecord(row)
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}

			if !yield(rec, err) || err != nil {
				return
			}

			n++
		}
	}
}

// CreateObjects stores records under a data model, replacing records with
// the same id.
func (s *SQLite) CreateObjects(ctx context.Context, dataModelID model.ID, records []model.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}

	for _, r := range records {
		data, err := json.Marshal(r.Data)
		if err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "encode record %s", r.ID)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO records (data_model_id, record_id, data) VALUES (?, ?, ?)
			ON CONFLICT (data_model_id, record_id) DO UPDATE SET data = excluded.data`,
			int64(dataModelID), r.ID, string(data))
		if err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "insert record %s", r.ID)
		}
	}

	return errors.Wrap(tx.Commit(), "commit records")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (model.Record, error) {
	var (
		id   string
		data string
	)

	if err := row.Scan(&id, &data); err != nil {
		return model.Record{}, err
	}

	rec := model.Record{ID: id}
	if err := json.Unmarshal([]byte(data), &rec.Data); err != nil {
		return model.Record{}, errors.Wrapf(err, "decode record %s", id)
	}

	return rec, nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqliteTx struct {
	q  querier
	tx *sql.Tx
}

func (t *sqliteTx) Create(ctx context.Context, kind model.EntityKind, contentKey string) (model.ID, error) {
	return create(ctx, t.q, kind, contentKey)
}

func (t *sqliteTx) Exists(ctx context.Context, kind model.EntityKind, id model.ID) (bool, error) {
	return exists(ctx, t.q, kind, id)
}

func (t *sqliteTx) SaveDocument(ctx context.Context, kind model.EntityKind, id model.ID, doc []byte) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO documents (kind, id, document, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (kind, id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		kind.String(), int64(id), string(doc), time.Now().UTC())

	return errors.Wrapf(err, "save %s document %d", kind, id)
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func create(ctx context.Context, q querier, kind model.EntityKind, contentKey string) (model.ID, error) {
	var key any
	if contentKey != "" {
		key = contentKey

		var id int64

		err := q.QueryRowContext(ctx,
			`SELECT id FROM entities WHERE kind = ? AND content_key = ?`, kind.String(), contentKey).Scan(&id)
		if err == nil {
			return model.ID(id), nil
		}

		if !errors.Is(err, sql.ErrNoRows) {
			return 0, errors.Wrapf(err, "lookup %s", kind)
		}
	}

	res, err := q.ExecContext(ctx,
		`INSERT INTO entities (kind, content_key, created_at) VALUES (?, ?, ?)`,
		kind.String(), key, time.Now().UTC())
	if err != nil {
		return 0, errors.Wrapf(err, "insert %s", kind)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrapf(err, "insert %s", kind)
	}

	return model.ID(id), nil
}

func exists(ctx context.Context, q querier, kind model.EntityKind, id model.ID) (bool, error) {
	var one int

	err := q.QueryRowContext(ctx,
		`SELECT 1 FROM entities WHERE kind = ? AND id = ?`, kind.String(), int64(id)).Scan(&one)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	default:
		return false, errors.Wrapf(err, "lookup %s %d", kind, id)
	}
}

func loadDocument(ctx context.Context, q querier, kind model.EntityKind, id model.ID) ([]byte, bool, error) {
	var doc string

	err := q.QueryRowContext(ctx,
		`SELECT document FROM documents WHERE kind = ? AND id = ?`, kind.String(), int64(id)).Scan(&doc)

	switch {
	case err == nil:
		return []byte(doc), true, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, false, nil
	default:
		return nil, false, errors.Wrapf(err, "load %s document %d", kind, id)
	}
}

package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores every collection in one JSONB table (see pkg/database/migrations).
// A Commit runs in a single transaction. Versions come from one sequence, so a document
// that is deleted and created again never reuses an old version.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an open pool. The schema must already be migrated.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Get returns one document.
func (p *Postgres) Get(ctx context.Context, collection, key string) (*Document, error) {
	const q = `SELECT data, version FROM documents WHERE collection = $1 AND key = $2`
	var raw []byte
	var version int64
	err := p.pool.QueryRow(ctx, q, collection, key).Scan(&raw, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", collection, key, err)
	}
	return &Document{Collection: collection, Key: key, Fields: fields, Version: strconv.FormatInt(version, 10)}, nil
}

// List returns every document of a collection ordered by key.
func (p *Postgres) List(ctx context.Context, collection string) ([]*Document, error) {
	rows, err := p.pool.Query(ctx, `SELECT key, data, version FROM documents WHERE collection = $1 ORDER BY key`, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()
	var list []*Document
	for rows.Next() {
		var key string
		var raw []byte
		var version int64
		if err := rows.Scan(&key, &raw, &version); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, key, err)
		}
		list = append(list, &Document{Collection: collection, Key: key, Fields: fields, Version: strconv.FormatInt(version, 10)})
	}
	return list, rows.Err()
}

// Commit applies writes inside one transaction; any error rolls back all of them.
func (p *Postgres) Commit(ctx context.Context, writes ...Write) error {
	for _, w := range writes {
		if err := validate(w); err != nil {
			return err
		}
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, w := range writes {
		if err := p.apply(ctx, tx, w); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const (
	upsertSet = `INSERT INTO documents (collection, key, data, version, updated_at)
		VALUES ($1, $2, $3::jsonb, nextval('documents_version_seq'), NOW())
		ON CONFLICT (collection, key) DO UPDATE
		SET data = EXCLUDED.data, version = EXCLUDED.version, updated_at = NOW()`
	upsertMerge = `INSERT INTO documents (collection, key, data, version, updated_at)
		VALUES ($1, $2, $3::jsonb, nextval('documents_version_seq'), NOW())
		ON CONFLICT (collection, key) DO UPDATE
		SET data = documents.data || EXCLUDED.data, version = EXCLUDED.version, updated_at = NOW()`
	insertNew = `INSERT INTO documents (collection, key, data, version, updated_at)
		VALUES ($1, $2, $3::jsonb, nextval('documents_version_seq'), NOW())
		ON CONFLICT (collection, key) DO NOTHING`
	updateSet = `UPDATE documents SET data = $3::jsonb, version = nextval('documents_version_seq'), updated_at = NOW()
		WHERE collection = $1 AND key = $2 AND version = $4`
	updateMerge = `UPDATE documents SET data = data || $3::jsonb, version = nextval('documents_version_seq'), updated_at = NOW()
		WHERE collection = $1 AND key = $2 AND version = $4`
)

// apply runs one write. Preconditions are enforced by the statement itself: a unique-key
// insert for MustNotExist, a version-guarded update or delete for Version.
func (p *Postgres) apply(ctx context.Context, tx pgx.Tx, w Write) error {
	var want int64
	if v := w.Precondition.Version; v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return ErrPreconditionFailed
		}
		want = n
	}

	if w.Op == OpDelete {
		return p.applyDelete(ctx, tx, w, want)
	}
	if w.Op != OpSet && w.Op != OpMerge {
		return fmt.Errorf("docstore: unknown op %s", w.Op)
	}

	raw := []byte("{}")
	if w.Fields != nil {
		var err error
		if raw, err = json.Marshal(w.Fields); err != nil {
			return fmt.Errorf("encode %s/%s: %w", w.Collection, w.Key, err)
		}
	}

	var (
		q    string
		args = []any{w.Collection, w.Key, string(raw)}
	)
	switch {
	case w.Precondition.MustNotExist:
		q = insertNew
	case w.Precondition.Version != "" && w.Op == OpMerge:
		q, args = updateMerge, append(args, want)
	case w.Precondition.Version != "":
		q, args = updateSet, append(args, want)
	case w.Op == OpMerge:
		q = upsertMerge
	default:
		q = upsertSet
	}
	tag, err := tx.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("%s %s/%s: %w", w.Op, w.Collection, w.Key, err)
	}
	if !w.Precondition.IsZero() && tag.RowsAffected() != 1 {
		return ErrPreconditionFailed
	}
	return nil
}

func (p *Postgres) applyDelete(ctx context.Context, tx pgx.Tx, w Write, want int64) error {
	switch {
	case w.Precondition.MustNotExist:
		// Nothing to delete; only the existence check matters.
		var exists bool
		err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE collection = $1 AND key = $2)`, w.Collection, w.Key).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check %s/%s: %w", w.Collection, w.Key, err)
		}
		if exists {
			return ErrPreconditionFailed
		}
		return nil
	case w.Precondition.Version != "":
		tag, err := tx.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND key = $2 AND version = $3`, w.Collection, w.Key, want)
		if err != nil {
			return fmt.Errorf("delete %s/%s: %w", w.Collection, w.Key, err)
		}
		if tag.RowsAffected() != 1 {
			return ErrPreconditionFailed
		}
		return nil
	}
	if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND key = $2`, w.Collection, w.Key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", w.Collection, w.Key, err)
	}
	return nil
}

// Close closes the underlying pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// decodeFields keeps numbers as json.Number so large ids survive the round trip.
func decodeFields(raw []byte) (Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	fields := Fields{}
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}

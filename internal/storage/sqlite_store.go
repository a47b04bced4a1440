package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"lifequest/internal/timeutil"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore keeps every document as a JSON row in the documents table.
type SQLiteStore struct {
	db    *sql.DB
	q     querier
	inTx  bool
	clock timeutil.Clock
}

func NewSQLiteStore(db *sql.DB, clock timeutil.Clock) *SQLiteStore {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &SQLiteStore{db: db, q: db, clock: clock}
}

func (s *SQLiteStore) RunTx(ctx context.Context, fn func(DocumentStore) error) error {
	if s.inTx {
		return fn(s)
	}
	return WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&SQLiteStore{db: s.db, q: tx, inTx: true, clock: s.clock})
	})
}

func (s *SQLiteStore) GetDocument(ctx context.Context, p Path) (*Document, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	row := s.q.QueryRowContext(ctx, `
		SELECT data, version, created_at, updated_at
		FROM documents
		WHERE user = ? AND collection = ? AND id = ?
	`, p.User, p.Collection, p.ID)

	var (
		data      string
		version   int64
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&data, &version, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("document get %s: %w", p, err)
	}
	return newDocument(p, data, version, createdAt, updatedAt)
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (s *SQLiteStore) ListDocuments(ctx context.Context, userID, collection string, q Query) ([]Document, error) {
	if userID == "" || collection == "" {
		return nil, fmt.Errorf("document list: user and collection are required")
	}

	var sb strings.Builder
	sb.WriteString(`SELECT id, data, version, created_at, updated_at FROM documents WHERE user = ? AND collection = ?`)
	args := []any{userID, collection}

	for _, f := range q.Filters {
		if !fieldPattern.MatchString(f.Field) {
			return nil, fmt.Errorf("document list: invalid field %q", f.Field)
		}
		switch f.Op {
		case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		default:
			return nil, fmt.Errorf("document list: invalid operator %q", f.Op)
		}
		op := string(f.Op)
		if f.Op == OpEq {
			op = "="
		}
		fmt.Fprintf(&sb, ` AND json_extract(data, '$.%s') %s ?`, f.Field, op)
		args = append(args, filterArg(f.Value))
	}
	if !q.UpdatedSince.IsZero() {
		sb.WriteString(` AND updated_at >= ?`)
		args = append(args, q.UpdatedSince.UnixNano())
	}
	if q.Desc {
		sb.WriteString(` ORDER BY created_at DESC, id DESC`)
	} else {
		sb.WriteString(` ORDER BY created_at ASC, id ASC`)
	}
	if q.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}

	rows, err := s.q.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("document list users/%s/%s: %w", userID, collection, err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var (
			id        string
			data      string
			version   int64
			createdAt int64
			updatedAt int64
		)
		if err := rows.Scan(&id, &data, &version, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("document scan: %w", err)
		}
		doc, err := newDocument(Path{User: userID, Collection: collection, ID: id}, data, version, createdAt, updatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("document rows: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) SetDocument(ctx context.Context, p Path, data any) error {
	if err := p.validate(); err != nil {
		return err
	}
	_, raw, err := toDataMap(data)
	if err != nil {
		return err
	}
	now := s.clock.Now().UnixNano()
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO documents (user, collection, id, data, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(user, collection, id) DO UPDATE SET
			data = excluded.data,
			version = documents.version + 1,
			updated_at = excluded.updated_at
	`, p.User, p.Collection, p.ID, string(raw), now, now)
	if err != nil {
		return fmt.Errorf("document set %s: %w", p, err)
	}
	return nil
}

func (s *SQLiteStore) UpdateDocument(ctx context.Context, p Path, partial map[string]any, preconds ...Precondition) error {
	if len(partial) == 0 {
		return nil
	}
	return s.RunTx(ctx, func(ds DocumentStore) error {
		tx := ds.(*SQLiteStore)
		doc, err := tx.GetDocument(ctx, p)
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("document update %s: %w", p, ErrNotFound)
		}
		for _, pc := range preconds {
			if pc.version != doc.Version {
				return fmt.Errorf("document update %s (version %d, want %d): %w", p, doc.Version, pc.version, ErrConflict)
			}
		}

		merged := doc.Data
		if merged == nil {
			merged = map[string]any{}
		}
		for k, v := range partial {
			merged[k] = v
		}
		raw, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("marshal document: %w", err)
		}

		res, err := tx.q.ExecContext(ctx, `
			UPDATE documents
			SET data = ?, version = version + 1, updated_at = ?
			WHERE user = ? AND collection = ? AND id = ? AND version = ?
		`, string(raw), tx.clock.Now().UnixNano(), p.User, p.Collection, p.ID, doc.Version)
		if err != nil {
			return fmt.Errorf("document update %s: %w", p, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("document update %s: %w", p, err)
		}
		if n == 0 {
			return fmt.Errorf("document update %s: %w", p, ErrConflict)
		}
		return nil
	})
}

func (s *SQLiteStore) BatchUpdate(ctx context.Context, updates []Update) error {
	if len(updates) == 0 {
		return nil
	}
	return s.RunTx(ctx, func(ds DocumentStore) error {
		for _, u := range updates {
			if err := ds.UpdateDocument(ctx, u.Path, u.Data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) AppendDocument(ctx context.Context, userID, collection string, data any) (string, error) {
	id := uuid.NewString()
	p := Path{User: userID, Collection: collection, ID: id}
	if err := p.validate(); err != nil {
		return "", err
	}
	_, raw, err := toDataMap(data)
	if err != nil {
		return "", err
	}
	now := s.clock.Now().UnixNano()
	if _, err := s.q.ExecContext(ctx, `
		INSERT INTO documents (user, collection, id, data, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
	`, userID, collection, id, string(raw), now, now); err != nil {
		return "", fmt.Errorf("document append %s: %w", p, err)
	}
	return id, nil
}

func (s *SQLiteStore) DeleteDocument(ctx context.Context, p Path) error {
	if err := p.validate(); err != nil {
		return err
	}
	if _, err := s.q.ExecContext(ctx, `DELETE FROM documents WHERE user = ? AND collection = ? AND id = ?`, p.User, p.Collection, p.ID); err != nil {
		return fmt.Errorf("document delete %s: %w", p, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteCollection(ctx context.Context, userID, collection string) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM documents WHERE user = ? AND collection = ?`, userID, collection); err != nil {
		return fmt.Errorf("document delete users/%s/%s: %w", userID, collection, err)
	}
	return nil
}

func newDocument(p Path, data string, version, createdAt, updatedAt int64) (*Document, error) {
	raw := []byte(data)
	m, err := decodeData(raw)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", p, err)
	}
	return &Document{
		Path:      p,
		Data:      m,
		Version:   version,
		CreatedAt: time.Unix(0, createdAt),
		UpdatedAt: time.Unix(0, updatedAt),
		raw:       raw,
	}, nil
}

func decodeData(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return m, nil
}

func filterArg(v any) any {
	switch x := v.(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	default:
		return v
	}
}

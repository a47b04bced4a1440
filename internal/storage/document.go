package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned by writes that target a missing document.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when a write precondition no longer holds.
	ErrConflict = errors.New("document changed concurrently")
)

const (
	CollectionCharacter = "character"
	CollectionQuests    = "quests"
	CollectionJournal   = "journal"
)

// Path addresses one document: users/{User}/{Collection}[/{ID}].
type Path struct {
	User       string
	Collection string
	ID         string
}

func CharacterPath(userID string) Path {
	return Path{User: userID, Collection: CollectionCharacter}
}

func QuestPath(userID, questID string) Path {
	return Path{User: userID, Collection: CollectionQuests, ID: questID}
}

func JournalPath(userID, entryID string) Path {
	return Path{User: userID, Collection: CollectionJournal, ID: entryID}
}

func (p Path) String() string {
	if p.ID == "" {
		return fmt.Sprintf("users/%s/%s", p.User, p.Collection)
	}
	return fmt.Sprintf("users/%s/%s/%s", p.User, p.Collection, p.ID)
}

func (p Path) validate() error {
	if p.User == "" || p.Collection == "" {
		return fmt.Errorf("invalid document path %q", p.String())
	}
	return nil
}

type Document struct {
	Path      Path
	Data      map[string]any
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time

	raw []byte
}

// Decode unmarshals the document body into v.
func (d *Document) Decode(v any) error {
	raw := d.raw
	if raw == nil {
		b, err := json.Marshal(d.Data)
		if err != nil {
			return fmt.Errorf("decode %s: %w", d.Path, err)
		}
		raw = b
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", d.Path, err)
	}
	return nil
}

type Op string

const (
	OpEq  Op = "=="
	OpNeq Op = "!="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

// Filter compares a top-level field of the document body.
type Filter struct {
	Field string
	Op    Op
	Value any
}

func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

type Query struct {
	Filters []Filter
	// UpdatedSince keeps documents written at or after this instant.
	UpdatedSince time.Time
	Desc         bool
	Limit        int
}

type Update struct {
	Path Path
	Data map[string]any
}

type Precondition struct {
	version int64
}

// IfVersion makes a write fail with ErrConflict unless the stored version matches.
func IfVersion(v int64) Precondition {
	return Precondition{version: v}
}

// DocumentStore is the per-user document database the engine persists to.
type DocumentStore interface {
	// GetDocument returns nil, nil when the document does not exist.
	GetDocument(ctx context.Context, p Path) (*Document, error)
	ListDocuments(ctx context.Context, userID, collection string, q Query) ([]Document, error)
	SetDocument(ctx context.Context, p Path, data any) error
	UpdateDocument(ctx context.Context, p Path, partial map[string]any, preconds ...Precondition) error
	BatchUpdate(ctx context.Context, updates []Update) error
	AppendDocument(ctx context.Context, userID, collection string, data any) (string, error)
	DeleteDocument(ctx context.Context, p Path) error
	DeleteCollection(ctx context.Context, userID, collection string) error
	// RunTx runs fn atomically; every call on the store passed to fn joins the transaction.
	RunTx(ctx context.Context, fn func(DocumentStore) error) error
}

func toDataMap(v any) (map[string]any, []byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal document: %w", err)
	}
	m, err := decodeData(b)
	if err != nil {
		return nil, nil, err
	}
	return m, b, nil
}

package storage

import (
	"context"
	"fmt"
)

type JournalRepo struct {
	store DocumentStore
}

func NewJournalRepo(store DocumentStore) *JournalRepo {
	return &JournalRepo{store: store}
}

func (r *JournalRepo) Append(ctx context.Context, userID string, e *JournalEntry) (string, error) {
	if e.StatsGained == nil {
		e.StatsGained = map[string]int{}
	}
	id, err := r.store.AppendDocument(ctx, userID, CollectionJournal, e)
	if err != nil {
		return "", fmt.Errorf("journal append: %w", err)
	}
	e.ID = id
	return id, nil
}

// List returns the newest entries first. limit <= 0 returns everything.
func (r *JournalRepo) List(ctx context.Context, userID string, limit int) ([]JournalEntry, error) {
	docs, err := r.store.ListDocuments(ctx, userID, CollectionJournal, Query{Desc: true, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("journal list: %w", err)
	}
	out := make([]JournalEntry, 0, len(docs))
	for i := range docs {
		var e JournalEntry
		if err := docs[i].Decode(&e); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		e.ID = docs[i].Path.ID
		out = append(out, e)
	}
	return out, nil
}

func (r *JournalRepo) DeleteAll(ctx context.Context, userID string) error {
	return r.store.DeleteCollection(ctx, userID, CollectionJournal)
}

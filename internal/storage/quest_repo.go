package storage

import (
	"context"
	"fmt"
)

type QuestRepo struct {
	store DocumentStore
}

func NewQuestRepo(store DocumentStore) *QuestRepo {
	return &QuestRepo{store: store}
}

func (r *QuestRepo) Insert(ctx context.Context, userID string, q *Quest) (string, error) {
	id, err := r.store.AppendDocument(ctx, userID, CollectionQuests, q)
	if err != nil {
		return "", fmt.Errorf("quest insert: %w", err)
	}
	return id, nil
}

// Get returns nil, nil when the quest does not exist.
func (r *QuestRepo) Get(ctx context.Context, userID, id string) (*Quest, error) {
	doc, err := r.store.GetDocument(ctx, QuestPath(userID, id))
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return questFromDocument(doc)
}

func (r *QuestRepo) List(ctx context.Context, userID string, q Query) ([]Quest, error) {
	docs, err := r.store.ListDocuments(ctx, userID, CollectionQuests, q)
	if err != nil {
		return nil, fmt.Errorf("quest list: %w", err)
	}
	out := make([]Quest, 0, len(docs))
	for i := range docs {
		quest, err := questFromDocument(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *quest)
	}
	return out, nil
}

func (r *QuestRepo) ListAll(ctx context.Context, userID string) ([]Quest, error) {
	return r.List(ctx, userID, Query{})
}

// UpdateFields writes the given fields; with a non-zero version the write only
// succeeds if nobody else wrote the quest since it was read.
func (r *QuestRepo) UpdateFields(ctx context.Context, userID, id string, fields map[string]any, version int64) error {
	var preconds []Precondition
	if version > 0 {
		preconds = append(preconds, IfVersion(version))
	}
	if err := r.store.UpdateDocument(ctx, QuestPath(userID, id), fields, preconds...); err != nil {
		return fmt.Errorf("quest update: %w", err)
	}
	return nil
}

func (r *QuestRepo) DeleteAll(ctx context.Context, userID string) error {
	return r.store.DeleteCollection(ctx, userID, CollectionQuests)
}

func questFromDocument(doc *Document) (*Quest, error) {
	var q Quest
	if err := doc.Decode(&q); err != nil {
		return nil, fmt.Errorf("quest scan: %w", err)
	}
	q.ID = doc.Path.ID
	q.Version = doc.Version
	q.UpdatedAt = doc.UpdatedAt
	return &q, nil
}

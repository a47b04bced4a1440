package storage

import (
	"context"
	"fmt"
)

type CharacterRepo struct {
	store DocumentStore
}

func NewCharacterRepo(store DocumentStore) *CharacterRepo {
	return &CharacterRepo{store: store}
}

// Get returns nil, nil when the user has no character yet.
func (r *CharacterRepo) Get(ctx context.Context, userID string) (*Character, error) {
	doc, err := r.store.GetDocument(ctx, CharacterPath(userID))
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	var c Character
	if err := doc.Decode(&c); err != nil {
		return nil, fmt.Errorf("character get: %w", err)
	}
	c.Version = doc.Version
	c.UpdatedAt = doc.UpdatedAt
	return &c, nil
}

func (r *CharacterRepo) Save(ctx context.Context, userID string, c *Character) error {
	if err := r.store.SetDocument(ctx, CharacterPath(userID), c); err != nil {
		return fmt.Errorf("character save: %w", err)
	}
	return nil
}

// Update writes only the given fields.
func (r *CharacterRepo) Update(ctx context.Context, userID string, fields map[string]any) error {
	if err := r.store.UpdateDocument(ctx, CharacterPath(userID), fields); err != nil {
		return fmt.Errorf("character update: %w", err)
	}
	return nil
}

// UpdateProgress writes the progression fields and the whole stat map of c.
func (r *CharacterRepo) UpdateProgress(ctx context.Context, userID string, c *Character) error {
	return r.Update(ctx, userID, map[string]any{
		"level":         c.Level,
		"xp":            c.XP,
		"xpToNextLevel": c.XPToNextLevel,
		"totalXpEarned": c.TotalXPEarned,
		"stats":         c.Stats,
	})
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jask/envelopes/internal/database"
	"github.com/jask/envelopes/internal/database/repository"
)

// ErrReservedCategory is returned for rename or delete attempts on the
// built-in categories.
var ErrReservedCategory = errors.New("category is reserved")

// Taxonomy enforces the rules around the built-in category names.
type Taxonomy struct {
	DB         *sql.DB
	Categories *repository.CategoryRepo
	Envelopes  *repository.EnvelopeRepo
}

// RenameCategory renames a category. Reserved categories cannot be renamed,
// and nothing may be renamed onto a reserved name.
func (t *Taxonomy) RenameCategory(ctx context.Context, id, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return fmt.Errorf("rename category: name required")
	}
	cat, err := t.Categories.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("rename category: %w", err)
	}
	if cat == nil {
		return fmt.Errorf("rename category: %s not found", id)
	}
	if database.ReservedCategory(cat.Name) || database.ReservedCategory(newName) {
		return fmt.Errorf("rename category %q: %w", cat.Name, ErrReservedCategory)
	}
	cat.Name = newName
	if err := t.Categories.Upsert(ctx, *cat); err != nil {
		return fmt.Errorf("rename category: %w", err)
	}
	return nil
}

// DeleteCategory removes a category. Reserved categories are rejected. A
// category still holding envelopes is not an error: its envelopes move to
// Uncategorized first, in the same atomic unit as the delete.
func (t *Taxonomy) DeleteCategory(ctx context.Context, id string) error {
	cat, err := t.Categories.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if cat == nil {
		return fmt.Errorf("delete category: %s not found", id)
	}
	if database.ReservedCategory(cat.Name) {
		return fmt.Errorf("delete category %q: %w", cat.Name, ErrReservedCategory)
	}
	fallback := database.CategoryID(database.CategoryUncategorized)
	return database.WithTx(t.DB, func(tx *sql.Tx) error {
		envRepo := t.Envelopes.WithTx(tx)
		envs, err := envRepo.ListByCategory(ctx, id)
		if err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		for _, e := range envs {
			if err := envRepo.SetCategory(ctx, e.ID, fallback); err != nil {
				return fmt.Errorf("delete category: move envelope %s: %w", e.ID, err)
			}
		}
		if err := t.Categories.WithTx(tx).Delete(ctx, id); err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return nil
	})
}

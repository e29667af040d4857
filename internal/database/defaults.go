package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/jask/envelopes/internal/database/repository"
)

// Reserved category names; callers must never rename or delete these.
const (
	CategoryUncategorized = "Uncategorized"
	CategoryIncome        = "Income"
)

// ReservedCategory reports whether name is one of the reserved categories.
func ReservedCategory(name string) bool {
	return name == CategoryUncategorized || name == CategoryIncome
}

// CategoryID returns the deterministic id used for seeded categories.
func CategoryID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("cat:"+name)).String()
}

// SeedDefaults ensures the reserved categories exist. Idempotent, safe to
// run on every startup.
func SeedDefaults(ctx context.Context, db *sql.DB) error {
	catRepo := repository.NewCategoryRepo(db)
	for _, name := range []string{CategoryUncategorized, CategoryIncome} {
		cat := repository.Category{ID: CategoryID(name), Name: name}
		if err := catRepo.Upsert(ctx, cat); err != nil {
			return err
		}
	}
	return nil
}

package ports

import (
	"context"

	"quaderno/internal/domain"
)

// QueryResolver answers a formula that no built-in form recognizes.
// A nil result with a nil error means the formula is unresolved.
type QueryResolver interface {
	Resolve(ctx context.Context, formula string, pages []domain.Page) (*domain.FormulaResult, error)
}

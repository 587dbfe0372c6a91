package finance

import (
	"context"

	"github.com/google/uuid"
)

type ExpenseRepository interface {
	Create(ctx context.Context, e *Expense) error
	GetByID(ctx context.Context, id uuid.UUID) (*Expense, error)
	SetSettled(ctx context.Context, id uuid.UUID, settled bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Expense, int, error)
	ListAll(ctx context.Context) ([]*Expense, error)
}

type FundRepository interface {
	Create(ctx context.Context, f *Fund) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Fund, int, error)
	ListAll(ctx context.Context) ([]*Fund, error)
}

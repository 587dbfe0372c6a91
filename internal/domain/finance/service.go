package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidCategory   = errors.New("invalid category")
	ErrInvalidPaidBy     = errors.New("paid_by must be funds or out_of_pocket")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrMiscNotFundable   = errors.New("miscellaneous expenses cannot draw from funds")
	ErrCategoryNotFunded = errors.New("funds are kept for travel and stationary only")
)

var expenseCategories = map[string]bool{
	CategoryTravel: true, CategoryStationary: true, CategoryMisc: true,
}

// fundCategories are the categories money can be received for.
var fundCategories = map[string]bool{
	CategoryTravel: true, CategoryStationary: true,
}

type Service struct {
	expenses ExpenseRepository
	funds    FundRepository
	log      zerolog.Logger
}

func NewService(expenses ExpenseRepository, funds FundRepository, log zerolog.Logger) *Service {
	return &Service{expenses: expenses, funds: funds, log: log}
}

func (s *Service) AddExpense(ctx context.Context, e *Expense) error {
	if !expenseCategories[e.Category] {
		return fmt.Errorf("%w: %s", ErrInvalidCategory, e.Category)
	}
	if e.PaidBy != PaidByFunds && e.PaidBy != PaidByOutOfPocket {
		return ErrInvalidPaidBy
	}
	if e.Category == CategoryMisc && e.PaidBy == PaidByFunds {
		return ErrMiscNotFundable
	}
	if e.Amount <= 0 {
		return ErrInvalidAmount
	}
	if e.SpentOn.IsZero() {
		e.SpentOn = time.Now().UTC()
	}
	return s.expenses.Create(ctx, e)
}

func (s *Service) ListExpenses(ctx context.Context, limit, offset int) ([]*Expense, int, error) {
	return s.expenses.List(ctx, limit, offset)
}

func (s *Service) SettleExpense(ctx context.Context, id uuid.UUID, settled bool) error {
	if _, err := s.expenses.GetByID(ctx, id); err != nil {
		return ErrNotFound
	}
	return s.expenses.SetSettled(ctx, id, settled)
}

func (s *Service) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	if _, err := s.expenses.GetByID(ctx, id); err != nil {
		return ErrNotFound
	}
	return s.expenses.Delete(ctx, id)
}

func (s *Service) AddFund(ctx context.Context, f *Fund) error {
	if !fundCategories[f.Category] {
		return fmt.Errorf("%w: %s", ErrCategoryNotFunded, f.Category)
	}
	if f.Amount <= 0 {
		return ErrInvalidAmount
	}
	if f.ReceivedOn.IsZero() {
		f.ReceivedOn = time.Now().UTC()
	}
	return s.funds.Create(ctx, f)
}

func (s *Service) ListFunds(ctx context.Context, limit, offset int) ([]*Fund, int, error) {
	return s.funds.List(ctx, limit, offset)
}

func (s *Service) DeleteFund(ctx context.Context, id uuid.UUID) error {
	return s.funds.Delete(ctx, id)
}

// Summarize computes per-category fund balances. Only expenses explicitly
// paid from funds draw a category down; out-of-pocket and miscellaneous
// spending is totalled separately.
func (s *Service) Summarize(ctx context.Context) (*Summary, error) {
	funds, err := s.funds.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	expenses, err := s.expenses.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	funded := map[string]float64{}
	for _, f := range funds {
		funded[f.Category] += f.Amount
	}
	drawn := map[string]float64{}
	summary := &Summary{}
	for _, e := range expenses {
		summary.TotalSpend += e.Amount
		if e.PaidBy == PaidByOutOfPocket {
			summary.OutOfPocket += e.Amount
		}
		if e.Category == CategoryMisc {
			summary.MiscSpend += e.Amount
			continue
		}
		if e.PaidBy == PaidByFunds {
			drawn[e.Category] += e.Amount
		}
	}

	for _, cat := range []string{CategoryTravel, CategoryStationary} {
		summary.Balances = append(summary.Balances, CategoryBalance{
			Category: cat,
			Funded:   funded[cat],
			Drawn:    drawn[cat],
			Balance:  funded[cat] - drawn[cat],
		})
	}
	return summary, nil
}

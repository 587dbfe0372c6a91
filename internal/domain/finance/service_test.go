package finance

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// -- Mock Repositories --

type mockExpenseRepo struct {
	expenses map[uuid.UUID]*Expense
}

func newMockExpenseRepo() *mockExpenseRepo {
	return &mockExpenseRepo{expenses: make(map[uuid.UUID]*Expense)}
}

func (m *mockExpenseRepo) Create(_ context.Context, e *Expense) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	m.expenses[e.ID] = e
	return nil
}

func (m *mockExpenseRepo) GetByID(_ context.Context, id uuid.UUID) (*Expense, error) {
	e, ok := m.expenses[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return e, nil
}

func (m *mockExpenseRepo) SetSettled(_ context.Context, id uuid.UUID, settled bool) error {
	e, ok := m.expenses[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	e.Settled = settled
	return nil
}

func (m *mockExpenseRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.expenses, id)
	return nil
}

func (m *mockExpenseRepo) List(_ context.Context, limit, offset int) ([]*Expense, int, error) {
	items, err := m.ListAll(context.Background())
	return items, len(items), err
}

func (m *mockExpenseRepo) ListAll(_ context.Context) ([]*Expense, error) {
	var items []*Expense
	for _, e := range m.expenses {
		items = append(items, e)
	}
	return items, nil
}

type mockFundRepo struct {
	funds map[uuid.UUID]*Fund
}

func newMockFundRepo() *mockFundRepo {
	return &mockFundRepo{funds: make(map[uuid.UUID]*Fund)}
}

func (m *mockFundRepo) Create(_ context.Context, f *Fund) error {
	f.ID = uuid.New()
	f.CreatedAt = time.Now()
	m.funds[f.ID] = f
	return nil
}

func (m *mockFundRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.funds, id)
	return nil
}

func (m *mockFundRepo) List(_ context.Context, limit, offset int) ([]*Fund, int, error) {
	items, err := m.ListAll(context.Background())
	return items, len(items), err
}

func (m *mockFundRepo) ListAll(_ context.Context) ([]*Fund, error) {
	var items []*Fund
	for _, f := range m.funds {
		items = append(items, f)
	}
	return items, nil
}

func newTestService() *Service {
	return NewService(newMockExpenseRepo(), newMockFundRepo(), zerolog.Nop())
}

// -- Tests --

func TestAddExpenseValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	cases := []struct {
		name    string
		expense Expense
		wantErr error
	}{
		{"bad category", Expense{Category: "snacks", PaidBy: PaidByFunds, Amount: 10}, ErrInvalidCategory},
		{"bad paid_by", Expense{Category: CategoryTravel, PaidBy: "card", Amount: 10}, ErrInvalidPaidBy},
		{"zero amount", Expense{Category: CategoryTravel, PaidBy: PaidByFunds, Amount: 0}, ErrInvalidAmount},
		{"misc from funds", Expense{Category: CategoryMisc, PaidBy: PaidByFunds, Amount: 10}, ErrMiscNotFundable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.AddExpense(ctx, &tc.expense); !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}

	ok := Expense{Category: CategoryMisc, PaidBy: PaidByOutOfPocket, Amount: 120}
	if err := svc.AddExpense(ctx, &ok); err != nil {
		t.Fatalf("valid expense rejected: %v", err)
	}
	if ok.SpentOn.IsZero() {
		t.Error("spent_on not defaulted")
	}
}

func TestAddFundValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if err := svc.AddFund(ctx, &Fund{Category: CategoryMisc, Amount: 100}); !errors.Is(err, ErrCategoryNotFunded) {
		t.Errorf("err = %v, want ErrCategoryNotFunded", err)
	}
	if err := svc.AddFund(ctx, &Fund{Category: CategoryTravel, Amount: -5}); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("err = %v, want ErrInvalidAmount", err)
	}
	if err := svc.AddFund(ctx, &Fund{Category: CategoryTravel, Amount: 5000}); err != nil {
		t.Fatalf("valid fund rejected: %v", err)
	}
}

func TestSummarize(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for _, f := range []Fund{
		{Category: CategoryTravel, Amount: 1000},
		{Category: CategoryTravel, Amount: 500},
		{Category: CategoryStationary, Amount: 300},
	} {
		fund := f
		if err := svc.AddFund(ctx, &fund); err != nil {
			t.Fatalf("add fund: %v", err)
		}
	}
	for _, e := range []Expense{
		{Category: CategoryTravel, PaidBy: PaidByFunds, Amount: 400},
		{Category: CategoryTravel, PaidBy: PaidByOutOfPocket, Amount: 100},
		{Category: CategoryStationary, PaidBy: PaidByFunds, Amount: 50},
		{Category: CategoryMisc, PaidBy: PaidByOutOfPocket, Amount: 75},
	} {
		expense := e
		if err := svc.AddExpense(ctx, &expense); err != nil {
			t.Fatalf("add expense: %v", err)
		}
	}

	summary, err := svc.Summarize(ctx)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	byCategory := map[string]CategoryBalance{}
	for _, b := range summary.Balances {
		byCategory[b.Category] = b
	}
	travel := byCategory[CategoryTravel]
	if travel.Funded != 1500 || travel.Drawn != 400 || travel.Balance != 1100 {
		t.Errorf("travel balance = %+v", travel)
	}
	stationary := byCategory[CategoryStationary]
	if stationary.Funded != 300 || stationary.Drawn != 50 || stationary.Balance != 250 {
		t.Errorf("stationary balance = %+v", stationary)
	}
	// Out-of-pocket travel spend must not draw the travel fund down, and
	// misc spend never touches funds.
	if summary.OutOfPocket != 175 {
		t.Errorf("out of pocket = %v, want 175", summary.OutOfPocket)
	}
	if summary.MiscSpend != 75 {
		t.Errorf("misc spend = %v, want 75", summary.MiscSpend)
	}
	if summary.TotalSpend != 625 {
		t.Errorf("total spend = %v, want 625", summary.TotalSpend)
	}
}

func TestSettleExpense(t *testing.T) {
	expenses := newMockExpenseRepo()
	svc := NewService(expenses, newMockFundRepo(), zerolog.Nop())
	ctx := context.Background()

	e := Expense{Category: CategoryTravel, PaidBy: PaidByFunds, Amount: 60}
	if err := svc.AddExpense(ctx, &e); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.SettleExpense(ctx, e.ID, true); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !expenses.expenses[e.ID].Settled {
		t.Error("expense not settled")
	}
	if err := svc.SettleExpense(ctx, uuid.New(), true); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

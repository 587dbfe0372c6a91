package finance

import (
	"time"

	"github.com/google/uuid"
)

// Expense categories. Travel and stationary may draw on trial funds;
// miscellaneous spending is always out of pocket.
const (
	CategoryTravel     = "travel"
	CategoryStationary = "stationary"
	CategoryMisc       = "misc"
)

// Payment sources.
const (
	PaidByFunds       = "funds"
	PaidByOutOfPocket = "out_of_pocket"
)

// Expense maps to the expenses table.
type Expense struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Category    string    `db:"category" json:"category"`
	Description *string   `db:"description" json:"description,omitempty"`
	Amount      float64   `db:"amount" json:"amount"`
	PaidBy      string    `db:"paid_by" json:"paid_by"`
	Settled     bool      `db:"settled" json:"settled"`

	// Optional link to the participant the spend was for.
	ScreeningID *string `db:"screening_id" json:"screening_id,omitempty"`

	SpentOn   time.Time `db:"spent_on" json:"spent_on"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Fund maps to the funds table: money received for a spend category.
type Fund struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Category   string    `db:"category" json:"category"`
	Amount     float64   `db:"amount" json:"amount"`
	Note       *string   `db:"note" json:"note,omitempty"`
	ReceivedOn time.Time `db:"received_on" json:"received_on"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// CategoryBalance is one row of the funds summary.
type CategoryBalance struct {
	Category string  `json:"category"`
	Funded   float64 `json:"funded"`
	Drawn    float64 `json:"drawn"`
	Balance  float64 `json:"balance"`
}

// Summary is the finance overview: fund balances per fundable category plus
// spending that never touches funds.
type Summary struct {
	Balances    []CategoryBalance `json:"balances"`
	OutOfPocket float64           `json:"out_of_pocket"`
	MiscSpend   float64           `json:"misc_spend"`
	TotalSpend  float64           `json:"total_spend"`
}

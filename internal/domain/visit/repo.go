package visit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)
	GetByNumber(ctx context.Context, participantID uuid.UUID, visitNumber int) (*Visit, error)
	ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]*Visit, error)
	Delete(ctx context.Context, id uuid.UUID) error

	SetScheduledOn(ctx context.Context, id uuid.UUID, d time.Time) error
	SetDueDate(ctx context.Context, id uuid.UUID, d time.Time) error
	SetVisitDate(ctx context.Context, id uuid.UUID, d time.Time) error
	ClearVisitDate(ctx context.Context, id uuid.UUID) error
	SetVoucher(ctx context.Context, id uuid.UUID, given bool) error

	// Patch applies whitelisted clinical columns; keys are column names.
	Patch(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
}

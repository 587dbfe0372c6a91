package participant

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Participant) error
	GetByID(ctx context.Context, id uuid.UUID) (*Participant, error)
	GetByScreeningID(ctx context.Context, screeningID string) (*Participant, error)
	Update(ctx context.Context, p *Participant) error
	List(ctx context.Context, limit, offset int) ([]*Participant, int, error)

	// ScreeningIDsForUpdate returns every assigned screening identifier while
	// holding the allocation lock for the remainder of the transaction.
	ScreeningIDsForUpdate(ctx context.Context) ([]string, error)
	// RandomizationIDsForUpdate does the same for randomization identifiers.
	RandomizationIDsForUpdate(ctx context.Context) ([]string, error)

	SetRandomizationID(ctx context.Context, id uuid.UUID, randomizationID string) error
	SetRandomizationCode(ctx context.Context, id uuid.UUID, code string) error
	SetScreeningFailure(ctx context.Context, id uuid.UUID) error
}

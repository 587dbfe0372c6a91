package participant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trialops/trialops/internal/platform/db"
)

var (
	ErrNotFound            = errors.New("participant not found")
	ErrNameRequired        = errors.New("first and last name are required")
	ErrDuplicateID         = errors.New("identifier already assigned to another participant")
	ErrAlreadyRandomized   = errors.New("participant already has a randomization id")
	ErrInvalidCode         = errors.New("randomization code must be A or B")
	ErrScreeningFailed     = errors.New("participant failed screening")
	ErrRandomizationNeeded = errors.New("participant has not been randomized")
)

type Service struct {
	repo Repository
	tx   db.Runner
	log  zerolog.Logger
}

func NewService(repo Repository, tx db.Runner, log zerolog.Logger) *Service {
	return &Service{repo: repo, tx: tx, log: log}
}

// Create registers a new participant and assigns the next screening
// identifier. Allocation runs in a transaction holding the screening sequence
// lock so concurrent registrations never mint the same number.
func (s *Service) Create(ctx context.Context, p *Participant) error {
	if p.FirstName == "" || p.LastName == "" {
		return ErrNameRequired
	}
	if p.RandomizationCode != nil && *p.RandomizationCode != CodeA && *p.RandomizationCode != CodeB {
		return ErrInvalidCode
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.ScreeningIDsForUpdate(ctx)
		if err != nil {
			return fmt.Errorf("scan screening ids: %w", err)
		}
		p.ScreeningID = NextScreeningID(existing)
		if err := s.repo.Create(ctx, p); err != nil {
			if db.IsUniqueViolation(err) {
				return fmt.Errorf("%w: %s", ErrDuplicateID, p.ScreeningID)
			}
			return err
		}
		s.log.Info().Str("participant_id", p.ID.String()).Str("screening_id", p.ScreeningID).Msg("participant registered")
		return nil
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Participant, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) GetByScreeningID(ctx context.Context, screeningID string) (*Participant, error) {
	p, err := s.repo.GetByScreeningID(ctx, screeningID)
	if err != nil {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Participant, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Update applies administrative edits to demographics and the randomization
// code. Screening and randomization identifiers are never edited here.
func (s *Service) Update(ctx context.Context, p *Participant) error {
	if p.FirstName == "" || p.LastName == "" {
		return ErrNameRequired
	}
	if p.RandomizationCode != nil && *p.RandomizationCode != CodeA && *p.RandomizationCode != CodeB {
		return ErrInvalidCode
	}
	if _, err := s.repo.GetByID(ctx, p.ID); err != nil {
		return ErrNotFound
	}
	return s.repo.Update(ctx, p)
}

// SetRandomizationCode records the study arm chosen for an already-randomized
// participant.
func (s *Service) SetRandomizationCode(ctx context.Context, id uuid.UUID, code string) error {
	if code != CodeA && code != CodeB {
		return ErrInvalidCode
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if !p.Randomized() {
		return ErrRandomizationNeeded
	}
	return s.repo.SetRandomizationCode(ctx, id, code)
}

// AssignRandomizationID allocates the next R<n> identifier and stores it.
// The identifier is assigned once and never reassigned.
func (s *Service) AssignRandomizationID(ctx context.Context, id uuid.UUID) (string, error) {
	var assigned string
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return ErrNotFound
		}
		if p.Randomized() {
			return ErrAlreadyRandomized
		}
		existing, err := s.repo.RandomizationIDsForUpdate(ctx)
		if err != nil {
			return fmt.Errorf("scan randomization ids: %w", err)
		}
		assigned = NextRandomizationID(existing)
		if err := s.repo.SetRandomizationID(ctx, id, assigned); err != nil {
			if db.IsUniqueViolation(err) {
				return fmt.Errorf("%w: %s", ErrDuplicateID, assigned)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	s.log.Info().Str("participant_id", id.String()).Str("randomization_id", assigned).Msg("participant randomized")
	return assigned, nil
}

// MarkScreeningFailure flags a participant whose screening visit concluded
// with a failure outcome.
func (s *Service) MarkScreeningFailure(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return ErrNotFound
	}
	return s.repo.SetScreeningFailure(ctx, id)
}

package lead

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trialops/trialops/internal/domain/participant"
	"github.com/trialops/trialops/internal/platform/blobstore"
	"github.com/trialops/trialops/internal/platform/vision"
)

var (
	ErrNotFound         = errors.New("lead not found")
	ErrNameRequired     = errors.New("lead name is required")
	ErrInvalidStatus    = errors.New("invalid lead status")
	ErrAlreadyConverted = errors.New("lead already converted")
	ErrNoDocument       = errors.New("no referral document uploaded")
	ErrExtractionFailed = errors.New("document extraction failed")
)

// Registrar enrolls a converted lead as a participant.
type Registrar interface {
	Create(ctx context.Context, p *participant.Participant) error
}

// Extractor pulls structured fields out of a referral document.
type Extractor interface {
	ExtractJSON(ctx context.Context, document []byte, mimeType, prompt string) (map[string]interface{}, error)
}

const referralPrompt = `You are reading a patient referral or screening document.
Return a JSON object with the keys "name" (string), "age" (number),
"sex" ("male" or "female") and "lvef" (number, the left ventricular ejection
fraction in percent). Use null for anything not present.`

type Service struct {
	repo      Repository
	registrar Registrar
	blob      blobstore.Store
	vision    Extractor
	log       zerolog.Logger
}

func NewService(repo Repository, registrar Registrar, blob blobstore.Store, vis Extractor, log zerolog.Logger) *Service {
	return &Service{repo: repo, registrar: registrar, blob: blob, vision: vis, log: log}
}

func (s *Service) Create(ctx context.Context, l *Lead) error {
	if l.Name == "" {
		return ErrNameRequired
	}
	if l.Status == "" {
		l.Status = StatusNew
	}
	if !validStatuses[l.Status] {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, l.Status)
	}
	return s.repo.Create(ctx, l)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Lead, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return l, nil
}

func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]*Lead, int, error) {
	if status != "" && !validStatuses[status] {
		return nil, 0, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	return s.repo.List(ctx, status, limit, offset)
}

func (s *Service) Update(ctx context.Context, l *Lead) error {
	if l.Name == "" {
		return ErrNameRequired
	}
	if !validStatuses[l.Status] {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, l.Status)
	}
	current, err := s.repo.GetByID(ctx, l.ID)
	if err != nil {
		return ErrNotFound
	}
	// Conversion state is owned by Convert.
	l.ParticipantID = current.ParticipantID
	return s.repo.Update(ctx, l)
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !validStatuses[status] {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if l.Status == StatusConverted && status != StatusConverted {
		return ErrAlreadyConverted
	}
	l.Status = status
	return s.repo.Update(ctx, l)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return ErrNotFound
	}
	return s.repo.Delete(ctx, id)
}

// Extract prefills empty lead fields from the uploaded referral document.
// Fields the operator already filled in are never overwritten.
func (s *Service) Extract(ctx context.Context, id uuid.UUID) (*Lead, error) {
	if s.vision == nil {
		return nil, fmt.Errorf("%w: extractor not configured", ErrExtractionFailed)
	}
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	if l.DocumentSrc == nil {
		return nil, ErrNoDocument
	}
	data, mime, err := s.blob.Get(ctx, *l.DocumentSrc)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrExtractionFailed, *l.DocumentSrc, err)
	}
	fields, err := s.vision.ExtractJSON(ctx, data, mime, referralPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	if l.Name == "" {
		if name, ok := fields["name"].(string); ok && name != "" {
			l.Name = name
		}
	}
	if l.Age == nil {
		if n, ok := vision.Number(fields, "age"); ok && n > 0 && n < 120 {
			age := int(n)
			l.Age = &age
		}
	}
	if l.Sex == nil {
		if sex, ok := fields["sex"].(string); ok && (sex == "male" || sex == "female") {
			l.Sex = &sex
		}
	}
	if l.EchoLVEF == nil {
		if n, ok := vision.Number(fields, "lvef"); ok && n >= 5 && n <= 90 {
			l.EchoLVEF = &n
		}
	}
	if err := s.repo.Update(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Convert enrolls the lead as a participant and marks it converted. The new
// participant gets the next screening identifier through the registrar.
func (s *Service) Convert(ctx context.Context, id uuid.UUID) (*participant.Participant, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	if l.Status == StatusConverted {
		return nil, ErrAlreadyConverted
	}

	first, last := splitName(l.Name)
	p := &participant.Participant{
		FirstName: first,
		LastName:  last,
		Age:       l.Age,
		Sex:       l.Sex,
		Phone:     l.Phone,
		Address:   l.Address,
	}
	if err := s.registrar.Create(ctx, p); err != nil {
		return nil, err
	}

	l.Status = StatusConverted
	l.ParticipantID = &p.ID
	if err := s.repo.Update(ctx, l); err != nil {
		// The participant exists; the lead row is fixable by hand.
		s.log.Warn().Err(err).Str("lead_id", id.String()).Msg("converted lead not updated")
	}
	s.log.Info().
		Str("lead_id", id.String()).
		Str("participant_id", p.ID.String()).
		Str("screening_id", p.ScreeningID).
		Msg("lead converted")
	return p, nil
}

// splitName breaks a lead's display name on the last space. Single-token
// names fill both fields so registration validation passes.
func splitName(full string) (first, last string) {
	for i := len(full) - 1; i >= 0; i-- {
		if full[i] == ' ' {
			return full[:i], full[i+1:]
		}
	}
	return full, full
}

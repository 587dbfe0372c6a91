package visit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trialops/trialops/internal/domain/participant"
	"github.com/trialops/trialops/internal/platform/blobstore"
	"github.com/trialops/trialops/internal/platform/db"
)

var (
	ErrNotFound              = errors.New("visit not found")
	ErrInvalidVisitNumber    = errors.New("visit number out of range 1..8")
	ErrPredecessorIncomplete = errors.New("previous visit not completed")
	ErrVisitExists           = errors.New("visit already exists for this participant")
	ErrNoValidDates          = errors.New("no valid dates in scheduling window")
	ErrOutsideWindow         = errors.New("date outside scheduling window")
	ErrDisallowedWeekday     = errors.New("date does not fall on an OPD day")
	ErrAlreadyConcluded      = errors.New("visit already concluded")
	ErrVoucherUnrecorded     = errors.New("voucher status must be recorded before concluding")
	ErrOutcomeRequired       = errors.New("screening outcome is required")
	ErrInvalidOutcome        = errors.New("screening outcome must be success or failure")
	ErrNotScreening          = errors.New("not a screening visit")
	ErrVisitOneUndeletable   = errors.New("the screening visit cannot be deleted")
	ErrWrongParticipant      = errors.New("visit does not belong to this participant")
	ErrInvalidVoucherStatus  = errors.New("voucher status must be given or not_given")
)

// ParticipantDirectory is the slice of the participant service the visit
// lifecycle needs.
type ParticipantDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*participant.Participant, error)
	List(ctx context.Context, limit, offset int) ([]*participant.Participant, int, error)
	AssignRandomizationID(ctx context.Context, id uuid.UUID) (string, error)
	MarkScreeningFailure(ctx context.Context, id uuid.UUID) error
}

// Extractor pulls structured fields out of an uploaded document.
type Extractor interface {
	ExtractJSON(ctx context.Context, document []byte, mimeType, prompt string) (map[string]interface{}, error)
}

type Service struct {
	repo         Repository
	participants ParticipantDirectory
	blob         blobstore.Store
	vision       Extractor
	tx           db.Runner
	log          zerolog.Logger

	now func() time.Time
}

func NewService(repo Repository, participants ParticipantDirectory, blob blobstore.Store, vision Extractor, tx db.Runner, log zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		participants: participants,
		blob:         blob,
		vision:       vision,
		tx:           tx,
		log:          log,
		now:          time.Now,
	}
}

// Create opens visit n for a participant. Visits 2 through 8 require their
// immediate predecessor to be completed; the predecessor's visit date anchors
// the new visit's scheduling stamp.
func (s *Service) Create(ctx context.Context, participantID uuid.UUID, visitNumber int) (*Visit, error) {
	if visitNumber < FirstVisit || visitNumber > LastVisit {
		return nil, ErrInvalidVisitNumber
	}
	anchor := s.now()
	if visitNumber > FirstVisit {
		pred, err := s.repo.GetByNumber(ctx, participantID, visitNumber-1)
		if err != nil {
			return nil, fmt.Errorf("%w: visit %d not found", ErrPredecessorIncomplete, visitNumber-1)
		}
		if !pred.Completed() {
			return nil, fmt.Errorf("%w: visit %d", ErrPredecessorIncomplete, visitNumber-1)
		}
		anchor = *pred.VisitDate
	}
	stamp, err := CreationStamp(visitNumber, anchor)
	if err != nil {
		return nil, ErrInvalidVisitNumber
	}
	v := &Visit{
		ParticipantID: participantID,
		VisitNumber:   visitNumber,
		ScheduledOn:   &stamp.ScheduledOn,
		DueDate:       &stamp.DueDate,
	}
	if err := s.repo.Create(ctx, v); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: visit %d", ErrVisitExists, visitNumber)
		}
		return nil, err
	}
	s.log.Info().
		Str("participant_id", participantID.String()).
		Int("visit_number", visitNumber).
		Time("scheduled_on", stamp.ScheduledOn).
		Time("due_date", stamp.DueDate).
		Msg("visit created")
	return v, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Visit, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return v, nil
}

func (s *Service) ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]*Visit, error) {
	return s.repo.ListByParticipant(ctx, participantID)
}

// Schedule validates and persists an operator-chosen appointment date.
// Only scheduled_on is written; the due date and visit date are untouched.
func (s *Service) Schedule(ctx context.Context, id uuid.UUID, proposed time.Time) error {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	w := ValidationWindow(v.VisitNumber, s.windowAnchor(v), v.DueDate)
	if w.Degenerate() {
		return ErrNoValidDates
	}
	d := NormalizeDate(proposed)
	if !w.Contains(d) {
		return fmt.Errorf("%w: %s not in [%s, %s]", ErrOutsideWindow,
			d.Format("2006-01-02"), w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
	}
	if !AllowedWeekday(d) {
		return fmt.Errorf("%w: %s", ErrDisallowedWeekday, d.Weekday())
	}
	return s.repo.SetScheduledOn(ctx, id, d)
}

// Options lists the appointment dates currently open for a visit.
func (s *Service) Options(ctx context.Context, id uuid.UUID) ([]time.Time, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return OPDOptions(ValidationWindow(v.VisitNumber, s.windowAnchor(v), v.DueDate)), nil
}

func (s *Service) windowAnchor(v *Visit) time.Time {
	if v.CreatedAt.IsZero() {
		return s.now()
	}
	return v.CreatedAt
}

// Conclude marks a visit performed. The visit date comes from the override
// when it parses as YYYY-MM-DD, otherwise the current time. When next is a
// valid successor number the follow-up visit is created best-effort: its
// failure is logged and reported through the return value, never rolled back
// into the conclusion itself.
func (s *Service) Conclude(ctx context.Context, id uuid.UUID, override string, next int) (bool, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, ErrNotFound
	}
	if v.Completed() {
		return false, ErrAlreadyConcluded
	}
	if v.NeedsVoucher() && v.VoucherGiven == nil {
		return false, ErrVoucherUnrecorded
	}
	when := s.now().UTC()
	if d, err := time.Parse("2006-01-02", override); err == nil {
		when = d
	}
	if err := s.repo.SetVisitDate(ctx, id, when); err != nil {
		return false, err
	}
	s.log.Info().
		Str("visit_id", id.String()).
		Int("visit_number", v.VisitNumber).
		Time("visit_date", when).
		Msg("visit concluded")

	if next < 2 || next > LastVisit || v.VisitNumber == LastVisit {
		return false, nil
	}
	if _, err := s.Create(ctx, v.ParticipantID, next); err != nil {
		s.log.Warn().Err(err).
			Str("participant_id", v.ParticipantID.String()).
			Int("next_visit", next).
			Msg("successor visit not created")
		return false, nil
	}
	return true, nil
}

// ScreeningResult reports what the screening conclusion did.
type ScreeningResult struct {
	RandomizationID string `json:"randomization_id,omitempty"`
	NextCreated     bool   `json:"next_created"`
	VoucherOnly     bool   `json:"voucher_only"`
}

// ConcludeScreening drives the visit-1 branch. An already-randomized
// participant gets a voucher-only save. Otherwise the outcome is mandatory:
// failure flags the participant and ends the sequence, success assigns the
// next randomization identifier and opens visit 2.
func (s *Service) ConcludeScreening(ctx context.Context, id uuid.UUID, outcome string, voucher *bool, override string) (ScreeningResult, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ScreeningResult{}, ErrNotFound
	}
	if v.VisitNumber != FirstVisit {
		return ScreeningResult{}, ErrNotScreening
	}
	p, err := s.participants.Get(ctx, v.ParticipantID)
	if err != nil {
		return ScreeningResult{}, err
	}

	if p.Randomized() {
		if voucher != nil {
			if err := s.repo.SetVoucher(ctx, id, *voucher); err != nil {
				return ScreeningResult{}, err
			}
		}
		return ScreeningResult{VoucherOnly: true}, nil
	}

	if v.Completed() {
		return ScreeningResult{}, ErrAlreadyConcluded
	}
	switch outcome {
	case "":
		return ScreeningResult{}, ErrOutcomeRequired
	case OutcomeSuccess, OutcomeFailure:
	default:
		return ScreeningResult{}, ErrInvalidOutcome
	}
	if voucher != nil {
		if err := s.repo.SetVoucher(ctx, id, *voucher); err != nil {
			return ScreeningResult{}, err
		}
	}

	if outcome == OutcomeFailure {
		if err := s.participants.MarkScreeningFailure(ctx, v.ParticipantID); err != nil {
			return ScreeningResult{}, err
		}
		_, err := s.Conclude(ctx, id, override, 0)
		return ScreeningResult{}, err
	}

	rid, err := s.participants.AssignRandomizationID(ctx, v.ParticipantID)
	if err != nil {
		return ScreeningResult{}, err
	}
	nextCreated, err := s.Conclude(ctx, id, override, 2)
	if err != nil {
		return ScreeningResult{}, err
	}
	return ScreeningResult{RandomizationID: rid, NextCreated: nextCreated}, nil
}

// UpdateVoucher records whether the participant's compensation voucher was
// handed out for this visit.
func (s *Service) UpdateVoucher(ctx context.Context, id uuid.UUID, status string) error {
	var given bool
	switch status {
	case VoucherGiven:
		given = true
	case VoucherNotGiven:
		given = false
	default:
		return ErrInvalidVoucherStatus
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return ErrNotFound
	}
	return s.repo.SetVoucher(ctx, id, given)
}

// UpdateDueDate is an administrative correction of a visit's due date.
func (s *Service) UpdateDueDate(ctx context.Context, id uuid.UUID, d time.Time) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return ErrNotFound
	}
	return s.repo.SetDueDate(ctx, id, NormalizeDate(d))
}

// Delete removes a visit and reopens the sequence by clearing the
// predecessor's visit date, so a corrected visit can be recreated later.
// The visit must belong to the named participant and the screening visit is
// never deletable.
func (s *Service) Delete(ctx context.Context, participantID, id uuid.UUID) error {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if v.ParticipantID != participantID {
		return ErrWrongParticipant
	}
	if v.VisitNumber == FirstVisit {
		return ErrVisitOneUndeletable
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		pred, err := s.repo.GetByNumber(ctx, v.ParticipantID, v.VisitNumber-1)
		if err == nil {
			if err := s.repo.ClearVisitDate(ctx, pred.ID); err != nil {
				return err
			}
		}
		return s.repo.Delete(ctx, v.ID)
	})
}

// ChartRow pairs a participant with their eight visit slots; a nil slot means
// the visit has not been created yet.
type ChartRow struct {
	Participant *participant.Participant `json:"participant"`
	Visits      []*Visit                 `json:"visits"`
}

// MasterChart builds the coordinator overview of every participant across
// all eight visits.
func (s *Service) MasterChart(ctx context.Context) ([]ChartRow, error) {
	var rows []ChartRow
	const pageSize = 200
	for offset := 0; ; offset += pageSize {
		parts, total, err := s.participants.List(ctx, pageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, p := range parts {
			visits, err := s.repo.ListByParticipant(ctx, p.ID)
			if err != nil {
				return nil, err
			}
			slots := make([]*Visit, LastVisit)
			for _, v := range visits {
				if v.VisitNumber >= FirstVisit && v.VisitNumber <= LastVisit {
					slots[v.VisitNumber-1] = v
				}
			}
			rows = append(rows, ChartRow{Participant: p, Visits: slots})
		}
		if offset+pageSize >= total || len(parts) == 0 {
			break
		}
	}
	return rows, nil
}

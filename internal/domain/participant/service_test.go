package participant

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trialops/trialops/internal/platform/db"
)

// -- Mock Repository --

type mockRepo struct {
	participants map[uuid.UUID]*Participant
}

func newMockRepo() *mockRepo {
	return &mockRepo{participants: make(map[uuid.UUID]*Participant)}
}

func (m *mockRepo) Create(_ context.Context, p *Participant) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.participants[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Participant, error) {
	p, ok := m.participants[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return p, nil
}

func (m *mockRepo) GetByScreeningID(_ context.Context, screeningID string) (*Participant, error) {
	for _, p := range m.participants {
		if p.ScreeningID == screeningID {
			return p, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockRepo) Update(_ context.Context, p *Participant) error {
	m.participants[p.ID] = p
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Participant, int, error) {
	var result []*Participant
	for _, p := range m.participants {
		result = append(result, p)
	}
	return result, len(result), nil
}

func (m *mockRepo) ScreeningIDsForUpdate(_ context.Context) ([]string, error) {
	var ids []string
	for _, p := range m.participants {
		ids = append(ids, p.ScreeningID)
	}
	return ids, nil
}

func (m *mockRepo) RandomizationIDsForUpdate(_ context.Context) ([]string, error) {
	var ids []string
	for _, p := range m.participants {
		if p.RandomizationID != nil {
			ids = append(ids, *p.RandomizationID)
		}
	}
	return ids, nil
}

func (m *mockRepo) SetRandomizationID(_ context.Context, id uuid.UUID, randomizationID string) error {
	p, ok := m.participants[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	p.RandomizationID = &randomizationID
	return nil
}

func (m *mockRepo) SetRandomizationCode(_ context.Context, id uuid.UUID, code string) error {
	p, ok := m.participants[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	p.RandomizationCode = &code
	return nil
}

func (m *mockRepo) SetScreeningFailure(_ context.Context, id uuid.UUID) error {
	p, ok := m.participants[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	p.ScreeningFailure = true
	return nil
}

var passthrough = db.RunnerFunc(func(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
})

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, passthrough, zerolog.Nop()), repo
}

// -- Tests --

func TestCreateAssignsSequentialScreeningIDs(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first := &Participant{FirstName: "Asha", LastName: "Rao"}
	if err := svc.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ScreeningID != "S1" {
		t.Errorf("first screening id = %q, want S1", first.ScreeningID)
	}

	second := &Participant{FirstName: "Ravi", LastName: "Kumar"}
	if err := svc.Create(ctx, second); err != nil {
		t.Fatalf("create: %v", err)
	}
	if second.ScreeningID != "S2" {
		t.Errorf("second screening id = %q, want S2", second.ScreeningID)
	}
}

func TestCreateRequiresName(t *testing.T) {
	svc, _ := newTestService()
	err := svc.Create(context.Background(), &Participant{FirstName: "OnlyFirst"})
	if !errors.Is(err, ErrNameRequired) {
		t.Errorf("err = %v, want ErrNameRequired", err)
	}
}

func TestCreateRejectsBadRandomizationCode(t *testing.T) {
	svc, _ := newTestService()
	code := "C"
	err := svc.Create(context.Background(), &Participant{FirstName: "A", LastName: "B", RandomizationCode: &code})
	if !errors.Is(err, ErrInvalidCode) {
		t.Errorf("err = %v, want ErrInvalidCode", err)
	}
}

func TestAssignRandomizationID(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first := &Participant{FirstName: "Asha", LastName: "Rao"}
	second := &Participant{FirstName: "Ravi", LastName: "Kumar"}
	for _, p := range []*Participant{first, second} {
		if err := svc.Create(ctx, p); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	rid, err := svc.AssignRandomizationID(ctx, first.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if rid != "R1" {
		t.Errorf("first randomization id = %q, want R1", rid)
	}

	rid, err = svc.AssignRandomizationID(ctx, second.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if rid != "R2" {
		t.Errorf("second randomization id = %q, want R2", rid)
	}

	if _, err := svc.AssignRandomizationID(ctx, first.ID); !errors.Is(err, ErrAlreadyRandomized) {
		t.Errorf("reassign err = %v, want ErrAlreadyRandomized", err)
	}
}

func TestSetRandomizationCodeRequiresRandomization(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	p := &Participant{FirstName: "Asha", LastName: "Rao"}
	if err := svc.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.SetRandomizationCode(ctx, p.ID, CodeA); !errors.Is(err, ErrRandomizationNeeded) {
		t.Errorf("err = %v, want ErrRandomizationNeeded", err)
	}

	if _, err := svc.AssignRandomizationID(ctx, p.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := svc.SetRandomizationCode(ctx, p.ID, "X"); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("err = %v, want ErrInvalidCode", err)
	}
	if err := svc.SetRandomizationCode(ctx, p.ID, CodeB); err != nil {
		t.Fatalf("set code: %v", err)
	}
	got, err := svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RandomizationCode == nil || *got.RandomizationCode != CodeB {
		t.Errorf("randomization code = %v, want B", got.RandomizationCode)
	}
}

func TestMarkScreeningFailure(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	p := &Participant{FirstName: "Asha", LastName: "Rao"}
	if err := svc.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.MarkScreeningFailure(ctx, p.ID); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if !repo.participants[p.ID].ScreeningFailure {
		t.Error("screening failure flag not set")
	}
	if err := svc.MarkScreeningFailure(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

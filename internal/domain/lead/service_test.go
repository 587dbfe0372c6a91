package lead

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trialops/trialops/internal/domain/participant"
	"github.com/trialops/trialops/internal/platform/blobstore"
)

// -- Mocks --

type mockRepo struct {
	leads map[uuid.UUID]*Lead
}

func newMockRepo() *mockRepo {
	return &mockRepo{leads: make(map[uuid.UUID]*Lead)}
}

func (m *mockRepo) Create(_ context.Context, l *Lead) error {
	l.ID = uuid.New()
	l.CreatedAt = time.Now()
	l.UpdatedAt = time.Now()
	m.leads[l.ID] = l
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Lead, error) {
	l, ok := m.leads[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return l, nil
}

func (m *mockRepo) Update(_ context.Context, l *Lead) error {
	m.leads[l.ID] = l
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.leads, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, status string, limit, offset int) ([]*Lead, int, error) {
	var result []*Lead
	for _, l := range m.leads {
		if status == "" || l.Status == status {
			result = append(result, l)
		}
	}
	return result, len(result), nil
}

type mockRegistrar struct {
	created []*participant.Participant
	fail    bool
}

func (m *mockRegistrar) Create(_ context.Context, p *participant.Participant) error {
	if m.fail {
		return fmt.Errorf("registration failed")
	}
	p.ID = uuid.New()
	p.ScreeningID = fmt.Sprintf("S%d", len(m.created)+1)
	m.created = append(m.created, p)
	return nil
}

type stubExtractor struct {
	fields map[string]interface{}
	err    error
}

func (s *stubExtractor) ExtractJSON(_ context.Context, _ []byte, _ string, _ string) (map[string]interface{}, error) {
	return s.fields, s.err
}

func newTestService(extractor Extractor) (*Service, *mockRepo, *mockRegistrar, *blobstore.Memory) {
	repo := newMockRepo()
	registrar := &mockRegistrar{}
	blob := blobstore.NewMemory()
	return NewService(repo, registrar, blob, extractor, zerolog.Nop()), repo, registrar, blob
}

// -- Tests --

func TestCreateDefaultsStatus(t *testing.T) {
	svc, _, _, _ := newTestService(nil)
	l := &Lead{Name: "Meera Pillai"}
	if err := svc.Create(context.Background(), l); err != nil {
		t.Fatalf("create: %v", err)
	}
	if l.Status != StatusNew {
		t.Errorf("status = %q, want %q", l.Status, StatusNew)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, _, _ := newTestService(nil)
	if err := svc.Create(context.Background(), &Lead{}); !errors.Is(err, ErrNameRequired) {
		t.Errorf("err = %v, want ErrNameRequired", err)
	}
	if err := svc.Create(context.Background(), &Lead{Name: "X", Status: "warm"}); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("err = %v, want ErrInvalidStatus", err)
	}
}

func TestUpdateStatusGuardsConversion(t *testing.T) {
	svc, _, _, _ := newTestService(nil)
	ctx := context.Background()

	l := &Lead{Name: "Meera Pillai"}
	if err := svc.Create(ctx, l); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.UpdateStatus(ctx, l.ID, StatusContacted); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if err := svc.UpdateStatus(ctx, l.ID, StatusConverted); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if err := svc.UpdateStatus(ctx, l.ID, StatusDropped); !errors.Is(err, ErrAlreadyConverted) {
		t.Errorf("err = %v, want ErrAlreadyConverted", err)
	}
}

func TestExtractPrefillsEmptyFieldsOnly(t *testing.T) {
	extractor := &stubExtractor{fields: map[string]interface{}{
		"name": "From Document",
		"age":  64.0,
		"sex":  "female",
		"lvef": 38.0,
	}}
	svc, _, _, blob := newTestService(extractor)
	ctx := context.Background()

	key := "leads/doc.pdf"
	if err := blob.Put(ctx, key, bytes.NewReader([]byte("pdf")), "application/pdf"); err != nil {
		t.Fatalf("put: %v", err)
	}
	l := &Lead{Name: "Meera Pillai", DocumentSrc: &key}
	if err := svc.Create(ctx, l); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.Extract(ctx, l.ID)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got.Name != "Meera Pillai" {
		t.Errorf("operator-entered name overwritten: %q", got.Name)
	}
	if got.Age == nil || *got.Age != 64 {
		t.Errorf("age = %v, want 64", got.Age)
	}
	if got.Sex == nil || *got.Sex != "female" {
		t.Errorf("sex = %v, want female", got.Sex)
	}
	if got.EchoLVEF == nil || *got.EchoLVEF != 38 {
		t.Errorf("lvef = %v, want 38", got.EchoLVEF)
	}
}

func TestExtractRequiresDocument(t *testing.T) {
	svc, _, _, _ := newTestService(&stubExtractor{})
	ctx := context.Background()
	l := &Lead{Name: "Meera Pillai"}
	if err := svc.Create(ctx, l); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Extract(ctx, l.ID); !errors.Is(err, ErrNoDocument) {
		t.Errorf("err = %v, want ErrNoDocument", err)
	}
}

func TestExtractDiscardsImplausibleValues(t *testing.T) {
	extractor := &stubExtractor{fields: map[string]interface{}{
		"age":  400.0,
		"lvef": 2.0,
		"sex":  "robot",
	}}
	svc, _, _, blob := newTestService(extractor)
	ctx := context.Background()

	key := "leads/doc.pdf"
	if err := blob.Put(ctx, key, bytes.NewReader([]byte("pdf")), "application/pdf"); err != nil {
		t.Fatalf("put: %v", err)
	}
	l := &Lead{Name: "Meera Pillai", DocumentSrc: &key}
	if err := svc.Create(ctx, l); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := svc.Extract(ctx, l.ID)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got.Age != nil || got.EchoLVEF != nil || got.Sex != nil {
		t.Errorf("implausible values persisted: age=%v lvef=%v sex=%v", got.Age, got.EchoLVEF, got.Sex)
	}
}

func TestConvert(t *testing.T) {
	svc, repo, registrar, _ := newTestService(nil)
	ctx := context.Background()

	age := 58
	l := &Lead{Name: "Meera Pillai", Age: &age}
	if err := svc.Create(ctx, l); err != nil {
		t.Fatalf("create: %v", err)
	}
	p, err := svc.Convert(ctx, l.ID)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if p.FirstName != "Meera" || p.LastName != "Pillai" {
		t.Errorf("name split = %q %q", p.FirstName, p.LastName)
	}
	if p.Age == nil || *p.Age != 58 {
		t.Errorf("age = %v, want 58", p.Age)
	}
	if len(registrar.created) != 1 {
		t.Fatalf("registrar created %d participants", len(registrar.created))
	}
	stored := repo.leads[l.ID]
	if stored.Status != StatusConverted {
		t.Errorf("status = %q, want converted", stored.Status)
	}
	if stored.ParticipantID == nil || *stored.ParticipantID != p.ID {
		t.Errorf("participant link = %v", stored.ParticipantID)
	}

	if _, err := svc.Convert(ctx, l.ID); !errors.Is(err, ErrAlreadyConverted) {
		t.Errorf("err = %v, want ErrAlreadyConverted", err)
	}
}

func TestConvertRegistrationFailure(t *testing.T) {
	svc, repo, registrar, _ := newTestService(nil)
	registrar.fail = true
	ctx := context.Background()

	l := &Lead{Name: "Meera Pillai"}
	if err := svc.Create(ctx, l); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Convert(ctx, l.ID); err == nil {
		t.Fatal("expected conversion failure")
	}
	if repo.leads[l.ID].Status == StatusConverted {
		t.Error("lead marked converted despite registration failure")
	}
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/convolveai/yojana-drishti/internal/core/domain"
)

type fakeEmbedder struct {
	queryVector []float32
	queryErr    error
	embedErr    error
	queryTexts  []string
	embedCalls  [][]string
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.embedCalls = append(f.embedCalls, texts)
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queryTexts = append(f.queryTexts, text)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.queryVector != nil {
		return f.queryVector, nil
	}
	return []float32{1, 0, 0}, nil
}

type appliedUpdate struct {
	caseID    string
	update    domain.CaseUpdate
	updatedAt time.Time
}

type fakeCaseStore struct {
	saved     []domain.CaseMemory
	hits      []domain.CaseHit
	updates   []appliedUpdate
	upsertErr error
	updateErr error
}

func (f *fakeCaseStore) EnsureCollection(context.Context, int) error { return nil }

func (f *fakeCaseStore) UpsertCase(_ context.Context, c domain.CaseMemory, _ []float32) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.saved = append(f.saved, c)
	return nil
}

func (f *fakeCaseStore) SearchCases(_ context.Context, _ []float32, limit int) ([]domain.CaseHit, error) {
	if len(f.hits) > limit {
		return f.hits[:limit], nil
	}
	return f.hits, nil
}

func (f *fakeCaseStore) UpdateCasePayload(_ context.Context, caseID string, update domain.CaseUpdate, updatedAt time.Time) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, appliedUpdate{caseID: caseID, update: update, updatedAt: updatedAt})
	return nil
}

type fakeLedger struct {
	recorded  []domain.CaseMemory
	updates   []appliedUpdate
	listed    []domain.CaseMemory
	recordErr error
	updateErr error
}

func (f *fakeLedger) RecordCase(_ context.Context, c domain.CaseMemory) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.recorded = append(f.recorded, c)
	return nil
}

func (f *fakeLedger) ApplyUpdate(_ context.Context, caseID string, update domain.CaseUpdate, updatedAt time.Time) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, appliedUpdate{caseID: caseID, update: update, updatedAt: updatedAt})
	return nil
}

func (f *fakeLedger) ListRecent(_ context.Context, limit int) ([]domain.CaseMemory, error) {
	if len(f.listed) > limit {
		return f.listed[:limit], nil
	}
	return f.listed, nil
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestSaveGeneratesIDAndDefaults(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	store := &fakeCaseStore{}
	ledger := &fakeLedger{}
	svc := NewCaseMemoryService(&fakeEmbedder{}, store, ledger)
	svc.now = fixedClock(now)

	caseID, err := svc.Save(context.Background(), domain.CaseMemory{
		QueryIntent: "housing help",
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if caseID == "" {
		t.Fatal("expected a generated case id")
	}

	if len(store.saved) != 1 {
		t.Fatalf("expected 1 stored case, got %d", len(store.saved))
	}
	saved := store.saved[0]
	if saved.CaseID != caseID {
		t.Fatalf("stored case id %q does not match returned id %q", saved.CaseID, caseID)
	}
	if saved.Status != domain.CaseStatusDraft {
		t.Fatalf("expected draft status default, got %q", saved.Status)
	}
	if !saved.CreatedAt.Equal(now) || !saved.UpdatedAt.Equal(now) {
		t.Fatalf("expected timestamps %v, got created=%v updated=%v", now, saved.CreatedAt, saved.UpdatedAt)
	}
	if len(ledger.recorded) != 1 {
		t.Fatalf("expected ledger mirror, got %d records", len(ledger.recorded))
	}
}

func TestSaveSurvivesLedgerFailure(t *testing.T) {
	store := &fakeCaseStore{}
	ledger := &fakeLedger{recordErr: errors.New("ledger down")}
	svc := NewCaseMemoryService(&fakeEmbedder{}, store, ledger)

	caseID, err := svc.Save(context.Background(), domain.CaseMemory{QueryIntent: "pension"})
	if err != nil {
		t.Fatalf("expected ledger failure to be swallowed, got %v", err)
	}
	if caseID == "" {
		t.Fatal("expected a case id despite ledger failure")
	}
}

func TestSaveFailsWhenVectorStoreFails(t *testing.T) {
	store := &fakeCaseStore{upsertErr: errors.New("qdrant down")}
	svc := NewCaseMemoryService(&fakeEmbedder{}, store, &fakeLedger{})

	if _, err := svc.Save(context.Background(), domain.CaseMemory{QueryIntent: "pension"}); err == nil {
		t.Fatal("expected save to fail when the vector store fails")
	}
}

func TestRecallPrefersRecentOnSimilarityTie(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	store := &fakeCaseStore{
		hits: []domain.CaseHit{
			{Similarity: 0.9, Case: domain.CaseMemory{CaseID: "old", UpdatedAt: now.AddDate(0, 0, -30)}},
			{Similarity: 0.9, Case: domain.CaseMemory{CaseID: "recent", UpdatedAt: now.AddDate(0, 0, -1)}},
		},
	}
	svc := NewCaseMemoryService(&fakeEmbedder{}, store, &fakeLedger{})
	svc.now = fixedClock(now)

	recalled, err := svc.Recall(context.Background(), "housing help", 3)
	if err != nil {
		t.Fatalf("recall failed: %v", err)
	}
	if len(recalled) != 2 {
		t.Fatalf("expected 2 recalled cases, got %d", len(recalled))
	}
	if recalled[0].Case.CaseID != "recent" {
		t.Fatalf("expected the recent case first, got %q", recalled[0].Case.CaseID)
	}
	if recalled[0].Score != 0.9+0.5 {
		t.Fatalf("expected score 1.4 for the one-day-old case, got %v", recalled[0].Score)
	}
	if recalled[0].RecencyBoost != 0.5 {
		t.Fatalf("expected boost 0.5 for one day of age, got %v", recalled[0].RecencyBoost)
	}
}

func TestRecallZeroTimestampGetsNoBoost(t *testing.T) {
	store := &fakeCaseStore{
		hits: []domain.CaseHit{
			{Similarity: 0.7, Case: domain.CaseMemory{CaseID: "undated"}},
		},
	}
	svc := NewCaseMemoryService(&fakeEmbedder{}, store, &fakeLedger{})

	recalled, err := svc.Recall(context.Background(), "anything", 3)
	if err != nil {
		t.Fatalf("recall failed: %v", err)
	}
	if recalled[0].RecencyBoost != 0 {
		t.Fatalf("expected zero boost for a missing timestamp, got %v", recalled[0].RecencyBoost)
	}
	if recalled[0].Score != 0.7 {
		t.Fatalf("expected score to equal similarity, got %v", recalled[0].Score)
	}
}

func TestUpdateValidatesBeforeMutation(t *testing.T) {
	store := &fakeCaseStore{}
	svc := NewCaseMemoryService(&fakeEmbedder{}, store, &fakeLedger{})

	badScore := 1.5
	rejected := domain.CaseStatusRejected
	err := svc.Update(context.Background(), "case-1", domain.CaseUpdate{
		Status:        &rejected,
		FeedbackScore: &badScore,
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
	if len(store.updates) != 0 {
		t.Fatal("expected no mutation after a failed validation")
	}
}

func TestUpdateEmptyIsNoOp(t *testing.T) {
	store := &fakeCaseStore{}
	svc := NewCaseMemoryService(&fakeEmbedder{}, store, &fakeLedger{})

	if err := svc.Update(context.Background(), "case-1", domain.CaseUpdate{}); err != nil {
		t.Fatalf("expected empty update to succeed as a no-op, got %v", err)
	}
	if len(store.updates) != 0 {
		t.Fatal("expected no store call for an empty update")
	}
}

func TestUpdateAppliesOnlySuppliedFields(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	store := &fakeCaseStore{}
	ledger := &fakeLedger{}
	svc := NewCaseMemoryService(&fakeEmbedder{}, store, ledger)
	svc.now = fixedClock(now)

	approved := domain.CaseStatusApproved
	err := svc.Update(context.Background(), "case-1", domain.CaseUpdate{Status: &approved})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if len(store.updates) != 1 {
		t.Fatalf("expected 1 store update, got %d", len(store.updates))
	}
	applied := store.updates[0]
	if applied.caseID != "case-1" {
		t.Fatalf("unexpected case id %q", applied.caseID)
	}
	if applied.update.Status == nil || *applied.update.Status != domain.CaseStatusApproved {
		t.Fatalf("expected status approved, got %+v", applied.update.Status)
	}
	if applied.update.FeedbackScore != nil || applied.update.Notes != nil || applied.update.ChosenSchemeID != nil {
		t.Fatal("expected untouched fields to stay nil")
	}
	if !applied.updatedAt.Equal(now) {
		t.Fatalf("expected updated_at %v, got %v", now, applied.updatedAt)
	}
	if len(ledger.updates) != 1 {
		t.Fatalf("expected ledger mirror update, got %d", len(ledger.updates))
	}
}

func TestUpdateUnknownCaseSurfacesNotFound(t *testing.T) {
	store := &fakeCaseStore{}
	ledger := &fakeLedger{
		updateErr: domain.WrapError(domain.ErrCaseNotFound, "apply case update", fmt.Errorf("case ghost not found")),
	}
	svc := NewCaseMemoryService(&fakeEmbedder{}, store, ledger)

	notes := "visited"
	err := svc.Update(context.Background(), "ghost", domain.CaseUpdate{Notes: &notes})
	if !domain.IsKind(err, domain.ErrCaseNotFound) {
		t.Fatalf("expected case not found, got %v", err)
	}
}

func TestUpdateSurvivesOtherLedgerFailures(t *testing.T) {
	store := &fakeCaseStore{}
	ledger := &fakeLedger{updateErr: fmt.Errorf("ledger down")}
	svc := NewCaseMemoryService(&fakeEmbedder{}, store, ledger)

	notes := "visited"
	if err := svc.Update(context.Background(), "case-1", domain.CaseUpdate{Notes: &notes}); err != nil {
		t.Fatalf("expected ledger mirror failure to be tolerated, got %v", err)
	}
	if len(store.updates) != 1 {
		t.Fatalf("expected the vector store update to land, got %d", len(store.updates))
	}
}

func TestUpdateRequiresCaseID(t *testing.T) {
	svc := NewCaseMemoryService(&fakeEmbedder{}, &fakeCaseStore{}, &fakeLedger{})

	notes := "visited"
	err := svc.Update(context.Background(), "", domain.CaseUpdate{Notes: &notes})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

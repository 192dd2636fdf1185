package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/convolveai/yojana-drishti/internal/core/domain"
	"github.com/convolveai/yojana-drishti/internal/core/ports"
)

// CaseMemoryService persists query events as vector-indexed cases, recalls
// semantically similar past cases and applies partial outcome updates. The
// relational ledger mirror is best effort; the vector store is authoritative.
type CaseMemoryService struct {
	embedder ports.Embedder
	store    ports.CaseVectorStore
	ledger   ports.CaseLedger

	now func() time.Time
}

func NewCaseMemoryService(
	embedder ports.Embedder,
	store ports.CaseVectorStore,
	ledger ports.CaseLedger,
) *CaseMemoryService {
	return &CaseMemoryService{
		embedder: embedder,
		store:    store,
		ledger:   ledger,
		now:      time.Now,
	}
}

// Save embeds the case summary and upserts the case keyed by its id,
// generating a fresh id when absent. Missing optional fields never fail a
// save.
func (s *CaseMemoryService) Save(ctx context.Context, c domain.CaseMemory) (string, error) {
	if c.CaseID == "" {
		c.CaseID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = domain.CaseStatusDraft
	}
	now := s.now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	vector, err := s.embedder.EmbedQuery(ctx, c.SummaryText())
	if err != nil {
		return "", fmt.Errorf("embed case summary: %w", err)
	}
	if err := s.store.UpsertCase(ctx, c, vector); err != nil {
		return "", fmt.Errorf("upsert case memory: %w", err)
	}

	if s.ledger != nil {
		if err := s.ledger.RecordCase(ctx, c); err != nil {
			slog.Warn("case_ledger_record_failed", "case_id", c.CaseID, "error", err)
		}
	}
	return c.CaseID, nil
}

// Recall retrieves the nearest cases by vector similarity and re-ranks them
// by similarity plus a recency boost from each case's updated_at. Pure
// similarity under-weights cases a caseworker recently validated.
func (s *CaseMemoryService) Recall(ctx context.Context, queryText string, limit int) ([]domain.RecalledCase, error) {
	if limit <= 0 {
		limit = 3
	}
	vector, err := s.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed recall query: %w", err)
	}
	hits, err := s.store.SearchCases(ctx, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("search case memory: %w", err)
	}
	return rankRecalled(hits, s.now().UTC()), nil
}

// Update applies a partial outcome update and bumps updated_at. An empty
// update is a no-op; an out-of-range feedback score fails before any
// mutation.
func (s *CaseMemoryService) Update(ctx context.Context, caseID string, update domain.CaseUpdate) error {
	if caseID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "update case", fmt.Errorf("case id is required"))
	}
	if err := update.Validate(); err != nil {
		return err
	}
	if update.IsEmpty() {
		return nil
	}

	now := s.now().UTC()
	if err := s.store.UpdateCasePayload(ctx, caseID, update, now); err != nil {
		return fmt.Errorf("update case memory: %w", err)
	}
	if s.ledger != nil {
		if err := s.ledger.ApplyUpdate(ctx, caseID, update, now); err != nil {
			// The vector store's set-payload no-ops on a missing point, so
			// the ledger is the only place that can tell the case never
			// existed.
			if domain.IsKind(err, domain.ErrCaseNotFound) {
				return err
			}
			slog.Warn("case_ledger_update_failed", "case_id", caseID, "error", err)
		}
	}
	return nil
}

// ListRecent serves the audit listing from the ledger.
func (s *CaseMemoryService) ListRecent(ctx context.Context, limit int) ([]domain.CaseMemory, error) {
	if s.ledger == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	return s.ledger.ListRecent(ctx, limit)
}

func rankRecalled(hits []domain.CaseHit, now time.Time) []domain.RecalledCase {
	out := make([]domain.RecalledCase, 0, len(hits))
	for _, hit := range hits {
		boost := recencyBoost(hit.Case.UpdatedAt, now)
		out = append(out, domain.RecalledCase{
			Score:        hit.Similarity + boost,
			Similarity:   hit.Similarity,
			RecencyBoost: boost,
			Case:         hit.Case,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].RecencyBoost > out[j].RecencyBoost
	})
	return out
}

// recencyBoost is 1/(1+age_in_days). A zero (missing or unparsable)
// timestamp contributes no boost.
func recencyBoost(updatedAt, now time.Time) float64 {
	if updatedAt.IsZero() {
		return 0
	}
	ageDays := now.Sub(updatedAt).Seconds() / 86400.0
	if ageDays < 0 {
		ageDays = 0
	}
	return 1.0 / (1.0 + ageDays)
}

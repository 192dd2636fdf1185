package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/convolveai/yojana-drishti/internal/core/domain"
	"github.com/convolveai/yojana-drishti/internal/core/ports"
)

// AnalyzeOptions tune the hybrid retrieval pipeline.
type AnalyzeOptions struct {
	// RRFK is the reciprocal rank fusion constant.
	RRFK int
	// HybridCandidates is the per-branch candidate pool before fusion.
	HybridCandidates int
	// MemoryTopK is how many past cases to recall per query.
	MemoryTopK int
}

func (o AnalyzeOptions) normalize() AnalyzeOptions {
	if o.RRFK <= 0 {
		o.RRFK = 60
	}
	if o.HybridCandidates <= 0 {
		o.HybridCandidates = 30
	}
	if o.MemoryTopK <= 0 {
		o.MemoryTopK = 3
	}
	return o
}

// AnalyzeUseCase runs the retrieval pipeline: embed the query, issue the
// dense and sparse branches under one structured filter, fuse with RRF,
// explain each match, recall related cases and save the query as a new case.
type AnalyzeUseCase struct {
	embedder ports.Embedder
	schemes  ports.SchemeIndex
	memory   *CaseMemoryService
	opts     AnalyzeOptions
}

func NewAnalyzeUseCase(
	embedder ports.Embedder,
	schemes ports.SchemeIndex,
	memory *CaseMemoryService,
	opts AnalyzeOptions,
) *AnalyzeUseCase {
	return &AnalyzeUseCase{
		embedder: embedder,
		schemes:  schemes,
		memory:   memory,
		opts:     opts.normalize(),
	}
}

func (uc *AnalyzeUseCase) Analyze(
	ctx context.Context,
	signals domain.EligibilitySignals,
	queryIntent string,
	limit int,
) (*domain.AnalysisResult, error) {
	if limit <= 0 {
		limit = 3
	}

	queryText := strings.TrimSpace(queryIntent)
	if queryText == "" {
		queryText = signals.SummaryText()
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	filter := domain.FilterFromSignals(signals)
	candidates := uc.opts.HybridCandidates
	if candidates < limit {
		candidates = limit
	}

	// The two branches are independent network calls; issue them together
	// and join before fusion.
	var dense, sparse []domain.SchemeMatch
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		dense, err = uc.schemes.SearchDense(gctx, queryVector, candidates, filter)
		if err != nil {
			return fmt.Errorf("dense branch: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		sparse, err = uc.schemes.SearchSparse(gctx, queryText, candidates, filter)
		if err != nil {
			return fmt.Errorf("sparse branch: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}

	matches := trimMatches(fuseMatchesRRF(dense, sparse, uc.opts.RRFK), limit)

	explanations := make([]domain.Explanation, 0, len(matches))
	schemeIDs := make([]string, 0, len(matches))
	for _, match := range matches {
		explanations = append(explanations, BuildExplanation(signals, match))
		schemeIDs = append(schemeIDs, match.Scheme.SchemeID)
	}

	memories, err := uc.memory.Recall(ctx, queryText, uc.opts.MemoryTopK)
	if err != nil {
		return nil, fmt.Errorf("recall case memory: %w", err)
	}

	result := &domain.AnalysisResult{
		Signals:      signals,
		Matches:      matches,
		Explanations: explanations,
		Memories:     memories,
	}

	// Case save is best effort: a persistence failure must not discard the
	// already-computed matches.
	caseID, err := uc.memory.Save(ctx, domain.CaseMemory{
		Signals:            signals,
		QueryIntent:        queryText,
		RetrievedSchemeIDs: schemeIDs,
		Status:             domain.CaseStatusDraft,
	})
	if err != nil {
		slog.Warn("case_memory_save_failed", "error", err)
		result.MemoryError = "case memory save failed"
		return result, nil
	}
	result.CaseID = caseID
	return result, nil
}

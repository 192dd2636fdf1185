package ports

import (
	"context"

	"github.com/convolveai/yojana-drishti/internal/core/domain"
)

// SchemeAnalyzer is the inbound contract for the full retrieval pipeline:
// hybrid search, explanations, memory recall and the case save.
type SchemeAnalyzer interface {
	Analyze(ctx context.Context, signals domain.EligibilitySignals, queryIntent string, limit int) (*domain.AnalysisResult, error)
}

// CaseMemoryManager exposes case outcome updates and the audit listing.
type CaseMemoryManager interface {
	Update(ctx context.Context, caseID string, update domain.CaseUpdate) error
	ListRecent(ctx context.Context, limit int) ([]domain.CaseMemory, error)
}

// CatalogManager is the inbound contract for catalog ingestion.
type CatalogManager interface {
	RequestReingest(ctx context.Context) (string, error)
	IngestSeed(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
}

package ports

import (
	"context"
	"time"

	"github.com/convolveai/yojana-drishti/internal/core/domain"
)

// Embedder builds dense vectors for catalog documents and query text. All
// vectors from one backend instance share a fixed dimensionality.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// SchemeIndex is the vector-indexed scheme catalog. Upserts are idempotent by
// scheme id; the dense and sparse branches are queried independently.
type SchemeIndex interface {
	EnsureCollection(ctx context.Context, vectorSize int) error
	UpsertSchemes(ctx context.Context, schemes []domain.Scheme, vectors [][]float32) error
	SearchDense(ctx context.Context, queryVector []float32, limit int, filter domain.SchemeFilter) ([]domain.SchemeMatch, error)
	SearchSparse(ctx context.Context, queryText string, limit int, filter domain.SchemeFilter) ([]domain.SchemeMatch, error)
	Count(ctx context.Context) (int, error)
}

// CaseVectorStore indexes case memories and recalls them by similarity.
type CaseVectorStore interface {
	EnsureCollection(ctx context.Context, vectorSize int) error
	UpsertCase(ctx context.Context, c domain.CaseMemory, vector []float32) error
	SearchCases(ctx context.Context, queryVector []float32, limit int) ([]domain.CaseHit, error)
	UpdateCasePayload(ctx context.Context, caseID string, update domain.CaseUpdate, updatedAt time.Time) error
}

// CaseLedger is the relational mirror of case memory, used for audit and
// listing. The vector store stays the source of truth for recall.
type CaseLedger interface {
	RecordCase(ctx context.Context, c domain.CaseMemory) error
	ApplyUpdate(ctx context.Context, caseID string, update domain.CaseUpdate, updatedAt time.Time) error
	ListRecent(ctx context.Context, limit int) ([]domain.CaseMemory, error)
}

// SignalExtractor derives eligibility signals from an image, best effort.
type SignalExtractor interface {
	Extract(ctx context.Context, image []byte, hints domain.EligibilitySignals) (domain.EligibilitySignals, error)
}

// MessageQueue publishes/consumes catalog reingest events.
type MessageQueue interface {
	PublishCatalogIngest(ctx context.Context, batchID string) error
	SubscribeCatalogIngest(ctx context.Context, handler func(context.Context, string) error) error
}

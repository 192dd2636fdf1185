package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/convolveai/yojana-drishti/internal/core/domain"
	"github.com/convolveai/yojana-drishti/internal/core/ports"
)

// IngestCatalogUseCase builds the catalog's dense and sparse index from the
// seed file and (re)creates the backing collections. Ingestion is idempotent:
// scheme points are keyed by a namespaced hash of scheme_id.
type IngestCatalogUseCase struct {
	embedder ports.Embedder
	schemes  ports.SchemeIndex
	cases    ports.CaseVectorStore
	queue    ports.MessageQueue
	seedPath string
}

func NewIngestCatalogUseCase(
	embedder ports.Embedder,
	schemes ports.SchemeIndex,
	cases ports.CaseVectorStore,
	queue ports.MessageQueue,
	seedPath string,
) *IngestCatalogUseCase {
	return &IngestCatalogUseCase{
		embedder: embedder,
		schemes:  schemes,
		cases:    cases,
		queue:    queue,
		seedPath: seedPath,
	}
}

// RequestReingest publishes a reingest event for the worker and returns the
// batch id.
func (uc *IngestCatalogUseCase) RequestReingest(ctx context.Context) (string, error) {
	batchID := uuid.NewString()
	if err := uc.queue.PublishCatalogIngest(ctx, batchID); err != nil {
		return "", fmt.Errorf("publish catalog ingest: %w", err)
	}
	return batchID, nil
}

// IngestSeed loads the seed catalog, embeds the descriptions, ensures both
// collections exist with the embedder's vector size and upserts every scheme.
// Returns the number of schemes indexed.
func (uc *IngestCatalogUseCase) IngestSeed(ctx context.Context) (int, error) {
	schemes, err := loadSeedSchemes(uc.seedPath)
	if err != nil {
		return 0, err
	}

	descriptions := make([]string, 0, len(schemes))
	for _, scheme := range schemes {
		descriptions = append(descriptions, scheme.Description)
	}

	vectors, err := uc.embedder.Embed(ctx, descriptions)
	if err != nil {
		return 0, fmt.Errorf("embed scheme descriptions: %w", err)
	}
	if len(vectors) != len(schemes) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d schemes", len(vectors), len(schemes))
	}

	vectorSize := len(vectors[0])
	if err := uc.schemes.EnsureCollection(ctx, vectorSize); err != nil {
		return 0, fmt.Errorf("ensure scheme collection: %w", err)
	}
	if err := uc.cases.EnsureCollection(ctx, vectorSize); err != nil {
		return 0, fmt.Errorf("ensure case collection: %w", err)
	}
	if err := uc.schemes.UpsertSchemes(ctx, schemes, vectors); err != nil {
		return 0, fmt.Errorf("upsert schemes: %w", err)
	}
	return len(schemes), nil
}

// Count reports the exact number of indexed schemes.
func (uc *IngestCatalogUseCase) Count(ctx context.Context) (int, error) {
	return uc.schemes.Count(ctx)
}

func loadSeedSchemes(path string) ([]domain.Scheme, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed catalog: %w", err)
	}
	var schemes []domain.Scheme
	if err := json.Unmarshal(raw, &schemes); err != nil {
		return nil, fmt.Errorf("parse seed catalog: %w", err)
	}
	if len(schemes) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load seed catalog", fmt.Errorf("seed file %s is empty", path))
	}
	for i, scheme := range schemes {
		if scheme.SchemeID == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "load seed catalog", fmt.Errorf("seed entry %d has no scheme_id", i))
		}
	}
	return schemes, nil
}

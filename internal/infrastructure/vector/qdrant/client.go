package qdrant

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/convolveai/yojana-drishti/internal/core/domain"
)

const (
	denseVectorName  = "dense"
	sparseVectorName = "sparse"
)

// Client indexes the scheme catalog in one Qdrant collection holding a named
// dense vector space, a named sparse vector space and a structured payload.
type Client struct {
	transport  *transport
	collection string

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, apiKey, collection string) *Client {
	return &Client{
		transport:  newTransport(baseURL, apiKey),
		collection: collection,
	}
}

// EnsureCollection creates the catalog collection and its payload field
// indexes if they do not exist yet.
func (c *Client) EnsureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	exists, err := c.collectionExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		body := map[string]any{
			"vectors": map[string]any{
				denseVectorName: map[string]any{
					"size":     vectorSize,
					"distance": "Cosine",
				},
			},
			"sparse_vectors": map[string]any{
				sparseVectorName: map[string]any{},
			},
		}
		path := fmt.Sprintf("/collections/%s", c.collection)
		if err := c.transport.doJSON(ctx, http.MethodPut, path, body, nil, "create collection"); err != nil {
			return err
		}
		if err := c.createPayloadIndexes(ctx); err != nil {
			return err
		}
	}

	c.ensureMu.Lock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
	c.ensureMu.Unlock()
	return nil
}

func (c *Client) collectionExists(ctx context.Context) (bool, error) {
	var resp struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/exists", c.collection)
	if err := c.transport.doJSON(ctx, http.MethodGet, path, nil, &resp, "collection exists"); err != nil {
		return false, err
	}
	return resp.Result.Exists, nil
}

func (c *Client) createPayloadIndexes(ctx context.Context) error {
	indexes := []struct {
		field  string
		schema string
	}{
		{"states", "keyword"},
		{"eligibility_rules.housing", "keyword"},
		{"eligibility_rules.caste", "keyword"},
		{"eligibility_rules.assets_excluded", "keyword"},
		{"eligibility_rules.land_max_acres", "float"},
	}
	path := fmt.Sprintf("/collections/%s/index", c.collection)
	for _, idx := range indexes {
		body := map[string]any{
			"field_name":   idx.field,
			"field_schema": idx.schema,
		}
		if err := c.transport.doJSON(ctx, http.MethodPut, path, body, nil, "create payload index"); err != nil {
			return err
		}
	}
	return nil
}

// UpsertSchemes writes one point per scheme. Point ids are a namespaced hash
// of scheme_id, so re-ingesting the same scheme overwrites in place.
func (c *Client) UpsertSchemes(ctx context.Context, schemes []domain.Scheme, vectors [][]float32) error {
	if len(schemes) == 0 {
		return nil
	}
	if len(schemes) != len(vectors) {
		return fmt.Errorf("schemes/vectors mismatch: %d vs %d", len(schemes), len(vectors))
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  map[string]any `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(schemes))
	for i, scheme := range schemes {
		points = append(points, point{
			ID: SchemePointID(scheme.SchemeID),
			Vector: map[string]any{
				denseVectorName:  vectors[i],
				sparseVectorName: encodeSparse(combineTexts(scheme.SchemeName, scheme.Description, scheme.Benefits)),
			},
			Payload: schemePayload(scheme),
		})
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", c.collection)
	return c.transport.doJSON(ctx, http.MethodPut, path, map[string]any{"points": points}, nil, "upsert schemes")
}

// SchemePointID derives the deterministic point id for a scheme.
func SchemePointID(schemeID string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(schemeID)).String()
}

// SearchDense is the cosine-similarity branch over the dense vector space.
func (c *Client) SearchDense(
	ctx context.Context,
	queryVector []float32,
	limit int,
	filter domain.SchemeFilter,
) ([]domain.SchemeMatch, error) {
	return c.queryBranch(ctx, queryVector, denseVectorName, limit, filter)
}

// SearchSparse is the lexical branch over the sparse vector space. Query
// text with no alphanumeric content yields no candidates rather than an
// error.
func (c *Client) SearchSparse(
	ctx context.Context,
	queryText string,
	limit int,
	filter domain.SchemeFilter,
) ([]domain.SchemeMatch, error) {
	sparse := encodeSparse(queryText)
	if sparse.isEmpty() {
		return nil, nil
	}
	return c.queryBranch(ctx, sparse, sparseVectorName, limit, filter)
}

func (c *Client) queryBranch(
	ctx context.Context,
	query any,
	using string,
	limit int,
	filter domain.SchemeFilter,
) ([]domain.SchemeMatch, error) {
	body := map[string]any{
		"query":        query,
		"using":        using,
		"limit":        limit,
		"with_payload": true,
	}
	if f := buildSchemeFilter(filter); f != nil {
		body["filter"] = f
	}

	var resp queryResponse
	path := fmt.Sprintf("/collections/%s/points/query", c.collection)
	if err := c.transport.doJSON(ctx, http.MethodPost, path, body, &resp, "query schemes"); err != nil {
		return nil, err
	}

	out := make([]domain.SchemeMatch, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		var scheme domain.Scheme
		if err := decodePayloadInto(p.Payload, &scheme); err != nil {
			return nil, fmt.Errorf("decode scheme payload: %w", err)
		}
		out = append(out, domain.SchemeMatch{
			PointID: pointIDString(p.ID),
			Score:   p.Score,
			Scheme:  scheme,
		})
	}
	return out, nil
}

// Count reports the exact number of indexed schemes.
func (c *Client) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/count", c.collection)
	if err := c.transport.doJSON(ctx, http.MethodPost, path, map[string]any{"exact": true}, &resp, "count schemes"); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func schemePayload(scheme domain.Scheme) map[string]any {
	rules := map[string]any{}
	if scheme.Rules.Housing != "" {
		rules["housing"] = scheme.Rules.Housing
	}
	if scheme.Rules.Caste != "" {
		rules["caste"] = scheme.Rules.Caste
	}
	if scheme.Rules.LandMaxAcres != nil {
		rules["land_max_acres"] = *scheme.Rules.LandMaxAcres
	}
	if len(scheme.Rules.AssetsExcluded) > 0 {
		rules["assets_excluded"] = scheme.Rules.AssetsExcluded
	}
	return map[string]any{
		"scheme_id":         scheme.SchemeID,
		"scheme_name":       scheme.SchemeName,
		"description":       scheme.Description,
		"states":            scheme.States,
		"eligibility_rules": rules,
		"benefits":          scheme.Benefits,
		"source_url":        scheme.SourceURL,
	}
}

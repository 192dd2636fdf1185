package httpadapter

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/convolveai/yojana-drishti/internal/core/domain"
	"github.com/convolveai/yojana-drishti/internal/core/ports"
	"github.com/convolveai/yojana-drishti/internal/observability/metrics"
)

const defaultListLimit = 20

type Router struct {
	service   string
	analyzer  ports.SchemeAnalyzer
	cases     ports.CaseMemoryManager
	catalog   ports.CatalogManager
	extractor ports.SignalExtractor
	metrics   *metrics.HTTPServerMetrics
}

func NewRouter(
	service string,
	analyzer ports.SchemeAnalyzer,
	cases ports.CaseMemoryManager,
	catalog ports.CatalogManager,
	extractor ports.SignalExtractor,
	serverMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		service:   service,
		analyzer:  analyzer,
		cases:     cases,
		catalog:   catalog,
		extractor: extractor,
		metrics:   serverMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/analyze", rt.analyze)
	mux.HandleFunc("/v1/cases", rt.listCases)
	mux.HandleFunc("/v1/cases/", rt.updateCase)
	mux.HandleFunc("/v1/catalog/ingest", rt.requestIngest)
	mux.HandleFunc("/v1/catalog/status", rt.catalogStatus)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type analyzeRequest struct {
	Query        string   `json:"query"`
	HousingType  string   `json:"housing_type"`
	Assets       []string `json:"assets"`
	Demographics []string `json:"demographics"`
	State        string   `json:"state"`
	Caste        string   `json:"caste"`
	LandAcres    *float64 `json:"land_acres"`
	Limit        int      `json:"limit"`
	UseVision    bool     `json:"use_vision"`
	ImageBase64  string   `json:"image_base64"`
}

func (rt *Router) analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	signals, err := rt.resolveSignals(r, req)
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	result, err := rt.analyzer.Analyze(r.Context(), signals, req.Query, req.Limit)
	if err != nil {
		rt.recordAnalyze("error", 0, 0, false, time.Since(start))
		writeError(w, err)
		return
	}
	rt.recordAnalyze("success", len(result.Matches), len(result.Memories), result.MemoryError != "", time.Since(start))

	writeJSON(w, http.StatusOK, result)
}

// resolveSignals builds eligibility signals from the request body, optionally
// running vision extraction first. Explicit request fields win over extracted
// ones.
func (rt *Router) resolveSignals(r *http.Request, req analyzeRequest) (domain.EligibilitySignals, error) {
	housing := domain.HousingUnknown
	if strings.TrimSpace(req.HousingType) != "" {
		parsed, err := domain.ParseHousingType(req.HousingType)
		if err != nil {
			return domain.EligibilitySignals{}, domain.WrapError(domain.ErrInvalidInput, "parse housing type", err)
		}
		housing = parsed
	}

	signals := domain.EligibilitySignals{
		HousingType:  housing,
		Assets:       req.Assets,
		Demographics: req.Demographics,
		State:        strings.TrimSpace(req.State),
		Caste:        strings.TrimSpace(req.Caste),
		LandAcres:    req.LandAcres,
		Intent:       strings.TrimSpace(req.Query),
	}

	if !req.UseVision || strings.TrimSpace(req.ImageBase64) == "" {
		return signals, nil
	}
	if rt.extractor == nil {
		return domain.EligibilitySignals{}, domain.WrapError(
			domain.ErrUnavailable,
			"vision extraction",
			errors.New("no vision backend configured"),
		)
	}

	image, err := decodeImage(req.ImageBase64)
	if err != nil {
		return domain.EligibilitySignals{}, domain.WrapError(domain.ErrInvalidInput, "decode image", err)
	}

	extracted, err := rt.extractor.Extract(r.Context(), image, signals)
	if err != nil {
		slog.Warn("vision_extraction_failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
		// The caller opted into vision; surface the failure instead of
		// quietly analyzing without it.
		if domain.IsKind(err, domain.ErrTemporary) || domain.IsKind(err, domain.ErrUnavailable) {
			return domain.EligibilitySignals{}, err
		}
		return domain.EligibilitySignals{}, domain.WrapError(domain.ErrUnavailable, "vision extraction", err)
	}

	return mergeSignals(extracted, signals), nil
}

// mergeSignals overlays explicit request fields on top of vision output.
func mergeSignals(extracted, explicit domain.EligibilitySignals) domain.EligibilitySignals {
	merged := extracted
	if explicit.HousingType.Known() {
		merged.HousingType = explicit.HousingType
	}
	if len(explicit.Assets) > 0 {
		merged.Assets = explicit.Assets
	}
	if len(explicit.Demographics) > 0 {
		merged.Demographics = explicit.Demographics
	}
	if explicit.State != "" {
		merged.State = explicit.State
	}
	if explicit.Caste != "" {
		merged.Caste = explicit.Caste
	}
	if explicit.LandAcres != nil {
		merged.LandAcres = explicit.LandAcres
	}
	merged.Intent = explicit.Intent
	return merged
}

func decodeImage(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if comma := strings.Index(encoded, ","); comma >= 0 && strings.HasPrefix(encoded, "data:") {
		encoded = encoded[comma+1:]
	}
	return base64.StdEncoding.DecodeString(encoded)
}

type caseUpdateRequest struct {
	Status         *string  `json:"status"`
	FeedbackScore  *float64 `json:"feedback_score"`
	Notes          *string  `json:"notes"`
	ChosenSchemeID *string  `json:"chosen_scheme_id"`
}

func (rt *Router) updateCase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	caseID := strings.TrimPrefix(r.URL.Path, "/v1/cases/")
	if caseID == "" || strings.Contains(caseID, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "case id is required"})
		return
	}

	var req caseUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	update := domain.CaseUpdate{
		FeedbackScore:  req.FeedbackScore,
		Notes:          req.Notes,
		ChosenSchemeID: req.ChosenSchemeID,
	}
	if req.Status != nil {
		status, err := domain.ParseCaseStatus(*req.Status)
		if err != nil {
			writeError(w, domain.WrapError(domain.ErrInvalidInput, "parse case status", err))
			return
		}
		update.Status = &status
	}
	if update.IsEmpty() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "update has no fields"})
		return
	}

	if err := rt.cases.Update(r.Context(), caseID, update); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"case_id": caseID, "updated": true})
}

func (rt *Router) listCases(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	cases, err := rt.cases.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if cases == nil {
		cases = []domain.CaseMemory{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"cases": cases})
}

func (rt *Router) requestIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	batchID, err := rt.catalog.RequestReingest(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"batch_id": batchID, "status": "queued"})
}

func (rt *Router) catalogStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	count, err := rt.catalog.Count(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"schemes": count})
}

func (rt *Router) recordAnalyze(status string, matches, memoryHits int, saveFailed bool, duration time.Duration) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordAnalyze(rt.service, status, matches, duration)
	rt.metrics.RecordMemoryHits(rt.service, memoryHits)
	if saveFailed {
		rt.metrics.RecordMemorySaveFailure(rt.service)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

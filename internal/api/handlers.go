package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ppiankov/shepard/internal/model"
	"go.uber.org/zap"
)

// Service is the analysis surface the API serves. *pipeline.Pipeline implements it.
type Service interface {
	Resolve(ctx context.Context, id string) (model.Document, error)
	ValidateCitation(text string, format model.CitationFormat) model.CitationValidationResult
	ValidateDocument(ctx context.Context, doc model.Document) ([]model.CitationValidationResult, error)
	Shepardize(ctx context.Context, doc model.Document) (*model.ShepardAnalysis, error)
	Treatment(ctx context.Context, doc model.Document) (*model.TreatmentAnalysis, error)
	Network(ctx context.Context, doc model.Document, scope model.NetworkScope, maxDepth, maxNodes int) (*model.NetworkAnalysis, error)
	Bridges(ctx context.Context, from, to model.Document, maxDepth int) ([]model.NetworkPath, error)
	Influence(ctx context.Context, doc model.Document) (*model.InfluenceReport, error)
	Track(ctx context.Context, doc model.Document) (*model.StatusSnapshot, error)
	Trends(ctx context.Context, docID string, periodDays int) (*model.TrendAnalysis, error)
	History(ctx context.Context, docID string) ([]model.StatusSnapshot, error)
	Alerts(ctx context.Context, docID string, minSeverity model.Severity) ([]model.StatusAlert, error)
	Acknowledge(ctx context.Context, alertID string) (bool, error)
}

// Handler holds API route handlers
type Handler struct {
	svc    Service
	logger *zap.Logger
}

// NewHandler creates a new Handler
func NewHandler(svc Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger.Named("api")}
}

// document resolves the {id} path parameter
func (h *Handler) document(w http.ResponseWriter, r *http.Request) (model.Document, bool) {
	doc, err := h.svc.Resolve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "resolve document", err)
		return model.Document{}, false
	}
	return doc, true
}

// ValidateCitations handles POST /v1/citations/validate.
// The body names citations directly, or text to extract them from, or both.
func (h *Handler) ValidateCitations(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if len(req.Citations) == 0 && req.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("citations or text is required"))
		return
	}

	results := make([]model.CitationValidationResult, 0, len(req.Citations))
	for _, c := range req.Citations {
		results = append(results, h.svc.ValidateCitation(c, req.Format))
	}
	if req.Text != "" {
		found, err := h.svc.ValidateDocument(r.Context(), model.Document{ID: "request", Content: req.Text})
		if err != nil {
			h.writeError(w, "validate text", err)
			return
		}
		results = append(results, found...)
	}

	valid := 0
	for _, res := range results {
		if res.IsValid {
			valid++
		}
	}
	writeJSON(w, http.StatusOK, ValidateResponse{Results: results, Valid: valid, Total: len(results)})
}

// Shepard handles GET /v1/documents/{id}/shepard
func (h *Handler) Shepard(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w, r)
	if !ok {
		return
	}
	analysis, err := h.svc.Shepardize(r.Context(), doc)
	if err != nil {
		h.writeError(w, "shepardize", err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// Treatment handles GET /v1/documents/{id}/treatment
func (h *Handler) Treatment(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w, r)
	if !ok {
		return
	}
	analysis, err := h.svc.Treatment(r.Context(), doc)
	if err != nil {
		h.writeError(w, "analyze treatment", err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// Network handles GET /v1/documents/{id}/network?scope=&depth=&max_nodes=
func (h *Handler) Network(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scope := model.NetworkScope(q.Get("scope"))
	switch scope {
	case "", model.ScopeImmediate, model.ScopeExtended, model.ScopeComprehensive:
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("scope must be immediate, extended or comprehensive"))
		return
	}
	depth, err := intParam(q.Get("depth"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("depth: "+err.Error()))
		return
	}
	maxNodes, err := intParam(q.Get("max_nodes"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("max_nodes: "+err.Error()))
		return
	}

	doc, ok := h.document(w, r)
	if !ok {
		return
	}
	network, err := h.svc.Network(r.Context(), doc, scope, depth, maxNodes)
	if err != nil {
		h.writeError(w, "build network", err)
		return
	}
	writeJSON(w, http.StatusOK, network)
}

// Influence handles GET /v1/documents/{id}/influence
func (h *Handler) Influence(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w, r)
	if !ok {
		return
	}
	report, err := h.svc.Influence(r.Context(), doc)
	if err != nil {
		h.writeError(w, "analyze influence", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Bridges handles GET /v1/bridges?from=&to=&depth=
func (h *Handler) Bridges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fromID, toID := q.Get("from"), q.Get("to")
	if fromID == "" || toID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("from and to are required"))
		return
	}
	depth, err := intParam(q.Get("depth"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("depth: "+err.Error()))
		return
	}

	from, err := h.svc.Resolve(r.Context(), fromID)
	if err != nil {
		h.writeError(w, "resolve document", err)
		return
	}
	to, err := h.svc.Resolve(r.Context(), toID)
	if err != nil {
		h.writeError(w, "resolve document", err)
		return
	}
	paths, err := h.svc.Bridges(r.Context(), from, to, depth)
	if err != nil {
		h.writeError(w, "find bridges", err)
		return
	}
	writeJSON(w, http.StatusOK, BridgesResponse{From: fromID, To: toID, Paths: paths})
}

// Track handles POST /v1/documents/{id}/track
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w, r)
	if !ok {
		return
	}
	snap, err := h.svc.Track(r.Context(), doc)
	if err != nil {
		h.writeError(w, "track status", err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// Trends handles GET /v1/documents/{id}/trends?period_days=
func (h *Handler) Trends(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r.URL.Query().Get("period_days"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("period_days: "+err.Error()))
		return
	}
	id := chi.URLParam(r, "id")
	trend, err := h.svc.Trends(r.Context(), id, days)
	if err != nil {
		h.writeError(w, "analyze trends", err)
		return
	}
	resp := TrendResponse{DocumentID: id, Trend: trend}
	if trend == nil {
		resp.Message = "fewer than two snapshots in the period"
	}
	writeJSON(w, http.StatusOK, resp)
}

// History handles GET /v1/documents/{id}/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snaps, err := h.svc.History(r.Context(), id)
	if err != nil {
		h.writeError(w, "read history", err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{DocumentID: id, Snapshots: snaps})
}

// Alerts handles GET /v1/alerts?document_id=&min_severity=
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sev := model.Severity(q.Get("min_severity"))
	switch sev {
	case "", model.SeverityInfo, model.SeverityLow, model.SeverityMedium, model.SeverityHigh, model.SeverityCritical:
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("min_severity must be info, low, medium, high or critical"))
		return
	}
	if sev == "" {
		sev = model.SeverityInfo
	}
	alerts, err := h.svc.Alerts(r.Context(), q.Get("document_id"), sev)
	if err != nil {
		h.writeError(w, "list alerts", err)
		return
	}
	writeJSON(w, http.StatusOK, AlertsResponse{Alerts: alerts, Total: len(alerts)})
}

// Acknowledge handles POST /v1/alerts/{id}/ack
func (h *Handler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	changed, err := h.svc.Acknowledge(r.Context(), id)
	if err != nil {
		h.writeError(w, "acknowledge alert", err)
		return
	}
	writeJSON(w, http.StatusOK, AckResponse{AlertID: id, Acknowledged: true, Changed: changed})
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("must be an integer")
	}
	if n < 0 {
		return 0, errors.New("must not be negative")
	}
	return n, nil
}

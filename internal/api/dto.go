package api

import "github.com/ppiankov/shepard/internal/model"

// ValidateRequest is the request body for citation validation
type ValidateRequest struct {
	Citations []string             `json:"citations,omitempty"`
	Text      string               `json:"text,omitempty"` // Free text to extract citations from
	Format    model.CitationFormat `json:"format,omitempty"`
}

// ValidateResponse wraps validation results
type ValidateResponse struct {
	Results []model.CitationValidationResult `json:"results"`
	Valid   int                              `json:"valid"`
	Total   int                              `json:"total"`
}

// BridgesResponse wraps the paths connecting two documents
type BridgesResponse struct {
	From  string              `json:"from"`
	To    string              `json:"to"`
	Paths []model.NetworkPath `json:"paths"`
}

// TrendResponse wraps a trend analysis, which is null when history is too short
type TrendResponse struct {
	DocumentID string               `json:"document_id"`
	Trend      *model.TrendAnalysis `json:"trend"`
	Message    string               `json:"message,omitempty"`
}

// HistoryResponse wraps a document's snapshots, oldest first
type HistoryResponse struct {
	DocumentID string                 `json:"document_id"`
	Snapshots  []model.StatusSnapshot `json:"snapshots"`
}

// AlertsResponse wraps pending alerts, most severe first
type AlertsResponse struct {
	Alerts []model.StatusAlert `json:"alerts"`
	Total  int                 `json:"total"`
}

// AckResponse reports an acknowledgement. Changed is false when the alert was already acknowledged.
type AckResponse struct {
	AlertID      string `json:"alert_id"`
	Acknowledged bool   `json:"acknowledged"`
	Changed      bool   `json:"changed"`
}

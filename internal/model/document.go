package model

import (
	"strings"
	"time"
)

// Document is the unified input record handed to every analysis component.
// It is owned by the ingestion layer and never mutated here.
type Document struct {
	ID           string      `json:"id" yaml:"id"`
	Title        string      `json:"title,omitempty" yaml:"title,omitempty"`
	Content      string      `json:"content,omitempty" yaml:"content,omitempty"`
	ContentType  ContentType `json:"content_type" yaml:"content_type"`
	Citations    []string    `json:"citations,omitempty" yaml:"citations,omitempty"`       // Raw citation strings
	Court        string      `json:"court,omitempty" yaml:"court,omitempty"`               // e.g. "9th Cir."
	Jurisdiction string      `json:"jurisdiction,omitempty" yaml:"jurisdiction,omitempty"` // e.g. "federal", "California"
	DecisionDate *time.Time  `json:"decision_date,omitempty" yaml:"decision_date,omitempty"`
}

// PrimaryCitation returns the first raw citation, which identifies the document itself
func (d Document) PrimaryCitation() string {
	for _, c := range d.Citations {
		if s := strings.TrimSpace(c); s != "" {
			return s
		}
	}
	return ""
}

// DisplayName returns the title, falling back to the primary citation and then the id
func (d Document) DisplayName() string {
	if d.Title != "" {
		return d.Title
	}
	if c := d.PrimaryCitation(); c != "" {
		return c
	}
	return d.ID
}

// Ref returns the lookup identity of the document
func (d Document) Ref() DocumentRef {
	return DocumentRef{ID: d.ID, Name: d.Title, Citation: d.PrimaryCitation()}
}

// ContentType classifies a legal document
type ContentType string

const (
	ContentCaseLaw        ContentType = "case_law"
	ContentStatute        ContentType = "statute"
	ContentRegulation     ContentType = "regulation"
	ContentConstitutional ContentType = "constitutional"
	ContentLawReview      ContentType = "law_review"
	ContentBrief          ContentType = "brief"
	ContentPracticeGuide  ContentType = "practice_guide"
	ContentTreatise       ContentType = "treatise"
)

// DocumentRef identifies a document to the citation index
type DocumentRef struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Citation string `json:"citation,omitempty"`
}

// CitationRecord is one row returned by the citation index: a document that
// cites (or is cited by) the queried document.
type CitationRecord struct {
	ID           string      `json:"id" yaml:"id"`
	Name         string      `json:"name" yaml:"name"`
	Citation     string      `json:"citation,omitempty" yaml:"citation,omitempty"`
	Court        string      `json:"court,omitempty" yaml:"court,omitempty"`
	Jurisdiction string      `json:"jurisdiction,omitempty" yaml:"jurisdiction,omitempty"`
	Date         string      `json:"date,omitempty" yaml:"date,omitempty"` // YYYY-MM-DD or RFC 3339; parsed leniently
	ContentType  ContentType `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	Page         string      `json:"page,omitempty" yaml:"page,omitempty"`
	Headnote     string      `json:"headnote,omitempty" yaml:"headnote,omitempty"`
	RelevantText string      `json:"relevant_text,omitempty" yaml:"relevant_text,omitempty"`
	Summary      string      `json:"summary,omitempty" yaml:"summary,omitempty"` // Document text excerpt, used for practice areas
	Confidence   float64     `json:"confidence,omitempty" yaml:"confidence,omitempty"`
}

// DefaultRecordConfidence is applied when the index does not report a confidence
const DefaultRecordConfidence = 0.5

// EffectiveConfidence returns the record confidence clamped to [0,1], defaulting when unset
func (r CitationRecord) EffectiveConfidence() float64 {
	if r.Confidence <= 0 {
		return DefaultRecordConfidence
	}
	if r.Confidence > 1 {
		return 1
	}
	return r.Confidence
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01",
	"2006",
	"January 2, 2006",
	"Jan. 2, 2006",
}

// ParseDate parses the loose date formats the citation index emits.
// An empty string yields (nil, nil).
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			t = t.UTC()
			return &t, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

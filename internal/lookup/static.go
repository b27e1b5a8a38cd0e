package lookup

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/ppiankov/shepard/internal/model"
	"gopkg.in/yaml.v3"
)

// Universe is the on-disk form of a fixed citation universe
type Universe struct {
	Documents []UniverseDocument `yaml:"documents"`
	Citations []Citation         `yaml:"citations"`
}

// UniverseDocument is one document of a static universe
type UniverseDocument struct {
	ID           string            `yaml:"id"`
	Title        string            `yaml:"title"`
	Citation     string            `yaml:"citation"`
	ContentType  model.ContentType `yaml:"content_type"`
	Court        string            `yaml:"court"`
	Jurisdiction string            `yaml:"jurisdiction"`
	Date         string            `yaml:"date"`
	Summary      string            `yaml:"summary"` // Opening text, used for practice areas and concepts
	History      *UniverseHistory  `yaml:"history,omitempty"`
}

// UniverseHistory is the procedural history of a universe document
type UniverseHistory struct {
	Prior            []UniverseHistoryEntry `yaml:"prior"`
	Subsequent       []UniverseHistoryEntry `yaml:"subsequent"`
	Related          []string               `yaml:"related"`
	FinalDisposition string                 `yaml:"final_disposition"`
}

// UniverseHistoryEntry is one procedural step
type UniverseHistoryEntry struct {
	CaseID      string `yaml:"case_id"`
	Court       string `yaml:"court"`
	Citation    string `yaml:"citation"`
	Date        string `yaml:"date"`
	Disposition string `yaml:"disposition"`
}

// Citation is a directed edge: From cites To
type Citation struct {
	From       string  `yaml:"from"`
	To         string  `yaml:"to"`
	Page       string  `yaml:"page,omitempty"`
	Headnote   string  `yaml:"headnote,omitempty"`
	Text       string  `yaml:"text,omitempty"` // Passage of From discussing To
	Confidence float64 `yaml:"confidence,omitempty"`
}

// StaticIndex serves a fixed citation universe from memory.
// Records are returned in universe order, so results are deterministic.
type StaticIndex struct {
	mu         sync.RWMutex
	docs       map[string]UniverseDocument
	byCitation map[string]string
	edges      []Citation
}

// NewStaticIndex creates an empty static index
func NewStaticIndex() *StaticIndex {
	return &StaticIndex{
		docs:       make(map[string]UniverseDocument),
		byCitation: make(map[string]string),
	}
}

// LoadStaticIndex reads a YAML universe file
func LoadStaticIndex(path string) (*StaticIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read universe: %w", err)
	}
	var u Universe
	if err := yaml.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("parse universe %s: %w", path, err)
	}
	idx := NewStaticIndex()
	if err := idx.Load(u); err != nil {
		return nil, fmt.Errorf("load universe %s: %w", path, err)
	}
	return idx, nil
}

// Load adds every document and citation of u
func (s *StaticIndex) Load(u Universe) error {
	for _, d := range u.Documents {
		if err := s.AddDocument(d); err != nil {
			return err
		}
	}
	for _, c := range u.Citations {
		if err := s.AddCitation(c); err != nil {
			return err
		}
	}
	return nil
}

// AddDocument registers a document, replacing any previous one with the same id
func (s *StaticIndex) AddDocument(d UniverseDocument) error {
	if d.ID == "" {
		return fmt.Errorf("document %q: id is required", d.Title)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[d.ID] = d
	if d.Citation != "" {
		s.byCitation[citationKey(d.Citation)] = d.ID
	}
	return nil
}

// AddCitation registers a citation edge
func (s *StaticIndex) AddCitation(c Citation) error {
	if c.From == "" || c.To == "" {
		return fmt.Errorf("citation %q -> %q: both ends are required", c.From, c.To)
	}
	if c.From == c.To {
		return fmt.Errorf("citation %q cites itself", c.From)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges = append(s.edges, c)
	return nil
}

// FindCiting returns the documents citing ref
func (s *StaticIndex) FindCiting(ctx context.Context, ref model.DocumentRef) ([]model.CitationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UnavailableError{Index: "static", Op: "citing", Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id := s.resolve(ref)
	records := []model.CitationRecord{}
	for _, e := range s.edges {
		if e.To == id {
			records = append(records, s.record(e.From, e))
		}
	}
	return records, nil
}

// FindCited returns the documents ref cites
func (s *StaticIndex) FindCited(ctx context.Context, ref model.DocumentRef) ([]model.CitationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UnavailableError{Index: "static", Op: "cited", Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id := s.resolve(ref)
	records := []model.CitationRecord{}
	for _, e := range s.edges {
		if e.From == id {
			records = append(records, s.record(e.To, e))
		}
	}
	return records, nil
}

// History returns the recorded procedural history of ref, or nil when none is recorded
func (s *StaticIndex) History(ctx context.Context, ref model.DocumentRef) (*model.CaseHistory, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UnavailableError{Index: "static", Op: "history", Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.docs[s.resolve(ref)]
	if !ok || d.History == nil {
		return nil, nil
	}
	h := &model.CaseHistory{
		PriorHistory:      historyEntries(d.History.Prior),
		SubsequentHistory: historyEntries(d.History.Subsequent),
		RelatedCases:      append([]string{}, d.History.Related...),
		FinalDisposition:  d.History.FinalDisposition,
	}
	return h, nil
}

// Document returns the document with the given id
func (s *StaticIndex) Document(ctx context.Context, id string) (model.Document, error) {
	if err := ctx.Err(); err != nil {
		return model.Document{}, &UnavailableError{Index: "static", Op: "document", Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.docs[id]; !ok {
		return model.Document{}, fmt.Errorf("%q: %w", id, ErrDocumentNotFound)
	}
	return RecordDocument(s.record(id, Citation{})), nil
}

// Documents returns all document ids, sorted
func (s *StaticIndex) Documents() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// resolve maps a ref to a document id, falling back to its citation. Caller holds the lock.
func (s *StaticIndex) resolve(ref model.DocumentRef) string {
	if _, ok := s.docs[ref.ID]; ok || ref.Citation == "" {
		return ref.ID
	}
	if id, ok := s.byCitation[citationKey(ref.Citation)]; ok {
		return id
	}
	return ref.ID
}

// record builds the index record for document id as seen across edge e. Caller holds the lock.
func (s *StaticIndex) record(id string, e Citation) model.CitationRecord {
	r := model.CitationRecord{
		ID:           id,
		Name:         id,
		Page:         e.Page,
		Headnote:     e.Headnote,
		RelevantText: e.Text,
		Confidence:   e.Confidence,
	}
	if d, ok := s.docs[id]; ok {
		r.Name = d.Title
		r.Citation = d.Citation
		r.Court = d.Court
		r.Jurisdiction = d.Jurisdiction
		r.Date = d.Date
		r.ContentType = d.ContentType
		r.Summary = d.Summary
	}
	return r
}

func historyEntries(in []UniverseHistoryEntry) []model.HistoryEntry {
	out := make([]model.HistoryEntry, 0, len(in))
	for _, e := range in {
		h := model.HistoryEntry{
			CaseID:      e.CaseID,
			Court:       e.Court,
			Citation:    e.Citation,
			Disposition: e.Disposition,
		}
		if t, err := model.ParseDate(e.Date); err == nil {
			h.Date = t
		}
		if sig := model.TreatmentSignal(strings.ToLower(e.Disposition)); sig.IsValid() {
			h.Signal = sig
		}
		out = append(out, h)
	}
	return out
}

func citationKey(c string) string {
	return strings.ToLower(strings.Join(strings.Fields(c), " "))
}

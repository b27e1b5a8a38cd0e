// Package lookup is the seam between the analysis core and an external citation index.
package lookup

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/shepard/internal/model"
)

var (
	// ErrIndexUnavailable means the index could not be searched. It is never
	// returned for a search that simply found no citing documents.
	ErrIndexUnavailable = errors.New("citation index unavailable")

	// ErrDocumentNotFound means the index has no record of the requested document
	ErrDocumentNotFound = errors.New("document not found in citation index")
)

// UnavailableError describes a failed index call. errors.Is(err, ErrIndexUnavailable) holds for it.
type UnavailableError struct {
	Index string // Backend name, e.g. "http"
	Op    string // "citing", "cited", "history", "document"
	Err   error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s index %s: %v: %v", e.Index, e.Op, ErrIndexUnavailable, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrIndexUnavailable }

// Index finds the documents citing, and cited by, a document.
// An empty result with a nil error means the index knows of no such documents.
type Index interface {
	FindCiting(ctx context.Context, ref model.DocumentRef) ([]model.CitationRecord, error)
	FindCited(ctx context.Context, ref model.DocumentRef) ([]model.CitationRecord, error)
}

// HistoryIndex is implemented by indexes that know a case's procedural history
type HistoryIndex interface {
	History(ctx context.Context, ref model.DocumentRef) (*model.CaseHistory, error)
}

// DocumentSource is implemented by indexes that can return full documents by id
type DocumentSource interface {
	Document(ctx context.Context, id string) (model.Document, error)
}

// RecordDocument converts an index record into the document it describes
func RecordDocument(r model.CitationRecord) model.Document {
	doc := model.Document{
		ID:           r.ID,
		Title:        r.Name,
		Content:      r.Summary,
		ContentType:  r.ContentType,
		Court:        r.Court,
		Jurisdiction: r.Jurisdiction,
	}
	if r.Citation != "" {
		doc.Citations = []string{r.Citation}
	}
	if t, err := model.ParseDate(r.Date); err == nil {
		doc.DecisionDate = t
	}
	return doc
}

// AsUnavailable wraps err as an UnavailableError unless it already is one.
// Indexes that return plain errors are treated as unreachable, never as empty.
func AsUnavailable(index, op string, err error) error {
	if err == nil || errors.Is(err, ErrIndexUnavailable) {
		return err
	}
	return &UnavailableError{Index: index, Op: op, Err: err}
}

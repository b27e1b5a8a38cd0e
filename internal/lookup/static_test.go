package lookup

import (
	"context"
	"errors"
	"testing"

	"github.com/ppiankov/shepard/internal/model"
)

func loadTestUniverse(t *testing.T) *StaticIndex {
	t.Helper()
	idx, err := LoadStaticIndex("testdata/universe.yaml")
	if err != nil {
		t.Fatalf("LoadStaticIndex failed: %v", err)
	}
	return idx
}

func TestStaticIndex_FindCiting(t *testing.T) {
	idx := loadTestUniverse(t)

	records, err := idx.FindCiting(context.Background(), model.DocumentRef{ID: "smith-v-jones"})
	if err != nil {
		t.Fatalf("FindCiting failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 citing records, got %d", len(records))
	}

	first := records[0]
	if first.ID != "doe-v-roe" || first.Name != "Doe v. Roe" {
		t.Errorf("unexpected first record: %+v", first)
	}
	if first.Page != "460" || first.Headnote != "HN1" || first.Confidence != 0.9 {
		t.Errorf("edge fields not carried: %+v", first)
	}
	if first.Court != "9th Cir." || first.Date != "2023-05-10" {
		t.Errorf("document fields not carried: %+v", first)
	}
	if records[1].ID != "brown-v-green" {
		t.Errorf("expected universe order, got %s second", records[1].ID)
	}
}

func TestStaticIndex_FindCited(t *testing.T) {
	idx := loadTestUniverse(t)

	records, err := idx.FindCited(context.Background(), model.DocumentRef{ID: "brown-v-green"})
	if err != nil {
		t.Fatalf("FindCited failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 cited records, got %d", len(records))
	}
	if records[0].ID != "smith-v-jones" || records[1].ID != "doe-v-roe" {
		t.Errorf("unexpected cited order: %s, %s", records[0].ID, records[1].ID)
	}
}

func TestStaticIndex_ResolveByCitation(t *testing.T) {
	idx := loadTestUniverse(t)

	records, err := idx.FindCiting(context.Background(), model.DocumentRef{Citation: "123  f.3d 456"})
	if err != nil {
		t.Fatalf("FindCiting failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected lookup by citation to find 2 records, got %d", len(records))
	}
}

func TestStaticIndex_ZeroResultsIsNotAnError(t *testing.T) {
	idx := loadTestUniverse(t)

	records, err := idx.FindCiting(context.Background(), model.DocumentRef{ID: "unknown"})
	if err != nil {
		t.Fatalf("expected no error for unknown document, got %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", records)
	}
}

func TestStaticIndex_CancelledIsUnavailable(t *testing.T) {
	idx := loadTestUniverse(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.FindCiting(ctx, model.DocumentRef{ID: "smith-v-jones"})
	if !errors.Is(err, ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected wrapped context.Canceled, got %v", err)
	}
}

func TestStaticIndex_History(t *testing.T) {
	idx := loadTestUniverse(t)

	h, err := idx.History(context.Background(), model.DocumentRef{ID: "smith-v-jones"})
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if h == nil {
		t.Fatal("expected history")
	}
	if len(h.PriorHistory) != 1 {
		t.Fatalf("expected 1 prior entry, got %d", len(h.PriorHistory))
	}
	prior := h.PriorHistory[0]
	if prior.Signal != model.SignalAffirmed {
		t.Errorf("expected affirmed signal, got %q", prior.Signal)
	}
	if prior.Date == nil || prior.Date.Year() != 2020 {
		t.Errorf("expected 2020 date, got %v", prior.Date)
	}
	if h.FinalDisposition != "affirmed" || len(h.RelatedCases) != 1 {
		t.Errorf("unexpected history: %+v", h)
	}

	none, err := idx.History(context.Background(), model.DocumentRef{ID: "doe-v-roe"})
	if err != nil || none != nil {
		t.Errorf("expected nil history without error, got %+v, %v", none, err)
	}
}

func TestStaticIndex_Document(t *testing.T) {
	idx := loadTestUniverse(t)

	doc, err := idx.Document(context.Background(), "brown-v-green")
	if err != nil {
		t.Fatalf("Document failed: %v", err)
	}
	if doc.Title != "Brown v. Green" || doc.PrimaryCitation() != "50 Cal. 5th 100" {
		t.Errorf("unexpected document: %+v", doc)
	}
	if doc.DecisionDate == nil || doc.DecisionDate.Year() != 2024 {
		t.Errorf("expected 2024 decision date, got %v", doc.DecisionDate)
	}

	_, err = idx.Document(context.Background(), "missing")
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestStaticIndex_AddCitationRejectsBadEdges(t *testing.T) {
	idx := NewStaticIndex()

	tests := []struct {
		name string
		c    Citation
	}{
		{"missing target", Citation{From: "a"}},
		{"missing source", Citation{To: "a"}},
		{"self citation", Citation{From: "a", To: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := idx.AddCitation(tt.c); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestStaticIndex_Documents(t *testing.T) {
	ids := loadTestUniverse(t).Documents()
	expected := []string{"brown-v-green", "doe-v-roe", "smith-v-jones"}
	if len(ids) != len(expected) {
		t.Fatalf("expected %d ids, got %d", len(expected), len(ids))
	}
	for i := range expected {
		if ids[i] != expected[i] {
			t.Errorf("index %d: expected %s, got %s", i, expected[i], ids[i])
		}
	}
}

func TestLoadStaticIndex_Missing(t *testing.T) {
	if _, err := LoadStaticIndex("testdata/nope.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestNew(t *testing.T) {
	idx, err := New(model.IndexConfig{Provider: "static", StaticPath: "testdata/universe.yaml"}, nil)
	if err != nil {
		t.Fatalf("New static failed: %v", err)
	}
	if _, ok := idx.(*StaticIndex); !ok {
		t.Errorf("expected *StaticIndex, got %T", idx)
	}

	idx, err = New(model.IndexConfig{Provider: "http", BaseURL: "http://localhost:1"}, nil)
	if err != nil {
		t.Fatalf("New http failed: %v", err)
	}
	if _, ok := idx.(*HTTPIndex); !ok {
		t.Errorf("expected *HTTPIndex, got %T", idx)
	}

	if _, err := New(model.IndexConfig{Provider: "westlaw"}, nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}

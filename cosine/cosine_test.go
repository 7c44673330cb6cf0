package cosine

import (
	"context"
	"testing"

	"github.com/daac-tools/find-simdoc/internal/feature"
	"github.com/daac-tools/find-simdoc/internal/otelinit"
)

func seedPtr(v uint64) *uint64 { return &v }

func TestBuildAndSearchFindsNearDuplicates(t *testing.T) {
	docs := []string{
		"the quick brown fox jumps over the lazy dog",
		"the quick brown fox jumps over the lazy cat",
		"something completely and utterly unrelated here",
	}
	s, err := New[uint32](3, nil, seedPtr(42))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.BuildSketches(context.Background(), docs, 10, 1, otelinit.Metrics{}); err != nil {
		t.Fatalf("BuildSketches: %v", err)
	}
	if s.IsEmpty() || s.Len() != 3 {
		t.Fatalf("expected 3 sketches, got %d", s.Len())
	}
	pairs, err := s.SearchSimilarPairs(context.Background(), 1.0)
	if err != nil {
		t.Fatalf("SearchSimilarPairs: %v", err)
	}
	found01 := false
	for _, p := range pairs {
		if p.I == 0 && p.J == 1 {
			found01 = true
		}
	}
	if !found01 {
		t.Fatalf("expected near-duplicate pair (0,1) to be found at r=1.0, got %+v", pairs)
	}
}

func TestWithTFAndIDFBuild(t *testing.T) {
	docs := []string{
		"alpha beta gamma delta",
		"alpha beta epsilon zeta",
		"totally different content entirely",
	}
	s, err := New[uint16](2, nil, seedPtr(11))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s = s.WithTF(feature.TFStandard)
	s, err = s.WithIDF(feature.IDFSmooth, docs)
	if err != nil {
		t.Fatalf("WithIDF: %v", err)
	}
	if err := s.BuildSketches(context.Background(), docs, 8, 1, otelinit.Metrics{}); err != nil {
		t.Fatalf("BuildSketches: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 sketches, got %d", s.Len())
	}
}

func TestWithIDFFailsOnEmptyCorpusForNonUnary(t *testing.T) {
	s, _ := New[uint8](1, nil, seedPtr(1))
	if _, err := s.WithIDF(feature.IDFStandard, nil); err == nil {
		t.Fatalf("expected error building IDF from empty corpus")
	}
}

func TestWithIDFUnaryAllowsEmptyCorpus(t *testing.T) {
	s, _ := New[uint8](1, nil, seedPtr(1))
	if _, err := s.WithIDF(feature.IDFUnary, nil); err != nil {
		t.Fatalf("unary IDF should not require a corpus: %v", err)
	}
}

func TestBuildSketchesRejectsEmptyDocument(t *testing.T) {
	s, _ := New[uint8](1, nil, seedPtr(1))
	if err := s.BuildSketches(context.Background(), []string{""}, 4, 1, otelinit.Metrics{}); err == nil {
		t.Fatalf("expected ShortInput error for empty document")
	}
}

func TestBuildSketchesRejectsEmptyDocumentWithWindowSizeAbove1(t *testing.T) {
	// window_size >= 2 pads an empty document with window_size-1 empty
	// sentinel tokens on each side, so the shingle iterator still yields
	// windows (two, for window_size 3); the emptiness check must not rely on post-tokenization
	// feature count.
	s, _ := New[uint8](3, nil, seedPtr(1))
	if err := s.BuildSketches(context.Background(), []string{""}, 4, 1, otelinit.Metrics{}); err == nil {
		t.Fatalf("expected ShortInput error for empty document with window_size > 1")
	}
}

func TestConcurrentBuildMatchesSerialBuild(t *testing.T) {
	docs := []string{"one two three", "four five six", "one two four", "seven eight nine"}
	serial, _ := New[uint16](2, nil, seedPtr(3))
	_ = serial.BuildSketches(context.Background(), docs, 8, 1, otelinit.Metrics{})
	serialPairs, _ := serial.SearchSimilarPairs(context.Background(), 1.0)

	parallel, _ := New[uint16](2, nil, seedPtr(3))
	_ = parallel.BuildSketches(context.Background(), docs, 8, 4, otelinit.Metrics{})
	parallelPairs, _ := parallel.SearchSimilarPairs(context.Background(), 1.0)

	if len(serialPairs) != len(parallelPairs) {
		t.Fatalf("serial found %d pairs, parallel found %d", len(serialPairs), len(parallelPairs))
	}
	for i := range serialPairs {
		if serialPairs[i] != parallelPairs[i] {
			t.Fatalf("pair %d: serial %+v, parallel %+v", i, serialPairs[i], parallelPairs[i])
		}
	}
}

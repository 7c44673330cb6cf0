// Package cosine implements the Cosine-similarity searcher façade:
// tokenizer -> weighted features -> optional TF -> optional IDF ->
// SimHash -> chunked joiner. Unlike Jaccard, SimHash's collision rate
// is a direct (non-doubled) estimator of angular distance, so no
// radius correction is applied on search.
package cosine

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/daac-tools/find-simdoc/internal/feature"
	"github.com/daac-tools/find-simdoc/internal/hll"
	"github.com/daac-tools/find-simdoc/internal/join"
	"github.com/daac-tools/find-simdoc/internal/lsh"
	"github.com/daac-tools/find-simdoc/internal/otelinit"
	"github.com/daac-tools/find-simdoc/internal/resilience"
	"github.com/daac-tools/find-simdoc/internal/simerr"
	"github.com/daac-tools/find-simdoc/sketch"
)

// Searcher composes the tokenizer, optional TF/IDF reweighting, SimHash
// encoder and chunked joiner behind a build -> search flow.
type Searcher[T sketch.Word] struct {
	extractor   *feature.Extractor
	seed        uint64
	joiner      *join.ChunkedJoiner[T]
	distinct    *hll.Sketch
	concurrency int

	tfMode feature.TFMode
	useTF  bool
	idf    *feature.IDFModel
}

// New constructs a Searcher. If seed is nil, a random seed is drawn.
// windowSize must be >= 1.
func New[T sketch.Word](windowSize int, delimiter *byte, seed *uint64) (*Searcher[T], error) {
	s, err := resolveSeed(seed)
	if err != nil {
		return nil, err
	}
	ext, err := feature.NewExtractor(feature.Config{WindowSize: windowSize, Delimiter: delimiter, Seed: s})
	if err != nil {
		return nil, err
	}
	return &Searcher[T]{extractor: ext, seed: s, distinct: hll.New()}, nil
}

// WithTF enables term-frequency reweighting for every document hashed
// from this point on.
func (s *Searcher[T]) WithTF(mode feature.TFMode) *Searcher[T] {
	s.tfMode = mode
	s.useTF = true
	return s
}

// WithIDF scans documents once to build a corpus-wide IDF model, and
// enables IDF reweighting for every document hashed from this point on.
// It fails if documents is empty and mode is not IDFUnary.
func (s *Searcher[T]) WithIDF(mode feature.IDFMode, documents []string) (*Searcher[T], error) {
	model, err := s.extractor.BuildIDF(mode, documents)
	if err != nil {
		return nil, err
	}
	s.idf = model
	return s, nil
}

// BuildSketches tokenizes every document, reweights it per the configured
// TF/IDF modes, hashes it into a B-chunk SimHash sketch and appends it to
// a fresh joiner. concurrency <= 1 runs serially; otherwise documents are
// processed by a bounded worker pool and results are written back into
// document order before appending, so joiner column order always matches
// input order. metrics is optional (its zero value disables all
// instrumentation, since nil counters are no-ops).
func (s *Searcher[T]) BuildSketches(ctx context.Context, documents []string, numChunks, concurrency int, metrics otelinit.Metrics) error {
	ctx, end := otelinit.WithSpan(ctx, "cosine.build_sketches",
		attribute.Int("documents", len(documents)),
		attribute.Int("num_chunks", numChunks),
		attribute.Int("concurrency", concurrency),
	)
	defer end()
	joiner, err := join.New[T](numChunks)
	if err != nil {
		return err
	}
	joiner.SetCandidateCounter(metrics.CandidatePairs)
	sketches := make([][]T, len(documents))
	errs := make([]error, len(documents))

	hashOne := func(doc string) ([]T, error) {
		if doc == "" {
			return nil, simerr.ShortInput("document is empty")
		}
		feats := s.extractor.ExtractWeighted(doc)
		for _, f := range feats {
			s.distinct.Add(f.ID)
		}
		if s.useTF {
			feats = feature.ApplyTF(s.tfMode, feats)
		}
		if s.idf != nil {
			feats = s.idf.Apply(feats)
		}
		hasher := lsh.NewSimHasher[T](s.seed)
		values := make([]T, numChunks)
		for c := 0; c < numChunks; c++ {
			values[c] = hasher.Next(feats)
		}
		return values, nil
	}

	if concurrency <= 1 {
		for i, doc := range documents {
			sketches[i], errs[i] = hashOne(doc)
		}
	} else {
		limiter := resilience.NewRateLimiter(int64(4*concurrency), float64(concurrency)*1000, metrics.RateLimiterDrops)
		idxCh := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < concurrency; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range idxCh {
					for !limiter.Allow() {
						time.Sleep(time.Millisecond)
					}
					sketches[i], errs[i] = hashOne(documents[i])
				}
			}()
		}
		for i := range documents {
			idxCh <- i
		}
		close(idxCh)
		wg.Wait()
	}

	for i, err := range errs {
		if err != nil {
			return err
		}
		if err := joiner.Add(sketches[i]); err != nil {
			return err
		}
	}
	s.joiner = joiner
	if concurrency > 0 {
		s.concurrency = concurrency
	} else {
		s.concurrency = 1
	}
	return nil
}

// SearchSimilarPairs returns every (i,j,d) with estimated cosine distance
// d <= r. SimHash's bit collision rate already estimates angular distance
// directly, so the radius is passed through unchanged. The per-column
// multi-sort passes run across the same concurrency budget BuildSketches
// was given.
func (s *Searcher[T]) SearchSimilarPairs(ctx context.Context, r float64) ([]join.Pair, error) {
	ctx, end := otelinit.WithSpan(ctx, "cosine.search_similar_pairs", attribute.Float64("radius", r))
	defer end()
	if r < 0 || r > 1 {
		return nil, simerr.ArgumentOutOfRange("radius %f outside [0,1]", r)
	}
	pairs, err := s.joiner.SimilarPairsConcurrent(r, s.concurrency)
	if err != nil {
		return nil, err
	}
	otelinit.AddSpanAttributes(ctx, attribute.Int("pairs_found", len(pairs)))
	return pairs, nil
}

// Len returns the number of sketches built so far.
func (s *Searcher[T]) Len() int {
	if s.joiner == nil {
		return 0
	}
	return s.joiner.NumSketches()
}

// IsEmpty reports whether no sketches have been built.
func (s *Searcher[T]) IsEmpty() bool { return s.Len() == 0 }

// MemoryInBytes estimates the joiner's column storage footprint.
func (s *Searcher[T]) MemoryInBytes() int {
	if s.joiner == nil {
		return 0
	}
	return s.joiner.MemoryInBytes()
}

// ApproxDistinctFeatures returns the HyperLogLog-estimated number of
// distinct shingle features seen across the built corpus.
func (s *Searcher[T]) ApproxDistinctFeatures() uint64 { return s.distinct.Count() }

func resolveSeed(seed *uint64) (uint64, error) {
	if seed != nil {
		return *seed, nil
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

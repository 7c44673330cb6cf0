// Package jaccard implements the Jaccard-similarity searcher façade:
// tokenizer -> feature ID set -> 1-bit minwise hashing -> chunked joiner,
// with the distance correction 1-bit minwise hashing requires.
package jaccard

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

// Searcher composes the tokenizer, MinHash encoder and chunked joiner
// behind a build -> search flow.
type Searcher[T sketch.Word] struct {
	extractor   *feature.Extractor
	seed        uint64
	joiner      *join.ChunkedJoiner[T]
	distinct    *hll.Sketch
	concurrency int
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

// BuildSketches tokenizes every document, hashes it into a B-chunk sketch
// and appends it to a fresh joiner. concurrency <= 1 runs serially;
// otherwise documents are processed by a bounded worker pool and results
// are written back into document order before appending, so joiner column
// order always matches input order. metrics is optional (its zero value
// disables all instrumentation, since nil counters are no-ops).
func (s *Searcher[T]) BuildSketches(ctx context.Context, documents []string, numChunks, concurrency int, metrics otelinit.Metrics) error {
	ctx, end := otelinit.WithSpan(ctx, "jaccard.build_sketches",
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
		ids := s.extractor.ExtractIDs(doc)
		for _, id := range ids {
			s.distinct.Add(id)
		}
		hasher := lsh.NewMinHasher[T](s.seed)
		values := make([]T, numChunks)
		for c := 0; c < numChunks; c++ {
			values[c] = hasher.Next(ids)
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

// SearchSimilarPairs returns every (i,j,d) with corrected Jaccard distance
// d <= r. 1-bit minwise hashing collides at rate (1+J)/2, so the joiner is
// queried at r/2 and reported distances are doubled; reversing this order
// breaks the correction. The per-column multi-sort passes run across the
// same concurrency budget BuildSketches was given.
func (s *Searcher[T]) SearchSimilarPairs(ctx context.Context, r float64) ([]join.Pair, error) {
	ctx, end := otelinit.WithSpan(ctx, "jaccard.search_similar_pairs", attribute.Float64("radius", r))
	defer end()
	if r < 0 || r > 1 {
		return nil, simerr.ArgumentOutOfRange("radius %f outside [0,1]", r)
	}
	pairs, err := s.joiner.SimilarPairsConcurrent(r/2, s.concurrency)
	if err != nil {
		return nil, err
	}
	out := make([]join.Pair, len(pairs))
	for i, p := range pairs {
		out[i] = join.Pair{I: p.I, J: p.J, Dist: p.Dist * 2}
	}
	otelinit.AddSpanAttributes(ctx, attribute.Int("pairs_found", len(out)))
	return out, nil
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

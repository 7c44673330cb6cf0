// Command find-simdoc finds all pairs of near-duplicate documents within
// a similarity radius, under either Jaccard or Cosine similarity,
// without ever computing the full N^2 pairwise comparison.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/daac-tools/find-simdoc/cosine"
	"github.com/daac-tools/find-simdoc/internal/corelog"
	"github.com/daac-tools/find-simdoc/internal/feature"
	"github.com/daac-tools/find-simdoc/internal/join"
	"github.com/daac-tools/find-simdoc/internal/otelinit"
	"github.com/daac-tools/find-simdoc/internal/resilience"
	"github.com/daac-tools/find-simdoc/internal/runlog"
	"github.com/daac-tools/find-simdoc/jaccard"
)

type config struct {
	input       string
	radius      float64
	metric      string
	windowSize  int
	numChunks   int
	seed        uint64
	hasSeed     bool
	delimiter   string
	tfMode      string
	idfMode     string
	concurrency int
	auditPath   string
	verbose     bool
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg := parseFlags()

	logger := corelog.Init("find-simdoc")
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTrace := otelinit.InitTracer(ctx, "find-simdoc")
	shutdownMetrics, metrics := otelinit.InitMetrics(ctx, "find-simdoc")
	defer func() {
		otelinit.Flush(context.Background(), shutdownTrace)
		_ = shutdownMetrics(context.Background())
	}()

	audit := runlog.New()
	if cfg.auditPath != "" {
		defer func() {
			if err := audit.Flush(cfg.auditPath); err != nil {
				logger.Warn("failed to flush audit log", "error", err)
			}
		}()
	}

	start := time.Now()
	documents, err := resilience.Retry(ctx, 3, 50*time.Millisecond, func(attempt int, attemptErr error) {
		if attemptErr != nil {
			audit.Append("ingest_retry", fmt.Sprintf("attempt=%d path=%s error=%v", attempt, cfg.input, attemptErr), 0)
			logger.Warn("retrying document read", "attempt", attempt, "path", cfg.input, "error", attemptErr)
		}
	}, func() ([]string, error) {
		return readDocuments(cfg.input)
	})
	if err != nil {
		logger.Error("failed to read documents", "error", err, "path", cfg.input)
		return 1
	}
	audit.Append("ingest", fmt.Sprintf("documents=%d path=%s", len(documents), cfg.input), time.Since(start))
	metrics.DocumentsIngested.Add(ctx, int64(len(documents)))

	var delim *byte
	if cfg.delimiter != "" {
		b := cfg.delimiter[0]
		delim = &b
	}
	var seed *uint64
	if cfg.hasSeed {
		seed = &cfg.seed
	}

	pairs, err := buildAndSearch(ctx, cfg, documents, delim, seed, audit, metrics, logger)
	if err != nil {
		logger.Error("search failed", "error", err)
		return 1
	}

	if err := writeCSV(os.Stdout, pairs); err != nil {
		logger.Error("failed to write output", "error", err)
		return 1
	}
	metrics.PairsEmitted.Add(ctx, int64(len(pairs)))

	if cfg.verbose {
		for _, e := range audit.Entries() {
			logger.Info("run stage", "stage", e.Stage, "detail", e.Detail, "duration", e.Duration)
		}
	}
	return 0
}

func buildAndSearch(ctx context.Context, cfg config, documents []string, delim *byte, seed *uint64, audit *runlog.Log, metrics otelinit.Metrics, logger *slog.Logger) ([]join.Pair, error) {
	switch cfg.metric {
	case "jaccard":
		s, err := jaccard.New[uint64](cfg.windowSize, delim, seed)
		if err != nil {
			return nil, err
		}
		buildStart := time.Now()
		if err := s.BuildSketches(ctx, documents, cfg.numChunks, cfg.concurrency, metrics); err != nil {
			return nil, err
		}
		audit.Append("build", fmt.Sprintf("chunks=%d concurrency=%d", cfg.numChunks, cfg.concurrency), time.Since(buildStart))
		if cfg.verbose {
			logger.Info("approx distinct features", "count", s.ApproxDistinctFeatures(), "memory_bytes", s.MemoryInBytes())
		}
		searchStart := time.Now()
		pairs, err := s.SearchSimilarPairs(ctx, cfg.radius)
		audit.Append("search", fmt.Sprintf("radius=%f pairs=%d", cfg.radius, len(pairs)), time.Since(searchStart))
		return pairs, err
	case "cosine":
		s, err := cosine.New[uint64](cfg.windowSize, delim, seed)
		if err != nil {
			return nil, err
		}
		if cfg.tfMode != "" {
			mode, err := feature.ParseTFMode(cfg.tfMode)
			if err != nil {
				return nil, err
			}
			s = s.WithTF(mode)
		}
		if cfg.idfMode != "" {
			mode, err := feature.ParseIDFMode(cfg.idfMode)
			if err != nil {
				return nil, err
			}
			s, err = s.WithIDF(mode, documents)
			if err != nil {
				return nil, err
			}
		}
		buildStart := time.Now()
		if err := s.BuildSketches(ctx, documents, cfg.numChunks, cfg.concurrency, metrics); err != nil {
			return nil, err
		}
		audit.Append("build", fmt.Sprintf("chunks=%d concurrency=%d", cfg.numChunks, cfg.concurrency), time.Since(buildStart))
		if cfg.verbose {
			logger.Info("approx distinct features", "count", s.ApproxDistinctFeatures(), "memory_bytes", s.MemoryInBytes())
		}
		searchStart := time.Now()
		pairs, err := s.SearchSimilarPairs(ctx, cfg.radius)
		audit.Append("search", fmt.Sprintf("radius=%f pairs=%d", cfg.radius, len(pairs)), time.Since(searchStart))
		return pairs, err
	default:
		return nil, fmt.Errorf("unknown metric %q, expected jaccard or cosine", cfg.metric)
	}
}

func parseFlags() config {
	var cfg config
	var seed uint64
	flag.StringVar(&cfg.input, "i", "", "input file, one document per line (required)")
	flag.Float64Var(&cfg.radius, "r", 0.1, "similarity radius in [0,1]")
	flag.StringVar(&cfg.delimiter, "d", "", "single-byte token delimiter; empty means char-based tokenization")
	flag.IntVar(&cfg.windowSize, "w", 1, "shingle window size")
	flag.IntVar(&cfg.numChunks, "c", 64, "number of sketch chunks")
	flag.Uint64Var(&seed, "s", 0, "PRNG seed (0 uses a random seed)")
	flag.StringVar(&cfg.metric, "m", "jaccard", "distance metric: jaccard or cosine")
	flag.StringVar(&cfg.tfMode, "T", "", "cosine only: TF mode (binary, standard, sublinear)")
	flag.StringVar(&cfg.idfMode, "I", "", "cosine only: IDF mode (unary, standard, smooth)")
	flag.IntVar(&cfg.concurrency, "j", 1, "sketch-building worker concurrency")
	flag.StringVar(&cfg.auditPath, "audit", "", "optional path to write a hash-chained JSONL run log")
	flag.BoolVar(&cfg.verbose, "v", false, "log diagnostics (approximate distinct feature count, run stages)")
	flag.Parse()

	if seed != 0 {
		cfg.seed = seed
		cfg.hasSeed = true
	}
	if cfg.input == "" {
		fmt.Fprintln(os.Stderr, "find-simdoc: -i is required")
		os.Exit(2)
	}
	return cfg
}

func readDocuments(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var docs []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			return nil, fmt.Errorf("input contains an empty line at document %d", len(docs))
		}
		docs = append(docs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func writeCSV(w *os.File, pairs []join.Pair) error {
	bw := bufio.NewWriter(w)
	defer bw.Flush()
	if _, err := bw.WriteString("i,j,dist\n"); err != nil {
		return err
	}
	for _, p := range pairs {
		if _, err := fmt.Fprintf(bw, "%d,%d,%f\n", p.I, p.J, p.Dist); err != nil {
			return err
		}
	}
	return nil
}

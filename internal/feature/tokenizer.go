// Package feature implements the shingling/feature-hashing pipeline shared
// by both searchers: tokenization, w-shingling, seeded feature hashing, and
// TF/IDF reweighting for the Cosine path.
package feature

import "strings"

// Config controls tokenization and feature hashing. WindowSize must be >=
// 1; a nil Delimiter means character-based tokenization (tokens are
// Unicode scalars), a non-nil one splits on that byte.
type Config struct {
	WindowSize int
	Delimiter  *byte
	Seed       uint64
}

// Tokenize splits doc into tokens per cfg, then pads the stream with
// WindowSize-1 empty sentinel tokens on each side so that shingles
// straddling a document boundary are still produced. In character mode no
// real token is empty, so boundary shingles are distinguishable from
// interior ones; in delimiter mode, adjacent, leading or trailing
// delimiters produce empty real tokens as well.
func Tokenize(doc string, cfg Config) []string {
	var toks []string
	if cfg.Delimiter == nil {
		toks = make([]string, 0, len(doc))
		for _, r := range doc {
			toks = append(toks, string(r))
		}
	} else {
		toks = strings.Split(doc, string(*cfg.Delimiter))
	}
	pad := cfg.WindowSize - 1
	if pad <= 0 {
		return toks
	}
	out := make([]string, 0, len(toks)+2*pad)
	for i := 0; i < pad; i++ {
		out = append(out, "")
	}
	out = append(out, toks...)
	for i := 0; i < pad; i++ {
		out = append(out, "")
	}
	return out
}

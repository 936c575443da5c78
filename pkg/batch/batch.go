// Package batch turns an arbitrary-length list of user-entered numbers into
// sequential, size-bounded operator lookups.
package batch

import (
	"context"
	"fmt"
	"strings"

	"github.com/sw33tLie/opcheck/pkg/operator"
	"github.com/sw33tLie/opcheck/pkg/phone"
	"github.com/sw33tLie/opcheck/pkg/results"
)

// DefaultChunkSize is both the default and the largest allowed chunk size.
const DefaultChunkSize = operator.MaxNumbersPerRequest

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Options tunes a Lookup run. The zero value is ready to use.
type Options struct {
	// ChunkSize caps the numbers per request; <= 0 or > DefaultChunkSize
	// means DefaultChunkSize.
	ChunkSize int
	Log       Logger // optional; nil = no logging

	// OnChunk is called after chunk i (0-based) of n has been answered with
	// got entries.
	OnChunk func(i, n, got int)
}

// ValidationError lists every token that failed validation.
type ValidationError struct {
	Invalid []phone.Invalid
}

func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Invalid))
	for _, inv := range e.Invalid {
		lines = append(lines, fmt.Sprintf("%q: %s", inv.Token, inv.Reason))
	}
	return "Invalid number format:\n" + strings.Join(lines, "\n")
}

// Lookup deduplicates and validates tokens, then resolves them chunk by chunk
// through f. Chunks are sent one after another, never concurrently. Any
// validation or lookup failure aborts the whole run and no partial results
// are returned.
func Lookup(ctx context.Context, f operator.Fetcher, tokens []string, opts Options) (*results.Set, error) {
	log := opts.Log
	if log == nil {
		log = nopLogger{}
	}
	size := opts.ChunkSize
	if size <= 0 || size > DefaultChunkSize {
		size = DefaultChunkSize
	}

	tokens = phone.Dedupe(tokens)
	if invalid := phone.ValidateAll(tokens); len(invalid) > 0 {
		return nil, &ValidationError{Invalid: invalid}
	}

	normalized := make([]string, len(tokens))
	for i, t := range tokens {
		normalized[i] = phone.Normalize(t)
	}

	chunks := Chunk(normalized, size)
	var all []operator.Entry
	for i, c := range chunks {
		log.Debugf("Looking up chunk %d/%d (%d numbers)", i+1, len(chunks), len(c))
		entries, err := f.FetchOperators(ctx, c)
		if err != nil {
			log.Warnf("Lookup of chunk %d/%d failed: %v", i+1, len(chunks), err)
			return nil, err
		}
		all = append(all, entries...)
		if opts.OnChunk != nil {
			opts.OnChunk(i, len(chunks), len(entries))
		}
	}

	log.Infof("Resolved %d entries for %d numbers in %d requests", len(all), len(tokens), len(chunks))
	return results.NewSet(tokens, all), nil
}

// Chunk splits items into consecutive slices of at most size elements.
func Chunk(items []string, size int) [][]string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var out [][]string
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}

// Package results holds the outcome of one lookup operation and derives the
// per-operator breakdown and the filtered view from it.
package results

import (
	"sort"

	"github.com/sw33tLie/opcheck/pkg/operator"
	"github.com/sw33tLie/opcheck/pkg/phone"
)

// UnknownOperator labels numbers the lookup returned nothing for.
const UnknownOperator = "Unknown Operator"

// Row is one input number paired with its resolved operator.
type Row struct {
	Raw        string
	Normalized string
	Operator   string
}

// OperatorCount is a single breakdown bucket.
type OperatorCount struct {
	Operator string
	Count    int
}

// Set is the ordered list of raw tokens of one lookup together with the
// entries the lookup returned. It is immutable once built.
type Set struct {
	tokens   []string
	entries  []operator.Entry
	byNumber map[string]string
}

// NewSet pairs tokens (already deduplicated, in input order) with entries.
// When the endpoint reports the same number more than once the first
// non-empty name wins.
func NewSet(tokens []string, entries []operator.Entry) *Set {
	s := &Set{
		tokens:   append([]string(nil), tokens...),
		entries:  append([]operator.Entry(nil), entries...),
		byNumber: make(map[string]string, len(entries)),
	}
	for _, e := range s.entries {
		if e.Name == "" {
			continue
		}
		if _, ok := s.byNumber[e.Number]; !ok {
			s.byNumber[e.Number] = e.Name
		}
	}
	return s
}

// Tokens returns the raw tokens in input order.
func (s *Set) Tokens() []string { return append([]string(nil), s.tokens...) }

// Entries returns the lookup entries in the order they were received.
func (s *Set) Entries() []operator.Entry { return append([]operator.Entry(nil), s.entries...) }

// Len is the number of raw tokens.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.tokens)
}

// Empty reports whether the lookup returned no entries at all.
func (s *Set) Empty() bool {
	return s == nil || len(s.entries) == 0
}

// Operator resolves raw to an operator name, falling back to UnknownOperator.
func (s *Set) Operator(raw string) string {
	if name, ok := s.byNumber[phone.Normalize(raw)]; ok {
		return name
	}
	return UnknownOperator
}

// Rows returns every token with its resolved operator, in input order.
func (s *Set) Rows() []Row {
	if s == nil {
		return nil
	}
	rows := make([]Row, 0, len(s.tokens))
	for _, t := range s.tokens {
		n := phone.Normalize(t)
		name, ok := s.byNumber[n]
		if !ok {
			name = UnknownOperator
		}
		rows = append(rows, Row{Raw: t, Normalized: n, Operator: name})
	}
	return rows
}

// Breakdown counts tokens per resolved operator, largest first. Operators
// with equal counts are ordered alphabetically.
func (s *Set) Breakdown() []OperatorCount {
	counts := make(map[string]int)
	for _, r := range s.Rows() {
		counts[r.Operator]++
	}

	out := make([]OperatorCount, 0, len(counts))
	for op, n := range counts {
		out = append(out, OperatorCount{Operator: op, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Operator < out[j].Operator
	})
	return out
}

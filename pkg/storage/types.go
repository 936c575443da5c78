// Package storage keeps a history of lookups in SQLite.
package storage

import (
	"time"

	"github.com/sw33tLie/opcheck/pkg/operator"
)

// Entry is re-exported so callers rebuilding sets need not import operator.
type Entry = operator.Entry

// Lookup summarizes one stored lookup.
type Lookup struct {
	ID        string
	CreatedAt time.Time
	Total     int
	Resolved  int
}

type OperatorStats struct {
	Operator    string
	NumberCount int
	LookupCount int
}

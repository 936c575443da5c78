// Package operator resolves the network operator of Swedish phone numbers,
// either through the remote lookup endpoint or from offline carrier data.
package operator

import (
	"context"
	"errors"
)

// MaxNumbersPerRequest is the largest number list the lookup endpoint accepts
// in a single call.
const MaxNumbersPerRequest = 2000

// Entry is one resolved number as returned by the endpoint. Number is in
// normalized (dashed) form.
type Entry struct {
	Number string `json:"number"`
	Name   string `json:"name"`
}

// Fetcher resolves operators for a list of normalized numbers. Numbers the
// backend knows nothing about are simply absent from the result.
type Fetcher interface {
	FetchOperators(ctx context.Context, numbers []string) ([]Entry, error)
}

var (
	ErrRateLimited = errors.New("Too many requests. Please wait a moment and try again.")
	ErrTimeout     = errors.New("Request timed out. Please try again.")
)

// APIError is returned for any non-success status other than 429. Body is the
// response body exactly as received.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return "API request failed: " + e.Body
}

package batch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/sw33tLie/opcheck/pkg/operator"
	"github.com/sw33tLie/opcheck/pkg/phone"
	"github.com/sw33tLie/opcheck/pkg/results"
)

// fakeFetcher records every call and answers from names.
type fakeFetcher struct {
	calls       [][]string
	names       map[string]string
	failAt      int // 1-based call index to fail on; 0 = never
	failErr     error
	inFlight    int
	maxInFlight int
}

func (f *fakeFetcher) FetchOperators(ctx context.Context, numbers []string) ([]operator.Entry, error) {
	f.inFlight++
	defer func() { f.inFlight-- }()
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}

	f.calls = append(f.calls, append([]string(nil), numbers...))
	if f.failAt == len(f.calls) {
		return nil, f.failErr
	}
	var out []operator.Entry
	for _, n := range numbers {
		if name, ok := f.names[n]; ok {
			out = append(out, operator.Entry{Number: n, Name: name})
		}
	}
	return out, nil
}

func TestLookupEndToEnd(t *testing.T) {
	tokens, err := phone.ParseInput("+46701234567, 08123456, 0701234567")
	if err != nil {
		t.Fatal(err)
	}
	if len(tokens) != 3 {
		t.Fatalf("expected 3 unique tokens, got %v", tokens)
	}

	f := &fakeFetcher{names: map[string]string{"070-1234567": "Telia"}}
	set, err := Lookup(context.Background(), f, tokens, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.calls) != 1 {
		t.Fatalf("expected one lookup call, got %d", len(f.calls))
	}
	wantCall := []string{"070-1234567", "081-23456", "070-1234567"}
	if !reflect.DeepEqual(f.calls[0], wantCall) {
		t.Fatalf("unexpected request.\nwant: %v\ngot:  %v", wantCall, f.calls[0])
	}

	var got []string
	for _, r := range set.Rows() {
		got = append(got, r.Raw+" - "+r.Operator)
	}
	want := []string{
		"+46701234567 - Telia",
		"08123456 - " + results.UnknownOperator,
		"0701234567 - Telia",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected rows.\nwant: %#v\ngot:  %#v", want, got)
	}
}

func TestLookupDeduplicates(t *testing.T) {
	f := &fakeFetcher{}
	set, err := Lookup(context.Background(), f, []string{"0701234567", "08123456", "0701234567"}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(set.Tokens(), []string{"0701234567", "08123456"}) {
		t.Fatalf("unexpected tokens: %v", set.Tokens())
	}
}

func TestLookupValidationAbortsBeforeNetwork(t *testing.T) {
	f := &fakeFetcher{}
	_, err := Lookup(context.Background(), f, []string{"0701234567", "abc", "07012", ""}, Options{})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(vErr.Invalid) != 3 {
		t.Fatalf("expected every invalid token to be reported, got %+v", vErr.Invalid)
	}
	if vErr.Invalid[2].Reason != phone.ReasonEmpty {
		t.Errorf("unexpected reason for empty token: %q", vErr.Invalid[2].Reason)
	}
	if !strings.Contains(err.Error(), `"abc": `+phone.ReasonPrefix) {
		t.Errorf("error message should list each token with its reason: %q", err.Error())
	}
	if len(f.calls) != 0 {
		t.Fatalf("no lookup may happen when validation fails, got %d calls", len(f.calls))
	}
}

func validNumbers(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("07%08d", i)
	}
	return out
}

func TestLookupChunksSequentially(t *testing.T) {
	for _, n := range []int{1, 1999, 2000, 2001, 4500} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			tokens := validNumbers(n)
			names := map[string]string{}
			for _, tok := range tokens {
				names[phone.Normalize(tok)] = "Op" + tok[len(tok)-1:]
			}
			f := &fakeFetcher{names: names}

			var progress []int
			set, err := Lookup(context.Background(), f, tokens, Options{OnChunk: func(i, total, got int) {
				progress = append(progress, i)
			}})
			if err != nil {
				t.Fatal(err)
			}

			wantCalls := (n + DefaultChunkSize - 1) / DefaultChunkSize
			if len(f.calls) != wantCalls {
				t.Fatalf("expected %d calls, got %d", wantCalls, len(f.calls))
			}
			if f.maxInFlight != 1 {
				t.Fatalf("chunks must not overlap, saw %d in flight", f.maxInFlight)
			}
			if len(progress) != wantCalls {
				t.Fatalf("expected %d progress callbacks, got %d", wantCalls, len(progress))
			}

			var sent []string
			for _, c := range f.calls {
				if len(c) > DefaultChunkSize {
					t.Fatalf("chunk of %d exceeds limit", len(c))
				}
				sent = append(sent, c...)
			}
			for i, tok := range tokens {
				if sent[i] != phone.Normalize(tok) {
					t.Fatalf("cross-chunk order broken at %d: %q vs %q", i, sent[i], tok)
				}
			}

			entries := set.Entries()
			if len(entries) != n {
				t.Fatalf("expected %d aggregated entries, got %d", n, len(entries))
			}
			for i, e := range entries {
				if e.Number != sent[i] {
					t.Fatalf("aggregated entries out of order at %d", i)
				}
			}
		})
	}
}

func TestLookupCustomChunkSize(t *testing.T) {
	f := &fakeFetcher{}
	if _, err := Lookup(context.Background(), f, validNumbers(25), Options{ChunkSize: 10}); err != nil {
		t.Fatal(err)
	}
	if len(f.calls) != 3 || len(f.calls[2]) != 5 {
		t.Fatalf("unexpected chunking: %d calls", len(f.calls))
	}

	f = &fakeFetcher{}
	if _, err := Lookup(context.Background(), f, validNumbers(2500), Options{ChunkSize: 5000}); err != nil {
		t.Fatal(err)
	}
	if len(f.calls) != 2 {
		t.Fatalf("chunk size must be capped at %d, got %d calls", DefaultChunkSize, len(f.calls))
	}
}

func TestLookupChunkFailureDiscardsResults(t *testing.T) {
	f := &fakeFetcher{failAt: 2, failErr: operator.ErrRateLimited, names: map[string]string{}}
	set, err := Lookup(context.Background(), f, validNumbers(4500), Options{})
	if !errors.Is(err, operator.ErrRateLimited) {
		t.Fatalf("expected rate-limit error, got %v", err)
	}
	if set != nil {
		t.Fatal("no partial results may be returned on failure")
	}
	if len(f.calls) != 2 {
		t.Fatalf("expected the run to stop after the failing chunk, got %d calls", len(f.calls))
	}
}

func TestLookupNoData(t *testing.T) {
	set, err := Lookup(context.Background(), &fakeFetcher{}, []string{"0701234567"}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !set.Empty() {
		t.Fatal("expected an empty result set")
	}
}

func TestChunk(t *testing.T) {
	got := Chunk([]string{"a", "b", "c", "d", "e"}, 2)
	want := [][]string{{"a", "b"}, {"c", "d"}, {"e"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	if Chunk(nil, 2) != nil {
		t.Fatal("expected no chunks for empty input")
	}
}

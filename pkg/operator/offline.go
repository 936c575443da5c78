package operator

import (
	"context"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "SE"

// Offline resolves operators from libphonenumber's carrier tables. The data
// reflects the original number-range holder, so ported numbers may report
// their previous operator.
type Offline struct {
	Lang string
}

func (o Offline) FetchOperators(ctx context.Context, numbers []string) ([]Entry, error) {
	lang := o.Lang
	if lang == "" {
		lang = "en"
	}

	entries := make([]Entry, 0, len(numbers))
	for _, n := range numbers {
		if err := ctx.Err(); err != nil {
			return nil, ErrTimeout
		}
		parsed, err := phonenumbers.Parse(strings.ReplaceAll(n, "-", ""), defaultRegion)
		if err != nil {
			continue
		}
		carrier, err := phonenumbers.GetCarrierForNumber(parsed, lang)
		if err != nil || carrier == "" {
			continue
		}
		entries = append(entries, Entry{Number: n, Name: carrier})
	}
	return entries, nil
}

package phone

import "regexp"

const (
	ReasonEmpty        = "Empty input"
	ReasonPrefix       = "Must start with +46 or 0, followed by digits only"
	ReasonLengthFormat = "Invalid length or format"
)

var prefixAndDigits = regexp.MustCompile(`^(\+46|0)\d+$`)

// ValidationResult is the outcome of Validate. Error is empty when Valid.
type ValidationResult struct {
	Valid bool
	Error string
}

// Invalid pairs a rejected token with the reason it was rejected.
type Invalid struct {
	Token  string
	Reason string
}

// Validate checks raw against the accepted Swedish number shape.
func Validate(raw string) ValidationResult {
	if raw == "" {
		return ValidationResult{Error: ReasonEmpty}
	}

	num := StripSpaces(raw)
	if !prefixAndDigits.MatchString(num) {
		return ValidationResult{Error: ReasonPrefix}
	}

	if !nationalLength.MatchString(toNational(num)) {
		return ValidationResult{Error: ReasonLengthFormat}
	}

	return ValidationResult{Valid: true}
}

// ValidateAll validates every token and returns the rejected ones in input
// order. A nil result means all tokens are valid.
func ValidateAll(tokens []string) []Invalid {
	var invalid []Invalid
	for _, t := range tokens {
		if res := Validate(t); !res.Valid {
			invalid = append(invalid, Invalid{Token: t, Reason: res.Error})
		}
	}
	return invalid
}

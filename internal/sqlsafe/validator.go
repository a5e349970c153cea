// Package sqlsafe screens model-generated SQL before it reaches the
// database. Validation strips markdown artifacts, requires a SELECT shape
// and rejects statements carrying write or procedural verbs.
package sqlsafe

import (
	"regexp"
	"strings"

	"github.com/askdb/askdb/internal/errors"
)

// forbiddenKeywords are matched case-insensitively on word boundaries.
// Everything detected is reported at once rather than stopping at the first
// hit.
var forbiddenKeywords = []string{"DROP", "DELETE", "UPDATE", "INSERT", "EXEC", "sp_"}

var (
	fenceOpenPattern  = regexp.MustCompile("```\\w*\n")
	fenceClosePattern = regexp.MustCompile("```\\s*$")

	keywordPatterns = func() []*regexp.Regexp {
		patterns := make([]*regexp.Regexp, 0, len(forbiddenKeywords))

		for _, kw := range forbiddenKeywords {
			expr := `(?i)\b` + regexp.QuoteMeta(kw)

			// A trailing underscore is itself a word character, so a closing
			// boundary would never match names like sp_helptext.
			if !strings.HasSuffix(kw, "_") {
				expr += `\b`
			}

			patterns = append(patterns, regexp.MustCompile(expr))
		}

		return patterns
	}()
)

// Validate cleans raw model output and enforces the read-only contract. On
// success it returns the executable SQL with interior line breaks intact;
// on failure the error names every forbidden keyword found.
func Validate(raw string) (string, error) {
	cleaned := stripFences(raw)

	// Collapse to one line only for the prefix check; the returned SQL
	// keeps its original shape.
	if !strings.HasPrefix(strings.ToUpper(compact(cleaned)), "SELECT") {
		return "", errors.New(errors.ErrTypeUnsafeSQL, "only SELECT statements are allowed").
			WithSuggestion("Ask for a read-only query; the statement must start with SELECT")
	}

	var detected []string

	for i, pattern := range keywordPatterns {
		if pattern.MatchString(cleaned) {
			detected = append(detected, forbiddenKeywords[i])
		}
	}

	if len(detected) > 0 {
		return "", errors.NewUnsafeSQLError(detected)
	}

	return strings.TrimSpace(cleaned), nil
}

// stripFences removes markdown code-block markers the model may wrap the
// SQL in, such as ```sql ... ```.
func stripFences(raw string) string {
	if !strings.Contains(raw, "```") {
		return raw
	}

	cleaned := fenceOpenPattern.ReplaceAllString(raw, "")
	cleaned = fenceClosePattern.ReplaceAllString(cleaned, "")

	return cleaned
}

// compact joins the trimmed non-empty lines with single spaces.
func compact(sql string) string {
	lines := strings.Split(sql, "\n")
	parts := make([]string, 0, len(lines))

	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}

	return strings.Join(parts, " ")
}

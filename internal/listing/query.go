package listing

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// SpreadsheetMimeType is the Drive MIME type of native spreadsheets.
const SpreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// DefaultOrderBy is applied when a search does not name an ordering.
const DefaultOrderBy = "modifiedTime desc"

// ErrUnsupportedQuery indicates a query the backend cannot evaluate.
var ErrUnsupportedQuery = errors.New("listing: unsupported query")

// Operators that mark free text as an explicit Drive query expression.
var driveOperators = []string{
	"name contains", "name =", "fulltext contains", "mimetype",
	"createdtime", "modifiedtime", "sharedwithme", "starred",
	"trashed", "owners", "in parents",
}

var (
	fullTextRe = regexp.MustCompile(`(?i)\bfulltext\s+contains\b`)
	nameTermRe = regexp.MustCompile(`(?i)^\s*name\s+(contains|=)\s+'((?:[^'\\]|\\.)*)'\s*$`)
)

// BuildDriveQuery renders q as a Drive files.list "q" expression. Clauses are
// joined with "and"; the MIME filter always comes first.
func BuildDriveQuery(q Query) string {
	parts := []string{"mimeType='" + SpreadsheetMimeType + "'"}
	if expr := normalizeText(q.Text); expr != "" {
		parts = append(parts, "("+expr+")")
	}
	if q.CreatedAfter != nil {
		parts = append(parts, "createdTime > '"+q.CreatedAfter.UTC().Format(time.RFC3339)+"'")
	}
	if q.ModifiedAfter != nil {
		parts = append(parts, "modifiedTime > '"+q.ModifiedAfter.UTC().Format(time.RFC3339)+"'")
	}
	if q.SharedWithMe {
		parts = append(parts, "sharedWithMe=true")
	}
	if q.StarredOnly {
		parts = append(parts, "starred=true")
	}
	if !q.IncludeTrashed {
		parts = append(parts, "trashed=false")
	}
	return strings.Join(parts, " and ")
}

// EffectiveOrderBy returns the ordering to request for q.
func (q Query) EffectiveOrderBy() string {
	if s := strings.TrimSpace(q.OrderBy); s != "" {
		return s
	}
	return DefaultOrderBy
}

func normalizeText(text string) string {
	t := strings.TrimSpace(text)
	if t == "" {
		return ""
	}
	if !IsDriveExpression(t) {
		return "name contains '" + EscapeQueryValue(t) + "'"
	}
	return fullTextRe.ReplaceAllString(t, "fullText contains")
}

// IsDriveExpression reports whether text already uses Drive query operators.
func IsDriveExpression(text string) bool {
	low := strings.ToLower(text)
	for _, op := range driveOperators {
		if strings.Contains(low, op) {
			return true
		}
	}
	return false
}

// EscapeQueryValue escapes a literal for use inside single quotes.
func EscapeQueryValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// NameTerm extracts the file-name filter from text for backends without a
// query language. Bare text and single "name contains"/"name =" expressions
// are supported; exact reports the "=" form. Anything else fails with
// ErrUnsupportedQuery.
func NameTerm(text string) (term string, exact bool, err error) {
	t := strings.TrimSpace(text)
	if t == "" || !IsDriveExpression(t) {
		return t, false, nil
	}
	m := nameTermRe.FindStringSubmatch(t)
	if m == nil {
		return "", false, fmt.Errorf("%w: %q", ErrUnsupportedQuery, t)
	}
	v := strings.ReplaceAll(m[2], `\'`, `'`)
	v = strings.ReplaceAll(v, `\\`, `\`)
	return v, m[1] == "=", nil
}

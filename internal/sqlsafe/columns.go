package sqlsafe

import (
	"regexp"
	"strings"

	"github.com/askdb/askdb/internal/schema"
)

// sqlWords are tokens that look like identifiers but belong to the SQL
// grammar or to common SQL Server functions. They are never treated as
// column references.
var sqlWords = map[string]struct{}{
	"SELECT": {}, "FROM": {}, "WHERE": {}, "ORDER": {}, "BY": {}, "GROUP": {},
	"HAVING": {}, "JOIN": {}, "INNER": {}, "OUTER": {}, "LEFT": {}, "RIGHT": {},
	"FULL": {}, "ON": {}, "AS": {}, "AND": {}, "OR": {}, "NOT": {}, "IN": {},
	"BETWEEN": {}, "LIKE": {}, "IS": {}, "NULL": {}, "TOP": {}, "DISTINCT": {},
	"ALL": {}, "UNION": {}, "EXCEPT": {}, "INTERSECT": {}, "WITH": {},
	"CASE": {}, "WHEN": {}, "THEN": {}, "ELSE": {}, "END": {}, "ASC": {},
	"DESC": {}, "LIMIT": {}, "OFFSET": {},
	"COUNT": {}, "SUM": {}, "AVG": {}, "MIN": {}, "MAX": {}, "CAST": {},
	"CONVERT": {}, "COALESCE": {}, "ISNULL": {}, "GETDATE": {}, "YEAR": {},
	"MONTH": {}, "DAY": {}, "DATEADD": {}, "DATEDIFF": {}, "ROUND": {},
	"ABS": {}, "UPPER": {}, "LOWER": {}, "LEN": {}, "SUBSTRING": {},
}

var (
	identifierPattern    = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	stringLiteralPattern = regexp.MustCompile(`'[^']*'`)
)

// CheckColumns reports identifiers in the statement that match no column in
// the snapshot. The check is advisory: callers log the result as a warning
// and still execute the query, since aliases and niche functions can trip
// it.
func CheckColumns(sql string, snap *schema.Snapshot) []string {
	stripped := stringLiteralPattern.ReplaceAllString(sql, "''")

	tables := make(map[string]struct{}, len(snap.Tables))
	columns := make(map[string]struct{})

	for _, table := range snap.Tables {
		tables[table.Name] = struct{}{}

		for _, column := range table.Columns {
			columns[column.Name] = struct{}{}
		}
	}

	var unknown []string

	seen := make(map[string]struct{})
	matches := identifierPattern.FindAllStringIndex(stripped, -1)

	for _, m := range matches {
		name := stripped[m[0]:m[1]]

		// An identifier directly followed by a dot is a table name or
		// alias qualifier; the part after the dot is checked on its own.
		if m[1] < len(stripped) && stripped[m[1]] == '.' {
			continue
		}

		if _, ok := sqlWords[strings.ToUpper(name)]; ok {
			continue
		}

		if _, ok := tables[name]; ok {
			continue
		}

		if _, ok := columns[name]; ok {
			continue
		}

		if _, dup := seen[name]; dup {
			continue
		}

		seen[name] = struct{}{}
		unknown = append(unknown, name)
	}

	return unknown
}

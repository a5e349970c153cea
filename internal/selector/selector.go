// Package selector picks the tables worth showing to the model for a given
// question, so prompt size tracks the question rather than the whole schema.
//
// Selection runs three tiers, each short-circuiting the rest: a curated
// alias map for domain vocabulary, a table-comment substring scan, and a
// weighted keyword score over names and comments. When nothing matches, the
// first few tables are returned so the prompt always carries some schema.
package selector

import (
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/askdb/askdb/internal/schema"
)

const (
	defaultMaxTables = 5
	fallbackTables   = 3

	// Weights for the scoring tier.
	tableNameWeight     = 3
	tableCommentWeight  = 5
	columnNameWeight    = 1
	columnCommentWeight = 2

	// Tokens shorter than this are noise (particles, single letters).
	minTokenRunes = 2
)

// Selector holds the alias map and selection limits. Safe for concurrent
// use; all state is read-only after construction.
type Selector struct {
	aliases   map[string][]string
	canonical []string
	maxTables int
	logger    *zap.Logger
}

// New builds a selector. The aliases map canonical table names to domain
// synonyms; iteration over it is fixed in sorted name order so selection is
// deterministic.
func New(aliases map[string][]string, maxTables int, logger *zap.Logger) *Selector {
	if maxTables <= 0 {
		maxTables = defaultMaxTables
	}

	canonical := make([]string, 0, len(aliases))
	for name := range aliases {
		canonical = append(canonical, name)
	}

	sort.Strings(canonical)

	return &Selector{
		aliases:   aliases,
		canonical: canonical,
		maxTables: maxTables,
		logger:    logger,
	}
}

// Select returns the tables most relevant to the question, in priority
// order. It never returns an empty slice for a non-empty snapshot.
func (s *Selector) Select(question string, snap *schema.Snapshot) []schema.Table {
	if tables := s.matchAliases(question, snap); len(tables) > 0 {
		return tables
	}

	if tables := s.matchComments(question, snap); len(tables) > 0 {
		return tables
	}

	if tables := s.scoreTables(question, snap); len(tables) > 0 {
		return tables
	}

	s.logger.Debug("no table matched, falling back to leading tables",
		zap.Int("count", min(fallbackTables, len(snap.Tables))))

	n := min(fallbackTables, len(snap.Tables))

	return append([]schema.Table(nil), snap.Tables[:n]...)
}

// matchAliases returns every table registered under the first canonical name
// whose alias occurs verbatim in the question. An alias hit for a name with
// no tables in the snapshot does not end the scan.
func (s *Selector) matchAliases(question string, snap *schema.Snapshot) []schema.Table {
	for _, name := range s.canonical {
		for _, alias := range s.aliases[name] {
			if alias == "" || !strings.Contains(question, alias) {
				continue
			}

			var matched []schema.Table

			for _, table := range snap.Tables {
				if table.Name == name {
					matched = append(matched, table)
				}
			}

			if len(matched) > 0 {
				s.logger.Debug("alias matched table",
					zap.String("alias", alias),
					zap.String("table", name))

				return matched
			}
		}
	}

	return nil
}

// matchComments returns the first table whose comment contains any question
// token, in snapshot order.
func (s *Selector) matchComments(question string, snap *schema.Snapshot) []schema.Table {
	tokens := tokenize(question)

	for _, table := range snap.Tables {
		if table.Comment == "" {
			continue
		}

		for _, token := range tokens {
			if strings.Contains(table.Comment, token) {
				s.logger.Debug("comment matched table",
					zap.String("token", token),
					zap.String("table", table.Name))

				return []schema.Table{table}
			}
		}
	}

	return nil
}

// scoreTables ranks tables by weighted keyword hits across table names,
// table comments, column names and column comments. Ties keep snapshot
// order; tables scoring zero are dropped.
func (s *Selector) scoreTables(question string, snap *schema.Snapshot) []schema.Table {
	keywords := tokenize(strings.ToLower(question))
	if len(keywords) == 0 {
		return nil
	}

	type scoredTable struct {
		table schema.Table
		score int
	}

	var ranked []scoredTable

	for _, table := range snap.Tables {
		score := 0
		name := strings.ToLower(table.Name)
		comment := strings.ToLower(table.Comment)

		for _, keyword := range keywords {
			if strings.Contains(name, keyword) {
				score += tableNameWeight
			}

			if comment != "" && strings.Contains(comment, keyword) {
				score += tableCommentWeight
			}
		}

		for _, column := range table.Columns {
			colName := strings.ToLower(column.Name)
			colComment := strings.ToLower(column.Comment)

			for _, keyword := range keywords {
				if strings.Contains(colName, keyword) {
					score += columnNameWeight
				}

				if colComment != "" && strings.Contains(colComment, keyword) {
					score += columnCommentWeight
				}
			}
		}

		if score > 0 {
			ranked = append(ranked, scoredTable{table: table, score: score})
		}
	}

	if len(ranked) == 0 {
		return nil
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	n := min(s.maxTables, len(ranked))
	tables := make([]schema.Table, 0, n)

	for _, st := range ranked[:n] {
		tables = append(tables, st.table)
	}

	s.logger.Debug("scored tables selected", zap.Int("count", len(tables)))

	return tables
}

// tokenize splits on whitespace and keeps tokens of at least two runes, so
// CJK words count by character rather than byte.
func tokenize(text string) []string {
	fields := strings.Fields(text)
	tokens := fields[:0]

	for _, field := range fields {
		if utf8.RuneCountInString(field) >= minTokenRunes {
			tokens = append(tokens, field)
		}
	}

	return tokens
}

// RenderCompact emits the prompt-facing schema excerpt for the selected
// tables: name, comment and one line per column with its comment and type.
func RenderCompact(tables []schema.Table) string {
	var b strings.Builder

	for i, table := range tables {
		if i > 0 {
			b.WriteString("\n")
		}

		b.WriteString("Table: ")
		b.WriteString(table.Name)
		b.WriteString("\nComment: ")
		b.WriteString(table.Comment)
		b.WriteString("\n\nColumns:\n")

		for _, column := range table.Columns {
			comment := column.Comment
			if comment == "" {
				comment = "no comment"
			}

			b.WriteString("- ")
			b.WriteString(column.Name)
			b.WriteString(": ")
			b.WriteString(comment)
			b.WriteString(" (")
			b.WriteString(column.TypeString())
			b.WriteString(")\n")
		}
	}

	return b.String()
}

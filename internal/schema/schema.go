// Package schema loads and normalizes table metadata. A Snapshot is the
// canonical in-memory schema consumed by selection, validation, caching,
// and prompt rendering. Snapshots are immutable after load; reloading
// produces a new Snapshot, never an in-place mutation.
package schema

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/askdb/askdb/internal/errors"
)

// Column describes one column of a table. Length is 0 when the source does
// not specify one. Nullable defaults to true when absent from the source.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Length   int    `json:"length,omitempty"`
	Comment  string `json:"comment,omitempty"`
	Nullable bool   `json:"nullable"`
}

// TypeString renders the column type with its length folded in, e.g.
// NVARCHAR(100) or INT.
func (c Column) TypeString() string {
	if c.Length > 0 {
		return fmt.Sprintf("%s(%d)", c.Type, c.Length)
	}

	return c.Type
}

// Table describes one table: name, comment, and ordered columns.
type Table struct {
	Name    string   `json:"name"`
	Comment string   `json:"comment,omitempty"`
	Columns []Column `json:"columns"`
}

// Snapshot is the full set of tables for one database, identified by a
// SHA-256 hash of its source representation.
type Snapshot struct {
	Tables []Table `json:"tables"`
	Hash   string  `json:"hash"`
}

// TableNames returns the table names in snapshot order.
func (s *Snapshot) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		names = append(names, t.Name)
	}

	return names
}

// HasColumn reports whether any table in the snapshot has a column with the
// given name (exact match).
func (s *Snapshot) HasColumn(name string) bool {
	for _, t := range s.Tables {
		for _, c := range t.Columns {
			if c.Name == name {
				return true
			}
		}
	}

	return false
}

// fileTable and fileColumn are the on-disk source representation; Nullable
// is a pointer so an absent field can default to true.
type fileTable struct {
	Name    string       `json:"name"    yaml:"name"`
	Comment string       `json:"comment,omitempty" yaml:"comment,omitempty"`
	Columns []fileColumn `json:"columns" yaml:"columns"`
}

type fileColumn struct {
	Name     string `json:"name"               yaml:"name"`
	Type     string `json:"type"               yaml:"type"`
	Length   int    `json:"length,omitempty"   yaml:"length,omitempty"`
	Comment  string `json:"comment,omitempty"  yaml:"comment,omitempty"`
	Nullable *bool  `json:"nullable,omitempty" yaml:"nullable,omitempty"`
}

// HashSource returns the hex SHA-256 digest of raw source bytes. The same
// digest feeds cache-key derivation so identical sources converge on one
// cache entry.
func HashSource(src []byte) string {
	sum := sha256.Sum256(src)
	return hex.EncodeToString(sum[:])
}

// ReadSource reads a schema source file, reporting a schema_load error when
// the file is missing or unreadable.
func ReadSource(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeSchemaLoad, "failed to read schema source %s", path).
			WithSuggestion("Run 'askdb schema export' to generate one from a live database")
	}

	return data, nil
}

// Parse decodes schema source bytes (a JSON or YAML sequence of table
// records) into a Snapshot. It fails with a schema_load error when the
// source is malformed or a table/column entry lacks a name.
func Parse(src []byte) (*Snapshot, error) {
	var records []fileTable

	trimmed := bytes.TrimSpace(src)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeSchemaLoad, "malformed schema source")
		}
	} else {
		if err := yaml.Unmarshal(src, &records); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeSchemaLoad, "malformed schema source")
		}
	}

	tables := make([]Table, 0, len(records))

	for i, rec := range records {
		if rec.Name == "" {
			return nil, errors.Newf(errors.ErrTypeSchemaLoad, "table entry %d has no name", i)
		}

		columns := make([]Column, 0, len(rec.Columns))

		for j, col := range rec.Columns {
			if col.Name == "" {
				return nil, errors.Newf(
					errors.ErrTypeSchemaLoad,
					"table %s column %d has no name", rec.Name, j,
				)
			}

			nullable := true
			if col.Nullable != nil {
				nullable = *col.Nullable
			}

			columns = append(columns, Column{
				Name:     col.Name,
				Type:     col.Type,
				Length:   col.Length,
				Comment:  col.Comment,
				Nullable: nullable,
			})
		}

		tables = append(tables, Table{
			Name:    rec.Name,
			Comment: rec.Comment,
			Columns: columns,
		})
	}

	return &Snapshot{
		Tables: tables,
		Hash:   HashSource(src),
	}, nil
}

// LoadFile reads and parses a schema source file.
func LoadFile(path string) (*Snapshot, error) {
	src, err := ReadSource(path)
	if err != nil {
		return nil, err
	}

	return Parse(src)
}

// MarshalSource renders tables back into canonical JSON source form, the
// inverse of Parse. Used by live-schema export and by introspection to give
// live snapshots a stable content hash.
func MarshalSource(tables []Table) ([]byte, error) {
	records := make([]fileTable, 0, len(tables))

	for _, t := range tables {
		rec := fileTable{
			Name:    t.Name,
			Comment: t.Comment,
			Columns: make([]fileColumn, 0, len(t.Columns)),
		}

		for _, c := range t.Columns {
			fc := fileColumn{
				Name:    c.Name,
				Type:    c.Type,
				Length:  c.Length,
				Comment: c.Comment,
			}

			if !c.Nullable {
				notNull := false
				fc.Nullable = &notNull
			}

			rec.Columns = append(rec.Columns, fc)
		}

		records = append(records, rec)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeSchemaLoad, "failed to serialize schema")
	}

	return data, nil
}

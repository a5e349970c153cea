// Package testutil provides schema fixtures shared across package tests.
package testutil

import (
	"github.com/askdb/askdb/internal/schema"
)

// TableOption is a functional option for configuring test tables
type TableOption func(*schema.Table)

// WithComment sets the table comment
func WithComment(comment string) TableOption {
	return func(t *schema.Table) {
		t.Comment = comment
	}
}

// WithColumn appends a nullable column
func WithColumn(name, colType string, length int, comment string) TableOption {
	return func(t *schema.Table) {
		t.Columns = append(t.Columns, schema.Column{
			Name:     name,
			Type:     colType,
			Length:   length,
			Comment:  comment,
			Nullable: true,
		})
	}
}

// WithRequiredColumn appends a NOT NULL column
func WithRequiredColumn(name, colType string, length int, comment string) TableOption {
	return func(t *schema.Table) {
		t.Columns = append(t.Columns, schema.Column{
			Name:    name,
			Type:    colType,
			Length:  length,
			Comment: comment,
		})
	}
}

// NewTable builds a test table
func NewTable(name string, opts ...TableOption) schema.Table {
	table := schema.Table{Name: name}

	for _, opt := range opts {
		opt(&table)
	}

	return table
}

// NewSnapshot builds a snapshot from tables, with a fixed hash so tests
// comparing snapshots stay stable.
func NewSnapshot(tables ...schema.Table) *schema.Snapshot {
	src, err := schema.MarshalSource(tables)
	if err != nil {
		panic(err)
	}

	return &schema.Snapshot{
		Tables: tables,
		Hash:   schema.HashSource(src),
	}
}

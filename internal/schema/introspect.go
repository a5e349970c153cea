package schema

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/askdb/askdb/internal/errors"
)

// Catalog queries per driver. Each returns one row per column, ordered by
// table name and ordinal position: table, column, type, length, nullable,
// table comment, column comment. Drivers whose catalog has no comment
// columns select empty strings; comments are optional metadata.
const (
	mssqlColumnsQuery = `
SELECT t.TABLE_NAME, c.COLUMN_NAME, c.DATA_TYPE, c.CHARACTER_MAXIMUM_LENGTH,
       c.IS_NULLABLE, '', ''
FROM INFORMATION_SCHEMA.TABLES t
JOIN INFORMATION_SCHEMA.COLUMNS c
  ON c.TABLE_NAME = t.TABLE_NAME AND c.TABLE_SCHEMA = t.TABLE_SCHEMA
WHERE t.TABLE_TYPE = 'BASE TABLE'
ORDER BY t.TABLE_NAME, c.ORDINAL_POSITION`

	postgresColumnsQuery = `
SELECT t.table_name, c.column_name, c.data_type, c.character_maximum_length,
       c.is_nullable, '', ''
FROM information_schema.tables t
JOIN information_schema.columns c
  ON c.table_name = t.table_name AND c.table_schema = t.table_schema
WHERE t.table_type = 'BASE TABLE' AND t.table_schema = 'public'
ORDER BY t.table_name, c.ordinal_position`

	mysqlColumnsQuery = `
SELECT t.TABLE_NAME, c.COLUMN_NAME, c.DATA_TYPE, c.CHARACTER_MAXIMUM_LENGTH,
       c.IS_NULLABLE, t.TABLE_COMMENT, c.COLUMN_COMMENT
FROM information_schema.TABLES t
JOIN information_schema.COLUMNS c
  ON c.TABLE_NAME = t.TABLE_NAME AND c.TABLE_SCHEMA = t.TABLE_SCHEMA
WHERE t.TABLE_SCHEMA = DATABASE() AND t.TABLE_TYPE = 'BASE TABLE'
ORDER BY t.TABLE_NAME, c.ORDINAL_POSITION`

	duckdbColumnsQuery = `
SELECT t.table_name, c.column_name, c.data_type, c.character_maximum_length,
       c.is_nullable, '', ''
FROM information_schema.tables t
JOIN information_schema.columns c
  ON c.table_name = t.table_name AND c.table_schema = t.table_schema
WHERE t.table_type = 'BASE TABLE'
ORDER BY t.table_name, c.ordinal_position`
)

// Introspect builds a Snapshot from the live database catalog. Missing
// comments never fail the load; they default to empty strings. The snapshot
// hash is computed over the canonical JSON form of the discovered tables so
// live schemas participate in content-addressed caching like file sources.
func Introspect(ctx context.Context, db *sql.DB, driver string) (*Snapshot, error) {
	var (
		tables []Table
		err    error
	)

	switch driver {
	case "sqlite":
		tables, err = introspectSQLite(ctx, db)
	case "mysql":
		tables, err = introspectCatalog(ctx, db, mysqlColumnsQuery)
	case "postgres":
		tables, err = introspectCatalog(ctx, db, postgresColumnsQuery)
	case "duckdb":
		tables, err = introspectCatalog(ctx, db, duckdbColumnsQuery)
	case "mssql":
		tables, err = introspectCatalog(ctx, db, mssqlColumnsQuery)
	default:
		return nil, errors.Newf(errors.ErrTypeSchemaLoad, "no catalog introspection for driver %s", driver)
	}

	if err != nil {
		return nil, err
	}

	src, err := MarshalSource(tables)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Tables: tables,
		Hash:   HashSource(src),
	}, nil
}

func introspectCatalog(ctx context.Context, db *sql.DB, query string) ([]Table, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeSchemaLoad, "catalog query failed")
	}
	defer rows.Close()

	var (
		tables []Table
		index  = map[string]int{}
	)

	for rows.Next() {
		var (
			tableName, columnName, dataType, isNullable string
			length                                      sql.NullInt64
			tableComment, columnComment                 sql.NullString
		)

		if err := rows.Scan(
			&tableName, &columnName, &dataType, &length,
			&isNullable, &tableComment, &columnComment,
		); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeSchemaLoad, "failed to scan catalog row")
		}

		i, ok := index[tableName]
		if !ok {
			i = len(tables)
			index[tableName] = i
			tables = append(tables, Table{
				Name:    tableName,
				Comment: tableComment.String,
			})
		}

		// TEXT/BLOB style columns report negative max length; treat as unspecified.
		colLength := int(length.Int64)
		if colLength < 0 {
			colLength = 0
		}

		tables[i].Columns = append(tables[i].Columns, Column{
			Name:     columnName,
			Type:     dataType,
			Length:   colLength,
			Comment:  columnComment.String,
			Nullable: isNullable != "NO",
		})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeSchemaLoad, "catalog read failed")
	}

	return tables, nil
}

func introspectSQLite(ctx context.Context, db *sql.DB) ([]Table, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeSchemaLoad, "catalog query failed")
	}
	defer rows.Close()

	var names []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeSchemaLoad, "failed to scan table name")
		}

		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeSchemaLoad, "catalog read failed")
	}

	tables := make([]Table, 0, len(names))

	for _, name := range names {
		cols, err := sqliteColumns(ctx, db, name)
		if err != nil {
			return nil, err
		}

		tables = append(tables, Table{Name: name, Columns: cols})
	}

	return tables, nil
}

func sqliteColumns(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeSchemaLoad, "failed to inspect table %s", table)
	}
	defer rows.Close()

	var cols []Column

	for rows.Next() {
		var (
			cid, notNull, pk int
			name, colType    string
			dflt             sql.NullString
		)

		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeSchemaLoad, "failed to scan column of %s", table)
		}

		cols = append(cols, Column{
			Name:     name,
			Type:     colType,
			Nullable: notNull == 0,
		})
	}

	return cols, rows.Err()
}

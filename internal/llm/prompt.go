package llm

import "fmt"

// promptTemplate slots: dialect, schema excerpt, question, row-limit rule.
const promptTemplate = `You are a %s expert. Convert the natural language question below into a SQL query.

Database schema:
%s

Question: %s

Generate a standard SQL SELECT statement following these rules:
1. Use only the table and column names shown in the schema above
2. Use SELECT statements only; never use DML statements such as INSERT, UPDATE or DELETE
3. Never call stored procedures; do not use EXEC or names prefixed with sp_
4. %s
5. Make sure the syntax is valid and column names match exactly
6. Return the SQL statement directly, without markdown code fences
7. Do not include any explanatory text

SQL query:`

// BuildPrompt renders the prompt for one question against the selected
// schema excerpt.
func BuildPrompt(dialect, schemaExcerpt, question string) string {
	return fmt.Sprintf(promptTemplate, dialect, schemaExcerpt, question, limitRule(dialect))
}

// DialectFor names the SQL dialect for a driver key, for use in the prompt.
func DialectFor(driver string) string {
	switch driver {
	case "mssql":
		return "SQL Server"
	case "postgres":
		return "PostgreSQL"
	case "mysql":
		return "MySQL"
	case "sqlite":
		return "SQLite"
	case "duckdb":
		return "DuckDB"
	default:
		return "SQL"
	}
}

func limitRule(dialect string) string {
	if dialect == "SQL Server" {
		return `To limit result size, use the "SELECT TOP N" syntax`
	}

	return `To limit result size, use the "LIMIT N" syntax`
}

package shard

import (
	"context"
	"fmt"
	"strings"
)

// forbiddenKeywords may not appear anywhere in a sandboxed query() call.
var forbiddenKeywords = []string{"DROP", "DELETE", "INSERT", "UPDATE", "CREATE", "ALTER", "PRAGMA"}

// QueryResult is the shape returned by the SQL sandbox's read-only query.
type QueryResult struct {
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"rowCount"`
}

// SchemaResult describes every user table currently in the shard.
type SchemaResult struct {
	Tables []TableInfo `json:"tables"`
}

// TableInfo is one entry of SchemaResult.
type TableInfo struct {
	Name string `json:"name"`
	SQL  string `json:"sql"`
}

// SandboxQuery runs a caller-supplied read-only statement. It must begin
// with SELECT (case-insensitively, ignoring leading whitespace) and must
// not contain any forbidden keyword; violations are rejected before any
// execution is attempted.
func (s *Shard) SandboxQuery(ctx context.Context, query string, params []interface{}) (QueryResult, error) {
	if err := validateSandboxSelect(query); err != nil {
		return QueryResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryxContext(ctx, query, params...)
	if err != nil {
		return QueryResult{}, fmt.Errorf("sandbox query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return QueryResult{}, fmt.Errorf("sandbox query columns: %w", err)
	}

	result := QueryResult{Columns: cols, Rows: []map[string]any{}}
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return QueryResult{}, fmt.Errorf("sandbox query scan: %w", err)
		}
		result.Rows = append(result.Rows, row)
		result.RowCount++
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, fmt.Errorf("sandbox query: %w", err)
	}
	return result, nil
}

// SandboxExecute runs a caller-supplied mutating statement. It may not drop
// or alter any reserved (shard-internal) table, and may not issue a PRAGMA.
func (s *Shard) SandboxExecute(ctx context.Context, statement string, params []interface{}) (rowsAffected int64, err error) {
	if err := validateSandboxExecute(statement); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, statement, params...)
	if err != nil {
		return 0, fmt.Errorf("sandbox execute: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// SandboxSchema introspects the shard's user tables via sqlite_master.
func (s *Shard) SandboxSchema(ctx context.Context) (SchemaResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tables []TableInfo
	err := s.db.SelectContext(ctx, &tables,
		`SELECT name, sql FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return SchemaResult{}, fmt.Errorf("sandbox schema: %w", err)
	}
	return SchemaResult{Tables: tables}, nil
}

func validateSandboxSelect(query string) error {
	trimmed := strings.TrimSpace(query)
	if !strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		return fmt.Errorf("sandbox query must begin with SELECT")
	}
	upper := strings.ToUpper(trimmed)
	for _, kw := range forbiddenKeywords {
		if strings.Contains(upper, kw) {
			return fmt.Errorf("sandbox query contains forbidden keyword %q", kw)
		}
	}
	return nil
}

func validateSandboxExecute(statement string) error {
	upper := strings.ToUpper(statement)
	if strings.Contains(upper, "PRAGMA") {
		return fmt.Errorf("sandbox execute may not issue PRAGMA")
	}
	if strings.Contains(upper, "DROP") || strings.Contains(upper, "ALTER") {
		for table := range reservedTables {
			if strings.Contains(upper, strings.ToUpper(table)) {
				return fmt.Errorf("sandbox execute may not drop or alter reserved table %q", table)
			}
		}
	}
	return nil
}

package repository

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var createTableRe = regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS (\w+) \((.*?)\n\);`)

// schemaColumns parses the bootstrap schema into table -> column set so the
// column lists baked into the repositories can be checked against the DDL
// they will actually run against.
func schemaColumns(t *testing.T) map[string]map[string]bool {
	t.Helper()

	raw, err := os.ReadFile(filepath.Join("..", "..", "scripts", "schema.sql"))
	require.NoError(t, err)

	tables := make(map[string]map[string]bool)
	for _, match := range createTableRe.FindAllStringSubmatch(string(raw), -1) {
		columns := make(map[string]bool)
		for _, line := range strings.Split(match[2], "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			name := strings.Fields(line)[0]
			switch strings.ToUpper(name) {
			case "PRIMARY", "UNIQUE", "CHECK", "FOREIGN", "CONSTRAINT":
				continue
			}
			columns[strings.ToLower(name)] = true
		}
		tables[match[1]] = columns
	}
	return tables
}

func requireColumns(t *testing.T, tables map[string]map[string]bool, table string, columns string) {
	t.Helper()

	defined, ok := tables[table]
	require.Truef(t, ok, "schema does not define table %q", table)
	for _, column := range strings.Split(columns, ", ") {
		require.Truef(t, defined[column], "table %q is missing column %q", table, column)
	}
}

func TestSchemaMatchesRepositoryColumns(t *testing.T) {
	tables := schemaColumns(t)

	requireColumns(t, tables, "users", userColumns)
	requireColumns(t, tables, "student_profiles", profileColumns)
	requireColumns(t, tables, "refresh_tokens", "id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent")
	requireColumns(t, tables, "audit_logs", "id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at")
	requireColumns(t, tables, "students", "id, user_id, student_number, full_name, class_name, active, created_at, updated_at")
	requireColumns(t, tables, "courses", "id, code, title, credits, created_at, updated_at")
	requireColumns(t, tables, "roster_assignments", "id, teacher_id, student_id, notes, assigned_at")
	requireColumns(t, tables, "reviewable_records", "id, kind, owner_id, payload, proof_files, status, reviewed_by, reviewed_at, review_comment, created_at, updated_at")
	requireColumns(t, tables, "batch_import_jobs", "id, kind, total_rows, success_rows, failed_rows, status, row_errors, created_by, created_at, finished_at")
}

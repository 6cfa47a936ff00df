package postgres

import (
	"strings"
	"testing"
)

func TestSchemaStatementsRender(t *testing.T) {
	tables := NewTableNames("test_")

	stmts := schemaStatements(tables)
	if len(stmts) == 0 {
		t.Fatal("no schema statements")
	}

	for _, stmt := range stmts {
		if strings.Contains(stmt, "%s") {
			t.Errorf("statement has an unrendered placeholder:\n%s", stmt)
		}
		if strings.Contains(stmt, "%!") {
			t.Errorf("statement has a formatting artifact:\n%s", stmt)
		}
		if !strings.Contains(stmt, "test_") {
			t.Errorf("statement missing the table prefix:\n%s", stmt)
		}
	}
}

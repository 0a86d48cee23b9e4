package repo

import (
	"strings"
	"testing"
)

func TestStatements(t *testing.T) {
	src := `
-- header comment
CREATE TABLE a (id int);

-- only a comment;
CREATE INDEX b ON a (id)
    -- inline note
    WHERE id > 0;
  ;
`
	got := Statements(src)
	if len(got) != 2 {
		t.Fatalf("got %d statements: %q", len(got), got)
	}
	if got[0] != "CREATE TABLE a (id int)" {
		t.Fatalf("first = %q", got[0])
	}
	if strings.Contains(got[1], "inline note") || !strings.HasSuffix(got[1], "WHERE id > 0") {
		t.Fatalf("second = %q", got[1])
	}
}

func TestEmbeddedSchemas(t *testing.T) {
	pg := Statements(schemaSQL)
	if len(pg) < 10 {
		t.Fatalf("postgres schema has %d statements", len(pg))
	}
	for _, s := range pg {
		if !strings.Contains(s, "IF NOT EXISTS") {
			t.Fatalf("statement is not idempotent: %s", firstLine(s))
		}
	}
	ch := Statements(chSchemaSQL)
	if len(ch) != 1 || !strings.Contains(ch[0], DecisionsTable) {
		t.Fatalf("clickhouse schema = %q", ch)
	}
}

package repo

import (
	"context"
	_ "embed"
	"strings"

	"github.com/tumbig251800/atlas-wise-spark/internal/modkit/repokit"

	perr "github.com/tumbig251800/atlas-wise-spark/internal/platform/errors"
)

//go:embed schema.sql
var schemaSQL string

//go:embed ch_schema.sql
var chSchemaSQL string

// Statements splits a schema file into executable statements. Comment lines
// are dropped first so a semicolon inside one never splits a statement
func Statements(src string) []string {
	var b strings.Builder
	for _, line := range strings.Split(src, "\n") {
		if t := strings.TrimSpace(line); t == "" || strings.HasPrefix(t, "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	var out []string
	for _, chunk := range strings.Split(b.String(), ";") {
		if s := strings.TrimSpace(chunk); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Migrate applies the Postgres schema in one transaction
func Migrate(ctx context.Context, db repokit.TxRunner) error {
	return db.Tx(ctx, func(q repokit.Queryer) error {
		for _, stmt := range Statements(schemaSQL) {
			if _, err := q.Exec(ctx, stmt); err != nil {
				return perr.FromPostgresf(err, "migrate: %s", firstLine(stmt))
			}
		}
		return nil
	})
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

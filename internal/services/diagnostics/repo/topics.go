package repo

import (
	"context"

	"github.com/tumbig251800/atlas-wise-spark/internal/platform/store"
	"github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/domain"

	perr "github.com/tumbig251800/atlas-wise-spark/internal/platform/errors"
)

// AliasCanonical looks up a folded topic key
func (r *queries) AliasCanonical(ctx context.Context, subject, grade, aliasKey string) (string, bool, error) {
	const sql = `
		SELECT canonical FROM topic_aliases
		 WHERE subject = $1 AND grade_level = $2 AND alias_key = $3
	`
	c, err := store.Scalar[string](ctx, r.q, sql, subject, grade, aliasKey)
	switch {
	case perr.IsNoRows(err):
		return "", false, nil
	case err != nil:
		return "", false, perr.FromPostgres(err, "alias lookup")
	}
	return c, true, nil
}

// AliasCanonicals lists the distinct canonical names for a subject and grade
func (r *queries) AliasCanonicals(ctx context.Context, subject, grade string) ([]string, error) {
	const sql = `
		SELECT DISTINCT canonical FROM topic_aliases
		 WHERE subject = $1 AND grade_level = $2
		 ORDER BY canonical
	`
	out, err := store.Many(ctx, r.q, func(row store.Row) (string, error) {
		var c string
		return c, row.Scan(&c)
	}, sql, subject, grade)
	if err != nil {
		return nil, perr.FromPostgres(err, "alias candidates")
	}
	return out, nil
}

// UpsertAlias maps aliasKey to a.Canonical
func (r *queries) UpsertAlias(ctx context.Context, a domain.Alias, aliasKey string) error {
	const sql = `
		INSERT INTO topic_aliases (subject, grade_level, alias_key, canonical)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (subject, grade_level, alias_key) DO UPDATE
		SET canonical  = EXCLUDED.canonical,
		    updated_at = now()
	`
	if _, err := r.q.Exec(ctx, sql, a.Subject, a.GradeLevel, aliasKey, a.Canonical); err != nil {
		return perr.FromPostgres(err, "upsert alias")
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"regexp"
	"strings"

	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
	"github.com/pkg/errors"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// NewRowLoader returns an entity loader reading columns of one row of table, keyed by
// idColumn. The names are checked up front since they end up in the query text.
func NewRowLoader(db *sql.DB, table, idColumn string, columns []string) (core.EntityLoader, error) {
	for _, name := range append([]string{table, idColumn}, columns...) {
		if !identifierPattern.MatchString(name) {
			return nil, errors.Errorf("invalid identifier %q", name)
		}
	}
	if len(columns) == 0 {
		return nil, errors.Errorf("no columns to load from %s", table)
	}
	query := `SELECT ` + strings.Join(columns, ", ") + ` FROM ` + table + ` WHERE ` + idColumn + ` = ` + placeholder(1)

	return func(ctx context.Context, id string) (core.AttributeSource, error) {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		err := db.QueryRowContext(ctx, query, id).Scan(ptrs...)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.WithMessagef(core.ErrAttributeNotFound, "%s #%s does not exist", table, id)
		}
		if err != nil {
			return nil, errors.WithMessagef(err, "load %s #%s", table, id)
		}
		row := make(core.MapSource, len(columns))
		for i, c := range columns {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = values[i]
		}
		return row, nil
	}, nil
}

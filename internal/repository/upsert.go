package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// maxRowsPerStatement keeps a single INSERT well under the Postgres limit of
// 65535 bind parameters.
const maxRowsPerStatement = 500

// upsertPlan describes a multi-row INSERT ... ON CONFLICT DO UPDATE.
type upsertPlan struct {
	table    string
	columns  []string
	conflict []string
	// casts maps a column to a SQL type cast applied to its placeholder.
	casts map[string]string
}

// statement builds the SQL for rows rows. Every non-conflict column is
// overwritten and synced_at is set to NOW().
func (s upsertPlan) statement(rows int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s, synced_at) VALUES ", s.table, strings.Join(s.columns, ", "))

	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for i, col := range s.columns {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", n)
			if cast, ok := s.casts[col]; ok {
				b.WriteString("::")
				b.WriteString(cast)
			}
			n++
		}
		b.WriteString(", NOW())")
	}

	fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET ", strings.Join(s.conflict, ", "))
	first := true
	for _, col := range s.columns {
		if s.isConflict(col) {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s = EXCLUDED.%s", col, col)
		first = false
	}
	b.WriteString(", synced_at = NOW()")
	return b.String()
}

func (s upsertPlan) isConflict(col string) bool {
	for _, c := range s.conflict {
		if c == col {
			return true
		}
	}
	return false
}

// exec writes rows inside tx, splitting them into statements of at most
// maxRowsPerStatement rows.
func (s upsertPlan) exec(ctx context.Context, tx *sqlx.Tx, rows [][]any) error {
	for start := 0; start < len(rows); start += maxRowsPerStatement {
		end := start + maxRowsPerStatement
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		args := make([]any, 0, len(batch)*len(s.columns))
		for _, row := range batch {
			args = append(args, row...)
		}
		if _, err := tx.ExecContext(ctx, s.statement(len(batch)), args...); err != nil {
			return fmt.Errorf("upsert %s: %w", s.table, err)
		}
	}
	return nil
}

// lastByKey drops items whose key is blank and keeps only the last item for
// each key, in order of first appearance. A multi-row upsert cannot touch the
// same row twice.
func lastByKey[T any](items []T, key func(T) string) []T {
	index := make(map[string]int, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if strings.TrimSpace(k) == "" {
			continue
		}
		if i, ok := index[k]; ok {
			out[i] = item
			continue
		}
		index[k] = len(out)
		out = append(out, item)
	}
	return out
}

// Package querysql compiles path queries to parameterized SQLite.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/discrete/internal/ir"
	"github.com/roach88/discrete/internal/queryir"
)

// pathColumns matches the column order expected by the store's path scanner.
const pathColumns = "run_id, id, seq, weight, weight_batch, assignment"

// orderBy is the deterministic path order: emission sequence, then content ID.
const orderBy = "ORDER BY seq ASC, id COLLATE BINARY ASC"

// siteMatch correlates a sites row with the outer paths row.
const siteMatch = "SELECT 1 FROM sites s WHERE s.run_id = paths.run_id AND s.path_id = paths.id AND s.name = ?"

// SQLCompiler compiles queryir queries to parameterized SQL for SQLite.
//
// Every query ends in ORDER BY seq with an id tiebreaker, and every value is
// bound as a parameter, never interpolated.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a query to SQL and its parameters.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	switch query := q.(type) {
	case nil:
		return "", nil, fmt.Errorf("cannot compile nil query")
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	if errs := queryir.Validate(q); len(errs) > 0 {
		return "", nil, fmt.Errorf("invalid query: %w", errs[0])
	}

	var b strings.Builder
	b.WriteString("SELECT " + pathColumns + " FROM paths WHERE run_id = ?")
	params := []any{q.RunID}

	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" AND " + filterSQL)
		params = append(params, filterParams...)
	}

	b.WriteString(" " + orderBy)
	return b.String(), params, nil
}

func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.SiteEquals:
		v, err := encodeValue(pred.Value)
		if err != nil {
			return "", nil, err
		}
		return "EXISTS (" + siteMatch + " AND s.value = ?)", []any{pred.Site, v}, nil

	case queryir.SiteIn:
		if len(pred.Values) == 0 {
			return "0 = 1", nil, nil
		}
		params := []any{pred.Site}
		placeholders := make([]string, len(pred.Values))
		for i, val := range pred.Values {
			v, err := encodeValue(val)
			if err != nil {
				return "", nil, err
			}
			placeholders[i] = "?"
			params = append(params, v)
		}
		return "EXISTS (" + siteMatch + " AND s.value IN (" + strings.Join(placeholders, ", ") + "))", params, nil

	case queryir.Unreached:
		return "NOT EXISTS (" + siteMatch + ")", []any{pred.Site}, nil

	case queryir.And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil, nil
		}
		parts := make([]string, 0, len(pred.Predicates))
		var params []any
		for _, sub := range pred.Predicates {
			sql, subParams, err := c.compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, sql)
			params = append(params, subParams...)
		}
		if len(parts) == 1 {
			return parts[0], params, nil
		}
		return "(" + strings.Join(parts, " AND ") + ")", params, nil

	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// encodeValue renders a value the way the store writes the sites.value column.
func encodeValue(v ir.IRValue) (string, error) {
	data, err := ir.MarshalIRValue(v)
	if err != nil {
		return "", fmt.Errorf("encode value: %w", err)
	}
	return string(data), nil
}

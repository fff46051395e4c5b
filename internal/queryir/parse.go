package queryir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/discrete/internal/ir"
)

// Parse parses a filter expression into a Predicate.
//
// Supported expression formats:
//   - "site = value" or "site == value" → SiteEquals
//   - "site in (v1, v2)" → SiteIn
//   - "unreached(site)" → Unreached
//   - "expr1 AND expr2" → And
//
// Values are quoted strings ('on' or "on"), integers, true/false, or bare
// words, which are read as strings. An empty expression parses to nil.
func Parse(expr string) (Predicate, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	parts := splitByAnd(expr)
	if len(parts) == 1 {
		return parseTerm(parts[0])
	}

	predicates := make([]Predicate, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("empty operand of AND in %q", expr)
		}
		pred, err := parseTerm(part)
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, pred)
	}
	return And{Predicates: predicates}, nil
}

// splitByAnd splits an expression on the AND keyword (case insensitive),
// ignoring AND inside quoted strings.
func splitByAnd(expr string) []string {
	var parts []string
	var quote byte
	start := 0
	lower := strings.ToLower(expr)

	for i := 0; i < len(expr); i++ {
		c := expr[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ' ' && strings.HasPrefix(lower[i:], " and "):
			parts = append(parts, strings.TrimSpace(expr[start:i]))
			start = i + len(" and ")
			i = start - 1
		}
	}
	return append(parts, strings.TrimSpace(expr[start:]))
}

func parseTerm(term string) (Predicate, error) {
	lower := strings.ToLower(term)

	if strings.HasPrefix(lower, "unreached(") && strings.HasSuffix(term, ")") {
		site := strings.TrimSpace(term[len("unreached(") : len(term)-1])
		if site == "" {
			return nil, fmt.Errorf("unreached needs a site name: %s", term)
		}
		return Unreached{Site: site}, nil
	}

	if idx := strings.Index(lower, " in "); idx != -1 && !strings.Contains(term[:idx], "=") {
		return parseIn(strings.TrimSpace(term[:idx]), strings.TrimSpace(term[idx+len(" in "):]))
	}

	return parseComparison(term)
}

// parseComparison parses "site = value" or "site == value".
func parseComparison(term string) (Predicate, error) {
	idx := strings.Index(term, "=")
	if idx == -1 {
		return nil, fmt.Errorf("unsupported expression (no = found): %s", term)
	}
	if idx > 0 && term[idx-1] == '!' {
		return nil, fmt.Errorf("unsupported operator != in: %s", term)
	}

	site := strings.TrimSpace(term[:idx])
	raw := strings.TrimPrefix(term[idx+1:], "=")
	if site == "" {
		return nil, fmt.Errorf("missing site name in: %s", term)
	}
	value, err := parseValue(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", site, err)
	}
	return SiteEquals{Site: site, Value: value}, nil
}

// parseIn parses the list of "site in (v1, v2)". Brackets may be round or
// square.
func parseIn(site, list string) (Predicate, error) {
	if site == "" {
		return nil, fmt.Errorf("missing site name before in")
	}
	if len(list) < 2 || !((list[0] == '(' && list[len(list)-1] == ')') || (list[0] == '[' && list[len(list)-1] == ']')) {
		return nil, fmt.Errorf("%s: in needs a parenthesized list, got %q", site, list)
	}

	inner := strings.TrimSpace(list[1 : len(list)-1])
	values := []ir.IRValue{}
	if inner == "" {
		return SiteIn{Site: site, Values: values}, nil
	}
	for _, item := range splitList(inner) {
		v, err := parseValue(strings.TrimSpace(item))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", site, err)
		}
		values = append(values, v)
	}
	return SiteIn{Site: site, Values: values}, nil
}

// splitList splits on commas outside quotes.
func splitList(s string) []string {
	var parts []string
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ',':
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// parseValue reads one literal.
func parseValue(s string) (ir.IRValue, error) {
	if s == "" {
		return nil, fmt.Errorf("missing value")
	}

	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return ir.IRString(s[1 : len(s)-1]), nil
	}

	switch s {
	case "true":
		return ir.IRBool(true), nil
	case "false":
		return ir.IRBool(false), nil
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ir.IRInt(i), nil
	}
	// Floats parse so that Validate can name them.
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return ir.IRFloat(f), nil
	}

	if strings.ContainsAny(s, " '\"()[],=") {
		return nil, fmt.Errorf("invalid value %q", s)
	}
	return ir.IRString(s), nil
}

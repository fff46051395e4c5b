package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/discrete/internal/ir"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		expected Predicate
	}{
		{
			name:     "empty",
			expr:     "   ",
			expected: nil,
		},
		{
			name:     "int equals",
			expr:     "rain = 1",
			expected: SiteEquals{Site: "rain", Value: ir.IRInt(1)},
		},
		{
			name:     "double equals",
			expr:     "rain == 0",
			expected: SiteEquals{Site: "rain", Value: ir.IRInt(0)},
		},
		{
			name:     "negative int",
			expr:     "offset = -3",
			expected: SiteEquals{Site: "offset", Value: ir.IRInt(-3)},
		},
		{
			name:     "double quoted string",
			expr:     `sprinkler = "on"`,
			expected: SiteEquals{Site: "sprinkler", Value: ir.IRString("on")},
		},
		{
			name:     "single quoted string",
			expr:     "sprinkler = 'off'",
			expected: SiteEquals{Site: "sprinkler", Value: ir.IRString("off")},
		},
		{
			name:     "bare word",
			expr:     "first=A",
			expected: SiteEquals{Site: "first", Value: ir.IRString("A")},
		},
		{
			name:     "quoted number stays a string",
			expr:     `label = "1"`,
			expected: SiteEquals{Site: "label", Value: ir.IRString("1")},
		},
		{
			name:     "bool",
			expr:     "flag = true",
			expected: SiteEquals{Site: "flag", Value: ir.IRBool(true)},
		},
		{
			name:     "float parses for validation",
			expr:     "x = 0.5",
			expected: SiteEquals{Site: "x", Value: ir.IRFloat(0.5)},
		},
		{
			name: "in list",
			expr: "sprinkler in (off, 'on')",
			expected: SiteIn{Site: "sprinkler", Values: []ir.IRValue{
				ir.IRString("off"), ir.IRString("on"),
			}},
		},
		{
			name:     "in square brackets",
			expr:     "rain IN [0, 1]",
			expected: SiteIn{Site: "rain", Values: []ir.IRValue{ir.IRInt(0), ir.IRInt(1)}},
		},
		{
			name:     "empty in list",
			expr:     "rain in ()",
			expected: SiteIn{Site: "rain", Values: []ir.IRValue{}},
		},
		{
			name:     "unreached",
			expr:     "unreached(second)",
			expected: Unreached{Site: "second"},
		},
		{
			name: "and",
			expr: `rain = 1 AND sprinkler = "on" and unreached(second)`,
			expected: And{Predicates: []Predicate{
				SiteEquals{Site: "rain", Value: ir.IRInt(1)},
				SiteEquals{Site: "sprinkler", Value: ir.IRString("on")},
				Unreached{Site: "second"},
			}},
		},
		{
			name:     "and inside quotes",
			expr:     `label = "salt and pepper"`,
			expected: SiteEquals{Site: "label", Value: ir.IRString("salt and pepper")},
		},
		{
			name: "comma inside quotes",
			expr: `label in ("a,b", c)`,
			expected: SiteIn{Site: "label", Values: []ir.IRValue{
				ir.IRString("a,b"), ir.IRString("c"),
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr string
	}{
		{"no operator", "rain", "no = found"},
		{"not equals", "rain != 1", "!="},
		{"missing site", "= 1", "missing site name"},
		{"missing value", "rain =", "missing value"},
		{"dangling and", "rain = 1 AND ", "invalid value"},
		{"empty and operand", "rain = 1 and  and b = 2", "empty operand"},
		{"unclosed list", "rain in (0, 1", "parenthesized list"},
		{"empty unreached", "unreached( )", "needs a site name"},
		{"junk value", "rain = (1)", "invalid value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.expr)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSites(t *testing.T) {
	pred := And{Predicates: []Predicate{
		SiteEquals{Site: "rain", Value: ir.IRInt(1)},
		And{Predicates: []Predicate{SiteIn{Site: "sprinkler"}}},
		Unreached{Site: "second"},
	}}

	assert.Equal(t, []string{"rain", "sprinkler", "second"}, Sites(pred))
	assert.Nil(t, Sites(nil))
}

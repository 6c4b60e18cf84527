package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegexpLiteral(t *testing.T) {
	tests := []struct {
		pattern    string
		ignoreCase bool
		want       Literal
		ok         bool
	}{
		{"bug17582", false, Literal{Text: "bug17582"}, true},
		{"foo", false, Literal{Text: "foo"}, true},
		{"ab", false, Literal{}, false},
		{`bug\d+`, false, Literal{Text: "bug"}, true},
		{`.*Handler`, false, Literal{Text: "Handler"}, true},
		{`^open_\w+$`, false, Literal{Text: "open_"}, true},
		{`read_[a-z]+_block`, false, Literal{Text: "_block"}, true},
		{`(parse)r?`, false, Literal{Text: "parse"}, true},
		{`x{1,3}token`, false, Literal{Text: "token"}, true},
		{`connection+pool`, false, Literal{Text: "connectio"}, true},

		{"Timeout", true, Literal{Text: "timeout", IgnoreCase: true}, true},
		{"(?i)Timeout", false, Literal{Text: "timeout", IgnoreCase: true}, true},

		{`err+or`, false, Literal{}, false},
		{`\d+`, false, Literal{}, false},
		{"init|main", false, Literal{}, false},
		{`[abc]+`, false, Literal{}, false},
		{`(?:prefix)?body`, false, Literal{Text: "body"}, true},
		{`x*`, false, Literal{}, false},
		{`größe`, false, Literal{}, false},
		{`(unclosed`, false, Literal{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, ok := regexpLiteral(tt.pattern, tt.ignoreCase)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

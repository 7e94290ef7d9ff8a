package irtext

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// IRLexer tokenizes the textual IR assembly surface described in
// SPEC_FULL.md section 10: a stateless lexer in the style of the teacher
// compiler's grammar.KansoLexer (grammar/lexer.go), but covering the
// smaller token set an IR dump needs (no string/doc-comment tokens; values
// are '%'-prefixed, while block labels and function names are plain
// identifiers).
var IRLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `;[^\n]*`, nil},
		{"Float", `[0-9]+\.[0-9]+`, nil},
		{"Integer", `0x[0-9a-fA-F]+|[0-9]+`, nil},
		{"Value", `%[a-zA-Z0-9_]+`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Arrow", `->`, nil},
		{"Punctuation", `[()\[\]{}:,@=-]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})

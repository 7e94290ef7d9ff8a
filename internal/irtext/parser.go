package irtext

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
)

var parser = buildParser()

func buildParser() *participle.Parser[Program] {
	p, err := participle.Build[Program](
		participle.Lexer(IRLexer),
		participle.Elide("Whitespace", "Comment"),
		participle.UseLookahead(4),
	)
	if err != nil {
		panic(fmt.Errorf("irtext: failed to build parser: %w", err))
	}
	return p
}

// ParseString parses IR assembly text into a grammar AST. sourceName is
// used only for error messages.
func ParseString(sourceName, source string) (*Program, error) {
	return parser.ParseString(sourceName, source)
}

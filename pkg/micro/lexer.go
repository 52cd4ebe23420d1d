package micro

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// CommentMarker starts a comment line.
const CommentMarker = "//"

// asciiSpace is the separator set of both line trimming and tokenizing.
const asciiSpace = " \t\n\v\f\r"

// lineLexer splits on the ASCII space characters only; token text is not
// interpreted.
var lineLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\n\v\f\r]+`},
	{Name: "Word", Pattern: `[^ \t\n\v\f\r]+`},
})

var wordToken = lineLexer.Symbols()["Word"]

// Tokenize returns the whitespace delimited tokens of line. A blank line
// yields no tokens.
func Tokenize(line string) ([]string, error) {
	lex, err := lineLexer.LexString("", line)
	if err != nil {
		return nil, err
	}
	var tokens []string
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, err
		}
		if tok.EOF() {
			return tokens, nil
		}
		if tok.Type == wordToken {
			tokens = append(tokens, tok.Value)
		}
	}
}

type lineKind uint8

const (
	lineBlank lineKind = iota
	lineComment
	lineLabel
	lineInstruction
)

// classifyLine decides what a physical source line is. For a label line the
// returned text is the label name (possibly empty); for an instruction it is
// the trimmed line.
func classifyLine(raw string) (lineKind, string) {
	line := strings.Trim(raw, asciiSpace)
	switch {
	case line == "":
		return lineBlank, ""
	case strings.HasPrefix(line, CommentMarker):
		return lineComment, ""
	}
	if idx := strings.IndexByte(line, ':'); idx >= 0 {
		return lineLabel, strings.TrimSpace(line[:idx])
	}
	return lineInstruction, line
}

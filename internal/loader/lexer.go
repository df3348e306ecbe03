// Package loader implements the Text Bytecode Parser (spec §4.E): lexing,
// per-function parsing, and the two-phase linking pass that resolves label
// and proto-reference placeholders into a finalised proto table. Grounded
// on original_source/include/loader/lexer.h and parser.h, reshaped from a
// recursive-descent expression grammar (the original lexes a general
// expression language) into the flat directive/instruction line grammar
// spec §6 defines for bytecode text.
package loader

import (
	"strconv"
	"strings"

	"github.com/lazypaws/meowvm/internal/vmerr"
)

type TokenKind uint8

const (
	TokDirective TokenKind = iota // ".func", ".endfunc", ".registers", ...
	TokIdent                      // opcode mnemonics, labels, keywords
	TokLabelDef                   // "name:"
	TokInt
	TokFloat
	TokString
	TokProtoRef // "@name"
	TokEOF
)

type Token struct {
	Kind  TokenKind
	Text  string
	Int   int64
	Float float64
	Line  int
}

// Lexer tokenizes one line at a time; each token records its line number,
// and Parse concatenates every line's tokens into one flat stream before
// building functions.
type Lexer struct {
	lines []string
}

func NewLexer(source string) *Lexer {
	return &Lexer{lines: strings.Split(source, "\n")}
}

// LexedLine is one source line split into tokens, with comments and blank
// content already stripped.
type LexedLine struct {
	Tokens []Token
	Line   int
}

// Lines tokenizes every non-empty, non-comment-only line in the source.
func (l *Lexer) Lines() ([]LexedLine, error) {
	var out []LexedLine
	for i, raw := range l.lines {
		lineNo := i + 1
		text := stripComment(raw)
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		toks, err := lexLine(text, lineNo)
		if err != nil {
			return nil, err
		}
		if len(toks) == 0 {
			continue
		}
		out = append(out, LexedLine{Tokens: toks, Line: lineNo})
	}
	return out, nil
}

func stripComment(line string) string {
	inString := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\\' && inString {
			i++
			continue
		}
		if c == '"' {
			inString = !inString
		}
		if c == '#' && !inString {
			return line[:i]
		}
	}
	return line
}

func lexLine(text string, line int) ([]Token, error) {
	var toks []Token
	i := 0
	n := len(text)
	for i < n {
		c := text[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '.':
			start := i
			i++
			for i < n && isIdentRune(text[i]) {
				i++
			}
			toks = append(toks, Token{Kind: TokDirective, Text: text[start:i], Line: line})
		case c == '@':
			start := i
			i++
			for i < n && isIdentRune(text[i]) {
				i++
			}
			toks = append(toks, Token{Kind: TokProtoRef, Text: text[start+1 : i], Line: line})
		case c == '"':
			str, consumed, err := lexString(text[i:], line)
			if err != nil {
				return nil, err
			}
			toks = append(toks, Token{Kind: TokString, Text: str, Line: line})
			i += consumed
		case c == '-' || isDigit(c):
			tok, consumed, err := lexNumber(text[i:], line)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i += consumed
		case isIdentStart(c):
			start := i
			i++
			for i < n && isIdentRune(text[i]) {
				i++
			}
			word := text[start:i]
			if i < n && text[i] == ':' {
				i++
				toks = append(toks, Token{Kind: TokLabelDef, Text: word, Line: line})
			} else {
				toks = append(toks, Token{Kind: TokIdent, Text: word, Line: line})
			}
		default:
			return nil, vmerr.New(vmerr.ParseError, "line %d: unexpected character %q", line, c)
		}
	}
	return toks, nil
}

func lexString(s string, line int) (string, int, error) {
	if s[0] != '"' {
		return "", 0, vmerr.New(vmerr.ParseError, "line %d: expected string literal", line)
	}
	var sb strings.Builder
	i := 1
	for i < len(s) {
		c := s[i]
		if c == '"' {
			return sb.String(), i + 1, nil
		}
		if c == '\\' {
			if i+1 >= len(s) {
				return "", 0, vmerr.New(vmerr.ParseError, "line %d: unterminated escape in string literal", line)
			}
			switch s[i+1] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			default:
				return "", 0, vmerr.New(vmerr.ParseError, "line %d: invalid escape sequence \\%c", line, s[i+1])
			}
			i += 2
			continue
		}
		sb.WriteByte(c)
		i++
	}
	return "", 0, vmerr.New(vmerr.ParseError, "line %d: unterminated string literal", line)
}

func lexNumber(s string, line int) (Token, int, error) {
	i := 0
	if s[i] == '-' {
		i++
	}
	start := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	isFloat := false
	if i < len(s) && s[i] == '.' {
		isFloat = true
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	if start == i && !isFloat {
		return Token{}, 0, vmerr.New(vmerr.ParseError, "line %d: invalid numeric literal", line)
	}
	text := s[:i]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Token{}, 0, vmerr.New(vmerr.ParseError, "line %d: invalid float literal %q", line, text)
		}
		return Token{Kind: TokFloat, Text: text, Float: f, Line: line}, i, nil
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Token{}, 0, vmerr.New(vmerr.ParseError, "line %d: invalid integer literal %q", line, text)
	}
	return Token{Kind: TokInt, Text: text, Int: v, Line: line}, i, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
func isIdentRune(c byte) bool { return isIdentStart(c) || isDigit(c) }

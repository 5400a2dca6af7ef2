package source

import (
	berrors "github.com/bindle-sh/bindle/pkg/errors"
)

// Validator checks module content before resolution. A failing module
// never reaches the resolver; the build aborts with the validator's
// error.
type Validator interface {
	// Validate inspects src and returns a *errors.SyntaxError describing
	// the first offending position, or nil.
	Validate(identity string, src []byte) error
}

// DelimiterValidator is the default syntax check: it verifies that
// brackets, braces, and parentheses balance outside of strings and
// comments. It is deliberately shallow - a real parser belongs in a
// transpile stage in front of the bundler - but it catches truncated and
// mis-concatenated sources before they poison a bundle.
type DelimiterValidator struct{}

// Validate implements [Validator].
func (DelimiterValidator) Validate(identity string, src []byte) error {
	type open struct {
		ch   byte
		line int
		col  int
	}
	var stack []open

	line, col := 1, 0
	var state int // 0 code, 1 single-quote, 2 double-quote, 3 template, 4 line comment, 5 block comment
	for i := 0; i < len(src); i++ {
		c := src[i]
		col++
		if c == '\n' {
			line++
			col = 0
		}

		switch state {
		case 1, 2, 3:
			quote := byte('\'')
			if state == 2 {
				quote = '"'
			} else if state == 3 {
				quote = '`'
			}
			if c == '\\' {
				i++
			} else if c == quote {
				state = 0
			} else if state != 3 && c == '\n' {
				state = 0 // unterminated line string; the engine's job is not linting
			}
		case 4:
			if c == '\n' {
				state = 0
			}
		case 5:
			if c == '*' && i+1 < len(src) && src[i+1] == '/' {
				i++
				col++
				state = 0
			}
		default:
			switch c {
			case '\'':
				state = 1
			case '"':
				state = 2
			case '`':
				state = 3
			case '/':
				if i+1 < len(src) {
					switch src[i+1] {
					case '/':
						state = 4
					case '*':
						state = 5
					}
				}
			case '(', '[', '{':
				stack = append(stack, open{ch: c, line: line, col: col})
			case ')', ']', '}':
				if len(stack) == 0 {
					return &berrors.SyntaxError{
						Identity: identity, Line: line, Column: col,
						Message: "unexpected '" + string(c) + "'",
					}
				}
				top := stack[len(stack)-1]
				if closerFor(top.ch) != c {
					return &berrors.SyntaxError{
						Identity: identity, Line: line, Column: col,
						Message: "expected '" + string(closerFor(top.ch)) + "' but found '" + string(c) + "'",
					}
				}
				stack = stack[:len(stack)-1]
			}
		}
	}

	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return &berrors.SyntaxError{
			Identity: identity, Line: top.line, Column: top.col,
			Message: "unclosed '" + string(top.ch) + "'",
		}
	}
	return nil
}

func closerFor(opener byte) byte {
	switch opener {
	case '(':
		return ')'
	case '[':
		return ']'
	default:
		return '}'
	}
}

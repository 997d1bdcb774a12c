package spec

import (
	"fmt"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	tcss "github.com/tdewolff/parse/v2/css"

	"rcss/css"
)

// SplitMode selects how value string is split into tokens.
type SplitMode int

const (
	// SplitNone keeps the value whole, only ';' separates values.
	SplitNone SplitMode = iota
	// SplitWhitespace splits on whitespace outside of quotes and parentheses.
	SplitWhitespace
	// SplitComma splits on commas outside of quotes and parentheses.
	SplitComma
)

// Tokenize splits value into tokens. Quoted strings and function calls (or any
// parenthesised group) are never split. In SplitWhitespace mode a top level
// comma joins its neighbours into one token, so "12px Arial, serif" is two
// tokens. Quotes are removed when the whole token is a single string. Comments
// separate tokens like whitespace does, empty tokens are dropped. Returns
// ErrNoValues when nothing is left. A top level ';' inside comma list is
// ErrInvalidValue.
func Tokenize(value string, mode SplitMode) ([]string, error) {
	var (
		tokens []string
		cur    strings.Builder
		depth  int
		// top level lexemes in cur and whether the only one is a string
		lexemes  int
		isString bool
		// whitespace seen and not emitted yet
		pendingSpace bool
		// last top level lexeme was a comma joining tokens
		joining bool
		// text of the last token before quotes were removed
		lastRaw string
	)

	flush := func() {
		t := strings.TrimSpace(cur.String())
		if t != "" {
			lastRaw = t
		}
		if lexemes == 1 && isString {
			t = css.Unquote(t)
		}
		if t != "" {
			tokens = append(tokens, t)
		}
		cur.Reset()
		lexemes, isString, pendingSpace = 0, false, false
	}
	write := func(s string, str bool) {
		if pendingSpace && cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		pendingSpace = false
		cur.WriteString(s)
		lexemes++
		isString = str
	}

	l := tcss.NewLexer(parse.NewInputString(value))
	for {
		tt, data := l.Next()
		if tt == tcss.ErrorToken {
			break
		}
		text := string(data)

		if depth > 0 {
			switch tt {
			case tcss.FunctionToken, tcss.LeftParenthesisToken:
				depth++
			case tcss.RightParenthesisToken:
				depth--
			case tcss.CommentToken:
				continue
			}
			cur.WriteString(text)
			continue
		}

		switch tt {
		case tcss.WhitespaceToken, tcss.CommentToken:
			if mode == SplitWhitespace && !joining {
				flush()
			} else {
				pendingSpace = true
			}
			continue
		case tcss.SemicolonToken:
			if mode == SplitComma {
				return nil, fmt.Errorf("%w: ';' in comma separated list", ErrInvalidValue)
			}
			flush()
			joining = false
		case tcss.CommaToken:
			if mode == SplitComma {
				flush()
				continue
			}
			if mode == SplitWhitespace && cur.Len() == 0 && len(tokens) > 0 {
				// "a , b": comma after whitespace reopens previous token
				cur.WriteString(lastRaw)
				tokens = tokens[:len(tokens)-1]
				lexemes = 2
			}
			pendingSpace = false
			cur.WriteString(text)
			lexemes++
			joining = true
			continue
		case tcss.StringToken, tcss.BadStringToken:
			text = strings.TrimRight(text, "\r\n\f")
			if tt == tcss.BadStringToken {
				text += text[:1]
			}
			write(text, true)
		case tcss.FunctionToken, tcss.LeftParenthesisToken:
			depth++
			write(text, false)
		default:
			write(text, false)
		}
		joining = false
	}
	flush()

	if len(tokens) == 0 {
		return nil, ErrNoValues
	}
	return tokens, nil
}

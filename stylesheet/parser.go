// Package stylesheet reads CSS stylesheets, inline style attributes and HTML
// documents, passing every declaration through property specification.
package stylesheet

import (
	"bytes"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	tcss "github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"

	"rcss/css"
	"rcss/spec"
)

// Parser parses CSS text into rules with declarations resolved by
// specification. It is safe for concurrent use as long as specification is
// sealed.
type Parser struct {
	log  *zap.Logger
	spec *spec.Specification
}

// NewParser creates a new parser over s.
func NewParser(s *spec.Specification, log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("stylesheet"), spec: s}
}

// Parse parses CSS text into a Stylesheet. Source identifies what is being
// parsed and is recorded with every declaration.
func (p *Parser) Parse(data []byte, source string) *Stylesheet {
	sheet := &Stylesheet{Source: source, spec: p.spec}
	p.parseInto(sheet, data, source, 1)
	return sheet
}

// ParseInline parses declarations of a style attribute. Line is the line the
// attribute starts at.
func (p *Parser) ParseInline(style, source string, line int) (*spec.Dictionary, []string) {
	sheet := &Stylesheet{Source: source, spec: p.spec}
	lines := newLineIndex([]byte(style), line)
	gp := tcss.NewParser(parse.NewInputString(style), true)
	dict := p.parseDeclarations(gp, lines, sheet, source)
	return dict, sheet.Warnings
}

// parseInto appends content of data to sheet, firstLine is line number data
// starts at in source.
func (p *Parser) parseInto(sheet *Stylesheet, data []byte, source string, firstLine int) {
	p.log.Debug("Parsing CSS", zap.String("source", source), zap.Int("bytes", len(data)))

	lines := newLineIndex(data, firstLine)
	gp := tcss.NewParser(parse.NewInput(bytes.NewReader(data)), false)

	for {
		start := gp.Offset()
		gt, _, tdata := gp.Next()

		switch gt {
		case tcss.ErrorGrammar:
			if !gp.HasParseError() {
				if err := gp.Err(); err != nil && err != io.EOF {
					p.log.Debug("CSS read error", zap.String("source", source), zap.Error(err))
				}
				return
			}
			line := lines.lineAfter(start)
			sheet.warn(source, line, "%v", gp.Err())
			p.log.Warn("Malformed CSS", zap.String("source", source), zap.Int("line", line), zap.Error(gp.Err()))

		case tcss.BeginAtRuleGrammar:
			name := strings.ToLower(string(tdata))
			if name == "@media" {
				mb := &MediaBlock{Query: joinTokens(gp.Values()), Line: lines.lineAfter(start)}
				mb.Rules = p.parseMediaRules(gp, lines, sheet, source)
				sheet.Items = append(sheet.Items, Item{Media: mb})
				p.log.Debug("Parsed @media block", zap.String("query", mb.Query), zap.Int("rules", len(mb.Rules)))
				continue
			}
			skipAtRuleBlock(gp)
			p.log.Debug("Skipping @-rule", zap.String("rule", name))

		case tcss.AtRuleGrammar:
			name := strings.ToLower(string(tdata))
			if name != "@import" {
				p.log.Debug("Skipping @-rule", zap.String("rule", name))
				continue
			}
			if url := extractImportURL(gp.Values()); url != "" {
				sheet.Items = append(sheet.Items, Item{Import: &url})
				p.log.Debug("Parsed @import", zap.String("url", url))
			}

		case tcss.BeginRulesetGrammar:
			rule := &Rule{Selectors: parseSelectors(gp.Values()), Line: lines.lineAfter(start)}
			rule.Properties = p.parseDeclarations(gp, lines, sheet, source)
			sheet.Items = append(sheet.Items, Item{Rule: rule})
		}
	}
}

// parseMediaRules parses rulesets until the end of @media block.
func (p *Parser) parseMediaRules(gp *tcss.Parser, lines *lineIndex, sheet *Stylesheet, source string) []Rule {
	var rules []Rule
	for {
		start := gp.Offset()
		gt, _, _ := gp.Next()
		switch gt {
		case tcss.ErrorGrammar:
			if !gp.HasParseError() {
				return rules
			}
			sheet.warn(source, lines.lineAfter(start), "%v", gp.Err())
		case tcss.EndAtRuleGrammar:
			return rules
		case tcss.BeginAtRuleGrammar:
			skipAtRuleBlock(gp)
		case tcss.BeginRulesetGrammar:
			rule := Rule{Selectors: parseSelectors(gp.Values()), Line: lines.lineAfter(start)}
			rule.Properties = p.parseDeclarations(gp, lines, sheet, source)
			rules = append(rules, rule)
		}
	}
}

// parseDeclarations feeds declarations into specification until the end of
// the block. Rejected declarations become warnings and never stop parsing.
func (p *Parser) parseDeclarations(gp *tcss.Parser, lines *lineIndex, sheet *Stylesheet, source string) *spec.Dictionary {
	dict := spec.NewDictionary()
	for {
		start := gp.Offset()
		gt, _, tdata := gp.Next()

		switch gt {
		case tcss.ErrorGrammar:
			if !gp.HasParseError() {
				return dict
			}
			line := lines.lineAfter(start)
			sheet.warn(source, line, "%v", gp.Err())
			p.log.Warn("Malformed declaration", zap.String("source", source), zap.Int("line", line), zap.Error(gp.Err()))

		case tcss.EndRulesetGrammar:
			return dict

		case tcss.DeclarationGrammar:
			name := string(tdata)
			value, important := declarationValue(gp.Values())
			line := lines.lineAfter(start)
			if important {
				p.log.Debug("Ignoring !important", zap.String("property", name), zap.String("source", source), zap.Int("line", line))
			}
			if err := p.spec.ParsePropertyDeclaration(dict, name, value, source, line); err != nil {
				sheet.warn(source, line, "%v", err)
				p.log.Warn("Declaration ignored", zap.String("source", source), zap.Int("line", line), zap.Error(err))
			}

		case tcss.CustomPropertyGrammar:
			p.log.Debug("Skipping custom property", zap.String("name", string(tdata)))
		}
	}
}

// declarationValue rebuilds declaration value text from parser tokens and
// strips trailing !important.
func declarationValue(tokens []tcss.Token) (string, bool) {
	value := joinTokens(tokens)
	lower := strings.ToLower(value)
	if before, found := strings.CutSuffix(lower, "!important"); found {
		return strings.TrimSpace(value[:len(before)]), true
	}
	return value, false
}

func joinTokens(tokens []tcss.Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.Write(t.Data)
	}
	return strings.TrimSpace(sb.String())
}

// parseSelectors splits ruleset prelude into selectors.
func parseSelectors(tokens []tcss.Token) []string {
	var (
		selectors []string
		sb        strings.Builder
		depth     int
	)
	flush := func() {
		if s := strings.Join(strings.Fields(sb.String()), " "); s != "" {
			selectors = append(selectors, s)
		}
		sb.Reset()
	}
	for _, t := range tokens {
		switch t.TokenType {
		case tcss.FunctionToken, tcss.LeftParenthesisToken, tcss.LeftBracketToken:
			depth++
		case tcss.RightParenthesisToken, tcss.RightBracketToken:
			depth--
		case tcss.CommaToken:
			if depth == 0 {
				flush()
				continue
			}
		}
		sb.Write(t.Data)
	}
	flush()
	return selectors
}

// extractImportURL extracts the URL from @import tokens.
// Handles: @import "url"; @import url("url"); @import url(url);
func extractImportURL(tokens []tcss.Token) string {
	for _, t := range tokens {
		switch t.TokenType {
		case tcss.StringToken:
			return css.Unquote(string(t.Data))
		case tcss.URLToken:
			s := strings.TrimSuffix(string(t.Data), ")")
			s = s[strings.IndexByte(s, '(')+1:]
			return css.Unquote(s)
		}
	}
	return ""
}

// skipAtRuleBlock skips grammar until the matching end of an @-rule block.
func skipAtRuleBlock(gp *tcss.Parser) {
	depth := 1
	for depth > 0 {
		gt, _, _ := gp.Next()
		switch gt {
		case tcss.ErrorGrammar:
			if !gp.HasParseError() {
				return
			}
		case tcss.BeginAtRuleGrammar, tcss.BeginRulesetGrammar:
			depth++
		case tcss.EndAtRuleGrammar, tcss.EndRulesetGrammar:
			depth--
		}
	}
}

// lineIndex maps byte offsets of data to line numbers.
type lineIndex struct {
	data  []byte
	first int
	// offsets of line starts
	starts []int
}

func newLineIndex(data []byte, first int) *lineIndex {
	li := &lineIndex{data: data, first: first, starts: []int{0}}
	for i, b := range data {
		if b == '\n' {
			li.starts = append(li.starts, i+1)
		}
	}
	return li
}

// lineAfter returns line of the first non-space byte at or after offset.
func (li *lineIndex) lineAfter(offset int) int {
	for offset < len(li.data) && isSpace(li.data[offset]) {
		offset++
	}
	// last line start not greater than offset
	lo, hi := 0, len(li.starts)
	for lo+1 < hi {
		mid := (lo + hi) / 2
		if li.starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid
		}
	}
	return li.first + lo
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}

package formulagraph

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/xuri/efp"
)

// ErrFormulaSyntax is wrapped by every error returned from Parser.Parse.
var ErrFormulaSyntax = errors.New("formula syntax error")

// sheetResolver resolves sheet names found in references.
type sheetResolver interface {
	ID(name string) (int, bool)
}

// tokenEntry keeps the text next to its tokens so hash collisions are
// detected on load.
type tokenEntry struct {
	text   string
	tokens []efp.Token
}

// Parser turns formula text into an Ast. Tokenizing is delegated to efp and
// cached by formula text; building the tree depends on the formula address
// and is done on every call.
type Parser struct {
	sheets sheetResolver
	cache  *lruCache[uint64, tokenEntry]
}

// NewParser creates a parser resolving sheet names with sheets and caching
// up to cacheSize token lists.
func NewParser(sheets sheetResolver, cacheSize int) *Parser {
	return &Parser{sheets: sheets, cache: newLRUCache[uint64, tokenEntry](cacheSize)}
}

// tokens returns the efp token stream of text.
func (p *Parser) tokens(text string) []efp.Token {
	key := xxhash.Sum64String(text)
	if entry, ok := p.cache.Load(key); ok && entry.text == text {
		return entry.tokens
	}
	ps := efp.ExcelParser()
	tokens := ps.Parse(text)
	p.cache.Store(key, tokenEntry{text: text, tokens: tokens})
	return tokens
}

// Parse parses formula, with or without its leading "=", as written in the
// cell base.
func (p *Parser) Parse(formula string, base SimpleCellAddress) (*Ast, error) {
	text := strings.TrimPrefix(strings.TrimSpace(formula), "=")
	if text == "" {
		return nil, fmt.Errorf("%w: empty formula", ErrFormulaSyntax)
	}
	b := &astBuilder{p: p, tokens: p.tokens(text), base: base}
	ast, err := b.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if b.pos < len(b.tokens) {
		return nil, fmt.Errorf("%w: unexpected %q", ErrFormulaSyntax, b.tokens[b.pos].TValue)
	}
	return ast, nil
}

// astBuilder is a precedence climbing parser over efp tokens.
type astBuilder struct {
	p      *Parser
	tokens []efp.Token
	pos    int
	base   SimpleCellAddress
}

var binaryPrecedence = map[string]int{
	"=": 1, "<>": 1, "<": 1, ">": 1, "<=": 1, ">=": 1,
	"&": 2,
	"+": 3, "-": 3,
	"*": 4, "/": 4,
	"^": 5,
}

func (b *astBuilder) peek() *efp.Token {
	if b.pos < len(b.tokens) {
		return &b.tokens[b.pos]
	}
	return nil
}

func (b *astBuilder) next() *efp.Token {
	t := b.peek()
	if t != nil {
		b.pos++
	}
	return t
}

func (b *astBuilder) parseExpression(minPrec int) (*Ast, error) {
	left, err := b.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := b.peek()
		if t == nil || t.TType != efp.TokenTypeOperatorInfix {
			return left, nil
		}
		if t.TSubType == efp.TokenSubTypeIntersection || t.TSubType == efp.TokenSubTypeUnion {
			return nil, fmt.Errorf("%w: unsupported reference operator %q", ErrFormulaSyntax, t.TValue)
		}
		prec, ok := binaryPrecedence[t.TValue]
		if !ok {
			return nil, fmt.Errorf("%w: unknown operator %q", ErrFormulaSyntax, t.TValue)
		}
		if prec < minPrec {
			return left, nil
		}
		b.pos++
		right, err := b.parseExpression(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &Ast{Type: AstBinary, Op: t.TValue, Args: []*Ast{left, right}}
	}
}

func (b *astBuilder) parseUnary() (*Ast, error) {
	t := b.peek()
	if t != nil && t.TType == efp.TokenTypeOperatorPrefix {
		b.pos++
		operand, err := b.parseUnary()
		if err != nil {
			return nil, err
		}
		kind := AstUnaryMinus
		if t.TValue == "+" {
			kind = AstUnaryPlus
		}
		return &Ast{Type: kind, Args: []*Ast{operand}}, nil
	}
	operand, err := b.parsePrimary()
	if err != nil {
		return nil, err
	}
	for t := b.peek(); t != nil && t.TType == efp.TokenTypeOperatorPostfix; t = b.peek() {
		b.pos++
		operand = &Ast{Type: AstPercent, Args: []*Ast{operand}}
	}
	return operand, nil
}

func (b *astBuilder) parsePrimary() (*Ast, error) {
	t := b.next()
	if t == nil {
		return nil, fmt.Errorf("%w: unexpected end of formula", ErrFormulaSyntax)
	}
	switch t.TType {
	case efp.TokenTypeOperand:
		return b.parseOperand(t)
	case efp.TokenTypeSubexpression:
		if t.TSubType != efp.TokenSubTypeStart {
			break
		}
		inner, err := b.parseExpression(0)
		if err != nil {
			return nil, err
		}
		if stop := b.next(); stop == nil || stop.TType != efp.TokenTypeSubexpression || stop.TSubType != efp.TokenSubTypeStop {
			return nil, fmt.Errorf("%w: missing closing parenthesis", ErrFormulaSyntax)
		}
		return &Ast{Type: AstParenthesis, Args: []*Ast{inner}}, nil
	case efp.TokenTypeFunction:
		if t.TSubType != efp.TokenSubTypeStart {
			break
		}
		if t.TValue == "ARRAY" {
			return b.parseArray()
		}
		args, err := b.parseArguments()
		if err != nil {
			return nil, err
		}
		return &Ast{Type: AstFunctionCall, Name: strings.ToUpper(t.TValue), Args: args}, nil
	}
	return nil, fmt.Errorf("%w: unexpected %q", ErrFormulaSyntax, t.TValue)
}

// parseArguments reads comma separated arguments up to the function stop.
// Missing arguments become AstEmpty nodes.
func (b *astBuilder) parseArguments() ([]*Ast, error) {
	var args []*Ast
	if t := b.peek(); t != nil && t.TType == efp.TokenTypeFunction && t.TSubType == efp.TokenSubTypeStop {
		b.pos++
		return args, nil
	}
	for {
		t := b.peek()
		if t == nil {
			return nil, fmt.Errorf("%w: missing closing parenthesis", ErrFormulaSyntax)
		}
		var arg *Ast
		if t.TType == efp.TokenTypeArgument || (t.TType == efp.TokenTypeFunction && t.TSubType == efp.TokenSubTypeStop) {
			arg = &Ast{Type: AstEmpty}
		} else {
			var err error
			if arg, err = b.parseExpression(0); err != nil {
				return nil, err
			}
		}
		args = append(args, arg)
		t = b.next()
		switch {
		case t == nil:
			return nil, fmt.Errorf("%w: missing closing parenthesis", ErrFormulaSyntax)
		case t.TType == efp.TokenTypeArgument:
			continue
		case t.TType == efp.TokenTypeFunction && t.TSubType == efp.TokenSubTypeStop:
			return args, nil
		default:
			return nil, fmt.Errorf("%w: unexpected %q in arguments", ErrFormulaSyntax, t.TValue)
		}
	}
}

// parseArray reads {a,b;c,d}, tokenized by efp as ARRAY(ARRAYROW(a,b),
// ARRAYROW(c,d)).
func (b *astBuilder) parseArray() (*Ast, error) {
	node := &Ast{Type: AstArray}
	for {
		t := b.next()
		if t == nil || t.TType != efp.TokenTypeFunction {
			return nil, fmt.Errorf("%w: malformed array literal", ErrFormulaSyntax)
		}
		if t.TSubType == efp.TokenSubTypeStop {
			break
		}
		row, err := b.parseArguments()
		if err != nil {
			return nil, err
		}
		node.Rows = append(node.Rows, row)
		if sep := b.peek(); sep != nil && sep.TType == efp.TokenTypeArgument {
			b.pos++
		}
	}
	width := -1
	for _, row := range node.Rows {
		if width >= 0 && len(row) != width {
			return nil, fmt.Errorf("%w: array rows differ in length", ErrFormulaSyntax)
		}
		width = len(row)
	}
	if width <= 0 {
		return nil, fmt.Errorf("%w: empty array literal", ErrFormulaSyntax)
	}
	return node, nil
}

func (b *astBuilder) parseOperand(t *efp.Token) (*Ast, error) {
	switch t.TSubType {
	case efp.TokenSubTypeNumber:
		n, err := strconv.ParseFloat(t.TValue, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q", ErrFormulaSyntax, t.TValue)
		}
		return &Ast{Type: AstNumber, Number: n}, nil
	case efp.TokenSubTypeText:
		return &Ast{Type: AstString, String: t.TValue}, nil
	case efp.TokenSubTypeLogical:
		return &Ast{Type: AstBoolean, Boolean: strings.EqualFold(t.TValue, "TRUE")}, nil
	case efp.TokenSubTypeError:
		if et, ok := parseErrorLiteral(t.TValue); ok {
			return &Ast{Type: AstError, Error: et}, nil
		}
		return nil, fmt.Errorf("%w: unknown error literal %q", ErrFormulaSyntax, t.TValue)
	case efp.TokenSubTypeRange:
		switch strings.ToUpper(t.TValue) {
		case "TRUE":
			return &Ast{Type: AstBoolean, Boolean: true}, nil
		case "FALSE":
			return &Ast{Type: AstBoolean}, nil
		}
		return b.parseReference(t.TValue)
	}
	return nil, fmt.Errorf("%w: unexpected operand %q", ErrFormulaSyntax, t.TValue)
}

// parseReference parses A1, $A$1:B2, A:C, 3:5 and their sheet-prefixed
// forms. Anything else is a name.
func (b *astBuilder) parseReference(text string) (*Ast, error) {
	sheet := -1
	body := text
	if i := strings.LastIndexByte(text, '!'); i >= 0 {
		name := text[:i]
		if len(name) > 1 && name[0] == '\'' && name[len(name)-1] == '\'' {
			name = strings.ReplaceAll(name[1:len(name)-1], "''", "'")
		}
		id, ok := b.p.sheets.ID(name)
		if !ok {
			return errorAst(ErrorRef, "unknown sheet "+name), nil
		}
		sheet, body = id, text[i+1:]
	}
	parts := strings.Split(body, ":")
	switch len(parts) {
	case 1:
		tok, ok := splitCellReference(parts[0])
		if !ok || !tok.hasCol || !tok.hasRow {
			if sheet >= 0 {
				return nil, fmt.Errorf("%w: bad reference %q", ErrFormulaSyntax, text)
			}
			return &Ast{Type: AstName, Name: strings.ToUpper(text)}, nil
		}
		return &Ast{Type: AstCellReference, Ref: b.cellAddress(tok, sheet)}, nil
	case 2:
		first, ok1 := splitCellReference(parts[0])
		second, ok2 := splitCellReference(parts[1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("%w: bad range %q", ErrFormulaSyntax, text)
		}
		start, end := b.cellAddress(first, sheet), b.cellAddress(second, sheet)
		switch {
		case first.hasCol && first.hasRow && second.hasCol && second.hasRow:
			return &Ast{Type: AstCellRange, Ref: start, End: end}, nil
		case first.hasCol && !first.hasRow && second.hasCol && !second.hasRow:
			return &Ast{Type: AstColumnRange, Ref: start, End: end}, nil
		case !first.hasCol && first.hasRow && !second.hasCol && second.hasRow:
			return &Ast{Type: AstRowRange, Ref: start, End: end}, nil
		}
	}
	return nil, fmt.Errorf("%w: bad reference %q", ErrFormulaSyntax, text)
}

// cellAddress converts a parsed token to a reference relative to the
// formula cell.
func (b *astBuilder) cellAddress(tok cellToken, sheet int) CellAddress {
	c := CellAddress{Sheet: sheet, Col: tok.col, Row: tok.row, ColAbsolute: tok.colAbs, RowAbsolute: tok.rowAbs}
	if tok.hasCol && !tok.colAbs {
		c.Col -= b.base.Col
	}
	if tok.hasRow && !tok.rowAbs {
		c.Row -= b.base.Row
	}
	return c
}

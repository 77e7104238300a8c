package winf

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

type prefixParseFn func() Expression

type ErrorLevel int

const (
	ErrorLevelLint ErrorLevel = iota
	ErrorLevelFmt
)

func (el ErrorLevel) String() string {
	switch el {
	case ErrorLevelLint:
		return "LINT"
	case ErrorLevelFmt:
		return "FMT"
	default:
		return "UNKNOWN"
	}
}

type ErrorType int

const (
	ErrUnknown ErrorType = iota
	ErrUnexpectedToken
	ErrUnexpectedIndent
	ErrMissingValue
	ErrUnterminatedLiteral
	ErrInvalidLiteral
	ErrDuplicateKey
)

type LintError struct {
	Line      int        `json:"line"`
	Column    int        `json:"column"`
	EndLine   int        `json:"endLine"`
	EndColumn int        `json:"endColumn"`
	Message   string     `json:"message"`
	Level     ErrorLevel `json:"level"`
	Type      ErrorType  `json:"type"`
	Args      []string   `json:"args,omitempty"`
}

func (e LintError) Error() string {
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message)
}

// Parser 从 Token 流构造树. 任何没有产生式可以推进的位置都会变成一个
// 显式的错误标记节点 (BadStatement), 解析在其后继续.
type Parser struct {
	l              *Lexer
	errors         []string
	curToken       Token
	peekToken      Token
	prefixParseFns map[TokenType]prefixParseFn
	LintMode       bool
	lintErrors     []LintError
}

func NewParser(l *Lexer) *Parser {
	p := &Parser{
		l:          l,
		errors:     []string{},
		lintErrors: []LintError{},
	}
	p.prefixParseFns = make(map[TokenType]prefixParseFn)
	p.registerPrefix(STRING, p.parseStringLiteral)
	p.registerPrefix(NUMBER, p.parseNumberLiteral)
	p.registerPrefix(BOOL, p.parseBoolLiteral)
	p.registerPrefix(NULL, p.parseNullLiteral)
	p.registerPrefix(NAN, p.parseNaNLiteral)
	p.registerPrefix(INF, p.parseInfLiteral)
	p.registerPrefix(BLOCK_STRING, p.parseBlockStringLiteral)
	p.registerPrefix(FOLDED_STRING, p.parseFoldedStringLiteral)
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) Errors() []string {
	return p.errors
}
func (p *Parser) SetLintMode(enabled bool) {
	p.LintMode = enabled
}
func (p *Parser) LintErrors() []LintError {
	return p.lintErrors
}
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) ParseDocument() *DocumentNode {
	doc := getDocumentNode()
	for !p.curTokenIs(EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			doc.Statements = append(doc.Statements, stmt)
		}
	}
	return doc
}

func (p *Parser) parseStatement() Statement {
	switch p.curToken.Type {
	case NEWLINE, DEDENT:
		p.nextToken()
		return nil
	case INDENT:
		return p.badStatement("unexpected indentation", ErrUnexpectedIndent)
	case KEY:
		return p.parseEntry()
	case STRING:
		if p.peekTokenIs(COLON) || p.peekTokenIs(DCOLON) {
			return p.parseEntry()
		}
	case LIST_MARK:
		return p.parseListItem()
	}
	msg := fmt.Sprintf("unexpected token %s (%s)", p.curToken.Type, string(p.curToken.Literal))
	if p.curToken.Type == ILLEGAL {
		msg = fmt.Sprintf("unterminated or illegal literal starting at %q", string(p.curToken.Literal))
		return p.badStatement(msg, ErrUnterminatedLiteral)
	}
	return p.badStatement(msg, ErrUnexpectedToken)
}

// parseEntry parses `key: value` or `key::` with its indented body.
// The current token is a bare or quoted key.
func (p *Parser) parseEntry() Statement {
	keyTok := p.curToken
	name := p.parseKeyName()
	switch p.peekToken.Type {
	case COLON:
		return p.parseProperty(keyTok, name)
	case DCOLON:
		return p.parseBlock(keyTok, name)
	}
	msg := fmt.Sprintf("expected ':' or '::' after key %q", name.Value)
	releaseIdentifier(name)
	return p.badStatement(msg, ErrUnexpectedToken)
}

func (p *Parser) parseKeyName() *Identifier {
	name := getIdentifier()
	name.Token = p.curToken
	if p.curTokenIs(STRING) {
		name.Value = unquoteString(p.curToken.Literal)
		name.Quoted = true
	} else {
		// The input buffer is immutable, so the key can alias it.
		name.Value = BytesToString(p.curToken.Literal)
	}
	return name
}

func (p *Parser) parseProperty(keyTok Token, name *Identifier) Statement {
	stmt := getPropertyStatement()
	stmt.Token = keyTok
	stmt.Name = name
	p.nextToken() // ':'
	if p.peekTokenIs(NEWLINE) || p.peekTokenIs(DEDENT) || p.peekTokenIs(EOF) {
		p.reportError(keyTok, p.curToken, fmt.Sprintf("missing value for key %q", name.Value), ErrMissingValue)
		p.nextToken()
		stmt.Reset()
		propertyStatementPool.Put(stmt)
		bad := getBadStatement()
		bad.Token = keyTok
		bad.EndPos = keyTok.End
		bad.Message = fmt.Sprintf("missing value for key %q", name.Value)
		return bad
	}
	p.nextToken()
	stmt.Value = p.parseExpression()
	if stmt.Value == nil {
		stmt.Reset()
		propertyStatementPool.Put(stmt)
		return p.badStatement(fmt.Sprintf("invalid value for key %q", name.Value), ErrInvalidLiteral)
	}
	p.nextToken()
	p.expectLineEnd()
	return stmt
}

func (p *Parser) parseBlock(keyTok Token, name *Identifier) Statement {
	stmt := getBlockStatement()
	stmt.Token = keyTok
	stmt.Name = name
	p.nextToken() // '::'
	if !p.peekTokenIs(NEWLINE) && !p.peekTokenIs(EOF) {
		stmt.Reset()
		blockStatementPool.Put(stmt)
		return p.badStatement(fmt.Sprintf("expected newline after %q::", name.Value), ErrUnexpectedToken)
	}
	for p.peekTokenIs(NEWLINE) {
		p.nextToken()
	}
	if p.peekTokenIs(INDENT) {
		p.nextToken() // INDENT
		p.nextToken() // first body token
		stmt.Body = p.parseBlockBody()
	} else {
		stmt.Body = getDocumentNode()
		p.nextToken()
	}
	return stmt
}

// parseBlockBody consumes statements until the matching DEDENT.
func (p *Parser) parseBlockBody() *DocumentNode {
	body := getDocumentNode()
	for !p.curTokenIs(DEDENT) && !p.curTokenIs(EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			body.Statements = append(body.Statements, stmt)
		}
	}
	if p.curTokenIs(DEDENT) {
		p.nextToken()
	}
	return body
}

func (p *Parser) parseListItem() Statement {
	stmt := getListItemStatement()
	stmt.Token = p.curToken
	if p.peekTokenIs(NEWLINE) {
		// A dash alone opens a nested block item.
		p.nextToken() // NEWLINE
		if p.peekTokenIs(INDENT) {
			p.nextToken() // INDENT
			p.nextToken() // first body token
			lit := getBlockLiteral()
			lit.Token = stmt.Token
			lit.Body = p.parseBlockBody()
			stmt.Value = lit
			return stmt
		}
		dashTok := stmt.Token
		stmt.Reset()
		listItemStatementPool.Put(stmt)
		p.reportError(dashTok, dashTok, "missing value for list item", ErrMissingValue)
		bad := getBadStatement()
		bad.Token = dashTok
		bad.EndPos = dashTok.End
		bad.Message = "missing value for list item"
		return bad
	}
	p.nextToken()
	stmt.Value = p.parseExpression()
	if stmt.Value == nil {
		stmt.Reset()
		listItemStatementPool.Put(stmt)
		return p.badStatement("invalid value for list item", ErrInvalidLiteral)
	}
	p.nextToken()
	p.expectLineEnd()
	return stmt
}

// expectLineEnd checks that a completed statement is followed by a line
// boundary; trailing garbage becomes a diagnostic but the statement stands.
func (p *Parser) expectLineEnd() {
	if p.curTokenIs(NEWLINE) || p.curTokenIs(DEDENT) || p.curTokenIs(EOF) {
		return
	}
	from := p.curToken
	to := p.curToken
	for !p.curTokenIs(NEWLINE) && !p.curTokenIs(DEDENT) && !p.curTokenIs(EOF) {
		to = p.curToken
		p.nextToken()
	}
	p.reportError(from, to, fmt.Sprintf("unexpected trailing input %q", string(from.Literal)), ErrUnexpectedToken)
}

// badStatement 消费到下一个行边界为止的所有 Token, 并产出错误标记节点.
func (p *Parser) badStatement(msg string, typ ErrorType) *BadStatement {
	bad := getBadStatement()
	bad.Token = p.curToken
	bad.Message = msg
	last := p.curToken
	p.nextToken()
	for !p.curTokenIs(NEWLINE) && !p.curTokenIs(DEDENT) && !p.curTokenIs(INDENT) && !p.curTokenIs(EOF) {
		last = p.curToken
		p.nextToken()
	}
	bad.EndPos = last.End
	p.reportError(bad.Token, last, msg, typ)
	return bad
}

func (p *Parser) parseExpression() Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}
	return prefix()
}

func (p *Parser) parseStringLiteral() Expression {
	lit := getStringLiteral()
	lit.Token = p.curToken
	lit.Value = unquoteString(p.curToken.Literal)
	return lit
}

func (p *Parser) parseNumberLiteral() Expression {
	text := BytesToString(p.curToken.Literal)
	if isDecimalFloat(text) {
		f, err := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64)
		if err != nil {
			p.reportError(p.curToken, p.curToken, fmt.Sprintf("could not parse %q as float", text), ErrInvalidLiteral)
			return nil
		}
		lit := getFloatLiteral()
		lit.Token = p.curToken
		lit.Value = f
		return lit
	}
	// This conversion creates an allocation.
	v, err := strconv.ParseInt(strings.ReplaceAll(text, "_", ""), 0, 64)
	if err != nil {
		p.reportError(p.curToken, p.curToken, fmt.Sprintf("could not parse %q as integer", text), ErrInvalidLiteral)
		return nil
	}
	lit := getIntegerLiteral()
	lit.Token = p.curToken
	lit.Value = v
	return lit
}

// isDecimalFloat reports whether a number literal is a decimal float.
// Base-prefixed literals are always integers; 0x1E carries no exponent.
func isDecimalFloat(text string) bool {
	s := strings.TrimLeft(text, "+-")
	if len(s) > 1 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X', 'o', 'O', 'b', 'B':
			return false
		}
	}
	return strings.ContainsAny(s, ".eE")
}

func (p *Parser) parseBoolLiteral() Expression {
	lit := getBoolLiteral()
	lit.Token = p.curToken
	lit.Value = string(p.curToken.Literal) == "true"
	return lit
}

func (p *Parser) parseNullLiteral() Expression {
	lit := getNullLiteral()
	lit.Token = p.curToken
	return lit
}

func (p *Parser) parseNaNLiteral() Expression {
	lit := getFloatLiteral()
	lit.Token = p.curToken
	lit.Value = math.NaN()
	return lit
}

func (p *Parser) parseInfLiteral() Expression {
	lit := getFloatLiteral()
	lit.Token = p.curToken
	sign := 1
	if len(p.curToken.Literal) > 0 && p.curToken.Literal[0] == '-' {
		sign = -1
	}
	lit.Value = math.Inf(sign)
	return lit
}

func (p *Parser) parseBlockStringLiteral() Expression {
	lit := getBlockStringLiteral()
	lit.Token = p.curToken
	lit.Value = fencedBody(p.curToken.Literal)
	return lit
}

func (p *Parser) parseFoldedStringLiteral() Expression {
	lit := getFoldedStringLiteral()
	lit.Token = p.curToken
	lit.Value = fencedBody(p.curToken.Literal)
	return lit
}

// fencedBody 从多行字符串 Token 的原始跨度中提取块体: 去掉两端围栏,
// 围栏紧邻的终止符, 以及每行头部与块缩进对应的空白 (闭栏缩进加一步).
// 扫描器只捕获原始跨度, 这一转换属于消费层.
func fencedBody(raw []byte) string {
	if len(raw) < 3 {
		return ""
	}
	fence := raw[0]
	i := 3
	if i < len(raw) && isLineTerm(raw[i]) {
		i += termWidth(raw, i)
	}
	end := len(raw)
	strip := 0
	if end >= i+3 && raw[end-1] == fence && raw[end-2] == fence && raw[end-3] == fence {
		end -= 3
		for end > i && (raw[end-1] == ' ' || raw[end-1] == '\t') {
			end--
			strip++
		}
		if end > i && raw[end-1] == '\n' {
			end--
			if end > i && raw[end-1] == '\r' {
				end--
			}
		} else if end > i && raw[end-1] == '\r' {
			end--
		}
	}
	strip += IndentStep
	body := raw[i:end]
	lines := strings.Split(string(body), "\n")
	for li, line := range lines {
		removed := 0
		for removed < strip && removed < len(line) && (line[removed] == ' ' || line[removed] == '\t') {
			removed++
		}
		lines[li] = line[removed:]
	}
	return strings.Join(lines, "\n")
}

// unquoteString 解开单行字符串的引号与转义. 转义合法性已由扫描器校验.
func unquoteString(raw []byte) string {
	if len(raw) < 2 {
		return ""
	}
	buf := make([]byte, 0, len(raw)-2)
	for i := 1; i < len(raw)-1; {
		c := raw[i]
		if c != '\\' {
			buf = append(buf, c)
			i++
			continue
		}
		e := raw[i+1]
		switch e {
		case 'u':
			v, _ := strconv.ParseUint(string(raw[i+2:i+6]), 16, 32)
			buf = utf8.AppendRune(buf, rune(v))
			i += 6
			continue
		case 'b':
			buf = append(buf, '\b')
		case 'f':
			buf = append(buf, '\f')
		case 'n':
			buf = append(buf, '\n')
		case 'r':
			buf = append(buf, '\r')
		case 't':
			buf = append(buf, '\t')
		default: // '"', '\\', '/'
			buf = append(buf, e)
		}
		i += 2
	}
	return string(buf)
}

func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) reportError(from, to Token, msg string, typ ErrorType) {
	if p.LintMode {
		p.lintErrors = append(p.lintErrors, LintError{
			Line:      from.Line,
			Column:    from.Column,
			EndLine:   to.Line,
			EndColumn: to.Column + len(to.Literal),
			Message:   msg,
			Level:     ErrorLevelLint,
			Type:      typ,
		})
		return
	}
	p.errors = append(p.errors, fmt.Sprintf("%s on line %d", msg, from.Line))
}

func (p *Parser) noPrefixParseFnError(tok Token) {
	msg := fmt.Sprintf("unexpected token %s (%s) in value position", tok.Type, string(tok.Literal))
	if tok.Type == ILLEGAL {
		msg = fmt.Sprintf("unterminated or illegal literal starting at %q", string(tok.Literal))
	}
	p.reportError(tok, tok, msg, ErrUnexpectedToken)
}

func (p *Parser) registerPrefix(tokenType TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

package winf

// Lexer 以按需拉取的方式驱动纯扫描器族, 并携带唯一一份跨调用状态:
// 当前缩进上下文. 所有字段都是值类型, Fork 产生的拷贝完全独立.
type Lexer struct {
	input  []byte // 使用 []byte 避免复制
	pos    int
	ctx    IndentContext
	line   int
	column int

	// 边界扫描器接受的 INDENT 跨度覆盖终止符加空白; 驱动层将其拆成
	// NEWLINE 与 INDENT 两个 Token, 后者暂存于此.
	pending    Token
	hasPending bool
}

func NewLexer(input []byte) *Lexer {
	return &Lexer{input: input, line: 1}
}

// Fork 返回一个独立拷贝, 供推测性解析分支使用. 被放弃的分支直接丢弃
// 拷贝即可, 不会影响其它分支.
func (l *Lexer) Fork() *Lexer {
	c := *l
	return &c
}

// Context returns the current indentation context.
func (l *Lexer) Context() IndentContext {
	return l.ctx
}

func (l *Lexer) NextToken() Token {
	if l.hasPending {
		l.hasPending = false
		return l.emit(l.pending)
	}
	if l.pos == 0 {
		if tok, ok := scanLeadingIndent(l.input); ok {
			return l.emit(tok)
		}
	}
	for {
		// Line-boundary-class positions: end of input and terminators.
		if l.pos >= len(l.input) || isLineTerm(l.input[l.pos]) {
			if tok, ok := ScanLineBoundary(l.input, l.pos, l.ctx); ok {
				if tok.Type == INDENT {
					w := termWidth(l.input, tok.Start)
					l.pending = Token{Type: INDENT, Literal: l.input[tok.Start+w : tok.End], Start: tok.Start + w, End: tok.End}
					l.hasPending = true
					return l.emit(Token{Type: NEWLINE, Literal: l.input[tok.Start : tok.Start+w], Start: tok.Start, End: tok.Start + w})
				}
				return l.emit(tok)
			}
			// The boundary scanner declines at end of input only once
			// the context is back to zero.
			return l.emit(Token{Type: EOF, Literal: l.input[l.pos:l.pos], Start: l.pos, End: l.pos})
		}
		c := l.input[l.pos]
		if c == ' ' || c == '\t' {
			l.pos++
			l.column++
			continue
		}
		if c == '#' {
			for l.pos < len(l.input) && !isLineTerm(l.input[l.pos]) {
				l.pos++
				l.column++
			}
			continue
		}
		break
	}

	start := l.pos
	c := l.input[start]

	if c == ':' {
		if start+1 < len(l.input) && l.input[start+1] == ':' {
			return l.emit(Token{Type: DCOLON, Literal: l.input[start : start+2], Start: start, End: start + 2})
		}
		return l.emit(Token{Type: COLON, Literal: l.input[start : start+1], Start: start, End: start + 1})
	}

	// Fences before plain strings: `"""` would otherwise scan as an empty
	// single-line string.
	if _, ok := fenceAt(l.input, start); ok {
		if tok, ok := ScanMultilineString(l.input, start, l.ctx); ok {
			return l.emit(tok)
		}
		// Unterminated block. Emit the fence as an illegal token so the
		// grammar layer surfaces an error marker and scanning advances.
		return l.emit(Token{Type: ILLEGAL, Literal: l.input[start : start+3], Start: start, End: start + 3})
	}
	if c == '"' {
		if tok, ok := ScanString(l.input, start); ok {
			return l.emit(tok)
		}
		return l.emit(Token{Type: ILLEGAL, Literal: l.input[start : start+1], Start: start, End: start + 1})
	}

	if tok, ok := ScanKey(l.input, start); ok {
		return l.emit(tok)
	}
	if isKeyStart(c) {
		// The key scanner declined, so this span is a reserved word.
		i := start + 1
		for i < len(l.input) && isKeyChar(l.input[i]) {
			i++
		}
		typ, _ := LookupKeyword(l.input[start:i])
		return l.emit(Token{Type: typ, Literal: l.input[start:i], Start: start, End: i})
	}

	if c == '+' || c == '-' {
		if tok, ok := l.signedKeyword(start); ok {
			return l.emit(tok)
		}
	}
	if tok, ok := ScanNumber(l.input, start); ok {
		return l.emit(tok)
	}
	if tok, ok := ScanListMark(l.input, start); ok {
		return l.emit(tok)
	}

	return l.emit(Token{Type: ILLEGAL, Literal: l.input[start : start+1], Start: start, End: start + 1})
}

// scanLeadingIndent 只作用于输入起点: 文档首行在内容之前出现空白时产出
// INDENT, 交由语法层报告首行不允许缩进. 空行与纯注释行不受影响.
func scanLeadingIndent(src []byte) (Token, bool) {
	i := 0
	for i < len(src) && (src[i] == ' ' || src[i] == '\t') {
		i++
	}
	if i == 0 || i >= len(src) || isLineTerm(src[i]) || src[i] == '#' {
		return Token{}, false
	}
	return Token{Type: INDENT, Literal: src[:i], Start: 0, End: i}, true
}

// signedKeyword resolves +inf, -inf, +nan and -nan at the keyword layer.
func (l *Lexer) signedKeyword(start int) (Token, bool) {
	i := start + 1
	if i >= len(l.input) || !isKeyStart(l.input[i]) {
		return Token{}, false
	}
	j := i
	for j < len(l.input) && isKeyChar(l.input[j]) {
		j++
	}
	switch typ, _ := LookupKeyword(l.input[i:j]); typ {
	case INF:
		return Token{Type: INF, Literal: l.input[start:j], Start: start, End: j}, true
	case NAN:
		return Token{Type: NAN, Literal: l.input[start:j], Start: start, End: j}, true
	}
	return Token{}, false
}

// emit stamps the position, consumes the token's span and applies the
// indentation tracker: INDENT advances the context one step, DEDENT
// retreats one step, everything else leaves it unchanged.
func (l *Lexer) emit(tok Token) Token {
	tok.Line = l.line
	tok.Column = l.column
	for _, b := range tok.Literal {
		if b == '\n' {
			l.line++
			l.column = 0
		} else {
			l.column++
		}
	}
	l.pos = tok.End
	l.ctx = l.ctx.Apply(tok)
	return tok
}

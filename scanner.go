package winf

// 本文件实现纯扫描器族: 每个扫描器都是 (缓冲区, 偏移量, 缩进上下文) 的纯函数,
// 要么接受并返回一个带跨度的 Token, 要么拒绝且不产生任何副作用.
// 解析器可能在回溯/分叉的分支上重复调用同一位置, 纯度保证分支之间互不污染.

// maxBlockStringLen caps the body of a fenced block. Reaching it force-closes
// the token as a safety valve against pathological unterminated input.
const maxBlockStringLen = 1 << 20

func isLineTerm(c byte) bool {
	return c == '\n' || c == '\r'
}

// termWidth treats "\r\n" as a single terminator.
func termWidth(src []byte, pos int) int {
	if src[pos] == '\r' && pos+1 < len(src) && src[pos+1] == '\n' {
		return 2
	}
	return 1
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isOctalDigit(c byte) bool {
	return c >= '0' && c <= '7'
}

func isBinaryDigit(c byte) bool {
	return c == '0' || c == '1'
}

func isKeyStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isKeyChar(c byte) bool {
	return isKeyStart(c) || isDigit(c) || c == '-'
}

// ScanLineBoundary 将行终止符及其后的空白转换为 INDENT/DEDENT/NEWLINE.
// 在输入末尾, 只要上下文深度大于零就产出零宽 DEDENT, 调用方重复调用直到
// 上下文归零. 零宽 DEDENT 不消费任何字符, 同一行会被重新扫描, 使任意多个
// 嵌套块可以在一条缩进减少的行上逐层关闭; 而 INDENT/NEWLINE 一次性消费
// 终止符加空白, 因为一行至多打开一个块.
//
// 制表符与空格都按一个缩进单位计数, 不做制表符展开.
func ScanLineBoundary(src []byte, pos int, ctx IndentContext) (Token, bool) {
	if pos >= len(src) {
		if ctx.Columns() > 0 {
			return Token{Type: DEDENT, Literal: src[pos:pos], Start: pos, End: pos}, true
		}
		return Token{}, false
	}
	if !isLineTerm(src[pos]) {
		return Token{}, false
	}
	w := termWidth(src, pos)
	j := pos + w
	spaces := 0
	for j < len(src) && (src[j] == ' ' || src[j] == '\t') {
		spaces++
		j++
	}
	if j >= len(src) || isLineTerm(src[j]) {
		// Blank line: consume only the terminator so a run of K blank
		// lines yields K separate NEWLINE tokens. Never changes context.
		return Token{Type: NEWLINE, Literal: src[pos : pos+w], Start: pos, End: pos + w}, true
	}
	switch {
	case spaces > ctx.Columns():
		return Token{Type: INDENT, Literal: src[pos:j], Start: pos, End: j}, true
	case spaces < ctx.Columns():
		return Token{Type: DEDENT, Literal: src[pos:pos], Start: pos, End: pos}, true
	default:
		return Token{Type: NEWLINE, Literal: src[pos:j], Start: pos, End: j}, true
	}
}

// ScanKey 识别裸标识符键: 以字母或下划线开头, 后续字符可以是字母, 数字,
// 下划线或连字符. 与保留字完全相同的跨度被拒绝, 交由关键字层处理.
func ScanKey(src []byte, pos int) (Token, bool) {
	if pos >= len(src) || !isKeyStart(src[pos]) {
		return Token{}, false
	}
	i := pos + 1
	for i < len(src) && isKeyChar(src[i]) {
		i++
	}
	word := src[pos:i]
	if isReservedWord(word) {
		return Token{}, false
	}
	return Token{Type: KEY, Literal: word, Start: pos, End: i}, true
}

// ScanListMark 识别列表项标记: 单个连字符, 且后面不能紧跟数字
// (负数留给 ScanNumber).
func ScanListMark(src []byte, pos int) (Token, bool) {
	if pos >= len(src) || src[pos] != '-' {
		return Token{}, false
	}
	if pos+1 < len(src) && isDigit(src[pos+1]) {
		return Token{}, false
	}
	return Token{Type: LIST_MARK, Literal: src[pos : pos+1], Start: pos, End: pos + 1}, true
}

// ScanNumber 识别数字字面量: 可选符号, 0x/0o/0b 进制前缀, 内部下划线,
// 十进制的小数与指数部分. 对所选进制非法但在结构上是数字的字符 (如八进制
// 中的 8) 导致整个 Token 被拒绝, 绝不产出截断的数字.
// nan/inf 等文本字面量不由本扫描器产出, 由关键字层解析.
func ScanNumber(src []byte, pos int) (Token, bool) {
	i := pos
	if i < len(src) && (src[i] == '+' || src[i] == '-') {
		i++
	}
	if i+1 < len(src) && src[i] == '0' {
		switch src[i+1] {
		case 'x', 'X':
			return scanBaseNumber(src, pos, i+2, isHexDigit)
		case 'o', 'O':
			return scanBaseNumber(src, pos, i+2, isOctalDigit)
		case 'b', 'B':
			return scanBaseNumber(src, pos, i+2, isBinaryDigit)
		}
	}
	sawDigit := false
	for i < len(src) && (isDigit(src[i]) || src[i] == '_') {
		if isDigit(src[i]) {
			sawDigit = true
		}
		i++
	}
	if i < len(src) && src[i] == '.' {
		j := i + 1
		frac := false
		for j < len(src) && (isDigit(src[j]) || src[j] == '_') {
			if isDigit(src[j]) {
				frac = true
			}
			j++
		}
		// A dot with no fractional digits stays unconsumed.
		if frac {
			i = j
			sawDigit = true
		}
	}
	if sawDigit && i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		exp := false
		for j < len(src) && isDigit(src[j]) {
			exp = true
			j++
		}
		if exp {
			i = j
		}
	}
	// A bare sign or bare dot never accepts.
	if !sawDigit {
		return Token{}, false
	}
	return Token{Type: NUMBER, Literal: src[pos:i], Start: pos, End: i}, true
}

func scanBaseNumber(src []byte, start, digits int, valid func(byte) bool) (Token, bool) {
	i := digits
	sawDigit := false
	for i < len(src) {
		c := src[i]
		if valid(c) {
			sawDigit = true
			i++
			continue
		}
		if c == '_' {
			// Underscores are interior only: never directly after the
			// base prefix.
			if !sawDigit {
				return Token{}, false
			}
			i++
			continue
		}
		if isDigit(c) {
			// Structurally a digit but invalid for the base: hard decline.
			return Token{}, false
		}
		break
	}
	if !sawDigit {
		return Token{}, false
	}
	return Token{Type: NUMBER, Literal: src[start:i], Start: start, End: i}, true
}

var simpleEscapes = func() [256]bool {
	var t [256]bool
	for _, c := range []byte{'"', '\\', '/', 'b', 'f', 'n', 'r', 't'} {
		t[c] = true
	}
	return t
}()

// ScanString 识别双引号单行字符串. 扫描过程中向前跟踪转义状态, 因此
// `"a\\"` 在引号处正确终止 (反斜杠本身已被转义). 裸行终止符, 输入结束,
// 未知转义或不完整的 \uXXXX 都会拒绝整个 Token.
func ScanString(src []byte, pos int) (Token, bool) {
	if pos >= len(src) || src[pos] != '"' {
		return Token{}, false
	}
	i := pos + 1
	for i < len(src) {
		c := src[i]
		if isLineTerm(c) {
			return Token{}, false
		}
		switch c {
		case '\\':
			if i+1 >= len(src) {
				return Token{}, false
			}
			e := src[i+1]
			if e == 'u' {
				if i+6 > len(src) {
					return Token{}, false
				}
				for k := i + 2; k < i+6; k++ {
					if !isHexDigit(src[k]) {
						return Token{}, false
					}
				}
				i += 6
				continue
			}
			if !simpleEscapes[e] {
				return Token{}, false
			}
			i += 2
		case '"':
			return Token{Type: STRING, Literal: src[pos : i+1], Start: pos, End: i + 1}, true
		default:
			i++
		}
	}
	return Token{}, false
}

func fenceAt(src []byte, pos int) (byte, bool) {
	if pos+3 > len(src) {
		return 0, false
	}
	c := src[pos]
	if c != '`' && c != '"' {
		return 0, false
	}
	if src[pos+1] != c || src[pos+2] != c {
		return 0, false
	}
	return c, true
}

// ScanMultilineString 识别围栏分隔的多行字符串块. 反引号围栏保留换行
// (BLOCK_STRING), 引号围栏标记为折叠 (FOLDED_STRING) — 折叠本身不在这里
// 发生, 把折叠换行转换为空格是消费层 (FoldedStringLiteral.Folded) 的职责,
// 本扫描器只分类 Token 种类并捕获原始跨度.
//
// 开栏的三个字符之后必须紧跟行终止符或输入结束, 否则拒绝. 块体中反斜杠
// 无条件消费下一个字符; 行终止符之后, 只有空白列数恰好等于当前活跃缩进
// 上下文时才探测闭栏, 否则终止符与空白成为普通内容. 到达输入末尾仍未
// 闭合则整体拒绝, 不产出部分 Token.
func ScanMultilineString(src []byte, pos int, ctx IndentContext) (Token, bool) {
	fence, ok := fenceAt(src, pos)
	if !ok {
		return Token{}, false
	}
	kind := BLOCK_STRING
	if fence == '"' {
		kind = FOLDED_STRING
	}
	i := pos + 3
	if i < len(src) && !isLineTerm(src[i]) {
		return Token{}, false
	}
	for i < len(src) {
		if i-pos > maxBlockStringLen {
			return Token{Type: kind, Literal: src[pos:i], Start: pos, End: i}, true
		}
		c := src[i]
		if c == '\\' {
			i += 2
			continue
		}
		if isLineTerm(c) {
			j := i + termWidth(src, i)
			col := 0
			for j < len(src) && (src[j] == ' ' || src[j] == '\t') {
				col++
				j++
			}
			if col == ctx.Columns() {
				if f, ok := fenceAt(src, j); ok && f == fence {
					end := j + 3
					return Token{Type: kind, Literal: src[pos:end], Start: pos, End: end}, true
				}
			}
			i += termWidth(src, i)
			continue
		}
		i++
	}
	return Token{}, false
}

package winf

import (
	"bytes"
	"fmt"
)

type TokenType string

// Token 是词法分析器产出的最小单元.
// Literal 是输入缓冲区的子切片, 不进行复制; Start/End 是字节偏移量.
type Token struct {
	Type    TokenType
	Literal []byte
	Start   int
	End     int
	Line    int
	Column  int
}

func (t Token) String() string {
	return fmt.Sprintf("Line:%d, Col:%d, Type:%s, Literal:`%s`", t.Line, t.Column, t.Type, string(t.Literal))
}

const (
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	// Structural tokens produced by the line boundary scanner.
	INDENT  TokenType = "INDENT"
	DEDENT  TokenType = "DEDENT"
	NEWLINE TokenType = "NEWLINE"

	// Literal tokens.
	KEY           TokenType = "KEY"
	LIST_MARK     TokenType = "LIST_MARK"
	STRING        TokenType = "STRING"
	BLOCK_STRING  TokenType = "BLOCK_STRING"
	FOLDED_STRING TokenType = "FOLDED_STRING"
	NUMBER        TokenType = "NUMBER"

	// Keyword tokens resolved by the lexer's keyword layer.
	BOOL TokenType = "BOOL"
	NULL TokenType = "NULL"
	NAN  TokenType = "NAN"
	INF  TokenType = "INF"

	// Indicator tokens.
	COLON  TokenType = ":"
	DCOLON TokenType = "::"
)

// LookupKeyword 检查 word 是否是保留字.
// 使用 bytes.Equal 可以实现零内存分配的关键字匹配.
func LookupKeyword(word []byte) (TokenType, bool) {
	switch {
	case bytes.Equal(word, []byte("true")), bytes.Equal(word, []byte("false")):
		return BOOL, true
	case bytes.Equal(word, []byte("null")):
		return NULL, true
	case bytes.Equal(word, []byte("nan")):
		return NAN, true
	case bytes.Equal(word, []byte("inf")):
		return INF, true
	}
	return KEY, false
}

// isReservedWord reports whether the span is one of the literal keywords
// the key scanner must leave to the keyword layer.
func isReservedWord(word []byte) bool {
	_, ok := LookupKeyword(word)
	return ok
}

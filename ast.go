package winf

import (
	"bytes"
	"sort"
	"strconv"
	"strings"
	"sync"
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return &bytes.Buffer{}
	},
}

// NodeKind 标识节点的结构角色, 供下游消费者做相等性判断.
type NodeKind int

const (
	KindDocument NodeKind = iota
	KindKey
	KindProperty
	KindBlock
	KindListItem
	KindString
	KindNumber
	KindBool
	KindNull
	KindBlockString
	KindFoldedString
	KindBad
)

func (k NodeKind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindKey:
		return "key"
	case KindProperty:
		return "property"
	case KindBlock:
		return "block"
	case KindListItem:
		return "list-item"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindNull:
		return "null"
	case KindBlockString:
		return "block-string"
	case KindFoldedString:
		return "folded-string"
	case KindBad:
		return "error"
	default:
		return "unknown"
	}
}

// Node 是AST中所有节点的基础接口. 每个节点都携带源缓冲区中的字节跨度.
type Node interface {
	Kind() NodeKind
	Span() (start, end int)
	TokenLiteral() string
	String() string
	Format(w *bytes.Buffer, indent string, opts FormatOptions)
}

// Statement 代表一个语句.
type Statement interface {
	Node
	statementNode()
}

// Expression 代表一个值表达式.
type Expression interface {
	Node
	expressionNode()
}

// IsBad reports whether the node is the designated error-marker kind.
func IsBad(n Node) bool {
	return n != nil && n.Kind() == KindBad
}

// Walk 以文档顺序遍历节点. fn 返回 false 时跳过该节点的子树.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch x := n.(type) {
	case *DocumentNode:
		for _, s := range x.Statements {
			Walk(s, fn)
		}
	case *PropertyStatement:
		if x.Name != nil {
			Walk(x.Name, fn)
		}
		if x.Value != nil {
			Walk(x.Value, fn)
		}
	case *BlockStatement:
		if x.Name != nil {
			Walk(x.Name, fn)
		}
		if x.Body != nil {
			Walk(x.Body, fn)
		}
	case *ListItemStatement:
		if x.Value != nil {
			Walk(x.Value, fn)
		}
	case *BlockLiteral:
		if x.Body != nil {
			Walk(x.Body, fn)
		}
	}
}

// DocumentNode 是每个WINF文档AST的根节点, 也是每个缩进块的块体.
type DocumentNode struct {
	Statements []Statement
}

func (d *DocumentNode) Kind() NodeKind { return KindDocument }
func (d *DocumentNode) Reset()         { d.Statements = d.Statements[:0] }

func (d *DocumentNode) Span() (int, int) {
	if len(d.Statements) == 0 {
		return 0, 0
	}
	start, _ := d.Statements[0].Span()
	_, end := d.Statements[len(d.Statements)-1].Span()
	return start, end
}

func (d *DocumentNode) TokenLiteral() string {
	if len(d.Statements) > 0 {
		return d.Statements[0].TokenLiteral()
	}
	return ""
}

func (d *DocumentNode) String() string {
	buf := bufferPool.Get().(*bytes.Buffer)
	defer bufferPool.Put(buf)
	buf.Reset()
	d.Format(buf, "", FormatOptions{Style: StyleDefault, EmptyLines: true})
	return buf.String()
}

func (d *DocumentNode) Format(w *bytes.Buffer, indent string, opts FormatOptions) {
	stmts := d.Statements
	sorted := opts.Style == StyleAllSorted || (opts.Style == StyleBlockSorted && indent != "")
	if sorted {
		stmts = append([]Statement(nil), stmts...)
		sort.SliceStable(stmts, func(i, j int) bool {
			return statementName(stmts[i]) < statementName(stmts[j])
		})
	}
	for i, s := range stmts {
		if i > 0 {
			w.WriteString("\n")
			if opts.EmptyLines && indent == "" {
				if _, ok := s.(*BlockStatement); ok {
					w.WriteString("\n")
				}
			}
		}
		s.Format(w, indent, opts)
	}
}

// statementName is the sort key for a statement; list items and error
// markers keep their relative order.
func statementName(s Statement) string {
	switch n := s.(type) {
	case *PropertyStatement:
		if n.Name != nil {
			return n.Name.Value
		}
	case *BlockStatement:
		if n.Name != nil {
			return n.Name.Value
		}
	}
	return ""
}

// Identifier 表示一个键名, 裸键或带引号的键.
type Identifier struct {
	Token  Token
	Value  string
	Quoted bool
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) Kind() NodeKind       { return KindKey }
func (i *Identifier) Span() (int, int)     { return i.Token.Start, i.Token.End }
func (i *Identifier) TokenLiteral() string { return string(i.Token.Literal) }
func (i *Identifier) String() string       { return i.Value }
func (i *Identifier) Reset()               { *i = Identifier{} }

func (i *Identifier) Format(w *bytes.Buffer, indent string, opts FormatOptions) {
	if i.Quoted {
		w.WriteString(quoteString(i.Value))
		return
	}
	w.WriteString(i.Value)
}

// PropertyStatement 表示 `key: value`.
type PropertyStatement struct {
	Token Token // the key token
	Name  *Identifier
	Value Expression
}

func (s *PropertyStatement) statementNode()       {}
func (s *PropertyStatement) Kind() NodeKind       { return KindProperty }
func (s *PropertyStatement) TokenLiteral() string { return string(s.Token.Literal) }
func (s *PropertyStatement) Reset()               { *s = PropertyStatement{} }

func (s *PropertyStatement) Span() (int, int) {
	if s.Value != nil {
		_, end := s.Value.Span()
		return s.Token.Start, end
	}
	return s.Token.Start, s.Token.End
}

func (s *PropertyStatement) String() string {
	buf := bufferPool.Get().(*bytes.Buffer)
	defer bufferPool.Put(buf)
	buf.Reset()
	s.Format(buf, "", FormatOptions{Style: StyleDefault})
	return buf.String()
}

func (s *PropertyStatement) Format(w *bytes.Buffer, indent string, opts FormatOptions) {
	w.WriteString(indent)
	s.Name.Format(w, indent, opts)
	w.WriteString(": ")
	if s.Value != nil {
		s.Value.Format(w, indent, opts)
	}
}

// BlockStatement 表示 `key::` 打开的缩进块.
type BlockStatement struct {
	Token Token // the key token
	Name  *Identifier
	Body  *DocumentNode
}

func (s *BlockStatement) statementNode()       {}
func (s *BlockStatement) Kind() NodeKind       { return KindBlock }
func (s *BlockStatement) TokenLiteral() string { return string(s.Token.Literal) }
func (s *BlockStatement) Reset()               { *s = BlockStatement{} }

func (s *BlockStatement) Span() (int, int) {
	if s.Body != nil && len(s.Body.Statements) > 0 {
		_, end := s.Body.Span()
		return s.Token.Start, end
	}
	return s.Token.Start, s.Token.End
}

func (s *BlockStatement) String() string {
	buf := bufferPool.Get().(*bytes.Buffer)
	defer bufferPool.Put(buf)
	buf.Reset()
	s.Format(buf, "", FormatOptions{Style: StyleDefault})
	return buf.String()
}

func (s *BlockStatement) Format(w *bytes.Buffer, indent string, opts FormatOptions) {
	w.WriteString(indent)
	s.Name.Format(w, indent, opts)
	w.WriteString("::")
	if s.Body != nil && len(s.Body.Statements) > 0 {
		w.WriteString("\n")
		s.Body.Format(w, indent+strings.Repeat(" ", IndentStep), opts)
	}
}

// ListItemStatement 表示 `- value` 列表项.
type ListItemStatement struct {
	Token Token // the dash token
	Value Expression
}

func (s *ListItemStatement) statementNode()       {}
func (s *ListItemStatement) Kind() NodeKind       { return KindListItem }
func (s *ListItemStatement) TokenLiteral() string { return string(s.Token.Literal) }
func (s *ListItemStatement) Reset()               { *s = ListItemStatement{} }

func (s *ListItemStatement) Span() (int, int) {
	if s.Value != nil {
		_, end := s.Value.Span()
		return s.Token.Start, end
	}
	return s.Token.Start, s.Token.End
}

func (s *ListItemStatement) String() string {
	buf := bufferPool.Get().(*bytes.Buffer)
	defer bufferPool.Put(buf)
	buf.Reset()
	s.Format(buf, "", FormatOptions{Style: StyleDefault})
	return buf.String()
}

func (s *ListItemStatement) Format(w *bytes.Buffer, indent string, opts FormatOptions) {
	w.WriteString(indent)
	w.WriteString("-")
	if s.Value == nil {
		return
	}
	if nested, ok := s.Value.(*BlockLiteral); ok {
		nested.Format(w, indent, opts)
		return
	}
	w.WriteString(" ")
	s.Value.Format(w, indent, opts)
}

// BadStatement 是错误标记节点: 语法无法推进处被跳过的输入跨度.
// 它让解析在错误之后继续, 下游据此定位诊断.
type BadStatement struct {
	Token   Token  // first offending token
	EndPos  int    // end offset of the skipped span
	Message string // what went wrong at this span
}

func (s *BadStatement) statementNode()       {}
func (s *BadStatement) Kind() NodeKind       { return KindBad }
func (s *BadStatement) Span() (int, int)     { return s.Token.Start, s.EndPos }
func (s *BadStatement) TokenLiteral() string { return string(s.Token.Literal) }
func (s *BadStatement) String() string       { return s.Message }
func (s *BadStatement) Reset()               { *s = BadStatement{} }

func (s *BadStatement) Format(w *bytes.Buffer, indent string, opts FormatOptions) {
	// Error markers have no canonical rendering; formatting callers must
	// refuse documents that contain them.
}

// BlockLiteral 表示作为列表项值出现的嵌套缩进块.
type BlockLiteral struct {
	Token Token
	Body  *DocumentNode
}

func (b *BlockLiteral) expressionNode()      {}
func (b *BlockLiteral) Kind() NodeKind       { return KindBlock }
func (b *BlockLiteral) TokenLiteral() string { return string(b.Token.Literal) }
func (b *BlockLiteral) Reset()               { *b = BlockLiteral{} }

func (b *BlockLiteral) Span() (int, int) {
	if b.Body != nil && len(b.Body.Statements) > 0 {
		return b.Body.Span()
	}
	return b.Token.Start, b.Token.End
}

func (b *BlockLiteral) String() string {
	if b.Body == nil {
		return ""
	}
	return b.Body.String()
}

func (b *BlockLiteral) Format(w *bytes.Buffer, indent string, opts FormatOptions) {
	if b.Body == nil || len(b.Body.Statements) == 0 {
		return
	}
	w.WriteString("\n")
	b.Body.Format(w, indent+strings.Repeat(" ", IndentStep), opts)
}

// StringLiteral 表示单行带引号字符串, Value 是解转义后的内容.
type StringLiteral struct {
	Token Token
	Value string
}

func (s *StringLiteral) expressionNode()      {}
func (s *StringLiteral) Kind() NodeKind       { return KindString }
func (s *StringLiteral) Span() (int, int)     { return s.Token.Start, s.Token.End }
func (s *StringLiteral) TokenLiteral() string { return string(s.Token.Literal) }
func (s *StringLiteral) String() string       { return s.Value }
func (s *StringLiteral) Reset()               { *s = StringLiteral{} }

func (s *StringLiteral) Format(w *bytes.Buffer, indent string, opts FormatOptions) {
	w.WriteString(quoteString(s.Value))
}

// IntegerLiteral 保留原始字面量文本, 以便格式化时不丢失进制与下划线.
type IntegerLiteral struct {
	Token Token
	Value int64
}

func (l *IntegerLiteral) expressionNode()      {}
func (l *IntegerLiteral) Kind() NodeKind       { return KindNumber }
func (l *IntegerLiteral) Span() (int, int)     { return l.Token.Start, l.Token.End }
func (l *IntegerLiteral) TokenLiteral() string { return string(l.Token.Literal) }
func (l *IntegerLiteral) String() string       { return string(l.Token.Literal) }
func (l *IntegerLiteral) Reset()               { *l = IntegerLiteral{} }

func (l *IntegerLiteral) Format(w *bytes.Buffer, indent string, opts FormatOptions) {
	w.Write(l.Token.Literal)
}

type FloatLiteral struct {
	Token Token
	Value float64
}

func (l *FloatLiteral) expressionNode()      {}
func (l *FloatLiteral) Kind() NodeKind       { return KindNumber }
func (l *FloatLiteral) Span() (int, int)     { return l.Token.Start, l.Token.End }
func (l *FloatLiteral) TokenLiteral() string { return string(l.Token.Literal) }
func (l *FloatLiteral) String() string       { return string(l.Token.Literal) }
func (l *FloatLiteral) Reset()               { *l = FloatLiteral{} }

func (l *FloatLiteral) Format(w *bytes.Buffer, indent string, opts FormatOptions) {
	w.Write(l.Token.Literal)
}

type BoolLiteral struct {
	Token Token
	Value bool
}

func (l *BoolLiteral) expressionNode()      {}
func (l *BoolLiteral) Kind() NodeKind       { return KindBool }
func (l *BoolLiteral) Span() (int, int)     { return l.Token.Start, l.Token.End }
func (l *BoolLiteral) TokenLiteral() string { return string(l.Token.Literal) }
func (l *BoolLiteral) String() string       { return strconv.FormatBool(l.Value) }
func (l *BoolLiteral) Reset()               { *l = BoolLiteral{} }

func (l *BoolLiteral) Format(w *bytes.Buffer, indent string, opts FormatOptions) {
	w.WriteString(strconv.FormatBool(l.Value))
}

type NullLiteral struct {
	Token Token
}

func (l *NullLiteral) expressionNode()      {}
func (l *NullLiteral) Kind() NodeKind       { return KindNull }
func (l *NullLiteral) Span() (int, int)     { return l.Token.Start, l.Token.End }
func (l *NullLiteral) TokenLiteral() string { return string(l.Token.Literal) }
func (l *NullLiteral) String() string       { return "null" }
func (l *NullLiteral) Reset()               { *l = NullLiteral{} }

func (l *NullLiteral) Format(w *bytes.Buffer, indent string, opts FormatOptions) {
	w.WriteString("null")
}

// BlockStringLiteral 表示反引号围栏块, 换行按原样保留.
type BlockStringLiteral struct {
	Token Token
	Value string // body with the bounding fences and block indentation removed
}

func (l *BlockStringLiteral) expressionNode()      {}
func (l *BlockStringLiteral) Kind() NodeKind       { return KindBlockString }
func (l *BlockStringLiteral) Span() (int, int)     { return l.Token.Start, l.Token.End }
func (l *BlockStringLiteral) TokenLiteral() string { return string(l.Token.Literal) }
func (l *BlockStringLiteral) String() string       { return l.Value }
func (l *BlockStringLiteral) Reset()               { *l = BlockStringLiteral{} }

func (l *BlockStringLiteral) Format(w *bytes.Buffer, indent string, opts FormatOptions) {
	formatFenced(w, indent, "```", l.Value)
}

// FoldedStringLiteral 表示引号围栏块. 扫描器只捕获原始跨度; 把折叠换行
// 转换为空格发生在这里, 通过 Folded 方法.
type FoldedStringLiteral struct {
	Token Token
	Value string // body with the bounding fences and block indentation removed
}

func (l *FoldedStringLiteral) expressionNode()      {}
func (l *FoldedStringLiteral) Kind() NodeKind       { return KindFoldedString }
func (l *FoldedStringLiteral) Span() (int, int)     { return l.Token.Start, l.Token.End }
func (l *FoldedStringLiteral) TokenLiteral() string { return string(l.Token.Literal) }
func (l *FoldedStringLiteral) String() string       { return l.Value }
func (l *FoldedStringLiteral) Reset()               { *l = FoldedStringLiteral{} }

// Folded 返回折叠后的内容: 每行去除首尾空白, 行与行之间用单个空格连接,
// 空行被丢弃.
func (l *FoldedStringLiteral) Folded() string {
	lines := strings.Split(l.Value, "\n")
	parts := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

func (l *FoldedStringLiteral) Format(w *bytes.Buffer, indent string, opts FormatOptions) {
	formatFenced(w, indent, `"""`, l.Value)
}

func formatFenced(w *bytes.Buffer, indent, fence, body string) {
	w.WriteString(fence)
	w.WriteString("\n")
	inner := indent + strings.Repeat(" ", IndentStep)
	for _, line := range strings.Split(body, "\n") {
		if line != "" {
			w.WriteString(inner)
		}
		w.WriteString(line)
		w.WriteString("\n")
	}
	w.WriteString(indent)
	w.WriteString(fence)
}

// quoteString 按 WINF 的转义集合为单行字符串加引号.
func quoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

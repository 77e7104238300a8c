package winf

import (
	"bytes"
	"fmt"
	"strings"
)

// Parse 将输入解析为文档树. 任何语法错误都会以错误返回, 树仍然可用于
// 定位错误标记节点.
func Parse(data []byte) (*DocumentNode, error) {
	l := NewLexer(data)
	p := NewParser(l)
	doc := p.ParseDocument()
	if errs := p.Errors(); len(errs) > 0 {
		return doc, fmt.Errorf("parser errors: %s", strings.Join(errs, "\n"))
	}
	return doc, nil
}

// Format 以给定风格渲染文档树.
func Format(doc *DocumentNode, opts FormatOptions) []byte {
	var out bytes.Buffer
	doc.Format(&out, "", opts)
	if out.Len() > 0 {
		out.WriteString("\n")
	}
	return out.Bytes()
}

// HasErrorMarkers reports whether the tree contains any error-marker node.
func HasErrorMarkers(doc *DocumentNode) bool {
	found := false
	Walk(doc, func(n Node) bool {
		if IsBad(n) {
			found = true
		}
		return !found
	})
	return found
}

package winf

import "fmt"

// Lint 以诊断模式解析并在树上运行校验: 重复键检测, 以及解析阶段插入的
// 错误标记节点对应的诊断. 无论发现多少问题都返回构造出的树.
func Lint(data []byte) (*DocumentNode, []LintError) {
	l := NewLexer(data)
	p := NewParser(l)
	p.SetLintMode(true)
	doc := p.ParseDocument()
	a := &treeAnalyzer{errors: p.LintErrors()}
	a.checkScope(doc)
	return doc, a.errors
}

type treeAnalyzer struct {
	errors []LintError
}

// checkScope flags keys that appear more than once in the same block.
// Key comparison is on the decoded key value, so a quoted key collides
// with its bare spelling.
func (a *treeAnalyzer) checkScope(doc *DocumentNode) {
	if doc == nil {
		return
	}
	seen := make(map[string]Token, len(doc.Statements))
	for _, stmt := range doc.Statements {
		var name *Identifier
		switch s := stmt.(type) {
		case *PropertyStatement:
			name = s.Name
		case *BlockStatement:
			name = s.Name
			a.checkScope(s.Body)
		case *ListItemStatement:
			if lit, ok := s.Value.(*BlockLiteral); ok {
				a.checkScope(lit.Body)
			}
			continue
		default:
			continue
		}
		if name == nil {
			continue
		}
		if first, dup := seen[name.Value]; dup {
			a.errors = append(a.errors, LintError{
				Line:      name.Token.Line,
				Column:    name.Token.Column,
				EndLine:   name.Token.Line,
				EndColumn: name.Token.Column + len(name.Token.Literal),
				Message:   fmt.Sprintf("duplicate key %q in the same block (first defined on line %d)", name.Value, first.Line),
				Level:     ErrorLevelLint,
				Type:      ErrDuplicateKey,
				Args:      []string{name.Value},
			})
			continue
		}
		seen[name.Value] = name.Token
	}
}

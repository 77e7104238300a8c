package winf

// IndentStep 是一个缩进层级对应的列数.
const IndentStep = 2

// IndentContext 记录当前解析分支期望的缩进列数.
// 它是一个纯值: 解析器在推测性分支上 fork 词法分析器时, 每个分支持有
// 自己的一份拷贝, 分支被放弃时拷贝随之丢弃. 绝不能用全局可变计数器代替.
// 值始终是 IndentStep 的非负整数倍, 且每消费一个 INDENT/DEDENT 只变化一步.
type IndentContext int

// Columns returns the expected indentation in columns.
func (c IndentContext) Columns() int { return int(c) }

// Depth returns the nesting depth in steps.
func (c IndentContext) Depth() int { return int(c) / IndentStep }

// Indent returns the context one step deeper.
func (c IndentContext) Indent() IndentContext { return c + IndentStep }

// Dedent returns the context one step shallower. Dedenting below zero is a
// caller error; the boundary scanner never produces a DEDENT at depth zero,
// so ok is false only on misuse.
func (c IndentContext) Dedent() (IndentContext, bool) {
	if c < IndentStep {
		return c, false
	}
	return c - IndentStep, true
}

// Apply advances the context for one consumed token. Only INDENT and DEDENT
// change it; every other token returns the context unchanged.
func (c IndentContext) Apply(tok Token) IndentContext {
	switch tok.Type {
	case INDENT:
		return c.Indent()
	case DEDENT:
		next, ok := c.Dedent()
		if !ok {
			return c
		}
		return next
	}
	return c
}

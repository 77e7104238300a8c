package winf

import "sync"

// AST Node Pools
var (
	documentNodePool      = sync.Pool{New: func() interface{} { return new(DocumentNode) }}
	identifierPool        = sync.Pool{New: func() interface{} { return new(Identifier) }}
	propertyStatementPool = sync.Pool{New: func() interface{} { return new(PropertyStatement) }}
	blockStatementPool    = sync.Pool{New: func() interface{} { return new(BlockStatement) }}
	listItemStatementPool = sync.Pool{New: func() interface{} { return new(ListItemStatement) }}
	badStatementPool      = sync.Pool{New: func() interface{} { return new(BadStatement) }}
	blockLiteralPool      = sync.Pool{New: func() interface{} { return new(BlockLiteral) }}
	stringLiteralPool     = sync.Pool{New: func() interface{} { return new(StringLiteral) }}
	integerLiteralPool    = sync.Pool{New: func() interface{} { return new(IntegerLiteral) }}
	floatLiteralPool      = sync.Pool{New: func() interface{} { return new(FloatLiteral) }}
	boolLiteralPool       = sync.Pool{New: func() interface{} { return new(BoolLiteral) }}
	nullLiteralPool       = sync.Pool{New: func() interface{} { return new(NullLiteral) }}
	blockStringPool       = sync.Pool{New: func() interface{} { return new(BlockStringLiteral) }}
	foldedStringPool      = sync.Pool{New: func() interface{} { return new(FoldedStringLiteral) }}
)

// Getter functions for AST nodes
func getDocumentNode() *DocumentNode {
	n := documentNodePool.Get().(*DocumentNode)
	n.Reset()
	return n
}

func getIdentifier() *Identifier {
	n := identifierPool.Get().(*Identifier)
	n.Reset()
	return n
}

func getPropertyStatement() *PropertyStatement {
	n := propertyStatementPool.Get().(*PropertyStatement)
	n.Reset()
	return n
}

func getBlockStatement() *BlockStatement {
	n := blockStatementPool.Get().(*BlockStatement)
	n.Reset()
	return n
}

func getListItemStatement() *ListItemStatement {
	n := listItemStatementPool.Get().(*ListItemStatement)
	n.Reset()
	return n
}

func getBadStatement() *BadStatement {
	n := badStatementPool.Get().(*BadStatement)
	n.Reset()
	return n
}

func getBlockLiteral() *BlockLiteral {
	n := blockLiteralPool.Get().(*BlockLiteral)
	n.Reset()
	return n
}

func getStringLiteral() *StringLiteral {
	n := stringLiteralPool.Get().(*StringLiteral)
	n.Reset()
	return n
}

func getIntegerLiteral() *IntegerLiteral {
	n := integerLiteralPool.Get().(*IntegerLiteral)
	n.Reset()
	return n
}

func getFloatLiteral() *FloatLiteral {
	n := floatLiteralPool.Get().(*FloatLiteral)
	n.Reset()
	return n
}

func getBoolLiteral() *BoolLiteral {
	n := boolLiteralPool.Get().(*BoolLiteral)
	n.Reset()
	return n
}

func getNullLiteral() *NullLiteral {
	n := nullLiteralPool.Get().(*NullLiteral)
	n.Reset()
	return n
}

func getBlockStringLiteral() *BlockStringLiteral {
	n := blockStringPool.Get().(*BlockStringLiteral)
	n.Reset()
	return n
}

func getFoldedStringLiteral() *FoldedStringLiteral {
	n := foldedStringPool.Get().(*FoldedStringLiteral)
	n.Reset()
	return n
}

// ReleaseDocument 将整棵树的节点归还到各自的池中.
// 调用之后不得再访问 doc 或其任何子节点.
func ReleaseDocument(doc *DocumentNode) {
	if doc == nil {
		return
	}
	for _, stmt := range doc.Statements {
		releaseStatement(stmt)
	}
	doc.Reset()
	documentNodePool.Put(doc)
}

func releaseStatement(stmt Statement) {
	switch s := stmt.(type) {
	case *PropertyStatement:
		releaseIdentifier(s.Name)
		releaseExpression(s.Value)
		s.Reset()
		propertyStatementPool.Put(s)
	case *BlockStatement:
		releaseIdentifier(s.Name)
		ReleaseDocument(s.Body)
		s.Reset()
		blockStatementPool.Put(s)
	case *ListItemStatement:
		releaseExpression(s.Value)
		s.Reset()
		listItemStatementPool.Put(s)
	case *BadStatement:
		s.Reset()
		badStatementPool.Put(s)
	}
}

func releaseIdentifier(id *Identifier) {
	if id == nil {
		return
	}
	id.Reset()
	identifierPool.Put(id)
}

func releaseExpression(expr Expression) {
	switch e := expr.(type) {
	case *StringLiteral:
		e.Reset()
		stringLiteralPool.Put(e)
	case *IntegerLiteral:
		e.Reset()
		integerLiteralPool.Put(e)
	case *FloatLiteral:
		e.Reset()
		floatLiteralPool.Put(e)
	case *BoolLiteral:
		e.Reset()
		boolLiteralPool.Put(e)
	case *NullLiteral:
		e.Reset()
		nullLiteralPool.Put(e)
	case *BlockStringLiteral:
		e.Reset()
		blockStringPool.Put(e)
	case *FoldedStringLiteral:
		e.Reset()
		foldedStringPool.Put(e)
	case *BlockLiteral:
		ReleaseDocument(e.Body)
		e.Reset()
		blockLiteralPool.Put(e)
	}
}

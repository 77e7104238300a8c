package winf

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"
)

var (
	decoderFieldCache sync.Map // map[reflect.Type]map[string]decoderCachedField
)

type decoderCachedField struct {
	Index    int
	Tag      winfTag
	FieldTyp reflect.StructField
}

type DecoderOption func(*internalDecoder)

// WithStrictKeys makes the decoder fail on document keys that have no
// matching struct field instead of silently skipping them.
func WithStrictKeys() DecoderOption {
	return func(d *internalDecoder) {
		d.strict = true
	}
}

type Decoder struct {
	doc *DocumentNode
	d   *internalDecoder
}

func NewDecoder(r io.Reader, opts ...DecoderOption) (*Decoder, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	l := NewLexer(data)
	p := NewParser(l)
	doc := p.ParseDocument()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, fmt.Errorf("parser errors: %s", strings.Join(errs, "\n"))
	}
	d := &internalDecoder{}
	for _, opt := range opts {
		opt(d)
	}
	return &Decoder{doc: doc, d: d}, nil
}

func getOrCacheDecoderFields(typ reflect.Type) map[string]decoderCachedField {
	if cached, ok := decoderFieldCache.Load(typ); ok {
		return cached.(map[string]decoderCachedField)
	}

	fields := make(map[string]decoderCachedField)
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.PkgPath != "" { // Skip unexported fields
			continue
		}

		tagStr := field.Tag.Get("winf")
		tag := parseWinfTag(tagStr, field.Name)

		// Cache by tag name
		fields[tag.Name] = decoderCachedField{
			Index:    i,
			Tag:      tag,
			FieldTyp: field,
		}

		// If there's no tag, also cache by field name for case-insensitive lookup
		if tagStr == "" {
			if _, exists := fields[field.Name]; !exists {
				fields[field.Name] = decoderCachedField{
					Index:    i,
					Tag:      tag,
					FieldTyp: field,
				}
			}
		}
	}

	decoderFieldCache.Store(typ, fields)
	return fields
}

func (dec *Decoder) Decode(v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("v must be a pointer to a struct")
	}
	return dec.d.decodeRoot(dec.doc, rv.Elem())
}

// Document 返回解码器持有的文档树, 供需要跨度信息的调用方使用.
func (dec *Decoder) Document() *DocumentNode {
	return dec.doc
}

type internalDecoder struct {
	strict bool
}

func (d *internalDecoder) decodeRoot(doc *DocumentNode, rv reflect.Value) error {
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("can only decode a block into a struct, got %s", rv.Kind())
	}
	for _, stmt := range doc.Statements {
		switch s := stmt.(type) {
		case *PropertyStatement:
			if err := d.decodeProperty(s, rv); err != nil {
				return err
			}
		case *BlockStatement:
			if err := d.decodeBlock(s, rv); err != nil {
				return err
			}
		case *ListItemStatement:
			return fmt.Errorf("line %d: list item outside a block cannot decode into a struct", s.Token.Line)
		}
	}
	return nil
}

func (d *internalDecoder) decodeProperty(stmt *PropertyStatement, rv reflect.Value) error {
	field, _, ok := findFieldAndTag(rv, stmt.Name.Value)
	if !ok {
		if d.strict {
			return fmt.Errorf("line %d: unknown key %q", stmt.Token.Line, stmt.Name.Value)
		}
		return nil
	}
	val, err := d.evalExpression(stmt.Value)
	if err != nil {
		return err
	}
	return d.setField(field, val)
}

func (d *internalDecoder) decodeBlock(stmt *BlockStatement, rv reflect.Value) error {
	field, _, ok := findFieldAndTag(rv, stmt.Name.Value)
	if !ok {
		if d.strict {
			return fmt.Errorf("line %d: unknown key %q", stmt.Token.Line, stmt.Name.Value)
		}
		return nil
	}
	if blockIsList(stmt.Body) || (len(stmt.Body.Statements) == 0 && field.Kind() == reflect.Slice) {
		list, err := d.evalListBody(stmt.Body)
		if err != nil {
			return err
		}
		if field.Kind() != reflect.Slice {
			return fmt.Errorf("block %q holds a list but field %s is not a slice", stmt.Name.Value, field.Type())
		}
		return d.setSliceField(field, reflect.ValueOf(list))
	}
	if field.Kind() == reflect.Ptr && field.Type().Elem().Kind() == reflect.Struct {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return d.decodeRoot(stmt.Body, field.Elem())
	}
	if field.Kind() == reflect.Struct {
		return d.decodeRoot(stmt.Body, field)
	}
	if field.Kind() == reflect.Map {
		m, err := d.decodeBlockToMap(stmt.Body)
		if err != nil {
			return err
		}
		return d.setMapField(field, reflect.ValueOf(m))
	}
	return fmt.Errorf("cannot decode block %q into field of type %s", stmt.Name.Value, field.Type())
}

// blockIsList reports whether a block body is a sequence of list items.
func blockIsList(body *DocumentNode) bool {
	for _, stmt := range body.Statements {
		_, ok := stmt.(*ListItemStatement)
		return ok
	}
	return false
}

func (d *internalDecoder) setField(field reflect.Value, val interface{}) error {
	if !field.CanSet() {
		return fmt.Errorf("cannot set field")
	}
	if field.Kind() == reflect.Ptr {
		if val == nil {
			field.Set(reflect.Zero(field.Type()))
			return nil
		}
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return d.setField(field.Elem(), val)
	}
	if val == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}

	v := reflect.ValueOf(val)

	// Strings convert into durations so `timeout: "10s"` works.
	if v.Kind() == reflect.String && field.Type() == reflect.TypeOf(time.Duration(0)) {
		dur, err := time.ParseDuration(v.String())
		if err != nil {
			return fmt.Errorf("could not parse %q as duration: %w", v.String(), err)
		}
		field.SetInt(int64(dur))
		return nil
	}

	if v.Type().ConvertibleTo(field.Type()) {
		// Refuse silent string<->number coercions that Convert permits.
		if (v.Kind() == reflect.String) != (field.Kind() == reflect.String) {
			return fmt.Errorf("cannot set field of type %s with value of type %T", field.Type(), val)
		}
		field.Set(v.Convert(field.Type()))
		return nil
	}
	if field.Kind() == reflect.Map && v.Kind() == reflect.Map {
		return d.setMapField(field, v)
	}
	if field.Kind() == reflect.Slice && v.Kind() == reflect.Slice {
		return d.setSliceField(field, v)
	}
	return fmt.Errorf("cannot set field of type %s with value of type %T", field.Type(), val)
}

func (d *internalDecoder) setMapField(field, v reflect.Value) error {
	mapType := field.Type()
	if mapType.Key().Kind() != reflect.String {
		return fmt.Errorf("map field keys must be strings, got %s", mapType.Key())
	}
	if field.IsNil() {
		field.Set(reflect.MakeMap(mapType))
	}
	elemType := mapType.Elem()

	for _, key := range v.MapKeys() {
		val := v.MapIndex(key).Interface()

		if elemType.Kind() == reflect.Struct {
			sourceMap, ok := val.(map[string]interface{})
			if !ok {
				return fmt.Errorf("value for struct map must be a nested block, got %T", val)
			}
			newStruct := reflect.New(elemType).Elem()
			if err := d.decodeMapToStruct(sourceMap, newStruct); err != nil {
				return err
			}
			field.SetMapIndex(key, newStruct)
			continue
		}

		valV := reflect.ValueOf(val)
		if val != nil && valV.Type().ConvertibleTo(elemType) {
			field.SetMapIndex(key, valV.Convert(elemType))
			continue
		}
		if val == nil {
			field.SetMapIndex(key, reflect.Zero(elemType))
			continue
		}

		return fmt.Errorf("cannot convert map value %v to %s", val, elemType)
	}
	return nil
}

func (d *internalDecoder) setSliceField(field, v reflect.Value) error {
	sliceType := field.Type()
	elemType := sliceType.Elem()
	newSlice := reflect.MakeSlice(sliceType, v.Len(), v.Len())
	for i := 0; i < v.Len(); i++ {
		val := v.Index(i).Interface()

		if elemType.Kind() == reflect.Struct {
			if sourceMap, ok := val.(map[string]interface{}); ok {
				newStruct := reflect.New(elemType).Elem()
				if err := d.decodeMapToStruct(sourceMap, newStruct); err != nil {
					return err
				}
				newSlice.Index(i).Set(newStruct)
				continue
			}
		}

		if err := d.setField(newSlice.Index(i), val); err != nil {
			return fmt.Errorf("slice element %d: %w", i, err)
		}
	}
	field.Set(newSlice)
	return nil
}

func (d *internalDecoder) evalExpression(expr Expression) (interface{}, error) {
	switch e := expr.(type) {
	case *IntegerLiteral:
		return e.Value, nil
	case *FloatLiteral:
		return e.Value, nil
	case *StringLiteral:
		return e.Value, nil
	case *BoolLiteral:
		return e.Value, nil
	case *NullLiteral:
		return nil, nil
	case *BlockStringLiteral:
		// Newlines preserved verbatim.
		return e.Value, nil
	case *FoldedStringLiteral:
		// Folding happens here, at the consuming layer.
		return e.Folded(), nil
	case *BlockLiteral:
		if blockIsList(e.Body) {
			return d.evalListBody(e.Body)
		}
		return d.decodeBlockToMap(e.Body)
	}
	return nil, fmt.Errorf("unknown expression type: %T", expr)
}

func (d *internalDecoder) evalListBody(body *DocumentNode) ([]interface{}, error) {
	list := make([]interface{}, 0, len(body.Statements))
	for _, stmt := range body.Statements {
		item, ok := stmt.(*ListItemStatement)
		if !ok {
			return nil, fmt.Errorf("cannot mix list items and keyed entries in one block")
		}
		val, err := d.evalExpression(item.Value)
		if err != nil {
			return nil, err
		}
		list = append(list, val)
	}
	return list, nil
}

func (d *internalDecoder) decodeBlockToMap(body *DocumentNode) (map[string]interface{}, error) {
	m := make(map[string]interface{})
	for _, stmt := range body.Statements {
		switch s := stmt.(type) {
		case *PropertyStatement:
			val, err := d.evalExpression(s.Value)
			if err != nil {
				return nil, err
			}
			m[s.Name.Value] = val
		case *BlockStatement:
			if blockIsList(s.Body) {
				list, err := d.evalListBody(s.Body)
				if err != nil {
					return nil, err
				}
				m[s.Name.Value] = list
				continue
			}
			nested, err := d.decodeBlockToMap(s.Body)
			if err != nil {
				return nil, err
			}
			m[s.Name.Value] = nested
		case *ListItemStatement:
			return nil, fmt.Errorf("cannot mix list items and keyed entries in one block")
		}
	}
	return m, nil
}

func findFieldAndTag(structVal reflect.Value, name string) (reflect.Value, winfTag, bool) {
	typ := structVal.Type()
	cachedFields := getOrCacheDecoderFields(typ)

	if f, ok := cachedFields[name]; ok {
		return structVal.Field(f.Index), f.Tag, true
	}

	lowerName := strings.ToLower(name)
	for _, f := range cachedFields {
		if f.Tag.Name == f.FieldTyp.Name && strings.ToLower(f.FieldTyp.Name) == lowerName {
			return structVal.Field(f.Index), f.Tag, true
		}
	}

	return reflect.Value{}, winfTag{}, false
}

func (d *internalDecoder) decodeMapToStruct(sourceMap map[string]interface{}, targetStruct reflect.Value) error {
	for key, val := range sourceMap {
		field, _, ok := findFieldAndTag(targetStruct, key)
		if !ok {
			if d.strict {
				return fmt.Errorf("unknown key %q", key)
			}
			continue
		}
		if err := d.setField(field, val); err != nil {
			return fmt.Errorf("error setting field %q: %w", key, err)
		}
	}
	return nil
}

// DecodeFile 解析路径指向的文件并解码到 v.
func DecodeFile(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := NewDecoder(f)
	if err != nil {
		return err
	}
	return dec.Decode(v)
}

// Decode 解析 data 并解码到 v. 空输入是合法的空文档.
func Decode(data []byte, v interface{}, opts ...DecoderOption) error {
	if len(data) == 0 {
		return nil
	}
	dec, err := NewDecoder(bytes.NewReader(data), opts...)
	if err != nil {
		return err
	}
	return dec.Decode(v)
}

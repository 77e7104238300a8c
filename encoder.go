package winf

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

var encoderPool = sync.Pool{
	New: func() interface{} {
		return &internalEncoder{
			buf: &bytes.Buffer{},
		}
	},
}

// fieldCache caches processed field information for a given struct type.
var fieldCache sync.Map // map[reflect.Type][]cachedField

type cachedField struct {
	Index int
	Tag   winfTag
}

func getOrCacheEncoderFields(typ reflect.Type) []cachedField {
	if cached, ok := fieldCache.Load(typ); ok {
		return cached.([]cachedField)
	}
	var fields []cachedField
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.PkgPath != "" {
			continue
		}
		tag := parseWinfTag(field.Tag.Get("winf"), field.Name)
		fields = append(fields, cachedField{Index: i, Tag: tag})
	}
	fieldCache.Store(typ, fields)
	return fields
}

func getEncoder() *internalEncoder {
	return encoderPool.Get().(*internalEncoder)
}

func putEncoder(e *internalEncoder) {
	e.buf.Reset()
	encoderPool.Put(e)
}

func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	encoder := NewEncoder(&buf)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type EncoderOption func(*FormatOptions)

func WithStyle(style OutputStyle) EncoderOption {
	return func(o *FormatOptions) {
		o.Style = style
	}
}

func WithoutEmptyLines() EncoderOption {
	return func(o *FormatOptions) {
		o.EmptyLines = false
	}
}

type Encoder struct {
	w io.Writer
	e *internalEncoder
}

func NewEncoder(w io.Writer, opts ...EncoderOption) *Encoder {
	options := FormatOptions{
		Style:      StyleDefault,
		EmptyLines: true,
	}
	for _, opt := range opts {
		opt(&options)
	}
	e := getEncoder()
	e.opts = options
	return &Encoder{w: w, e: e}
}

func (enc *Encoder) Encode(v interface{}) error {
	defer putEncoder(enc.e)
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return fmt.Errorf("winf: cannot encode a nil value")
	}
	var err error
	switch rv.Kind() {
	case reflect.Struct:
		err = enc.e.encodeStruct(rv, 0)
	case reflect.Map:
		err = enc.e.encodeMap(rv, 0)
	default:
		return fmt.Errorf("winf: can only encode a struct or a map, got %s", rv.Kind())
	}
	if err != nil {
		return err
	}
	_, err = enc.w.Write(enc.e.buf.Bytes())
	return err
}

type internalEncoder struct {
	buf  *bytes.Buffer
	opts FormatOptions
}

type encodeEntry struct {
	name  string
	value reflect.Value
}

func (e *internalEncoder) encodeStruct(rv reflect.Value, depth int) error {
	fields := getOrCacheEncoderFields(rv.Type())
	entries := make([]encodeEntry, 0, len(fields))
	for _, f := range fields {
		fv := rv.Field(f.Index)
		if f.Tag.Omitempty && fv.IsZero() {
			continue
		}
		entries = append(entries, encodeEntry{name: f.Tag.Name, value: fv})
	}
	sorted := e.opts.Style == StyleAllSorted || (e.opts.Style == StyleBlockSorted && depth > 0)
	return e.encodeEntries(entries, depth, sorted)
}

func (e *internalEncoder) encodeMap(rv reflect.Value, depth int) error {
	if rv.Type().Key().Kind() != reflect.String {
		return fmt.Errorf("winf: map keys must be strings, got %s", rv.Type().Key())
	}
	entries := make([]encodeEntry, 0, rv.Len())
	for _, key := range rv.MapKeys() {
		entries = append(entries, encodeEntry{name: key.String(), value: rv.MapIndex(key)})
	}
	// Map iteration order is random; sort regardless of style so the
	// output is deterministic.
	return e.encodeEntries(entries, depth, true)
}

func (e *internalEncoder) encodeEntries(entries []encodeEntry, depth int, sorted bool) error {
	if sorted {
		sort.SliceStable(entries, func(i, j int) bool {
			bi, bj := isBlockValue(entries[i].value), isBlockValue(entries[j].value)
			if bi != bj {
				return !bi // scalars before blocks
			}
			return entries[i].name < entries[j].name
		})
	}
	for i, ent := range entries {
		if i > 0 && depth == 0 && e.opts.EmptyLines && isBlockValue(ent.value) {
			e.buf.WriteString("\n")
		}
		if err := e.encodeEntry(ent.name, ent.value, depth); err != nil {
			return err
		}
	}
	return nil
}

// isBlockValue reports whether the value renders as a `::` block.
func isBlockValue(v reflect.Value) bool {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return false
		}
		v = v.Elem()
	}
	if v.Type() == reflect.TypeOf(time.Duration(0)) {
		return false
	}
	switch v.Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
		return v.Kind() != reflect.Slice || v.Type().Elem().Kind() != reflect.Uint8
	}
	return false
}

func (e *internalEncoder) encodeEntry(name string, v reflect.Value, depth int) error {
	indent := strings.Repeat(" ", depth*IndentStep)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			e.buf.WriteString(indent)
			e.writeKey(name)
			e.buf.WriteString(": null\n")
			return nil
		}
		v = v.Elem()
	}
	if !isBlockValue(v) {
		lit, err := e.scalarLiteral(v, indent)
		if err != nil {
			return fmt.Errorf("key %q: %w", name, err)
		}
		e.buf.WriteString(indent)
		e.writeKey(name)
		e.buf.WriteString(": ")
		e.buf.WriteString(lit)
		e.buf.WriteString("\n")
		return nil
	}

	e.buf.WriteString(indent)
	e.writeKey(name)
	e.buf.WriteString("::\n")
	switch v.Kind() {
	case reflect.Struct:
		return e.encodeStruct(v, depth+1)
	case reflect.Map:
		return e.encodeMap(v, depth+1)
	case reflect.Slice, reflect.Array:
		return e.encodeList(v, depth+1)
	}
	return nil
}

func (e *internalEncoder) encodeList(v reflect.Value, depth int) error {
	indent := strings.Repeat(" ", depth*IndentStep)
	for i := 0; i < v.Len(); i++ {
		item := v.Index(i)
		for item.Kind() == reflect.Ptr || item.Kind() == reflect.Interface {
			if item.IsNil() {
				break
			}
			item = item.Elem()
		}
		if isBlockValue(item) {
			e.buf.WriteString(indent)
			e.buf.WriteString("-\n")
			var err error
			switch item.Kind() {
			case reflect.Struct:
				err = e.encodeStruct(item, depth+1)
			case reflect.Map:
				err = e.encodeMap(item, depth+1)
			default:
				err = fmt.Errorf("winf: cannot encode nested list element of kind %s", item.Kind())
			}
			if err != nil {
				return err
			}
			continue
		}
		if (item.Kind() == reflect.Ptr || item.Kind() == reflect.Interface) && item.IsNil() {
			e.buf.WriteString(indent)
			e.buf.WriteString("- null\n")
			continue
		}
		lit, err := e.scalarLiteral(item, indent)
		if err != nil {
			return fmt.Errorf("list element %d: %w", i, err)
		}
		e.buf.WriteString(indent)
		e.buf.WriteString("- ")
		e.buf.WriteString(lit)
		e.buf.WriteString("\n")
	}
	return nil
}

// writeKey emits a key, quoting it when it is not a bare identifier.
func (e *internalEncoder) writeKey(name string) {
	if isBareKey(name) {
		e.buf.WriteString(name)
		return
	}
	e.buf.WriteString(quoteString(name))
}

func isBareKey(name string) bool {
	if name == "" || isReservedWord(StringToBytes(name)) {
		return false
	}
	if !isKeyStart(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isKeyChar(name[i]) {
			return false
		}
	}
	return true
}

// scalarLiteral renders a scalar value. Strings containing newlines become
// fenced blocks whose closing fence aligns with the entry's indentation.
func (e *internalEncoder) scalarLiteral(v reflect.Value, indent string) (string, error) {
	if v.Type() == reflect.TypeOf(time.Duration(0)) {
		return quoteString(v.Interface().(time.Duration).String()), nil
	}
	switch v.Kind() {
	case reflect.String:
		s := v.String()
		if strings.ContainsRune(s, '\n') {
			return fencedLiteral(s, indent), nil
		}
		return quoteString(s), nil
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		switch {
		case math.IsNaN(f):
			return "nan", nil
		case math.IsInf(f, 1):
			return "inf", nil
		case math.IsInf(f, -1):
			return "-inf", nil
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return quoteString(string(v.Bytes())), nil
		}
	}
	return "", fmt.Errorf("unsupported scalar kind %s", v.Kind())
}

// fencedLiteral renders a multiline string as a literal block. The content
// is indented one step past the closing fence, which sits at the context
// the scanner will be tracking when it reads the token back.
func fencedLiteral(s, indent string) string {
	var b strings.Builder
	b.WriteString("```\n")
	inner := indent + strings.Repeat(" ", IndentStep)
	for _, line := range strings.Split(s, "\n") {
		if line != "" {
			b.WriteString(inner)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(indent)
	b.WriteString("```")
	return b.String()
}

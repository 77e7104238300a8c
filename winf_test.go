package winf

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestFormat_Styles(t *testing.T) {
	input := "server::\n  zeta: 1\n  alpha: 2\ntitle: \"x\"\n"

	tests := []struct {
		name string
		opts FormatOptions
		want string
	}{
		{
			// Nested blocks sort, document order at the root is kept.
			"Default (StyleBlockSorted)",
			FormatOptions{Style: StyleDefault},
			"server::\n  alpha: 2\n  zeta: 1\ntitle: \"x\"\n",
		},
		{
			"StyleAllSorted",
			FormatOptions{Style: StyleAllSorted},
			"server::\n  alpha: 2\n  zeta: 1\ntitle: \"x\"\n",
		},
		{
			"StyleStreaming",
			FormatOptions{Style: StyleStreaming},
			"server::\n  zeta: 1\n  alpha: 2\ntitle: \"x\"\n",
		},
		{
			"EmptyLines separates top-level blocks",
			FormatOptions{Style: StyleDefault, EmptyLines: true},
			"server::\n  alpha: 2\n  zeta: 1\ntitle: \"x\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(input))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			got := string(Format(doc, tt.opts))
			if got != tt.want {
				t.Errorf("Format got:\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestFormat_AllSortedReordersRoot(t *testing.T) {
	doc, err := Parse([]byte("zeta: 1\nalpha::\n  b: 2\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	got := string(Format(doc, FormatOptions{Style: StyleAllSorted}))
	want := "alpha::\n  b: 2\nzeta: 1\n"
	if got != want {
		t.Errorf("Format got:\n%q\nwant:\n%q", got, want)
	}
}

func TestFormat_EmptyLines(t *testing.T) {
	doc, err := Parse([]byte("title: \"x\"\nserver::\n  a: 1\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	got := string(Format(doc, FormatOptions{Style: StyleDefault, EmptyLines: true}))
	want := "title: \"x\"\n\nserver::\n  a: 1\n"
	if got != want {
		t.Errorf("Format got:\n%q\nwant:\n%q", got, want)
	}
}

func TestFormat_Idempotent(t *testing.T) {
	input := "b: 2\na::\n  d: \"x\"\n  c::\n    e: 0xFF\nlist::\n  - 1\n  - 2\n"
	doc, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	opts := FormatOptions{Style: StyleDefault, EmptyLines: true}
	once := Format(doc, opts)

	doc2, err := Parse(once)
	if err != nil {
		t.Fatalf("formatted output does not re-parse: %v\n%s", err, once)
	}
	twice := Format(doc2, opts)
	if !bytes.Equal(once, twice) {
		t.Errorf("formatting is not idempotent:\nfirst:\n%s\nsecond:\n%s", once, twice)
	}
}

func TestFormat_FencedRoundTrip(t *testing.T) {
	// A fenced literal re-rendered by the formatter parses back to the
	// same body, including trailing and embedded blank lines.
	bodies := []string{
		"hello",
		"line1\nline2",
		"keep\n\nblank",
		"trailing\n",
	}
	for _, body := range bodies {
		lit := &BlockStringLiteral{Value: body}
		var buf bytes.Buffer
		buf.WriteString("text: ")
		lit.Format(&buf, "", FormatOptions{})
		buf.WriteString("\n")

		doc, err := Parse(buf.Bytes())
		if err != nil {
			t.Fatalf("body %q: formatted output does not parse: %v\n%s", body, err, buf.String())
		}
		got := doc.Statements[0].(*PropertyStatement).Value.(*BlockStringLiteral).Value
		if got != body {
			t.Errorf("body %q round-tripped to %q", body, got)
		}
	}
}

func TestEncoder_Styles(t *testing.T) {
	type SubBlock struct {
		BSub string `winf:"b_sub"`
		ASub string `winf:"a_sub"`
	}
	type Config struct {
		CKv    string            `winf:"c_kv"`
		ABlock SubBlock          `winf:"a_block"`
		BKv    int               `winf:"b_kv"`
		DMap   map[string]string `winf:"d_map"`
	}

	testData := Config{
		CKv:    "c",
		ABlock: SubBlock{BSub: "b", ASub: "a"},
		BKv:    123,
		DMap:   map[string]string{"z_key": "z", "y_key": "y"},
	}

	tests := []struct {
		name    string
		options []EncoderOption
		want    string
	}{
		{
			"Default (StyleBlockSorted)",
			[]EncoderOption{},
			strings.Join(
				[]string{
					`c_kv: "c"`,
					``,
					`a_block::`,
					`  a_sub: "a"`,
					`  b_sub: "b"`,
					`b_kv: 123`,
					``,
					`d_map::`,
					`  y_key: "y"`,
					`  z_key: "z"`,
					``,
				},
				"\n",
			),
		},
		{
			"StyleStreaming",
			[]EncoderOption{WithStyle(StyleStreaming), WithoutEmptyLines()},
			"c_kv: \"c\"\na_block::\n  b_sub: \"b\"\n  a_sub: \"a\"\nb_kv: 123\nd_map::\n  y_key: \"y\"\n  z_key: \"z\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			encoder := NewEncoder(&buf, tt.options...)
			if err := encoder.Encode(testData); err != nil {
				t.Fatalf("Encode() with style %v failed: %v", tt.name, err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("Encode() with style %v got:\n%q\nWant:\n%q", tt.name, got, tt.want)
			}

			var decodedCfg Config
			if err := Decode(buf.Bytes(), &decodedCfg); err != nil {
				t.Fatalf("Decode round-trip failed for style %v: %v\nGot:\n%s", tt.name, err, buf.String())
			}
			if !reflect.DeepEqual(testData, decodedCfg) {
				t.Errorf("Round-trip failed for style %v. Got %+v, want %+v", tt.name, decodedCfg, testData)
			}
		})
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	type Limits struct {
		CPU    int           `winf:"cpu"`
		Memory int64         `winf:"memory"`
		Grace  time.Duration `winf:"grace"`
	}
	type Config struct {
		Name    string   `winf:"name"`
		Debug   bool     `winf:"debug"`
		Ratio   float64  `winf:"ratio"`
		Notes   string   `winf:"notes"`
		Tags    []string `winf:"tags"`
		Limits  Limits   `winf:"limits"`
		Ignored string   `winf:"ignored,omitempty"`
	}

	testData := Config{
		Name:  "svc",
		Debug: true,
		Ratio: 0.5,
		Notes: "first line\nsecond line",
		Tags:  []string{"a", "b"},
		Limits: Limits{
			CPU:    4,
			Memory: 1 << 30,
			Grace:  90 * time.Second,
		},
	}

	b, err := Marshal(testData)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if strings.Contains(string(b), "ignored") {
		t.Errorf("omitempty field encoded: %s", b)
	}

	var got Config
	if err := Decode(b, &got); err != nil {
		t.Fatalf("Decode failed: %v\nEncoded:\n%s", err, b)
	}
	if !reflect.DeepEqual(testData, got) {
		t.Errorf("round trip mismatch.\nGot:  %+v\nWant: %+v\nEncoded:\n%s", got, testData, b)
	}
}

func TestDecode_Scalars(t *testing.T) {
	input := `name: "svc"
hex: 0xFF
big: 1_000_000
ratio: 2.5
sci: 1e3
debug: true
timeout: "1m30s"
`
	var cfg struct {
		Name    string        `winf:"name"`
		Hex     int           `winf:"hex"`
		Big     int64         `winf:"big"`
		Ratio   float64       `winf:"ratio"`
		Sci     float64       `winf:"sci"`
		Debug   bool          `winf:"debug"`
		Timeout time.Duration `winf:"timeout"`
	}
	if err := Decode([]byte(input), &cfg); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if cfg.Name != "svc" || cfg.Hex != 255 || cfg.Big != 1000000 ||
		cfg.Ratio != 2.5 || cfg.Sci != 1000 || !cfg.Debug ||
		cfg.Timeout != 90*time.Second {
		t.Errorf("decode mismatch: %+v", cfg)
	}
}

func TestDecode_FencedStrings(t *testing.T) {
	input := "block: ```\n" +
		"  line1\n" +
		"  line2\n" +
		"```\n" +
		"folded: \"\"\"\n" +
		"  word one\n" +
		"  word two\n" +
		"\"\"\"\n"
	var cfg struct {
		Block  string `winf:"block"`
		Folded string `winf:"folded"`
	}
	if err := Decode([]byte(input), &cfg); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if cfg.Block != "line1\nline2" {
		t.Errorf("block = %q", cfg.Block)
	}
	// Folded blocks reach the consumer with newlines collapsed to spaces.
	if cfg.Folded != "word one word two" {
		t.Errorf("folded = %q", cfg.Folded)
	}
}

func TestDecode_NestedListOfStructs(t *testing.T) {
	input := `endpoints::
  -
    host: "a"
    port: 1
  -
    host: "b"
    port: 2
`
	var cfg struct {
		Endpoints []struct {
			Host string `winf:"host"`
			Port int    `winf:"port"`
		} `winf:"endpoints"`
	}
	if err := Decode([]byte(input), &cfg); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(cfg.Endpoints) != 2 {
		t.Fatalf("decoded %d endpoints, want 2", len(cfg.Endpoints))
	}
	if cfg.Endpoints[0].Host != "a" || cfg.Endpoints[1].Port != 2 {
		t.Errorf("decode mismatch: %+v", cfg.Endpoints)
	}
}

func TestDecode_NullAndPointer(t *testing.T) {
	input := "maybe: null\nvalue: 42\n"
	var cfg struct {
		Maybe *string `winf:"maybe"`
		Value *int    `winf:"value"`
	}
	if err := Decode([]byte(input), &cfg); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if cfg.Maybe != nil {
		t.Errorf("null decoded to %v, want nil", *cfg.Maybe)
	}
	if cfg.Value == nil || *cfg.Value != 42 {
		t.Errorf("value pointer mismatch: %v", cfg.Value)
	}
}

func TestDecode_StrictKeys(t *testing.T) {
	input := "known: 1\nunknown: 2\n"
	var cfg struct {
		Known int `winf:"known"`
	}
	if err := Decode([]byte(input), &cfg); err != nil {
		t.Fatalf("lenient decode failed: %v", err)
	}
	if err := Decode([]byte(input), &cfg, WithStrictKeys()); err == nil {
		t.Error("strict decode accepted an unknown key")
	}
}

func TestDecode_TypeMismatch(t *testing.T) {
	var cfg struct {
		Port int `winf:"port"`
	}
	// A string never silently coerces into a number field.
	if err := Decode([]byte("port: \"8080\"\n"), &cfg); err == nil {
		t.Error("expected an error decoding a string into an int field")
	}
}

func TestFieldMatching_Fallback(t *testing.T) {
	type Config struct {
		TaggedField   string `winf:"tagged_field"`
		UntaggedField int
		LogLevel      string // matched case-insensitively
	}

	input := "tagged_field: \"new_value\"\nuntaggedfield: 456\nloglevel: \"DEBUG\"\n"
	var decodedCfg Config
	if err := Decode([]byte(input), &decodedCfg); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	expected := Config{
		TaggedField:   "new_value",
		UntaggedField: 456,
		LogLevel:      "DEBUG",
	}
	if !reflect.DeepEqual(decodedCfg, expected) {
		t.Errorf("Fallback decoding failed. Got %+v, want %+v", decodedCfg, expected)
	}
}

func TestEncoder_QuotedKeys(t *testing.T) {
	data := map[string]int{"needs quoting": 1, "plain": 2, "true": 3}
	b, err := Marshal(data)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	got := string(b)
	if !strings.Contains(got, `"needs quoting": 1`) {
		t.Errorf("space-bearing key not quoted: %s", got)
	}
	if !strings.Contains(got, "plain: 2") {
		t.Errorf("bare key quoted: %s", got)
	}
	// Reserved words cannot stand as bare keys.
	if !strings.Contains(got, `"true": 3`) {
		t.Errorf("reserved-word key not quoted: %s", got)
	}

	doc, err := Parse(b)
	if err != nil {
		t.Fatalf("encoded output does not parse: %v\n%s", err, b)
	}
	if len(doc.Statements) != 3 {
		t.Errorf("re-parse yields %d statements, want 3", len(doc.Statements))
	}
}

func TestEncoder_EmptySlice(t *testing.T) {
	type Config struct {
		Name string   `winf:"name"`
		Tags []string `winf:"tags"`
	}
	b, err := Marshal(Config{Name: "x", Tags: []string{}})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var got Config
	if err := Decode(b, &got); err != nil {
		t.Fatalf("Decode failed: %v\n%s", err, b)
	}
	if got.Tags == nil || len(got.Tags) != 0 {
		t.Errorf("empty slice round trip: %+v", got.Tags)
	}
}

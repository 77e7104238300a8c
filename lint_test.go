package winf

import (
	"strings"
	"testing"

	"github.com/go-json-experiment/json"
)

func TestLint_Clean(t *testing.T) {
	input := "a: 1\nb::\n  c: 2\n"
	doc, errs := Lint([]byte(input))
	if len(errs) != 0 {
		t.Fatalf("clean input produced %d errors: %v", len(errs), errs)
	}
	if doc == nil || len(doc.Statements) != 2 {
		t.Fatalf("lint did not return the parsed tree")
	}
}

func TestLint_DuplicateKeys(t *testing.T) {
	input := `a: 1
b::
  c: 1
  c: 2
a: 3
`
	_, errs := Lint([]byte(input))
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(errs), errs)
	}

	if errs[0].Type != ErrDuplicateKey || errs[0].Line != 4 {
		t.Errorf("first error = %+v, want duplicate key on line 4", errs[0])
	}
	if !strings.Contains(errs[0].Message, "first defined on line 3") {
		t.Errorf("first error message = %q", errs[0].Message)
	}
	if errs[1].Type != ErrDuplicateKey || errs[1].Line != 5 {
		t.Errorf("second error = %+v, want duplicate key on line 5", errs[1])
	}
	if !strings.Contains(errs[1].Message, "first defined on line 1") {
		t.Errorf("second error message = %q", errs[1].Message)
	}
}

func TestLint_QuotedKeyCollidesWithBare(t *testing.T) {
	input := "a: 1\n\"a\": 2\n"
	_, errs := Lint([]byte(input))
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d: %v", len(errs), errs)
	}
	if errs[0].Type != ErrDuplicateKey || errs[0].Args[0] != "a" {
		t.Errorf("error = %+v", errs[0])
	}
}

func TestLint_SameKeyDifferentScopes(t *testing.T) {
	// A key may repeat across sibling blocks.
	input := "x::\n  port: 1\ny::\n  port: 2\nport: 3\n"
	_, errs := Lint([]byte(input))
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestLint_ParseDiagnostics(t *testing.T) {
	input := "a:\nb: 1\nb: 2\n"
	doc, errs := Lint([]byte(input))
	if !HasErrorMarkers(doc) {
		t.Fatal("tree has no error marker")
	}
	var missing, dup int
	for _, e := range errs {
		switch e.Type {
		case ErrMissingValue:
			missing++
		case ErrDuplicateKey:
			dup++
		}
	}
	if missing != 1 || dup != 1 {
		t.Errorf("expected one missing-value and one duplicate-key error, got %v", errs)
	}
}

func TestLintError_JSON(t *testing.T) {
	input := "a: 1\na: 2\n"
	_, errs := Lint([]byte(input))
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}

	out, err := json.Marshal(errs)
	if err != nil {
		t.Fatalf("could not marshal errors: %v", err)
	}
	for _, want := range []string{`"line":2`, `"column":0`, `"args":["a"]`, `"message":`} {
		if !strings.Contains(string(out), want) {
			t.Errorf("JSON output missing %s:\n%s", want, out)
		}
	}

	var decoded []LintError
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("could not unmarshal errors: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Line != errs[0].Line || decoded[0].Type != errs[0].Type {
		t.Errorf("JSON round trip mismatch: %+v vs %+v", decoded, errs)
	}
}

package engine

import "testing"

func TestParseResultStructured(t *testing.T) {
	r := ParseResult(`Here is the verdict: {"rating": "Green", "note": "{braces} inside \"strings\" are fine"} done`)
	if r.Kind != KindStructured {
		t.Fatalf("expected structured result, got kind %d raw %q", r.Kind, r.Raw)
	}
	var out struct {
		Rating string `json:"rating"`
	}
	if err := r.Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Rating != "Green" {
		t.Fatalf("unexpected rating: %q", out.Rating)
	}
}

func TestParseResultRawText(t *testing.T) {
	r := ParseResult("The project looks risky but no structure here")
	if r.Kind != KindRawText {
		t.Fatalf("expected raw text, got kind %d", r.Kind)
	}
	if r.Raw == "" || r.Structured != nil {
		t.Fatalf("unexpected result: %+v", r)
	}
}

func TestParseResultUnbalancedBraces(t *testing.T) {
	r := ParseResult(`{"rating": "Green"`)
	if r.Kind != KindRawText {
		t.Fatalf("unterminated object should fall back to raw text, got kind %d", r.Kind)
	}
}

func TestParseResultEmpty(t *testing.T) {
	if r := ParseResult("   "); r.Kind != KindUnknown {
		t.Fatalf("expected unknown for blank input, got kind %d", r.Kind)
	}
}

package analyzer

import (
	"testing"
)

func TestApproxTokenizer_CountTokens(t *testing.T) {
	tok := NewApproxTokenizer()

	count := tok.CountTokens("hello world this is a test")
	if count == 0 {
		t.Error("expected non-zero token count")
	}
	if count < 6 {
		t.Errorf("expected count >= 6 words, got %d", count)
	}
}

func TestApproxTokenizer_Monotonic(t *testing.T) {
	tok := NewApproxTokenizer()

	short := tok.CountTokens("Title: Good; Content: Tasty")
	long := tok.CountTokens("Title: Good; Content: Tasty snacks, would buy them again for the office")
	if long <= short {
		t.Errorf("longer text should count more tokens: short=%d long=%d", short, long)
	}
}

func TestApproxTokenizer_EmptyInput(t *testing.T) {
	tok := NewApproxTokenizer()

	if count := tok.CountTokens(""); count != 0 {
		t.Errorf("expected 0 count for empty input, got %d", count)
	}
	if count := tok.CountTokens("   \n\t"); count != 0 {
		t.Errorf("expected 0 count for whitespace, got %d", count)
	}
}

func TestNewTokenizer_Approx(t *testing.T) {
	for _, name := range []string{"", "approx"} {
		tok, err := NewTokenizer(name)
		if err != nil {
			t.Fatalf("NewTokenizer(%q): %v", name, err)
		}
		if tok.Name() != "approx" {
			t.Errorf("NewTokenizer(%q) returned %s", name, tok.Name())
		}
	}
}

func TestBPETokenizer_CL100K(t *testing.T) {
	tok, err := NewBPETokenizer("cl100k_base")
	if err != nil {
		t.Fatalf("load cl100k_base: %v", err)
	}

	if got := tok.CountTokens("hello world"); got != 2 {
		t.Errorf("expected 2 tokens for 'hello world', got %d", got)
	}
	if got := tok.CountTokens(""); got != 0 {
		t.Errorf("expected 0 tokens for empty input, got %d", got)
	}
}

func TestBPETokenizer_UnknownEncoding(t *testing.T) {
	if _, err := NewBPETokenizer("no_such_encoding"); err == nil {
		t.Error("expected error for unknown encoding")
	}
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"hello world", 2},
		{"hello_world", 1},
		{"hello-world", 3},
		{"Title: Good", 3},
		{"123numbers456", 1},
	}

	for _, tt := range tests {
		words := splitWords(tt.input)
		if len(words) != tt.expected {
			t.Errorf("splitWords(%q) = %d words, want %d: %v", tt.input, len(words), tt.expected, words)
		}
	}
}

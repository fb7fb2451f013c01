package analyzer

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// ApproxTokenizer estimates token counts without a vocabulary.
type ApproxTokenizer struct{}

// NewApproxTokenizer creates a heuristic token counter.
func NewApproxTokenizer() *ApproxTokenizer {
	return &ApproxTokenizer{}
}

// CountTokens returns an approximate token count for LLM budget estimation.
func (t *ApproxTokenizer) CountTokens(text string) int {
	words := splitWords(text)
	if len(words) == 0 {
		return 0
	}
	// Rough estimate: average word is about 1.3 tokens
	return int(float64(len(words)) * 1.3)
}

func (t *ApproxTokenizer) Name() string {
	return "approx"
}

var loaderOnce sync.Once

// BPETokenizer counts tokens with a byte-pair encoding such as cl100k_base.
type BPETokenizer struct {
	name string
	enc  *tiktoken.Tiktoken
}

// NewBPETokenizer loads the named encoding from the embedded offline tables.
func NewBPETokenizer(encoding string) (*BPETokenizer, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &BPETokenizer{name: encoding, enc: enc}, nil
}

// CountTokens returns the exact number of BPE tokens in text.
func (t *BPETokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

func (t *BPETokenizer) Name() string {
	return t.name
}

// splitWords splits text into words using unicode word boundaries.
func splitWords(text string) []string {
	var words []string
	var current strings.Builder

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			current.WriteRune(r)
		} else {
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
			// Punctuation is usually its own token.
			if unicode.IsPunct(r) || unicode.IsSymbol(r) {
				words = append(words, string(r))
			}
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}

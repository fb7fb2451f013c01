package analyzer

import "textclf/internal/port"

// NewTokenizer returns the token counter for an encoding name.
// "approx" (or empty) selects the heuristic counter.
func NewTokenizer(encoding string) (port.Tokenizer, error) {
	if encoding == "" || encoding == "approx" {
		return NewApproxTokenizer(), nil
	}
	return NewBPETokenizer(encoding)
}

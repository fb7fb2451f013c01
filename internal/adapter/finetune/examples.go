// Package finetune prepares prompt/completion datasets and talks to an
// OpenAI-compatible fine-tuning API.
package finetune

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"textclf/internal/domain"
)

// Example is one line of a fine-tuning JSONL file.
type Example struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

// NewExample builds prompt = combined+separator and completion = " "+label.
func NewExample(rec domain.Record, separator string) Example {
	return Example{
		Prompt:     rec.Combined + separator,
		Completion: " " + rec.Label,
	}
}

// Label recovers the class from a completion.
func Label(completion string) string {
	return strings.TrimSpace(completion)
}

func WriteJSONL(w io.Writer, examples []Example) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, ex := range examples {
		if err := enc.Encode(ex); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func ReadJSONL(r io.Reader) ([]Example, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var out []Example
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var ex Example
		if err := json.Unmarshal([]byte(text), &ex); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, ex)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

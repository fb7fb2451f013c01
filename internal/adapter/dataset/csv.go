// Package dataset reads and writes the delimited tables the pipeline works on.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"textclf/config"
	"textclf/internal/domain"
)

// Derived columns appended after the source columns.
const (
	CombinedColumn  = "combined"
	TokensColumn    = "n_tokens"
	EmbeddingColumn = "embedding"
)

var (
	ErrMissingColumn  = errors.New("missing column")
	ErrHeaderMismatch = errors.New("header mismatch")
)

// Columns names the source columns mapped onto Record fields.
// An empty ID means ids are the 0-based row index. Text columns are only
// checked for presence.
type Columns struct {
	ID    string
	Label string
	Time  string
	Text  []string
}

// ColumnsFromConfig picks the id, label, time and text columns out of the dataset section.
func ColumnsFromConfig(cfg config.DatasetConfig) Columns {
	cols := Columns{ID: cfg.IDColumn, Label: cfg.LabelColumn, Time: cfg.TimeColumn}
	for _, tf := range cfg.TextFields {
		cols.Text = append(cols.Text, tf.Column)
	}
	return cols
}

// ReadCSV parses a header row followed by records. Derived columns written by
// WriteCSV are parsed back into Combined, Tokens and Embedding.
func ReadCSV(r io.Reader, cols Columns) (*domain.Dataset, error) {
	return readCSV(r, cols, 0)
}

func readCSV(r io.Reader, cols Columns, offset int) (*domain.Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty table: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	index := make(map[string]int, len(header))
	var source []string
	for i, name := range header {
		index[name] = i
		switch name {
		case CombinedColumn, TokensColumn, EmbeddingColumn:
		default:
			source = append(source, name)
		}
	}

	for _, name := range append([]string{cols.Label, cols.Time}, cols.Text...) {
		if name == "" {
			continue
		}
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}
	_, hasID := index[cols.ID]

	ds := &domain.Dataset{Columns: source}
	for row := 0; ; row++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row+1, err)
		}

		rec := domain.Record{
			Fields:      make(map[string]string, len(source)),
			LabelSource: domain.LabelFromSource,
		}
		for _, name := range source {
			if i := index[name]; i < len(fields) {
				rec.Fields[name] = fields[i]
			}
		}

		if hasID {
			rec.ID = rec.Fields[cols.ID]
		} else {
			rec.ID = strconv.Itoa(offset + row)
		}
		if cols.Label != "" {
			rec.Label = strings.TrimSpace(rec.Fields[cols.Label])
		}
		if cols.Time != "" {
			if v := strings.TrimSpace(rec.Fields[cols.Time]); v != "" {
				ts, err := parseTime(v)
				if err != nil {
					return nil, fmt.Errorf("row %d: column %q: %w", row+1, cols.Time, err)
				}
				rec.Time = ts
			}
		}

		if err := readDerived(&rec, fields, index); err != nil {
			return nil, fmt.Errorf("row %d: %w", row+1, err)
		}
		ds.Records = append(ds.Records, rec)
	}

	return ds, nil
}

func readDerived(rec *domain.Record, fields []string, index map[string]int) error {
	get := func(name string) (string, bool) {
		i, ok := index[name]
		if !ok || i >= len(fields) {
			return "", false
		}
		return fields[i], true
	}

	if v, ok := get(CombinedColumn); ok {
		rec.Combined = v
	}
	if v, ok := get(TokensColumn); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("column %q: %w", TokensColumn, err)
		}
		rec.Tokens = n
	}
	if v, ok := get(EmbeddingColumn); ok {
		vec, err := ParseEmbedding(v)
		if err != nil {
			return err
		}
		rec.Embedding = vec
	}
	return nil
}

// parseTime accepts unix seconds or RFC 3339 timestamps.
func parseTime(v string) (int64, error) {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", v)
	}
	return t.Unix(), nil
}

// WriteCSV writes the source columns followed by combined, n_tokens and embedding.
func WriteCSV(w io.Writer, ds *domain.Dataset) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(ds.Columns)+3)
	header = append(header, ds.Columns...)
	header = append(header, CombinedColumn, TokensColumn, EmbeddingColumn)
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for _, rec := range ds.Records {
		for i, name := range ds.Columns {
			row[i] = rec.Fields[name]
		}
		n := len(ds.Columns)
		row[n] = rec.Combined
		row[n+1] = strconv.Itoa(rec.Tokens)
		row[n+2] = FormatEmbedding(rec.Embedding)
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// FormatEmbedding renders a vector as "[v1, v2, ...]" using the shortest
// representation that parses back to the same float32.
func FormatEmbedding(v []float32) string {
	if len(v) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(v) * 12)
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

// ParseEmbedding is the inverse of FormatEmbedding. An empty cell yields nil.
func ParseEmbedding(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("invalid embedding: want [v1, v2, ...]")
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return nil, nil
	}

	parts := strings.Split(body, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid embedding component %d: %w", i, err)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}

// ReadCorrections reads "id,label" rows. A leading header row naming "id" is skipped.
func ReadCorrections(r io.Reader) (map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	out := make(map[string]string)
	for line := 1; ; line++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("corrections line %d: %w", line, err)
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("corrections line %d: want id,label", line)
		}
		id := strings.TrimSpace(fields[0])
		if line == 1 && strings.EqualFold(id, "id") {
			continue
		}
		out[id] = strings.TrimSpace(fields[1])
	}
	return out, nil
}

package domain

// LabelSource records where a record's label came from.
type LabelSource string

const (
	LabelFromSource    LabelSource = "source"
	LabelFromMap       LabelSource = "mapped"
	LabelFromCorrected LabelSource = "corrected"
	LabelFromZeroShot  LabelSource = "zero_shot"
)

// Record is one row of the dataset.
type Record struct {
	ID          string
	Label       string
	LabelSource LabelSource
	Time        int64
	Fields      map[string]string
	Combined    string
	Tokens      int
	Embedding   []float32
}

// HasEmbedding reports whether the record carries a vector.
func (r Record) HasEmbedding() bool {
	return len(r.Embedding) > 0
}

// Dataset is an ordered collection of records plus the source column order.
type Dataset struct {
	Columns []string
	Records []Record
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.Records)
}

// Split holds disjoint train and test partitions.
type Split struct {
	Train []Record
	Test  []Record
}

// Prediction is one classified record. Probabilities come from a trained
// classifier or a model's logprobs; Scores hold unnormalised similarities.
type Prediction struct {
	RecordID      string             `json:"id"`
	Actual        string             `json:"actual,omitempty"`
	Predicted     string             `json:"predicted"`
	Probabilities map[string]float64 `json:"probabilities,omitempty"`
	Scores        map[string]float64 `json:"scores,omitempty"`
}

// ClassMetrics is one row of a classification report.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report mirrors the layout of a per-class precision/recall/F1 report.
type Report struct {
	RunID       string         `json:"run_id,omitempty"`
	Classes     []ClassMetrics `json:"classes"`
	Accuracy    float64        `json:"accuracy"`
	MacroAvg    ClassMetrics   `json:"macro_avg"`
	WeightedAvg ClassMetrics   `json:"weighted_avg"`
	Total       int            `json:"total"`
}

// CacheStats counts cache traffic for one run.
type CacheStats struct {
	Hits          int `json:"hits"`
	Misses        int `json:"misses"`
	ProviderCalls int `json:"provider_calls"`
}

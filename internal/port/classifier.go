package port

import "context"

// Classifier fits on labelled feature vectors and predicts labels.
type Classifier interface {
	Fit(ctx context.Context, x [][]float32, y []string) error

	Predict(x [][]float32) ([]string, error)

	// PredictProba returns, per row, the probability of every known class.
	PredictProba(x [][]float32) ([]map[string]float64, error)

	Classes() []string
}

// Completer generates text from a prompt using a hosted model.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (Completion, error)
}

// Completion is the generated text plus the top alternatives for the first token.
type Completion struct {
	Text        string
	TopLogprobs map[string]float64
}

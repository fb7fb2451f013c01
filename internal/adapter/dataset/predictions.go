package dataset

import (
	"encoding/csv"
	"io"
	"strconv"

	"textclf/internal/domain"
)

// WritePredictions writes id, actual and predicted, then one p_<class> column
// per class when any prediction carries probabilities and one score_<class>
// column per class when any carries scores.
func WritePredictions(w io.Writer, preds []domain.Prediction, classes []string) error {
	cw := csv.NewWriter(w)

	var hasProbs, hasScores bool
	for _, p := range preds {
		hasProbs = hasProbs || len(p.Probabilities) > 0
		hasScores = hasScores || len(p.Scores) > 0
	}

	header := []string{"id", "actual", "predicted"}
	if hasProbs {
		for _, c := range classes {
			header = append(header, "p_"+c)
		}
	}
	if hasScores {
		for _, c := range classes {
			header = append(header, "score_"+c)
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, 0, len(header))
	for _, p := range preds {
		row = append(row[:0], p.RecordID, p.Actual, p.Predicted)
		if hasProbs {
			row = appendValues(row, p.Probabilities, classes)
		}
		if hasScores {
			row = appendValues(row, p.Scores, classes)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func appendValues(row []string, values map[string]float64, classes []string) []string {
	for _, c := range classes {
		row = append(row, strconv.FormatFloat(values[c], 'f', 4, 64))
	}
	return row
}

package dataset

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textclf/internal/domain"
)

func TestWritePredictions_Columns(t *testing.T) {
	tests := []struct {
		name  string
		preds []domain.Prediction
		want  string
	}{
		{
			name: "probabilities",
			preds: []domain.Prediction{
				{RecordID: "1", Actual: "positive", Predicted: "positive", Probabilities: map[string]float64{"negative": 0.25, "positive": 0.75}},
			},
			want: "id,actual,predicted,p_negative,p_positive\n1,positive,positive,0.2500,0.7500\n",
		},
		{
			name: "similarity scores",
			preds: []domain.Prediction{
				{RecordID: "7", Predicted: "negative", Scores: map[string]float64{"negative": 0.12, "positive": -0.03}},
			},
			want: "id,actual,predicted,score_negative,score_positive\n7,,negative,0.1200,-0.0300\n",
		},
		{
			name: "labels only",
			preds: []domain.Prediction{
				{RecordID: "0", Actual: "negative", Predicted: "positive"},
			},
			want: "id,actual,predicted\n0,negative,positive\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WritePredictions(&buf, tt.preds, []string{"negative", "positive"}))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

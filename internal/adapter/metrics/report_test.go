package metrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassificationReport(t *testing.T) {
	actual := []string{"neg", "neg", "neg", "pos", "pos", "pos", "pos"}
	predicted := []string{"neg", "neg", "pos", "pos", "pos", "pos", "neg"}

	r, err := ClassificationReport(actual, predicted)
	require.NoError(t, err)
	require.Len(t, r.Classes, 2)

	// neg: tp=2, predicted=3, support=3
	neg := r.Classes[0]
	assert.Equal(t, "neg", neg.Label)
	assert.InDelta(t, 2.0/3.0, neg.Precision, 1e-9)
	assert.InDelta(t, 2.0/3.0, neg.Recall, 1e-9)
	assert.InDelta(t, 2.0/3.0, neg.F1, 1e-9)
	assert.Equal(t, 3, neg.Support)

	// pos: tp=3, predicted=4, support=4
	pos := r.Classes[1]
	assert.InDelta(t, 0.75, pos.Precision, 1e-9)
	assert.InDelta(t, 0.75, pos.Recall, 1e-9)
	assert.Equal(t, 4, pos.Support)

	assert.InDelta(t, 5.0/7.0, r.Accuracy, 1e-9)
	assert.InDelta(t, (2.0/3.0+0.75)/2, r.MacroAvg.Precision, 1e-9)
	assert.InDelta(t, (3*(2.0/3.0)+4*0.75)/7, r.WeightedAvg.F1, 1e-9)
	assert.Equal(t, 7, r.Total)
}

func TestClassificationReport_ZeroDivision(t *testing.T) {
	// "neutral" is never predicted and "other" never occurs.
	r, err := ClassificationReport(
		[]string{"neutral", "pos", "pos"},
		[]string{"other", "pos", "pos"},
	)
	require.NoError(t, err)
	require.Len(t, r.Classes, 3)

	neutral := r.Classes[0]
	assert.Equal(t, 0.0, neutral.Precision)
	assert.Equal(t, 0.0, neutral.Recall)
	assert.Equal(t, 0.0, neutral.F1)

	other := r.Classes[1]
	assert.Equal(t, "other", other.Label)
	assert.Equal(t, 0, other.Support)
	assert.Equal(t, 0.0, other.Recall)
}

func TestClassificationReport_Errors(t *testing.T) {
	_, err := ClassificationReport(nil, nil)
	assert.True(t, errors.Is(err, ErrNoSamples))

	_, err = ClassificationReport([]string{"a"}, []string{"a", "b"})
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	r, err := ClassificationReport([]string{"negative", "positive"}, []string{"negative", "positive"})
	require.NoError(t, err)

	out := Format(r, false)
	lines := strings.Split(out, "\n")
	assert.Contains(t, lines[0], "precision")
	assert.Contains(t, out, "    negative       1.00       1.00       1.00          1")
	assert.Contains(t, out, "    accuracy                             1.00          2")
	assert.Contains(t, out, "weighted avg")

	assert.Contains(t, Format(r, true), "negative")
}

func TestConfusionMatrix(t *testing.T) {
	m, err := NewConfusionMatrix(
		[]string{"a", "a", "b", "b", "b"},
		[]string{"a", "b", "b", "b", "a"},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, m.Labels)
	assert.Equal(t, [][]int{{1, 1}, {1, 2}}, m.Counts)
	assert.Equal(t, 2, m.Get("b", "b"))
	assert.Equal(t, 0, m.Get("z", "a"))
	assert.Contains(t, m.Format(), "actual")

	_, err = NewConfusionMatrix([]string{"a"}, nil)
	assert.Error(t, err)
}

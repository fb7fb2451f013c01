package metrics

import (
	"fmt"
	"strings"
)

// ConfusionMatrix counts predictions per (actual, predicted) label pair.
// Rows are actual labels, columns predicted, both in Labels order.
type ConfusionMatrix struct {
	Labels []string
	Counts [][]int
}

func NewConfusionMatrix(actual, predicted []string) (*ConfusionMatrix, error) {
	if len(actual) != len(predicted) {
		return nil, fmt.Errorf("metrics: %d actual labels, %d predicted", len(actual), len(predicted))
	}
	labels := labelSet(actual, predicted)
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	counts := make([][]int, len(labels))
	for i := range counts {
		counts[i] = make([]int, len(labels))
	}
	for i := range actual {
		counts[index[actual[i]]][index[predicted[i]]]++
	}
	return &ConfusionMatrix{Labels: labels, Counts: counts}, nil
}

// Get returns how often actual was predicted as predicted.
func (m *ConfusionMatrix) Get(actual, predicted string) int {
	ai, pi := -1, -1
	for i, l := range m.Labels {
		if l == actual {
			ai = i
		}
		if l == predicted {
			pi = i
		}
	}
	if ai < 0 || pi < 0 {
		return 0
	}
	return m.Counts[ai][pi]
}

func (m *ConfusionMatrix) Format() string {
	width := len("actual")
	for _, l := range m.Labels {
		if len(l) > width {
			width = len(l)
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-*s", width, "actual"))
	for _, l := range m.Labels {
		sb.WriteString(fmt.Sprintf(" %*s", width, l))
	}
	sb.WriteString("\n")
	for i, l := range m.Labels {
		sb.WriteString(fmt.Sprintf("%-*s", width, l))
		for _, c := range m.Counts[i] {
			sb.WriteString(fmt.Sprintf(" %*d", width, c))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Package metrics computes classification reports and confusion matrices.
package metrics

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"textclf/internal/domain"
)

var ErrNoSamples = errors.New("metrics: no samples")

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	summaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	goodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func labelSet(actual, predicted []string) []string {
	seen := make(map[string]struct{})
	for _, l := range actual {
		seen[l] = struct{}{}
	}
	for _, l := range predicted {
		seen[l] = struct{}{}
	}
	labels := make([]string, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// ClassificationReport computes per-class precision, recall, F1 and support
// over the union of actual and predicted labels. Zero divisions yield 0.
func ClassificationReport(actual, predicted []string) (domain.Report, error) {
	if len(actual) != len(predicted) {
		return domain.Report{}, fmt.Errorf("metrics: %d actual labels, %d predicted", len(actual), len(predicted))
	}
	if len(actual) == 0 {
		return domain.Report{}, ErrNoSamples
	}

	labels := labelSet(actual, predicted)
	tp := make(map[string]int)
	predCount := make(map[string]int)
	support := make(map[string]int)
	correct := 0
	for i := range actual {
		support[actual[i]]++
		predCount[predicted[i]]++
		if actual[i] == predicted[i] {
			tp[actual[i]]++
			correct++
		}
	}

	report := domain.Report{
		Total:    len(actual),
		Accuracy: ratio(correct, len(actual)),
		MacroAvg: domain.ClassMetrics{Label: "macro avg", Support: len(actual)},
		WeightedAvg: domain.ClassMetrics{
			Label:   "weighted avg",
			Support: len(actual),
		},
	}

	for _, l := range labels {
		m := domain.ClassMetrics{
			Label:     l,
			Precision: ratio(tp[l], predCount[l]),
			Recall:    ratio(tp[l], support[l]),
			Support:   support[l],
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		report.Classes = append(report.Classes, m)

		report.MacroAvg.Precision += m.Precision
		report.MacroAvg.Recall += m.Recall
		report.MacroAvg.F1 += m.F1

		w := float64(m.Support) / float64(len(actual))
		report.WeightedAvg.Precision += w * m.Precision
		report.WeightedAvg.Recall += w * m.Recall
		report.WeightedAvg.F1 += w * m.F1
	}

	n := float64(len(labels))
	report.MacroAvg.Precision /= n
	report.MacroAvg.Recall /= n
	report.MacroAvg.F1 /= n

	return report, nil
}

// Format renders the report as an aligned table. When styled, the header and
// per-class F1 scores are colored for a terminal.
func Format(r domain.Report, styled bool) string {
	width := len("weighted avg")
	for _, c := range r.Classes {
		if len(c.Label) > width {
			width = len(c.Label)
		}
	}

	paint := func(s lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return s.Render(text)
	}

	var sb strings.Builder
	header := fmt.Sprintf("%*s %10s %10s %10s %10s", width, "", "precision", "recall", "f1-score", "support")
	sb.WriteString(paint(headerStyle, header))
	sb.WriteString("\n\n")

	for _, c := range r.Classes {
		line := fmt.Sprintf("%*s %10.2f %10.2f ", width, c.Label, c.Precision, c.Recall)
		f1 := fmt.Sprintf("%10.2f", c.F1)
		if c.F1 >= 0.8 {
			f1 = paint(goodStyle, f1)
		} else if c.F1 < 0.5 {
			f1 = paint(badStyle, f1)
		}
		sb.WriteString(line + f1 + fmt.Sprintf(" %10d\n", c.Support))
	}
	sb.WriteString("\n")

	sb.WriteString(paint(summaryStyle, fmt.Sprintf("%*s %10s %10s %10.2f %10d", width, "accuracy", "", "", r.Accuracy, r.Total)))
	sb.WriteString("\n")
	for _, avg := range []domain.ClassMetrics{r.MacroAvg, r.WeightedAvg} {
		line := fmt.Sprintf("%*s %10.2f %10.2f %10.2f %10d", width, avg.Label, avg.Precision, avg.Recall, avg.F1, avg.Support)
		sb.WriteString(paint(summaryStyle, line))
		sb.WriteString("\n")
	}
	return sb.String()
}

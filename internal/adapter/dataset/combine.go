package dataset

import (
	"sort"
	"strings"

	"textclf/config"
	"textclf/internal/domain"
)

// Combine joins prefix+TrimSpace(value) for each text field, in order, with sep.
func Combine(fields map[string]string, textFields []config.TextField, sep string) string {
	parts := make([]string, len(textFields))
	for i, tf := range textFields {
		parts[i] = tf.Prefix + strings.TrimSpace(fields[tf.Column])
	}
	return strings.Join(parts, sep)
}

// DropIncomplete removes records with a blank value in any of the given
// columns and returns how many were removed.
func DropIncomplete(ds *domain.Dataset, required []string) int {
	kept := ds.Records[:0]
	for _, rec := range ds.Records {
		if complete(rec, required) {
			kept = append(kept, rec)
		}
	}
	dropped := len(ds.Records) - len(kept)
	ds.Records = kept
	return dropped
}

func complete(rec domain.Record, required []string) bool {
	for _, col := range required {
		if strings.TrimSpace(rec.Fields[col]) == "" {
			return false
		}
	}
	return true
}

// SortByTime orders records by Time ascending, keeping file order for ties.
func SortByTime(ds *domain.Dataset) {
	sort.SliceStable(ds.Records, func(i, j int) bool {
		return ds.Records[i].Time < ds.Records[j].Time
	})
}

// Tail keeps the last n records. n <= 0 keeps everything.
func Tail(ds *domain.Dataset, n int) {
	if n <= 0 || len(ds.Records) <= n {
		return
	}
	ds.Records = ds.Records[len(ds.Records)-n:]
}

// ApplyLabelMap rewrites labels through m, dropping records whose label has
// no entry. The label column is updated so written tables carry the new value.
func ApplyLabelMap(ds *domain.Dataset, labelColumn string, m map[string]string) int {
	if len(m) == 0 {
		return 0
	}
	kept := ds.Records[:0]
	for _, rec := range ds.Records {
		mapped, ok := m[rec.Label]
		if !ok {
			continue
		}
		rec.Label = mapped
		rec.LabelSource = domain.LabelFromMap
		if labelColumn != "" {
			rec.Fields[labelColumn] = mapped
		}
		kept = append(kept, rec)
	}
	dropped := len(ds.Records) - len(kept)
	ds.Records = kept
	return dropped
}

// ApplyCorrections overrides labels by record id and returns how many changed.
func ApplyCorrections(ds *domain.Dataset, labelColumn string, corrections map[string]string) int {
	changed := 0
	for i := range ds.Records {
		rec := &ds.Records[i]
		label, ok := corrections[rec.ID]
		if !ok {
			continue
		}
		if label != rec.Label {
			changed++
		}
		rec.Label = label
		rec.LabelSource = domain.LabelFromCorrected
		if labelColumn != "" {
			rec.Fields[labelColumn] = label
		}
	}
	return changed
}

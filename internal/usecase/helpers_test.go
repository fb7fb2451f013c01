package usecase

import (
	"fmt"
	"math/rand"
	"strings"

	"textclf/internal/domain"
)

var (
	positiveWords = []string{"great", "delicious", "love", "tasty", "excellent", "fresh"}
	negativeWords = []string{"awful", "stale", "hate", "bland", "terrible", "broken"}
)

// reviews builds n labelled records whose text draws from disjoint vocabularies.
func reviews(n int, seed int64) *domain.Dataset {
	rng := rand.New(rand.NewSource(seed))
	ds := &domain.Dataset{Columns: []string{"Id", "Score", "Text"}}
	for i := 0; i < n; i++ {
		label, words := "positive", positiveWords
		if i%2 == 1 {
			label, words = "negative", negativeWords
		}
		picked := make([]string, 3)
		for j := range picked {
			picked[j] = words[rng.Intn(len(words))]
		}
		text := strings.Join(picked, " ")
		ds.Records = append(ds.Records, domain.Record{
			ID:       fmt.Sprint(i),
			Label:    label,
			Fields:   map[string]string{"Id": fmt.Sprint(i), "Score": label, "Text": text},
			Combined: text,
		})
	}
	return ds
}

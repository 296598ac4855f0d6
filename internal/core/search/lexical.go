package search

import (
	"sort"
	"strings"
)

// RankLexical はクエリの部分一致でチャンクを採点し、スコアの降順で返す
// スコアは小文字化した本文中のクエリ出現回数を本文長で割った値
// クエリを含まないチャンクは結果に含めない
func RankLexical(chunks []*Result, query string, limit int) []*Result {
	queryLower := strings.ToLower(query)
	if queryLower == "" {
		return []*Result{}
	}

	scored := make([]*Result, 0, len(chunks))
	for _, chunk := range chunks {
		contentLower := strings.ToLower(chunk.Content)
		if !strings.Contains(contentLower, queryLower) {
			continue
		}
		copied := *chunk
		copied.Similarity = float64(strings.Count(contentLower, queryLower)) / float64(len(contentLower))
		scored = append(scored, &copied)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

package storage

import (
	"sort"

	"github.com/bull/ragademic/internal/domain"
)

// rank orders hits by descending score, breaking ties by ascending chunk
// sequence, and keeps at most limit of them.
func rank(hits []domain.ScoredChunk, limit int) []domain.ScoredChunk {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Seq < hits[j].Seq
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

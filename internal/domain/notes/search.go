package notes

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/clinscribe/clinscribe/internal/platform/embedding"
)

// SearchResult pairs a note with its similarity to the query.
type SearchResult struct {
	Note  *ClinicalNote `json:"note"`
	Score float64       `json:"score"`
}

// Search ranks the owner's embedded notes against the query by cosine
// similarity. Notes at or below the threshold are dropped, as are notes
// whose stored embedding cannot be compared. The scan is linear; candidate
// sets are one clinician's notes, not the whole corpus.
func (s *Service) Search(ctx context.Context, ownerID uuid.UUID, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	queryVec := s.embedder.Embed(ctx, query)
	if queryVec == nil {
		return []SearchResult{}, nil
	}

	candidates, err := s.notes.ListWithEmbeddings(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(candidates))
	for _, n := range candidates {
		score := embedding.CosineSimilarity(queryVec, n.Embedding)
		if score <= s.threshold {
			continue
		}
		results = append(results, SearchResult{Note: n, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}

	s.logger.Debug().
		Int("candidates", len(candidates)).
		Int("matches", len(results)).
		Msg("semantic search complete")
	return results, nil
}

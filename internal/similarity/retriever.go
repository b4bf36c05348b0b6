// Package similarity ranks the remedy corpus against a run's risk factors.
// The ranking is a deterministic keyword-boosted re-rank over pre-computed
// base similarities, shaped so an embedding-backed nearest-neighbor search
// can replace it without touching callers.
package similarity

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/revenue-sentinel/internal/model"
	"github.com/sells-group/revenue-sentinel/internal/store"
)

// Boost constants applied when a risk-factor category matches keywords in a
// remedy's stored error pattern. Adjusted scores cap at 1.0.
const (
	serverErrorBoost = 0.05
	declineBoost     = 0.04
	topK             = 3
)

// Match is one ranked remedy with its adjusted similarity score.
type Match struct {
	Remedy model.RemedyRecord `json:"remedy"`
	Score  float64            `json:"similarity_score"` // rounded to 3 decimals
}

// Retriever ranks past remediations by similarity to the current risk factors.
type Retriever interface {
	Rank(ctx context.Context, factors []model.ScoreBreakdownEntry) ([]Match, error)
}

// keywordRetriever re-ranks the store's corpus with keyword boosts.
type keywordRetriever struct {
	store store.Store
}

// New returns a Retriever backed by the store's remedy corpus.
func New(st store.Store) Retriever {
	return &keywordRetriever{store: st}
}

func (r *keywordRetriever) Rank(ctx context.Context, factors []model.ScoreBreakdownEntry) ([]Match, error) {
	corpus, err := r.store.ListRemedies(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "similarity: load corpus")
	}
	return rank(corpus, factors), nil
}

// rank applies the keyword boosts and returns the top matches, highest
// adjusted score first. Ties keep corpus order.
func rank(corpus []model.RemedyRecord, factors []model.ScoreBreakdownEntry) []Match {
	categories := make([]string, len(factors))
	for i, f := range factors {
		categories[i] = strings.ToLower(f.Factor)
	}

	serverErrors := anyContains(categories, "5xx") || anyContains(categories, "500")
	declining := anyContains(categories, "decline")

	matches := make([]Match, 0, len(corpus))
	for _, remedy := range corpus {
		score := remedy.BaseSimilarity
		if serverErrors && strings.Contains(remedy.ErrorPattern, "500-error") {
			score = math.Min(score+serverErrorBoost, 1.0)
		}
		if declining && strings.Contains(remedy.ErrorPattern, "declining-api-calls") {
			score = math.Min(score+declineBoost, 1.0)
		}
		matches = append(matches, Match{Remedy: remedy, Score: round3(score)})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

func anyContains(values []string, substr string) bool {
	for _, v := range values {
		if strings.Contains(v, substr) {
			return true
		}
	}
	return false
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

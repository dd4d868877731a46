// Package recommendation holds ranking inputs and outputs.
package recommendation

import (
	"math"

	"github.com/kailas-cloud/vibematch/internal/domain/profile"
	"github.com/kailas-cloud/vibematch/internal/domain/vector"
)

// Candidate is one (user, gender, vector) tuple supplied by the caller.
type Candidate struct {
	UserID string
	Gender profile.Gender
	Vector vector.Vector
}

// Item is a single ranked recommendation.
type Item struct {
	userID     string
	similarity float64
	boosted    float64
	exposure   int
}

// NewItem creates a ranked item.
func NewItem(userID string, similarity, boosted float64, exposure int) Item {
	return Item{userID: userID, similarity: similarity, boosted: boosted, exposure: exposure}
}

// UserID returns the recommended user's id.
func (i *Item) UserID() string { return i.userID }

// Similarity returns the raw cosine similarity against the target.
func (i *Item) Similarity() float64 { return i.similarity }

// Boosted returns the similarity used for ordering (raw plus any gender boost).
func (i *Item) Boosted() float64 { return i.boosted }

// Exposure returns how many times the user had been shown to the target before this request.
func (i *Item) Exposure() int { return i.exposure }

// Score returns the reported score: raw similarity as an integer percentage.
func (i *Item) Score() int { return Percent(i.similarity) }

// Percent converts a similarity to an integer percentage clamped to [0, 100].
func Percent(sim float64) int {
	p := int(math.Round(sim * 100))
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// Result is the ordered outcome of one ranking request.
type Result struct {
	TargetID    string
	TargetFound bool
	Items       []Item
	Considered  int // candidates remaining after eligibility filtering
}

// UserIDs returns the ranked ids in order.
func (r *Result) UserIDs() []string {
	ids := make([]string, len(r.Items))
	for i := range r.Items {
		ids[i] = r.Items[i].UserID()
	}
	return ids
}

// Scores returns the reported scores in rank order.
func (r *Result) Scores() []int {
	scores := make([]int, len(r.Items))
	for i := range r.Items {
		scores[i] = r.Items[i].Score()
	}
	return scores
}

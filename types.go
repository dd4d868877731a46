package vibematch

import (
	"github.com/kailas-cloud/vibematch/internal/domain"
	"github.com/kailas-cloud/vibematch/internal/domain/exposure"
	"github.com/kailas-cloud/vibematch/internal/domain/profile"
	"github.com/kailas-cloud/vibematch/internal/domain/recommendation"
	"github.com/kailas-cloud/vibematch/internal/domain/vector"
	"github.com/kailas-cloud/vibematch/internal/usecase/recommend"
)

// Gender values understood by the ranker. Anything else ranks as Other.
const (
	Male   = string(profile.Male)
	Female = string(profile.Female)
	Other  = string(profile.Other)
)

// Profile is the input to Vectorize. Blank values produce no sentence.
type Profile struct {
	UserID      string
	Gender      string
	Interests   []string
	VibeTags    []string
	HangoutSpot string
	Preferences string
	// FirstDate, Beverage (chai or coffee) and Song prompt answers, in that order.
	Prompts [3]string
}

// Candidate is one user the target may be matched with. The target itself
// must be among the candidates.
type Candidate struct {
	UserID string
	Gender string
	Vector []float32
}

// RecommendRequest is the input to Recommend.
type RecommendRequest struct {
	TargetID   string
	Candidates []Candidate
	// History is an exposure snapshot (user id -> times shown). Nil reads the stored ledger.
	History map[string]int
	// Liked user ids are never recommended. Merged with stored exclusions.
	Liked []string
	// Limit defaults to 10 when zero.
	Limit int
}

// Recommendation is one ranked candidate.
type Recommendation struct {
	UserID string
	// Score is the cosine similarity as a percentage, 0..100.
	Score int
	// Exposure is how many times the candidate was shown to the target before.
	Exposure int
}

// Recommendations is the result of Recommend.
type Recommendations struct {
	TargetID    string
	TargetFound bool
	Items       []Recommendation
	// HistoryErr is set when the result could not be recorded in the ledger.
	// The result itself is valid.
	HistoryErr error
}

// UserIDs returns the recommended ids in rank order.
func (r *Recommendations) UserIDs() []string {
	ids := make([]string, len(r.Items))
	for i, it := range r.Items {
		ids[i] = it.UserID
	}
	return ids
}

func (p *Profile) toDomain() (profile.Profile, error) {
	if p.UserID == "" {
		return profile.Profile{}, domain.NewInvalidProfile("user_id")
	}
	return profile.Profile{
		UserID:      p.UserID,
		Gender:      profile.ParseGender(p.Gender),
		Interests:   p.Interests,
		VibeTags:    p.VibeTags,
		HangoutSpot: p.HangoutSpot,
		Preferences: p.Preferences,
		Prompts:     p.Prompts,
	}, nil
}

func (r *RecommendRequest) toDomain() *recommend.Request {
	cands := make([]recommendation.Candidate, len(r.Candidates))
	for i, c := range r.Candidates {
		cands[i] = recommendation.Candidate{
			UserID: c.UserID,
			Gender: profile.ParseGender(c.Gender),
			Vector: vector.Vector(c.Vector),
		}
	}
	var history exposure.Ledger
	if r.History != nil {
		history = exposure.Ledger(r.History)
	}
	return &recommend.Request{
		TargetID:   r.TargetID,
		Candidates: cands,
		History:    history,
		Liked:      r.Liked,
		Limit:      r.Limit,
	}
}

func recommendationsFromDomain(resp *recommend.Response) Recommendations {
	res := &resp.Result
	items := make([]Recommendation, len(res.Items))
	for i := range res.Items {
		it := &res.Items[i]
		items[i] = Recommendation{UserID: it.UserID(), Score: it.Score(), Exposure: it.Exposure()}
	}
	return Recommendations{
		TargetID:    res.TargetID,
		TargetFound: res.TargetFound,
		Items:       items,
		HistoryErr:  resp.HistoryErr,
	}
}

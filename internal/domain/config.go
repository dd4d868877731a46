package domain

// KeyPrefix is the default namespace for every key the service writes.
const KeyPrefix = "vibematch:"

// DefaultModel is the sentence embedding model the ranking thresholds were tuned on.
const DefaultModel = "all-MiniLM-L6-v2"

// RankingConfig holds ranking policy knobs.
type RankingConfig struct {
	DefaultLimit        int
	MaxLimit            int
	OppositeGenderBoost float64
}

// DefaultRankingConfig returns the production ranking policy.
func DefaultRankingConfig() RankingConfig {
	return RankingConfig{
		DefaultLimit:        10,
		MaxLimit:            100,
		OppositeGenderBoost: 0.10,
	}
}

package tasks

// Recommendation Task Types

// RecommendationInput is the input for the personalized recommendation task.
type RecommendationInput struct {
	MaturityLevel string         `json:"maturity_level"`
	DomainScores  map[string]int `json:"domain_scores"`
	Weakness      string         `json:"weakness"`
}

// RecommendationOutput is the output from the recommendation task.
type RecommendationOutput struct {
	Recommendation string `json:"recommendation"`

	// Cached is set when the output came from the recommendation cache.
	Cached bool `json:"-"`
}

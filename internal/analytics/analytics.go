// Package analytics aggregates stored assessments into dashboard statistics.
// Every function is pure; empty input yields zero values, never a division by zero.
package analytics

import (
	"iter"
	"math"

	"icmm/internal/scoring"
	"icmm/pkg/schema"
)

// DefaultTopN is how many cities and roles are ranked.
const DefaultTopN = 5

// Count is one labelled tally.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Options describes the current model and the shape of the requested statistics.
type Options struct {
	SchemaVersion string
	Questions     []schema.Question
	Levels        []schema.MaturityLevel
	BucketWidth   int
	BucketCount   int
	RecentLimit   int
	TopN          int

	// Score, when set, is the score whose percentile is reported.
	Score *int
}

// Stats is the aggregate view over every accepted record.
type Stats struct {
	Total             int                       `json:"total"`
	Excluded          int                       `json:"excluded"`
	AverageScore      float64                   `json:"average_score"`
	ScoreDistribution []int                     `json:"score_distribution"`
	Percentile        *int                      `json:"percentile,omitempty"`
	AverageAnswers    []float64                 `json:"average_answers"`
	DomainAverages    map[string]float64        `json:"domain_averages"`
	WeakestDomain     string                    `json:"weakest_domain,omitempty"`
	DominantTier      string                    `json:"dominant_tier,omitempty"`
	TierDistribution  []Count                   `json:"tier_distribution"`
	Cities            []Count                   `json:"cities"`
	Roles             []Count                   `json:"roles"`
	HighestScore      int                       `json:"highest_score"`
	LowestScore       int                       `json:"lowest_score"`
	Recent            []schema.AssessmentRecord `json:"recent"`
}

// Accepts reports whether rec was recorded against the current questionnaire.
// Records without a version are accepted when their answer count matches.
func Accepts(rec *schema.AssessmentRecord, version string, questionCount int) bool {
	if rec.SchemaVersion != "" {
		return rec.SchemaVersion == version
	}
	return len(rec.Answers) == questionCount
}

// Compute aggregates records in stream order. Records are expected newest first,
// which is the order Recent reports. The first stream error aborts the computation.
func Compute(records iter.Seq2[schema.AssessmentRecord, error], opts Options) (*Stats, error) {
	var accepted []schema.AssessmentRecord
	excluded := 0

	for rec, err := range records {
		if err != nil {
			return nil, err
		}
		if !Accepts(&rec, opts.SchemaVersion, len(opts.Questions)) {
			excluded++
			continue
		}
		accepted = append(accepted, rec)
	}

	stats := Summarize(accepted, opts)
	stats.Excluded = excluded
	return stats, nil
}

// Summarize aggregates records that already passed the schema filter.
func Summarize(records []schema.AssessmentRecord, opts Options) *Stats {
	scores := make([]int, len(records))
	levels := make([]string, len(records))
	cities := make([]string, 0, len(records))
	roles := make([]string, 0, len(records))
	for i, r := range records {
		scores[i] = r.TotalScore
		levels[i] = r.Level
		if r.Respondent.City != "" {
			cities = append(cities, r.Respondent.City)
		}
		if r.Respondent.Role != "" {
			roles = append(roles, r.Respondent.Role)
		}
	}

	topN := opts.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	averages := AverageAnswers(records, len(opts.Questions))

	stats := &Stats{
		Total:             len(records),
		AverageScore:      AverageScore(scores),
		ScoreDistribution: ScoreDistribution(scores, opts.BucketWidth, opts.BucketCount),
		AverageAnswers:    averages,
		DomainAverages:    DomainAverages(records, opts.Questions),
		WeakestDomain:     WeakestAverage(opts.Questions, averages),
		DominantTier:      DominantTier(levels),
		TierDistribution:  TierDistribution(levels, opts.Levels),
		Cities:            Top(cities, topN),
		Roles:             Top(roles, topN),
		Recent:            Recent(records, opts.RecentLimit),
	}
	stats.HighestScore, stats.LowestScore = ScoreRange(scores)

	if opts.Score != nil {
		p := Percentile(*opts.Score, scores)
		stats.Percentile = &p
	}

	return stats
}

// AverageScore returns the mean score rounded to one decimal.
func AverageScore(scores []int) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return roundTenth(float64(sum) / float64(len(scores)))
}

// ScoreDistribution counts scores into buckets of width. Bucket floor(score/width) is
// clamped into [0, buckets-1].
func ScoreDistribution(scores []int, width, buckets int) []int {
	if buckets <= 0 {
		return []int{}
	}
	dist := make([]int, buckets)
	if width <= 0 {
		width = schema.DefaultScoreBucketSize
	}
	for _, s := range scores {
		idx := s / width
		if s < 0 {
			idx = 0
		}
		dist[min(idx, buckets-1)]++
	}
	return dist
}

// Percentile returns the rounded share of scores strictly below score.
func Percentile(score int, scores []int) int {
	if len(scores) == 0 {
		return 0
	}
	below := 0
	for _, s := range scores {
		if s < score {
			below++
		}
	}
	return int(math.Round(float64(below) * 100 / float64(len(scores))))
}

// PerDomainAverage returns the mean value of answer i. Missing and text answers count as 0.
func PerDomainAverage(records []schema.AssessmentRecord, i int) float64 {
	if len(records) == 0 {
		return 0
	}
	sum := 0
	for _, r := range records {
		if i < len(r.Answers) && r.Answers[i].IsNumeric() {
			sum += r.Answers[i].Value
		}
	}
	return float64(sum) / float64(len(records))
}

// AverageAnswers returns PerDomainAverage for every question index.
func AverageAnswers(records []schema.AssessmentRecord, questionCount int) []float64 {
	out := make([]float64, questionCount)
	for i := range out {
		out[i] = PerDomainAverage(records, i)
	}
	return out
}

// DomainAverages returns the mean per-record category score, rounded to one decimal.
func DomainAverages(records []schema.AssessmentRecord, questions []schema.Question) map[string]float64 {
	out := make(map[string]float64)
	if len(records) == 0 {
		return out
	}

	sums := make(map[string]int)
	for _, r := range records {
		for cat, v := range scoring.DomainScores(questions, r.Answers) {
			sums[cat] += v
		}
	}
	for cat, sum := range sums {
		out[cat] = roundTenth(float64(sum) / float64(len(records)))
	}
	return out
}

// WeakestAverage returns the category of the scored question with the lowest average.
// Ties go to the first question; an all-zero average set has no weakest domain.
func WeakestAverage(questions []schema.Question, averages []float64) string {
	best := -1
	for i := range questions {
		if i >= len(averages) || !questions[i].IsScored() || averages[i] <= 0 {
			continue
		}
		if best < 0 || averages[i] < averages[best] {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return questions[best].Category
}

// DominantTier returns the most frequent level. Ties go to the level seen first.
func DominantTier(levels []string) string {
	counts := tally(levels)
	if len(counts) == 0 {
		return ""
	}
	best := counts[0]
	for _, c := range counts[1:] {
		if c.Count > best.Count {
			best = c
		}
	}
	return best.Label
}

// TierDistribution counts records per level in tier order. Level names that no tier
// declares are appended in order of first appearance.
func TierDistribution(levels []string, tiers []schema.MaturityLevel) []Count {
	counts := tally(levels)
	byLabel := make(map[string]int, len(counts))
	for _, c := range counts {
		byLabel[c.Label] = c.Count
	}

	out := make([]Count, 0, len(tiers)+len(counts))
	known := make(map[string]bool, len(tiers))
	for _, t := range tiers {
		known[t.Name] = true
		out = append(out, Count{Label: t.Name, Count: byLabel[t.Name]})
	}
	for _, c := range counts {
		if !known[c.Label] {
			out = append(out, c)
		}
	}
	return out
}

// Top ranks values by count, descending. Ties keep first-appearance order.
func Top(values []string, n int) []Count {
	counts := tally(values)
	// insertion sort keeps ties stable and the lists are short
	for i := 1; i < len(counts); i++ {
		for j := i; j > 0 && counts[j].Count > counts[j-1].Count; j-- {
			counts[j], counts[j-1] = counts[j-1], counts[j]
		}
	}
	if n >= 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// ScoreRange returns the highest and lowest score, or zeros for no scores.
func ScoreRange(scores []int) (highest, lowest int) {
	if len(scores) == 0 {
		return 0, 0
	}
	highest, lowest = scores[0], scores[0]
	for _, s := range scores[1:] {
		highest = max(highest, s)
		lowest = min(lowest, s)
	}
	return highest, lowest
}

// Recent returns up to limit leading records. A non-positive limit uses the default.
func Recent(records []schema.AssessmentRecord, limit int) []schema.AssessmentRecord {
	if limit <= 0 {
		limit = schema.DefaultRecentLimit
	}
	n := min(limit, len(records))
	out := make([]schema.AssessmentRecord, n)
	copy(out, records[:n])
	return out
}

// tally counts values in first-appearance order.
func tally(values []string) []Count {
	index := make(map[string]int)
	var out []Count
	for _, v := range values {
		if i, ok := index[v]; ok {
			out[i].Count++
			continue
		}
		index[v] = len(out)
		out = append(out, Count{Label: v, Count: 1})
	}
	if out == nil {
		out = []Count{}
	}
	return out
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// Package scoring turns an answer set into a total score, a maturity tier and per-domain signals.
package scoring

import (
	"fmt"
	"math"

	"icmm/internal/maturity"
	"icmm/pkg/schema"
)

// TierRangeError reports a score that no tier covers. It signals a broken tier table,
// never bad user input.
type TierRangeError struct {
	Score    int
	Fallback string
}

func (e *TierRangeError) Error() string {
	return fmt.Sprintf("score %d is outside every maturity level, falling back to %q", e.Score, e.Fallback)
}

// Domain identifies one question by position and category.
type Domain struct {
	Index    int    `json:"index"`
	Category string `json:"category"`
	Value    int    `json:"value"`
}

// Result bundles everything derived from one answer set.
type Result struct {
	TotalScore   int                  `json:"total_score"`
	Level        schema.MaturityLevel `json:"level"`
	Progress     int                  `json:"progress"`
	DomainScores map[string]int       `json:"domain_scores"`
	Weakest      *Domain              `json:"weakest,omitempty"`
	Strongest    *Domain              `json:"strongest,omitempty"`
}

// ComputeTotalScore sums the numeric answers. Text answers and unanswered entries add 0.
func ComputeTotalScore(answers []schema.Answer) int {
	total := 0
	for _, a := range answers {
		if a.IsNumeric() {
			total += a.Value
		}
	}
	return total
}

// ResolveTier returns the level containing total. When none does it returns the first level
// together with a *TierRangeError.
func ResolveTier(total int, levels []schema.MaturityLevel) (schema.MaturityLevel, error) {
	for _, l := range levels {
		if l.Contains(total) {
			return l, nil
		}
	}
	if len(levels) == 0 {
		return schema.MaturityLevel{}, &TierRangeError{Score: total}
	}
	return levels[0], &TierRangeError{Score: total, Fallback: levels[0].Name}
}

// WeakestDomain returns the answered question with the lowest value.
// Ties go to the earliest question. ok is false when nothing was answered.
func WeakestDomain(questions []schema.Question, answers []schema.Answer) (Domain, bool) {
	return pickDomain(questions, answers, func(candidate, best int) bool { return candidate < best })
}

// StrongestDomain returns the answered question with the highest value.
// Ties go to the earliest question. ok is false when nothing was answered.
func StrongestDomain(questions []schema.Question, answers []schema.Answer) (Domain, bool) {
	return pickDomain(questions, answers, func(candidate, best int) bool { return candidate > best })
}

func pickDomain(questions []schema.Question, answers []schema.Answer, better func(candidate, best int) bool) (Domain, bool) {
	var best Domain
	found := false

	for i, a := range answers {
		if !a.IsAnswered() {
			continue
		}
		if !found || better(a.Value, best.Value) {
			best = Domain{Index: i, Value: a.Value}
			if i < len(questions) {
				best.Category = questions[i].Category
			}
			found = true
		}
	}

	return best, found
}

// DomainScores sums numeric answers per question category.
func DomainScores(questions []schema.Question, answers []schema.Answer) map[string]int {
	scores := make(map[string]int)
	for i := range questions {
		q := &questions[i]
		if !q.IsScored() {
			continue
		}
		v := 0
		if i < len(answers) && answers[i].IsNumeric() {
			v = answers[i].Value
		}
		scores[q.Category] += v
	}
	return scores
}

// Progress returns how far total sits between min and max as a whole percentage in [0, 100].
func Progress(total, min, max int) int {
	if max <= min {
		return 0
	}
	p := math.Round(float64(total-min) * 100 / float64(max-min))
	return int(math.Max(0, math.Min(100, p)))
}

// Evaluate scores answers against the model. A non-nil error is a *TierRangeError;
// the returned result is still complete and usable.
func Evaluate(m *maturity.Model, answers []schema.Answer) (*Result, error) {
	total := ComputeTotalScore(answers)
	level, tierErr := ResolveTier(total, m.Levels)

	res := &Result{
		TotalScore:   total,
		Level:        level,
		Progress:     Progress(total, m.MinScore(), m.MaxScore()),
		DomainScores: DomainScores(m.Questions, answers),
	}
	if d, ok := WeakestDomain(m.Questions, answers); ok {
		res.Weakest = &d
	}
	if d, ok := StrongestDomain(m.Questions, answers); ok {
		res.Strongest = &d
	}

	if tierErr != nil {
		return res, tierErr
	}
	return res, nil
}

package schema

import "strconv"

// Option is one selectable answer of a numeric question.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value int    `json:"value" yaml:"value"`
}

// Question is one entry of the maturity questionnaire.
type Question struct {
	ID       int          `json:"id" yaml:"id"`
	Category string       `json:"category" yaml:"category"`
	Title    string       `json:"title" yaml:"title"`
	Text     string       `json:"text" yaml:"text"`
	Type     QuestionType `json:"type" yaml:"type"`
	Options  []Option     `json:"options,omitempty" yaml:"options,omitempty"`
	QuickWin string       `json:"quick_win,omitempty" yaml:"quick_win,omitempty"`
}

// IsScored reports whether answers to the question count toward the total score.
func (q *Question) IsScored() bool {
	return q.Type != QuestionOpen
}

// EffectiveOptions returns the explicit options, or the implicit scale for the question type.
// Open questions have no options.
func (q *Question) EffectiveOptions() []Option {
	if len(q.Options) > 0 {
		return q.Options
	}

	switch q.Type {
	case QuestionRating, "":
		opts := make([]Option, 0, RatingMax-RatingMin+1)
		for v := RatingMin; v <= RatingMax; v++ {
			opts = append(opts, Option{Label: strconv.Itoa(v), Value: v})
		}
		return opts
	case QuestionBoolean:
		return []Option{{Label: "No", Value: 1}, {Label: "Yes", Value: 5}}
	case QuestionPercentage:
		return []Option{
			{Label: "0-20%", Value: 1},
			{Label: "21-40%", Value: 2},
			{Label: "41-60%", Value: 3},
			{Label: "61-80%", Value: 4},
			{Label: "81-100%", Value: 5},
		}
	default:
		return nil
	}
}

// MaxValue returns the highest value a scored question can contribute.
func (q *Question) MaxValue() int {
	highest := 0
	for _, opt := range q.EffectiveOptions() {
		if opt.Value > highest {
			highest = opt.Value
		}
	}
	return highest
}

// Accepts reports whether value is a valid numeric answer (or the unanswered sentinel).
func (q *Question) Accepts(value int) bool {
	if value == Unanswered {
		return true
	}
	for _, opt := range q.EffectiveOptions() {
		if opt.Value == value {
			return true
		}
	}
	return false
}

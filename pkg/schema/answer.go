package schema

// Answer is a single response. Numeric questions use Value (0 = unanswered);
// open questions use Text and never contribute to the score.
type Answer struct {
	Value int    `json:"value" yaml:"value"`
	Text  string `json:"text,omitempty" yaml:"text,omitempty"`
}

// IsNumeric reports whether the answer carries a numeric value rather than free text.
func (a Answer) IsNumeric() bool {
	return a.Text == ""
}

// IsAnswered reports whether a numeric answer was given.
func (a Answer) IsAnswered() bool {
	return a.IsNumeric() && a.Value > Unanswered
}

// Ratings builds an answer set from plain numeric values.
func Ratings(values ...int) []Answer {
	answers := make([]Answer, len(values))
	for i, v := range values {
		answers[i] = Answer{Value: v}
	}
	return answers
}

// Values returns the numeric value of every answer; text answers map to 0.
func Values(answers []Answer) []int {
	out := make([]int, len(answers))
	for i, a := range answers {
		if a.IsNumeric() {
			out[i] = a.Value
		}
	}
	return out
}

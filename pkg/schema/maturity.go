package schema

// MaturityLevel is one tier of the maturity scale. Tiers partition the total score range.
type MaturityLevel struct {
	Min         int    `json:"min" yaml:"min"`
	Max         int    `json:"max" yaml:"max"`
	Name        string `json:"name" yaml:"name"`
	NameEn      string `json:"name_en,omitempty" yaml:"name_en,omitempty"`
	Description string `json:"description" yaml:"description"`
	Situation   string `json:"situation,omitempty" yaml:"situation,omitempty"`
	NextStep    string `json:"next_step,omitempty" yaml:"next_step,omitempty"`
}

// Contains reports whether score falls inside the tier bounds (inclusive).
func (l *MaturityLevel) Contains(score int) bool {
	return score >= l.Min && score <= l.Max
}

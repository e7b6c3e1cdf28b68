// Package maturity holds the questionnaire and tier table the rest of the system scores against.
package maturity

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"icmm/pkg/schema"
)

//go:embed default_model.yaml
var defaultModelYAML []byte

// Model is the immutable reference data of one questionnaire version.
type Model struct {
	Version   string                 `json:"version" yaml:"version"`
	Questions []schema.Question      `json:"questions" yaml:"questions"`
	Levels    []schema.MaturityLevel `json:"levels" yaml:"levels"`
}

// ModelError reports a malformed maturity model.
type ModelError struct {
	Source  string
	Message string
	Err     error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("maturity model %s: %s: %v", e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("maturity model %s: %s", e.Source, e.Message)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// Default returns the built-in questionnaire. It panics only if the embedded data is corrupt.
func Default() *Model {
	m, err := Parse(defaultModelYAML, "default")
	if err != nil {
		panic(err)
	}
	return m
}

// Load reads and validates a model from a YAML file.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ModelError{Source: path, Message: "read file", Err: err}
	}
	return Parse(data, path)
}

// Parse decodes and validates a YAML model. source is used in error messages only.
func Parse(data []byte, source string) (*Model, error) {
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ModelError{Source: source, Message: "parse yaml", Err: err}
	}

	for i := range m.Questions {
		if m.Questions[i].Type == "" {
			m.Questions[i].Type = schema.QuestionRating
		}
	}

	if err := m.Validate(); err != nil {
		return nil, &ModelError{Source: source, Message: "invalid", Err: err}
	}

	return &m, nil
}

// Validate checks question definitions and the tier partition.
func (m *Model) Validate() error {
	if m.Version == "" {
		return fmt.Errorf("version is required")
	}
	if len(m.Questions) == 0 {
		return fmt.Errorf("at least one question is required")
	}

	seen := make(map[int]bool, len(m.Questions))
	for _, q := range m.Questions {
		if seen[q.ID] {
			return fmt.Errorf("duplicate question id %d", q.ID)
		}
		seen[q.ID] = true

		if q.Category == "" || len(q.Category) > schema.QuestionCategoryMax {
			return fmt.Errorf("question %d: category must be 1-%d characters", q.ID, schema.QuestionCategoryMax)
		}

		switch q.Type {
		case schema.QuestionRating, schema.QuestionBoolean, schema.QuestionPercentage, schema.QuestionOpen:
		default:
			return fmt.Errorf("question %d: unknown type %q", q.ID, q.Type)
		}

		for _, opt := range q.Options {
			if opt.Value <= schema.Unanswered {
				return fmt.Errorf("question %d: option %q must have a positive value", q.ID, opt.Label)
			}
		}
	}

	return schema.ValidateTiers(m.Levels, m.MinScore(), m.MaxScore())
}

// MinScore is the lowest reachable total: every question left unanswered.
func (m *Model) MinScore() int {
	return schema.Unanswered
}

// MaxScore is the highest reachable total: every scored question at its top option.
func (m *Model) MaxScore() int {
	total := 0
	for i := range m.Questions {
		if m.Questions[i].IsScored() {
			total += m.Questions[i].MaxValue()
		}
	}
	return total
}

// Categories returns question categories in question order, without duplicates.
func (m *Model) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, q := range m.Questions {
		if !seen[q.Category] {
			seen[q.Category] = true
			out = append(out, q.Category)
		}
	}
	return out
}

// EmptyAnswers returns an answer set with every entry unanswered.
func (m *Model) EmptyAnswers() []schema.Answer {
	return make([]schema.Answer, len(m.Questions))
}

// BucketCount returns how many score histogram buckets of the given width cover the model range.
func (m *Model) BucketCount(width int) int {
	if width <= 0 {
		return 1
	}
	if n := m.MaxScore() / width; n > 0 {
		return n
	}
	return 1
}

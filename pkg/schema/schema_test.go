package schema

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestIDGeneration(t *testing.T) {
	id, err := NewAssessmentID()
	if err != nil {
		t.Fatalf("Failed to generate assessment ID: %v", err)
	}
	if !strings.HasPrefix(id, "ASM-") {
		t.Errorf("Assessment ID should start with ASM-, got %s", id)
	}
	if len(strings.TrimPrefix(id, "ASM-")) != 10 {
		t.Errorf("Nanoid portion should be 10 characters, got %s", id)
	}
}

func TestIDCollisionResistance(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 10000; i++ {
		id, err := NewAssessmentID()
		if err != nil {
			t.Fatalf("Failed to generate ID: %v", err)
		}
		if ids[id] {
			t.Fatalf("Collision detected after %d iterations: %s", i, id)
		}
		ids[id] = true
	}
}

func TestEffectiveOptions(t *testing.T) {
	tests := []struct {
		name     string
		question Question
		want     []int
	}{
		{"rating default", Question{Type: QuestionRating}, []int{1, 2, 3, 4, 5}},
		{"untyped behaves as rating", Question{}, []int{1, 2, 3, 4, 5}},
		{"boolean default", Question{Type: QuestionBoolean}, []int{1, 5}},
		{"percentage default", Question{Type: QuestionPercentage}, []int{1, 2, 3, 4, 5}},
		{"open has none", Question{Type: QuestionOpen}, nil},
		{
			"explicit options win",
			Question{Type: QuestionRating, Options: []Option{{Label: "low", Value: 2}, {Label: "high", Value: 7}}},
			[]int{2, 7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int
			for _, opt := range tt.question.EffectiveOptions() {
				got = append(got, opt.Value)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("option %d: got %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestQuestionMaxValueAndAccepts(t *testing.T) {
	q := Question{Type: QuestionRating}
	if q.MaxValue() != 5 {
		t.Errorf("MaxValue: got %d, want 5", q.MaxValue())
	}
	if !q.Accepts(Unanswered) {
		t.Error("Unanswered should always be accepted")
	}
	if q.Accepts(6) {
		t.Error("6 should not be accepted on a 1-5 scale")
	}

	b := Question{Type: QuestionBoolean}
	if b.Accepts(3) {
		t.Error("boolean question should reject 3")
	}
	if !b.Accepts(5) {
		t.Error("boolean question should accept 5")
	}

	open := Question{Type: QuestionOpen}
	if open.IsScored() {
		t.Error("open question should not be scored")
	}
	if open.MaxValue() != 0 {
		t.Errorf("open question MaxValue: got %d, want 0", open.MaxValue())
	}
}

func TestAnswerHelpers(t *testing.T) {
	answers := Ratings(3, 0, 5)
	answers = append(answers, Answer{Text: "we use chatbots"})

	if !answers[0].IsAnswered() {
		t.Error("3 should count as answered")
	}
	if answers[1].IsAnswered() {
		t.Error("0 should count as unanswered")
	}
	if answers[3].IsNumeric() {
		t.Error("text answer should not be numeric")
	}

	values := Values(answers)
	want := []int{3, 0, 5, 0}
	for i := range want {
		if values[i] != want[i] {
			t.Errorf("Values[%d]: got %d, want %d", i, values[i], want[i])
		}
	}
}

func TestMaturityLevelContains(t *testing.T) {
	l := MaturityLevel{Min: 18, Max: 25, Name: "Exploration"}
	for _, s := range []int{18, 20, 25} {
		if !l.Contains(s) {
			t.Errorf("expected %d inside [18,25]", s)
		}
	}
	for _, s := range []int{17, 26} {
		if l.Contains(s) {
			t.Errorf("expected %d outside [18,25]", s)
		}
	}
}

func TestRecordMarshaling(t *testing.T) {
	rec := AssessmentRecord{
		ID:            "ASM-abcdefghij",
		SchemaVersion: "v1",
		Respondent:    RespondentDetails{UID: "u1", SchoolName: "Lincoln High", City: "Springfield", Role: "Principal"},
		CreatedAt:     time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Answers:       []Answer{{Value: 4}, {Text: "notes"}},
		TotalScore:    4,
		Level:         "Awareness",
	}

	jsonData, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Failed to marshal record to JSON: %v", err)
	}
	if !strings.Contains(string(jsonData), `"school_name":"Lincoln High"`) {
		t.Errorf("JSON should use snake_case keys, got %s", jsonData)
	}

	yamlData, err := yaml.Marshal(rec)
	if err != nil {
		t.Fatalf("Failed to marshal record to YAML: %v", err)
	}
	var back AssessmentRecord
	if err := yaml.Unmarshal(yamlData, &back); err != nil {
		t.Fatalf("Failed to unmarshal record from YAML: %v", err)
	}
	if back.Answers[1].Text != "notes" || !back.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("YAML round trip lost data: %+v", back)
	}
}

func TestValidation(t *testing.T) {
	t.Run("respondent", func(t *testing.T) {
		if err := ValidateRespondent(&RespondentDetails{SchoolName: "  "}); err == nil {
			t.Error("Expected error for blank school name")
		}
		if err := ValidateRespondent(&RespondentDetails{SchoolName: strings.Repeat("a", SchoolNameMax+1)}); err == nil {
			t.Error("Expected error for long school name")
		}
		if err := ValidateRespondent(&RespondentDetails{SchoolName: "Lincoln", City: strings.Repeat("c", CityMax+1)}); err == nil {
			t.Error("Expected error for long city")
		}
		if err := ValidateRespondent(&RespondentDetails{SchoolName: "Lincoln", City: "Springfield", Role: "Teacher"}); err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
	})

	t.Run("answers", func(t *testing.T) {
		questions := []Question{
			{ID: 1, Type: QuestionRating},
			{ID: 2, Type: QuestionBoolean},
			{ID: 3, Type: QuestionOpen},
		}

		tests := []struct {
			name    string
			answers []Answer
			wantErr bool
		}{
			{"valid", []Answer{{Value: 3}, {Value: 5}, {Text: "free text"}}, false},
			{"all unanswered", []Answer{{}, {}, {}}, false},
			{"wrong length", []Answer{{Value: 3}}, true},
			{"rating out of range", []Answer{{Value: 6}, {Value: 5}, {}}, true},
			{"boolean invalid value", []Answer{{Value: 3}, {Value: 2}, {}}, true},
			{"open with numeric value", []Answer{{Value: 3}, {Value: 5}, {Value: 1}}, true},
			{"scored with text", []Answer{{Text: "x"}, {Value: 5}, {}}, true},
			{"open too long", []Answer{{Value: 3}, {Value: 5}, {Text: strings.Repeat("x", OpenAnswerMax+1)}}, true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := ValidateAnswers(questions, tt.answers)
				if (err != nil) != tt.wantErr {
					t.Errorf("ValidateAnswers() error = %v, wantErr %v", err, tt.wantErr)
				}
			})
		}
	})

	t.Run("tiers", func(t *testing.T) {
		valid := func() []MaturityLevel {
			return []MaturityLevel{
				{Min: 0, Max: 17, Name: "A"},
				{Min: 18, Max: 25, Name: "B"},
				{Min: 26, Max: 33, Name: "C"},
				{Min: 34, Max: 41, Name: "D"},
				{Min: 42, Max: 50, Name: "E"},
			}
		}

		if err := ValidateTiers(valid(), 0, 50); err != nil {
			t.Errorf("Unexpected error: %v", err)
		}

		shuffled := valid()
		shuffled[0], shuffled[4] = shuffled[4], shuffled[0]
		if err := ValidateTiers(shuffled, 0, 50); err != nil {
			t.Errorf("Order should not matter: %v", err)
		}

		gap := valid()
		gap[1].Min = 19
		if err := ValidateTiers(gap, 0, 50); err == nil {
			t.Error("Expected error for gap between tiers")
		}

		overlap := valid()
		overlap[1].Min = 17
		if err := ValidateTiers(overlap, 0, 50); err == nil {
			t.Error("Expected error for overlapping tiers")
		}

		if err := ValidateTiers(valid()[:4], 0, 50); err == nil {
			t.Error("Expected error for four tiers")
		}

		if err := ValidateTiers(valid(), 0, 60); err == nil {
			t.Error("Expected error when tiers do not reach the global maximum")
		}

		inverted := valid()
		inverted[2].Min, inverted[2].Max = 33, 26
		if err := ValidateTiers(inverted, 0, 50); err == nil {
			t.Error("Expected error for min above max")
		}
	})
}

package schema

import (
	"fmt"
	"sort"
	"strings"
)

// ValidateRespondent validates respondent metadata.
func ValidateRespondent(r *RespondentDetails) error {
	if strings.TrimSpace(r.SchoolName) == "" {
		return fmt.Errorf("school name is required")
	}
	if len(r.SchoolName) > SchoolNameMax {
		return fmt.Errorf("school name must be at most %d characters", SchoolNameMax)
	}
	if len(r.City) > CityMax {
		return fmt.Errorf("city must be at most %d characters", CityMax)
	}
	if len(r.Role) > RoleMax {
		return fmt.Errorf("role must be at most %d characters", RoleMax)
	}
	return nil
}

// ValidateAnswers checks that answers line up with questions and carry allowed values.
func ValidateAnswers(questions []Question, answers []Answer) error {
	if len(answers) != len(questions) {
		return fmt.Errorf("expected %d answers, got %d", len(questions), len(answers))
	}

	for i := range questions {
		q := &questions[i]
		a := answers[i]

		if !q.IsScored() {
			if a.Value != Unanswered {
				return fmt.Errorf("question %d is open-ended and takes text only", q.ID)
			}
			if len(a.Text) > OpenAnswerMax {
				return fmt.Errorf("answer to question %d must be at most %d characters", q.ID, OpenAnswerMax)
			}
			continue
		}

		if !a.IsNumeric() {
			return fmt.Errorf("question %d takes a numeric answer", q.ID)
		}
		if !q.Accepts(a.Value) {
			return fmt.Errorf("answer %d is not a valid option for question %d", a.Value, q.ID)
		}
	}

	return nil
}

// ValidateTiers checks the tier table: exactly TierCount tiers, min <= max, and,
// once sorted by Min, contiguous coverage of [globalMin, globalMax] with no gaps or overlaps.
func ValidateTiers(levels []MaturityLevel, globalMin, globalMax int) error {
	if len(levels) != TierCount {
		return fmt.Errorf("expected %d maturity levels, got %d", TierCount, len(levels))
	}

	sorted := make([]MaturityLevel, len(levels))
	copy(sorted, levels)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })

	for i, l := range sorted {
		if l.Name == "" {
			return fmt.Errorf("maturity level %d has no name", i+1)
		}
		if l.Min > l.Max {
			return fmt.Errorf("maturity level %q has min %d above max %d", l.Name, l.Min, l.Max)
		}
		if i > 0 && sorted[i-1].Max+1 != l.Min {
			return fmt.Errorf("maturity levels %q and %q are not contiguous (%d..%d)",
				sorted[i-1].Name, l.Name, sorted[i-1].Max, l.Min)
		}
	}

	if sorted[0].Min != globalMin {
		return fmt.Errorf("lowest maturity level starts at %d, want %d", sorted[0].Min, globalMin)
	}
	if last := sorted[len(sorted)-1]; last.Max != globalMax {
		return fmt.Errorf("highest maturity level ends at %d, want %d", last.Max, globalMax)
	}

	return nil
}

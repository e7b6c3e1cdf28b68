package core

import (
	"slices"
	"time"

	"icmm/internal/scoring"
	"icmm/pkg/schema"
)

// BuildRecord assembles the persisted form of a scored submission. The answers are
// copied so later changes to the caller's slice do not leak into the record.
func BuildRecord(
	id string,
	respondent schema.RespondentDetails,
	answers []schema.Answer,
	result *scoring.Result,
	createdAt time.Time,
	schemaVersion string,
) *schema.AssessmentRecord {
	return &schema.AssessmentRecord{
		ID:            id,
		SchemaVersion: schemaVersion,
		Respondent:    respondent,
		CreatedAt:     createdAt.UTC(),
		Answers:       slices.Clone(answers),
		TotalScore:    result.TotalScore,
		Level:         result.Level.Name,
	}
}

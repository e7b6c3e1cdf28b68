package schema

import "time"

// RespondentDetails identifies who filled in an assessment.
type RespondentDetails struct {
	UID        string `json:"uid,omitempty" yaml:"uid,omitempty"`
	Email      string `json:"email,omitempty" yaml:"email,omitempty"`
	SchoolName string `json:"school_name" yaml:"school_name"`
	City       string `json:"city" yaml:"city"`
	Role       string `json:"role" yaml:"role"`
}

// AssessmentRecord is a submitted assessment as persisted. Records are immutable once created.
type AssessmentRecord struct {
	ID            string            `json:"id" yaml:"id"`
	SchemaVersion string            `json:"schema_version,omitempty" yaml:"schema_version,omitempty"`
	Respondent    RespondentDetails `json:"respondent" yaml:"respondent"`
	CreatedAt     time.Time         `json:"created_at" yaml:"created_at"`
	Answers       []Answer          `json:"answers" yaml:"answers"`
	TotalScore    int               `json:"total_score" yaml:"total_score"`
	Level         string            `json:"level" yaml:"level"`
}

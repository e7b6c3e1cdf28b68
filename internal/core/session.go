package core

import (
	"fmt"
	"slices"

	"icmm/internal/maturity"
	"icmm/pkg/schema"
)

// SessionState is a questionnaire in progress.
type SessionState struct {
	Respondent schema.RespondentDetails
	Answers    []schema.Answer
	Current    int // index of the question being answered
	Completed  bool
}

// NewSessionState creates an empty session for m.
func NewSessionState(m *maturity.Model) *SessionState {
	return &SessionState{
		Answers: m.EmptyAnswers(),
	}
}

// SetAnswer records the answer to the current question.
func (s *SessionState) SetAnswer(a schema.Answer) error {
	if s.Current < 0 || s.Current >= len(s.Answers) {
		return fmt.Errorf("no question at position %d", s.Current+1)
	}
	s.Answers[s.Current] = a
	return nil
}

// Next advances to the next question. It reports false, and marks the session
// completed, when the current question is the last one.
func (s *SessionState) Next() bool {
	if s.Current < len(s.Answers)-1 {
		s.Current++
		return true
	}
	s.Completed = true
	return false
}

// Prev moves back one question. It reports false on the first question.
func (s *SessionState) Prev() bool {
	if s.Current > 0 {
		s.Current--
		return true
	}
	return false
}

// Progress returns the percentage of the questionnaire reached, counting the current question.
func (s *SessionState) Progress() int {
	if len(s.Answers) == 0 {
		return 0
	}
	return (s.Current + 1) * 100 / len(s.Answers)
}

// Request converts the session into a submission.
func (s *SessionState) Request() *SubmitRequest {
	return &SubmitRequest{
		Respondent: s.Respondent,
		Answers:    slices.Clone(s.Answers),
	}
}

// Clone creates a deep copy of the session state.
func (s *SessionState) Clone() *SessionState {
	clone := *s
	clone.Answers = slices.Clone(s.Answers)
	return &clone
}

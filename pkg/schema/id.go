package schema

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// NewAssessmentID generates a new assessment ID in format ASM-{nanoid(10)}.
func NewAssessmentID() (string, error) {
	id, err := gonanoid.New(10)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ASM-%s", id), nil
}

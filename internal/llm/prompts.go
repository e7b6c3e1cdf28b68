package llm

import (
	"fmt"
	"sort"
	"strings"
)

// BuildRecommendationPrompt creates the prompt for a personalized improvement recommendation.
// Domains are listed in alphabetical order so identical inputs yield identical prompts.
func BuildRecommendationPrompt(maturityLevel string, domainScores map[string]int, weakness string) string {
	domains := make([]string, 0, len(domainScores))
	for name := range domainScores {
		domains = append(domains, name)
	}
	sort.Strings(domains)

	var scores strings.Builder
	for _, name := range domains {
		fmt.Fprintf(&scores, "  - %s: %d\n", name, domainScores[name])
	}
	if len(domains) == 0 {
		scores.WriteString("  (no domain scores)\n")
	}

	if weakness == "" {
		weakness = "none identified"
	}

	return fmt.Sprintf(`You are an assistant that gives schools personalized recommendations for improving their AI maturity, based on their self-assessment results.

The school's current AI maturity level is: %s.
The school's scores across the assessment domains are:
%s
The weakest domain identified in the assessment is: %s.

Write one concise, actionable recommendation addressed to the school administrator.
Focus on the weakest domain and on what is realistic at the current maturity level.

Return ONLY valid JSON with this exact structure:
{
  "recommendation": "string"
}`, maturityLevel, scores.String(), weakness)
}

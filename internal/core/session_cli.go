package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"icmm/internal/maturity"
	"icmm/pkg/schema"
)

// ErrInputEnded is returned when input runs out before the questionnaire is complete.
var ErrInputEnded = errors.New("input ended before the questionnaire was complete")

// CLISession walks a respondent through the questionnaire on a terminal.
type CLISession struct {
	State    *SessionState
	Assessor *Assessor

	in  *bufio.Reader
	out io.Writer
}

// NewCLISession creates a session reading answers from in and writing prompts to out.
func NewCLISession(assessor *Assessor, in io.Reader, out io.Writer) *CLISession {
	return &CLISession{
		State:    NewSessionState(assessor.Model()),
		Assessor: assessor,
		in:       bufio.NewReader(in),
		out:      out,
	}
}

// Run asks for respondent details and every answer, then submits.
// At a question prompt, "b" goes back and an empty line leaves the question unanswered.
func (s *CLISession) Run(ctx context.Context) (*SubmitResult, error) {
	m := s.Assessor.Model()

	fmt.Fprintf(s.out, "📋 %s (%d questions)\n\n", m.Version, len(m.Questions))

	for strings.TrimSpace(s.State.Respondent.SchoolName) == "" {
		name, err := s.ask("School name: ")
		if err != nil {
			return nil, err
		}
		s.State.Respondent.SchoolName = name
	}
	city, err := s.ask("City (optional): ")
	if err != nil {
		return nil, err
	}
	role, err := s.ask("Role (optional): ")
	if err != nil {
		return nil, err
	}
	s.State.Respondent.City = city
	s.State.Respondent.Role = role

	for !s.State.Completed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		q := &m.Questions[s.State.Current]
		s.showQuestion(q)

		line, err := s.ask("> ")
		if err != nil {
			return nil, err
		}

		if strings.EqualFold(line, "b") {
			if !s.State.Prev() {
				fmt.Fprintln(s.out, "Already at the first question.")
			}
			continue
		}

		answer, err := parseAnswer(q, line)
		if err != nil {
			fmt.Fprintf(s.out, "⚠️  %v\n", err)
			continue
		}
		if err := s.State.SetAnswer(answer); err != nil {
			return nil, err
		}
		s.State.Next()
	}

	fmt.Fprintln(s.out, "\n🤖 Scoring and preparing a recommendation...")
	result, err := s.Assessor.Submit(ctx, s.State.Request())
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}

	PrintResult(s.out, m, result)
	return result, nil
}

func (s *CLISession) showQuestion(q *schema.Question) {
	fmt.Fprintf(s.out, "\n[%d/%d %d%%] %s: %s\n", s.State.Current+1, len(s.State.Answers), s.State.Progress(), q.Category, q.Title)
	if q.Text != "" {
		fmt.Fprintf(s.out, "%s\n", q.Text)
	}
	if !q.IsScored() {
		fmt.Fprintln(s.out, "(free text)")
		return
	}
	for _, opt := range q.EffectiveOptions() {
		fmt.Fprintf(s.out, "  %d) %s\n", opt.Value, opt.Label)
	}
}

// ask prints prompt and reads one trimmed line.
func (s *CLISession) ask(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	line, err := s.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		if errors.Is(err, io.EOF) {
			return "", ErrInputEnded
		}
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// parseAnswer converts a typed line into an answer for q. An empty line is unanswered.
func parseAnswer(q *schema.Question, line string) (schema.Answer, error) {
	if !q.IsScored() {
		if len(line) > schema.OpenAnswerMax {
			return schema.Answer{}, fmt.Errorf("answer must be at most %d characters", schema.OpenAnswerMax)
		}
		return schema.Answer{Text: line}, nil
	}
	if line == "" {
		return schema.Answer{Value: schema.Unanswered}, nil
	}

	v, err := strconv.Atoi(line)
	if err != nil || !q.Accepts(v) {
		values := make([]string, 0, len(q.EffectiveOptions()))
		for _, opt := range q.EffectiveOptions() {
			values = append(values, strconv.Itoa(opt.Value))
		}
		return schema.Answer{}, fmt.Errorf("enter one of %s, \"b\" to go back, or nothing to skip", strings.Join(values, ", "))
	}
	return schema.Answer{Value: v}, nil
}

// PrintResult formats a submission result for the terminal.
func PrintResult(w io.Writer, m *maturity.Model, r *SubmitResult) {
	res := r.Result
	fmt.Fprintf(w, "\n📊 Score: %d/%d (%d%%)\n", res.TotalScore, m.MaxScore(), res.Progress)
	fmt.Fprintf(w, "   Level: %s\n", res.Level.Name)
	if res.Level.Description != "" {
		fmt.Fprintf(w, "   %s\n", res.Level.Description)
	}
	if res.Strongest != nil {
		fmt.Fprintf(w, "   Strongest: %s (%d)\n", res.Strongest.Category, res.Strongest.Value)
	}
	if res.Weakest != nil {
		fmt.Fprintf(w, "   Weakest: %s (%d)\n", res.Weakest.Category, res.Weakest.Value)
	}

	cats := make([]string, 0, len(res.DomainScores))
	for cat := range res.DomainScores {
		cats = append(cats, cat)
	}
	slices.Sort(cats)
	for _, cat := range cats {
		fmt.Fprintf(w, "     %-28s %d\n", cat, res.DomainScores[cat])
	}

	fmt.Fprintf(w, "\n💡 Recommendation (%s):\n%s\n", r.Recommendation.Source, r.Recommendation.Text)

	if r.Saved {
		fmt.Fprintf(w, "\n✅ Saved as %s\n", r.ID)
	} else {
		fmt.Fprintf(w, "\n⚠️  %s\n", r.Notice)
	}
}

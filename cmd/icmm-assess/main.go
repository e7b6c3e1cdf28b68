package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"gopkg.in/yaml.v3"

	"icmm/internal/core"
	"icmm/internal/llm"
	"icmm/internal/llm/tasks"
	"icmm/internal/metrics"
)

func main() {
	answersFile := flag.String("answers", "", "YAML file with respondent and answers (skips the interactive questionnaire)")
	asJSON := flag.Bool("json", false, "print the result as JSON")
	fixtureName := flag.String("record-fixture", "", "save the recommendation exchange as a named test fixture")
	fixturesDir := flag.String("fixtures", "internal/llm/testdata/fixtures", "directory for recorded fixtures")
	flag.Parse()

	if err := core.LoadEnvFile(); err != nil {
		fail("Failed to load .env", err)
	}
	cfg, err := core.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌ Invalid configuration:", err)
		fmt.Fprintln(os.Stderr, "   Set OPENROUTER_API_KEY (or GEMINI_API_KEY) in the environment or .env")
		os.Exit(1)
	}
	logger := core.SetDefaultLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app, err := core.Bootstrap(ctx, cfg, logger, "cli")
	if err != nil {
		fail("Startup failed", err)
	}
	defer app.Close()

	var result *core.SubmitResult
	if *answersFile != "" {
		req, err := readRequest(*answersFile)
		if err != nil {
			fail("Failed to read answers", err)
		}
		result, err = app.Assessor.Submit(ctx, req)
		if err != nil {
			fail("Assessment rejected", err)
		}
		if !*asJSON {
			core.PrintResult(os.Stdout, app.Model, result)
		}
	} else {
		session := core.NewCLISession(app.Assessor, os.Stdin, os.Stdout)
		result, err = session.Run(ctx)
		if err != nil {
			fail("Session ended", err)
		}
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fail("Failed to encode result", err)
		}
	}

	if *fixtureName != "" {
		if err := recordFixture(*fixturesDir, *fixtureName, cfg.DefaultModel, result); err != nil {
			fail("Failed to record fixture", err)
		}
		fmt.Fprintf(os.Stderr, "📼 Fixture saved: %s/%s.json\n", *fixturesDir, *fixtureName)
	}
}

func readRequest(path string) (*core.SubmitRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var req core.SubmitRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &req, nil
}

// recordFixture stores the model input and reply so tests can replay them offline.
func recordFixture(dir, name, model string, result *core.SubmitResult) error {
	if result.Recommendation.Source != metrics.OutcomeAI {
		return fmt.Errorf("recommendation came from %q, only live model replies can be recorded", result.Recommendation.Source)
	}

	input, err := json.Marshal(core.RecommendationInputFor(result.Result))
	if err != nil {
		return err
	}
	output, err := json.Marshal(tasks.RecommendationOutput{Recommendation: result.Recommendation.Text})
	if err != nil {
		return err
	}

	return llm.SaveFixture(dir, name, &llm.Fixture{
		Name:      name,
		Input:     input,
		Output:    output,
		Model:     model,
		Timestamp: time.Now().UTC(),
	})
}

func fail(msg string, err error) {
	fmt.Fprintf(os.Stderr, "❌ %s: %v\n", msg, err)
	os.Exit(1)
}

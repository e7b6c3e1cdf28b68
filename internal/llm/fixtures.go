package llm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Fixture represents a recorded LLM interaction for testing.
type Fixture struct {
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	Output    json.RawMessage `json:"output"`
	Model     string          `json:"model"`
	Timestamp time.Time       `json:"timestamp"`
}

// UnmarshalInput unmarshals the fixture input into the specified type.
func (f *Fixture) UnmarshalInput(v any) error {
	return json.Unmarshal(f.Input, v)
}

// UnmarshalOutput unmarshals the fixture output into the specified type.
func (f *Fixture) UnmarshalOutput(v any) error {
	return json.Unmarshal(f.Output, v)
}

func (f *Fixture) validate() error {
	if f.Name == "" {
		return fmt.Errorf("missing 'name' field")
	}
	if f.Model == "" {
		return fmt.Errorf("missing 'model' field")
	}
	if len(f.Input) == 0 {
		return fmt.Errorf("missing 'input' field")
	}
	if len(f.Output) == 0 {
		return fmt.Errorf("missing 'output' field")
	}
	return nil
}

// LoadFixture loads dir/name.json.
func LoadFixture(dir, name string) (*Fixture, error) {
	fixturePath := filepath.Join(dir, name+".json")

	data, err := os.ReadFile(fixturePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("fixture not found: %s\n\nRecord one with:\n  icmm-assess -answers answers.yaml -record-fixture %s", fixturePath, name)
		}
		return nil, fmt.Errorf("read fixture %s: %w", name, err)
	}

	var fixture Fixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("parse fixture %s (invalid JSON): %w", name, err)
	}

	if err := fixture.validate(); err != nil {
		return nil, fmt.Errorf("fixture %s: %w", name, err)
	}

	return &fixture, nil
}

// SaveFixture writes dir/name.json atomically.
func SaveFixture(dir, name string, fixture *Fixture) error {
	if err := fixture.validate(); err != nil {
		return fmt.Errorf("fixture %s: %w", name, err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create fixtures directory: %w", err)
	}

	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}

	fixturePath := filepath.Join(dir, name+".json")
	tempPath := fixturePath + ".tmp"

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write temp fixture %s: %w", name, err)
	}

	if err := os.Rename(tempPath, fixturePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("rename fixture %s: %w", name, err)
	}

	return nil
}

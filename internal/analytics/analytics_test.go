package analytics

import (
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icmm/internal/maturity"
	"icmm/pkg/schema"
)

func record(score int, level, city, role string, answers ...int) schema.AssessmentRecord {
	return schema.AssessmentRecord{
		ID:            "ASM-test",
		SchemaVersion: "icmm-schools-v1",
		Respondent:    schema.RespondentDetails{SchoolName: "School", City: city, Role: role},
		CreatedAt:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Answers:       schema.Ratings(answers...),
		TotalScore:    score,
		Level:         level,
	}
}

func seqOf(records ...schema.AssessmentRecord) iter.Seq2[schema.AssessmentRecord, error] {
	return func(yield func(schema.AssessmentRecord, error) bool) {
		for _, r := range records {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func defaultOptions() Options {
	m := maturity.Default()
	return Options{
		SchemaVersion: m.Version,
		Questions:     m.Questions,
		Levels:        m.Levels,
		BucketWidth:   5,
		BucketCount:   m.BucketCount(5),
		RecentLimit:   2,
	}
}

func TestEmptyInput(t *testing.T) {
	score := 30
	opts := defaultOptions()
	opts.Score = &score

	stats, err := Compute(seqOf(), opts)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0.0, stats.AverageScore)
	assert.Equal(t, make([]int, 10), stats.ScoreDistribution)
	assert.Equal(t, make([]float64, 10), stats.AverageAnswers)
	assert.Empty(t, stats.DomainAverages)
	assert.Equal(t, "", stats.DominantTier)
	assert.Equal(t, "", stats.WeakestDomain)
	assert.Empty(t, stats.Cities)
	assert.Empty(t, stats.Roles)
	assert.Empty(t, stats.Recent)
	assert.Equal(t, 0, stats.HighestScore)
	assert.Equal(t, 0, stats.LowestScore)
	require.NotNil(t, stats.Percentile)
	assert.Equal(t, 0, *stats.Percentile)

	require.Len(t, stats.TierDistribution, 5)
	for _, c := range stats.TierDistribution {
		assert.Zero(t, c.Count)
	}
}

func TestAverageScore(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		want   float64
	}{
		{"empty", nil, 0},
		{"single", []int{18}, 18},
		{"rounds to one decimal", []int{10, 11, 11}, 10.7},
		{"exact half", []int{1, 2}, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AverageScore(tt.scores))
		})
	}
}

func TestScoreDistribution(t *testing.T) {
	dist := ScoreDistribution([]int{0, 4, 5, 49, 50, 70, -3}, 5, 10)
	assert.Equal(t, []int{3, 1, 0, 0, 0, 0, 0, 0, 0, 3}, dist)

	assert.Equal(t, []int{}, ScoreDistribution([]int{1}, 5, 0))
	assert.Equal(t, []int{1, 0}, ScoreDistribution([]int{1}, 0, 2), "zero width falls back to default")
}

func TestPercentile(t *testing.T) {
	scores := []int{10, 20, 20, 30}

	assert.Equal(t, 0, Percentile(10, scores))
	assert.Equal(t, 25, Percentile(20, scores))
	assert.Equal(t, 75, Percentile(30, scores))
	assert.Equal(t, 100, Percentile(31, scores))
	assert.Equal(t, 0, Percentile(50, nil))

	t.Run("monotonic", func(t *testing.T) {
		prev := -1
		for s := 0; s <= 50; s++ {
			p := Percentile(s, []int{3, 7, 7, 18, 25, 25, 41, 50})
			assert.GreaterOrEqual(t, p, prev)
			prev = p
		}
	})
}

func TestPerDomainAverage(t *testing.T) {
	records := []schema.AssessmentRecord{
		record(0, "", "", "", 1, 4),
		record(0, "", "", "", 2, 5),
		{Answers: []schema.Answer{{Value: 3}}},
		{Answers: []schema.Answer{{Value: 3}, {Text: "notes"}}},
	}

	assert.Equal(t, 2.25, PerDomainAverage(records, 0))
	assert.Equal(t, 2.25, PerDomainAverage(records, 1))
	assert.Equal(t, 0.0, PerDomainAverage(records, 7))
	assert.Equal(t, 0.0, PerDomainAverage(nil, 0))
}

func TestDominantTier(t *testing.T) {
	tests := []struct {
		name   string
		levels []string
		want   string
	}{
		{"empty", nil, ""},
		{"clear winner", []string{"Adoption", "Exploration", "Adoption"}, "Adoption"},
		{"tie goes to first seen", []string{"Exploration", "Adoption", "Adoption", "Exploration"}, "Exploration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DominantTier(tt.levels))
		})
	}
}

func TestTop(t *testing.T) {
	values := []string{"Haifa", "Eilat", "Tel Aviv", "Eilat", "Haifa", "Jerusalem", "Ashdod", "Beersheba", "Nazareth"}

	got := Top(values, 5)
	assert.Equal(t, []Count{
		{"Haifa", 2},
		{"Eilat", 2},
		{"Tel Aviv", 1},
		{"Jerusalem", 1},
		{"Ashdod", 1},
	}, got)

	assert.Len(t, Top(values, -1), 7)
	assert.Empty(t, Top(nil, 5))
}

func TestTierDistribution(t *testing.T) {
	tiers := maturity.Default().Levels
	got := TierDistribution([]string{"Adoption", "Legacy", "Awareness", "Adoption"}, tiers)

	require.Len(t, got, 6)
	assert.Equal(t, Count{"Awareness", 1}, got[0])
	assert.Equal(t, Count{"Adoption", 2}, got[2])
	assert.Equal(t, Count{"Legacy", 1}, got[5])
}

func TestWeakestAverage(t *testing.T) {
	questions := maturity.Default().Questions

	averages := make([]float64, len(questions))
	for i := range averages {
		averages[i] = 3
	}
	averages[4] = 1.5
	averages[7] = 1.5
	averages[2] = 0

	assert.Equal(t, questions[4].Category, WeakestAverage(questions, averages))
	assert.Equal(t, "", WeakestAverage(questions, make([]float64, len(questions))))
}

func TestCompute(t *testing.T) {
	opts := defaultOptions()
	score := 20
	opts.Score = &score

	records := []schema.AssessmentRecord{
		record(18, "Exploration", "Haifa", "Principal", 1, 0, 3, 4, 2, 0, 0, 1, 5, 2),
		record(50, "Transformation", "Haifa", "Teacher", 5, 5, 5, 5, 5, 5, 5, 5, 5, 5),
		record(10, "Awareness", "", "Principal", 1, 1, 1, 1, 1, 1, 1, 1, 1, 1),
		// stale schema version
		{SchemaVersion: "icmm-schools-v0", Answers: schema.Ratings(5, 5), TotalScore: 10, Level: "Awareness"},
		// legacy record without a version but a matching answer count
		{Answers: schema.Ratings(2, 2, 2, 2, 2, 2, 2, 2, 2, 2), TotalScore: 20, Level: "Exploration", Respondent: schema.RespondentDetails{City: "Eilat"}},
		// legacy record with the wrong answer count
		{Answers: schema.Ratings(5, 5, 5), TotalScore: 15, Level: "Awareness"},
	}

	stats, err := Compute(seqOf(records...), opts)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Excluded)
	assert.Equal(t, 24.5, stats.AverageScore)
	assert.Equal(t, 50, stats.HighestScore)
	assert.Equal(t, 10, stats.LowestScore)
	require.NotNil(t, stats.Percentile)
	assert.Equal(t, 50, *stats.Percentile)
	assert.Equal(t, "Exploration", stats.DominantTier)

	assert.Equal(t, 1, stats.ScoreDistribution[2])
	assert.Equal(t, 1, stats.ScoreDistribution[3])
	assert.Equal(t, 1, stats.ScoreDistribution[4])
	assert.Equal(t, 1, stats.ScoreDistribution[9])

	assert.Equal(t, 2.25, stats.AverageAnswers[0])
	assert.Equal(t, 2.3, stats.DomainAverages["Vision & Leadership"])

	assert.Equal(t, []Count{{"Haifa", 2}, {"Eilat", 1}}, stats.Cities)
	assert.Equal(t, []Count{{"Principal", 2}, {"Teacher", 1}}, stats.Roles)

	require.Len(t, stats.Recent, 2)
	assert.Equal(t, 18, stats.Recent[0].TotalScore)
	assert.Equal(t, 50, stats.Recent[1].TotalScore)
}

func TestCompute_StreamError(t *testing.T) {
	boom := errors.New("disk gone")
	seq := func(yield func(schema.AssessmentRecord, error) bool) {
		if !yield(record(10, "Awareness", "", "", 1), nil) {
			return
		}
		yield(schema.AssessmentRecord{}, boom)
	}

	_, err := Compute(seq, defaultOptions())
	assert.ErrorIs(t, err, boom)
}

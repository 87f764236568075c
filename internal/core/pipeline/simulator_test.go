package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractKeywords(t *testing.T) {
	t.Run("filters stopwords and short words", func(t *testing.T) {
		keywords := ExtractKeywords("Please analyze the database performance metrics")
		assert.Equal(t, []string{"Please", "analyze", "database", "performance", "metrics"}, keywords)
	})

	t.Run("caps at five in input order", func(t *testing.T) {
		keywords := ExtractKeywords("one two three four five six seven eight")
		assert.Equal(t, []string{"one", "two", "three", "four", "five"}, keywords)
	})

	t.Run("stopword match is case-insensitive", func(t *testing.T) {
		keywords := ExtractKeywords("The AND are")
		assert.Empty(t, keywords)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, ExtractKeywords(""))
	})
}

func TestThoughts(t *testing.T) {
	s := NewSimulator(0)

	thoughts := s.Thoughts("analyze the request logs")
	require.Len(t, thoughts, 5)
	assert.Equal(t, "Analyzing task: analyze the request logs", thoughts[0])
	assert.Equal(t, "Identifying key concepts: analyze, request, logs", thoughts[1])
	assert.Equal(t, "Formulating approach based on context...", thoughts[2])
	assert.Equal(t, "Gathering relevant information...", thoughts[3])
	assert.Equal(t, "Synthesizing response...", thoughts[4])

	t.Run("long instruction truncated to 50", func(t *testing.T) {
		long := strings.Repeat("x", 80)
		thoughts := s.Thoughts(long)
		assert.Equal(t, "Analyzing task: "+strings.Repeat("x", 50), thoughts[0])
	})
}

func TestResultBuckets(t *testing.T) {
	s := NewSimulator(0)

	tests := []struct {
		name        string
		instruction string
		want        string
	}{
		{"analyze", "Analyze this code", "Analysis complete"},
		{"review", "review the design doc", "Analysis complete"},
		{"create", "Create a new component", "Created requested components"},
		{"build", "build the report", "Created requested components"},
		{"fix", "fix the flaky login", "Issue resolved"},
		{"resolve", "resolve the outage", "Root cause identified"},
		{"test", "test the migration", "All test cases passed"},
		{"verify", "verify checksums", "Testing complete"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, s.Result(tt.instruction), tt.want)
		})
	}

	t.Run("first matching bucket wins", func(t *testing.T) {
		result := s.Result("analyze and fix the problem")
		assert.Contains(t, result, "Analysis complete")
	})

	t.Run("generic bucket truncates to 30", func(t *testing.T) {
		long := strings.Repeat("z", 40)
		result := s.Result(long)
		assert.Contains(t, result, "Task '"+strings.Repeat("z", 30)+"' completed successfully")
	})
}

func TestProgressPercent(t *testing.T) {
	want := []int{16, 32, 48, 64, 80}
	for i, expected := range want {
		assert.Equal(t, expected, ProgressPercent(i+1, 5))
	}
	assert.Equal(t, 0, ProgressPercent(1, 0))
}

func TestStepDelay(t *testing.T) {
	assert.Equal(t, DefaultStepDelay, NewSimulator(-1).StepDelay())
	assert.Zero(t, NewSimulator(0).StepDelay())
}

package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeClient) GenerateJSON(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeClient) Close() error { return nil }

const validReport = `{
  "improvements": ["Quantify achievements"],
  "matchingSkills": ["Go", "PostgreSQL"],
  "missingSkills": ["Kubernetes"],
  "matchScore": 72,
  "recommendation": "Strong fit; add infrastructure experience."
}`

func TestAnalyzeParsesValidReport(t *testing.T) {
	client := &fakeClient{response: validReport}
	a, err := NewAnalyzerWithClient(client)
	require.NoError(t, err)

	analysis, err := a.Analyze(context.Background(), "resume text", "job description")
	require.NoError(t, err)
	assert.Equal(t, 72, analysis.MatchScore)
	assert.Equal(t, []string{"Go", "PostgreSQL"}, analysis.MatchingSkills)
	assert.Equal(t, []string{"Kubernetes"}, analysis.MissingSkills)

	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "resume text")
	assert.Contains(t, client.prompts[0], "job description")
}

func TestAnalyzeFallsBackOnClientError(t *testing.T) {
	a, err := NewAnalyzerWithClient(&fakeClient{err: errors.New("quota exceeded")})
	require.NoError(t, err)

	analysis, err := a.Analyze(context.Background(), "resume", "job")
	require.NoError(t, err)
	assert.Equal(t, 0, analysis.MatchScore)
	assert.NotEmpty(t, analysis.Recommendation)
}

func TestAnalyzeFallsBackOnSchemaViolation(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not json", "this is not json"},
		{"missing fields", `{"matchScore": 50}`},
		{"score out of range", `{"improvements": [], "matchingSkills": [], "missingSkills": [], "matchScore": 150, "recommendation": "x"}`},
		{"wrong types", `{"improvements": "none", "matchingSkills": [], "missingSkills": [], "matchScore": 50, "recommendation": "x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAnalyzerWithClient(&fakeClient{response: tt.response})
			require.NoError(t, err)

			analysis, err := a.Analyze(context.Background(), "resume", "job")
			require.NoError(t, err)
			assert.Equal(t, FallbackAnalysis(), analysis)
		})
	}
}

func TestAnalyzeWithoutClientServesFallback(t *testing.T) {
	a, err := NewAnalyzer(context.Background(), "")
	require.NoError(t, err)

	analysis, err := a.Analyze(context.Background(), "resume", "job")
	require.NoError(t, err)
	assert.Equal(t, FallbackAnalysis(), analysis)
}

func TestAnalyzeStripsMarkdownWrapper(t *testing.T) {
	a, err := NewAnalyzerWithClient(&fakeClient{response: "```json\n" + validReport + "\n```"})
	require.NoError(t, err)

	analysis, err := a.Analyze(context.Background(), "resume", "job")
	require.NoError(t, err)
	assert.Equal(t, 72, analysis.MatchScore)
}

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"whitespace", "  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSONBlock(tt.input))
		})
	}
}

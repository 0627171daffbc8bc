package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jonathan/job-tracker/internal/types"
)

// analysisSchema validates the structure of the model's match report before
// it is returned to clients.
const analysisSchema = `{
  "type": "object",
  "required": ["improvements", "matchingSkills", "missingSkills", "matchScore", "recommendation"],
  "properties": {
    "improvements":   {"type": "array", "items": {"type": "string"}},
    "matchingSkills": {"type": "array", "items": {"type": "string"}},
    "missingSkills":  {"type": "array", "items": {"type": "string"}},
    "matchScore":     {"type": "integer", "minimum": 0, "maximum": 100},
    "recommendation": {"type": "string"}
  }
}`

const analysisPrompt = `You are a career advisor. Compare the resume below against the job description and produce a JSON report.

Return ONLY a JSON object with exactly these fields:
- "improvements": array of specific suggestions to better tailor the resume to this job
- "matchingSkills": array of skills present in both the resume and the job description
- "missingSkills": array of skills the job asks for that the resume does not show
- "matchScore": integer from 0 to 100 rating how well the resume fits the job
- "recommendation": one paragraph of overall advice

RESUME:
%s

JOB DESCRIPTION:
%s`

// prompt inputs are truncated to keep requests bounded
const maxPromptSection = 20000

// Analyzer produces resume/job-description match reports. Without a
// configured client it serves a canned fallback report so the endpoint stays
// usable offline.
type Analyzer struct {
	client Client
	schema *gojsonschema.Schema
}

// NewAnalyzer creates an analyzer. An empty API key disables the LLM and the
// analyzer answers every request with the fallback report.
func NewAnalyzer(ctx context.Context, apiKey string) (*Analyzer, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(analysisSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile analysis schema: %w", err)
	}

	a := &Analyzer{schema: schema}
	if apiKey == "" {
		log.Println("[llm] no API key configured, analysis falls back to canned report")
		return a, nil
	}

	client, err := NewGeminiClient(ctx, apiKey, ModelFromEnv())
	if err != nil {
		return nil, err
	}
	a.client = client
	return a, nil
}

// NewAnalyzerWithClient creates an analyzer backed by an existing client.
func NewAnalyzerWithClient(client Client) (*Analyzer, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(analysisSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile analysis schema: %w", err)
	}
	return &Analyzer{client: client, schema: schema}, nil
}

// Analyze compares resume text against a job description. Model failures
// degrade to the fallback report rather than failing the request.
func (a *Analyzer) Analyze(ctx context.Context, resumeText, jobDescription string) (*types.Analysis, error) {
	if a.client == nil {
		return FallbackAnalysis(), nil
	}

	prompt := fmt.Sprintf(analysisPrompt, truncate(resumeText, maxPromptSection), truncate(jobDescription, maxPromptSection))

	raw, err := a.client.GenerateJSON(ctx, prompt)
	if err != nil {
		log.Printf("[llm] analysis generation failed: %v", err)
		return FallbackAnalysis(), nil
	}

	// Models sometimes wrap JSON in markdown fences regardless of the
	// requested MIME type; strip them before validating.
	analysis, err := a.parse(CleanJSONBlock(raw))
	if err != nil {
		log.Printf("[llm] analysis response rejected: %v", err)
		return FallbackAnalysis(), nil
	}
	return analysis, nil
}

// parse validates the raw model output against the schema and decodes it.
func (a *Analyzer) parse(raw string) (*types.Analysis, error) {
	result, err := a.schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to validate analysis: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("analysis does not match schema: %v", result.Errors())
	}

	var analysis types.Analysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return nil, fmt.Errorf("failed to decode analysis: %w", err)
	}
	return &analysis, nil
}

// Close releases the underlying client.
func (a *Analyzer) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

// FallbackAnalysis is the report served when the model is unavailable or
// returns something unusable.
func FallbackAnalysis() *types.Analysis {
	return &types.Analysis{
		Improvements: []string{
			"Automated analysis is currently unavailable.",
			"Compare your resume keywords against the job description manually.",
		},
		MatchingSkills: []string{},
		MissingSkills:  []string{},
		MatchScore:     0,
		Recommendation: "The analysis service could not process this request. Review the job description and make sure your most relevant experience appears early in your resume.",
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

package analysis

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"jobapply-backend/internal/llm"
	"jobapply-backend/internal/shared/apperr"
	"jobapply-backend/internal/shared/metrics"
)

// Source identifies which path produced an analysis.
type Source string

const (
	// SourceGenerated means the text came from the generation capability.
	SourceGenerated Source = "generated"
	// SourceBasic means the deterministic keyword-overlap fallback ran.
	SourceBasic Source = "basic"
)

// MinGeneratedChars is the shortest generated analysis accepted before falling back.
const MinGeneratedChars = 100

// ErrTooShort marks a generated analysis rejected for being implausibly short.
var ErrTooShort = errors.New("analysis response too short")

// Result is a resume/job match analysis.
type Result struct {
	Text   string `json:"text"`
	Source Source `json:"source"`
	// MatchPercent and MissingKeywords are only populated for SourceBasic.
	MatchPercent    int      `json:"matchPercent,omitempty"`
	MissingKeywords []string `json:"missingKeywords,omitempty"`
	// GenerationErr records why the generated path was abandoned.
	GenerationErr error `json:"-"`
}

// Basic reports whether the deterministic fallback produced r.
func (r Result) Basic() bool {
	return r.Source == SourceBasic
}

// Analyze compares a resume against a job description. Generation failures and
// too-short outputs are recovered with BasicAnalysis; only missing input fails.
func Analyze(ctx context.Context, resumeText, jobText string, gen llm.Generator) (Result, error) {
	if strings.TrimSpace(resumeText) == "" {
		return Result{}, apperr.Missing("resume text")
	}
	if strings.TrimSpace(jobText) == "" {
		return Result{}, apperr.Missing("job description")
	}

	text, err := generate(ctx, resumeText, jobText, gen)
	if err != nil {
		result := BasicAnalysis(resumeText, jobText)
		result.GenerationErr = &apperr.GenerationError{Op: "analyze", Err: err}
		metrics.IncAnalysis(string(SourceBasic))
		return result, nil
	}

	metrics.IncAnalysis(string(SourceGenerated))
	return Result{Text: text, Source: SourceGenerated}, nil
}

func generate(ctx context.Context, resumeText, jobText string, gen llm.Generator) (string, error) {
	if gen == nil {
		return "", llm.ErrNotConfigured
	}

	start := time.Now()
	text, err := gen.Generate(ctx, BuildPrompt(resumeText, jobText))
	if err == nil && utf8.RuneCountInString(strings.TrimSpace(text)) < MinGeneratedChars {
		err = ErrTooShort
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ObserveGeneration("analysis", status, time.Since(start))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

package compose

import (
	"context"
	"errors"
	"strings"
	"testing"

	"jobapply-backend/internal/llm"
	"jobapply-backend/internal/shared/apperr"
)

const sampleResume = "John Michael Smith\nSoftware Engineer\nSkills: Go, PostgreSQL, Kubernetes\nBuilt distributed systems for five years."

const sampleJob = "Senior Backend Engineer\n\nWe are hiring someone to build APIs in Go. Experience with PostgreSQL and Kubernetes is required."

func TestExtractCandidateName(t *testing.T) {
	if got := ExtractCandidateName(sampleResume); got != "John Michael Smith" {
		t.Fatalf("ExtractCandidateName() = %q", got)
	}
	if got := ExtractCandidateName("jane doe, engineer"); got != DefaultCandidateName {
		t.Fatalf("expected default name, got %q", got)
	}
	late := strings.Repeat("x", 600) + " Jane Doe"
	if got := ExtractCandidateName(late); got != DefaultCandidateName {
		t.Fatalf("expected name past scan window to be ignored, got %q", got)
	}
}

func TestExtractJobTitle(t *testing.T) {
	if got := ExtractJobTitle(sampleJob); got != "Senior Backend Engineer" {
		t.Fatalf("ExtractJobTitle() = %q", got)
	}
	if got := ExtractJobTitle("we need help"); got != DefaultJobTitle {
		t.Fatalf("expected default title, got %q", got)
	}
}

func TestBuildPromptTruncatesAndInstructs(t *testing.T) {
	longJob := strings.Repeat("j", 5000)
	longResume := strings.Repeat("r", 5000)
	prompt := BuildPrompt(longResume, longJob, "John Smith", "Backend Engineer")
	if strings.Count(prompt, "j") > promptJobChars+5 {
		t.Fatalf("job text not truncated")
	}
	if strings.Contains(prompt, strings.Repeat("r", promptResumeChars+1)) {
		t.Fatalf("resume text not truncated")
	}
	for _, want := range []string{"Subject:", "John Smith", "Backend Engineer"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func TestBuildEmail(t *testing.T) {
	var seen string
	gen := llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		seen = prompt
		return "Subject: Application for Senior Backend Engineer\n\nDear Team\nI am excited\nto apply.\n\nSincerely,\nJohn Michael Smith", nil
	})

	email, err := BuildEmail(context.Background(), sampleResume, sampleJob, "hr@example.com", gen)
	if err != nil {
		t.Fatalf("BuildEmail: %v", err)
	}
	if !strings.Contains(seen, "John Michael Smith") {
		t.Fatalf("prompt missing candidate name")
	}
	if email.Subject != "Application for Senior Backend Engineer" {
		t.Fatalf("subject = %q", email.Subject)
	}
	want := "Dear Team,\n\nI am excited to apply.\n\nSincerely,\nJohn Michael Smith"
	if email.Body != want {
		t.Fatalf("body = %q, want %q", email.Body, want)
	}
	if email.ParseFallbackUsed() || email.Templated {
		t.Fatalf("expected explicit subject branch")
	}
	if strings.Contains(email.Body, "Skills: Go, PostgreSQL") {
		t.Fatalf("body must not embed the resume")
	}
}

func TestBuildEmailMissingInput(t *testing.T) {
	gen := llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		t.Fatalf("generator must not be called")
		return "", nil
	})
	if _, err := BuildEmail(context.Background(), "  ", sampleJob, "", gen); !errors.Is(err, apperr.ErrMissingInput) {
		t.Fatalf("expected missing input for resume, got %v", err)
	}
	if _, err := BuildEmail(context.Background(), sampleResume, "", "", gen); !errors.Is(err, apperr.ErrMissingInput) {
		t.Fatalf("expected missing input for job, got %v", err)
	}
}

func TestBuildEmailGenerationError(t *testing.T) {
	boom := errors.New("quota exceeded")
	calls := 0
	gen := llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		return "", boom
	})
	_, err := BuildEmail(context.Background(), sampleResume, sampleJob, "", gen)
	if !errors.Is(err, apperr.ErrGeneration) || !errors.Is(err, boom) {
		t.Fatalf("expected generation error wrapping cause, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected single attempt, got %d", calls)
	}

	_, err = BuildEmail(context.Background(), sampleResume, sampleJob, "", llm.Placeholder{})
	if !errors.Is(err, llm.ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}

	empty := llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) { return " \n ", nil })
	_, err = BuildEmail(context.Background(), sampleResume, sampleJob, "", empty)
	if !errors.Is(err, llm.ErrEmptyResponse) {
		t.Fatalf("expected empty response error, got %v", err)
	}
}

func TestTemplateEmail(t *testing.T) {
	email := TemplateEmail("John Michael Smith", "Backend Engineer")
	if !email.Templated {
		t.Fatalf("expected templated flag")
	}
	if email.Subject != "Job Application - John Michael Smith" {
		t.Fatalf("subject = %q", email.Subject)
	}
	if !strings.HasPrefix(email.Body, "Dear Hiring Team,\n\n") {
		t.Fatalf("unexpected greeting: %q", email.Body)
	}
	if !strings.HasSuffix(email.Body, "Best regards,\nJohn Michael Smith") {
		t.Fatalf("unexpected closing: %q", email.Body)
	}
	if !strings.Contains(email.Body, "Backend Engineer") {
		t.Fatalf("body should name the role")
	}
}

package compose

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"jobapply-backend/internal/llm"
	"jobapply-backend/internal/shared/apperr"
	"jobapply-backend/internal/shared/metrics"
	"jobapply-backend/internal/shared/util"
)

const (
	// DefaultCandidateName signs emails when no name is found in the resume.
	DefaultCandidateName = "Applicant"
	// DefaultJobTitle stands in when the job text names no recognizable title.
	DefaultJobTitle = "position"

	nameScanChars     = 500
	jobTitleScanChars = 1000
	promptJobChars    = 1500
	promptResumeChars = 1500
)

var (
	candidateNameRe = regexp.MustCompile(`[A-Z][a-z]+(?: [A-Z][a-z]+){1,2}`)
	jobTitleRe      = regexp.MustCompile(`[A-Z][a-zA-Z\s]+(?:Developer|Engineer|Scientist|Intern|Analyst|Manager|Specialist)`)
)

// GeneratedEmail is the parsed and formatted output of the content pipeline.
// The resume is never part of Body; it travels as an attachment.
type GeneratedEmail struct {
	Subject       string `json:"subject"`
	Body          string `json:"body"`
	CandidateName string `json:"candidateName"`
	JobTitle      string `json:"jobTitle"`
	ParseBranch   Branch `json:"-"`
	// Templated is set when the body came from TemplateEmail rather than generation.
	Templated bool `json:"templated"`
}

// ParseFallbackUsed reports whether the subject came from a fallback rule.
func (e GeneratedEmail) ParseFallbackUsed() bool {
	return !e.Templated && e.ParseBranch.FallbackUsed()
}

// ExtractCandidateName returns the first Title-Case two- or three-word sequence in
// the opening of the resume, or DefaultCandidateName. Names written in other
// conventions are not detected.
func ExtractCandidateName(resumeText string) string {
	head := util.TruncateRunes(resumeText, nameScanChars)
	if m := candidateNameRe.FindString(head); m != "" {
		return m
	}
	return DefaultCandidateName
}

// ExtractJobTitle returns the first capitalized phrase ending in a common job noun
// in the opening of the job text, or DefaultJobTitle.
func ExtractJobTitle(jobText string) string {
	head := util.TruncateRunes(jobText, jobTitleScanChars)
	if m := jobTitleRe.FindString(head); m != "" {
		return strings.Join(strings.Fields(m), " ")
	}
	return DefaultJobTitle
}

// BuildPrompt renders the email-generation prompt. Job and resume text are truncated
// to bound prompt size.
func BuildPrompt(resumeText, jobText, candidateName, jobTitle string) string {
	var b strings.Builder
	b.WriteString("You are writing a professional job application email. Think about this naturally and write a good email.\n\n")
	b.WriteString("JOB DETAILS:\n")
	b.WriteString(util.TruncateRunes(jobText, promptJobChars))
	b.WriteString("\n\nCANDIDATE RESUME:\n")
	b.WriteString(util.TruncateRunes(resumeText, promptResumeChars))
	b.WriteString("\n\n")
	if jobTitle != "" && jobTitle != DefaultJobTitle {
		fmt.Fprintf(&b, "The role appears to be: %s.\n", jobTitle)
	}
	b.WriteString("Write a professional job application email to the hiring manager highlighting the candidate's relevant skills. ")
	b.WriteString("Be natural and authentic. The resume will be attached as a PDF file, so do not paste resume content into the email.\n")
	fmt.Fprintf(&b, "End with either \"Sincerely,\" or \"Best regards,\" followed by %s on the next line.\n\n", candidateName)
	b.WriteString("Start your response with:\nSubject: [your subject line]\n\nThen write the email body naturally.\n")
	return b.String()
}

// BuildEmail runs the content pipeline once: prompt, generate, parse, format.
// Generation failures are returned as *apperr.GenerationError; nothing is retried here.
// The recipient is addressed by dispatch and does not shape the content.
func BuildEmail(ctx context.Context, resumeText, jobText, _ string, gen llm.Generator) (GeneratedEmail, error) {
	if strings.TrimSpace(resumeText) == "" {
		return GeneratedEmail{}, apperr.Missing("resume text")
	}
	if strings.TrimSpace(jobText) == "" {
		return GeneratedEmail{}, apperr.Missing("job description")
	}
	if gen == nil {
		return GeneratedEmail{}, &apperr.GenerationError{Op: "compose email", Err: llm.ErrNotConfigured}
	}

	name := ExtractCandidateName(resumeText)
	title := ExtractJobTitle(jobText)
	prompt := BuildPrompt(resumeText, jobText, name, title)

	start := time.Now()
	raw, err := gen.Generate(ctx, prompt)
	if err == nil && strings.TrimSpace(raw) == "" {
		err = llm.ErrEmptyResponse
	}
	if err != nil {
		metrics.ObserveGeneration("email", "error", time.Since(start))
		return GeneratedEmail{}, &apperr.GenerationError{Op: "compose email", Err: err}
	}
	metrics.ObserveGeneration("email", "ok", time.Since(start))

	parsed := ParseEmail(raw, name)
	return GeneratedEmail{
		Subject:       parsed.Subject,
		Body:          FormatLetter(parsed.Body, name),
		CandidateName: name,
		JobTitle:      title,
		ParseBranch:   parsed.Branch,
	}, nil
}

// TemplateEmail is the canned email callers send when generation is unavailable.
func TemplateEmail(candidateName, jobTitle string) GeneratedEmail {
	if strings.TrimSpace(candidateName) == "" {
		candidateName = DefaultCandidateName
	}
	if strings.TrimSpace(jobTitle) == "" {
		jobTitle = DefaultJobTitle
	}
	body := fmt.Sprintf(`Dear Hiring Team,

I am interested in applying for the %s at your company.

My background and experience are outlined in the attached resume. I would appreciate the opportunity to discuss my qualifications with you.

Thank you for your consideration.

Best regards,
%s`, jobTitle, candidateName)

	return GeneratedEmail{
		Subject:       DefaultSubject(candidateName),
		Body:          FormatLetter(body, candidateName),
		CandidateName: candidateName,
		JobTitle:      jobTitle,
		ParseBranch:   BranchDefault,
		Templated:     true,
	}
}

package compose

import (
	"fmt"
	"strings"
)

// Branch identifies which subject-detection rule produced a Parsed result.
type Branch int

const (
	// BranchSubjectLine means an explicit "Subject:" line was found.
	BranchSubjectLine Branch = iota + 1
	// BranchKeywordLine means one of the first three lines mentioned the job.
	BranchKeywordLine
	// BranchDefault means the subject was synthesized from the fallback name.
	BranchDefault
)

func (b Branch) String() string {
	switch b {
	case BranchSubjectLine:
		return "subject_line"
	case BranchKeywordLine:
		return "keyword_line"
	case BranchDefault:
		return "default"
	default:
		return "unknown"
	}
}

// FallbackUsed reports whether the parse fell back from an explicit subject line.
func (b Branch) FallbackUsed() bool {
	return b != BranchSubjectLine
}

// Parsed is the subject and body split out of raw generated text.
type Parsed struct {
	Subject string
	Body    string
	Branch  Branch
}

const keywordScanLines = 3

var subjectKeywords = []string{"application", "position", "role", "job"}

type parseRule struct {
	branch Branch
	apply  func(lines []string, raw, fallbackName string) (subject, body string, ok bool)
}

// parseRules run in priority order; the first match wins.
var parseRules = []parseRule{
	{branch: BranchSubjectLine, apply: subjectLineRule},
	{branch: BranchKeywordLine, apply: keywordLineRule},
	{branch: BranchDefault, apply: defaultRule},
}

// ParseEmail extracts a subject line and body from raw generated text.
// It never fails: when no subject can be found it synthesizes one from fallbackName.
func ParseEmail(raw, fallbackName string) Parsed {
	lines := strings.Split(Normalize(raw), "\n")
	for _, rule := range parseRules {
		subject, body, ok := rule.apply(lines, raw, fallbackName)
		if !ok {
			continue
		}
		return Parsed{
			Subject: cleanSubject(subject),
			Body:    body,
			Branch:  rule.branch,
		}
	}
	// defaultRule always matches.
	return Parsed{}
}

func subjectLineRule(lines []string, _ string, _ string) (string, string, bool) {
	for i, line := range lines {
		if !strings.HasPrefix(strings.ToLower(line), "subject:") {
			continue
		}
		_, after, _ := strings.Cut(line, ":")
		subject := strings.TrimSpace(after)
		if subject == "" {
			return "", "", false
		}
		body := ""
		for j := i + 1; j < len(lines); j++ {
			if strings.TrimSpace(lines[j]) != "" {
				body = strings.TrimSpace(strings.Join(lines[j:], "\n"))
				break
			}
		}
		return subject, body, true
	}
	return "", "", false
}

func keywordLineRule(lines []string, raw string, _ string) (string, string, bool) {
	limit := keywordScanLines
	if len(lines) < limit {
		limit = len(lines)
	}
	for _, line := range lines[:limit] {
		lower := strings.ToLower(line)
		for _, kw := range subjectKeywords {
			if strings.Contains(lower, kw) {
				return strings.TrimSpace(line), raw, true
			}
		}
	}
	return "", "", false
}

func defaultRule(_ []string, raw string, fallbackName string) (string, string, bool) {
	return DefaultSubject(fallbackName), raw, true
}

// DefaultSubject is the subject used when generated text carries none.
func DefaultSubject(name string) string {
	return fmt.Sprintf("Job Application - %s", name)
}

func cleanSubject(subject string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(subject), `"'`))
}

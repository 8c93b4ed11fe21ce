package compose

import (
	"regexp"
	"strings"
)

var (
	greetingRe = regexp.MustCompile(`^(Dear [^,\n]+),?\s*`)

	closingTokens = `(Sincerely,|Best regards,|Warm regards,)`

	closingLineRe     = regexp.MustCompile(`(?m)^[ \t]*` + closingTokens + `[ \t]*$`)
	closingWithNameRe = regexp.MustCompile(`[ \t\n]*` + closingTokens + `[ \t\n]*(\p{L}[\p{L}\p{M} .'\-]*?)[ \t\n]*$`)
	closingOnlyRe     = regexp.MustCompile(`[ \t\n]*` + closingTokens + `[ \t\n]*$`)
)

// FormatLetter re-paragraphs body text into business-letter shape: a "Dear X," greeting
// followed by one blank line, paragraphs separated by one blank line, and a closing
// token directly above the signer's name. A bare closing is signed with applicantName.
func FormatLetter(body, applicantName string) string {
	text := strings.TrimLeft(Normalize(body), " \t\n")
	text = greetingRe.ReplaceAllString(text, "${1},\n\n")
	applicantName = strings.TrimSpace(applicantName)

	if body, closing, signature, ok := splitSignature(text); ok {
		if len(signature) == 0 && applicantName != "" {
			signature = []string{applicantName}
		}
		block := strings.Join(append([]string{closing}, signature...), "\n")
		if body = Paragraphs(body); body != "" {
			return body + "\n\n" + block
		}
		return block
	}

	return normalizeClosing(Paragraphs(text), applicantName)
}

// splitSignature separates a closing token that sits on its own line, and the
// lines after it, from the letter body. The signature lines are kept as they
// are so names, titles and contact details are not reflowed into one line.
func splitSignature(text string) (body, closing string, signature []string, ok bool) {
	matches := closingLineRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return "", "", nil, false
	}
	last := matches[len(matches)-1]
	closing = text[last[2]:last[3]]
	for _, line := range strings.Split(text[last[1]:], "\n") {
		if line = strings.TrimSpace(line); line != "" {
			signature = append(signature, line)
		}
	}
	return text[:last[0]], closing, signature, true
}

// Paragraphs joins consecutive non-blank lines with a space and separates the
// resulting paragraphs with exactly one blank line.
func Paragraphs(text string) string {
	var (
		paragraphs []string
		current    []string
	)
	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, " "))
			current = current[:0]
		}
	}
	for _, line := range strings.Split(Normalize(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return strings.Join(paragraphs, "\n\n")
}

func normalizeClosing(text, applicantName string) string {
	if closingWithNameRe.MatchString(text) {
		text = closingWithNameRe.ReplaceAllString(text, "\n\n${1}\n${2}")
		return strings.TrimLeft(text, "\n")
	}
	if applicantName != "" && closingOnlyRe.MatchString(text) {
		text = closingOnlyRe.ReplaceAllString(text, "\n\n${1}\n") + applicantName
		return strings.TrimLeft(text, "\n")
	}
	return text
}

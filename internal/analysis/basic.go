package analysis

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	keywordMinRunes   = 5
	keywordCandidates = 20
	keywordDisplay    = 10
)

// BasicAnalysis is the deterministic keyword-overlap analysis. It never fails.
func BasicAnalysis(resumeText, jobText string) Result {
	jobWords := orderedWords(jobText)
	resumeSet := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(resumeText)) {
		resumeSet[w] = struct{}{}
	}

	pct := MatchPercent(jobWords, resumeSet)
	missing := missingKeywords(jobWords, resumeSet)

	return Result{
		Text:            renderBasic(pct, missing),
		Source:          SourceBasic,
		MatchPercent:    pct,
		MissingKeywords: missing,
	}
}

// MatchPercent is round(100 * |job ∩ resume| / |job|) capped at 100, or 0 for no job words.
func MatchPercent(jobWords []string, resume map[string]struct{}) int {
	if len(jobWords) == 0 {
		return 0
	}
	common := 0
	for _, w := range jobWords {
		if _, ok := resume[w]; ok {
			common++
		}
	}
	pct := int(math.Round(100 * float64(common) / float64(len(jobWords))))
	if pct > 100 {
		pct = 100
	}
	return pct
}

// orderedWords returns the distinct lower-cased whitespace tokens of text in
// first-occurrence order.
func orderedWords(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// missingKeywords takes the first 20 long alphabetic job words and keeps the
// ones absent from the resume, up to 10.
func missingKeywords(jobWords []string, resume map[string]struct{}) []string {
	var candidates []string
	for _, w := range jobWords {
		if utf8.RuneCountInString(w) >= keywordMinRunes && alphabetic(w) {
			candidates = append(candidates, w)
			if len(candidates) == keywordCandidates {
				break
			}
		}
	}

	var missing []string
	for _, w := range candidates {
		if _, ok := resume[w]; ok {
			continue
		}
		missing = append(missing, w)
		if len(missing) == keywordDisplay {
			break
		}
	}
	return missing
}

func alphabetic(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

func renderBasic(pct int, missing []string) string {
	keywords := "None identified"
	if len(missing) > 0 {
		keywords = strings.Join(missing, ", ")
	}
	return fmt.Sprintf(`BASIC TEXT ANALYSIS (generated analysis unavailable)

MATCH PERCENTAGE: Approximately %d%%

MISSING KEYWORDS: %s

IMPROVEMENT SUGGESTIONS:
- Consider adding more keywords from the job description
- Review the job requirements and highlight matching experience
- Customize your resume to better align with this specific role

OVERALL ASSESSMENT: Basic text comparison completed. For a detailed analysis, make sure the job description is clear and try again.

Note: This is a simplified analysis. For best results, make sure both resume and job description are clearly formatted.`, pct, keywords)
}

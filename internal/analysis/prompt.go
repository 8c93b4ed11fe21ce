package analysis

import (
	"fmt"

	"jobapply-backend/internal/shared/util"
)

const promptChars = 3000

// BuildPrompt renders the four-section match analysis prompt.
func BuildPrompt(resumeText, jobText string) string {
	return fmt.Sprintf(`You are a professional resume analyst. Analyze this resume against the job description.

JOB DESCRIPTION:
%s

RESUME CONTENT:
%s

Provide a clear analysis with the following sections:

1. MATCH PERCENTAGE: An estimated percentage (0-100%%) of how well the resume matches the job requirements.

2. MISSING KEYWORDS: 5-10 important keywords from the job description that are missing in the resume.

3. IMPROVEMENT SUGGESTIONS: 3-5 specific, actionable suggestions to improve the resume for this job.

4. OVERALL ASSESSMENT: Whether this candidate would be a good fit and why.

Keep the response clear, professional and structured. If the job description seems unclear or corrupted, focus on what you can understand and mention any limitations.
`, util.TruncateRunes(jobText, promptChars), util.TruncateRunes(resumeText, promptChars))
}

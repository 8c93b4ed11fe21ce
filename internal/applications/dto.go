package applications

import (
	"time"

	"jobapply-backend/internal/analysis"
	"jobapply-backend/internal/compose"
	"jobapply-backend/internal/dispatch"
	"jobapply-backend/internal/sessions"
)

// SessionResponse is the outward-facing view of an application context.
type SessionResponse struct {
	SessionID        string    `json:"sessionId"`
	ResumeFileName   string    `json:"resumeFileName,omitempty"`
	ResumeChars      int       `json:"resumeChars"`
	JobDescription   string    `json:"jobDescription,omitempty"`
	JobSourceURL     string    `json:"jobSourceUrl,omitempty"`
	RecipientEmail   string    `json:"recipientEmail,omitempty"`
	ReadyForAnalysis bool      `json:"readyForAnalysis"`
	ReadyForEmail    bool      `json:"readyForEmail"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func toSessionResponse(ac sessions.ApplicationContext) SessionResponse {
	return SessionResponse{
		SessionID:        ac.ID,
		ResumeFileName:   ac.ResumeFileName,
		ResumeChars:      len([]rune(ac.ResumeText)),
		JobDescription:   ac.JobDescription,
		JobSourceURL:     ac.JobSourceURL,
		RecipientEmail:   ac.RecipientEmail,
		ReadyForAnalysis: ac.ReadyForAnalysis(),
		ReadyForEmail:    ac.ReadyForEmail(),
		CreatedAt:        ac.CreatedAt,
		UpdatedAt:        ac.UpdatedAt,
	}
}

type jobDescriptionRequest struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type recipientRequest struct {
	Email string `json:"email"`
}

type presignRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

type attachUploadRequest struct {
	Key string `json:"key"`
}

// AnalysisResponse carries a match analysis and which path produced it.
type AnalysisResponse struct {
	Text            string   `json:"text"`
	Source          string   `json:"source"`
	MatchPercent    *int     `json:"matchPercent,omitempty"`
	MissingKeywords []string `json:"missingKeywords,omitempty"`
}

// EmailResponse carries the composed email.
type EmailResponse struct {
	Subject           string `json:"subject"`
	Body              string `json:"body"`
	CandidateName     string `json:"candidateName"`
	JobTitle          string `json:"jobTitle"`
	Templated         bool   `json:"templated"`
	ParseFallbackUsed bool   `json:"parseFallbackUsed"`
}

// RunResponse is returned by the analyze, draft and send routes.
type RunResponse struct {
	Action   string            `json:"action"`
	Analysis *AnalysisResponse `json:"analysis,omitempty"`
	Email    *EmailResponse    `json:"email,omitempty"`
	Receipt  *dispatch.Receipt `json:"receipt,omitempty"`
}

func toAnalysisResponse(res analysis.Result) *AnalysisResponse {
	out := &AnalysisResponse{
		Text:            res.Text,
		Source:          string(res.Source),
		MissingKeywords: res.MissingKeywords,
	}
	if res.Basic() {
		pct := res.MatchPercent
		out.MatchPercent = &pct
	}
	return out
}

func toEmailResponse(e compose.GeneratedEmail) *EmailResponse {
	return &EmailResponse{
		Subject:           e.Subject,
		Body:              e.Body,
		CandidateName:     e.CandidateName,
		JobTitle:          e.JobTitle,
		Templated:         e.Templated,
		ParseFallbackUsed: e.ParseFallbackUsed(),
	}
}

func toRunResponse(r RunResult) RunResponse {
	out := RunResponse{Action: string(r.Action), Receipt: r.Receipt}
	if r.Analysis != nil {
		out.Analysis = toAnalysisResponse(*r.Analysis)
	}
	if r.Email != nil {
		out.Email = toEmailResponse(*r.Email)
	}
	return out
}

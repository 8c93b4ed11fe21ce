package sessions

import (
	"strings"
	"time"
)

// ApplicationContext holds the inputs of one application attempt. Pipelines
// receive it explicitly; nothing is kept in process-wide state.
type ApplicationContext struct {
	ID             string    `json:"id"`
	ResumeText     string    `json:"resumeText,omitempty"`
	ResumeFileName string    `json:"resumeFileName,omitempty"`
	// AttachmentPath is the object store key of the original resume bytes.
	AttachmentPath string    `json:"attachmentPath,omitempty"`
	JobDescription string    `json:"jobDescription,omitempty"`
	JobSourceURL   string    `json:"jobSourceUrl,omitempty"`
	RecipientEmail string    `json:"recipientEmail,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ReadyForAnalysis reports whether both resume and job text are present.
func (a ApplicationContext) ReadyForAnalysis() bool {
	return strings.TrimSpace(a.ResumeText) != "" && strings.TrimSpace(a.JobDescription) != ""
}

// ReadyForEmail additionally requires a recipient and an attachment.
func (a ApplicationContext) ReadyForEmail() bool {
	return a.ReadyForAnalysis() &&
		strings.TrimSpace(a.RecipientEmail) != "" &&
		strings.TrimSpace(a.AttachmentPath) != ""
}

package applications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"jobapply-backend/internal/analysis"
	"jobapply-backend/internal/compose"
	"jobapply-backend/internal/dispatch"
	"jobapply-backend/internal/extract"
	"jobapply-backend/internal/history"
	"jobapply-backend/internal/llm"
	"jobapply-backend/internal/scrape"
	"jobapply-backend/internal/sessions"
	"jobapply-backend/internal/shared/apperr"
	"jobapply-backend/internal/shared/metrics"
	"jobapply-backend/internal/shared/storage/object"
	"jobapply-backend/internal/shared/telemetry"
)

// Action is one of the three user triggers.
type Action string

const (
	ActionAnalyze Action = "analyze"
	ActionDraft   Action = "draft"
	ActionSend    Action = "send"
)

// MaxResumeBytes caps resume uploads on both upload paths.
const MaxResumeBytes = 10 << 20

var allowedResumeTypes = map[string]struct{}{
	"application/pdf": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"text/plain": {},
}

// JobFetcher loads a job description from a posting URL.
type JobFetcher interface {
	FetchJobDescription(ctx context.Context, rawURL string) (scrape.JobPosting, error)
}

// SenderProvider resolves the mail sender connected for a session.
type SenderProvider interface {
	SenderFor(ctx context.Context, key string) (dispatch.Sender, error)
}

// Service coordinates sessions, the analysis and email pipelines, and dispatch.
type Service struct {
	Sessions     sessions.Store
	Store        object.ObjectStore
	HistoryRepo  history.Repo
	Generator    llm.Generator
	Fetcher      JobFetcher
	Senders      SenderProvider
	Dispatcher   *dispatch.Dispatcher
	HistoryLimit int

	now func() time.Time
}

// RunResult collects what an action produced. Fields not touched by the action stay nil.
type RunResult struct {
	Action   Action
	Analysis *analysis.Result
	Email    *compose.GeneratedEmail
	Receipt  *dispatch.Receipt
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

// CreateSession starts an empty application context.
func (s *Service) CreateSession(ctx context.Context) (sessions.ApplicationContext, error) {
	now := s.clock()
	ac := sessions.ApplicationContext{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Sessions.Save(ctx, ac); err != nil {
		return sessions.ApplicationContext{}, err
	}
	return ac, nil
}

// GetSession returns the application context for id.
func (s *Service) GetSession(ctx context.Context, id string) (sessions.ApplicationContext, error) {
	if strings.TrimSpace(id) == "" {
		return sessions.ApplicationContext{}, sessions.ErrNotFound
	}
	return s.Sessions.Get(ctx, id)
}

// CheckSession reports sessions.ErrNotFound for unknown ids.
func (s *Service) CheckSession(ctx context.Context, id string) error {
	_, err := s.GetSession(ctx, id)
	return err
}

// UploadResume stores the resume bytes and extracts their text. The stored
// object becomes the email attachment; a previous upload is removed.
func (s *Service) UploadResume(ctx context.Context, id, fileName string, r io.Reader) (sessions.ApplicationContext, error) {
	ac, err := s.GetSession(ctx, id)
	if err != nil {
		return sessions.ApplicationContext{}, err
	}
	if strings.TrimSpace(fileName) == "" {
		return sessions.ApplicationContext{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}

	obj, err := s.Store.Save(ctx, ac.ID, fileName, r)
	if err != nil {
		return sessions.ApplicationContext{}, err
	}
	return s.attachResume(ctx, ac, obj)
}

// PresignResumeUpload issues a URL the client uploads the resume to without
// passing through the API. Only stores implementing object.DirectUploader
// support it.
func (s *Service) PresignResumeUpload(ctx context.Context, id, fileName, contentType string, sizeBytes int64) (object.Upload, error) {
	ac, err := s.GetSession(ctx, id)
	if err != nil {
		return object.Upload{}, err
	}
	uploader, ok := s.Store.(object.DirectUploader)
	if !ok {
		return object.Upload{}, ErrDirectUploadUnavailable
	}
	if strings.TrimSpace(fileName) == "" {
		return object.Upload{}, fmt.Errorf("%w: fileName is required", ErrInvalidInput)
	}
	if _, ok := allowedResumeTypes[strings.ToLower(strings.TrimSpace(contentType))]; !ok {
		return object.Upload{}, fmt.Errorf("%w: unsupported content type", ErrInvalidInput)
	}
	if sizeBytes <= 0 || sizeBytes > MaxResumeBytes {
		return object.Upload{}, fmt.Errorf("%w: sizeBytes must be between 1 and %d", ErrInvalidInput, MaxResumeBytes)
	}
	return uploader.PresignUpload(ctx, ac.ID, fileName)
}

// AttachUploadedResume extracts a resume the client uploaded through a
// presigned URL and makes it the session attachment.
func (s *Service) AttachUploadedResume(ctx context.Context, id, key string) (sessions.ApplicationContext, error) {
	ac, err := s.GetSession(ctx, id)
	if err != nil {
		return sessions.ApplicationContext{}, err
	}
	uploader, ok := s.Store.(object.DirectUploader)
	if !ok {
		return sessions.ApplicationContext{}, ErrDirectUploadUnavailable
	}
	key = strings.TrimSpace(key)
	if !object.InNamespace(key, ac.ID) {
		return sessions.ApplicationContext{}, fmt.Errorf("%w: key does not belong to this session", ErrInvalidInput)
	}

	obj, err := uploader.Stat(ctx, key)
	if err != nil {
		return sessions.ApplicationContext{}, err
	}
	if obj.SizeBytes > MaxResumeBytes {
		_ = s.Store.Delete(ctx, key)
		return sessions.ApplicationContext{}, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidInput, MaxResumeBytes)
	}
	return s.attachResume(ctx, ac, obj)
}

func (s *Service) attachResume(ctx context.Context, ac sessions.ApplicationContext, obj object.Object) (sessions.ApplicationContext, error) {
	text, err := extract.FromObject(ctx, s.Store, obj)
	if err != nil {
		_ = s.Store.Delete(ctx, obj.Key)
		if errors.Is(err, extract.ErrUnsupported) || errors.Is(err, extract.ErrNoText) {
			return sessions.ApplicationContext{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return sessions.ApplicationContext{}, err
	}

	if ac.AttachmentPath != "" && ac.AttachmentPath != obj.Key {
		if err := s.Store.Delete(ctx, ac.AttachmentPath); err != nil {
			telemetry.Warn("resume.cleanup_failed", map[string]any{"session_id": ac.ID, "key": ac.AttachmentPath, "error": err})
		}
	}

	ac.ResumeText = text
	ac.ResumeFileName = obj.FileName
	ac.AttachmentPath = obj.Key
	ac.UpdatedAt = s.clock()
	if err := s.Sessions.Save(ctx, ac); err != nil {
		return sessions.ApplicationContext{}, err
	}

	telemetry.Info("resume.uploaded", map[string]any{
		"session_id": ac.ID,
		"file_name":  obj.FileName,
		"size_bytes": obj.SizeBytes,
		"chars":      len([]rune(text)),
	})
	return ac, nil
}

// SetJobDescription stores job text typed by the user, or fetched from jobURL
// when text is blank.
func (s *Service) SetJobDescription(ctx context.Context, id, text, jobURL string) (sessions.ApplicationContext, error) {
	ac, err := s.GetSession(ctx, id)
	if err != nil {
		return sessions.ApplicationContext{}, err
	}

	text = strings.TrimSpace(text)
	jobURL = strings.TrimSpace(jobURL)
	source := ""
	switch {
	case text != "":
	case jobURL != "":
		if s.Fetcher == nil {
			return sessions.ApplicationContext{}, fmt.Errorf("%w: job url fetching is disabled", ErrInvalidInput)
		}
		posting, err := s.Fetcher.FetchJobDescription(ctx, jobURL)
		if err != nil {
			if errors.Is(err, scrape.ErrInvalidURL) {
				return sessions.ApplicationContext{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
			}
			return sessions.ApplicationContext{}, err
		}
		text = posting.Text
		source = posting.URL
	default:
		return sessions.ApplicationContext{}, apperr.Missing("job description")
	}

	ac.JobDescription = text
	ac.JobSourceURL = source
	ac.UpdatedAt = s.clock()
	if err := s.Sessions.Save(ctx, ac); err != nil {
		return sessions.ApplicationContext{}, err
	}
	return ac, nil
}

// SetRecipient validates and stores the hiring contact address.
func (s *Service) SetRecipient(ctx context.Context, id, address string) (sessions.ApplicationContext, error) {
	ac, err := s.GetSession(ctx, id)
	if err != nil {
		return sessions.ApplicationContext{}, err
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return sessions.ApplicationContext{}, apperr.Missing("recipient")
	}
	parsed, err := mail.ParseAddress(address)
	if err != nil {
		return sessions.ApplicationContext{}, fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}

	ac.RecipientEmail = parsed.Address
	ac.UpdatedAt = s.clock()
	if err := s.Sessions.Save(ctx, ac); err != nil {
		return sessions.ApplicationContext{}, err
	}
	return ac, nil
}

// Analyze runs the match analysis and records it in history.
func (s *Service) Analyze(ctx context.Context, ac sessions.ApplicationContext) (analysis.Result, error) {
	res, err := analysis.Analyze(ctx, ac.ResumeText, ac.JobDescription, s.Generator)
	if err != nil {
		return analysis.Result{}, err
	}
	if res.GenerationErr != nil {
		telemetry.Warn("analysis.fallback", map[string]any{"session_id": ac.ID, "error": res.GenerationErr})
	}
	s.record(ctx, history.NewEntry(ac.ID, history.KindAnalysis, string(ActionAnalyze), "", "Match analysis", res.Text))
	return res, nil
}

// ComposeEmail runs the content pipeline. When generation fails the canned
// template naming the candidate is used instead.
func (s *Service) ComposeEmail(ctx context.Context, ac sessions.ApplicationContext) (compose.GeneratedEmail, error) {
	email, err := compose.BuildEmail(ctx, ac.ResumeText, ac.JobDescription, ac.RecipientEmail, s.Generator)
	if err == nil {
		metrics.IncEmailComposed("generated")
		return email, nil
	}
	if !errors.Is(err, apperr.ErrGeneration) {
		return compose.GeneratedEmail{}, err
	}

	telemetry.Warn("email.template_fallback", map[string]any{"session_id": ac.ID, "error": err})
	metrics.IncEmailComposed("template")
	return compose.TemplateEmail(
		compose.ExtractCandidateName(ac.ResumeText),
		compose.ExtractJobTitle(ac.JobDescription),
	), nil
}

// Run executes one user action against the session. Analysis always runs;
// draft and send also compose and dispatch the email.
func (s *Service) Run(ctx context.Context, id string, action Action) (RunResult, error) {
	switch action {
	case ActionAnalyze, ActionDraft, ActionSend:
	default:
		return RunResult{}, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, action)
	}

	ac, err := s.GetSession(ctx, id)
	if err != nil {
		return RunResult{}, err
	}
	if action != ActionAnalyze && strings.TrimSpace(ac.RecipientEmail) == "" {
		return RunResult{}, apperr.Missing("recipient")
	}

	res, err := s.Analyze(ctx, ac)
	if err != nil {
		return RunResult{}, err
	}
	out := RunResult{Action: action, Analysis: &res}
	if action == ActionAnalyze {
		return out, nil
	}

	email, err := s.ComposeEmail(ctx, ac)
	if err != nil {
		return out, err
	}
	out.Email = &email

	receipt, err := s.dispatch(ctx, ac, email, dispatch.Action(action))
	if err != nil {
		return out, err
	}
	out.Receipt = &receipt

	s.record(ctx, history.NewEntry(ac.ID, history.KindEmail, string(action), ac.RecipientEmail, email.Subject, email.Body))
	return out, nil
}

func (s *Service) dispatch(ctx context.Context, ac sessions.ApplicationContext, email compose.GeneratedEmail, action dispatch.Action) (dispatch.Receipt, error) {
	var sender dispatch.Sender
	if s.Senders != nil {
		var err error
		sender, err = s.Senders.SenderFor(ctx, ac.ID)
		if err != nil && !errors.Is(err, apperr.ErrNotConnected) {
			return dispatch.Receipt{}, err
		}
	}

	msg := dispatch.Message{
		To:      ac.RecipientEmail,
		Subject: email.Subject,
		Body:    email.Body,
		Attachment: dispatch.Attachment{
			Path:     ac.AttachmentPath,
			FileName: ac.ResumeFileName,
		},
	}
	d := s.Dispatcher
	if d == nil {
		d = dispatch.New()
	}
	return d.Dispatch(ctx, sender, msg, action)
}

// History returns the most recent entries for a session, newest first.
func (s *Service) History(ctx context.Context, id string) ([]history.Entry, error) {
	if _, err := s.GetSession(ctx, id); err != nil {
		return nil, err
	}
	if s.HistoryRepo == nil {
		return []history.Entry{}, nil
	}
	return s.HistoryRepo.Recent(ctx, id, s.HistoryLimit)
}

func (s *Service) record(ctx context.Context, entry history.Entry) {
	if s.HistoryRepo == nil {
		return
	}
	if err := s.HistoryRepo.Append(ctx, entry); err != nil {
		telemetry.Warn("history.append_failed", map[string]any{"session_id": entry.SessionID, "kind": string(entry.Kind), "error": err})
	}
}

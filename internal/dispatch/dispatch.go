package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"jobapply-backend/internal/shared/apperr"
	"jobapply-backend/internal/shared/metrics"
	"jobapply-backend/internal/shared/storage/object"
	"jobapply-backend/internal/shared/telemetry"
)

// Action selects between creating a draft and sending immediately.
type Action string

const (
	ActionDraft Action = "draft"
	ActionSend  Action = "send"
)

// ParseAction validates a user-supplied action name.
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionDraft:
		return ActionDraft, nil
	case ActionSend:
		return ActionSend, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// Sender is the mail provider capability. Both calls take the base64url raw message.
type Sender interface {
	CreateDraft(ctx context.Context, raw string) (id string, err error)
	Send(ctx context.Context, raw string) (id string, err error)
}

// validity is optionally implemented by senders whose credentials can expire.
type validity interface {
	Valid() bool
}

// AttachmentSource opens attachment bytes by path or key. object.ObjectStore satisfies it.
type AttachmentSource interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Files opens attachments from the local filesystem.
type Files struct{}

// Open opens path for reading.
func (Files) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Attachment names the resume file to attach.
type Attachment struct {
	// Path is the filesystem path or storage key passed to the AttachmentSource.
	Path string
	// FileName overrides the basename of Path in Content-Disposition.
	FileName string
}

// Message is the email to dispatch.
type Message struct {
	To         string
	Subject    string
	Body       string
	Attachment Attachment
}

// Receipt identifies the created draft or sent message.
type Receipt struct {
	Action Action `json:"action"`
	ID     string `json:"id"`
}

// Dispatcher builds MIME messages and hands them to a Sender.
type Dispatcher struct {
	attachments AttachmentSource
	withHTML    bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithAttachmentSource reads attachments from src instead of the filesystem.
func WithAttachmentSource(src AttachmentSource) Option {
	return func(d *Dispatcher) {
		if src != nil {
			d.attachments = src
		}
	}
}

// WithHTMLPart adds a text/html alternative to the plain-text body.
func WithHTMLPart(enabled bool) Option {
	return func(d *Dispatcher) { d.withHTML = enabled }
}

// New returns a Dispatcher reading attachments from the filesystem by default.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{attachments: Files{}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch attaches the resume and creates a draft or sends the message.
// A missing attachment is reported before the sender is consulted, so no
// provider call is made.
func (d *Dispatcher) Dispatch(ctx context.Context, sender Sender, msg Message, action Action) (Receipt, error) {
	data, err := d.readAttachment(ctx, msg.Attachment.Path)
	if err != nil {
		return Receipt{}, err
	}
	if !connected(sender) {
		return Receipt{}, apperr.ErrNotConnected
	}
	if strings.TrimSpace(msg.To) == "" {
		return Receipt{}, apperr.Missing("recipient")
	}
	if action != ActionDraft && action != ActionSend {
		return Receipt{}, fmt.Errorf("unknown action %q", action)
	}

	raw, err := Build(msg, data, d.withHTML)
	if err != nil {
		return Receipt{}, fmt.Errorf("build message: %w", err)
	}
	encoded := Encode(raw)

	var id string
	if action == ActionDraft {
		id, err = sender.CreateDraft(ctx, encoded)
	} else {
		id, err = sender.Send(ctx, encoded)
	}
	if err != nil {
		metrics.IncDispatch(string(action), "error")
		telemetry.Error("dispatch.failed", map[string]any{"action": string(action), "error": err})
		return Receipt{}, &apperr.DispatchError{Action: string(action), Err: err}
	}

	metrics.IncDispatch(string(action), "ok")
	telemetry.Info("dispatch.ok", map[string]any{"action": string(action), "id": id})
	return Receipt{Action: action, ID: id}, nil
}

func (d *Dispatcher) readAttachment(ctx context.Context, path string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: no resume uploaded", apperr.ErrAttachmentNotFound)
	}
	rc, err := d.attachments.Open(ctx, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, object.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrAttachmentNotFound, path)
		}
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}
	return data, nil
}

func connected(sender Sender) bool {
	if sender == nil {
		return false
	}
	if v, ok := sender.(validity); ok {
		return v.Valid()
	}
	return true
}

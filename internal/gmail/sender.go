package gmail

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"jobapply-backend/internal/auth"
	"jobapply-backend/internal/dispatch"
	"jobapply-backend/internal/shared/apperr"
	"jobapply-backend/internal/shared/telemetry"
)

// userID addresses the authenticated mailbox.
const userID = "me"

// Sender creates drafts and sends messages through the Gmail API.
type Sender struct {
	svc   *gmailapi.Service
	token *oauth2.Token
}

// NewSender builds a Sender from client options (token source, endpoint).
// tok is used only to report Valid; nil means the options carry credentials.
func NewSender(ctx context.Context, tok *oauth2.Token, opts ...option.ClientOption) (*Sender, error) {
	svc, err := gmailapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}
	return &Sender{svc: svc, token: tok}, nil
}

// CreateDraft stores raw as a draft and returns the draft ID.
func (s *Sender) CreateDraft(ctx context.Context, raw string) (string, error) {
	draft, err := s.svc.Users.Drafts.Create(userID, &gmailapi.Draft{
		Message: &gmailapi.Message{Raw: raw},
	}).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return draft.Id, nil
}

// Send delivers raw and returns the sent message ID.
func (s *Sender) Send(ctx context.Context, raw string) (string, error) {
	msg, err := s.svc.Users.Messages.Send(userID, &gmailapi.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return msg.Id, nil
}

// Valid reports whether the sender holds a usable or refreshable token.
func (s *Sender) Valid() bool {
	if s == nil || s.svc == nil {
		return false
	}
	if s.token == nil {
		return true
	}
	return s.token.Valid() || s.token.RefreshToken != ""
}

// Provider resolves a Sender for a token key (a session ID or "cli").
type Provider struct {
	config *oauth2.Config
	tokens auth.TokenStore
	opts   []option.ClientOption
}

// NewProvider returns a Provider. Extra options are appended to every service.
func NewProvider(cfg *oauth2.Config, tokens auth.TokenStore, opts ...option.ClientOption) *Provider {
	return &Provider{config: cfg, tokens: tokens, opts: opts}
}

// SenderFor returns a Sender for key, or apperr.ErrNotConnected when no usable
// token is stored.
func (p *Provider) SenderFor(ctx context.Context, key string) (dispatch.Sender, error) {
	if p == nil || p.config == nil || p.tokens == nil {
		return nil, apperr.ErrNotConnected
	}
	tok, err := p.tokens.Load(ctx, key)
	if errors.Is(err, auth.ErrNoToken) {
		return nil, apperr.ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrNotConnected, err)
	}
	if !tok.Valid() && tok.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token expired", apperr.ErrNotConnected)
	}

	// The refresh context must outlive the request that created the sender.
	base := p.config.TokenSource(context.WithoutCancel(ctx), tok)
	ts := &persistingSource{base: base, store: p.tokens, key: key, last: tok.AccessToken}
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, p.opts...)

	sender, err := NewSender(ctx, tok, opts...)
	if err != nil {
		return nil, err
	}
	return sender, nil
}

// persistingSource saves refreshed tokens back to the store.
type persistingSource struct {
	base  oauth2.TokenSource
	store auth.TokenStore
	key   string

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.store.Save(context.Background(), s.key, tok); err != nil {
			telemetry.Warn("gmail.token_persist_failed", map[string]any{"error": err})
		}
	}
	return tok, nil
}

var _ dispatch.Sender = (*Sender)(nil)
